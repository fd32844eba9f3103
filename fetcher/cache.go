package fetcher

import (
	"context"
	"encoding/binary"
	"io"
	"time"

	"github.com/boltdb/bolt"
	"github.com/golang/snappy"
	"github.com/jamesrr39/goutil/errorsx"
	"github.com/jamesrr39/goutil/logpkg"
	"github.com/klauspost/compress/zstd"
	"github.com/vegasq/sqlhub/query"
	"github.com/vegasq/sqlhub/table"
)

// Codec compresses cached tables.
type Codec byte

const (
	CodecNone Codec = iota
	CodecSnappy
	CodecZstd
)

var codecNames = map[string]Codec{
	"none":   CodecNone,
	"snappy": CodecSnappy,
	"zstd":   CodecZstd,
}

// ParseCodec looks up a codec by name.
func ParseCodec(name string) (Codec, errorsx.Error) {
	codec, ok := codecNames[name]
	if !ok {
		return 0, errorsx.Errorf("unknown cache codec %q", name)
	}
	return codec, nil
}

var cacheBucket = []byte("tables")

// entry layout: 8 byte big endian expiry in unix nanoseconds, 1 byte codec, payload
const cacheHeaderSize = 9

// OpenCacheDB opens, creating if needed, a bolt database for CachingFetcher.
func OpenCacheDB(path string) (*bolt.DB, errorsx.Error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errorsx.Wrap(err, "path", path)
	}
	return db, nil
}

// CachingFetcher keeps the tables another fetcher returns in a bolt bucket,
// keyed by label, until their TTL passes. Failures to write the cache are
// logged and do not fail the fetch.
type CachingFetcher struct {
	db      *bolt.DB
	next    query.Fetcher
	ttl     time.Duration
	codec   Codec
	encoder *zstd.Encoder
	decoder *zstd.Decoder
	logger  *logpkg.Logger
	now     func() time.Time
}

type CacheOption func(*CachingFetcher)

func WithCacheLogger(logger *logpkg.Logger) CacheOption {
	return func(f *CachingFetcher) { f.logger = logger }
}

func WithCacheClock(now func() time.Time) CacheOption {
	return func(f *CachingFetcher) { f.now = now }
}

func NewCachingFetcher(db *bolt.DB, next query.Fetcher, ttl time.Duration, codec Codec, opts ...CacheOption) (*CachingFetcher, errorsx.Error) {
	err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(cacheBucket)
		return err
	})
	if err != nil {
		return nil, errorsx.Wrap(err)
	}

	f := &CachingFetcher{
		db:    db,
		next:  next,
		ttl:   ttl,
		codec: codec,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = logpkg.NewLogger(io.Discard, logpkg.LogLevelError)
	}

	f.encoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, errorsx.Wrap(err)
	}
	f.decoder, err = zstd.NewReader(nil)
	if err != nil {
		f.encoder.Close()
		return nil, errorsx.Wrap(err)
	}
	return f, nil
}

// Close releases the codecs. It does not close the database.
func (f *CachingFetcher) Close() error {
	f.decoder.Close()
	return f.encoder.Close()
}

func (f *CachingFetcher) Fetch(ctx context.Context, label string) (*table.Table, errorsx.Error) {
	tbl, err := f.lookup(label)
	if err != nil {
		f.logger.Warn("ignoring unreadable cache entry for %q: %s", label, err)
	}
	if tbl != nil {
		f.logger.Debug("cache hit for %q", label)
		return tbl, nil
	}

	tbl, err = f.next.Fetch(ctx, label)
	if err != nil {
		return nil, err
	}

	if err := f.store(label, tbl); err != nil {
		f.logger.Warn("could not cache %q: %s", label, err)
	}
	return tbl, nil
}

// Invalidate drops the cached table for label, if any.
func (f *CachingFetcher) Invalidate(label string) errorsx.Error {
	err := f.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(cacheBucket).Delete([]byte(label))
	})
	if err != nil {
		return errorsx.Wrap(err, "label", label)
	}
	return nil
}

// Prune drops every expired entry and returns how many it dropped.
func (f *CachingFetcher) Prune() (int, errorsx.Error) {
	now := f.now().UnixNano()
	pruned := 0
	err := f.db.Update(func(tx *bolt.Tx) error {
		var expired [][]byte
		c := tx.Bucket(cacheBucket).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if len(v) < cacheHeaderSize || int64(binary.BigEndian.Uint64(v)) <= now {
				expired = append(expired, append([]byte{}, k...))
			}
		}
		for _, k := range expired {
			if err := tx.Bucket(cacheBucket).Delete(k); err != nil {
				return err
			}
		}
		pruned = len(expired)
		return nil
	})
	if err != nil {
		return 0, errorsx.Wrap(err)
	}
	return pruned, nil
}

// lookup returns nil without an error when there is no live entry.
func (f *CachingFetcher) lookup(label string) (*table.Table, errorsx.Error) {
	var entry []byte
	err := f.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(cacheBucket).Get([]byte(label))
		if v != nil {
			// bolt values are only valid inside the transaction
			entry = append([]byte{}, v...)
		}
		return nil
	})
	if err != nil {
		return nil, errorsx.Wrap(err)
	}
	if entry == nil {
		return nil, nil
	}
	if len(entry) < cacheHeaderSize {
		return nil, errorsx.Errorf("cache entry of %d bytes is too short", len(entry))
	}

	expiry := int64(binary.BigEndian.Uint64(entry))
	if f.now().UnixNano() >= expiry {
		return nil, nil
	}

	payload, err := f.decompress(Codec(entry[8]), entry[cacheHeaderSize:])
	if err != nil {
		return nil, errorsx.Wrap(err)
	}
	return table.Decode(payload)
}

func (f *CachingFetcher) store(label string, tbl *table.Table) errorsx.Error {
	payload, tErr := table.Encode(tbl)
	if tErr != nil {
		return tErr
	}

	entry := make([]byte, cacheHeaderSize)
	binary.BigEndian.PutUint64(entry, uint64(f.now().Add(f.ttl).UnixNano()))
	entry[8] = byte(f.codec)
	entry = append(entry, f.compress(payload)...)

	err := f.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(cacheBucket).Put([]byte(label), entry)
	})
	if err != nil {
		return errorsx.Wrap(err, "label", label)
	}
	return nil
}

func (f *CachingFetcher) compress(data []byte) []byte {
	switch f.codec {
	case CodecSnappy:
		return snappy.Encode(nil, data)
	case CodecZstd:
		return f.encoder.EncodeAll(data, nil)
	}
	return data
}

func (f *CachingFetcher) decompress(codec Codec, data []byte) ([]byte, error) {
	switch codec {
	case CodecNone:
		return data, nil
	case CodecSnappy:
		return snappy.Decode(nil, data)
	case CodecZstd:
		return f.decoder.DecodeAll(data, nil)
	}
	return nil, errorsx.Errorf("unknown cache codec %d", codec)
}
