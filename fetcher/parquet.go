package fetcher

import (
	"context"
	"errors"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jamesrr39/goutil/errorsx"
	"github.com/jamesrr39/goutil/logpkg"
	"github.com/parquet-go/parquet-go"
	"github.com/spf13/afero"
	"github.com/vegasq/sqlhub/table"
	"howett.net/ranger"
)

// FileField names the extra field recording the source file when a
// collection is read from a directory of parquet files.
const FileField = "_file"

// maxParquetFiles bounds how many files one collection directory may hold.
const maxParquetFiles = 1000

// ParquetFetcher reads labels from parquet files. "acme.issues" is read from
// <root>/acme/issues.parquet, or from every *.parquet file in the directory
// <root>/acme/issues. A bare org reads <root>/acme.parquet. Remote fetchers
// build the same paths under a base URL and read them with HTTP range requests.
type ParquetFetcher struct {
	fs      afero.Fs
	root    string
	baseURL *url.URL
	logger  *logpkg.Logger
	now     func() time.Time
}

type ParquetOption func(*ParquetFetcher)

func WithParquetLogger(logger *logpkg.Logger) ParquetOption {
	return func(f *ParquetFetcher) { f.logger = logger }
}

func WithParquetClock(now func() time.Time) ParquetOption {
	return func(f *ParquetFetcher) { f.now = now }
}

// NewParquetFetcher reads files below root on fs.
func NewParquetFetcher(fs afero.Fs, root string, opts ...ParquetOption) *ParquetFetcher {
	return newParquetFetcher(&ParquetFetcher{fs: fs, root: root}, opts)
}

// NewRemoteParquetFetcher reads files below baseURL.
func NewRemoteParquetFetcher(baseURL string, opts ...ParquetOption) (*ParquetFetcher, errorsx.Error) {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, errorsx.Wrap(err, "baseURL", baseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errorsx.Errorf("unsupported scheme %q in %q", u.Scheme, baseURL)
	}
	return newParquetFetcher(&ParquetFetcher{baseURL: u}, opts), nil
}

func newParquetFetcher(f *ParquetFetcher, opts []ParquetOption) *ParquetFetcher {
	f.now = time.Now
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = logpkg.NewLogger(io.Discard, logpkg.LogLevelError)
	}
	return f
}

func (f *ParquetFetcher) Fetch(ctx context.Context, rawLabel string) (*table.Table, errorsx.Error) {
	label, err := ParseLabel(rawLabel)
	if err != nil {
		return nil, err
	}

	parts := []string{label.Org}
	if label.Collection != "" {
		parts = append(parts, label.Collection)
	}

	var tbl *table.Table
	if f.baseURL != nil {
		tbl, err = f.fetchRemote(ctx, parts)
	} else {
		tbl, err = f.fetchLocal(parts)
	}
	if err != nil {
		return nil, errorsx.Wrap(err, "label", rawLabel)
	}
	return ApplyModifiers(tbl, label, f.now()), nil
}

func (f *ParquetFetcher) fetchLocal(parts []string) (*table.Table, errorsx.Error) {
	base := filepath.Join(append([]string{f.root}, parts...)...)

	filePath := base + ".parquet"
	if _, err := f.fs.Stat(filePath); err == nil {
		return f.readFile(filePath)
	}

	info, err := f.fs.Stat(base)
	if err != nil || !info.IsDir() {
		return nil, errorsx.Errorf("%w: no parquet file at %s", ErrNotFound, filePath)
	}

	matches, err := afero.Glob(f.fs, filepath.Join(base, "*.parquet"))
	if err != nil {
		return nil, errorsx.Wrap(err, "dir", base)
	}
	if len(matches) == 0 {
		return nil, errorsx.Errorf("%w: no parquet files in %s", ErrNotFound, base)
	}
	if len(matches) > maxParquetFiles {
		return nil, errorsx.Errorf("%d parquet files in %s, maximum is %d", len(matches), base, maxParquetFiles)
	}
	sort.Strings(matches)

	var merged *table.Table
	for _, match := range matches {
		tbl, err := f.readFile(match)
		if err != nil {
			return nil, err
		}
		tagged := tbl.Chain(constantColumn(FileField, table.String(match), tbl.Len()))
		if merged == nil {
			merged = table.New(tagged.Fields()...)
		}
		for _, row := range tagged.Rows() {
			if err := merged.Append(row); err != nil {
				return nil, errorsx.Wrap(err, "file", match)
			}
		}
	}
	return merged, nil
}

func (f *ParquetFetcher) readFile(filePath string) (*table.Table, errorsx.Error) {
	file, err := f.fs.Open(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errorsx.Errorf("%w: %s", ErrNotFound, filePath)
		}
		return nil, errorsx.Wrap(err, "file", filePath)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, errorsx.Wrap(err, "file", filePath)
	}

	startTime := time.Now()
	tbl, tErr := readParquet(file, stat.Size())
	if tErr != nil {
		return nil, errorsx.Wrap(tErr, "file", filePath)
	}
	f.logger.Debug("read %d rows from %s in %s", tbl.Len(), filePath, time.Since(startTime))
	return tbl, nil
}

func (f *ParquetFetcher) fetchRemote(ctx context.Context, parts []string) (*table.Table, errorsx.Error) {
	u := *f.baseURL
	u.Path = path.Join(append([]string{u.Path}, parts...)...) + ".parquet"

	if err := ctx.Err(); err != nil {
		return nil, errorsx.Wrap(err)
	}
	reader, err := ranger.NewReader(&ranger.HTTPRanger{URL: &u})
	if err != nil {
		return nil, errorsx.Errorf("%w: %s: %s", ErrUnreachable, u.String(), err)
	}
	length, err := reader.Length()
	if err != nil {
		return nil, errorsx.Errorf("%w: length of %s: %s", ErrUnreachable, u.String(), err)
	}

	tbl, tErr := readParquet(reader, length)
	if tErr != nil {
		return nil, errorsx.Wrap(tErr, "url", u.String())
	}
	return tbl, nil
}

// readParquet reads every row of a parquet file, with fields in schema order.
func readParquet(r io.ReaderAt, size int64) (*table.Table, errorsx.Error) {
	pqFile, err := parquet.OpenFile(r, size)
	if err != nil {
		return nil, errorsx.Wrap(err)
	}

	var fields []string
	for _, field := range pqFile.Schema().Fields() {
		fields = append(fields, field.Name())
	}
	tbl := table.New(fields...)

	reader := parquet.NewReader(pqFile)
	defer reader.Close()

	for {
		record := make(map[string]interface{})
		err := reader.Read(&record)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, errorsx.Wrap(err, "row", tbl.Len())
		}

		row := make(table.Row, len(fields))
		for i, name := range fields {
			row[i] = table.FromNative(record[name])
		}
		if err := tbl.Append(row); err != nil {
			return nil, err
		}
	}
	return tbl, nil
}

func constantColumn(name string, v table.Value, n int) *table.Table {
	tbl := table.New(name)
	for i := 0; i < n; i++ {
		// a single value always matches the single field
		_ = tbl.Append(table.Row{v})
	}
	return tbl
}
