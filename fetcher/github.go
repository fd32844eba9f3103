package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/jamesrr39/goutil/errorsx"
	"github.com/jamesrr39/goutil/httpextra"
	"github.com/jamesrr39/goutil/logpkg"
	"github.com/jamesrr39/semaphore"
	"github.com/ohler55/ojg/oj"
	"github.com/vegasq/sqlhub/table"
)

const (
	DefaultGitHubURL         = "https://api.github.com"
	DefaultGitHubConcurrency = 4
	gitHubPageSize           = 100
)

// GitHubFetcher reads organisations, and their repositories, issues, pull
// requests and commits, from the GitHub REST API.
type GitHubFetcher struct {
	client      httpextra.Doer
	baseURL     string
	token       string
	concurrency uint
	logger      *logpkg.Logger
	now         func() time.Time
}

type GitHubOption func(*GitHubFetcher)

// WithBaseURL points the fetcher at a GitHub Enterprise instance, or a test server.
func WithBaseURL(baseURL string) GitHubOption {
	return func(f *GitHubFetcher) { f.baseURL = strings.TrimSuffix(baseURL, "/") }
}

func WithToken(token string) GitHubOption {
	return func(f *GitHubFetcher) { f.token = token }
}

// WithConcurrency bounds how many repositories are fetched at once.
func WithConcurrency(n uint) GitHubOption {
	return func(f *GitHubFetcher) {
		if n > 0 {
			f.concurrency = n
		}
	}
}

func WithGitHubLogger(logger *logpkg.Logger) GitHubOption {
	return func(f *GitHubFetcher) { f.logger = logger }
}

func WithGitHubClock(now func() time.Time) GitHubOption {
	return func(f *GitHubFetcher) { f.now = now }
}

func NewGitHubFetcher(client httpextra.Doer, opts ...GitHubOption) *GitHubFetcher {
	f := &GitHubFetcher{
		client:      client,
		baseURL:     DefaultGitHubURL,
		concurrency: DefaultGitHubConcurrency,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = logpkg.NewLogger(io.Discard, logpkg.LogLevelError)
	}
	return f
}

// Fetch reads the table for a label. Collections other than repos are
// gathered from every repository of the organisation.
func (f *GitHubFetcher) Fetch(ctx context.Context, rawLabel string) (*table.Table, errorsx.Error) {
	label, err := ParseLabel(rawLabel)
	if err != nil {
		return nil, err
	}

	s, ok := schemas[label.Collection]
	if !ok {
		return nil, errorsx.Errorf("%w: unknown collection %q", ErrNotFound, label.Collection)
	}

	org := url.PathEscape(label.Org)
	switch label.Collection {
	case "":
		item, err := f.getObject(ctx, f.baseURL+"/orgs/"+org)
		if err != nil {
			return nil, err
		}
		tbl := table.New(s.fields()...)
		if err := tbl.Append(s.row(item)); err != nil {
			return nil, err
		}
		return tbl, nil
	case "repos":
		items, err := f.getList(ctx, f.baseURL+"/orgs/"+org+"/repos?type=all")
		if err != nil {
			return nil, err
		}
		tbl := table.New(s.fields()...)
		for _, item := range items {
			if err := tbl.Append(s.row(item)); err != nil {
				return nil, err
			}
		}
		return ApplyModifiers(tbl, label, f.now()), nil
	default:
		return f.fetchPerRepo(ctx, label, s)
	}
}

func (f *GitHubFetcher) fetchPerRepo(ctx context.Context, label Label, s schema) (*table.Table, errorsx.Error) {
	repoItems, err := f.getList(ctx, f.baseURL+"/orgs/"+url.PathEscape(label.Org)+"/repos?type=all")
	if err != nil {
		return nil, err
	}
	var repos []string
	for _, item := range repoItems {
		if obj, ok := item.(map[string]interface{}); ok {
			if name, ok := obj["name"].(string); ok {
				repos = append(repos, name)
			}
		}
	}

	results := make([][]interface{}, len(repos))
	var (
		mu       sync.Mutex
		firstErr errorsx.Error
	)
	sema := semaphore.NewSemaphore(f.concurrency)
	for i, repo := range repos {
		sema.Add()
		go func(i int, repo string) {
			defer sema.Done()
			if ctx.Err() != nil {
				return
			}
			items, err := f.getList(ctx, f.collectionURL(label, repo))
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = errorsx.Wrap(err, "repo", repo)
				}
				mu.Unlock()
				return
			}
			results[i] = items
		}(i, repo)
	}
	sema.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	if ctx.Err() != nil {
		return nil, errorsx.Wrap(ctx.Err())
	}

	tbl := table.New(append([]string{repoField}, s.fields()...)...)
	for i, items := range results {
		for _, item := range items {
			if obj, ok := item.(map[string]interface{}); ok && label.Collection == "issues" {
				// the issues endpoint lists pull requests too
				if _, isPull := obj["pull_request"]; isPull {
					continue
				}
			}
			row := append(table.Row{table.String(repos[i])}, s.row(item)...)
			if err := tbl.Append(row); err != nil {
				return nil, err
			}
		}
	}
	f.logger.Debug("fetched %d %s from %d repositories of %s", tbl.Len(), label.Collection, len(repos), label.Org)

	// pulls cannot be filtered by date at the source
	return ApplyModifiers(tbl, label, f.now()), nil
}

func (f *GitHubFetcher) collectionURL(label Label, repo string) string {
	base := fmt.Sprintf("%s/repos/%s/%s/%s", f.baseURL, url.PathEscape(label.Org), url.PathEscape(repo), label.Collection)
	params := url.Values{}
	switch label.Collection {
	case "issues", "pulls":
		state := label.State
		if state == "" {
			state = StateAll
		}
		params.Set("state", state)
	}
	if since := label.Since(f.now()); !since.IsZero() && label.Collection != "pulls" {
		params.Set("since", since.UTC().Format(time.RFC3339))
	}
	if len(params) == 0 {
		return base
	}
	return base + "?" + params.Encode()
}

// getList follows the pagination of a list endpoint and returns every item.
func (f *GitHubFetcher) getList(ctx context.Context, rawURL string) ([]interface{}, errorsx.Error) {
	var items []interface{}
	next := withPageSize(rawURL)
	for next != "" {
		data, header, err := f.get(ctx, next)
		if err != nil {
			return nil, err
		}
		page, ok := data.([]interface{})
		if !ok {
			return nil, errorsx.Errorf("%w: expected a list from %s", ErrUnreachable, next)
		}
		items = append(items, page...)
		next = nextPageURL(header.Get("Link"))
	}
	return items, nil
}

func (f *GitHubFetcher) getObject(ctx context.Context, rawURL string) (interface{}, errorsx.Error) {
	data, _, err := f.get(ctx, rawURL)
	return data, err
}

func (f *GitHubFetcher) get(ctx context.Context, rawURL string) (interface{}, http.Header, errorsx.Error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, nil, errorsx.Wrap(err, "url", rawURL)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}

	startTime := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, nil, errorsx.Errorf("%w: %s: %s", ErrUnreachable, rawURL, err)
	}
	defer resp.Body.Close()
	f.logger.Debug("GET %s: %d in %s", rawURL, resp.StatusCode, time.Since(startTime))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, nil, errorsx.Errorf("%w: %s", ErrNotFound, rawURL)
	case resp.StatusCode >= 300:
		return nil, nil, errorsx.Errorf("%w: %s returned %s: %s", ErrUnreachable, rawURL, resp.Status, httpextra.GetBodyOrErrorMsg(resp))
	}

	r, err := httpextra.RemoveGzip(resp)
	if err != nil {
		return nil, nil, errorsx.Errorf("%w: reading %s: %s", ErrUnreachable, rawURL, err)
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, errorsx.Errorf("%w: reading %s: %s", ErrUnreachable, rawURL, err)
	}
	data, err := oj.Parse(body)
	if err != nil {
		return nil, nil, errorsx.Errorf("%w: invalid JSON from %s: %s", ErrUnreachable, rawURL, err)
	}
	return data, resp.Header, nil
}

func withPageSize(rawURL string) string {
	sep := "?"
	if strings.Contains(rawURL, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%sper_page=%d", rawURL, sep, gitHubPageSize)
}

var linkNextRegexp = regexp.MustCompile(`<([^>]+)>\s*;\s*rel="next"`)

// nextPageURL finds the rel="next" target of a Link header.
func nextPageURL(link string) string {
	for _, part := range strings.Split(link, ",") {
		if m := linkNextRegexp.FindStringSubmatch(part); m != nil {
			return m[1]
		}
	}
	return ""
}
