package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jamesrr39/goutil/httpextra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vegasq/sqlhub/table"
)

func jsonResponse(status int, body string, header http.Header) *http.Response {
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{
		StatusCode: status,
		Status:     fmt.Sprintf("%d %s", status, http.StatusText(status)),
		Header:     header,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

// fakeGitHub serves canned bodies by request path and records the requested URLs.
type fakeGitHub struct {
	mu       sync.Mutex
	pages    map[string]string
	links    map[string]string
	requests []string
}

func (g *fakeGitHub) doer() *httpextra.MockDoer {
	return &httpextra.MockDoer{DoFunc: func(req *http.Request) (*http.Response, error) {
		g.mu.Lock()
		g.requests = append(g.requests, req.URL.String())
		g.mu.Unlock()

		key := req.URL.Path
		if page := req.URL.Query().Get("page"); page != "" {
			key += "?page=" + page
		}
		body, ok := g.pages[key]
		if !ok {
			return jsonResponse(http.StatusNotFound, `{"message":"Not Found"}`, nil), nil
		}
		header := http.Header{}
		if link, ok := g.links[key]; ok {
			header.Set("Link", link)
		}
		return jsonResponse(http.StatusOK, body, header), nil
	}}
}

var fixedNow = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

func newFakeGitHub() *fakeGitHub {
	return &fakeGitHub{
		pages: map[string]string{
			"/orgs/acme": `{"login":"acme","id":7,"name":"Acme","public_repos":2,"plan":{"name":"free"}}`,
			"/orgs/acme/repos": `[
				{"name":"rockets","full_name":"acme/rockets","id":1,"language":"Go","stargazers_count":50,"fork":false,"topics":["space","go"],"updated_at":"2024-04-30T10:00:00Z"}
			]`,
			"/orgs/acme/repos?page=2": `[
				{"name":"anvils","full_name":"acme/anvils","id":2,"language":null,"stargazers_count":3,"fork":true,"topics":[],"updated_at":"2023-01-01T00:00:00Z"}
			]`,
			"/repos/acme/rockets/issues": `[
				{"number":1,"title":"Engine stalls","state":"open","user":{"login":"wile"},"labels":[{"name":"bug"},{"name":"p1"}],"comments":3,"updated_at":"2024-04-29T00:00:00Z"},
				{"number":2,"title":"Add boosters","state":"open","user":{"login":"road"},"labels":[],"comments":0,"pull_request":{"url":"x"},"updated_at":"2024-04-29T00:00:00Z"}
			]`,
			"/repos/acme/anvils/issues": `[
				{"number":9,"title":"Too heavy","state":"closed","user":{"login":"wile"},"labels":[{"name":"wontfix"}],"comments":1,"updated_at":"2024-04-01T00:00:00Z"}
			]`,
		},
		links: map[string]string{
			"/orgs/acme/repos": `<https://api.github.com/orgs/acme/repos?type=all&per_page=100&page=2>; rel="next", <https://api.github.com/orgs/acme/repos?type=all&per_page=100&page=2>; rel="last"`,
		},
	}
}

func newTestGitHubFetcher(g *fakeGitHub) *GitHubFetcher {
	return NewGitHubFetcher(g.doer(),
		WithToken("secret"),
		WithConcurrency(2),
		WithGitHubClock(func() time.Time { return fixedNow }),
	)
}

func TestGitHubFetcher_Org(t *testing.T) {
	tbl, err := newTestGitHubFetcher(newFakeGitHub()).Fetch(context.Background(), "acme")
	require.NoError(t, err)

	require.Equal(t, 1, tbl.Len())
	login, err := tbl.Values("login")
	require.NoError(t, err)
	assert.Equal(t, []table.Value{table.String("acme")}, login)
	repos, err := tbl.Values("public_repos")
	require.NoError(t, err)
	assert.Equal(t, []table.Value{table.Int(2)}, repos)
	blog, err := tbl.Values("blog")
	require.NoError(t, err)
	assert.Equal(t, []table.Value{table.None()}, blog)
}

func TestGitHubFetcher_ReposPaginated(t *testing.T) {
	tbl, err := newTestGitHubFetcher(newFakeGitHub()).Fetch(context.Background(), "acme.repos")
	require.NoError(t, err)

	names, err := tbl.Values("name")
	require.NoError(t, err)
	assert.Equal(t, []table.Value{table.String("rockets"), table.String("anvils")}, names)

	topics, err := tbl.Values("topics")
	require.NoError(t, err)
	assert.Equal(t, []table.Value{table.List(table.String("space"), table.String("go")), table.List()}, topics)

	language, err := tbl.Values("language")
	require.NoError(t, err)
	assert.Equal(t, []table.Value{table.String("Go"), table.None()}, language)
}

func TestGitHubFetcher_ReposDayWindow(t *testing.T) {
	tbl, err := newTestGitHubFetcher(newFakeGitHub()).Fetch(context.Background(), "acme.repos.30")
	require.NoError(t, err)

	names, err := tbl.Values("name")
	require.NoError(t, err)
	assert.Equal(t, []table.Value{table.String("rockets")}, names)
}

func TestGitHubFetcher_Issues(t *testing.T) {
	g := newFakeGitHub()
	tbl, err := newTestGitHubFetcher(g).Fetch(context.Background(), "acme.issues")
	require.NoError(t, err)

	assert.Equal(t, append([]string{"repo"}, schemas["issues"].fields()...), tbl.Fields())
	require.Equal(t, 2, tbl.Len())

	repos, err := tbl.Values("repo")
	require.NoError(t, err)
	assert.Equal(t, []table.Value{table.String("rockets"), table.String("anvils")}, repos)

	labels, err := tbl.Values("labels")
	require.NoError(t, err)
	assert.Equal(t, table.List(table.String("bug"), table.String("p1")), labels[0])

	users, err := tbl.Values("user")
	require.NoError(t, err)
	assert.Equal(t, []table.Value{table.String("wile"), table.String("wile")}, users)

	for _, u := range g.requests {
		if strings.Contains(u, "/issues") {
			assert.Contains(t, u, "state=all")
			assert.Contains(t, u, "per_page=100")
		}
	}
}

func TestGitHubFetcher_IssuesStateAndWindow(t *testing.T) {
	g := newFakeGitHub()
	_, err := newTestGitHubFetcher(g).Fetch(context.Background(), "acme.issues.closed.7")
	require.NoError(t, err)

	var issueRequests []string
	for _, u := range g.requests {
		if strings.Contains(u, "/issues") {
			issueRequests = append(issueRequests, u)
		}
	}
	require.Len(t, issueRequests, 2)
	for _, u := range issueRequests {
		assert.Contains(t, u, "state=closed")
		assert.Contains(t, u, "since=2024-04-24T00%3A00%3A00Z")
	}
}

func TestGitHubFetcher_Errors(t *testing.T) {
	f := newTestGitHubFetcher(newFakeGitHub())

	_, err := f.Fetch(context.Background(), "nobody")
	assert.True(t, table.IsKind(err, ErrNotFound))

	_, err = f.Fetch(context.Background(), "acme.wikis")
	assert.True(t, table.IsKind(err, ErrNotFound))

	// no repository has a pulls page in the fake
	_, err = f.Fetch(context.Background(), "acme.pulls")
	assert.True(t, table.IsKind(err, ErrNotFound))

	broken := NewGitHubFetcher(&httpextra.MockDoer{DoFunc: func(req *http.Request) (*http.Response, error) {
		return nil, fmt.Errorf("connection refused")
	}})
	_, err = broken.Fetch(context.Background(), "acme")
	assert.True(t, table.IsKind(err, ErrUnreachable))

	limited := NewGitHubFetcher(&httpextra.MockDoer{DoFunc: func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusForbidden, `{"message":"API rate limit exceeded"}`, nil), nil
	}})
	_, err = limited.Fetch(context.Background(), "acme")
	require.Error(t, err)
	assert.True(t, table.IsKind(err, ErrUnreachable))
	assert.Contains(t, err.Error(), "rate limit")
}

func TestGitHubFetcher_SendsToken(t *testing.T) {
	var auth string
	f := NewGitHubFetcher(&httpextra.MockDoer{DoFunc: func(req *http.Request) (*http.Response, error) {
		auth = req.Header.Get("Authorization")
		return jsonResponse(http.StatusOK, `{"login":"acme"}`, nil), nil
	}}, WithToken("secret"), WithBaseURL("https://github.example.com/api/v3/"))

	_, err := f.Fetch(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret", auth)
}

func TestNextPageURL(t *testing.T) {
	assert.Equal(t, "https://x/2", nextPageURL(`<https://x/2>; rel="next", <https://x/9>; rel="last"`))
	assert.Equal(t, "https://x/2", nextPageURL(`<https://x/1>; rel="prev", <https://x/2>; rel="next"`))
	assert.Equal(t, "", nextPageURL(`<https://x/1>; rel="prev"`))
	assert.Equal(t, "", nextPageURL(""))
}
