package fetcher

import (
	"strings"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
	"github.com/vegasq/sqlhub/table"
)

// column reads one field out of a GitHub JSON object.
type column struct {
	name string
	path jp.Expr
	// list collects every match of the path instead of the first
	list bool
}

type schema []column

func (s schema) fields() []string {
	names := make([]string, len(s))
	for i, c := range s {
		names[i] = c.name
	}
	return names
}

func (s schema) row(item interface{}) table.Row {
	row := make(table.Row, len(s))
	for i, c := range s {
		if c.list {
			row[i] = table.FromNative(c.path.Get(item))
			continue
		}
		row[i] = jsonValue(c.path.First(item))
	}
	return row
}

// jsonValue converts a decoded JSON value. Objects are kept as their JSON text.
func jsonValue(v interface{}) table.Value {
	if obj, ok := v.(map[string]interface{}); ok {
		b, err := oj.Marshal(obj)
		if err == nil {
			return table.String(string(b))
		}
	}
	return table.FromNative(v)
}

// newSchema builds a schema from name, path pairs.
func newSchema(pairs ...string) schema {
	s := make(schema, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		path := pairs[i+1]
		s = append(s, column{
			name: pairs[i],
			path: jp.MustParseString(path),
			list: strings.Contains(path, "[*]"),
		})
	}
	return s
}

// repoField is prepended to collections fetched per repository.
const repoField = "repo"

var schemas = map[string]schema{
	"": newSchema(
		"login", "$.login",
		"id", "$.id",
		"name", "$.name",
		"description", "$.description",
		"blog", "$.blog",
		"location", "$.location",
		"email", "$.email",
		"public_repos", "$.public_repos",
		"followers", "$.followers",
		"created_at", "$.created_at",
		"updated_at", "$.updated_at",
		"html_url", "$.html_url",
	),
	"repos": newSchema(
		"name", "$.name",
		"full_name", "$.full_name",
		"id", "$.id",
		"description", "$.description",
		"language", "$.language",
		"stargazers_count", "$.stargazers_count",
		"forks_count", "$.forks_count",
		"open_issues_count", "$.open_issues_count",
		"watchers_count", "$.watchers_count",
		"fork", "$.fork",
		"archived", "$.archived",
		"default_branch", "$.default_branch",
		"topics", "$.topics[*]",
		"created_at", "$.created_at",
		"updated_at", "$.updated_at",
		"pushed_at", "$.pushed_at",
		"html_url", "$.html_url",
	),
	"issues": newSchema(
		"number", "$.number",
		"title", "$.title",
		"state", "$.state",
		"user", "$.user.login",
		"labels", "$.labels[*].name",
		"assignees", "$.assignees[*].login",
		"comments", "$.comments",
		"created_at", "$.created_at",
		"updated_at", "$.updated_at",
		"closed_at", "$.closed_at",
		"html_url", "$.html_url",
		"body", "$.body",
	),
	"pulls": newSchema(
		"number", "$.number",
		"title", "$.title",
		"state", "$.state",
		"user", "$.user.login",
		"draft", "$.draft",
		"base", "$.base.ref",
		"head", "$.head.ref",
		"created_at", "$.created_at",
		"updated_at", "$.updated_at",
		"closed_at", "$.closed_at",
		"merged_at", "$.merged_at",
		"html_url", "$.html_url",
	),
	"commits": newSchema(
		"sha", "$.sha",
		"author", "$.commit.author.name",
		"email", "$.commit.author.email",
		"login", "$.author.login",
		"date", "$.commit.author.date",
		"message", "$.commit.message",
		"html_url", "$.html_url",
	),
}
