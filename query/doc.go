// Package query implements the SQL-like query engine.
//
// The engine supports:
//   - SELECT with expressions, aliases and *
//   - FROM a fetcher label (e.g. google.issues.open.30) or a parenthesised subquery
//   - WHERE conditions
//   - GROUP BY and HAVING with the aggregates AVG, COUNT, MAX, MIN and SUM
//   - ORDER BY with ASC/DESC keys
//   - LIMIT n, LIMIT offset, n and LIMIT n OFFSET m
//
// # Expressions
//
// Expressions are evaluated against every row of a table at once. The
// evaluator keeps one operand stack per row and a single operator stack
// shared by all rows, reducing operators by precedence as it scans the
// expression:
//
//	vals, err := query.EvaluateExpression(tbl, "a * b + 1")
//
// Aggregate calls reduce their argument over all rows and give every row
// the same result, so "count(*) > 1" is a valid per-row expression.
//
// # Sessions
//
// Parse a query and run it:
//
//	parser := query.NewParser(fetcher)
//	session, err := parser.Parse("SELECT state, count(*) FROM google.issues GROUP BY state")
//	if err != nil {
//	    return err
//	}
//	result, err := session.Execute(ctx)
//
// Execute fetches the source table, filters it, evaluates the needed
// columns in one pass, splits the rows into groups, applies HAVING,
// orders rows within and across groups, evaluates the select list,
// collapses all-aggregate groups to one row and applies the limit.
package query
