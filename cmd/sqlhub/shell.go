package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/jamesrr39/goutil/errorsx"
	"github.com/vegasq/sqlhub/output"
	"github.com/vegasq/sqlhub/query"
)

const shellPrompt = "sqlhub> "

func runQuery(ctx context.Context, parser *query.Parser, formatter output.Formatter, sql string) errorsx.Error {
	session, err := parser.Parse(sql)
	if err != nil {
		return err
	}

	result, err := session.Execute(ctx)
	if err != nil {
		return err
	}

	return formatter.Format(result)
}

// runShell reads one query per line until an exit token, the end of in, or
// ctx being cancelled. Failed queries are reported and the loop carries on.
func runShell(ctx context.Context, in io.Reader, out io.Writer, parser *query.Parser, formatter output.Formatter) errorsx.Error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, shellPrompt)
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case query.IsExitToken(line):
			return nil
		}

		if err := runQuery(ctx, parser, formatter, strings.TrimSuffix(line, ";")); err != nil {
			fmt.Fprintf(out, "error: %s\n", err.Error())
		}
		if ctx.Err() != nil {
			return nil
		}
	}

	fmt.Fprintln(out)
	if err := scanner.Err(); err != nil {
		return errorsx.Wrap(err)
	}
	return nil
}
