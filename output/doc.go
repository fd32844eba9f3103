// Package output writes query results.
//
// Supported formats:
//   - text: the field list, then one line per row
//   - csv: comma separated, with a header row
//   - json: one object holding the fields and the rows
//   - jsonl: one JSON object per row, keyed by field name
//   - table: a bordered table for terminals
//   - parquet: a parquet file with one optional column per field
//
// Example usage:
//
//	formatter, err := output.New("csv", os.Stdout)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := formatter.Format(result); err != nil {
//	    log.Fatal(err)
//	}
package output
