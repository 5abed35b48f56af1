package hanagate

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
)

// Formatter shapes a QueryResult's tabular output into export formats
// and display-ready summaries.
type Formatter struct {
	// Delimiter for delimited-text exports. Zero means comma.
	Delimiter rune
}

// ToDelimitedText renders the result as delimited text: one header line
// of column names followed by one line per row. Fields containing the
// delimiter, quotes, or newlines are quoted, with embedded quote
// characters doubled. Exporting zero rows is rejected rather than
// producing an empty file.
func (f Formatter) ToDelimitedText(result *QueryResult) (string, error) {
	if result == nil || len(result.Rows) == 0 {
		return "", &ValidationError{Message: "no rows to export"}
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if f.Delimiter != 0 {
		w.Comma = f.Delimiter
	}

	header := make([]string, len(result.Columns))
	for i, c := range result.Columns {
		header[i] = c.Name
	}
	if err := w.Write(header); err != nil {
		return "", err
	}

	record := make([]string, len(result.Columns))
	for _, row := range result.Rows {
		for i := range record {
			record[i] = ""
			if i < len(row) {
				record[i] = cellString(row[i])
			}
		}
		if err := w.Write(record); err != nil {
			return "", err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ToStructuredDocument renders the result as a JSON array of row
// objects keyed by column name.
func (f Formatter) ToStructuredDocument(result *QueryResult) (string, error) {
	if result == nil {
		return "", &ValidationError{Message: "no rows to export"}
	}

	docs := make([]map[string]any, len(result.Rows))
	for i, row := range result.Rows {
		doc := make(map[string]any, len(result.Columns))
		for j, c := range result.Columns {
			if j < len(row) {
				doc[c.Name] = row[j]
			} else {
				doc[c.Name] = nil
			}
		}
		docs[i] = doc
	}

	data, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Summarize reduces the result to display-ready counters.
func (f Formatter) Summarize(result *QueryResult) Summary {
	if result == nil {
		return Summary{}
	}
	return Summary{
		RowCount:    result.RowCount,
		ColumnCount: len(result.Columns),
		ElapsedMs:   result.ElapsedMs,
		Truncated:   result.Truncated(),
	}
}

// cellString renders one cell as text. NULLs render empty.
func cellString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprintf("%v", val)
	}
}
