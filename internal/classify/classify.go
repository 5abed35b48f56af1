// Package classify determines the statement kind of a raw SQL string
// by its leading keyword, after stripping comments.
package classify

import "strings"

// QueryType is the statement kind of a SQL string.
type QueryType string

const (
	Select  QueryType = "SELECT"
	Insert  QueryType = "INSERT"
	Update  QueryType = "UPDATE"
	Delete  QueryType = "DELETE"
	Create  QueryType = "CREATE"
	Drop    QueryType = "DROP"
	Alter   QueryType = "ALTER"
	Grant   QueryType = "GRANT"
	Revoke  QueryType = "REVOKE"
	Call    QueryType = "CALL"
	Unknown QueryType = "UNKNOWN"
)

// keywords is the fixed precedence list. Matching is on the leading
// token only, so order never produces ties.
var keywords = []QueryType{
	Select, Insert, Update, Delete, Create, Drop, Alter, Grant, Revoke, Call,
}

// Classify strips comments from sql, uppercases the first token, and
// matches it against the fixed keyword set. Unrecognized leading tokens
// yield Unknown. Classify is idempotent and comment-insensitive.
func Classify(sql string) QueryType {
	stripped := StripComments(sql)
	fields := strings.Fields(stripped)
	if len(fields) == 0 {
		return Unknown
	}
	first := strings.ToUpper(fields[0])
	// A leading token like "SELECT(" or "CALL(" still classifies.
	if i := strings.IndexAny(first, "(;"); i > 0 {
		first = first[:i]
	}
	for _, kw := range keywords {
		if first == string(kw) {
			return kw
		}
	}
	return Unknown
}

// ReadOnly reports whether statements of this kind do not modify
// database state. CALL is not read-only: procedures may write.
func (t QueryType) ReadOnly() bool {
	return t == Select
}

// StripComments removes -- line comments and /* */ block comments.
// Comment markers inside single-quoted string literals are preserved.
// An unterminated block comment runs to the end of the input.
func StripComments(sql string) string {
	var b strings.Builder
	b.Grow(len(sql))

	for i := 0; i < len(sql); {
		c := sql[i]
		switch {
		case c == '\'':
			// String literal: copy verbatim through the closing quote,
			// honoring '' escapes.
			b.WriteByte(c)
			i++
			for i < len(sql) {
				b.WriteByte(sql[i])
				if sql[i] == '\'' {
					if i+1 < len(sql) && sql[i+1] == '\'' {
						i++
						b.WriteByte(sql[i])
					} else {
						i++
						break
					}
				}
				i++
			}
		case c == '-' && i+1 < len(sql) && sql[i+1] == '-':
			for i < len(sql) && sql[i] != '\n' {
				i++
			}
		case c == '/' && i+1 < len(sql) && sql[i+1] == '*':
			i += 2
			for i < len(sql) {
				if sql[i] == '*' && i+1 < len(sql) && sql[i+1] == '/' {
					i += 2
					break
				}
				i++
			}
		default:
			b.WriteByte(c)
			i++
		}
	}
	return strings.TrimSpace(b.String())
}
