package probe

import (
	"bytes"
	"strings"
)

// Ordered most specific first; MatchSignature reports the first hit.
var errorSignatures = []string{
	"SQL syntax",
	"ORA-",
	"ODBC",
	"PostgreSQL",
	"SQLite",
	"MySQL",
	"syntax error",
	"Unhandled exception",
	"Traceback",
	"Exception",
}

var lowerSignatures = func() [][]byte {
	out := make([][]byte, len(errorSignatures))
	for i, s := range errorSignatures {
		out[i] = []byte(strings.ToLower(s))
	}
	return out
}()

// MatchSignature looks for a database or runtime error banner, ignoring case.
func MatchSignature(body []byte) (string, bool) {
	lower := bytes.ToLower(body)
	for i, sig := range lowerSignatures {
		if bytes.Contains(lower, sig) {
			return errorSignatures[i], true
		}
	}
	return "", false
}
