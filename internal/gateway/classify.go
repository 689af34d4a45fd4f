package gateway

import "strings"

// ddlKeywords are the leading keywords that mark a statement as
// schema-altering. Classification is shallow by design: the only decision it
// drives is whether to fire a cache-reload signal, so a full SQL parser
// would buy nothing.
var ddlKeywords = []string{"CREATE", "ALTER", "DROP", "TRUNCATE"}

// IsSchemaChange reports whether the statement's case-insensitive leading
// keyword, after trimming leading whitespace, is one of CREATE, ALTER, DROP,
// or TRUNCATE.
func IsSchemaChange(sqlText string) bool {
	s := strings.TrimSpace(sqlText)
	for _, kw := range ddlKeywords {
		if len(s) > len(kw) && strings.EqualFold(s[:len(kw)], kw) && isBoundary(s[len(kw)]) {
			return true
		}
		if len(s) == len(kw) && strings.EqualFold(s, kw) {
			return true
		}
	}
	return false
}

func isBoundary(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r':
		return true
	}
	return false
}
