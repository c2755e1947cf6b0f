package aggregate

import (
	"fmt"
	"strings"
)

// IsLoopback reports whether a client address names the resolver host
// itself: localhost, ::1 or anything in 127.0.0.0/8. Such clients are left
// out of client rankings and skipped on import.
func IsLoopback(client string) bool {
	c := strings.ToLower(strings.TrimSpace(client))
	return c == "localhost" || c == "::1" || strings.HasPrefix(c, "127.")
}

// NotLoopbackSQL is the SQL predicate equivalent to !IsLoopback for a client
// column
func NotLoopbackSQL(column string) string {
	c := fmt.Sprintf("lower(trim(%s))", column)
	return fmt.Sprintf("NOT (%s = 'localhost' OR %s = '::1' OR %s LIKE '127.%%')", c, c, c)
}
