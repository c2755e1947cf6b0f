// Package status classifies the raw status tokens reported by the DNS
// blocker into a fixed set of buckets.
package status

import "strings"

// Bucket is the canonical classification of a query outcome
type Bucket int

const (
	Unknown Bucket = iota
	Allowed
	Blocked
	Cached
)

// String returns the lower-case bucket name
func (b Bucket) String() string {
	switch b {
	case Allowed:
		return "allowed"
	case Blocked:
		return "blocked"
	case Cached:
		return "cached"
	default:
		return "unknown"
	}
}

// Classification pairs a bucket with its display label
type Classification struct {
	Bucket Bucket `json:"bucket"`
	Label  string `json:"label"`
}

// blockedTokens match anywhere in the status, so "gravity-blocked" or
// "blacklisted (regex)" are blocked as well.
var blockedTokens = []string{"blocked", "blacklisted"}

// exact matches, checked only when no blocked token is present
var exact = map[string]Classification{
	"forwarded":    {Bucket: Allowed, Label: "Allowed"},
	"allowed":      {Bucket: Allowed, Label: "Allowed"},
	"cached":       {Bucket: Cached, Label: "Cached"},
	"cached-stale": {Bucket: Cached, Label: "Cached"},
}

// Classify maps a raw status token to a bucket and label. It never fails:
// anything unrecognised is Unknown, labelled with the raw token or N/A.
func Classify(raw string) Classification {
	token := strings.ToLower(strings.TrimSpace(raw))
	if token == "" {
		return Classification{Bucket: Unknown, Label: "N/A"}
	}
	if IsBlocked(token) {
		return Classification{Bucket: Blocked, Label: "Blocked"}
	}
	if c, ok := exact[token]; ok {
		return c
	}
	return Classification{Bucket: Unknown, Label: strings.TrimSpace(raw)}
}

// IsBlocked reports whether the status contains a blocked token
func IsBlocked(raw string) bool {
	token := strings.ToLower(raw)
	for _, b := range blockedTokens {
		if strings.Contains(token, b) {
			return true
		}
	}
	return false
}

// Label is shorthand for Classify(raw).Label
func Label(raw string) string {
	return Classify(raw).Label
}

// BlockedSQL is the SQL predicate equivalent to IsBlocked for a status
// column. SQLite LIKE is case-insensitive for ASCII.
func BlockedSQL(column string) string {
	parts := make([]string, len(blockedTokens))
	for i, b := range blockedTokens {
		parts[i] = column + " LIKE '%" + b + "%'"
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}
