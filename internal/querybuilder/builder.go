// Package querybuilder turns filter specs into parameterised SQL predicates
// over the queries table.
package querybuilder

import (
	"fmt"
	"strings"

	"github.com/your-username/pihole-log-viewer/internal/filter"
)

// Column expressions over the stored "YYYY-MM-DD HH:MM:SS" timestamp
const (
	DateExpr  = "substr(timestamp, 1, 10)"
	ClockExpr = "substr(timestamp, 12, 5)"
	HourExpr  = "substr(timestamp, 12, 2)"
)

// Clause is a conjunction of conditions with positional arguments
type Clause struct {
	conditions []string
	args       []interface{}
}

// And appends a condition
func (c Clause) And(condition string, args ...interface{}) Clause {
	return Clause{
		conditions: append(append([]string(nil), c.conditions...), condition),
		args:       append(append([]interface{}(nil), c.args...), args...),
	}
}

// Empty reports whether the clause has no condition
func (c Clause) Empty() bool {
	return len(c.conditions) == 0
}

// SQL returns the conditions joined by AND, or "1=1" when empty
func (c Clause) SQL() string {
	if c.Empty() {
		return "1=1"
	}
	return strings.Join(c.conditions, " AND ")
}

// Where returns the clause prefixed by WHERE, or "" when empty
func (c Clause) Where() string {
	if c.Empty() {
		return ""
	}
	return "WHERE " + c.SQL()
}

// Args returns the positional arguments in condition order
func (c Clause) Args() []interface{} {
	return c.args
}

// Where builds the predicate equivalent to spec.Matches
func Where(spec filter.Spec) Clause {
	var c Clause
	if spec.IP != "" {
		c = c.And(`client LIKE ? ESCAPE '\'`, likePattern(spec.IP))
	}
	if spec.Domain != "" {
		c = c.And(`domain LIKE ? ESCAPE '\'`, likePattern(spec.Domain))
	}
	if spec.StartDate != "" {
		c = c.And(DateExpr+" >= ?", spec.StartDate)
	}
	if spec.EndDate != "" {
		c = c.And(DateExpr+" <= ?", spec.EndDate)
	}

	switch {
	case spec.WrapsMidnight():
		c = c.And(fmt.Sprintf("(%s >= ? OR %s <= ?)", ClockExpr, ClockExpr), spec.StartTime, spec.EndTime)
	default:
		if spec.StartTime != "" {
			c = c.And(ClockExpr+" >= ?", spec.StartTime)
		}
		if spec.EndTime != "" {
			c = c.And(ClockExpr+" <= ?", spec.EndTime)
		}
	}
	return c
}

// Day restricts the clause to one calendar date "YYYY-MM-DD"
func Day(date string) Clause {
	return Clause{}.And(DateExpr+" = ?", date)
}

// Limit returns a LIMIT suffix, or "" for n <= 0
func Limit(n int) string {
	if n <= 0 {
		return ""
	}
	return fmt.Sprintf(" LIMIT %d", n)
}

// likePattern wraps s in % wildcards, escaping LIKE metacharacters
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}
