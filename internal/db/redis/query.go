package redis

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/kailas-cloud/semsearch/internal/db"
	"github.com/kailas-cloud/semsearch/internal/domain/search/filter"
)

// knnQuery renders "<prefilter>=>[KNN k @field $BLOB AS score]".
func knnQuery(q *db.KNNQuery) string {
	knn := fmt.Sprintf("[KNN %d @%s $BLOB AS %s]", q.K, q.VectorField, db.ScoreField)
	if pre := prefilter(q.Filters); pre != "" {
		return "(" + pre + ")=>" + knn
	}
	return "*=>" + knn
}

// prefilter translates an expression into query syntax. Clauses are
// space-joined, which the dialect reads as AND.
func prefilter(expr filter.Expression) string {
	if expr.IsEmpty() {
		return ""
	}
	conds := expr.Conditions()
	parts := make([]string, 0, len(conds))
	for _, c := range conds {
		if p := clause(c); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

func clause(c filter.Condition) string {
	switch c.Kind() {
	case filter.Exact:
		return tagClause(c.Key(), c.Value())
	case filter.AnyOf:
		return tagClause(c.Key(), c.Values()...)
	case filter.GeoRadius:
		p := c.Center()
		return fmt.Sprintf("@%s:[%s %s %s m]", c.Key(), ftoa(p.Lon), ftoa(p.Lat), ftoa(c.RadiusMeters()))
	default:
		return ""
	}
}

func tagClause(key string, values ...string) string {
	escaped := make([]string, len(values))
	for i, v := range values {
		escaped[i] = escapeTag(v)
	}
	return "@" + key + ":{" + strings.Join(escaped, " | ") + "}"
}

// escapeTag backslash-escapes every rune that is not a letter, digit or
// underscore; the tokenizer treats the rest as separators or syntax.
func escapeTag(v string) string {
	var b strings.Builder
	b.Grow(len(v) + 4)
	for _, r := range v {
		if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func ftoa(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
