package store

import "strings"

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// LikePattern wraps a search term for a substring LIKE match, escaping the
// LIKE metacharacters so they match literally. Queries using it must carry
// an ESCAPE '\' clause.
func LikePattern(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}
