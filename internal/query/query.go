// Package query turns paging, search and birthday parameters into SQL predicates.
//
// The values built here are plain data and implement squirrel.Sqlizer, so the store can AND
// them with its owner filter without knowing how they are computed.
package query

import (
	"strings"

	sq "github.com/Masterminds/squirrel"
	"gitlab.com/dirk.krummacker/address-book/internal/apperror"
)

// Default paging values used when the client does not send any.
const (
	DefaultSkip  = 0
	DefaultLimit = 100
)

// Page selects a slice of a result set.
type Page struct {
	Skip  uint64
	Limit uint64
}

// NewPage validates skip and limit. Both must be non-negative.
func NewPage(skip, limit int) (Page, error) {
	var fields []apperror.FieldError
	if skip < 0 {
		fields = append(fields, apperror.FieldError{Field: "skip", Message: "must not be negative"})
	}
	if limit < 0 {
		fields = append(fields, apperror.FieldError{Field: "limit", Message: "must not be negative"})
	}
	if len(fields) > 0 {
		return Page{}, apperror.ValidationFailed(fields...)
	}
	return Page{Skip: uint64(skip), Limit: uint64(limit)}, nil
}

// Apply adds LIMIT and OFFSET to the statement.
func (p Page) Apply(b sq.SelectBuilder) sq.SelectBuilder {
	return b.Limit(p.Limit).Offset(p.Skip)
}

// searchColumns are the contact columns a search term is matched against.
var searchColumns = []string{"name", "surname", "email", "phone"}

// Search matches contacts whose name, surname, email or phone contains the term, ignoring
// case. An empty term matches every contact.
type Search struct {
	Term string
}

// Pattern returns the LIKE pattern for the term with all wildcards escaped.
func (s Search) Pattern() string {
	return "%" + escapeLike(strings.ToLower(s.Term)) + "%"
}

// ToSql implements squirrel.Sqlizer.
func (s Search) ToSql() (string, []interface{}, error) {
	pattern := s.Pattern()
	or := make(sq.Or, 0, len(searchColumns))
	for _, column := range searchColumns {
		or = append(or, sq.Like{"LOWER(" + column + ")": pattern})
	}
	return or.ToSql()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
