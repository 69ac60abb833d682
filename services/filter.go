package services

import "gorm.io/gorm"

type predicate struct {
	query string
	args  []any
}

// Filter is a list of predicates joined with AND. Build it once and
// share it between the count and the page query.
type Filter []predicate

func where(query string, args ...any) predicate {
	return predicate{query: query, args: args}
}

// When appends p only if cond holds. It returns a new Filter.
func (f Filter) When(cond bool, p predicate) Filter {
	if !cond {
		return f
	}
	out := make(Filter, len(f), len(f)+1)
	copy(out, f)
	return append(out, p)
}

func (f Filter) Scope(db *gorm.DB) *gorm.DB {
	for _, p := range f {
		db = db.Where(p.query, p.args...)
	}
	return db
}
