package filters

import (
	"net/url"
	"strings"

	"gorm.io/gorm"
)

// Comparison suffixes accepted on filter keys.
const (
	opNone = ""
	opLT   = "lt"
	opGT   = "gt"
	opLTE  = "lte"
	opGTE  = "gte"
	opIn   = "in"
	opAnd  = "and"
	opOr   = "or"
)

// Field is one filterable attribute. Implementations form a closed set:
// BooleanField, IntField, ManyToManyField and YearField.
//
// apply returns the possibly-extended query and whether the raw value was
// understood. A false return leaves the query untouched.
type Field interface {
	apply(db *gorm.DB, op string, raw string) (*gorm.DB, bool)
}

// Set maps query-parameter names to filterable fields.
type Set struct {
	fields map[string]Field
}

// NewSet builds a filter set from an allow-list of fields.
func NewSet(fields map[string]Field) *Set {
	return &Set{fields: fields}
}

// Apply walks the request query and narrows the database query with every
// recognised filter. Unknown parameter names, unknown suffixes and values
// that fail to parse are ignored without error.
func (s *Set) Apply(db *gorm.DB, query url.Values) *gorm.DB {
	if s == nil || len(query) == 0 {
		return db
	}

	for key, values := range query {
		if len(values) == 0 {
			continue
		}

		base, op := splitKey(key, s.fields)
		field, ok := s.fields[base]
		if !ok {
			continue
		}

		if next, applied := field.apply(db, op, values[len(values)-1]); applied {
			db = next
		}
	}

	return db
}

// splitKey separates a trailing comparison suffix from the field name.
// Field names may themselves contain "__" (related-model prefixes), so the
// base must match a registered field for the suffix to count.
func splitKey(key string, fields map[string]Field) (string, string) {
	idx := strings.LastIndex(key, "__")
	if idx == -1 {
		return key, opNone
	}

	base, suffix := key[:idx], key[idx+2:]
	switch suffix {
	case opLT, opGT, opLTE, opGTE, opIn, opAnd, opOr:
		if _, ok := fields[base]; ok {
			return base, suffix
		}
	}
	return key, opNone
}

func splitValues(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
