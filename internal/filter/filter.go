// Package filter turns incoming query parameters into equality predicates
// over an explicit allow-list of fields. Keys outside the allow-list are
// rejected instead of being handed to the database as column names.
package filter

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Reserved lists query keys that control listing and are never filters.
var Reserved = []string{"page", "search", "page_size"}

// Kind is the type a filter value is parsed into before it reaches the query.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindBool
	KindTime
)

// Field maps a public filter key to a column and the value type it accepts.
type Field struct {
	Column string
	Kind   Kind
}

// Text, Int, Bool and Time are shorthands for building allow-lists.
func Text(column string) Field { return Field{Column: column, Kind: KindString} }
func Int(column string) Field  { return Field{Column: column, Kind: KindInt} }
func Bool(column string) Field { return Field{Column: column, Kind: KindBool} }
func Time(column string) Field { return Field{Column: column, Kind: KindTime} }

// Fields is the allow-list for one entity collection, keyed by query key.
type Fields map[string]Field

// Predicate is a single column = value condition.
type Predicate struct {
	Column string
	Value  any
}

// UnknownFieldError reports a query key that is not in the allow-list.
type UnknownFieldError struct {
	Field string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("unknown filter field %q", e.Field)
}

// InvalidValueError reports a value that cannot be parsed into the field's kind.
type InvalidValueError struct {
	Field string
	Value string
	Err   error
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("invalid value %q for filter %q: %v", e.Value, e.Field, e.Err)
}

func (e *InvalidValueError) Unwrap() error { return e.Err }

// Build converts params into predicates. Keys in Reserved and in skip are
// ignored; every other key must be in the allow-list. When a key repeats,
// the last value wins. Predicates come back sorted by key.
func (f Fields) Build(params url.Values, skip ...string) ([]Predicate, error) {
	ignored := make(map[string]struct{}, len(Reserved)+len(skip))
	for _, k := range Reserved {
		ignored[k] = struct{}{}
	}
	for _, k := range skip {
		ignored[k] = struct{}{}
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		if _, ok := ignored[k]; ok {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	preds := make([]Predicate, 0, len(keys))
	for _, key := range keys {
		field, ok := f[key]
		if !ok {
			return nil, &UnknownFieldError{Field: key}
		}
		values := params[key]
		if len(values) == 0 {
			continue
		}
		raw := values[len(values)-1]
		value, err := field.parse(raw)
		if err != nil {
			return nil, &InvalidValueError{Field: key, Value: raw, Err: err}
		}
		preds = append(preds, Predicate{Column: field.Column, Value: value})
	}
	return preds, nil
}

// Apply conjoins the predicates onto the query.
func Apply(db *gorm.DB, preds []Predicate) *gorm.DB {
	for _, p := range preds {
		db = db.Where(clause.Eq{
			Column: clause.Column{Table: clause.CurrentTable, Name: p.Column},
			Value:  p.Value,
		})
	}
	return db
}

func (f Field) parse(raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	switch f.Kind {
	case KindInt:
		return strconv.ParseInt(raw, 10, 64)
	case KindBool:
		return strconv.ParseBool(raw)
	case KindTime:
		return ParseTime(raw)
	default:
		return raw, nil
	}
}

// ParseTime accepts RFC 3339 timestamps and plain YYYY-MM-DD dates.
func ParseTime(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, raw)
}
