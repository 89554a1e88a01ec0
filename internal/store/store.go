// Package store is the generic persistence layer for the clinic's entities.
// Every collection gets list/get/create/update/delete with ownership
// stamping, filtered through an explicit allow-list.
package store

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"clinic-app-server/internal/filter"
	"clinic-app-server/internal/models"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Record is implemented by every model embedding models.OwnedModel.
type Record interface {
	StampCreated(actorID string)
	StampUpdated(actorID string)
	Ownership() models.OwnedModel
	RestoreOwnership(prev models.OwnedModel)
}

// Options describes one collection: which query keys may filter it,
// which columns `search` looks at, and the listing order.
type Options struct {
	Fields filter.Fields
	Search []string
	Order  string
}

// Query is a parsed listing request.
type Query struct {
	Params   url.Values
	Page     int
	PageSize int
}

// QueryFrom reads page and page_size from params. Missing or malformed
// values fall back to the first page and the default size.
func QueryFrom(params url.Values) Query {
	q := Query{Params: params, Page: 1, PageSize: DefaultPageSize}
	if n, err := strconv.Atoi(params.Get("page")); err == nil && n > 0 {
		q.Page = n
	}
	if n, err := strconv.Atoi(params.Get("page_size")); err == nil && n > 0 {
		q.PageSize = min(n, MaxPageSize)
	}
	return q
}

// Page is one page of a listing.
type Page[T any] struct {
	Count    int64 `json:"count"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Results  []T   `json:"results"`
}

// Store is a gorm-backed repository for one model type.
type Store[T any, PT interface {
	*T
	Record
}] struct {
	db   *gorm.DB
	opts Options
}

// New creates a Store. The default order is newest first.
func New[T any, PT interface {
	*T
	Record
}](db *gorm.DB, opts Options) *Store[T, PT] {
	if opts.Order == "" {
		opts.Order = "created_at desc"
	}
	return &Store[T, PT]{db: db, opts: opts}
}

// Fields exposes the collection's filter allow-list.
func (s *Store[T, PT]) Fields() filter.Fields {
	return s.opts.Fields
}

func (s *Store[T, PT]) filtered(ctx context.Context, params url.Values) (*gorm.DB, error) {
	preds, err := s.opts.Fields.Build(params)
	if err != nil {
		return nil, err
	}
	q := filter.Apply(s.db.WithContext(ctx).Model(new(T)), preds)
	if term := strings.TrimSpace(params.Get("search")); term != "" && len(s.opts.Search) > 0 {
		q = Search(q, term, s.opts.Search...)
	}
	return q.Session(&gorm.Session{}), nil
}

// List returns one page of records matching q.
func (s *Store[T, PT]) List(ctx context.Context, q Query) (*Page[T], error) {
	base, err := s.filtered(ctx, q.Params)
	if err != nil {
		return nil, err
	}

	page := &Page[T]{Page: q.Page, PageSize: q.PageSize, Results: []T{}}
	if err := base.Count(&page.Count).Error; err != nil {
		return nil, fmt.Errorf("count: %w", err)
	}
	if err := base.Order(s.opts.Order).
		Offset((q.Page - 1) * q.PageSize).
		Limit(q.PageSize).
		Find(&page.Results).Error; err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	return page, nil
}

// All returns every record matching params, unpaginated.
func (s *Store[T, PT]) All(ctx context.Context, params url.Values) ([]T, error) {
	base, err := s.filtered(ctx, params)
	if err != nil {
		return nil, err
	}
	results := []T{}
	if err := base.Order(s.opts.Order).Find(&results).Error; err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	return results, nil
}

// Get loads a record by id.
func (s *Store[T, PT]) Get(ctx context.Context, id string) (PT, error) {
	rec := PT(new(T))
	err := s.db.WithContext(ctx).Where("id = ?", id).First(rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Create stamps the actor as creator and updater and inserts rec.
func (s *Store[T, PT]) Create(ctx context.Context, actor models.Actor, rec PT) error {
	rec.StampCreated(actor.UserID)
	return s.db.WithContext(ctx).Omit(clause.Associations).Create(rec).Error
}

// Update loads the record, lets mutate change it, and saves it. The id,
// creation time and creator survive whatever mutate does.
func (s *Store[T, PT]) Update(ctx context.Context, actor models.Actor, id string, mutate func(PT) error) (PT, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	prev := rec.Ownership()
	if err := mutate(rec); err != nil {
		return nil, err
	}
	rec.RestoreOwnership(prev)
	rec.StampUpdated(actor.UserID)
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Save(rec).Error; err != nil {
		return nil, err
	}
	return rec, nil
}

// Delete removes a record by id.
func (s *Store[T, PT]) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(new(T))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Search adds a case-insensitive contains match of term over columns.
func Search(db *gorm.DB, term string, columns ...string) *gorm.DB {
	pattern := "%" + escapeLike(strings.ToLower(term)) + "%"
	conds := make([]string, len(columns))
	args := make([]any, len(columns))
	for i, col := range columns {
		conds[i] = "LOWER(" + col + ") LIKE ?"
		args[i] = pattern
	}
	return db.Where("("+strings.Join(conds, " OR ")+")", args...)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
