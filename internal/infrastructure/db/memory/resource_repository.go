// Package memory provides process-local implementations of the repository
// ports. It backs STORE_DRIVER=memory and the service and handler tests.
package memory

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/fleetcore/fleet-api/internal/core/domain"
)

type collection struct {
	docs  map[string]domain.Document
	order []string
}

// ResourceRepository keeps every collection in maps guarded by one lock.
type ResourceRepository struct {
	mu    sync.RWMutex
	colls map[string]*collection
	now   func() time.Time
}

func NewResourceRepository() *ResourceRepository {
	return &ResourceRepository{
		colls: make(map[string]*collection),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (r *ResourceRepository) coll(name string) *collection {
	c, ok := r.colls[name]
	if !ok {
		c = &collection{docs: make(map[string]domain.Document)}
		r.colls[name] = c
	}
	return c
}

func notFound(collection, id string) error {
	return fmt.Errorf("%s %s: %w", collection, id, domain.ErrNotFound)
}

func (r *ResourceRepository) Insert(_ context.Context, collection string, doc domain.Document) (domain.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := deepCopy(doc)
	id := primitive.NewObjectID().Hex()
	stored[domain.FieldID] = id

	c := r.coll(collection)
	c.docs[id] = stored
	c.order = append(c.order, id)
	return deepCopy(stored), nil
}

// lookup returns the stored document itself; callers hold the lock.
func (r *ResourceRepository) lookup(collection, id string, excludeDeleted bool) (domain.Document, bool) {
	c, ok := r.colls[collection]
	if !ok {
		return nil, false
	}
	doc, ok := c.docs[id]
	if !ok {
		return nil, false
	}
	if excludeDeleted && deleted(doc) {
		return nil, false
	}
	return doc, true
}

func (r *ResourceRepository) FindByID(_ context.Context, collection, id string, excludeDeleted bool) (domain.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	doc, ok := r.lookup(collection, id, excludeDeleted)
	if !ok {
		return nil, notFound(collection, id)
	}
	return deepCopy(doc), nil
}

func (r *ResourceRepository) FindByIDs(_ context.Context, collection string, ids []string) ([]domain.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.Document
	for _, id := range ids {
		if doc, ok := r.lookup(collection, id, false); ok {
			out = append(out, deepCopy(doc))
		}
	}
	return out, nil
}

func (r *ResourceRepository) List(_ context.Context, collection string, q domain.ListQuery) ([]domain.Document, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.colls[collection]
	if !ok {
		return []domain.Document{}, 0, nil
	}

	var matched []domain.Document
	for _, id := range c.order {
		doc := c.docs[id]
		if q.ExcludeDeleted && deleted(doc) {
			continue
		}
		if matches(doc, q.Filter) {
			matched = append(matched, doc)
		}
	}

	if q.Sort.Field != "" {
		// Ties break on id in the sort direction, as the Mongo store does.
		slices.SortFunc(matched, func(a, b domain.Document) int {
			cmp := compareValues(a[q.Sort.Field], b[q.Sort.Field])
			if cmp == 0 {
				cmp = strings.Compare(a.ID(), b.ID())
			}
			if q.Sort.Desc {
				return -cmp
			}
			return cmp
		})
	}

	total := int64(len(matched))
	start := max(0, min(q.Skip, total))
	end := total
	if q.Limit > 0 {
		end = min(start+q.Limit, total)
	}

	page := make([]domain.Document, 0, end-start)
	for _, doc := range matched[start:end] {
		page = append(page, deepCopy(doc))
	}
	return page, total, nil
}

func (r *ResourceRepository) Update(_ context.Context, collection, id string, fields domain.Document, excludeDeleted bool) (domain.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, ok := r.lookup(collection, id, excludeDeleted)
	if !ok {
		return nil, notFound(collection, id)
	}
	for k, v := range deepCopy(fields) {
		doc[k] = v
	}
	return deepCopy(doc), nil
}

func (r *ResourceRepository) Toggle(_ context.Context, collection, id, field string, excludeDeleted bool) (domain.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, ok := r.lookup(collection, id, excludeDeleted)
	if !ok {
		return nil, notFound(collection, id)
	}
	current, _ := doc.Bool(field)
	doc[field] = !current
	doc[domain.FieldUpdatedAt] = r.now()
	return deepCopy(doc), nil
}

func (r *ResourceRepository) Rate(_ context.Context, collection, id string, score float64) (domain.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, ok := r.lookup(collection, id, true)
	if !ok {
		return nil, notFound(collection, id)
	}
	count := toFloat(doc[domain.FieldRatingCount]) + 1
	total := toFloat(doc[domain.FieldRatingTotal]) + score
	doc[domain.FieldRatingCount] = int64(count)
	doc[domain.FieldRatingTotal] = total
	doc[domain.FieldRating] = total / count
	doc[domain.FieldUpdatedAt] = r.now()
	return deepCopy(doc), nil
}

func (r *ResourceRepository) Delete(_ context.Context, collection, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.colls[collection]
	if !ok {
		return notFound(collection, id)
	}
	if _, ok := c.docs[id]; !ok {
		return notFound(collection, id)
	}
	delete(c.docs, id)
	c.order = slices.DeleteFunc(c.order, func(s string) bool { return s == id })
	return nil
}

func (r *ResourceRepository) CountByField(_ context.Context, collection, field string, excludeDeleted bool) (map[string]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]int64)
	c, ok := r.colls[collection]
	if !ok {
		return out, nil
	}
	for _, doc := range c.docs {
		if excludeDeleted && deleted(doc) {
			continue
		}
		v, ok := doc[field]
		if !ok || v == nil {
			continue
		}
		out[fmt.Sprint(v)]++
	}
	return out, nil
}

func (r *ResourceRepository) Count(_ context.Context, collection string, excludeDeleted bool) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.colls[collection]
	if !ok {
		return 0, nil
	}
	var n int64
	for _, doc := range c.docs {
		if excludeDeleted && deleted(doc) {
			continue
		}
		n++
	}
	return n, nil
}

func deleted(doc domain.Document) bool {
	v, ok := doc[domain.FieldDeletedAt]
	return ok && v != nil
}

func matches(doc domain.Document, f domain.Filter) bool {
	for k, want := range f.Equals {
		if !reflect.DeepEqual(doc[k], want) {
			return false
		}
	}
	if f.Search == nil {
		return true
	}
	term := strings.ToLower(f.Search.Term)
	for _, field := range f.Search.Fields {
		if s, ok := doc[field].(string); ok && strings.Contains(strings.ToLower(s), term) {
			return true
		}
	}
	return false
}

// compareValues orders missing values first, then by natural order for
// times, numbers and strings.
func compareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	if at, ok := a.(time.Time); ok {
		if bt, ok := b.(time.Time); ok {
			return at.Compare(bt)
		}
	}
	if isNumber(a) && isNumber(b) {
		af, bf := toFloat(a), toFloat(b)
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		}
		return 0
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func isNumber(v any) bool {
	switch v.(type) {
	case int, int32, int64, float32, float64:
		return true
	}
	return false
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case float32:
		return float64(n)
	case float64:
		return n
	}
	return 0
}

func deepCopy(doc domain.Document) domain.Document {
	out := make(domain.Document, len(doc))
	for k, v := range doc {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case domain.Document:
		return deepCopy(t)
	case map[string]any:
		return map[string]any(deepCopy(t))
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = copyValue(item)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	}
	return v
}
