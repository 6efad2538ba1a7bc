package memory

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fleetcore/fleet-api/internal/core/domain"
)

func seed(t *testing.T, r *ResourceRepository, docs ...domain.Document) []string {
	t.Helper()
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		created, err := r.Insert(context.Background(), "services", d)
		require.NoError(t, err)
		ids = append(ids, created.ID())
	}
	return ids
}

func TestInsert_AssignsObjectID(t *testing.T) {
	r := NewResourceRepository()
	ids := seed(t, r, domain.Document{"name": "Oil Change"})

	require.True(t, domain.IsValidID(ids[0]))

	got, err := r.FindByID(context.Background(), "services", ids[0], false)
	require.NoError(t, err)
	require.Equal(t, "Oil Change", got["name"])
}

func TestFindByID_ReturnsCopies(t *testing.T) {
	r := NewResourceRepository()
	ids := seed(t, r, domain.Document{"tags": []any{"a"}})

	got, err := r.FindByID(context.Background(), "services", ids[0], false)
	require.NoError(t, err)
	got["tags"].([]any)[0] = "mutated"

	again, err := r.FindByID(context.Background(), "services", ids[0], false)
	require.NoError(t, err)
	require.Equal(t, []any{"a"}, again["tags"])
}

func TestFindByID_NotFound(t *testing.T) {
	r := NewResourceRepository()
	_, err := r.FindByID(context.Background(), "services", "65f000000000000000000001", false)
	require.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestList_FilterSearchSortAndPage(t *testing.T) {
	r := NewResourceRepository()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	seed(t, r,
		domain.Document{"name": "Oil Change", "category": "maintenance", "createdAt": base},
		domain.Document{"name": "Brake Check", "category": "safety", "createdAt": base.Add(time.Hour)},
		domain.Document{"name": "Oil Filter", "category": "maintenance", "createdAt": base.Add(2 * time.Hour)},
	)

	items, total, err := r.List(context.Background(), "services", domain.ListQuery{
		Filter: domain.Filter{Equals: map[string]any{"category": "maintenance"}},
		Sort:   domain.Sort{Field: "createdAt", Desc: true},
		Limit:  10,
	})
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Equal(t, "Oil Filter", items[0]["name"])
	require.Equal(t, "Oil Change", items[1]["name"])

	items, total, err = r.List(context.Background(), "services", domain.ListQuery{
		Filter: domain.Filter{Search: &domain.Search{Term: "OIL", Fields: []string{"name"}}},
		Sort:   domain.Sort{Field: "createdAt"},
		Skip:   1,
		Limit:  1,
	})
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Len(t, items, 1)
	require.Equal(t, "Oil Filter", items[0]["name"])
}

func TestList_SkipBeyondTotal(t *testing.T) {
	r := NewResourceRepository()
	seed(t, r, domain.Document{"name": "a"})

	items, total, err := r.List(context.Background(), "services", domain.ListQuery{Skip: 20, Limit: 10})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Empty(t, items)
}

func TestList_NegativeSkip(t *testing.T) {
	r := NewResourceRepository()
	seed(t, r, domain.Document{"name": "a"})

	items, total, err := r.List(context.Background(), "services", domain.ListQuery{Skip: -1, Limit: 10})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Len(t, items, 1)
}

func TestList_TiesBreakOnID(t *testing.T) {
	r := NewResourceRepository()
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var docs []domain.Document
	for i := 0; i < 6; i++ {
		docs = append(docs, domain.Document{"name": "Wash", "createdAt": at})
	}
	ids := seed(t, r, docs...)
	slices.Sort(ids)

	pageIDs := func(desc bool) []string {
		var out []string
		for skip := int64(0); skip < int64(len(ids)); skip += 2 {
			items, _, err := r.List(context.Background(), "services", domain.ListQuery{
				Sort:  domain.Sort{Field: "createdAt", Desc: desc},
				Skip:  skip,
				Limit: 2,
			})
			require.NoError(t, err)
			for _, it := range items {
				out = append(out, it.ID())
			}
		}
		return out
	}

	require.Equal(t, ids, pageIDs(false))
	desc := slices.Clone(ids)
	slices.Reverse(desc)
	require.Equal(t, desc, pageIDs(true))
}

func TestSoftDeletedHidden(t *testing.T) {
	r := NewResourceRepository()
	ids := seed(t, r, domain.Document{"status": "active"}, domain.Document{"status": "active"})

	_, err := r.Update(context.Background(), "services", ids[0], domain.Document{domain.FieldDeletedAt: time.Now()}, true)
	require.NoError(t, err)

	_, err = r.FindByID(context.Background(), "services", ids[0], true)
	require.ErrorIs(t, err, domain.ErrNotFound)

	n, err := r.Count(context.Background(), "services", true)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	byStatus, err := r.CountByField(context.Background(), "services", domain.FieldStatus, false)
	require.NoError(t, err)
	require.EqualValues(t, 2, byStatus["active"])
}

func TestToggleAndRate(t *testing.T) {
	r := NewResourceRepository()
	ids := seed(t, r, domain.Document{"enabled": false, "ratingCount": 0, "ratingTotal": 0.0})

	got, err := r.Toggle(context.Background(), "services", ids[0], "enabled", false)
	require.NoError(t, err)
	require.Equal(t, true, got["enabled"])

	_, err = r.Rate(context.Background(), "services", ids[0], 4)
	require.NoError(t, err)
	got, err = r.Rate(context.Background(), "services", ids[0], 5)
	require.NoError(t, err)
	require.EqualValues(t, 2, got[domain.FieldRatingCount])
	require.InDelta(t, 4.5, got[domain.FieldRating], 0.0001)
}

func TestDelete(t *testing.T) {
	r := NewResourceRepository()
	ids := seed(t, r, domain.Document{"name": "x"})

	require.NoError(t, r.Delete(context.Background(), "services", ids[0]))
	require.ErrorIs(t, r.Delete(context.Background(), "services", ids[0]), domain.ErrNotFound)
}
