package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/MoslemBenDhaou/datasurface/pkg/query"
	"github.com/MoslemBenDhaou/datasurface/pkg/resource"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func storeContract(t *testing.T) *resource.Contract {
	t.Helper()
	return resource.BuildContract(&resource.RawDefinition{
		Key:     "tasks",
		Route:   "tasks",
		KeyName: "id",
		KeyType: resource.TypeGUID,
		Fields: []resource.RawField{
			{Name: "id", Type: resource.TypeGUID, InRead: true, Filterable: true},
			{Name: "title", Type: resource.TypeString, InRead: true, InCreate: true,
				InUpdate: true, Filterable: true, Sortable: true, Searchable: true},
			{Name: "priority", Type: resource.TypeInt32, Nullable: true, InRead: true,
				InCreate: true, InUpdate: true, Filterable: true, Sortable: true},
			{Name: "done", Type: resource.TypeBoolean, Nullable: true, InRead: true,
				InCreate: true, InUpdate: true, Filterable: true, Sortable: true},
			{Name: "due", Type: resource.TypeDateTime, Nullable: true, InRead: true,
				InCreate: true, InUpdate: true, Filterable: true, Sortable: true},
			{Name: "notes", Type: resource.TypeString, Nullable: true, InRead: true,
				InCreate: true, InUpdate: true, Searchable: true},
			{Name: "secret", Type: resource.TypeString, Hidden: true, Filterable: true},
		},
	})
}

func newRecord(c *resource.Contract, doc resource.Document) *resource.StoredRecord {
	now := time.Now().UTC()
	id := resource.NewGUID()
	if v, ok := doc["id"]; ok {
		id = v.(string)
	} else {
		doc["id"] = id
	}
	return &resource.StoredRecord{
		ResourceKey: c.Key,
		RecordID:    id,
		Document:    doc,
		Version:     resource.NewGUID(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestInsertGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	c := storeContract(t)

	rec := newRecord(c, resource.Document{"title": "write report", "done": false, "priority": float64(2)})
	require.NoError(t, s.Insert(ctx, c, rec))

	got, err := s.Get(ctx, c.Key, rec.RecordID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "write report", got.Document["title"])
	assert.Equal(t, false, got.Document["done"])
	assert.Equal(t, float64(2), got.Document["priority"])
	assert.Equal(t, rec.Version, got.Version)
	assert.False(t, got.Deleted)
	assert.WithinDuration(t, rec.UpdatedAt, got.UpdatedAt, time.Millisecond)
}

func TestGetMissingReturnsNil(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	got, err := s.Get(ctx, "tasks", "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestInsertDuplicateKey(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	c := storeContract(t)

	rec := newRecord(c, resource.Document{"title": "one"})
	require.NoError(t, s.Insert(ctx, c, rec))

	dup := newRecord(c, resource.Document{"id": rec.RecordID, "title": "two"})
	err := s.Insert(ctx, c, dup)
	require.ErrorIs(t, err, resource.ErrRecordExists)

	// A soft-deleted record still owns its key.
	require.NoError(t, s.SoftDelete(ctx, c.Key, rec.RecordID, time.Now()))
	err = s.Insert(ctx, c, dup)
	require.ErrorIs(t, err, resource.ErrRecordExists)
}

func TestSoftDelete(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	c := storeContract(t)

	rec := newRecord(c, resource.Document{"title": "gone soon"})
	require.NoError(t, s.Insert(ctx, c, rec))
	require.NoError(t, s.SoftDelete(ctx, c.Key, rec.RecordID, time.Now()))

	got, err := s.Get(ctx, c.Key, rec.RecordID)
	require.NoError(t, err)
	assert.Nil(t, got, "soft-deleted records disappear from reads")

	any, err := s.GetAny(ctx, c.Key, rec.RecordID)
	require.NoError(t, err)
	require.NotNil(t, any, "the row itself stays")
	assert.True(t, any.Deleted)

	// Index rows stay in place too; the deleted flag filters the record.
	rows, err := s.IndexRows(ctx, c.Key, rec.RecordID)
	require.NoError(t, err)
	assert.NotEmpty(t, rows)

	var nfe *resource.NotFoundError
	require.ErrorAs(t, s.SoftDelete(ctx, c.Key, rec.RecordID, time.Now()), &nfe)
}

func TestHardDelete(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	c := storeContract(t)

	rec := newRecord(c, resource.Document{"title": "gone for good"})
	require.NoError(t, s.Insert(ctx, c, rec))
	require.NoError(t, s.HardDelete(ctx, c.Key, rec.RecordID))

	any, err := s.GetAny(ctx, c.Key, rec.RecordID)
	require.NoError(t, err)
	assert.Nil(t, any)

	rows, err := s.IndexRows(ctx, c.Key, rec.RecordID)
	require.NoError(t, err)
	assert.Empty(t, rows)

	var nfe *resource.NotFoundError
	require.ErrorAs(t, s.HardDelete(ctx, c.Key, rec.RecordID), &nfe)
}

func TestUpdateVersionGuard(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	c := storeContract(t)

	rec := newRecord(c, resource.Document{"title": "v1"})
	require.NoError(t, s.Insert(ctx, c, rec))

	next := *rec
	next.Document = resource.Document{"id": rec.RecordID, "title": "v2"}
	next.Version = resource.NewGUID()
	next.UpdatedAt = time.Now().UTC()
	require.NoError(t, s.Update(ctx, c, &next, rec.Version))

	got, err := s.Get(ctx, c.Key, rec.RecordID)
	require.NoError(t, err)
	assert.Equal(t, "v2", got.Document["title"])
	assert.Equal(t, next.Version, got.Version)

	// A stale expected version is rejected.
	again := next
	again.Version = resource.NewGUID()
	err = s.Update(ctx, c, &again, rec.Version)
	require.ErrorIs(t, err, resource.ErrVersionConflict)

	// Updating a soft-deleted record reports not found.
	require.NoError(t, s.SoftDelete(ctx, c.Key, rec.RecordID, time.Now()))
	var nfe *resource.NotFoundError
	require.ErrorAs(t, s.Update(ctx, c, &again, next.Version), &nfe)
}

func TestIndexRowsTypedSlots(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	c := storeContract(t)

	due := time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)
	rec := newRecord(c, resource.Document{
		"title":    "plan",
		"priority": float64(3),
		"done":     true,
		"due":      due.Format(time.RFC3339),
		"notes":    "searchable only",
		"secret":   "never indexed",
	})
	require.NoError(t, s.Insert(ctx, c, rec))

	rows, err := s.IndexRows(ctx, c.Key, rec.RecordID)
	require.NoError(t, err)

	byField := make(map[string]resource.IndexRow, len(rows))
	for _, r := range rows {
		byField[r.FieldName] = r
	}

	// Only non-hidden filterable or sortable fields are indexed.
	assert.NotContains(t, byField, "notes")
	assert.NotContains(t, byField, "secret")

	require.Contains(t, byField, "title")
	require.NotNil(t, byField["title"].String)
	assert.Equal(t, "plan", *byField["title"].String)

	require.Contains(t, byField, "priority")
	require.NotNil(t, byField["priority"].Number)
	assert.Equal(t, float64(3), *byField["priority"].Number)

	require.Contains(t, byField, "done")
	require.NotNil(t, byField["done"].Bool)
	assert.True(t, *byField["done"].Bool)

	require.Contains(t, byField, "due")
	require.NotNil(t, byField["due"].DateTime)
	assert.True(t, byField["due"].DateTime.Equal(due))

	require.Contains(t, byField, "id")
	require.NotNil(t, byField["id"].GUID)
	assert.Equal(t, rec.RecordID, *byField["id"].GUID)
}

func TestIndexCoercionFallback(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	c := storeContract(t)

	// A value that does not parse as its declared type lands in the
	// string slot instead of failing the write.
	rec := newRecord(c, resource.Document{"title": "odd", "priority": "not a number"})
	require.NoError(t, s.Insert(ctx, c, rec))

	rows, err := s.IndexRows(ctx, c.Key, rec.RecordID)
	require.NoError(t, err)
	for _, r := range rows {
		if r.FieldName != "priority" {
			continue
		}
		assert.Nil(t, r.Number)
		require.NotNil(t, r.String)
		assert.Contains(t, *r.String, "not a number")
		return
	}
	t.Fatal("no index row for priority")
}

func TestRebuildIndexIdempotent(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	c := storeContract(t)

	rec := newRecord(c, resource.Document{"title": "stable", "done": false})
	require.NoError(t, s.Insert(ctx, c, rec))

	first, err := s.IndexRows(ctx, c.Key, rec.RecordID)
	require.NoError(t, err)
	require.NoError(t, s.RebuildIndex(ctx, c, rec.RecordID, rec.Document))
	second, err := s.IndexRows(ctx, c.Key, rec.RecordID)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func seedListRecords(t *testing.T, s *Store, c *resource.Contract) []*resource.StoredRecord {
	t.Helper()
	ctx := context.Background()
	docs := []resource.Document{
		{"title": "alpha report", "priority": float64(1), "done": false},
		{"title": "beta summary", "priority": float64(2), "done": true},
		{"title": "gamma report", "priority": float64(3), "done": false,
			"due": "2026-06-01T00:00:00Z"},
	}
	records := make([]*resource.StoredRecord, 0, len(docs))
	base := time.Now().UTC().Add(-time.Hour)
	for i, doc := range docs {
		rec := newRecord(c, doc)
		rec.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		rec.UpdatedAt = rec.CreatedAt
		require.NoError(t, s.Insert(ctx, c, rec))
		records = append(records, rec)
	}
	return records
}

func TestListFilters(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	c := storeContract(t)
	seedListRecords(t, s, c)

	tests := []struct {
		name       string
		filters    map[string]string
		wantTitles []string
	}{
		{"bool eq", map[string]string{"done": "eq:true"}, []string{"beta summary"}},
		{"number gt", map[string]string{"priority": "gt:1"}, []string{"gamma report", "beta summary"}},
		{"string contains", map[string]string{"title": "contains:report"}, []string{"gamma report", "alpha report"}},
		{"in list", map[string]string{"priority": "in:1|3"}, []string{"gamma report", "alpha report"}},
		{"isnull true", map[string]string{"due": "isnull:true"}, []string{"beta summary", "alpha report"}},
		{"isnull false", map[string]string{"due": "isnull:false"}, []string{"gamma report"}},
		{"no match", map[string]string{"title": "eq:delta"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			preds, err := query.ParseFilters(c, tt.filters)
			require.NoError(t, err)
			records, total, err := s.List(ctx, c, query.ListSpec{Predicates: preds, Limit: 10})
			require.NoError(t, err)
			assert.Equal(t, len(tt.wantTitles), total)
			titles := make([]string, 0, len(records))
			for _, r := range records {
				titles = append(titles, r.Document["title"].(string))
			}
			assert.Equal(t, tt.wantTitles, titles)
		})
	}
}

func TestListSortAndPaging(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	c := storeContract(t)
	seedListRecords(t, s, c)

	// Explicit ascending sort by priority.
	records, total, err := s.List(ctx, c, query.ListSpec{
		Sort:  query.ParseSort(c, "priority"),
		Limit: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, records, 3)
	assert.Equal(t, "alpha report", records[0].Document["title"])
	assert.Equal(t, "gamma report", records[2].Document["title"])

	// Default order is most recently updated first.
	records, _, err = s.List(ctx, c, query.ListSpec{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, "gamma report", records[0].Document["title"])
	assert.Equal(t, "alpha report", records[2].Document["title"])

	// Paging: second page of size 2, total still counts everything.
	records, total, err = s.List(ctx, c, query.ListSpec{
		Sort: query.ParseSort(c, "priority"), Limit: 2, Offset: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, records, 1)
	assert.Equal(t, "gamma report", records[0].Document["title"])
}

func TestListMultiKeySort(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	c := storeContract(t)

	rows := []struct {
		title string
		done  bool
	}{
		{"zeta", false},
		{"alpha", true},
		{"mid", true},
		{"beta", false},
	}
	for _, row := range rows {
		rec := newRecord(c, resource.Document{"title": row.title, "done": row.done})
		require.NoError(t, s.Insert(ctx, c, rec))
	}

	// Descending done groups first, ascending title within each group.
	records, _, err := s.List(ctx, c, query.ListSpec{
		Sort:  query.ParseSort(c, "-done,title"),
		Limit: 10,
	})
	require.NoError(t, err)
	require.Len(t, records, 4)
	titles := make([]string, 0, 4)
	for _, r := range records {
		titles = append(titles, r.Document["title"].(string))
	}
	assert.Equal(t, []string{"alpha", "mid", "beta", "zeta"}, titles)
}

func TestListSearch(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	c := storeContract(t)
	seedListRecords(t, s, c)

	records, total, err := s.List(ctx, c, query.ListSpec{
		SearchTerm:   "report",
		SearchFields: query.SearchFields(c),
		Limit:        10,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	for _, r := range records {
		assert.Contains(t, r.Document["title"], "report")
	}
}

func TestListByIDs(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	c := storeContract(t)
	records := seedListRecords(t, s, c)

	ids := []string{records[2].RecordID, "missing", records[0].RecordID}
	got, err := s.ListByIDs(ctx, c.Key, ids)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, records[2].RecordID, got[0].RecordID, "input order is preserved")
	assert.Equal(t, records[0].RecordID, got[1].RecordID)

	got, err = s.ListByIDs(ctx, c.Key, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}
