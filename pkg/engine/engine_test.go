package engine

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/MoslemBenDhaou/datasurface/internal/sqlite"
	"github.com/MoslemBenDhaou/datasurface/pkg/resource"
)

// newTestEngine wires an engine over a throwaway sqlite store preloaded
// with the test definitions.
func newTestEngine(t *testing.T, opts ...Option) (*Engine, *sqlite.Store) {
	t.Helper()
	store, err := sqlite.Open(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	defs := store.Definitions()
	for _, def := range []*resource.RawDefinition{
		userDefinition(), tagDefinition(), taskDefinition(), eventDefinition(),
	} {
		require.NoError(t, defs.Put(ctx, def))
	}
	provider := resource.NewProvider(defs)
	return New(provider, store, store, opts...), store
}

func taskDefinition() *resource.RawDefinition {
	minPriority, maxPriority := 0.0, 5.0
	maxTitle := 80
	return &resource.RawDefinition{
		Key:     "tasks",
		Route:   "tasks",
		KeyName: "id",
		KeyType: resource.TypeGUID,
		Fields: []resource.RawField{
			{Name: "id", Type: resource.TypeGUID, InRead: true, Filterable: true},
			{Name: "title", Type: resource.TypeString, Required: true, InRead: true,
				InCreate: true, InUpdate: true, Filterable: true, Sortable: true,
				Searchable: true, MaxLength: &maxTitle},
			{Name: "status", Type: resource.TypeEnum, Nullable: true, InRead: true,
				InCreate: true, InUpdate: true, Filterable: true,
				AllowedValues: []string{"open", "done"}, Default: "open"},
			{Name: "priority", Type: resource.TypeInt32, Nullable: true, InRead: true,
				InCreate: true, InUpdate: true, Filterable: true, Sortable: true,
				Min: &minPriority, Max: &maxPriority},
			{Name: "slug", Type: resource.TypeString, Nullable: true, Immutable: true,
				InRead: true, InCreate: true},
			{Name: "ownerId", Type: resource.TypeGUID, Nullable: true, InRead: true,
				InCreate: true, InUpdate: true, Filterable: true},
			{Name: "rev", Type: resource.TypeString, InRead: true,
				ConcurrencyToken: true, ConcurrencyRequired: true},
			{Name: "internalNote", Type: resource.TypeString, Hidden: true,
				InRead: true, InCreate: true},
		},
		Relations: []resource.RawRelation{
			{Name: "owner", Kind: resource.RelationToOne, Target: "users",
				ExpandAllowed: true, WriteMode: resource.WriteByID,
				WriteField: "ownerId", ForeignKey: "ownerId"},
			{Name: "tags", Kind: resource.RelationToMany, Target: "tags",
				ExpandAllowed: true, DefaultExpand: true,
				WriteMode: resource.WriteByIDList, WriteField: "tagsIds"},
			{Name: "audit", Kind: resource.RelationToOne, Target: "users",
				WriteMode: resource.WriteByID, WriteField: "auditId"},
		},
	}
}

func userDefinition() *resource.RawDefinition {
	return &resource.RawDefinition{
		Key:     "users",
		Route:   "users",
		KeyName: "id",
		KeyType: resource.TypeGUID,
		Fields: []resource.RawField{
			{Name: "id", Type: resource.TypeGUID, InRead: true, Filterable: true},
			{Name: "name", Type: resource.TypeString, Required: true, InRead: true,
				InCreate: true, InUpdate: true, Filterable: true, Sortable: true,
				Searchable: true},
		},
		Relations: []resource.RawRelation{
			{Name: "tasks", Kind: resource.RelationToMany, Target: "tasks",
				ExpandAllowed: true, ForeignKey: "ownerId"},
		},
	}
}

func tagDefinition() *resource.RawDefinition {
	return &resource.RawDefinition{
		Key:     "tags",
		Route:   "tags",
		KeyName: "id",
		KeyType: resource.TypeGUID,
		Fields: []resource.RawField{
			{Name: "id", Type: resource.TypeGUID, InRead: true, Filterable: true},
			{Name: "label", Type: resource.TypeString, Required: true, InRead: true,
				InCreate: true, InUpdate: true, Filterable: true},
		},
	}
}

func eventDefinition() *resource.RawDefinition {
	return &resource.RawDefinition{
		Key:      "events",
		Route:    "events",
		KeyName:  "eventId",
		KeyType:  resource.TypeInt64,
		Disabled: []string{"delete"},
		Fields: []resource.RawField{
			{Name: "eventId", Type: resource.TypeInt64, InRead: true, Filterable: true},
			{Name: "name", Type: resource.TypeString, InRead: true, InCreate: true,
				InUpdate: true, Filterable: true, Sortable: true},
		},
	}
}

// createTask creates a task and returns its projected document.
func createTask(t *testing.T, e *Engine, payload resource.Document) resource.Document {
	t.Helper()
	doc, err := e.Create(context.Background(), "tasks", payload)
	require.NoError(t, err)
	require.NotNil(t, doc)
	return doc
}

func docID(t *testing.T, doc resource.Document) string {
	t.Helper()
	id, ok := doc["id"].(string)
	require.True(t, ok)
	require.NotEmpty(t, id)
	return id
}

func docRev(t *testing.T, doc resource.Document) string {
	t.Helper()
	rev, ok := doc["rev"].(string)
	require.True(t, ok)
	require.NotEmpty(t, rev)
	return rev
}

func TestCreateGeneratesKey(t *testing.T) {
	e, _ := newTestEngine(t)

	doc := createTask(t, e, resource.Document{"title": "write report"})
	docID(t, doc)
	docRev(t, doc)
	assert.Equal(t, "write report", doc["title"])
	assert.Equal(t, "open", doc["status"], "declared default applies")

	// Output fields absent from the document project as explicit nulls.
	v, ok := doc["priority"]
	require.True(t, ok)
	assert.Nil(t, v)

	// Hidden fields never appear in the read shape.
	assert.NotContains(t, doc, "internalNote")
}

func TestCreateClientSuppliedKey(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	id := resource.NewGUID()
	doc := createTask(t, e, resource.Document{"id": id, "title": "pinned"})
	assert.Equal(t, id, doc["id"])

	_, err := e.Create(ctx, "tasks", resource.Document{"id": id, "title": "again"})
	var verr *resource.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields["id"], "A record with this key already exists.")
}

func TestCreateKeyRequiredForNonGUID(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Create(ctx, "events", resource.Document{"name": "launch"})
	var verr *resource.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields["eventId"],
		"Key is required; this key type has no auto-generation.")

	doc, err := e.Create(ctx, "events", resource.Document{"eventId": 42, "name": "launch"})
	require.NoError(t, err)
	assert.Equal(t, int64(42), doc["eventId"], "int keys surface as int64")
}

func TestCreateValidation(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		payload resource.Document
		field   string
		message string
	}{
		{"unknown field", resource.Document{"title": "t", "bogus": 1}, "bogus", "Field is not allowed."},
		{"missing required", resource.Document{"priority": 1}, "title", "Field is required."},
		{"null required", resource.Document{"title": nil}, "title", "Field is required."},
		{"hidden field", resource.Document{"title": "t", "internalNote": "x"}, "internalNote", "Field is not allowed."},
		{"over max", resource.Document{"title": "t", "priority": 9}, "priority", "Value must be at most 5."},
		{"under min", resource.Document{"title": "t", "priority": -1}, "priority", "Value must be at least 0."},
		{"bad enum", resource.Document{"title": "t", "status": "stalled"}, "status", "Value is not one of the allowed values."},
		{"too long", resource.Document{"title": strings.Repeat("x", 81)}, "title", "Value must be at most 80 characters."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Create(ctx, "tasks", tt.payload)
			var verr *resource.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields[tt.field], tt.message)
		})
	}
}

func TestUpdatePatchMerge(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	doc := createTask(t, e, resource.Document{"title": "draft", "priority": 2, "slug": "draft-1"})
	id, rev := docID(t, doc), docRev(t, doc)

	updated, err := e.Update(ctx, "tasks", id, resource.Document{"title": "final", "rev": rev})
	require.NoError(t, err)
	assert.Equal(t, "final", updated["title"])
	assert.Equal(t, float64(2), updated["priority"], "untouched fields survive the patch")
	assert.Equal(t, "draft-1", updated["slug"])
	assert.NotEqual(t, rev, updated["rev"], "every update mints a fresh token")

	// An explicit null clears the field.
	rev = docRev(t, updated)
	updated, err = e.Update(ctx, "tasks", id, resource.Document{"priority": nil, "rev": rev})
	require.NoError(t, err)
	v, ok := updated["priority"]
	require.True(t, ok)
	assert.Nil(t, v)
}

func TestUpdateValidation(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	doc := createTask(t, e, resource.Document{"title": "locked", "slug": "locked-1"})
	id, rev := docID(t, doc), docRev(t, doc)

	tests := []struct {
		name    string
		payload resource.Document
		field   string
		message string
	}{
		{"immutable field", resource.Document{"slug": "other", "rev": rev}, "slug", "Field is immutable."},
		{"unknown field", resource.Document{"bogus": 1, "rev": rev}, "bogus", "Field is not allowed."},
		{"missing token", resource.Document{"title": "new"}, "rev", "Concurrency token is required."},
		{"null not nullable", resource.Document{"title": nil, "rev": rev}, "title", "Field cannot be null."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Update(ctx, "tasks", id, tt.payload)
			var verr *resource.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields[tt.field], tt.message)
		})
	}

	// A rejected update leaves the record untouched.
	got, err := e.Get(ctx, "tasks", id, GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, "locked", got["title"])
	assert.Equal(t, "locked-1", got["slug"])
	assert.Equal(t, rev, got["rev"])
}

func TestUpdateMissingRecord(t *testing.T) {
	e, _ := newTestEngine(t)

	_, err := e.Update(context.Background(), "tasks", "absent",
		resource.Document{"title": "x", "rev": "whatever"})
	var nfe *resource.NotFoundError
	require.ErrorAs(t, err, &nfe)
	assert.Equal(t, "tasks", nfe.Resource)
	assert.Equal(t, "absent", nfe.ID)
}

func TestUpdateStaleToken(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	doc := createTask(t, e, resource.Document{"title": "contended"})
	id, rev := docID(t, doc), docRev(t, doc)

	_, err := e.Update(ctx, "tasks", id, resource.Document{"title": "first", "rev": rev})
	require.NoError(t, err)

	// The second writer still holds the original token.
	_, err = e.Update(ctx, "tasks", id, resource.Document{"title": "second", "rev": rev})
	var cerr *resource.ConcurrencyError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, id, cerr.ID)
}

func TestPayloadKeyCasing(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	// Payload keys match contract fields case-insensitively; stored and
	// projected documents carry the canonical API names.
	doc := createTask(t, e, resource.Document{"TITLE": "cased"})
	id, rev := docID(t, doc), docRev(t, doc)
	assert.Equal(t, "cased", doc["title"])
	assert.NotContains(t, doc, "TITLE")

	// The concurrency token counts as supplied regardless of casing.
	doc, err := e.Update(ctx, "tasks", id, resource.Document{"Title": "recased", "REV": rev})
	require.NoError(t, err)
	assert.Equal(t, "recased", doc["title"])

	// A stale token under a different casing still trips the guard.
	_, err = e.Update(ctx, "tasks", id, resource.Document{"title": "again", "REV": rev})
	var cerr *resource.ConcurrencyError
	require.ErrorAs(t, err, &cerr)
}

func TestDelete(t *testing.T) {
	e, store := newTestEngine(t)
	ctx := context.Background()

	doc := createTask(t, e, resource.Document{"title": "soft target"})
	id := docID(t, doc)
	require.NoError(t, e.Delete(ctx, "tasks", id, DeleteOptions{}))

	got, err := e.Get(ctx, "tasks", id, GetOptions{})
	require.NoError(t, err)
	assert.Nil(t, got, "soft-deleted records disappear from reads")

	rec, err := store.GetAny(ctx, "tasks", id)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.True(t, rec.Deleted)

	var nfe *resource.NotFoundError
	require.ErrorAs(t, e.Delete(ctx, "tasks", id, DeleteOptions{}), &nfe)

	// Hard deletes remove the row entirely.
	doc = createTask(t, e, resource.Document{"title": "hard target"})
	id = docID(t, doc)
	require.NoError(t, e.Delete(ctx, "tasks", id, DeleteOptions{Hard: true}))
	rec, err = store.GetAny(ctx, "tasks", id)
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestGetMissing(t *testing.T) {
	e, _ := newTestEngine(t)

	doc, err := e.Get(context.Background(), "tasks", "absent", GetOptions{})
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestGetFieldNarrowing(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	doc := createTask(t, e, resource.Document{"title": "narrow", "priority": 1})
	id := docID(t, doc)

	got, err := e.Get(ctx, "tasks", id, GetOptions{Fields: []string{"title"}, Expand: []string{"none"}})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "narrow", got["title"])
	assert.Contains(t, got, "id", "the key is always kept")
	assert.NotContains(t, got, "priority")
	assert.NotContains(t, got, "rev")
}

func TestListPagingAndFilter(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	titles := []string{"alpha", "bravo", "charlie", "delta"}
	for i, title := range titles {
		payload := resource.Document{"title": title, "priority": i}
		if i == 3 {
			payload["status"] = "done"
		}
		createTask(t, e, payload)
	}

	res, err := e.List(ctx, "tasks", ListQuery{Filter: map[string]string{"status": "eq:open"}, Sort: "title"})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, resource.DefaultMaxPageSize, res.PageSize, "zero page size means the maximum")

	res, err = e.List(ctx, "tasks", ListQuery{Sort: "title", Page: 2, PageSize: 3})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Total)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "delta", res.Items[0]["title"])
	assert.Equal(t, 2, res.Page)
	assert.Equal(t, 3, res.PageSize)

	// Unknown filter fields drop silently; malformed values do not.
	res, err = e.List(ctx, "tasks", ListQuery{Filter: map[string]string{"nope": "eq:1"}})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Total)

	_, err = e.List(ctx, "tasks", ListQuery{Filter: map[string]string{"priority": "gt:soon"}})
	var verr *resource.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestListSearch(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	createTask(t, e, resource.Document{"title": "quarterly report"})
	createTask(t, e, resource.Document{"title": "meeting notes"})
	createTask(t, e, resource.Document{"title": "annual report"})

	res, err := e.List(ctx, "tasks", ListQuery{Search: "report", Sort: "title"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "annual report", res.Items[0]["title"])
}

func TestDisabledOperation(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	doc, err := e.Create(ctx, "events", resource.Document{"eventId": 7, "name": "kickoff"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), doc["eventId"])

	err = e.Delete(ctx, "events", "7", DeleteOptions{})
	var derr *resource.OperationDisabledError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "events", derr.Resource)
	assert.Equal(t, resource.OpDelete, derr.Op)
}

func TestUnknownResource(t *testing.T) {
	e, _ := newTestEngine(t)

	_, err := e.Get(context.Background(), "widgets", "x", GetOptions{})
	var nfe *resource.NotFoundError
	require.ErrorAs(t, err, &nfe)
	assert.Equal(t, "widgets", nfe.Resource)
}
