package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MoslemBenDhaou/datasurface/pkg/resource"
)

func createUser(t *testing.T, e *Engine, name string) string {
	t.Helper()
	doc, err := e.Create(context.Background(), "users", resource.Document{"name": name})
	require.NoError(t, err)
	return docID(t, doc)
}

func TestExpandToOne(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	owner := createUser(t, e, "ana")
	doc := createTask(t, e, resource.Document{"title": "owned", "ownerId": owner})

	got, err := e.Get(ctx, "tasks", docID(t, doc), GetOptions{Expand: []string{"owner"}})
	require.NoError(t, err)
	require.NotNil(t, got)

	child, ok := got["owner"].(resource.Document)
	require.True(t, ok, "owner expands to a projected document")
	assert.Equal(t, owner, child["id"])
	assert.Equal(t, "ana", child["name"])

	// An explicit expand list suppresses the default set.
	assert.NotContains(t, got, "tags")
}

func TestExpandToOneAbsentAndDangling(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	doc := createTask(t, e, resource.Document{"title": "unowned"})
	got, err := e.Get(ctx, "tasks", docID(t, doc), GetOptions{Expand: []string{"owner"}})
	require.NoError(t, err)
	v, ok := got["owner"]
	require.True(t, ok)
	assert.Nil(t, v, "a missing reference expands to an explicit null")

	doc = createTask(t, e, resource.Document{"title": "orphaned", "ownerId": resource.NewGUID()})
	got, err = e.Get(ctx, "tasks", docID(t, doc), GetOptions{Expand: []string{"owner"}})
	require.NoError(t, err)
	v, ok = got["owner"]
	require.True(t, ok)
	assert.Nil(t, v, "a dangling reference expands to an explicit null")
}

func TestExpandByIDList(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	urgent, err := e.Create(ctx, "tags", resource.Document{"label": "urgent"})
	require.NoError(t, err)
	home, err := e.Create(ctx, "tags", resource.Document{"label": "home"})
	require.NoError(t, err)

	doc := createTask(t, e, resource.Document{
		"title":   "tagged",
		"tagsIds": []string{docID(t, home), "missing", docID(t, urgent)},
	})

	got, err := e.Get(ctx, "tasks", docID(t, doc), GetOptions{Expand: []string{"tags"}})
	require.NoError(t, err)
	children, ok := got["tags"].([]resource.Document)
	require.True(t, ok)
	require.Len(t, children, 2, "dangling ids are skipped")
	assert.Equal(t, "home", children[0]["label"], "list order follows the stored ids")
	assert.Equal(t, "urgent", children[1]["label"])
}

func TestExpandDefaultSet(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	doc := createTask(t, e, resource.Document{"title": "plain"})
	got, err := e.Get(ctx, "tasks", docID(t, doc), GetOptions{})
	require.NoError(t, err)

	children, ok := got["tags"].([]resource.Document)
	require.True(t, ok, "the default expand set applies when none is requested")
	assert.Empty(t, children)

	res, err := e.List(ctx, "tasks", ListQuery{})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Contains(t, res.Items[0], "tags", "list expands the default set per record")
}

func TestExpandReverseToMany(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	ana := createUser(t, e, "ana")
	bob := createUser(t, e, "bob")
	createTask(t, e, resource.Document{"title": "hers", "ownerId": ana})
	createTask(t, e, resource.Document{"title": "also hers", "ownerId": ana})
	createTask(t, e, resource.Document{"title": "his", "ownerId": bob})

	got, err := e.Get(ctx, "users", ana, GetOptions{Expand: []string{"tasks"}})
	require.NoError(t, err)
	children, ok := got["tasks"].([]resource.Document)
	require.True(t, ok)
	require.Len(t, children, 2)
	for _, child := range children {
		assert.Equal(t, ana, child["ownerId"])
	}
}

func TestExpandNotAllowed(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	auditor := createUser(t, e, "carol")
	doc := createTask(t, e, resource.Document{"title": "audited", "auditId": auditor})

	got, err := e.Get(ctx, "tasks", docID(t, doc), GetOptions{Expand: []string{"audit"}})
	require.NoError(t, err)
	assert.NotContains(t, got, "audit", "relations outside the allowlist drop silently")
}
