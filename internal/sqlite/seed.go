package sqlite

import (
	"context"
	"fmt"

	"github.com/MoslemBenDhaou/datasurface/pkg/resource"
)

// builtinDefinitions returns the sample resources installed on init. The
// tasks resource exercises the full contract surface: guid key, string
// and bool fields with filter/sort/search membership, a concurrency
// token, and a hidden field that must never leak.
func builtinDefinitions() []*resource.RawDefinition {
	return []*resource.RawDefinition{
		{
			Key:     "tasks",
			Route:   "tasks",
			Backend: resource.BackendDynamic,
			KeyName: "id",
			KeyType: resource.TypeGUID,
			Fields: []resource.RawField{
				{
					Name: "title", Type: resource.TypeString,
					InRead: true, InCreate: true, InUpdate: true,
					Filterable: true, Sortable: true, Searchable: true,
					Required: true,
				},
				{
					Name: "done", Type: resource.TypeBoolean, Nullable: true,
					InRead: true, InCreate: true, InUpdate: true,
					Filterable: true, Sortable: true,
				},
				{
					Name: "notes", Type: resource.TypeString, Nullable: true,
					InRead: true, InCreate: true, InUpdate: true,
					Filterable: true, Searchable: true,
				},
				{
					Name: "rev", Type: resource.TypeGUID, Nullable: true,
					InRead:           true,
					ConcurrencyToken: true,
				},
				{
					Name: "internalNote", Type: resource.TypeString,
					Hidden: true,
				},
			},
		},
	}
}

// Seed installs the built-in sample definitions, overwriting prior
// revisions of the same keys.
func (s *Store) Seed(ctx context.Context) error {
	defs := s.Definitions()
	for _, def := range builtinDefinitions() {
		if err := defs.Put(ctx, def); err != nil {
			return fmt.Errorf("seeding definition %q: %w", def.Key, err)
		}
	}
	return nil
}
