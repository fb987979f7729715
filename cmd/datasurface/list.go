// List command queries records of a resource.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/MoslemBenDhaou/datasurface/pkg/engine"
)

var (
	listSort     string
	listSearch   string
	listPage     int
	listPageSize int
	listExpand   []string
	listFields   []string
)

var listCmd = &cobra.Command{
	Use:   "list <resource> [filter...]",
	Short: "List records with optional filters",
	Long: `List queries records of the given resource with optional filters.

Filters are field=value or field=op:value pairs, ANDed together. Operators:
eq, neq, gt, gte, lt, lte, contains, starts, ends, in, isnull. Fields
outside the resource's filterable set are ignored.

Example:
  datasurface list tasks
  datasurface list tasks done=eq:false --sort=-title
  datasurface list tasks --search=report --page=2 --page-size=10`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filters, err := parseFilterArgs(args[1:])
		if err != nil {
			return err
		}

		s, err := openSurface()
		if err != nil {
			fmt.Fprintln(os.Stderr, "list:", err)
			os.Exit(exitSysError)
		}
		defer s.Close()

		res, err := s.Engine().List(cmd.Context(), args[0], engine.ListQuery{
			Filter:   filters,
			Sort:     listSort,
			Search:   listSearch,
			Page:     listPage,
			PageSize: listPageSize,
			Expand:   listExpand,
			Fields:   listFields,
		})
		if err != nil {
			fail("list", err)
		}

		if flagJSON {
			return printJSON(res)
		}
		for _, item := range res.Items {
			if err := printJSON(item); err != nil {
				return err
			}
		}
		fmt.Printf("page %d of %d records\n", res.Page, res.Total)
		return nil
	},
}

func init() {
	listCmd.Flags().StringVar(&listSort, "sort", "", "sort spec, e.g. -updatedAt,title")
	listCmd.Flags().StringVar(&listSearch, "search", "", "free-text search over searchable fields")
	listCmd.Flags().IntVar(&listPage, "page", 1, "1-based page number")
	listCmd.Flags().IntVar(&listPageSize, "page-size", 20, "records per page; 0 means the resource's maximum page size")
	listCmd.Flags().StringSliceVar(&listExpand, "expand", nil, "relations to expand")
	listCmd.Flags().StringSliceVar(&listFields, "fields", nil, "restrict output to these fields")
}
