package commands

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/teatime-io/teatime/internal/constants"
	"github.com/teatime-io/teatime/pkg/teatime"
)

// NewPagesCommand creates the pages command.
func NewPagesCommand() *cobra.Command {
	var (
		name     string
		maxPages int
		byPage   bool
	)

	cmd := &cobra.Command{
		Use:   "pages <target> [key=value...]",
		Short: "Fetch every page of a collection",
		Long: `Fetch a paginated collection, following "next" relations in the Link
header one page at a time. Array pages are merged into a single item list
unless --by-page is set.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if maxPages < 0 {
				return constants.ErrInvalidMaxPages
			}

			_, _, entry, err := resolveVendor(name)
			if err != nil {
				return err
			}

			target, err := parseTarget(args[0])
			if err != nil {
				return err
			}

			params, err := parseParams(args[1:])
			if err != nil {
				return err
			}

			client, err := buildClient(entry)
			if err != nil {
				return err
			}
			defer client.Close()

			var pages []any
			if maxPages > 0 {
				pages, err = teatime.FetchAllPages(cmd.Context(), client, http.MethodGet, target, params,
					&teatime.PaginationOptions{MaxPages: maxPages})
			} else {
				pages, err = client.RequestPaged(cmd.Context(), http.MethodGet, target, params)
			}

			if err != nil {
				return err
			}

			if byPage {
				return renderDocument(any(pages))
			}

			return renderDocument(mergePages(pages))
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "vendor entry to use (defaults to the current vendor)")
	cmd.Flags().IntVar(&maxPages, "max-pages", 0, "stop after this many pages (0 fetches all)")
	cmd.Flags().BoolVar(&byPage, "by-page", false, "print one document per page instead of merging")

	return cmd
}

// mergePages flattens array pages into one item list. A page that is not an
// array stays a single element.
func mergePages(pages []any) any {
	merged := make([]any, 0)

	for _, page := range pages {
		if items, ok := page.([]any); ok {
			merged = append(merged, items...)

			continue
		}

		merged = append(merged, page)
	}

	return merged
}
