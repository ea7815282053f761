package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ariefcatur/go-storefront/internal/catalog"
)

func newGlobalCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "global",
		Short: "Browse the shared catalog and import from it",
	}
	cmd.AddCommand(newGlobalListCommand(app), newGlobalImportCommand(app))
	return cmd
}

func newGlobalListCommand(app *App) *cobra.Command {
	var (
		page   int
		search string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List one page of the global catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := app.open(cmd.Context())
			if err != nil {
				return err
			}
			q := catalog.GlobalQuery{Page: page, PageSize: app.Cfg.PageSize, Search: search}
			res, err := p.Global.List(cmd.Context(), q)
			if err != nil {
				return err
			}
			if len(res.Items) == 0 {
				fmt.Fprintln(app.Out, "No products")
				return nil
			}
			tw := tabwriter.NewWriter(app.Out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tEAN")
			for _, g := range res.Items {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", g.GlobalID, g.Name, g.Category, g.EANCode)
			}
			_ = tw.Flush()
			if !res.Legacy {
				fmt.Fprintf(app.Out, "Page %d of %d\n", max(page, 1), catalog.TotalPages(res.TotalCount, q.PageSize))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().StringVar(&search, "search", "", "Filter by name")
	return cmd
}

// findGlobal walks the global catalog until id turns up.
func findGlobal(ctx context.Context, list func(context.Context, catalog.GlobalQuery) (catalog.Page[catalog.GlobalProduct], error), id int64, pageSize int) (catalog.GlobalProduct, error) {
	q := catalog.GlobalQuery{Page: 1, PageSize: pageSize}
	for {
		res, err := list(ctx, q)
		if err != nil {
			return catalog.GlobalProduct{}, err
		}
		for _, g := range res.Items {
			if g.GlobalID == id {
				return g, nil
			}
		}
		if res.Legacy || len(res.Items) == 0 || q.Page >= catalog.TotalPages(res.TotalCount, q.PageSize) {
			return catalog.GlobalProduct{}, fmt.Errorf("global product %d not found", id)
		}
		q.Page++
	}
}

func newGlobalImportCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "import GLOBAL_ID",
		Short: "Copy a global product into your store (unpriced)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			p, err := app.open(ctx)
			if err != nil {
				return err
			}
			if _, err := p.Load(ctx); err != nil {
				return err
			}
			g, err := findGlobal(ctx, p.Global.List, id, app.Cfg.PageSize)
			if err != nil {
				return err
			}
			imported, err := p.Global.Import(ctx, g)
			if err != nil {
				return err
			}
			fmt.Fprintf(app.Out, "Imported %s as #%d, set a price before selling it\n", imported.Name, imported.ProductID)
			return nil
		},
	}
}
