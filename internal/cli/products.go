package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"

	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/storefront"
)

const (
	searchFlag      = "search"
	sortFlag        = "sort"
	orderFlag       = "order"
	nameFlag        = "name"
	skuFlag         = "sku"
	descriptionFlag = "description"
	priceFlag       = "price"
)

func newProductsCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "products",
		Short: "Browse and edit a store's products",
	}
	cmd.AddCommand(newProductsListCommand(app), newProductsEditCommand(app), newProductsAddCommand(app))
	return cmd
}

func newProductsListCommand(app *App) *cobra.Command {
	flags := map[string]cobraflags.Flag{
		searchFlag: &cobraflags.StringFlag{Name: searchFlag, Value: "", Usage: "Filter by name or SKU"},
		sortFlag:   &cobraflags.StringFlag{Name: sortFlag, Value: string(catalog.SortNewest), Usage: "Sort key: newest, price or name"},
		orderFlag:  &cobraflags.StringFlag{Name: orderFlag, Value: string(catalog.Desc), Usage: "Sort direction: asc or desc"},
	}
	var page int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List one page of products",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			key, err := catalog.ParseSortKey(flags[sortFlag].GetString())
			if err != nil {
				return err
			}
			dir, err := catalog.ParseDirection(flags[orderFlag].GetString())
			if err != nil {
				return err
			}
			p, err := app.open(cmd.Context())
			if err != nil {
				return err
			}
			if _, ok := p.Session.TenantID(); !ok {
				fmt.Fprintln(app.Out, "No store selected: log in or pass --tenant")
				return nil
			}
			ctx := cmd.Context()
			if _, err := p.Catalog.SetSort(ctx, key, dir); err != nil {
				return err
			}
			if s := flags[searchFlag].GetString(); s != "" {
				if _, err := p.Catalog.SetSearch(ctx, s); err != nil {
					return err
				}
			}
			if page > 1 {
				if _, err := p.Catalog.SetPage(ctx, page); err != nil {
					return err
				}
			}
			printProducts(app.Out, p)
			return nil
		},
	}
	cobraflags.RegisterMap(cmd, flags)
	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	return cmd
}

func printProducts(out io.Writer, p *storefront.Page) {
	views := p.Products()
	if len(views) == 0 {
		fmt.Fprintln(out, "No products")
		return
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSKU\tPRICE\tSTOCK\t")
	for _, v := range views {
		var notes []string
		if v.NeedsAttention {
			notes = append(notes, "needs price")
		} else if !v.Orderable {
			notes = append(notes, "unavailable")
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\n", v.ProductID, v.Name, v.SKU, v.Price.StringFixed(2), v.Stock, strings.Join(notes, ","))
	}
	_ = tw.Flush()

	q := p.Catalog.Query()
	fmt.Fprintf(out, "Page %d of %d  %s\n", q.Page, p.Catalog.TotalPages(), renderButtons(p.Catalog.Buttons(), q.Page))
}

func renderButtons(buttons []int, current int) string {
	parts := make([]string, 0, len(buttons))
	for _, b := range buttons {
		switch b {
		case catalog.Ellipsis:
			parts = append(parts, "...")
		case current:
			parts = append(parts, "["+strconv.Itoa(b)+"]")
		default:
			parts = append(parts, strconv.Itoa(b))
		}
	}
	return strings.Join(parts, " ")
}

func newProductsEditCommand(app *App) *cobra.Command {
	var price, stock string
	cmd := &cobra.Command{
		Use:   "edit PRODUCT_ID",
		Short: "Change the price and/or stock of one of your products",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			patch, err := catalog.ParsePatch(price, stock)
			if err != nil {
				return err
			}
			p, err := app.open(cmd.Context())
			if err != nil {
				return err
			}
			updated, err := p.Editor.UpdateProduct(cmd.Context(), id, patch)
			if err != nil {
				return err
			}
			fmt.Fprintf(app.Out, "Updated #%d %s: price %s, stock %d\n", updated.ProductID, updated.Name, updated.Price.StringFixed(2), updated.Stock)
			return nil
		},
	}
	cmd.Flags().StringVar(&price, "price", "", "New price")
	cmd.Flags().StringVar(&stock, "stock", "", "New stock quantity")
	return cmd
}

func newProductsAddCommand(app *App) *cobra.Command {
	flags := map[string]cobraflags.Flag{
		nameFlag:        &cobraflags.StringFlag{Name: nameFlag, Value: "", Usage: "Product name"},
		skuFlag:         &cobraflags.StringFlag{Name: skuFlag, Value: "", Usage: "Stock keeping unit"},
		descriptionFlag: &cobraflags.StringFlag{Name: descriptionFlag, Value: "", Usage: "Description"},
		priceFlag:       &cobraflags.StringFlag{Name: priceFlag, Value: "", Usage: "Price"},
	}
	var stock int
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a product to your store by hand",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := app.open(cmd.Context())
			if err != nil {
				return err
			}
			created, err := p.Editor.Create(cmd.Context(), catalog.Draft{
				Name:        flags[nameFlag].GetString(),
				SKU:         flags[skuFlag].GetString(),
				Description: flags[descriptionFlag].GetString(),
				Price:       strings.ReplaceAll(flags[priceFlag].GetString(), ",", "."),
				Stock:       stock,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(app.Out, "Created #%d %s\n", created.ProductID, created.Name)
			return nil
		},
	}
	cobraflags.RegisterMap(cmd, flags)
	cmd.Flags().IntVar(&stock, "stock", 0, "Initial stock quantity")
	return cmd
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
