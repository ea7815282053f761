package cli

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ariefcatur/go-storefront/internal/orders"
)

func newOrdersCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "Manage the orders of your store",
	}
	cmd.AddCommand(
		newOrdersListCommand(app),
		newOrderStatusCommand(app, "confirm", orders.StatusConfirmed),
		newOrderStatusCommand(app, "reject", orders.StatusRejected),
		newOrdersDeleteCommand(app),
	)
	return cmd
}

// manager opens the page, requires an owner session and loads the order list.
func (a *App) manager(cmd *cobra.Command) (*orders.Manager, error) {
	p, err := a.open(cmd.Context())
	if err != nil {
		return nil, err
	}
	m, err := p.ManageOrders()
	if err != nil {
		return nil, err
	}
	if _, err := m.List(cmd.Context()); err != nil {
		return nil, err
	}
	return m, nil
}

func newOrdersListCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your store's orders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := app.manager(cmd)
			if err != nil {
				return err
			}
			list := m.Orders()
			if len(list) == 0 {
				fmt.Fprintln(app.Out, "No orders")
				return nil
			}
			tw := tabwriter.NewWriter(app.Out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCREATED\tCUSTOMER\tTOTAL\tSTATUS\tACTIONS")
			for _, o := range list {
				created := "-"
				if !o.CreatedAt.IsZero() {
					created = o.CreatedAt.Local().Format("2006-01-02 15:04")
				}
				actions := make([]string, 0, 2)
				for _, a := range m.Actions(o) {
					actions = append(actions, string(a))
				}
				fmt.Fprintf(tw, "%d\t%s\t%s %s\t%s\t%s\t%s\n", o.OrderID, created, o.FirstName, o.LastName,
					o.TotalAmount.StringFixed(2), o.Status, strings.Join(actions, ","))
			}
			return tw.Flush()
		},
	}
}

func newOrderStatusCommand(app *App, use string, to orders.Status) *cobra.Command {
	return &cobra.Command{
		Use:   use + " ORDER_ID",
		Short: fmt.Sprintf("Mark a NEW order as %s", to),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			m, err := app.manager(cmd)
			if err != nil {
				return err
			}
			if err := m.SetStatus(cmd.Context(), id, to); err != nil {
				return err
			}
			fmt.Fprintf(app.Out, "Order #%d is now %s\n", id, to)
			return nil
		},
	}
}

func newOrdersDeleteCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete ORDER_ID",
		Short: "Delete a confirmed or rejected order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			m, err := app.manager(cmd)
			if err != nil {
				return err
			}
			err = m.Delete(cmd.Context(), id)
			if errors.Is(err, orders.ErrCancelled) {
				fmt.Fprintln(app.Out, "Cancelled")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(app.Out, "Order #%d deleted\n", id)
			return nil
		},
	}
	cmd.Flags().BoolVar(&app.assumeYes, "yes", false, "Do not ask for confirmation")
	return cmd
}
