package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"

	"github.com/ariefcatur/go-storefront/internal/checkout"
	"github.com/ariefcatur/go-storefront/internal/storefront"
)

const (
	firstNameFlag   = "first-name"
	lastNameFlag    = "last-name"
	phoneFlag       = "phone"
	streetFlag      = "street"
	houseNumberFlag = "house-number"
	zipCodeFlag     = "zip-code"
	cityFlag        = "city"
	addressFlag     = "address"
	emailFlag       = "contact-email"
)

func shippingFlags() map[string]cobraflags.Flag {
	return map[string]cobraflags.Flag{
		firstNameFlag:   &cobraflags.StringFlag{Name: firstNameFlag, Value: "", Usage: "First name"},
		lastNameFlag:    &cobraflags.StringFlag{Name: lastNameFlag, Value: "", Usage: "Last name"},
		phoneFlag:       &cobraflags.StringFlag{Name: phoneFlag, Value: "", Usage: "Phone number"},
		streetFlag:      &cobraflags.StringFlag{Name: streetFlag, Value: "", Usage: "Street"},
		houseNumberFlag: &cobraflags.StringFlag{Name: houseNumberFlag, Value: "", Usage: "House number"},
		zipCodeFlag:     &cobraflags.StringFlag{Name: zipCodeFlag, Value: "", Usage: "Zip code"},
		cityFlag:        &cobraflags.StringFlag{Name: cityFlag, Value: "", Usage: "City"},
		addressFlag:     &cobraflags.StringFlag{Name: addressFlag, Value: "", Usage: "Full address, replaces street/house/zip/city"},
		emailFlag:       &cobraflags.StringFlag{Name: emailFlag, Value: "", Usage: "Contact email (required for guests)"},
	}
}

func formFrom(flags map[string]cobraflags.Flag) checkout.ShippingForm {
	return checkout.ShippingForm{
		FirstName:   flags[firstNameFlag].GetString(),
		LastName:    flags[lastNameFlag].GetString(),
		Phone:       flags[phoneFlag].GetString(),
		Street:      flags[streetFlag].GetString(),
		HouseNumber: flags[houseNumberFlag].GetString(),
		ZipCode:     flags[zipCodeFlag].GetString(),
		City:        flags[cityFlag].GetString(),
		Address:     flags[addressFlag].GetString(),
		Email:       flags[emailFlag].GetString(),
	}
}

func newCheckoutCommand(app *App) *cobra.Command {
	flags := shippingFlags()
	var items []int64
	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "Order products: each --item adds one unit to the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			p, err := app.open(ctx)
			if err != nil {
				return err
			}
			if _, ok := p.Session.TenantID(); ok {
				if _, err := p.Load(ctx); err != nil {
					return err
				}
				for _, id := range items {
					if err := addItem(ctx, p, id); err != nil {
						return err
					}
				}
			}

			p.Checkout.Begin()
			order, err := p.Checkout.Submit(ctx, p.Session, formFrom(flags))
			if err != nil {
				return err
			}
			fmt.Fprintf(app.Out, "Order #%d placed: %d line(s), total %s, status %s\n",
				order.OrderID, len(order.Items), order.TotalAmount.StringFixed(2), order.Status)
			return nil
		},
	}
	cobraflags.RegisterMap(cmd, flags)
	cmd.Flags().Int64SliceVar(&items, "item", nil, "Product id to add (repeatable)")
	return cmd
}

// addItem looks for id on the loaded page first, then on the others.
func addItem(ctx context.Context, p *storefront.Page, id int64) error {
	if err := p.AddToCart(id); !errors.Is(err, storefront.ErrNotLoaded) {
		return err
	}
	current := p.Catalog.Query().Page
	for n := 1; n <= p.Catalog.TotalPages(); n++ {
		if n == current {
			continue
		}
		if _, err := p.Catalog.SetPage(ctx, n); err != nil {
			return err
		}
		if err := p.AddToCart(id); !errors.Is(err, storefront.ErrNotLoaded) {
			return err
		}
	}
	return fmt.Errorf("%w: %d", storefront.ErrNotLoaded, id)
}
