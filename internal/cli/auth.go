package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ariefcatur/go-storefront/internal/storefront"
)

type credentials struct {
	email    string
	password string
}

func (c *credentials) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&c.email, "email", "", "Account email")
	cmd.Flags().StringVar(&c.password, "password", "", "Account password")
}

func (a *App) auth(cmd *cobra.Command) (*storefront.Auth, error) {
	d, err := a.deps(cmd.Context())
	if err != nil {
		return nil, err
	}
	return storefront.NewAuth(d.API, d.Tokens, a.Log), nil
}

func newLoginCommand(app *App) *cobra.Command {
	var cred credentials
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in as a store owner and keep the access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			auth, err := app.auth(cmd)
			if err != nil {
				return err
			}
			sess, err := auth.Login(cmd.Context(), cred.email, cred.password)
			if err != nil {
				return err
			}
			owner, _ := sess.Owner()
			fmt.Fprintf(app.Out, "Logged in to store %d\n", owner.Tenant)
			return nil
		},
	}
	cred.register(cmd)
	return cmd
}

func newLogoutCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			auth, err := app.auth(cmd)
			if err != nil {
				return err
			}
			if err := auth.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(app.Out, "Logged out")
			return nil
		},
	}
}

func newRegisterCommand(app *App) *cobra.Command {
	var (
		cred    credentials
		company string
	)
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an owner account and its store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			auth, err := app.auth(cmd)
			if err != nil {
				return err
			}
			if err := auth.Register(cmd.Context(), cred.email, cred.password, company); err != nil {
				return err
			}
			fmt.Fprintln(app.Out, "Account created, you can log in now")
			return nil
		},
	}
	cred.register(cmd)
	cmd.Flags().StringVar(&company, "company", "", "Company (store) name")
	return cmd
}
