// Package cli is the storefront command line: owner auth, catalog, checkout and order management.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ariefcatur/go-storefront/internal/api"
	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/ariefcatur/go-storefront/internal/config"
	kafkax "github.com/ariefcatur/go-storefront/internal/kafka"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/ariefcatur/go-storefront/internal/redisx"
	"github.com/ariefcatur/go-storefront/internal/session"
	"github.com/ariefcatur/go-storefront/internal/storefront"
)

// App carries what every command needs. Infrastructure is opened per command and
// released by Close.
type App struct {
	Cfg config.Config
	Log logrus.FieldLogger
	Out io.Writer
	In  io.Reader

	apiURL    string
	profile   string
	assumeYes bool
	in        *bufio.Reader
	closers   []func()
}

func NewRootCommand(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "storefront",
		Short:         "Multi-tenant storefront client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			if app.apiURL != "" {
				app.Cfg.APIBaseURL = strings.TrimRight(app.apiURL, "/")
			}
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&app.apiURL, "api-url", "", "Store API base URL (overrides API_BASE_URL)")
	pf.StringVar(&app.profile, "profile", "default", "Token profile name when TOKEN_STORE=redis")
	pf.Int64Var(&app.Cfg.PublicTenantID, "tenant", app.Cfg.PublicTenantID, "Store to browse as a guest (0 = your own store)")

	root.AddCommand(
		newLoginCommand(app),
		newLogoutCommand(app),
		newRegisterCommand(app),
		newProductsCommand(app),
		newGlobalCommand(app),
		newCheckoutCommand(app),
		newOrdersCommand(app),
	)
	return root
}

// Execute runs the command tree and renders the error the way the user should see it.
func Execute(ctx context.Context, app *App, args []string) error {
	root := NewRootCommand(app)
	root.SetArgs(args)
	root.SetOut(app.Out)
	defer app.Close()
	if err := root.ExecuteContext(ctx); err != nil {
		return fmt.Errorf("%s", apperr.Message(err, err.Error()))
	}
	return nil
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *App) client() (*api.Client, error) {
	return api.New(api.Config{BaseURL: a.Cfg.APIBaseURL, Timeout: a.Cfg.APITimeout}, a.Log)
}

// redis returns nil when Redis is not needed or not reachable.
func (a *App) redis(ctx context.Context) *redis.Client {
	if a.Cfg.TokenStore != "redis" && a.Cfg.GlobalCacheTTL <= 0 {
		return nil
	}
	rdb := redisx.New(a.Cfg.RedisAddr)
	pingCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		a.Log.WithError(err).WithField("addr", a.Cfg.RedisAddr).Warn("redis unavailable, running without it")
		_ = rdb.Close()
		return nil
	}
	a.closers = append(a.closers, func() { _ = rdb.Close() })
	return rdb
}

func (a *App) tokens(rdb *redis.Client, profile string) (session.TokenStore, error) {
	switch a.Cfg.TokenStore {
	case "redis":
		if rdb == nil {
			return nil, &apperr.ConfigurationError{Message: "TOKEN_STORE=redis but Redis is unreachable"}
		}
		return &session.RedisStore{RDB: rdb, Profile: profile}, nil
	case "", "file":
		return &session.FileStore{Path: a.Cfg.TokenFile}, nil
	default:
		return nil, &apperr.ConfigurationError{Message: fmt.Sprintf("unknown TOKEN_STORE %q", a.Cfg.TokenStore)}
	}
}

// deps wires the storefront for one command run.
func (a *App) deps(ctx context.Context) (storefront.Deps, error) {
	client, err := a.client()
	if err != nil {
		return storefront.Deps{}, err
	}
	rdb := a.redis(ctx)
	tokens, err := a.tokens(rdb, a.profile)
	if err != nil {
		return storefront.Deps{}, err
	}

	d := storefront.Deps{
		API:            client,
		Tokens:         tokens,
		Confirmer:      orders.ConfirmFunc(a.confirm),
		PageSize:       a.Cfg.PageSize,
		PhoneRegion:    a.Cfg.PhoneRegion,
		CheckoutBanner: a.Cfg.CheckoutBanner,
		Producer:       a.Cfg.ServiceName,
		Logger:         a.Log,
	}
	if rdb != nil && a.Cfg.GlobalCacheTTL > 0 {
		d.Cache = &redisx.Cache{RDB: rdb, TTL: a.Cfg.GlobalCacheTTL}
	}
	if a.Cfg.EventsEnabled {
		p := kafkax.NewProducer(a.Cfg.KafkaBrokers, "", 256, a.Log)
		p.Start(context.WithoutCancel(ctx))
		a.closers = append(a.closers, func() {
			p.Close()
			p.WaitClosed()
		})
		d.Sink = &kafkax.EnvelopeSink{P: p}
	}
	return d, nil
}

func (a *App) open(ctx context.Context) (*storefront.Page, error) {
	d, err := a.deps(ctx)
	if err != nil {
		return nil, err
	}
	return storefront.Open(ctx, d, a.Cfg.PublicTenantID)
}

func (a *App) confirm(prompt string) bool {
	if a.assumeYes {
		return true
	}
	if a.In == nil {
		return false
	}
	if a.in == nil {
		a.in = bufio.NewReader(a.In)
	}
	fmt.Fprintf(a.Out, "%s [y/N]: ", prompt)
	line, _ := a.in.ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}
