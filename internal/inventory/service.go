package inventory

import (
	"context"
	"fmt"
	"slices"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"

	"github.com/ariefcatur/go-storefront/internal/config"
	kafkax "github.com/ariefcatur/go-storefront/internal/kafka"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/ariefcatur/go-storefront/internal/report"
)

type Store interface {
	Save(ctx context.Context, inv report.Inventory) (int64, error)
}

// Deduper reports whether an event id is seen for the first time. Forget undoes the mark.
type Deduper interface {
	First(ctx context.Context, id string) (bool, error)
	Forget(ctx context.Context, id string) error
}

// Service audits tenant warehouses on a timer and after confirmed orders.
type Service struct {
	Catalog  report.Lister
	Store    Store
	Dedup    Deduper // optional
	Tenants  []int64
	PageSize int
	Lang     language.Tag
	Currency string
	Parallel int
	Log      logrus.FieldLogger

	now func() time.Time
}

func (s *Service) logger() logrus.FieldLogger {
	if s.Log == nil {
		return config.NopLogger()
	}
	return s.Log
}

func (s *Service) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

// Audit fetches the tenant's full catalog, stores the report and logs its text form.
func (s *Service) Audit(ctx context.Context, tenantID int64) (report.Inventory, error) {
	products, err := report.FetchAll(ctx, s.Catalog, tenantID, s.PageSize)
	if err != nil {
		return report.Inventory{}, err
	}
	inv := report.Build(tenantID, products, s.clock())
	id, err := s.Store.Save(ctx, inv)
	if err != nil {
		return report.Inventory{}, fmt.Errorf("save report: %w", err)
	}
	currency := s.Currency
	if currency == "" {
		currency = "PLN"
	}
	s.logger().WithFields(logrus.Fields{
		"module":    "inventory",
		"tenant_id": tenantID,
		"report_id": id,
		"report":    report.Text(inv, s.Lang, currency),
	}).Info("inventory report stored")
	return inv, nil
}

// AuditAll audits every configured tenant. One tenant failing does not stop the others;
// the first error is returned after all have run.
func (s *Service) AuditAll(ctx context.Context) error {
	var g errgroup.Group
	limit := s.Parallel
	if limit <= 0 {
		limit = 4
	}
	g.SetLimit(limit)
	for _, tenantID := range s.Tenants {
		g.Go(func() error {
			if _, err := s.Audit(ctx, tenantID); err != nil {
				config.LogError(s.logger(), "inventory", "AuditAll", "audit tenant", logrus.Fields{"tenant_id": tenantID}, err)
				return fmt.Errorf("tenant %d: %w", tenantID, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Run audits immediately and then every interval until ctx ends.
func (s *Service) Run(ctx context.Context, interval time.Duration) error {
	if len(s.Tenants) == 0 {
		s.logger().WithField("module", "inventory").Warn("no tenants configured, periodic audit disabled")
		<-ctx.Done()
		return nil
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		_ = s.AuditAll(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}

// HandleStatusChanged is the consumer handler: a CONFIRMED order triggers an audit of its tenant.
// Other events, other statuses, duplicates and tenants outside Tenants are acknowledged and skipped.
func (s *Service) HandleStatusChanged(ctx context.Context, m kafkago.Message) error {
	if kafkax.EventType(m) != orders.EventOrderStatusChanged {
		return nil
	}
	env, err := kafkax.DecodeEnvelope(m.Value)
	if err != nil {
		return err
	}
	p, err := kafkax.UnwrapPayload[orders.OrderStatusChangedPayload](env.Payload)
	if err != nil {
		return err
	}
	log := s.logger().WithFields(logrus.Fields{
		"module":    "inventory",
		"event_id":  env.EventID,
		"order_id":  p.OrderID,
		"tenant_id": p.TenantID,
	})
	if p.To != orders.StatusConfirmed {
		return nil
	}
	if p.TenantID <= 0 || (len(s.Tenants) > 0 && !slices.Contains(s.Tenants, p.TenantID)) {
		log.Debug("tenant not audited, skipping event")
		return nil
	}

	marked := false
	if s.Dedup != nil {
		first, err := s.Dedup.First(ctx, env.EventID)
		switch {
		case err != nil:
			log.WithError(err).Warn("dedup unavailable, processing anyway")
		case !first:
			log.Debug("duplicate event")
			return nil
		default:
			marked = true
		}
	}

	if _, err := s.Audit(ctx, p.TenantID); err != nil {
		if marked {
			if ferr := s.Dedup.Forget(context.WithoutCancel(ctx), env.EventID); ferr != nil {
				log.WithError(ferr).Warn("clear dedup mark")
			}
		}
		return err
	}
	return nil
}
