package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("report not found")

// DefaultKeep is how many reports per tenant Save retains.
const DefaultKeep = 200

const schema = `
CREATE TABLE IF NOT EXISTS inventory_reports (
	id            BIGSERIAL PRIMARY KEY,
	tenant_id     BIGINT      NOT NULL,
	generated_at  TIMESTAMPTZ NOT NULL,
	product_count INT         NOT NULL,
	total_units   INT         NOT NULL,
	total_value   NUMERIC(14,2) NOT NULL,
	body          JSONB       NOT NULL
);
CREATE INDEX IF NOT EXISTS inventory_reports_tenant_idx ON inventory_reports (tenant_id, generated_at DESC);
`

// Repo keeps the report history in Postgres.
type Repo struct {
	DB   *pgxpool.Pool
	Keep int
}

func (r *Repo) EnsureSchema(ctx context.Context) error {
	_, err := r.DB.Exec(ctx, schema)
	return err
}

// Save stores inv and prunes the tenant's history down to Keep rows.
func (r *Repo) Save(ctx context.Context, inv Inventory) (int64, error) {
	body, err := json.Marshal(inv)
	if err != nil {
		return 0, fmt.Errorf("encode report: %w", err)
	}
	keep := r.Keep
	if keep <= 0 {
		keep = DefaultKeep
	}

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var id int64
	err = tx.QueryRow(ctx, `
		INSERT INTO inventory_reports (tenant_id, generated_at, product_count, total_units, total_value, body)
		VALUES ($1, $2, $3, $4, $5::numeric, $6::jsonb)
		RETURNING id`,
		inv.TenantID, inv.GeneratedAt, inv.ProductCount, inv.TotalUnits, inv.TotalValue.StringFixed(2), string(body),
	).Scan(&id)
	if err != nil {
		return 0, err
	}

	_, err = tx.Exec(ctx, `
		DELETE FROM inventory_reports
		WHERE tenant_id = $1 AND id NOT IN (
			SELECT id FROM inventory_reports WHERE tenant_id = $1 ORDER BY generated_at DESC, id DESC LIMIT $2
		)`, inv.TenantID, keep)
	if err != nil {
		return 0, err
	}
	return id, tx.Commit(ctx)
}

// Latest returns the newest report of a tenant, or ErrNotFound.
func (r *Repo) Latest(ctx context.Context, tenantID int64) (Inventory, error) {
	var body string
	err := r.DB.QueryRow(ctx, `
		SELECT body::text FROM inventory_reports
		WHERE tenant_id = $1
		ORDER BY generated_at DESC, id DESC
		LIMIT 1`, tenantID).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return Inventory{}, ErrNotFound
	}
	if err != nil {
		return Inventory{}, err
	}
	var inv Inventory
	if err := json.Unmarshal([]byte(body), &inv); err != nil {
		return Inventory{}, fmt.Errorf("decode report: %w", err)
	}
	return inv, nil
}
