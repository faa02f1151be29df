package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/vidinfra/tariffd/internal/domain/tariff"
	ierr "github.com/vidinfra/tariffd/internal/errors"
	"github.com/vidinfra/tariffd/internal/logger"
	"github.com/vidinfra/tariffd/internal/types"
)

type tariffRepository struct {
	db  *sqlx.DB
	log *logger.Logger
}

func NewTariffRepository(db *sqlx.DB, log *logger.Logger) tariff.Repository {
	return &tariffRepository{db: db, log: log}
}

type tariffRow struct {
	TenantID     string            `db:"tenant_id"`
	ID           int               `db:"id"`
	State        types.TariffState `db:"state"`
	DueDate      types.Boundary    `db:"due_date"`
	DelayDueDate types.Boundary    `db:"delay_due_date"`
	LicenseDate  types.Boundary    `db:"license_date"`
	CustomerID   string            `db:"customer_id"`
	CreatedAt    time.Time         `db:"created_at"`
	UpdatedAt    time.Time         `db:"updated_at"`
}

type quotaRow struct {
	TenantID     string         `db:"tenant_id"`
	QuotaID      int            `db:"quota_id"`
	Quantity     int            `db:"quantity"`
	IsWallet     bool           `db:"is_wallet"`
	DueDate      types.Boundary `db:"due_date"`
	NextQuantity sql.NullInt64  `db:"next_quantity"`
	Overdue      bool           `db:"overdue"`
}

func (r *tariffRepository) GetTariff(ctx context.Context, tenantID string) (*tariff.Tariff, error) {
	var row tariffRow
	err := r.db.GetContext(ctx, &row,
		`SELECT tenant_id, id, state, due_date, delay_due_date, license_date, customer_id, created_at, updated_at
		 FROM tariffs WHERE tenant_id = $1`, tenantID)
	if err == sql.ErrNoRows {
		return nil, tariff.NewTariffNotFoundError(tenantID)
	}
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("failed to load tariff for tenant %s", tenantID).
			Mark(ierr.ErrDatabase)
	}

	var quotaRows []quotaRow
	err = r.db.SelectContext(ctx, &quotaRows,
		`SELECT tenant_id, quota_id, quantity, is_wallet, due_date, next_quantity, overdue
		 FROM tariff_quota_rows WHERE tenant_id = $1 ORDER BY quota_id`, tenantID)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("failed to load quota rows for tenant %s", tenantID).
			Mark(ierr.ErrDatabase)
	}

	t := &tariff.Tariff{
		ID:           row.ID,
		TenantID:     row.TenantID,
		State:        row.State,
		DueDate:      row.DueDate,
		DelayDueDate: row.DelayDueDate,
		LicenseDate:  row.LicenseDate,
		CustomerID:   row.CustomerID,
		Quotas:       []tariff.Quota{},
	}

	for _, q := range quotaRows {
		domainQuota := tariff.Quota{
			QuotaID:  q.QuotaID,
			Quantity: q.Quantity,
			IsWallet: q.IsWallet,
			DueDate:  q.DueDate,
		}
		if q.NextQuantity.Valid {
			n := int(q.NextQuantity.Int64)
			domainQuota.NextQuantity = &n
		}
		if q.Overdue {
			t.OverdueQuotas = append(t.OverdueQuotas, domainQuota)
		} else {
			t.Quotas = append(t.Quotas, domainQuota)
		}
	}
	return t, nil
}

func (r *tariffRepository) UpsertTariff(ctx context.Context, t *tariff.Tariff) error {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return ierr.WithError(err).
			WithHint("failed to begin tariff upsert").
			Mark(ierr.ErrDatabase)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO tariffs (tenant_id, id, state, due_date, delay_due_date, license_date, customer_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		 ON CONFLICT (tenant_id) DO UPDATE SET
		   id = EXCLUDED.id,
		   state = EXCLUDED.state,
		   due_date = EXCLUDED.due_date,
		   delay_due_date = EXCLUDED.delay_due_date,
		   license_date = EXCLUDED.license_date,
		   customer_id = EXCLUDED.customer_id,
		   updated_at = EXCLUDED.updated_at`,
		t.TenantID, t.ID, t.State, t.DueDate, t.DelayDueDate, t.LicenseDate, t.CustomerID, now)
	if err != nil {
		return r.mapWriteError(err, t.TenantID)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM tariff_quota_rows WHERE tenant_id = $1`, t.TenantID); err != nil {
		return r.mapWriteError(err, t.TenantID)
	}

	insert := func(q tariff.Quota, overdue bool) error {
		var next sql.NullInt64
		if q.NextQuantity != nil {
			next = sql.NullInt64{Int64: int64(*q.NextQuantity), Valid: true}
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO tariff_quota_rows (tenant_id, quota_id, quantity, is_wallet, due_date, next_quantity, overdue)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			t.TenantID, q.QuotaID, q.Quantity, q.IsWallet, q.DueDate, next, overdue)
		return err
	}

	for _, q := range t.Quotas {
		if err := insert(q, false); err != nil {
			return r.mapWriteError(err, t.TenantID)
		}
	}
	for _, q := range t.OverdueQuotas {
		if err := insert(q, true); err != nil {
			return r.mapWriteError(err, t.TenantID)
		}
	}

	if err := tx.Commit(); err != nil {
		return r.mapWriteError(err, t.TenantID)
	}
	return nil
}

func (r *tariffRepository) DeleteTariff(ctx context.Context, tenantID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return ierr.WithError(err).
			WithHint("failed to begin tariff delete").
			Mark(ierr.ErrDatabase)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM tariff_quota_rows WHERE tenant_id = $1`, tenantID); err != nil {
		return r.mapWriteError(err, tenantID)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM tariffs WHERE tenant_id = $1`, tenantID); err != nil {
		return r.mapWriteError(err, tenantID)
	}
	if err := tx.Commit(); err != nil {
		return r.mapWriteError(err, tenantID)
	}
	return nil
}

// mapWriteError surfaces serialization failures as version conflicts so the
// engine can treat a lost write race as "no change made".
func (r *tariffRepository) mapWriteError(err error, tenantID string) error {
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "40001" {
		return ierr.WithError(err).
			WithHintf("concurrent tariff write for tenant %s", tenantID).
			Mark(ierr.ErrVersionConflict)
	}
	return ierr.WithError(err).
		WithHintf("failed to write tariff for tenant %s", tenantID).
		Mark(ierr.ErrDatabase)
}
