package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/neomorfeo/dealflow/internal/domain"
)

// FunnelRepository implements domain.FunnelRepository using SQLite.
// Funnel definitions are managed outside the pipeline engine; Save exists
// for bootstrap and tests.
type FunnelRepository struct {
	db *sql.DB
}

func (r *FunnelRepository) ActiveFunnel(ctx context.Context) (domain.Funnel, error) {
	f, err := r.scanFunnel(r.db.QueryRowContext(ctx,
		`SELECT id, name, active FROM funnels WHERE active = 1 LIMIT 1`,
	))
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Funnel{}, domain.ErrNoActiveFunnel
		}
		return domain.Funnel{}, err
	}
	return r.withStages(ctx, f)
}

func (r *FunnelRepository) GetByID(ctx context.Context, id string) (domain.Funnel, error) {
	f, err := r.scanFunnel(r.db.QueryRowContext(ctx,
		`SELECT id, name, active FROM funnels WHERE id = ?`, id,
	))
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Funnel{}, domain.ErrFunnelNotFound
		}
		return domain.Funnel{}, err
	}
	return r.withStages(ctx, f)
}

func (r *FunnelRepository) List(ctx context.Context) ([]domain.Funnel, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, active FROM funnels ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing funnels: %w", err)
	}
	defer rows.Close()

	var funnels []domain.Funnel
	for rows.Next() {
		var f domain.Funnel
		var active int
		if err := rows.Scan(&f.ID, &f.Name, &active); err != nil {
			return nil, fmt.Errorf("scanning funnel row: %w", err)
		}
		f.Active = active != 0
		funnels = append(funnels, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range funnels {
		funnels[i], err = r.withStages(ctx, funnels[i])
		if err != nil {
			return nil, err
		}
	}

	return funnels, nil
}

// Save upserts a funnel and replaces its stages.
func (r *FunnelRepository) Save(ctx context.Context, f domain.Funnel) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO funnels (id, name, active) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, active = excluded.active`,
		f.ID, f.Name, boolInt(f.Active),
	); err != nil {
		return fmt.Errorf("upserting funnel: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM stages WHERE funnel_id = ?`, f.ID); err != nil {
		return fmt.Errorf("clearing stages: %w", err)
	}

	for _, s := range f.Stages {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO stages (id, funnel_id, name, ord, won_stage, lost_stage, required_fields)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			s.ID, f.ID, s.Name, s.Order, boolInt(s.WonStage), boolInt(s.LostStage),
			joinList(s.RequiredFields),
		); err != nil {
			return fmt.Errorf("inserting stage %q: %w", s.ID, err)
		}
	}

	return tx.Commit()
}

func (r *FunnelRepository) scanFunnel(row *sql.Row) (domain.Funnel, error) {
	var f domain.Funnel
	var active int
	if err := row.Scan(&f.ID, &f.Name, &active); err != nil {
		return domain.Funnel{}, err
	}
	f.Active = active != 0
	return f, nil
}

func (r *FunnelRepository) withStages(ctx context.Context, f domain.Funnel) (domain.Funnel, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, ord, won_stage, lost_stage, required_fields
		 FROM stages WHERE funnel_id = ? ORDER BY ord, rowid`, f.ID,
	)
	if err != nil {
		return domain.Funnel{}, fmt.Errorf("loading stages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s domain.Stage
		var won, lost int
		var required string
		if err := rows.Scan(&s.ID, &s.Name, &s.Order, &won, &lost, &required); err != nil {
			return domain.Funnel{}, fmt.Errorf("scanning stage row: %w", err)
		}
		s.WonStage = won != 0
		s.LostStage = lost != 0
		s.RequiredFields = splitList(required)
		f.Stages = append(f.Stages, s)
	}

	return f, rows.Err()
}

var _ domain.FunnelRepository = (*FunnelRepository)(nil)

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
