package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/neomorfeo/dealflow/internal/domain"
)

// ResponsibleRepository implements domain.ResponsibleRepository using SQLite.
type ResponsibleRepository struct {
	db *sql.DB
}

func (r *ResponsibleRepository) List(ctx context.Context) ([]domain.Responsible, error) {
	return r.query(ctx, `SELECT id, name, active FROM responsibles ORDER BY name`)
}

func (r *ResponsibleRepository) ListActive(ctx context.Context) ([]domain.Responsible, error) {
	return r.query(ctx, `SELECT id, name, active FROM responsibles WHERE active = 1 ORDER BY name`)
}

// Save upserts a responsible for bootstrap and tests.
func (r *ResponsibleRepository) Save(ctx context.Context, resp domain.Responsible) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO responsibles (id, name, active) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, active = excluded.active`,
		resp.ID, resp.Name, boolInt(resp.Active),
	)
	if err != nil {
		return fmt.Errorf("upserting responsible: %w", err)
	}
	return nil
}

func (r *ResponsibleRepository) query(ctx context.Context, q string) ([]domain.Responsible, error) {
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("listing responsibles: %w", err)
	}
	defer rows.Close()

	var out []domain.Responsible
	for rows.Next() {
		var resp domain.Responsible
		var active int
		if err := rows.Scan(&resp.ID, &resp.Name, &active); err != nil {
			return nil, fmt.Errorf("scanning responsible row: %w", err)
		}
		resp.Active = active != 0
		out = append(out, resp)
	}
	return out, rows.Err()
}

var _ domain.ResponsibleRepository = (*ResponsibleRepository)(nil)
