package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/neomorfeo/dealflow/internal/domain"
)

// DealRepository implements domain.DealRepository using SQLite.
type DealRepository struct {
	db *sql.DB
}

const dealColumns = `id, title, value, currency, probability, stage_id, status, assigned_to,
	 contact_id, company_id, service_ids, expected_close_date, closed_at, close_reason,
	 created_at, updated_at`

func (r *DealRepository) Create(ctx context.Context, d domain.Deal) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO deals (`+dealColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Title, d.Value, d.Currency, d.Probability, d.StageID, string(d.Status),
		d.AssignedTo, d.ContactID, d.CompanyID, joinList(d.ServiceIDs),
		nullTime(d.ExpectedCloseDate), nullTime(d.ClosedAt), d.CloseReason,
		d.CreatedAt.Format(timeFormat), d.UpdatedAt.Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("inserting deal: %w", err)
	}
	return nil
}

func (r *DealRepository) GetByID(ctx context.Context, id string) (domain.Deal, error) {
	return r.scanDeal(r.db.QueryRowContext(ctx,
		`SELECT `+dealColumns+` FROM deals WHERE id = ?`, id,
	))
}

func (r *DealRepository) List(ctx context.Context) ([]domain.Deal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+dealColumns+` FROM deals ORDER BY created_at DESC, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing deals: %w", err)
	}
	defer rows.Close()

	var deals []domain.Deal
	for rows.Next() {
		d, err := r.scanDealFromRows(rows)
		if err != nil {
			return nil, err
		}
		deals = append(deals, d)
	}

	return deals, rows.Err()
}

func (r *DealRepository) Update(ctx context.Context, d domain.Deal) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE deals SET title = ?, value = ?, currency = ?, probability = ?, stage_id = ?,
		 status = ?, assigned_to = ?, contact_id = ?, company_id = ?, service_ids = ?,
		 expected_close_date = ?, closed_at = ?, close_reason = ?, updated_at = ?
		 WHERE id = ?`,
		d.Title, d.Value, d.Currency, d.Probability, d.StageID, string(d.Status),
		d.AssignedTo, d.ContactID, d.CompanyID, joinList(d.ServiceIDs),
		nullTime(d.ExpectedCloseDate), nullTime(d.ClosedAt), d.CloseReason,
		d.UpdatedAt.Format(timeFormat), d.ID,
	)
	if err != nil {
		return fmt.Errorf("updating deal: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrDealNotFound
	}

	return nil
}

func (r *DealRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM deals WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting deal: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrDealNotFound
	}

	return nil
}

// scanDeal scans a single row from QueryRow into a domain.Deal.
func (r *DealRepository) scanDeal(row *sql.Row) (domain.Deal, error) {
	d, err := scanDealFields(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Deal{}, domain.ErrDealNotFound
		}
		return domain.Deal{}, fmt.Errorf("scanning deal: %w", err)
	}
	return d, nil
}

// scanDealFromRows scans a single row from Rows (used in List).
func (r *DealRepository) scanDealFromRows(rows *sql.Rows) (domain.Deal, error) {
	d, err := scanDealFields(rows.Scan)
	if err != nil {
		return domain.Deal{}, fmt.Errorf("scanning deal row: %w", err)
	}
	return d, nil
}

func scanDealFields(scan func(dest ...any) error) (domain.Deal, error) {
	var d domain.Deal
	var status, serviceIDs, createdAt, updatedAt string
	var expectedClose, closedAt sql.NullString

	err := scan(&d.ID, &d.Title, &d.Value, &d.Currency, &d.Probability, &d.StageID, &status,
		&d.AssignedTo, &d.ContactID, &d.CompanyID, &serviceIDs, &expectedClose, &closedAt,
		&d.CloseReason, &createdAt, &updatedAt)
	if err != nil {
		return domain.Deal{}, err
	}

	d.Status = domain.Status(status)
	d.ServiceIDs = splitList(serviceIDs)
	d.ExpectedCloseDate = parseNullTime(expectedClose)
	d.ClosedAt = parseNullTime(closedAt)
	d.CreatedAt, _ = time.Parse(timeFormat, createdAt)
	d.UpdatedAt, _ = time.Parse(timeFormat, updatedAt)

	return d, nil
}

var _ domain.DealRepository = (*DealRepository)(nil)

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(timeFormat)
}

func parseNullTime(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t, err := time.Parse(timeFormat, s.String)
	if err != nil {
		return nil
	}
	return &t
}
