package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/javendzk/Parqeer-smart-IoT-parking/internal/domain"
	"github.com/javendzk/Parqeer-smart-IoT-parking/internal/repository"
)

type pgVoucherRepository struct {
	db *sql.DB
}

func NewPgVoucherRepository(db *sql.DB) repository.VoucherRepository {
	return &pgVoucherRepository{db: db}
}

func (r *pgVoucherRepository) Create(ctx context.Context, v *domain.Voucher) (*domain.Voucher, error) {
	query := `INSERT INTO vouchers (code, slot_id, status, expires_at, created_at, updated_at)
	           VALUES ($1, $2, $3, $4, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	           RETURNING id, created_at, updated_at`
	if v.Status == "" {
		v.Status = domain.VoucherUnused
	}
	err := r.db.QueryRowContext(ctx, query, v.Code, v.SlotID, v.Status, v.ExpiresAt).
		Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		// vouchers_code_active_key is a partial unique index over codes of
		// non-expired vouchers; expired codes may be reissued.
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return nil, fmt.Errorf("%w: voucher code '%s' already active", repository.ErrDuplicateEntry, v.Code)
		}
		return nil, fmt.Errorf("VoucherRepository.Create: %w", err)
	}
	v.CreatedAt = v.CreatedAt.In(time.UTC)
	v.UpdatedAt = v.UpdatedAt.In(time.UTC)
	return v, nil
}

func (r *pgVoucherRepository) FindByCode(ctx context.Context, code string) (*domain.VoucherDetail, error) {
	detail := &domain.VoucherDetail{}
	query := `SELECT v.id, v.code, v.slot_id, v.status, v.expires_at, v.used_at, v.created_at, v.updated_at,
	                 s.slot_number, s.status
	           FROM vouchers v JOIN slots s ON v.slot_id = s.id
	           WHERE v.code = $1
	           ORDER BY v.created_at DESC LIMIT 1`
	var usedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, query, code).Scan(
		&detail.ID, &detail.Code, &detail.SlotID, &detail.Status, &detail.ExpiresAt,
		&usedAt, &detail.CreatedAt, &detail.UpdatedAt,
		&detail.SlotNumber, &detail.SlotStatus,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("VoucherRepository.FindByCode: %w", err)
	}
	if usedAt.Valid {
		detail.UsedAt.SetValid(usedAt.Time.In(time.UTC))
	}
	detail.ExpiresAt = detail.ExpiresAt.In(time.UTC)
	detail.CreatedAt = detail.CreatedAt.In(time.UTC)
	detail.UpdatedAt = detail.UpdatedAt.In(time.UTC)
	return detail, nil
}

func (r *pgVoucherRepository) MarkUsed(ctx context.Context, id int) error {
	query := `UPDATE vouchers SET status = 'used', used_at = now(), updated_at = now()
	           WHERE id = $1 AND status = 'unused'`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("VoucherRepository.MarkUsed: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("VoucherRepository.MarkUsed (checking rows affected): %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrConflict
	}
	return nil
}

func (r *pgVoucherRepository) SetStatus(ctx context.Context, id int, status domain.VoucherStatus) error {
	query := `UPDATE vouchers SET status = $1, updated_at = now() WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("VoucherRepository.SetStatus: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("VoucherRepository.SetStatus (checking rows affected): %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *pgVoucherRepository) ExpireOpenBySlot(ctx context.Context, slotID int) error {
	query := `UPDATE vouchers SET status = 'expired', updated_at = now()
	           WHERE slot_id = $1 AND status = 'unused'`
	if _, err := r.db.ExecContext(ctx, query, slotID); err != nil {
		return fmt.Errorf("VoucherRepository.ExpireOpenBySlot: %w", err)
	}
	return nil
}

func (r *pgVoucherRepository) FindExpiredUnused(ctx context.Context, now time.Time) ([]repository.ExpiredReservation, error) {
	query := `SELECT v.id, v.slot_id, s.slot_number, COALESCE(t.id, 0)
	           FROM vouchers v
	           JOIN slots s ON s.id = v.slot_id
	           LEFT JOIN transactions t ON t.voucher_id = v.id
	           WHERE v.status = 'unused'
	             AND (t.status IS NULL OR t.status = 'pending')
	             AND v.expires_at < $1`
	rows, err := r.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("VoucherRepository.FindExpiredUnused: %w", err)
	}
	defer rows.Close()

	var expired []repository.ExpiredReservation
	for rows.Next() {
		var row repository.ExpiredReservation
		if err := rows.Scan(&row.VoucherID, &row.SlotID, &row.SlotNumber, &row.TransactionID); err != nil {
			return nil, fmt.Errorf("VoucherRepository.FindExpiredUnused (scanning row): %w", err)
		}
		expired = append(expired, row)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("VoucherRepository.FindExpiredUnused (rows error): %w", err)
	}
	return expired, nil
}

func (r *pgVoucherRepository) ExpireBatch(ctx context.Context, ids []int) error {
	if len(ids) == 0 {
		return nil
	}
	query := `UPDATE vouchers SET status = 'expired', updated_at = now() WHERE id = ANY($1::int[])`
	if _, err := r.db.ExecContext(ctx, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("VoucherRepository.ExpireBatch: %w", err)
	}
	return nil
}
