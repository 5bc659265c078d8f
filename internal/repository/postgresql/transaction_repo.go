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

type pgTransactionRepository struct {
	db *sql.DB
}

func NewPgTransactionRepository(db *sql.DB) repository.TransactionRepository {
	return &pgTransactionRepository{db: db}
}

const transactionDetailColumns = `t.id, t.voucher_id, t.amount, t.status, t.payment_token, t.created_at, t.updated_at,
	                 v.code, v.status, v.slot_id, v.expires_at, s.slot_number`

func (r *pgTransactionRepository) scanDetail(row interface{ Scan(...any) error }) (*domain.TransactionDetail, error) {
	detail := &domain.TransactionDetail{}
	err := row.Scan(
		&detail.ID, &detail.VoucherID, &detail.Amount, &detail.Status, &detail.PaymentToken,
		&detail.CreatedAt, &detail.UpdatedAt,
		&detail.VoucherCode, &detail.VoucherStatus, &detail.VoucherSlotID, &detail.VoucherExpiresAt,
		&detail.SlotNumber,
	)
	if err != nil {
		return nil, err
	}
	detail.CreatedAt = detail.CreatedAt.In(time.UTC)
	detail.UpdatedAt = detail.UpdatedAt.In(time.UTC)
	detail.VoucherExpiresAt = detail.VoucherExpiresAt.In(time.UTC)
	return detail, nil
}

func (r *pgTransactionRepository) Create(ctx context.Context, t *domain.Transaction) (*domain.Transaction, error) {
	query := `INSERT INTO transactions (voucher_id, amount, status, payment_token, created_at, updated_at)
	           VALUES ($1, $2, $3, $4, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	           RETURNING id, created_at, updated_at`
	if t.Status == "" {
		t.Status = domain.TransactionPending
	}
	err := r.db.QueryRowContext(ctx, query, t.VoucherID, t.Amount, t.Status, t.PaymentToken).
		Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return nil, fmt.Errorf("%w: voucher %d already has a transaction", repository.ErrDuplicateEntry, t.VoucherID)
		}
		return nil, fmt.Errorf("TransactionRepository.Create: %w", err)
	}
	t.CreatedAt = t.CreatedAt.In(time.UTC)
	t.UpdatedAt = t.UpdatedAt.In(time.UTC)
	return t, nil
}

func (r *pgTransactionRepository) FindByID(ctx context.Context, id int) (*domain.TransactionDetail, error) {
	query := `SELECT ` + transactionDetailColumns + `
	           FROM transactions t
	           JOIN vouchers v ON t.voucher_id = v.id
	           JOIN slots s ON v.slot_id = s.id
	           WHERE t.id = $1`
	detail, err := r.scanDetail(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("TransactionRepository.FindByID: %w", err)
	}
	return detail, nil
}

func (r *pgTransactionRepository) FindByToken(ctx context.Context, paymentToken string) (*domain.TransactionDetail, error) {
	query := `SELECT ` + transactionDetailColumns + `
	           FROM transactions t
	           JOIN vouchers v ON t.voucher_id = v.id
	           JOIN slots s ON v.slot_id = s.id
	           WHERE t.payment_token = $1`
	detail, err := r.scanDetail(r.db.QueryRowContext(ctx, query, paymentToken))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("TransactionRepository.FindByToken: %w", err)
	}
	return detail, nil
}

func (r *pgTransactionRepository) StatusByVoucherID(ctx context.Context, voucherID int) (domain.TransactionStatus, error) {
	var status domain.TransactionStatus
	query := `SELECT status FROM transactions WHERE voucher_id = $1`
	err := r.db.QueryRowContext(ctx, query, voucherID).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", repository.ErrNotFound
		}
		return "", fmt.Errorf("TransactionRepository.StatusByVoucherID: %w", err)
	}
	return status, nil
}

func (r *pgTransactionRepository) MarkPaid(ctx context.Context, id int) error {
	query := `UPDATE transactions SET status = 'paid', updated_at = now()
	           WHERE id = $1 AND status = 'pending'`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("TransactionRepository.MarkPaid: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("TransactionRepository.MarkPaid (checking rows affected): %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrConflict
	}
	return nil
}

func (r *pgTransactionRepository) SetStatus(ctx context.Context, id int, status domain.TransactionStatus) error {
	query := `UPDATE transactions SET status = $1, updated_at = now() WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("TransactionRepository.SetStatus: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("TransactionRepository.SetStatus (checking rows affected): %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *pgTransactionRepository) FindRecent(ctx context.Context, limit int) ([]domain.TransactionDetail, error) {
	query := `SELECT ` + transactionDetailColumns + `
	           FROM transactions t
	           JOIN vouchers v ON t.voucher_id = v.id
	           JOIN slots s ON v.slot_id = s.id
	           ORDER BY t.updated_at DESC LIMIT $1`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("TransactionRepository.FindRecent: %w", err)
	}
	defer rows.Close()

	var details []domain.TransactionDetail
	for rows.Next() {
		detail, err := r.scanDetail(rows)
		if err != nil {
			return nil, fmt.Errorf("TransactionRepository.FindRecent (scanning row): %w", err)
		}
		details = append(details, *detail)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("TransactionRepository.FindRecent (rows error): %w", err)
	}
	return details, nil
}

func (r *pgTransactionRepository) ExpireBatch(ctx context.Context, ids []int) error {
	if len(ids) == 0 {
		return nil
	}
	query := `UPDATE transactions SET status = 'expired', updated_at = now() WHERE id = ANY($1::int[])`
	if _, err := r.db.ExecContext(ctx, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("TransactionRepository.ExpireBatch: %w", err)
	}
	return nil
}
