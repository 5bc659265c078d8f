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

type pgGateSessionRepository struct {
	db *sql.DB
}

func NewPgGateSessionRepository(db *sql.DB) repository.GateSessionRepository {
	return &pgGateSessionRepository{db: db}
}

func scanGateSession(row interface{ Scan(...any) error }, s *domain.GateSession) error {
	var completedAt sql.NullTime
	err := row.Scan(&s.ID, &s.VoucherID, &s.SlotID, &s.SlotNumber, &s.Status,
		&s.BuzzerActive, &s.CreatedAt, &s.UpdatedAt, &completedAt)
	if err != nil {
		return err
	}
	if completedAt.Valid {
		s.CompletedAt.SetValid(completedAt.Time.In(time.UTC))
	}
	s.CreatedAt = s.CreatedAt.In(time.UTC)
	s.UpdatedAt = s.UpdatedAt.In(time.UTC)
	return nil
}

// Create relies on gate_sessions_single_entering_key, a partial unique index
// over status = 'entering'. Two concurrent validations both reach the insert,
// but only one commits; the loser gets ErrConflict.
func (r *pgGateSessionRepository) Create(ctx context.Context, s *domain.GateSession) (*domain.GateSession, error) {
	query := `INSERT INTO gate_sessions (voucher_id, slot_id, slot_number, status, buzzer_active, created_at, updated_at)
	           VALUES ($1, $2, $3, 'entering', FALSE, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	           RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, s.VoucherID, s.SlotID, s.SlotNumber).
		Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return nil, fmt.Errorf("%w: another gate session is entering", repository.ErrConflict)
		}
		return nil, fmt.Errorf("GateSessionRepository.Create: %w", err)
	}
	s.Status = domain.GateSessionEntering
	s.BuzzerActive = false
	s.CreatedAt = s.CreatedAt.In(time.UTC)
	s.UpdatedAt = s.UpdatedAt.In(time.UTC)
	return s, nil
}

func (r *pgGateSessionRepository) FindActive(ctx context.Context) (*domain.GateSession, error) {
	session := &domain.GateSession{}
	query := `SELECT id, voucher_id, slot_id, slot_number, status, buzzer_active, created_at, updated_at, completed_at
	           FROM gate_sessions WHERE status = 'entering'
	           ORDER BY created_at ASC LIMIT 1`
	err := scanGateSession(r.db.QueryRowContext(ctx, query), session)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNoActiveSession
		}
		return nil, fmt.Errorf("GateSessionRepository.FindActive: %w", err)
	}
	return session, nil
}

func (r *pgGateSessionRepository) Complete(ctx context.Context, id int) error {
	query := `UPDATE gate_sessions
	           SET status = 'parked', buzzer_active = FALSE, completed_at = now(), updated_at = now()
	           WHERE id = $1 AND status = 'entering'`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("GateSessionRepository.Complete: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("GateSessionRepository.Complete (checking rows affected): %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrConflict
	}
	return nil
}

func (r *pgGateSessionRepository) Abort(ctx context.Context, id int) error {
	query := `UPDATE gate_sessions
	           SET status = 'aborted', buzzer_active = FALSE, completed_at = now(), updated_at = now()
	           WHERE id = $1 AND status = 'entering'`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("GateSessionRepository.Abort: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("GateSessionRepository.Abort (checking rows affected): %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrConflict
	}
	return nil
}

func (r *pgGateSessionRepository) SetBuzzer(ctx context.Context, id int, active bool) (bool, error) {
	query := `UPDATE gate_sessions SET buzzer_active = $1, updated_at = now()
	           WHERE id = $2 AND buzzer_active = $3`
	result, err := r.db.ExecContext(ctx, query, active, id, !active)
	if err != nil {
		return false, fmt.Errorf("GateSessionRepository.SetBuzzer: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("GateSessionRepository.SetBuzzer (checking rows affected): %w", err)
	}
	return rowsAffected > 0, nil
}

func (r *pgGateSessionRepository) FindEnteringOlderThan(ctx context.Context, cutoff time.Time) ([]domain.GateSession, error) {
	query := `SELECT id, voucher_id, slot_id, slot_number, status, buzzer_active, created_at, updated_at, completed_at
	           FROM gate_sessions WHERE status = 'entering' AND created_at < $1`
	rows, err := r.db.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("GateSessionRepository.FindEnteringOlderThan: %w", err)
	}
	defer rows.Close()

	var sessions []domain.GateSession
	for rows.Next() {
		var session domain.GateSession
		if err := scanGateSession(rows, &session); err != nil {
			return nil, fmt.Errorf("GateSessionRepository.FindEnteringOlderThan (scanning row): %w", err)
		}
		sessions = append(sessions, session)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("GateSessionRepository.FindEnteringOlderThan (rows error): %w", err)
	}
	return sessions, nil
}
