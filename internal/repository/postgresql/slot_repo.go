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

type pgSlotRepository struct {
	db *sql.DB
}

func NewPgSlotRepository(db *sql.DB) repository.SlotRepository {
	return &pgSlotRepository{db: db}
}

func scanSlot(row interface{ Scan(...any) error }, slot *domain.Slot) error {
	if err := row.Scan(&slot.ID, &slot.SlotNumber, &slot.Status, &slot.CreatedAt, &slot.UpdatedAt); err != nil {
		return err
	}
	slot.CreatedAt = slot.CreatedAt.In(time.UTC)
	slot.UpdatedAt = slot.UpdatedAt.In(time.UTC)
	return nil
}

func (r *pgSlotRepository) FindAll(ctx context.Context) ([]domain.Slot, error) {
	query := `SELECT id, slot_number, status, created_at, updated_at FROM slots ORDER BY slot_number ASC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("SlotRepository.FindAll: %w", err)
	}
	defer rows.Close()

	var slots []domain.Slot
	for rows.Next() {
		var slot domain.Slot
		if err := scanSlot(rows, &slot); err != nil {
			return nil, fmt.Errorf("SlotRepository.FindAll (scanning row): %w", err)
		}
		slots = append(slots, slot)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("SlotRepository.FindAll (rows error): %w", err)
	}
	return slots, nil
}

func (r *pgSlotRepository) FindByID(ctx context.Context, id int) (*domain.Slot, error) {
	slot := &domain.Slot{}
	query := `SELECT id, slot_number, status, created_at, updated_at FROM slots WHERE id = $1`
	err := scanSlot(r.db.QueryRowContext(ctx, query, id), slot)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("SlotRepository.FindByID: %w", err)
	}
	return slot, nil
}

func (r *pgSlotRepository) FindByNumber(ctx context.Context, slotNumber int) (*domain.Slot, error) {
	slot := &domain.Slot{}
	query := `SELECT id, slot_number, status, created_at, updated_at FROM slots WHERE slot_number = $1`
	err := scanSlot(r.db.QueryRowContext(ctx, query, slotNumber), slot)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("SlotRepository.FindByNumber: %w", err)
	}
	return slot, nil
}

func (r *pgSlotRepository) CountByStatus(ctx context.Context) (domain.SlotCounts, error) {
	var counts domain.SlotCounts
	query := `SELECT status, COUNT(*)::INT FROM slots GROUP BY status`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return counts, fmt.Errorf("SlotRepository.CountByStatus: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status domain.SlotStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return counts, fmt.Errorf("SlotRepository.CountByStatus (scanning row): %w", err)
		}
		switch status {
		case domain.SlotAvailable:
			counts.Available = count
		case domain.SlotReserved:
			counts.Reserved = count
		case domain.SlotOccupied:
			counts.Occupied = count
		}
	}
	if err = rows.Err(); err != nil {
		return counts, fmt.Errorf("SlotRepository.CountByStatus (rows error): %w", err)
	}
	return counts, nil
}

// TransitionStatus is the only mutating path handlers use: the WHERE clause
// carries the expected current status, so a stale caller loses cleanly
// instead of overwriting a concurrent transition.
func (r *pgSlotRepository) TransitionStatus(ctx context.Context, id int, from, to domain.SlotStatus) error {
	query := `UPDATE slots SET status = $1, updated_at = now() WHERE id = $2 AND status = $3`
	result, err := r.db.ExecContext(ctx, query, to, id, from)
	if err != nil {
		return fmt.Errorf("SlotRepository.TransitionStatus: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("SlotRepository.TransitionStatus (checking rows affected): %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrConflict
	}
	return nil
}

func (r *pgSlotRepository) ReserveFirstAvailable(ctx context.Context) (*domain.Slot, error) {
	slot := &domain.Slot{}
	query := `UPDATE slots SET status = 'reserved', updated_at = now()
	           WHERE id = (
	               SELECT id FROM slots WHERE status = 'available'
	               ORDER BY slot_number ASC LIMIT 1
	               FOR UPDATE SKIP LOCKED
	           )
	           RETURNING id, slot_number, status, created_at, updated_at`
	err := scanSlot(r.db.QueryRowContext(ctx, query), slot)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("SlotRepository.ReserveFirstAvailable: %w", err)
	}
	return slot, nil
}

func (r *pgSlotRepository) ForceStatus(ctx context.Context, id int, to domain.SlotStatus) error {
	query := `UPDATE slots SET status = $1, updated_at = now() WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, to, id)
	if err != nil {
		return fmt.Errorf("SlotRepository.ForceStatus: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("SlotRepository.ForceStatus (checking rows affected): %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *pgSlotRepository) ReleaseBatch(ctx context.Context, ids []int) error {
	if len(ids) == 0 {
		return nil
	}
	query := `UPDATE slots SET status = 'available', updated_at = now() WHERE id = ANY($1::int[])`
	if _, err := r.db.ExecContext(ctx, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("SlotRepository.ReleaseBatch: %w", err)
	}
	return nil
}
