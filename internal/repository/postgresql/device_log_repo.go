package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/javendzk/Parqeer-smart-IoT-parking/internal/domain"
	"github.com/javendzk/Parqeer-smart-IoT-parking/internal/repository"
)

type pgDeviceLogRepository struct {
	db *sql.DB
}

func NewPgDeviceLogRepository(db *sql.DB) repository.DeviceLogRepository {
	return &pgDeviceLogRepository{db: db}
}

func (r *pgDeviceLogRepository) Create(ctx context.Context, entry *domain.DeviceLog) error {
	query := `INSERT INTO device_logs (device_id, type, payload, created_at)
	           VALUES ($1, $2, $3, CURRENT_TIMESTAMP)
	           RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query, entry.DeviceID, entry.Type, entry.Payload).
		Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("DeviceLogRepository.Create: %w", err)
	}
	entry.CreatedAt = entry.CreatedAt.In(time.UTC)
	return nil
}

func (r *pgDeviceLogRepository) FindRecent(ctx context.Context, limit int) ([]domain.DeviceLog, error) {
	query := `SELECT id, device_id, type, payload, created_at
	           FROM device_logs ORDER BY created_at DESC LIMIT $1`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("DeviceLogRepository.FindRecent: %w", err)
	}
	defer rows.Close()

	var entries []domain.DeviceLog
	for rows.Next() {
		var entry domain.DeviceLog
		var payload []byte
		if err := rows.Scan(&entry.ID, &entry.DeviceID, &entry.Type, &payload, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("DeviceLogRepository.FindRecent (scanning row): %w", err)
		}
		entry.Payload = payload
		entry.CreatedAt = entry.CreatedAt.In(time.UTC)
		entries = append(entries, entry)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("DeviceLogRepository.FindRecent (rows error): %w", err)
	}
	return entries, nil
}
