package memory

import (
	"context"
	"time"

	"github.com/javendzk/Parqeer-smart-IoT-parking/internal/domain"
)

type DeviceLogRepository struct {
	store *Store
}

func (r *DeviceLogRepository) Create(ctx context.Context, entry *domain.DeviceLog) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	entry.ID = r.store.nextLogID
	r.store.nextLogID++
	entry.CreatedAt = time.Now().UTC()
	r.store.logs = append(r.store.logs, *entry)
	return nil
}

func (r *DeviceLogRepository) FindRecent(ctx context.Context, limit int) ([]domain.DeviceLog, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	n := len(r.store.logs)
	if limit > n {
		limit = n
	}
	entries := make([]domain.DeviceLog, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		entries = append(entries, r.store.logs[i])
	}
	return entries, nil
}
