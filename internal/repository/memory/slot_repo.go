package memory

import (
	"context"
	"sort"
	"time"

	"github.com/javendzk/Parqeer-smart-IoT-parking/internal/domain"
	"github.com/javendzk/Parqeer-smart-IoT-parking/internal/repository"
)

type SlotRepository struct {
	store *Store
}

func (r *SlotRepository) FindAll(ctx context.Context) ([]domain.Slot, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	slots := make([]domain.Slot, 0, len(r.store.slots))
	for _, slot := range r.store.slots {
		slots = append(slots, *slot)
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].SlotNumber < slots[j].SlotNumber })
	return slots, nil
}

func (r *SlotRepository) FindByID(ctx context.Context, id int) (*domain.Slot, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	slot, ok := r.store.slots[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneSlot(slot), nil
}

func (r *SlotRepository) FindByNumber(ctx context.Context, slotNumber int) (*domain.Slot, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, slot := range r.store.slots {
		if slot.SlotNumber == slotNumber {
			return cloneSlot(slot), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *SlotRepository) CountByStatus(ctx context.Context) (domain.SlotCounts, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var counts domain.SlotCounts
	for _, slot := range r.store.slots {
		switch slot.Status {
		case domain.SlotAvailable:
			counts.Available++
		case domain.SlotReserved:
			counts.Reserved++
		case domain.SlotOccupied:
			counts.Occupied++
		}
	}
	return counts, nil
}

func (r *SlotRepository) TransitionStatus(ctx context.Context, id int, from, to domain.SlotStatus) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	slot, ok := r.store.slots[id]
	if !ok {
		return repository.ErrNotFound
	}
	if slot.Status != from {
		return repository.ErrConflict
	}
	slot.Status = to
	slot.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *SlotRepository) ReserveFirstAvailable(ctx context.Context) (*domain.Slot, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var candidate *domain.Slot
	for _, slot := range r.store.slots {
		if slot.Status != domain.SlotAvailable {
			continue
		}
		if candidate == nil || slot.SlotNumber < candidate.SlotNumber {
			candidate = slot
		}
	}
	if candidate == nil {
		return nil, repository.ErrNotFound
	}
	candidate.Status = domain.SlotReserved
	candidate.UpdatedAt = time.Now().UTC()
	return cloneSlot(candidate), nil
}

func (r *SlotRepository) ForceStatus(ctx context.Context, id int, to domain.SlotStatus) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	slot, ok := r.store.slots[id]
	if !ok {
		return repository.ErrNotFound
	}
	slot.Status = to
	slot.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *SlotRepository) ReleaseBatch(ctx context.Context, ids []int) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	now := time.Now().UTC()
	for _, id := range ids {
		if slot, ok := r.store.slots[id]; ok {
			slot.Status = domain.SlotAvailable
			slot.UpdatedAt = now
		}
	}
	return nil
}
