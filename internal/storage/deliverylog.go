package storage

import (
	"sync"

	"github.com/example/carwatch/internal/models"
)

// DeliveryLog records notification handoffs for operational audit. Writes
// are best-effort; a failed audit write never blocks or retries a delivery.
type DeliveryLog interface {
	Record(d *models.Delivery) error
}

type MemoryLog struct {
	mu         sync.RWMutex
	deliveries []models.Delivery
}

func NewMemoryLog() *MemoryLog {
	return &MemoryLog{}
}

func (m *MemoryLog) Record(d *models.Delivery) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deliveries = append(m.deliveries, *d)
	return nil
}

// All returns a copy of the recorded deliveries, oldest first.
func (m *MemoryLog) All() []models.Delivery {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.Delivery(nil), m.deliveries...)
}
