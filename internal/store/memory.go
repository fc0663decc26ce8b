package store

import (
	"context"
	"fmt"
	"sync"

	"git.vengeful.eu/nacorid/breezspark/internal/lightning"
	"git.vengeful.eu/nacorid/breezspark/internal/normalize"
)

// Memory keeps settings and payment records in process memory. It mirrors
// Storage for single-instance setups and tests.
type Memory struct {
	mu       sync.Mutex
	settings map[string]Settings
	payments map[string]map[string]PaymentRecord
	// Fail, when set, is returned by every call.
	Fail error
}

func NewMemory() *Memory {
	return &Memory{
		settings: map[string]Settings{},
		payments: map[string]map[string]PaymentRecord{},
	}
}

func (m *Memory) GetSettings(ctx context.Context, storeID string) (*Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return nil, m.Fail
	}
	st, ok := m.settings[storeID]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

func (m *Memory) GetSettingsByPaymentKey(ctx context.Context, paymentKey string) (string, *Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return "", nil, m.Fail
	}
	for id, st := range m.settings {
		if st.PaymentKey == paymentKey {
			return id, &st, nil
		}
	}
	return "", nil, nil
}

func (m *Memory) ListSettings(ctx context.Context) (map[string]Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return nil, m.Fail
	}
	out := make(map[string]Settings, len(m.settings))
	for id, st := range m.settings {
		out[id] = st
	}
	return out, nil
}

func (m *Memory) SetSettings(ctx context.Context, storeID string, st Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	m.settings[storeID] = st
	return nil
}

func (m *Memory) DeleteSettings(ctx context.Context, storeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	delete(m.settings, storeID)
	return nil
}

func (m *Memory) SavePayment(ctx context.Context, rec PaymentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	if rec.ID == "" {
		return fmt.Errorf("payment record needs an id")
	}
	if rec.AmountSat < 0 || rec.FeeSat < 0 {
		return fmt.Errorf("payment %s: negative amount or fee", rec.ID)
	}
	if m.payments[rec.StoreID] == nil {
		m.payments[rec.StoreID] = map[string]PaymentRecord{}
	}
	m.payments[rec.StoreID][rec.ID] = rec
	return nil
}

func (m *Memory) UpdatePaymentStatus(ctx context.Context, storeID, paymentID string, status lightning.PaymentStatus, feeSat int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	rec, ok := m.payments[storeID][paymentID]
	if !ok {
		return nil
	}
	rec.Status = status
	if feeSat > rec.FeeSat {
		rec.FeeSat = feeSat
	}
	m.payments[storeID][paymentID] = rec
	return nil
}

func (m *Memory) LookupPayments(ctx context.Context, storeID string, ids []string) (normalize.Records, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return nil, m.Fail
	}
	out := normalize.Records{}
	for _, id := range ids {
		if rec, ok := m.payments[storeID][id]; ok {
			out[id] = rec.Payment
		}
	}
	return out, nil
}

// Payment returns a recorded payment.
func (m *Memory) Payment(storeID, paymentID string) (PaymentRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.payments[storeID][paymentID]
	return rec, ok
}
