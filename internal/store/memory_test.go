package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.vengeful.eu/nacorid/breezspark/internal/lightning"
	"git.vengeful.eu/nacorid/breezspark/internal/normalize"
)

func TestMemorySettings(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	got, err := m.GetSettings(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, m.SetSettings(ctx, "s1", Settings{Mnemonic: "m", PaymentKey: "k"}))
	id, st, err := m.GetSettingsByPaymentKey(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "s1", id)
	assert.Equal(t, "m", st.Mnemonic)

	all, err := m.ListSettings(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, m.DeleteSettings(ctx, "s1"))
	got, err = m.GetSettings(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryPayments(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	rec := PaymentRecord{StoreID: "s1", Payment: normalize.Payment{ID: "p1", Status: lightning.PaymentStatusPending, FeeSat: 2}}
	require.NoError(t, m.SavePayment(ctx, rec))
	require.Error(t, m.SavePayment(ctx, PaymentRecord{StoreID: "s1"}))
	require.Error(t, m.SavePayment(ctx, PaymentRecord{StoreID: "s1", Payment: normalize.Payment{ID: "neg", FeeSat: -1}}))

	require.NoError(t, m.UpdatePaymentStatus(ctx, "s1", "p1", lightning.PaymentStatusCompleted, 1))
	require.NoError(t, m.UpdatePaymentStatus(ctx, "s1", "unknown", lightning.PaymentStatusCompleted, 1))

	found, err := m.LookupPayments(ctx, "s1", []string{"p1", "unknown"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, lightning.PaymentStatusCompleted, found["p1"].Status)
	assert.Equal(t, int64(2), found["p1"].FeeSat)

	found, err = m.LookupPayments(ctx, "s2", []string{"p1"})
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestMemoryFail(t *testing.T) {
	m := NewMemory()
	m.Fail = errors.New("down")

	_, err := m.LookupPayments(context.Background(), "s1", []string{"p1"})
	assert.EqualError(t, err, "down")
	assert.EqualError(t, m.SetSettings(context.Background(), "s1", Settings{}), "down")
}
