package store_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.vengeful.eu/nacorid/breezspark/internal/lightning"
	"git.vengeful.eu/nacorid/breezspark/internal/normalize"
	"git.vengeful.eu/nacorid/breezspark/internal/store"
)

// setupStore connects to TEST_POSTGRESQL_DATABASE, e.g.
// postgres://breezspark@/breezspark_test?host=/var/run/postgresql
func setupStore(t *testing.T) *store.Storage {
	t.Helper()
	url := os.Getenv("TEST_POSTGRESQL_DATABASE")
	if url == "" {
		t.Skip("TEST_POSTGRESQL_DATABASE not set")
	}

	st, err := store.Init(url)
	require.NoError(t, err)

	t.Cleanup(func() {
		for _, table := range []string{"breezspark_settings", "breezspark_payments"} {
			if _, err := st.DB.Exec("DROP TABLE IF EXISTS " + table + " CASCADE"); err != nil {
				t.Logf("Warning: Failed to cleanup table %s: %v", table, err)
			}
		}
		st.Close()
	})
	return st
}

func TestSettingsRoundTrip(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()

	got, err := st.GetSettings(ctx, "store-1")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, st.SetSettings(ctx, "store-1", store.Settings{Mnemonic: "m1", ApiKey: "a1", PaymentKey: "k1"}))
	require.NoError(t, st.SetSettings(ctx, "store-1", store.Settings{Mnemonic: "m2", ApiKey: "a2", PaymentKey: "k2"}))

	got, err = st.GetSettings(ctx, "store-1")
	require.NoError(t, err)
	assert.Equal(t, &store.Settings{Mnemonic: "m2", ApiKey: "a2", PaymentKey: "k2"}, got)

	storeID, byKey, err := st.GetSettingsByPaymentKey(ctx, "k2")
	require.NoError(t, err)
	assert.Equal(t, "store-1", storeID)
	assert.Equal(t, got, byKey)

	_, byKey, err = st.GetSettingsByPaymentKey(ctx, "k1")
	require.NoError(t, err)
	assert.Nil(t, byKey)

	all, err := st.ListSettings(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, st.DeleteSettings(ctx, "store-1"))
	got, err = st.GetSettings(ctx, "store-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPaymentsLookupAndStatus(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()

	rec := store.PaymentRecord{
		StoreID: "store-1",
		Invoice: "lnbc...",
		Payment: normalize.Payment{
			ID:          "hash-1",
			PaymentType: lightning.PaymentTypeReceive,
			Status:      lightning.PaymentStatusPending,
			Timestamp:   1700000000,
			AmountSat:   1000,
			Description: "Order 1",
		},
	}
	require.NoError(t, st.SavePayment(ctx, rec))
	require.NoError(t, st.SavePayment(ctx, store.PaymentRecord{StoreID: "store-2", Payment: normalize.Payment{ID: "hash-2"}}))

	found, err := st.LookupPayments(ctx, "store-1", []string{"hash-1", "hash-2", "missing"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, rec.Payment, found["hash-1"])

	require.NoError(t, st.UpdatePaymentStatus(ctx, "store-1", "hash-1", lightning.PaymentStatusCompleted, 3))
	found, err = st.LookupPayments(ctx, "store-1", []string{"hash-1"})
	require.NoError(t, err)
	assert.Equal(t, lightning.PaymentStatusCompleted, found["hash-1"].Status)
	assert.Equal(t, int64(3), found["hash-1"].FeeSat)

	empty, err := st.LookupPayments(ctx, "store-1", nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSavePaymentValidation(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()

	assert.Error(t, st.SavePayment(ctx, store.PaymentRecord{StoreID: "s"}))
	assert.Error(t, st.SavePayment(ctx, store.PaymentRecord{StoreID: "s", Payment: normalize.Payment{ID: "x", AmountSat: -1}}))
}
