package lightning_test

import (
	"strings"
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/assert"

	"git.vengeful.eu/nacorid/breezspark/internal/lightning"
	"git.vengeful.eu/nacorid/breezspark/internal/lightning/lntest"
)

func TestInvoiceAmountSat(t *testing.T) {
	invoice, _ := lntest.Invoice(t, &chaincfg.MainNetParams, 250_000_000, "amount")

	amt, ok := lightning.InvoiceAmountSat(invoice, &chaincfg.MainNetParams)
	assert.True(t, ok)
	assert.Equal(t, int64(250_000), amt)

	amt, ok = lightning.InvoiceAmountSat("lightning:"+strings.ToUpper(invoice), &chaincfg.MainNetParams)
	assert.True(t, ok)
	assert.Equal(t, int64(250_000), amt)
}

func TestInvoiceAmountSatTruncatesMillisats(t *testing.T) {
	invoice, _ := lntest.Invoice(t, &chaincfg.MainNetParams, 1_999, "sub-sat")

	amt, ok := lightning.InvoiceAmountSat(invoice, &chaincfg.MainNetParams)
	assert.True(t, ok)
	assert.Equal(t, int64(1), amt)
}

func TestInvoiceAmountSatFailures(t *testing.T) {
	amountless, _ := lntest.Invoice(t, &chaincfg.MainNetParams, 0, "open")
	testnet, _ := lntest.Invoice(t, &chaincfg.TestNet3Params, 10_000, "testnet")

	for name, in := range map[string]string{
		"empty":      "",
		"garbage":    "not an invoice",
		"truncated":  amountless[:20],
		"amountless": amountless,
		"wrong net":  testnet,
	} {
		t.Run(name, func(t *testing.T) {
			amt, ok := lightning.InvoiceAmountSat(in, &chaincfg.MainNetParams)
			assert.False(t, ok)
			assert.Zero(t, amt)
		})
	}
}

func TestInvoicePaymentHash(t *testing.T) {
	invoice, hash := lntest.Invoice(t, &chaincfg.RegressionNetParams, 5_000, "hash")

	got, ok := lightning.InvoicePaymentHash(invoice, &chaincfg.RegressionNetParams)
	assert.True(t, ok)
	assert.Equal(t, hash, got)

	_, ok = lightning.InvoicePaymentHash("lnbc1bogus", &chaincfg.MainNetParams)
	assert.False(t, ok)
}
