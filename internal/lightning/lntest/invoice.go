// Package lntest provides signed BOLT11 invoices and a fake wallet SDK for tests.
package lntest

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/lightningnetwork/lnd/lnwire"
	"github.com/lightningnetwork/lnd/zpay32"
)

// Invoice returns a signed invoice for msat millisatoshi (0 for an amountless
// invoice) and its hex payment hash. The hash is derived from seed.
func Invoice(t testing.TB, params *chaincfg.Params, msat uint64, seed string) (string, string) {
	t.Helper()

	priv, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	hash := sha256.Sum256([]byte(seed))

	opts := []func(*zpay32.Invoice){
		zpay32.Description("test invoice " + seed),
		zpay32.Features(lnwire.NewFeatureVector(nil, lnwire.Features)),
	}
	if msat > 0 {
		opts = append(opts, zpay32.Amount(lnwire.MilliSatoshi(msat)))
	}
	inv, err := zpay32.NewInvoice(params, hash, time.Now(), opts...)
	if err != nil {
		t.Fatalf("new invoice: %v", err)
	}

	encoded, err := inv.Encode(zpay32.MessageSigner{
		SignCompact: func(msg []byte) ([]byte, error) {
			return ecdsa.SignCompact(priv, chainhash.HashB(msg), true)
		},
	})
	if err != nil {
		t.Fatalf("encode invoice: %v", err)
	}
	return encoded, hex.EncodeToString(hash[:])
}
