package lightning

import (
	"encoding/hex"
	"strings"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/lightningnetwork/lnd/zpay32"
)

func decodeInvoice(invoice string, params *chaincfg.Params) (*zpay32.Invoice, bool) {
	invoice = strings.TrimSpace(invoice)
	invoice = strings.TrimPrefix(strings.ToLower(invoice), "lightning:")
	if invoice == "" {
		return nil, false
	}
	if params == nil {
		params = &chaincfg.MainNetParams
	}
	// zpay32 panics on some truncated inputs.
	var inv *zpay32.Invoice
	func() {
		defer func() {
			if recover() != nil {
				inv = nil
			}
		}()
		decoded, err := zpay32.Decode(invoice, params)
		if err == nil {
			inv = decoded
		}
	}()
	return inv, inv != nil
}

// InvoiceAmountSat returns the minimum amount a BOLT11 invoice asks for, in
// satoshis. ok is false when the invoice does not decode or carries no amount.
func InvoiceAmountSat(invoice string, params *chaincfg.Params) (int64, bool) {
	inv, ok := decodeInvoice(invoice, params)
	if !ok || inv.MilliSat == nil {
		return 0, false
	}
	return int64(inv.MilliSat.ToSatoshis()), true
}

// InvoicePaymentHash returns the hex payment hash of a BOLT11 invoice.
func InvoicePaymentHash(invoice string, params *chaincfg.Params) (string, bool) {
	inv, ok := decodeInvoice(invoice, params)
	if !ok || inv.PaymentHash == nil {
		return "", false
	}
	return hex.EncodeToString(inv.PaymentHash[:]), true
}

// IsInvoice reports whether s decodes as a BOLT11 invoice for params.
func IsInvoice(s string, params *chaincfg.Params) bool {
	_, ok := decodeInvoice(s, params)
	return ok
}
