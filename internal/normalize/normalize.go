// Package normalize turns wallet payment records into display-ready payments.
//
// Local metadata recorded by the plugin always wins over what can be
// recovered from the wallet record. Without it the normalizer extracts what
// it can and leaves the rest zeroed; it never fails.
package normalize

import (
	"strings"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/google/uuid"

	"git.vengeful.eu/nacorid/breezspark/internal/lightning"
)

// DefaultDescription is used when the wallet reports no payment details.
const DefaultDescription = "BreezSpark payment"

// Payment is the canonical form of a payment. Amounts are in satoshis.
type Payment struct {
	ID          string                  `json:"id"`
	PaymentType lightning.PaymentType   `json:"paymentType"`
	Status      lightning.PaymentStatus `json:"status"`
	Timestamp   int64                   `json:"timestamp"`
	AmountSat   int64                   `json:"amountSat"`
	FeeSat      int64                   `json:"feeSat"`
	Description string                  `json:"description"`
}

// Index resolves local metadata by payment id.
type Index interface {
	Lookup(id string) (Payment, bool)
}

// Records is an Index over payments keyed by id.
type Records map[string]Payment

func (r Records) Lookup(id string) (Payment, bool) {
	p, ok := r[id]
	return p, ok
}

type Normalizer struct {
	// Network is used to decode invoices; nil means mainnet.
	Network *chaincfg.Params
	// NewID generates ids for payments the wallet reported without one.
	NewID func() string
}

func New(network *chaincfg.Params) *Normalizer {
	return &Normalizer{Network: network}
}

func newID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Normalize returns *local when it describes raw, otherwise a best-effort
// payment built from raw alone.
func (n *Normalizer) Normalize(raw lightning.Payment, local *Payment) Payment {
	if local != nil && Matches(raw, *local) {
		return *local
	}

	out := Payment{
		PaymentType: raw.PaymentType,
		Status:      raw.Status,
		Timestamp:   clampInt64(raw.Timestamp),
		AmountSat:   n.amountSat(raw.Details),
		Description: DefaultDescription,
	}
	if raw.Fees != nil {
		out.FeeSat = clampInt64(*raw.Fees / 1000)
	}
	if raw.ID != nil && *raw.ID != "" {
		out.ID = *raw.ID
	} else {
		out.ID = n.generateID()
	}
	if raw.Details != nil {
		out.Description = raw.Details.String()
	}
	return out
}

// NormalizeAll normalizes raws in order, taking local context from idx.
func (n *Normalizer) NormalizeAll(raws []lightning.Payment, idx Index) []Payment {
	out := make([]Payment, 0, len(raws))
	for _, raw := range raws {
		var local *Payment
		if idx != nil && raw.ID != nil && *raw.ID != "" {
			if p, ok := idx.Lookup(*raw.ID); ok {
				local = &p
			}
		}
		out = append(out, n.Normalize(raw, local))
	}
	return out
}

// Matches reports whether local was recorded for raw. The payment id is the
// only matching key.
func Matches(raw lightning.Payment, local Payment) bool {
	return raw.ID != nil && *raw.ID != "" && *raw.ID == local.ID
}

func (n *Normalizer) amountSat(details lightning.PaymentDetails) int64 {
	switch d := details.(type) {
	case lightning.LightningDetails:
		if d.Invoice == "" {
			return 0
		}
		amt, ok := lightning.InvoiceAmountSat(d.Invoice, n.Network)
		if !ok || amt < 0 {
			return 0
		}
		return amt
	case lightning.BitcoinDetails, lightning.SparkDetails, nil:
		return 0
	}
	return 0
}

func (n *Normalizer) generateID() string {
	if n.NewID != nil {
		if id := n.NewID(); id != "" {
			return id
		}
	}
	return newID()
}

func clampInt64(v uint64) int64 {
	const maxInt64 = 1<<63 - 1
	if v > maxInt64 {
		return maxInt64
	}
	return int64(v)
}
