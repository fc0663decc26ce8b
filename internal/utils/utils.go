package utils

import (
	"math/big"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/btcsuite/btcd/chaincfg"

	"git.vengeful.eu/nacorid/breezspark/internal/lightning"
)

type Destination int

const (
	DestinationUnknown Destination = iota
	DestinationBolt11
	DestinationBitcoin
	DestinationSpark
)

func (d Destination) String() string {
	switch d {
	case DestinationBolt11:
		return "bolt11"
	case DestinationBitcoin:
		return "bitcoin"
	case DestinationSpark:
		return "spark"
	default:
		return "unknown"
	}
}

var sparkHRPs = []string{"sp", "sprt", "spark", "sparkrt", "sparkt", "sparks"}

// ClassifyDestination tells what kind of payment destination s is on the given
// network.
func ClassifyDestination(s string, params *chaincfg.Params) Destination {
	s = strings.TrimSpace(s)
	if s == "" {
		return DestinationUnknown
	}
	if params == nil {
		params = &chaincfg.MainNetParams
	}
	if lightning.IsInvoice(s, params) {
		return DestinationBolt11
	}
	if IsBitcoinAddress(s, params) {
		return DestinationBitcoin
	}
	if IsSparkAddress(s) {
		return DestinationSpark
	}
	return DestinationUnknown
}

// IsBitcoinAddress accepts any standard on-chain address for params, with or
// without a "bitcoin:" prefix.
func IsBitcoinAddress(s string, params *chaincfg.Params) bool {
	s = strings.TrimSpace(s)
	if len(s) > 8 && strings.EqualFold(s[:8], "bitcoin:") {
		s = s[8:]
	}
	if i := strings.IndexByte(s, '?'); i >= 0 {
		s = s[:i]
	}
	addr, err := btcutil.DecodeAddress(s, params)
	if err != nil {
		return false
	}
	return addr.IsForNet(params)
}

// Decode bech32 spark address and check its human-readable part
func IsSparkAddress(s string) bool {
	hrp, _, err := bech32.DecodeNoLimit(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	for _, known := range sparkHRPs {
		if hrp == known {
			return true
		}
	}
	return false
}

// ResolveAmountSats returns the explicit amount when positive, else the amount
// encoded in a BOLT11 destination, else nil.
func ResolveAmountSats(destination string, amount *int64, params *chaincfg.Params) *big.Int {
	if amount != nil && *amount > 0 {
		return big.NewInt(*amount)
	}
	if sats, ok := lightning.InvoiceAmountSat(destination, params); ok {
		return big.NewInt(sats)
	}
	return nil
}
