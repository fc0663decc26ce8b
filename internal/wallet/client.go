package wallet

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/big"
	"time"

	"github.com/btcsuite/btcd/chaincfg"

	"git.vengeful.eu/nacorid/breezspark/internal/lightning"
	"git.vengeful.eu/nacorid/breezspark/internal/normalize"
	"git.vengeful.eu/nacorid/breezspark/internal/store"
	"git.vengeful.eu/nacorid/breezspark/internal/utils"
)

const (
	DefaultInvoiceDescription = "BTCPay Server Invoice"
	DefaultRefundFeeRate      = 5
)

// Client is a connected wallet for one store.
type Client struct {
	StoreID    string
	PaymentKey string
	Sdk        lightning.Sdk

	repo       PaymentStore
	network    *chaincfg.Params
	normalizer *normalize.Normalizer
	logger     *slog.Logger
}

// Quote is what a prepared send will cost.
type Quote struct {
	Destination string `json:"destination"`
	Amount      int64  `json:"amount"`
	Fee         int64  `json:"fee"`
	Method      string `json:"method"`
}

func (c *Client) Balance(ctx context.Context) (uint64, error) {
	info, err := c.Sdk.GetInfo(ctx)
	if err != nil {
		return 0, err
	}
	return info.BalanceSats, nil
}

// CreateInvoice asks the wallet for a BOLT11 invoice and records it locally
// under its payment hash.
func (c *Client) CreateInvoice(ctx context.Context, amount *int64, description string) (string, error) {
	if description == "" {
		description = DefaultInvoiceDescription
	}
	req := lightning.ReceivePaymentRequest{Description: description}
	if amount != nil && *amount > 0 {
		sats := uint64(*amount)
		req.AmountSats = &sats
	}

	resp, err := c.Sdk.ReceivePayment(ctx, req)
	if err != nil {
		return "", err
	}

	hash, ok := lightning.InvoicePaymentHash(resp.PaymentRequest, c.network)
	if !ok {
		c.logger.WarnContext(ctx, "created invoice does not decode, not recording it")
		return resp.PaymentRequest, nil
	}
	var amountSat int64
	if req.AmountSats != nil {
		amountSat = clampInt64(*req.AmountSats)
	} else if sats, ok := lightning.InvoiceAmountSat(resp.PaymentRequest, c.network); ok {
		amountSat = sats
	}
	c.record(ctx, store.PaymentRecord{
		StoreID: c.StoreID,
		Invoice: resp.PaymentRequest,
		Payment: normalize.Payment{
			ID:          hash,
			PaymentType: lightning.PaymentTypeReceive,
			Status:      lightning.PaymentStatusPending,
			Timestamp:   time.Now().Unix(),
			AmountSat:   amountSat,
			FeeSat:      clampInt64(resp.FeeSats),
			Description: description,
		},
	})
	return resp.PaymentRequest, nil
}

// PrepareSend quotes a payment to destination without sending it.
func (c *Client) PrepareSend(ctx context.Context, destination string, amount *int64) (Quote, error) {
	prep, err := c.prepare(ctx, destination, amount)
	if err != nil {
		return Quote{}, err
	}
	return quoteFor(destination, prep), nil
}

// ConfirmSend prepares the payment again and sends it.
func (c *Client) ConfirmSend(ctx context.Context, destination string, amount *int64) (*lightning.Payment, error) {
	prep, err := c.prepare(ctx, destination, amount)
	if err != nil {
		return nil, err
	}
	return c.send(ctx, destination, prep)
}

// SwapOut sends amountSat on-chain. Only bitcoin address destinations qualify.
func (c *Client) SwapOut(ctx context.Context, address string, amountSat uint64) (*lightning.Payment, error) {
	prep, err := c.Sdk.PrepareSendPayment(ctx, lightning.PrepareSendPaymentRequest{
		PaymentRequest: address,
		Amount:         new(big.Int).SetUint64(amountSat),
	})
	if err != nil {
		return nil, err
	}
	if _, ok := prep.Method.(lightning.BitcoinAddressMethod); !ok {
		return nil, ErrInvalidSwapMethod
	}
	return c.send(ctx, address, prep)
}

func (c *Client) UnclaimedDeposits(ctx context.Context) ([]lightning.Deposit, error) {
	return c.Sdk.ListUnclaimedDeposits(ctx)
}

// RefundDeposit returns an unclaimed deposit to refundAddress. A nil fee rate
// uses DefaultRefundFeeRate sat/vB.
func (c *Client) RefundDeposit(ctx context.Context, txid string, vout uint32, refundAddress string, satPerByte *uint64) (lightning.RefundDepositResponse, error) {
	rate := uint64(DefaultRefundFeeRate)
	if satPerByte != nil {
		rate = *satPerByte
	}
	resp, err := c.Sdk.RefundDeposit(ctx, lightning.RefundDepositRequest{
		TxID:               txid,
		Vout:               vout,
		DestinationAddress: refundAddress,
		SatPerVbyte:        rate,
	})
	if err != nil {
		return resp, err
	}
	c.logger.InfoContext(ctx, "deposit refunded", "txid", txid, "vout", vout, "refund_tx", resp.TxID)
	return resp, nil
}

// Transactions lists bitcoin payments newest first, reconciled with the
// payments this plugin recorded.
func (c *Client) Transactions(ctx context.Context, skip, count uint32) ([]normalize.Payment, error) {
	req := lightning.ListPaymentsRequest{
		AssetFilter:   lightning.AssetBitcoin,
		SortAscending: false,
	}
	if skip > 0 {
		req.Offset = &skip
	}
	if count > 0 {
		req.Limit = &count
	}

	raws, err := c.Sdk.ListPayments(ctx, req)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(raws))
	for _, p := range raws {
		if p.ID != nil && *p.ID != "" {
			ids = append(ids, *p.ID)
		}
	}
	local, err := c.repo.LookupPayments(ctx, c.StoreID, ids)
	if err != nil {
		c.logger.WarnContext(ctx, "failed to load local payments", "error", err)
		local = nil
	}
	c.reconcile(ctx, raws, local)

	return c.normalizer.NormalizeAll(raws, local), nil
}

// reconcile moves local records forward to the status the wallet reports.
// Records already in a final state are left alone.
func (c *Client) reconcile(ctx context.Context, raws []lightning.Payment, local normalize.Records) {
	for _, raw := range raws {
		if raw.ID == nil {
			continue
		}
		rec, ok := local[*raw.ID]
		if !ok || rec.Status.Final() || raw.Status == "" || raw.Status == rec.Status {
			continue
		}
		rec.Status = raw.Status
		if raw.Fees != nil {
			if fee := clampInt64(*raw.Fees / 1000); fee > rec.FeeSat {
				rec.FeeSat = fee
			}
		}
		local[rec.ID] = rec
		if err := c.repo.UpdatePaymentStatus(ctx, c.StoreID, rec.ID, rec.Status, rec.FeeSat); err != nil {
			c.logger.WarnContext(ctx, "failed to update payment status", "payment", rec.ID, "error", err)
		}
	}
}

func (c *Client) prepare(ctx context.Context, destination string, amount *int64) (lightning.PrepareSendPaymentResponse, error) {
	return c.Sdk.PrepareSendPayment(ctx, lightning.PrepareSendPaymentRequest{
		PaymentRequest: destination,
		Amount:         utils.ResolveAmountSats(destination, amount, c.network),
	})
}

func (c *Client) send(ctx context.Context, destination string, prep lightning.PrepareSendPaymentResponse) (*lightning.Payment, error) {
	c.logger.InfoContext(ctx, "sending payment", "destination", destination)
	resp, err := c.Sdk.SendPayment(ctx, lightning.SendPaymentRequest{
		PrepareResponse: prep,
		Options:         lightning.OptionsFor(prep.Method),
	})
	if err != nil {
		c.logger.ErrorContext(ctx, "send failed", "destination", destination, "error", err)
		return nil, err
	}
	if resp.Payment == nil {
		return nil, fmt.Errorf("wallet returned no payment")
	}
	p := resp.Payment
	c.logger.InfoContext(ctx, "send complete", "payment", deref(p.ID), "status", p.Status)

	if p.ID != nil && *p.ID != "" {
		q := quoteFor(destination, prep)
		c.record(ctx, store.PaymentRecord{
			StoreID: c.StoreID,
			Payment: normalize.Payment{
				ID:          *p.ID,
				PaymentType: lightning.PaymentTypeSend,
				Status:      p.Status,
				Timestamp:   time.Now().Unix(),
				AmountSat:   q.Amount,
				FeeSat:      q.Fee,
				Description: "Payment to " + shorten(destination),
			},
		})
	}
	return p, nil
}

func (c *Client) record(ctx context.Context, rec store.PaymentRecord) {
	if err := c.repo.SavePayment(ctx, rec); err != nil {
		c.logger.WarnContext(ctx, "failed to record payment", "payment", rec.ID, "error", err)
	}
}

func quoteFor(destination string, prep lightning.PrepareSendPaymentResponse) Quote {
	q := Quote{Destination: destination}
	if prep.Amount != nil && prep.Amount.IsInt64() {
		q.Amount = new(big.Int).Abs(prep.Amount).Int64()
	}
	if prep.Method != nil {
		q.Fee = clampInt64(prep.Method.TotalFeeSats())
	}
	switch prep.Method.(type) {
	case lightning.Bolt11Method:
		q.Method = utils.DestinationBolt11.String()
	case lightning.BitcoinAddressMethod:
		q.Method = utils.DestinationBitcoin.String()
	case lightning.SparkAddressMethod, lightning.SparkInvoiceMethod:
		q.Method = utils.DestinationSpark.String()
	}
	return q
}

func shorten(s string) string {
	r := []rune(s)
	if len(r) <= 24 {
		return s
	}
	return string(r[:12]) + "…" + string(r[len(r)-8:])
}

func clampInt64(v uint64) int64 {
	if v > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(v)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
