package lightning

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Provider talks to a Spark SDK sidecar over JSON/HTTP. One Provider is bound
// to one connected wallet.
type Provider struct {
	URL      string
	Key      string
	WalletID string
	client   *http.Client
}

func NewProvider(url, key string) *Provider {
	client := &http.Client{Timeout: 90 * time.Second}
	return &Provider{URL: strings.TrimRight(url, "/"), Key: key, client: client}
}

// Connect opens (or resumes) the wallet derived from mnemonic on the sidecar.
func Connect(ctx context.Context, url, key, mnemonic, apiKey string) (*Provider, error) {
	p := NewProvider(url, key)
	body := map[string]any{
		"mnemonic": mnemonic,
		"apiKey":   apiKey,
	}
	res, err := p.do(ctx, http.MethodPost, "/v1/connect", body)
	if err != nil {
		return nil, fmt.Errorf("failed to connect wallet: %w", err)
	}
	p.WalletID = res.Get("walletId").String()
	if p.WalletID == "" {
		return nil, fmt.Errorf("failed to connect wallet: sidecar returned no wallet id")
	}
	return p, nil
}

func (p *Provider) GetInfo(ctx context.Context) (Info, error) {
	res, err := p.do(ctx, http.MethodGet, "/v1/info", nil)
	if err != nil {
		return Info{}, err
	}
	return Info{BalanceSats: res.Get("balanceSats").Uint()}, nil
}

func (p *Provider) ListPayments(ctx context.Context, req ListPaymentsRequest) ([]Payment, error) {
	res, err := p.do(ctx, http.MethodPost, "/v1/payments/list", req)
	if err != nil {
		return nil, err
	}
	var payments []Payment
	for _, item := range res.Get("payments").Array() {
		if item.Type == gjson.Null {
			continue
		}
		payments = append(payments, parsePayment(item))
	}
	return payments, nil
}

func (p *Provider) ReceivePayment(ctx context.Context, req ReceivePaymentRequest) (ReceivePaymentResponse, error) {
	body := map[string]any{
		"paymentMethod": map[string]any{
			"type":        "bolt11Invoice",
			"description": req.Description,
			"amountSats":  req.AmountSats,
		},
	}
	res, err := p.do(ctx, http.MethodPost, "/v1/payments/receive", body)
	if err != nil {
		return ReceivePaymentResponse{}, err
	}
	return ReceivePaymentResponse{
		PaymentRequest: res.Get("paymentRequest").String(),
		FeeSats:        res.Get("fee").Uint(),
	}, nil
}

func (p *Provider) PrepareSendPayment(ctx context.Context, req PrepareSendPaymentRequest) (PrepareSendPaymentResponse, error) {
	res, err := p.do(ctx, http.MethodPost, "/v1/payments/prepare", req)
	if err != nil {
		return PrepareSendPaymentResponse{}, err
	}
	method, err := parseSendMethod(res.Get("paymentMethod"))
	if err != nil {
		return PrepareSendPaymentResponse{}, err
	}
	resp := PrepareSendPaymentResponse{
		PaymentRequest: req.PaymentRequest,
		Amount:         req.Amount,
		Method:         method,
		raw:            []byte(res.Raw),
	}
	if amt := res.Get("amount"); amt.Exists() {
		if n, ok := new(big.Int).SetString(amt.String(), 10); ok {
			resp.Amount = n
		}
	}
	return resp, nil
}

func (p *Provider) SendPayment(ctx context.Context, req SendPaymentRequest) (SendPaymentResponse, error) {
	prepared := json.RawMessage(req.PrepareResponse.raw)
	if len(prepared) == 0 {
		return SendPaymentResponse{}, fmt.Errorf("send requires a prepared payment")
	}
	body := map[string]any{
		"prepareResponse": prepared,
		"options":         req.Options,
	}
	res, err := p.do(ctx, http.MethodPost, "/v1/payments/send", body)
	if err != nil {
		return SendPaymentResponse{}, err
	}
	var out SendPaymentResponse
	if pay := res.Get("payment"); pay.IsObject() {
		parsed := parsePayment(pay)
		out.Payment = &parsed
	}
	return out, nil
}

func (p *Provider) ListUnclaimedDeposits(ctx context.Context) ([]Deposit, error) {
	res, err := p.do(ctx, http.MethodPost, "/v1/deposits/unclaimed", map[string]any{})
	if err != nil {
		return nil, err
	}
	var deposits []Deposit
	if raw := res.Get("deposits"); raw.IsArray() {
		if err := json.Unmarshal([]byte(raw.Raw), &deposits); err != nil {
			return nil, fmt.Errorf("failed to decode deposits: %w", err)
		}
	}
	return deposits, nil
}

func (p *Provider) RefundDeposit(ctx context.Context, req RefundDepositRequest) (RefundDepositResponse, error) {
	body := map[string]any{
		"txid":               req.TxID,
		"vout":               req.Vout,
		"destinationAddress": req.DestinationAddress,
		"fee": map[string]any{
			"type":        "rate",
			"satPerVbyte": req.SatPerVbyte,
		},
	}
	res, err := p.do(ctx, http.MethodPost, "/v1/deposits/refund", body)
	if err != nil {
		return RefundDepositResponse{}, err
	}
	return RefundDepositResponse{
		TxID:  res.Get("txId").String(),
		TxHex: res.Get("txHex").String(),
	}, nil
}

func (p *Provider) do(ctx context.Context, method, path string, body any) (gjson.Result, error) {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return gjson.Result{}, err
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.URL+path, reader)
	if err != nil {
		return gjson.Result{}, err
	}
	req.Header.Set("X-Api-Key", p.Key)
	if p.WalletID != "" {
		req.Header.Set("X-Wallet-Id", p.WalletID)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return gjson.Result{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, err
	}

	if resp.StatusCode >= 400 {
		if msg := gjson.GetBytes(data, "error").String(); msg != "" {
			return gjson.Result{}, fmt.Errorf("spark sdk: %s", msg)
		}
		return gjson.Result{}, fmt.Errorf("spark sdk returned status %d", resp.StatusCode)
	}
	if !gjson.ValidBytes(data) {
		return gjson.Result{}, fmt.Errorf("spark sdk returned invalid json")
	}
	return gjson.ParseBytes(data), nil
}

func parsePayment(r gjson.Result) Payment {
	p := Payment{
		PaymentType: PaymentType(r.Get("paymentType").String()),
		Status:      PaymentStatus(r.Get("status").String()),
		Timestamp:   r.Get("timestamp").Uint(),
		Details:     parseDetails(r.Get("details")),
	}
	if id := r.Get("id"); id.Type == gjson.String {
		s := id.String()
		p.ID = &s
	}
	if fees := r.Get("fees"); fees.Type == gjson.Number {
		f := fees.Uint()
		p.Fees = &f
	}
	return p
}

// parseDetails returns nil for absent or unknown detail variants.
func parseDetails(r gjson.Result) PaymentDetails {
	if !r.IsObject() {
		return nil
	}
	switch r.Get("type").String() {
	case "lightning":
		d := LightningDetails{
			Invoice:           r.Get("invoice").String(),
			PaymentHash:       r.Get("paymentHash").String(),
			DestinationPubkey: r.Get("destinationPubkey").String(),
		}
		if v := r.Get("description"); v.Type == gjson.String {
			s := v.String()
			d.Description = &s
		}
		if v := r.Get("preimage"); v.Type == gjson.String {
			s := v.String()
			d.Preimage = &s
		}
		return d
	case "bitcoin", "deposit", "withdraw":
		return BitcoinDetails{
			TxID:    r.Get("txId").String(),
			Address: r.Get("address").String(),
		}
	case "spark":
		return SparkDetails{Address: r.Get("address").String()}
	}
	return nil
}

func parseSendMethod(r gjson.Result) (SendMethod, error) {
	switch t := r.Get("type").String(); t {
	case "bolt11Invoice":
		m := Bolt11Method{LightningFeeSats: r.Get("lightningFeeSats").Uint()}
		if v := r.Get("sparkTransferFeeSats"); v.Type == gjson.Number {
			f := v.Uint()
			m.SparkTransferFeeSats = &f
		}
		return m, nil
	case "bitcoinAddress":
		q := r.Get("feeQuote")
		speed := func(name string) SpeedFee {
			return SpeedFee{
				UserFeeSat:        q.Get(name + ".userFeeSat").Uint(),
				L1BroadcastFeeSat: q.Get(name + ".l1BroadcastFeeSat").Uint(),
			}
		}
		return BitcoinAddressMethod{FeeQuote: FeeQuote{
			SpeedFast:   speed("speedFast"),
			SpeedMedium: speed("speedMedium"),
			SpeedSlow:   speed("speedSlow"),
		}}, nil
	case "sparkAddress":
		return SparkAddressMethod{Fee: r.Get("fee").Uint()}, nil
	case "sparkInvoice":
		return SparkInvoiceMethod{Fee: r.Get("fee").Uint()}, nil
	default:
		return nil, fmt.Errorf("unsupported payment method %q", t)
	}
}
