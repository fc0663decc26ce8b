package lightning

import (
	"context"
	"fmt"
	"math/big"
)

var _ Sdk = (*Provider)(nil)

// Sdk is the subset of the Spark wallet SDK the plugin drives.
type Sdk interface {
	GetInfo(ctx context.Context) (Info, error)
	ListPayments(ctx context.Context, req ListPaymentsRequest) ([]Payment, error)
	ReceivePayment(ctx context.Context, req ReceivePaymentRequest) (ReceivePaymentResponse, error)
	PrepareSendPayment(ctx context.Context, req PrepareSendPaymentRequest) (PrepareSendPaymentResponse, error)
	SendPayment(ctx context.Context, req SendPaymentRequest) (SendPaymentResponse, error)
	ListUnclaimedDeposits(ctx context.Context) ([]Deposit, error)
	RefundDeposit(ctx context.Context, req RefundDepositRequest) (RefundDepositResponse, error)
}

type PaymentType string

const (
	PaymentTypeSend    PaymentType = "send"
	PaymentTypeReceive PaymentType = "receive"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// Final reports whether the wallet will not move the payment any further.
func (s PaymentStatus) Final() bool {
	return s == PaymentStatusCompleted || s == PaymentStatusFailed
}

type AssetFilter string

const (
	AssetBitcoin AssetFilter = "bitcoin"
	AssetToken   AssetFilter = "token"
)

// Payment is a payment record exactly as the wallet reports it. Fees are in
// millisatoshi.
type Payment struct {
	ID          *string
	PaymentType PaymentType
	Status      PaymentStatus
	Timestamp   uint64
	Fees        *uint64
	Details     PaymentDetails
}

// PaymentDetails is one of LightningDetails, BitcoinDetails or SparkDetails.
type PaymentDetails interface {
	fmt.Stringer
	isPaymentDetails()
}

type LightningDetails struct {
	Invoice           string
	Description       *string
	PaymentHash       string
	Preimage          *string
	DestinationPubkey string
}

type BitcoinDetails struct {
	TxID    string
	Address string
}

type SparkDetails struct {
	Address string
}

func (LightningDetails) isPaymentDetails() {}
func (BitcoinDetails) isPaymentDetails()   {}
func (SparkDetails) isPaymentDetails()     {}

func (d LightningDetails) String() string {
	if d.Description != nil && *d.Description != "" {
		return "Lightning: " + *d.Description
	}
	if d.PaymentHash != "" {
		return "Lightning payment " + d.PaymentHash
	}
	return "Lightning payment"
}

func (d BitcoinDetails) String() string {
	switch {
	case d.TxID != "":
		return "Bitcoin transaction " + d.TxID
	case d.Address != "":
		return "Bitcoin payment to " + d.Address
	}
	return "Bitcoin payment"
}

func (d SparkDetails) String() string {
	if d.Address != "" {
		return "Spark transfer to " + d.Address
	}
	return "Spark transfer"
}

type Info struct {
	BalanceSats uint64 `json:"balanceSats"`
}

type ListPaymentsRequest struct {
	Offset        *uint32     `json:"offset,omitempty"`
	Limit         *uint32     `json:"limit,omitempty"`
	AssetFilter   AssetFilter `json:"assetFilter,omitempty"`
	SortAscending bool        `json:"sortAscending"`
}

// ReceivePaymentRequest always asks for a BOLT11 invoice.
type ReceivePaymentRequest struct {
	Description string  `json:"description"`
	AmountSats  *uint64 `json:"amountSats,omitempty"`
}

type ReceivePaymentResponse struct {
	PaymentRequest string `json:"paymentRequest"`
	FeeSats        uint64 `json:"fee"`
}

type PrepareSendPaymentRequest struct {
	PaymentRequest string   `json:"paymentRequest"`
	Amount         *big.Int `json:"amount,omitempty"`
}

// PrepareSendPaymentResponse keeps the wallet's original encoding so it can be
// handed back unchanged on send.
type PrepareSendPaymentResponse struct {
	PaymentRequest string
	Amount         *big.Int
	Method         SendMethod
	raw            []byte
}

// SendMethod is one of Bolt11Method, BitcoinAddressMethod,
// SparkAddressMethod or SparkInvoiceMethod.
type SendMethod interface {
	TotalFeeSats() uint64
	isSendMethod()
}

type Bolt11Method struct {
	LightningFeeSats     uint64
	SparkTransferFeeSats *uint64
}

type BitcoinAddressMethod struct {
	FeeQuote FeeQuote
}

type SparkAddressMethod struct {
	Fee uint64
}

type SparkInvoiceMethod struct {
	Fee uint64
}

type FeeQuote struct {
	SpeedFast   SpeedFee
	SpeedMedium SpeedFee
	SpeedSlow   SpeedFee
}

type SpeedFee struct {
	UserFeeSat        uint64
	L1BroadcastFeeSat uint64
}

func (Bolt11Method) isSendMethod()         {}
func (BitcoinAddressMethod) isSendMethod() {}
func (SparkAddressMethod) isSendMethod()   {}
func (SparkInvoiceMethod) isSendMethod()   {}

func (m Bolt11Method) TotalFeeSats() uint64 {
	total := m.LightningFeeSats
	if m.SparkTransferFeeSats != nil {
		total += *m.SparkTransferFeeSats
	}
	return total
}

// TotalFeeSats quotes the medium confirmation speed, the one sends use.
func (m BitcoinAddressMethod) TotalFeeSats() uint64 {
	return m.FeeQuote.SpeedMedium.UserFeeSat + m.FeeQuote.SpeedMedium.L1BroadcastFeeSat
}

func (m SparkAddressMethod) TotalFeeSats() uint64 { return m.Fee }
func (m SparkInvoiceMethod) TotalFeeSats() uint64 { return m.Fee }

type ConfirmationSpeed string

const (
	SpeedFast   ConfirmationSpeed = "fast"
	SpeedMedium ConfirmationSpeed = "medium"
	SpeedSlow   ConfirmationSpeed = "slow"
)

// SendOptions is nil for spark sends.
type SendOptions struct {
	Type                  string            `json:"type"`
	PreferSpark           *bool             `json:"preferSpark,omitempty"`
	CompletionTimeoutSecs *uint32           `json:"completionTimeoutSecs,omitempty"`
	ConfirmationSpeed     ConfirmationSpeed `json:"confirmationSpeed,omitempty"`
}

// OptionsFor returns the send options used for a prepared method.
func OptionsFor(m SendMethod) *SendOptions {
	switch m.(type) {
	case Bolt11Method:
		preferSpark := false
		timeout := uint32(60)
		return &SendOptions{Type: "bolt11Invoice", PreferSpark: &preferSpark, CompletionTimeoutSecs: &timeout}
	case BitcoinAddressMethod:
		return &SendOptions{Type: "bitcoinAddress", ConfirmationSpeed: SpeedMedium}
	default:
		return nil
	}
}

type SendPaymentRequest struct {
	PrepareResponse PrepareSendPaymentResponse
	Options         *SendOptions
}

type SendPaymentResponse struct {
	Payment *Payment
}

type Deposit struct {
	TxID       string `json:"txid"`
	Vout       uint32 `json:"vout"`
	AmountSats uint64 `json:"amountSats"`
	Error      string `json:"error,omitempty"`
}

type RefundDepositRequest struct {
	TxID               string `json:"txid"`
	Vout               uint32 `json:"vout"`
	DestinationAddress string `json:"destinationAddress"`
	SatPerVbyte        uint64 `json:"-"`
}

type RefundDepositResponse struct {
	TxID  string `json:"txId"`
	TxHex string `json:"txHex"`
}
