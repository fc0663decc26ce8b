package lntest

import (
	"context"
	"sync"

	"git.vengeful.eu/nacorid/breezspark/internal/lightning"
)

// Sdk is a scriptable lightning.Sdk. Zero-value fields produce zero results.
type Sdk struct {
	mu sync.Mutex

	Info     lightning.Info
	Payments []lightning.Payment
	Receive  lightning.ReceivePaymentResponse
	Method   lightning.SendMethod
	Sent     *lightning.Payment
	Deposits []lightning.Deposit
	Refund   lightning.RefundDepositResponse
	Err      error

	ListRequests    []lightning.ListPaymentsRequest
	ReceiveRequests []lightning.ReceivePaymentRequest
	PrepareRequests []lightning.PrepareSendPaymentRequest
	SendRequests    []lightning.SendPaymentRequest
	RefundRequests  []lightning.RefundDepositRequest
}

var _ lightning.Sdk = (*Sdk)(nil)

func (s *Sdk) GetInfo(ctx context.Context) (lightning.Info, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Info, s.Err
}

func (s *Sdk) ListPayments(ctx context.Context, req lightning.ListPaymentsRequest) ([]lightning.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ListRequests = append(s.ListRequests, req)
	if s.Err != nil {
		return nil, s.Err
	}
	return append([]lightning.Payment(nil), s.Payments...), nil
}

func (s *Sdk) ReceivePayment(ctx context.Context, req lightning.ReceivePaymentRequest) (lightning.ReceivePaymentResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ReceiveRequests = append(s.ReceiveRequests, req)
	return s.Receive, s.Err
}

func (s *Sdk) PrepareSendPayment(ctx context.Context, req lightning.PrepareSendPaymentRequest) (lightning.PrepareSendPaymentResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.PrepareRequests = append(s.PrepareRequests, req)
	if s.Err != nil {
		return lightning.PrepareSendPaymentResponse{}, s.Err
	}
	return lightning.PrepareSendPaymentResponse{
		PaymentRequest: req.PaymentRequest,
		Amount:         req.Amount,
		Method:         s.Method,
	}, nil
}

func (s *Sdk) SendPayment(ctx context.Context, req lightning.SendPaymentRequest) (lightning.SendPaymentResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SendRequests = append(s.SendRequests, req)
	return lightning.SendPaymentResponse{Payment: s.Sent}, s.Err
}

func (s *Sdk) ListUnclaimedDeposits(ctx context.Context) ([]lightning.Deposit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Deposits, s.Err
}

func (s *Sdk) RefundDeposit(ctx context.Context, req lightning.RefundDepositRequest) (lightning.RefundDepositResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.RefundRequests = append(s.RefundRequests, req)
	return s.Refund, s.Err
}
