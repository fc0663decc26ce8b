package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"git.vengeful.eu/nacorid/breezspark/internal/normalize"
	"git.vengeful.eu/nacorid/breezspark/internal/store"
	"git.vengeful.eu/nacorid/breezspark/internal/wallet"
)

const redactedMnemonic = "********"

type Server struct {
	Wallets *wallet.Service
	Logger  *slog.Logger
}

type clientKey struct{}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", s.HandleHealthz)
	r.Route("/plugins/{storeId}/breezspark", func(r chi.Router) {
		r.Get("/", s.HandleIndex)
		r.Get("/configure", s.HandleGetConfigure)
		r.Post("/configure", s.HandleConfigure)

		r.Group(func(r chi.Router) {
			r.Use(s.requireClient)
			r.Get("/info", s.HandleInfo)
			r.Post("/receive", s.HandleReceive)
			r.Post("/prepare-send", s.HandlePrepareSend)
			r.Post("/confirm-send", s.HandleConfirmSend)
			r.Post("/swapout", s.HandleSwapOut)
			r.Get("/swapin", s.HandleSwapIn)
			r.Post("/sweep", s.HandleSweep)
			r.Post("/swapin/{address}/refund", s.HandleRefund)
			r.Get("/transactions", s.HandleTransactions)
		})
	})
	return r
}

func (s *Server) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(200)
	w.Write([]byte("ok"))
}

func basePath(r *http.Request) string {
	return "/plugins/" + chi.URLParam(r, "storeId") + "/breezspark"
}

func (s *Server) HandleIndex(w http.ResponseWriter, r *http.Request) {
	target := basePath(r) + "/info"
	if s.Wallets.GetClient(chi.URLParam(r, "storeId")) == nil {
		target = basePath(r) + "/configure"
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// requireClient resolves the store's wallet client into the request context.
func (s *Server) requireClient(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := s.Wallets.GetClient(chi.URLParam(r, "storeId"))
		if c == nil {
			writeJSON(w, http.StatusConflict, map[string]string{
				"error":    "wallet not configured",
				"redirect": basePath(r) + "/configure",
			})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), clientKey{}, c)))
	})
}

func clientFrom(r *http.Request) *wallet.Client {
	c, _ := r.Context().Value(clientKey{}).(*wallet.Client)
	return c
}

func (s *Server) HandleGetConfigure(w http.ResponseWriter, r *http.Request) {
	st, err := s.Wallets.Get(r.Context(), chi.URLParam(r, "storeId"))
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, "failed to load settings", err)
		return
	}
	resp := map[string]any{"configured": st != nil}
	if st != nil {
		resp["mnemonic"] = redactedMnemonic
		resp["apiKey"] = st.ApiKey
		resp["paymentKey"] = st.PaymentKey
		resp["connectionString"] = connectionString(st.PaymentKey)
	}
	writeJSON(w, http.StatusOK, resp)
}

func connectionString(paymentKey string) string {
	return "type=" + wallet.ConnectionStringType + ";key=" + paymentKey
}

func (s *Server) HandleConfigure(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Command  string `json:"command"`
		Mnemonic string `json:"mnemonic"`
		ApiKey   string `json:"apiKey"`
	}
	if !decode(w, r, &req) {
		return
	}
	storeID := chi.URLParam(r, "storeId")

	switch req.Command {
	case "clear":
		if err := s.Wallets.Set(r.Context(), storeID, nil); err != nil {
			s.fail(w, r, http.StatusInternalServerError, "failed to clear settings", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Settings cleared successfully"})
	case "save":
		err := s.Wallets.Set(r.Context(), storeID, &store.Settings{Mnemonic: req.Mnemonic, ApiKey: req.ApiKey})
		if err != nil {
			writeError(w, http.StatusBadRequest, "Couldnt use provided settings: "+err.Error())
			return
		}
		st, err := s.Wallets.Get(r.Context(), storeID)
		if err != nil || st == nil {
			s.fail(w, r, http.StatusInternalServerError, "failed to load settings", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"message":          "Settings saved successfully",
			"connectionString": connectionString(st.PaymentKey),
		})
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown command %q", req.Command))
	}
}

func (s *Server) HandleInfo(w http.ResponseWriter, r *http.Request) {
	balance, err := clientFrom(r).Balance(r.Context())
	if err != nil {
		s.fail(w, r, http.StatusBadGateway, "failed to read balance", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"balance": balance})
}

func (s *Server) HandleReceive(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount      *int64 `json:"amount"`
		Description string `json:"description"`
	}
	if !decode(w, r, &req) {
		return
	}
	bolt11, err := clientFrom(r).CreateInvoice(r.Context(), req.Amount, req.Description)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Error creating invoice: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"bolt11": bolt11})
}

func (s *Server) HandlePrepareSend(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Address string `json:"address"`
		Amount  *int64 `json:"amount"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Address == "" {
		writeError(w, http.StatusBadRequest, "Payment destination is required")
		return
	}
	q, err := clientFrom(r).PrepareSend(r.Context(), req.Address, req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Error preparing payment: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (s *Server) HandleConfirmSend(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PaymentRequest string `json:"paymentRequest"`
		Amount         *int64 `json:"amount"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.PaymentRequest == "" {
		writeError(w, http.StatusBadRequest, "Payment destination is required")
		return
	}
	p, err := clientFrom(r).ConfirmSend(r.Context(), req.PaymentRequest, req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Error sending payment: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"paymentId": deref(p.ID), "status": string(p.Status)})
}

func (s *Server) HandleSwapOut(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Address string `json:"address"`
		Amount  uint64 `json:"amount"`
	}
	if !decode(w, r, &req) {
		return
	}
	p, err := clientFrom(r).SwapOut(r.Context(), req.Address, req.Amount)
	if errors.Is(err, wallet.ErrInvalidSwapMethod) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "Error processing swap-out: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"paymentId": deref(p.ID), "status": string(p.Status)})
}

func (s *Server) HandleSwapIn(w http.ResponseWriter, r *http.Request) {
	deposits, err := clientFrom(r).UnclaimedDeposits(r.Context())
	if err != nil {
		s.fail(w, r, http.StatusBadGateway, "failed to list deposits", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deposits": deposits})
}

func (s *Server) HandleSweep(w http.ResponseWriter, r *http.Request) {
	deposits, err := clientFrom(r).UnclaimedDeposits(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, "error claiming deposits: "+err.Error())
		return
	}
	msg := "No pending deposits to claim"
	if len(deposits) > 0 {
		msg = fmt.Sprintf("Found %d unclaimed deposits", len(deposits))
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": msg})
}

func (s *Server) HandleRefund(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TxID          string  `json:"txid"`
		Vout          uint32  `json:"vout"`
		RefundAddress string  `json:"refundAddress"`
		SatPerByte    *uint64 `json:"satPerByte"`
	}
	if !decode(w, r, &req) {
		return
	}
	resp, err := clientFrom(r).RefundDeposit(r.Context(), req.TxID, req.Vout, req.RefundAddress, req.SatPerByte)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Couldnt refund: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"txId":    resp.TxID,
		"message": "Refund successful: " + resp.TxID,
	})
}

func (s *Server) HandleTransactions(w http.ResponseWriter, r *http.Request) {
	skip, err := queryUint32(r, "skip")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid skip")
		return
	}
	count, err := queryUint32(r, "count")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid count")
		return
	}

	c := clientFrom(r)
	payments, err := c.Transactions(r.Context(), skip, count)
	if err != nil {
		s.fail(w, r, http.StatusBadGateway, "failed to list payments", err)
		return
	}
	balance, err := c.Balance(r.Context())
	if err != nil {
		s.fail(w, r, http.StatusBadGateway, "failed to read balance", err)
		return
	}
	if payments == nil {
		payments = []normalize.Payment{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"balance": balance, "payments": payments})
}

// queryUint32 reads an optional paging parameter. Values outside uint32 are
// rejected rather than wrapped.
func queryUint32(r *http.Request, name string) (uint32, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return uint32(n), nil
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return false
	}
	return true
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, status int, msg string, err error) {
	s.Logger.ErrorContext(r.Context(), msg, "store", chi.URLParam(r, "storeId"), "error", err)
	writeError(w, status, msg)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
