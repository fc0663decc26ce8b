package wallet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/google/uuid"
	"github.com/tyler-smith/go-bip39"

	"git.vengeful.eu/nacorid/breezspark/internal/lightning"
	"git.vengeful.eu/nacorid/breezspark/internal/normalize"
	"git.vengeful.eu/nacorid/breezspark/internal/store"
)

var (
	ErrMnemonicRequired  = errors.New("Mnemonic is required")
	ErrInvalidMnemonic   = errors.New("Invalid mnemonic")
	ErrInvalidSwapMethod = errors.New("Invalid payment method for onchain swap")
)

type SettingsStore interface {
	GetSettings(ctx context.Context, storeID string) (*store.Settings, error)
	GetSettingsByPaymentKey(ctx context.Context, paymentKey string) (string, *store.Settings, error)
	ListSettings(ctx context.Context) (map[string]store.Settings, error)
	SetSettings(ctx context.Context, storeID string, st store.Settings) error
	DeleteSettings(ctx context.Context, storeID string) error
}

type PaymentStore interface {
	SavePayment(ctx context.Context, rec store.PaymentRecord) error
	UpdatePaymentStatus(ctx context.Context, storeID, paymentID string, status lightning.PaymentStatus, feeSat int64) error
	LookupPayments(ctx context.Context, storeID string, ids []string) (normalize.Records, error)
}

type Repository interface {
	SettingsStore
	PaymentStore
}

// Connector opens the wallet described by settings.
type Connector func(ctx context.Context, settings store.Settings) (lightning.Sdk, error)

// SidecarConnector connects wallets through a Spark SDK sidecar.
func SidecarConnector(url, key string) Connector {
	return func(ctx context.Context, settings store.Settings) (lightning.Sdk, error) {
		return lightning.Connect(ctx, url, key, settings.Mnemonic, settings.ApiKey)
	}
}

// Service keeps one connected client per configured store.
type Service struct {
	repo       Repository
	connect    Connector
	network    *chaincfg.Params
	normalizer *normalize.Normalizer
	logger     *slog.Logger

	mu      sync.RWMutex
	clients map[string]*Client
}

func NewService(repo Repository, connect Connector, network *chaincfg.Params, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if network == nil {
		network = &chaincfg.MainNetParams
	}
	return &Service{
		repo:       repo,
		connect:    connect,
		network:    network,
		normalizer: normalize.New(network),
		logger:     logger,
		clients:    map[string]*Client{},
	}
}

func (s *Service) Network() *chaincfg.Params {
	return s.network
}

func (s *Service) Get(ctx context.Context, storeID string) (*store.Settings, error) {
	return s.repo.GetSettings(ctx, storeID)
}

// Set validates, connects and persists settings for a store. nil settings
// clear the store's wallet.
func (s *Service) Set(ctx context.Context, storeID string, settings *store.Settings) error {
	if settings == nil {
		if err := s.repo.DeleteSettings(ctx, storeID); err != nil {
			return fmt.Errorf("failed to clear settings: %w", err)
		}
		s.mu.Lock()
		delete(s.clients, storeID)
		s.mu.Unlock()
		s.logger.InfoContext(ctx, "wallet settings cleared", "store", storeID)
		return nil
	}

	st := *settings
	st.Mnemonic = strings.Join(strings.Fields(st.Mnemonic), " ")
	if st.Mnemonic == "" {
		return ErrMnemonicRequired
	}
	if !bip39.IsMnemonicValid(st.Mnemonic) {
		return ErrInvalidMnemonic
	}
	if st.PaymentKey == "" {
		existing, err := s.repo.GetSettings(ctx, storeID)
		if err != nil {
			return fmt.Errorf("failed to load settings: %w", err)
		}
		if existing != nil && existing.PaymentKey != "" {
			st.PaymentKey = existing.PaymentKey
		} else {
			st.PaymentKey = uuid.NewString()
		}
	}

	sdk, err := s.connect(ctx, st)
	if err != nil {
		return err
	}
	if err := s.repo.SetSettings(ctx, storeID, st); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	s.register(storeID, st, sdk)
	s.logger.InfoContext(ctx, "wallet configured", "store", storeID)
	return nil
}

// LoadAll connects every persisted wallet. A store that fails to connect is
// logged and skipped.
func (s *Service) LoadAll(ctx context.Context) error {
	all, err := s.repo.ListSettings(ctx)
	if err != nil {
		return fmt.Errorf("failed to list settings: %w", err)
	}
	loaded := 0
	for storeID, st := range all {
		sdk, err := s.connect(ctx, st)
		if err != nil {
			s.logger.ErrorContext(ctx, "failed to connect wallet", "store", storeID, "error", err)
			continue
		}
		s.register(storeID, st, sdk)
		loaded++
	}
	s.logger.InfoContext(ctx, "wallets loaded", "count", loaded, "configured", len(all))
	return nil
}

func (s *Service) GetClient(storeID string) *Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clients[storeID]
}

func (s *Service) GetClientByPaymentKey(paymentKey string) *Client {
	if paymentKey == "" {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.clients {
		if c.PaymentKey == paymentKey {
			return c
		}
	}
	return nil
}

func (s *Service) register(storeID string, st store.Settings, sdk lightning.Sdk) {
	c := &Client{
		StoreID:    storeID,
		PaymentKey: st.PaymentKey,
		Sdk:        sdk,
		repo:       s.repo,
		network:    s.network,
		normalizer: s.normalizer,
		logger:     s.logger.With("store", storeID),
	}
	s.mu.Lock()
	s.clients[storeID] = c
	s.mu.Unlock()
}
