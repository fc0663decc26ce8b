package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"git.vengeful.eu/nacorid/breezspark/internal/lightning"
	"git.vengeful.eu/nacorid/breezspark/internal/normalize"
)

type Settings struct {
	Mnemonic   string `json:"mnemonic"`
	ApiKey     string `json:"apiKey"`
	PaymentKey string `json:"paymentKey"`
}

// PaymentRecord is what the plugin itself knows about a payment it created.
type PaymentRecord struct {
	normalize.Payment
	StoreID string
	Invoice string
}

type Storage struct {
	DB *sql.DB
}

func Init(databaseURL string) (*Storage, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach db: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS breezspark_settings (
			store_id    text PRIMARY KEY,
			mnemonic    text NOT NULL,
			api_key     text NOT NULL DEFAULT '',
			payment_key text NOT NULL UNIQUE
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create settings table: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS breezspark_payments (
			store_id     text NOT NULL,
			payment_id   text NOT NULL,
			payment_type text NOT NULL,
			status       text NOT NULL,
			timestamp    bigint NOT NULL,
			amount_sat   bigint NOT NULL DEFAULT 0 CHECK (amount_sat >= 0),
			fee_sat      bigint NOT NULL DEFAULT 0 CHECK (fee_sat >= 0),
			description  text NOT NULL DEFAULT '',
			invoice      text NOT NULL DEFAULT '',
			PRIMARY KEY (store_id, payment_id)
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create payments table: %w", err)
	}

	return &Storage{DB: db}, nil
}

func (s *Storage) Close() error {
	return s.DB.Close()
}

// GetSettings returns nil settings when the store has none.
func (s *Storage) GetSettings(ctx context.Context, storeID string) (*Settings, error) {
	var st Settings
	err := s.DB.QueryRowContext(ctx,
		`SELECT mnemonic, api_key, payment_key FROM breezspark_settings WHERE store_id = $1`,
		storeID,
	).Scan(&st.Mnemonic, &st.ApiKey, &st.PaymentKey)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *Storage) GetSettingsByPaymentKey(ctx context.Context, paymentKey string) (string, *Settings, error) {
	var (
		storeID string
		st      Settings
	)
	err := s.DB.QueryRowContext(ctx,
		`SELECT store_id, mnemonic, api_key, payment_key FROM breezspark_settings WHERE payment_key = $1`,
		paymentKey,
	).Scan(&storeID, &st.Mnemonic, &st.ApiKey, &st.PaymentKey)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil, nil
	}
	if err != nil {
		return "", nil, err
	}
	return storeID, &st, nil
}

func (s *Storage) ListSettings(ctx context.Context) (map[string]Settings, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT store_id, mnemonic, api_key, payment_key FROM breezspark_settings`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]Settings{}
	for rows.Next() {
		var (
			storeID string
			st      Settings
		)
		if err := rows.Scan(&storeID, &st.Mnemonic, &st.ApiKey, &st.PaymentKey); err != nil {
			return nil, err
		}
		out[storeID] = st
	}
	return out, rows.Err()
}

func (s *Storage) SetSettings(ctx context.Context, storeID string, st Settings) error {
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO breezspark_settings (store_id, mnemonic, api_key, payment_key) VALUES ($1, $2, $3, $4)
		ON CONFLICT (store_id) DO UPDATE
		SET
			mnemonic    = EXCLUDED.mnemonic,
			api_key     = EXCLUDED.api_key,
			payment_key = EXCLUDED.payment_key`,
		storeID, st.Mnemonic, st.ApiKey, st.PaymentKey,
	)
	return err
}

func (s *Storage) DeleteSettings(ctx context.Context, storeID string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM breezspark_settings WHERE store_id = $1`, storeID)
	return err
}

func (s *Storage) SavePayment(ctx context.Context, rec PaymentRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("payment record needs an id")
	}
	if rec.AmountSat < 0 || rec.FeeSat < 0 {
		return fmt.Errorf("payment %s: negative amount or fee", rec.ID)
	}
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO breezspark_payments
			(store_id, payment_id, payment_type, status, timestamp, amount_sat, fee_sat, description, invoice)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (store_id, payment_id) DO UPDATE
		SET
			payment_type = EXCLUDED.payment_type,
			status       = EXCLUDED.status,
			timestamp    = EXCLUDED.timestamp,
			amount_sat   = EXCLUDED.amount_sat,
			fee_sat      = EXCLUDED.fee_sat,
			description  = EXCLUDED.description,
			invoice      = EXCLUDED.invoice`,
		rec.StoreID, rec.ID, string(rec.PaymentType), string(rec.Status), rec.Timestamp,
		rec.AmountSat, rec.FeeSat, rec.Description, rec.Invoice,
	)
	return err
}

func (s *Storage) UpdatePaymentStatus(ctx context.Context, storeID, paymentID string, status lightning.PaymentStatus, feeSat int64) error {
	_, err := s.DB.ExecContext(ctx,
		`UPDATE breezspark_payments SET status = $3, fee_sat = GREATEST(fee_sat, $4)
		WHERE store_id = $1 AND payment_id = $2`,
		storeID, paymentID, string(status), feeSat,
	)
	return err
}

// LookupPayments returns the locally recorded payments among ids.
func (s *Storage) LookupPayments(ctx context.Context, storeID string, ids []string) (normalize.Records, error) {
	out := normalize.Records{}
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT payment_id, payment_type, status, timestamp, amount_sat, fee_sat, description
		FROM breezspark_payments
		WHERE store_id = $1 AND payment_id = ANY($2)`,
		storeID, pq.Array(ids),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			p       normalize.Payment
			pType   string
			pStatus string
		)
		if err := rows.Scan(&p.ID, &pType, &pStatus, &p.Timestamp, &p.AmountSat, &p.FeeSat, &p.Description); err != nil {
			return nil, err
		}
		p.PaymentType = lightning.PaymentType(pType)
		p.Status = lightning.PaymentStatus(pStatus)
		out[p.ID] = p
	}
	return out, rows.Err()
}
