package config

import (
	"os"
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/kelseyhightower/envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("POSTGRESQL_DATABASE", "postgres://localhost/breezspark")

	cfg := Load()

	assert.Equal(t, "postgres://localhost/breezspark", cfg.PostgresDatabase)
	assert.Equal(t, "8087", cfg.Port)
	assert.Equal(t, "mainnet", cfg.BitcoinNetwork)
	assert.Equal(t, "http://127.0.0.1:8088", cfg.SparkSDKURL)
}

func TestMissingDatabaseIsRejected(t *testing.T) {
	// Setenv restores the previous value once the test ends.
	t.Setenv("POSTGRESQL_DATABASE", "")
	require.NoError(t, os.Unsetenv("POSTGRESQL_DATABASE"))

	var c Config
	err := envconfig.Process("", &c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "POSTGRESQL_DATABASE")
}

func TestNetworkParams(t *testing.T) {
	tests := []struct {
		network string
		want    *chaincfg.Params
	}{
		{"", &chaincfg.MainNetParams},
		{"mainnet", &chaincfg.MainNetParams},
		{"Testnet", &chaincfg.TestNet3Params},
		{"signet", &chaincfg.SigNetParams},
		{"regtest", &chaincfg.RegressionNetParams},
	}
	for _, tt := range tests {
		t.Run(tt.network, func(t *testing.T) {
			params, err := Config{BitcoinNetwork: tt.network}.NetworkParams()
			require.NoError(t, err)
			assert.Equal(t, tt.want.Name, params.Name)
		})
	}

	_, err := Config{BitcoinNetwork: "litecoin"}.NetworkParams()
	assert.Error(t, err)
}
