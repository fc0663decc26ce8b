package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	PostgresDatabase string `required:"true" envconfig:"POSTGRESQL_DATABASE"`
	ListeningAddress string `default:"0.0.0.0" envconfig:"LISTENING_ADDRESS"`
	Port             string `default:"8087" envconfig:"PORT"`
	Debug            bool   `default:"false" envconfig:"DEBUG"`
	LogFilePath      string `default:"output.log" envconfig:"LOG_FILE_PATH"`
	ConsoleLogLvl    string `default:"info" envconfig:"CONSOLE_LOG_LEVEL"`
	FileLogLvl       string `default:"debug" envconfig:"FILE_LOG_LEVEL"`

	// Spark SDK sidecar
	SparkSDKURL    string `default:"http://127.0.0.1:8088" envconfig:"SPARK_SDK_URL"`
	SparkSDKAPIKey string `envconfig:"SPARK_SDK_API_KEY"`
	BitcoinNetwork string `default:"mainnet" envconfig:"BITCOIN_NETWORK"`
}

func Load() Config {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if _, err := c.NetworkParams(); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return c
}

// NetworkParams maps BITCOIN_NETWORK onto the chain parameters used for
// invoice and address decoding.
func (c Config) NetworkParams() (*chaincfg.Params, error) {
	switch strings.ToLower(c.BitcoinNetwork) {
	case "", "mainnet", "bitcoin":
		return &chaincfg.MainNetParams, nil
	case "testnet", "testnet3":
		return &chaincfg.TestNet3Params, nil
	case "signet":
		return &chaincfg.SigNetParams, nil
	case "regtest":
		return &chaincfg.RegressionNetParams, nil
	default:
		return nil, fmt.Errorf("unknown bitcoin network %q", c.BitcoinNetwork)
	}
}
