package cmd

import (
	"time"

	"github.com/spf13/viper"
)

// Keep the configuration's fields as "text" as possible.
// Its easier to load it from env vars or a config file.

// ChainConfig is the deployment of one side of the bridge.
type ChainConfig struct {
	ChainID                    string // decimal
	Owner                      string // hex address owning the endpoint and quorum
	Validators                 string // comma separated hex addresses
	RequiredSignatures         uint64
	DailyLimit                 string // decimal, smallest token unit
	MaxPerTx                   string
	MinPerTx                   string
	ExecutionDailyLimit        string
	ExecutionMaxPerTx          string
	RequiredBlockConfirmations uint64
	GasPrice                   string // decimal
}

type TokenConfig struct {
	Name     string
	Symbol   string
	Decimals uint8
}

type BridgeServerConfig struct {
	Home    ChainConfig
	Foreign ChainConfig

	// bridgeable token minted on the home side
	HomeToken TokenConfig
	// erc20-like token escrowed on the foreign side
	ForeignToken       TokenConfig
	ForeignTokenSupply string // decimal, minted to ForeignTokenHolder at start
	ForeignTokenHolder string // hex address

	// state side
	DbFilePath      string
	FrequencyToSync time.Duration
	SyncBatchSize   int

	// Http side
	HttpIp   string // eg. 0.0.0.0
	HttpPort string // eg. 8080
	Relayer  string // hex address sending attestation txs

	LogLevel  string
	LogFormat string
}

func readChainConfig(v *viper.Viper, prefix string) ChainConfig {
	return ChainConfig{
		ChainID:                    v.GetString(prefix + "_CHAIN_ID"),
		Owner:                      v.GetString(prefix + "_OWNER"),
		Validators:                 v.GetString(prefix + "_VALIDATORS"),
		RequiredSignatures:         v.GetUint64(prefix + "_REQUIRED_SIGNATURES"),
		DailyLimit:                 v.GetString(prefix + "_DAILY_LIMIT"),
		MaxPerTx:                   v.GetString(prefix + "_MAX_PER_TX"),
		MinPerTx:                   v.GetString(prefix + "_MIN_PER_TX"),
		ExecutionDailyLimit:        v.GetString(prefix + "_EXECUTION_DAILY_LIMIT"),
		ExecutionMaxPerTx:          v.GetString(prefix + "_EXECUTION_MAX_PER_TX"),
		RequiredBlockConfirmations: v.GetUint64(prefix + "_REQUIRED_BLOCK_CONFIRMATIONS"),
		GasPrice:                   v.GetString(prefix + "_GAS_PRICE"),
	}
}

func readTokenConfig(v *viper.Viper, prefix string) TokenConfig {
	return TokenConfig{
		Name:     v.GetString(prefix + "_NAME"),
		Symbol:   v.GetString(prefix + "_SYMBOL"),
		Decimals: uint8(v.GetUint(prefix + "_DECIMALS")),
	}
}

// ReadBridgeServerConfig reads the server configuration from v.
// Unset keys fall back to the defaults below.
func ReadBridgeServerConfig(v *viper.Viper) *BridgeServerConfig {
	v.SetDefault("HOME_TOKEN_DECIMALS", 18)
	v.SetDefault("FOREIGN_TOKEN_DECIMALS", 18)
	v.SetDefault("HOME_GAS_PRICE", "1000000000")
	v.SetDefault("FOREIGN_GAS_PRICE", "1000000000")
	v.SetDefault("HOME_REQUIRED_BLOCK_CONFIRMATIONS", 8)
	v.SetDefault("FOREIGN_REQUIRED_BLOCK_CONFIRMATIONS", 8)
	v.SetDefault("FOREIGN_TOKEN_SUPPLY", "0")
	v.SetDefault("DB_FILE_PATH", "bridge.db")
	v.SetDefault("SYNC_FREQUENCY", defaultFrequencyToSync)
	v.SetDefault("SYNC_BATCH_SIZE", defaultSyncBatchSize)
	v.SetDefault("HTTP_IP", "0.0.0.0")
	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")

	return &BridgeServerConfig{
		Home:               readChainConfig(v, "HOME"),
		Foreign:            readChainConfig(v, "FOREIGN"),
		HomeToken:          readTokenConfig(v, "HOME_TOKEN"),
		ForeignToken:       readTokenConfig(v, "FOREIGN_TOKEN"),
		ForeignTokenSupply: v.GetString("FOREIGN_TOKEN_SUPPLY"),
		ForeignTokenHolder: v.GetString("FOREIGN_TOKEN_HOLDER"),
		DbFilePath:         v.GetString("DB_FILE_PATH"),
		FrequencyToSync:    v.GetDuration("SYNC_FREQUENCY"),
		SyncBatchSize:      v.GetInt("SYNC_BATCH_SIZE"),
		HttpIp:             v.GetString("HTTP_IP"),
		HttpPort:           v.GetString("HTTP_PORT"),
		Relayer:            v.GetString("RELAYER_ADDR"),
		LogLevel:           v.GetString("LOG_LEVEL"),
		LogFormat:          v.GetString("LOG_FORMAT"),
	}
}
