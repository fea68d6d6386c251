package lib

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/alecthomas/units"
)

/* This file implements the 'user controlled' configuration of each module of the node */

const (
	// FILE NAMES in the 'data directory'
	ConfigFilePath   = "config.json"     // the file path for the node configuration
	MinerKeyPath     = "miner_key.json"  // the file path for the node's encrypted miner key
	GenesisFilePath  = "genesis.json"    // the file path for the genesis miner list
	UnknownNetworkId = uint64(0)         // the default 'unknown' network id
	MainnetNetworkId = uint64(1)         // the identifier of the mainnet
)

// Config is the structure of the user configuration options for a node
type Config struct {
	MainConfig      // main options spanning all modules
	ConsensusConfig // round / term scheduling options
	StoreConfig     // persistence options
}

// DefaultConfig() returns a Config with developer set options
func DefaultConfig() Config {
	return Config{
		MainConfig:      DefaultMainConfig(),
		ConsensusConfig: DefaultConsensusConfig(),
		StoreConfig:     DefaultStoreConfig(),
	}
}

// MAIN CONFIG BELOW

// MainConfig holds options spanning over all modules
type MainConfig struct {
	LogLevel  string `json:"logLevel"`  // any level includes the levels above it: debug < info < warn < error
	NetworkId uint64 `json:"networkId"` // the identifier of this network
	ChainId   uint64 `json:"chainId"`   // the identifier of this chain within the network
}

// DefaultMainConfig() sets log level to 'info' on the mainnet ids
func DefaultMainConfig() MainConfig {
	return MainConfig{
		LogLevel:  "info",
		NetworkId: MainnetNetworkId,
		ChainId:   1,
	}
}

// GetLogLevel() parses the configured log string into a level threshold
func (m *MainConfig) GetLogLevel() int32 { return ParseLogLevel(m.LogLevel) }

// CONSENSUS CONFIG BELOW

// ConsensusConfig holds the round and term scheduling options
// NOTE: these values are consensus-affecting; all nodes on a chain must share them
type ConsensusConfig struct {
	MiningIntervalMS       int64 `json:"miningIntervalMS"`       // the length of a single miner time slot in milliseconds
	MaximumTinyBlocksCount int64 `json:"maximumTinyBlocksCount"` // the per-slot tiny block quota under normal network conditions
	PeriodSecondsPerTerm   int64 `json:"periodSecondsPerTerm"`   // the length of a term (election epoch) in seconds
	MaximumMissedTimeSlots int64 `json:"maximumMissedTimeSlots"` // missed slot count after which a miner is reported in the term snapshot
}

// DefaultConsensusConfig() returns the developer recommended scheduling configuration
func DefaultConsensusConfig() ConsensusConfig {
	return ConsensusConfig{
		MiningIntervalMS:       4000,
		MaximumTinyBlocksCount: 8,
		PeriodSecondsPerTerm:   604800, // 7 days
		MaximumMissedTimeSlots: 1024,
	}
}

// MiningInterval() returns the configured time slot length as a duration
func (c *ConsensusConfig) MiningInterval() time.Duration {
	return time.Duration(c.MiningIntervalMS) * time.Millisecond
}

// TermPeriod() returns the configured term length as a duration
func (c *ConsensusConfig) TermPeriod() time.Duration {
	return time.Duration(c.PeriodSecondsPerTerm) * time.Second
}

// STORE CONFIG BELOW

// StoreConfig is user configuration for the key value database
type StoreConfig struct {
	DataDirPath  string `json:"dataDirPath"`  // path of the designated folder where the application stores its data
	DBName       string `json:"dbName"`       // name of the database
	InMemory     bool   `json:"inMemory"`     // non-disk database, only for testing
	ValueLogSize int64  `json:"valueLogSize"` // maximum size of the database value log in bytes
}

// DefaultDataDirPath() is $USERHOME/.sequoia
func DefaultDataDirPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		panic(err)
	}
	return filepath.Join(home, ".sequoia")
}

// DefaultStoreConfig() returns the developer recommended store configuration
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		DataDirPath:  DefaultDataDirPath(),
		DBName:       "sequoia",
		InMemory:     false,
		ValueLogSize: int64(256 * units.MB),
	}
}

// WriteToFile() saves the Config object to a file as indented JSON
func (c Config) WriteToFile(filepath string) error {
	configString, err := MarshalJSONIndentString(c)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath, []byte(configString), os.ModePerm)
}

// NewConfigFromFile() populates a Config object from a JSON file
func NewConfigFromFile(filePath string) (Config, ErrorI) {
	bz, err := os.ReadFile(filePath)
	if err != nil {
		return Config{}, ErrReadFile(err)
	}
	c := DefaultConfig()
	if err = json.Unmarshal(bz, &c); err != nil {
		return Config{}, ErrJSONUnmarshal(err)
	}
	return c, nil
}

// NewDefaultConfig() returns the default config after ensuring the data dir exists
func NewDefaultConfig() (Config, ErrorI) {
	c := DefaultConfig()
	if err := os.MkdirAll(c.DataDirPath, os.ModePerm); err != nil {
		return Config{}, ErrWriteFile(err)
	}
	return c, nil
}
