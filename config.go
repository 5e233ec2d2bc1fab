package banklink

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	Bank struct {
		ID            string `yaml:"id"`
		Port          int    `yaml:"port"`
		AutoProvision bool   `yaml:"auto_provision"`
		// NodeID seeds the snowflake generator for transfer references and
		// must differ between banks sharing logs.
		NodeID int64 `yaml:"node_id"`
	} `yaml:"bank"`
	Database struct {
		Driver           string `yaml:"driver"`
		ConnectionString string `yaml:"conn_str"`
		// Seed holds opening balances applied by the seeder, keyed by client id.
		Seed map[int64]string `yaml:"seed"`
	} `yaml:"database"`
	Destination struct {
		BaseURL string          `yaml:"base_url"`
		Timeout time.Duration   `yaml:"timeout"`
		Breaker BreakerSettings `yaml:"breaker"`
	} `yaml:"destination"`
	Limits   LimitsConfig `yaml:"limits"`
	LogLevel string       `yaml:"log_level"`
}

type LimitsConfig struct {
	Account        int64         `yaml:"account"`
	ReceiveCredit  int64         `yaml:"receive_credit"`
	Transfer       int64         `yaml:"transfer"`
	Statement      int64         `yaml:"statement"`
	AcquireTimeout time.Duration `yaml:"acquire_timeout"`
}

func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Bank.ID = "BANK_A"
	cfg.Bank.Port = 5000
	cfg.Bank.AutoProvision = true
	cfg.Bank.NodeID = 1
	cfg.Database.Driver = DriverPostgres
	cfg.Destination.BaseURL = "http://127.0.0.1:5001"
	cfg.Destination.Timeout = 10 * time.Second
	cfg.Destination.Breaker = BreakerSettings{
		MaxFailures: 5,
		OpenTimeout: 30 * time.Second,
	}
	cfg.Limits = LimitsConfig{
		Account:        64,
		ReceiveCredit:  64,
		Transfer:       64,
		Statement:      16,
		AcquireTimeout: 2 * time.Second,
	}
	cfg.LogLevel = "info"
	return cfg
}

// LoadConfig reads the YAML file at path over the defaults, then applies
// environment overrides. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		cfgfl, err := os.Open(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			defer cfgfl.Close()
			if err = yaml.NewDecoder(cfgfl).Decode(cfg); err != nil {
				return nil, fmt.Errorf("decode %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func (cfg *Config) applyEnv() error {
	if v, ok := os.LookupEnv("BANK_NAME"); ok {
		cfg.Bank.ID = v
	}
	if v, ok := os.LookupEnv("PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		cfg.Bank.Port = port
	}
	if v, ok := os.LookupEnv("AUTO_PROVISION"); ok {
		ap, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("AUTO_PROVISION: %w", err)
		}
		cfg.Bank.AutoProvision = ap
	}
	if v, ok := os.LookupEnv("STORAGE_DRIVER"); ok {
		cfg.Database.Driver = v
	}
	if v, ok := os.LookupEnv("DB_CONN_STR"); ok {
		cfg.Database.ConnectionString = v
	}
	if v, ok := os.LookupEnv("DEST_API_BASE"); ok {
		cfg.Destination.BaseURL = v
	}
	if v, ok := os.LookupEnv("DEST_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("DEST_TIMEOUT: %w", err)
		}
		cfg.Destination.Timeout = d
	}
	if v, ok := os.LookupEnv("LOG_LEVEL"); ok {
		cfg.LogLevel = v
	}
	return nil
}

func (cfg *Config) Validate() error {
	fields := map[string]string{}
	if cfg.Bank.ID == "" {
		fields["bank.id"] = "required"
	}
	if cfg.Bank.Port <= 0 || cfg.Bank.Port > 65535 {
		fields["bank.port"] = "out of range"
	}
	switch cfg.Database.Driver {
	case DriverMemory:
	case DriverPostgres:
		if cfg.Database.ConnectionString == "" {
			fields["database.conn_str"] = "required for postgres driver"
		}
	default:
		fields["database.driver"] = "must be postgres or memory"
	}
	if cfg.Destination.BaseURL == "" {
		fields["destination.base_url"] = "required"
	}
	if cfg.Destination.Timeout <= 0 {
		fields["destination.timeout"] = "must be positive"
	}
	if cfg.Destination.Breaker.MaxFailures == 0 {
		fields["destination.breaker.max_failures"] = "must be positive"
	}
	if cfg.Limits.Account <= 0 || cfg.Limits.ReceiveCredit <= 0 || cfg.Limits.Transfer <= 0 || cfg.Limits.Statement <= 0 {
		fields["limits"] = "must be positive"
	}
	if len(fields) > 0 {
		return ErrBadRequest{Fields: fields}
	}
	return nil
}
