package config

import (
	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	"github.com/fathurwithyou/silberschatz-sub001/pkg/concurrency"
	"github.com/fathurwithyou/silberschatz-sub001/pkg/storage/index/btree"
)

// Config is the engine's static configuration, read from a TOML file.
type Config struct {
	Listen     string `toml:"listen"`
	DataDir    string `toml:"data_dir"`
	Strategy   string `toml:"strategy"`
	IndexOrder int    `toml:"index_order"`

	Log LogConfig `toml:"log"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	Path   string `toml:"path"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Listen:     "127.0.0.1:4422",
		DataDir:    "data",
		Strategy:   "two-phase-locking",
		IndexOrder: 32,
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a TOML file over the defaults: absent keys keep their default
// values.
func Load(path string) (Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, errors.Wrapf(err, "loading config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the engine cannot start with.
func (c Config) Validate() error {
	if c.Listen == "" {
		return errors.New("listen address must not be empty")
	}
	if c.DataDir == "" {
		return errors.New("data_dir must not be empty")
	}
	if c.IndexOrder < btree.MinOrder {
		return errors.Errorf("index_order %d below minimum %d", c.IndexOrder, btree.MinOrder)
	}
	if _, err := concurrency.ParseAlgorithm(c.Strategy); err != nil {
		return err
	}
	return nil
}

// Algorithm resolves the configured strategy name.
func (c Config) Algorithm() (concurrency.Algorithm, error) {
	return concurrency.ParseAlgorithm(c.Strategy)
}
