// Package config loads an account's INI configuration file:
// config/<exchange>/<account>.ini. Parsing uses gopkg.in/ini.v1;
// Load stops at the first invalid section or key and returns that one
// error, without checking the sections after it. String() leaves the
// credentials out; MaskedCredentials masks them for logging.
package config

import (
	"fmt"
	"strings"

	"github.com/tommy-ca/gridtrader/internal/apperrors"
	"github.com/tommy-ca/gridtrader/internal/grid"
	"github.com/tommy-ca/gridtrader/internal/money"
	"github.com/tommy-ca/gridtrader/internal/pair"
	"gopkg.in/ini.v1"
)

// Config is the fully parsed account configuration.
type Config struct {
	Exchange string
	Account  string

	Pairs []pair.Pair

	// InitialCorePositions is the coin -> reference balance snapshot
	// used for grid sizing, captured by set-balances.
	InitialCorePositions map[string]money.Money

	SellGrid grid.Parameters
	BuyGrid  grid.Parameters

	// Credentials holds the opaque [<exchange>] section verbatim;
	// the core never interprets it, only the exchange adapter does.
	Credentials map[string]string

	// LogLevel is read from an optional [system] section; defaults to
	// INFO if absent.
	LogLevel string

	path string
}

// Load reads and validates an account's INI file.
func Load(path string) (*Config, error) {
	f, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w: %v", path, apperrors.ErrInvalidConfig, err)
	}

	cfg := &Config{
		InitialCorePositions: make(map[string]money.Money),
		Credentials:          make(map[string]string),
		LogLevel:             "INFO",
		path:                 path,
	}

	if err := cfg.loadPairs(f); err != nil {
		return nil, err
	}
	if err := cfg.loadCorePositions(f); err != nil {
		return nil, err
	}
	if cfg.SellGrid, err = loadGridSection(f, "sellgrid", false); err != nil {
		return nil, err
	}
	if cfg.BuyGrid, err = loadGridSection(f, "buygrid", true); err != nil {
		return nil, err
	}
	if s := f.Section("system"); s != nil && s.HasKey("logLevel") {
		cfg.LogLevel = strings.ToUpper(s.Key("logLevel").String())
	}

	return cfg, nil
}

func (c *Config) loadPairs(f *ini.File) error {
	sec, err := f.GetSection("pairs")
	if err != nil {
		return fmt.Errorf("config: missing [pairs] section: %w", apperrors.ErrInvalidConfig)
	}
	raw := sec.Key("pairs").String()
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return fmt.Errorf("config: [pairs].pairs is empty: %w", apperrors.ErrInvalidConfig)
	}
	for _, s := range fields {
		p, err := pair.Parse(s)
		if err != nil {
			return fmt.Errorf("config: %v: %w", err, apperrors.ErrInvalidConfig)
		}
		c.Pairs = append(c.Pairs, p)
	}
	return nil
}

func (c *Config) loadCorePositions(f *ini.File) error {
	sec, err := f.GetSection("initialcorepositions")
	if err != nil {
		return fmt.Errorf("config: missing [initialcorepositions] section: %w", apperrors.ErrInvalidConfig)
	}
	for _, key := range sec.Keys() {
		m, err := money.FromString(key.Value())
		if err != nil {
			return fmt.Errorf("config: initialcorepositions.%s: %v: %w", key.Name(), err, apperrors.ErrInvalidConfig)
		}
		c.InitialCorePositions[strings.ToUpper(key.Name())] = m
	}
	return nil
}

func loadGridSection(f *ini.File, name string, hasProfitTarget bool) (grid.Parameters, error) {
	sec, err := f.GetSection(name)
	if err != nil {
		return grid.Parameters{}, fmt.Errorf("config: missing [%s] section: %w", name, apperrors.ErrInvalidConfig)
	}

	var p grid.Parameters
	var parseErr error
	get := func(key string) money.Money {
		if parseErr != nil {
			return money.Zero
		}
		if !sec.HasKey(key) {
			parseErr = fmt.Errorf("config: [%s].%s is required: %w", name, key, apperrors.ErrInvalidConfig)
			return money.Zero
		}
		m, err := money.FromString(sec.Key(key).String())
		if err != nil {
			parseErr = fmt.Errorf("config: [%s].%s: %v: %w", name, key, err, apperrors.ErrInvalidConfig)
		}
		return m
	}

	p.MajorLevel = get("majorLevel")
	p.Increments = get("increments")
	p.Size = get("size")
	if parseErr != nil {
		return grid.Parameters{}, parseErr
	}

	n, err := sec.Key("numberOfOrders").Int()
	if err != nil || n <= 0 {
		return grid.Parameters{}, fmt.Errorf("config: [%s].numberOfOrders must be a positive integer: %w", name, apperrors.ErrInvalidConfig)
	}
	p.NumberOfOrders = n

	if hasProfitTarget {
		if !sec.HasKey("profitTarget") {
			return grid.Parameters{}, fmt.Errorf("config: [%s].profitTarget is required: %w", name, apperrors.ErrInvalidConfig)
		}
		p.ProfitTarget, err = money.FromString(sec.Key("profitTarget").String())
		if err != nil {
			return grid.Parameters{}, fmt.Errorf("config: [%s].profitTarget: %v: %w", name, err, apperrors.ErrInvalidConfig)
		}
	}

	return p, nil
}

// LoadCredentials reads the opaque [<exchange>] section; the core
// passes it through unparsed to the concrete adapter factory.
func LoadCredentials(path, exchangeName string) (map[string]string, error) {
	f, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w: %v", path, apperrors.ErrInvalidConfig, err)
	}
	sec, err := f.GetSection(exchangeName)
	if err != nil {
		return nil, fmt.Errorf("config: missing [%s] section: %w", exchangeName, apperrors.ErrInvalidConfig)
	}
	out := make(map[string]string)
	for _, key := range sec.Keys() {
		out[key.Name()] = key.Value()
	}
	return out, nil
}

// WriteCorePositions atomically rewrites the [initialcorepositions]
// section of the account's config file in place, for set-balances:
// write to a temp file, then rename. Every other
// section is preserved verbatim.
func WriteCorePositions(path string, balances map[string]money.Money) error {
	f, err := ini.Load(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w: %v", path, apperrors.ErrInvalidConfig, err)
	}

	f.DeleteSection("initialcorepositions")
	sec, err := f.NewSection("initialcorepositions")
	if err != nil {
		return fmt.Errorf("config: rebuild [initialcorepositions]: %w", err)
	}
	for coin, bal := range balances {
		if _, err := sec.NewKey(coin, bal.String()); err != nil {
			return fmt.Errorf("config: write initialcorepositions.%s: %w", coin, err)
		}
	}

	tmp := path + ".tmp"
	if err := f.SaveTo(tmp); err != nil {
		return fmt.Errorf("config: write temp file: %w", err)
	}
	if err := atomicRename(tmp, path); err != nil {
		return err
	}
	return nil
}

// String renders the config with credentials masked, for diagnostic
// logging.
func (c *Config) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "account=%s exchange=%s pairs=%v logLevel=%s\n", c.Account, c.Exchange, c.Pairs, c.LogLevel)
	for coin, bal := range c.InitialCorePositions {
		fmt.Fprintf(&b, "  core[%s]=%s\n", coin, bal)
	}
	return b.String()
}

func maskSecret(s string) string {
	if len(s) <= 8 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + strings.Repeat("*", len(s)-8) + s[len(s)-4:]
}

// MaskedCredentials returns Credentials with values that look like
// secrets (api/secret keys) masked, for logging.
func MaskedCredentials(creds map[string]string) map[string]string {
	out := make(map[string]string, len(creds))
	for k, v := range creds {
		lower := strings.ToLower(k)
		if strings.Contains(lower, "key") || strings.Contains(lower, "secret") || strings.Contains(lower, "pass") {
			out[k] = maskSecret(v)
		} else {
			out[k] = v
		}
	}
	return out
}
