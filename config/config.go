/*
Package config loads replica-sync's configuration.

PURPOSE:
  Centralizes every recognized configuration key in one struct, loaded
  from a YAML file with built-in defaults for anything the file omits.
  Favors one small, explicit config surface scaled up to the much larger
  key set a sync daemon needs.

LOADING ORDER:
  1. Defaults()
  2. YAML file, if present (missing file is not an error)
  3. Individual fields may still be overridden by CLI flags in
     cmd/replica-sync; config.Config itself only knows about the file.

SEE ALSO:
  - cmd/replica-sync: wires flags on top of this
  - sync/engine.go: consumes BatchSize/DefaultWindow/InterBatchDelay
*/
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// EntityType names used as map keys and in checkpoints/sync logs.
const (
	EntityCategories       = "categories"
	EntityProducts         = "products"
	EntityCustomers        = "customers"
	EntityBusinessSettings = "business_settings"
	EntityEmployees        = "employees"
	EntityExpenses         = "expenses"
	EntityTransactions     = "transactions"
)

// AllEntities is the registration order the Scheduler runs each tick.
// Order is otherwise insignificant -- entities are independent streams.
var AllEntities = []string{
	EntityCategories,
	EntityBusinessSettings,
	EntityProducts,
	EntityCustomers,
	EntityEmployees,
	EntityExpenses,
	EntityTransactions,
}

type SourceConfig struct {
	ConnectionString string `yaml:"connectionString"`
}

type TargetConfig struct {
	ConnectionString              string `yaml:"connectionString"`
	DatabaseName                  string `yaml:"databaseName"`
	SocketTimeoutSeconds          int    `yaml:"socketTimeoutSeconds"`
	ServerSelectionTimeoutSeconds int    `yaml:"serverSelectionTimeoutSeconds"`
}

func (t TargetConfig) SocketTimeout() time.Duration {
	return time.Duration(t.SocketTimeoutSeconds) * time.Second
}

func (t TargetConfig) ServerSelectionTimeout() time.Duration {
	return time.Duration(t.ServerSelectionTimeoutSeconds) * time.Second
}

type SyncConfig struct {
	IntervalSeconds      int            `yaml:"intervalSeconds"`
	DefaultWindowDays    map[string]int `yaml:"defaultWindowDays"`
	BatchSize            map[string]int `yaml:"batchSize"`
	InterBatchDelayMs    map[string]int `yaml:"interBatchDelayMs"`
	MaxReplayHorizonDays int            `yaml:"maxReplayHorizonDays"`
}

func (s SyncConfig) Interval() time.Duration {
	return time.Duration(s.IntervalSeconds) * time.Second
}

func (s SyncConfig) DefaultWindowFor(entity string) time.Duration {
	if days, ok := s.DefaultWindowDays[entity]; ok {
		return time.Duration(days) * 24 * time.Hour
	}
	return 30 * 24 * time.Hour
}

func (s SyncConfig) BatchSizeFor(entity string) int {
	if n, ok := s.BatchSize[entity]; ok && n > 0 {
		return n
	}
	return 200
}

func (s SyncConfig) InterBatchDelayFor(entity string) time.Duration {
	if ms, ok := s.InterBatchDelayMs[entity]; ok {
		return time.Duration(ms) * time.Millisecond
	}
	return 200 * time.Millisecond
}

func (s SyncConfig) MaxReplayHorizon() time.Duration {
	return time.Duration(s.MaxReplayHorizonDays) * 24 * time.Hour
}

// Config is the top-level configuration surface. Field names track the
// equivalent dotted YAML keys (sync.batchSize.<entity> becomes
// Sync.BatchSize).
type Config struct {
	Source   SourceConfig `yaml:"source"`
	Target   TargetConfig `yaml:"target"`
	Sync     SyncConfig   `yaml:"sync"`
	DeviceID string       `yaml:"deviceId"`
}

// Defaults returns a Config populated with every default named in §6.
func Defaults() Config {
	return Config{
		Source: SourceConfig{
			ConnectionString: "./replica-sync.db",
		},
		Target: TargetConfig{
			ConnectionString:              "mongodb://localhost:27017",
			DatabaseName:                  "replica",
			SocketTimeoutSeconds:          600,
			ServerSelectionTimeoutSeconds: 30,
		},
		Sync: SyncConfig{
			IntervalSeconds: 120,
			DefaultWindowDays: map[string]int{
				EntityTransactions: 3,
			},
			BatchSize: map[string]int{
				EntityTransactions: 250,
				EntityProducts:     500,
				EntityCustomers:    500,
				EntityExpenses:     250,
			},
			InterBatchDelayMs: map[string]int{
				EntityTransactions: 100,
				EntityProducts:     50,
				EntityCustomers:    50,
				EntityExpenses:     50,
			},
			MaxReplayHorizonDays: 90,
		},
		DeviceID: "default-device",
	}
}

// Load reads path (if it exists) on top of Defaults(). A missing file is
// not an error -- defaults alone are a valid configuration for local dev.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Validate fails fast on the "configuration missing" error kind from §7:
// the scheduler should stay Disabled and surface Error status rather than
// start against a source or target it can never reach.
func (c Config) Validate() error {
	if c.Source.ConnectionString == "" {
		return fmt.Errorf("config: source.connectionString is required")
	}
	if c.Target.ConnectionString == "" {
		return fmt.Errorf("config: target.connectionString is required")
	}
	if c.Target.DatabaseName == "" {
		return fmt.Errorf("config: target.databaseName is required")
	}
	if c.DeviceID == "" {
		return fmt.Errorf("config: deviceId is required")
	}
	return nil
}
