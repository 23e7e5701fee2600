package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/ilyakaznacheev/cleanenv"
)

// Config represents the main configuration for pstalker.
type Config struct {
	HostID     string           `toml:"host_id" env:"PSTALKER_HOST_ID"`
	BaseDir    string           `toml:"base_dir"`
	LogDir     string           `toml:"log_dir" env:"PSTALKER_LOG_DIR"`
	Database   DatabaseConfig   `toml:"database"`
	Tracking   TrackingConfig   `toml:"tracking"`
	Backup     BackupConfig     `toml:"backup"`
	Export     ExportConfig     `toml:"export"`
	Vault      VaultConfig      `toml:"vault"`
	Encryption EncryptionConfig `toml:"encryption"`
	Log        LogConfig        `toml:"log"`
}

// DatabaseConfig locates the usage store.
type DatabaseConfig struct {
	Type        string   `toml:"type" env:"PSTALKER_DB_TYPE" env-default:"sqlite"`
	Path        string   `toml:"path" env:"PSTALKER_DB_PATH"`
	BusyTimeout Duration `toml:"busy_timeout" env:"PSTALKER_DB_BUSY_TIMEOUT" env-default:"2s"`
}

// TrackingConfig tunes the sampler loop.
type TrackingConfig struct {
	Interval      Duration `toml:"interval" env:"PSTALKER_TRACK_INTERVAL" env-default:"1s"`
	IdleThreshold Duration `toml:"idle_threshold" env:"PSTALKER_IDLE_THRESHOLD" env-default:"5m"`
	// MaxTickGap caps how much time a single tick may account for; longer
	// gaps (suspend, stalls) count as one interval.
	MaxTickGap Duration `toml:"max_tick_gap" env:"PSTALKER_MAX_TICK_GAP" env-default:"5s"`
}

// BackupConfig controls local store snapshots.
type BackupConfig struct {
	Dir    string `toml:"dir" env:"PSTALKER_BACKUP_DIR"`
	Prefix string `toml:"prefix" env:"PSTALKER_BACKUP_PREFIX" env-default:"pstalker"`
	// Schedule is a cron spec for automatic backups while tracking. Empty disables.
	Schedule  string `toml:"schedule" env:"PSTALKER_BACKUP_SCHEDULE"`
	Retention int    `toml:"retention" env:"PSTALKER_BACKUP_RETENTION"` // 0 keeps all
}

type ExportConfig struct {
	Dir string `toml:"dir" env:"PSTALKER_EXPORT_DIR"`
}

// VaultConfig represents configuration for an off-machine backup destination.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type VaultConfig struct {
	Type string `toml:"type"` // "", "filesystem", "memory" or "s3"
	Name string `toml:"name"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket   string `toml:"s3_bucket,omitempty"`
	S3Prefix   string `toml:"s3_prefix,omitempty"`
	S3Region   string `toml:"s3_region,omitempty"`
	S3Endpoint string `toml:"s3_endpoint,omitempty"`

	// Credentials never live in the file.
	S3AccessKeyID     string `toml:"-" env:"PSTALKER_S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `toml:"-" env:"PSTALKER_S3_SECRET_ACCESS_KEY"`

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSVaultRoot string `toml:"fs_vault_root,omitempty"`
}

// EncryptionConfig holds paths to the age key pair used for pushed backups.
type EncryptionConfig struct {
	Type           string `toml:"type"` // "" (none), "age" or "test"
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
}

type LogConfig struct {
	Level string `toml:"level" env:"PSTALKER_LOG_LEVEL" env-default:"info"`
}

// Duration is a time.Duration written as a string ("1s", "5m") in TOML and
// environment variables.
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

// NewConfig creates a new Config with the provided values and default paths
// under baseDir.
func NewConfig(hostID, baseDir string) *Config {
	cfg := &Config{
		HostID:  hostID,
		BaseDir: baseDir,
		Database: DatabaseConfig{
			Type:        "sqlite",
			BusyTimeout: Duration(2 * time.Second),
		},
		Tracking: TrackingConfig{
			Interval:      Duration(time.Second),
			IdleThreshold: Duration(5 * time.Minute),
			MaxTickGap:    Duration(5 * time.Second),
		},
		Backup: BackupConfig{Prefix: "pstalker"},
		Log:    LogConfig{Level: "info"},
	}
	cfg.fillPaths()
	return cfg
}

// fillPaths derives every unset path from BaseDir.
func (c *Config) fillPaths() {
	if c.BaseDir == "" {
		return
	}
	setDefault := func(field *string, elem ...string) {
		if *field == "" {
			*field = filepath.Join(append([]string{c.BaseDir}, elem...)...)
		}
	}
	setDefault(&c.LogDir, "log")
	setDefault(&c.Database.Path, "pstalker.db")
	setDefault(&c.Backup.Dir, "backups")
	setDefault(&c.Export.Dir, "exports")
	setDefault(&c.Encryption.PublicKeyPath, "keys", "pstalker.pub")
	setDefault(&c.Encryption.PrivateKeyPath, "keys", "pstalker.key")
}

// ApplyEnv overrides fields from PSTALKER_* environment variables and fills
// zero fields with their env-default values.
func (c *Config) ApplyEnv() error {
	if err := cleanenv.ReadEnv(c); err != nil {
		return fmt.Errorf("reading environment overrides: %w", err)
	}
	return nil
}

// Validate checks value ranges that would otherwise surface as runtime faults.
func (c *Config) Validate() error {
	var errs []error
	if c.Database.Path == "" {
		errs = append(errs, errors.New("database.path is required"))
	}
	if c.Tracking.Interval <= 0 {
		errs = append(errs, errors.New("tracking.interval must be positive"))
	}
	if c.Tracking.IdleThreshold <= 0 {
		errs = append(errs, errors.New("tracking.idle_threshold must be positive"))
	}
	if c.Tracking.MaxTickGap < c.Tracking.Interval {
		errs = append(errs, errors.New("tracking.max_tick_gap must be at least tracking.interval"))
	}
	if c.Backup.Retention < 0 {
		errs = append(errs, errors.New("backup.retention must not be negative"))
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level))
	}
	return errors.Join(errs...)
}

// Load reads the config file at path, or starts from defaults under baseDir
// when it does not exist, then applies environment overrides.
func Load(path, baseDir string) (*Config, error) {
	cfg, err := ReadFromFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		cfg = &Config{}
	case err != nil:
		return nil, err
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if cfg.BaseDir == "" {
		cfg.BaseDir = baseDir
	}
	cfg.fillPaths()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

func writeToFile(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init writes cfg to path. It refuses to overwrite an existing file.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
