package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for gdsync.
type Config struct {
	BaseDir    string           `toml:"base_dir"`
	Index      IndexConfig      `toml:"index"`
	Remote     RemoteConfig     `toml:"remote"`
	Encryption EncryptionConfig `toml:"encryption"`
	Log        LogConfig        `toml:"log"`
	Sync       SyncConfig       `toml:"sync"`
}

// IndexConfig represents configuration for the sync index.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type IndexConfig struct {
	Type    string `toml:"type"`               // "sqlite", "bolt" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for file-backed types
}

// RemoteConfig represents configuration for the remote store.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type RemoteConfig struct {
	Type string `toml:"type"` // "drive", "s3", "filesystem" or "memory"

	// Drive-specific fields (only used when Type == "drive")
	DriveCredentialsPath string `toml:"drive_credentials_path,omitempty"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket   string `toml:"s3_bucket,omitempty"`
	S3Prefix   string `toml:"s3_prefix,omitempty"`
	S3Region   string `toml:"s3_region,omitempty"`
	S3Endpoint string `toml:"s3_endpoint,omitempty"` // for S3-compatible stores; enables path-style addressing

	// Static S3 credentials; the AWS default credential chain is used when empty.
	S3AccessKeyID     string `toml:"s3_access_key_id,omitempty"`
	S3SecretAccessKey string `toml:"s3_secret_access_key,omitempty"`

	// Filesystem-specific fields (only used when Type == "filesystem")
	FSRoot string `toml:"fs_root,omitempty"`
}

// EncryptionConfig holds the client-side encryption settings.
type EncryptionConfig struct {
	Type           string `toml:"type"` // "none" (default), "age" or "test"
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
}

// LogConfig controls the log file and verbosity.
type LogConfig struct {
	Dir   string `toml:"dir"`
	Level string `toml:"level"` // "info" (default) or "debug"
}

// SyncConfig holds defaults for the sync command flags.
type SyncConfig struct {
	Folder         string `toml:"folder,omitempty"`
	RemoteFolderID string `toml:"remote_folder_id,omitempty"`
}

// NewConfig creates a new Config rooted at baseDir with default settings.
func NewConfig(baseDir string) *Config {
	return &Config{
		BaseDir: baseDir,
		Index: IndexConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "index"),
		},
		Remote: RemoteConfig{
			Type:                 "drive",
			DriveCredentialsPath: filepath.Join(baseDir, "credentials.json"),
		},
		Encryption: EncryptionConfig{
			Type:           "none",
			PublicKeyPath:  filepath.Join(baseDir, "keys", "gdsync.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "gdsync.key"),
		},
		Log: LogConfig{
			Dir:   filepath.Join(baseDir, "log"),
			Level: "info",
		},
	}
}

// Validate checks the tagged unions for an unknown type or a missing field.
func (c *Config) Validate() error {
	switch c.Index.Type {
	case "sqlite", "bolt":
		if c.Index.DataDir == "" {
			return fmt.Errorf("index: data_dir required for %s index", c.Index.Type)
		}
	case "memory":
	default:
		return fmt.Errorf("index: unknown type %q", c.Index.Type)
	}

	switch c.Remote.Type {
	case "drive":
		if c.Remote.DriveCredentialsPath == "" {
			return fmt.Errorf("remote: drive_credentials_path required for drive remote")
		}
	case "s3":
		if c.Remote.S3Bucket == "" {
			return fmt.Errorf("remote: s3_bucket required for s3 remote")
		}
	case "filesystem":
		if c.Remote.FSRoot == "" {
			return fmt.Errorf("remote: fs_root required for filesystem remote")
		}
	case "memory":
	default:
		return fmt.Errorf("remote: unknown type %q", c.Remote.Type)
	}

	switch c.Encryption.Type {
	case "", "none", "test":
	case "age":
		if c.Encryption.PublicKeyPath == "" || c.Encryption.PrivateKeyPath == "" {
			return fmt.Errorf("encryption: key paths required for age encryption")
		}
	default:
		return fmt.Errorf("encryption: unknown type %q", c.Encryption.Type)
	}

	switch c.Log.Level {
	case "", "info", "debug":
	default:
		return fmt.Errorf("log: unknown level %q", c.Log.Level)
	}
	return nil
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

// Init writes cfg to a new config file at path. It refuses to overwrite an
// existing file.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
