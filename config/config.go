package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Bytes per MB
const MB = 1024 * 1024

// Default configuration constants. See [Config] for field descriptions.
const (
	// DefaultBlockSize is the size of each file block in bytes. Small relative
	// to production block sizes so that test fixtures exercise multi-block
	// files without huge lengths.
	DefaultBlockSize = 64 * MB

	// DefaultReplication is the replication factor assumed for new files
	DefaultReplication = 3

	// DefaultRootOwner is the owner assigned to the namespace root
	DefaultRootOwner = "hdfs"

	// DefaultRootGroup is the group assigned to the namespace root
	DefaultRootGroup = "supergroup"

	// DefaultRootPerm is the permission bits assigned to the namespace root
	DefaultRootPerm = 0o755

	// DefaultFilePerm is the permission bits assigned to new files
	DefaultFilePerm = 0o644

	// DefaultDirPerm is the permission bits assigned to new directories
	DefaultDirPerm = 0o755
)

// Config contains runtime configuration values for the namespace service.
type Config struct {
	BlockSize   int64  // Size of each file block in bytes (Default 64MB)
	Replication int16  // Replication factor assumed for new files (Default 3)
	RootOwner   string // Owner assigned to the namespace root (Default "hdfs")
	RootGroup   string // Group assigned to the namespace root (Default "supergroup")
	RootPerm    uint16 // Permission bits assigned to the namespace root (Default 0755)
	FilePerm    uint16 // Permission bits assigned to new files (Default 0644)
	DirPerm     uint16 // Permission bits assigned to new directories (Default 0755)
}

// ConfigOverride uses pointer fields to distinguish between unset and zero values
// when loading partial configuration. See [Config] for field descriptions.
type ConfigOverride struct {
	BlockSize   *int64  `yaml:"block_size,omitempty" json:"block_size,omitempty"`
	Replication *int16  `yaml:"replication,omitempty" json:"replication,omitempty"`
	RootOwner   *string `yaml:"root_owner,omitempty" json:"root_owner,omitempty"`
	RootGroup   *string `yaml:"root_group,omitempty" json:"root_group,omitempty"`
	RootPerm    *uint16 `yaml:"root_perm,omitempty" json:"root_perm,omitempty"`
	FilePerm    *uint16 `yaml:"file_perm,omitempty" json:"file_perm,omitempty"`
	DirPerm     *uint16 `yaml:"dir_perm,omitempty" json:"dir_perm,omitempty"`
}

// NewDefaultConfig creates a new Config with all default values.
func NewDefaultConfig() *Config {
	return &Config{
		BlockSize:   DefaultBlockSize,
		Replication: DefaultReplication,
		RootOwner:   DefaultRootOwner,
		RootGroup:   DefaultRootGroup,
		RootPerm:    DefaultRootPerm,
		FilePerm:    DefaultFilePerm,
		DirPerm:     DefaultDirPerm,
	}
}

// NewConfig creates a Config from defaults with the supplied overrides applied.
func NewConfig(override *ConfigOverride) *Config {
	cfg := NewDefaultConfig()
	if override != nil {
		cfg.Merge(override)
	}
	return cfg
}

// Merge applies non-nil values from override onto this Config.
// This allows partial configuration updates while preserving existing values.
func (c *Config) Merge(override *ConfigOverride) {
	if override.BlockSize != nil {
		c.BlockSize = *override.BlockSize
	}
	if override.Replication != nil {
		c.Replication = *override.Replication
	}
	if override.RootOwner != nil {
		c.RootOwner = *override.RootOwner
	}
	if override.RootGroup != nil {
		c.RootGroup = *override.RootGroup
	}
	if override.RootPerm != nil {
		c.RootPerm = *override.RootPerm
	}
	if override.FilePerm != nil {
		c.FilePerm = *override.FilePerm
	}
	if override.DirPerm != nil {
		c.DirPerm = *override.DirPerm
	}
}

// LoadConfigOverrideFile loads configuration overrides from a file without merging.
// Supports both YAML (.yaml, .yml) and JSON (.json) formats.
func LoadConfigOverrideFile(path string) (*ConfigOverride, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var override ConfigOverride

	// Determine format by file extension
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown config file extension: %s", path)
	}

	return &override, nil
}

// NewConfigFromFile creates a new Config by merging file overrides with defaults.
// This is a convenience function that combines NewDefaultConfig, LoadConfigOverrideFile, and Merge.
func NewConfigFromFile(path string) (*Config, error) {
	cfg := NewDefaultConfig()
	override, err := LoadConfigOverrideFile(path)
	if err != nil {
		return nil, err
	}
	cfg.Merge(override)
	return cfg, nil
}
