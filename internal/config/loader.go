package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// checkConfigFilePermissions returns an error, which makes Load fail, if a
// config file has overly permissive permissions (any group/world bit set). Config files reference key and data
// directories and shouldn't be world-readable on multi-user systems.
func checkConfigFilePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return nil // file access errors are handled by the caller
	}
	mode := info.Mode().Perm()
	if mode&0077 != 0 {
		return fmt.Errorf("config file %s has overly permissive mode %04o; expected 0600 — fix with: chmod 600 %s", path, mode, path)
	}
	return nil
}

// Load reads and validates a node config file from path, filling any
// omitted fields from Defaults.
func Load(path string) (*Config, error) {
	if err := checkConfigFilePermissions(path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConfigNotFound, path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if cfg.Version == 0 {
		cfg.Version = CurrentConfigVersion
	}
	if cfg.Version > CurrentConfigVersion {
		return nil, fmt.Errorf("%w: version %d is newer than supported version %d", ErrConfigVersionTooNew, cfg.Version, CurrentConfigVersion)
	}

	applyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks a Config for the invariants each role depends on:
// a known role, and (for relays) an explicit PeerID, since the source
// and sink well-known ids are assigned automatically.
func Validate(cfg *Config) error {
	switch cfg.Role {
	case RoleSource, RoleSink:
		if id, ok := WellKnownID(cfg.Role); ok {
			cfg.ID = id
		}
	case RoleRelay:
		if cfg.ID == 0 {
			return ErrMissingID
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownRole, cfg.Role)
	}
	return nil
}
