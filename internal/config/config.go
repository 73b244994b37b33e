package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	ErrMissingServer   = errors.New("server URL is required")
	ErrMissingIssuer   = errors.New("issuer URL is required")
	ErrMissingClientID = errors.New("client ID is required")
)

// Profile holds the connection settings of the console. Values can come from a YAML profile file
// and from flags; the profile file takes precedence for every field it sets.
type Profile struct {
	Server          string        `yaml:"server"`
	Issuer          string        `yaml:"issuer"`
	ClientID        string        `yaml:"clientId"`
	Scopes          []string      `yaml:"scopes"`
	OverviewPath    string        `yaml:"overviewPath"`
	RoleTimeout     time.Duration `yaml:"roleTimeout"`
	BasicDataGroups []string      `yaml:"basicDataGroups"`
}

// Load reads the profile at path. An empty path yields an empty profile.
func Load(path string) (Profile, error) {
	var p Profile
	if path == "" {
		return p, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("failed to read profile: %w", err)
	}

	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("failed to parse YAML profile: %w", err)
	}

	return p, nil
}

// Over returns base with every field set in p replacing the base value.
func (p Profile) Over(base Profile) Profile {
	if p.Server != "" {
		base.Server = p.Server
	}
	if p.Issuer != "" {
		base.Issuer = p.Issuer
	}
	if p.ClientID != "" {
		base.ClientID = p.ClientID
	}
	if len(p.Scopes) > 0 {
		base.Scopes = p.Scopes
	}
	if p.OverviewPath != "" {
		base.OverviewPath = p.OverviewPath
	}
	if p.RoleTimeout > 0 {
		base.RoleTimeout = p.RoleTimeout
	}
	if len(p.BasicDataGroups) > 0 {
		base.BasicDataGroups = p.BasicDataGroups
	}
	return base
}

// Validate checks the settings needed to reach the API.
func (p Profile) Validate() error {
	if p.Server == "" {
		return ErrMissingServer
	}
	if err := validateURL("server", p.Server); err != nil {
		return err
	}
	if p.OverviewPath != "" && !strings.HasPrefix(p.OverviewPath, "/") {
		return fmt.Errorf("overview path must be absolute: %q", p.OverviewPath)
	}
	if p.RoleTimeout < 0 {
		return fmt.Errorf("role timeout must not be negative")
	}
	return nil
}

// ValidateLogin additionally checks the identity provider settings.
func (p Profile) ValidateLogin() error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.Issuer == "" {
		return ErrMissingIssuer
	}
	if err := validateURL("issuer", p.Issuer); err != nil {
		return err
	}
	if p.ClientID == "" {
		return ErrMissingClientID
	}
	return nil
}

func validateURL(name, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s URL: %w", name, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid %s URL %q: scheme must be http or https", name, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid %s URL %q: missing host", name, raw)
	}
	return nil
}
