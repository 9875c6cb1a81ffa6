// Package config loads the top-level dnsmgr configuration, mirroring
// spec.md §6's schema. It is deliberately thin: no flag framework, no
// multi-file merge, no schema migration — general config-loading
// robustness is a named Non-goal. It exists to give the rest of the
// module something concrete to consume.
package config

import (
	"fmt"
	"os"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// Error reports a missing configuration file or malformed YAML.
type Error struct {
	Msg string
	Err error
}

func (e *Error) Error() string { return fmt.Sprintf("config: %s: %v", e.Msg, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// ServiceCommands are the printf-style command templates used to restart
// the name server or reload a single zone. `{zone}` is substituted before
// the resulting string is split on whitespace.
type ServiceCommands struct {
	Restart    string `yaml:"restart"`
	ReloadZone string `yaml:"reload_zone"`
}

// DNSServerConfig is the `dns_server.config` block: everything the
// Config Parser and Reconciler need to talk to one name-server instance.
type DNSServerConfig struct {
	Host        string          `yaml:"host"`
	Port        string          `yaml:"port"`
	IncludeDir  string          `yaml:"includedir"`
	IncludeFile string          `yaml:"includefile"` // template using {zone}
	TmpDir      string          `yaml:"tmpdir"`
	Directory   string          `yaml:"directory"`
	ConfigFile  string          `yaml:"configfile"`
	IgnoreZones []string        `yaml:"ignorezones"`
	Cmd         ServiceCommands `yaml:"cmd"`
}

// DNSServer is the `dns_server` block: which driver to use, and its
// configuration.
type DNSServer struct {
	Driver string          `yaml:"driver"`
	Enable *bool           `yaml:"enable"` // nil means enabled (default)
	Config DNSServerConfig `yaml:"config"`
}

// IsEnabled reports whether the DNS server integration should run. nil
// Enable means enabled, matching dnsmgr.py's `except AttributeError: pass`
// default-enabled behavior.
func (d DNSServer) IsEnabled() bool {
	return d.Enable == nil || *d.Enable
}

// DHCPFamilyConfig is one address family's ("ipv4" or "ipv6") DHCP
// settings.
type DHCPFamilyConfig struct {
	Enable      bool   `yaml:"enable"`
	IncludeFile string `yaml:"include_file"`
	Restart     string `yaml:"restart"`
}

// DHCPServer is the `dhcp_server` block.
type DHCPServer struct {
	Driver string           `yaml:"driver"`
	Enable bool             `yaml:"enable"`
	IPv4   DHCPFamilyConfig `yaml:"ipv4"`
	IPv6   DHCPFamilyConfig `yaml:"ipv6"`
}

// RecordSource names one loader plugin and the input path it reads,
// matching a `records` list entry.
type RecordSource struct {
	Type string `yaml:"type"`
	Name string `yaml:"name"`
}

// API is the optional HTTP control surface block.
type API struct {
	Enable          bool     `yaml:"enable"`
	Listen          string   `yaml:"listen"`
	AllowedIPs      []string `yaml:"allowed_ips"`
	BasicAuthUser   string   `yaml:"basic_auth_user"`
	BasicAuthHash   string   `yaml:"basic_auth_hash"` // bcrypt hash
	JWTSecret       string   `yaml:"jwt_secret"`
	RateLimitPerMin int      `yaml:"rate_limit_per_minute"`
}

// Config is the full top-level configuration document.
type Config struct {
	DNSServer  DNSServer      `yaml:"dns_server"`
	DHCPServer DHCPServer     `yaml:"dhcp_server"`
	Records    []RecordSource `yaml:"records"`
	API        *API           `yaml:"api"`
}

// Load reads and parses the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Msg: fmt.Sprintf("cannot read configuration file %q", path), Err: err}
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, &Error{Msg: fmt.Sprintf("cannot parse configuration file %q", path), Err: err}
	}
	if cfg.DNSServer.Config.Cmd.Restart == "" {
		return nil, &Error{Msg: "dns_server.config.cmd.restart is required", Err: fmt.Errorf("missing key")}
	}
	return &cfg, nil
}

// HashPassword bcrypt-hashes a plaintext password for storage in
// api.basic_auth_hash, matching the teacher's master-password handling.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("config: hashing password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the bcrypt hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
