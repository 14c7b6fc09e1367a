// Package config implements configuration management for the story console:
// named profiles and themes in a YAML file with encrypted credentials, plus
// an environment layer for deployment settings.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/storynest/console/internal/i18n"
	"github.com/storynest/console/internal/interfaces"
	"github.com/storynest/console/internal/logging"
	"gopkg.in/yaml.v3"
)

// DefaultProfileName is the profile used when none is requested.
const DefaultProfileName = "default"

// DefaultAPIURL points at a backend running on the developer's machine.
const DefaultAPIURL = "http://localhost:8000/api/v1"

// Config represents the complete configuration file structure
type Config struct {
	DefaultProfile string                        `yaml:"default_profile,omitempty"`
	Profiles       map[string]interfaces.Profile `yaml:"profiles"`
	Themes         map[string]interfaces.Theme   `yaml:"themes"`
}

// Manager implements the ConfigManager interface
type Manager struct {
	configPath   string
	securityMgr  SecurityManager
	logger       *logging.Logger
	mu           sync.Mutex
	cachedConfig *Config
}

// NewManager creates a configuration manager with XDG paths
func NewManager() (*Manager, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, fmt.Errorf("failed to determine configuration path: %w", err)
	}
	keyPath, err := getSecurityKeyPath()
	if err != nil {
		return nil, fmt.Errorf("failed to determine security key path: %w", err)
	}
	return NewManagerAt(configPath, keyPath)
}

// NewManagerAt creates a configuration manager using explicit file locations
func NewManagerAt(configPath, keyPath string) (*Manager, error) {
	securityMgr, err := NewSecurityManagerAt(keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize security manager: %w", err)
	}

	manager := &Manager{
		configPath:  configPath,
		securityMgr: securityMgr,
		logger:      logging.GetConfigLogger(),
	}

	if err := manager.ensureConfigDirectory(); err != nil {
		return nil, fmt.Errorf("failed to create configuration directory: %w", err)
	}

	return manager, nil
}

// getConfigPath determines the OS-appropriate configuration file path
func getConfigPath() (string, error) {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, "storyconsole", "profiles.yaml"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "storyconsole", "profiles.yaml"), nil
}

// ensureConfigDirectory creates the configuration directory with owner-only permissions
func (m *Manager) ensureConfigDirectory() error {
	configDir := filepath.Dir(m.configPath)
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory %s: %w", configDir, err)
	}
	return nil
}

// loadConfig reads and parses the configuration file, creating defaults if
// necessary. Callers hold m.mu.
func (m *Manager) loadConfig() (*Config, error) {
	if m.cachedConfig != nil {
		return m.cachedConfig, nil
	}

	m.logger.LogConfigLoad(m.configPath, "")

	if _, err := os.Stat(m.configPath); os.IsNotExist(err) {
		config := createDefaultConfig()
		if err := m.saveConfig(config); err != nil {
			return nil, fmt.Errorf("failed to create default configuration: %w", err)
		}
		m.cachedConfig = config
		return config, nil
	}

	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file: %w", err)
	}

	for name, profile := range config.Profiles {
		if profile.Auth.Type != "bearer" {
			continue
		}
		if profile.Auth.Token, err = m.decrypt(profile.Auth.Token); err != nil {
			return nil, fmt.Errorf("failed to decrypt token for profile %s: %w", name, err)
		}
		if profile.Auth.RefreshToken, err = m.decrypt(profile.Auth.RefreshToken); err != nil {
			return nil, fmt.Errorf("failed to decrypt refresh token for profile %s: %w", name, err)
		}
		config.Profiles[name] = profile
	}

	// Built-in themes are always available even if the file predates them.
	if config.Themes == nil {
		config.Themes = make(map[string]interfaces.Theme)
	}
	for name, theme := range defaultThemes() {
		if _, ok := config.Themes[name]; !ok {
			config.Themes[name] = theme
		}
	}

	m.cachedConfig = &config
	return &config, nil
}

func (m *Manager) decrypt(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	return m.securityMgr.DecryptCredential(value)
}

func (m *Manager) encrypt(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	return m.securityMgr.EncryptCredential(value)
}

// saveConfig writes the configuration to disk with encrypted credentials
func (m *Manager) saveConfig(config *Config) error {
	configCopy := *config
	configCopy.Profiles = make(map[string]interfaces.Profile, len(config.Profiles))

	for name, profile := range config.Profiles {
		profileCopy := profile
		if profile.Auth.Type == "bearer" {
			var err error
			if profileCopy.Auth.Token, err = m.encrypt(profile.Auth.Token); err != nil {
				return fmt.Errorf("failed to encrypt token for profile %s: %w", name, err)
			}
			if profileCopy.Auth.RefreshToken, err = m.encrypt(profile.Auth.RefreshToken); err != nil {
				return fmt.Errorf("failed to encrypt refresh token for profile %s: %w", name, err)
			}
		}
		configCopy.Profiles[name] = profileCopy
	}

	data, err := yaml.Marshal(&configCopy)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}

	if err := os.WriteFile(m.configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	return nil
}

// createDefaultConfig generates the configuration written on first run
func createDefaultConfig() *Config {
	return &Config{
		DefaultProfile: DefaultProfileName,
		Profiles: map[string]interfaces.Profile{
			DefaultProfileName: DefaultProfile(),
		},
		Themes: defaultThemes(),
	}
}

// DefaultProfile returns the profile used on first run
func DefaultProfile() interfaces.Profile {
	return interfaces.Profile{
		Name:   DefaultProfileName,
		APIURL: DefaultAPIURL,
		Theme:  "storybook",
		Speech: interfaces.SpeechConfig{
			Enabled: true,
			Rate:    0.9,
			Pitch:   1.1,
		},
		Auth: interfaces.AuthConfig{
			Type: "none",
		},
	}
}

func defaultThemes() map[string]interfaces.Theme {
	return map[string]interfaces.Theme{
		"storybook": {
			Name:      "storybook",
			Success:   "#2e9d6a",
			Error:     "#e0475b",
			Warning:   "#f0a202",
			Info:      "#3a86ff",
			Accent:    "#8e5cf7",
			Muted:     "#8a8f98",
			Assistant: "#ff8fab",
			User:      "#4cc9f0",
		},
		"night": {
			Name:      "night",
			Success:   "#a6e22e",
			Error:     "#f92672",
			Warning:   "#fd971f",
			Info:      "#66d9ef",
			Accent:    "#ae81ff",
			Muted:     "#75715e",
			Assistant: "#e6db74",
			User:      "#66d9ef",
		},
	}
}

// LoadProfile retrieves a profile by name from the configuration file
func (m *Manager) LoadProfile(name string) (*interfaces.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	config, err := m.loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if name == "" {
		name = config.DefaultProfile
		if name == "" {
			name = DefaultProfileName
		}
	}

	profile, exists := config.Profiles[name]
	if !exists {
		return nil, fmt.Errorf("profile '%s' not found", name)
	}
	profile.Name = name

	if err := m.ValidateProfile(&profile); err != nil {
		return nil, fmt.Errorf("profile '%s' is invalid: %w", name, err)
	}

	return &profile, nil
}

// SaveProfile persists a profile to the configuration file
func (m *Manager) SaveProfile(profile *interfaces.Profile) error {
	if err := m.ValidateProfile(profile); err != nil {
		return fmt.Errorf("cannot save invalid profile: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	config, err := m.loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if config.Profiles == nil {
		config.Profiles = make(map[string]interfaces.Profile)
	}
	config.Profiles[profile.Name] = *profile

	if err := m.saveConfig(config); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	m.cachedConfig = config
	return nil
}

// ListProfiles returns all available profile names, sorted
func (m *Manager) ListProfiles() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	config, err := m.loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	profileNames := make([]string, 0, len(config.Profiles))
	for name := range config.Profiles {
		profileNames = append(profileNames, name)
	}
	sort.Strings(profileNames)

	return profileNames, nil
}

// LoadTheme retrieves theme configuration by name
func (m *Manager) LoadTheme(name string) (*interfaces.Theme, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	config, err := m.loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	theme, exists := config.Themes[name]
	if !exists {
		return nil, fmt.Errorf("theme '%s' not found", name)
	}
	theme.Name = name

	return &theme, nil
}

// ValidateProfile ensures profile has all required fields
func (m *Manager) ValidateProfile(profile *interfaces.Profile) error {
	if profile == nil {
		return fmt.Errorf("profile cannot be nil")
	}

	if strings.TrimSpace(profile.Name) == "" {
		return fmt.Errorf("profile name cannot be empty")
	}

	if err := ValidateAPIURL(profile.APIURL); err != nil {
		return err
	}

	if profile.Language != "" {
		if lang := i18n.Language(strings.ToLower(profile.Language)); !lang.Valid() {
			return fmt.Errorf("unsupported language %q (expected hebrew or english)", profile.Language)
		}
	}

	if profile.Speech.Rate < 0 || profile.Speech.Rate > 4 {
		return fmt.Errorf("speech rate must be between 0 and 4")
	}

	switch profile.Auth.Type {
	case "none", "":
	case "bearer":
		if strings.TrimSpace(profile.Auth.Token) == "" {
			return fmt.Errorf("bearer token cannot be empty when auth type is 'bearer'")
		}
		if err := m.securityMgr.ValidateTokenFormat(profile.Auth.Token, "bearer"); err != nil {
			return fmt.Errorf("invalid bearer token: %w", err)
		}
	default:
		return fmt.Errorf("unsupported authentication type: %s", profile.Auth.Type)
	}

	return nil
}

// ValidateAPIURL checks that raw is an absolute http(s) URL
func ValidateAPIURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("profile api url cannot be empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid api url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("api url must use http or https (got %q)", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("api url must include a host (got %q)", raw)
	}
	return nil
}

// GetConfigPath returns the path to the configuration file
func (m *Manager) GetConfigPath() string {
	return m.configPath
}

// RotateKey replaces the credential encryption key and re-encrypts every
// saved sign-in with the new one
func (m *Manager) RotateKey() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	config, err := m.loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := m.securityMgr.RotateKey(); err != nil {
		return fmt.Errorf("failed to rotate encryption key: %w", err)
	}
	if err := m.saveConfig(config); err != nil {
		return fmt.Errorf("failed to re-encrypt credentials: %w", err)
	}
	m.logger.Info("Rotated credential encryption key", "profiles", len(config.Profiles))
	return nil
}

// InvalidateCache clears the cached configuration, forcing a reload on next access
func (m *Manager) InvalidateCache() {
	m.mu.Lock()
	m.cachedConfig = nil
	m.mu.Unlock()
}

// DeleteProfile removes a profile from the configuration
func (m *Manager) DeleteProfile(name string) error {
	if name == DefaultProfileName {
		return fmt.Errorf("cannot delete the default profile")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	config, err := m.loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if _, exists := config.Profiles[name]; !exists {
		return fmt.Errorf("profile '%s' does not exist", name)
	}
	delete(config.Profiles, name)

	if err := m.saveConfig(config); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	m.cachedConfig = config
	return nil
}
