package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// AppName is used for config directories, file names and the env prefix
const AppName = "ebookdl"

// Config holds all configuration options for the ebook downloader
type Config struct {
	// HTTP and file handling for a single download
	Download DownloadConfig `yaml:"download" json:"download"`

	// Search link generation
	Search SearchConfig `yaml:"search" json:"search"`

	// Notification preferences
	Notifications NotificationConfig `yaml:"notifications" json:"notifications"`

	// Download ledger
	History HistoryConfig `yaml:"history" json:"history"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// DownloadConfig holds download-specific configuration
type DownloadConfig struct {
	Folder            string        `yaml:"folder" json:"folder"`
	Timeout           time.Duration `yaml:"timeout" json:"timeout"`
	UserAgent         string        `yaml:"user_agent" json:"user_agent"`
	Accept            string        `yaml:"accept" json:"accept"`
	AcceptLanguage    string        `yaml:"accept_language" json:"accept_language"`
	MaxFilenameLength int           `yaml:"max_filename_length" json:"max_filename_length"`
	OverwriteExisting bool          `yaml:"overwrite_existing" json:"overwrite_existing"`
	InspectPDF        bool          `yaml:"inspect_pdf" json:"inspect_pdf"`
}

// MarshalYAML writes the timeout as a duration string ("1m0s") instead of
// nanoseconds so saved files stay readable and round-trip through Load.
func (d DownloadConfig) MarshalYAML() (interface{}, error) {
	type plain DownloadConfig
	var node yaml.Node
	if err := node.Encode(plain(d)); err != nil {
		return nil, err
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == "timeout" {
			node.Content[i+1] = &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: d.Timeout.String()}
		}
	}
	return &node, nil
}

// SearchConfig holds search link configuration
type SearchConfig struct {
	DefaultSource string `yaml:"default_source" json:"default_source"`
}

// NotificationConfig holds notification preferences
type NotificationConfig struct {
	Enabled          bool   `yaml:"enabled" json:"enabled"`
	OnComplete       bool   `yaml:"on_complete" json:"on_complete"`
	OnError          bool   `yaml:"on_error" json:"on_error"`
	NotificationType string `yaml:"notification_type" json:"notification_type"`
}

// HistoryConfig controls the download ledger
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Download: DownloadConfig{
			Folder:            "downloads",
			Timeout:           60 * time.Second,
			UserAgent:         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			Accept:            "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
			AcceptLanguage:    "id-ID,id;q=0.9,en-US;q=0.8,en;q=0.7",
			MaxFilenameLength: 200,
			OverwriteExisting: true,
			InspectPDF:        true,
		},
		Search: SearchConfig{
			DefaultSource: "all",
		},
		Notifications: NotificationConfig{
			Enabled:          true,
			OnComplete:       true,
			OnError:          true,
			NotificationType: "terminal",
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    "",
		},
		Logging: LoggingConfig{
			Level: "warn",
			File:  "",
		},
	}
}

// LoadFromEnv loads configuration from EBOOKDL_* environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	if dir := os.Getenv("EBOOKDL_DOWNLOAD_DIR"); dir != "" {
		c.Download.Folder = dir
	}
	if timeout := os.Getenv("EBOOKDL_TIMEOUT"); timeout != "" {
		d, err := parseDuration(timeout)
		if err != nil {
			errs = append(errs, fmt.Errorf("EBOOKDL_TIMEOUT: %w", err))
		} else {
			c.Download.Timeout = d
		}
	}
	if userAgent := os.Getenv("EBOOKDL_USER_AGENT"); userAgent != "" {
		c.Download.UserAgent = userAgent
	}
	if overwrite := os.Getenv("EBOOKDL_OVERWRITE"); overwrite != "" {
		c.Download.OverwriteExisting = strings.ToLower(overwrite) == "true"
	}
	if source := os.Getenv("EBOOKDL_SEARCH_SOURCE"); source != "" {
		c.Search.DefaultSource = source
	}
	if notifEnabled := os.Getenv("EBOOKDL_NOTIFICATIONS_ENABLED"); notifEnabled != "" {
		c.Notifications.Enabled = strings.ToLower(notifEnabled) == "true"
	}
	if histEnabled := os.Getenv("EBOOKDL_HISTORY_ENABLED"); histEnabled != "" {
		c.History.Enabled = strings.ToLower(histEnabled) == "true"
	}
	if histPath := os.Getenv("EBOOKDL_HISTORY_PATH"); histPath != "" {
		c.History.Path = histPath
	}
	if logLevel := os.Getenv("EBOOKDL_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFile := os.Getenv("EBOOKDL_LOG_FILE"); logFile != "" {
		c.Logging.File = logFile
	}

	return errors.Join(errs...)
}

// parseDuration accepts Go durations ("90s") and bare seconds ("90")
func parseDuration(s string) (time.Duration, error) {
	if secs, err := strconv.Atoi(s); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(s)
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home, _ := os.UserHomeDir()
	locations := []string{
		".ebookdl.yaml",
		".ebookdl.yml",
	}
	if home != "" {
		locations = append(locations,
			filepath.Join(home, ".config", AppName, "config.yaml"),
			filepath.Join(home, ".config", AppName, "config.yml"),
			filepath.Join(home, ".ebookdl.yaml"),
			filepath.Join(home, ".ebookdl.yml"),
		)
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Download.Folder == "" {
		errs = append(errs, errors.New("download folder is required"))
	}
	if c.Download.Timeout <= 0 {
		errs = append(errs, errors.New("download timeout must be positive"))
	}
	if c.Download.MaxFilenameLength <= 0 {
		errs = append(errs, errors.New("max filename length must be positive"))
	}
	if c.Download.UserAgent == "" {
		errs = append(errs, errors.New("user agent is required"))
	}

	validSources := map[string]bool{
		"all": true, "repo_id": true, "scholar": true,
	}
	if !validSources[strings.ToLower(c.Search.DefaultSource)] {
		errs = append(errs, fmt.Errorf("invalid search source %q (want all, repo_id or scholar)", c.Search.DefaultSource))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	validNotifTypes := map[string]bool{
		"terminal": true, "desktop": true, "none": true,
	}
	if !validNotifTypes[strings.ToLower(c.Notifications.NotificationType)] {
		errs = append(errs, errors.New("invalid notification type"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Only keys present in the map override file and environment values.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if folder, ok := flags["output"].(string); ok && folder != "" {
		c.Download.Folder = folder
	}
	if timeout, ok := flags["timeout"].(time.Duration); ok && timeout > 0 {
		c.Download.Timeout = timeout
	}
	if userAgent, ok := flags["user-agent"].(string); ok && userAgent != "" {
		c.Download.UserAgent = userAgent
	}
	if overwrite, ok := flags["overwrite"].(bool); ok {
		c.Download.OverwriteExisting = overwrite
	}
	if inspect, ok := flags["inspect-pdf"].(bool); ok {
		c.Download.InspectPDF = inspect
	}
	if source, ok := flags["source"].(string); ok && source != "" {
		c.Search.DefaultSource = source
	}
	if enabled, ok := flags["notifications"].(bool); ok {
		c.Notifications.Enabled = enabled
	}
	if enabled, ok := flags["history"].(bool); ok {
		c.History.Enabled = enabled
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// HistoryPath returns the configured ledger path or the default one in Dir()
func (c *Config) HistoryPath() (string, error) {
	if c.History.Path != "" {
		return c.History.Path, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history.db"), nil
}

// Dir returns the per-user configuration directory, creating it if needed
func Dir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", AppName)
	case "windows":
		configDir = filepath.Join(os.Getenv("APPDATA"), AppName)
	default:
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			configDir = filepath.Join(xdgConfig, AppName)
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configDir = filepath.Join(home, ".config", AppName)
		}
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// godotenv never overrides variables that are already set
	_ = godotenv.Load(".env")
	if home, err := os.UserHomeDir(); err == nil {
		_ = godotenv.Load(filepath.Join(home, ".ebookdl.env"))
	}

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
