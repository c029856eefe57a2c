// Package config loads the organization credentials, output location and
// report settings from the environment, an optional .env file and an
// optional YAML settings file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/Sternrassler/idp-reports/pkg/logging"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables.
const (
	EnvOrgURL       = "OKTA_ORG_URL"
	EnvAPIKey       = "OKTA_API_KEY"
	EnvOutputDir    = "IDP_REPORT_OUTPUT_DIR"
	EnvSettingsFile = "IDP_REPORT_CONFIG"
	EnvRedisURL     = "REDIS_URL"
	EnvPushgateway  = "PUSHGATEWAY_URL"
)

// MaxPageLimit is the largest page size the users endpoint accepts.
const MaxPageLimit = 200

// ErrConfigurationMissing is returned when a required setting is absent.
var ErrConfigurationMissing = errors.New("configuration missing")

// Config holds everything a report run needs before its first request.
type Config struct {
	// OrgURL is the organization base URL without trailing slash.
	OrgURL string

	// APIKey is the SSWS API token.
	APIKey string

	// OutputDir receives the generated CSV files.
	OutputDir string

	// SettingsFile is the YAML file Reports was read from, if any.
	SettingsFile string

	// RedisURL enables the shared rate budget store when set.
	RedisURL string

	// PushgatewayURL enables pushing run metrics when set.
	PushgatewayURL string

	Logging logging.Config
	Reports Reports
}

// Reports holds per-report settings.
type Reports struct {
	PageLimit   int                 `yaml:"page_limit"`
	Assignments AssignmentsSettings `yaml:"assignments"`
	FastPass    FastPassSettings    `yaml:"fastpass"`
	Purge       PurgeSettings       `yaml:"purge"`
	Pivot       PivotSettings       `yaml:"pivot"`
}

// AssignmentsSettings configures the application assignment report.
type AssignmentsSettings struct {
	UserTypes []string `yaml:"user_types"`
}

// FastPassSettings configures the FastPass enrollment report.
type FastPassSettings struct {
	UserTypes        []string `yaml:"user_types"`
	DesktopPlatforms []string `yaml:"desktop_platforms"`
	MobilePlatforms  []string `yaml:"mobile_platforms"`
}

// PurgeSettings configures user deletion.
type PurgeSettings struct {
	// KeepDepartment users are never selected for deletion.
	KeepDepartment string `yaml:"keep_department"`
}

// PivotSettings configures the department pivot.
type PivotSettings struct {
	// ActiveStatus is the status value counted as active.
	ActiveStatus string `yaml:"active_status"`
}

// DefaultReports returns the built-in report settings.
func DefaultReports() Reports {
	return Reports{
		PageLimit: MaxPageLimit,
		Assignments: AssignmentsSettings{
			UserTypes: []string{"Full Time", "Contractor", "Intern", "Contractor-1099"},
		},
		FastPass: FastPassSettings{
			UserTypes:        []string{"Full Time", "Contractor - 1099", "Contractor", "Intern"},
			DesktopPlatforms: []string{"WINDOWS", "MACOS"},
			MobilePlatforms:  []string{"IOS", "ANDROID"},
		},
		Purge: PurgeSettings{
			KeepDepartment: "IT",
		},
		Pivot: PivotSettings{
			ActiveStatus: "ACTIVE",
		},
	}
}

// Load reads the given .env files (".env" when none are named; missing
// files are ignored) and then builds the configuration from the process
// environment. Variables already set in the environment win over .env.
// Load does not validate; call Validate before the first request.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", file, err)
		}
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds the configuration from getenv.
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		OrgURL:         strings.TrimRight(strings.TrimSpace(getenv(EnvOrgURL)), "/"),
		APIKey:         strings.TrimSpace(getenv(EnvAPIKey)),
		OutputDir:      getEnvOrDefault(getenv, EnvOutputDir, defaultOutputDir()),
		SettingsFile:   strings.TrimSpace(getenv(EnvSettingsFile)),
		RedisURL:       strings.TrimSpace(getenv(EnvRedisURL)),
		PushgatewayURL: strings.TrimSpace(getenv(EnvPushgateway)),
		Logging:        logging.ConfigFromEnv(getenv),
		Reports:        DefaultReports(),
	}
	cfg.OutputDir = expandHome(cfg.OutputDir)

	if cfg.SettingsFile != "" {
		reports, err := LoadReports(cfg.SettingsFile)
		if err != nil {
			return nil, err
		}
		cfg.Reports = reports
	}

	return cfg, nil
}

// Validate reports missing credentials as ErrConfigurationMissing and
// rejects out-of-range report settings.
func (c *Config) Validate() error {
	var missing []string
	if c.OrgURL == "" {
		missing = append(missing, EnvOrgURL)
	}
	if c.APIKey == "" {
		missing = append(missing, EnvAPIKey)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s must be set as environment variables or in .env", ErrConfigurationMissing, strings.Join(missing, " and "))
	}
	return c.Reports.Validate()
}

// Validate checks report settings.
func (r Reports) Validate() error {
	if r.PageLimit < 1 || r.PageLimit > MaxPageLimit {
		return fmt.Errorf("page_limit must be between 1 and %d (got %d)", MaxPageLimit, r.PageLimit)
	}
	if r.Pivot.ActiveStatus == "" {
		return errors.New("pivot.active_status must not be empty")
	}
	return nil
}

// LoadReports reads report settings from a YAML file. Keys absent from
// the file keep their defaults; unknown keys are rejected.
func LoadReports(path string) (Reports, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Reports{}, fmt.Errorf("read settings file: %w", err)
	}
	return ParseReports(data)
}

// ParseReports decodes YAML report settings over the defaults.
func ParseReports(data []byte) (Reports, error) {
	reports := DefaultReports()
	if len(bytes.TrimSpace(data)) == 0 {
		return reports, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&reports); err != nil {
		return Reports{}, fmt.Errorf("parse settings: %w", err)
	}
	if err := reports.Validate(); err != nil {
		return Reports{}, fmt.Errorf("invalid settings: %w", err)
	}
	return reports, nil
}

// OutputPath joins the output directory with name and extension ".csv".
func (c *Config) OutputPath(name string) string {
	name = strings.TrimSpace(name)
	if !strings.HasSuffix(strings.ToLower(name), ".csv") {
		name += ".csv"
	}
	return filepath.Join(c.OutputDir, name)
}

func getEnvOrDefault(getenv func(string) string, key, defaultValue string) string {
	if value := strings.TrimSpace(getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func defaultOutputDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, "Documents")
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
