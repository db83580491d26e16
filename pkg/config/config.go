// Package config provides configuration management for the accounting tools.
// It loads configuration from environment variables and .env files.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ErrMissingConfig is returned by Validate when required settings are empty.
var ErrMissingConfig = errors.New("missing required configuration")

// Config represents the application configuration.
type Config struct {
	Tripletex TripletexConfig
	Okotools  OkotoolsConfig
	Debug     bool
}

// TripletexConfig represents Tripletex API configuration.
type TripletexConfig struct {
	APIURL        string
	ConsumerToken string
	EmployeeToken string
	CompanyID     int64
	TokenDays     int
}

// TokenLifetime returns how long created session tokens live.
func (c TripletexConfig) TokenLifetime() time.Duration {
	return time.Duration(c.TokenDays) * 24 * time.Hour
}

// OkotoolsConfig represents the local file locations and accounting policy.
type OkotoolsConfig struct {
	Root        string
	ReportsJSON string
	DBPath      string
	VoucherOut  string
	MappingPath string // empty means the embedded default mapping
	FiscalYear  int
}

// Load loads configuration from environment variables.
// It automatically loads .env file from the current directory if available.
// You can optionally specify a custom .env file path.
func Load(envPath ...string) (*Config, error) {
	// Load .env file
	if len(envPath) > 0 && envPath[0] != "" {
		if err := godotenv.Load(envPath[0]); err != nil {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	} else {
		// Try to load .env from current directory (ignore error if not found)
		_ = godotenv.Load()
	}

	companyID, err := parseInt64Env("TRIPLETEX_COMPANY_ID", 0)
	if err != nil {
		return nil, err
	}

	tokenDays, err := parseInt64Env("TRIPLETEX_TOKEN_DAYS", 3)
	if err != nil {
		return nil, err
	}
	if tokenDays < 1 {
		return nil, fmt.Errorf("invalid TRIPLETEX_TOKEN_DAYS: must be at least 1, got %d", tokenDays)
	}

	fiscalYear, err := parseInt64Env("OKOTOOLS_FISCAL_YEAR", int64(time.Now().Year()))
	if err != nil {
		return nil, err
	}

	config := &Config{
		Tripletex: TripletexConfig{
			APIURL:        getEnvOrDefault("TRIPLETEX_API_URL", "https://tripletex.no/v2"),
			ConsumerToken: os.Getenv("TRIPLETEX_CONSUMER_TOKEN"),
			EmployeeToken: os.Getenv("TRIPLETEX_EMPLOYEE_TOKEN"),
			CompanyID:     companyID,
			TokenDays:     int(tokenDays),
		},
		Okotools: OkotoolsConfig{
			Root:        getEnvOrDefault("OKOTOOLS_ROOT", "./reports"),
			ReportsJSON: os.Getenv("OKOTOOLS_REPORTS_JSON"),
			DBPath:      os.Getenv("OKOTOOLS_DB_PATH"),
			VoucherOut:  os.Getenv("OKOTOOLS_VOUCHER_OUT"),
			MappingPath: os.Getenv("OKOTOOLS_MAPPING"),
			FiscalYear:  int(fiscalYear),
		},
		Debug: os.Getenv("DEBUG") == "true",
	}

	return config, nil
}

// Validate checks that every required setting is present and reports all
// missing ones at once. Paths are "section.field", e.g.
// "tripletex.consumerToken".
func (c *Config) Validate(required ...string) error {
	var missing []string

	for _, path := range required {
		section, field, _ := strings.Cut(path, ".")

		var value string
		switch section {
		case "tripletex":
			switch field {
			case "apiUrl":
				value = c.Tripletex.APIURL
			case "consumerToken":
				value = c.Tripletex.ConsumerToken
			case "employeeToken":
				value = c.Tripletex.EmployeeToken
			}
		case "okotools":
			switch field {
			case "root":
				value = c.Okotools.Root
			case "reportsJson":
				value = c.Okotools.ReportsJSON
			case "dbPath":
				value = c.Okotools.DBPath
			case "voucherOut":
				value = c.Okotools.VoucherOut
			}
		}

		if value == "" {
			missing = append(missing, path)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s\nPlease check your .env file or environment variables",
			ErrMissingConfig, strings.Join(missing, ", "))
	}

	return nil
}

// getEnvOrDefault returns the value of the environment variable or a default value if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseInt64Env parses an int64 from an environment variable.
// Returns defaultValue if the environment variable is not set.
func parseInt64Env(key string, defaultValue int64) (int64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}

	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer value for %s: %s", key, value)
	}

	return parsed, nil
}
