// Package converter turns selected Z-reports into GBAT10 voucher import files.
package converter

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"
)

//go:embed voucher-mapping.yaml
var defaultMapping []byte

// AccountRule moves a legacy account to a current account and project.
type AccountRule struct {
	Account    string `yaml:"account"`
	NewAccount string `yaml:"new_account"`
	NewProject int    `yaml:"new_project"`
}

// DeviationAccounts holds the cash discrepancy account per register format.
type DeviationAccounts struct {
	Legacy  string `yaml:"legacy"`
	Current string `yaml:"current"`
}

// MappingConfig is the YAML voucher mapping.
type MappingConfig struct {
	LedgerSeries      int                    `yaml:"ledger_series"`
	DefaultProfile    string                 `yaml:"default_profile"`
	DeviationAccounts DeviationAccounts      `yaml:"deviation_accounts"`
	VATProfiles       map[string]map[int]int `yaml:"vat_profiles"`
	LegacyAccounts    []AccountRule          `yaml:"legacy_accounts"`
}

// Mapper resolves VAT codes, legacy accounts and voucher numbering.
type Mapper struct {
	config MappingConfig
	rules  map[string]AccountRule
}

// NewMapper creates a Mapper from a YAML configuration file.
func NewMapper(configPath string) (*Mapper, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseMapper(data)
}

// DefaultMapper returns the mapping shipped with the package.
func DefaultMapper() *Mapper {
	m, err := ParseMapper(defaultMapping)
	if err != nil {
		panic(fmt.Sprintf("converter: embedded mapping: %v", err))
	}
	return m
}

// ParseMapper creates a Mapper from YAML data.
func ParseMapper(data []byte) (*Mapper, error) {
	var config MappingConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if config.LedgerSeries <= 0 {
		return nil, fmt.Errorf("ledger_series must be positive, got %d", config.LedgerSeries)
	}
	if len(config.VATProfiles) == 0 {
		return nil, fmt.Errorf("no vat_profiles configured")
	}
	if config.DefaultProfile == "" {
		config.DefaultProfile = "tripletex"
	}
	if _, ok := config.VATProfiles[config.DefaultProfile]; !ok {
		return nil, fmt.Errorf("default_profile %q is not a configured vat profile", config.DefaultProfile)
	}

	mapper := &Mapper{
		config: config,
		rules:  make(map[string]AccountRule, len(config.LegacyAccounts)),
	}
	for _, rule := range config.LegacyAccounts {
		if _, err := strconv.Atoi(rule.NewAccount); err != nil || len(rule.NewAccount) != 4 {
			return nil, fmt.Errorf("legacy account %s: invalid new_account %q", rule.Account, rule.NewAccount)
		}
		mapper.rules[rule.Account] = rule
	}

	return mapper, nil
}

// Remap returns the current account and project for a legacy account.
func (m *Mapper) Remap(account string) (string, int, bool) {
	rule, ok := m.rules[account]
	if !ok {
		return "", 0, false
	}
	return rule.NewAccount, rule.NewProject, true
}

// VATCode returns the import VAT code for a percentage in the given profile.
func (m *Mapper) VATCode(profile string, percent int) (int, error) {
	codes, ok := m.config.VATProfiles[profile]
	if !ok {
		return 0, fmt.Errorf("unknown vat profile %q", profile)
	}
	code, ok := codes[percent]
	if !ok {
		return 0, fmt.Errorf("no vat code for %d%% in profile %q", percent, profile)
	}
	return code, nil
}

// Profiles returns the configured VAT profile names, sorted.
func (m *Mapper) Profiles() []string {
	names := make([]string, 0, len(m.config.VATProfiles))
	for name := range m.config.VATProfiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultProfile is the VAT profile used when none is requested.
func (m *Mapper) DefaultProfile() string {
	return m.config.DefaultProfile
}

// DeviationAccount returns the cash discrepancy account for the register format.
// Legacy reports are remapped on load, so the legacy account is returned as it
// reads after remapping.
func (m *Mapper) DeviationAccount(legacy bool) string {
	if !legacy {
		return m.config.DeviationAccounts.Current
	}
	account := m.config.DeviationAccounts.Legacy
	if remapped, _, ok := m.Remap(account); ok {
		return remapped
	}
	return account
}

// LedgerSeries is subtracted from voucher numbers in column 1 of the import file.
func (m *Mapper) LedgerSeries() int {
	return m.config.LedgerSeries
}
