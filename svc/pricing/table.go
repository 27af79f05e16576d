package pricing

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Table is the resolved price list for one region: a currency plus net
// prices per product SKU. Prices are whole units of currency unless the
// source table specifies fractional values.
type Table struct {
	Key      string             `yaml:"match"` // "country:<ISO3>", "continent:<code>", or "default"
	Currency string             `yaml:"currency"`
	Prices   map[string]float64 `yaml:"prices"`
}

// DefaultKey marks the flat-USD fallback table.
const DefaultKey = "default"

type tablesFile struct {
	Tables []Table `yaml:"tables"`
}

// LoadTables reads the static pricing configuration. Order is significant:
// the currency-match fallback picks the first table in file order, so the
// file is a list, not a map.
func LoadTables(path string) ([]Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pricing tables: %w", err)
	}
	return ParseTables(raw)
}

// ParseTables decodes and validates pricing tables from YAML.
func ParseTables(raw []byte) ([]Table, error) {
	var f tablesFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse pricing tables: %w", err)
	}
	if err := ValidateTables(f.Tables); err != nil {
		return nil, err
	}
	return f.Tables, nil
}

// ValidateTables enforces the sanity bounds every configured table must
// satisfy. Loading an out-of-bounds table is a deploy-time failure, not a
// runtime surprise on a pricing page.
func ValidateTables(tables []Table) error {
	if len(tables) == 0 {
		return fmt.Errorf("no pricing tables configured")
	}

	hasDefault := false
	for _, t := range tables {
		if t.Key == DefaultKey {
			hasDefault = true
		}
		if err := validateTable(t); err != nil {
			return fmt.Errorf("pricing table %q: %w", t.Key, err)
		}
	}
	if !hasDefault {
		return fmt.Errorf("pricing tables must include a %q entry", DefaultKey)
	}
	return nil
}

func validateTable(t Table) error {
	if len(t.Currency) != 3 || t.Currency != strings.ToUpper(t.Currency) {
		return fmt.Errorf("currency %q is not a 3-letter code", t.Currency)
	}
	if t.Key != DefaultKey && !strings.HasPrefix(t.Key, "country:") && !strings.HasPrefix(t.Key, "continent:") {
		return fmt.Errorf("unrecognized match key")
	}

	proMonthly := t.Prices["pro-monthly"]
	proAnnual := t.Prices["pro-annual"]
	teamMonthly := t.Prices["team-monthly"]
	if proMonthly <= 0 {
		return fmt.Errorf("pro-monthly price missing")
	}

	// Ratio bounds catch fat-fingered regional rows: an annual plan prices
	// like 8-10 months, a team seat like ~1.5 pro seats.
	if ratio := proAnnual / proMonthly; ratio <= 7 || ratio >= 11 {
		return fmt.Errorf("pro-annual/pro-monthly ratio %.2f out of bounds (7, 11)", ratio)
	}
	if ratio := teamMonthly / proMonthly; ratio <= 1.3 || ratio >= 1.7 {
		return fmt.Errorf("team-monthly/pro-monthly ratio %.2f out of bounds (1.3, 1.7)", ratio)
	}
	return nil
}

// MonthlyEquivalent is the per-month display price of an annual plan.
// Display only - billing math never divides.
func MonthlyEquivalent(annualPrice float64) float64 {
	return annualPrice / 12
}
