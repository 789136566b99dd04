package pricing

import (
	"errors"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	pda "portledger/internal/pda/domain"
)

var (
	// ErrPortNotCovered is returned when no tariff table covers the port.
	ErrPortNotCovered = errors.New("pricing: port not covered by tariff table")
	// ErrNoBands is returned when a port has no DWT bands.
	ErrNoBands = errors.New("pricing: port tariff has no dwt bands")
)

// Band is one DWT bracket of a port tariff with base USD amounts per
// auto-priced category.
type Band struct {
	MaxDWT  float64            `yaml:"max_dwt"`
	Amounts map[string]float64 `yaml:"amounts"`
}

// Surcharge is an LOA-based percentage applied on top of band amounts.
type Surcharge struct {
	MaxLOA float64 `yaml:"max_loa"`
	Pct    float64 `yaml:"pct"`
}

// PortTariff is the tariff table of one port.
type PortTariff struct {
	Bands        []Band      `yaml:"bands"`
	LOASurcharge []Surcharge `yaml:"loa_surcharge"`
}

// Config maps lowercase port names to tariff tables.
type Config struct {
	Ports map[string]PortTariff `yaml:"ports"`
}

// LoadConfig reads a tariff table from a YAML file.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// TariffPricer quotes auto-priced cost categories from static port tariff
// tables. It is the pricing oracle injected into the PDA service.
type TariffPricer struct {
	cfg Config
}

// NewTariffPricer constructs a pricer.
func NewTariffPricer(cfg Config) (*TariffPricer, error) {
	if len(cfg.Ports) == 0 {
		return nil, errors.New("pricing: empty tariff config")
	}
	return &TariffPricer{cfg: cfg}, nil
}

// Quote computes USD amounts for the auto-priced categories of a vessel
// call. Quoting is deterministic: band by DWT, then LOA surcharge.
func (p *TariffPricer) Quote(ship pda.ShipParticulars) (map[pda.Category]decimal.Decimal, error) {
	if p == nil {
		return nil, errors.New("pricing: nil pricer")
	}
	tariff, ok := p.cfg.Ports[strings.ToLower(strings.TrimSpace(ship.PortName))]
	if !ok {
		return nil, ErrPortNotCovered
	}
	if len(tariff.Bands) == 0 {
		return nil, ErrNoBands
	}

	band := tariff.Bands[len(tariff.Bands)-1]
	for _, candidate := range tariff.Bands {
		if ship.DWT <= candidate.MaxDWT {
			band = candidate
			break
		}
	}

	surchargePct := decimal.Zero
	for _, candidate := range tariff.LOASurcharge {
		if ship.LOA <= candidate.MaxLOA {
			surchargePct = decimal.NewFromFloat(candidate.Pct)
			break
		}
	}
	factor := decimal.NewFromInt(1).Add(surchargePct.Div(decimal.NewFromInt(100)))

	quote := make(map[pda.Category]decimal.Decimal, len(band.Amounts))
	for name, base := range band.Amounts {
		category, ok := pda.NormalizeCategory(name)
		if !ok {
			continue
		}
		info, _ := pda.Info(category)
		if !info.Auto {
			continue
		}
		quote[category] = decimal.NewFromFloat(base).Mul(factor).Round(2)
	}
	return quote, nil
}
