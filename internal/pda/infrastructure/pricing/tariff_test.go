package pricing

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	pda "portledger/internal/pda/domain"
)

func testConfig() Config {
	return Config{
		Ports: map[string]PortTariff{
			"santos": {
				Bands: []Band{
					{MaxDWT: 30000, Amounts: map[string]float64{
						"pilotage_in":  3200,
						"towage_in":    5400,
						"light_dues":   1500,
						"dockage":      2100,
						"waterway_fee": 800,
					}},
					{MaxDWT: 80000, Amounts: map[string]float64{
						"pilotage_in":  4800,
						"towage_in":    8100,
						"light_dues":   2250,
						"dockage":      3150,
						"waterway_fee": 1200,
					}},
				},
				LOASurcharge: []Surcharge{
					{MaxLOA: 200, Pct: 0},
					{MaxLOA: 300, Pct: 10},
				},
			},
		},
	}
}

func TestTariffPricer_BandByDWT(t *testing.T) {
	pricer, err := NewTariffPricer(testConfig())
	if err != nil {
		t.Fatalf("new pricer: %v", err)
	}

	quote, err := pricer.Quote(pda.ShipParticulars{PortName: "Santos", DWT: 25000, LOA: 180})
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if !quote[pda.CategoryPilotageIn].Equal(decimal.NewFromInt(3200)) {
		t.Fatalf("small vessel pilotage = %s", quote[pda.CategoryPilotageIn])
	}

	quote, err = pricer.Quote(pda.ShipParticulars{PortName: "santos", DWT: 60000, LOA: 190})
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if !quote[pda.CategoryPilotageIn].Equal(decimal.NewFromInt(4800)) {
		t.Fatalf("panamax pilotage = %s", quote[pda.CategoryPilotageIn])
	}
}

func TestTariffPricer_DWTAboveLastBandUsesLastBand(t *testing.T) {
	pricer, _ := NewTariffPricer(testConfig())
	quote, err := pricer.Quote(pda.ShipParticulars{PortName: "santos", DWT: 120000, LOA: 180})
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if !quote[pda.CategoryTowageIn].Equal(decimal.NewFromInt(8100)) {
		t.Fatalf("capesize towage = %s", quote[pda.CategoryTowageIn])
	}
}

func TestTariffPricer_LOASurcharge(t *testing.T) {
	pricer, _ := NewTariffPricer(testConfig())
	quote, err := pricer.Quote(pda.ShipParticulars{PortName: "santos", DWT: 25000, LOA: 250})
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	// 3200 + 10% surcharge
	if !quote[pda.CategoryPilotageIn].Equal(decimal.NewFromInt(3520)) {
		t.Fatalf("surcharged pilotage = %s", quote[pda.CategoryPilotageIn])
	}
}

func TestTariffPricer_OnlyAutoCategories(t *testing.T) {
	cfg := testConfig()
	tariff := cfg.Ports["santos"]
	tariff.Bands[0].Amounts["agency_fee"] = 9999
	tariff.Bands[0].Amounts["made_up"] = 1
	cfg.Ports["santos"] = tariff

	pricer, _ := NewTariffPricer(cfg)
	quote, err := pricer.Quote(pda.ShipParticulars{PortName: "santos", DWT: 25000, LOA: 180})
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if _, ok := quote[pda.CategoryAgencyFee]; ok {
		t.Fatal("agency fee must not be auto-quoted")
	}
	if _, ok := quote[pda.Category("made_up")]; ok {
		t.Fatal("unknown categories must be dropped")
	}
}

func TestTariffPricer_PortNotCovered(t *testing.T) {
	pricer, _ := NewTariffPricer(testConfig())
	_, err := pricer.Quote(pda.ShipParticulars{PortName: "rotterdam", DWT: 25000})
	if !errors.Is(err, ErrPortNotCovered) {
		t.Fatalf("expected ErrPortNotCovered, got %v", err)
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tariffs.yaml")
	data := []byte(`
ports:
  santos:
    bands:
      - max_dwt: 30000
        amounts:
          pilotage_in: 3200
    loa_surcharge:
      - max_loa: 200
        pct: 0
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if len(cfg.Ports["santos"].Bands) != 1 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}
