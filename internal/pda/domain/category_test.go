package pda

import "testing"

func TestCategories_TotalSideMapping(t *testing.T) {
	categories := Categories()
	if len(categories) != 13 {
		t.Fatalf("expected 13 fixed categories, got %d", len(categories))
	}
	for _, c := range categories {
		side, ok := SideOf(c)
		if !ok {
			t.Fatalf("category %s has no side mapping", c)
		}
		if side != SideAP && side != SideAR {
			t.Fatalf("category %s has invalid side %q", c, side)
		}
		info, ok := Info(c)
		if !ok {
			t.Fatalf("category %s has no metadata", c)
		}
		if info.Label == "" || info.DefaultComment == "" {
			t.Fatalf("category %s missing label or default comment", c)
		}
	}
}

func TestCategories_AgencyFeeIsOnlyReceivable(t *testing.T) {
	for _, c := range Categories() {
		side, _ := SideOf(c)
		if c == CategoryAgencyFee {
			if side != SideAR {
				t.Fatalf("agency fee must be AR, got %s", side)
			}
			continue
		}
		if side != SideAP {
			t.Fatalf("category %s must be AP, got %s", c, side)
		}
	}
}

func TestCategories_OrderIsStable(t *testing.T) {
	first := Categories()
	second := Categories()
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("category order not stable at index %d: %s vs %s", i, first[i], second[i])
		}
	}
	if first[0] != CategoryPilotageIn {
		t.Fatalf("expected pilotage_in first, got %s", first[0])
	}
	if first[len(first)-1] != CategoryAgencyFee {
		t.Fatalf("expected agency_fee last, got %s", first[len(first)-1])
	}
}

func TestNormalizeCategory(t *testing.T) {
	if _, ok := NormalizeCategory("agency_fee"); !ok {
		t.Fatal("agency_fee should normalize")
	}
	if _, ok := NormalizeCategory("bunkers"); ok {
		t.Fatal("unknown category should not normalize")
	}
}
