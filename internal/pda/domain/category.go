package pda

// Side is the ledger direction a cost category settles on.
type Side string

const (
	SideAP Side = "AP"
	SideAR Side = "AR"
)

// Category is one of the fixed port expense categories on a cost record.
type Category string

const (
	CategoryPilotageIn          Category = "pilotage_in"
	CategoryTowageIn            Category = "towage_in"
	CategoryLightDues           Category = "light_dues"
	CategoryDockage             Category = "dockage"
	CategoryLinesman            Category = "linesman"
	CategoryLaunchBoat          Category = "launch_boat"
	CategoryImmigration         Category = "immigration"
	CategoryFreePratique        Category = "free_pratique"
	CategoryShippingAssociation Category = "shipping_association"
	CategoryClearance           Category = "clearance"
	CategoryPaperlessPort       Category = "paperless_port"
	CategoryWaterwayFee         Category = "waterway_fee"
	CategoryAgencyFee           Category = "agency_fee"
)

// CategoryInfo carries the static metadata for a category.
type CategoryInfo struct {
	Label          string
	DefaultComment string
	Side           Side
	Auto           bool
}

// categoryOrder is the canonical display and derivation order. Iteration
// must always go through this slice, never over the entries map.
var categoryOrder = []Category{
	CategoryPilotageIn,
	CategoryTowageIn,
	CategoryLightDues,
	CategoryDockage,
	CategoryLinesman,
	CategoryLaunchBoat,
	CategoryImmigration,
	CategoryFreePratique,
	CategoryShippingAssociation,
	CategoryClearance,
	CategoryPaperlessPort,
	CategoryWaterwayFee,
	CategoryAgencyFee,
}

var categoryInfo = map[Category]CategoryInfo{
	CategoryPilotageIn:          {Label: "Pilotage (in)", DefaultComment: "Inbound pilotage per port tariff", Side: SideAP, Auto: true},
	CategoryTowageIn:            {Label: "Towage (in)", DefaultComment: "Inbound towage per tug schedule", Side: SideAP, Auto: true},
	CategoryLightDues:           {Label: "Light dues", DefaultComment: "Lighthouse dues per GT band", Side: SideAP, Auto: true},
	CategoryDockage:             {Label: "Dockage", DefaultComment: "Berth occupation per meter/day", Side: SideAP, Auto: true},
	CategoryLinesman:            {Label: "Linesman", DefaultComment: "Mooring and unmooring gangs", Side: SideAP, Auto: false},
	CategoryLaunchBoat:          {Label: "Launch boat", DefaultComment: "Launch hire for crew and surveyors", Side: SideAP, Auto: false},
	CategoryImmigration:         {Label: "Immigration", DefaultComment: "Immigration attendance fee", Side: SideAP, Auto: false},
	CategoryFreePratique:        {Label: "Free pratique", DefaultComment: "Health authority clearance", Side: SideAP, Auto: false},
	CategoryShippingAssociation: {Label: "Shipping association", DefaultComment: "Local shipping association dues", Side: SideAP, Auto: false},
	CategoryClearance:           {Label: "Clearance", DefaultComment: "Customs inward/outward clearance", Side: SideAP, Auto: false},
	CategoryPaperlessPort:       {Label: "Paperless port fee", DefaultComment: "Port community system fee", Side: SideAP, Auto: false},
	CategoryWaterwayFee:         {Label: "Waterway fee", DefaultComment: "Channel infrastructure fee", Side: SideAP, Auto: true},
	CategoryAgencyFee:           {Label: "Agency fee", DefaultComment: "Port agency remuneration", Side: SideAR, Auto: false},
}

// Categories returns the fixed categories in display order.
func Categories() []Category {
	out := make([]Category, len(categoryOrder))
	copy(out, categoryOrder)
	return out
}

// Info returns the metadata for a category.
func Info(c Category) (CategoryInfo, bool) {
	info, ok := categoryInfo[c]
	return info, ok
}

// SideOf resolves the ledger side for a category.
func SideOf(c Category) (Side, bool) {
	info, ok := categoryInfo[c]
	if !ok {
		return "", false
	}
	return info.Side, true
}

// NormalizeCategory validates a category string.
func NormalizeCategory(value string) (Category, bool) {
	if _, ok := categoryInfo[Category(value)]; !ok {
		return "", false
	}
	return Category(value), true
}
