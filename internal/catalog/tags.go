package catalog

// Tags classifies line items for the metrics report. Item sets match on the
// line name; category sets match on the line category.
type Tags struct {
	People      map[string]bool
	OnlineCombo map[string]bool
	Invitation  map[string]bool
	Partner     string
	Blogger     string

	// AddOnCategories feed the "add-ons" revenue bucket.
	AddOnCategories map[string]bool
	// ShopCategories feed the "shop" revenue bucket.
	ShopCategories map[string]bool
}

func set(values ...string) map[string]bool {
	m := make(map[string]bool, len(values))
	for _, v := range values {
		m[v] = true
	}
	return m
}

// DefaultTags returns the tag sets matching Default.
func DefaultTags() Tags {
	return Tags{
		People:          set("Adult ticket", "Child ticket", "Family ticket", "Online combo", "Invitation", PartnerItem, BloggerItem),
		OnlineCombo:     set("Online combo"),
		Invitation:      set("Invitation"),
		Partner:         PartnerItem,
		Blogger:         BloggerItem,
		AddOnCategories: set(CategoryLocations, CategoryCombo),
		ShopCategories:  set(CategoryOther, CategoryFreeForm),
	}
}
