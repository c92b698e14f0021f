// Package catalog holds the static table of sellable items. The engine only
// reads it.
package catalog

import (
	"fmt"

	"github.com/zombor/shift-ledger/internal/errs"
)

const (
	CategoryTickets   = "🎟 Tickets"
	CategoryLocations = "📍 Locations"
	CategoryCombo     = "🍿 Combo"
	CategoryOther     = "📝 Other items"
	CategoryFreeForm  = "📝 Free-form items"

	// PartnerItem and BloggerItem are the two role items counted by the metrics report.
	PartnerItem = "Partner"
	BloggerItem = "Blogger"
)

// Item is a single catalog entry. Custom items carry no name or price of
// their own; the operator supplies both when adding one to the cart.
type Item struct {
	ID       string
	Name     string
	Price    int64
	Custom   bool
	Category string
}

// Category groups items for menu navigation.
type Category struct {
	ID    string
	Name  string
	Items []Item
}

// Catalog is an immutable lookup from item id to item.
type Catalog struct {
	categories []Category
	items      map[string]Item
}

// Entry describes one item when building a catalog. A nil Price marks a
// custom item.
type Entry struct {
	Name  string
	Price *int64
}

// Section is a named, ordered list of entries.
type Section struct {
	Name    string
	Entries []Entry
}

// New builds a catalog from ordered sections. Category ids are "cat<i>" and
// item ids "item<i>_<j>", following section and entry order.
func New(sections []Section) *Catalog {
	c := &Catalog{items: make(map[string]Item)}
	for i, s := range sections {
		cat := Category{ID: fmt.Sprintf("cat%d", i), Name: s.Name}
		for j, e := range s.Entries {
			item := Item{
				ID:       fmt.Sprintf("item%d_%d", i, j),
				Name:     e.Name,
				Category: s.Name,
			}
			if e.Price == nil {
				item.Custom = true
			} else {
				item.Price = *e.Price
			}
			cat.Items = append(cat.Items, item)
			c.items[item.ID] = item
		}
		c.categories = append(c.categories, cat)
	}
	return c
}

// Item looks up an item by id.
func (c *Catalog) Item(id string) (Item, error) {
	item, ok := c.items[id]
	if !ok {
		return Item{}, errs.NotFound("catalog item %q not found", id)
	}
	return item, nil
}

// Category looks up a category by id.
func (c *Catalog) Category(id string) (Category, error) {
	for _, cat := range c.categories {
		if cat.ID == id {
			return cat, nil
		}
	}
	return Category{}, errs.NotFound("category %q not found", id)
}

// Categories returns the categories in display order.
func (c *Catalog) Categories() []Category {
	out := make([]Category, len(c.categories))
	copy(out, c.categories)
	return out
}

func price(v int64) *int64 { return &v }

// Default returns the venue's standard price list.
func Default() *Catalog {
	return New([]Section{
		{Name: CategoryTickets, Entries: []Entry{
			{Name: "Adult ticket", Price: price(3500)},
			{Name: "Child ticket", Price: price(2500)},
			{Name: "Family ticket", Price: price(9000)},
			{Name: "Online combo", Price: price(0)},
			{Name: "Invitation", Price: price(0)},
			{Name: PartnerItem, Price: price(0)},
			{Name: BloggerItem, Price: price(0)},
		}},
		{Name: CategoryLocations, Entries: []Entry{
			{Name: "VR zone", Price: price(1500)},
			{Name: "Planetarium", Price: price(2000)},
			{Name: "Photo zone", Price: price(1000)},
		}},
		{Name: CategoryCombo, Entries: []Entry{
			{Name: "Popcorn + drink", Price: price(1800)},
			{Name: "Cosmic combo", Price: price(2500)},
		}},
		{Name: CategoryOther, Entries: []Entry{
			{Name: "Souvenir magnet", Price: price(1200)},
			{Name: "Astronaut food", Price: price(2200)},
			{Name: "Other item", Price: nil},
		}},
	})
}
