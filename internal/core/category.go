package core

import "strings"

const (
	CategoryFood      Category = "FOOD"
	CategoryCoffee    Category = "COFFEE"
	CategoryHousing   Category = "HOUSING"
	CategoryShopping  Category = "SHOPPING"
	CategoryTransport Category = "TRANSPORT"
	CategoryOther     Category = "OTHER"
)

type (
	// Category is one of a closed set of identifiers.
	Category string

	// CategoryInfo is the display metadata of a category.
	CategoryInfo struct {
		ID    Category `json:"id"`
		Label string   `json:"label"`
		Icon  string   `json:"icon"`
	}
)

// categories is in declaration order. Classification and summaries
// iterate in this order.
var categories = []CategoryInfo{
	{ID: CategoryFood, Label: "Ăn uống", Icon: "🍜"},
	{ID: CategoryCoffee, Label: "Cà phê", Icon: "☕"},
	{ID: CategoryHousing, Label: "Nhà ở", Icon: "🏠"},
	{ID: CategoryShopping, Label: "Mua sắm", Icon: "🛍️"},
	{ID: CategoryTransport, Label: "Đi lại", Icon: "🛵"},
	{ID: CategoryOther, Label: "Khác", Icon: "✨"},
}

// Categories returns the registry in declaration order.
func Categories() []CategoryInfo {
	return append([]CategoryInfo(nil), categories...)
}

// Info returns the metadata of c, or that of OTHER for unknown ids.
func (c Category) Info() CategoryInfo {
	for _, info := range categories {
		if info.ID == c {
			return info
		}
	}
	return categories[len(categories)-1]
}

// Label is the display label of c.
func (c Category) Label() string { return c.Info().Label }

func (c Category) IsValid() bool {
	for _, info := range categories {
		if info.ID == c {
			return true
		}
	}
	return false
}

// ParseCategory matches s case-insensitively against the category ids.
func ParseCategory(s string) (Category, bool) {
	s = strings.TrimSpace(s)
	for _, info := range categories {
		if strings.EqualFold(string(info.ID), s) {
			return info.ID, true
		}
	}
	return "", false
}
