package normalize

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"chitieu/internal/core"
)

// keywords are matched as substrings of the NFC-folded, lowercased text.
// Lists are checked in registry order and the first hit wins, so a token
// present in two lists ("nước") resolves to the earlier category.
var keywords = []struct {
	category core.Category
	tokens   []string
}{
	{core.CategoryFood, []string{
		"cơm", "phở", "bún", "miến", "bánh", "cháo", "xôi", "lẩu", "nướng",
		"trà sữa", "ăn sáng", "ăn trưa", "ăn tối", "ăn vặt", "đồ ăn", "nhà hàng",
		"quán ăn", "food", "pizza", "burger", "kfc", "lotteria", "gongcha",
		"snack", "lunch", "dinner", "breakfast",
	}},
	{core.CategoryCoffee, []string{
		"cà phê", "cafe", "café", "coffee", "highlands", "starbucks",
		"phúc long", "cộng cà phê", "trà", "nước", "sinh tố", "bia",
	}},
	{core.CategoryHousing, []string{
		"tiền nhà", "thuê nhà", "tiền điện", "hóa đơn điện", "điện nước",
		"internet", "wifi", "gas", "chung cư", "phòng trọ", "rent",
	}},
	{core.CategoryShopping, []string{
		"mua", "shopee", "lazada", "tiki", "quần áo", "áo thun", "áo khoác",
		"giày", "dép", "túi xách", "mỹ phẩm", "siêu thị", "shopping",
		"điện thoại",
	}},
	{core.CategoryTransport, []string{
		"xăng", "grab", "taxi", "gửi xe", "sửa xe", "rửa xe", "xe ôm",
		"xe buýt", "vé tàu", "vé máy bay", "vé xe", "bus", "uber", "gojek",
		"be bike", "parking",
	}},
}

// fold normalizes text for matching. Vietnamese input arrives both
// precomposed and decomposed depending on the keyboard.
func fold(s string) string {
	return strings.ToLower(norm.NFC.String(strings.TrimSpace(s)))
}

// DetectCategory classifies free text. Precedence: category id, then
// display label (equal to or contained in the text), then the keyword
// table, then OTHER.
func DetectCategory(text string) core.Category {
	if c, ok := core.ParseCategory(text); ok {
		return c
	}
	t := fold(text)
	if t == "" {
		return core.CategoryOther
	}
	for _, info := range core.Categories() {
		label := fold(info.Label)
		if t == label || strings.Contains(t, label) {
			return info.ID
		}
	}
	for _, kw := range keywords {
		for _, tok := range kw.tokens {
			if strings.Contains(t, tok) {
				return kw.category
			}
		}
	}
	return core.CategoryOther
}
