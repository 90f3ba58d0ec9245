package core

// CategoryAmount represents an amount aggregated by category.
type CategoryAmount struct {
	Category Category `json:"category"`
	Label    string   `json:"label"`
	Amount   Money    `json:"amount"`
	Count    int      `json:"count"`
}

// Summary is the derived aggregate of one session or event. It is
// recomputed on demand and never stored.
type Summary struct {
	Total      Money            `json:"total"`
	Count      int              `json:"count"`
	ByCategory []CategoryAmount `json:"byCategory"`
}

// Summarize aggregates expenses by category. Categories without spending
// are omitted; the rest follow registry order.
func Summarize(expenses []Expense) Summary {
	sums := make(map[Category]*CategoryAmount)
	var s Summary
	for _, e := range expenses {
		s.Total += e.Amount
		s.Count++
		cat := e.Category
		if !cat.IsValid() {
			cat = CategoryOther
		}
		ca, ok := sums[cat]
		if !ok {
			ca = &CategoryAmount{Category: cat, Label: cat.Label()}
			sums[cat] = ca
		}
		ca.Amount += e.Amount
		ca.Count++
	}
	s.ByCategory = make([]CategoryAmount, 0, len(sums))
	for _, info := range categories {
		if ca, ok := sums[info.ID]; ok {
			s.ByCategory = append(s.ByCategory, *ca)
		}
	}
	return s
}

// Breakdown maps category labels to their totals, the shape sent to the
// commentary service.
func (s Summary) Breakdown() map[string]Money {
	out := make(map[string]Money, len(s.ByCategory))
	for _, ca := range s.ByCategory {
		out[ca.Label] += ca.Amount
	}
	return out
}
