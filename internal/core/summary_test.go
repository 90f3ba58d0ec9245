package core

import (
	"testing"
	"time"
)

func TestSummarize(t *testing.T) {
	d := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	exps := []Expense{
		{ID: "1", Amount: 30000, Category: CategoryTransport, Date: d},
		{ID: "2", Amount: 45000, Category: CategoryFood, Date: d},
		{ID: "3", Amount: 5000, Category: CategoryFood, Date: d},
		{ID: "4", Amount: 10000, Category: "LEGACY", Date: d},
	}
	s := Summarize(exps)
	if s.Total != 90000 || s.Count != 4 {
		t.Fatalf("total/count: %+v", s)
	}
	if len(s.ByCategory) != 3 {
		t.Fatalf("categories: %+v", s.ByCategory)
	}
	// Registry order, not first-seen order.
	if s.ByCategory[0].Category != CategoryFood || s.ByCategory[0].Amount != 50000 || s.ByCategory[0].Count != 2 {
		t.Fatalf("first bucket: %+v", s.ByCategory[0])
	}
	if s.ByCategory[1].Category != CategoryTransport {
		t.Fatalf("second bucket: %+v", s.ByCategory[1])
	}
	if s.ByCategory[2].Category != CategoryOther || s.ByCategory[2].Label != "Khác" {
		t.Fatalf("unknown categories fold into OTHER: %+v", s.ByCategory[2])
	}

	b := s.Breakdown()
	if b["Ăn uống"] != 50000 || b["Đi lại"] != 30000 {
		t.Fatalf("breakdown: %v", b)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	if s.Total != 0 || s.Count != 0 || len(s.ByCategory) != 0 {
		t.Fatalf("empty summary: %+v", s)
	}
}

func TestParseCategory(t *testing.T) {
	if c, ok := ParseCategory(" food "); !ok || c != CategoryFood {
		t.Fatalf("got %q %v", c, ok)
	}
	if _, ok := ParseCategory("Ăn uống"); ok {
		t.Fatalf("labels are not ids")
	}
	if CategoryCoffee.Label() != "Cà phê" {
		t.Fatalf("label: %q", CategoryCoffee.Label())
	}
	if Category("NOPE").Info().ID != CategoryOther {
		t.Fatalf("unknown info must fall back to OTHER")
	}
}
