package core

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestExpenseValidate(t *testing.T) {
	good := Expense{
		Amount:   Money(50000),
		Note:     "Phở",
		Category: CategoryFood,
		Date:     time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Expense{
		{Amount: 0, Category: CategoryFood, Date: good.Date},
		{Amount: Money(math.NaN()), Category: CategoryFood, Date: good.Date},
		{Amount: Money(math.Inf(1)), Category: CategoryFood, Date: good.Date},
		{Amount: 1000, Category: "SNACKS", Date: good.Date},
		{Amount: 1000, Category: CategoryFood},
	}
	for i, e := range bads {
		if err := e.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
	if err := bads[0].Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("zero amount: got %v, want ErrInvalidAmount", err)
	}
}

func TestGroupEventValidate(t *testing.T) {
	start := time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)
	before := start.AddDate(0, 0, -1)
	cases := []struct {
		name string
		ev   GroupEvent
		want error
	}{
		{"ok", GroupEvent{Name: "Đi chơi Đầm Sen", Role: RoleOwner, StartDate: start}, nil},
		{"empty name", GroupEvent{Name: "  ", Role: RoleOwner}, ErrEmptyEventName},
		{"bad role", GroupEvent{Name: "x", Role: "ADMIN"}, ErrInvalidRole},
		{"end before start", GroupEvent{Name: "x", Role: RoleMember, StartDate: start, EndDate: &before}, ErrEndBeforeStart},
		{"blank member", GroupEvent{Name: "x", Role: RoleOwner, Members: []GroupMember{{ID: "1", Name: ""}}}, ErrEmptyMemberName},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.ev.Validate()
			if tc.want == nil && err != nil {
				t.Fatalf("expected ok, got %v", err)
			}
			if tc.want != nil && !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
		})
	}
}

func TestMonthKey(t *testing.T) {
	loc := time.FixedZone("ICT", 7*3600)
	// 2024-01-31T20:00Z is already February in UTC+7.
	instant := time.Date(2024, 1, 31, 20, 0, 0, 0, time.UTC)
	if got := MonthKey(instant); got != "2024-01" {
		t.Fatalf("utc key = %q", got)
	}
	if got := MonthKey(instant.In(loc)); got != "2024-02" {
		t.Fatalf("local key = %q", got)
	}
}

func TestParseMonthKey(t *testing.T) {
	y, m, err := ParseMonthKey("2024-03")
	if err != nil || y != 2024 || m != time.March {
		t.Fatalf("got %d %v %v", y, m, err)
	}
	for _, bad := range []string{"", "2024", "2024-13", "03-2024", "abcd-ef"} {
		if _, _, err := ParseMonthKey(bad); !errors.Is(err, ErrInvalidMonthKey) {
			t.Fatalf("%q expected ErrInvalidMonthKey, got %v", bad, err)
		}
	}
	if ValidMonthKey("2024-3") {
		t.Fatalf("short key must be rejected")
	}
}

func TestShiftMonth(t *testing.T) {
	cases := []struct {
		in    string
		delta int
		out   string
	}{
		{"2024-01", -1, "2023-12"},
		{"2024-12", 1, "2025-01"},
		{"2024-05", 0, "2024-05"},
		{"2024-05", 14, "2025-07"},
	}
	for _, tc := range cases {
		got, err := ShiftMonth(tc.in, tc.delta)
		if err != nil || got != tc.out {
			t.Fatalf("ShiftMonth(%q, %d) = %q, %v; want %q", tc.in, tc.delta, got, err, tc.out)
		}
	}
}
