package reports

import (
	"testing"

	"uniattend/internal/model"
)

func TestPercentage(t *testing.T) {
	cases := []struct {
		present, total int
		want           float64
	}{
		{0, 0, 0}, // zero total must never divide
		{0, 10, 0},
		{10, 10, 100},
		{1, 3, 33.33},
		{2, 3, 66.67},
		{7, 9, 77.78},
	}
	for _, tc := range cases {
		if got := Percentage(tc.present, tc.total); got != tc.want {
			t.Fatalf("Percentage(%d, %d) = %v, want %v", tc.present, tc.total, got, tc.want)
		}
	}
}

func TestSummaryRollup(t *testing.T) {
	var s Summary
	s.add(model.StatusPresent, 6)
	s.add(model.StatusLate, 2)
	s.add(model.StatusAbsent, 1)
	s.add(model.StatusExcused, 1)
	s.finish()

	if s.Total != 10 || s.Present != 6 || s.Late != 2 || s.Absent != 1 || s.Excused != 1 {
		t.Fatalf("unexpected counts: %+v", s)
	}
	if s.Percentage != 60 {
		t.Fatalf("expected 60%%, got %v", s.Percentage)
	}
}

func TestEmptySummary(t *testing.T) {
	var s Summary
	s.finish()
	if s.Percentage != 0 {
		t.Fatalf("expected 0 for empty summary, got %v", s.Percentage)
	}
}

func TestCacheKeyDistinguishesFilters(t *testing.T) {
	a := NewAggregator(nil, nil)
	k1 := a.cacheKey("summary", Filter{StudentID: "s1"})
	k2 := a.cacheKey("summary", Filter{GroupID: "s1"})
	if k1 == k2 {
		t.Fatalf("expected distinct cache keys, got %q", k1)
	}
}
