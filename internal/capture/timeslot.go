package capture

import (
	"fmt"
	"sort"
	"time"
)

// SlotBoundary marks the local hour at which a named time slot begins.
// Boundaries are half-open intervals partitioning the day.
type SlotBoundary struct {
	Hour  int    `mapstructure:"hour" json:"hour"`
	Label string `mapstructure:"label" json:"label"`
}

// SlotTable classifies capture instants into named time slots using a fixed
// local-time offset. The table is a policy choice and comes from
// configuration.
type SlotTable struct {
	offsetMinutes int
	boundaries    []SlotBoundary
}

// DefaultSlotBoundaries is the three-slot table the viewer UI expects,
// anchored at hour 0 so pre-dawn captures fall into the morning slot.
func DefaultSlotBoundaries() []SlotBoundary {
	return []SlotBoundary{
		{Hour: 0, Label: "7:30 AM"},
		{Hour: 12, Label: "12:00 PM"},
		{Hour: 15, Label: "3:30 PM"},
	}
}

// DefaultUTCOffsetMinutes positions slot boundaries in PST (UTC-8).
const DefaultUTCOffsetMinutes = -8 * 60

// NewSlotTable validates and sorts the boundary table.
func NewSlotTable(offsetMinutes int, boundaries []SlotBoundary) (*SlotTable, error) {
	if len(boundaries) == 0 {
		return nil, fmt.Errorf("at least one slot boundary is required")
	}
	sorted := make([]SlotBoundary, len(boundaries))
	copy(sorted, boundaries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Hour < sorted[j].Hour })
	seen := make(map[int]struct{}, len(sorted))
	for _, b := range sorted {
		if b.Hour < 0 || b.Hour > 23 {
			return nil, fmt.Errorf("slot boundary hour %d out of range", b.Hour)
		}
		if b.Label == "" {
			return nil, fmt.Errorf("slot boundary at hour %d has no label", b.Hour)
		}
		if _, dup := seen[b.Hour]; dup {
			return nil, fmt.Errorf("duplicate slot boundary hour %d", b.Hour)
		}
		seen[b.Hour] = struct{}{}
	}
	return &SlotTable{offsetMinutes: offsetMinutes, boundaries: sorted}, nil
}

// Classify maps an instant to its slot label. The function is pure and total:
// every instant maps to exactly one label. The slot whose boundary hour is
// the greatest one at or below the local hour wins; hours before the first
// boundary wrap to the last slot of the previous day.
func (t *SlotTable) Classify(now time.Time) string {
	local := now.UTC().Add(time.Duration(t.offsetMinutes) * time.Minute)
	hour := local.Hour()

	label := t.boundaries[len(t.boundaries)-1].Label
	for _, b := range t.boundaries {
		if hour >= b.Hour {
			label = b.Label
		}
	}
	return label
}
