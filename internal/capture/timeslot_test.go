package capture

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustSlotTable(t *testing.T, offsetMinutes int, boundaries []SlotBoundary) *SlotTable {
	t.Helper()
	table, err := NewSlotTable(offsetMinutes, boundaries)
	require.NoError(t, err)
	return table
}

func TestSlotTable_ClassifyDefaults(t *testing.T) {
	t.Parallel()

	table := mustSlotTable(t, DefaultUTCOffsetMinutes, DefaultSlotBoundaries())

	cases := []struct {
		name string
		utc  time.Time
		want string
	}{
		// 15:30 UTC is 07:30 PST.
		{"morning capture", time.Date(2026, 1, 15, 15, 30, 0, 0, time.UTC), "7:30 AM"},
		// 20:00 UTC is 12:00 PST.
		{"noon capture", time.Date(2026, 1, 15, 20, 0, 0, 0, time.UTC), "12:00 PM"},
		// 23:30 UTC is 15:30 PST.
		{"afternoon capture", time.Date(2026, 1, 15, 23, 30, 0, 0, time.UTC), "3:30 PM"},
		// 06:00 UTC is 22:00 PST the previous day, still the last slot.
		{"late evening", time.Date(2026, 1, 15, 6, 0, 0, 0, time.UTC), "3:30 PM"},
		// 08:00 UTC is 00:00 PST, the first slot of the day.
		{"local midnight", time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC), "7:30 AM"},
		{"just before noon boundary", time.Date(2026, 1, 15, 19, 59, 59, 0, time.UTC), "7:30 AM"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, table.Classify(tc.utc))
		})
	}
}

func TestSlotTable_ClassifyIsTotal(t *testing.T) {
	t.Parallel()

	table := mustSlotTable(t, DefaultUTCOffsetMinutes, DefaultSlotBoundaries())
	labels := map[string]struct{}{
		"7:30 AM": {}, "12:00 PM": {}, "3:30 PM": {},
	}
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for h := 0; h < 24; h++ {
		got := table.Classify(base.Add(time.Duration(h) * time.Hour))
		_, known := labels[got]
		require.True(t, known, "hour %d classified as %q", h, got)
	}
}

func TestSlotTable_ClassifyWrapsBeforeFirstBoundary(t *testing.T) {
	t.Parallel()

	table := mustSlotTable(t, 0, []SlotBoundary{
		{Hour: 6, Label: "morning"},
		{Hour: 18, Label: "evening"},
	})

	assert.Equal(t, "evening", table.Classify(time.Date(2026, 1, 15, 2, 0, 0, 0, time.UTC)))
	assert.Equal(t, "morning", table.Classify(time.Date(2026, 1, 15, 6, 0, 0, 0, time.UTC)))
	assert.Equal(t, "morning", table.Classify(time.Date(2026, 1, 15, 17, 59, 0, 0, time.UTC)))
	assert.Equal(t, "evening", table.Classify(time.Date(2026, 1, 15, 18, 0, 0, 0, time.UTC)))
}

func TestSlotTable_ClassifyNormalizesToUTCFirst(t *testing.T) {
	t.Parallel()

	table := mustSlotTable(t, DefaultUTCOffsetMinutes, DefaultSlotBoundaries())
	est := time.FixedZone("EST", -5*60*60)
	// 15:00 EST is 20:00 UTC is 12:00 PST.
	got := table.Classify(time.Date(2026, 1, 15, 15, 0, 0, 0, est))
	assert.Equal(t, "12:00 PM", got)
}

func TestNewSlotTable_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewSlotTable(0, nil)
	require.Error(t, err)

	_, err = NewSlotTable(0, []SlotBoundary{{Hour: 24, Label: "x"}})
	require.Error(t, err)

	_, err = NewSlotTable(0, []SlotBoundary{{Hour: -1, Label: "x"}})
	require.Error(t, err)

	_, err = NewSlotTable(0, []SlotBoundary{{Hour: 9, Label: ""}})
	require.Error(t, err)

	_, err = NewSlotTable(0, []SlotBoundary{{Hour: 9, Label: "a"}, {Hour: 9, Label: "b"}})
	require.Error(t, err)
}

func TestNewSlotTable_SortsBoundaries(t *testing.T) {
	t.Parallel()

	table := mustSlotTable(t, 0, []SlotBoundary{
		{Hour: 15, Label: "late"},
		{Hour: 0, Label: "early"},
	})
	assert.Equal(t, "early", table.Classify(time.Date(2026, 1, 15, 3, 0, 0, 0, time.UTC)))
	assert.Equal(t, "late", table.Classify(time.Date(2026, 1, 15, 16, 0, 0, 0, time.UTC)))
}
