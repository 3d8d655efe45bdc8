package boardapi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBucketForWindow(t *testing.T) {
	now := time.Date(2025, time.March, 19, 14, 30, 0, 0, time.UTC) // Wednesday

	tests := []struct {
		name  string
		since time.Time
		want  TimeBucket
	}{
		{"same day", time.Date(2025, time.March, 19, 2, 0, 0, 0, time.UTC), BucketToday},
		{"same ISO week", time.Date(2025, time.March, 17, 8, 0, 0, 0, time.UTC), BucketThisWeek},
		{"same month, earlier week", time.Date(2025, time.March, 3, 8, 0, 0, 0, time.UTC), BucketThisMonth},
		{"same year, earlier month", time.Date(2025, time.January, 10, 8, 0, 0, 0, time.UTC), BucketThisYear},
		{"previous year", time.Date(2024, time.December, 30, 8, 0, 0, 0, time.UTC), BucketEverything},
		{"watermark in the future", now.Add(time.Hour), BucketToday},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BucketForWindow(tt.since, now))
		})
	}
}

func TestBucketForWindow_WeekSpansMonths(t *testing.T) {
	// Monday 2025-06-30 and Tuesday 2025-07-01 share an ISO week but not
	// a month; the week bucket must win
	since := time.Date(2025, time.June, 30, 9, 0, 0, 0, time.UTC)
	now := time.Date(2025, time.July, 1, 9, 0, 0, 0, time.UTC)

	assert.Equal(t, BucketThisWeek, BucketForWindow(since, now))
}

func TestApplySince(t *testing.T) {
	watermark := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	items := []Item{
		{ID: "1", UpdatedAt: watermark.Add(-time.Hour)},
		{ID: "2", UpdatedAt: watermark.Add(time.Hour)},
		{ID: "3"}, // no timestamp
		{ID: "4", UpdatedAt: watermark},
	}

	t.Run("nil watermark keeps everything", func(t *testing.T) {
		assert.Len(t, ApplySince(items, nil), 4)
	})

	t.Run("drops items older than the watermark", func(t *testing.T) {
		kept := ApplySince(items, &watermark)

		ids := make([]string, 0, len(kept))
		for _, it := range kept {
			ids = append(ids, it.ID)
		}
		assert.Equal(t, []string{"2", "3", "4"}, ids)
	})

	t.Run("items without a timestamp survive", func(t *testing.T) {
		kept := ApplySince([]Item{{ID: "x"}}, &watermark)
		assert.Len(t, kept, 1)
	})
}
