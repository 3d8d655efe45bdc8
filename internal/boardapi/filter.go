package boardapi

import "time"

// TimeBucket is a coarse named window the board source accepts in queries.
// The source does not support arbitrary timestamp comparisons, so an
// incremental window is rounded up to the nearest bucket; the bucket is a
// superset of the precise window and callers post-filter with ApplySince.
type TimeBucket string

const (
	BucketToday     TimeBucket = "TODAY"
	BucketThisWeek  TimeBucket = "THIS_WEEK"
	BucketThisMonth TimeBucket = "THIS_MONTH"
	BucketThisYear  TimeBucket = "THIS_YEAR"
	// BucketEverything selects the whole board (full sync)
	BucketEverything TimeBucket = ""
)

// BucketForWindow picks the smallest bucket that contains every record
// changed since the given watermark.
func BucketForWindow(since, now time.Time) TimeBucket {
	if since.After(now) {
		return BucketToday
	}

	y1, m1, d1 := since.Date()
	y2, m2, d2 := now.Date()

	if y1 == y2 && m1 == m2 && d1 == d2 {
		return BucketToday
	}
	wy1, w1 := since.ISOWeek()
	wy2, w2 := now.ISOWeek()
	if wy1 == wy2 && w1 == w2 {
		return BucketThisWeek
	}
	if y1 == y2 && m1 == m2 {
		return BucketThisMonth
	}
	if y1 == y2 {
		return BucketThisYear
	}
	return BucketEverything
}

// Filter scopes a board fetch to one owner and an optional time window
type Filter struct {
	// OwnerEmail restricts items to one owner via the owner-email column.
	// Empty fetches the whole board (staff board syncs do this).
	OwnerEmail string
	// Bucket is the coarse window sent to the source
	Bucket TimeBucket
	// Since is the precise watermark applied locally after the fetch
	Since *time.Time
}

// ApplySince drops items whose own last-updated timestamp is before the
// precise watermark. Items with no timestamp are kept: over-inclusion is a
// deliberate safety bias, re-upserting an unchanged record is a no-op.
func ApplySince(items []Item, since *time.Time) []Item {
	if since == nil {
		return items
	}
	kept := make([]Item, 0, len(items))
	for _, it := range items {
		if !it.UpdatedAt.IsZero() && it.UpdatedAt.Before(*since) {
			continue
		}
		kept = append(kept, it)
	}
	return kept
}
