package schedule

import (
	"sort"
	"time"
)

// ItemsDue returns the records due at or before asOf, earliest first, with
// ties broken by item id. Records that were never reviewed have no due date
// and are excluded. The input slice is not modified.
func ItemsDue(records []Record, asOf time.Time) []Record {
	var due []Record
	for _, r := range records {
		if r.DueAt == nil || r.DueAt.After(asOf) {
			continue
		}
		due = append(due, r)
	}

	sort.SliceStable(due, func(i, j int) bool {
		if !due[i].DueAt.Equal(*due[j].DueAt) {
			return due[i].DueAt.Before(*due[j].DueAt)
		}
		return due[i].ItemID < due[j].ItemID
	})
	return due
}

// ItemsDueWithin returns the records that become due after asOf but no later
// than asOf plus window, ordered like ItemsDue.
func ItemsDueWithin(records []Record, asOf time.Time, window time.Duration) []Record {
	until := asOf.Add(window)
	var upcoming []Record
	for _, r := range ItemsDue(records, until) {
		if r.DueAt.After(asOf) {
			upcoming = append(upcoming, r)
		}
	}
	return upcoming
}
