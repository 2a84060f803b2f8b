package models

import "time"

const (
	// RecentSearchLimit bounds the recentSearches ring.
	RecentSearchLimit = 10
	// DailyStatDays is the number of day buckets kept per record.
	DailyStatDays = 7
)

type RecentSearch struct {
	Column      string    `json:"column"`
	Entry       string    `json:"entry"`
	Timestamp   time.Time `json:"timestamp"`
	ResultCount int       `json:"resultCount"`
}

type DayStat struct {
	Searches int `json:"searches"`
	Uploads  int `json:"uploads"`
}

// UsageRecord is the per-identity usage statistics document. One record
// exists per identity plus one anonymous global record. searchCount and
// uploadCount only ever grow; merging divergent copies takes the field-wise
// maximum of the two counters.
type UsageRecord struct {
	SearchCount    int            `json:"searchCount"`
	UploadCount    int            `json:"uploadCount"`
	LastUploadTime *time.Time     `json:"lastUploadTime"`
	RecentSearches []RecentSearch `json:"recentSearches"`
	DailyStats     []DayStat      `json:"dailyStats"`
}

func NewUsageRecord() *UsageRecord {
	return &UsageRecord{
		RecentSearches: make([]RecentSearch, 0, RecentSearchLimit),
		DailyStats:     make([]DayStat, DailyStatDays),
	}
}

// Normalize repairs a record decoded from an external source: missing day
// buckets are padded, surplus ones dropped, and the recent-search ring is
// re-capped.
func (u *UsageRecord) Normalize() {
	if u.DailyStats == nil {
		u.DailyStats = make([]DayStat, DailyStatDays)
	}
	for len(u.DailyStats) < DailyStatDays {
		u.DailyStats = append(u.DailyStats, DayStat{})
	}
	if len(u.DailyStats) > DailyStatDays {
		u.DailyStats = u.DailyStats[:DailyStatDays]
	}
	if len(u.RecentSearches) > RecentSearchLimit {
		u.RecentSearches = u.RecentSearches[:RecentSearchLimit]
	}
	if u.SearchCount < 0 {
		u.SearchCount = 0
	}
	if u.UploadCount < 0 {
		u.UploadCount = 0
	}
}

func (u *UsageRecord) Clone() *UsageRecord {
	c := &UsageRecord{
		SearchCount:    u.SearchCount,
		UploadCount:    u.UploadCount,
		RecentSearches: make([]RecentSearch, len(u.RecentSearches)),
		DailyStats:     make([]DayStat, len(u.DailyStats)),
	}
	if u.LastUploadTime != nil {
		t := *u.LastUploadTime
		c.LastUploadTime = &t
	}
	copy(c.RecentSearches, u.RecentSearches)
	copy(c.DailyStats, u.DailyStats)
	return c
}

// MergeCounts folds an external counter snapshot into the record by taking
// the field-wise maximum. Only the two monotone counters participate; every
// other field keeps the receiver's value. Idempotent.
func (u *UsageRecord) MergeCounts(searchCount, uploadCount int) {
	u.SearchCount = max(u.SearchCount, searchCount)
	u.UploadCount = max(u.UploadCount, uploadCount)
}

// AddSearch records one search action: bumps the counter, pushes a
// recent-search entry to the front of the capped ring and bumps the current
// day bucket.
func (u *UsageRecord) AddSearch(column, entry string, resultCount int, now time.Time) {
	u.SearchCount++
	u.RecentSearches = append([]RecentSearch{{
		Column:      column,
		Entry:       entry,
		Timestamp:   now,
		ResultCount: resultCount,
	}}, u.RecentSearches...)
	if len(u.RecentSearches) > RecentSearchLimit {
		u.RecentSearches = u.RecentSearches[:RecentSearchLimit]
	}
	u.bumpDay(func(d *DayStat) { d.Searches++ })
}

// AddUpload records one upload action at the given time.
func (u *UsageRecord) AddUpload(now time.Time) {
	u.UploadCount++
	t := now
	u.LastUploadTime = &t
	u.bumpDay(func(d *DayStat) { d.Uploads++ })
}

// bumpDay mutates the last day bucket. The dashboard has always charged
// activity to the final slot of the week strip; keep that behavior until
// product decides otherwise.
func (u *UsageRecord) bumpDay(f func(*DayStat)) {
	if len(u.DailyStats) == 0 {
		u.DailyStats = make([]DayStat, DailyStatDays)
	}
	f(&u.DailyStats[len(u.DailyStats)-1])
}
