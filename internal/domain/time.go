package domain

import "time"

// KST is the zone all user-facing timestamps and usage days are computed in.
var KST = time.FixedZone("KST", 9*60*60)

// NowKST returns the current time in KST as an RFC 3339 string. The format is
// lexicographically sortable, which the sort-key layout depends on.
func NowKST() string {
	return time.Now().In(KST).Format(time.RFC3339)
}

// TodayKST returns the current KST calendar day as YYYY-MM-DD.
func TodayKST() string {
	return time.Now().In(KST).Format("2006-01-02")
}
