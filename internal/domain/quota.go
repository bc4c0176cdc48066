package domain

import "time"

// FreeDailyLimit is the default number of jobs per kind a free-tier user may
// complete per calendar day. Premium accounts are unlimited.
const FreeDailyLimit = 5

// QuotaLedger tracks per-user daily and lifetime processing counters. Daily
// counters reset lazily: the first ledger operation on a new calendar day
// zeroes them before use. Callers must hold the user's ledger row lock while
// mutating (see repo.QuotaRepositoryPG).
type QuotaLedger struct {
	UserID              string
	DailyGenerations    int
	DailyEdits          int
	DailyStyleTransfers int
	TotalGenerations    int
	TotalEdits          int
	TotalStyleTransfers int
	LastResetDate       time.Time
	MonthlyCost         float64
	UpdatedAt           time.Time
}

// ResetIfStale zeroes the daily counters when the ledger was last reset
// before today's date. Returns true when a reset happened.
func (q *QuotaLedger) ResetIfStale(now time.Time) bool {
	ly, lm, ld := q.LastResetDate.Date()
	ny, nm, nd := now.Date()
	if ly == ny && lm == nm && ld == nd {
		return false
	}
	if q.LastResetDate.After(now) {
		return false
	}
	q.DailyGenerations = 0
	q.DailyEdits = 0
	q.DailyStyleTransfers = 0
	q.LastResetDate = time.Date(ny, nm, nd, 0, 0, 0, 0, now.Location())
	return true
}

// CanSubmit reports whether the user may submit another job of the given
// kind. Premium users are never limited; free users are capped per kind per
// day. The caller is responsible for calling ResetIfStale first.
func (q *QuotaLedger) CanSubmit(kind JobKind, premium bool, dailyLimit int) bool {
	if premium {
		return true
	}
	return q.DailyCount(kind) < dailyLimit
}

// Record increments both the daily and lifetime counters for kind. Only
// completed jobs are recorded; failed and cancelled jobs never consume quota.
func (q *QuotaLedger) Record(kind JobKind) {
	switch kind {
	case JobKindGeneration:
		q.DailyGenerations++
		q.TotalGenerations++
	case JobKindEdit:
		q.DailyEdits++
		q.TotalEdits++
	case JobKindStyleTransfer:
		q.DailyStyleTransfers++
		q.TotalStyleTransfers++
	}
}

// DailyCount returns the daily counter for kind.
func (q *QuotaLedger) DailyCount(kind JobKind) int {
	switch kind {
	case JobKindGeneration:
		return q.DailyGenerations
	case JobKindEdit:
		return q.DailyEdits
	case JobKindStyleTransfer:
		return q.DailyStyleTransfers
	}
	return 0
}

// TotalCount returns the lifetime counter for kind.
func (q *QuotaLedger) TotalCount(kind JobKind) int {
	switch kind {
	case JobKindGeneration:
		return q.TotalGenerations
	case JobKindEdit:
		return q.TotalEdits
	case JobKindStyleTransfer:
		return q.TotalStyleTransfers
	}
	return 0
}
