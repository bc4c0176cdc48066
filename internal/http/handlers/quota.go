package handlers

import (
	"net/http"

	"github.com/jaume768/splashmy/internal/domain"
)

// QuotaGet reports the caller's daily usage against the free-tier limit.
func (a *App) QuotaGet(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	user, err := a.UserRepo.GetByID(r.Context(), userID)
	if err != nil {
		a.writeErr(w, err)
		return
	}
	ledger, err := a.QuotaRepo.Get(r.Context(), userID)
	if err != nil {
		a.writeErr(w, err)
		return
	}

	limit := a.DailyLimit
	if limit <= 0 {
		limit = domain.FreeDailyLimit
	}
	usage := func(kind domain.JobKind) map[string]any {
		entry := map[string]any{
			"used_today": ledger.DailyCount(kind),
			"total":      ledger.TotalCount(kind),
		}
		if user.IsPremium {
			entry["unlimited"] = true
		} else {
			entry["daily_limit"] = limit
			entry["remaining"] = max(0, limit-ledger.DailyCount(kind))
		}
		return entry
	}

	a.json(w, http.StatusOK, map[string]any{
		"is_premium":      user.IsPremium,
		"generations":     usage(domain.JobKindGeneration),
		"edits":           usage(domain.JobKindEdit),
		"style_transfers": usage(domain.JobKindStyleTransfer),
		"last_reset_date": ledger.LastResetDate.Format("2006-01-02"),
	})
}
