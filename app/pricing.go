package app

import (
	"time"

	"github.com/BileulDevs/spotR-payement/app/models"
)

// ComputePrice returns the amount to charge, in minor currency units, for a
// user buying the given premium plan.
//
// Full tariff applies when the user has no subscription, when the current
// one is expired, and for same-plan renewals (renewals are never
// discounted). An active subscription on a different plan is charged the
// flat tariff difference when upgrading; downgrades pay the new plan's full
// tariff, never a negative amount. No remaining-days weighting is applied.
func ComputePrice(user *models.User, premium *models.Premium, now time.Time) int64 {
	sub := user.Subscription
	if sub == nil || !sub.IsActive(now) {
		return premium.Tarif
	}
	if sub.PremiumID == premium.ID {
		return premium.Tarif
	}
	if diff := premium.Tarif - sub.Price; diff > 0 {
		return diff
	}
	return premium.Tarif
}
