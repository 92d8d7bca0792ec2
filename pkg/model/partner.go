package model

import "time"

// Partner is the shop operator receiving payouts. PointsBalance is
// shared mutable state and is only ever changed through atomic
// increments, never read-modify-write.
type Partner struct {
	ID               string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Name             string    `json:"name" bson:"name" validate:"required"`
	ShopName         string    `json:"shop_name" bson:"shop_name"`
	PayoutAccountRef string    `json:"payout_account_ref,omitempty" bson:"payout_account_ref,omitempty"`
	PointsBalance    int64     `json:"points_balance" bson:"points_balance"`
	CreatedAt        time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" bson:"updated_at"`
}

// HasPayoutAccount reports whether the partner has started processor
// onboarding. Readiness (details submitted, payouts enabled) is a
// separate live check against the processor.
func (p *Partner) HasPayoutAccount() bool {
	return p.PayoutAccountRef != ""
}
