package model

import "time"

const (
	RevenuePending   = "pending"
	RevenueCompleted = "completed"
	RevenueRefunded  = "refunded"
)

const (
	RevenueTypeSettlementFee   = "settlement_fee"
	RevenueTypePointCommission = "point_commission"
)

// PlatformRevenue is one commission-bearing event's platform cut.
// Amount = floor(OriginalAmount * CommissionRate); the status mirrors
// the linked transaction and only completes on confirmed payment.
type PlatformRevenue struct {
	ID             string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Type           string    `json:"type" bson:"type" validate:"required,oneof=settlement_fee point_commission"`
	PartnerID      string    `json:"partner_id" bson:"partner_id" validate:"required"`
	ShopID         string    `json:"shop_id,omitempty" bson:"shop_id,omitempty"`
	Amount         int64     `json:"amount" bson:"amount" validate:"gte=0"`
	OriginalAmount int64     `json:"original_amount" bson:"original_amount" validate:"gt=0"`
	CommissionRate float64   `json:"commission_rate" bson:"commission_rate"`
	Status         string    `json:"status" bson:"status" validate:"required,oneof=pending completed refunded"`
	TransactionID  string    `json:"transaction_id,omitempty" bson:"transaction_id,omitempty"`
	CreatedAt      time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" bson:"updated_at"`
}
