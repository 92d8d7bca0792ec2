package model

import "time"

const (
	SettlementPending    = "pending"
	SettlementProcessing = "processing"
	SettlementCompleted  = "completed"
	SettlementFailed     = "failed"
)

// TransferInfo records the processor transfer that paid a settlement.
type TransferInfo struct {
	TransferID   string    `json:"transfer_id" bson:"transfer_id"`
	TransferDate time.Time `json:"transfer_date" bson:"transfer_date"`
	Method       string    `json:"method" bson:"method"`
}

// Settlement is a period-scoped payout owed to one partner. Exactly
// one settlement may exist per (partner_id, period_start, period_end);
// the Settlements collection enforces this with a unique index.
// Payout + Fee == TotalSales always holds.
type Settlement struct {
	ID           string        `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	PartnerID    string        `json:"partner_id" bson:"partner_id" validate:"required"`
	PartnerName  string        `json:"partner_name" bson:"partner_name"`
	ShopName     string        `json:"shop_name" bson:"shop_name"`
	Period       string        `json:"period" bson:"period"`
	PeriodStart  string        `json:"period_start" bson:"period_start" validate:"required,datetime=2006-01-02"`
	PeriodEnd    string        `json:"period_end" bson:"period_end" validate:"required,datetime=2006-01-02"`
	TotalSales   int64         `json:"total_sales" bson:"total_sales"`
	Fee          int64         `json:"fee" bson:"fee"`
	Payout       int64         `json:"payout" bson:"payout"`
	BookingCount int           `json:"booking_count" bson:"booking_count"`
	Status       string        `json:"status" bson:"status" validate:"required,oneof=pending processing completed failed"`
	TransferInfo *TransferInfo `json:"transfer_info,omitempty" bson:"transfer_info,omitempty"`
	Notes        string        `json:"notes,omitempty" bson:"notes,omitempty"`
	CreatedAt    time.Time     `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at" bson:"updated_at"`
}

// AggregationRequest asks for one partner's settlement over a period.
type AggregationRequest struct {
	PartnerID   string `json:"partner_id" validate:"required"`
	PeriodStart string `json:"period_start" validate:"required,datetime=2006-01-02"`
	PeriodEnd   string `json:"period_end" validate:"required,datetime=2006-01-02"`
}

// BatchAggregationRequest runs aggregation over every partner.
type BatchAggregationRequest struct {
	PeriodStart string `json:"period_start" validate:"required,datetime=2006-01-02"`
	PeriodEnd   string `json:"period_end" validate:"required,datetime=2006-01-02"`
}

// AdvanceRequest moves a settlement toward payout. Only the
// pending -> processing edge triggers money movement.
type AdvanceRequest struct {
	Status string `json:"status" validate:"required,oneof=processing completed failed"`
	Notes  string `json:"notes,omitempty"`
}
