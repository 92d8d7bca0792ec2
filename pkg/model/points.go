package model

import "time"

const (
	PointTxPending   = "pending"
	PointTxCompleted = "completed"
)

const (
	PointTxCharge = "charge"
	PointTxRefund = "refund"
)

// PointTransaction is one marketing-point purchase or refund for a
// partner. A charge completes exactly once: the external session id
// plus pending status form the idempotency key, so webhook replays
// cannot re-credit points.
type PointTransaction struct {
	ID                string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	PartnerID         string    `json:"partner_id" bson:"partner_id" validate:"required"`
	Type              string    `json:"type" bson:"type" validate:"required,oneof=charge refund"`
	Amount            int64     `json:"amount" bson:"amount" validate:"required,gt=0"`
	PointsGranted     int64     `json:"points_granted" bson:"points_granted" validate:"gte=0"`
	Commission        int64     `json:"commission" bson:"commission" validate:"gte=0"`
	ExternalSessionID string    `json:"external_session_id" bson:"external_session_id"`
	Status            string    `json:"status" bson:"status" validate:"required,oneof=pending completed"`
	CreatedAt         time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" bson:"updated_at"`
}

// ChargeRequest initiates a marketing-point purchase.
type ChargeRequest struct {
	PartnerID string `json:"partner_id" validate:"required"`
	Amount    int64  `json:"amount" validate:"required,gt=0"`
	Currency  string `json:"currency,omitempty" validate:"omitempty,iso4217"`
}

// ChargeSession is returned to the caller so the partner can be
// redirected to the processor-hosted checkout.
type ChargeSession struct {
	TransactionID string `json:"transaction_id"`
	SessionID     string `json:"session_id"`
	RedirectURL   string `json:"redirect_url"`
}
