package model

import "time"

const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
	PaymentRefunded  = "refunded"
)

// Payment is one payment attempt against a booking. A booking may
// accumulate failed attempts; refund and settlement logic always picks
// the most recent completed attempt.
type Payment struct {
	ID           string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	BookingID    string    `json:"booking_id" bson:"booking_id" validate:"required,mongodb"`
	UserID       string    `json:"user_id" bson:"user_id" validate:"required"`
	Amount       int64     `json:"amount" bson:"amount" validate:"required,gt=0"`
	Status       string    `json:"status" bson:"status" validate:"required,oneof=pending completed failed refunded"`
	ProcessorRef string    `json:"processor_ref" bson:"processor_ref"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" bson:"updated_at"`
}
