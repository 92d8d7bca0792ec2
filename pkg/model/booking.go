package model

import "time"

// Booking statuses. completed and cancelled are terminal for status
// purposes; payment_status may still move to refunded after completed.
const (
	BookingPending               = "pending"
	BookingConfirmed             = "confirmed"
	BookingCompleted             = "completed"
	BookingCancelled             = "cancelled"
	BookingNoShow                = "noshow"
	BookingCancellationRequested = "cancellation_requested"
)

const (
	PaymentStatusUnpaid      = "unpaid"
	PaymentStatusPaid        = "paid"
	PaymentStatusDepositPaid = "deposit_paid"
	PaymentStatusRefunded    = "refunded"
)

const (
	PaymentTypeFull    = "full"
	PaymentTypeDeposit = "deposit"
	PaymentTypeDirect  = "direct"
)

// Booking is one customer's reservation of a service at a partner's
// shop. Amounts are integers in the ledger's smallest currency unit.
// Date is a calendar day in YYYY-MM-DD form; settlement eligibility
// compares it lexicographically against period bounds.
type Booking struct {
	ID              string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	CustomerID      string    `json:"customer_id" bson:"customer_id" validate:"required"`
	ShopID          string    `json:"shop_id" bson:"shop_id" validate:"required"`
	PartnerID       string    `json:"partner_id" bson:"partner_id" validate:"required"`
	ServiceID       string    `json:"service_id" bson:"service_id" validate:"required"`
	Date            string    `json:"date" bson:"date" validate:"required,datetime=2006-01-02"`
	Time            string    `json:"time" bson:"time" validate:"required"`
	Price           int64     `json:"price" bson:"price" validate:"required,gt=0"`
	PaymentType     string    `json:"payment_type" bson:"payment_type" validate:"required,oneof=full deposit direct"`
	DepositAmount   int64     `json:"deposit_amount" bson:"deposit_amount" validate:"gte=0"`
	RemainingAmount int64     `json:"remaining_amount" bson:"remaining_amount" validate:"gte=0"`
	Status          string    `json:"status" bson:"status" validate:"required,oneof=pending confirmed completed cancelled noshow cancellation_requested"`
	PaymentStatus   string    `json:"payment_status" bson:"payment_status" validate:"required,oneof=unpaid paid deposit_paid refunded"`
	RefundNote      string    `json:"refund_note,omitempty" bson:"refund_note,omitempty"`
	AIRiskScore     float64   `json:"ai_risk_score,omitempty" bson:"ai_risk_score,omitempty"`
	CreatedAt       time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" bson:"updated_at"`
}

// IsTerminalStatus reports whether no further status transition is
// allowed from s, other than the post-completion refund marking.
func IsTerminalStatus(s string) bool {
	return s == BookingCompleted || s == BookingCancelled
}

// RefundableAmount is the amount to send to the processor when a paid
// booking is refunded: the recorded deposit for deposit and direct
// payment types, the full price otherwise.
func (b *Booking) RefundableAmount() int64 {
	if b.PaymentType == PaymentTypeDeposit || b.PaymentType == PaymentTypeDirect {
		return b.DepositAmount
	}
	return b.Price
}

// StatusUpdate is the operator-facing transition request.
type StatusUpdate struct {
	Status        string `json:"status" validate:"required,oneof=pending confirmed completed cancelled noshow cancellation_requested"`
	PaymentStatus string `json:"payment_status,omitempty" validate:"omitempty,oneof=unpaid paid deposit_paid refunded"`
}

// CancellationRequest identifies the customer asking to cancel.
type CancellationRequest struct {
	CustomerID string `json:"customer_id" validate:"required"`
}

// CancellationDecision resolves a pending cancellation request.
type CancellationDecision struct {
	Decision string `json:"decision" validate:"required,oneof=approve reject"`
}
