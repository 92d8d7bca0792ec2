package processor

import "context"

// Account is the payout-account onboarding state reported by the
// payment processor. A transfer is only attempted when both flags are
// true.
type Account struct {
	ID               string `json:"id"`
	DetailsSubmitted bool   `json:"details_submitted"`
	PayoutsEnabled   bool   `json:"payouts_enabled"`
}

// Transfer is a confirmed payout to a partner account.
type Transfer struct {
	ID      string `json:"id"`
	Created int64  `json:"created"`
}

// Refund is a confirmed refund against a captured payment.
type Refund struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// CheckoutSession is a processor-hosted payment collection flow. The
// caller redirects the payer to RedirectURL; completion arrives later
// on the webhook carrying the session id.
type CheckoutSession struct {
	ID          string `json:"id"`
	RedirectURL string `json:"url"`
}

type TransferRequest struct {
	AccountRef     string            `json:"account_ref"`
	Amount         int64             `json:"amount"`
	Currency       string            `json:"currency"`
	IdempotencyKey string            `json:"idempotency_key"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

type RefundRequest struct {
	PaymentRef string            `json:"payment_ref"`
	Amount     int64             `json:"amount"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

type CheckoutSessionRequest struct {
	Amount     int64             `json:"amount"`
	Currency   string            `json:"currency"`
	SuccessURL string            `json:"success_url"`
	CancelURL  string            `json:"cancel_url"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Client is the contract the settlement engine expects from the
// external payment processor. Implementations must treat timeouts as
// call failures; the engine never retries on its own.
type Client interface {
	GetAccount(ctx context.Context, accountRef string) (*Account, error)
	CreateTransfer(ctx context.Context, req TransferRequest) (*Transfer, error)
	CreateRefund(ctx context.Context, req RefundRequest) (*Refund, error)
	CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (*CheckoutSession, error)
}

// WebhookEvent is the inbound confirmation payload. Delivery is
// at-least-once; consumers must be replay-safe.
type WebhookEvent struct {
	Type       string `json:"type"`
	SessionID  string `json:"session_id"`
	PaymentRef string `json:"payment_ref"`
}

const EventCheckoutCompleted = "checkout_completed"
