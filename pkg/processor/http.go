package processor

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"bloomly/pkg/client"
	apperrors "bloomly/pkg/errors"
	"bloomly/pkg/logger"
)

// httpClient talks to the processor's REST API through the shared
// JSON client. Every non-2xx response surfaces as ProcessorFailed
// with the processor's own error text.
type httpClient struct {
	api *client.HttpClient
	log *logger.Logger
}

func NewHTTPClient(baseURL, secretKey string, timeout time.Duration, log *logger.Logger) Client {
	return &httpClient{
		api: client.NewHttpClient(baseURL, timeout).WithAuthToken(secretKey),
		log: log,
	}
}

func (c *httpClient) GetAccount(ctx context.Context, accountRef string) (*Account, error) {
	resp, err := c.api.GET(ctx, "/v1/accounts/"+accountRef)
	if err != nil {
		return nil, apperrors.ProcessorFailed("failed to fetch payout account", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, apperrors.NotFoundWithID("Payout account", accountRef)
	}
	if resp.StatusCode >= 300 {
		return nil, apperrors.ProcessorFailed(client.GetErrorMessage(resp), nil)
	}

	var account Account
	if err := resp.DecodeJSON(&account); err != nil {
		return nil, apperrors.ProcessorFailed("unreadable account response", err)
	}
	return &account, nil
}

func (c *httpClient) CreateTransfer(ctx context.Context, req TransferRequest) (*Transfer, error) {
	resp, err := c.api.POST(ctx, "/v1/transfers", req)
	if err != nil {
		return nil, apperrors.ProcessorFailed("transfer request failed", err)
	}
	if resp.StatusCode >= 300 {
		return nil, apperrors.ProcessorFailed(client.GetErrorMessage(resp), nil)
	}

	var transfer Transfer
	if err := resp.DecodeJSON(&transfer); err != nil {
		return nil, apperrors.ProcessorFailed("unreadable transfer response", err)
	}

	c.log.Info("Processor transfer created",
		"transfer_id", transfer.ID,
		"account_ref", req.AccountRef,
		"amount", req.Amount,
	)
	return &transfer, nil
}

func (c *httpClient) CreateRefund(ctx context.Context, req RefundRequest) (*Refund, error) {
	resp, err := c.api.POST(ctx, "/v1/refunds", req)
	if err != nil {
		return nil, apperrors.ProcessorFailed("refund request failed", err)
	}
	if resp.StatusCode >= 300 {
		return nil, apperrors.ProcessorFailed(client.GetErrorMessage(resp), nil)
	}

	var refund Refund
	if err := resp.DecodeJSON(&refund); err != nil {
		return nil, apperrors.ProcessorFailed("unreadable refund response", err)
	}

	c.log.Info("Processor refund created",
		"refund_id", refund.ID,
		"payment_ref", req.PaymentRef,
		"amount", req.Amount,
	)
	return &refund, nil
}

func (c *httpClient) CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (*CheckoutSession, error) {
	if req.Currency == "" {
		return nil, apperrors.InvalidInput("checkout session requires a currency")
	}

	resp, err := c.api.POST(ctx, "/v1/checkout/sessions", req)
	if err != nil {
		return nil, apperrors.ProcessorFailed("checkout session request failed", err)
	}
	if resp.StatusCode >= 300 {
		return nil, apperrors.ProcessorFailed(client.GetErrorMessage(resp), nil)
	}

	var session CheckoutSession
	if err := resp.DecodeJSON(&session); err != nil {
		return nil, apperrors.ProcessorFailed("unreadable checkout session response", err)
	}
	if session.ID == "" {
		return nil, apperrors.ProcessorFailed(fmt.Sprintf("checkout session response missing id (status %d)", resp.StatusCode), nil)
	}
	return &session, nil
}
