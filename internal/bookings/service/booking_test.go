package service

import (
	"context"
	"testing"

	bookingserrors "bloomly/internal/bookings/errors"
	"bloomly/internal/bookings/repository"
	"bloomly/internal/bookings/validator"
	"bloomly/pkg/config"
	apperrors "bloomly/pkg/errors"
	"bloomly/pkg/events"
	"bloomly/pkg/logger"
	"bloomly/pkg/model"
	"bloomly/pkg/processor"
)

// ────────────────────────────────────────────────
// Mocks
// ────────────────────────────────────────────────

type mockBookingRepository struct {
	findByIDFunc         func(ctx context.Context, id string) (*model.Booking, error)
	updateStatusIfFunc   func(ctx context.Context, id string, fromStatuses []string, patch repository.StatusPatch) (*model.Booking, error)
	setPaymentStatusFunc func(ctx context.Context, id string, paymentStatus, refundNote string) error
}

func (m *mockBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	return nil
}

func (m *mockBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return &model.Booking{ID: id}, nil
}

func (m *mockBookingRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, error) {
	return []*model.Booking{}, nil
}

func (m *mockBookingRepository) Count(ctx context.Context) (int64, error) {
	return 0, nil
}

func (m *mockBookingRepository) UpdateStatusIf(ctx context.Context, id string, fromStatuses []string, patch repository.StatusPatch) (*model.Booking, error) {
	if m.updateStatusIfFunc != nil {
		return m.updateStatusIfFunc(ctx, id, fromStatuses, patch)
	}
	return &model.Booking{ID: id}, nil
}

func (m *mockBookingRepository) SetPaymentStatus(ctx context.Context, id string, paymentStatus, refundNote string) error {
	if m.setPaymentStatusFunc != nil {
		return m.setPaymentStatusFunc(ctx, id, paymentStatus, refundNote)
	}
	return nil
}

func (m *mockBookingRepository) FindEligibleForSettlement(ctx context.Context, partnerID, periodStart, periodEnd string) ([]*model.Booking, error) {
	return []*model.Booking{}, nil
}

type mockPaymentRepository struct {
	findLatestSettledFunc func(ctx context.Context, bookingID string) (*model.Payment, error)
	setStatusFunc         func(ctx context.Context, id string, status string) error
}

func (m *mockPaymentRepository) Create(ctx context.Context, payment *model.Payment) error {
	return nil
}

func (m *mockPaymentRepository) FindLatestSettled(ctx context.Context, bookingID string) (*model.Payment, error) {
	if m.findLatestSettledFunc != nil {
		return m.findLatestSettledFunc(ctx, bookingID)
	}
	return &model.Payment{ID: "pay-1", BookingID: bookingID, ProcessorRef: "ch_test", Status: model.PaymentCompleted}, nil
}

func (m *mockPaymentRepository) SetStatus(ctx context.Context, id string, status string) error {
	if m.setStatusFunc != nil {
		return m.setStatusFunc(ctx, id, status)
	}
	return nil
}

type mockProcessorClient struct {
	createRefundFunc func(ctx context.Context, req processor.RefundRequest) (*processor.Refund, error)
}

func (m *mockProcessorClient) GetAccount(ctx context.Context, accountRef string) (*processor.Account, error) {
	return &processor.Account{ID: accountRef, DetailsSubmitted: true, PayoutsEnabled: true}, nil
}

func (m *mockProcessorClient) CreateTransfer(ctx context.Context, req processor.TransferRequest) (*processor.Transfer, error) {
	return &processor.Transfer{ID: "tr_test"}, nil
}

func (m *mockProcessorClient) CreateRefund(ctx context.Context, req processor.RefundRequest) (*processor.Refund, error) {
	if m.createRefundFunc != nil {
		return m.createRefundFunc(ctx, req)
	}
	return &processor.Refund{ID: "re_test", Status: "succeeded"}, nil
}

func (m *mockProcessorClient) CreateCheckoutSession(ctx context.Context, req processor.CheckoutSessionRequest) (*processor.CheckoutSession, error) {
	return &processor.CheckoutSession{ID: "cs_test"}, nil
}

func newTestService(repo repository.BookingRepository, payments repository.PaymentRepository, psp processor.Client) BookingService {
	log := logger.New(logger.Config{
		Level:   "error",
		Format:  logger.JSON,
		Service: "test",
	})
	cfg := &config.Config{Log: log}
	return NewBookingService(repo, payments, psp, events.NopPublisher{}, validator.NewTransitionValidator(log), cfg)
}

// ────────────────────────────────────────────────
// setStatus
// ────────────────────────────────────────────────

func TestSetStatus_CompletedRefundsDeposit(t *testing.T) {
	booking := &model.Booking{
		ID:            "b1",
		CustomerID:    "c1",
		PartnerID:     "p1",
		Status:        model.BookingConfirmed,
		PaymentStatus: model.PaymentStatusDepositPaid,
		PaymentType:   model.PaymentTypeDeposit,
		Price:         50000,
		DepositAmount: 10000,
	}

	var refundedAmount int64
	var bookingMarked, paymentMarked string

	repo := &mockBookingRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Booking, error) {
			return booking, nil
		},
		updateStatusIfFunc: func(ctx context.Context, id string, fromStatuses []string, patch repository.StatusPatch) (*model.Booking, error) {
			updated := *booking
			updated.Status = *patch.Status
			return &updated, nil
		},
		setPaymentStatusFunc: func(ctx context.Context, id string, paymentStatus, refundNote string) error {
			bookingMarked = paymentStatus
			return nil
		},
	}
	payments := &mockPaymentRepository{
		setStatusFunc: func(ctx context.Context, id string, status string) error {
			paymentMarked = status
			return nil
		},
	}
	psp := &mockProcessorClient{
		createRefundFunc: func(ctx context.Context, req processor.RefundRequest) (*processor.Refund, error) {
			refundedAmount = req.Amount
			return &processor.Refund{ID: "re_1", Status: "succeeded"}, nil
		},
	}

	svc := newTestService(repo, payments, psp)
	updated, err := svc.SetStatus(context.Background(), "b1", &model.StatusUpdate{Status: model.BookingCompleted})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != model.BookingCompleted {
		t.Errorf("expected status completed, got %s", updated.Status)
	}
	if refundedAmount != 10000 {
		t.Errorf("expected deposit refund of 10000, got %d", refundedAmount)
	}
	if bookingMarked != model.PaymentStatusRefunded {
		t.Errorf("expected booking payment status refunded, got %q", bookingMarked)
	}
	if paymentMarked != model.PaymentRefunded {
		t.Errorf("expected payment marked refunded, got %q", paymentMarked)
	}
	if updated.PaymentStatus != model.PaymentStatusRefunded {
		t.Errorf("expected refunded payment status on result, got %s", updated.PaymentStatus)
	}
}

func TestSetStatus_CompletedRefundsFullPrice(t *testing.T) {
	booking := &model.Booking{
		ID:            "b1",
		CustomerID:    "c1",
		PartnerID:     "p1",
		Status:        model.BookingConfirmed,
		PaymentStatus: model.PaymentStatusPaid,
		PaymentType:   model.PaymentTypeFull,
		Price:         50000,
	}

	var refundedAmount int64
	repo := &mockBookingRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Booking, error) {
			return booking, nil
		},
		updateStatusIfFunc: func(ctx context.Context, id string, fromStatuses []string, patch repository.StatusPatch) (*model.Booking, error) {
			updated := *booking
			updated.Status = *patch.Status
			return &updated, nil
		},
	}
	psp := &mockProcessorClient{
		createRefundFunc: func(ctx context.Context, req processor.RefundRequest) (*processor.Refund, error) {
			refundedAmount = req.Amount
			return &processor.Refund{ID: "re_1", Status: "succeeded"}, nil
		},
	}

	svc := newTestService(repo, &mockPaymentRepository{}, psp)
	updated, err := svc.SetStatus(context.Background(), "b1", &model.StatusUpdate{Status: model.BookingCompleted})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if refundedAmount != 50000 {
		t.Errorf("expected full refund of 50000, got %d", refundedAmount)
	}
	if updated.PaymentStatus != model.PaymentStatusRefunded {
		t.Errorf("expected refunded payment status, got %s", updated.PaymentStatus)
	}
}

func TestSetStatus_RefundKeyedOnPriorPaymentStatus(t *testing.T) {
	newRepo := func(booking *model.Booking) *mockBookingRepository {
		return &mockBookingRepository{
			findByIDFunc: func(ctx context.Context, id string) (*model.Booking, error) {
				return booking, nil
			},
			updateStatusIfFunc: func(ctx context.Context, id string, fromStatuses []string, patch repository.StatusPatch) (*model.Booking, error) {
				updated := *booking
				updated.Status = *patch.Status
				if patch.PaymentStatus != nil {
					updated.PaymentStatus = *patch.PaymentStatus
				}
				return &updated, nil
			},
		}
	}

	t.Run("unpaid booking marked paid in the same patch is not refunded", func(t *testing.T) {
		booking := &model.Booking{
			ID:            "b1",
			CustomerID:    "c1",
			Status:        model.BookingConfirmed,
			PaymentStatus: model.PaymentStatusUnpaid,
			PaymentType:   model.PaymentTypeFull,
			Price:         50000,
		}

		refundCalls := 0
		psp := &mockProcessorClient{
			createRefundFunc: func(ctx context.Context, req processor.RefundRequest) (*processor.Refund, error) {
				refundCalls++
				return &processor.Refund{ID: "re_1"}, nil
			},
		}

		svc := newTestService(newRepo(booking), &mockPaymentRepository{}, psp)
		_, err := svc.SetStatus(context.Background(), "b1", &model.StatusUpdate{
			Status:        model.BookingCompleted,
			PaymentStatus: model.PaymentStatusPaid,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if refundCalls != 0 {
			t.Errorf("booking was unpaid before the transition, expected no refund call, got %d", refundCalls)
		}
	})

	t.Run("paid booking marked refunded in the same patch still refunds", func(t *testing.T) {
		booking := &model.Booking{
			ID:            "b2",
			CustomerID:    "c1",
			Status:        model.BookingConfirmed,
			PaymentStatus: model.PaymentStatusPaid,
			PaymentType:   model.PaymentTypeFull,
			Price:         50000,
		}

		refundCalls := 0
		psp := &mockProcessorClient{
			createRefundFunc: func(ctx context.Context, req processor.RefundRequest) (*processor.Refund, error) {
				refundCalls++
				return &processor.Refund{ID: "re_2"}, nil
			},
		}

		svc := newTestService(newRepo(booking), &mockPaymentRepository{}, psp)
		_, err := svc.SetStatus(context.Background(), "b2", &model.StatusUpdate{
			Status:        model.BookingCompleted,
			PaymentStatus: model.PaymentStatusRefunded,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if refundCalls != 1 {
			t.Errorf("booking was paid before the transition, expected one refund call, got %d", refundCalls)
		}
	})
}

func TestSetStatus_RefundFailureDoesNotBlockCompletion(t *testing.T) {
	booking := &model.Booking{
		ID:            "b1",
		CustomerID:    "c1",
		Status:        model.BookingConfirmed,
		PaymentStatus: model.PaymentStatusPaid,
		PaymentType:   model.PaymentTypeFull,
		Price:         50000,
	}

	var notedStatus, note string
	repo := &mockBookingRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Booking, error) {
			return booking, nil
		},
		updateStatusIfFunc: func(ctx context.Context, id string, fromStatuses []string, patch repository.StatusPatch) (*model.Booking, error) {
			updated := *booking
			updated.Status = *patch.Status
			return &updated, nil
		},
		setPaymentStatusFunc: func(ctx context.Context, id string, paymentStatus, refundNote string) error {
			notedStatus = paymentStatus
			note = refundNote
			return nil
		},
	}
	psp := &mockProcessorClient{
		createRefundFunc: func(ctx context.Context, req processor.RefundRequest) (*processor.Refund, error) {
			return nil, apperrors.ProcessorFailed("refund declined", nil)
		},
	}

	svc := newTestService(repo, &mockPaymentRepository{}, psp)
	updated, err := svc.SetStatus(context.Background(), "b1", &model.StatusUpdate{Status: model.BookingCompleted})
	if err != nil {
		t.Fatalf("completion must not fail on refund error, got: %v", err)
	}
	if updated.Status != model.BookingCompleted {
		t.Errorf("expected status completed, got %s", updated.Status)
	}
	if updated.PaymentStatus != model.PaymentStatusPaid {
		t.Errorf("payment status must stay paid on refund failure, got %s", updated.PaymentStatus)
	}
	if notedStatus != model.PaymentStatusPaid {
		t.Errorf("recorded payment status must stay paid, got %q", notedStatus)
	}
	if note == "" || updated.RefundNote == "" {
		t.Error("refund failure must be recorded on the booking")
	}
}

func TestSetStatus_TerminalBookingRejected(t *testing.T) {
	repo := &mockBookingRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Booking, error) {
			return &model.Booking{ID: id, Status: model.BookingCancelled}, nil
		},
	}

	svc := newTestService(repo, &mockPaymentRepository{}, &mockProcessorClient{})
	_, err := svc.SetStatus(context.Background(), "b1", &model.StatusUpdate{Status: model.BookingConfirmed})
	if !apperrors.IsCode(err, apperrors.CodeInvalidState) {
		t.Fatalf("expected INVALID_STATE, got %v", err)
	}
}

func TestSetStatus_LostRaceSurfacesCurrentState(t *testing.T) {
	calls := 0
	repo := &mockBookingRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Booking, error) {
			calls++
			if calls == 1 {
				return &model.Booking{ID: id, Status: model.BookingConfirmed}, nil
			}
			return &model.Booking{ID: id, Status: model.BookingCancelled}, nil
		},
		updateStatusIfFunc: func(ctx context.Context, id string, fromStatuses []string, patch repository.StatusPatch) (*model.Booking, error) {
			return nil, bookingserrors.ErrStateChanged
		},
	}

	svc := newTestService(repo, &mockPaymentRepository{}, &mockProcessorClient{})
	_, err := svc.SetStatus(context.Background(), "b1", &model.StatusUpdate{Status: model.BookingCompleted})
	if !apperrors.IsCode(err, apperrors.CodeInvalidState) {
		t.Fatalf("expected INVALID_STATE after lost compare-and-set, got %v", err)
	}
}

func TestSetStatus_InvalidStatusRejected(t *testing.T) {
	svc := newTestService(&mockBookingRepository{}, &mockPaymentRepository{}, &mockProcessorClient{})
	_, err := svc.SetStatus(context.Background(), "b1", &model.StatusUpdate{Status: "archived"})
	if !apperrors.IsCode(err, apperrors.CodeValidation) {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}
}

// ────────────────────────────────────────────────
// requestCancellation
// ────────────────────────────────────────────────

func TestRequestCancellation_OwnershipEnforced(t *testing.T) {
	repo := &mockBookingRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Booking, error) {
			return &model.Booking{ID: id, CustomerID: "c1", Status: model.BookingConfirmed}, nil
		},
	}

	svc := newTestService(repo, &mockPaymentRepository{}, &mockProcessorClient{})
	_, err := svc.RequestCancellation(context.Background(), "b1", &model.CancellationRequest{CustomerID: "someone-else"})
	if !apperrors.IsCode(err, apperrors.CodeForbidden) {
		t.Fatalf("expected FORBIDDEN, got %v", err)
	}
}

func TestRequestCancellation_FromConfirmed(t *testing.T) {
	repo := &mockBookingRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Booking, error) {
			return &model.Booking{ID: id, CustomerID: "c1", Status: model.BookingConfirmed}, nil
		},
		updateStatusIfFunc: func(ctx context.Context, id string, fromStatuses []string, patch repository.StatusPatch) (*model.Booking, error) {
			return &model.Booking{ID: id, CustomerID: "c1", Status: *patch.Status}, nil
		},
	}

	svc := newTestService(repo, &mockPaymentRepository{}, &mockProcessorClient{})
	updated, err := svc.RequestCancellation(context.Background(), "b1", &model.CancellationRequest{CustomerID: "c1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != model.BookingCancellationRequested {
		t.Errorf("expected cancellation_requested, got %s", updated.Status)
	}
}

func TestRequestCancellation_BlockedStates(t *testing.T) {
	for _, status := range []string{model.BookingCancelled, model.BookingCompleted, model.BookingCancellationRequested} {
		repo := &mockBookingRepository{
			findByIDFunc: func(ctx context.Context, id string) (*model.Booking, error) {
				return &model.Booking{ID: id, CustomerID: "c1", Status: status}, nil
			},
		}

		svc := newTestService(repo, &mockPaymentRepository{}, &mockProcessorClient{})
		_, err := svc.RequestCancellation(context.Background(), "b1", &model.CancellationRequest{CustomerID: "c1"})
		if !apperrors.IsCode(err, apperrors.CodeInvalidState) {
			t.Errorf("status %s: expected INVALID_STATE, got %v", status, err)
		}
	}
}

// ────────────────────────────────────────────────
// resolveCancellation
// ────────────────────────────────────────────────

func TestResolveCancellation_ApproveRefundsPaidBooking(t *testing.T) {
	booking := &model.Booking{
		ID:            "b1",
		CustomerID:    "c1",
		Status:        model.BookingCancellationRequested,
		PaymentStatus: model.PaymentStatusPaid,
		PaymentType:   model.PaymentTypeFull,
		Price:         30000,
	}

	var refundedAmount int64
	repo := &mockBookingRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Booking, error) {
			return booking, nil
		},
		updateStatusIfFunc: func(ctx context.Context, id string, fromStatuses []string, patch repository.StatusPatch) (*model.Booking, error) {
			updated := *booking
			updated.Status = *patch.Status
			return &updated, nil
		},
	}
	psp := &mockProcessorClient{
		createRefundFunc: func(ctx context.Context, req processor.RefundRequest) (*processor.Refund, error) {
			refundedAmount = req.Amount
			return &processor.Refund{ID: "re_1", Status: "succeeded"}, nil
		},
	}

	svc := newTestService(repo, &mockPaymentRepository{}, psp)
	updated, err := svc.ResolveCancellation(context.Background(), "b1", &model.CancellationDecision{Decision: "approve"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != model.BookingCancelled {
		t.Errorf("expected cancelled, got %s", updated.Status)
	}
	if refundedAmount != 30000 {
		t.Errorf("expected full refund of 30000, got %d", refundedAmount)
	}
	if updated.PaymentStatus != model.PaymentStatusRefunded {
		t.Errorf("expected refunded, got %s", updated.PaymentStatus)
	}
}

func TestResolveCancellation_RejectRestoresConfirmed(t *testing.T) {
	refundCalled := false
	repo := &mockBookingRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Booking, error) {
			return &model.Booking{ID: id, Status: model.BookingCancellationRequested, PaymentStatus: model.PaymentStatusPaid}, nil
		},
		updateStatusIfFunc: func(ctx context.Context, id string, fromStatuses []string, patch repository.StatusPatch) (*model.Booking, error) {
			return &model.Booking{ID: id, Status: *patch.Status, PaymentStatus: model.PaymentStatusPaid}, nil
		},
	}
	psp := &mockProcessorClient{
		createRefundFunc: func(ctx context.Context, req processor.RefundRequest) (*processor.Refund, error) {
			refundCalled = true
			return &processor.Refund{ID: "re_1"}, nil
		},
	}

	svc := newTestService(repo, &mockPaymentRepository{}, psp)
	updated, err := svc.ResolveCancellation(context.Background(), "b1", &model.CancellationDecision{Decision: "reject"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != model.BookingConfirmed {
		t.Errorf("expected confirmed, got %s", updated.Status)
	}
	if refundCalled {
		t.Error("rejection must not trigger a refund")
	}
	if updated.PaymentStatus != model.PaymentStatusPaid {
		t.Errorf("payment status must be untouched on rejection, got %s", updated.PaymentStatus)
	}
}

func TestResolveCancellation_RequiresPendingRequest(t *testing.T) {
	repo := &mockBookingRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Booking, error) {
			return &model.Booking{ID: id, Status: model.BookingConfirmed}, nil
		},
	}

	svc := newTestService(repo, &mockPaymentRepository{}, &mockProcessorClient{})
	_, err := svc.ResolveCancellation(context.Background(), "b1", &model.CancellationDecision{Decision: "approve"})
	if !apperrors.IsCode(err, apperrors.CodeInvalidState) {
		t.Fatalf("expected INVALID_STATE, got %v", err)
	}
}
