package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	bookingserrors "bloomly/internal/bookings/errors"
	"bloomly/internal/bookings/repository"
	"bloomly/internal/bookings/validator"
	"bloomly/pkg/config"
	apperrors "bloomly/pkg/errors"
	"bloomly/pkg/events"
	"bloomly/pkg/model"
	"bloomly/pkg/processor"
)

const (
	DecisionApprove = "approve"
	DecisionReject  = "reject"
)

type BookingService interface {
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	GetAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, int64, error)
	// RequestCancellation moves a booking the requester owns into
	// cancellation_requested. Terminal and already-requested bookings
	// are rejected.
	RequestCancellation(ctx context.Context, bookingID string, req *model.CancellationRequest) (*model.Booking, error)
	// ResolveCancellation approves or rejects a pending cancellation
	// request. Approval cancels the booking and, for paid bookings,
	// runs the refund step; rejection restores confirmed.
	ResolveCancellation(ctx context.Context, bookingID string, decision *model.CancellationDecision) (*model.Booking, error)
	// SetStatus is the operator transition. Completing a paid booking
	// triggers an automatic best-effort refund.
	SetStatus(ctx context.Context, bookingID string, update *model.StatusUpdate) (*model.Booking, error)
}

type bookingService struct {
	repo      repository.BookingRepository
	payments  repository.PaymentRepository
	psp       processor.Client
	publisher events.Publisher
	validator *validator.TransitionValidator
	cfg       *config.Config
}

func NewBookingService(
	repo repository.BookingRepository,
	payments repository.PaymentRepository,
	psp processor.Client,
	publisher events.Publisher,
	validator *validator.TransitionValidator,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		repo:      repo,
		payments:  payments,
		psp:       psp,
		publisher: publisher,
		validator: validator,
		cfg:       cfg,
	}
}

func (s *bookingService) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Booking", id)
		}
		if errors.Is(err, bookingserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid booking ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve booking", err)
	}

	return booking, nil
}

func (s *bookingService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, int64, error) {
	var count int64
	var bookings []*model.Booking
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count bookings", "error", errCount)
			errCount = apperrors.Internal("Failed to count bookings", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		bookings, errFind = s.repo.FindAll(ctx, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list bookings", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve bookings", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return bookings, count, nil
}

func (s *bookingService) RequestCancellation(ctx context.Context, bookingID string, req *model.CancellationRequest) (*model.Booking, error) {
	if err := s.validator.ValidateCancellationRequest(req); err != nil {
		return nil, apperrors.Validation("Invalid cancellation request", map[string]any{"error": err.Error()})
	}

	booking, err := s.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if booking.CustomerID != req.CustomerID {
		return nil, apperrors.Forbidden("not your booking")
	}
	if reason := cancellationBlockReason(booking.Status); reason != "" {
		return nil, apperrors.InvalidState(reason)
	}

	status := model.BookingCancellationRequested
	updated, err := s.repo.UpdateStatusIf(ctx, bookingID,
		[]string{model.BookingPending, model.BookingConfirmed, model.BookingNoShow},
		repository.StatusPatch{Status: &status},
	)
	if err != nil {
		return nil, s.transitionError(ctx, bookingID, err)
	}

	s.cfg.Log.Info("Cancellation requested",
		"booking_id", bookingID,
		"customer_id", req.CustomerID,
	)
	s.publishStatusChange(ctx, updated)
	return updated, nil
}

func (s *bookingService) ResolveCancellation(ctx context.Context, bookingID string, decision *model.CancellationDecision) (*model.Booking, error) {
	if err := s.validator.ValidateCancellationDecision(decision); err != nil {
		return nil, apperrors.Validation("Invalid cancellation decision", map[string]any{"error": err.Error()})
	}

	booking, err := s.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status != model.BookingCancellationRequested {
		return nil, apperrors.InvalidState("booking is not awaiting cancellation review")
	}

	target := model.BookingConfirmed
	if decision.Decision == DecisionApprove {
		target = model.BookingCancelled
	}

	updated, err := s.repo.UpdateStatusIf(ctx, bookingID,
		[]string{model.BookingCancellationRequested},
		repository.StatusPatch{Status: &target},
	)
	if err != nil {
		return nil, s.transitionError(ctx, bookingID, err)
	}

	s.cfg.Log.Info("Cancellation resolved",
		"booking_id", bookingID,
		"decision", decision.Decision,
		"status", updated.Status,
	)

	// Refunded is only recorded once the processor confirms, so an
	// approved cancellation of a paid booking runs the refund step
	// after the status commit. A refund failure leaves the booking
	// cancelled/paid with the failure on refund_note.
	if decision.Decision == DecisionApprove && updated.PaymentStatus == model.PaymentStatusPaid {
		updated = s.attemptRefund(ctx, updated)
	}

	s.publishStatusChange(ctx, updated)
	return updated, nil
}

func (s *bookingService) SetStatus(ctx context.Context, bookingID string, update *model.StatusUpdate) (*model.Booking, error) {
	if err := s.validator.ValidateStatusUpdate(update); err != nil {
		s.cfg.Log.Warn("Status update validation failed", "booking_id", bookingID, "error", err)
		return nil, apperrors.Validation("Invalid status update", map[string]any{"error": err.Error()})
	}

	booking, err := s.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if model.IsTerminalStatus(booking.Status) {
		return nil, apperrors.InvalidState(fmt.Sprintf("booking already %s", booking.Status))
	}

	patch := repository.StatusPatch{Status: &update.Status}
	if update.PaymentStatus != "" {
		patch.PaymentStatus = &update.PaymentStatus
	}

	updated, err := s.repo.UpdateStatusIf(ctx, bookingID,
		[]string{model.BookingPending, model.BookingConfirmed, model.BookingNoShow, model.BookingCancellationRequested},
		patch,
	)
	if err != nil {
		return nil, s.transitionError(ctx, bookingID, err)
	}

	s.cfg.Log.Info("Booking status updated",
		"booking_id", bookingID,
		"status", updated.Status,
		"payment_status", updated.PaymentStatus,
	)

	// Completing a booking the customer already paid for triggers the
	// automatic refund of the captured deposit/amount. The decision is
	// keyed on the payment status the booking held before this
	// transition, not on a payment_status override carried in the same
	// patch. The completion itself is never rolled back on refund
	// failure.
	if updated.Status == model.BookingCompleted &&
		(booking.PaymentStatus == model.PaymentStatusPaid || booking.PaymentStatus == model.PaymentStatusDepositPaid) {
		updated = s.attemptRefund(ctx, updated)
	}

	s.publishStatusChange(ctx, updated)
	return updated, nil
}

// attemptRefund is the side-effect half of the refund saga: find the
// captured payment, ask the processor to return the refundable
// amount, and only then mark the ledger refunded. Every failure path
// records its reason on the booking instead of failing the caller.
func (s *bookingService) attemptRefund(ctx context.Context, booking *model.Booking) *model.Booking {
	amount := booking.RefundableAmount()
	if amount <= 0 {
		s.recordRefundFailure(ctx, booking, "no refundable amount recorded")
		return booking
	}

	payment, err := s.payments.FindLatestSettled(ctx, booking.ID)
	if err != nil {
		s.cfg.Log.Error("Refund skipped: no settled payment",
			"booking_id", booking.ID,
			"error", err,
		)
		s.recordRefundFailure(ctx, booking, "no completed payment on record")
		return booking
	}

	refund, err := s.psp.CreateRefund(ctx, processor.RefundRequest{
		PaymentRef: payment.ProcessorRef,
		Amount:     amount,
		Metadata: map[string]string{
			"booking_id": booking.ID,
			"partner_id": booking.PartnerID,
			"reason":     "booking_" + booking.Status,
		},
	})
	if err != nil {
		s.cfg.Log.Error("Refund call failed",
			"booking_id", booking.ID,
			"payment_ref", payment.ProcessorRef,
			"amount", amount,
			"error", err,
		)
		s.recordRefundFailure(ctx, booking, apperrors.AsAppError(err).Message)
		return booking
	}

	if err := s.payments.SetStatus(ctx, payment.ID, model.PaymentRefunded); err != nil {
		s.cfg.Log.Error("Failed to mark payment refunded", "payment_id", payment.ID, "error", err)
	}
	if err := s.repo.SetPaymentStatus(ctx, booking.ID, model.PaymentStatusRefunded, ""); err != nil {
		s.cfg.Log.Error("Failed to mark booking refunded", "booking_id", booking.ID, "error", err)
		return booking
	}

	s.cfg.Log.Info("Refund completed",
		"booking_id", booking.ID,
		"refund_id", refund.ID,
		"amount", amount,
	)

	booking.PaymentStatus = model.PaymentStatusRefunded
	booking.RefundNote = ""
	return booking
}

func (s *bookingService) recordRefundFailure(ctx context.Context, booking *model.Booking, reason string) {
	note := fmt.Sprintf("refund pending: %s (%s)", reason, time.Now().UTC().Format(time.RFC3339))
	if err := s.repo.SetPaymentStatus(ctx, booking.ID, booking.PaymentStatus, note); err != nil {
		s.cfg.Log.Error("Failed to record refund failure", "booking_id", booking.ID, "error", err)
		return
	}
	booking.RefundNote = note
}

// transitionError turns a lost compare-and-set into a precise
// InvalidState reason by re-reading the booking.
func (s *bookingService) transitionError(ctx context.Context, bookingID string, err error) error {
	if errors.Is(err, bookingserrors.ErrStateChanged) {
		current, readErr := s.repo.FindByID(ctx, bookingID)
		if readErr != nil {
			return apperrors.NotFoundWithID("Booking", bookingID)
		}
		return apperrors.InvalidState(fmt.Sprintf("booking is %s", current.Status))
	}
	if errors.Is(err, bookingserrors.ErrInvalidID) {
		return apperrors.InvalidInput("Invalid booking ID format")
	}
	return apperrors.Internal("Failed to update booking", err)
}

func cancellationBlockReason(status string) string {
	switch status {
	case model.BookingCancelled:
		return "already cancelled"
	case model.BookingCompleted:
		return "already completed"
	case model.BookingCancellationRequested:
		return "cancellation already requested"
	}
	return ""
}

func (s *bookingService) publishStatusChange(ctx context.Context, booking *model.Booking) {
	s.publisher.Publish(ctx, events.TypeBookingStatusChanged, booking.ID, events.BookingStatusChanged{
		BookingID:     booking.ID,
		PartnerID:     booking.PartnerID,
		Status:        booking.Status,
		PaymentStatus: booking.PaymentStatus,
		OccurredAt:    time.Now().UTC(),
	})
}
