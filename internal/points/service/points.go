package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	partnerserrors "bloomly/internal/partners/errors"
	partnerrepo "bloomly/internal/partners/repository"
	pointserrors "bloomly/internal/points/errors"
	"bloomly/internal/points/repository"
	"bloomly/internal/points/validator"
	revenuerepo "bloomly/internal/revenue/repository"
	"bloomly/pkg/config"
	mongotx "bloomly/pkg/db/mongo"
	apperrors "bloomly/pkg/errors"
	"bloomly/pkg/events"
	"bloomly/pkg/model"
	"bloomly/pkg/processor"

	"go.mongodb.org/mongo-driver/mongo"
)

type PointsService interface {
	// InitiateCharge opens a marketing-point purchase: a pending
	// transaction and its commission revenue record, plus a
	// processor-hosted checkout session the partner is redirected to.
	InitiateCharge(ctx context.Context, req *model.ChargeRequest) (*model.ChargeSession, error)
	// ConfirmCharge credits points for a completed checkout session.
	// Unknown and already-confirmed sessions are no-op successes, so
	// webhook replays are safe.
	ConfirmCharge(ctx context.Context, externalSessionID string) error
	GetTransaction(ctx context.Context, id string) (*model.PointTransaction, error)
	GetPartnerTransactions(ctx context.Context, partnerID string, limit int, offset int64) ([]*model.PointTransaction, error)
}

type pointsService struct {
	repo      repository.PointTransactionRepository
	partners  partnerrepo.PartnerRepository
	revenues  revenuerepo.RevenueRepository
	txManager mongotx.TransactionManager
	psp       processor.Client
	publisher events.Publisher
	validator *validator.ChargeValidator
	cfg       *config.Config
}

func NewPointsService(
	repo repository.PointTransactionRepository,
	partners partnerrepo.PartnerRepository,
	revenues revenuerepo.RevenueRepository,
	txManager mongotx.TransactionManager,
	psp processor.Client,
	publisher events.Publisher,
	validator *validator.ChargeValidator,
	cfg *config.Config,
) PointsService {
	return &pointsService{
		repo:      repo,
		partners:  partners,
		revenues:  revenues,
		txManager: txManager,
		psp:       psp,
		publisher: publisher,
		validator: validator,
		cfg:       cfg,
	}
}

func (s *pointsService) InitiateCharge(ctx context.Context, req *model.ChargeRequest) (*model.ChargeSession, error) {
	// Currency codes are case-normalized before validation so "usd"
	// and "USD" are the same currency.
	req.Currency = strings.ToUpper(req.Currency)
	if err := s.validator.ValidateCharge(req); err != nil {
		return nil, apperrors.Validation("Invalid charge request", map[string]any{"error": err.Error()})
	}
	if req.Amount < s.cfg.MinPointCharge {
		return nil, apperrors.InvalidAmount(fmt.Sprintf("charge amount must be at least %d", s.cfg.MinPointCharge))
	}

	partner, err := s.partners.FindByID(ctx, req.PartnerID)
	if err != nil {
		if errors.Is(err, partnerserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Partner", req.PartnerID)
		}
		if errors.Is(err, partnerserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid partner ID format")
		}
		return nil, apperrors.Internal("Failed to load partner", err)
	}

	commission := int64(math.Floor(float64(req.Amount) * s.cfg.PointCommissionRate))
	granted := req.Amount - commission

	tx := &model.PointTransaction{
		PartnerID:     partner.ID,
		Type:          model.PointTxCharge,
		Amount:        req.Amount,
		PointsGranted: granted,
		Commission:    commission,
		Status:        model.PointTxPending,
	}
	if err := s.repo.Create(ctx, tx); err != nil {
		return nil, apperrors.Internal("Failed to create point transaction", err)
	}

	if err := s.revenues.Create(ctx, &model.PlatformRevenue{
		Type:           model.RevenueTypePointCommission,
		PartnerID:      partner.ID,
		Amount:         commission,
		OriginalAmount: req.Amount,
		CommissionRate: s.cfg.PointCommissionRate,
		Status:         model.RevenuePending,
		TransactionID:  tx.ID,
	}); err != nil {
		return nil, apperrors.Internal("Failed to record point commission revenue", err)
	}

	currency := req.Currency
	if currency == "" {
		currency = strings.ToUpper(s.cfg.LedgerCurrency)
	}

	session, err := s.psp.CreateCheckoutSession(ctx, processor.CheckoutSessionRequest{
		Amount:     req.Amount,
		Currency:   currency,
		SuccessURL: s.cfg.CheckoutSuccessURL,
		CancelURL:  s.cfg.CheckoutCancelURL,
		Metadata: map[string]string{
			"transaction_id":  tx.ID,
			"partner_id":      partner.ID,
			"points_granted":  strconv.FormatInt(granted, 10),
			"original_amount": strconv.FormatInt(req.Amount, 10),
			"commission":      strconv.FormatInt(commission, 10),
		},
	})
	if err != nil {
		// The pending transaction never gets a session id, so it can
		// never be confirmed; it stays inert for reconciliation.
		s.cfg.Log.Error("Checkout session creation failed",
			"transaction_id", tx.ID,
			"partner_id", partner.ID,
			"error", err,
		)
		return nil, err
	}

	if err := s.repo.SetExternalSessionID(ctx, tx.ID, session.ID); err != nil {
		s.cfg.Log.Error("Failed to link checkout session to transaction",
			"transaction_id", tx.ID,
			"session_id", session.ID,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to link checkout session", err)
	}

	s.cfg.Log.Info("Point charge initiated",
		"transaction_id", tx.ID,
		"partner_id", partner.ID,
		"amount", req.Amount,
		"points_granted", granted,
		"commission", commission,
		"session_id", session.ID,
	)

	return &model.ChargeSession{
		TransactionID: tx.ID,
		SessionID:     session.ID,
		RedirectURL:   session.RedirectURL,
	}, nil
}

func (s *pointsService) ConfirmCharge(ctx context.Context, externalSessionID string) error {
	if externalSessionID == "" {
		return apperrors.InvalidInput("Session ID cannot be empty")
	}

	var credited *model.PointTransaction
	err := s.txManager.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		tx, err := s.repo.CompleteBySessionID(sessCtx, externalSessionID)
		if err != nil {
			return err
		}

		if err := s.partners.IncrementPoints(sessCtx, tx.PartnerID, tx.PointsGranted); err != nil {
			return fmt.Errorf("failed to credit partner points: %w", err)
		}

		if err := s.revenues.SetStatusByTransactionID(sessCtx, tx.ID, model.RevenueCompleted); err != nil {
			if errors.Is(err, revenuerepo.ErrNotFound) {
				s.cfg.Log.Warn("No revenue record linked to confirmed transaction",
					"transaction_id", tx.ID,
				)
			} else {
				return err
			}
		}

		credited = tx
		return nil
	})
	if err != nil {
		if errors.Is(err, pointserrors.ErrSessionNotPending) {
			s.cfg.Log.Info("Charge confirmation replayed or unknown, ignoring",
				"session_id", externalSessionID,
			)
			return nil
		}
		s.cfg.Log.Error("Charge confirmation failed, left pending for replay",
			"session_id", externalSessionID,
			"error", err,
		)
		if apperrors.IsAppError(err) {
			return err
		}
		return apperrors.Internal("Failed to confirm point charge", err)
	}

	s.cfg.Log.Info("Points credited",
		"transaction_id", credited.ID,
		"partner_id", credited.PartnerID,
		"points_granted", credited.PointsGranted,
	)

	s.publisher.Publish(ctx, events.TypePointsCredited, credited.ID, events.PointsCredited{
		TransactionID: credited.ID,
		PartnerID:     credited.PartnerID,
		Points:        credited.PointsGranted,
		OccurredAt:    time.Now().UTC(),
	})

	return nil
}

func (s *pointsService) GetTransaction(ctx context.Context, id string) (*model.PointTransaction, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Transaction ID cannot be empty")
	}

	tx, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, pointserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("PointTransaction", id)
		}
		if errors.Is(err, pointserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid transaction ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve point transaction", err)
	}

	return tx, nil
}

func (s *pointsService) GetPartnerTransactions(ctx context.Context, partnerID string, limit int, offset int64) ([]*model.PointTransaction, error) {
	if partnerID == "" {
		return nil, apperrors.InvalidInput("Partner ID cannot be empty")
	}

	txs, err := s.repo.FindByPartner(ctx, partnerID, limit, offset)
	if err != nil {
		return nil, apperrors.Internal("Failed to retrieve point transactions", err)
	}
	return txs, nil
}
