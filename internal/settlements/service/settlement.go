package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	bookingrepo "bloomly/internal/bookings/repository"
	partnerserrors "bloomly/internal/partners/errors"
	partnerrepo "bloomly/internal/partners/repository"
	revenuerepo "bloomly/internal/revenue/repository"
	settlementserrors "bloomly/internal/settlements/errors"
	"bloomly/internal/settlements/repository"
	"bloomly/internal/settlements/validator"
	"bloomly/pkg/config"
	apperrors "bloomly/pkg/errors"
	"bloomly/pkg/events"
	"bloomly/pkg/model"
	"bloomly/pkg/processor"

	"github.com/google/uuid"
)

// BatchResult summarizes an all-partners aggregation run.
type BatchResult struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

type SettlementService interface {
	GetByID(ctx context.Context, id string) (*model.Settlement, error)
	GetAll(ctx context.Context, limit int, offset int64) ([]*model.Settlement, int64, error)
	// Aggregate sums one partner's eligible paid bookings over a
	// period into a pending settlement. Returns nil with no error if
	// the period holds no eligible bookings.
	Aggregate(ctx context.Context, req *model.AggregationRequest) (*model.Settlement, error)
	// AggregateAll runs Aggregate over every partner; non-eligible and
	// already-settled partners are skipped, not fatal.
	AggregateAll(ctx context.Context, req *model.BatchAggregationRequest) (*BatchResult, error)
	// Advance moves a settlement toward payout. Only the
	// pending -> processing edge moves money; completed and failed are
	// operator pass-through writes.
	Advance(ctx context.Context, id string, req *model.AdvanceRequest) (*model.Settlement, error)
}

type settlementService struct {
	repo      repository.SettlementRepository
	bookings  bookingrepo.BookingRepository
	partners  partnerrepo.PartnerRepository
	revenues  revenuerepo.RevenueRepository
	psp       processor.Client
	publisher events.Publisher
	validator *validator.SettlementValidator
	cfg       *config.Config
}

func NewSettlementService(
	repo repository.SettlementRepository,
	bookings bookingrepo.BookingRepository,
	partners partnerrepo.PartnerRepository,
	revenues revenuerepo.RevenueRepository,
	psp processor.Client,
	publisher events.Publisher,
	validator *validator.SettlementValidator,
	cfg *config.Config,
) SettlementService {
	return &settlementService{
		repo:      repo,
		bookings:  bookings,
		partners:  partners,
		revenues:  revenues,
		psp:       psp,
		publisher: publisher,
		validator: validator,
		cfg:       cfg,
	}
}

func (s *settlementService) GetByID(ctx context.Context, id string) (*model.Settlement, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Settlement ID cannot be empty")
	}

	settlement, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, settlementserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Settlement", id)
		}
		if errors.Is(err, settlementserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid settlement ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve settlement", err)
	}

	return settlement, nil
}

func (s *settlementService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Settlement, int64, error) {
	var count int64
	var settlements []*model.Settlement
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count settlements", "error", errCount)
			errCount = apperrors.Internal("Failed to count settlements", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		settlements, errFind = s.repo.FindAll(ctx, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list settlements", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve settlements", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return settlements, count, nil
}

func (s *settlementService) Aggregate(ctx context.Context, req *model.AggregationRequest) (*model.Settlement, error) {
	if err := s.validator.ValidateAggregation(req); err != nil {
		return nil, apperrors.Validation("Invalid aggregation request", map[string]any{"error": err.Error()})
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

	if err := s.checkPayoutReadiness(ctx, partner); err != nil {
		return nil, err
	}

	bookings, err := s.bookings.FindEligibleForSettlement(ctx, req.PartnerID, req.PeriodStart, req.PeriodEnd)
	if err != nil {
		return nil, apperrors.Internal("Failed to select eligible bookings", err)
	}
	if len(bookings) == 0 {
		s.cfg.Log.Info("No eligible bookings in period, skipping settlement",
			"partner_id", req.PartnerID,
			"period_start", req.PeriodStart,
			"period_end", req.PeriodEnd,
		)
		return nil, nil
	}

	var totalSales int64
	for _, booking := range bookings {
		totalSales += booking.Price
	}
	fee := int64(math.Floor(float64(totalSales) * s.cfg.SettlementFeeRate))

	settlement := &model.Settlement{
		PartnerID:    req.PartnerID,
		PartnerName:  partner.Name,
		ShopName:     partner.ShopName,
		Period:       fmt.Sprintf("%s - %s", req.PeriodStart, req.PeriodEnd),
		PeriodStart:  req.PeriodStart,
		PeriodEnd:    req.PeriodEnd,
		TotalSales:   totalSales,
		Fee:          fee,
		Payout:       totalSales - fee,
		BookingCount: len(bookings),
		Status:       model.SettlementPending,
	}

	if err := s.repo.Create(ctx, settlement); err != nil {
		if errors.Is(err, settlementserrors.ErrDuplicate) {
			return nil, apperrors.AlreadyProcessed("Settlement already exists for this partner and period")
		}
		return nil, apperrors.Internal("Failed to create settlement", err)
	}

	if err := s.revenues.Create(ctx, &model.PlatformRevenue{
		Type:           model.RevenueTypeSettlementFee,
		PartnerID:      req.PartnerID,
		Amount:         fee,
		OriginalAmount: totalSales,
		CommissionRate: s.cfg.SettlementFeeRate,
		Status:         model.RevenuePending,
		TransactionID:  settlement.ID,
	}); err != nil {
		s.cfg.Log.Error("Failed to record settlement fee revenue",
			"settlement_id", settlement.ID,
			"error", err,
		)
		// The gap is recorded on the settlement notes for reconciliation.
		note := fmt.Sprintf("fee revenue record missing (%s)", time.Now().UTC().Format(time.RFC3339))
		if noted, noteErr := s.repo.UpdateStatusIf(ctx, settlement.ID,
			[]string{model.SettlementPending},
			repository.StatusPatch{Notes: &note},
		); noteErr != nil {
			s.cfg.Log.Error("Failed to record missing fee revenue on settlement",
				"settlement_id", settlement.ID,
				"error", noteErr,
			)
		} else {
			settlement = noted
		}
	}

	s.cfg.Log.Info("Settlement aggregated",
		"settlement_id", settlement.ID,
		"partner_id", req.PartnerID,
		"period", settlement.Period,
		"total_sales", totalSales,
		"fee", fee,
		"payout", settlement.Payout,
		"booking_count", settlement.BookingCount,
	)

	return settlement, nil
}

func (s *settlementService) AggregateAll(ctx context.Context, req *model.BatchAggregationRequest) (*BatchResult, error) {
	if err := s.validator.ValidateBatchAggregation(req); err != nil {
		return nil, apperrors.Validation("Invalid batch aggregation request", map[string]any{"error": err.Error()})
	}

	result := &BatchResult{}

	var offset int64
	for {
		partners, err := s.partners.FindAll(ctx, config.DefaultPaginationLimit, offset)
		if err != nil {
			return nil, apperrors.Internal("Failed to list partners", err)
		}
		if len(partners) == 0 {
			break
		}

		for _, partner := range partners {
			settlement, err := s.Aggregate(ctx, &model.AggregationRequest{
				PartnerID:   partner.ID,
				PeriodStart: req.PeriodStart,
				PeriodEnd:   req.PeriodEnd,
			})
			switch {
			case err == nil && settlement == nil:
				result.Skipped++
			case err == nil:
				result.Created++
			case apperrors.IsCode(err, apperrors.CodeAccountNotReady),
				apperrors.IsCode(err, apperrors.CodeAlreadyProcessed):
				s.cfg.Log.Info("Partner skipped in batch aggregation",
					"partner_id", partner.ID,
					"reason", apperrors.AsAppError(err).Message,
				)
				result.Skipped++
			default:
				s.cfg.Log.Error("Partner aggregation failed",
					"partner_id", partner.ID,
					"error", err,
				)
				result.Failed++
			}
		}

		offset += int64(len(partners))
	}

	s.cfg.Log.Info("Batch aggregation finished",
		"period_start", req.PeriodStart,
		"period_end", req.PeriodEnd,
		"created", result.Created,
		"skipped", result.Skipped,
		"failed", result.Failed,
	)

	return result, nil
}

func (s *settlementService) Advance(ctx context.Context, id string, req *model.AdvanceRequest) (*model.Settlement, error) {
	if err := s.validator.ValidateAdvance(req); err != nil {
		return nil, apperrors.Validation("Invalid advance request", map[string]any{"error": err.Error()})
	}

	settlement, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Status != model.SettlementProcessing {
		return s.passThroughWrite(ctx, settlement, req)
	}

	processing := model.SettlementProcessing
	settlement, err = s.repo.UpdateStatusIf(ctx, id,
		[]string{model.SettlementPending},
		repository.StatusPatch{Status: &processing},
	)
	if err != nil {
		if errors.Is(err, settlementserrors.ErrStateChanged) {
			return nil, apperrors.InvalidState("settlement is not pending")
		}
		return nil, apperrors.Internal("Failed to start settlement processing", err)
	}

	return s.executeTransfer(ctx, settlement)
}

// executeTransfer runs the money-moving half of advance. The
// settlement it receives is already processing and must land on
// completed or failed before this returns.
func (s *settlementService) executeTransfer(ctx context.Context, settlement *model.Settlement) (*model.Settlement, error) {
	partner, err := s.partners.FindByID(ctx, settlement.PartnerID)
	if err != nil {
		s.markFailed(ctx, settlement.ID, "partner record not found")
		if errors.Is(err, partnerserrors.ErrNotFound) || errors.Is(err, partnerserrors.ErrInvalidID) {
			return nil, apperrors.NotFoundWithID("Partner", settlement.PartnerID)
		}
		return nil, apperrors.Internal("Failed to load partner", err)
	}

	if err := s.checkPayoutReadiness(ctx, partner); err != nil {
		reason := apperrors.AsAppError(err).Message
		failed := s.markFailed(ctx, settlement.ID, reason)
		s.cfg.Log.Warn("Settlement failed payout readiness check",
			"settlement_id", settlement.ID,
			"partner_id", partner.ID,
			"reason", reason,
		)
		if failed != nil {
			s.publishSettled(ctx, failed)
		}
		return nil, err
	}

	transfer, err := s.psp.CreateTransfer(ctx, processor.TransferRequest{
		AccountRef:     partner.PayoutAccountRef,
		Amount:         settlement.Payout,
		Currency:       s.cfg.LedgerCurrency,
		IdempotencyKey: uuid.NewString(),
		Metadata: map[string]string{
			"settlement_id": settlement.ID,
			"partner_id":    settlement.PartnerID,
			"period":        settlement.Period,
			"total_sales":   strconv.FormatInt(settlement.TotalSales, 10),
			"fee":           strconv.FormatInt(settlement.Fee, 10),
			"payout":        strconv.FormatInt(settlement.Payout, 10),
		},
	})
	if err != nil {
		reason := apperrors.AsAppError(err).Message
		failed := s.markFailed(ctx, settlement.ID, reason)
		s.cfg.Log.Error("Settlement transfer failed",
			"settlement_id", settlement.ID,
			"partner_id", partner.ID,
			"payout", settlement.Payout,
			"error", err,
		)
		if failed != nil {
			s.publishSettled(ctx, failed)
		}
		return nil, apperrors.ProcessorFailed(reason, err)
	}

	completed := model.SettlementCompleted
	updated, err := s.repo.UpdateStatusIf(ctx, settlement.ID,
		[]string{model.SettlementProcessing},
		repository.StatusPatch{
			Status: &completed,
			TransferInfo: &model.TransferInfo{
				TransferID:   transfer.ID,
				TransferDate: time.Now().UTC(),
				Method:       "transfer",
			},
		},
	)
	if err != nil {
		// The transfer went through; surface the inconsistency loudly.
		s.cfg.Log.Error("Transfer succeeded but settlement record update failed",
			"settlement_id", settlement.ID,
			"transfer_id", transfer.ID,
			"error", err,
		)
		return nil, apperrors.Internal("Transfer completed but settlement update failed", err)
	}

	if err := s.revenues.SetStatusByTransactionID(ctx, settlement.ID, model.RevenueCompleted); err != nil {
		s.cfg.Log.Error("Failed to complete settlement fee revenue",
			"settlement_id", settlement.ID,
			"error", err,
		)
	}

	s.cfg.Log.Info("Settlement completed",
		"settlement_id", settlement.ID,
		"partner_id", settlement.PartnerID,
		"transfer_id", transfer.ID,
		"payout", settlement.Payout,
	)

	s.publishSettled(ctx, updated)
	return updated, nil
}

func (s *settlementService) passThroughWrite(ctx context.Context, settlement *model.Settlement, req *model.AdvanceRequest) (*model.Settlement, error) {
	patch := repository.StatusPatch{Status: &req.Status}
	if req.Notes != "" {
		patch.Notes = &req.Notes
	}

	updated, err := s.repo.UpdateStatusIf(ctx, settlement.ID,
		[]string{model.SettlementPending, model.SettlementProcessing, model.SettlementFailed},
		patch,
	)
	if err != nil {
		if errors.Is(err, settlementserrors.ErrStateChanged) {
			return nil, apperrors.InvalidState("settlement is already completed")
		}
		return nil, apperrors.Internal("Failed to update settlement", err)
	}

	s.cfg.Log.Info("Settlement status written",
		"settlement_id", settlement.ID,
		"status", updated.Status,
	)
	s.publishSettled(ctx, updated)
	return updated, nil
}

// checkPayoutReadiness verifies partner onboarding with the processor.
func (s *settlementService) checkPayoutReadiness(ctx context.Context, partner *model.Partner) error {
	if !partner.HasPayoutAccount() {
		return apperrors.AccountNotReady("partner has no payout account")
	}

	account, err := s.psp.GetAccount(ctx, partner.PayoutAccountRef)
	if err != nil {
		if apperrors.IsCode(err, apperrors.CodeNotFound) {
			return apperrors.AccountNotReady("payout account not found at processor")
		}
		return apperrors.ProcessorFailed("failed to verify payout account", err)
	}
	if !account.DetailsSubmitted {
		return apperrors.AccountNotReady("payout account onboarding incomplete")
	}
	if !account.PayoutsEnabled {
		return apperrors.AccountNotReady("payouts are not enabled for this account")
	}
	return nil
}

func (s *settlementService) markFailed(ctx context.Context, id, notes string) *model.Settlement {
	failed := model.SettlementFailed
	updated, err := s.repo.UpdateStatusIf(ctx, id,
		[]string{model.SettlementProcessing},
		repository.StatusPatch{Status: &failed, Notes: &notes},
	)
	if err != nil {
		s.cfg.Log.Error("Failed to mark settlement failed",
			"settlement_id", id,
			"notes", notes,
			"error", err,
		)
		return nil
	}
	return updated
}

func (s *settlementService) publishSettled(ctx context.Context, settlement *model.Settlement) {
	event := events.SettlementSettled{
		SettlementID: settlement.ID,
		PartnerID:    settlement.PartnerID,
		Status:       settlement.Status,
		Payout:       settlement.Payout,
		OccurredAt:   time.Now().UTC(),
	}
	if settlement.TransferInfo != nil {
		event.TransferID = settlement.TransferInfo.TransferID
	}
	s.publisher.Publish(ctx, events.TypeSettlementSettled, settlement.ID, event)
}
