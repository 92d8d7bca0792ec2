package service

import (
	"context"
	"strings"
	"testing"

	bookingrepo "bloomly/internal/bookings/repository"
	settlementserrors "bloomly/internal/settlements/errors"
	"bloomly/internal/settlements/repository"
	"bloomly/internal/settlements/validator"
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

type mockSettlementRepository struct {
	createFunc         func(ctx context.Context, settlement *model.Settlement) error
	findByIDFunc       func(ctx context.Context, id string) (*model.Settlement, error)
	updateStatusIfFunc func(ctx context.Context, id string, fromStatuses []string, patch repository.StatusPatch) (*model.Settlement, error)
}

func (m *mockSettlementRepository) Create(ctx context.Context, settlement *model.Settlement) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, settlement)
	}
	settlement.ID = "s1"
	return nil
}

func (m *mockSettlementRepository) FindByID(ctx context.Context, id string) (*model.Settlement, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return &model.Settlement{ID: id, Status: model.SettlementPending}, nil
}

func (m *mockSettlementRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Settlement, error) {
	return []*model.Settlement{}, nil
}

func (m *mockSettlementRepository) Count(ctx context.Context) (int64, error) {
	return 0, nil
}

func (m *mockSettlementRepository) UpdateStatusIf(ctx context.Context, id string, fromStatuses []string, patch repository.StatusPatch) (*model.Settlement, error) {
	if m.updateStatusIfFunc != nil {
		return m.updateStatusIfFunc(ctx, id, fromStatuses, patch)
	}
	updated := &model.Settlement{ID: id}
	if patch.Status != nil {
		updated.Status = *patch.Status
	}
	if patch.Notes != nil {
		updated.Notes = *patch.Notes
	}
	updated.TransferInfo = patch.TransferInfo
	return updated, nil
}

type mockBookingRepository struct {
	findEligibleFunc func(ctx context.Context, partnerID, periodStart, periodEnd string) ([]*model.Booking, error)
}

func (m *mockBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	return nil
}

func (m *mockBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	return &model.Booking{ID: id}, nil
}

func (m *mockBookingRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, error) {
	return []*model.Booking{}, nil
}

func (m *mockBookingRepository) Count(ctx context.Context) (int64, error) {
	return 0, nil
}

func (m *mockBookingRepository) UpdateStatusIf(ctx context.Context, id string, fromStatuses []string, patch bookingrepo.StatusPatch) (*model.Booking, error) {
	return &model.Booking{ID: id}, nil
}

func (m *mockBookingRepository) SetPaymentStatus(ctx context.Context, id string, paymentStatus, refundNote string) error {
	return nil
}

func (m *mockBookingRepository) FindEligibleForSettlement(ctx context.Context, partnerID, periodStart, periodEnd string) ([]*model.Booking, error) {
	if m.findEligibleFunc != nil {
		return m.findEligibleFunc(ctx, partnerID, periodStart, periodEnd)
	}
	return []*model.Booking{}, nil
}

type mockPartnerRepository struct {
	findByIDFunc func(ctx context.Context, id string) (*model.Partner, error)
	findAllFunc  func(ctx context.Context, limit int, offset int64) ([]*model.Partner, error)
}

func (m *mockPartnerRepository) Create(ctx context.Context, partner *model.Partner) error {
	return nil
}

func (m *mockPartnerRepository) FindByID(ctx context.Context, id string) (*model.Partner, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return &model.Partner{ID: id, Name: "Partner", ShopName: "Shop", PayoutAccountRef: "acct_1"}, nil
}

func (m *mockPartnerRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Partner, error) {
	if m.findAllFunc != nil {
		return m.findAllFunc(ctx, limit, offset)
	}
	return []*model.Partner{}, nil
}

func (m *mockPartnerRepository) IncrementPoints(ctx context.Context, id string, delta int64) error {
	return nil
}

type mockRevenueRepository struct {
	createFunc    func(ctx context.Context, revenue *model.PlatformRevenue) error
	setStatusFunc func(ctx context.Context, transactionID, status string) error
}

func (m *mockRevenueRepository) Create(ctx context.Context, revenue *model.PlatformRevenue) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, revenue)
	}
	return nil
}

func (m *mockRevenueRepository) FindByTransactionID(ctx context.Context, transactionID string) (*model.PlatformRevenue, error) {
	return nil, nil
}

func (m *mockRevenueRepository) SetStatusByTransactionID(ctx context.Context, transactionID, status string) error {
	if m.setStatusFunc != nil {
		return m.setStatusFunc(ctx, transactionID, status)
	}
	return nil
}

type mockProcessorClient struct {
	getAccountFunc     func(ctx context.Context, accountRef string) (*processor.Account, error)
	createTransferFunc func(ctx context.Context, req processor.TransferRequest) (*processor.Transfer, error)
}

func (m *mockProcessorClient) GetAccount(ctx context.Context, accountRef string) (*processor.Account, error) {
	if m.getAccountFunc != nil {
		return m.getAccountFunc(ctx, accountRef)
	}
	return &processor.Account{ID: accountRef, DetailsSubmitted: true, PayoutsEnabled: true}, nil
}

func (m *mockProcessorClient) CreateTransfer(ctx context.Context, req processor.TransferRequest) (*processor.Transfer, error) {
	if m.createTransferFunc != nil {
		return m.createTransferFunc(ctx, req)
	}
	return &processor.Transfer{ID: "tr_1"}, nil
}

func (m *mockProcessorClient) CreateRefund(ctx context.Context, req processor.RefundRequest) (*processor.Refund, error) {
	return &processor.Refund{ID: "re_1"}, nil
}

func (m *mockProcessorClient) CreateCheckoutSession(ctx context.Context, req processor.CheckoutSessionRequest) (*processor.CheckoutSession, error) {
	return &processor.CheckoutSession{ID: "cs_1"}, nil
}

func newTestService(
	repo *mockSettlementRepository,
	bookings *mockBookingRepository,
	partners *mockPartnerRepository,
	revenues *mockRevenueRepository,
	psp *mockProcessorClient,
) SettlementService {
	log := logger.New(logger.Config{
		Level:   "error",
		Format:  logger.JSON,
		Service: "test",
	})
	cfg := &config.Config{
		Log:               log,
		SettlementFeeRate: 0.085,
		LedgerCurrency:    "usd",
	}
	return NewSettlementService(repo, bookings, partners, revenues, psp, events.NopPublisher{}, validator.NewSettlementValidator(log), cfg)
}

// ────────────────────────────────────────────────
// Aggregate
// ────────────────────────────────────────────────

func TestAggregate_FeeAndPayout(t *testing.T) {
	bookings := &mockBookingRepository{
		findEligibleFunc: func(ctx context.Context, partnerID, periodStart, periodEnd string) ([]*model.Booking, error) {
			return []*model.Booking{
				{ID: "b1", Price: 80000},
				{ID: "b2", Price: 120000},
			}, nil
		},
	}

	var created *model.Settlement
	repo := &mockSettlementRepository{
		createFunc: func(ctx context.Context, settlement *model.Settlement) error {
			settlement.ID = "s1"
			created = settlement
			return nil
		},
	}
	var revenue *model.PlatformRevenue
	revenues := &mockRevenueRepository{
		createFunc: func(ctx context.Context, r *model.PlatformRevenue) error {
			revenue = r
			return nil
		},
	}

	svc := newTestService(repo, bookings, &mockPartnerRepository{}, revenues, &mockProcessorClient{})
	settlement, err := svc.Aggregate(context.Background(), &model.AggregationRequest{
		PartnerID:   "p1",
		PeriodStart: "2026-08-17",
		PeriodEnd:   "2026-08-23",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settlement.TotalSales != 200000 {
		t.Errorf("expected total sales 200000, got %d", settlement.TotalSales)
	}
	if settlement.Fee != 17000 {
		t.Errorf("expected fee 17000, got %d", settlement.Fee)
	}
	if settlement.Payout != 183000 {
		t.Errorf("expected payout 183000, got %d", settlement.Payout)
	}
	if settlement.BookingCount != 2 {
		t.Errorf("expected booking count 2, got %d", settlement.BookingCount)
	}
	if settlement.Status != model.SettlementPending {
		t.Errorf("expected pending, got %s", settlement.Status)
	}
	if created == nil {
		t.Fatal("settlement was not persisted")
	}
	if revenue == nil {
		t.Fatal("settlement fee revenue was not recorded")
	}
	if revenue.Type != model.RevenueTypeSettlementFee || revenue.Amount != 17000 || revenue.Status != model.RevenuePending {
		t.Errorf("unexpected fee revenue record: %+v", revenue)
	}
}

func TestAggregate_PayoutPlusFeeEqualsTotal(t *testing.T) {
	for _, total := range []int64{1, 99, 1000, 54321, 200000, 999999} {
		bookings := &mockBookingRepository{
			findEligibleFunc: func(ctx context.Context, partnerID, periodStart, periodEnd string) ([]*model.Booking, error) {
				return []*model.Booking{{ID: "b1", Price: total}}, nil
			},
		}

		svc := newTestService(&mockSettlementRepository{}, bookings, &mockPartnerRepository{}, &mockRevenueRepository{}, &mockProcessorClient{})
		settlement, err := svc.Aggregate(context.Background(), &model.AggregationRequest{
			PartnerID:   "p1",
			PeriodStart: "2026-08-17",
			PeriodEnd:   "2026-08-23",
		})
		if err != nil {
			t.Fatalf("total %d: unexpected error: %v", total, err)
		}
		if settlement.Payout+settlement.Fee != settlement.TotalSales {
			t.Errorf("total %d: payout %d + fee %d != total sales %d",
				total, settlement.Payout, settlement.Fee, settlement.TotalSales)
		}
	}
}

func TestAggregate_FeeRevenueFailureNotedOnSettlement(t *testing.T) {
	bookings := &mockBookingRepository{
		findEligibleFunc: func(ctx context.Context, partnerID, periodStart, periodEnd string) ([]*model.Booking, error) {
			return []*model.Booking{{ID: "b1", Price: 100000}}, nil
		},
	}
	var notedPatch *repository.StatusPatch
	repo := &mockSettlementRepository{
		updateStatusIfFunc: func(ctx context.Context, id string, fromStatuses []string, patch repository.StatusPatch) (*model.Settlement, error) {
			notedPatch = &patch
			updated := &model.Settlement{ID: id, Status: model.SettlementPending}
			if patch.Notes != nil {
				updated.Notes = *patch.Notes
			}
			return updated, nil
		},
	}
	revenues := &mockRevenueRepository{
		createFunc: func(ctx context.Context, r *model.PlatformRevenue) error {
			return context.DeadlineExceeded
		},
	}

	svc := newTestService(repo, bookings, &mockPartnerRepository{}, revenues, &mockProcessorClient{})
	settlement, err := svc.Aggregate(context.Background(), &model.AggregationRequest{
		PartnerID:   "p1",
		PeriodStart: "2026-08-17",
		PeriodEnd:   "2026-08-23",
	})
	if err != nil {
		t.Fatalf("aggregation must not fail on a revenue record error, got: %v", err)
	}
	if notedPatch == nil || notedPatch.Notes == nil {
		t.Fatal("missing fee revenue must be noted on the settlement")
	}
	if !strings.Contains(settlement.Notes, "fee revenue record missing") {
		t.Errorf("expected reconciliation note on settlement, got %q", settlement.Notes)
	}
	if notedPatch.Status != nil {
		t.Errorf("note must not change the settlement status, got patch %+v", notedPatch)
	}
}

func TestAggregate_EmptyPeriodCreatesNothing(t *testing.T) {
	createCalled := false
	repo := &mockSettlementRepository{
		createFunc: func(ctx context.Context, settlement *model.Settlement) error {
			createCalled = true
			return nil
		},
	}

	svc := newTestService(repo, &mockBookingRepository{}, &mockPartnerRepository{}, &mockRevenueRepository{}, &mockProcessorClient{})
	settlement, err := svc.Aggregate(context.Background(), &model.AggregationRequest{
		PartnerID:   "p1",
		PeriodStart: "2026-08-17",
		PeriodEnd:   "2026-08-23",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settlement != nil {
		t.Errorf("expected no settlement for empty period, got %+v", settlement)
	}
	if createCalled {
		t.Error("empty period must not persist a settlement")
	}
}

func TestAggregate_DuplicatePeriodIsNoOp(t *testing.T) {
	bookings := &mockBookingRepository{
		findEligibleFunc: func(ctx context.Context, partnerID, periodStart, periodEnd string) ([]*model.Booking, error) {
			return []*model.Booking{{ID: "b1", Price: 10000}}, nil
		},
	}
	repo := &mockSettlementRepository{
		createFunc: func(ctx context.Context, settlement *model.Settlement) error {
			return settlementserrors.ErrDuplicate
		},
	}

	svc := newTestService(repo, bookings, &mockPartnerRepository{}, &mockRevenueRepository{}, &mockProcessorClient{})
	_, err := svc.Aggregate(context.Background(), &model.AggregationRequest{
		PartnerID:   "p1",
		PeriodStart: "2026-08-17",
		PeriodEnd:   "2026-08-23",
	})
	if !apperrors.IsCode(err, apperrors.CodeAlreadyProcessed) {
		t.Fatalf("expected ALREADY_PROCESSED, got %v", err)
	}
}

func TestAggregate_PartnerWithoutPayoutAccount(t *testing.T) {
	partners := &mockPartnerRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Partner, error) {
			return &model.Partner{ID: id, Name: "Partner"}, nil
		},
	}

	svc := newTestService(&mockSettlementRepository{}, &mockBookingRepository{}, partners, &mockRevenueRepository{}, &mockProcessorClient{})
	_, err := svc.Aggregate(context.Background(), &model.AggregationRequest{
		PartnerID:   "p1",
		PeriodStart: "2026-08-17",
		PeriodEnd:   "2026-08-23",
	})
	if !apperrors.IsCode(err, apperrors.CodeAccountNotReady) {
		t.Fatalf("expected PROCESSOR_ACCOUNT_NOT_READY, got %v", err)
	}
}

// ────────────────────────────────────────────────
// Advance
// ────────────────────────────────────────────────

func pendingSettlement() *model.Settlement {
	return &model.Settlement{
		ID:          "s1",
		PartnerID:   "p1",
		Period:      "2026-08-17 - 2026-08-23",
		PeriodStart: "2026-08-17",
		PeriodEnd:   "2026-08-23",
		TotalSales:  200000,
		Fee:         17000,
		Payout:      183000,
		Status:      model.SettlementPending,
	}
}

// casSettlementRepo applies UpdateStatusIf against an in-memory
// settlement so tests observe real state progression.
func casSettlementRepo(settlement *model.Settlement) *mockSettlementRepository {
	return &mockSettlementRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Settlement, error) {
			copied := *settlement
			return &copied, nil
		},
		updateStatusIfFunc: func(ctx context.Context, id string, fromStatuses []string, patch repository.StatusPatch) (*model.Settlement, error) {
			matched := false
			for _, from := range fromStatuses {
				if settlement.Status == from {
					matched = true
					break
				}
			}
			if !matched {
				return nil, settlementserrors.ErrStateChanged
			}
			if patch.Status != nil {
				settlement.Status = *patch.Status
			}
			if patch.Notes != nil {
				settlement.Notes = *patch.Notes
			}
			if patch.TransferInfo != nil {
				settlement.TransferInfo = patch.TransferInfo
			}
			copied := *settlement
			return &copied, nil
		},
	}
}

func TestAdvance_TransferSuccess(t *testing.T) {
	settlement := pendingSettlement()
	repo := casSettlementRepo(settlement)

	var transferReq processor.TransferRequest
	psp := &mockProcessorClient{
		createTransferFunc: func(ctx context.Context, req processor.TransferRequest) (*processor.Transfer, error) {
			transferReq = req
			return &processor.Transfer{ID: "tr_99"}, nil
		},
	}
	var revenueStatus string
	revenues := &mockRevenueRepository{
		setStatusFunc: func(ctx context.Context, transactionID, status string) error {
			revenueStatus = status
			return nil
		},
	}

	svc := newTestService(repo, &mockBookingRepository{}, &mockPartnerRepository{}, revenues, psp)
	updated, err := svc.Advance(context.Background(), "s1", &model.AdvanceRequest{Status: model.SettlementProcessing})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != model.SettlementCompleted {
		t.Errorf("expected completed, got %s", updated.Status)
	}
	if updated.TransferInfo == nil || updated.TransferInfo.TransferID != "tr_99" {
		t.Errorf("expected transfer info tr_99, got %+v", updated.TransferInfo)
	}
	if transferReq.Amount != 183000 {
		t.Errorf("expected transfer of 183000, got %d", transferReq.Amount)
	}
	if transferReq.IdempotencyKey == "" {
		t.Error("transfer must carry an idempotency key")
	}
	if transferReq.Metadata["settlement_id"] != "s1" {
		t.Errorf("expected settlement metadata, got %v", transferReq.Metadata)
	}
	if revenueStatus != model.RevenueCompleted {
		t.Errorf("expected fee revenue completed, got %q", revenueStatus)
	}
}

func TestAdvance_PayoutsDisabledFails(t *testing.T) {
	settlement := pendingSettlement()
	repo := casSettlementRepo(settlement)

	psp := &mockProcessorClient{
		getAccountFunc: func(ctx context.Context, accountRef string) (*processor.Account, error) {
			return &processor.Account{ID: accountRef, DetailsSubmitted: true, PayoutsEnabled: false}, nil
		},
	}

	svc := newTestService(repo, &mockBookingRepository{}, &mockPartnerRepository{}, &mockRevenueRepository{}, psp)
	_, err := svc.Advance(context.Background(), "s1", &model.AdvanceRequest{Status: model.SettlementProcessing})
	if !apperrors.IsCode(err, apperrors.CodeAccountNotReady) {
		t.Fatalf("expected PROCESSOR_ACCOUNT_NOT_READY, got %v", err)
	}
	if settlement.Status != model.SettlementFailed {
		t.Errorf("expected settlement failed, got %s", settlement.Status)
	}
	if settlement.Notes == "" {
		t.Error("failed settlement must carry a reason in notes")
	}
}

func TestAdvance_TransferFailureRecordsNotes(t *testing.T) {
	settlement := pendingSettlement()
	repo := casSettlementRepo(settlement)

	psp := &mockProcessorClient{
		createTransferFunc: func(ctx context.Context, req processor.TransferRequest) (*processor.Transfer, error) {
			return nil, apperrors.ProcessorFailed("insufficient platform balance", nil)
		},
	}

	svc := newTestService(repo, &mockBookingRepository{}, &mockPartnerRepository{}, &mockRevenueRepository{}, psp)
	_, err := svc.Advance(context.Background(), "s1", &model.AdvanceRequest{Status: model.SettlementProcessing})
	if !apperrors.IsCode(err, apperrors.CodeProcessorFailed) {
		t.Fatalf("expected PROCESSOR_CALL_FAILED, got %v", err)
	}
	if settlement.Status != model.SettlementFailed {
		t.Errorf("transfer failure must not leave settlement in %s", settlement.Status)
	}
	if !strings.Contains(settlement.Notes, "insufficient platform balance") {
		t.Errorf("expected processor message in notes, got %q", settlement.Notes)
	}
}

func TestAdvance_AlreadyProcessingRejected(t *testing.T) {
	settlement := pendingSettlement()
	settlement.Status = model.SettlementCompleted
	repo := casSettlementRepo(settlement)

	svc := newTestService(repo, &mockBookingRepository{}, &mockPartnerRepository{}, &mockRevenueRepository{}, &mockProcessorClient{})
	_, err := svc.Advance(context.Background(), "s1", &model.AdvanceRequest{Status: model.SettlementProcessing})
	if !apperrors.IsCode(err, apperrors.CodeInvalidState) {
		t.Fatalf("expected INVALID_STATE, got %v", err)
	}
}

func TestAdvance_OperatorPassThrough(t *testing.T) {
	settlement := pendingSettlement()
	settlement.Status = model.SettlementProcessing
	repo := casSettlementRepo(settlement)

	transferCalled := false
	psp := &mockProcessorClient{
		createTransferFunc: func(ctx context.Context, req processor.TransferRequest) (*processor.Transfer, error) {
			transferCalled = true
			return &processor.Transfer{ID: "tr_1"}, nil
		},
	}

	svc := newTestService(repo, &mockBookingRepository{}, &mockPartnerRepository{}, &mockRevenueRepository{}, psp)
	updated, err := svc.Advance(context.Background(), "s1", &model.AdvanceRequest{
		Status: model.SettlementFailed,
		Notes:  "manual reconciliation",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != model.SettlementFailed {
		t.Errorf("expected failed, got %s", updated.Status)
	}
	if updated.Notes != "manual reconciliation" {
		t.Errorf("expected operator notes, got %q", updated.Notes)
	}
	if transferCalled {
		t.Error("operator pass-through must not move money")
	}
}

// ────────────────────────────────────────────────
// AggregateAll
// ────────────────────────────────────────────────

func TestAggregateAll_SkipsIneligiblePartners(t *testing.T) {
	partners := &mockPartnerRepository{
		findAllFunc: func(ctx context.Context, limit int, offset int64) ([]*model.Partner, error) {
			if offset > 0 {
				return []*model.Partner{}, nil
			}
			return []*model.Partner{
				{ID: "p1", Name: "Ready", PayoutAccountRef: "acct_1"},
				{ID: "p2", Name: "Not onboarded"},
				{ID: "p3", Name: "Quiet period", PayoutAccountRef: "acct_3"},
			}, nil
		},
		findByIDFunc: func(ctx context.Context, id string) (*model.Partner, error) {
			switch id {
			case "p1":
				return &model.Partner{ID: "p1", Name: "Ready", PayoutAccountRef: "acct_1"}, nil
			case "p2":
				return &model.Partner{ID: "p2", Name: "Not onboarded"}, nil
			default:
				return &model.Partner{ID: "p3", Name: "Quiet period", PayoutAccountRef: "acct_3"}, nil
			}
		},
	}
	bookings := &mockBookingRepository{
		findEligibleFunc: func(ctx context.Context, partnerID, periodStart, periodEnd string) ([]*model.Booking, error) {
			if partnerID == "p1" {
				return []*model.Booking{{ID: "b1", Price: 10000}}, nil
			}
			return []*model.Booking{}, nil
		},
	}

	svc := newTestService(&mockSettlementRepository{}, bookings, partners, &mockRevenueRepository{}, &mockProcessorClient{})
	result, err := svc.AggregateAll(context.Background(), &model.BatchAggregationRequest{
		PeriodStart: "2026-08-17",
		PeriodEnd:   "2026-08-23",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Created != 1 {
		t.Errorf("expected 1 created, got %d", result.Created)
	}
	if result.Skipped != 2 {
		t.Errorf("expected 2 skipped, got %d", result.Skipped)
	}
	if result.Failed != 0 {
		t.Errorf("expected 0 failed, got %d", result.Failed)
	}
}
