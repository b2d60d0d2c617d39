package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/frioserv/maintenance-service/internal/engine"
	"github.com/frioserv/maintenance-service/internal/models"
)

// --- stubs ---

type stubTxRunner struct{}

func (stubTxRunner) InTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return fn(nil)
}

type stubStore struct {
	units     map[string]*models.ServicedUnit
	orders    map[string]*models.Order
	clients   map[string]*models.Client
	rule      *models.PricingRule
	blackouts []models.BlackoutRange
	awards    []models.LoyaltyAward
}

func newStubStore() *stubStore {
	return &stubStore{
		units:   map[string]*models.ServicedUnit{},
		orders:  map[string]*models.Order{},
		clients: map[string]*models.Client{},
	}
}

func (s *stubStore) GetUnitsByClient(_ context.Context, clientID string) ([]models.ServicedUnit, error) {
	var out []models.ServicedUnit
	for _, u := range s.units {
		if u.ClientID == clientID {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (s *stubStore) GetUnitsByIDs(_ context.Context, ids []string) ([]models.ServicedUnit, error) {
	var out []models.ServicedUnit
	for _, id := range ids {
		if u, ok := s.units[id]; ok {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (s *stubStore) UpdateSchedule(_ context.Context, _ *sql.Tx, unit models.ServicedUnit) error {
	stored, ok := s.units[unit.ID]
	if !ok {
		return errors.New("unit missing")
	}
	*stored = unit
	return nil
}

func (s *stubStore) Create(_ context.Context, _ *sql.Tx, order models.Order) error {
	copied := order
	s.orders[order.ID] = &copied
	return nil
}

func (s *stubStore) GetByID(_ context.Context, id string) (*models.Order, error) {
	o, ok := s.orders[id]
	if !ok {
		return nil, nil
	}
	copied := *o
	return &copied, nil
}

func (s *stubStore) GetOrdersLinkedToUnit(_ context.Context, unitID string) ([]models.Order, error) {
	var out []models.Order
	for _, o := range s.orders {
		if o.LinksUnit(unitID) {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (s *stubStore) GetOrdersForUnits(_ context.Context, unitIDs []string) ([]models.Order, error) {
	var out []models.Order
	for _, o := range s.orders {
		for _, id := range unitIDs {
			if o.LinksUnit(id) {
				out = append(out, *o)
				break
			}
		}
	}
	return out, nil
}

func (s *stubStore) UpdateStatus(_ context.Context, _ *sql.Tx, id string, status models.OrderStatus) error {
	o, ok := s.orders[id]
	if !ok {
		return errors.New("order missing")
	}
	o.Status = status
	return nil
}

func (s *stubStore) GetActive(_ context.Context) (*models.PricingRule, error) {
	return s.rule, nil
}

func (s *stubStore) List(_ context.Context) ([]models.BlackoutRange, error) {
	return s.blackouts, nil
}

func (s *stubStore) CreateBlackout(_ context.Context, r models.BlackoutRange) (models.BlackoutRange, error) {
	r.ID = len(s.blackouts) + 1
	s.blackouts = append(s.blackouts, r)
	return r, nil
}

func (s *stubStore) GetClientByID(_ context.Context, id string) (*models.Client, error) {
	c, ok := s.clients[id]
	if !ok {
		return nil, nil
	}
	copied := *c
	return &copied, nil
}

func (s *stubStore) GetAndLockForAward(ctx context.Context, _ *sql.Tx, id string) (*models.Client, error) {
	return s.GetClientByID(ctx, id)
}

func (s *stubStore) AddPoints(_ context.Context, _ *sql.Tx, id string, points int) error {
	c, ok := s.clients[id]
	if !ok {
		return errors.New("client missing")
	}
	c.Points += points
	return nil
}

func (s *stubStore) ClearReferral(_ context.Context, _ *sql.Tx, id string) error {
	c, ok := s.clients[id]
	if !ok {
		return errors.New("client missing")
	}
	c.ReferredBy = ""
	return nil
}

func (s *stubStore) ConsumePoints(_ context.Context, _ *sql.Tx, id string) error {
	c, ok := s.clients[id]
	if !ok {
		return errors.New("client missing")
	}
	c.Points = 0
	return nil
}

func (s *stubStore) CreateAward(_ context.Context, _ *sql.Tx, award models.LoyaltyAward) error {
	s.awards = append(s.awards, award)
	return nil
}

func (s *stubStore) MarkRedeemed(_ context.Context, _ *sql.Tx, clientID string) error {
	for i := range s.awards {
		if s.awards[i].ClientID == clientID && s.awards[i].Status == models.AwardActive {
			s.awards[i].Status = models.AwardRedeemed
		}
	}
	return nil
}

// adapters so one stubStore satisfies every repo interface despite the
// overlapping method names

type stubBlackoutRepo struct{ store *stubStore }

func (r stubBlackoutRepo) List(ctx context.Context) ([]models.BlackoutRange, error) {
	return r.store.List(ctx)
}

func (r stubBlackoutRepo) Create(ctx context.Context, b models.BlackoutRange) (models.BlackoutRange, error) {
	return r.store.CreateBlackout(ctx, b)
}

type stubClientRepo struct{ store *stubStore }

func (r stubClientRepo) GetByID(ctx context.Context, id string) (*models.Client, error) {
	return r.store.GetClientByID(ctx, id)
}

func (r stubClientRepo) GetAndLockForAward(ctx context.Context, tx *sql.Tx, id string) (*models.Client, error) {
	return r.store.GetAndLockForAward(ctx, tx, id)
}

func (r stubClientRepo) AddPoints(ctx context.Context, tx *sql.Tx, id string, points int) error {
	return r.store.AddPoints(ctx, tx, id, points)
}

func (r stubClientRepo) ClearReferral(ctx context.Context, tx *sql.Tx, id string) error {
	return r.store.ClearReferral(ctx, tx, id)
}

func (r stubClientRepo) ConsumePoints(ctx context.Context, tx *sql.Tx, id string) error {
	return r.store.ConsumePoints(ctx, tx, id)
}

// --- fixtures ---

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newTestService(t *testing.T, store *stubStore, now time.Time) *BookingService {
	t.Helper()
	svc, err := NewBookingService(Deps{
		Tx:        stubTxRunner{},
		Units:     store,
		Orders:    store,
		Rules:     store,
		Blackouts: stubBlackoutRepo{store},
		Clients:   stubClientRepo{store},
		Loyalty:   store,
		Clock:     fixedClock(now),
	})
	if err != nil {
		t.Fatalf("NewBookingService: %v", err)
	}
	return svc
}

func seedStore() *stubStore {
	store := newStubStore()
	rule := models.PricingRule{
		SplitBasePrice:              500,
		WindowBasePrice:             400,
		SplitSurchargeOver:          2.0,
		WindowSurchargeOver:         1.5,
		SurchargeAmount:             150,
		StandardDiscountPercent:     10,
		RelationshipDiscountPercent: 15,
		RepairPrice:                 300,
	}
	store.rule = &rule
	store.clients["c1"] = &models.Client{ID: "c1", ReferredBy: "ref-1"}
	store.clients["ref-1"] = &models.Client{ID: "ref-1"}
	store.units["u1"] = &models.ServicedUnit{ID: "u1", ClientID: "c1", Category: models.CategorySplit, CapacityClass: 1.0}
	store.units["u2"] = &models.ServicedUnit{ID: "u2", ClientID: "c1", Category: models.CategorySplit, CapacityClass: 1.5}
	store.units["u3"] = &models.ServicedUnit{ID: "u3", ClientID: "c1", Category: models.CategoryWindow, CapacityClass: 2.0}
	return store
}

var testNow = time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)

// --- tests ---

func TestBookOrder_CreatesPendingOrderWithQuote(t *testing.T) {
	store := seedStore()
	svc := newTestService(t, store, testNow)

	order, err := svc.BookOrder(context.Background(), BookOrderCommand{
		ClientID:        "c1",
		UnitIDs:         []string{"u1", "u2", "u3"},
		ServiceCategory: models.ServiceCleaning,
		ScheduledDate:   time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("BookOrder: %v", err)
	}
	if order.Status != models.OrderPending {
		t.Fatalf("new order status = %s, want pending", order.Status)
	}
	// 500 + 500 + (400+150) = 1550, standard 10% off.
	if order.Amount != 1395 {
		t.Fatalf("order amount = %.2f, want 1395.00", order.Amount)
	}
	if order.UnitCount != 3 || len(order.UnitIDs) != 3 {
		t.Fatalf("order unit links wrong: count %d links %d", order.UnitCount, len(order.UnitIDs))
	}
	if _, ok := store.orders[order.ID]; !ok {
		t.Fatalf("order not persisted")
	}
}

func TestBookOrder_RejectsBlackoutAndPastDates(t *testing.T) {
	store := seedStore()
	store.blackouts = []models.BlackoutRange{
		{ID: 1, Label: "audit", FromDate: time.Date(2026, time.March, 9, 0, 0, 0, 0, time.UTC), ToDate: time.Date(2026, time.March, 11, 0, 0, 0, 0, time.UTC)},
	}
	svc := newTestService(t, store, testNow)

	cmd := BookOrderCommand{
		ClientID:        "c1",
		UnitIDs:         []string{"u1"},
		ServiceCategory: models.ServiceCleaning,
		ScheduledDate:   time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC),
	}
	if _, err := svc.BookOrder(context.Background(), cmd); !engine.IsValidation(err) {
		t.Fatalf("expected validation error for blackout date, got %v", err)
	}

	cmd.ScheduledDate = testNow // same day
	if _, err := svc.BookOrder(context.Background(), cmd); !engine.IsValidation(err) {
		t.Fatalf("expected validation error for same-day booking, got %v", err)
	}
	if len(store.orders) != 0 {
		t.Fatalf("rejected bookings must not persist orders")
	}
}

func TestCompleteOrder_ReferralEndToEnd(t *testing.T) {
	store := seedStore()
	svc := newTestService(t, store, testNow)

	order, err := svc.BookOrder(context.Background(), BookOrderCommand{
		ClientID:        "c1",
		UnitIDs:         []string{"u1", "u2", "u3"},
		ServiceCategory: models.ServiceCleaning,
		ScheduledDate:   time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("BookOrder: %v", err)
	}

	if err := svc.CompleteOrder(context.Background(), order.ID); err != nil {
		t.Fatalf("CompleteOrder: %v", err)
	}

	if store.orders[order.ID].Status != models.OrderCompleted {
		t.Fatalf("order status = %s, want completed", store.orders[order.ID].Status)
	}
	// 3 units: base point + bulk bonus.
	if got := store.clients["ref-1"].Points; got != 2 {
		t.Fatalf("referrer points = %d, want 2", got)
	}
	if got := store.clients["c1"].ReferredBy; got != "" {
		t.Fatalf("referral not consumed, ReferredBy = %q", got)
	}
	if len(store.awards) != 2 {
		t.Fatalf("award records = %d, want 2", len(store.awards))
	}
	// Schedules refreshed from the completion date.
	u1 := store.units["u1"]
	if !u1.LastServiceDate.Equal(testNow) {
		t.Fatalf("unit last service = %s, want %s", u1.LastServiceDate, testNow)
	}
	wantDue3 := time.Date(2026, time.June, 1, 10, 0, 0, 0, time.UTC)
	if !u1.Due3Months.Equal(wantDue3) {
		t.Fatalf("unit due3 = %s, want %s", u1.Due3Months, wantDue3)
	}
}

func TestCompleteOrder_AwardIdempotent(t *testing.T) {
	store := seedStore()
	svc := newTestService(t, store, testNow)

	first, err := svc.BookOrder(context.Background(), BookOrderCommand{
		ClientID: "c1", UnitIDs: []string{"u1"}, ServiceCategory: models.ServiceCleaning,
		ScheduledDate: time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("BookOrder: %v", err)
	}
	if err := svc.CompleteOrder(context.Background(), first.ID); err != nil {
		t.Fatalf("CompleteOrder: %v", err)
	}

	// Completing the same order twice is a status-transition error.
	if err := svc.CompleteOrder(context.Background(), first.ID); !engine.IsValidation(err) {
		t.Fatalf("expected invalid transition on double completion, got %v", err)
	}

	// A later order of the same client awards nothing: ReferredBy is
	// already cleared.
	second, err := svc.BookOrder(context.Background(), BookOrderCommand{
		ClientID: "c1", UnitIDs: []string{"u2"}, ServiceCategory: models.ServiceCleaning,
		ScheduledDate: time.Date(2026, time.March, 12, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("BookOrder: %v", err)
	}
	if err := svc.CompleteOrder(context.Background(), second.ID); err != nil {
		t.Fatalf("CompleteOrder second: %v", err)
	}
	if got := store.clients["ref-1"].Points; got != 1 {
		t.Fatalf("referrer points after second completion = %d, want 1 (no double award)", got)
	}
}

func TestCompleteOrder_MissingReferrerDegradesToNoop(t *testing.T) {
	store := seedStore()
	delete(store.clients, "ref-1")
	svc := newTestService(t, store, testNow)

	order, err := svc.BookOrder(context.Background(), BookOrderCommand{
		ClientID: "c1", UnitIDs: []string{"u1"}, ServiceCategory: models.ServiceCleaning,
		ScheduledDate: time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("BookOrder: %v", err)
	}
	if err := svc.CompleteOrder(context.Background(), order.ID); err != nil {
		t.Fatalf("completion must survive a dangling referral, got %v", err)
	}
	if store.orders[order.ID].Status != models.OrderCompleted {
		t.Fatalf("order not completed despite dangling referral")
	}
	if len(store.awards) != 0 {
		t.Fatalf("no awards expected for missing referrer")
	}
}

func TestCompleteOrder_RepairSetsRepairDateOnly(t *testing.T) {
	store := seedStore()
	svc := newTestService(t, store, testNow)

	order, err := svc.BookOrder(context.Background(), BookOrderCommand{
		ClientID: "c1", UnitIDs: []string{"u1"}, ServiceCategory: models.ServiceRepair,
		ScheduledDate: time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("BookOrder: %v", err)
	}
	if order.DiscountPercent != 0 {
		t.Fatalf("repair order discount = %.2f, want 0", order.DiscountPercent)
	}
	if err := svc.CompleteOrder(context.Background(), order.ID); err != nil {
		t.Fatalf("CompleteOrder: %v", err)
	}

	u1 := store.units["u1"]
	if u1.LastRepairDate.IsZero() {
		t.Fatalf("repair completion must set last repair date")
	}
	if u1.HasSchedule() {
		t.Fatalf("repair completion must not create a cleaning schedule")
	}
}

func TestRedeemOrder_HappyPath(t *testing.T) {
	store := seedStore()
	store.clients["c1"].Points = 3
	store.awards = []models.LoyaltyAward{
		{ID: "a1", ClientID: "c1", Amount: 1, Status: models.AwardActive},
	}
	svc := newTestService(t, store, testNow)

	order, err := svc.RedeemOrder(context.Background(), RedeemOrderCommand{
		ClientID:      "c1",
		UnitID:        "u1", // 500, the cheapest alongside u2
		ScheduledDate: time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("RedeemOrder: %v", err)
	}
	if order.Status != models.OrderRedeemed || order.Amount != 0 {
		t.Fatalf("redemption order = status %s amount %.2f, want redeemed/0", order.Status, order.Amount)
	}
	if store.clients["c1"].Points != 0 {
		t.Fatalf("points not consumed, balance = %d", store.clients["c1"].Points)
	}
	if store.awards[0].Status != models.AwardRedeemed {
		t.Fatalf("award not marked redeemed")
	}
}

func TestRedeemOrder_RejectsExpensiveUnit(t *testing.T) {
	store := seedStore()
	store.clients["c1"].Points = 3
	svc := newTestService(t, store, testNow)

	_, err := svc.RedeemOrder(context.Background(), RedeemOrderCommand{
		ClientID:      "c1",
		UnitID:        "u3", // window above threshold: 550, not the minimum
		ScheduledDate: time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC),
	})
	if !engine.IsValidation(err) {
		t.Fatalf("expected validation error for non-minimum unit, got %v", err)
	}
	if len(store.orders) != 0 {
		t.Fatalf("failed redemption must not create an order")
	}
}

func TestRedeemOrder_RejectsZeroPoints(t *testing.T) {
	store := seedStore()
	svc := newTestService(t, store, testNow)

	_, err := svc.RedeemOrder(context.Background(), RedeemOrderCommand{
		ClientID:      "c1",
		UnitID:        "u1",
		ScheduledDate: time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC),
	})
	if !engine.IsValidation(err) {
		t.Fatalf("expected validation error for zero balance, got %v", err)
	}
}

func TestQuoteOrder_MissingRuleIsConfigurationError(t *testing.T) {
	store := seedStore()
	store.rule = nil
	svc := newTestService(t, store, testNow)

	_, err := svc.QuoteOrder(context.Background(), "c1", []string{"u1"}, models.ServiceCleaning)
	if !engine.IsConfiguration(err) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestUnitStatuses_ResolvesPerCategory(t *testing.T) {
	store := seedStore()
	svc := newTestService(t, store, testNow)

	if _, err := svc.BookOrder(context.Background(), BookOrderCommand{
		ClientID: "c1", UnitIDs: []string{"u1"}, ServiceCategory: models.ServiceCleaning,
		ScheduledDate: time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC),
	}); err != nil {
		t.Fatalf("BookOrder: %v", err)
	}

	statuses, err := svc.UnitStatuses(context.Background(), "c1", models.ServiceCleaning)
	if err != nil {
		t.Fatalf("UnitStatuses: %v", err)
	}
	byID := map[string]engine.Status{}
	for _, s := range statuses {
		byID[s.Unit.ID] = s.Status
	}
	if byID["u1"] != engine.StatusScheduled {
		t.Fatalf("u1 status = %s, want scheduled (pending order)", byID["u1"])
	}
	if byID["u2"] != engine.StatusNeverServiced {
		t.Fatalf("u2 status = %s, want neverServiced", byID["u2"])
	}
}

func TestConfirmAndVoid_Transitions(t *testing.T) {
	store := seedStore()
	svc := newTestService(t, store, testNow)

	order, err := svc.BookOrder(context.Background(), BookOrderCommand{
		ClientID: "c1", UnitIDs: []string{"u1"}, ServiceCategory: models.ServiceCleaning,
		ScheduledDate: time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("BookOrder: %v", err)
	}

	if err := svc.ConfirmOrder(context.Background(), order.ID); err != nil {
		t.Fatalf("ConfirmOrder: %v", err)
	}
	if err := svc.ConfirmOrder(context.Background(), order.ID); !engine.IsValidation(err) {
		t.Fatalf("double confirm must fail, got %v", err)
	}
	if err := svc.VoidOrder(context.Background(), order.ID); err != nil {
		t.Fatalf("VoidOrder: %v", err)
	}
	if err := svc.CompleteOrder(context.Background(), order.ID); !engine.IsValidation(err) {
		t.Fatalf("completing a voided order must fail, got %v", err)
	}
	if err := svc.ConfirmOrder(context.Background(), "missing"); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}
