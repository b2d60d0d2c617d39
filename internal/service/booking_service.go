package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/frioserv/maintenance-service/internal/cache"
	"github.com/frioserv/maintenance-service/internal/engine"
	"github.com/frioserv/maintenance-service/internal/models"
)

var (
	ErrClientNotFound = errors.New("client not found")
	ErrOrderNotFound  = errors.New("order not found")
	ErrUnitNotFound   = errors.New("serviced unit not found")
)

// Repos required by the service (interfaces so tests can stub them).

type UnitRepo interface {
	GetUnitsByClient(ctx context.Context, clientID string) ([]models.ServicedUnit, error)
	GetUnitsByIDs(ctx context.Context, ids []string) ([]models.ServicedUnit, error)
	UpdateSchedule(ctx context.Context, tx *sql.Tx, unit models.ServicedUnit) error
}

type OrderRepo interface {
	Create(ctx context.Context, tx *sql.Tx, order models.Order) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
	GetOrdersLinkedToUnit(ctx context.Context, unitID string) ([]models.Order, error)
	GetOrdersForUnits(ctx context.Context, unitIDs []string) ([]models.Order, error)
	UpdateStatus(ctx context.Context, tx *sql.Tx, id string, status models.OrderStatus) error
}

type PricingRuleRepo interface {
	GetActive(ctx context.Context) (*models.PricingRule, error)
}

type BlackoutRepo interface {
	List(ctx context.Context) ([]models.BlackoutRange, error)
	Create(ctx context.Context, r models.BlackoutRange) (models.BlackoutRange, error)
}

type ClientRepo interface {
	GetByID(ctx context.Context, id string) (*models.Client, error)
	// GetAndLockForAward reads the client row FOR UPDATE so concurrent
	// completions serialize on the referral consumption.
	GetAndLockForAward(ctx context.Context, tx *sql.Tx, id string) (*models.Client, error)
	AddPoints(ctx context.Context, tx *sql.Tx, id string, points int) error
	ClearReferral(ctx context.Context, tx *sql.Tx, id string) error
	ConsumePoints(ctx context.Context, tx *sql.Tx, id string) error
}

type LoyaltyRepo interface {
	CreateAward(ctx context.Context, tx *sql.Tx, award models.LoyaltyAward) error
	MarkRedeemed(ctx context.Context, tx *sql.Tx, clientID string) error
}

// TxRunner runs fn inside one database transaction.
type TxRunner interface {
	InTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

type Deps struct {
	Tx        TxRunner
	Units     UnitRepo
	Orders    OrderRepo
	Rules     PricingRuleRepo
	Blackouts BlackoutRepo
	Clients   ClientRepo
	Loyalty   LoyaltyRepo
	RuleCache *cache.RuleCache
	Clock     func() time.Time
	Logger    *zap.Logger
}

// BookingService is the host side of the rule engine: it gathers
// snapshots, calls the pure engine functions and persists the derived
// state. The engine itself never touches the store.
type BookingService struct {
	tx        TxRunner
	units     UnitRepo
	orders    OrderRepo
	rules     PricingRuleRepo
	blackouts BlackoutRepo
	clients   ClientRepo
	loyalty   LoyaltyRepo
	ruleCache *cache.RuleCache
	clock     func() time.Time
	logger    *zap.Logger
}

func NewBookingService(d Deps) (*BookingService, error) {
	if d.Tx == nil || d.Units == nil || d.Orders == nil || d.Rules == nil ||
		d.Blackouts == nil || d.Clients == nil || d.Loyalty == nil {
		return nil, errors.New("booking service: missing dependency")
	}
	clock := d.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ruleCache := d.RuleCache
	if ruleCache == nil {
		ruleCache = cache.NewRuleCache(0, clock)
	}
	return &BookingService{
		tx:        d.Tx,
		units:     d.Units,
		orders:    d.Orders,
		rules:     d.Rules,
		blackouts: d.Blackouts,
		clients:   d.Clients,
		loyalty:   d.Loyalty,
		ruleCache: ruleCache,
		clock:     func() time.Time { return clock().UTC() },
		logger:    logger,
	}, nil
}

func (s *BookingService) activeRule(ctx context.Context) (models.PricingRule, error) {
	if rule, ok := s.ruleCache.Get(); ok {
		return rule, nil
	}
	rule, err := s.rules.GetActive(ctx)
	if err != nil {
		return models.PricingRule{}, fmt.Errorf("load pricing rule: %w", err)
	}
	if rule == nil {
		return models.PricingRule{}, engine.NewConfigurationError("pricing_rule_missing", "no active pricing rule configured")
	}
	s.ruleCache.Set(*rule)
	return *rule, nil
}

func (s *BookingService) loadClient(ctx context.Context, id string) (*models.Client, error) {
	client, err := s.clients.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load client %s: %w", id, err)
	}
	if client == nil {
		return nil, ErrClientNotFound
	}
	return client, nil
}

func (s *BookingService) loadUnits(ctx context.Context, ids []string) ([]models.ServicedUnit, error) {
	units, err := s.units.GetUnitsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load units: %w", err)
	}
	if len(units) != len(ids) {
		return nil, ErrUnitNotFound
	}
	return units, nil
}

// QuoteOrder prices a proposed booking without creating anything.
func (s *BookingService) QuoteOrder(ctx context.Context, clientID string, unitIDs []string, category models.ServiceCategory) (engine.Quote, error) {
	client, err := s.loadClient(ctx, clientID)
	if err != nil {
		return engine.Quote{}, err
	}
	units, err := s.loadUnits(ctx, unitIDs)
	if err != nil {
		return engine.Quote{}, err
	}
	rule, err := s.activeRule(ctx)
	if err != nil {
		return engine.Quote{}, err
	}
	return engine.PriceOrder(rule, units, category, *client)
}

type BookOrderCommand struct {
	ClientID        string
	LocationID      string
	UnitIDs         []string
	ServiceCategory models.ServiceCategory
	ScheduledDate   time.Time
}

// BookOrder validates the proposed date against blackouts, prices the
// selection and creates a pending order linked to its units.
func (s *BookingService) BookOrder(ctx context.Context, cmd BookOrderCommand) (*models.Order, error) {
	ranges, err := s.blackouts.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load blackout ranges: %w", err)
	}
	now := s.clock()
	if err := engine.ValidateBookingDate(cmd.ScheduledDate, now, ranges); err != nil {
		return nil, err
	}

	client, err := s.loadClient(ctx, cmd.ClientID)
	if err != nil {
		return nil, err
	}
	units, err := s.loadUnits(ctx, cmd.UnitIDs)
	if err != nil {
		return nil, err
	}
	rule, err := s.activeRule(ctx)
	if err != nil {
		return nil, err
	}
	quote, err := engine.PriceOrder(rule, units, cmd.ServiceCategory, *client)
	if err != nil {
		return nil, err
	}

	order := models.Order{
		ID:              s.newID(),
		ClientID:        cmd.ClientID,
		LocationID:      cmd.LocationID,
		ServiceCategory: cmd.ServiceCategory,
		ScheduledDate:   cmd.ScheduledDate,
		Status:          models.OrderPending,
		Amount:          quote.Total,
		UnitCount:       len(units),
		DiscountPercent: quote.DiscountPercent,
		DiscountAmount:  quote.DiscountAmount,
		UnitIDs:         cmd.UnitIDs,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err = s.tx.InTx(ctx, func(tx *sql.Tx) error {
		return s.orders.Create(ctx, tx, order)
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	return &order, nil
}

// ConfirmOrder moves a pending order to confirmed.
func (s *BookingService) ConfirmOrder(ctx context.Context, orderID string) error {
	return s.transition(ctx, orderID, models.OrderConfirmed)
}

// VoidOrder cancels a pending or confirmed order. Void is the only
// backward escape from the lifecycle.
func (s *BookingService) VoidOrder(ctx context.Context, orderID string) error {
	return s.transition(ctx, orderID, models.OrderVoided)
}

func (s *BookingService) transition(ctx context.Context, orderID string, next models.OrderStatus) error {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("load order %s: %w", orderID, err)
	}
	if order == nil {
		return ErrOrderNotFound
	}
	if !order.CanTransitionTo(next) {
		return engine.NewValidationError("invalid_status_transition", "order %s cannot move from %s to %s", orderID, order.Status, next)
	}
	return s.tx.InTx(ctx, func(tx *sql.Tx) error {
		return s.orders.UpdateStatus(ctx, tx, orderID, next)
	})
}

// CompleteOrder marks the order completed and, in the same
// transaction, refreshes each linked unit's maintenance schedule and
// settles referral credit. The referred client's row is locked so a
// concurrent completion cannot double-award; once ReferredBy is
// cleared a second award pass is a no-op.
func (s *BookingService) CompleteOrder(ctx context.Context, orderID string) error {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("load order %s: %w", orderID, err)
	}
	if order == nil {
		return ErrOrderNotFound
	}
	if !order.CanTransitionTo(models.OrderCompleted) {
		return engine.NewValidationError("invalid_status_transition", "order %s cannot move from %s to completed", orderID, order.Status)
	}

	units, err := s.loadUnits(ctx, order.UnitIDs)
	if err != nil {
		return err
	}
	now := s.clock()

	return s.tx.InTx(ctx, func(tx *sql.Tx) error {
		if err := s.orders.UpdateStatus(ctx, tx, orderID, models.OrderCompleted); err != nil {
			return fmt.Errorf("update order status: %w", err)
		}

		for i := range units {
			engine.ApplyCompletion(&units[i], order.ServiceCategory, now)
			if err := s.units.UpdateSchedule(ctx, tx, units[i]); err != nil {
				return fmt.Errorf("update unit %s schedule: %w", units[i].ID, err)
			}
		}

		client, err := s.clients.GetAndLockForAward(ctx, tx, order.ClientID)
		if err != nil {
			return fmt.Errorf("lock client %s: %w", order.ClientID, err)
		}
		if client == nil {
			return ErrClientNotFound
		}

		completed := *order
		completed.Status = models.OrderCompleted
		result, ok := engine.AwardOnCompletion(completed, *client, now)
		if !ok {
			return nil
		}

		referrer, err := s.clients.GetByID(ctx, result.ReferrerID)
		if err != nil {
			return fmt.Errorf("load referrer %s: %w", result.ReferrerID, err)
		}
		if referrer == nil {
			// A dangling referral must not block order completion.
			s.logger.Warn("referral award skipped: referrer not found",
				zap.String("order_id", orderID),
				zap.String("client_id", client.ID),
				zap.String("referrer_id", result.ReferrerID))
			return nil
		}

		if err := s.clients.AddPoints(ctx, tx, result.ReferrerID, result.Points); err != nil {
			return fmt.Errorf("add referrer points: %w", err)
		}
		for _, award := range result.Awards {
			award.ID = s.newID()
			if err := s.loyalty.CreateAward(ctx, tx, award); err != nil {
				return fmt.Errorf("create loyalty award: %w", err)
			}
		}
		if err := s.clients.ClearReferral(ctx, tx, client.ID); err != nil {
			return fmt.Errorf("clear referral: %w", err)
		}
		return nil
	})
}

type RedeemOrderCommand struct {
	ClientID      string
	UnitID        string
	LocationID    string
	ScheduledDate time.Time
}

// RedeemOrder books a zero-cost cleaning visit against loyalty credit.
// Only the client's lowest-priced unit qualifies, the full point
// balance is consumed, and the order carries the redeemed status so it
// never counts as revenue or re-triggers referral awards.
func (s *BookingService) RedeemOrder(ctx context.Context, cmd RedeemOrderCommand) (*models.Order, error) {
	client, err := s.loadClient(ctx, cmd.ClientID)
	if err != nil {
		return nil, err
	}
	clientUnits, err := s.units.GetUnitsByClient(ctx, cmd.ClientID)
	if err != nil {
		return nil, fmt.Errorf("load client units: %w", err)
	}
	var unit *models.ServicedUnit
	for i := range clientUnits {
		if clientUnits[i].ID == cmd.UnitID {
			unit = &clientUnits[i]
			break
		}
	}
	if unit == nil {
		return nil, ErrUnitNotFound
	}

	rule, err := s.activeRule(ctx)
	if err != nil {
		return nil, err
	}
	now := s.clock()
	if err := engine.ValidateRedemption(rule, *unit, clientUnits, *client, now); err != nil {
		return nil, err
	}

	ranges, err := s.blackouts.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load blackout ranges: %w", err)
	}
	if err := engine.ValidateBookingDate(cmd.ScheduledDate, now, ranges); err != nil {
		return nil, err
	}

	order := models.Order{
		ID:              s.newID(),
		ClientID:        cmd.ClientID,
		LocationID:      cmd.LocationID,
		ServiceCategory: models.ServiceCleaning,
		ScheduledDate:   cmd.ScheduledDate,
		Status:          models.OrderRedeemed,
		Amount:          0,
		UnitCount:       1,
		UnitIDs:         []string{cmd.UnitID},
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err = s.tx.InTx(ctx, func(tx *sql.Tx) error {
		if err := s.orders.Create(ctx, tx, order); err != nil {
			return fmt.Errorf("create redemption order: %w", err)
		}
		if err := s.clients.ConsumePoints(ctx, tx, cmd.ClientID); err != nil {
			return fmt.Errorf("consume points: %w", err)
		}
		if err := s.loyalty.MarkRedeemed(ctx, tx, cmd.ClientID); err != nil {
			return fmt.Errorf("mark awards redeemed: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// UnitStatus pairs a unit with its resolved lifecycle state for one
// service category.
type UnitStatus struct {
	Unit   models.ServicedUnit
	Status engine.Status
}

// UnitStatuses resolves the lifecycle state of every unit the client
// owns for the given category. Units and their linked orders are read
// in one pass so the resolver sees a coherent snapshot.
func (s *BookingService) UnitStatuses(ctx context.Context, clientID string, category models.ServiceCategory) ([]UnitStatus, error) {
	units, err := s.units.GetUnitsByClient(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("load client units: %w", err)
	}
	if len(units) == 0 {
		return nil, nil
	}

	ids := make([]string, len(units))
	for i, u := range units {
		ids[i] = u.ID
	}
	orders, err := s.orders.GetOrdersForUnits(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load linked orders: %w", err)
	}

	now := s.clock()
	statuses := make([]UnitStatus, len(units))
	for i, u := range units {
		statuses[i] = UnitStatus{Unit: u, Status: engine.ResolveStatus(u, orders, category, now)}
	}
	return statuses, nil
}

// CreateBlackout registers a new admin blackout range.
func (s *BookingService) CreateBlackout(ctx context.Context, r models.BlackoutRange) (models.BlackoutRange, error) {
	if r.FromDate.IsZero() || r.ToDate.IsZero() || r.ToDate.Before(r.FromDate) {
		return models.BlackoutRange{}, engine.NewValidationError("invalid_range", "blackout range bounds are missing or inverted")
	}
	created, err := s.blackouts.Create(ctx, r)
	if err != nil {
		return models.BlackoutRange{}, fmt.Errorf("create blackout: %w", err)
	}
	return created, nil
}

// ListBlackouts returns the configured blackout ranges.
func (s *BookingService) ListBlackouts(ctx context.Context) ([]models.BlackoutRange, error) {
	return s.blackouts.List(ctx)
}

func (s *BookingService) newID() string {
	return ulid.MustNew(ulid.Timestamp(s.clock()), rand.Reader).String()
}
