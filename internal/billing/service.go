package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"trade-journal/internal/database"
	"trade-journal/internal/logging"
)

// Service implements the billing gate and the manual payment-order flow:
// a user opens a pending order, an admin confirms it, the paid window
// extends from max(now, current paid_until).
type Service struct {
	repo    *database.Repository
	enabled bool
	plans   map[string]Plan
	logger  *logging.Logger
}

// NewService creates a billing service
func NewService(repo *database.Repository, enabled bool) *Service {
	return &Service{
		repo:    repo,
		enabled: enabled,
		plans:   DefaultPlans(),
		logger:  logging.WithComponent("billing"),
	}
}

// Enabled reports whether the billing gate is active
func (s *Service) Enabled() bool {
	return s.enabled
}

// RequireActive returns ErrBillingRequired when billing is enabled and the
// user holds no unexpired subscription. Admins bypass the gate.
func (s *Service) RequireActive(ctx context.Context, userID string) error {
	if !s.enabled {
		return nil
	}

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load user for billing check: %w", err)
	}
	if user.IsAdmin {
		return nil
	}
	if user.IsPaid && user.PaidUntil != nil && user.PaidUntil.After(time.Now()) {
		return nil
	}
	return ErrBillingRequired
}

// GetStatus returns the user's billing view
func (s *Service) GetStatus(ctx context.Context, userID string) (*Status, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Status{
		BillingEnabled: s.enabled,
		IsPaid:         user.IsPaid && user.PaidUntil != nil && user.PaidUntil.After(time.Now()),
		PaidUntil:      user.PaidUntil,
		Plan:           user.Plan,
	}, nil
}

// planPrice returns the catalog price, honoring plan_prices overrides from
// admin settings (a JSON object of plan name to price)
func (s *Service) planPrice(ctx context.Context, plan Plan) float64 {
	raw, err := s.repo.GetSetting(ctx, database.SettingPlanPrices)
	if err != nil {
		return plan.Price
	}
	var overrides map[string]float64
	if err := json.Unmarshal([]byte(raw), &overrides); err != nil {
		s.logger.Warn("Ignoring malformed plan_prices setting", "error", err)
		return plan.Price
	}
	if price, ok := overrides[plan.Name]; ok && price > 0 {
		return price
	}
	return plan.Price
}

// CreateOrder opens a pending payment order for a plan
func (s *Service) CreateOrder(ctx context.Context, userID string, req *CreateOrderRequest) (*database.PaymentOrder, error) {
	plan, ok := s.plans[req.Plan]
	if !ok {
		return nil, ErrUnknownPlan
	}

	order := &database.PaymentOrder{
		ID:     uuid.New().String(),
		UserID: userID,
		Plan:   plan.Name,
		Amount: s.planPrice(ctx, plan),
		Status: database.OrderStatusPending,
	}
	if err := s.repo.CreatePaymentOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	s.logger.Info("Payment order created", "order_id", order.ID,
		"user_id", userID, "plan", order.Plan, "amount", order.Amount)
	return order, nil
}

// ListOrders returns the user's orders, newest first
func (s *Service) ListOrders(ctx context.Context, userID string) ([]*database.PaymentOrder, error) {
	return s.repo.ListPaymentOrders(ctx, userID)
}

// ListPendingOrders returns every pending order. Admin only.
func (s *Service) ListPendingOrders(ctx context.Context) ([]*database.PaymentOrder, error) {
	return s.repo.ListPendingPaymentOrders(ctx)
}

// CancelOrder cancels the user's own pending order
func (s *Service) CancelOrder(ctx context.Context, userID, orderID string) error {
	err := s.repo.CancelOrder(ctx, userID, orderID)
	if errors.Is(err, database.ErrNotFound) {
		return ErrOrderNotFound
	}
	return err
}

// ConfirmOrder marks a pending order paid and extends the buyer's
// subscription window. Admin only; runs in one transaction.
func (s *Service) ConfirmOrder(ctx context.Context, orderID string) (*database.PaymentOrder, error) {
	order, err := s.repo.GetPaymentOrder(ctx, orderID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	if order.Status != database.OrderStatusPending {
		return nil, ErrOrderNotFound
	}

	plan, ok := s.plans[order.Plan]
	if !ok {
		return nil, ErrUnknownPlan
	}

	user, err := s.repo.GetUserByID(ctx, order.UserID)
	if err != nil {
		return nil, err
	}
	from := time.Now()
	if user.PaidUntil != nil && user.PaidUntil.After(from) {
		from = *user.PaidUntil
	}
	paidUntil := from.Add(plan.Duration)

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.repo.MarkOrderPaid(ctx, tx, orderID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if err := s.repo.UpdateUserPlan(ctx, tx, order.UserID, order.Plan, paidUntil); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.logger.Info("Payment order confirmed", "order_id", orderID,
		"user_id", order.UserID, "paid_until", paidUntil)
	return s.repo.GetPaymentOrder(ctx, orderID)
}
