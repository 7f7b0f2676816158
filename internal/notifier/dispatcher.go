package notifier

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"trade-journal/internal/database"
	"trade-journal/internal/email"
)

// AlertEvent is one threshold crossing queued for delivery
type AlertEvent struct {
	UserID             string
	Email              string
	EmailAlertsEnabled bool
	TradeID            int64
	StockCode          string
	StockName          string
	Direction          string
	Price              float64
	TargetPrice        float64
	TriggeredAt        time.Time
}

// DeliveryStore records when an alert was last sent per target
type DeliveryStore interface {
	GetAlertLastSent(ctx context.Context, userID, stockCode, direction string) (time.Time, error)
	RecordAlertSent(ctx context.Context, userID, stockCode, direction string, sentAt time.Time) error
}

// EmailSender delivers one rendered alert
type EmailSender interface {
	SendAlertEmail(ctx context.Context, to string, data email.AlertData) error
}

const defaultInboxSize = 1024

// Dispatcher consumes alert events from a bounded inbox, applies the
// per-(user, code, direction) rate limit, and sends emails. When the inbox
// is full the oldest event is dropped; the monitor re-emits on the next
// tick if the condition still holds.
type Dispatcher struct {
	store  DeliveryStore
	sender EmailSender
	window time.Duration
	inbox  chan AlertEvent
	logger zerolog.Logger
}

// New creates a dispatcher with the given rate-limit window
func New(store DeliveryStore, sender EmailSender, window time.Duration, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		store:  store,
		sender: sender,
		window: window,
		inbox:  make(chan AlertEvent, defaultInboxSize),
		logger: logger.With().Str("component", "notifier").Logger(),
	}
}

// Publish enqueues an event without blocking. On a full inbox the oldest
// event is discarded to make room. Returns whether the event was queued.
func (d *Dispatcher) Publish(event AlertEvent) bool {
	for {
		select {
		case d.inbox <- event:
			return true
		default:
		}
		select {
		case dropped := <-d.inbox:
			d.logger.Warn().
				Str("code", dropped.StockCode).
				Str("direction", dropped.Direction).
				Msg("inbox full, dropping oldest alert")
		default:
		}
	}
}

// Run consumes the inbox until ctx is cancelled
func (d *Dispatcher) Run(ctx context.Context) {
	d.logger.Info().Dur("window", d.window).Msg("notification dispatcher started")
	for {
		select {
		case <-ctx.Done():
			d.logger.Info().Msg("notification dispatcher stopped")
			return
		case event := <-d.inbox:
			d.deliver(ctx, event)
		}
	}
}

// deliver applies the user preference and rate-limit checks, sends, and
// records the outcome. Send failures are logged but not retried; the
// monitor re-emits while the condition holds.
func (d *Dispatcher) deliver(ctx context.Context, event AlertEvent) {
	if !event.EmailAlertsEnabled || event.Email == "" {
		return
	}

	lastSent, err := d.store.GetAlertLastSent(ctx, event.UserID, event.StockCode, event.Direction)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		d.logger.Error().Err(err).Msg("failed to read delivery record")
		return
	}
	now := time.Now()
	if err == nil && now.Sub(lastSent) < d.window {
		d.logger.Debug().
			Str("code", event.StockCode).
			Str("direction", event.Direction).
			Msg("alert coalesced inside rate window")
		return
	}

	err = d.sender.SendAlertEmail(ctx, event.Email, email.AlertData{
		StockCode:   event.StockCode,
		StockName:   event.StockName,
		Direction:   event.Direction,
		Price:       event.Price,
		TargetPrice: event.TargetPrice,
		TriggeredAt: event.TriggeredAt,
	})
	if err != nil {
		d.logger.Error().Err(err).
			Str("code", event.StockCode).
			Str("direction", event.Direction).
			Msg("failed to send alert email")
		return
	}

	if err := d.store.RecordAlertSent(ctx, event.UserID, event.StockCode, event.Direction, now); err != nil {
		d.logger.Error().Err(err).Msg("failed to record alert delivery")
	}
}
