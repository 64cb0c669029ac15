// Package events publishes budget alerts to message brokers.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/smartspend/internal/model"
	"github.com/Veraticus/smartspend/internal/service"
	"github.com/shopspring/decimal"
)

// EventType identifies the kind of event on the wire.
const EventType = "budget.alert"

// AlertEvent is the message published for one visible alert.
type AlertEvent struct {
	OccurredAt time.Time       `json:"occurred_at"`
	Type       string          `json:"type"`
	RunID      string          `json:"run_id"`
	Category   string          `json:"category"`
	Tier       model.AlertTier `json:"tier"`
	Message    string          `json:"message"`
	Spent      decimal.Decimal `json:"spent"`
	Limit      decimal.Decimal `json:"limit"`
}

// ToJSON encodes the event.
func (e AlertEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// AlertEventFromJSON decodes an event.
func AlertEventFromJSON(data []byte) (*AlertEvent, error) {
	var e AlertEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("decode alert event: %w", err)
	}
	return &e, nil
}

// EventsFromSnapshot builds one event per CAUTION or EXCEEDED alert, in alert order.
func EventsFromSnapshot(snapshot *model.FinancialSnapshot) []AlertEvent {
	if snapshot == nil {
		return nil
	}
	events := make([]AlertEvent, 0, len(snapshot.Alerts))
	for _, alert := range snapshot.Alerts {
		if !alert.Tier.Visible() {
			continue
		}
		events = append(events, AlertEvent{
			Type:       EventType,
			RunID:      snapshot.RunID,
			Category:   alert.Category,
			Tier:       alert.Tier,
			Message:    alert.Message,
			Spent:      alert.Spent,
			Limit:      alert.Limit,
			OccurredAt: snapshot.CreatedAt,
		})
	}
	return events
}

// Multi fans a snapshot out to several publishers. Every publisher is tried;
// failures are joined.
type Multi []service.AlertPublisher

// PublishAlerts implements service.AlertPublisher.
func (m Multi) PublishAlerts(ctx context.Context, snapshot *model.FinancialSnapshot) error {
	var errs []error
	for _, p := range m {
		if err := p.PublishAlerts(ctx, snapshot); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every publisher.
func (m Multi) Close() error {
	var errs []error
	for _, p := range m {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
