// Package notification delivers trading alerts (order rejections, cycle
// summaries, aborted cycles) to log, webhook and Telegram channels.
package notification

import (
	"context"
	"errors"
	"fmt"
	"log"
)

// AlertLevel represents the severity of an alert.
type AlertLevel string

const (
	AlertInfo     AlertLevel = "INFO"
	AlertWarning  AlertLevel = "WARNING"
	AlertCritical AlertLevel = "CRITICAL"
)

// Alert represents a notification to be sent.
type Alert struct {
	Level   AlertLevel `json:"level"`
	Title   string     `json:"title"`
	Message string     `json:"message"`
	Symbol  string     `json:"symbol,omitempty"`
}

// Notifier is the interface for all notification backends.
type Notifier interface {
	// Send delivers an alert. Returns error if delivery fails.
	Send(ctx context.Context, alert Alert) error
}

// LogNotifier is a simple notifier that logs alerts.
type LogNotifier struct{}

// NewLogNotifier creates a log-based notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Send(ctx context.Context, alert Alert) error {
	if alert.Symbol != "" {
		log.Printf("[notify] [%s] %s (%s): %s", alert.Level, alert.Title, alert.Symbol, alert.Message)
		return nil
	}
	log.Printf("[notify] [%s] %s: %s", alert.Level, alert.Title, alert.Message)
	return nil
}

// Multi fans an alert out to every backend. All backends are tried; the
// returned error joins every failure.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, alert Alert) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Send(ctx, alert); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// OrderRejected builds the alert sent when the broker refuses an order.
func OrderRejected(symbol, side string, qty int64, reason string) Alert {
	return Alert{
		Level:   AlertWarning,
		Title:   "Order rejected",
		Message: fmt.Sprintf("%s %d %s: %s", side, qty, symbol, reason),
		Symbol:  symbol,
	}
}

// CycleAborted builds the alert sent when a cycle cannot start.
func CycleAborted(err error) Alert {
	return Alert{
		Level:   AlertCritical,
		Title:   "Cycle aborted",
		Message: err.Error(),
	}
}

// CycleSummary builds the end-of-cycle report.
func CycleSummary(symbols, orders, failures int) Alert {
	level := AlertInfo
	if failures > 0 {
		level = AlertWarning
	}
	return Alert{
		Level:   level,
		Title:   "Cycle complete",
		Message: fmt.Sprintf("%d symbols processed, %d orders submitted, %d failures", symbols, orders, failures),
	}
}
