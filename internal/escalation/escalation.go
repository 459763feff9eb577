// Package escalation hands a stuck run off to a human operator.
package escalation

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/rahul/botpilot/internal/engine"
	"github.com/rahul/botpilot/internal/observability"
)

// Notifier delivers one message to a single channel (Telegram, Discord, ...).
type Notifier interface {
	Name() string
	Notify(ctx context.Context, text string) error
}

// Gateway fans an escalation out to every configured channel. Delivery
// is best-effort: per-channel failures are logged and joined into the
// returned error, which the engine records and discards.
type Gateway struct {
	Notifiers []Notifier
	Log       *observability.Logger
}

func NewGateway(logger *observability.Logger, notifiers ...Notifier) *Gateway {
	if logger == nil {
		logger = observability.NewLogger()
	}
	return &Gateway{Notifiers: notifiers, Log: logger}
}

func (g *Gateway) Escalate(ctx context.Context, e engine.Escalation) error {
	text := formatEscalation(e)

	var errs []error
	for _, n := range g.Notifiers {
		if err := n.Notify(ctx, text); err != nil {
			log.Printf("escalation via %s failed: %v", n.Name(), err)
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func formatEscalation(e engine.Escalation) string {
	text := fmt.Sprintf(
		"🚨 *Automation needs a human*\n\nInstance: `%s`\nSite: `%s`\nActivity: `%s`\n\n%s",
		e.InstanceID, e.SiteID, e.ActivityName, e.Reason,
	)
	if e.UserID != "" {
		text += fmt.Sprintf("\n\nOwner: `%s`", e.UserID)
	}
	return text
}
