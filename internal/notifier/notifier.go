// Package notifier delivers expiry alerts to an operator.
//
// TelegramNotifier talks to the Telegram Bot API, BreakerNotifier stops a
// failing sink from slowing down every sweep, and NoOpNotifier is used when
// alerts are disabled.
package notifier

import (
	"context"

	"github.com/Kosench/go-url-tracker/internal/model"
)

// Notifier sends an alert for a record that has just become inactive.
// Implementations must respect ctx cancellation.
type Notifier interface {
	NotifyExpired(ctx context.Context, record *model.URLRecord) error
}
