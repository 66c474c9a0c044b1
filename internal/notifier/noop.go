package notifier

import (
	"context"

	"github.com/Kosench/go-url-tracker/internal/model"
)

// NoOpNotifier is used when alerts are disabled.
type NoOpNotifier struct{}

func NewNoOpNotifier() *NoOpNotifier {
	return &NoOpNotifier{}
}

func (n *NoOpNotifier) NotifyExpired(ctx context.Context, record *model.URLRecord) error {
	return nil
}
