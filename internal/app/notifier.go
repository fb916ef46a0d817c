package app

import (
	"context"

	"github.com/sirupsen/logrus"

	"ecoloquiz-service/internal/domain"
)

// Notifier receives gift-won events for the email collaborator. Delivery
// is external to this service; failures must never block the triggering
// answer validation.
type Notifier interface {
	GiftWon(ctx context.Context, email string, win domain.GiftWin) error
}

// LogNotifier records gift-won events in the log. It stands in for the
// transactional email integration.
type LogNotifier struct {
	log *logrus.Logger
}

func NewLogNotifier(log *logrus.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) GiftWon(_ context.Context, email string, win domain.GiftWin) error {
	n.log.WithFields(logrus.Fields{
		"email":     email,
		"gift":      win.Name,
		"company":   win.Company,
		"milestone": win.Milestone,
	}).Info("gift won notification")
	return nil
}
