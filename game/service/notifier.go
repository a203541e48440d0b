package service

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
)

// Notifiers fans a message out to several notifiers
type Notifiers []Notifier

// Notify delivers msg to every notifier and joins their errors
func (n Notifiers) Notify(ctx context.Context, scopeID string, msg Message) error {
	var errs []error
	for _, notifier := range n {
		if notifier == nil {
			continue
		}
		if err := notifier.Notify(ctx, scopeID, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NotifierFunc adapts a function to the Notifier interface
type NotifierFunc func(ctx context.Context, scopeID string, msg Message) error

func (f NotifierFunc) Notify(ctx context.Context, scopeID string, msg Message) error {
	return f(ctx, scopeID, msg)
}

// LogNotifier writes every message to the log
type LogNotifier struct {
	Logger logrus.FieldLogger
}

func (l LogNotifier) Notify(ctx context.Context, scopeID string, msg Message) error {
	logger := l.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	entry := logger.WithFields(logrus.Fields{
		"scope": scopeID,
		"event": msg.Event,
	})
	if msg.Image != "" {
		entry = entry.WithField("image", msg.Image)
	}
	entry.Info(msg.Text)
	return nil
}
