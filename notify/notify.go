// Package notify delivers terminal-failure alerts to feed owners.
package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"time"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"
)

// Sink delivers one alert to a feed owner.
type Sink interface {
	Notify(ctx context.Context, ownerID int64, subject, message string) error
}

// Directory resolves an owner id to a deliverable address.
type Directory interface {
	Email(ctx context.Context, id int64) (string, error)
}

// LogSink writes notifications to the log. Used in development and as the
// fallback when no SMTP server is configured.
type LogSink struct{}

func (LogSink) Notify(ctx context.Context, ownerID int64, subject, message string) error {
	log.WithFields(log.Fields{
		"owner":   ownerID,
		"subject": subject,
		"message": message,
	}).Info("Owner notification")
	return nil
}

// SMTPSink sends notifications by mail from a fixed sender address.
// Transient delivery failures are retried with exponential backoff before
// the error is surfaced to the caller.
type SMTPSink struct {
	addr      string
	from      string
	directory Directory

	// send is swapped out in tests.
	send func(addr, from string, to []string, msg []byte) error
}

func NewSMTPSink(addr, from string, directory Directory) *SMTPSink {
	return &SMTPSink{
		addr:      addr,
		from:      from,
		directory: directory,
		send: func(addr, from string, to []string, msg []byte) error {
			return smtp.SendMail(addr, nil, from, to, msg)
		},
	}
}

func (s *SMTPSink) Notify(ctx context.Context, ownerID int64, subject, message string) error {
	to, err := s.directory.Email(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("could not resolve owner %d: %w", ownerID, err)
	}

	msg := []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n", s.from, to, subject, message))

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 500 * time.Millisecond
	policy.MaxInterval = 10 * time.Second
	policy.MaxElapsedTime = time.Minute

	operation := func() error {
		return s.send(s.addr, s.from, []string{to}, msg)
	}
	if err := backoff.Retry(operation, backoff.WithContext(policy, ctx)); err != nil {
		return fmt.Errorf("could not deliver notification to %s: %w", to, err)
	}

	log.WithFields(log.Fields{
		"owner":   ownerID,
		"to":      to,
		"subject": subject,
	}).Info("Sent owner notification")
	return nil
}
