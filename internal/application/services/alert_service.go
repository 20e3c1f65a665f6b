package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/setuhealth/setu/backend/internal/domain/entities"
	"github.com/setuhealth/setu/backend/internal/domain/providers"
	"github.com/setuhealth/setu/backend/internal/infrastructure/observability"
)

// AlertService notifies the on-call number about critical patients
type AlertService struct {
	sender     providers.AlertSender
	to         string
	maxRetries uint64
	newBackOff func() backoff.BackOff
}

// NewAlertService creates an alert service. A nil sender or empty recipient disables alerts.
func NewAlertService(sender providers.AlertSender, to string) *AlertService {
	return &AlertService{
		sender:     sender,
		to:         to,
		maxRetries: 3,
		newBackOff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff(
				backoff.WithInitialInterval(500*time.Millisecond),
				backoff.WithMaxInterval(5*time.Second),
				backoff.WithMaxElapsedTime(30*time.Second),
			)
		},
	}
}

// WithBackOff overrides the retry policy
func (s *AlertService) WithBackOff(maxRetries uint64, newBackOff func() backoff.BackOff) *AlertService {
	s.maxRetries = maxRetries
	s.newBackOff = newBackOff
	return s
}

// Enabled reports whether alerts will be sent
func (s *AlertService) Enabled() bool {
	return s != nil && s.sender != nil && s.to != ""
}

// NotifyCritical sends the alert for a critical patient, retrying transient failures
func (s *AlertService) NotifyCritical(ctx context.Context, patient *entities.Patient) error {
	if !s.Enabled() {
		return nil
	}

	body := fmt.Sprintf("CRITICAL triage: %s (%s), age %d. Symptoms: %s",
		patient.Name, patient.PatientID, patient.Age, patient.TriageData.Symptoms)

	policy := backoff.WithContext(backoff.WithMaxRetries(s.newBackOff(), s.maxRetries), ctx)

	var messageID string
	err := backoff.RetryNotify(func() error {
		id, err := s.sender.SendText(ctx, s.to, body)
		if err != nil {
			var retryable interface{ Retryable() bool }
			if errors.As(err, &retryable) && !retryable.Retryable() {
				return backoff.Permanent(err)
			}
			return err
		}
		messageID = id
		return nil
	}, policy, func(err error, next time.Duration) {
		observability.LoggerFromContext(ctx).Warn().
			Err(err).
			Str("patient_id", patient.PatientID).
			Dur("next_attempt", next).
			Msg("critical alert failed, retrying")
	})
	if err != nil {
		return fmt.Errorf("failed to send critical alert for %s: %w", patient.PatientID, err)
	}

	observability.LoggerFromContext(ctx).Info().
		Str("patient_id", patient.PatientID).
		Str("message_id", messageID).
		Msg("critical alert sent")
	return nil
}
