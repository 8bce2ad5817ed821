package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

type Alert struct {
	Severity  Severity
	Subject   string
	Message   string
	Metadata  map[string]string
	CreatedAt time.Time
}

type EmailSender interface {
	SendEmail(to, subject, body string) error
}

type WebhookSender interface {
	SendWebhook(target, payload string) error
}

// AlertService dispatches operational alerts asynchronously through a worker
// pool. Critical alerts go to both email and webhook; warnings go to the
// webhook only; info alerts are logged and dropped.
type AlertService struct {
	emailSender   EmailSender
	webhookSender WebhookSender
	emailTo       string
	webhookTarget string
	queue         chan Alert
	workers       int
	shutdownChan  chan struct{}
	wg            sync.WaitGroup
	logger        *slog.Logger
}

func NewAlertService(
	emailSender EmailSender,
	webhookSender WebhookSender,
	emailTo string,
	webhookTarget string,
	workers int,
	logger *slog.Logger,
) *AlertService {
	if logger == nil {
		logger = slog.Default()
	}

	service := &AlertService{
		emailSender:   emailSender,
		webhookSender: webhookSender,
		emailTo:       emailTo,
		webhookTarget: webhookTarget,
		queue:         make(chan Alert, 1000),
		workers:       workers,
		shutdownChan:  make(chan struct{}),
		logger:        logger,
	}

	service.startWorkers()

	return service
}

func (s *AlertService) Publish(ctx context.Context, alert Alert) error {
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now()
	}

	select {
	case s.queue <- alert:
		s.logger.Info("Alert queued",
			slog.String("severity", string(alert.Severity)),
			slog.String("subject", alert.Subject))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Alert satisfies the processor's escalation interface.
func (s *AlertService) Alert(ctx context.Context, severity, subject, message string, metadata map[string]string) error {
	return s.Publish(ctx, Alert{
		Severity: Severity(severity),
		Subject:  subject,
		Message:  message,
		Metadata: metadata,
	})
}

func (s *AlertService) startWorkers() {
	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}
}

func (s *AlertService) worker(id int) {
	defer s.wg.Done()

	s.logger.Info("Alert worker started", slog.Int("worker_id", id))

	for {
		select {
		case alert := <-s.queue:
			s.processAlert(alert, id)
		case <-s.shutdownChan:
			s.logger.Info("Alert worker stopping", slog.Int("worker_id", id))
			return
		}
	}
}

func (s *AlertService) processAlert(alert Alert, workerID int) {
	startTime := time.Now()
	var err error

	switch alert.Severity {
	case SeverityCritical:
		if emailErr := s.sendEmail(alert); emailErr != nil {
			err = emailErr
		}
		if webhookErr := s.sendWebhook(alert); webhookErr != nil {
			err = webhookErr
		}
	case SeverityWarning:
		err = s.sendWebhook(alert)
	case SeverityInfo:
		// Logged below, nothing to deliver.
	default:
		err = fmt.Errorf("unknown alert severity: %s", alert.Severity)
	}

	duration := time.Since(startTime)

	if err != nil {
		s.logger.Error("Failed to deliver alert",
			slog.String("severity", string(alert.Severity)),
			slog.String("subject", alert.Subject),
			slog.String("error", err.Error()),
			slog.Int("worker_id", workerID),
			slog.Duration("duration", duration))
	} else {
		s.logger.Info("Alert processed",
			slog.String("severity", string(alert.Severity)),
			slog.String("subject", alert.Subject),
			slog.Int("worker_id", workerID),
			slog.Duration("duration", duration))
	}
}

func (s *AlertService) sendEmail(alert Alert) error {
	if s.emailSender == nil {
		return nil
	}
	body := fmt.Sprintf("%s\n\nmetadata: %v", alert.Message, alert.Metadata)
	return s.emailSender.SendEmail(s.emailTo, alert.Subject, body)
}

func (s *AlertService) sendWebhook(alert Alert) error {
	if s.webhookSender == nil {
		return nil
	}
	payload := fmt.Sprintf(`{"severity":%q,"subject":%q,"message":%q}`,
		alert.Severity, alert.Subject, alert.Message)
	return s.webhookSender.SendWebhook(s.webhookTarget, payload)
}

func (s *AlertService) Shutdown(ctx context.Context) error {
	close(s.shutdownChan)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Alert service shutdown complete")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type MockEmailSender struct {
	mu         sync.Mutex
	SentEmails []struct {
		To      string
		Subject string
		Body    string
	}
}

func (m *MockEmailSender) SendEmail(to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SentEmails = append(m.SentEmails, struct {
		To      string
		Subject string
		Body    string
	}{to, subject, body})
	return nil
}

func (m *MockEmailSender) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.SentEmails)
}

type MockWebhookSender struct {
	mu   sync.Mutex
	Sent []struct {
		Target  string
		Payload string
	}
}

func (m *MockWebhookSender) SendWebhook(target, payload string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, struct {
		Target  string
		Payload string
	}{target, payload})
	return nil
}

func (m *MockWebhookSender) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sent)
}
