package consumerWorker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/wb-go/wbf/zlog"

	"github.com/aniiishetty/event/internal/dto"
	"github.com/aniiishetty/event/internal/mailer"
	"github.com/aniiishetty/event/internal/metric"
	"github.com/aniiishetty/event/internal/model"
	"github.com/aniiishetty/event/internal/pdf"
)

// Queue is the slice of the rabbit client the worker needs: deliveries in,
// delayed retries out.
type Queue interface {
	Consume(handler func([]byte) error) error
	Publish(message []byte, delaySeconds int) error
}

// CardRenderer renders the single-attendee ID card PDF.
type CardRenderer interface {
	RenderIDCard(ctx context.Context, reg *model.Registration) ([]byte, error)
}

// Store is the slice of the repository the worker reads from.
type Store interface {
	GetRegistrationByID(ctx context.Context, id int) (*model.Registration, error)
}

type Config struct {
	InternalTo     string
	InvitationPath string
	MaxAttempts    int
	RetryBaseSec   int
}

// Reader consumes registration.created messages and does everything the
// intake response must not wait for: ID-card rendering and both
// notification mails. A failed job is republished with an exponentially
// growing delay until MaxAttempts, then dropped with a log line. Mail is
// not idempotent, so a retry after a partial success may resend the first
// mail; accepted for a best-effort channel.
type Reader struct {
	queue    Queue
	repo     Store
	renderer CardRenderer
	sender   mailer.Sender
	cfg      Config
	done     chan struct{}
	cancel   context.CancelFunc
}

func NewReader(queue Queue, repo Store, renderer CardRenderer, sender mailer.Sender, cfg Config) *Reader {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.RetryBaseSec <= 0 {
		cfg.RetryBaseSec = 30
	}
	return &Reader{
		queue:    queue,
		repo:     repo,
		renderer: renderer,
		sender:   sender,
		cfg:      cfg,
		done:     make(chan struct{}),
	}
}

func (r *Reader) Start(ctx context.Context) {
	cctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	zlog.Logger.Info().Msg("notification worker started")

	go func() {
		defer close(r.done)

		if err := r.queue.Consume(func(body []byte) error {
			return r.Handle(cctx, body)
		}); err != nil {
			zlog.Logger.Error().Err(err).Msg("failed to start consuming")
			return
		}

		<-cctx.Done()
		zlog.Logger.Info().Msg("notification worker stopped by context")
	}()
}

func (r *Reader) Stop() {
	if r.cancel != nil {
		r.cancel()
		<-r.done
	}
}

// Handle processes one delivery. A nil return acks the message; scheduling
// the retry is done here, not by requeueing, so the returned error only
// matters for the ack.
func (r *Reader) Handle(ctx context.Context, body []byte) error {
	var msg dto.CreatedMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		zlog.Logger.Error().Err(err).Msgf("failed to unmarshal message: %s", string(body))
		// Malformed payloads can never succeed, drop without retry.
		return nil
	}

	zlog.Logger.Info().
		Int("registration_id", msg.RegistrationID).
		Int("attempt", msg.Attempt).
		Msg("processing notification job")

	if err := r.notify(ctx, msg.RegistrationID); err != nil {
		zlog.Logger.Warn().
			Err(err).
			Int("registration_id", msg.RegistrationID).
			Int("attempt", msg.Attempt).
			Msg("notification job failed")
		r.reschedule(msg)
		return nil
	}

	return nil
}

func (r *Reader) reschedule(msg dto.CreatedMessage) {
	next := msg.Attempt + 1
	if next >= r.cfg.MaxAttempts {
		metric.NotificationsDropped.Inc()
		zlog.Logger.Error().
			Int("registration_id", msg.RegistrationID).
			Int("attempts", next).
			Msg("notification job dropped after exhausting retries")
		return
	}

	msg.Attempt = next
	payload, err := json.Marshal(msg)
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to marshal retry message")
		return
	}

	delay := r.cfg.RetryBaseSec << (next - 1)
	if err := r.queue.Publish(payload, delay); err != nil {
		zlog.Logger.Error().
			Err(err).
			Int("registration_id", msg.RegistrationID).
			Msg("failed to republish notification job")
		return
	}
	metric.NotificationRetries.Inc()
}

func (r *Reader) notify(ctx context.Context, registrationID int) error {
	reg, err := r.repo.GetRegistrationByID(ctx, registrationID)
	if err != nil {
		return fmt.Errorf("load registration: %w", err)
	}

	if r.cfg.InternalTo != "" {
		if err := r.sendInternalMail(reg); err != nil {
			metric.MailsFailed.Inc()
			return err
		}
		metric.MailsSent.Inc()
	}

	card, err := r.renderer.RenderIDCard(ctx, reg)
	if err != nil {
		metric.PDFRenderFailures.Inc()
		return fmt.Errorf("render id card: %w", err)
	}
	metric.PDFsRendered.WithLabelValues("idcard").Inc()

	if err := r.sendConfirmationMail(reg, card); err != nil {
		metric.MailsFailed.Inc()
		return err
	}
	metric.MailsSent.Inc()

	return nil
}

func (r *Reader) sendInternalMail(reg *model.Registration) error {
	body := fmt.Sprintf(
		"A new user has registered with the following details:\n\n"+
			"Name: %s\nDesignation: %s\nCollege: %s\nPhone: %s\nEmail: %s\nReason: %s\nBadge: %s\n",
		reg.Name, reg.Designation, reg.CollegeName, reg.Phone, reg.Email, reg.Reason, pdf.Badge(reg.EventID),
	)

	attachments := []mailer.Attachment{
		{Filename: "photo.jpg", Content: reg.Photo},
	}
	if len(reg.ResearchPaper) > 0 {
		attachments = append(attachments, mailer.Attachment{
			Filename: "research_paper.pdf",
			Content:  reg.ResearchPaper,
		})
	}

	if err := r.sender.Send(r.cfg.InternalTo, "New Registration", body, attachments); err != nil {
		return fmt.Errorf("send internal mail: %w", err)
	}
	return nil
}

func (r *Reader) sendConfirmationMail(reg *model.Registration, card []byte) error {
	body := fmt.Sprintf(
		"Hello %s,\n\n"+
			"Thank you for registering with us!\n\n"+
			"Here are the details of your registration:\n"+
			"Name: %s\nDesignation: %s\nCollege: %s\nPhone: %s\nEmail: %s\nReason: %s\nBadge: %s\n\n"+
			"Your ID card is attached. Please bring it to the venue.\n\n"+
			"If you have any questions, feel free to reach out.\n",
		reg.Name, reg.Name, reg.Designation, reg.CollegeName, reg.Phone, reg.Email, reg.Reason, pdf.Badge(reg.EventID),
	)

	attachments := []mailer.Attachment{
		{Filename: "id_card.pdf", Content: card},
	}
	if r.cfg.InvitationPath != "" {
		invitation, err := os.ReadFile(r.cfg.InvitationPath)
		if err != nil {
			// The static invitation is optional, the confirmation still
			// goes out without it.
			zlog.Logger.Warn().Err(err).Str("path", r.cfg.InvitationPath).Msg("invitation pdf not readable")
		} else {
			attachments = append(attachments, mailer.Attachment{
				Filename: "invitation.pdf",
				Content:  invitation,
			})
		}
	}

	if err := r.sender.Send(reg.Email, "Registration Confirmation", body, attachments); err != nil {
		return fmt.Errorf("send confirmation mail: %w", err)
	}
	return nil
}
