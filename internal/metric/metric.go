package metric

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RegistrationsAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "event_registrations_accepted_total",
		Help: "Registrations persisted successfully",
	})

	RegistrationsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "event_registrations_rejected_total",
		Help: "Registrations rejected before persistence",
	}, []string{"cause"})

	MailsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "event_mails_sent_total",
		Help: "Notification mails sent",
	})

	MailsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "event_mails_failed_total",
		Help: "Notification mails that failed to send",
	})

	PDFsRendered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "event_pdfs_rendered_total",
		Help: "PDF documents rendered",
	}, []string{"kind"})

	PDFRenderFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "event_pdf_render_failures_total",
		Help: "PDF renders that failed",
	})

	NotificationRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "event_notification_retries_total",
		Help: "Notification jobs rescheduled after a failure",
	})

	NotificationsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "event_notifications_dropped_total",
		Help: "Notification jobs dropped after exhausting retries",
	})
)

// Rejection causes, used as the cause label.
const (
	CauseValidation = "validation"
	CauseConflict   = "conflict"
	CauseStorage    = "storage"
)
