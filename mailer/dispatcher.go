package mailer

import (
	"context"
	"sync"
	"time"

	"github.com/avast/retry-go"
	"github.com/rs/zerolog"

	"storefront-backend/metrics"
)

type DispatcherConfig struct {
	From        string
	Attempts    uint
	Delay       time.Duration
	SendTimeout time.Duration
}

// Dispatcher sends transactional email in the background. Failures are retried,
// then logged and dropped; callers never see them.
type Dispatcher struct {
	sender    Sender
	templates *Templates
	cfg       DispatcherConfig
	log       zerolog.Logger
	wg        sync.WaitGroup
}

func NewDispatcher(sender Sender, templates *Templates, cfg DispatcherConfig, log zerolog.Logger) *Dispatcher {
	if cfg.Attempts == 0 {
		cfg.Attempts = 1
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 20 * time.Second
	}
	return &Dispatcher{sender: sender, templates: templates, cfg: cfg, log: log}
}

// OrderComplete emails the download link to the payer.
func (d *Dispatcher) OrderComplete(to, subject string, data OrderCompleteData) {
	d.notify(to, subject, TemplateOrderComplete, data)
}

// SignupRequest emails a new membership request to the admin inbox.
func (d *Dispatcher) SignupRequest(to, subject string, data SignupRequestData) {
	d.notify(to, subject, TemplateSignupRequest, data)
}

// Wait blocks until every queued send has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) notify(to, subject, template string, data any) {
	log := d.log.With().Str("to", to).Str("template", template).Logger()

	if to == "" {
		log.Warn().Msg("email skipped, no recipient")
		return
	}
	html, err := d.templates.Render(template, data)
	if err != nil {
		metrics.Emails.WithLabelValues(metrics.EmailFailed).Inc()
		log.Error().Err(err).Msg("email not sent")
		return
	}
	msg := Message{From: d.cfg.From, To: to, Subject: subject, HTML: html}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("recover", r).Msg("panic while sending email")
			}
		}()

		err := retry.Do(
			func() error {
				ctx, cancel := context.WithTimeout(context.Background(), d.cfg.SendTimeout)
				defer cancel()
				return d.sender.Send(ctx, msg)
			},
			retry.Attempts(d.cfg.Attempts),
			retry.Delay(d.cfg.Delay),
			retry.LastErrorOnly(true),
			retry.OnRetry(func(n uint, err error) {
				log.Warn().Err(err).Uint("attempt", n+1).Msg("email send failed, retrying")
			}),
		)
		if err != nil {
			metrics.Emails.WithLabelValues(metrics.EmailFailed).Inc()
			log.Error().Err(err).Msg("email not sent")
			return
		}
		metrics.Emails.WithLabelValues(metrics.EmailSent).Inc()
		log.Info().Msg("email sent")
	}()
}
