package service

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/Shivanand-hulikatti/gourmetgo-booking/internal/document"
	"github.com/Shivanand-hulikatti/gourmetgo-booking/internal/model"
	"github.com/Shivanand-hulikatti/gourmetgo-booking/internal/notify"
	"go.uber.org/zap"
)

// Renderer produces the printable ticket document.
type Renderer interface {
	Render(s document.Summary) (*document.Artifact, error)
}

// Delivery is the best-effort side channel that renders tickets and hands
// messages to the notifier. Nothing it does can fail the operation that
// triggered it; problems come back as warnings.
type Delivery struct {
	renderer Renderer
	notifier notify.Notifier
	timeout  time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewDelivery constructs a Delivery. Each render and each send is bounded
// by timeout.
func NewDelivery(renderer Renderer, notifier notify.Notifier, timeout time.Duration, logger *zap.Logger) *Delivery {
	return &Delivery{
		renderer: renderer,
		notifier: notifier,
		timeout:  timeout,
		logger:   logger.Named("delivery"),
		now:      time.Now,
	}
}

// Warnings returned to callers.
const (
	WarnRenderFailed       = "ticket document could not be generated; it can be downloaded later"
	WarnNotificationFailed = "notification email could not be sent"
)

// BookingConfirmation renders the ticket document and sends the
// confirmation with it attached.
func (d *Delivery) BookingConfirmation(ctx context.Context, b *model.Booking, e *model.Experience) []string {
	var warnings []string
	log := d.logger.With(zap.String("booking_id", b.ID), zap.String("experience_id", e.ID))

	msg := notify.Message{
		To:       b.Email,
		Subject:  "Booking confirmation",
		Template: notify.TemplateBookingConfirmation,
		Vars: map[string]any{
			"name":            b.Name,
			"experienceTitle": e.Title,
			"date":            e.Date.Format(time.RFC1123),
			"people":          b.People,
			"paymentMethod":   b.PaymentMethod.Label(),
			"bookingCode":     b.Code,
			"credentials":     b.Credentials,
			"year":            d.now().Year(),
		},
	}

	artifact, err := d.render(ctx, document.SummaryOf(b, e))
	if err != nil {
		log.Warn("ticket rendering failed", zap.Error(err))
		warnings = append(warnings, WarnRenderFailed)
	} else {
		path, cleanup, err := writeTemp(artifact)
		if err != nil {
			log.Warn("ticket staging failed", zap.Error(err))
			warnings = append(warnings, WarnRenderFailed)
		} else {
			defer cleanup()
			msg.Attachments = []notify.Attachment{{
				Filename:    artifact.Filename,
				ContentType: "application/pdf",
				Path:        path,
			}}
		}
	}

	if err := d.send(ctx, msg); err != nil {
		log.Warn("booking confirmation not delivered", zap.Error(err))
		warnings = append(warnings, WarnNotificationFailed)
	}
	return warnings
}

// BookingCancellation notifies the attendee that a booking was cancelled.
// e may be nil when the experience no longer exists.
func (d *Delivery) BookingCancellation(ctx context.Context, b *model.Booking, e *model.Experience) []string {
	vars := map[string]any{
		"name":        b.Name,
		"bookingCode": b.Code,
		"people":      b.People,
		"year":        d.now().Year(),
	}
	if e != nil {
		vars["experienceTitle"] = e.Title
		vars["date"] = e.Date.Format(time.RFC1123)
	}
	err := d.send(ctx, notify.Message{
		To:       b.Email,
		Subject:  "Booking cancelled",
		Template: notify.TemplateBookingCancelled,
		Vars:     vars,
	})
	if err != nil {
		d.logger.Warn("cancellation notice not delivered", zap.String("booking_id", b.ID), zap.Error(err))
		return []string{WarnNotificationFailed}
	}
	return nil
}

// DeletionCode sends a deletion challenge code to email.
func (d *Delivery) DeletionCode(ctx context.Context, email string, e *model.Experience, code string, ttl time.Duration) []string {
	err := d.send(ctx, notify.Message{
		To:       email,
		Subject:  "Experience deletion code",
		Template: notify.TemplateDeleteCode,
		Vars: map[string]any{
			"experienceTitle": e.Title,
			"code":            code,
			"expiresIn":       ttl.String(),
			"year":            d.now().Year(),
		},
	})
	if err != nil {
		d.logger.Warn("deletion code not delivered", zap.String("experience_id", e.ID), zap.Error(err))
		return []string{WarnNotificationFailed}
	}
	return nil
}

// send detaches from the request's cancellation so a client hanging up does
// not abort delivery, but still bounds the call by d.timeout.
func (d *Delivery) send(ctx context.Context, msg notify.Message) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()
	return d.notifier.Send(ctx, msg)
}

// render bounds the renderer by d.timeout. A render that overruns keeps
// running in its goroutine; its result is dropped.
func (d *Delivery) render(ctx context.Context, s document.Summary) (*document.Artifact, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()

	type result struct {
		artifact *document.Artifact
		err      error
	}
	done := make(chan result, 1)
	go func() {
		a, err := d.renderer.Render(s)
		done <- result{a, err}
	}()

	select {
	case r := <-done:
		return r.artifact, r.err
	case <-ctx.Done():
		return nil, fmt.Errorf("render tickets: %w", ctx.Err())
	}
}

// writeTemp stages an artifact on disk for the notifier. The returned
// cleanup removes it and must run on every exit path.
func writeTemp(a *document.Artifact) (path string, cleanup func(), err error) {
	f, err := os.CreateTemp("", "gourmetgo-*.pdf")
	if err != nil {
		return "", nil, fmt.Errorf("create temp file: %w", err)
	}
	cleanup = func() { _ = os.Remove(f.Name()) }
	if _, err := f.Write(a.Data); err != nil {
		_ = f.Close()
		cleanup()
		return "", nil, fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("close temp file: %w", err)
	}
	return f.Name(), cleanup, nil
}
