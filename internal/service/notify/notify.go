package notify

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	domrepo "HypeRadar/internal/domain/repository"
	"HypeRadar/pkg/logger"
	"HypeRadar/pkg/metrics"
)

// Channel is one delivery path for critical alerts.
type Channel interface {
	Name() string
	Send(ctx context.Context, alert Alert) error
}

// Alert is the rendered content shared by every channel.
type Alert struct {
	Tickers    []string
	Recipients []string
	At         time.Time
}

func (a Alert) Subject() string {
	return fmt.Sprintf("[HypeRadar] CRITICAL: %s", strings.Join(a.Tickers, ", "))
}

func (a Alert) Body() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d ticker(s) reached CRITICAL at %s:\n\n", len(a.Tickers), a.At.UTC().Format(time.RFC1123))
	for _, t := range a.Tickers {
		fmt.Fprintf(&b, "  - %s\n", t)
	}
	b.WriteString("\nCheck the dashboard for the per-signal breakdown.\n")
	return b.String()
}

// Dispatcher delivers to every configured channel. One channel failing
// does not stop the others.
type Dispatcher struct {
	channels []Channel
	fallback []string
	metrics  domrepo.Metrics
	log      *logger.Logger
	now      func() time.Time
}

func NewDispatcher(channels []Channel, defaultRecipients []string, m domrepo.Metrics, log *logger.Logger) *Dispatcher {
	if m == nil {
		m = metrics.Nop{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Dispatcher{
		channels: channels,
		fallback: defaultRecipients,
		metrics:  m,
		log:      log.With(logger.String("component", "notify")),
		now:      time.Now,
	}
}

var _ domrepo.Notifier = (*Dispatcher)(nil)

func (d *Dispatcher) NotifyCritical(ctx context.Context, tickers []string, recipients []string) error {
	if len(tickers) == 0 {
		return nil
	}
	if len(recipients) == 0 {
		recipients = d.fallback
	}
	sorted := append([]string(nil), tickers...)
	sort.Strings(sorted)
	alert := Alert{Tickers: sorted, Recipients: recipients, At: d.now()}

	if len(d.channels) == 0 {
		d.log.Warn("no notification channel configured", logger.Strings("tickers", sorted))
		return nil
	}

	var errs []error
	for _, ch := range d.channels {
		if err := ch.Send(ctx, alert); err != nil {
			d.metrics.RecordNotification(ch.Name(), "error")
			d.log.Error("notification failed", logger.String("channel", ch.Name()), logger.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", ch.Name(), err))
			continue
		}
		d.metrics.RecordNotification(ch.Name(), "sent")
		d.log.Info("notification sent",
			logger.String("channel", ch.Name()),
			logger.Strings("tickers", sorted),
		)
	}
	return errors.Join(errs...)
}
