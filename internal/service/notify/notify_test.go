package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"HypeRadar/internal/domain/models"
)

type fakeChannel struct {
	name  string
	err   error
	calls []Alert
}

func (f *fakeChannel) Name() string { return f.name }

func (f *fakeChannel) Send(_ context.Context, a Alert) error {
	f.calls = append(f.calls, a)
	return f.err
}

type countingMetrics struct {
	notifications map[string]int
}

func (m *countingMetrics) ObserveCycle(time.Duration, string)          {}
func (m *countingMetrics) RecordAlertLevels(map[models.AlertLevel]int) {}
func (m *countingMetrics) RecordDataQuality(string, string)            {}
func (m *countingMetrics) RecordProviderError(string, string)          {}
func (m *countingMetrics) RecordPersistError(string)                   {}
func (m *countingMetrics) RecordNotification(ch, outcome string) {
	m.notifications[ch+"/"+outcome]++
}

func TestDispatcherFansOutAndJoinsErrors(t *testing.T) {
	ok := &fakeChannel{name: "telegram"}
	bad := &fakeChannel{name: "email", err: errors.New("relay refused")}
	m := &countingMetrics{notifications: map[string]int{}}
	d := NewDispatcher([]Channel{bad, ok}, []string{"ops@example.com"}, m, nil)

	err := d.NotifyCritical(context.Background(), []string{"GME", "AMC"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "email: relay refused")

	require.Len(t, ok.calls, 1, "a failing channel does not stop the others")
	assert.Equal(t, []string{"AMC", "GME"}, ok.calls[0].Tickers)
	assert.Equal(t, []string{"ops@example.com"}, ok.calls[0].Recipients)
	assert.Equal(t, map[string]int{"email/error": 1, "telegram/sent": 1}, m.notifications)
}

func TestDispatcherSkipsEmptyTickerSet(t *testing.T) {
	ch := &fakeChannel{name: "email"}
	d := NewDispatcher([]Channel{ch}, nil, nil, nil)
	require.NoError(t, d.NotifyCritical(context.Background(), nil, []string{"a@b.c"}))
	assert.Empty(t, ch.calls)
}

func TestEmailComposesMIMEMessage(t *testing.T) {
	var (
		gotAddr string
		gotTo   []string
		gotMsg  string
	)
	e := NewEmail(EmailConfig{Host: "smtp.example.com", Port: 2525, Username: "bot", Password: "pw", From: "HypeRadar <alerts@example.com>"})
	e.sendMail = func(addr string, _ smtp.Auth, _ string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, string(msg)
		return nil
	}

	alert := Alert{Tickers: []string{"GME"}, Recipients: []string{"trader@example.com"}, At: time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)}
	require.NoError(t, e.Send(context.Background(), alert))

	assert.Equal(t, "smtp.example.com:2525", gotAddr)
	assert.Equal(t, []string{"trader@example.com"}, gotTo)
	assert.Contains(t, gotMsg, "Subject: [HypeRadar] CRITICAL: GME")
	assert.Contains(t, gotMsg, "Content-Type: text/plain")
	assert.Contains(t, gotMsg, "<trader@example.com>")
	assert.Contains(t, gotMsg, "- GME")
}

func TestEmailRejectsBadRecipient(t *testing.T) {
	e := NewEmail(EmailConfig{Host: "smtp.example.com", From: "alerts@example.com"})
	e.sendMail = func(string, smtp.Auth, string, []string, []byte) error {
		t.Fatal("must not send")
		return nil
	}
	err := e.Send(context.Background(), Alert{Tickers: []string{"GME"}, Recipients: []string{"not an address"}})
	assert.Error(t, err)
}

type fakeBot struct {
	sent []tgbotapi.MessageConfig
}

func (b *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	b.sent = append(b.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{MessageID: len(b.sent)}, nil
}

func TestTelegramEscapesMarkdown(t *testing.T) {
	bot := &fakeBot{}
	tg := newTelegramWithBot(bot, 42)

	err := tg.Send(context.Background(), Alert{Tickers: []string{"BRK.B"}, At: time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	require.Len(t, bot.sent, 1)
	msg := bot.sent[0]
	assert.Equal(t, int64(42), msg.ChatID)
	assert.Equal(t, tgbotapi.ModeMarkdownV2, msg.ParseMode)
	assert.Contains(t, msg.Text, "BRK\\.B")
	assert.Contains(t, msg.Text, "2026\\-03\\-02")
}

type fakePublisher struct {
	msgType string
	payload interface{}
}

func (p *fakePublisher) Enqueue(_ context.Context, msgType string, payload interface{}) error {
	p.msgType, p.payload = msgType, payload
	return nil
}

type recordingNotifier struct {
	tickers, recipients []string
}

func (r *recordingNotifier) NotifyCritical(_ context.Context, tickers, recipients []string) error {
	r.tickers, r.recipients = tickers, recipients
	return nil
}

func TestQueuedRoundTripsThroughJob(t *testing.T) {
	pub := &fakePublisher{}
	q := NewQueued(pub)
	require.NoError(t, q.NotifyCritical(context.Background(), []string{"GME"}, []string{"a@example.com"}))
	assert.Equal(t, JobNotifyCritical, pub.msgType)

	raw, err := json.Marshal(pub.payload)
	require.NoError(t, err)

	rec := &recordingNotifier{}
	job := NewCriticalJob(rec)
	require.NoError(t, job.Handle(context.Background(), raw))
	assert.Equal(t, []string{"GME"}, rec.tickers)
	assert.Equal(t, []string{"a@example.com"}, rec.recipients)
}

func TestCriticalJobRejectsGarbage(t *testing.T) {
	err := NewCriticalJob(&recordingNotifier{}).Handle(context.Background(), json.RawMessage(`{"tickers":`))
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "decode notify_critical"))
}
