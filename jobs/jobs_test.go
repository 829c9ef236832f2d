package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/firewatch/firewatch/internal/jobs"
	"github.com/firewatch/firewatch/internal/notifications"
)

type sentMail struct {
	to, subject, body string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (f *fakeMailer) Send(_ context.Context, to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

func TestSendEmailTaskRoundTrip(t *testing.T) {
	task, err := NewSendEmailTask(SendEmailPayload{To: "a@b.example", Subject: "Code", Body: "123456"})
	require.NoError(t, err)
	assert.Equal(t, TaskTypeSendEmail, task.Type())

	mailer := &fakeMailer{}
	job := NewMailJob(mailer, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	require.NoError(t, job.Handle(context.Background(), task))
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, sentMail{to: "a@b.example", subject: "Code", body: "123456"}, mailer.sent[0])

	_, err = NewSendEmailTask(SendEmailPayload{Subject: "x"})
	assert.Error(t, err)
}

func TestMailJobSkipsRetryOnBadPayload(t *testing.T) {
	job := NewMailJob(&fakeMailer{}, nil, nil)

	err := job.Handle(context.Background(), asynq.NewTask(TaskTypeSendEmail, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestMailJobRetriesDeliveryFailures(t *testing.T) {
	down := errors.New("connection refused")
	job := NewMailJob(&fakeMailer{err: down}, nil, nil)
	task, err := NewSendEmailTask(SendEmailPayload{To: "a@b.example"})
	require.NoError(t, err)

	err = job.Handle(context.Background(), task)
	assert.ErrorIs(t, err, down)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestSMTPMailerFormatsMessage(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{Host: "mail.local", Port: 1025, From: "noreply@firewatch.local"})
	m.now = func() time.Time { return time.Date(2025, 4, 1, 8, 0, 0, 0, time.UTC) }
	var (
		gotAddr string
		gotTo   []string
		gotMsg  string
	)
	m.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, string(msg)
		assert.Nil(t, a)
		return nil
	}

	require.NoError(t, m.Send(context.Background(), "dana@acme.example", "Your code", "line one\nline two"))
	assert.Equal(t, "mail.local:1025", gotAddr)
	assert.Equal(t, []string{"dana@acme.example"}, gotTo)
	assert.Contains(t, gotMsg, "Subject: Your code\r\n")
	assert.Contains(t, gotMsg, "Date: Tue, 01 Apr 2025 08:00:00 +0000\r\n")
	assert.True(t, strings.HasSuffix(gotMsg, "\r\n\r\nline one\r\nline two"))

	assert.Error(t, m.Send(context.Background(), "x@y.example\r\nBcc: z@y.example", "s", "b"))
}

type memoryStore struct {
	due     []DueDevice
	notes   []notifications.Notification
	failOn  string
	gotFrom time.Time
	gotTo   time.Time
	gotDays int
}

func (m *memoryStore) DueDevices(_ context.Context, from, to time.Time, days int) ([]DueDevice, error) {
	m.gotFrom, m.gotTo, m.gotDays = from, to, days
	return m.due, nil
}

func (m *memoryStore) Remind(_ context.Context, n notifications.Notification) error {
	if n.DeviceID == m.failOn {
		return errors.New("insert failed")
	}
	m.notes = append(m.notes, n)
	return nil
}

func TestReminderJobNotifiesOwners(t *testing.T) {
	control := time.Date(2025, 4, 5, 0, 0, 0, 0, time.UTC)
	store := &memoryStore{
		due: []DueDevice{
			{ID: "d1", SerialNumber: "ABC123", NextControlDate: control, OwnerID: "u1", OwnerInstitutionID: "i1"},
			{ID: "d2", SerialNumber: "XYZ789", NextControlDate: control, OwnerInstitutionID: "i1"},
		},
		failOn: "d2",
	}
	job := NewReminderJob(store, nil, nil)
	job.now = func() time.Time { return time.Date(2025, 4, 1, 6, 30, 0, 0, time.UTC) }

	created, err := job.Run(context.Background(), 7)
	assert.Error(t, err)
	assert.Equal(t, 1, created)

	assert.Equal(t, time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), store.gotFrom)
	assert.Equal(t, time.Date(2025, 4, 8, 0, 0, 0, 0, time.UTC), store.gotTo)
	assert.Equal(t, 7, store.gotDays)

	require.Len(t, store.notes, 1)
	n := store.notes[0]
	assert.Equal(t, notifications.KindControlDue, n.Kind)
	assert.Equal(t, "d1", n.DeviceID)
	assert.Equal(t, "u1", n.RecipientID)
	assert.Equal(t, "i1", n.RecipientInstitutionID)
	assert.Equal(t, "/devices/d1", n.Link)
	assert.Contains(t, n.Content, "ABC123")
	assert.Contains(t, n.Content, "2025-04-05")
}

func TestReminderTaskPayload(t *testing.T) {
	_, err := NewControlReminderTask(0)
	assert.Error(t, err)

	task, err := NewControlReminderTask(7)
	require.NoError(t, err)
	var payload ControlReminderPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, 7, payload.Days)

	job := NewReminderJob(&memoryStore{}, nil, nil)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.ErrorIs(t, job.Handle(context.Background(), asynq.NewTask(TaskControlReminders, []byte(`{"days":0}`))), asynq.SkipRetry)
}

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) {
	return s.info, s.err
}

func TestHealthEndpoint(t *testing.T) {
	serve := func(h *Handler) *httptest.ResponseRecorder {
		r := chi.NewRouter()
		r.Route("/jobs", h.MountRoutes)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
		return rec
	}

	rec := serve(NewHandler(stubInspector{info: &asynq.QueueInfo{Queue: "default", Pending: 3, Failed: 1}}, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"queue":"default","pending":3,"active":0,"retry":0,"failed":1}`, rec.Body.String())

	rec = serve(NewHandler(stubInspector{err: errors.New("redis down")}, nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
