package summary

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/attendance/attendance"
	"github.com/warp/attendance/attendance/store"
)

// =============================================================================
// FAKES
// =============================================================================

type fakeRenderer struct {
	text  string
	err   error
	calls int
	stats attendance.Stats
}

func (f *fakeRenderer) Render(_ context.Context, stats attendance.Stats, _ []attendance.DayEntry) (string, error) {
	f.calls++
	f.stats = stats
	return f.text, f.err
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []string
	err  error
	done chan struct{}
}

func (m *recordingMailer) Send(_ context.Context, subject, body string) error {
	m.mu.Lock()
	m.sent = append(m.sent, subject+"|"+body)
	m.mu.Unlock()
	if m.done != nil {
		close(m.done)
	}
	return m.err
}

type fakeSES struct {
	input *ses.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(_ context.Context, params *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	f.input = params
	return &ses.SendEmailOutput{}, f.err
}

func newTestEngine() *attendance.Engine {
	return attendance.NewEngine(store.NewMemory(), attendance.MustCalendar("Asia/Kolkata"))
}

// =============================================================================
// SUMMARIZER
// =============================================================================

func TestSummarize_EmptyStore_NoDataFallback(t *testing.T) {
	renderer := &fakeRenderer{text: "unused"}
	s := NewSummarizer(newTestEngine(), renderer, nil, nil)

	report, err := s.Summarize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, NoDataText, report.Text)
	assert.True(t, report.Fallback)
	assert.Zero(t, renderer.calls, "renderer must not be called without data")
}

func TestSummarize_RendersStats(t *testing.T) {
	engine := newTestEngine()
	ctx := context.Background()
	_, err := engine.AcceptAttendanceWrite(ctx, "2025-08-14", attendance.StatusPresent, "")
	require.NoError(t, err)
	_, err = engine.AcceptHolidayWrite(ctx, "2025-08-15", "")
	require.NoError(t, err)
	_, err = engine.AcceptAttendanceWrite(ctx, "2025-08-18", attendance.StatusAbsent, "Fever")
	require.NoError(t, err)

	renderer := &fakeRenderer{text: "Mostly present."}
	s := NewSummarizer(engine, renderer, nil, nil)

	report, err := s.Summarize(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Mostly present.", report.Text)
	assert.False(t, report.Fallback)
	assert.Equal(t, 1, renderer.stats.Present)
	assert.Equal(t, 1, renderer.stats.Absent)
	assert.Equal(t, 1, renderer.stats.PublicHoliday)
}

func TestSummarize_RendererFailure_Degrades(t *testing.T) {
	engine := newTestEngine()
	_, err := engine.AcceptAttendanceWrite(context.Background(), "2025-08-14", attendance.StatusPresent, "")
	require.NoError(t, err)

	s := NewSummarizer(engine, &fakeRenderer{err: attendance.UpstreamError("gemini", errors.New("quota"))}, nil, nil)

	report, err := s.Summarize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, UnavailableText, report.Text)
	assert.True(t, report.Fallback)
}

func TestSummarize_StorageFailure_Propagates(t *testing.T) {
	st := store.NewMemory()
	st.PingErr = errors.New("connection refused")
	engine := attendance.NewEngine(st, attendance.MustCalendar("Asia/Kolkata"))

	_, err := NewSummarizer(engine, &fakeRenderer{}, nil, nil).Summarize(context.Background())
	assert.ErrorIs(t, err, attendance.ErrStorageUnavailable)
}

func TestDispatch_SendsInBackground(t *testing.T) {
	mailer := &recordingMailer{done: make(chan struct{}), err: errors.New("smtp down")}
	s := NewSummarizer(newTestEngine(), nil, mailer, nil)

	s.Dispatch(Report{Text: "hello"})

	select {
	case <-mailer.done:
	case <-time.After(2 * time.Second):
		t.Fatal("mail was not dispatched")
	}
	mailer.mu.Lock()
	defer mailer.mu.Unlock()
	assert.Equal(t, []string{MailSubject + "|hello"}, mailer.sent)
}

// =============================================================================
// PROMPT & MAILER
// =============================================================================

func TestBuildPrompt_IncludesCountsAndReasons(t *testing.T) {
	entries := []attendance.DayEntry{
		{Date: "2025-08-14", Status: attendance.StatusPresent, Reason: "Present"},
		{Date: "2025-08-18", Status: attendance.StatusAbsent, Reason: "Fever"},
	}
	stats := attendance.ComputeStats(entries, attendance.MustCalendar("Asia/Kolkata"))

	prompt := BuildPrompt(stats, entries)

	assert.Contains(t, prompt, "Present: 1")
	assert.Contains(t, prompt, "Absent: 1")
	assert.Contains(t, prompt, "2025-08-18: Absent (Fever)")
	assert.Contains(t, prompt, "2025-08-14: Present\n")
	assert.Contains(t, prompt, "50.00%")
}

func TestSESMailer_Send(t *testing.T) {
	client := &fakeSES{}
	m := &SESMailer{client: client, from: "bot@example.com", to: "me@example.com"}

	require.NoError(t, m.Send(context.Background(), MailSubject, "body"))
	assert.Equal(t, []string{"me@example.com"}, client.input.Destination.ToAddresses)
	assert.Equal(t, MailSubject, aws.ToString(client.input.Message.Subject.Data))
	assert.Equal(t, "body", aws.ToString(client.input.Message.Body.Text.Data))

	client.err = errors.New("throttled")
	err := m.Send(context.Background(), MailSubject, "body")
	assert.ErrorIs(t, err, attendance.ErrUpstreamUnavailable)
}
