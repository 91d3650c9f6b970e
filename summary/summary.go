/*
Package summary turns the merged attendance log into prose.

PURPOSE:
  Loads the merged view, computes the counts (present / absent / holiday,
  holidays split into public vs user-declared) and hands both to a Renderer,
  normally a Gemini model. The summary is a reporting path: it never fails
  the caller. An empty log yields NoDataText, a renderer failure yields
  UnavailableText, and both are logged.

FLOW:
  1. engine.Merged()           - read-only, no lock held afterwards
  2. attendance.ComputeStats() - pure
  3. Renderer.Render()         - outbound call with its own timeout
  4. Mailer.Send()             - optional, fire-and-forget (see Dispatch)

SEE ALSO:
  - gemini.go: Renderer on google.golang.org/genai
  - mailer.go: Mailer on Amazon SES
*/
package summary

import (
	"context"
	"time"

	"github.com/warp/attendance/attendance"
	"go.uber.org/zap"
)

// Fallback texts.
const (
	NoDataText      = "No attendance data available yet."
	UnavailableText = "Summary is unavailable right now."
)

// MailSubject is the subject of summary emails.
const MailSubject = "Attendance Summary Report"

// Renderer writes prose for a merged log.
type Renderer interface {
	Render(ctx context.Context, stats attendance.Stats, entries []attendance.DayEntry) (string, error)
}

// Report is the outcome of one summary run.
type Report struct {
	Text     string           `json:"summary"`
	Stats    attendance.Stats `json:"stats"`
	Fallback bool             `json:"fallback"`
}

// Summarizer builds reports from the engine's merged view.
type Summarizer struct {
	engine        *attendance.Engine
	renderer      Renderer
	mailer        Mailer
	logger        *zap.Logger
	renderTimeout time.Duration
	mailTimeout   time.Duration
}

// NewSummarizer creates a summarizer. A nil mailer disables email.
func NewSummarizer(engine *attendance.Engine, renderer Renderer, mailer Mailer, logger *zap.Logger) *Summarizer {
	if mailer == nil {
		mailer = NopMailer{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Summarizer{
		engine:        engine,
		renderer:      renderer,
		mailer:        mailer,
		logger:        logger,
		renderTimeout: 30 * time.Second,
		mailTimeout:   20 * time.Second,
	}
}

// Summarize renders the current log. The only error returned is a storage
// failure while loading the log; renderer problems degrade to UnavailableText.
func (s *Summarizer) Summarize(ctx context.Context) (Report, error) {
	entries, err := s.engine.Merged(ctx)
	if err != nil {
		return Report{}, err
	}

	stats := attendance.ComputeStats(entries, s.engine.Calendar())
	if len(entries) == 0 {
		return Report{Text: NoDataText, Stats: stats, Fallback: true}, nil
	}
	if s.renderer == nil {
		return Report{Text: UnavailableText, Stats: stats, Fallback: true}, nil
	}

	renderCtx, cancel := context.WithTimeout(ctx, s.renderTimeout)
	defer cancel()

	text, err := s.renderer.Render(renderCtx, stats, entries)
	if err != nil || text == "" {
		s.logger.Warn("summary render failed, using fallback", zap.Error(err))
		return Report{Text: UnavailableText, Stats: stats, Fallback: true}, nil
	}
	return Report{Text: text, Stats: stats}, nil
}

// MailEnabled reports whether a real mailer is configured.
func (s *Summarizer) MailEnabled() bool {
	_, nop := s.mailer.(NopMailer)
	return !nop
}

// Email sends a report synchronously and returns the mailer error.
func (s *Summarizer) Email(ctx context.Context, report Report) error {
	mailCtx, cancel := context.WithTimeout(ctx, s.mailTimeout)
	defer cancel()
	return s.mailer.Send(mailCtx, MailSubject, report.Text)
}

// Dispatch emails a report in the background. The request that produced the
// report is not held open and its cancellation does not abort the mail.
func (s *Summarizer) Dispatch(report Report) {
	go func() {
		if err := s.Email(context.Background(), report); err != nil {
			s.logger.Error("summary email failed", zap.Error(err))
			return
		}
		s.logger.Info("summary email sent")
	}()
}
