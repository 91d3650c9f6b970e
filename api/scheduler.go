/*
scheduler.go - Daily prompt, deadline and summary triggers

PURPOSE:
  Fires the time-based jobs of the tracker on cron schedules evaluated in the
  reference timezone:
  - prompt:   ask the user to mark today, only when today is still Unmarked
  - deadline: auto-mark Absent when today is still Unmarked, then tell the user
  - summary:  optional, generate and email the summary

DESIGN:
  - robfig/cron with WithLocation(calendar zone), so "0 20 * * *" means 20:00
    in the reference zone regardless of the host zone
  - SkipIfStillRunning on every job; a duplicate or missed firing is harmless
    because every job is guarded by the Unmarked check
  - Each job computes "today" once, at trigger time
  - Rest day: prompt and deadline do nothing (no store writes, no messages)

USAGE:
  s := NewTriggerScheduler(engine, notifier, summarizer, logger, cfg)
  if err := s.Start(); err != nil { ... }
  defer s.Stop()

SEE ALSO:
  - attendance/engine.go: AutoMarkAbsentIfUnresolved
  - bot/bot.go: ChatNotifier
*/
package api

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/warp/attendance/attendance"
	"github.com/warp/attendance/bot"
	"github.com/warp/attendance/summary"
	"go.uber.org/zap"
)

// Notifier delivers a message to the tracked user.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// ScheduleConfig holds the cron expressions. An empty SummarySpec disables
// the summary job.
type ScheduleConfig struct {
	PromptSpec   string
	DeadlineSpec string
	SummarySpec  string
}

// DefaultScheduleConfig prompts at 09:00 and closes the day at 20:00.
func DefaultScheduleConfig() ScheduleConfig {
	return ScheduleConfig{
		PromptSpec:   "0 9 * * *",
		DeadlineSpec: "0 20 * * *",
	}
}

// TriggerOutcome is what a single job invocation did.
type TriggerOutcome int

const (
	OutcomeSkippedRestDay TriggerOutcome = iota
	OutcomeAlreadyResolved
	OutcomePrompted
	OutcomeAutoMarked
	OutcomeSummarized
)

func (o TriggerOutcome) String() string {
	switch o {
	case OutcomeSkippedRestDay:
		return "skipped_rest_day"
	case OutcomeAlreadyResolved:
		return "already_resolved"
	case OutcomePrompted:
		return "prompted"
	case OutcomeAutoMarked:
		return "auto_marked"
	case OutcomeSummarized:
		return "summarized"
	default:
		return "unknown"
	}
}

// TriggerScheduler runs the daily jobs.
type TriggerScheduler struct {
	Engine     *attendance.Engine
	Notifier   Notifier
	Summarizer *summary.Summarizer
	Config     ScheduleConfig

	// NotifyTimeout bounds each outbound message.
	NotifyTimeout time.Duration

	logger  *zap.Logger
	mu      sync.Mutex
	cron    *cron.Cron
	entries map[string]cron.EntryID
}

// NewTriggerScheduler creates a scheduler. notifier and summarizer may be nil.
func NewTriggerScheduler(engine *attendance.Engine, notifier Notifier, summarizer *summary.Summarizer, logger *zap.Logger, cfg ScheduleConfig) *TriggerScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TriggerScheduler{
		Engine:        engine,
		Notifier:      notifier,
		Summarizer:    summarizer,
		Config:        cfg,
		NotifyTimeout: 10 * time.Second,
		logger:        logger,
	}
}

// Start registers the jobs and starts the cron runner.
func (s *TriggerScheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		return fmt.Errorf("scheduler already started")
	}

	clog := cronLogger{s.logger.Sugar()}
	c := cron.New(
		cron.WithLocation(s.Engine.Calendar().Location),
		cron.WithLogger(clog),
		cron.WithChain(cron.Recover(clog), cron.SkipIfStillRunning(clog)),
	)

	jobs := []struct {
		name string
		spec string
		run  func(context.Context) (TriggerOutcome, error)
	}{
		{"prompt", s.Config.PromptSpec, s.RunPrompt},
		{"deadline", s.Config.DeadlineSpec, s.RunDeadline},
		{"summary", s.Config.SummarySpec, s.RunSummary},
	}

	entries := make(map[string]cron.EntryID, len(jobs))
	for _, job := range jobs {
		if job.spec == "" {
			continue
		}
		id, err := c.AddFunc(job.spec, s.wrap(job.name, job.run))
		if err != nil {
			return fmt.Errorf("schedule %s job %q: %w", job.name, job.spec, err)
		}
		entries[job.name] = id
	}

	c.Start()
	s.cron = c
	s.entries = entries

	s.logger.Info("scheduler started",
		zap.String("prompt", s.Config.PromptSpec),
		zap.String("deadline", s.Config.DeadlineSpec),
		zap.String("summary", s.Config.SummarySpec),
		zap.String("timezone", s.Engine.Calendar().Location.String()),
	)
	return nil
}

// Stop stops the runner and waits for running jobs to finish.
func (s *TriggerScheduler) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()

	if c == nil {
		return
	}
	<-c.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// NextRuns returns the next firing time of each registered job.
func (s *TriggerScheduler) NextRuns() map[string]time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]time.Time, len(s.entries))
	if s.cron == nil {
		return out
	}
	for name, id := range s.entries {
		out[name] = s.cron.Entry(id).Next
	}
	return out
}

func (s *TriggerScheduler) wrap(name string, run func(context.Context) (TriggerOutcome, error)) func() {
	return func() {
		outcome, err := run(context.Background())
		if err != nil {
			s.logger.Error("job failed", zap.String("job", name), zap.Error(err))
			return
		}
		s.logger.Info("job finished", zap.String("job", name), zap.Stringer("outcome", outcome))
	}
}

// =============================================================================
// JOBS
// =============================================================================

// RunPrompt asks the user to mark today if nothing is recorded yet.
func (s *TriggerScheduler) RunPrompt(ctx context.Context) (TriggerOutcome, error) {
	today := s.Engine.Today()
	if s.Engine.Calendar().IsRestDay(today) {
		return OutcomeSkippedRestDay, nil
	}

	res, err := s.Engine.Resolve(ctx, today)
	if err != nil {
		return 0, err
	}
	if !res.IsUnmarked() {
		return OutcomeAlreadyResolved, nil
	}

	s.notify(ctx, bot.PromptText)
	return OutcomePrompted, nil
}

// RunDeadline auto-marks today Absent if it is still unresolved.
func (s *TriggerScheduler) RunDeadline(ctx context.Context) (TriggerOutcome, error) {
	today := s.Engine.Today()
	if s.Engine.Calendar().IsRestDay(today) {
		return OutcomeSkippedRestDay, nil
	}

	result, err := s.Engine.AutoMarkAbsentIfUnresolved(ctx, today)
	if err != nil {
		return 0, err
	}
	if !result.Marked {
		return OutcomeAlreadyResolved, nil
	}

	s.notify(ctx, AutoMarkedText(today))
	return OutcomeAutoMarked, nil
}

// RunSummary generates the summary and emails it.
func (s *TriggerScheduler) RunSummary(ctx context.Context) (TriggerOutcome, error) {
	if s.Summarizer == nil {
		return 0, fmt.Errorf("no summarizer configured")
	}
	report, err := s.Summarizer.Summarize(ctx)
	if err != nil {
		return 0, err
	}
	if err := s.Summarizer.Email(ctx, report); err != nil {
		s.logger.Error("summary email failed", zap.Error(err))
	}
	return OutcomeSummarized, nil
}

// AutoMarkedText is sent after the deadline job marks a day Absent.
func AutoMarkedText(date attendance.Date) string {
	return fmt.Sprintf("⏰ No response today. Marked ABSENT for %s", date)
}

func (s *TriggerScheduler) notify(ctx context.Context, text string) {
	if s.Notifier == nil {
		return
	}
	nctx, cancel := context.WithTimeout(ctx, s.NotifyTimeout)
	defer cancel()
	if err := s.Notifier.Notify(nctx, text); err != nil {
		s.logger.Warn("notification failed", zap.Error(err))
	}
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
