/*
Package bot is the conversational ingestion channel.

PURPOSE:
  Polls a chat API for new messages and turns them into the three write
  intents (present, absent <reason>, holiday) plus two read-only commands
  (status, test). Every write goes through attendance.Engine for today's date
  in the reference zone.

LOOP:
  Run() is a cooperative task, not a tight poll-sleep recursion:
  1. Fetch one batch of updates after the last acknowledged offset
  2. Handle them sequentially (per-chat order preserved, no fan-out)
  3. Advance the offset past each handled update
  4. Sleep Interval, or return when the context is cancelled

FAILURE POLICY:
  A failed fetch is logged and retried after Interval. A failed reply is
  logged and the update is still acknowledged, so a broken chat API never
  replays writes. Storage errors are answered with a "not saved" message.

SEE ALSO:
  - telegram.go: Client on the Telegram Bot API
  - command.go: message parsing and reply texts
*/
package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/warp/attendance/attendance"
	"go.uber.org/zap"
)

// Update is one incoming chat message.
type Update struct {
	ID     int
	ChatID int64
	Text   string
}

// Client is the chat API the poller needs.
type Client interface {
	// GetUpdates returns updates with ID >= offset. It may block for a
	// long-poll window.
	GetUpdates(ctx context.Context, offset int) ([]Update, error)
	Send(ctx context.Context, chatID int64, text string) error
}

// Poller consumes chat updates and applies them to the engine.
type Poller struct {
	client Client
	engine *attendance.Engine
	logger *zap.Logger

	// Interval is the pause between batches.
	Interval time.Duration
	// AllowedChatID, when non-zero, drops messages from every other chat.
	AllowedChatID int64
	// SendTimeout bounds each reply.
	SendTimeout time.Duration

	offset int
}

// NewPoller creates a poller with a 2s interval.
func NewPoller(client Client, engine *attendance.Engine, logger *zap.Logger) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{
		client:      client,
		engine:      engine,
		logger:      logger,
		Interval:    2 * time.Second,
		SendTimeout: 10 * time.Second,
	}
}

// Run polls until ctx is cancelled. It always returns ctx.Err().
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("bot polling started", zap.Duration("interval", p.Interval))
	defer p.logger.Info("bot polling stopped")

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		if _, err := p.PollOnce(ctx); err != nil && ctx.Err() == nil {
			p.logger.Warn("fetching updates failed", zap.Error(err))
		}
		timer.Reset(p.Interval)
	}
}

// PollOnce fetches and handles a single batch. Returns how many updates were
// acknowledged.
func (p *Poller) PollOnce(ctx context.Context) (int, error) {
	updates, err := p.client.GetUpdates(ctx, p.offset)
	if err != nil {
		return 0, attendance.UpstreamError("chat getUpdates", err)
	}

	for _, u := range updates {
		if ctx.Err() != nil {
			break
		}
		p.handle(ctx, u)
		p.offset = u.ID + 1
	}
	return len(updates), nil
}

// Offset is the next update ID the poller will ask for.
func (p *Poller) Offset() int { return p.offset }

func (p *Poller) handle(ctx context.Context, u Update) {
	if u.Text == "" {
		return
	}
	if p.AllowedChatID != 0 && u.ChatID != p.AllowedChatID {
		p.logger.Debug("ignoring message from unknown chat", zap.Int64("chat_id", u.ChatID))
		return
	}

	cmd := ParseCommand(u.Text)
	reply := p.execute(ctx, cmd)
	p.reply(ctx, u.ChatID, reply)
}

// execute applies cmd and returns the text to send back.
func (p *Poller) execute(ctx context.Context, cmd Command) string {
	today := p.engine.Today()

	if cmd.Intent.IsWrite() && p.engine.Calendar().IsRestDay(today) {
		return RestDayText
	}

	switch cmd.Intent {
	case IntentTest:
		if err := p.engine.Ping(ctx); err != nil {
			p.logger.Error("store ping failed", zap.Error(err))
			return "✅ Bot is working\n🌐 Backend: OK\n🗄️ Database: Unreachable"
		}
		return "✅ Bot is working\n🌐 Backend: OK\n🗄️ Database: Connected"

	case IntentStatus:
		res, err := p.engine.Resolve(ctx, today)
		if err != nil {
			p.logger.Error("resolve failed", zap.Error(err))
			return "❌ Could not read today's status"
		}
		return describe(res)

	case IntentHoliday:
		if _, err := p.engine.AcceptHolidayWrite(ctx, today, ""); err != nil {
			p.logger.Error("holiday write failed", zap.Error(err))
			return "❌ Holiday not saved"
		}
		return "📅 Marked today as HOLIDAY"

	case IntentPresent:
		_, err := p.engine.AcceptAttendanceWrite(ctx, today, attendance.StatusPresent, "")
		return p.writeReply(err, "✅ Marked PRESENT", "❌ PRESENT not saved")

	case IntentAbsent:
		rec, err := p.engine.AcceptAttendanceWrite(ctx, today, attendance.StatusAbsent, cmd.Reason)
		return p.writeReply(err, fmt.Sprintf("❌ Marked ABSENT\nReason: %s", rec.Reason), "❌ ABSENT not saved")

	default:
		return UsageText
	}
}

func (p *Poller) writeReply(err error, ok, failed string) string {
	switch {
	case err == nil:
		return ok
	case errors.Is(err, attendance.ErrHolidayConflict):
		return HolidayIgnore
	default:
		p.logger.Error("attendance write failed", zap.Error(err))
		return failed
	}
}

func (p *Poller) reply(ctx context.Context, chatID int64, text string) {
	sendCtx, cancel := context.WithTimeout(ctx, p.SendTimeout)
	defer cancel()
	if err := p.client.Send(sendCtx, chatID, text); err != nil {
		p.logger.Warn("reply failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func describe(res attendance.Resolution) string {
	switch res.Kind {
	case attendance.ResolvedHoliday:
		return fmt.Sprintf("📅 %s is a HOLIDAY (%s)", res.Date, res.Reason)
	case attendance.ResolvedAttendance:
		return fmt.Sprintf("📘 %s: %s (%s)", res.Date, res.Status, res.Reason)
	default:
		return fmt.Sprintf("📘 %s is not marked yet\n%s", res.Date, UsageText)
	}
}

// =============================================================================
// NOTIFIER - Outbound messages to the tracked user
// =============================================================================

// ChatNotifier sends scheduler messages to one chat.
type ChatNotifier struct {
	Client Client
	ChatID int64
}

// Notify sends text to the configured chat.
func (n ChatNotifier) Notify(ctx context.Context, text string) error {
	if n.ChatID == 0 {
		return attendance.UpstreamError("chat", errors.New("no chat id configured"))
	}
	if err := n.Client.Send(ctx, n.ChatID, text); err != nil {
		return attendance.UpstreamError("chat sendMessage", err)
	}
	return nil
}
