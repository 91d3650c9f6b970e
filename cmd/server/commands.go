package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/warp/attendance/api"
	"github.com/warp/attendance/attendance"
	"github.com/warp/attendance/bot"
	"go.uber.org/zap"
)

type rootOptions struct {
	configPath string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "attendance",
		Short:         "Personal daily attendance tracker",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML config file (default $ATTENDANCE_CONFIG)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newServeCmd(opts),
		newSummarizeCmd(opts),
		newMarkCmd(opts),
	)
	return root
}

// =============================================================================
// SERVE
// =============================================================================

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, scheduler and chat bot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
}

func runServe(parent context.Context, opts *rootOptions) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(opts.configPath, opts.verbose)
	if err != nil {
		return err
	}
	defer a.Close()
	logger := a.logger

	summarizer := a.summarizer(ctx)

	tg, err := a.telegram()
	if err != nil {
		return err
	}

	var notifier api.Notifier
	var poller *bot.Poller
	if tg != nil {
		notifier = bot.ChatNotifier{Client: tg, ChatID: a.cfg.Telegram.ChatID}
		poller = bot.NewPoller(tg, a.engine, logger.Named("bot"))
		poller.Interval = a.cfg.Telegram.PollInterval
		poller.AllowedChatID = a.cfg.Telegram.ChatID
	} else {
		logger.Warn("no bot token configured, chat ingestion and notifications disabled")
	}

	scheduler := api.NewTriggerScheduler(a.engine, notifier, summarizer, logger.Named("scheduler"), api.ScheduleConfig{
		PromptSpec:   a.cfg.Schedule.Prompt,
		DeadlineSpec: a.cfg.Schedule.Deadline,
		SummarySpec:  a.cfg.Schedule.Summary,
	})
	if err := scheduler.Start(); err != nil {
		return err
	}
	defer scheduler.Stop()

	handler := api.NewHandler(a.engine, summarizer, logger)
	handler.Scheduler = scheduler

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:      api.NewRouter(handler),
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	var wg sync.WaitGroup
	if poller != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = poller.Run(ctx)
		}()
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-serveErr:
		if err != nil {
			stop()
			wg.Wait()
			return fmt.Errorf("server failed: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	wg.Wait()

	logger.Info("server stopped")
	return nil
}

// =============================================================================
// SUMMARIZE
// =============================================================================

func newSummarizeCmd(opts *rootOptions) *cobra.Command {
	var email bool

	cmd := &cobra.Command{
		Use:   "summarize",
		Short: "Print the attendance summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(opts.configPath, opts.verbose)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			s := a.summarizer(ctx)
			report, err := s.Summarize(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), report.Text)

			if email {
				if !s.MailEnabled() {
					return errors.New("email requested but mail.from / mail.to are not configured")
				}
				if err := s.Email(ctx, report); err != nil {
					return err
				}
				fmt.Fprintln(cmd.ErrOrStderr(), "summary emailed")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&email, "email", false, "also email the summary")
	return cmd
}

// =============================================================================
// MARK
// =============================================================================

func newMarkCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "mark present | absent [reason...] | holiday [reason...]",
		Short:     "Record today's attendance",
		Args:      cobra.MinimumNArgs(1),
		ValidArgs: []string{"present", "absent", "holiday"},
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts.configPath, opts.verbose)
			if err != nil {
				return err
			}
			defer a.Close()

			msg, err := mark(cmd.Context(), a.engine, args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}
}

func mark(ctx context.Context, engine *attendance.Engine, kind, reason string) (string, error) {
	today := engine.Today()
	if engine.Calendar().IsRestDay(today) {
		return bot.RestDayText, nil
	}

	if strings.EqualFold(kind, "holiday") {
		rec, err := engine.AcceptHolidayWrite(ctx, today, reason)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s marked HOLIDAY (%s)", rec.Date, rec.Reason), nil
	}

	status, err := attendance.ParseStatus(kind)
	if err != nil {
		return "", err
	}
	rec, err := engine.AcceptAttendanceWrite(ctx, today, status, reason)
	if attendance.IsSoftRejection(err) {
		return bot.HolidayIgnore, nil
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s marked %s (%s)", rec.Date, rec.Status, rec.Reason), nil
}
