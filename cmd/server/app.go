package main

import (
	"context"
	"fmt"

	"github.com/warp/attendance/attendance"
	"github.com/warp/attendance/bot"
	"github.com/warp/attendance/config"
	"github.com/warp/attendance/store/sqlstore"
	"github.com/warp/attendance/summary"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// app holds the wired dependencies shared by every command.
type app struct {
	cfg    config.Config
	logger *zap.Logger
	store  *sqlstore.Store
	engine *attendance.Engine
}

func newLogger(verbose bool) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if verbose {
		zcfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return zcfg.Build()
}

func newApp(configPath string, verbose bool) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(verbose)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	cal, err := cfg.BuildCalendar()
	if err != nil {
		return nil, err
	}

	st, err := sqlstore.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	engine := attendance.NewEngine(st, cal, attendance.WithLogger(logger.Named("engine")))

	logger.Debug("app initialized",
		zap.String("driver", cfg.Database.Driver),
		zap.String("timezone", cal.Location.String()),
		zap.Stringer("rest_day", cal.RestDay),
	)
	return &app{cfg: cfg, logger: logger, store: st, engine: engine}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("closing store", zap.Error(err))
	}
	_ = a.logger.Sync()
}

// summarizer wires the Gemini renderer and SES mailer when configured. Either
// can be absent; the summarizer degrades to fallback text and no email.
func (a *app) summarizer(ctx context.Context) *summary.Summarizer {
	log := a.logger.Named("summary")

	var renderer summary.Renderer
	if a.cfg.Gemini.APIKey != "" {
		g, err := summary.NewGeminiRenderer(ctx, a.cfg.Gemini.APIKey, a.cfg.Gemini.Model)
		if err != nil {
			log.Warn("gemini disabled", zap.Error(err))
		} else {
			renderer = g
		}
	}

	var mailer summary.Mailer
	if a.cfg.MailEnabled() {
		m, err := summary.NewSESMailer(ctx, a.cfg.Mail.Region, a.cfg.Mail.From, a.cfg.Mail.To)
		if err != nil {
			log.Warn("email disabled", zap.Error(err))
		} else {
			mailer = m
		}
	}

	return summary.NewSummarizer(a.engine, renderer, mailer, log)
}

// telegram connects the bot client when a token is configured.
func (a *app) telegram() (*bot.TelegramClient, error) {
	if a.cfg.Telegram.Token == "" {
		return nil, nil
	}
	client, err := bot.NewTelegramClient(a.cfg.Telegram.Token)
	if err != nil {
		return nil, err
	}
	a.logger.Info("telegram connected", zap.String("bot", client.Username()))
	return client, nil
}
