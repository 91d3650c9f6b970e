/*
Package config loads runtime settings for the attendance service.

SOURCES (later wins):
  1. Built-in defaults
  2. Optional YAML file (--config flag or ATTENDANCE_CONFIG)
  3. Environment, with a .env file in the working directory loaded first

EXAMPLE (attendance.yaml):

	server:
	  port: 8080
	database:
	  driver: sqlite3
	  dsn: attendance.db
	calendar:
	  timezone: Asia/Kolkata
	  rest_day: sunday
	  public_holidays: ["01-26", "08-15", "10-02"]
	schedule:
	  prompt: "0 9 * * *"
	  deadline: "0 20 * * *"
	  summary: ""
	telegram:
	  token: ...
	  chat_id: 123456
*/
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/warp/attendance/attendance"
	"gopkg.in/yaml.v3"
)

// Config is the full service configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Calendar CalendarConfig `yaml:"calendar"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Telegram TelegramConfig `yaml:"telegram"`
	Gemini   GeminiConfig   `yaml:"gemini"`
	Mail     MailConfig     `yaml:"mail"`
}

type ServerConfig struct {
	Port            int           `yaml:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver" validate:"oneof=sqlite3 postgres"`
	DSN    string `yaml:"dsn" validate:"required"`
}

type CalendarConfig struct {
	Timezone       string   `yaml:"timezone" validate:"required"`
	RestDay        string   `yaml:"rest_day"`
	PublicHolidays []string `yaml:"public_holidays"`
}

type ScheduleConfig struct {
	Prompt   string `yaml:"prompt"`
	Deadline string `yaml:"deadline" validate:"required"`
	Summary  string `yaml:"summary"`
}

// TelegramConfig enables the bot when Token is set.
type TelegramConfig struct {
	Token        string        `yaml:"token"`
	ChatID       int64         `yaml:"chat_id"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

// GeminiConfig enables AI summaries when APIKey is set.
type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// MailConfig enables summary email when From and To are set.
type MailConfig struct {
	Region string `yaml:"region"`
	From   string `yaml:"from" validate:"omitempty,email"`
	To     string `yaml:"to" validate:"omitempty,email"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Driver: "sqlite3",
			DSN:    "attendance.db",
		},
		Calendar: CalendarConfig{
			Timezone:       attendance.DefaultTimezone,
			RestDay:        "sunday",
			PublicHolidays: append([]string(nil), attendance.DefaultPublicHolidays...),
		},
		Schedule: ScheduleConfig{
			Prompt:   "0 9 * * *",
			Deadline: "0 20 * * *",
		},
		Telegram: TelegramConfig{
			PollInterval: 2 * time.Second,
		},
		Gemini: GeminiConfig{
			Model: "gemini-2.0-flash",
		},
		Mail: MailConfig{
			Region: "us-east-1",
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file at path
// and the environment. An empty path falls back to ATTENDANCE_CONFIG.
func Load(path string) (Config, error) {
	// Missing .env is normal in production.
	_ = godotenv.Load()

	cfg := Default()

	if path == "" {
		path = os.Getenv("ATTENDANCE_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	str("DB_DRIVER", &c.Database.Driver)
	str("DATABASE_URL", &c.Database.DSN)
	str("TIMEZONE", &c.Calendar.Timezone)
	str("PROMPT_CRON", &c.Schedule.Prompt)
	str("DEADLINE_CRON", &c.Schedule.Deadline)
	str("BOT_TOKEN", &c.Telegram.Token)
	str("GEMINI_API_KEY", &c.Gemini.APIKey)
	str("GEMINI_MODEL", &c.Gemini.Model)
	str("AWS_REGION", &c.Mail.Region)
	str("SES_EMAIL", &c.Mail.From)
	str("SUMMARY_RECEIVER", &c.Mail.To)

	// SUMMARY_CRON may be set to "" to disable the job.
	if v, ok := lookup("SUMMARY_CRON"); ok {
		c.Schedule.Summary = v
	}

	if v, ok := lookup("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v, ok := lookup("CHAT_ID"); ok && v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("CHAT_ID: %w", err)
		}
		c.Telegram.ChatID = id
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field shapes, that the timezone loads and that every cron
// expression parses.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	var errs []error
	if _, err := time.LoadLocation(c.Calendar.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("calendar.timezone: %w", err))
	}
	if _, err := parseWeekday(c.Calendar.RestDay); err != nil {
		errs = append(errs, fmt.Errorf("calendar.rest_day: %w", err))
	}
	for _, h := range c.Calendar.PublicHolidays {
		if !validHolidayPattern(h) {
			errs = append(errs, fmt.Errorf("calendar.public_holidays: %q is neither MM-DD nor YYYY-MM-DD", h))
		}
	}
	for name, spec := range map[string]string{
		"schedule.prompt":   c.Schedule.Prompt,
		"schedule.deadline": c.Schedule.Deadline,
		"schedule.summary":  c.Schedule.Summary,
	} {
		if spec == "" {
			continue
		}
		if _, err := cron.ParseStandard(spec); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	if c.Telegram.Token != "" && c.Telegram.ChatID == 0 {
		errs = append(errs, errors.New("telegram.chat_id is required when a bot token is set"))
	}
	return errors.Join(errs...)
}

// BuildCalendar returns the attendance calendar this config describes.
func (c Config) BuildCalendar() (attendance.Calendar, error) {
	cal, err := attendance.NewCalendar(c.Calendar.Timezone, c.Calendar.PublicHolidays)
	if err != nil {
		return attendance.Calendar{}, err
	}
	rest, err := parseWeekday(c.Calendar.RestDay)
	if err != nil {
		return attendance.Calendar{}, err
	}
	cal.RestDay = rest
	return cal, nil
}

// MailEnabled reports whether summary email is configured.
func (c Config) MailEnabled() bool { return c.Mail.From != "" && c.Mail.To != "" }

func parseWeekday(s string) (time.Weekday, error) {
	if s == "" {
		return time.Sunday, nil
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(s, d.String()) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}

func validHolidayPattern(s string) bool {
	if _, err := time.Parse("01-02", s); err == nil {
		return true
	}
	_, err := attendance.ParseDate(s)
	return err == nil
}
