package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "attendance.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	cal, err := cfg.BuildCalendar()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Kolkata", cal.Location.String())
	assert.Equal(t, time.Sunday, cal.RestDay)
	assert.Equal(t, []string{"01-26", "08-15", "10-02"}, cal.PublicHolidays)
	assert.False(t, cfg.MailEnabled())
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	// GIVEN: A YAML file and environment overrides
	path := writeYAML(t, `
server:
  port: 9000
database:
  driver: postgres
  dsn: postgres://localhost/attendance
calendar:
  rest_day: saturday
  public_holidays: ["12-25", "2025-11-01"]
schedule:
  summary: "0 18 * * 5"
telegram:
  token: from-yaml
  chat_id: 1
`)
	t.Setenv("ATTENDANCE_CONFIG", "")
	t.Setenv("PORT", "7000")
	t.Setenv("BOT_TOKEN", "from-env")
	t.Setenv("CHAT_ID", "42")
	t.Setenv("DEADLINE_CRON", "30 21 * * *")

	// WHEN: Loading
	cfg, err := Load(path)
	require.NoError(t, err)

	// THEN: Env wins over YAML, YAML over defaults
	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "postgres://localhost/attendance", cfg.Database.DSN)
	assert.Equal(t, "Asia/Kolkata", cfg.Calendar.Timezone)
	assert.Equal(t, "from-env", cfg.Telegram.Token)
	assert.Equal(t, int64(42), cfg.Telegram.ChatID)
	assert.Equal(t, "0 9 * * *", cfg.Schedule.Prompt)
	assert.Equal(t, "30 21 * * *", cfg.Schedule.Deadline)
	assert.Equal(t, "0 18 * * 5", cfg.Schedule.Summary)
	assert.Equal(t, 2*time.Second, cfg.Telegram.PollInterval)

	cal, err := cfg.BuildCalendar()
	require.NoError(t, err)
	assert.Equal(t, time.Saturday, cal.RestDay)
}

func TestLoad_SummaryCronCanBeDisabledByEnv(t *testing.T) {
	path := writeYAML(t, "schedule:\n  summary: \"0 18 * * 5\"\n")
	t.Setenv("SUMMARY_CRON", "")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, cfg.Schedule.Summary)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.ErrorContains(t, err, "read config")
	})

	t.Run("bad yaml", func(t *testing.T) {
		_, err := Load(writeYAML(t, "server: [\n"))
		assert.ErrorContains(t, err, "parse config")
	})

	t.Run("bad port", func(t *testing.T) {
		t.Setenv("PORT", "eighty")
		_, err := Load("")
		assert.ErrorContains(t, err, "PORT")
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }, "Driver"},
		{"empty dsn", func(c *Config) { c.Database.DSN = "" }, "DSN"},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "Port"},
		{"bad timezone", func(c *Config) { c.Calendar.Timezone = "Mars/Olympus" }, "calendar.timezone"},
		{"bad rest day", func(c *Config) { c.Calendar.RestDay = "funday" }, "calendar.rest_day"},
		{"bad holiday", func(c *Config) { c.Calendar.PublicHolidays = []string{"26/01"} }, "public_holidays"},
		{"bad cron", func(c *Config) { c.Schedule.Prompt = "at nine" }, "schedule.prompt"},
		{"token without chat", func(c *Config) { c.Telegram.Token = "t" }, "chat_id"},
		{"bad mail address", func(c *Config) { c.Mail.To = "not-an-email" }, "To"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.errMsg)
		})
	}
}

func TestMailEnabled(t *testing.T) {
	cfg := Default()
	cfg.Mail.From = "me@example.com"
	assert.False(t, cfg.MailEnabled())
	cfg.Mail.To = "boss@example.com"
	assert.True(t, cfg.MailEnabled())
}
