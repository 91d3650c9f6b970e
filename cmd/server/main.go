/*
main.go - Application entry point

PURPOSE:
  Starts the attendance tracker. Handles configuration, dependency injection,
  and graceful shutdown.

COMMANDS:
  attendance [serve]                 HTTP API + scheduler + chat bot (default)
  attendance summarize [--email]     Print (and optionally email) the summary
  attendance mark present            Mark today present
  attendance mark absent <reason>    Mark today absent
  attendance mark holiday [reason]   Declare today a holiday

GLOBAL FLAGS:
  --config    YAML config file (default: $ATTENDANCE_CONFIG)
  --verbose   Debug logging

STARTUP SEQUENCE (serve):
  1. Load config (defaults, YAML, .env, environment)
  2. Open the store (SQLite or Postgres)
  3. Build engine, summarizer, notifier
  4. Start HTTP server, scheduler and bot poller
  5. On SIGINT/SIGTERM: stop poller and scheduler, drain HTTP, close store

SEE ALSO:
  - config/config.go: Settings and environment variables
  - api/server.go: Router configuration
  - api/scheduler.go: Cron jobs
*/
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
