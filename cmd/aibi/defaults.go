package main

import (
	"time"

	"github.com/spf13/viper"
)

func initViperDefaults() {
	// Global
	viper.SetDefault("file_state_dir", "~/.aibi")
	viper.SetDefault("log.format", "text")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("trace", false)

	// LLM backend
	viper.SetDefault("llm.provider", "openai")
	viper.SetDefault("llm.endpoint", "https://api.perplexity.ai")
	viper.SetDefault("llm.api_key", "")
	viper.SetDefault("llm.model", "sonar")
	viper.SetDefault("llm.request_timeout", 60*time.Second)

	// Analysis and reply generation
	viper.SetDefault("analysis.temperature", 0.2)
	viper.SetDefault("analysis.agents", 1)
	viper.SetDefault("reply.temperature", 0.3)
	viper.SetDefault("reply.min_confidence", 70)
	viper.SetDefault("reply.history_tail", 1000)

	// Decision engine
	viper.SetDefault("confidence.auto_reply_threshold", 85)
	viper.SetDefault("confidence.review_threshold", 90)
	viper.SetDefault("weights.calendar", 0.20)
	viper.SetDefault("weights.trello", 0.10)
	viper.SetDefault("weights.price_list", 0.10)

	// Working hours
	viper.SetDefault("working_hours.start", 9)
	viper.SetDefault("working_hours.end", 18)
	viper.SetDefault("working_hours.timezone", "Europe/Kyiv")

	// Collection
	viper.SetDefault("accumulate.window", 7*time.Second)
	viper.SetDefault("collect.lookback_days", 7)

	// External signals
	viper.SetDefault("sources.timeout", 8*time.Second)
	viper.SetDefault("calendar.token", "")
	viper.SetDefault("calendar.id", "primary")
	viper.SetDefault("calendar.busy_threshold", 3)
	viper.SetDefault("calendar.horizon", 24*time.Hour)
	viper.SetDefault("calendar.review_reminder", true)
	viper.SetDefault("trello.api_key", "")
	viper.SetDefault("trello.token", "")
	viper.SetDefault("trello.board_id", "")
	viper.SetDefault("trello.list_name", "Важливі завдання")
	viper.SetDefault("trello.task_min_confidence", 80)
	viper.SetDefault("business_data.path", "")

	// Telegram
	viper.SetDefault("telegram.api_root", "https://api.telegram.org")
	viper.SetDefault("telegram.bot_token", "")
	viper.SetDefault("telegram.owner_id", int64(0))
	viper.SetDefault("telegram.poll_timeout", 30*time.Second)
	viper.SetDefault("telegram.account_token", "")

	// State files
	viper.SetDefault("reports.dir", "")
	viper.SetDefault("knowledge.path", "")
	viper.SetDefault("knowledge.max_examples", 5)
	viper.SetDefault("instructions.path", "")
	viper.SetDefault("instructions.dynamic_path", "")
	viper.SetDefault("chatlog.dir", "")
	viper.SetDefault("audit.path", "")
	viper.SetDefault("audit.rotate_max_bytes", int64(10*1024*1024))

	// Scheduler
	viper.SetDefault("scheduler.enabled", false)
	viper.SetDefault("scheduler.cycle", "*/20 * * * *")
	viper.SetDefault("scheduler.faq", "@weekly")

	// Database
	viper.SetDefault("db.driver", "sqlite")
	viper.SetDefault("db.dsn", "")
	viper.SetDefault("db.auto_migrate", true)
}
