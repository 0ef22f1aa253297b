package config

import (
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

const defaultPath = "config.yaml"

type Config struct {
	Log      Log      `yaml:"log"`
	Server   Server   `yaml:"server"`
	LLM      LLM      `yaml:"llm"`
	Calendar Calendar `yaml:"calendar"`
	Mail     Mail     `yaml:"mail"`
	Session  Session  `yaml:"session"`
	Schedule Schedule `yaml:"schedule"`
	FAQ      FAQ      `yaml:"faq"`
	Intents  Intents  `yaml:"intents"`
}

type Log struct {
	// Enable debug level records
	Debug bool `yaml:"debug" example:"false"`
	// Telegram logging config
	Telegram TelegramLog `yaml:"telegram"`
}

type TelegramLog struct {
	// Chat bot token, obtain it via BotFather
	Token string `yaml:"token" example:"1234567890:ABCdefGHIjklMNopQRstUVwxyZ-123456789"`
	// Chat ID to send messages to
	ChatID string `yaml:"chat_id" example:"1001234567890"`
}

type Server struct {
	// Transport the assistant is exposed on
	Mode string `yaml:"mode" example:"http" validate:"oneof=http mcp"`
	// HTTP listen address
	Addr string `yaml:"addr" example:":8080" validate:"required"`
	// Max request body size in bytes
	BodyLimit int `yaml:"body_limit" example:"65536" validate:"gt=0"`
	// Allowed chat requests per minute for one session
	RequestsPerMinute int `yaml:"requests_per_minute" example:"30" validate:"gt=0"`
}

type LLM struct {
	// openai (any OpenAI-compatible endpoint) or gemini
	Provider string `yaml:"provider" example:"openai" validate:"oneof=openai gemini"`
	// OpenAI base url
	BaseURL string `yaml:"base_url" example:"https://openrouter.ai/api/v1"`
	// API token
	Token string `yaml:"token" example:"sk-proj-abc123456789DEF789ghi012JKL345mno678PQR901stu234VWX" validate:"required"`
	// Model name
	Model string `yaml:"model" example:"gpt-4o-mini" validate:"required"`
	// Sampling temperature
	Temperature float64 `yaml:"temperature" example:"0.2" validate:"gte=0,lte=2"`
	// Per call timeout
	Timeout time.Duration `yaml:"timeout" example:"30s" validate:"gt=0"`
}

type Calendar struct {
	// gas (Apps Script web app) or google (Calendar API)
	Provider string `yaml:"provider" example:"gas" validate:"oneof=gas google"`
	// Apps Script web app url
	URL string `yaml:"url" example:"https://script.google.com/macros/s/abc/exec" validate:"required_if=Provider gas"`
	// Service account credentials file for the Calendar API
	CredentialsFile string `yaml:"credentials_file" example:"service-account-key.json" validate:"required_if=Provider google"`
	// Calendar ID for the Calendar API
	CalendarID string `yaml:"calendar_id" example:"primary"`
	// Per call timeout
	Timeout time.Duration `yaml:"timeout" example:"15s" validate:"gt=0"`
	// Outbound requests per second
	RateLimit float64 `yaml:"rate_limit" example:"5" validate:"gt=0"`
}

type Mail struct {
	// gas (Apps Script web app) or gmail (Gmail API)
	Provider string `yaml:"provider" example:"gas" validate:"oneof=gas gmail"`
	// Apps Script web app url
	URL string `yaml:"url" example:"https://script.google.com/macros/s/def/exec" validate:"required_if=Provider gas"`
	// Service account credentials file for the Gmail API
	CredentialsFile string `yaml:"credentials_file" example:"service-account-key.json" validate:"required_if=Provider gmail"`
	// Sender address for the Gmail API
	Sender string `yaml:"sender" example:"recruit@example.com"`
	// Recruiter address receiving booking notifications
	Recipient string `yaml:"recipient" example:"recruiter@example.com" validate:"required,email"`
	// Per call timeout
	Timeout time.Duration `yaml:"timeout" example:"15s" validate:"gt=0"`
}

type Session struct {
	// memory or redis
	Store string `yaml:"store" example:"memory" validate:"oneof=memory redis"`
	// Idle time after which a session is dropped
	TTL time.Duration `yaml:"ttl" example:"30m" validate:"gt=0"`
	// How often expired sessions and stale holds are reaped
	CleanupInterval time.Duration `yaml:"cleanup_interval" example:"1m" validate:"gt=0"`
	// Redis address
	RedisAddr string `yaml:"redis_addr" example:"localhost:6379" validate:"required_if=Store redis"`
	// Redis password
	RedisPassword string `yaml:"redis_password"`
	// Redis database number
	RedisDB int `yaml:"redis_db" example:"0" validate:"gte=0"`
}

type Schedule struct {
	// IANA timezone used for "now" and display
	Timezone string `yaml:"timezone" example:"Asia/Tokyo" validate:"required,timezone"`
	// Max number of slots offered at once
	SlotLimit int `yaml:"slot_limit" example:"3" validate:"gt=0"`
	// Duration of holds and bookings in hours
	HoldHours float64 `yaml:"hold_hours" example:"1.5" validate:"gt=0"`
	// Title marking a bookable calendar entry
	OpenTitle string `yaml:"open_title" example:"open" validate:"required"`
	// Title marking a tentative hold
	TentativeTitle string `yaml:"tentative_title" example:"tentative" validate:"required,nefield=OpenTitle"`
	// Subject of the booking notification
	NotifySubject string `yaml:"notify_subject" example:"面接日程確定" validate:"required"`
}

type FAQ struct {
	// YAML file with question/answer pairs, the embedded table is used when empty
	File string `yaml:"file" example:"faq.yaml"`
	// fuzzy or keyword
	Mode string `yaml:"mode" example:"fuzzy" validate:"oneof=fuzzy keyword"`
	// Minimal similarity for a fuzzy match
	Threshold float64 `yaml:"threshold" example:"0.4" validate:"gte=0,lte=1"`
}

type Intents struct {
	// JSON lines file of calendar hold intents
	File string `yaml:"file" example:"data/intents.jsonl" validate:"required"`
}

func Load() (*Config, error) {
	return LoadFile(defaultPath)
}

func LoadFile(path string) (*Config, error) {
	var result Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, oops.Errorf("failed to read config file: %w", err)
	}

	if err = yaml.Unmarshal(data, &result); err != nil {
		return nil, oops.Errorf("failed to parse YAML config: %w", err)
	}

	applyDefaults(&result)

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(result); err != nil {
		return nil, oops.Errorf("failed to validate config: %w", err)
	}

	return &result, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "http"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.BodyLimit == 0 {
		cfg.Server.BodyLimit = 64 * 1024
	}
	if cfg.Server.RequestsPerMinute == 0 {
		cfg.Server.RequestsPerMinute = 30
	}

	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "openai"
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = 30 * time.Second
	}

	if cfg.Calendar.Provider == "" {
		cfg.Calendar.Provider = "gas"
	}
	if cfg.Calendar.CalendarID == "" {
		cfg.Calendar.CalendarID = "primary"
	}
	if cfg.Calendar.Timeout == 0 {
		cfg.Calendar.Timeout = 15 * time.Second
	}
	if cfg.Calendar.RateLimit == 0 {
		cfg.Calendar.RateLimit = 5
	}

	if cfg.Mail.Provider == "" {
		cfg.Mail.Provider = "gas"
	}
	if cfg.Mail.Sender == "" {
		cfg.Mail.Sender = "me"
	}
	if cfg.Mail.Timeout == 0 {
		cfg.Mail.Timeout = 15 * time.Second
	}

	if cfg.Session.Store == "" {
		cfg.Session.Store = "memory"
	}
	if cfg.Session.TTL == 0 {
		cfg.Session.TTL = 30 * time.Minute
	}
	if cfg.Session.CleanupInterval == 0 {
		cfg.Session.CleanupInterval = time.Minute
	}

	if cfg.Schedule.Timezone == "" {
		cfg.Schedule.Timezone = "Asia/Tokyo"
	}
	if cfg.Schedule.SlotLimit == 0 {
		cfg.Schedule.SlotLimit = 3
	}
	if cfg.Schedule.HoldHours == 0 {
		cfg.Schedule.HoldHours = 1.5
	}
	if cfg.Schedule.OpenTitle == "" {
		cfg.Schedule.OpenTitle = "open"
	}
	if cfg.Schedule.TentativeTitle == "" {
		cfg.Schedule.TentativeTitle = "tentative"
	}
	if cfg.Schedule.NotifySubject == "" {
		cfg.Schedule.NotifySubject = "面接日程確定"
	}

	if cfg.FAQ.Mode == "" {
		cfg.FAQ.Mode = "fuzzy"
	}
	if cfg.FAQ.Threshold == 0 {
		cfg.FAQ.Threshold = 0.4
	}

	if cfg.Intents.File == "" {
		cfg.Intents.File = "data/intents.jsonl"
	}
}

// Location resolves the schedule timezone. Validation guarantees it parses.
func (s Schedule) Location() *time.Location {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}

	return loc
}
