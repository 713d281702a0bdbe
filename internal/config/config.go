package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Category   string         `yaml:"category"`
	Interests  []string       `yaml:"interests"`
	TopPapers  int            `yaml:"top_papers"`
	Timezone   string         `yaml:"timezone"`
	Publishers []string       `yaml:"publishers"`
	Log        LogConfig      `yaml:"log"`
	Schedule   ScheduleConfig `yaml:"schedule"`
	Retry      RetryConfig    `yaml:"retry"`
	Scraper    ScraperConfig  `yaml:"scraper"`
	Arxiv      ArxivConfig    `yaml:"arxiv"`
	PDF        PDFConfig      `yaml:"pdf"`
	LLM        LLMConfig      `yaml:"llm"`
	Notion     NotionConfig   `yaml:"notion"`
	Email      EmailConfig    `yaml:"email"`
	Web        WebConfig      `yaml:"web"`
	Discord    DiscordConfig  `yaml:"discord"`
	Archive    ArchiveConfig  `yaml:"archive"`

	location *time.Location
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ScheduleConfig holds the cron expressions used by the -cron daemon.
type ScheduleConfig struct {
	Daily      string `yaml:"daily"`
	Weekly     string `yaml:"weekly"`
	Monthly    string `yaml:"monthly"`
	RunOnStart bool   `yaml:"run_on_start"`
}

type RetryConfig struct {
	MaxRetries int           `yaml:"max_retries"`
	BaseDelay  time.Duration `yaml:"base_delay"`
	MaxDelay   time.Duration `yaml:"max_delay"`
}

type ScraperConfig struct {
	// Source is "papers_cool" or "arxiv".
	Source  string `yaml:"source"`
	BaseURL string `yaml:"base_url"`
	// Loader is "browser" (headless Chrome, follows the infinite scroll) or
	// "http" (a plain GET that only sees the first server-rendered batch).
	Loader      string `yaml:"loader"`
	ShowBrowser bool   `yaml:"show_browser"`
	// MaxScrolls caps the total number of scrolls. Zero means no cap.
	MaxScrolls int           `yaml:"max_scrolls"`
	Timeout    time.Duration `yaml:"timeout"`
}

type ArxivConfig struct {
	BaseURL      string        `yaml:"base_url"`
	RequestDelay time.Duration `yaml:"request_delay"`
	BatchSize    int           `yaml:"batch_size"`
}

type PDFConfig struct {
	MaxSizeMB int    `yaml:"max_size_mb"`
	MaxChars  int    `yaml:"max_chars"`
	Dir       string `yaml:"dir"`
}

type LLMConfig struct {
	Provider          string        `yaml:"provider"`
	APIKey            string        `yaml:"api_key"`
	BaseURL           string        `yaml:"base_url"`
	Model             string        `yaml:"model"`
	MaxTokens         int           `yaml:"max_tokens"`
	Temperature       float64       `yaml:"temperature"`
	RequestsPerMinute int           `yaml:"requests_per_minute"`
	Timeout           time.Duration `yaml:"timeout"`
}

type NotionConfig struct {
	APIKey       string `yaml:"api_key"`
	DatabaseID   string `yaml:"database_id"`
	ParentPageID string `yaml:"parent_page_id"`
	BaseURL      string `yaml:"base_url"`
}

type DiscordConfig struct {
	WebhookURL string `yaml:"webhook_url"`
}

type EmailConfig struct {
	SMTPHost string   `yaml:"smtp_host"`
	SMTPPort int      `yaml:"smtp_port"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	From     string   `yaml:"from"`
	To       []string `yaml:"to"`
}

type WebConfig struct {
	Addr string `yaml:"addr"`
}

// ArchiveConfig enables the SQLite archive when Path is set.
type ArchiveConfig struct {
	Path string `yaml:"path"`
}

// Location returns the configured timezone. Valid after Load.
func (c *Config) Location() *time.Location {
	if c.location != nil {
		return c.location
	}
	return time.UTC
}

// HasPublisher reports whether name is among the configured publishers.
func (c *Config) HasPublisher(name string) bool {
	for _, p := range c.Publishers {
		if p == name {
			return true
		}
	}
	return false
}

// MaxPDFBytes is the PDF size limit in bytes.
func (c *Config) MaxPDFBytes() int64 {
	return int64(c.PDF.MaxSizeMB) * 1024 * 1024
}

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with environment variable values.
func expandEnvVars(s string) string {
	return envVarRegex.ReplaceAllStringFunc(s, func(match string) string {
		varName := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

// applyEnvOverrides lets the environment win over the file.
func applyEnvOverrides(cfg *Config) error {
	str := func(name string, dst *string) {
		if v, ok := os.LookupEnv(name); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	list := func(name string, dst *[]string) {
		if v, ok := os.LookupEnv(name); ok && strings.TrimSpace(v) != "" {
			*dst = splitList(v)
		}
	}
	var errs []error
	num := func(name string, dst *int) {
		if v, ok := os.LookupEnv(name); ok && strings.TrimSpace(v) != "" {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("config: %s must be an integer: %w", name, err))
				return
			}
			*dst = n
		}
	}

	str("ARXIV_CATEGORY", &cfg.Category)
	list("USER_INTERESTS", &cfg.Interests)
	num("TOP_PAPERS_COUNT", &cfg.TopPapers)
	str("TIMEZONE", &cfg.Timezone)
	str("SCRAPER_LOADER", &cfg.Scraper.Loader)
	list("PUBLISHERS", &cfg.Publishers)
	str("LOG_LEVEL", &cfg.Log.Level)
	num("MAX_PDF_SIZE_MB", &cfg.PDF.MaxSizeMB)
	num("RATE_LIMIT_REQUESTS_PER_MINUTE", &cfg.LLM.RequestsPerMinute)

	str("LLM_PROVIDER", &cfg.LLM.Provider)
	str("OPENAI_BASE_URL", &cfg.LLM.BaseURL)
	str("OPENAI_MODEL", &cfg.LLM.Model)
	num("OPENAI_MAX_TOKENS", &cfg.LLM.MaxTokens)
	if v, ok := os.LookupEnv("OPENAI_TEMPERATURE"); ok && strings.TrimSpace(v) != "" {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("config: OPENAI_TEMPERATURE must be a number: %w", err))
		} else {
			cfg.LLM.Temperature = f
		}
	}
	if cfg.LLM.APIKey == "" {
		switch cfg.LLM.Provider {
		case "anthropic":
			str("ANTHROPIC_API_KEY", &cfg.LLM.APIKey)
		default:
			str("OPENAI_API_KEY", &cfg.LLM.APIKey)
		}
	}

	str("NOTION_API_KEY", &cfg.Notion.APIKey)
	str("NOTION_DATABASE_ID", &cfg.Notion.DatabaseID)
	str("NOTION_PARENT_PAGE_ID", &cfg.Notion.ParentPageID)
	str("DISCORD_WEBHOOK_URL", &cfg.Discord.WebhookURL)
	str("ARCHIVE_PATH", &cfg.Archive.Path)

	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// defaultConfig is the starting point that the file and the environment
// override. Fields the file sets, zero included, replace these values.
func defaultConfig() Config {
	return Config{
		Category:   "cs.CL",
		Interests:  []string{"agents", "agentic memory", "reinforcement learning", "reasoning"},
		TopPapers:  15,
		Timezone:   "Asia/Shanghai",
		Publishers: []string{"notion"},
		Log:        LogConfig{Level: "info", Format: "text"},
		Schedule: ScheduleConfig{
			Daily:   "0 9 * * *",
			Weekly:  "0 10 * * 1",
			Monthly: "0 11 1 * *",
		},
		Retry: RetryConfig{MaxRetries: 3, BaseDelay: 2 * time.Second, MaxDelay: 10 * time.Second},
		Scraper: ScraperConfig{
			Source:     "papers_cool",
			BaseURL:    "https://papers.cool",
			Loader:     "browser",
			MaxScrolls: 500,
			Timeout:    10 * time.Minute,
		},
		Arxiv: ArxivConfig{
			BaseURL:      "http://export.arxiv.org/api/query",
			RequestDelay: 3 * time.Second,
			BatchSize:    100,
		},
		PDF: PDFConfig{MaxSizeMB: 50, MaxChars: 30000, Dir: os.TempDir()},
		LLM: LLMConfig{
			Provider:          "openai",
			MaxTokens:         4000,
			Temperature:       0.3,
			RequestsPerMinute: 30,
			Timeout:           120 * time.Second,
		},
		Notion: NotionConfig{BaseURL: "https://api.notion.com/v1"},
		Email:  EmailConfig{SMTPPort: 587},
		Web:    WebConfig{Addr: ":8080"},
	}
}

// setProviderDefaults fills the LLM settings that depend on the provider.
func setProviderDefaults(cfg *Config) {
	if cfg.LLM.BaseURL == "" {
		switch cfg.LLM.Provider {
		case "anthropic":
			cfg.LLM.BaseURL = "https://api.anthropic.com/v1"
		default:
			cfg.LLM.BaseURL = "https://api.openai.com/v1"
		}
	}
	if cfg.LLM.Model == "" {
		switch cfg.LLM.Provider {
		case "anthropic":
			cfg.LLM.Model = "claude-sonnet-4-20250514"
		default:
			cfg.LLM.Model = "gpt-4o-mini"
		}
	}
}

func validate(cfg *Config) error {
	if cfg.TopPapers < 0 {
		return fmt.Errorf("config: top_papers must not be negative, got %d", cfg.TopPapers)
	}
	if cfg.PDF.MaxSizeMB < 0 {
		return fmt.Errorf("config: pdf.max_size_mb must not be negative, got %d", cfg.PDF.MaxSizeMB)
	}
	switch cfg.Scraper.Loader {
	case "browser", "http":
	default:
		return fmt.Errorf("config: unsupported scraper loader %q (supported: browser, http)", cfg.Scraper.Loader)
	}
	if cfg.Scraper.Timeout <= 0 {
		return fmt.Errorf("config: scraper.timeout must be positive, got %s", cfg.Scraper.Timeout)
	}
	if cfg.LLM.MaxTokens <= 0 {
		return fmt.Errorf("config: llm.max_tokens must be positive, got %d", cfg.LLM.MaxTokens)
	}
	switch cfg.Scraper.Source {
	case "papers_cool", "arxiv":
	default:
		return fmt.Errorf("config: unsupported scraper source %q (supported: papers_cool, arxiv)", cfg.Scraper.Source)
	}
	switch cfg.LLM.Provider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("config: unsupported llm provider %q (supported: openai, anthropic)", cfg.LLM.Provider)
	}
	if cfg.LLM.APIKey == "" {
		return fmt.Errorf("config: llm.api_key is required (set OPENAI_API_KEY or ANTHROPIC_API_KEY env var)")
	}
	for _, p := range cfg.Publishers {
		switch p {
		case "notion", "stdout", "email", "web", "discord":
		default:
			return fmt.Errorf("config: unsupported publisher type %q (supported: notion, stdout, email, web, discord)", p)
		}
	}
	if cfg.HasPublisher("notion") {
		if cfg.Notion.APIKey == "" {
			return fmt.Errorf("config: notion.api_key is required for notion publisher (set NOTION_API_KEY env var)")
		}
		if cfg.Notion.DatabaseID == "" && cfg.Notion.ParentPageID == "" {
			return fmt.Errorf("config: notion.database_id or notion.parent_page_id is required for notion publisher")
		}
	}
	if cfg.HasPublisher("discord") && cfg.Discord.WebhookURL == "" {
		return fmt.Errorf("config: discord.webhook_url is required for discord publisher")
	}
	if cfg.HasPublisher("email") {
		if cfg.Email.SMTPHost == "" {
			return fmt.Errorf("config: email.smtp_host is required for email publisher")
		}
		if len(cfg.Email.To) == 0 {
			return fmt.Errorf("config: email.to is required for email publisher")
		}
		if cfg.Email.From == "" {
			return fmt.Errorf("config: email.from is required for email publisher")
		}
	}
	return nil
}

func bindTimezone(cfg *Config) error {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return fmt.Errorf("config: unknown timezone %q: %w", cfg.Timezone, err)
	}
	cfg.location = loc
	return nil
}

// Load builds the configuration from an optional .env file, an optional YAML
// file (path may be empty), and environment variables, in that order of
// increasing precedence, over the built-in defaults. Provider-dependent LLM
// settings are filled last, then the result is validated.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("config: failed to read .env: %w", err)
		}
	}

	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
		}

		expanded := expandEnvVars(string(data))

		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}

	setProviderDefaults(&cfg)

	if err := bindTimezone(&cfg); err != nil {
		return nil, err
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
