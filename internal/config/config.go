package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone   = "UTC"
	configPathEnv     = "AINEWSDIGEST_CONFIG"
	databaseDSNEnv    = "DATABASE_DSN"
	chatGPTAPIKeyEnv  = "CHATGPT_API_KEY"
	chatGPTModelEnv   = "CHATGPT_MODEL"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Fetch         FetchConfig        `yaml:"fetch"`
	Filter        FilterConfig       `yaml:"filter"`
	Storage       StorageConfig      `yaml:"storage"`
	ChatGPT       ChatGPTConfig      `yaml:"chatgpt"`
	Notifications NotificationConfig `yaml:"notifications"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Sources       []SourceConfig     `yaml:"sources"`
}

// LoggingConfig selects console output verbosity and encoding.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// FetchConfig bounds the network behavior of the fetch layer.
type FetchConfig struct {
	TimeoutSeconds         int  `yaml:"timeoutSeconds"`
	PageTimeoutSeconds     int  `yaml:"pageTimeoutSeconds"`
	ProbeTimeoutSeconds    int  `yaml:"probeTimeoutSeconds"`
	MaxAttempts            int  `yaml:"maxAttempts"`
	RetryDelaySeconds      int  `yaml:"retryDelaySeconds"`
	Concurrency            int  `yaml:"concurrency"`
	RequestDelayMinSeconds int  `yaml:"requestDelayMinSeconds"`
	RequestDelayMaxSeconds int  `yaml:"requestDelayMaxSeconds"`
	MaxSources             int  `yaml:"maxSources"`
	SkipHealthCheck        bool `yaml:"skipHealthCheck"`
}

// Timeout is the per-request bound for feed sources.
func (f FetchConfig) Timeout() time.Duration {
	return time.Duration(f.TimeoutSeconds) * time.Second
}

// PageTimeout is the per-request bound for page sources.
func (f FetchConfig) PageTimeout() time.Duration {
	return time.Duration(f.PageTimeoutSeconds) * time.Second
}

// ProbeTimeout is the short bound used by the health probe.
func (f FetchConfig) ProbeTimeout() time.Duration {
	return time.Duration(f.ProbeTimeoutSeconds) * time.Second
}

// RetryDelay is the base backoff interval for page fetch attempts.
func (f FetchConfig) RetryDelay() time.Duration {
	return time.Duration(f.RetryDelaySeconds) * time.Second
}

// RequestDelayMin is the lower bound of the randomized polite pause
// between sources in sequential mode.
func (f FetchConfig) RequestDelayMin() time.Duration {
	return time.Duration(f.RequestDelayMinSeconds) * time.Second
}

// RequestDelayMax is the upper bound of the randomized polite pause.
func (f FetchConfig) RequestDelayMax() time.Duration {
	return time.Duration(f.RequestDelayMaxSeconds) * time.Second
}

// FilterConfig tunes relevance, scoring, and deduplication.
type FilterConfig struct {
	Keywords            []string `yaml:"keywords"`
	AcceptThreshold     float64  `yaml:"acceptThreshold"`
	SimilarityThreshold float64  `yaml:"similarityThreshold"`
	MaxArticles         int      `yaml:"maxArticles"`
	HistoryWindow       int      `yaml:"historyWindow"`
	// StrictRecency withholds the freshness bonus from items whose publish
	// date did not parse; by default such items count as published today.
	StrictRecency bool `yaml:"strictRecency"`
}

// StorageConfig describes the article store and duplicate-history backends.
type StorageConfig struct {
	DSN             string `yaml:"dsn"`
	ArticlesDir     string `yaml:"articlesDir"`
	HistoryFile     string `yaml:"historyFile"`
	HistoryTTLHours int    `yaml:"historyTtlHours"`
}

// ChatGPTConfig defines how to contact the article-generation API.
type ChatGPTConfig struct {
	Endpoint     string  `yaml:"endpoint"`
	Model        string  `yaml:"model"`
	APIKey       string  `yaml:"apiKey"`
	SystemPrompt string  `yaml:"systemPrompt"`
	Temperature  float64 `yaml:"temperature"`
	MaxTokens    int     `yaml:"maxTokens"`
	// OptimizeTitles asks the model for a reworked headline before each
	// article is generated.
	OptimizeTitles bool `yaml:"optimizeTitles"`
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// SchedulerConfig defines when recurring runs happen.
type SchedulerConfig struct {
	Enabled  bool           `yaml:"enabled"`
	RunAt    string         `yaml:"runAt"`
	Timezone string         `yaml:"timezone"`
	CatchUp  bool           `yaml:"catchUp"`
	location *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// SourceConfig describes a single source with its fetch strategy.
type SourceConfig struct {
	Name        string         `yaml:"name"`
	Strategy    string         `yaml:"strategy"`
	URL         string         `yaml:"url"`
	FallbackURL string         `yaml:"fallbackUrl"`
	Category    string         `yaml:"category"`
	Selectors   SelectorConfig `yaml:"selectors"`
}

// SelectorConfig holds the CSS selectors for page sources.
type SelectorConfig struct {
	Article string `yaml:"article"`
	Title   string `yaml:"title"`
	Link    string `yaml:"link"`
	Summary string `yaml:"summary"`
	Date    string `yaml:"date"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	if len(cfg.Sources) == 0 {
		cfg.Sources = defaultConfig().Sources
	}

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Storage.DSN = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}

	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}

	if v := os.Getenv(chatGPTAPIKeyEnv); v != "" {
		c.ChatGPT.APIKey = v
	}

	if v := os.Getenv(chatGPTModelEnv); v != "" {
		c.ChatGPT.Model = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	if override.Fetch.TimeoutSeconds > 0 {
		base.Fetch.TimeoutSeconds = override.Fetch.TimeoutSeconds
	}
	if override.Fetch.PageTimeoutSeconds > 0 {
		base.Fetch.PageTimeoutSeconds = override.Fetch.PageTimeoutSeconds
	}
	if override.Fetch.ProbeTimeoutSeconds > 0 {
		base.Fetch.ProbeTimeoutSeconds = override.Fetch.ProbeTimeoutSeconds
	}
	if override.Fetch.MaxAttempts > 0 {
		base.Fetch.MaxAttempts = override.Fetch.MaxAttempts
	}
	if override.Fetch.RetryDelaySeconds > 0 {
		base.Fetch.RetryDelaySeconds = override.Fetch.RetryDelaySeconds
	}
	if override.Fetch.Concurrency > 0 {
		base.Fetch.Concurrency = override.Fetch.Concurrency
	}
	if override.Fetch.RequestDelayMinSeconds > 0 {
		base.Fetch.RequestDelayMinSeconds = override.Fetch.RequestDelayMinSeconds
	}
	if override.Fetch.RequestDelayMaxSeconds > 0 {
		base.Fetch.RequestDelayMaxSeconds = override.Fetch.RequestDelayMaxSeconds
	}
	if override.Fetch.MaxSources > 0 {
		base.Fetch.MaxSources = override.Fetch.MaxSources
	}
	if override.Fetch.SkipHealthCheck {
		base.Fetch.SkipHealthCheck = true
	}

	if len(override.Filter.Keywords) > 0 {
		base.Filter.Keywords = override.Filter.Keywords
	}
	if override.Filter.AcceptThreshold > 0 {
		base.Filter.AcceptThreshold = override.Filter.AcceptThreshold
	}
	if override.Filter.SimilarityThreshold > 0 {
		base.Filter.SimilarityThreshold = override.Filter.SimilarityThreshold
	}
	if override.Filter.MaxArticles > 0 {
		base.Filter.MaxArticles = override.Filter.MaxArticles
	}
	if override.Filter.HistoryWindow > 0 {
		base.Filter.HistoryWindow = override.Filter.HistoryWindow
	}
	if override.Filter.StrictRecency {
		base.Filter.StrictRecency = true
	}

	if override.Storage.DSN != "" {
		base.Storage.DSN = override.Storage.DSN
	}
	if override.Storage.ArticlesDir != "" {
		base.Storage.ArticlesDir = override.Storage.ArticlesDir
	}
	if override.Storage.HistoryFile != "" {
		base.Storage.HistoryFile = override.Storage.HistoryFile
	}
	if override.Storage.HistoryTTLHours > 0 {
		base.Storage.HistoryTTLHours = override.Storage.HistoryTTLHours
	}

	if override.ChatGPT.Endpoint != "" {
		base.ChatGPT.Endpoint = override.ChatGPT.Endpoint
	}
	if override.ChatGPT.Model != "" {
		base.ChatGPT.Model = override.ChatGPT.Model
	}
	if override.ChatGPT.APIKey != "" {
		base.ChatGPT.APIKey = override.ChatGPT.APIKey
	}
	if override.ChatGPT.SystemPrompt != "" {
		base.ChatGPT.SystemPrompt = override.ChatGPT.SystemPrompt
	}
	if override.ChatGPT.Temperature > 0 {
		base.ChatGPT.Temperature = override.ChatGPT.Temperature
	}
	if override.ChatGPT.MaxTokens > 0 {
		base.ChatGPT.MaxTokens = override.ChatGPT.MaxTokens
	}
	if override.ChatGPT.OptimizeTitles {
		base.ChatGPT.OptimizeTitles = true
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	if override.Scheduler.Enabled {
		base.Scheduler.Enabled = true
	}
	if override.Scheduler.RunAt != "" {
		base.Scheduler.RunAt = override.Scheduler.RunAt
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}
	if override.Scheduler.CatchUp {
		base.Scheduler.CatchUp = true
	}

	if len(override.Sources) > 0 {
		base.Sources = override.Sources
	}

	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Fetch: FetchConfig{
			TimeoutSeconds:         10,
			PageTimeoutSeconds:     15,
			ProbeTimeoutSeconds:    5,
			MaxAttempts:            3,
			RetryDelaySeconds:      2,
			Concurrency:            3,
			RequestDelayMinSeconds: 1,
			RequestDelayMaxSeconds: 5,
		},
		Filter: FilterConfig{
			AcceptThreshold:     60,
			SimilarityThreshold: 0.7,
			MaxArticles:         5,
			HistoryWindow:       50,
		},
		Storage: StorageConfig{
			ArticlesDir:     "articles",
			HistoryFile:     "data/published.json",
			HistoryTTLHours: 72,
		},
		ChatGPT: ChatGPTConfig{
			Endpoint:     "https://api.openai.com/v1/chat/completions",
			Model:        "gpt-4o",
			APIKey:       "",
			SystemPrompt: "You are a professional technology journalist covering artificial intelligence. You write clear, engaging articles for a general audience.",
			Temperature:  0.7,
			MaxTokens:    2000,
		},
		Notifications: NotificationConfig{
			Telegram: TelegramConfig{BotToken: "", ChatID: ""},
		},
		Scheduler: SchedulerConfig{RunAt: "08:00", Timezone: defaultTimezone, location: tz},
		Sources:   defaultSources(),
	}
}

// defaultSources is the static catalog used when no sources are configured.
func defaultSources() []SourceConfig {
	return []SourceConfig{
		{Name: "DeepMind", Strategy: "feed", URL: "https://deepmind.com/blog/feed/basic", FallbackURL: "https://deepmind.google/blog/rss.xml", Category: "ai_company"},
		{Name: "Google AI Blog", Strategy: "feed", URL: "https://blog.google/technology/ai/rss/", Category: "ai_company"},
		{Name: "Hugging Face Blog", Strategy: "feed", URL: "https://huggingface.co/blog/feed.xml", Category: "ai_company"},
		{Name: "TechCrunch AI", Strategy: "feed", URL: "https://techcrunch.com/category/artificial-intelligence/feed/", Category: "tech_news"},
		{Name: "VentureBeat AI", Strategy: "feed", URL: "https://venturebeat.com/category/ai/feed/", Category: "tech_news"},
		{Name: "MIT Technology Review AI", Strategy: "feed", URL: "https://www.technologyreview.com/topic/artificial-intelligence/feed", Category: "tech_news"},
		{Name: "Hacker News", Strategy: "feed", URL: "https://news.ycombinator.com/rss", Category: "tech_news"},
		{Name: "Reddit AI", Strategy: "feed", URL: "https://www.reddit.com/r/artificial/.rss", Category: "community"},
		{Name: "MIT News AI", Strategy: "feed", URL: "https://news.mit.edu/rss/topic/artificial-intelligence2", Category: "research"},
		{Name: "Towards Data Science", Strategy: "feed", URL: "https://towardsdatascience.com/feed", Category: "research"},
		{Name: "KDnuggets", Strategy: "feed", URL: "https://www.kdnuggets.com/feed", Category: "research"},
		{
			Name:     "NVIDIA AI News",
			Strategy: "page",
			URL:      "https://blogs.nvidia.com/blog/category/deep-learning/",
			Category: "ai_company",
			Selectors: SelectorConfig{
				Article: "article.blog-item",
				Title:   "h2.blog-item__title",
				Link:    "a.blog-item__title-link",
				Summary: "div.blog-item__excerpt",
				Date:    "time.blog-item__date",
			},
		},
		{
			Name:     "AI News",
			Strategy: "page",
			URL:      "https://artificialintelligence-news.com/",
			Category: "tech_news",
			Selectors: SelectorConfig{
				Article: "article.type-post",
				Title:   "h2.entry-title",
				Link:    "h2.entry-title a",
				Summary: "div.entry-content",
				Date:    "time.entry-date",
			},
		},
		{
			Name:     "VentureBeat AI Page",
			Strategy: "page",
			URL:      "https://venturebeat.com/category/ai/",
			Category: "tech_news",
			Selectors: SelectorConfig{
				Article: "article.article-item",
				Title:   "h2.article-title",
				Link:    "a.article-link",
				Summary: "p.article-excerpt",
				Date:    "time.article-date",
			},
		},
	}
}
