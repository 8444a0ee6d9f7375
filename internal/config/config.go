package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/Banditcantcode/Banditbot/internal/domain"
)

// Config aggregates runtime configuration for both bots and the ops server.
// It is built once at startup and passed by reference; nothing mutates it
// afterwards.
type Config struct {
	App        AppConfig
	Discord    DiscordConfig
	Tickets    TicketsConfig
	Roles      RolesConfig
	Reaction   ReactionRoleConfig
	Postgres   PostgresConfig
	GameDB     GameDBConfig
	Redis      RedisConfig
	Logger     LoggerConfig
	Transcript TranscriptConfig
}

// AppConfig controls the ops HTTP server.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	BaseURL               string
	RequestTimeoutSeconds int
}

// DiscordConfig holds gateway credentials. The tickets and finder bots run
// as separate sessions; both fall back to DISCORD_TOKEN when a dedicated
// token is not set.
type DiscordConfig struct {
	TicketsToken string
	FinderToken  string
	GuildID      string
}

// CategoryConfig describes one ticket category: display name, description
// shown in the selection menu, and the parent channel group new ticket
// channels are created under.
type CategoryConfig struct {
	Name        string
	Description string
	ParentID    string
}

// TicketsConfig holds intake/logs channel ids and the category table.
type TicketsConfig struct {
	IntakeChannelID string
	LogsChannelID   string
	Categories      map[domain.Category]CategoryConfig
}

// Descriptor returns the category configuration, reporting whether the
// category is known.
func (t TicketsConfig) Descriptor(c domain.Category) (CategoryConfig, bool) {
	desc, ok := t.Categories[c]
	return desc, ok
}

// RolesConfig holds the role ids consumed by the authorization policy.
// Senior and Management escalate across every restricted category. An empty
// or "0" id is treated as not configured and never matches.
type RolesConfig struct {
	Staff       string
	Senior      string
	Management  string
	Gang        string
	BanAppeal   string
	StaffReport string
}

// ReactionRoleConfig drives the finder bot's reaction-role binding.
type ReactionRoleConfig struct {
	MessageID string
	Emoji     string
	RoleID    string
}

// PostgresConfig holds ticket store connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// GameDBConfig holds read-only game database (MySQL) connection values.
type GameDBConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifeMins int
	CacheTTLMinutes int
}

// CacheTTL returns how long player lookups are cached.
func (g GameDBConfig) CacheTTL() time.Duration {
	return time.Duration(g.CacheTTLMinutes) * time.Minute
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// TranscriptConfig controls transcript retention and download links.
type TranscriptConfig struct {
	TokenSecret      string
	TokenTTLMinutes  int
	RetentionMinutes int
}

// Load reads configuration from environment variables, applying defaults
// where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	token := os.Getenv("DISCORD_TOKEN")
	ticketsToken := getEnv("TICKETS_TOKEN", token)
	finderToken := getEnv("FINDER_TOKEN", token)
	if ticketsToken == "" {
		return nil, fmt.Errorf("DISCORD_TOKEN (or TICKETS_TOKEN) not set")
	}

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "banditbot"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			BaseURL:               getEnv("APP_BASE_URL", "http://127.0.0.1:8080"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Discord: DiscordConfig{
			TicketsToken: ticketsToken,
			FinderToken:  finderToken,
			GuildID:      os.Getenv("GUILD_ID"),
		},
		Tickets: TicketsConfig{
			IntakeChannelID: os.Getenv("TICKET_CHANNEL_ID"),
			LogsChannelID:   os.Getenv("TICKET_LOGS_CHANNEL_ID"),
			Categories: map[domain.Category]CategoryConfig{
				domain.CategoryGeneral: {
					Name:        "General Support Ticket",
					Description: "Get general help with the server",
					ParentID:    os.Getenv("GENERAL_CATEGORY_ID"),
				},
				domain.CategoryBanAppeal: {
					Name:        "Ban Appeal",
					Description: "Appeal a ban or other punishment",
					ParentID:    os.Getenv("BAN_APPEAL_CATEGORY_ID"),
				},
				domain.CategoryTebex: {
					Name:        "Tebex Support",
					Description: "Get help with store purchases",
					ParentID:    os.Getenv("TEBEX_CATEGORY_ID"),
				},
				domain.CategoryGang: {
					Name:        "Gang Reports",
					Description: "Report issues related to gangs",
					ParentID:    os.Getenv("GANG_CATEGORY_ID"),
				},
				domain.CategoryStaff: {
					Name:        "Staff Report",
					Description: "Report a staff member",
					ParentID:    os.Getenv("STAFF_CATEGORY_ID"),
				},
			},
		},
		Roles: RolesConfig{
			Staff:       os.Getenv("STAFF_ROLE_ID"),
			Senior:      os.Getenv("SENIOR_ROLE_ID"),
			Management:  os.Getenv("MANAGEMENT_ROLE_ID"),
			Gang:        os.Getenv("GANG_ROLE_ID"),
			BanAppeal:   os.Getenv("BAN_APPEAL_ROLE_ID"),
			StaffReport: os.Getenv("STAFF_REPORT_ROLE_ID"),
		},
		Reaction: ReactionRoleConfig{
			MessageID: os.Getenv("REACTION_MESSAGE_ID"),
			Emoji:     getEnv("REACTION_EMOJI", "✅"),
			RoleID:    os.Getenv("REACTION_ROLE_ID"),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		GameDB: GameDBConfig{
			DSN:             os.Getenv("GAMEDB_DSN"),
			MaxOpenConns:    getEnvAsInt("GAMEDB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvAsInt("GAMEDB_MAX_IDLE_CONNS", 5),
			ConnMaxLifeMins: getEnvAsInt("GAMEDB_CONN_MAX_LIFE_MINUTES", 5),
			CacheTTLMinutes: getEnvAsInt("ENRICHMENT_CACHE_TTL_MINUTES", 10),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Transcript: TranscriptConfig{
			TokenSecret:      getEnv("TRANSCRIPT_TOKEN_SECRET", "dev-secret"),
			TokenTTLMinutes:  getEnvAsInt("TRANSCRIPT_TOKEN_TTL_MINUTES", 60),
			RetentionMinutes: getEnvAsInt("TRANSCRIPT_RETENTION_MINUTES", 1440),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Retention returns how long exported transcripts stay downloadable.
func (t TranscriptConfig) Retention() time.Duration {
	return time.Duration(t.RetentionMinutes) * time.Minute
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
