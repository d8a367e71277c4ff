package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"checkin-dashboard/utils"

	mysqldriver "github.com/go-sql-driver/mysql"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"

	SessionBackendMemory = "memory"
	SessionBackendRedis  = "redis"
)

type Config struct {
	Port        string
	CORSOrigins []string
	LogLevel    string
	LogFormat   string

	Database DatabaseConfig
	Store    StoreConfig
	Session  SessionConfig
}

// DatabaseConfig says where the checkin collection lives.
type DatabaseConfig struct {
	Driver string
	DSN    string
	Name   string
}

// StoreConfig holds the record store parameters: the API key guarding the
// JSON API, the project the collection belongs to and the storage bucket
// images are written to.
type StoreConfig struct {
	APIKey         string
	ProjectID      string
	StorageBucket  string
	PublicBaseURL  string
	MaxUploadBytes int64
}

type SessionConfig struct {
	Backend       string
	TTL           time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

// Load reads the configuration from the environment. Call godotenv first if a
// .env file should be honoured.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        utils.EnvOrDefault("PORT", "8080"),
		CORSOrigins: parseCorsOrigins(utils.EnvOrDefault("CORS_ORIGINS", "")),
		LogLevel:    strings.ToLower(utils.EnvOrDefault("LOG_LEVEL", "info")),
		LogFormat:   strings.ToLower(utils.EnvOrDefault("LOG_FORMAT", "json")),
		Store: StoreConfig{
			APIKey:         utils.EnvOrDefault("CHECKIN_API_KEY", ""),
			ProjectID:      utils.EnvOrDefault("CHECKIN_PROJECT_ID", "checkin_dashboard"),
			StorageBucket:  utils.EnvOrDefault("CHECKIN_STORAGE_BUCKET", "storage"),
			MaxUploadBytes: int64(utils.EnvInt("MAX_UPLOAD_MB", 10)) << 20,
		},
		Session: SessionConfig{
			Backend:       strings.ToLower(utils.EnvOrDefault("SESSION_BACKEND", SessionBackendMemory)),
			TTL:           utils.EnvDuration("SESSION_TTL", 2*time.Hour),
			RedisAddr:     utils.EnvOrDefault("REDIS_ADDR", "127.0.0.1:6379"),
			RedisPassword: utils.EnvOrDefault("REDIS_PASSWORD", ""),
			RedisDB:       utils.EnvInt("REDIS_DB", 0),
			RedisPrefix:   utils.EnvOrDefault("REDIS_SESSION_PREFIX", "checkin:session:"),
		},
	}
	cfg.Store.PublicBaseURL = strings.TrimRight(
		utils.EnvOrDefault("PUBLIC_BASE_URL", "http://localhost:"+cfg.Port), "/")

	switch cfg.Session.Backend {
	case SessionBackendMemory, SessionBackendRedis:
	default:
		return nil, fmt.Errorf("unknown SESSION_BACKEND %q", cfg.Session.Backend)
	}
	if cfg.Store.MaxUploadBytes <= 0 {
		return nil, fmt.Errorf("MAX_UPLOAD_MB must be positive")
	}

	db, err := resolveDatabase(cfg.Store.ProjectID)
	if err != nil {
		return nil, err
	}
	cfg.Database = db
	return cfg, nil
}

func parseCorsOrigins(raw string) []string {
	if raw == "" {
		return []string{"*"}
	}

	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, part := range parts {
		origin := strings.TrimSpace(part)
		if origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

// resolveDatabase picks the driver and DSN. A MYSQL_URL or DATABASE_URL wins
// over the DB_* pieces; the project id is the default database name.
func resolveDatabase(projectID string) (DatabaseConfig, error) {
	driver := strings.ToLower(utils.EnvOrDefault("DB_DRIVER", DriverMySQL))

	raw := utils.EnvOrDefault("MYSQL_URL", "")
	if raw == "" {
		raw = utils.EnvOrDefault("DATABASE_URL", "")
	}

	if raw != "" {
		switch {
		case strings.HasPrefix(raw, "mysql://"):
			dsn, name, err := mysqlDSNFromURL(raw)
			return DatabaseConfig{Driver: DriverMySQL, DSN: dsn, Name: name}, err
		case strings.HasPrefix(raw, "postgres://"), strings.HasPrefix(raw, "postgresql://"):
			u, err := url.Parse(raw)
			if err != nil {
				return DatabaseConfig{}, err
			}
			return DatabaseConfig{Driver: DriverPostgres, DSN: raw, Name: strings.TrimPrefix(u.Path, "/")}, nil
		}
		return DatabaseConfig{Driver: driver, DSN: raw, Name: utils.EnvOrDefault("DB_NAME", projectID)}, nil
	}

	name := utils.EnvOrDefault("DB_NAME", projectID)
	user := utils.EnvOrDefault("DB_USER", "root")
	pass := utils.EnvOrDefault("DB_PASS", "")
	host := utils.EnvOrDefault("DB_HOST", "127.0.0.1")

	switch driver {
	case DriverMemory:
		return DatabaseConfig{Driver: DriverMemory, Name: name}, nil
	case DriverPostgres:
		port := utils.EnvOrDefault("DB_PORT", "5432")
		sslMode := utils.EnvOrDefault("DB_SSLMODE", "disable")
		dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			host, port, user, pass, name, sslMode)
		return DatabaseConfig{Driver: DriverPostgres, DSN: dsn, Name: name}, nil
	case DriverMySQL:
		port := utils.EnvOrDefault("DB_PORT", "3306")
		return DatabaseConfig{
			Driver: DriverMySQL,
			DSN:    mysqlDSN(user, pass, host+":"+port, name, nil),
			Name:   name,
		}, nil
	}
	return DatabaseConfig{}, fmt.Errorf("unknown DB_DRIVER %q", driver)
}

func mysqlDSNFromURL(raw string) (string, string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", err
	}

	user := u.User.Username()
	pass, _ := u.User.Password()
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "3306"
	}

	dbName := strings.TrimPrefix(u.Path, "/")
	if dbName == "" {
		return "", "", fmt.Errorf("mysql url missing database name")
	}

	params := map[string]string{}
	for k, v := range u.Query() {
		if len(v) > 0 {
			params[k] = v[0]
		}
	}
	return mysqlDSN(user, pass, host+":"+port, dbName, params), dbName, nil
}

func mysqlDSN(user, pass, addr, dbName string, params map[string]string) string {
	c := mysqldriver.NewConfig()
	c.User = user
	c.Passwd = pass
	c.Net = "tcp"
	c.Addr = addr
	c.DBName = dbName
	c.ParseTime = true
	c.Loc = time.Local
	c.Params = map[string]string{"charset": "utf8mb4"}
	for k, v := range params {
		switch k {
		case "parseTime", "loc":
			continue
		}
		c.Params[k] = v
	}
	return c.FormatDSN()
}
