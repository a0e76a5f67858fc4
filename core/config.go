package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Data sources
const (
	DataSourceRemote   = "remote"   // hosted REST + auth endpoints
	DataSourcePostgres = "postgres" // direct connection to the hosted database
	DataSourceDummy    = "dummy"    // in-memory, for local dev & tests
)

// Cache backends
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

type (
	Config struct {
		Debug            bool
		TestMode         bool
		Env              string
		Build            string
		AppName          string
		SecretKey        string
		DataSource       string
		RollbarToken     string
		SendgridAPIKey   string
		defaultFromEmail string

		Server   ServerConfig
		Remote   RemoteConfig
		Database DatabaseConfig
		Cache    CacheConfig
		Dummy    DummyConfig
	}

	ServerConfig struct {
		Address            string
		Host               string
		DebugHost          string
		ShutdownTimeout    time.Duration
		JWTExpirationDelta time.Duration
		DisableReqLogs     bool
	}

	// RemoteConfig points at the hosted backend-as-a-service.
	RemoteConfig struct {
		URL           string
		APIKey        string
		Timeout       time.Duration
		RefreshMargin time.Duration // refresh access tokens this long before they expire
	}

	DatabaseConfig struct {
		Engine     string // database/sql driver name: "postgres" (lib/pq) or "pgx"
		Host       string
		Port       int
		Name       string
		User       string
		Password   string
		DisableTLS bool
	}

	CacheConfig struct {
		Backend       string
		TTL           time.Duration
		RedisAddr     string
		RedisPassword string
	}

	// DummyConfig is the staff account seeded into the in-memory data source.
	DummyConfig struct {
		AdminEmail    string
		AdminPassword string
	}
)

// NewConfig loads the configuration from the environment.
// ENV selects the environment (DEV (default), TEST, QA, PROD) which is also used as the variables prefix,
// e.g. DEV_DEBUG=false. A `config/.env.<env>` file is loaded first if it exists.
func NewConfig() *Config {
	v := viper.New()

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	setDefaults(v, env)
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	if root, ok := projectRoot(); ok {
		dotEnvPath := filepath.Join(root, "config", ".env."+strings.ToLower(env))
		if _, err := os.Stat(dotEnvPath); err == nil {
			if err := godotenv.Load(dotEnvPath); err != nil {
				log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
			}
		} else if !os.IsNotExist(err) {
			log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
		}
	}
	v.AutomaticEnv()

	return &Config{
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		Env:              env,
		Build:            v.GetString("build"),
		AppName:          v.GetString("appName"),
		SecretKey:        v.GetString("secretKey"),
		DataSource:       strings.ToLower(v.GetString("dataSource")),
		RollbarToken:     v.GetString("rollbarToken"),
		SendgridAPIKey:   v.GetString("sendgridApiKey"),
		defaultFromEmail: v.GetString("defaultFromEmail"),
		Server: ServerConfig{
			Address:            v.GetString("serverAddress"),
			Host:               v.GetString("serverHost"),
			DebugHost:          v.GetString("serverDebugHost"),
			ShutdownTimeout:    v.GetDuration("serverShutdownTimeout"),
			JWTExpirationDelta: v.GetDuration("jwtExpirationDelta"),
			DisableReqLogs:     v.GetBool("disableReqLogs"),
		},
		Remote: RemoteConfig{
			URL:           strings.TrimRight(v.GetString("remoteUrl"), "/"),
			APIKey:        v.GetString("remoteApiKey"),
			Timeout:       v.GetDuration("remoteTimeout"),
			RefreshMargin: v.GetDuration("remoteRefreshMargin"),
		},
		Database: DatabaseConfig{
			Engine:     v.GetString("dbEngine"),
			Host:       v.GetString("dbHost"),
			Port:       v.GetInt("dbPort"),
			Name:       v.GetString("dbName"),
			User:       v.GetString("dbUser"),
			Password:   v.GetString("dbPassword"),
			DisableTLS: v.GetBool("dbDisableTls"),
		},
		Cache: CacheConfig{
			Backend:       strings.ToLower(v.GetString("cacheBackend")),
			TTL:           v.GetDuration("cacheTtl"),
			RedisAddr:     v.GetString("redisAddr"),
			RedisPassword: v.GetString("redisPassword"),
		},
		Dummy: DummyConfig{
			AdminEmail:    strings.ToLower(v.GetString("dummyAdminEmail")),
			AdminPassword: v.GetString("dummyAdminPassword"),
		},
	}
}

func setDefaults(v *viper.Viper, env string) {
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", env == "DEV" || env == "TEST")
	v.SetDefault("testMode", env == "TEST")
	v.SetDefault("build", "develop")
	v.SetDefault("appName", "CoachDesk")
	v.SetDefault("secretKey", "kx7-c0ach(desk)+9z&u#h2!q@b$4w=ml8e%r")
	v.SetDefault("dataSource", DataSourceDummy)
	v.SetDefault("defaultFromEmail", "noreply@localhost")

	v.SetDefault("serverAddress", ":8000")
	v.SetDefault("serverHost", "localhost")
	v.SetDefault("serverDebugHost", ":4000")
	v.SetDefault("serverShutdownTimeout", 5*time.Second)
	v.SetDefault("jwtExpirationDelta", 12*time.Hour)
	v.SetDefault("disableReqLogs", false)

	v.SetDefault("remoteUrl", "http://localhost:54321")
	v.SetDefault("remoteApiKey", "")
	v.SetDefault("remoteTimeout", 10*time.Second)
	v.SetDefault("remoteRefreshMargin", time.Minute)

	v.SetDefault("dbEngine", "postgres")
	v.SetDefault("dbHost", "localhost")
	v.SetDefault("dbPort", 5432)
	v.SetDefault("dbName", "postgres")
	v.SetDefault("dbUser", "postgres")
	v.SetDefault("dbPassword", "postgres")
	v.SetDefault("dbDisableTls", env == "DEV" || env == "TEST")

	v.SetDefault("cacheBackend", CacheMemory)
	v.SetDefault("cacheTtl", 30*time.Second)
	v.SetDefault("redisAddr", "localhost:6379")
	v.SetDefault("redisPassword", "")

	v.SetDefault("dummyAdminEmail", "admin@coachdesk.local")
	v.SetDefault("dummyAdminPassword", "coachdesk")
}

// DefaultFromEmail parses the configured sender, falling back to the raw value.
func (c *Config) DefaultFromEmail() mail.Address {
	if addr, err := mail.ParseAddress(c.defaultFromEmail); err == nil {
		if addr.Name == "" {
			addr.Name = c.AppName
		}
		return *addr
	}
	return mail.Address{Name: c.AppName, Address: c.defaultFromEmail}
}

func (db DatabaseConfig) Address() string {
	return net.JoinHostPort(db.Host, strconv.Itoa(db.Port))
}

// projectRoot walks up from the working directory until it finds the module's go.mod.
// go test changes the working directory to the package being tested, hence the walk.
func projectRoot() (string, bool) {
	wd, err := os.Getwd()
	if err != nil {
		return "", false
	}
	for dir := wd; ; {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}
