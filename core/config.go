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

type (
	ServerConfig struct {
		Host                      string
		Address                   string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		PasswordResetTimeoutDelta time.Duration
		DisableReqLogs            bool
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          int
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
		NotifyChannel string
		MinReconnect  time.Duration
		MaxReconnect  time.Duration
	}

	RealtimeConfig struct {
		Debounce     time.Duration
		WriteTimeout time.Duration
		PingPeriod   time.Duration
		BufferSize   int
	}

	// OvertimeConfig holds the weekly overtime thresholds (hours) and premium rates.
	OvertimeConfig struct {
		WeeklyThreshold float64
		TierLimit       float64
		Tier1Rate       float64
		Tier2Rate       float64
	}

	Config struct {
		AppName          string
		Env              string // DEV (local; default), TEST, QA, PROD
		Build            string
		Debug            bool
		TestMode         bool
		SecretKey        string
		RollbarToken     string
		SendgridAPIKey   string
		FrontendBaseURL  string
		defaultFromEmail string

		Server   ServerConfig
		Database DatabaseConfig
		Realtime RealtimeConfig
		Overtime OvertimeConfig
	}
)

func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c Config) DefaultFromEmail() mail.Address {
	addr, err := mail.ParseAddress(c.defaultFromEmail)
	if err != nil {
		return mail.Address{Name: c.AppName, Address: "noreply@localhost"}
	}
	return *addr
}

// NewConfig loads the configuration from defaults, an optional `config/.env.<env>` file and the environment.
// Environment variables are prefixed with the upper-cased env name, eg. PROD_DATABASE_HOST.
func NewConfig() *Config {
	conf := viper.New()

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("debug", true)
	conf.SetDefault("testMode", false)
	conf.SetDefault("appName", "Gestion Chantier")
	conf.SetDefault("build", "develop")
	conf.SetDefault("secretKey", "k2#v9-lq)x8n$+3=ch&w1tz(p!m)#*r7(#bd5^$uafe4jz")
	conf.SetDefault("rollbarToken", "")
	conf.SetDefault("sendgridApiKey", "")
	conf.SetDefault("frontendBaseUrl", "http://localhost:3000")
	conf.SetDefault("defaultFromEmail", "Gestion Chantier <noreply@localhost>")
	conf.SetDefault("configDir", "config")

	conf.SetDefault("server.host", "localhost")
	conf.SetDefault("server.address", ":8000")
	conf.SetDefault("server.debugHost", ":4000")
	conf.SetDefault("server.shutdownTimeout", 5*time.Second)
	conf.SetDefault("server.jwtExpirationDelta", 8*time.Hour)
	conf.SetDefault("server.jwtRefreshExpirationDelta", 7*24*time.Hour)
	conf.SetDefault("server.passwordResetTimeoutDelta", 3*24*time.Hour)
	conf.SetDefault("server.disableReqLogs", false)

	conf.SetDefault("database.engine", "postgres")
	conf.SetDefault("database.host", "localhost")
	conf.SetDefault("database.port", 5432)
	conf.SetDefault("database.name", "chantier")
	conf.SetDefault("database.user", "chantier")
	conf.SetDefault("database.password", "chantier")
	conf.SetDefault("database.adminUser", "postgres")
	conf.SetDefault("database.adminPassword", "postgres")
	conf.SetDefault("database.disableTls", true)
	conf.SetDefault("database.notifyChannel", "table_changes")
	conf.SetDefault("database.minReconnect", 10*time.Second)
	conf.SetDefault("database.maxReconnect", time.Minute)

	conf.SetDefault("realtime.debounce", 150*time.Millisecond)
	conf.SetDefault("realtime.writeTimeout", 10*time.Second)
	conf.SetDefault("realtime.pingPeriod", 30*time.Second)
	conf.SetDefault("realtime.bufferSize", 64)

	conf.SetDefault("overtime.weeklyThreshold", 35.0)
	conf.SetDefault("overtime.tierLimit", 43.0)
	conf.SetDefault("overtime.tier1Rate", 0.25)
	conf.SetDefault("overtime.tier2Rate", 0.50)

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		conf.SetDefault("testMode", true)
	case "QA", "PROD":
		conf.SetDefault("debug", false)
	}
	conf.SetEnvPrefix(env)
	conf.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	conf.AutomaticEnv()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(conf.GetString("configDir"), ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}

	return &Config{
		AppName:          conf.GetString("appName"),
		Env:              env,
		Build:            conf.GetString("build"),
		Debug:            conf.GetBool("debug"),
		TestMode:         conf.GetBool("testMode"),
		SecretKey:        conf.GetString("secretKey"),
		RollbarToken:     conf.GetString("rollbarToken"),
		SendgridAPIKey:   conf.GetString("sendgridApiKey"),
		FrontendBaseURL:  conf.GetString("frontendBaseUrl"),
		defaultFromEmail: conf.GetString("defaultFromEmail"),
		Server: ServerConfig{
			Host:                      conf.GetString("server.host"),
			Address:                   conf.GetString("server.address"),
			DebugHost:                 conf.GetString("server.debugHost"),
			ShutdownTimeout:           conf.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta:        conf.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: conf.GetDuration("server.jwtRefreshExpirationDelta"),
			PasswordResetTimeoutDelta: conf.GetDuration("server.passwordResetTimeoutDelta"),
			DisableReqLogs:            conf.GetBool("server.disableReqLogs"),
		},
		Database: DatabaseConfig{
			Engine:        conf.GetString("database.engine"),
			Host:          conf.GetString("database.host"),
			Port:          conf.GetInt("database.port"),
			Name:          conf.GetString("database.name"),
			User:          conf.GetString("database.user"),
			Password:      conf.GetString("database.password"),
			AdminUser:     conf.GetString("database.adminUser"),
			AdminPassword: conf.GetString("database.adminPassword"),
			DisableTLS:    conf.GetBool("database.disableTls"),
			NotifyChannel: conf.GetString("database.notifyChannel"),
			MinReconnect:  conf.GetDuration("database.minReconnect"),
			MaxReconnect:  conf.GetDuration("database.maxReconnect"),
		},
		Realtime: RealtimeConfig{
			Debounce:     conf.GetDuration("realtime.debounce"),
			WriteTimeout: conf.GetDuration("realtime.writeTimeout"),
			PingPeriod:   conf.GetDuration("realtime.pingPeriod"),
			BufferSize:   conf.GetInt("realtime.bufferSize"),
		},
		Overtime: OvertimeConfig{
			WeeklyThreshold: conf.GetFloat64("overtime.weeklyThreshold"),
			TierLimit:       conf.GetFloat64("overtime.tierLimit"),
			Tier1Rate:       conf.GetFloat64("overtime.tier1Rate"),
			Tier2Rate:       conf.GetFloat64("overtime.tier2Rate"),
		},
	}
}

// NewTestConfig returns the configuration used by tests: TEST env, debug off.
func NewTestConfig() *Config {
	conf := NewConfig()
	conf.Env = "TEST"
	conf.TestMode = true
	conf.Debug = false
	conf.SecretKey = "test-secret"
	return conf
}
