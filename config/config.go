// server/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// --- Sub-structs mirroring config.yaml ---

type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowedOrigins"`
	MaxBodyBytes   int64    `mapstructure:"maxBodyBytes"`
	// TrustedProxies lists the proxy CIDRs whose X-Forwarded-For is honoured.
	// Empty trusts none, so the client IP is always the socket peer.
	TrustedProxies []string `mapstructure:"trustedProxies"`
}

type SupabaseConfig struct {
	URL         string `mapstructure:"url"`
	ServiceRole string `mapstructure:"serviceRole"`
	// JWTSecret enables local verification of access tokens. When empty every
	// bearer token is resolved through the Supabase Auth API.
	JWTSecret string `mapstructure:"jwtSecret"`
}

// Configured reports whether the admin routes can reach Supabase Auth.
func (s SupabaseConfig) Configured() bool {
	return s.URL != "" && s.ServiceRole != ""
}

type PharmacyConfig struct {
	APIKey string `mapstructure:"apiKey"`
}

type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"` // postgres | mongo | memory
	URL          string `mapstructure:"url"`
	MaxOpenConns int    `mapstructure:"maxOpenConns"`
	MaxIdleConns int    `mapstructure:"maxIdleConns"`
	AutoMigrate  bool   `mapstructure:"autoMigrate"`
}

type MongoConfig struct {
	URI    string `mapstructure:"uri"`
	DBName string `mapstructure:"dbName"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type RateLimitConfig struct {
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

type S3Config struct {
	Bucket           string `mapstructure:"bucket"`
	Region           string `mapstructure:"region"`
	AccessKeyID      string `mapstructure:"accessKeyID"`
	SecretAccessKey  string `mapstructure:"secretAccessKey"`
	CloudFrontDomain string `mapstructure:"cloudFrontDomain"`
}

type HoldConfig struct {
	Reserve  time.Duration `mapstructure:"reserve"`
	Extend   time.Duration `mapstructure:"extend"`
	Timezone string        `mapstructure:"timezone"`
}

type AdminConfig struct {
	Roles []string `mapstructure:"roles"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type DemoConfig struct {
	OwnerID string `mapstructure:"ownerID"`
}

// --- Root Config ---

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Supabase  SupabaseConfig  `mapstructure:"supabase"`
	Pharmacy  PharmacyConfig  `mapstructure:"pharmacy"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Mongo     MongoConfig     `mapstructure:"mongo"`
	Redis     RedisConfig     `mapstructure:"redis"`
	RateLimit RateLimitConfig `mapstructure:"rateLimit"`
	S3        S3Config        `mapstructure:"s3"`
	Hold      HoldConfig      `mapstructure:"hold"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Log       LogConfig       `mapstructure:"log"`
	Demo      DemoConfig      `mapstructure:"demo"`
}

// LoadConfig reads config.yaml from path and overrides it with environment variables.
// A missing file is not an error; defaults plus environment are used instead.
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.allowedOrigins", []string{"*"})
	v.SetDefault("server.maxBodyBytes", 1<<20)
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.maxOpenConns", 10)
	v.SetDefault("database.maxIdleConns", 5)
	v.SetDefault("mongo.dbName", "mediradar")
	v.SetDefault("rateLimit.requests", 30)
	v.SetDefault("rateLimit.window", time.Minute)
	v.SetDefault("hold.reserve", 60*time.Minute)
	v.SetDefault("hold.extend", 15*time.Minute)
	v.SetDefault("hold.timezone", "Local")
	v.SetDefault("admin.roles", []string{"admin"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.AutomaticEnv()

	v.BindEnv("server.port", "SERVER_PORT")
	v.BindEnv("supabase.url", "SUPABASE_URL")
	v.BindEnv("supabase.serviceRole", "SUPABASE_SERVICE_ROLE")
	v.BindEnv("supabase.jwtSecret", "SUPABASE_JWT_SECRET")
	v.BindEnv("pharmacy.apiKey", "PHARMACY_API_KEY")
	v.BindEnv("database.driver", "DATABASE_DRIVER")
	v.BindEnv("database.url", "DATABASE_URL")
	v.BindEnv("database.autoMigrate", "DATABASE_AUTO_MIGRATE")
	v.BindEnv("mongo.uri", "MONGO_URI")
	v.BindEnv("mongo.dbName", "MONGO_DBNAME")
	v.BindEnv("redis.addr", "REDIS_ADDR")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("s3.bucket", "S3_BUCKET")
	v.BindEnv("s3.region", "S3_REGION")
	v.BindEnv("s3.accessKeyID", "S3_ACCESS_KEY_ID")
	v.BindEnv("s3.secretAccessKey", "S3_SECRET_ACCESS_KEY")
	v.BindEnv("s3.cloudFrontDomain", "S3_CLOUDFRONT_DOMAIN")
	v.BindEnv("hold.timezone", "HOLD_TIMEZONE")
	v.BindEnv("log.level", "LOG_LEVEL")
	v.BindEnv("log.format", "LOG_FORMAT")
	v.BindEnv("demo.ownerID", "DEMO_OWNER_ID")

	// Read config.yaml; only a missing file is tolerated.
	err = v.ReadInConfig()
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return
		}
		err = nil
	}

	err = v.Unmarshal(&config)
	if err != nil {
		return
	}

	// ADMIN_ROLES=admin,moderator
	if raw := v.GetString("ADMIN_ROLES"); raw != "" {
		config.Admin.Roles = strings.Split(raw, ",")
	}
	// TRUSTED_PROXIES=10.0.0.0/8,172.16.0.1
	if raw := v.GetString("TRUSTED_PROXIES"); raw != "" {
		config.Server.TrustedProxies = strings.Split(raw, ",")
	}

	_, err = config.Hold.Location()
	return
}

// Location resolves the time zone used for calendar-day hold rules.
// An empty or "Local" zone is the process zone; an unknown zone is an error.
func (h HoldConfig) Location() (*time.Location, error) {
	if h.Timezone == "" || h.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(h.Timezone)
	if err != nil {
		return nil, fmt.Errorf("hold.timezone %q: %w", h.Timezone, err)
	}
	return loc, nil
}
