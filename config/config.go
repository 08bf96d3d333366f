package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type AppSettings struct {
	Env             string        `mapstructure:"env"`
	Port            string        `mapstructure:"port"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	StaticDir       string        `mapstructure:"static_dir"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	SecureCookies   bool          `mapstructure:"secure_cookies"`
	// TrustedProxies are addresses or CIDR ranges whose forwarding headers are honoured.
	TrustedProxies []string `mapstructure:"trusted_proxies"`
}

type MongoSettings struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type RedisSettings struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type JWTSettings struct {
	AccessSecret  string        `mapstructure:"access_secret"`
	RefreshSecret string        `mapstructure:"refresh_secret"`
	AccessTTL     time.Duration `mapstructure:"access_ttl"`
	RefreshTTL    time.Duration `mapstructure:"refresh_ttl"`
}

type OAuthSettings struct {
	GoogleClientID     string        `mapstructure:"google_client_id"`
	GoogleClientSecret string        `mapstructure:"google_client_secret"`
	CallbackURL        string        `mapstructure:"callback_url"`
	SuccessRedirect    string        `mapstructure:"success_redirect"`
	SessionTTL         time.Duration `mapstructure:"session_ttl"`
}

type MailSettings struct {
	APIKeyPublic  string `mapstructure:"api_key_public"`
	APIKeyPrivate string `mapstructure:"api_key_private"`
	SenderEmail   string `mapstructure:"sender_email"`
	SenderName    string `mapstructure:"sender_name"`
	VerifyBaseURL string `mapstructure:"verify_base_url"`
}

type CloudinarySettings struct {
	URL    string `mapstructure:"url"`
	Folder string `mapstructure:"folder"`
}

type S3Settings struct {
	Region     string `mapstructure:"region"`
	Bucket     string `mapstructure:"bucket"`
	PublicRead bool   `mapstructure:"public_read"`
}

type KafkaSettings struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type RateLimitSettings struct {
	Window        time.Duration `mapstructure:"window"`
	LoginLimit    int           `mapstructure:"login_limit"`
	RegisterLimit int           `mapstructure:"register_limit"`
}

type CacheSettings struct {
	ListingTTL time.Duration `mapstructure:"listing_ttl"`
}

// Config is the whole runtime configuration of the API server.
type Config struct {
	App        AppSettings        `mapstructure:"app"`
	Mongo      MongoSettings      `mapstructure:"mongo"`
	Redis      RedisSettings      `mapstructure:"redis"`
	JWT        JWTSettings        `mapstructure:"jwt"`
	OAuth      OAuthSettings      `mapstructure:"oauth"`
	Mail       MailSettings       `mapstructure:"mail"`
	Cloudinary CloudinarySettings `mapstructure:"cloudinary"`
	S3         S3Settings         `mapstructure:"s3"`
	Kafka      KafkaSettings      `mapstructure:"kafka"`
	RateLimit  RateLimitSettings  `mapstructure:"ratelimit"`
	Cache      CacheSettings      `mapstructure:"cache"`
}

// Load reads an optional .env file and then resolves every key from the
// environment, e.g. mongo.uri <- MONGO_URI, jwt.access_secret <- JWT_ACCESS_SECRET.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Mongo.URI == "":
		return errors.New("MONGO_URI not set in environment")
	case c.JWT.AccessSecret == "" || c.JWT.RefreshSecret == "":
		return errors.New("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must be set")
	}
	return nil
}

// GoogleEnabled reports whether Google sign-in is configured.
func (c *Config) GoogleEnabled() bool {
	return c.OAuth.GoogleClientID != "" && c.OAuth.GoogleClientSecret != ""
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8000")
	v.SetDefault("app.cors_origins", []string{"http://localhost:5173"})
	v.SetDefault("app.static_dir", "public")
	v.SetDefault("app.shutdown_timeout", "10s")
	v.SetDefault("app.secure_cookies", true)
	v.SetDefault("app.trusted_proxies", []string{})

	v.SetDefault("mongo.uri", "")
	v.SetDefault("mongo.database", "roomin")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("jwt.access_secret", "")
	v.SetDefault("jwt.refresh_secret", "")
	v.SetDefault("jwt.access_ttl", "15m")
	v.SetDefault("jwt.refresh_ttl", "240h")

	v.SetDefault("oauth.google_client_id", "")
	v.SetDefault("oauth.google_client_secret", "")
	v.SetDefault("oauth.callback_url", "http://localhost:8000/v1/server/auth/google/callback")
	v.SetDefault("oauth.success_redirect", "/")
	v.SetDefault("oauth.session_ttl", "24h")

	v.SetDefault("mail.api_key_public", "")
	v.SetDefault("mail.api_key_private", "")
	v.SetDefault("mail.sender_email", "no-reply@roomin.app")
	v.SetDefault("mail.sender_name", "Roomin")
	v.SetDefault("mail.verify_base_url", "http://localhost:8000/v1/server/verify")

	v.SetDefault("cloudinary.url", "")
	v.SetDefault("cloudinary.folder", "roomin")

	v.SetDefault("s3.region", "ap-south-1")
	v.SetDefault("s3.bucket", "")
	v.SetDefault("s3.public_read", true)

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "roomin.events")

	v.SetDefault("ratelimit.window", "1m")
	v.SetDefault("ratelimit.login_limit", 5)
	v.SetDefault("ratelimit.register_limit", 3)

	v.SetDefault("cache.listing_ttl", "10m")
}
