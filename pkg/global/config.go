package global

import "time"

// Config is the process configuration, read once at startup.
type Config struct {
	Port            string
	Env             string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	PublicBaseURL   string

	MongoURI          string
	MongoDatabase     string
	MongoTransactions bool

	RedisAddress  string
	RedisPassword string

	JWTSecret        string
	JWTTTL           time.Duration
	AuthCookieName   string
	AuthCookieSecure bool
	AuthRateRPS      int
	AuthRateBurst    int

	SettingsCacheTTL time.Duration
	ProductCacheTTL  time.Duration

	BootstrapToken       string
	AdminDefaultEmail    string
	AdminDefaultPassword string
	AdminDefaultName     string

	S3Bucket      string
	S3Region      string
	S3Endpoint    string
	S3Prefix      string
	MediaURLTTL   time.Duration
	MediaMaxBytes int64

	AIEndpoint   string
	AIAPIKey     string
	AIDeployment string
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// LoadConfig reads the configuration from the environment.
func LoadConfig() Config {
	return Config{
		Port:            GetEnvOrDefault("PORT", "8000"),
		Env:             GetEnvOrDefault("ENV", "development"),
		RequestTimeout:  GetEnvDuration("REQUEST_TIMEOUT", 15*time.Second),
		ShutdownTimeout: GetEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		CORSOrigins:     GetEnvList("CORS_ORIGINS", []string{"http://localhost:3000"}),
		PublicBaseURL:   GetEnvOrDefault("PUBLIC_BASE_URL", "http://localhost:3000"),

		MongoURI:          GetMongoURI(),
		MongoDatabase:     GetDatabaseName(),
		MongoTransactions: GetEnvBool("MONGODB_TRANSACTIONS", true),

		RedisAddress:  GetEnvOrDefault("REDIS_ADDRESS", "localhost:6379"),
		RedisPassword: GetEnvOrDefault("REDIS_PASSWORD", ""),

		JWTSecret:        GetEnvOrDefault("JWT_SECRET", ""),
		JWTTTL:           GetEnvDuration("JWT_TTL", 7*24*time.Hour),
		AuthCookieName:   GetEnvOrDefault("AUTH_COOKIE_NAME", "bd_token"),
		AuthCookieSecure: GetEnvBool("AUTH_COOKIE_SECURE", false),
		AuthRateRPS:      GetEnvInt("AUTH_RATE_RPS", 5),
		AuthRateBurst:    GetEnvInt("AUTH_RATE_BURST", 10),

		SettingsCacheTTL: GetEnvDuration("SETTINGS_CACHE_TTL", 5*time.Minute),
		ProductCacheTTL:  GetEnvDuration("PRODUCT_CACHE_TTL", 10*time.Minute),

		BootstrapToken:       GetEnvOrDefault("ADMIN_BOOTSTRAP_TOKEN", ""),
		AdminDefaultEmail:    GetEnvOrDefault("ADMIN_DEFAULT_EMAIL", ""),
		AdminDefaultPassword: GetEnvOrDefault("ADMIN_DEFAULT_PASSWORD", ""),
		AdminDefaultName:     GetEnvOrDefault("ADMIN_DEFAULT_NAME", "Administrator"),

		S3Bucket:      GetEnvOrDefault("S3_BUCKET", ""),
		S3Region:      GetEnvOrDefault("S3_REGION", "us-east-1"),
		S3Endpoint:    GetEnvOrDefault("S3_ENDPOINT", ""),
		S3Prefix:      GetEnvOrDefault("S3_PREFIX", "media/"),
		MediaURLTTL:   GetEnvDuration("MEDIA_URL_TTL", 15*time.Minute),
		MediaMaxBytes: GetEnvInt64("MEDIA_MAX_BYTES", 5*1024*1024),

		AIEndpoint:   GetEnvOrDefault("AZURE_OPENAI_ENDPOINT", ""),
		AIAPIKey:     GetEnvOrDefault("AZURE_OPENAI_API_KEY", ""),
		AIDeployment: GetEnvOrDefault("AZURE_OPENAI_DEPLOYMENT_NAME", "gpt-35-turbo"),
	}
}
