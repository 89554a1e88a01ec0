package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for our application
type Config struct {
	Port                      string
	Origin                    string
	Environment               string
	LogLevel                  string
	JWTSecret                 string
	JWTRefreshSecret          string
	Database                  DatabaseConfig
	Redis                     RedisConfig
	Booking                   BookingConfig
	Payment                   PaymentConfig
	Storage                   StorageConfig
	Registration              RegistrationConfig
	Mailer                    MailerConfig
	JWTExpirationMinutes      int
	JWTRefreshExpirationHours int
}

// DatabaseConfig holds database connection details
type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     string
	Username string
	Password string
	Name     string
	DSN      string
}

// RedisConfig holds the booking cache connection details
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// BookingConfig controls the patient self-service booking workflow
type BookingConfig struct {
	CacheTTL time.Duration
	// FeeMinor is the booking fee in the currency's minor unit.
	FeeMinor int64
}

// PaymentConfig holds payment gateway details
type PaymentConfig struct {
	GatewayURL  string
	MerchantID  string
	APIKey      string
	RedirectURL string
	CallbackURL string
}

// StorageConfig selects and configures the file storage backend
type StorageConfig struct {
	Backend        string
	UploadsRoot    string
	UploadsURL     string
	MaxUploadBytes int64
	S3Bucket       string
	AWSRegion      string
	S3PublicURL    string
}

// RegistrationConfig controls how newly registered patients are stamped
type RegistrationConfig struct {
	PatientGroupID string
	AtlasIDPrefix  string
}

// MailerConfig holds email service configuration
type MailerConfig struct {
	Provider       string
	DefaultFrom    string
	FromName       string
	SendGridAPIKey string
	SMTPHost       string
	SMTPPort       int
	SMTPUser       string
	SMTPPass       string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	dbConfig := DatabaseConfig{
		Driver:   strings.ToLower(getEnv("DB_DRIVER", "mysql")),
		Host:     getEnv("DB_HOST", "localhost"),
		Username: getEnv("DB_USERNAME", "root"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "clinic"),
	}

	switch dbConfig.Driver {
	case "mysql":
		dbConfig.Port = getEnv("DB_PORT", "3306")
		dbConfig.DSN = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			dbConfig.Username, dbConfig.Password, dbConfig.Host, dbConfig.Port, dbConfig.Name)
	case "postgres":
		dbConfig.Port = getEnv("DB_PORT", "5432")
		dbConfig.DSN = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			dbConfig.Host, dbConfig.Port, dbConfig.Username, dbConfig.Password, dbConfig.Name,
			getEnv("DB_SSLMODE", "disable"))
	default:
		return nil, fmt.Errorf("invalid DB_DRIVER %q: expected mysql or postgres", dbConfig.Driver)
	}

	redisDB, err := getEnvAsInt("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}

	cacheTTL, err := getEnvAsDuration("BOOKING_CACHE_TTL", 900*time.Second)
	if err != nil {
		return nil, err
	}

	feeMinor, err := getEnvAsInt("BOOKING_FEE_MINOR", 50000)
	if err != nil {
		return nil, err
	}

	maxUpload, err := getEnvAsInt("MAX_UPLOAD_BYTES", 10<<20)
	if err != nil {
		return nil, err
	}

	smtpPort, err := getEnvAsInt("SMTP_PORT", 587)
	if err != nil {
		return nil, err
	}

	jwtExpMinutes, err := getEnvAsInt("JWT_EXPIRATION_MINUTES", 15)
	if err != nil {
		return nil, err
	}

	jwtRefreshExpHours, err := getEnvAsInt("JWT_REFRESH_EXPIRATION_HOURS", 168) // 7 days
	if err != nil {
		return nil, err
	}

	storageConfig := StorageConfig{
		Backend:        strings.ToLower(getEnv("STORAGE_BACKEND", "local")),
		UploadsRoot:    getEnv("UPLOADS_ROOT", "uploads"),
		UploadsURL:     getEnv("UPLOADS_URL", "/uploads"),
		MaxUploadBytes: int64(maxUpload),
		S3Bucket:       getEnv("S3_BUCKET", ""),
		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		S3PublicURL:    getEnv("S3_PUBLIC_URL", ""),
	}
	if storageConfig.Backend == "s3" && storageConfig.S3Bucket == "" {
		return nil, fmt.Errorf("S3_BUCKET is required when STORAGE_BACKEND=s3")
	}

	return &Config{
		Port:             getEnv("PORT", "3001"),
		Origin:           getEnv("ORIGIN", "http://localhost:4200"),
		Environment:      getEnv("NODE_ENV", "development"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		JWTSecret:        getEnv("JWT_SECRET", "default_jwt_secret"),
		JWTRefreshSecret: getEnv("JWT_REFRESH_SECRET", "default_refresh_secret"),
		Database:         dbConfig,
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Booking: BookingConfig{
			CacheTTL: cacheTTL,
			FeeMinor: int64(feeMinor),
		},
		Payment: PaymentConfig{
			GatewayURL:  getEnv("PAYMENT_GATEWAY_URL", "http://localhost:8090/pg/v1/pay"),
			MerchantID:  getEnv("PAYMENT_MERCHANT_ID", ""),
			APIKey:      getEnv("PAYMENT_API_KEY", ""),
			RedirectURL: getEnv("PAYMENT_REDIRECT_URL", ""),
			CallbackURL: getEnv("PAYMENT_CALLBACK_URL", ""),
		},
		Storage: storageConfig,
		Registration: RegistrationConfig{
			PatientGroupID: getEnv("PATIENT_GROUP_ID", ""),
			AtlasIDPrefix:  getEnv("PREFIX_ATLAS_ID", "ATL"),
		},
		Mailer: MailerConfig{
			Provider:       strings.ToLower(getEnv("MAIL_PROVIDER", "stub")),
			DefaultFrom:    getEnv("MAIL_FROM", "no-reply@clinic.local"),
			FromName:       getEnv("MAIL_FROM_NAME", "Clinic"),
			SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),
			SMTPHost:       getEnv("SMTP_HOST", ""),
			SMTPPort:       smtpPort,
			SMTPUser:       getEnv("SMTP_USER", ""),
			SMTPPass:       getEnv("SMTP_PASS", ""),
		},
		JWTExpirationMinutes:      jwtExpMinutes,
		JWTRefreshExpirationHours: jwtRefreshExpHours,
	}, nil
}

// IsDevelopment reports whether the server runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// Helper function to get environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) (int, error) {
	raw, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(raw) == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return value, nil
}

// getEnvAsDuration accepts Go duration strings ("15m") or a bare number of seconds.
func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(raw) == "" {
		return defaultValue, nil
	}
	raw = strings.TrimSpace(raw)
	if seconds, err := strconv.Atoi(raw); err == nil {
		return time.Duration(seconds) * time.Second, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return value, nil
}
