package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
)

// Config holds all configuration for our application
type Config struct {
	Port                      string
	Origin                    string
	Environment               string
	JWTSecret                 string
	JWTRefreshSecret          string
	Database                  DatabaseConfig
	Redis                     RedisConfig
	Mailer                    MailerConfig
	Storage                   StorageConfig
	Security                  SecurityConfig
	Log                       LogConfig
	JWTExpirationMinutes      int
	JWTRefreshExpirationHours int
	PasswordResetTokenExpiry  int
	BookingLeadMinutes        int
	AppURL                    string
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

// RedisConfig holds the redis connection used for short-lived codes.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// MailerConfig holds SMTP settings for outgoing notifications.
type MailerConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	FromName string
	From     string
}

// StorageConfig holds the Cloudinary account used for doctor documents.
type StorageConfig struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
	BaseURL   string
}

// SecurityConfig holds the keys used for LGPD field encryption.
type SecurityConfig struct {
	EncryptionKey []byte
	HashKey       []byte
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string
	Format string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	dbConfig := DatabaseConfig{
		Driver:   getEnv("DB_DRIVER", "mysql"),
		Host:     getEnv("DB_HOST", "localhost"),
		Username: getEnv("DB_USERNAME", "root"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "medbooking"),
	}

	switch dbConfig.Driver {
	case "mysql":
		dbConfig.Port = getEnv("DB_PORT", "3306")
		dbConfig.DSN = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			dbConfig.Username, dbConfig.Password, dbConfig.Host, dbConfig.Port, dbConfig.Name)
	case "postgres":
		dbConfig.Port = getEnv("DB_PORT", "5432")
		dbConfig.DSN = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			dbConfig.Host, dbConfig.Port, dbConfig.Username, dbConfig.Password, dbConfig.Name,
			getEnv("DB_SSLMODE", "disable"))
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", dbConfig.Driver)
	}
	if dsn := os.Getenv("DB_DSN"); dsn != "" {
		dbConfig.DSN = dsn
	}

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	smtpPort, err := strconv.Atoi(getEnv("SMTP_PORT", "587"))
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP_PORT: %w", err)
	}

	mailerConfig := MailerConfig{
		Host:     getEnv("SMTP_HOST", "smtp.gmail.com"),
		Port:     smtpPort,
		Username: getEnv("SMTP_USERNAME", ""),
		Password: getEnv("SMTP_PASSWORD", ""),
		FromName: getEnv("SMTP_FROM_NAME", "Medical Booking"),
		From:     getEnv("SMTP_FROM", "no-reply@localhost"),
	}

	storageConfig := StorageConfig{
		CloudName: getEnv("CLOUDINARY_CLOUD_NAME", ""),
		APIKey:    getEnv("CLOUDINARY_API_KEY", ""),
		APISecret: getEnv("CLOUDINARY_API_SECRET", ""),
		Folder:    getEnv("CLOUDINARY_FOLDER", "doctor-documents"),
		BaseURL:   getEnv("CLOUDINARY_BASE_URL", "https://api.cloudinary.com/v1_1"),
	}

	encKey, err := decodeKey("PII_ENCRYPTION_KEY")
	if err != nil {
		return nil, err
	}
	hashKey, err := decodeKey("PII_HASH_KEY")
	if err != nil {
		return nil, err
	}

	jwtExpMinutes, err := strconv.Atoi(getEnv("JWT_EXPIRATION_MINUTES", "15"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_EXPIRATION_MINUTES: %w", err)
	}

	jwtRefreshExpHours, err := strconv.Atoi(getEnv("JWT_REFRESH_EXPIRATION_HOURS", "168")) // 7 days
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_REFRESH_EXPIRATION_HOURS: %w", err)
	}

	passwordResetTokenExpiry, err := strconv.Atoi(getEnv("PASSWORD_RESET_TOKEN_EXPIRY_MINUTES", "30"))
	if err != nil {
		return nil, fmt.Errorf("invalid PASSWORD_RESET_TOKEN_EXPIRY_MINUTES: %w", err)
	}

	bookingLead, err := strconv.Atoi(getEnv("BOOKING_LEAD_MINUTES", "60"))
	if err != nil {
		return nil, fmt.Errorf("invalid BOOKING_LEAD_MINUTES: %w", err)
	}

	return &Config{
		Port:             getEnv("PORT", "3001"),
		Origin:           getEnv("ORIGIN", "http://localhost:5173"),
		Environment:      getEnv("APP_ENV", "development"),
		JWTSecret:        getEnv("JWT_SECRET", "default_jwt_secret"),
		JWTRefreshSecret: getEnv("JWT_REFRESH_SECRET", "default_refresh_secret"),
		Database:         dbConfig,
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Mailer:  mailerConfig,
		Storage: storageConfig,
		Security: SecurityConfig{
			EncryptionKey: encKey,
			HashKey:       hashKey,
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		JWTExpirationMinutes:      jwtExpMinutes,
		JWTRefreshExpirationHours: jwtRefreshExpHours,
		PasswordResetTokenExpiry:  passwordResetTokenExpiry,
		BookingLeadMinutes:        bookingLead,
		AppURL:                    getEnv("APP_URL", "http://localhost:3001"),
	}, nil
}

// IsProduction reports whether cookies and logs should use production settings.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// decodeKey reads a hex encoded 32 byte key. An unset key falls back to a
// zero key so development setups work, which LoadConfig refuses in production.
func decodeKey(name string) ([]byte, error) {
	raw := os.Getenv(name)
	if raw == "" {
		if getEnv("APP_ENV", "development") == "production" {
			return nil, fmt.Errorf("%s is required in production", name)
		}
		return make([]byte, 32), nil
	}
	key, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", name, err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("invalid %s: want 32 bytes, got %d", name, len(key))
	}
	return key, nil
}

// Helper function to get environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
