package config

import (
	"os"
	"strconv"
	"time"
)

// Server captures process level configuration for the alumni service.
type Server struct {
	Addr          string
	DatabaseURL   string
	SettingsPath  string
	AdminUsername string
	AdminPassword string
	JWTSigningKey string
	SessionTTL    time.Duration
	TimeZone      string
	MaxUploadSize int64

	// InsecureDefaults names the secret env vars that were unset and fell
	// back to the published development values. main refuses to start with
	// any of these present unless ALLOW_INSECURE_DEFAULTS=true.
	InsecureDefaults []string
}

// Default limits. MaxUploadSize bounds the CSV upload body; the dataset is a
// single class year, so 8 MiB is generous.
var (
	SessionTTL    = 12 * time.Hour
	MaxUploadSize = int64(8 << 20)
)

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("RPCA70_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	settingsPath := os.Getenv("SETTINGS_PATH")
	if settingsPath == "" {
		settingsPath = "settings.json"
	}

	adminUser := os.Getenv("ADMIN_USERNAME")
	if adminUser == "" {
		adminUser = "RPCA70-Admin"
	}

	sessionTTL := SessionTTL
	if ttlStr := os.Getenv("SESSION_TTL"); ttlStr != "" {
		if duration, err := time.ParseDuration(ttlStr); err == nil {
			sessionTTL = duration
		}
	}

	maxUpload := MaxUploadSize
	if sizeStr := os.Getenv("MAX_UPLOAD_BYTES"); sizeStr != "" {
		if size, err := strconv.ParseInt(sizeStr, 10, 64); err == nil && size > 0 {
			maxUpload = size
		}
	}

	var insecure []string
	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		jwtSigningKey = "dev-secret-key-change-in-production"
		insecure = append(insecure, "JWT_SIGNING_KEY")
	}

	adminPassword := os.Getenv("ADMIN_PASSWORD")
	if adminPassword == "" {
		adminPassword = "dev-admin-change-in-production"
		insecure = append(insecure, "ADMIN_PASSWORD")
	}

	return Server{
		Addr:             addr,
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		SettingsPath:     settingsPath,
		AdminUsername:    adminUser,
		AdminPassword:    adminPassword,
		JWTSigningKey:    jwtSigningKey,
		SessionTTL:       sessionTTL,
		TimeZone:         os.Getenv("TIME_ZONE"),
		MaxUploadSize:    maxUpload,
		InsecureDefaults: insecure,
	}
}
