package config

import (
	"os"
	"strconv"
	"time"
)

// StorageConfig selects and parameterizes the storage backend.
type StorageConfig struct {
	// Target forces "native" or "browser"; empty means detect from the runtime.
	Target string
	// DataDir holds the native database file and the browser key-value file.
	DataDir string
	// NativeName is the fixed database name; the file is <NativeName>SQLite.db.
	NativeName string
	// KVFile is the key-value file that persists the browser database blob.
	KVFile string
	// StoreKey is the key under which the browser database blob is stored.
	StoreKey string
	// AutoSave flushes the browser database after every write.
	AutoSave bool
	// InstanceID tags written rows; generated and persisted when empty.
	InstanceID    string
	BusyTimeoutMs int
}

// MinIOConfig holds object storage settings for database backups.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost       string
	Port          string
	Timezone      string
	Storage       StorageConfig
	MinIO         MinIOConfig
	BackupEnabled bool
	// BackupRetain keeps the newest n snapshots per instance; 0 keeps all.
	BackupRetain int
	// RestoreKey names a snapshot to install before storage starts, or
	// "latest" for the newest one of Storage.InstanceID.
	RestoreKey string
	// RevertSteps undoes that many migrations and exits instead of serving.
	RevertSteps int
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost:  getEnv("APP_HOST", "localhost:8080"),
		Port:     getEnv("PORT", "8080"),
		Timezone: getEnv("APP_TIMEZONE", "UTC"),
		Storage: StorageConfig{
			Target:        getEnv("GRADEBOOK_TARGET", ""),
			DataDir:       getEnv("GRADEBOOK_DATA_DIR", "./data"),
			NativeName:    getEnv("GRADEBOOK_DB_NAME", "gradebook"),
			KVFile:        getEnv("GRADEBOOK_KV_FILE", "gradebook.kv"),
			StoreKey:      getEnv("GRADEBOOK_STORE_KEY", "gradebook.sqlite"),
			AutoSave:      getEnvBool("GRADEBOOK_AUTOSAVE", true),
			InstanceID:    getEnv("GRADEBOOK_INSTANCE_ID", ""),
			BusyTimeoutMs: getEnvInt("GRADEBOOK_BUSY_TIMEOUT_MS", 5000),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		BackupEnabled: getEnvBool("BACKUP_ENABLED", false),
		BackupRetain:  getEnvInt("BACKUP_RETAIN", 0),
		RestoreKey:    getEnv("BACKUP_RESTORE", ""),
		RevertSteps:   getEnvInt("GRADEBOOK_REVERT_STEPS", 0),
	}
}

// Location resolves Timezone, falling back to UTC for unknown zones.
func (c *AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}
