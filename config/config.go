package config

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	BackendLocal     = "local"
	BackendFirestore = "firestore"
	BackendPostgres  = "postgres"

	StorageFile   = "file"
	StorageRedis  = "redis"
	StorageMemory = "memory"

	PhotoStoreInline = "inline"
	PhotoStoreS3     = "s3"
)

type Config struct {
	Debug    bool   `envconfig:"debug"`
	Port     int    `envconfig:"port" default:"8080"`
	Env      string `envconfig:"env" default:"dev"`
	LogLevel string `envconfig:"log_level" default:"info"`

	Backend      string `envconfig:"backend" default:"local"`
	LocalStorage string `envconfig:"local_storage" default:"file"`
	DataDir      string `envconfig:"data_dir" default:"./data"`

	RedisAddr     string `envconfig:"redis_addr" default:"localhost:6379"`
	RedisPassword string `envconfig:"redis_password"`
	RedisDB       int    `envconfig:"redis_db"`

	PostgresHost     string `envconfig:"postgres_host"`
	PostgresUser     string `envconfig:"postgres_user"`
	PostgresDB       string `envconfig:"postgres_db"`
	PostgresPort     int    `envconfig:"postgres_port" default:"5432"`
	PostgresPassword string `envconfig:"postgres_password"`

	GoogleApplicationCredentials string `envconfig:"google_application_credentials"`
	FirebaseProjectID            string `envconfig:"firebase_project_id"`

	PhotoStore         string `envconfig:"photo_store" default:"inline"`
	AWSRegion          string `envconfig:"aws_region"`
	AWSAccessKeyID     string `envconfig:"aws_access_key_id"`
	AWSSecretAccessKey string `envconfig:"aws_secret_access_key"`
	AWSBucket          string `envconfig:"aws_bucket"`
	PhotoFolder        string `envconfig:"photo_folder" default:"missing_photos"`
	MaxPhotoBytes      int64  `envconfig:"max_photo_bytes" default:"10485760"`

	JWTSecret string `envconfig:"jwt_secret"`
	// AdminIDs grants admin to Firebase users by uid.
	AdminIDs []string `envconfig:"admin_ids"`
	// AdminToken is the shared secret a local sign-in presents to become an admin.
	AdminToken string `envconfig:"admin_token"`

	MailgunApiKey   string   `envconfig:"mg_public_api_key"`
	MgDomain        string   `envconfig:"mg_domain"`
	MgEmailFrom     string   `envconfig:"email_from"`
	ModeratorEmails []string `envconfig:"moderator_emails"`

	BaseUrl                  string `envconfig:"base_url" default:"http://localhost:8080"`
	AccessControlAllowOrigin string `envconfig:"access_control_allow_origin"`
	RateLimitPerMinute       uint   `envconfig:"rate_limit_per_minute" default:"30"`
}

func Load() (*Config, error) {
	env := os.Getenv("GIN_MODE")
	if env != "release" {
		if err := godotenv.Load("./.env"); err != nil {
			log.Printf("couldn't load env vars: %v", err)
		}
	}

	c := &Config{}
	err := envconfig.Process("findmenow", c)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks that the selected backends have what they need to start.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendLocal:
		switch c.LocalStorage {
		case StorageFile, StorageRedis, StorageMemory:
		default:
			return fmt.Errorf("unknown local storage %q", c.LocalStorage)
		}
	case BackendFirestore:
	case BackendPostgres:
		if c.PostgresHost == "" {
			return fmt.Errorf("FINDMENOW_POSTGRES_HOST required for backend %q", c.Backend)
		}
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}

	switch c.PhotoStore {
	case PhotoStoreInline:
	case PhotoStoreS3:
		if c.AWSBucket == "" || c.AWSRegion == "" {
			return fmt.Errorf("FINDMENOW_AWS_BUCKET and FINDMENOW_AWS_REGION required for photo store %q", c.PhotoStore)
		}
	default:
		return fmt.Errorf("unknown photo store %q", c.PhotoStore)
	}

	if c.Backend != BackendFirestore && c.JWTSecret == "" {
		return fmt.Errorf("FINDMENOW_JWT_SECRET required for backend %q", c.Backend)
	}
	if c.MaxPhotoBytes <= 0 {
		return fmt.Errorf("FINDMENOW_MAX_PHOTO_BYTES must be positive")
	}
	return nil
}

// IsAdmin reports whether a Firebase uid is listed in FINDMENOW_ADMIN_IDS.
func (c *Config) IsAdmin(id string) bool {
	for _, admin := range c.AdminIDs {
		if admin == id {
			return true
		}
	}
	return false
}
