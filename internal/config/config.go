package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for all sync commands.
type Config struct {
	StorePath string `envconfig:"SYNC_STORE_PATH" default:"roster-sync.db"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`

	// Applied as the HTTP client timeout of every backend call.
	CallTimeout time.Duration `envconfig:"SYNC_CALL_TIMEOUT" default:"2m"`

	// Enrollment backend.
	RosterBaseURL string `envconfig:"ROSTER_BASE_URL" default:"https://classroom.googleapis.com/v1"`
	RosterToken   string `envconfig:"ROSTER_TOKEN"`

	// Group directory backend.
	GroupBaseURL string `envconfig:"GROUPDIR_BASE_URL" default:"https://admin.googleapis.com/admin/directory/v1"`
	GroupToken   string `envconfig:"GROUPDIR_TOKEN"`

	// Chat backend; users URL serves identity resolution.
	ChatBaseURL      string `envconfig:"CHATDIR_BASE_URL" default:"https://chat.googleapis.com/v1"`
	ChatUsersBaseURL string `envconfig:"CHATDIR_USERS_BASE_URL" default:"https://admin.googleapis.com/admin/directory/v1"`
	ChatToken        string `envconfig:"CHATDIR_TOKEN"`

	// The administrative principal pinned to the top role everywhere.
	ProtectedEmail string `envconfig:"SYNC_PROTECTED_EMAIL"`

	// abort | continue, applied uniformly to both directory kinds.
	OnOpError string `envconfig:"SYNC_ON_OP_ERROR" default:"abort"`

	// 1 = strictly sequential (default); >1 syncs courses concurrently.
	MaxWorkers int `envconfig:"SYNC_MAX_WORKERS" default:"1"`

	// Roster export.
	ExportDir    string `envconfig:"EXPORT_DIR" default:"exports"`
	ExportBrotli bool   `envconfig:"EXPORT_BROTLI" default:"false"`

	// SFTP upload of export artifacts.
	SFTPHost      string `envconfig:"SFTP_HOST"`
	SFTPPort      int    `envconfig:"SFTP_PORT" default:"22"`
	SFTPUser      string `envconfig:"SFTP_USER"`
	SFTPPass      string `envconfig:"SFTP_PASS"`
	SFTPRemoteDir string `envconfig:"SFTP_REMOTE_DIR" default:"/"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
