package constants

import "os"

var Version = "dev"

const (
	ConfigEnvFileName      = ".env"
	ConfigEnvLocalFileName = ".env.local"
	DBFileName             = "gitship.db"

	EnvVarDataDir   = "GITSHIP_DATA_DIR"
	EnvVarConfigDir = "GITSHIP_CONFIG_DIR"
	EnvVarDebug     = "GITSHIP_DEBUG"
	EnvVarAPIToken  = "GITSHIP_API_TOKEN"

	UserDataDir   = "~/.local/share/gitship"
	UserConfigDir = "~/.config/gitship"

	DefaultBaselineRevision = "main"
	DefaultRemote           = "origin"
	DefaultRepository       = "."
	DefaultHistoryKeep      = 50
	DefaultAPIListenAddress = ":9080"

	DefaultHTTPCheckTimeout = "10s"
	DefaultWebhookTimeout   = "10s"

	ModeFileDefault os.FileMode = 0o644
	ModeDirDefault  os.FileMode = 0o755
	ModeFileSecret  os.FileMode = 0o600
)
