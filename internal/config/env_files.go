package config

import (
	"fmt"
	"path/filepath"

	"github.com/gitship/gitship/internal/constants"
	"github.com/joho/godotenv"
)

// LoadEnvFiles loads .env from the working directory and the config dir, then lets
// .env.local override them.
func LoadEnvFiles() {
	_ = godotenv.Load(constants.ConfigEnvFileName)
	if configDir, err := ConfigDir(); err == nil {
		_ = godotenv.Load(filepath.Join(configDir, constants.ConfigEnvFileName))
	}

	_ = godotenv.Overload(constants.ConfigEnvLocalFileName)
	if configDir, err := ConfigDir(); err == nil {
		_ = godotenv.Overload(filepath.Join(configDir, constants.ConfigEnvLocalFileName))
	}
}

// LoadEnvFilesForEnvironments loads .env.<name> for each deployment environment.
func LoadEnvFilesForEnvironments(names []string) {
	for _, name := range names {
		_ = godotenv.Load(fmt.Sprintf(".env.%s", name))
	}
}

// ExportEnv renders env vars as KEY=VALUE pairs for child processes.
func ExportEnv(vars []EnvVar) []string {
	out := make([]string, 0, len(vars))
	for _, v := range vars {
		out = append(out, v.Name+"="+v.Value)
	}
	return out
}
