package config

import (
	"os"
	"strings"
)

// Recognised APP_ENV values.
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

var envAliases = map[string]string{
	"dev":     EnvDevelopment,
	"develop": EnvDevelopment,
	"local":   EnvDevelopment,
	"stage":   EnvStaging,
	"stg":     EnvStaging,
	"prod":    EnvProduction,
	"prd":     EnvProduction,
}

// envConfigPaths holds the per-environment files tried in place of DefaultPath.
var envConfigPaths = map[string]string{
	EnvDevelopment: "config/config.development.yml",
	EnvStaging:     "config/config.staging.yml",
	EnvProduction:  "config/config.production.yml",
}

// AppEnvironment returns APP_ENV lower-cased with aliases folded onto the
// Env constants. Unset means development; unknown names pass through.
func AppEnvironment() string {
	env := strings.ToLower(strings.TrimSpace(os.Getenv("APP_ENV")))
	if env == "" {
		return EnvDevelopment
	}
	if canonical, ok := envAliases[env]; ok {
		return canonical
	}
	return env
}

// IsProductionLike reports whether env serves real traffic.
func IsProductionLike(env string) bool {
	return env == EnvProduction || env == EnvStaging
}

// configPathFor picks the environment file for the default path when it
// exists. An explicit path is returned untouched.
func configPathFor(path, defaultPath string, envPaths map[string]string) string {
	if path == "" {
		path = defaultPath
	}
	if path != defaultPath {
		return path
	}
	candidate, ok := envPaths[AppEnvironment()]
	if !ok {
		return path
	}
	if _, err := os.Stat(candidate); err != nil {
		return path
	}
	return candidate
}
