package config

// Known environments
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// IsProductionLike reports whether the environment requires strict
// configuration validation.
func IsProductionLike(environment string) bool {
	return environment == EnvProduction || environment == EnvStaging
}
