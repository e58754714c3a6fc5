// Package config loads and validates application configuration.
//
// Configuration comes from ANNOUNCARR_-prefixed environment variables and an
// optional config.yml, with environment variables taking precedence. Every
// optional knob has a default; missing required credentials fail startup
// before any poll cycle runs.
package config
