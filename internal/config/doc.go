// Package config defines the application configuration structure and
// loading logic.
package config
