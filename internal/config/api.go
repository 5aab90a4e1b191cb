package config

import (
	"fmt"
	"os"

	"github.com/JaimeStill/labrecon/pkg/formatting"
	"github.com/JaimeStill/labrecon/pkg/middleware"
	"github.com/JaimeStill/labrecon/pkg/openapi"
	"github.com/JaimeStill/labrecon/pkg/pagination"
)

var corsEnv = &middleware.CORSEnv{
	Enabled:          "LABRECON_CORS_ENABLED",
	Origins:          "LABRECON_CORS_ORIGINS",
	AllowedMethods:   "LABRECON_CORS_ALLOWED_METHODS",
	AllowedHeaders:   "LABRECON_CORS_ALLOWED_HEADERS",
	AllowCredentials: "LABRECON_CORS_ALLOW_CREDENTIALS",
	MaxAge:           "LABRECON_CORS_MAX_AGE",
}

var openAPIEnv = &openapi.ConfigEnv{
	Title:       "LABRECON_OPENAPI_TITLE",
	Description: "LABRECON_OPENAPI_DESCRIPTION",
	Path:        "LABRECON_OPENAPI_PATH",
}

var paginationEnv = &pagination.ConfigEnv{
	DefaultPageSize: "LABRECON_PAGINATION_DEFAULT_PAGE_SIZE",
	MaxPageSize:     "LABRECON_PAGINATION_MAX_PAGE_SIZE",
}

const (
	EnvAPIBasePath       = "LABRECON_API_BASE_PATH"
	EnvAPIMaxRequestSize = "LABRECON_API_MAX_REQUEST_SIZE"
)

// APIConfig holds API routing, request limits, CORS, pagination and API
// document settings.
type APIConfig struct {
	BasePath string `toml:"base_path"`
	// MaxRequestSize bounds request bodies; row payloads of a large month
	// run to several megabytes.
	MaxRequestSize string                `toml:"max_request_size"`
	CORS           middleware.CORSConfig `toml:"cors"`
	Pagination     pagination.Config     `toml:"pagination"`
	OpenAPI        openapi.Config        `toml:"openapi"`
}

// MaxRequestSizeBytes returns MaxRequestSize in bytes. It is validated by
// Finalize.
func (c *APIConfig) MaxRequestSizeBytes() int64 {
	size, _ := formatting.ParseBytes(c.MaxRequestSize)
	return size
}

// Finalize applies defaults, environment variable overrides, and validation
// for the API config and its nested CORS and pagination configs.
func (c *APIConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.CORS.Finalize(corsEnv); err != nil {
		return fmt.Errorf("cors: %w", err)
	}
	if err := c.Pagination.Finalize(paginationEnv); err != nil {
		return fmt.Errorf("pagination: %w", err)
	}
	if err := c.OpenAPI.Finalize(openAPIEnv); err != nil {
		return fmt.Errorf("openapi: %w", err)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay across nested configs.
func (c *APIConfig) Merge(overlay *APIConfig) {
	if overlay.BasePath != "" {
		c.BasePath = overlay.BasePath
	}
	if overlay.MaxRequestSize != "" {
		c.MaxRequestSize = overlay.MaxRequestSize
	}

	c.CORS.Merge(&overlay.CORS)
	c.Pagination.Merge(&overlay.Pagination)
	c.OpenAPI.Merge(&overlay.OpenAPI)
}

func (c *APIConfig) loadDefaults() {
	if c.BasePath == "" {
		c.BasePath = "/api"
	}
	if c.MaxRequestSize == "" {
		c.MaxRequestSize = "32MB"
	}
}

func (c *APIConfig) loadEnv() {
	if v := os.Getenv(EnvAPIBasePath); v != "" {
		c.BasePath = v
	}
	if v := os.Getenv(EnvAPIMaxRequestSize); v != "" {
		c.MaxRequestSize = v
	}
}

func (c *APIConfig) validate() error {
	size, err := formatting.ParseBytes(c.MaxRequestSize)
	if err != nil {
		return fmt.Errorf("invalid max_request_size: %w", err)
	}
	if size <= 0 {
		return fmt.Errorf("max_request_size must be positive, got %s", c.MaxRequestSize)
	}
	return nil
}
