package middleware

import (
	"os"
	"slices"
	"strconv"
	"strings"
)

// CORSConfig is the cross-origin policy applied by CORS.
type CORSConfig struct {
	Enabled          bool     `toml:"enabled"`
	Origins          []string `toml:"origins"`
	AllowedMethods   []string `toml:"allowed_methods"`
	AllowedHeaders   []string `toml:"allowed_headers"`
	AllowCredentials bool     `toml:"allow_credentials"`
	MaxAge           int      `toml:"max_age"`
}

// CORSEnv names the environment variables that override CORSConfig fields.
// Empty names are skipped.
type CORSEnv struct {
	Enabled          string
	Origins          string
	AllowedMethods   string
	AllowedHeaders   string
	AllowCredentials string
	MaxAge           string
}

var (
	defaultMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	defaultHeaders = []string{"Content-Type", "Authorization", RequestIDHeader}
)

const defaultMaxAge = 3600

// Finalize fills defaults then applies env overrides. CORS settings have no
// invalid combinations, so it never fails.
func (c *CORSConfig) Finalize(env *CORSEnv) error {
	if len(c.AllowedMethods) == 0 {
		c.AllowedMethods = slices.Clone(defaultMethods)
	}
	if len(c.AllowedHeaders) == 0 {
		c.AllowedHeaders = slices.Clone(defaultHeaders)
	}
	if c.MaxAge <= 0 {
		c.MaxAge = defaultMaxAge
	}

	if env != nil {
		envBool(env.Enabled, &c.Enabled)
		envBool(env.AllowCredentials, &c.AllowCredentials)
		envList(env.Origins, &c.Origins)
		envList(env.AllowedMethods, &c.AllowedMethods)
		envList(env.AllowedHeaders, &c.AllowedHeaders)
		if v, ok := lookup(env.MaxAge); ok {
			if n, err := strconv.Atoi(v); err == nil {
				c.MaxAge = n
			}
		}
	}
	return nil
}

// Merge layers overlay onto c. The two switches always take the overlay's
// value; lists and MaxAge only when the overlay sets them.
func (c *CORSConfig) Merge(overlay *CORSConfig) {
	c.Enabled = overlay.Enabled
	c.AllowCredentials = overlay.AllowCredentials

	for _, pair := range []struct{ dst, src *[]string }{
		{&c.Origins, &overlay.Origins},
		{&c.AllowedMethods, &overlay.AllowedMethods},
		{&c.AllowedHeaders, &overlay.AllowedHeaders},
	} {
		if *pair.src != nil {
			*pair.dst = *pair.src
		}
	}
	if overlay.MaxAge > 0 {
		c.MaxAge = overlay.MaxAge
	}
}

func lookup(name string) (string, bool) {
	if name == "" {
		return "", false
	}
	v := os.Getenv(name)
	return v, v != ""
}

func envBool(name string, dst *bool) {
	if v, ok := lookup(name); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func envList(name string, dst *[]string) {
	v, ok := lookup(name)
	if !ok {
		return
	}
	var out []string
	for part := range strings.SplitSeq(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*dst = out
}
