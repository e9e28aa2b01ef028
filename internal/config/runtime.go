package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Runtime holds process-level settings that are not simulation parameters.
type Runtime struct {
	DBPath      string
	Port        int
	AdminKey    string   // Bearer token for POST endpoints. Empty = POST disabled.
	CORSOrigins []string // Extra allowed origins for the observation API
}

// LoadRuntime reads runtime settings from the environment, loading a .env
// file first when present.
func LoadRuntime() Runtime {
	_ = godotenv.Load()

	rt := Runtime{
		DBPath:   getEnv("POLARSIM_DB", "data/polarsim.db"),
		Port:     8080,
		AdminKey: os.Getenv("POLARSIM_ADMIN_KEY"),
	}
	if v, err := strconv.Atoi(os.Getenv("POLARSIM_PORT")); err == nil && v > 0 {
		rt.Port = v
	}
	if origins := os.Getenv("POLARSIM_CORS_ORIGINS"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				rt.CORSOrigins = append(rt.CORSOrigins, o)
			}
		}
	}
	return rt
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
