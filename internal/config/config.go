// Package config loads the sidecar's five environment variables, mirroring
// the original acsps/env.py's os.environ.get(name, default) shape but with
// an optional .env file loaded ahead of os.Getenv (ClusterCockpit-cc-backend
// declares joho/godotenv for this same convenience).
package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Config holds the five configurable values spec §6 names: store path, UDP
// bind address/port, HTTP bind address/port.
type Config struct {
	StorePath string
	UDPAddr   string
	UDPPort   string
	HTTPAddr  string
	HTTPPort  string
}

const (
	envStorePath = "ACSPS_SQLITE_PATH"
	envUDPAddr   = "ACSPS_UDP_ADDR"
	envUDPPort   = "ACSPS_UDP_PORT"
	envHTTPAddr  = "ACSPS_WEB_ADDR"
	envHTTPPort  = "ACSPS_WEB_PORT"
)

// Load reads configuration from the environment, first loading a local
// .env file if one is present (a missing .env is not an error).
func Load() Config {
	_ = godotenv.Load()

	return Config{
		StorePath: getEnv(envStorePath, "/tmp/acsps.db"),
		UDPAddr:   getEnv(envUDPAddr, "127.0.0.1"),
		UDPPort:   getEnv(envUDPPort, "11200"),
		HTTPAddr:  getEnv(envHTTPAddr, "0.0.0.0"),
		HTTPPort:  getEnv(envHTTPPort, "8000"),
	}
}

func getEnv(name, fallback string) string {
	if v, ok := os.LookupEnv(name); ok {
		return v
	}
	return fallback
}
