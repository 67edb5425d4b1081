// Package config handles platform configuration
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr          string
	GRPCAddr          string
	LensSize          int
	FrameRate         float64 // Hz
	DevicePixelRatio  float64
	DefaultFilter     string
	PrefsPath         string
	CaptureSource     string // "screen" or "file"
	CaptureFile       string
	TerminalLens      bool
	RegionOverlayTTL  time.Duration
	FrameHashDistance int
	BreakerThreshold  int
	AllowedOrigins    []string
}

func Load() *Config {
	return &Config{
		HTTPAddr:          getEnv("HTTP_ADDR", ":8420"),
		GRPCAddr:          getEnv("GRPC_ADDR", ":8421"),
		LensSize:          getEnvInt("LENS_SIZE", 200),
		FrameRate:         getEnvFloat("FRAME_RATE", 30.0),
		DevicePixelRatio:  getEnvFloat("DEVICE_PIXEL_RATIO", 1.0),
		DefaultFilter:     getEnv("DEFAULT_FILTER", "protanopia"),
		PrefsPath:         getEnv("PREFS_PATH", "chromalens.db"),
		CaptureSource:     getEnv("CAPTURE_SOURCE", "screen"),
		CaptureFile:       getEnv("CAPTURE_FILE", ""),
		TerminalLens:      getEnvBool("TERMINAL_LENS", false),
		RegionOverlayTTL:  getEnvDuration("REGION_OVERLAY_TTL", 10*time.Second),
		FrameHashDistance: getEnvInt("FRAME_HASH_DISTANCE", 2),
		BreakerThreshold:  getEnvInt("BREAKER_THRESHOLD", 5),
		AllowedOrigins:    getEnvList("ALLOWED_ORIGINS", []string{"*"}),
	}
}

// FrameInterval converts FrameRate into a scheduler period.
func (c *Config) FrameInterval() time.Duration {
	if c.FrameRate <= 0 {
		return time.Second / 30
	}
	return time.Duration(float64(time.Second) / c.FrameRate)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "true" || v == "1"
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getEnvList(key string, def []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if t := strings.TrimSpace(p); t != "" {
				result = append(result, t)
			}
		}
		return result
	}
	return def
}
