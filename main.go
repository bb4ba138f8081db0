package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"jerseyocr/pkg/detect"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

var jwtSecret []byte // loaded from env JWT_SECRET (fallback to dev default)

// pipeline is the shared detection pipeline used by the HTTP handlers.
var pipeline *detect.Pipeline

func main() {
	// Auto-load ./.env if present (no external dependency) before reading vars
	loadDotEnv()
	setupLogging()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "dev-insecure-secret-change" // development fallback
	}
	jwtSecret = []byte(secret)

	// Support a lightweight migrate command: `./jerseyocr migrate`
	// It runs AutoMigrate and seeding then exits. Useful for CI or manual DB setup.
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		initDB()
		fmt.Println("migration and seeding completed")
		return
	}

	engine := detect.NewTesseractEngine(detect.EngineConfigFromEnv())
	defer engine.Close()
	// Probe at startup so a broken Tesseract install fails fast instead of
	// on the first request.
	if err := engine.Ready(); err != nil {
		logrus.Fatalf("recognition engine unavailable: %v", err)
	}
	pipeline = detect.NewPipeline(engine, detect.ConfigFromEnv(), logrus.StandardLogger())

	initDB()

	r := gin.Default()

	setupRoutes(r)

	addr := ":" + envOr("PORT", "8080")
	if err := r.Run(addr); err != nil {
		logrus.Fatalf("server stopped: %v", err)
	}
}

// setupLogging configures the shared logrus logger from LOG_LEVEL and
// LOG_FORMAT (text by default, json for log collectors).
func setupLogging() {
	if strings.EqualFold(os.Getenv("LOG_FORMAT"), "json") {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
	if lvl, err := logrus.ParseLevel(envOr("LOG_LEVEL", "info")); err == nil {
		logrus.SetLevel(lvl)
	}
}

// envOr returns the value of key, or def when unset or empty.
func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// loadDotEnv loads key=value pairs from a local .env file into the environment
// without overwriting variables that are already set. Lines starting with # are ignored.
func loadDotEnv() {
	path := ".env"
	if _, err := os.Stat(path); err != nil {
		return // no .env file
	}
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		// split on first '='
		if eq := strings.IndexByte(line, '='); eq > 0 {
			key := strings.TrimSpace(line[:eq])
			val := strings.TrimSpace(line[eq+1:])
			if _, exists := os.LookupEnv(key); !exists {
				_ = os.Setenv(key, val)
			}
		}
	}
}
