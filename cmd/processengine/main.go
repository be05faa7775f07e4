// Command processengine runs a standalone engine with the REST
// transport exposed, configured from a JSON settings blob plus a
// handful of environment variables for deployment-time toggles.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sethdford/process-engine/config"
	"github.com/sethdford/process-engine/engine"
	httptransport "github.com/sethdford/process-engine/transport/http"
)

func main() {
	settings, err := loadSettings()
	if err != nil {
		fmt.Fprintln(os.Stderr, "process-engine:", err)
		os.Exit(1)
	}

	if addr := os.Getenv("PROCESS_ENGINE_REDIS_ADDR"); addr != "" {
		settings.Store = config.StoreRedis
		settings.RedisAddr = addr
		settings.UseBreaker = true
		settings.Breaker = config.BreakerSettings{Name: "process-store", Timeout: 30 * time.Second}
	}
	if os.Getenv("PROCESS_ENGINE_RECORD_HISTORY") != "" {
		settings.RecordHistory = true
	}

	e := engine.FromSettings(settings)

	addr := settings.HTTPAddr
	if override := os.Getenv("PROCESS_ENGINE_ADDR"); override != "" {
		addr = override
	}
	if addr == "" {
		addr = ":8080"
	}

	router := httptransport.NewRouter(e)
	server := httptransport.NewServer(addr, router)
	if err := server.Start(); err != nil {
		fmt.Fprintln(os.Stderr, "process-engine:", err)
		os.Exit(1)
	}

	fmt.Println("process-engine listening on", addr)
	select {}
}

// loadSettings decodes config.Settings from the PROCESS_ENGINE_CONFIG
// environment variable, a JSON object matching Settings' own shape
// (e.g. `{"store":"redis","redisAddr":"localhost:6379"}`), through
// config.FromMap. An unset or empty variable is not an error — it
// yields config.Default().
func loadSettings() (config.Settings, error) {
	raw := os.Getenv("PROCESS_ENGINE_CONFIG")
	if raw == "" {
		return config.Default(), nil
	}

	var values map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return config.Settings{}, fmt.Errorf("decode PROCESS_ENGINE_CONFIG: %w", err)
	}
	return config.FromMap(values)
}
