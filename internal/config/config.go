package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/riskibarqy/odds-monitor/internal/platform/logging"
)

const (
	EnvDev  = "dev"
	EnvProd = "prod"
)

// Config stores runtime configuration for the service.
type Config struct {
	AppEnv         string
	ServiceName    string
	ServiceVersion string
	HTTPAddr       string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	CORSOrigins    []string
	LogLevel       logging.Level

	OddsAPIBaseURL            string
	OddsAPITimeout            time.Duration
	OddsAPIMaxRetries         int
	OddsAPICircuitEnabled     bool
	OddsAPICircuitFailures    int
	OddsAPICircuitOpenTimeout time.Duration
	OddsAPICircuitHalfOpenReq int

	OddsStreamURL    string
	MonitorStreamURL string
	FairOddsEnabled  bool

	FlashClearAfter     time.Duration
	MovementWindow      time.Duration
	RecentUpdateWindow  time.Duration
	MonitorMaxFixtures  int
	MonitorHistoryCap   int
	MonitorPrimeWorkers int

	StreamReconnectEnabled  bool
	StreamReconnectAttempts int
	StreamReconnectBackoff  time.Duration

	PprofEnabled           bool
	PprofAddr              string
	UptraceEnabled         bool
	UptraceDSN             string
	PyroscopeEnabled       bool
	PyroscopeServerAddress string
	PyroscopeAppName       string
	PyroscopeAuthToken     string
	PyroscopeUploadRate    time.Duration
}

func Load() (Config, error) {
	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}

	readTimeout, err := getEnvAsDuration("HTTP_READ_TIMEOUT", 15*time.Second)
	if err != nil {
		return Config{}, err
	}
	writeTimeout, err := getEnvAsDuration("HTTP_WRITE_TIMEOUT", 30*time.Second)
	if err != nil {
		return Config{}, err
	}

	oddsAPIBaseURL := strings.TrimRight(strings.TrimSpace(getEnv("ODDS_API_BASE_URL", "")), "/")
	if oddsAPIBaseURL == "" {
		return Config{}, fmt.Errorf("ODDS_API_BASE_URL is required")
	}
	oddsAPITimeout, err := getEnvAsDuration("ODDS_API_TIMEOUT", 20*time.Second)
	if err != nil {
		return Config{}, err
	}
	oddsAPIMaxRetries, err := getEnvAsInt("ODDS_API_MAX_RETRIES", 2)
	if err != nil {
		return Config{}, err
	}
	circuitEnabled, err := getEnvAsBool("ODDS_API_CIRCUIT_ENABLED", true)
	if err != nil {
		return Config{}, err
	}
	circuitFailures, err := getEnvAsInt("ODDS_API_CIRCUIT_FAILURES", 5)
	if err != nil {
		return Config{}, err
	}
	circuitOpenTimeout, err := getEnvAsDuration("ODDS_API_CIRCUIT_OPEN_TIMEOUT", 15*time.Second)
	if err != nil {
		return Config{}, err
	}
	circuitHalfOpenReq, err := getEnvAsInt("ODDS_API_CIRCUIT_HALF_OPEN_REQ", 2)
	if err != nil {
		return Config{}, err
	}

	oddsStreamURL := strings.TrimSpace(getEnv("ODDS_STREAM_URL", ""))
	if oddsStreamURL == "" {
		return Config{}, fmt.Errorf("ODDS_STREAM_URL is required")
	}
	monitorStreamURL := strings.TrimSpace(getEnv("MONITOR_STREAM_URL", ""))
	if monitorStreamURL == "" {
		return Config{}, fmt.Errorf("MONITOR_STREAM_URL is required")
	}
	fairOddsEnabled, err := getEnvAsBool("FAIR_ODDS_ENABLED", true)
	if err != nil {
		return Config{}, err
	}

	// Flash-clear and recency windows are deliberately tunable; the two
	// historical dashboards disagreed on the exact values.
	flashClearAfter, err := getEnvAsDuration("FLASH_CLEAR_AFTER", 2*time.Second)
	if err != nil {
		return Config{}, err
	}
	if flashClearAfter <= 0 {
		return Config{}, fmt.Errorf("FLASH_CLEAR_AFTER must be > 0")
	}
	movementWindow, err := getEnvAsDuration("MOVEMENT_WINDOW", 300*time.Second)
	if err != nil {
		return Config{}, err
	}
	if movementWindow <= 0 {
		return Config{}, fmt.Errorf("MOVEMENT_WINDOW must be > 0")
	}
	recentUpdateWindow, err := getEnvAsDuration("RECENT_UPDATE_WINDOW", 90*time.Second)
	if err != nil {
		return Config{}, err
	}

	monitorMaxFixtures, err := getEnvAsInt("MONITOR_MAX_FIXTURES", 500)
	if err != nil {
		return Config{}, err
	}
	if monitorMaxFixtures <= 0 {
		return Config{}, fmt.Errorf("MONITOR_MAX_FIXTURES must be > 0")
	}
	monitorHistoryCap, err := getEnvAsInt("MONITOR_HISTORY_CAP", 500)
	if err != nil {
		return Config{}, err
	}
	monitorPrimeWorkers, err := getEnvAsInt("MONITOR_PRIME_WORKERS", 8)
	if err != nil {
		return Config{}, err
	}
	if monitorPrimeWorkers <= 0 {
		return Config{}, fmt.Errorf("MONITOR_PRIME_WORKERS must be > 0")
	}

	reconnectEnabled, err := getEnvAsBool("STREAM_RECONNECT_ENABLED", false)
	if err != nil {
		return Config{}, err
	}
	reconnectAttempts, err := getEnvAsInt("STREAM_RECONNECT_ATTEMPTS", 5)
	if err != nil {
		return Config{}, err
	}
	reconnectBackoff, err := getEnvAsDuration("STREAM_RECONNECT_BACKOFF", 2*time.Second)
	if err != nil {
		return Config{}, err
	}
	if reconnectEnabled && reconnectAttempts <= 0 {
		return Config{}, fmt.Errorf("STREAM_RECONNECT_ATTEMPTS must be > 0 when reconnect is enabled")
	}

	pprofEnabled, err := getEnvAsBool("PPROF_ENABLED", false)
	if err != nil {
		return Config{}, err
	}
	pprofAddr := strings.TrimSpace(getEnv("PPROF_ADDR", ":6060"))
	if pprofEnabled && pprofAddr == "" {
		return Config{}, fmt.Errorf("PPROF_ADDR is required when PPROF_ENABLED=true")
	}

	uptraceEnabled, err := getEnvAsBool("UPTRACE_ENABLED", false)
	if err != nil {
		return Config{}, err
	}
	uptraceDSN := strings.TrimSpace(getEnv("UPTRACE_DSN", ""))
	if uptraceEnabled && uptraceDSN == "" {
		return Config{}, fmt.Errorf("UPTRACE_DSN is required when UPTRACE_ENABLED=true")
	}

	pyroscopeEnabled, err := getEnvAsBool("PYROSCOPE_ENABLED", false)
	if err != nil {
		return Config{}, err
	}
	pyroscopeServer := strings.TrimSpace(getEnv("PYROSCOPE_SERVER_ADDRESS", ""))
	if pyroscopeEnabled && pyroscopeServer == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_SERVER_ADDRESS is required when PYROSCOPE_ENABLED=true")
	}
	pyroscopeUploadRate, err := getEnvAsDuration("PYROSCOPE_UPLOAD_RATE", 15*time.Second)
	if err != nil {
		return Config{}, err
	}

	serviceName := strings.TrimSpace(getEnv("SERVICE_NAME", "odds-monitor"))

	return Config{
		AppEnv:         appEnv,
		ServiceName:    serviceName,
		ServiceVersion: strings.TrimSpace(getEnv("SERVICE_VERSION", "dev")),
		HTTPAddr:       strings.TrimSpace(getEnv("HTTP_ADDR", ":8080")),
		ReadTimeout:    readTimeout,
		WriteTimeout:   writeTimeout,
		CORSOrigins:    splitAndTrim(getEnv("CORS_ALLOWED_ORIGINS", "")),
		LogLevel:       logging.ParseLevel(getEnv("LOG_LEVEL", "info")),

		OddsAPIBaseURL:            oddsAPIBaseURL,
		OddsAPITimeout:            oddsAPITimeout,
		OddsAPIMaxRetries:         oddsAPIMaxRetries,
		OddsAPICircuitEnabled:     circuitEnabled,
		OddsAPICircuitFailures:    circuitFailures,
		OddsAPICircuitOpenTimeout: circuitOpenTimeout,
		OddsAPICircuitHalfOpenReq: circuitHalfOpenReq,

		OddsStreamURL:    oddsStreamURL,
		MonitorStreamURL: monitorStreamURL,
		FairOddsEnabled:  fairOddsEnabled,

		FlashClearAfter:     flashClearAfter,
		MovementWindow:      movementWindow,
		RecentUpdateWindow:  recentUpdateWindow,
		MonitorMaxFixtures:  monitorMaxFixtures,
		MonitorHistoryCap:   monitorHistoryCap,
		MonitorPrimeWorkers: monitorPrimeWorkers,

		StreamReconnectEnabled:  reconnectEnabled,
		StreamReconnectAttempts: reconnectAttempts,
		StreamReconnectBackoff:  reconnectBackoff,

		PprofEnabled:           pprofEnabled,
		PprofAddr:              pprofAddr,
		UptraceEnabled:         uptraceEnabled,
		UptraceDSN:             uptraceDSN,
		PyroscopeEnabled:       pyroscopeEnabled,
		PyroscopeServerAddress: pyroscopeServer,
		PyroscopeAppName:       strings.TrimSpace(getEnv("PYROSCOPE_APP_NAME", serviceName)),
		PyroscopeAuthToken:     strings.TrimSpace(getEnv("PYROSCOPE_AUTH_TOKEN", "")),
		PyroscopeUploadRate:    pyroscopeUploadRate,
	}, nil
}

func parseAppEnv(value string) (string, error) {
	env := strings.ToLower(strings.TrimSpace(value))
	switch env {
	case EnvDev, EnvProd:
		return env, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q (want %s or %s)", value, EnvDev, EnvProd)
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) (int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return value, nil
}

func getEnvAsBool(key string, fallback bool) (bool, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", key, err)
	}
	return value, nil
}

func getEnvAsDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return value, nil
}

func splitAndTrim(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
