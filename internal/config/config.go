package config

import (
	_ "embed"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Database    DatabaseConfig    `yaml:"database"`
	Enrollment  EnrollmentConfig  `yaml:"enrollment"`
	Matcher     MatcherConfig     `yaml:"matcher"`
	Pipeline    PipelineConfig    `yaml:"pipeline"`
	FaceService FaceServiceConfig `yaml:"face_service"`
	Alert       AlertConfig       `yaml:"alert"`
	Web         WebConfig         `yaml:"web"`
	Log         LogConfig         `yaml:"log"`
}

type DatabaseConfig struct {
	Backend      string `yaml:"backend"` // postgres or mariadb
	URL          string `yaml:"url"`     // postgres URL or MariaDB DSN
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

type EnrollmentConfig struct {
	Source string `yaml:"source"` // file or postgres
	Path   string `yaml:"path"`   // gob file written by the training tool
}

type MatcherConfig struct {
	Threshold      float64 `yaml:"threshold"`       // max Euclidean distance for a positive match
	Index          string  `yaml:"index"`           // linear or hnsw
	HNSWCandidates int     `yaml:"hnsw_candidates"` // neighbors re-ranked per query
}

type PipelineConfig struct {
	Camera         int     `yaml:"camera"`
	Scale          float64 `yaml:"scale"`         // detection downscale factor
	ProcessEvery   int     `yaml:"process_every"` // 1 disables frame skipping
	MaxReadRetries int     `yaml:"max_read_retries"`
}

type FaceServiceConfig struct {
	URL string `yaml:"url"`
}

type AlertConfig struct {
	Buffer       int    `yaml:"buffer"`
	MQTTBroker   string `yaml:"mqtt_broker"` // host:port, empty disables MQTT
	MQTTTopic    string `yaml:"mqtt_topic"`
	MQTTClientID string `yaml:"mqtt_client_id"`
}

type WebConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"` // CORS whitelist, localhost is always allowed
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// envInt reads an environment variable and parses it as a non-negative integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a positive float.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// envList reads a comma-separated environment variable, dropping empty items.
func envList(key string, defaultVal []string) []string {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	var out []string
	for item := range strings.SplitSeq(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Defaults returns the embedded defaults without looking at the environment.
func Defaults() *Config {
	var cfg Config
	if err := yaml.Unmarshal(defaultsYAML, &cfg); err != nil {
		// Embedded file, so this only fails on a broken build.
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}
	return &cfg
}

func Load() *Config {
	d := Defaults()

	return &Config{
		Database: DatabaseConfig{
			Backend:      envString("DATABASE_BACKEND", d.Database.Backend),
			URL:          envString("DATABASE_URL", d.Database.URL),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", d.Database.MaxOpenConns),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", d.Database.MaxIdleConns),
		},
		Enrollment: EnrollmentConfig{
			Source: envString("ENROLLMENT_SOURCE", d.Enrollment.Source),
			Path:   envString("ENROLLMENT_PATH", d.Enrollment.Path),
		},
		Matcher: MatcherConfig{
			Threshold:      envFloat("MATCH_THRESHOLD", d.Matcher.Threshold),
			Index:          envString("MATCH_INDEX", d.Matcher.Index),
			HNSWCandidates: envInt("MATCH_HNSW_CANDIDATES", d.Matcher.HNSWCandidates),
		},
		Pipeline: PipelineConfig{
			Camera:         envInt("CAMERA_DEVICE", d.Pipeline.Camera),
			Scale:          envFloat("DETECT_SCALE", d.Pipeline.Scale),
			ProcessEvery:   envInt("PROCESS_EVERY", d.Pipeline.ProcessEvery),
			MaxReadRetries: envInt("MAX_READ_RETRIES", d.Pipeline.MaxReadRetries),
		},
		FaceService: FaceServiceConfig{
			URL: envString("FACE_SERVICE_URL", d.FaceService.URL),
		},
		Alert: AlertConfig{
			Buffer:       envInt("ALERT_BUFFER", d.Alert.Buffer),
			MQTTBroker:   envString("MQTT_BROKER", d.Alert.MQTTBroker),
			MQTTTopic:    envString("MQTT_TOPIC", d.Alert.MQTTTopic),
			MQTTClientID: envString("MQTT_CLIENT_ID", d.Alert.MQTTClientID),
		},
		Web: WebConfig{
			Host: envString("WEB_HOST", d.Web.Host),
			Port: envInt("WEB_PORT", d.Web.Port),

			AllowedOrigins: envList("WEB_ALLOWED_ORIGINS", d.Web.AllowedOrigins),
		},
		Log: LogConfig{
			Level: envString("LOG_LEVEL", d.Log.Level),
		},
	}
}
