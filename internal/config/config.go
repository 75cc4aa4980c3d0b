package config

import (
	_ "embed"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Web         WebConfig
	Gallery     GalleryConfig
	Recognition RecognitionConfig
	Video       VideoConfig
	Camera      CameraConfig
	Database    DatabaseConfig
	LogLevel    string
}

type WebConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string // "*" allows every origin
}

type GalleryConfig struct {
	Backend         string // gcs, s3 or local
	Bucket          string
	Prefix          string // object prefix holding one folder per identity
	Dir             string // root directory for the local backend
	CredentialsFile string // service account JSON for the gcs backend (Firebase secret)
	Region          string // AWS region for the s3 backend
}

type RecognitionConfig struct {
	Backend      string  // dlib or remote
	ModelsDir    string  // dlib model directory
	EmbeddingURL string  // face embedding service for the remote backend
	Threshold    float64 // maximum (exclusive) distance accepted as a match
}

type VideoConfig struct {
	UploadDir     string
	Retention     time.Duration
	MaxUploadSize int64 // bytes
	SweepInterval time.Duration
}

type CameraConfig struct {
	Device     int
	Width      int
	Height     int
	GCInterval int // frames between manual memory reclamation
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL, empty disables the embedding cache
	MaxOpenConns int
	MaxIdleConns int
}

// defaults mirrors defaults.yaml.
type defaults struct {
	Web struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"web"`
	Gallery struct {
		Backend string `yaml:"backend"`
		Prefix  string `yaml:"prefix"`
		Dir     string `yaml:"dir"`
	} `yaml:"gallery"`
	Recognition struct {
		Backend   string  `yaml:"backend"`
		ModelsDir string  `yaml:"models_dir"`
		Threshold float64 `yaml:"threshold"`
	} `yaml:"recognition"`
	Video struct {
		UploadDir     string        `yaml:"upload_dir"`
		Retention     time.Duration `yaml:"retention"`
		MaxUploadMB   int           `yaml:"max_upload_mb"`
		SweepInterval time.Duration `yaml:"sweep_interval"`
	} `yaml:"video"`
	Camera struct {
		Device     int `yaml:"device"`
		Width      int `yaml:"width"`
		Height     int `yaml:"height"`
		GCInterval int `yaml:"gc_interval"`
	} `yaml:"camera"`
	Database struct {
		MaxOpenConns int `yaml:"max_open_conns"`
		MaxIdleConns int `yaml:"max_idle_conns"`
	} `yaml:"database"`
	LogLevel string `yaml:"log_level"`
}

// envString returns the environment variable or defaultVal when unset or empty.
func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envNonNegativeInt is envInt but accepts zero (camera device 0 is the default webcam).
func envNonNegativeInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 {
		return n
	}
	return defaultVal
}

// envFloat reads a positive float, falling back to defaultVal.
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

// envDuration reads a positive Go duration ("1h", "90m"), falling back to defaultVal.
func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return defaultVal
}

// envList splits a comma-separated variable, dropping empty items.
func envList(key string) []string {
	var out []string
	for item := range strings.SplitSeq(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func Load() *Config {
	var d defaults
	if err := yaml.Unmarshal(defaultsYAML, &d); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}

	return &Config{
		Web: WebConfig{
			Host:           envString("WEB_HOST", d.Web.Host),
			Port:           envInt("WEB_PORT", d.Web.Port),
			AllowedOrigins: envList("WEB_ALLOWED_ORIGINS"),
		},
		Gallery: GalleryConfig{
			Backend:         envString("GALLERY_BACKEND", d.Gallery.Backend),
			Bucket:          os.Getenv("GALLERY_BUCKET"),
			Prefix:          envString("GALLERY_PREFIX", d.Gallery.Prefix),
			Dir:             envString("GALLERY_DIR", d.Gallery.Dir),
			CredentialsFile: os.Getenv("GALLERY_CREDENTIALS_FILE"),
			Region:          os.Getenv("AWS_REGION"),
		},
		Recognition: RecognitionConfig{
			Backend:      envString("RECOGNIZER", d.Recognition.Backend),
			ModelsDir:    envString("MODELS_DIR", d.Recognition.ModelsDir),
			EmbeddingURL: os.Getenv("EMBEDDING_URL"),
			Threshold:    envFloat("MATCH_THRESHOLD", d.Recognition.Threshold),
		},
		Video: VideoConfig{
			UploadDir:     envString("UPLOAD_DIR", d.Video.UploadDir),
			Retention:     envDuration("VIDEO_RETENTION", d.Video.Retention),
			MaxUploadSize: int64(envInt("MAX_UPLOAD_MB", d.Video.MaxUploadMB)) << 20,
			SweepInterval: envDuration("VIDEO_SWEEP_INTERVAL", d.Video.SweepInterval),
		},
		Camera: CameraConfig{
			Device:     envNonNegativeInt("CAMERA_DEVICE", d.Camera.Device),
			Width:      envInt("CAMERA_WIDTH", d.Camera.Width),
			Height:     envInt("CAMERA_HEIGHT", d.Camera.Height),
			GCInterval: envInt("GC_INTERVAL", d.Camera.GCInterval),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", d.Database.MaxOpenConns),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", d.Database.MaxIdleConns),
		},
		LogLevel: envString("LOG_LEVEL", d.LogLevel),
	}
}

// AllowsAnyOrigin reports whether CORS is open to every origin.
func (c *WebConfig) AllowsAnyOrigin() bool {
	for _, o := range c.AllowedOrigins {
		if o == "*" {
			return true
		}
	}
	return false
}
