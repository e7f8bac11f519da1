package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Settings carries every tunable the pipeline reads. Values come from the
// environment with defaults matching production behaviour; godotenv is loaded
// by the binaries before Load is called.
type Settings struct {
	ProjectName string
	APIPrefix   string

	DatabaseURL string

	// Model service (OpenAI-compatible endpoint).
	ModelEndpoint     string
	ModelAPIKey       string
	ModelAPIVersion   string
	ModelDeployment   string
	VisionDeployment  string

	UploadDir     string
	MaxFileSizeMB int64

	PDFToImageDPI    int
	CheckSpecificDPI map[string]int

	// Tampering thresholds.
	DimensionMinHeight   int
	DimensionMinWidth    int
	SharpnessThreshold   float64
	SharpnessSpreadRatio float64
	SharpnessMaxStdDev   float64

	AllowedOrigins []string
	APIAuthToken   string

	// Path to the per-agent provider routing YAML.
	AgentConfigPath string
}

// Load builds Settings from the environment.
func Load() *Settings {
	s := &Settings{
		ProjectName: "statement_analysis",
		APIPrefix:   "/api",

		DatabaseURL: os.Getenv("DATABASE_URL"),

		ModelEndpoint:    os.Getenv("MODEL_ENDPOINT"),
		ModelAPIKey:      os.Getenv("MODEL_API_KEY"),
		ModelAPIVersion:  envOr("MODEL_API_VERSION", "2024-12-01-preview"),
		ModelDeployment:  envOr("MODEL_DEPLOYMENT", "gpt-4o"),
		VisionDeployment: envOr("MODEL_VISION_DEPLOYMENT", "gpt-4o"),

		UploadDir:     envOr("UPLOAD_DIR", filepath.Join(".", "uploads")),
		MaxFileSizeMB: envInt64("MAX_FILE_SIZE_MB", 50),

		PDFToImageDPI: envInt("PDF_TO_IMAGE_DPI", 200),
		CheckSpecificDPI: map[string]int{
			"document_dimension": 300,
			"page_clarity":       300,
			"sharpness_spread":   300,
			"visual_tampering":   150,
		},

		DimensionMinHeight:   envInt("DIMENSION_MIN_HEIGHT", 800),
		DimensionMinWidth:    envInt("DIMENSION_MIN_WIDTH", 1000),
		SharpnessThreshold:   envFloat("SHARPNESS_THRESHOLD", 500.0),
		SharpnessSpreadRatio: envFloat("SHARPNESS_SPREAD_RATIO", 0.5),
		SharpnessMaxStdDev:   envFloat("SHARPNESS_MAX_STD_DEV", 100.0),

		APIAuthToken:    os.Getenv("API_AUTH_TOKEN"),
		AgentConfigPath: envOr("AGENT_CONFIG_PATH", filepath.Join("configs", "agents.yaml")),
	}

	origins := envOr("ALLOWED_ORIGINS", "http://localhost:3000,http://127.0.0.1:3000")
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			s.AllowedOrigins = append(s.AllowedOrigins, o)
		}
	}

	return s
}

// EnsureUploadDir creates the upload directory if it does not exist.
func (s *Settings) EnsureUploadDir() error {
	return os.MkdirAll(s.UploadDir, 0o755)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
