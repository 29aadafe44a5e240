package config

import (
	"flag"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port  string
	Env   string
	LLM   LLMConfig
	Store StoreConfig
	Audit AuditConfig
}

type LLMConfig struct {
	APIKey    string
	Model     string
	ChunkSize int
	// Fake swaps the Gemini engine for the deterministic offline engine.
	Fake bool
}

type StoreConfig struct {
	// PGDSN selects the Postgres backend; empty falls back to the file
	// backend at Path.
	PGDSN string
	Path  string
}

type AuditConfig struct {
	Enabled   bool
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	port := flag.String("port", ":8081", "server port")
	flag.Parse()

	if envPort := os.Getenv("PORT"); envPort != "" {
		if strings.HasPrefix(envPort, ":") {
			*port = envPort
		} else {
			*port = ":" + envPort
		}
	}

	env := strings.TrimSpace(os.Getenv("APP_ENV"))
	if env == "" {
		env = "local"
	}

	return &Config{
		Port:  *port,
		Env:   env,
		LLM:   loadLLMConfig(),
		Store: loadStoreConfig(),
		Audit: loadAuditConfig(env),
	}, nil
}

func loadLLMConfig() LLMConfig {
	chunk := 0
	if raw := strings.TrimSpace(os.Getenv("LLM_CHUNK_SIZE")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			chunk = n
		}
	}
	fake := false
	if raw := strings.TrimSpace(os.Getenv("LLM_FAKE")); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			fake = v
		}
	}
	return LLMConfig{
		APIKey:    strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		Model:     firstNonEmpty(strings.TrimSpace(os.Getenv("LLM_MODEL")), "gemini-2.5-flash"),
		ChunkSize: chunk,
		Fake:      fake,
	}
}

func loadStoreConfig() StoreConfig {
	return StoreConfig{
		PGDSN: strings.TrimSpace(os.Getenv("TRANSCRIPT_STORE_PG_DSN")),
		Path:  firstNonEmpty(strings.TrimSpace(os.Getenv("TRANSCRIPT_STORE_PATH")), "data/transcripts.json"),
	}
}

func loadAuditConfig(env string) AuditConfig {
	endpoint := resolveAuditEndpoint(env)
	return AuditConfig{
		Enabled:   endpoint != "",
		Endpoint:  endpoint,
		Region:    firstNonEmpty(strings.TrimSpace(os.Getenv("AUDIT_S3_REGION")), "us-east-1"),
		AccessKey: firstNonEmpty(strings.TrimSpace(os.Getenv("AUDIT_S3_ACCESS_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_USER"))),
		SecretKey: firstNonEmpty(strings.TrimSpace(os.Getenv("AUDIT_S3_SECRET_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_PASSWORD"))),
		Bucket:    firstNonEmpty(strings.TrimSpace(os.Getenv("AUDIT_S3_BUCKET")), "appforge-milestones"),
		UseSSL:    resolveAuditUseSSL(env),
	}
}

func resolveAuditEndpoint(env string) string {
	if strings.EqualFold(strings.TrimSpace(env), "local") {
		return strings.TrimSpace(os.Getenv("AUDIT_MINIO_ENDPOINT"))
	}
	return strings.TrimSpace(os.Getenv("AUDIT_S3_ENDPOINT"))
}

func resolveAuditUseSSL(env string) bool {
	if strings.EqualFold(strings.TrimSpace(env), "local") {
		return false
	}
	raw := strings.TrimSpace(os.Getenv("AUDIT_S3_USE_SSL"))
	if raw == "" {
		return true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return true
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
