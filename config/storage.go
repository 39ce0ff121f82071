package config

import (
	"os"
	"strings"
)

// ArtifactConfig says where rendered documents are staged before download or mailing.
type ArtifactConfig struct {
	Provider           string
	Dir                string
	GCSBucket          string
	GCSPrefix          string
	GCSCredentialsJSON string
}

func GetArtifactConfig() ArtifactConfig {
	return ArtifactConfig{
		Provider:           ArtifactProvider(),
		Dir:                strings.TrimSpace(os.Getenv("ARTIFACT_DIR")),
		GCSBucket:          strings.TrimSpace(os.Getenv("GCS_BUCKET")),
		GCSPrefix:          envOr("GCS_ARTIFACT_PREFIX", "invoice-artifacts"),
		GCSCredentialsJSON: strings.TrimSpace(os.Getenv("GCS_CREDENTIALS_JSON")),
	}
}

// HTTPPort reads API_PORT, then PORT, then falls back to 8080.
func HTTPPort() string {
	for _, key := range []string{"API_PORT", "PORT"} {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	return "8080"
}
