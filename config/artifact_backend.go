package config

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ArtifactBackend selects where derived artifacts (transcripts) are stored.
type ArtifactBackend string

const (
	AB_LOCAL ArtifactBackend = "local"
	AB_MINIO ArtifactBackend = "minio"
)

func (ab ArtifactBackend) String() string {
	switch ab {
	case AB_LOCAL:
		return "local"
	case AB_MINIO:
		return "minio"
	default:
		return "Unknown"
	}
}

func ParseArtifactBackend(s string) (ArtifactBackend, error) {
	a := ArtifactBackend(strings.ToLower(s))
	switch a {
	case AB_LOCAL, AB_MINIO:
		return a, nil
	default:
		return "", fmt.Errorf("invalid artifact backend: %s", s)
	}
}

func (ab *ArtifactBackend) UnmarshalJSON(data []byte) error {
	var maybeBackend string
	err := json.Unmarshal(data, &maybeBackend)
	if err != nil {
		return err
	}
	parsed, err := ParseArtifactBackend(maybeBackend)
	if err != nil {
		return fmt.Errorf("unknown artifact backend: %s. supported backends: %s, %s", maybeBackend, AB_LOCAL, AB_MINIO)
	}
	*ab = parsed
	return nil
}
