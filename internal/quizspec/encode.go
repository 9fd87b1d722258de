package quizspec

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"pubquiz-service/internal/domain"
)

// Marshal renders spec as a YAML document that Validate accepts and maps
// back to an equal spec. Defaulted fields are written out explicitly.
func Marshal(spec *domain.QuizSpec) ([]byte, error) {
	if spec == nil {
		return nil, fmt.Errorf("marshal quiz: nil spec")
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(spec); err != nil {
		return nil, fmt.Errorf("marshal quiz: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("marshal quiz: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeShareToken encodes a document as unpadded URL-safe base64 so it can
// travel in a link.
func EncodeShareToken(document string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(document))
}

// DecodeShareToken reverses EncodeShareToken. Trailing padding is tolerated.
func DecodeShareToken(token string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(strings.TrimSpace(token), "="))
	if err != nil {
		return "", fmt.Errorf("decode share token: %w", err)
	}
	return string(raw), nil
}
