package cache

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/JonnyShabli/ghsync/internal/models"
)

type normPattern struct {
	regex       *regexp.Regexp
	replacement []byte
}

// Normalizer rewrites volatile, non-semantic parts of a payload so that
// upstream churn does not change the content identifier.
type Normalizer struct {
	patterns []*normPattern
}

// NewDefaultNormalizer handles the rotating avatar hosts GitHub hands out:
//   - https://0.gravatar.com, https://1.gravatar.com, ...
//   - https://avatars0.githubusercontent.com, https://avatars3.githubusercontent.com, ...
func NewDefaultNormalizer() *Normalizer {
	return &Normalizer{
		patterns: []*normPattern{
			{
				regex:       regexp.MustCompile(`https://\d\.gravatar`),
				replacement: []byte("https://gravatar"),
			},
			{
				regex:       regexp.MustCompile(`https://avatars\d+\.githubusercontent\.com`),
				replacement: []byte("https://avatars.githubusercontent.com"),
			},
		},
	}
}

func (n *Normalizer) Normalize(content []byte) []byte {
	result := content
	for _, p := range n.patterns {
		result = p.regex.ReplaceAll(result, p.replacement)
	}
	return result
}

// Hasher computes content identifiers for fetched payloads.
type Hasher struct {
	normalizer *Normalizer
}

func NewHasher() *Hasher {
	return &Hasher{normalizer: NewDefaultNormalizer()}
}

// ID returns the content identifier of payload. File resources carry their
// own content hash in the "sha" field and that is used as is. Everything else
// is digested over its canonical, normalized JSON form.
func (h *Hasher) ID(kind models.Kind, payload json.RawMessage) (string, error) {
	if kind == models.KindFile {
		var file struct {
			Sha string `json:"sha"`
		}
		if err := json.Unmarshal(payload, &file); err == nil && file.Sha != "" {
			return file.Sha, nil
		}
	}

	canonical, err := Canonical(payload)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(h.normalizer.Normalize(canonical))
	return hex.EncodeToString(sum[:]), nil
}

// Canonical re-encodes a JSON document with sorted object keys and no
// insignificant whitespace.
func Canonical(payload json.RawMessage) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()

	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}

	out, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return out, nil
}
