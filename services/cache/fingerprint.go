package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/MissyMedina/autodev-gateway/services/providers"
)

// FingerprintInput carries the semantic fields of a request. Volatile
// metadata (request ids, timestamps, client info) must never be part of it:
// two requests that differ only in such fields share a fingerprint.
type FingerprintInput struct {
	Prompt            string
	TaskType          providers.TaskType
	Model             string
	PreferredProvider string
	MaxTokens         int
	Temperature       float64
}

// Fingerprint computes the deterministic cache key for a request. The prompt
// is whitespace-normalized so trailing-space variants of the same request
// deduplicate; everything else is folded in verbatim with field separators
// that make the encoding injective.
func Fingerprint(in FingerprintInput) string {
	h := sha256.New()

	write := func(field string) {
		h.Write([]byte(strconv.Itoa(len(field))))
		h.Write([]byte{':'})
		h.Write([]byte(field))
	}

	write(strings.TrimSpace(in.Prompt))
	write(string(in.TaskType))
	write(in.Model)
	write(in.PreferredProvider)
	write(strconv.Itoa(in.MaxTokens))
	write(strconv.FormatFloat(in.Temperature, 'g', -1, 64))

	return hex.EncodeToString(h.Sum(nil))
}
