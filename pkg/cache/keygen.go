package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/goccy/go-json"

	"github.com/switchboard-ai/switchboard/pkg/types"
)

// KeyGenerator derives deterministic cache keys from routing requests.
// Two requests produce the same key iff every field a provider can see is
// identical: intent, model, messages, sampling parameters, and extras.
type KeyGenerator struct {
	// Prefix is prepended to all generated keys.
	Prefix string
}

// NewKeyGenerator creates a key generator with optional prefix.
func NewKeyGenerator(prefix string) *KeyGenerator {
	return &KeyGenerator{Prefix: prefix}
}

// Key computes the SHA-256 cache key for a request.
func (g *KeyGenerator) Key(req *types.Request) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "intent:%s|model:%s", req.Intent, req.Model)
	for _, m := range req.Messages {
		fmt.Fprintf(&sb, "|msg:%s:%s", m.Role, m.Content)
	}
	if req.Temperature != nil {
		fmt.Fprintf(&sb, "|temp:%.2f", *req.Temperature)
	}
	if req.MaxTokens > 0 {
		fmt.Fprintf(&sb, "|max_tokens:%d", req.MaxTokens)
	}

	// Extra fields are hashed in sorted order so map iteration order can
	// never split the key space.
	if len(req.Extra) > 0 {
		keys := make([]string, 0, len(req.Extra))
		for k := range req.Extra {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			raw, _ := json.Marshal(req.Extra[k])
			fmt.Fprintf(&sb, "|%s:%s", k, raw)
		}
	}

	sum := sha256.Sum256([]byte(sb.String()))
	digest := hex.EncodeToString(sum[:])

	if g.Prefix != "" {
		return g.Prefix + ":" + digest
	}
	return digest
}
