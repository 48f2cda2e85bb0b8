package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// hashKey generates a cache key by hashing the components.
// The key format is: prefix:hash(parts...)
func hashKey(prefix string, parts ...interface{}) string {
	data, _ := json.Marshal(parts)
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%s:%s", prefix, hex.EncodeToString(hash[:]))
}

// Hash computes a SHA-256 hash of the input data.
// Returns the full 64-character hex string.
func Hash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// DefaultKeyer builds unscoped keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// BlocksKey keeps collection and track readable so a whole collection can be
// inspected in redis with a prefix scan.
func (DefaultKeyer) BlocksKey(collection, generation, track string, region RegionKey) string {
	return hashKey(fmt.Sprintf("blocks:%s:%s", collection, track), generation, region)
}

// FrameKey hashes every option that influences the rendered pixels.
func (DefaultKeyer) FrameKey(opts FrameKeyOpts) string {
	return hashKey("frame", opts)
}

// GenerationKey is not hashed; there is one per collection.
func (DefaultKeyer) GenerationKey(collection string) string {
	return "gen:" + collection
}
