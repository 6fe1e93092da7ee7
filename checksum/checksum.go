package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
)

func Sha256(bytes []byte) []byte {
	h := sha256.Sum256(bytes)
	return h[:]
}

func HexEncodeStr(bytes []byte) string {
	return hex.EncodeToString(bytes)
}

func NewSha256() hash.Hash {
	return sha256.New()
}

// Sha256Parts hashes parts joined by a NUL byte, so ("ab", "c") and
// ("a", "bc") never collide.
func Sha256Parts(parts ...string) []byte {
	h := NewSha256()
	for i, p := range parts {
		if i > 0 {
			h.Write([]byte{0})
		}
		h.Write([]byte(p))
	}
	return h.Sum(nil)
}
