package voicecache

import (
	"crypto/md5" //nolint:gosec
	"encoding/hex"
)

// Key identifies one cached utterance.
type Key string

// KeyFor returns the lowercase hex MD5 of voice followed by text. The bytes
// are hashed exactly as given.
func KeyFor(voice, text string) Key {
	sum := md5.Sum([]byte(voice + text)) //nolint:gosec
	return Key(hex.EncodeToString(sum[:]))
}

func (k Key) String() string {
	return string(k)
}

func (k Key) valid() bool {
	if len(k) != hex.EncodedLen(md5.Size) {
		return false
	}
	for _, r := range k {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}
