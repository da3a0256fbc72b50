package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/thiremani/sexpc/config"
)

// Suffix ends every entry name.
const Suffix = ".asm"

// Key fingerprints a compilation unit: its source and the configuration it
// was compiled for.
type Key struct {
	sum [sha256.Size]byte
}

func NewKey(source string, cfg config.Configuration) Key {
	h := sha256.New()
	h.Write([]byte(cfg.String()))
	h.Write([]byte{0})
	h.Write([]byte(source))

	var k Key
	copy(k.sum[:], h.Sum(nil))
	return k
}

func (k Key) String() string {
	return hex.EncodeToString(k.sum[:])
}

// Name is the entry file name: 16 hex characters and Suffix.
func (k Key) Name() string {
	return k.String()[:16] + Suffix
}

// IsEntryName reports whether name has the form produced by Key.Name.
func IsEntryName(name string) bool {
	base, ok := strings.CutSuffix(name, Suffix)
	if !ok || len(base) != 16 {
		return false
	}
	_, err := hex.DecodeString(base)
	return err == nil
}
