package project

import (
	"crypto/sha256"
	"encoding/hex"
)

// Digest - фиксированный 256 битный хеш (совместим с source.File.Hash)
type Digest [32]byte

func (d Digest) String() string { return hex.EncodeToString(d[:]) }

// Combine строит хеш входов сборки: H( manifest || res1 || res2 ... ).
// Порядок ресурсов должен совпадать с порядком в манифесте.
func Combine(content Digest, deps ...Digest) Digest {
	h := sha256.New()
	_, _ = h.Write(content[:])
	for _, d := range deps {
		_, _ = h.Write(d[:])
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}
