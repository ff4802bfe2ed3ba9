package utils

import (
	"fmt"
	"hash/fnv"
)

func HashBytesToUint64(b []byte) uint64 {
	h := fnv.New64a()
	_, _ = h.Write(b)
	return h.Sum64()
}

// Fingerprint is the file identity recorded in import logs.
func Fingerprint(b []byte) string {
	return fmt.Sprintf("%016x", HashBytesToUint64(b))
}
