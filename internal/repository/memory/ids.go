package memory

import (
	"crypto/rand"
	"encoding/binary"
)

// randomID draws uniformly from the full uint32 range until taken reports false.
// Callers must hold the lock guarding whatever taken inspects.
func randomID(taken func(uint32) bool) uint32 {
	var buf [4]byte
	for {
		if _, err := rand.Read(buf[:]); err != nil {
			// crypto/rand.Read never returns an error on supported platforms.
			panic(err)
		}
		id := binary.BigEndian.Uint32(buf[:])
		if !taken(id) {
			return id
		}
	}
}
