package engine

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
)

// NewSeed generates a random seed using crypto/rand
func NewSeed() (uint64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

// SeedOrRandom returns seed unchanged when non-zero, otherwise a fresh random seed.
// It falls back to a fixed seed only if the system random source fails.
func SeedOrRandom(seed uint64) uint64 {
	if seed != 0 {
		return seed
	}
	s, err := NewSeed()
	if err != nil {
		return 1
	}
	return s
}
