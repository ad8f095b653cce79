// Package idgen implements the Identifier Allocator: short, collision
// resistant issue IDs of the form "<prefix>-<hash>", sampled from random
// bytes and encoded over the base36 alphabet.
package idgen

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/steveyegge/beads/internal/beadserr"
)

const base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// Defaults from spec.md §4.A.
const (
	MinHashLength    = 3
	MaxHashLength    = 8
	MaxCollisionProb = 0.25
	retriesPerLength = 4
)

// EncodeBase36 converts data to a base36 string of exactly length
// characters, left-padding with '0' or truncating to the least significant
// digits as needed.
func EncodeBase36(data []byte, length int) string {
	num := new(big.Int).SetBytes(data)

	base := big.NewInt(36)
	zero := big.NewInt(0)
	mod := new(big.Int)

	chars := make([]byte, 0, length)
	for num.Cmp(zero) > 0 {
		num.DivMod(num, base, mod)
		chars = append(chars, base36Alphabet[mod.Int64()])
	}

	var sb strings.Builder
	for i := len(chars) - 1; i >= 0; i-- {
		sb.WriteByte(chars[i])
	}

	str := sb.String()
	if len(str) < length {
		str = strings.Repeat("0", length-len(str)) + str
	}
	if len(str) > length {
		str = str[len(str)-length:]
	}
	return str
}

// randomHash samples enough random bytes to encode a base36 string of the
// given length and returns the encoded string.
func randomHash(length int) (string, error) {
	// A base36 character carries about 5.17 bits; 5 bits per character plus
	// one extra byte covers that for every supported length.
	numBytes := (length*5)/8 + 1
	buf := make([]byte, numBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("reading random bytes: %w", err)
	}
	return EncodeBase36(buf, length), nil
}

// Exists is satisfied by the store: it reports whether id is already used
// by any row, tombstones included.
type Exists func(id string) (bool, error)

// Allocate produces a collision-free ID of the form "<prefix>-<hash>".
// It must be called inside the mutation transaction that will insert the
// issue, so that uniqueness is serialized with creation.
//
// At each hash length it samples up to retriesPerLength candidates; if all
// collide it extends the length by one and tries again, up to
// MaxHashLength. It fails with KindIDCollision only once MaxHashLength is
// exhausted.
func Allocate(prefix string, exists Exists) (string, error) {
	for length := MinHashLength; length <= MaxHashLength; length++ {
		for attempt := 0; attempt < retriesPerLength; attempt++ {
			hash, err := randomHash(length)
			if err != nil {
				return "", beadserr.Wrap(beadserr.KindInternal, err, "generating random ID")
			}
			id := fmt.Sprintf("%s-%s", prefix, hash)

			taken, err := exists(id)
			if err != nil {
				return "", err
			}
			if !taken {
				return id, nil
			}
		}
	}
	return "", beadserr.New(beadserr.KindIDCollision,
		"could not allocate a unique id for prefix %q after exhausting hash length %d", prefix, MaxHashLength)
}

// SplitID splits an ID of the form "<prefix>-<hash>" into its parts. It
// returns ok=false if id does not contain the separator.
func SplitID(id string) (prefix, hash string, ok bool) {
	idx := strings.LastIndex(id, "-")
	if idx <= 0 || idx == len(id)-1 {
		return "", "", false
	}
	return id[:idx], id[idx+1:], true
}
