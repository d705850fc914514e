package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
)

// Digest is a SHA-256 sum.
type Digest [32]byte

func (d Digest) String() string { return hex.EncodeToString(d[:]) }

// IsZero reports whether d was never computed.
func (d Digest) IsZero() bool { return d == Digest{} }

// Combine hashes content followed by the extra parts in order.
func Combine(content Digest, parts ...string) Digest {
	h := sha256.New()
	_, _ = h.Write(content[:])
	for _, p := range parts {
		_, _ = h.Write([]byte{0})
		_, _ = io.WriteString(h, p)
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}

// HashReader hashes everything r yields.
func HashReader(r io.Reader) (Digest, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return Digest{}, err
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out, nil
}

// HashFile hashes the raw bytes of path. Compressed traces are hashed as
// stored.
func HashFile(path string) (Digest, error) {
	f, err := os.Open(path)
	if err != nil {
		return Digest{}, err
	}
	defer f.Close()
	return HashReader(f)
}

// KeyFor derives the cache key of a trace file analyzed with the options
// described by fingerprint.
func KeyFor(path, fingerprint string) (Digest, error) {
	content, err := HashFile(path)
	if err != nil {
		return Digest{}, err
	}
	return Combine(content, fingerprint), nil
}
