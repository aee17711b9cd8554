package checksum

import (
	"bytes"
	"encoding/gob"
)

// KeySeparator separates the algorithm prefix from the path in cache keys.
const KeySeparator = '\x00'

// keyAlgorithm namespaces keys so a future digest change cannot collide
// with existing entries.
const keyAlgorithm = "sha256"

// Entry memoizes the digest of one image file.
type Entry struct {
	Digest string // Hex digest of the file contents
	Size   int64  // File size in bytes at hash time
	Mtime  int64  // Modification time as UnixNano at hash time
}

// Valid reports whether the entry still describes a file with the given
// size and modification time.
func (e *Entry) Valid(size, mtime int64) bool {
	return e.Size == size && e.Mtime == mtime
}

// Encode serializes the entry to bytes using gob.
func (e *Entry) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(e); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode deserializes bytes into the entry using gob.
func (e *Entry) Decode(data []byte) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(e)
}

// MakeKey creates a cache key for an absolute image path.
// Format: sha256\x00<path>
func MakeKey(path string) []byte {
	return []byte(keyAlgorithm + string(KeySeparator) + path)
}

// MakeKeyPrefix returns the prefix shared by all digest keys.
func MakeKeyPrefix() []byte {
	return []byte(keyAlgorithm + string(KeySeparator))
}

// ParseKey extracts the path from a cache key.
func ParseKey(key []byte) string {
	idx := bytes.IndexByte(key, KeySeparator)
	if idx == -1 {
		return string(key)
	}
	return string(key[idx+1:])
}
