package typedjson

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// HashAlgo names a hashing algorithm. Use in struct tags:
// `typedjson:"digest=sha256"`.
type HashAlgo string

const (
	// HashArgon2 is salted Argon2id, for passwords.
	HashArgon2 HashAlgo = "argon2"

	// HashBcrypt is salted bcrypt, for passwords.
	HashBcrypt HashAlgo = "bcrypt"

	// HashSHA256 is deterministic hex SHA-256, for fingerprints.
	HashSHA256 HashAlgo = "sha256"

	// HashSHA512 is deterministic hex SHA-512, for fingerprints.
	HashSHA512 HashAlgo = "sha512"
)

// Hasher performs one-way hashing.
type Hasher interface {
	// Hash returns the encoded digest of plaintext. Password hashers include
	// their salt and parameters in the result.
	Hash(plaintext []byte) (string, error)
}

// HasherFunc adapts a function to Hasher.
type HasherFunc func(plaintext []byte) (string, error)

// Hash calls f.
func (f HasherFunc) Hash(plaintext []byte) (string, error) { return f(plaintext) }

// Argon2Params configures Argon2id hashing.
type Argon2Params struct {
	Time    uint32 // iterations
	Memory  uint32 // KiB
	Threads uint8
	KeyLen  uint32
	SaltLen uint32
}

// DefaultArgon2Params returns the OWASP-recommended Argon2id parameters.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{Time: 1, Memory: 64 * 1024, Threads: 4, KeyLen: 32, SaltLen: 16}
}

// Argon2 returns an Argon2id hasher producing PHC-formatted strings.
func Argon2(p Argon2Params) Hasher {
	return HasherFunc(func(plaintext []byte) (string, error) {
		salt := make([]byte, p.SaltLen)
		if _, err := io.ReadFull(rand.Reader, salt); err != nil {
			return "", fmt.Errorf("generate salt: %w", err)
		}
		key := argon2.IDKey(plaintext, salt, p.Time, p.Memory, p.Threads, p.KeyLen)
		return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
			argon2.Version, p.Memory, p.Time, p.Threads,
			base64.RawStdEncoding.EncodeToString(salt),
			base64.RawStdEncoding.EncodeToString(key),
		), nil
	})
}

// Bcrypt returns a bcrypt hasher with the given cost.
func Bcrypt(cost int) Hasher {
	return HasherFunc(func(plaintext []byte) (string, error) {
		out, err := bcrypt.GenerateFromPassword(plaintext, cost)
		if err != nil {
			return "", fmt.Errorf("bcrypt: %w", err)
		}
		return string(out), nil
	})
}

// SHA256 returns a hex SHA-256 hasher.
func SHA256() Hasher {
	return HasherFunc(func(plaintext []byte) (string, error) {
		sum := sha256.Sum256(plaintext)
		return hex.EncodeToString(sum[:]), nil
	})
}

// SHA512 returns a hex SHA-512 hasher.
func SHA512() Hasher {
	return HasherFunc(func(plaintext []byte) (string, error) {
		sum := sha512.Sum512(plaintext)
		return hex.EncodeToString(sum[:]), nil
	})
}

// builtinHashers maps tag algorithm names to hashers with default settings.
func builtinHashers() map[HashAlgo]Hasher {
	return map[HashAlgo]Hasher{
		HashArgon2: Argon2(DefaultArgon2Params()),
		HashBcrypt: Bcrypt(bcrypt.DefaultCost),
		HashSHA256: SHA256(),
		HashSHA512: SHA512(),
	}
}

// Digest returns a member converter that writes the hash of a string or
// []byte value and reads the stored digest back as a string.
func Digest(h Hasher) Converter {
	return Converter{
		Serialize: func(v any, _ SerializeFallback) (any, error) {
			if isNilAny(v) {
				return nil, nil
			}
			var plaintext []byte
			switch x := v.(type) {
			case []byte:
				plaintext = x
			default:
				s, ok := stringValue(v)
				if !ok {
					return nil, fmt.Errorf("digest: got %T", v)
				}
				plaintext = []byte(s)
			}
			return h.Hash(plaintext)
		},
		Deserialize: func(raw any, _ DeserializeFallback) (any, error) {
			if raw == nil {
				return nil, nil
			}
			s, ok := raw.(string)
			if !ok {
				return nil, fmt.Errorf("digest: got %T", raw)
			}
			return s, nil
		},
	}
}
