package krypto

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

// ErrInvalidInput indicates the input could not be hashed or parsed.
var ErrInvalidInput = errors.New("invalid input")

const (
	argon2Variant = "argon2id"

	saltLen = 16
	hashLen = 32

	// Parameters follow the second recommended option of the OWASP
	// password storage cheat sheet: m=46MiB, t=1, p=1.
	defaultMemoryKiB   = 47104
	defaultIterations  = 1
	defaultParallelism = 1
)

// Argon2Hash is an argon2id hash together with the parameters that were
// used to derive it. Its text form is the PHC string format:
//
//	$argon2id$v=19$m=47104,t=1,p=1$<salt>$<hash>
type Argon2Hash struct {
	Variant     string
	Version     int
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
	Salt        []byte
	Hash        []byte
}

// HashArgon2 hashes b with a random salt and the default parameters.
func HashArgon2(b []byte) (Argon2Hash, error) {
	if len(b) == 0 {
		return Argon2Hash{}, ErrInvalidInput
	}

	salt, err := genRandomBytes(saltLen)
	if err != nil {
		return Argon2Hash{}, err
	}

	h := Argon2Hash{
		Variant:     argon2Variant,
		Version:     argon2.Version,
		MemoryKiB:   defaultMemoryKiB,
		Iterations:  defaultIterations,
		Parallelism: defaultParallelism,
		Salt:        salt,
	}

	h.Hash = h.derive(b, hashLen)
	return h, nil
}

// ParseArgon2Hash parses a hash in the PHC string format.
func ParseArgon2Hash(s string) (Argon2Hash, error) {
	parts := strings.Split(s, "$")
	if len(parts) != 6 || parts[0] != "" {
		return Argon2Hash{}, fmt.Errorf("%w: unexpected number of segments", ErrInvalidInput)
	}

	if parts[1] != argon2Variant {
		return Argon2Hash{}, fmt.Errorf("%w: unsupported variant %q", ErrInvalidInput, parts[1])
	}

	h := Argon2Hash{
		Variant: parts[1],
	}

	version, ok := strings.CutPrefix(parts[2], "v=")
	if !ok {
		return Argon2Hash{}, fmt.Errorf("%w: missing version", ErrInvalidInput)
	}

	var err error
	h.Version, err = strconv.Atoi(version)
	if err != nil {
		return Argon2Hash{}, fmt.Errorf("%w: version: %w", ErrInvalidInput, err)
	}

	if h.Version != argon2.Version {
		return Argon2Hash{}, fmt.Errorf("%w: unsupported version %d", ErrInvalidInput, h.Version)
	}

	params := strings.Split(parts[3], ",")
	if len(params) != 3 {
		return Argon2Hash{}, fmt.Errorf("%w: unexpected number of parameters", ErrInvalidInput)
	}

	m, err := parseParam(params[0], "m=", 32)
	if err != nil {
		return Argon2Hash{}, err
	}

	t, err := parseParam(params[1], "t=", 32)
	if err != nil {
		return Argon2Hash{}, err
	}

	p, err := parseParam(params[2], "p=", 8)
	if err != nil {
		return Argon2Hash{}, err
	}

	h.MemoryKiB = uint32(m)
	h.Iterations = uint32(t)
	h.Parallelism = uint8(p)

	h.Salt, err = base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return Argon2Hash{}, fmt.Errorf("%w: salt: %w", ErrInvalidInput, err)
	}

	h.Hash, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return Argon2Hash{}, fmt.Errorf("%w: hash: %w", ErrInvalidInput, err)
	}

	return h, nil
}

func parseParam(s, prefix string, bitSize int) (uint64, error) {
	raw, ok := strings.CutPrefix(s, prefix)
	if !ok {
		return 0, fmt.Errorf("%w: expected parameter %q", ErrInvalidInput, prefix)
	}

	v, err := strconv.ParseUint(raw, 10, bitSize)
	if err != nil {
		return 0, fmt.Errorf("%w: parameter %q: %w", ErrInvalidInput, prefix, err)
	}

	return v, nil
}

// MatchBytes reports whether b hashes to h using the parameters of h.
// The comparison of the derived keys is done in constant time.
func (h Argon2Hash) MatchBytes(b []byte) bool {
	if len(h.Hash) == 0 {
		return false
	}

	other := h.derive(b, uint32(len(h.Hash)))
	return subtle.ConstantTimeCompare(h.Hash, other) == 1
}

func (h Argon2Hash) derive(b []byte, keyLen uint32) []byte {
	return argon2.IDKey(b, h.Salt, h.Iterations, h.MemoryKiB, h.Parallelism, keyLen)
}

// String returns the PHC string format of the hash.
func (h Argon2Hash) String() string {
	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		h.Variant,
		h.Version,
		h.MemoryKiB,
		h.Iterations,
		h.Parallelism,
		base64.RawStdEncoding.EncodeToString(h.Salt),
		base64.RawStdEncoding.EncodeToString(h.Hash),
	)
}

func (h Argon2Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *Argon2Hash) UnmarshalText(text []byte) error {
	parsed, err := ParseArgon2Hash(string(text))
	if err != nil {
		return err
	}

	*h = parsed
	return nil
}

// Scan implements the sql.Scanner interface.
func (h *Argon2Hash) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return h.UnmarshalText([]byte(v))
	case []byte:
		return h.UnmarshalText(v)
	default:
		return fmt.Errorf("cannot scan %T into Argon2Hash", src)
	}
}

func genRandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	if err != nil {
		return nil, err
	}
	return b, nil
}
