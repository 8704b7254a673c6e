package hashing

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"renderport/internal/logging"
	"renderport/internal/services"
)

// Algorithm names a supported digest function. sha256 is the default;
// sha1 and md5 exist for change-detection-only deployments where speed
// matters more than collision resistance.
type Algorithm string

const (
	SHA256 Algorithm = "sha256"
	SHA1   Algorithm = "sha1"
	MD5    Algorithm = "md5"
)

// Parse converts a configured algorithm name into an Algorithm.
func Parse(name string) (Algorithm, error) {
	switch Algorithm(name) {
	case SHA256, SHA1, MD5:
		return Algorithm(name), nil
	default:
		return "", fmt.Errorf("unsupported hash algorithm %q", name)
	}
}

func (a Algorithm) newHash() hash.Hash {
	switch a {
	case SHA1:
		return sha1.New()
	case MD5:
		return md5.New()
	default:
		return sha256.New()
	}
}

// Digest is a content fingerprint tagged with the algorithm that produced it.
type Digest struct {
	Algorithm Algorithm
	Hex       string
}

func (d Digest) String() string {
	return string(d.Algorithm) + ":" + d.Hex
}

// Equal compares digests; digests from different algorithms never match.
func (d Digest) Equal(other Digest) bool {
	return d.Algorithm == other.Algorithm && d.Hex == other.Hex
}

// IsZero reports whether the digest is unset.
func (d Digest) IsZero() bool {
	return d.Hex == ""
}

const (
	defaultChunkSize     = 1 << 20
	defaultMmapThreshold = 256 << 20
)

// Hasher computes content fingerprints with bounded memory. Files below the
// mmap threshold are read in fixed-size chunks; larger files go through a
// memory map with a sequential access hint. Both paths produce identical
// digests for the same bytes.
type Hasher struct {
	algorithm     Algorithm
	chunkSize     int
	mmapThreshold int64
	logger        *slog.Logger
}

// Option customizes hasher construction.
type Option func(*Hasher)

// WithChunkSize overrides the read chunk size in bytes.
func WithChunkSize(size int) Option {
	return func(h *Hasher) {
		if size > 0 {
			h.chunkSize = size
		}
	}
}

// WithMmapThreshold overrides the size in bytes at which the mmap read path
// is used.
func WithMmapThreshold(threshold int64) Option {
	return func(h *Hasher) {
		if threshold > 0 {
			h.mmapThreshold = threshold
		}
	}
}

// New constructs a hasher for the given algorithm. A Hasher is safe for
// concurrent use; each fingerprint call opens its own read handle.
func New(algorithm Algorithm, logger *slog.Logger, opts ...Option) *Hasher {
	h := &Hasher{
		algorithm:     algorithm,
		chunkSize:     defaultChunkSize,
		mmapThreshold: defaultMmapThreshold,
		logger:        logging.NewComponentLogger(logger, "hasher"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Algorithm returns the digest algorithm this hasher is configured with.
func (h *Hasher) Algorithm() Algorithm {
	return h.algorithm
}

// Fingerprint computes the content digest of the file at path. It never
// returns a partial digest: a read failure mid-stream fails the whole call.
func (h *Hasher) Fingerprint(path string) (Digest, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Digest{}, services.Wrap(services.ErrNotFound, "hasher", "stat", "file does not exist", err)
		}
		return Digest{}, services.Wrap(services.ErrTransient, "hasher", "stat", "stat failed", err)
	}

	digester := h.algorithm.newHash()

	if info.Size() >= h.mmapThreshold && info.Size() > 0 {
		if err := h.hashMapped(path, info.Size(), digester); err == nil {
			return h.finish(digester), nil
		} else if errors.Is(err, services.ErrNotFound) {
			return Digest{}, err
		}
		// mmap can fail on some filesystems; fall through to chunked reads.
		digester = h.algorithm.newHash()
	}

	if err := h.hashChunked(path, digester); err != nil {
		return Digest{}, err
	}
	return h.finish(digester), nil
}

// Verify recomputes the digest of path and compares it to expected.
func (h *Hasher) Verify(path string, expected Digest) (bool, error) {
	actual, err := h.Fingerprint(path)
	if err != nil {
		return false, err
	}
	return actual.Equal(expected), nil
}

func (h *Hasher) finish(digester hash.Hash) Digest {
	return Digest{
		Algorithm: h.algorithm,
		Hex:       hex.EncodeToString(digester.Sum(nil)),
	}
}

func (h *Hasher) hashChunked(path string, digester hash.Hash) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return services.Wrap(services.ErrNotFound, "hasher", "open", "file disappeared", err)
		}
		return services.Wrap(services.ErrTransient, "hasher", "open", "open failed", err)
	}
	defer f.Close()

	buf := make([]byte, h.chunkSize)
	for {
		n, readErr := f.Read(buf)
		if n > 0 {
			if _, err := digester.Write(buf[:n]); err != nil {
				return services.Wrap(services.ErrTransient, "hasher", "digest", "digest write failed", err)
			}
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return services.Wrap(services.ErrTransient, "hasher", "read", "read failed mid-stream", readErr)
		}
	}
}
