//go:build unix

package hashing

import (
	"errors"
	"hash"
	"io/fs"
	"os"

	"golang.org/x/sys/unix"

	"renderport/internal/logging"
	"renderport/internal/services"
)

// hashMapped feeds the file to the digest through a read-only memory map with
// a sequential access hint. The observable digest is identical to the chunked
// path; only the read strategy differs.
func (h *Hasher) hashMapped(path string, size int64, digester hash.Hash) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return services.Wrap(services.ErrNotFound, "hasher", "open", "file disappeared", err)
		}
		return services.Wrap(services.ErrTransient, "hasher", "open", "open failed", err)
	}
	defer f.Close()

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return services.Wrap(services.ErrTransient, "hasher", "mmap", "memory map failed", err)
	}
	defer func() {
		if err := unix.Munmap(data); err != nil {
			h.logger.Warn("munmap failed", logging.Error(err))
		}
	}()

	if err := unix.Madvise(data, unix.MADV_SEQUENTIAL); err != nil {
		h.logger.Debug("madvise sequential unavailable", logging.Error(err))
	}

	for offset := 0; offset < len(data); offset += h.chunkSize {
		end := offset + h.chunkSize
		if end > len(data) {
			end = len(data)
		}
		if _, err := digester.Write(data[offset:end]); err != nil {
			return services.Wrap(services.ErrTransient, "hasher", "digest", "digest write failed", err)
		}
	}
	return nil
}
