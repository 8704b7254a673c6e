//go:build !unix

package hashing

import "hash"

func (h *Hasher) hashMapped(path string, size int64, digester hash.Hash) error {
	return h.hashChunked(path, digester)
}
