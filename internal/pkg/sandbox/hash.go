// Copyright (c) Contributors to the sandboxrt project.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package sandbox

import (
	"fmt"
	"path/filepath"
)

// hashSeed is a fixed constant; it must never vary between invocations or
// processes, since persistence depends on HashedBasename being stable
// across re-runs.
const hashSeed uint32 = 0x811c9dc5

// mix32 is a one-byte-at-a-time Murmur-style avalanche mix. It is not
// cryptographic and is not meant to be: it only needs to make basename
// collisions between distinct sandbox paths implausible and to be
// perfectly reproducible.
func mix32(s string, seed uint32) uint32 {
	h := seed
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 0x5bd1e995
		h ^= h >> 15
	}
	h ^= uint32(len(s))
	h *= 0x5bd1e995
	h ^= h >> 13
	h *= 0x5bd1e995
	h ^= h >> 15
	return h
}

// HashedBasename returns basename(path) + "-" + hex(h) where h is a stable
// 32-bit hash of the full path, used to derive deterministic, collision-
// resistant overlay workspace directory names.
func HashedBasename(path string) string {
	h := mix32(path, hashSeed)
	return fmt.Sprintf("%s-%08x", filepath.Base(path), h)
}
