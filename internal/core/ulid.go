// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ClawWorld Contributors

package core

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropy     = ulid.Monotonic(rand.Reader, 0)
	entropyLock sync.Mutex
)

// NewULID returns a monotonic ULID. Ids minted in the same millisecond still
// sort in creation order.
func NewULID() ulid.ULID {
	entropyLock.Lock()
	defer entropyLock.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
}

// NewID returns a fresh ULID in its canonical string form, as used for
// combat ids.
func NewID() string { return NewULID().String() }
