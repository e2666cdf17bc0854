// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ClawWorld Contributors

package world

import "github.com/samber/oops"

// Error codes.
const (
	CodeHeroNotFound  = "HERO_NOT_FOUND"
	CodeInvalidReport = "INVALID_REPORT"
)

// ErrHeroNotFound reports an unknown hero id.
func ErrHeroNotFound(heroID string) error {
	return oops.Code(CodeHeroNotFound).
		With("hero_id", heroID).
		Errorf("hero %s not found", heroID)
}
