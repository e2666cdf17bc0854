// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ClawWorld Contributors

package errutil_test

import (
	"testing"

	"github.com/samber/oops"

	"github.com/clawworld/clawworld/pkg/errutil"
)

func TestAssertErrorCode_MatchingCode(t *testing.T) {
	err := oops.Code("COMBAT_NOT_FOUND").Errorf("test error")
	// Should not fail
	errutil.AssertErrorCode(t, err, "COMBAT_NOT_FOUND")
}

func TestAssertErrorContext_MatchingKeyValue(t *testing.T) {
	err := oops.With("combat_id", "01J").Errorf("test error")
	// Should not fail
	errutil.AssertErrorContext(t, err, "combat_id", "01J")
}
