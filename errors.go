// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package servertiming

import "errors"

// All errors are returned synchronously by the mutating operation that caused
// them; rendering valid ledger state never fails.
var (
	// ErrInvalidLabel reports a metric label outside the HTTP token grammar.
	ErrInvalidLabel = errors.New("metric label is not a valid HTTP token")

	// ErrInvalidDescription reports a description containing a double quote,
	// which the wire format cannot escape.
	ErrInvalidDescription = errors.New("metric description must not contain a double quote")

	// ErrNotStarted is returned by End when no metric with the given label
	// exists in the ledger.
	ErrNotStarted = errors.New("no metric with this label exists")

	// ErrNested is returned by Group on a ledger that is itself a group.
	ErrNested = errors.New("timing groups cannot be nested")
)
