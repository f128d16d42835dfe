// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package middleware plumbs a per-request Timing through net/http.

WithServerTiming sits anywhere in a handler chain; downstream handlers reach
the request's ledger with FromRequest.
*/
package middleware
