// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package servertiming collects named latency measurements while one request is
being handled and renders them as the value of a Server-Timing response header.

The package knows nothing about the HTTP server it is used with; it only
produces strings. A typical handler obtains a Timing for the current request
(see the middleware subpackage), records metrics on it, and lets the header be
attached when the response is written:

	timing := middleware.FromRequest(r)

	timing.Add("cache", servertiming.WithDescription("Cache Read"))

	err := timing.Track("db", func() error {
		return queryDatabase(r.Context())
	})

Rendering never mutates the ledger: reading the header value while a metric is
still running reports the time elapsed so far.

A Timing is owned by the single request that created it and performs no
locking. Callers that share one across goroutines must serialize access
themselves.
*/
package servertiming
