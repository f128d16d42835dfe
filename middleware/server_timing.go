// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package middleware

import (
	"context"
	"net/http"

	"github.com/felixge/httpsnoop"

	"codeberg.org/pixivfe/servertiming"
)

// timingKeyType defines a unique type for a Timing key.
type timingKeyType struct{}

// timingKey is a unique key used to access the request's Timing from a
// context.Context.
var timingKey = timingKeyType{}

// NewContext attaches a Timing to the parent context.
func NewContext(ctx context.Context, t *servertiming.Timing) context.Context {
	return context.WithValue(ctx, timingKey, t)
}

// FromContext returns the Timing attached to ctx, or nil when the request was
// not routed through WithServerTiming.
func FromContext(ctx context.Context) *servertiming.Timing {
	t, _ := ctx.Value(timingKey).(*servertiming.Timing)

	return t
}

// FromRequest returns the Timing attached to the request's context, or nil.
func FromRequest(r *http.Request) *servertiming.Timing {
	return FromContext(r.Context())
}

// WithServerTiming attaches a fresh Timing to each request and writes its
// rendered value as the Server-Timing response header immediately before the
// first byte of the response goes out. Handlers that write nothing still get
// the header. Nothing is written for requests that recorded no metrics.
func WithServerTiming(next http.Handler, opts ...servertiming.Option) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		timing := servertiming.New(opts...)

		// Headers must be set before the response status is flushed, so the
		// render is hooked in front of the first WriteHeader or Write call.
		headerWritten := false
		writeHeader := func() {
			if headerWritten {
				return
			}

			headerWritten = true
			timing.SetHeaders(w.Header())
		}

		sw := httpsnoop.Wrap(w, httpsnoop.Hooks{
			WriteHeader: func(next httpsnoop.WriteHeaderFunc) httpsnoop.WriteHeaderFunc {
				return func(code int) {
					writeHeader()
					next(code)
				}
			},
			Write: func(next httpsnoop.WriteFunc) httpsnoop.WriteFunc {
				return func(p []byte) (int, error) {
					writeHeader()

					return next(p)
				}
			},
		})

		next.ServeHTTP(sw, r.WithContext(NewContext(r.Context(), timing)))

		writeHeader()
	})
}
