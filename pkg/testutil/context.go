package testutil

import (
	"net/http"

	"dor/pkg/requestcontext"
)

// WithSubject simulates what the auth middleware does for an authenticated
// request.
func WithSubject(req *http.Request, subject string) *http.Request {
	return req.WithContext(requestcontext.WithSubject(req.Context(), subject))
}
