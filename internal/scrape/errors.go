// Package scrape fetches the world boss page and extracts status records
// from its markup.
package scrape

import (
	"errors"
	"fmt"
)

// ErrSessionExpired marks a fetch that reached the site but was bounced to
// the login flow. It cannot self-heal on retry; the operator has to refresh
// the session cookie.
var ErrSessionExpired = errors.New("session expired")

// TransportError is a network or HTTP-level fetch failure.
type TransportError struct {
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("fetch failed: HTTP %d: %v", e.StatusCode, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("fetch failed: HTTP %d", e.StatusCode)
	default:
		return fmt.Sprintf("fetch failed: %v", e.Err)
	}
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ParseError reports a structural mismatch between the page and the
// selectors the parser relies on. Reason is a stable machine token.
type ParseError struct {
	Reason string
	Detail string
}

func (e *ParseError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("parse failed: %s (%s)", e.Reason, e.Detail)
	}
	return "parse failed: " + e.Reason
}

// Parse failure reasons.
const (
	ReasonAnchorNotFound = "anchor_not_found"
	ReasonNameMissing    = "boss_name_missing"
	ReasonETAUnreadable  = "eta_unreadable"
	ReasonEmptyDocument  = "empty_document"
)
