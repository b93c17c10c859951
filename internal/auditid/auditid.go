// Package auditid generates and validates the short identifiers used to
// name one audit end to end: the database row, the progress event stream,
// and the evidence directory all key off the same AuditId.
package auditid

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
)

// Prefix is prepended to every generated id.
const Prefix = "vrts_"

// suffixHexChars is the number of hex characters following Prefix.
const suffixHexChars = 8

// ErrInvalid is returned by Validate for a malformed id.
var ErrInvalid = errors.New("auditid: invalid audit id")

// New generates a fresh AuditId of the form "vrts_" + 8 hex characters.
func New() string {
	var buf [suffixHexChars / 2]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand failures are effectively unrecoverable; fall back to
		// a fixed-zero suffix rather than panic so callers in constrained
		// sandboxes still get a syntactically valid id.
		return Prefix + strings.Repeat("0", suffixHexChars)
	}
	return Prefix + hex.EncodeToString(buf[:])
}

// Validate reports whether id has the expected shape. It does not check
// that the audit actually exists.
func Validate(id string) error {
	if !strings.HasPrefix(id, Prefix) {
		return ErrInvalid
	}
	suffix := strings.TrimPrefix(id, Prefix)
	if len(suffix) != suffixHexChars {
		return ErrInvalid
	}
	if _, err := hex.DecodeString(suffix); err != nil {
		return ErrInvalid
	}
	return nil
}
