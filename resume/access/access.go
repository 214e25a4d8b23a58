package access

import (
	"errors"

	"resume-builder/resume/model"
)

// ErrForbidden is returned when the principal may not perform the action.
var ErrForbidden = errors.New("forbidden")

// Principal identifies the caller. An empty UserID is an anonymous caller.
type Principal struct {
	UserID string
}

func Anonymous() Principal { return Principal{} }

func (p Principal) Authenticated() bool { return p.UserID != "" }

// IsOwner reports whether p owns r.
func IsOwner(r model.Resume, p Principal) bool {
	return p.Authenticated() && r.UserID == p.UserID
}

// CanRead allows the owner, or anyone when the resume is public. Token-based
// reads go through the shared path and never through this check.
func CanRead(r model.Resume, p Principal) error {
	if IsOwner(r, p) || r.IsPublic {
		return nil
	}
	return ErrForbidden
}

// CanWrite allows the owner only, regardless of visibility.
func CanWrite(r model.Resume, p Principal) error {
	if IsOwner(r, p) {
		return nil
	}
	return ErrForbidden
}
