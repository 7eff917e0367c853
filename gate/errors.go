package gate

import "errors"

// Sentinel errors returned by RoleGate.Authorize.
// ErrUnauthenticated and ErrForbidden must stay distinguishable so callers can
// tell "sign in" apart from "wrong role".
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
)
