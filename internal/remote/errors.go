package remote

import "errors"

// ErrNotFound is returned by update/delete calls for an unknown identity.
var ErrNotFound = errors.New("remote: record not found")

// ErrPermissionDenied is returned when the remote store's rules reject the
// caller's role for a collection or write.
var ErrPermissionDenied = errors.New("remote: permission denied")
