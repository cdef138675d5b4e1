package validate

import "errors"

// ErrInvalidGroupID is returned when a group id does not match the
// DNS-label format (1-63 lowercase alphanumeric + hyphens).
var ErrInvalidGroupID = errors.New("invalid group id")
