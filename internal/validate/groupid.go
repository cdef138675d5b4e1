package validate

import (
	"fmt"
	"regexp"
)

// groupIDRe matches DNS-label-style group ids: 1-63 lowercase alphanumeric
// or hyphens, starting and ending with alphanumeric. This keeps the
// X-Group-ID header value safe to log and to compare without surprises from
// whitespace or control characters.
var groupIDRe = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)

// GroupID checks that an administrative group id is DNS-label safe.
func GroupID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: id cannot be empty", ErrInvalidGroupID)
	}
	if !groupIDRe.MatchString(id) {
		return fmt.Errorf("%w: %q must be 1-63 lowercase alphanumeric characters or hyphens, starting and ending with alphanumeric", ErrInvalidGroupID, id)
	}
	return nil
}
