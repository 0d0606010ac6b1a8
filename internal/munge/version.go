package munge

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrInvalidVersion is returned when the version string does not follow the
// lax version grammar. It is a configuration error and ends the run.
var ErrInvalidVersion = errors.New("invalid version")

// laxVersion accepts 1, 1.02, v2.3.4 and 1.02_01.
var laxVersion = regexp.MustCompile(`^v?[0-9]+(?:\.[0-9]+)*(?:_[0-9]+)?$`)

// ValidateVersion checks v against the lax version grammar.
func ValidateVersion(v string) error {
	if !laxVersion.MatchString(v) {
		return fmt.Errorf("%w %q: want digits and dots, optional leading v, optional _NN suffix", ErrInvalidVersion, v)
	}
	return nil
}
