package coldwallet

import (
	"fmt"

	"github.com/ruteri/coldwallet-ceremony/interfaces"
)

// CorrelationError reports that the element token chosen to carry the
// finalize request was never collected.
type CorrelationError struct {
	ElementToken interfaces.Token
}

func (e *CorrelationError) Error() string {
	return fmt.Sprintf("contributions did not contain element token: %s", e.ElementToken)
}

func (e *CorrelationError) Unwrap() error {
	return interfaces.ErrCorrelation
}

// IncompleteContributionError reports an element whose contribution is absent.
type IncompleteContributionError struct {
	Token interfaces.Token
}

func (e *IncompleteContributionError) Error() string {
	return fmt.Sprintf("contribution for token %s is missing", e.Token)
}

func (e *IncompleteContributionError) Unwrap() error {
	return interfaces.ErrIncompleteContribution
}

// ArityMismatchError reports a contribution set whose size is not the threshold.
type ArityMismatchError struct {
	Expected int
	Got      int
}

func (e *ArityMismatchError) Error() string {
	return fmt.Sprintf("contributions should contain %d values, but contained %d", e.Expected, e.Got)
}

func (e *ArityMismatchError) Unwrap() error {
	return interfaces.ErrArityMismatch
}

// TooMany reports whether the set carries more contributors than expected,
// which implies an element outside the ceremony tried to join.
func (e *ArityMismatchError) TooMany() bool {
	return e.Got > e.Expected
}
