package tunnel

import (
	"errors"
	"fmt"
)

// ErrMaxRetriesExceeded is matched by the *MaxRetriesError returned when
// every attempt of a run produced unusable output.
//
//	if errors.Is(err, tunnel.ErrMaxRetriesExceeded) {
//	    var exhausted *tunnel.MaxRetriesError
//	    errors.As(err, &exhausted)
//	    log.Println(exhausted.Last().Kind)
//	}
var ErrMaxRetriesExceeded = errors.New("jsontunnel: maximum retries exceeded")

// ErrInvalidConfig is returned by New for unusable options.
var ErrInvalidConfig = errors.New("jsontunnel: invalid tunnel configuration")

// MaxRetriesError reports an exhausted run. Failures holds one record per
// attempt, in attempt order.
type MaxRetriesError struct {
	Attempts int
	Failures []Failure
}

func (e *MaxRetriesError) Error() string {
	if len(e.Failures) == 0 {
		return fmt.Sprintf("tunnel: failed to produce valid output after %d attempts", e.Attempts)
	}
	return fmt.Sprintf("tunnel: failed to produce valid output after %d attempts (last failure: %s)",
		e.Attempts, e.Last().Kind)
}

// Is makes errors.Is(err, ErrMaxRetriesExceeded) hold.
func (e *MaxRetriesError) Is(target error) bool {
	return target == ErrMaxRetriesExceeded
}

// Last returns the failure of the final attempt.
func (e *MaxRetriesError) Last() Failure {
	if len(e.Failures) == 0 {
		return Failure{}
	}
	return e.Failures[len(e.Failures)-1]
}
