package middleware

import "errors"

// ErrRetryExhausted is returned by the retry middleware when every attempt
// failed with a retryable error. It is wrapped together with the last error,
// so both can be matched:
//
//	if errors.Is(err, middleware.ErrRetryExhausted) {
//	    var statusErr *utils.StatusError
//	    errors.As(err, &statusErr)
//	}
var ErrRetryExhausted = errors.New("jsontunnel: all retry attempts exhausted")
