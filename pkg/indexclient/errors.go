package indexclient

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/code-100-precent/LingSearch/pkg/search"
)

// ResponseError is returned for every non-2xx response
type ResponseError struct {
	StatusCode int
	Message    string
	RequestID  string
}

func (e *ResponseError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("indexclient: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("indexclient: %d %s", e.StatusCode, e.Message)
}

// Retryable reports whether the status is worth another attempt
func (e *ResponseError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

func statusIs(err error, code int) bool {
	var rerr *ResponseError
	return errors.As(err, &rerr) && rerr.StatusCode == code
}

func IsNotFound(err error) bool { return statusIs(err, http.StatusNotFound) }

func IsConflict(err error) bool { return statusIs(err, http.StatusConflict) }

func IsPreconditionFailed(err error) bool { return statusIs(err, http.StatusPreconditionFailed) }

func (e *ResponseError) IsNotFound() bool { return e.StatusCode == http.StatusNotFound }

func (e *ResponseError) IsConflict() bool { return e.StatusCode == http.StatusConflict }

func (e *ResponseError) IsPreconditionFailed() bool {
	return e.StatusCode == http.StatusPreconditionFailed
}

// BatchError reports an indexing batch where some actions failed
type BatchError struct {
	Results []search.IndexingResult
}

func (e *BatchError) Error() string {
	failed := 0
	for _, r := range e.Results {
		if !r.Succeeded {
			failed++
		}
	}
	return fmt.Sprintf("indexclient: %d of %d index actions failed", failed, len(e.Results))
}

// Failed returns the results of the failed actions
func (e *BatchError) Failed() []search.IndexingResult {
	var out []search.IndexingResult
	for _, r := range e.Results {
		if !r.Succeeded {
			out = append(out, r)
		}
	}
	return out
}
