package mongodb

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
)

// Server error codes that indicate capacity or contention rather than a bad
// request.
var transientCodes = []int{
	11000, // duplicate key from racing upserts
	16500, // request rate too large (Cosmos DB)
	112,   // write conflict
	91,    // shutdown in progress
	189,   // primary stepped down
	10107, // not writable primary
	11600, // interrupted at shutdown
	262,   // exceeded time limit
}

// IsTransient reports whether a write error should be retried with backoff.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) {
		return true
	}

	var se mongo.ServerError
	if errors.As(err, &se) {
		for _, code := range transientCodes {
			if se.HasErrorCode(code) {
				return true
			}
		}
		return se.HasErrorLabel("RetryableWriteError") || se.HasErrorLabel("TransientTransactionError")
	}
	return false
}

// isIndexExists matches a plain "index already exists" reply. Option or
// key conflicts (85, 86) are not matched; the caller must check what is
// actually installed.
func isIndexExists(err error) bool {
	var se mongo.ServerError
	if errors.As(err, &se) {
		if se.HasErrorCode(indexOptionsConflict) || se.HasErrorCode(indexKeySpecsConflict) {
			return false
		}
		if se.HasErrorCode(68) {
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "already exists")
}

func isIndexConflict(err error) bool {
	var se mongo.ServerError
	return errors.As(err, &se) && (se.HasErrorCode(indexOptionsConflict) || se.HasErrorCode(indexKeySpecsConflict))
}

const (
	indexOptionsConflict  = 85
	indexKeySpecsConflict = 86
)
