package chat

import "errors"

// Fatal error classes. The processor re-throws these unchanged so the
// caller can apply cross-cutting policy (backoff, content rejection);
// every other turn failure is recovered into the deterministic fallback.
var (
	ErrRateLimited     = errors.New("chat: rate limit exhausted")
	ErrPolicyViolation = errors.New("chat: security policy violation")
)

// IsFatal reports whether err must propagate to the caller instead of
// being absorbed by the fallback path.
func IsFatal(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrPolicyViolation)
}
