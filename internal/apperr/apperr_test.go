package apperr

import (
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func TestRateLimitError_RetryAfterSeconds(t *testing.T) {
	require.Equal(t, 1, RateLimitError{RetryAfter: 0}.RetryAfterSeconds())
	require.Equal(t, 1, RateLimitError{RetryAfter: 300 * time.Millisecond}.RetryAfterSeconds())
	require.Equal(t, 2, RateLimitError{RetryAfter: 1001 * time.Millisecond}.RetryAfterSeconds())
	require.Equal(t, 900, RateLimitError{RetryAfter: 15 * time.Minute}.RetryAfterSeconds())
}

func TestDependency_WrapsAndUnwraps(t *testing.T) {
	root := errors.New("connection refused")
	err := errors.Wrap(Dependency("postmark", root), "send confirmation")

	var dep DependencyError
	require.True(t, errors.As(err, &dep))
	require.Equal(t, "postmark", dep.Dependency)
	require.True(t, errors.Is(err, root))
	require.NoError(t, Dependency("postmark", nil))
}

func TestSentinelsSurviveWrapping(t *testing.T) {
	sentinel := NotFoundError{Resource: "booking"}
	err := errors.Wrapf(sentinel, "get booking %s", "abc")
	require.True(t, errors.Is(err, sentinel))
	require.Equal(t, "get booking abc: booking not found", err.Error())
}
