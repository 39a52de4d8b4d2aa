package pagescraper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNormalizeURL_PrependsSchemeAndValidates(t *testing.T) {
	u, err := normalizeURL("example.com/path")
	require.NoError(t, err)
	require.Equal(t, "https://example.com/path", u)

	_, err = normalizeURL("")
	require.Error(t, err)

	_, err = normalizeURL("ftp://example.com")
	require.Error(t, err)

	u, err = normalizeURL("  https://example.com  ")
	require.NoError(t, err)
	require.Equal(t, "https://example.com", u)
}

// spec scenario 2: with MaxRetries=2, backoff before attempt 2 is >= 1s and
// before attempt 3 is >= 2s.
func TestRetryBackoff_GrowsExponentially(t *testing.T) {
	require.Equal(t, 1, pow2(0))
	require.Equal(t, 2, pow2(1))
	require.Equal(t, 4, pow2(2))

	backoffFor := func(attempt int) time.Duration {
		d := time.Duration(1000*pow2(attempt-2)) * time.Millisecond
		if d > 5*time.Second {
			d = 5 * time.Second
		}
		return d
	}

	require.Equal(t, 1*time.Second, backoffFor(2))
	require.Equal(t, 2*time.Second, backoffFor(3))
	require.Equal(t, 4*time.Second, backoffFor(4))
	require.Equal(t, 5*time.Second, backoffFor(5)) // capped
}

func TestFirstNonEmpty(t *testing.T) {
	require.Equal(t, "b", firstNonEmpty("", "  ", "b", "c"))
	require.Equal(t, "", firstNonEmpty("", "   "))
}
