package token

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestIssueAndParse(t *testing.T) {
	iss := NewIssuer("test-secret", time.Hour, 24*time.Hour)

	pair, err := iss.Issue(42)
	require.NoError(t, err)
	require.NotEmpty(t, pair.Access)
	require.NotEmpty(t, pair.Refresh)

	claims, err := iss.Parse(pair.Access, Access)
	require.NoError(t, err)
	require.Equal(t, int64(42), claims.UserID)
	require.Equal(t, "42", claims.Subject)

	claims, err = iss.Parse(pair.Refresh, Refresh)
	require.NoError(t, err)
	require.Equal(t, int64(42), claims.UserID)
}

func TestParse_Rejects(t *testing.T) {
	iss := NewIssuer("test-secret", time.Hour, 24*time.Hour)
	pair, err := iss.Issue(1)
	require.NoError(t, err)

	t.Run("wrong kind", func(t *testing.T) {
		_, err := iss.Parse(pair.Refresh, Access)
		require.ErrorIs(t, err, ErrInvalid)
	})

	t.Run("wrong signature", func(t *testing.T) {
		parts := strings.Split(pair.Access, ".")
		require.Len(t, parts, 3)
		tampered := parts[0] + "." + parts[1] + "." + parts[2][:len(parts[2])-1] + "X"
		_, err := iss.Parse(tampered, Access)
		require.ErrorIs(t, err, ErrInvalid)
	})

	t.Run("other secret", func(t *testing.T) {
		other := NewIssuer("other-secret", time.Hour, time.Hour)
		_, err := other.Parse(pair.Access, Access)
		require.ErrorIs(t, err, ErrInvalid)
	})

	t.Run("expired", func(t *testing.T) {
		old := NewIssuer("test-secret", time.Hour, time.Hour)
		old.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		stale, err := old.Issue(1)
		require.NoError(t, err)
		_, err = iss.Parse(stale.Access, Access)
		require.ErrorIs(t, err, ErrInvalid)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := iss.Parse("invalid.token.here", Access)
		require.ErrorIs(t, err, ErrInvalid)
	})
}
