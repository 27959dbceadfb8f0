package passphrase

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func testSource(env map[string]string, terminal bool, secret string, opts ...Option) (*Source, *int) {
	reads := 0
	s := NewSource(DefaultEnv, "wallet", opts...)
	s.lookupEnv = func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
	s.isTerminal = func() bool { return terminal }
	s.readSecret = func() ([]byte, error) {
		reads++
		if secret == "" {
			return nil, errors.New("no input")
		}
		return []byte(secret), nil
	}
	s.prompt = io.Discard
	return s, &reads
}

func TestEnvironmentWins(t *testing.T) {
	s, reads := testSource(map[string]string{DefaultEnv: "hunter2"}, true, "typed")
	got, err := s.Get()
	require.NoError(t, err)
	require.Equal(t, "hunter2", got)
	require.Zero(t, *reads)
}

func TestEmptyEnvironmentRejected(t *testing.T) {
	s, _ := testSource(map[string]string{DefaultEnv: " "}, false, "")
	_, err := s.Get()
	require.Error(t, err)

	s, _ = testSource(map[string]string{DefaultEnv: ""}, false, "", AllowEmpty())
	got, err := s.Get()
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestPromptIsCached(t *testing.T) {
	s, reads := testSource(nil, true, "typed")
	for i := 0; i < 2; i++ {
		got, err := s.Get()
		require.NoError(t, err)
		require.Equal(t, "typed", got)
	}
	require.Equal(t, 1, *reads)
}

func TestNoTerminal(t *testing.T) {
	s, _ := testSource(nil, false, "")
	_, err := s.Get()
	require.ErrorContains(t, err, DefaultEnv)
}
