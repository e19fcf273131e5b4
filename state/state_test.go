package state

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBoltStatePutGetRoundTrip(t *testing.T) {
	require := require.New(t)
	path := filepath.Join(t.TempDir(), "state.db")

	s, err := OpenBoltState(path)
	require.NoError(err)
	defer s.Close()

	require.NoError(s.Put([]byte("k"), []byte("v")))
	got, err := s.Get([]byte("k"))
	require.NoError(err)
	require.Equal([]byte("v"), got)
}

func TestBoltStateGetMissingKeyReturnsNil(t *testing.T) {
	require := require.New(t)
	path := filepath.Join(t.TempDir(), "state.db")

	s, err := OpenBoltState(path)
	require.NoError(err)
	defer s.Close()

	got, err := s.Get([]byte("missing"))
	require.NoError(err)
	require.Nil(got)
}

func TestBoltStatePersistsAcrossReopen(t *testing.T) {
	require := require.New(t)
	path := filepath.Join(t.TempDir(), "state.db")

	s1, err := OpenBoltState(path)
	require.NoError(err)
	require.NoError(s1.Put([]byte("k"), []byte("v")))
	require.NoError(s1.Close())

	s2, err := OpenBoltState(path)
	require.NoError(err)
	defer s2.Close()
	got, err := s2.Get([]byte("k"))
	require.NoError(err)
	require.Equal([]byte("v"), got)
}
