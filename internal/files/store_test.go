package files

import (
	"io"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, max int64) (*Store, afero.Fs) {
	fs := afero.NewMemMapFs()
	s, err := NewStore(fs, "/data/uploads", "/uploads/", max)
	require.NoError(t, err)
	return s, fs
}

func TestSaveOpenRemove(t *testing.T) {
	s, fs := newTestStore(t, 0)

	url, err := s.Save("room-a", "../../etc/notes final.txt", strings.NewReader("hello"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "/uploads/room-a/"))
	assert.True(t, strings.HasSuffix(url, "-notes_final.txt"))
	assert.True(t, s.Owns("room-a", url))

	f, err := s.Open("room-a", url)
	require.NoError(t, err)
	body, err := io.ReadAll(f)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	assert.Equal(t, "hello", string(body))

	require.NoError(t, s.Remove("room-a", url))
	entries, err := afero.ReadDir(fs, "/data/uploads/room-a")
	require.NoError(t, err)
	assert.Empty(t, entries)

	assert.Error(t, s.Remove("room-a", url))
}

func TestFilesAreScopedToTheirRoom(t *testing.T) {
	s, fs := newTestStore(t, 0)

	url, err := s.Save("room-b", "photo.png", strings.NewReader("png"))
	require.NoError(t, err)

	assert.False(t, s.Owns("room-a", url))
	assert.ErrorIs(t, s.Remove("room-a", url), ErrForeignURL)
	_, err = s.Open("room-a", url)
	assert.ErrorIs(t, err, ErrForeignURL)

	// Traversal out of the room prefix is not a way around the check.
	sneaky := "/uploads/room-a/../room-b/" + strings.TrimPrefix(url, "/uploads/room-b/")
	assert.Error(t, s.Remove("room-a", sneaky))

	exists, err := afero.Exists(fs, "/data/uploads/room-b/"+strings.TrimPrefix(url, "/uploads/room-b/"))
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestSaveTooLarge(t *testing.T) {
	s, fs := newTestStore(t, 4)

	_, err := s.Save("r", "big.bin", strings.NewReader("12345"))
	assert.ErrorIs(t, err, ErrTooLarge)

	entries, err := afero.ReadDir(fs, "/data/uploads/r")
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, err = s.Save("r", "ok.bin", strings.NewReader("1234"))
	assert.NoError(t, err)
}

func TestRejectsBadNames(t *testing.T) {
	s, _ := newTestStore(t, 0)

	assert.ErrorIs(t, s.Remove("r", "https://cdn.example.com/x.png"), ErrForeignURL)
	assert.ErrorIs(t, s.Remove("r", "/uploads/r/.."), ErrBadName)
	_, err := s.Save("r", "..", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrBadName)
	_, err = s.Save("../r", "a.txt", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrBadName)
	_, err = s.Save("", "a.txt", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrBadName)
}
