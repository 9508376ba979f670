package filex

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"

	"github.com/durvaajgaonkar/secure-file-storage-system/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewScratch_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "scratch")

	s, err := NewScratch(dir)
	require.NoError(t, err)
	require.Equal(t, dir, s.Dir())

	fi, err := os.Stat(dir)
	require.NoError(t, err)
	require.True(t, fi.IsDir())
	if runtime.GOOS != "windows" {
		assert.Equal(t, os.FileMode(0o700), fi.Mode().Perm())
	}
}

func TestNewScratch_FailsIfFileWithSameNameExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scratch")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	_, err := NewScratch(path)
	require.Error(t, err)
}

func TestCreate_ReleaseRemovesFile(t *testing.T) {
	s, err := NewScratch(t.TempDir())
	require.NoError(t, err)

	f, release, err := s.Create("upload")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filepath.Base(f.Name()), "sfs-upload-"))

	_, err = f.WriteString("payload")
	require.NoError(t, err)

	n, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	release()
	release()

	_, err = os.Stat(f.Name())
	assert.True(t, os.IsNotExist(err))
	n, err = s.Count()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCreate_ConcurrentNamesDoNotCollide(t *testing.T) {
	s, err := NewScratch(t.TempDir())
	require.NoError(t, err)

	const workers = 32
	names := make(chan string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f, release, err := s.Create("upload")
			if err != nil {
				t.Error(err)
				return
			}
			names <- f.Name()
			release()
		}()
	}
	wg.Wait()
	close(names)

	seen := map[string]bool{}
	for n := range names {
		assert.False(t, seen[n], "duplicate scratch name %s", n)
		seen[n] = true
	}
	assert.Len(t, seen, workers)
}

func TestCreate_MissingDirectory(t *testing.T) {
	s := &Scratch{dir: filepath.Join(t.TempDir(), "gone")}

	_, release, err := s.Create("upload")
	defer release()

	require.ErrorIs(t, err, common.ErrorStaging)
}

func TestPurge_RemovesOnlyScratchFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := NewScratch(dir)
	require.NoError(t, err)

	_, _, err = s.Create("left-behind")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "keep.txt"), []byte("x"), 0o600))

	n, err := s.Purge()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = os.Stat(filepath.Join(dir, "keep.txt"))
	assert.NoError(t, err)
}
