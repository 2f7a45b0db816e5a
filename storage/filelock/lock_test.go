package filelock_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/brecio/brec"
	"github.com/brecio/brec/storage/filelock"
)

func touch(t *testing.T, path string) {
	t.Helper()

	require.NoError(t, os.WriteFile(path, nil, 0o644))
}

func Test_Acquire_Then_Close_Releases_For_Next_Acquire(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "store.brec")
	touch(t, path)

	lock, err := filelock.Acquire(path, 0, 0)
	require.NoError(t, err)
	require.NoError(t, lock.Close())

	lock2, err := filelock.Acquire(path, 0, 0)
	require.NoError(t, err)
	require.NoError(t, lock2.Close())
}

func Test_Acquire_Returns_ErrFileIsLocked_When_Already_Held_And_No_Timeout(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "store.brec")
	touch(t, path)

	lock, err := filelock.Acquire(path, 0, 0)
	require.NoError(t, err)
	defer lock.Close()

	_, err = filelock.Acquire(path, 0, 0)
	require.ErrorIs(t, err, brec.ErrFileIsLocked)
}

func Test_Acquire_Returns_ErrTimeoutToWaitLockedFile_After_Polling(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "store.brec")
	touch(t, path)

	lock, err := filelock.Acquire(path, 0, 0)
	require.NoError(t, err)
	defer lock.Close()

	_, err = filelock.Acquire(path, 30*time.Millisecond, time.Millisecond)
	require.ErrorIs(t, err, brec.ErrTimeoutToWaitLockedFile)
}

func Test_Acquire_Rejects_NonRegular_File_Target(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	_, err := filelock.Acquire(dir, 0, 0)
	require.ErrorIs(t, err, brec.ErrPathIsNotFile)
}

func Test_Acquire_Blocks_Until_Held_Lock_Is_Released(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "store.brec")
	touch(t, path)

	lock, err := filelock.Acquire(path, 0, 0)
	require.NoError(t, err)

	done := make(chan error, 1)

	go func() {
		l, err := filelock.Acquire(path, time.Second, time.Millisecond)
		if err == nil {
			_ = l.Close()
		}

		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, lock.Close())

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Acquire did not unblock after lock release")
	}
}

func Test_SidecarPath_Appends_Lock_Suffix(t *testing.T) {
	t.Parallel()

	require.Equal(t, "/tmp/store.brec.lock", filelock.SidecarPath("/tmp/store.brec"))
}
