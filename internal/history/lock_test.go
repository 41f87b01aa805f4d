package history

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireReleaseLock(t *testing.T) {
	storePath := filepath.Join(t.TempDir(), "exception-history.json")

	lockPath, err := AcquireLock(storePath, "merge-run")
	require.NoError(t, err)
	assert.Equal(t, storePath+".lock", lockPath)

	data, err := os.ReadFile(lockPath)
	require.NoError(t, err)

	var lock StoreLock
	require.NoError(t, json.Unmarshal(data, &lock))
	assert.Equal(t, "merge-run", lock.Holder)
	assert.Equal(t, os.Getpid(), lock.PID)
	assert.False(t, lock.StartedAt.IsZero())

	require.NoError(t, ReleaseLock(lockPath))
	_, err = os.Stat(lockPath)
	assert.True(t, os.IsNotExist(err))
}

func TestAcquireLockHeldByLiveProcess(t *testing.T) {
	storePath := filepath.Join(t.TempDir(), "exception-history.json")

	// Our own PID is definitely alive.
	_, err := AcquireLock(storePath, "first-holder")
	require.NoError(t, err)

	_, err = AcquireLock(storePath, "second-holder")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "first-holder")
	assert.Contains(t, err.Error(), "locked")
}

func TestAcquireLockStealsStaleLock(t *testing.T) {
	storePath := filepath.Join(t.TempDir(), "exception-history.json")
	lockPath := LockPath(storePath)

	hostname, err := os.Hostname()
	require.NoError(t, err)

	// A PID above the kernel's default pid_max cannot belong to a live
	// process.
	stale := StoreLock{
		Holder:    "crashed-run",
		PID:       99999999,
		Hostname:  hostname,
		StartedAt: time.Now().Add(-2 * time.Hour),
	}
	data, err := json.Marshal(stale)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(lockPath, data, 0o644))

	got, err := AcquireLock(storePath, "new-run")
	require.NoError(t, err)

	data, err = os.ReadFile(got)
	require.NoError(t, err)
	var lock StoreLock
	require.NoError(t, json.Unmarshal(data, &lock))
	assert.Equal(t, "new-run", lock.Holder)
	assert.Equal(t, os.Getpid(), lock.PID)
}

func TestAcquireLockRemoteHostAssumedAlive(t *testing.T) {
	storePath := filepath.Join(t.TempDir(), "exception-history.json")
	lockPath := LockPath(storePath)

	remote := StoreLock{
		Holder:    "other-machine-run",
		PID:       99999999,
		Hostname:  "some-other-host.example.org",
		StartedAt: time.Now(),
	}
	data, err := json.Marshal(remote)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(lockPath, data, 0o644))

	_, err = AcquireLock(storePath, "local-run")
	require.Error(t, err, "cannot verify a remote holder, so the lock is honored")
}

func TestAcquireLockUnreadableLockOverwritten(t *testing.T) {
	storePath := filepath.Join(t.TempDir(), "exception-history.json")
	lockPath := LockPath(storePath)
	require.NoError(t, os.WriteFile(lockPath, []byte("garbage"), 0o644))

	_, err := AcquireLock(storePath, "recovering-run")
	require.NoError(t, err)
}

func TestReleaseLockTolerant(t *testing.T) {
	assert.NoError(t, ReleaseLock(""))
	assert.NoError(t, ReleaseLock(filepath.Join(t.TempDir(), "never-created.lock")))
}
