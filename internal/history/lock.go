package history

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"
)

// StoreLock is the lock file format guarding a history store. The
// whole load→mutate→save cycle runs under this lock so a daily merge
// and an ad hoc backfill racing on the same store cannot lose updates.
type StoreLock struct {
	Holder    string    `json:"holder"`
	PID       int       `json:"pid"`
	Hostname  string    `json:"hostname"`
	StartedAt time.Time `json:"started_at"`
}

// LockPath returns the lock file path for a store path.
func LockPath(storePath string) string {
	return storePath + ".lock"
}

// AcquireLock claims exclusive access to the store at storePath.
// Returns the lock file path for release on completion (use defer).
// A live holder causes an error naming the holder; a lock whose
// process no longer exists is treated as stale and stolen.
func AcquireLock(storePath, holder string) (lockPath string, err error) {
	lockPath = LockPath(storePath)

	if data, err := os.ReadFile(lockPath); err == nil {
		var existing StoreLock
		if json.Unmarshal(data, &existing) == nil {
			if isProcessAlive(existing.PID, existing.Hostname) {
				return "", fmt.Errorf("history store is locked by %s (PID %d on %s, started %s)",
					existing.Holder, existing.PID, existing.Hostname,
					existing.StartedAt.Format(time.RFC3339))
			}
			// Stale lock - will overwrite
		}
	}

	hostname, err := os.Hostname()
	if err != nil {
		return "", fmt.Errorf("failed to get hostname: %w", err)
	}

	lock := StoreLock{
		Holder:    holder,
		PID:       os.Getpid(),
		Hostname:  hostname,
		StartedAt: time.Now(),
	}

	data, err := json.MarshalIndent(lock, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal store lock: %w", err)
	}

	if err := os.WriteFile(lockPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to create store lock: %w", err)
	}

	return lockPath, nil
}

// ReleaseLock removes the lock file. Safe to call when the lock was
// never acquired (empty path) or already released.
func ReleaseLock(lockPath string) error {
	if lockPath == "" {
		return nil
	}

	if err := os.Remove(lockPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove store lock: %w", err)
	}

	return nil
}

// isProcessAlive checks if a process with the given PID exists on the
// given hostname. When the answer cannot be determined (remote host,
// permission denied) it fails safe and reports alive.
func isProcessAlive(pid int, hostname string) bool {
	currentHost, err := os.Hostname()
	if err != nil {
		return true
	}

	if !strings.EqualFold(hostname, currentHost) {
		// Remote host - can't check, assume alive
		return true
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	// Signal 0 probes for existence without delivering anything
	err = process.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}
	if err == syscall.EPERM {
		return true
	}

	return false
}
