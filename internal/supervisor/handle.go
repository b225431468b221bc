package supervisor

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"syscall"
)

// ProcessHandle tracks the supervised process by pid without owning it. The
// process is expected to maintain its own pid file; the handle only observes
// a pid value and sends signals to it.
type ProcessHandle struct {
	pidFile string
	pid     int
}

func NewProcessHandle(pidFile string) *ProcessHandle {
	return &ProcessHandle{pidFile: pidFile}
}

// Refresh returns the pid of the live process, re-validating the cached pid
// first and falling back to the pid file. A missing or unreadable pid file
// means not running, never an error.
func (h *ProcessHandle) Refresh() int {
	if h.pid > 0 && pidAlive(h.pid) {
		return h.pid
	}
	h.pid = 0
	pid, err := readPidFile(h.pidFile)
	if err != nil {
		return 0
	}
	if pidAlive(pid) {
		h.pid = pid
	}
	return h.pid
}

// Forget drops the cached pid, e.g. after a termination signal was sent.
func (h *ProcessHandle) Forget() {
	h.pid = 0
}

func readPidFile(path string) (int, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(content)))
	if err != nil || pid <= 0 {
		return 0, errors.New("pid file does not contain a valid pid")
	}
	return pid, nil
}

// pidAlive probes the process with a no-op signal. Process-not-found is a
// normal "not running" outcome.
func pidAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

func processGone(err error) bool {
	return errors.Is(err, os.ErrProcessDone) || errors.Is(err, syscall.ESRCH)
}
