package supervisor

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/auto-proxy/docker-nginx-sync/internal/config"
	"github.com/rs/zerolog"
)

func writePidFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "proxy.pid")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRefreshMissingPidFile(t *testing.T) {
	h := NewProcessHandle(filepath.Join(t.TempDir(), "absent.pid"))
	if pid := h.Refresh(); pid != 0 {
		t.Errorf("got pid %d, want 0 for missing pid file", pid)
	}
}

func TestRefreshGarbagePidFile(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty", ""},
		{"not a number", "nginx\n"},
		{"negative", "-5\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewProcessHandle(writePidFile(t, tt.content))
			if pid := h.Refresh(); pid != 0 {
				t.Errorf("got pid %d, want 0", pid)
			}
		})
	}
}

func TestRefreshLivePid(t *testing.T) {
	// The test process itself is the only pid guaranteed to be alive.
	own := os.Getpid()
	h := NewProcessHandle(writePidFile(t, strconv.Itoa(own)+"\n"))
	if pid := h.Refresh(); pid != own {
		t.Errorf("got pid %d, want %d", pid, own)
	}
	// Cached pid survives a second refresh without re-reading the file.
	if pid := h.Refresh(); pid != own {
		t.Errorf("second refresh: got pid %d, want %d", pid, own)
	}
}

func TestForgetDropsCachedPid(t *testing.T) {
	path := writePidFile(t, strconv.Itoa(os.Getpid()))
	h := NewProcessHandle(path)
	if h.Refresh() == 0 {
		t.Fatal("expected live pid")
	}
	h.Forget()
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if pid := h.Refresh(); pid != 0 {
		t.Errorf("got pid %d after forget with pid file removed, want 0", pid)
	}
}

func TestStopNotRunning(t *testing.T) {
	cfg := &config.ProxyConfig{
		Command: "nginx",
		PidFile: filepath.Join(t.TempDir(), "absent.pid"),
	}
	s := New(cfg, zerolog.Nop())
	if err := s.Stop(); err != nil {
		t.Errorf("stop with no process: got %v, want nil", err)
	}
}

func TestReloadNotRunning(t *testing.T) {
	cfg := &config.ProxyConfig{
		Command: "nginx",
		PidFile: filepath.Join(t.TempDir(), "absent.pid"),
	}
	s := New(cfg, zerolog.Nop())
	if err := s.Reload(); err != nil {
		t.Errorf("reload with no process: got %v, want nil", err)
	}
}

func TestReapNoChildren(t *testing.T) {
	cfg := &config.ProxyConfig{
		Command: "nginx",
		PidFile: filepath.Join(t.TempDir(), "absent.pid"),
	}
	// Must return silently; no children is the normal case here.
	New(cfg, zerolog.Nop()).Reap()
}
