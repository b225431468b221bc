package reconcile

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/auto-proxy/docker-nginx-sync/internal/topology"
	"github.com/rs/zerolog"
)

// Reconciler renders every template in the configured set against a topology
// and rewrites each destination whose content hash differs.
type Reconciler struct {
	logger   zerolog.Logger
	renderer renderer
	dir      string
	suffix   string
}

func New(r renderer, dir, suffix string, logger zerolog.Logger) *Reconciler {
	return &Reconciler{
		logger:   logger,
		renderer: r,
		dir:      dir,
		suffix:   suffix,
	}
}

type pendingWrite struct {
	dest    string
	content []byte
}

// Reconcile returns whether any destination file was rewritten. All templates
// are rendered before the first write: a render failure aborts the whole
// cycle with zero files touched, so the proxy never sees a half-updated
// configuration set.
func (r *Reconciler) Reconcile(topo topology.Topology) (bool, error) {
	paths, err := filepath.Glob(filepath.Join(r.dir, "*"+r.suffix))
	if err != nil {
		return false, fmt.Errorf("globbing templates in %s: %w", r.dir, err)
	}
	if len(paths) == 0 {
		r.logger.Debug().Str("dir", r.dir).Msg("No templates found")
		return false, nil
	}

	writes := make([]pendingWrite, 0, len(paths))
	for _, path := range paths {
		src, err := os.ReadFile(path)
		if err != nil {
			r.logger.Error().Err(err).Str("template", path).Msg("Reading template failed, aborting reconciliation")
			return false, fmt.Errorf("reading template %s: %w", path, err)
		}
		content, err := r.renderer.Render(filepath.Base(path), src, topo)
		if err != nil {
			r.logger.Error().Err(err).Str("template", path).Msg("Rendering template failed, aborting reconciliation")
			return false, err
		}
		writes = append(writes, pendingWrite{
			dest:    strings.TrimSuffix(path, r.suffix),
			content: content,
		})
	}

	changed := false
	for _, w := range writes {
		newHash := contentHash(w.content)
		if newHash == fileHash(w.dest) {
			r.logger.Debug().Str("file", w.dest).Msg("Configuration unchanged")
			continue
		}
		if err := os.WriteFile(w.dest, w.content, 0o644); err != nil {
			return changed, fmt.Errorf("writing %s: %w", w.dest, err)
		}
		r.logger.Info().Str("file", w.dest).Str("hash", newHash).Msg("Configuration updated")
		changed = true
	}
	return changed, nil
}

func contentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// fileHash returns the hash of the file's current content, or "" when the
// file is missing or unreadable, which always compares as changed.
func fileHash(path string) string {
	content, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return contentHash(content)
}
