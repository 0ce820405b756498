package torrent

import "github.com/kraken-torrent/engine/location"

// RelocateTarget builds a location.Target moving this torrent's content
// from its current directory to newRoot, for submission to a
// location.Worker.
func (t *Torrent) RelocateTarget(newRoot string) location.Target {
	t.mu.RLock()
	defer t.mu.RUnlock()

	files := make([]string, len(t.meta.Files.Files))
	for i, f := range t.meta.Files.Files {
		files[i] = f.Subpath
	}

	return location.Target{
		ID:      t.meta.InfoHashV1,
		Files:   files,
		OldRoot: t.currentDir,
		NewRoot: newRoot,
	}
}

// ApplyRelocate updates the torrent's current directory once a relocate
// job completes successfully (aborted=false, err=nil).
func (t *Torrent) ApplyRelocate(newRoot string, aborted bool, err error) {
	if aborted || err != nil {
		return
	}
	t.SetCurrentDir(newRoot)
}
