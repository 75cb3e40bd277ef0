// Package ingest is the directory-walking worker pool that drives the
// engine over a batch of files: walk a directory, skip what's already
// fingerprinted, fan files out to a bounded pool of workers, and report
// per-file success or failure without one bad file aborting the run.
package ingest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/tefkah/seek-tune/engine"
	"github.com/tefkah/seek-tune/internal/util"
	"github.com/tefkah/seek-tune/store"
)

var audioExtensions = map[string]bool{
	".wav": true, ".m4a": true, ".mp3": true, ".flac": true, ".ogg": true,
}

// Entry is one file's ingestion outcome.
type Entry struct {
	Path      string
	SongID    uint32
	HashCount int
	Skipped   bool // already fingerprinted, not re-ingested
	Err       error
}

// titleArtist derives a fallback title/artist pair from a file name
// when no metadata tagger is available, the same convention the
// single-file ingest path uses.
func titleArtist(path string) (string, string) {
	title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return title, "unknown"
}

// Walk collects every file under dir whose extension looks like audio,
// the same filter the CLI's directory-mode `save` command applies.
func Walk(dir string) ([]string, error) {
	var paths []string
	err := filepath.Walk(dir, func(fp string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if audioExtensions[strings.ToLower(filepath.Ext(fp))] {
			paths = append(paths, fp)
		}
		return nil
	})
	return paths, err
}

// Directory walks dir and fingerprints every audio file found under it
// using a bounded worker pool, mirroring processFilesConcurrently. A
// workers value <= 0 defaults to the number of available CPUs, floored
// at one.
func Directory(e *engine.Engine, dir string, workers int) ([]Entry, error) {
	paths, err := Walk(dir)
	if err != nil {
		return nil, fmt.Errorf("ingest: walk %s: %w", dir, err)
	}
	return Files(e, paths, workers), nil
}

// Files fingerprints an explicit list of paths with a bounded worker
// pool. One file's failure is recorded in its Entry and does not stop
// the others.
func Files(e *engine.Engine, paths []string, workers int) []Entry {
	n := len(paths)
	if n == 0 {
		return nil
	}

	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > n {
		workers = n
	}
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan string, n)
	results := make(chan Entry, n)

	for w := 0; w < workers; w++ {
		go func() {
			for path := range jobs {
				results <- ingestOne(e, path)
			}
		}()
	}

	for _, p := range paths {
		jobs <- p
	}
	close(jobs)

	entries := make([]Entry, 0, n)
	for i := 0; i < n; i++ {
		entries = append(entries, <-results)
	}
	return entries
}

// ingestOne fingerprints a single file, recovering from a panicking
// decoder or DSP stage so one corrupt file can't take the whole pool
// down -- the panic value is recorded in the entry's error (no stack
// trace is captured).
func ingestOne(e *engine.Engine, path string) (entry Entry) {
	entry.Path = path
	defer func() {
		if r := recover(); r != nil {
			entry.Err = fmt.Errorf("ingest: panic processing %s: %v", path, r)
		}
	}()

	title, artist := titleArtist(path)
	creativeID := util.GenerateSongKey(title, artist)

	songID, hashCount, err := e.FingerprintFile(path, title, artist, creativeID)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateContent) {
			entry.Skipped = true
			return entry
		}
		entry.Err = err
		return entry
	}

	entry.SongID = songID
	entry.HashCount = hashCount
	return entry
}
