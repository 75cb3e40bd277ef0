package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"

	"github.com/tefkah/seek-tune/engine"
	"github.com/tefkah/seek-tune/fingerprint"
	"github.com/tefkah/seek-tune/ingest"
	"github.com/tefkah/seek-tune/store"
)

func find(eng *engine.Engine, filePath string) {
	fmt.Printf("fingerprinting %s...\n", filePath)

	result, err := eng.Recognize(filePath)
	if errors.Is(err, fingerprint.ErrNoMatch) {
		color.Yellow("no match found.")
		return
	}
	if err != nil {
		color.Red("error recognizing file: %v", err)
		return
	}

	color.Green("match: %s by %s (confidence %d, offset %.2fs)",
		result.SongTitle, result.SongArtist, result.Confidence, result.OffsetSeconds)

	if len(result.FallbackMatches) > 0 {
		fmt.Println("fallback matches:")
		for _, m := range result.FallbackMatches {
			fmt.Printf("\t- %s by %s (confidence %d)\n", m.SongTitle, m.SongArtist, m.Confidence)
		}
	}
}

func save(eng *engine.Engine, path string, workers int) {
	fileInfo, err := os.Stat(path)
	if err != nil {
		color.Red("error: %v", err)
		return
	}

	if !fileInfo.IsDir() {
		if err := saveEntry(eng, path); err != nil {
			color.Red("error saving (%v): %v", path, err)
		}
		return
	}

	entries, err := ingest.Directory(eng, path, workers)
	if err != nil {
		color.Red("error walking %s: %v", path, err)
		return
	}

	successCount, skipCount, errorCount := 0, 0, 0
	for _, e := range entries {
		switch {
		case e.Err != nil:
			color.Red("error: %s: %v", e.Path, e.Err)
			errorCount++
		case e.Skipped:
			fmt.Printf("skipped '%s' (already indexed)\n", e.Path)
			skipCount++
		default:
			fmt.Printf("indexed '%s' (%d fingerprints)\n", e.Path, e.HashCount)
			successCount++
		}
	}

	fmt.Printf("\nprocessed %d files: %d indexed, %d skipped, %d failed\n",
		len(entries), successCount, skipCount, errorCount)
}

func saveEntry(eng *engine.Engine, filePath string) error {
	title := trimExt(filePath)
	artist := "unknown"

	songID, fpCount, err := eng.FingerprintFile(filePath, title, artist, "")
	if errors.Is(err, store.ErrDuplicateContent) {
		fmt.Printf("skipped '%s' (already indexed)\n", filePath)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to process '%s': %w", filePath, err)
	}

	color.Green("indexed '%s' by '%s' as song %d (%d fingerprints)", title, artist, songID, fpCount)
	return nil
}

func trimExt(path string) string {
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))]
}

func erase(eng *engine.Engine, songsDir string, dbOnly, all bool) {
	songs, err := eng.Store.GetSongs()
	if err != nil {
		color.Red("error listing songs: %v", err)
		return
	}
	for _, s := range songs {
		if err := eng.Store.DeleteSongByID(s.ID); err != nil {
			color.Red("error deleting song %d: %v", s.ID, err)
		}
	}
	fmt.Println("database cleared")

	if !all || dbOnly {
		fmt.Println("erase complete")
		return
	}

	entries, err := ingest.Walk(songsDir)
	if err != nil {
		color.Red("error walking %s: %v", songsDir, err)
	}
	for _, p := range entries {
		if err := os.Remove(p); err != nil {
			color.Red("error removing %s: %v", p, err)
		}
	}
	fmt.Println("audio files cleared")
	fmt.Println("erase complete")
}
