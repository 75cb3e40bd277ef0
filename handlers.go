package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tefkah/seek-tune/engine"
	"github.com/tefkah/seek-tune/fingerprint"
	"github.com/tefkah/seek-tune/internal/util"
	"github.com/tefkah/seek-tune/store"
)

const maxUploadSize = 5000 << 20 // 5 GB

type indexResponse struct {
	Title        string `json:"title"`
	Artist       string `json:"artist"`
	Fingerprints int    `json:"fingerprints"`
	DurationSec  int    `json:"durationSec"`
}

type statsResponse struct {
	TotalEntries      int `json:"totalEntries"`
	TotalFingerprints int `json:"totalFingerprints"`
}

type entryResponse struct {
	ID     uint32 `json:"id"`
	Title  string `json:"title"`
	Artist string `json:"artist"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	slog.Error("request failed", slog.Int("status", status), slog.String("error", msg))
	writeJSON(w, status, map[string]string{"error": msg})
}

func saveUploadedFile(r *http.Request) (string, string, error) {
	file, header, err := r.FormFile("file")
	if err != nil {
		return "", "", fmt.Errorf("no file provided: %w", err)
	}
	defer file.Close()

	if err := util.CreateFolder("tmp"); err != nil {
		return "", "", fmt.Errorf("failed to create tmp dir: %w", err)
	}

	tmpPath := filepath.Join("tmp", header.Filename)
	dst, err := os.Create(tmpPath)
	if err != nil {
		return "", "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		return "", "", fmt.Errorf("failed to write file: %w", err)
	}

	return tmpPath, header.Filename, nil
}

func handleIndex(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
		if err := r.ParseMultipartForm(maxUploadSize); err != nil {
			writeError(w, http.StatusBadRequest, "file too large or invalid form")
			return
		}

		tmpPath, filename, err := saveUploadedFile(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		defer os.Remove(tmpPath)

		title := r.FormValue("title")
		artist := r.FormValue("artist")
		if title == "" {
			title = strings.TrimSuffix(filename, filepath.Ext(filename))
		}
		if artist == "" {
			artist = "unknown"
		}

		key := util.GenerateSongKey(title, artist)
		if _, exists, _ := eng.Store.GetSongByKey(key); exists {
			writeError(w, http.StatusConflict, fmt.Sprintf("%q by %q already exists", title, artist))
			return
		}

		songID, fpCount, err := eng.FingerprintFile(tmpPath, title, artist, "")
		if errors.Is(err, store.ErrDuplicateContent) {
			writeError(w, http.StatusConflict, "this file's content is already indexed under another entry")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		durationSec := 0
		if song, ok, _ := eng.Store.GetSongByID(songID); ok {
			durationSec = int(song.DurationSec)
		}

		writeJSON(w, http.StatusOK, indexResponse{
			Title:        title,
			Artist:       artist,
			Fingerprints: fpCount,
			DurationSec:  durationSec,
		})
	}
}

func handleMatch(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
		if err := r.ParseMultipartForm(maxUploadSize); err != nil {
			writeError(w, http.StatusBadRequest, "file too large or invalid form")
			return
		}

		tmpPath, _, err := saveUploadedFile(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		defer os.Remove(tmpPath)

		start := time.Now()
		result, err := eng.Recognize(tmpPath)
		if errors.Is(err, fingerprint.ErrNoMatch) {
			writeJSON(w, http.StatusOK, map[string]any{"match": nil})
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("match error: %v", err))
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"match":        result.Match,
			"fallback":     result.FallbackMatches,
			"searchTimeMs": time.Since(start).Milliseconds(),
		})
	}
}

func handleStats(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		totalSongs, err := eng.Store.TotalSongs()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "db error")
			return
		}
		totalHashes, err := eng.Store.TotalHashes()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "db error")
			return
		}

		writeJSON(w, http.StatusOK, statsResponse{
			TotalEntries:      totalSongs,
			TotalFingerprints: totalHashes,
		})
	}
}

func handleEntries(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		songs, err := eng.Store.GetSongs()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to list entries")
			return
		}

		entries := make([]entryResponse, 0, len(songs))
		for _, s := range songs {
			entries = append(entries, entryResponse{ID: s.ID, Title: s.Title, Artist: s.Artist})
		}
		writeJSON(w, http.StatusOK, entries)
	}
}

func serve(eng *engine.Engine, protocol, port string) {
	protocol = strings.ToLower(protocol)

	mux := http.NewServeMux()
	mux.Handle("/api/index", handleIndex(eng))
	mux.Handle("/api/match", handleMatch(eng))
	mux.Handle("/api/stats", handleStats(eng))
	mux.Handle("/api/entries", handleEntries(eng))

	handler := requestLogger(corsMiddleware(mux))

	slog.Info("starting server", slog.String("port", port), slog.String("protocol", protocol))
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		slog.Error("server error", slog.Any("error", err))
		os.Exit(1)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: 200}
		next.ServeHTTP(rec, r)

		if strings.HasPrefix(r.URL.Path, "/api/") {
			slog.Info("request", slog.String("method", r.Method), slog.String("path", r.URL.Path),
				slog.Int("status", rec.status), slog.Duration("duration", time.Since(start)))
		}
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
