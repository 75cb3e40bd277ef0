package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/tefkah/seek-tune/engine"
	"github.com/tefkah/seek-tune/fingerprint"
	"github.com/tefkah/seek-tune/internal/util"
	"github.com/tefkah/seek-tune/store"
)

const songsDir = "songs"

func main() {
	_ = util.CreateFolder("tmp")
	_ = util.CreateFolder(songsDir)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	_ = godotenv.Load()

	eng, err := buildEngine()
	if err != nil {
		slog.Error("failed to open store", slog.Any("error", err))
		os.Exit(1)
	}
	defer eng.Store.Close()

	switch os.Args[1] {
	case "find":
		if len(os.Args) < 3 {
			fmt.Println("usage: seek-tune find <path_to_audio_file>")
			os.Exit(1)
		}
		find(eng, os.Args[2])

	case "serve":
		serveCmd := flag.NewFlagSet("serve", flag.ExitOnError)
		protocol := serveCmd.String("proto", "http", "protocol to use (http or https)")
		port := serveCmd.String("p", "5000", "port to use")
		serveCmd.Parse(os.Args[2:])
		serve(eng, *protocol, *port)

	case "erase":
		dbOnly := true
		all := false

		if len(os.Args) > 2 {
			switch os.Args[2] {
			case "db":
				dbOnly = true
			case "all":
				dbOnly = false
				all = true
			default:
				fmt.Println("usage: seek-tune erase [db | all]")
				os.Exit(1)
			}
		}
		erase(eng, songsDir, dbOnly, all)

	case "save":
		saveCmd := flag.NewFlagSet("save", flag.ExitOnError)
		force := saveCmd.Bool("force", false, "has no effect; title and artist always fall back to the file name")
		saveCmd.BoolVar(force, "f", false, "has no effect (shorthand for -force)")
		workers := saveCmd.Int("workers", 0, "worker pool size for directory ingest (0 = auto)")
		saveCmd.Parse(os.Args[2:])
		if saveCmd.NArg() < 1 {
			fmt.Println("usage: seek-tune save [-f|--force] [-workers N] <path_to_file_or_dir>")
			os.Exit(1)
		}
		save(eng, saveCmd.Arg(0), *workers)

	default:
		printUsage()
		os.Exit(1)
	}
}

func buildEngine() (*engine.Engine, error) {
	kind := store.Kind(util.GetEnv("SEEKTUNE_STORE", string(store.KindSQLite)))
	dsn := util.GetEnv("SEEKTUNE_DSN", "seektune.db")

	s, err := store.New(kind, dsn)
	if err != nil {
		return nil, err
	}

	cfg := fingerprint.DefaultConfig()
	if util.GetEnv("SEEKTUNE_PROFILE", "music") == "audiobook" {
		cfg = fingerprint.AudiobookConfig()
	}

	return engine.New(s, cfg)
}

func printUsage() {
	fmt.Println("usage: seek-tune <command>")
	fmt.Println()
	fmt.Println("commands:")
	fmt.Println("  find  <audio_file>               match a file against the database")
	fmt.Println("  save  [-f] [-workers N] <path>   index audio file(s) into the database")
	fmt.Println("  erase [db | all]                 clear database (and optionally audio files)")
	fmt.Println("  serve [-proto http] [-p 5000]    start the web server")
}
