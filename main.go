package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"trackid/shazam"
	"trackid/utils"

	"github.com/joho/godotenv"
)

func main() {
	_ = utils.CreateFolder("tmp")
	_ = utils.CreateFolder(SONGS_DIR)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	_ = godotenv.Load()
	fpConfig = loadFingerprintConfig()

	switch os.Args[1] {
	case "find":
		if len(os.Args) < 3 {
			fmt.Println("usage: trackid find <path_to_audio_file>")
			os.Exit(1)
		}
		find(os.Args[2])

	case "serve":
		serveCmd := flag.NewFlagSet("serve", flag.ExitOnError)
		protocol := serveCmd.String("proto", "http", "protocol to use (http or https)")
		port := serveCmd.String("p", "5000", "port to use")
		serveCmd.Parse(os.Args[2:])
		serve(*protocol, *port)

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
				fmt.Println("usage: trackid erase [db | all]")
				os.Exit(1)
			}
		}

		erase(SONGS_DIR, dbOnly, all)

	case "save":
		indexCmd := flag.NewFlagSet("save", flag.ExitOnError)
		force := indexCmd.Bool("force", false, "no effect: files without title/artist metadata are always indexed")
		indexCmd.BoolVar(force, "f", false, "no effect: files without title/artist metadata are always indexed (shorthand)")
		indexCmd.Parse(os.Args[2:])
		if indexCmd.NArg() < 1 {
			fmt.Println("usage: trackid save [-f|--force] <path_to_file_or_dir>")
			os.Exit(1)
		}
		save(indexCmd.Arg(0), *force)

	case "stream":
		if len(os.Args) < 4 {
			fmt.Println("usage: trackid stream <stream_id> <path_to_audio_segment>")
			os.Exit(1)
		}
		streamSegment(os.Args[2], os.Args[3])

	default:
		printUsage()
		os.Exit(1)
	}
}

// loadFingerprintConfig overlays the default fingerprinting parameters with
// any set in the environment (or the .env file loaded above). Unparsable or
// out-of-range values keep the default rather than aborting startup.
func loadFingerprintConfig() shazam.FingerprintConfig {
	cfg := shazam.DefaultConfig()

	if v, err := strconv.Atoi(utils.GetEnv("SAMPLE_RATE", "")); err == nil && v > 0 {
		cfg.SampleRate = v
	}
	if v, err := strconv.ParseFloat(utils.GetEnv("FFT_WINDOW_SIZE", ""), 64); err == nil && v > 0 {
		cfg.FFTWindowSize = v
	}
	if v, err := strconv.Atoi(utils.GetEnv("PEAK_BOX_SIZE", "")); err == nil && v >= 3 {
		cfg.PeakBoxSize = v
	}
	if v, err := strconv.ParseFloat(utils.GetEnv("POINT_EFFICIENCY", ""), 64); err == nil && v > 0 && v <= 1 {
		cfg.PointEfficiency = v
	}
	if v, err := strconv.ParseFloat(utils.GetEnv("TARGET_START", ""), 64); err == nil && v >= 0 {
		cfg.TargetStart = v
	}
	if v, err := strconv.ParseFloat(utils.GetEnv("TARGET_T", ""), 64); err == nil && v > 0 {
		cfg.TargetT = v
	}
	if v, err := strconv.ParseFloat(utils.GetEnv("TARGET_F", ""), 64); err == nil && v > 0 && v <= float64(cfg.SampleRate)/2 {
		cfg.TargetF = v
	}
	if v, err := strconv.ParseFloat(utils.GetEnv("CHUNK_DURATION_SEC", ""), 64); err == nil && v >= 0 {
		cfg.ChunkDurationSec = v
	}

	return cfg
}

func printUsage() {
	fmt.Println("usage: trackid <command>")
	fmt.Println()
	fmt.Println("commands:")
	fmt.Println("  find  <audio_file>              match a file against the database")
	fmt.Println("  save  [-f] <file_or_dir>        index audio file(s) into the database")
	fmt.Println("  erase [db | all]                clear database (and optionally audio files)")
	fmt.Println("  serve [-proto http] [-p 5000]    start the web server")
	fmt.Println("  stream <stream_id> <segment>     recognize one stream segment, notify on change")
}
