package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cli, err := NewCLIWithDefaults()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer cli.Close()

	switch os.Args[1] {
	case "record":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: raster record <run-id> [trace-file]")
			os.Exit(1)
		}
		err = cli.Record(os.Args[2], optionalArg(3))
	case "audit":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: raster audit <run-id> [trace-file]")
			os.Exit(1)
		}
		err = cli.Audit(os.Args[2], optionalArg(3))
	case "fingerprint":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: raster fingerprint <run-id>")
			os.Exit(1)
		}
		err = cli.Fingerprint(os.Args[2])
	case "runs":
		err = cli.Runs()
	case "tiles":
		err = cli.Tiles()
	case "help", "-h", "--help":
		printUsage()
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// optionalArg returns os.Args[i] if present, or "" otherwise.
func optionalArg(i int) string {
	if len(os.Args) > i {
		return os.Args[i]
	}
	return ""
}
