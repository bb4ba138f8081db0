package main

import (
	"flag"
	"fmt"
	"os"

	"jerseyocr/process/reprocess"
)

func main() {
	dir := flag.String("dir", "public/photos", "directory to scan for photos")
	dry := flag.Bool("dry-run", true, "dry-run: don't write to DB")
	minConf := flag.Float64("min-conf", 0.20, "minimum detection confidence to accept")
	flag.Parse()

	if os.Getenv("DB_DSN") == "" {
		fmt.Fprintln(os.Stderr, "DB_DSN not set; export and retry")
		os.Exit(2)
	}

	if err := reprocess.Run(*dir, *dry, *minConf); err != nil {
		fmt.Fprintf(os.Stderr, "run failed: %v\n", err)
		os.Exit(1)
	}
}
