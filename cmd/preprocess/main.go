package main

import (
	"flag"
	"log"
	"os"
	"time"

	"futures-tick-lab/internal/normalize"
	"futures-tick-lab/internal/preprocess"
)

func main() {
	input := flag.String("input", "", "Raw dump directory (YYYYMM/YYYYMMDD/<product>.csv)")
	output := flag.String("output", "", "Output directory (<product>/YYYYMMDD.csv)")
	timezone := flag.String("timezone", "UTC", "IANA location vendor timestamps are read in")

	flag.Parse()

	logger := log.New(os.Stdout, "[preprocess] ", log.LstdFlags|log.Lshortfile)

	if *input == "" || *output == "" {
		logger.Fatal("--input and --output are required")
	}

	loc, err := time.LoadLocation(*timezone)
	if err != nil {
		logger.Fatalf("Load timezone %q: %v", *timezone, err)
	}

	proc := preprocess.NewProcessor(normalize.NewTimestampNormalizer(loc), logger)
	res, err := proc.Run(*input, *output)
	if err != nil {
		logger.Fatalf("Error: %v", err)
	}

	logger.Printf("Done: %d files processed, %d failed, output in %s", res.Processed, res.Failed, *output)
	if res.Failed > 0 && res.Processed == 0 {
		os.Exit(1)
	}
}
