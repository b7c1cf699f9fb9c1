// Package preprocess reshapes raw vendor tick dumps from their delivery
// layout (YYYYMM/YYYYMMDD/<product>.csv) into a per-product layout
// (<product>/YYYYMMDD.csv), fusing the TradingDay and UpdateTime columns
// into one full datetime along the way.
package preprocess

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"futures-tick-lab/internal/normalize"
	"futures-tick-lab/internal/vendorcsv"
)

const fusedLayout = "2006-01-02 15:04:05"

var (
	yearMonthRe = regexp.MustCompile(`^\d{6}$`)
	dayRe       = regexp.MustCompile(`^\d{8}$`)
)

// Result counts the outcome of one preprocessing run.
type Result struct {
	Processed int
	Failed    int
}

// Processor rewrites vendor dumps file by file.
type Processor struct {
	ts     *normalize.TimestampNormalizer
	logger *log.Logger
}

// NewProcessor creates a processor using ts to fuse date and time columns.
func NewProcessor(ts *normalize.TimestampNormalizer, logger *log.Logger) *Processor {
	return &Processor{ts: ts, logger: logger}
}

// Run walks inputDir for YYYYMM/YYYYMMDD/<product>.csv files and writes
// rewritten copies to outputDir/<product>/<YYYYMMDD>.csv. Directories that do
// not match the delivery layout are skipped with a log line; a file that
// fails is counted and the run continues.
func (p *Processor) Run(inputDir, outputDir string) (*Result, error) {
	months, err := subdirs(inputDir)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	for _, month := range months {
		if !yearMonthRe.MatchString(month) {
			p.logger.Printf("Skipping non-month directory %s", month)
			continue
		}

		days, err := subdirs(filepath.Join(inputDir, month))
		if err != nil {
			return res, err
		}
		for _, day := range days {
			if !dayRe.MatchString(day) {
				p.logger.Printf("Skipping non-day directory %s/%s", month, day)
				continue
			}

			files, err := filepath.Glob(filepath.Join(inputDir, month, day, "*.csv"))
			if err != nil {
				return res, err
			}
			sort.Strings(files)
			for _, file := range files {
				product := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
				outPath := filepath.Join(outputDir, product, day+".csv")

				if err := p.processFile(file, outPath); err != nil {
					p.logger.Printf("File %s failed: %v", file, err)
					res.Failed++
					continue
				}
				res.Processed++
			}
		}
	}
	return res, nil
}

// processFile rewrites one file, fusing TradingDay into UpdateTime. Rows whose
// timestamp cannot be fused keep their original UpdateTime value.
func (p *Processor) processFile(inPath, outPath string) error {
	file, err := vendorcsv.Read(inPath)
	if err != nil {
		return err
	}

	dateIdx, timeIdx := -1, -1
	for i, col := range file.Header {
		switch col {
		case "TradingDay":
			dateIdx = i
		case "UpdateTime":
			timeIdx = i
		}
	}
	if dateIdx < 0 || timeIdx < 0 {
		return fmt.Errorf("%s: TradingDay or UpdateTime column missing", inPath)
	}

	for _, row := range file.Rows {
		if timeIdx >= len(row) || dateIdx >= len(row) {
			continue
		}
		dt, err := p.ts.Normalize(row[dateIdx], row[timeIdx])
		if err != nil {
			continue
		}
		row[timeIdx] = dt.Format(fusedLayout)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(outPath), err)
	}
	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", outPath, err)
	}

	w := csv.NewWriter(out)
	werr := w.Write(file.Header)
	if werr == nil {
		werr = w.WriteAll(file.Rows)
	}
	if werr == nil {
		w.Flush()
		werr = w.Error()
	}
	if cerr := out.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		return fmt.Errorf("write %s: %w", outPath, werr)
	}
	return nil
}

func subdirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
