// Package validate checks recorded log files for format compliance and
// sampling cadence: the fixed column header, the version line, and the
// 1 Hz spacing of the serial-day timestamps.
package validate

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/efhkdmbc/honkey-pi/pkg/errors"
	"github.com/efhkdmbc/honkey-pi/pkg/schema"
)

// DefaultTolerance is the allowed deviation from the 1-second cadence.
const DefaultTolerance = 200 * time.Millisecond

// Format checks that the file's header carries the full column set in
// order and that the second line is a version marker. It returns the list
// of issues found; an empty list means the file is well-formed. A non-nil
// error means the file could not be read at all.
func Format(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "open log file")
	}
	defer f.Close()

	var issues []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if !sc.Scan() {
		return append(issues, "file is empty"), sc.Err()
	}
	// Column names are comma-free, so a plain split is exact here.
	header := strings.Split(strings.TrimRight(sc.Text(), "\r\n"), ",")
	if len(header) != schema.ColumnCount {
		issues = append(issues, fmt.Sprintf(
			"column count mismatch: expected %d, got %d", schema.ColumnCount, len(header)))
	}
	for i := 0; i < len(header) && i < schema.ColumnCount; i++ {
		if header[i] != schema.Columns[i] {
			issues = append(issues, fmt.Sprintf(
				"column %d mismatch: expected %q, got %q", i, schema.Columns[i], header[i]))
		}
	}

	if !sc.Scan() {
		return append(issues, "version line missing"), sc.Err()
	}
	version := strings.TrimRight(sc.Text(), "\r\n")
	if !strings.HasPrefix(version, "!v") {
		issues = append(issues, fmt.Sprintf(
			"version line format error: expected \"!v...\", got %q", version))
	}

	return issues, sc.Err()
}

// Timing checks that consecutive data rows are spaced one second apart
// within tolerance, reading the serial-day Utc column. Rows with a blank
// or unparseable timestamp are skipped, matching how partial rows are
// tolerated in recorded files.
func Timing(path string, tolerance time.Duration) ([]string, error) {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "open log file")
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	// Header and version line carry no timestamps.
	sc.Scan()
	sc.Scan()

	var serials []float64
	for sc.Scan() {
		parts := strings.SplitN(strings.TrimRight(sc.Text(), "\r\n"), ",", 3)
		if len(parts) < 2 || parts[1] == "" {
			continue
		}
		s, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			continue
		}
		serials = append(serials, s)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "read log file")
	}

	if len(serials) < 2 {
		return []string{"insufficient data rows for timing validation"}, nil
	}

	tolSeconds := tolerance.Seconds()
	outside := 0
	for i := 1; i < len(serials); i++ {
		diffSeconds := (serials[i] - serials[i-1]) * 86400.0
		if diffSeconds < 1.0-tolSeconds || diffSeconds > 1.0+tolSeconds {
			outside++
		}
	}

	if outside > 0 {
		total := len(serials) - 1
		pct := float64(outside) / float64(total) * 100
		return []string{fmt.Sprintf(
			"timing validation failed: %d out of %d intervals (%.1f%%) outside 1 Hz ±%.1fs tolerance",
			outside, total, pct, tolSeconds)}, nil
	}
	return nil, nil
}

// File runs both checks and reports whether the file passed, with the
// combined issue list. Timing is skipped when skipTiming is set.
func File(path string, tolerance time.Duration, skipTiming bool) (bool, []string, error) {
	issues, err := Format(path)
	if err != nil {
		return false, issues, err
	}
	if !skipTiming {
		timingIssues, err := Timing(path, tolerance)
		if err != nil {
			return false, issues, err
		}
		issues = append(issues, timingIssues...)
	}
	return len(issues) == 0, issues, nil
}
