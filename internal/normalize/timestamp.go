package normalize

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrBadTimestamp marks a row whose date or time fields could not be parsed.
// A row with an unparseable instant is dropped, never defaulted: a record
// stamped with the conversion wall clock would poison the series.
var ErrBadTimestamp = errors.New("unparseable timestamp")

// SessionOpen is the conventional session-open time used when a row carries a
// valid date but no usable time component.
var SessionOpen = struct{ Hour, Minute int }{9, 30}

// TimestampNormalizer parses vendor date/time fields into absolute instants
// with millisecond resolution.
//
// Night-session contracts encode hours past 24 to keep one logical trading
// session on a single clock; an hour of 29 means 05:00 on the following
// calendar day.
type TimestampNormalizer struct {
	loc *time.Location
}

// NewTimestampNormalizer creates a normalizer producing instants in loc.
// A nil loc means UTC.
func NewTimestampNormalizer(loc *time.Location) *TimestampNormalizer {
	if loc == nil {
		loc = time.UTC
	}
	return &TimestampNormalizer{loc: loc}
}

// Normalize parses a date field and a time field into one instant.
//
// Accepted date encodings: YYYYMMDD, YYYY-MM-DD, YYYY/MM/DD. When dateField
// is empty and timeField contains a full datetime ("2024-01-02 09:30:00"),
// the date is taken from timeField.
//
// Accepted time encodings, tried in order:
//   - HH:MM:SS[.fff] and HH/MM/SS variants, 2 or 3 components
//   - compact minute form, 3-4 digits (930, 0930), seconds forced to 00
//   - the CTP fractional-minute anomaly "HH:MM.sss" where the first digit
//     after the dot is whole seconds and the rest are hundredths
//   - positional digit runs as a last resort
//
// An hour >= 24 rolls the date forward by hour/24 days. If the time cannot be
// parsed but the date can, the session-open fallback applies; otherwise the
// row is rejected with ErrBadTimestamp.
func (n *TimestampNormalizer) Normalize(dateField, timeField string) (time.Time, error) {
	dateField = strings.TrimSpace(dateField)
	timeField = strings.TrimSpace(timeField)

	// Combined "date time" value in the time column
	if dateField == "" {
		if idx := strings.IndexByte(timeField, ' '); idx > 0 {
			dateField, timeField = timeField[:idx], strings.TrimSpace(timeField[idx+1:])
		} else {
			dateField, timeField = timeField, ""
		}
	}

	year, month, day, err := parseDate(dateField)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q", ErrBadTimestamp, dateField)
	}

	tod, err := parseTimeOfDay(timeField)
	if err != nil {
		if isBlankFiller(timeField) {
			// Date-only rows fall back to the conventional session open.
			tod = timeOfDay{hour: SessionOpen.Hour, minute: SessionOpen.Minute}
		} else {
			return time.Time{}, fmt.Errorf("%w: time %q", ErrBadTimestamp, timeField)
		}
	}

	// Session rollover: hours continue past midnight within one session.
	extraDays := 0
	if tod.hour >= 24 {
		extraDays = tod.hour / 24
		tod.hour = tod.hour % 24
	}

	t := time.Date(year, time.Month(month), day, tod.hour, tod.minute, tod.second, tod.millis*int(time.Millisecond), n.loc)
	if extraDays > 0 {
		t = t.AddDate(0, 0, extraDays)
	}
	return t, nil
}

type timeOfDay struct {
	hour, minute, second, millis int
}

// parseDate accepts YYYYMMDD and delimited YYYY-MM-DD / YYYY/MM/DD.
func parseDate(s string) (year, month, day int, err error) {
	if len(s) == 8 && allDigits(s) {
		year, _ = strconv.Atoi(s[:4])
		month, _ = strconv.Atoi(s[4:6])
		day, _ = strconv.Atoi(s[6:8])
		return validateDate(year, month, day)
	}

	for _, sep := range []string{"-", "/"} {
		parts := strings.Split(s, sep)
		if len(parts) != 3 {
			continue
		}
		year, err1 := strconv.Atoi(parts[0])
		month, err2 := strconv.Atoi(parts[1])
		day, err3 := strconv.Atoi(parts[2])
		if err1 != nil || err2 != nil || err3 != nil || len(parts[0]) != 4 {
			continue
		}
		return validateDate(year, month, day)
	}

	return 0, 0, 0, fmt.Errorf("unrecognized date %q", s)
}

func validateDate(year, month, day int) (int, int, int, error) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return 0, 0, 0, fmt.Errorf("date out of range %04d-%02d-%02d", year, month, day)
	}
	return year, month, day, nil
}

// parseTimeOfDay applies the accepted time encodings in order.
func parseTimeOfDay(s string) (timeOfDay, error) {
	if s == "" {
		return timeOfDay{}, errors.New("empty time")
	}

	// CTP fractional-minute anomaly: exactly one colon followed by ".sss".
	if strings.Count(s, ":") == 1 && strings.Contains(s, ".") {
		return parseFractionalMinute(s)
	}

	// Standard delimited form, ":" or "/" separators, 2-3 components
	for _, sep := range []string{":", "/"} {
		if !strings.Contains(s, sep) {
			continue
		}
		if tod, err := parseDelimited(s, sep); err == nil {
			return tod, nil
		}
	}

	// Compact minute form: 930 or 0930 read as HHMM
	if (len(s) == 3 || len(s) == 4) && allDigits(s) {
		padded := s
		if len(padded) == 3 {
			padded = "0" + padded
		}
		hour, _ := strconv.Atoi(padded[:2])
		minute, _ := strconv.Atoi(padded[2:])
		if minute > 59 {
			return timeOfDay{}, fmt.Errorf("compact time out of range %q", s)
		}
		return timeOfDay{hour: hour, minute: minute}, nil
	}

	// Last resort: positional digit runs
	return parseDigitRuns(s)
}

// parseDelimited handles HH:MM[:SS[.fff]].
func parseDelimited(s, sep string) (timeOfDay, error) {
	var millis int
	if idx := strings.LastIndexByte(s, '.'); idx >= 0 && sep == ":" {
		frac := s[idx+1:]
		s = s[:idx]
		if !allDigits(frac) || frac == "" {
			return timeOfDay{}, fmt.Errorf("bad fraction in %q", s)
		}
		millis = scaleMillis(frac)
	}

	parts := strings.Split(s, sep)
	if len(parts) < 2 || len(parts) > 3 {
		return timeOfDay{}, fmt.Errorf("bad component count in %q", s)
	}

	var tod timeOfDay
	var err error
	tod.millis = millis
	if tod.hour, err = strconv.Atoi(strings.TrimSpace(parts[0])); err != nil {
		return timeOfDay{}, err
	}
	if tod.minute, err = strconv.Atoi(strings.TrimSpace(parts[1])); err != nil {
		return timeOfDay{}, err
	}
	if len(parts) == 3 {
		if tod.second, err = strconv.Atoi(strings.TrimSpace(parts[2])); err != nil {
			return timeOfDay{}, err
		}
	}
	if tod.minute > 59 || tod.second > 59 {
		return timeOfDay{}, fmt.Errorf("time out of range %q", s)
	}
	return tod, nil
}

// parseFractionalMinute handles the vendor-anomalous "HH:MM.sss" form: the
// first digit after the dot is whole seconds, the remaining digits (padded to
// two) are hundredths converted to milliseconds. "29:00.1" is hour 29,
// second 1; rollover happens in Normalize.
func parseFractionalMinute(s string) (timeOfDay, error) {
	dot := strings.IndexByte(s, '.')
	timePart, secPart := s[:dot], s[dot+1:]
	if secPart == "" || !allDigits(secPart) {
		return timeOfDay{}, fmt.Errorf("bad fractional seconds in %q", s)
	}

	var tod timeOfDay
	var err error
	hm := strings.SplitN(timePart, ":", 2)
	if tod.hour, err = strconv.Atoi(strings.TrimSpace(hm[0])); err != nil {
		return timeOfDay{}, err
	}
	if tod.minute, err = strconv.Atoi(strings.TrimSpace(hm[1])); err != nil {
		return timeOfDay{}, err
	}
	if tod.minute > 59 {
		return timeOfDay{}, fmt.Errorf("minute out of range in %q", s)
	}

	// Pad to three digits: one for seconds, two for hundredths.
	padded := secPart
	for len(padded) < 3 {
		padded += "0"
	}
	tod.second, _ = strconv.Atoi(padded[:1])
	hundredths, _ := strconv.Atoi(padded[1:3])
	tod.millis = hundredths * 10
	return tod, nil
}

// parseDigitRuns extracts every run of digits positionally as hour, minute,
// second and fraction; 1-3 digit fraction runs scale to milliseconds by
// zero-padding on the right.
func parseDigitRuns(s string) (timeOfDay, error) {
	var runs []string
	var current strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			current.WriteRune(r)
			continue
		}
		if current.Len() > 0 {
			runs = append(runs, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		runs = append(runs, current.String())
	}
	if len(runs) == 0 {
		return timeOfDay{}, fmt.Errorf("no digits in %q", s)
	}

	var tod timeOfDay
	tod.hour, _ = strconv.Atoi(runs[0])
	if len(runs) > 1 {
		tod.minute, _ = strconv.Atoi(runs[1])
	}
	if len(runs) > 2 {
		tod.second, _ = strconv.Atoi(runs[2])
	}
	if len(runs) > 3 {
		tod.millis = scaleMillis(runs[3])
	}
	if tod.minute > 59 || tod.second > 59 {
		return timeOfDay{}, fmt.Errorf("time out of range %q", s)
	}
	return tod, nil
}

// scaleMillis scales a 1-3 digit fraction run to milliseconds by
// zero-padding on the right; longer runs truncate to three digits.
func scaleMillis(frac string) int {
	if len(frac) > 3 {
		frac = frac[:3]
	}
	for len(frac) < 3 {
		frac += "0"
	}
	ms, _ := strconv.Atoi(frac)
	return ms
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// isBlankFiller reports whether the time field is empty or punctuation-only
// filler rather than a malformed clock reading.
func isBlankFiller(timeField string) bool {
	return strings.Trim(timeField, "-/:. ") == ""
}
