// Package serial locates and advances the SOA serial number in a BIND
// zone file, grounded on dnsmgr_isc_bind.NS_Manager.increaseSoaSerial: the
// serial must live on the last line ending in "; serial" (case
// insensitive), as exactly 10 digits immediately preceding that comment.
package serial

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Error reports a malformed or missing SOA serial.
type Error struct {
	Msg string
}

func (e *Error) Error() string { return "serial: " + e.Msg }

// Location is the byte offset of the 10-digit serial within the file's
// content, as found by Find.
type Location struct {
	Offset int
	Value  string // the 10 literal digits found
}

// Find scans content for the last line ending in "; serial" and returns
// the byte offset of the 10-digit serial immediately preceding that
// comment. Trailing whitespace on the line is ignored, matching the
// original's line.rstrip() before the suffix check.
func Find(content []byte) (Location, error) {
	text := string(content)
	lines := strings.Split(text, "\n")

	var serialLine string
	var lineOffset int
	found := false
	offset := 0
	for _, line := range lines {
		trimmed := strings.TrimRight(line, " \t\r")
		if strings.HasSuffix(strings.ToLower(trimmed), "; serial") {
			serialLine = trimmed
			lineOffset = offset
			found = true
		}
		offset += len(line) + 1
	}
	if !found {
		return Location{}, &Error{Msg: "no line ending in \"; serial\" found"}
	}

	p := len(serialLine) - len("; Serial")
	for p >= 0 && !isDigit(serialLine[p]) {
		p--
	}
	if p < 0 {
		return Location{}, &Error{Msg: "no digit found before the serial comment"}
	}
	p -= 9 // back up to what should be the first of 10 digits
	if p < 0 {
		return Location{}, &Error{Msg: "fewer than 10 digits before the serial comment"}
	}
	digits := serialLine[p : p+10]
	if !allDigits(digits) {
		return Location{}, &Error{Msg: fmt.Sprintf("expected 10 digits, found %q", digits)}
	}
	if p > 0 && isDigit(serialLine[p-1]) {
		return Location{}, &Error{Msg: fmt.Sprintf("more than 10 consecutive digits before the serial comment: %q", serialLine)}
	}

	return Location{Offset: lineOffset + p, Value: digits}, nil
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}

// Advance computes the next serial value from the current one, given
// today's date. The serial's first 8 digits are a YYYYMMDD date and the
// last 2 a same-day sequence number:
//   - if today is after the encoded date, reset to today with sequence 0
//   - if the sequence is already 99 or more, roll to the next day with
//     sequence 0
//   - otherwise, keep the date and increment the sequence
func Advance(current string, today time.Time) (string, error) {
	if len(current) != 10 || !allDigits(current) {
		return "", &Error{Msg: fmt.Sprintf("serial %q is not 10 digits", current)}
	}
	dateStr, seqStr := current[:8], current[8:10]
	date, err := time.Parse("20060102", dateStr)
	if err != nil {
		return "", &Error{Msg: fmt.Sprintf("serial %q does not start with a valid date", current)}
	}
	seq, err := strconv.Atoi(seqStr)
	if err != nil {
		return "", &Error{Msg: fmt.Sprintf("serial %q has a non-numeric sequence", current)}
	}

	today = time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	date = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)

	switch {
	case today.After(date):
		date = today
		seq = 0
	case seq > 98:
		date = date.AddDate(0, 0, 1)
		seq = 0
	default:
		seq++
	}
	return fmt.Sprintf("%s%02d", date.Format("20060102"), seq), nil
}

// Patch returns content with the serial at loc replaced by next. next must
// be exactly 10 digits, so the file's byte length is preserved — required
// since the SOA Editor's size-equality check runs after this.
func Patch(content []byte, loc Location, next string) ([]byte, error) {
	if len(next) != 10 {
		return nil, &Error{Msg: fmt.Sprintf("replacement serial %q is not 10 digits", next)}
	}
	if loc.Offset < 0 || loc.Offset+10 > len(content) {
		return nil, &Error{Msg: "serial location out of range"}
	}
	out := make([]byte, len(content))
	copy(out, content)
	copy(out[loc.Offset:loc.Offset+10], next)
	return out, nil
}
