package serial

import (
	"strings"
	"testing"
	"time"
)

const sampleZone = `$ORIGIN example.com.
@    IN SOA   ns1.example.com. hostmaster.example.com. (
                 2024010100 ; Serial
                 3600       ; Refresh
                 900        ; Retry
                 604800     ; Expire
                 86400 )    ; Minimum
`

func TestFindLocatesSerial(t *testing.T) {
	loc, err := Find([]byte(sampleZone))
	if err != nil {
		t.Fatal(err)
	}
	if loc.Value != "2024010100" {
		t.Errorf("Value = %q, want 2024010100", loc.Value)
	}
}

func TestFindUsesLastMatchingLine(t *testing.T) {
	content := sampleZone + "\n; another line that happens to end in 9999999999 ; Serial\n"
	loc, err := Find([]byte(content))
	if err != nil {
		t.Fatal(err)
	}
	if loc.Value != "9999999999" {
		t.Errorf("Value = %q, want the last matching line's serial", loc.Value)
	}
}

func TestFindMissingSerial(t *testing.T) {
	if _, err := Find([]byte("no serial comment here\n")); err == nil {
		t.Error("expected an error when no serial line is present")
	}
}

func TestAdvanceSameDayIncrementsSequence(t *testing.T) {
	today := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	got, err := Advance("2024010105", today)
	if err != nil {
		t.Fatal(err)
	}
	if got != "2024010106" {
		t.Errorf("Advance = %q, want 2024010106", got)
	}
}

func TestAdvancePastDateResetsSequence(t *testing.T) {
	today := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	got, err := Advance("2024010199", today)
	if err != nil {
		t.Fatal(err)
	}
	if got != "2024010500" {
		t.Errorf("Advance = %q, want 2024010500", got)
	}
}

func TestAdvanceSequenceRolloverAdvancesDay(t *testing.T) {
	today := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	got, err := Advance("2024010199", today)
	if err != nil {
		t.Fatal(err)
	}
	if got != "2024010200" {
		t.Errorf("Advance = %q, want 2024010200 (sequence rolled past 98, next day)", got)
	}
}

func TestAdvanceRejectsInvalidDate(t *testing.T) {
	if _, err := Advance("2024133199", time.Now()); err == nil {
		t.Error("expected an error for an invalid embedded date")
	}
}

func TestPatchPreservesLength(t *testing.T) {
	content := []byte(sampleZone)
	loc, err := Find(content)
	if err != nil {
		t.Fatal(err)
	}
	next, err := Advance(loc.Value, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	patched, err := Patch(content, loc, next)
	if err != nil {
		t.Fatal(err)
	}
	if len(patched) != len(content) {
		t.Errorf("Patch changed content length: %d vs %d", len(patched), len(content))
	}
	if !strings.Contains(string(patched), next) {
		t.Errorf("patched content does not contain the new serial %q", next)
	}
}

func TestPatchRejectsWrongLengthReplacement(t *testing.T) {
	loc := Location{Offset: 0, Value: "2024010100"}
	if _, err := Patch([]byte("0123456789"), loc, "123"); err == nil {
		t.Error("expected an error for a non-10-digit replacement")
	}
}
