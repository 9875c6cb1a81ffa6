// Package loader implements the records-file grammar (spec.md §4.4)
// behind a small pluggable Loader interface, mirroring the original's
// dynamically-imported `loader.type` design (file_loader.py was the one
// shipped default). FileLoader is the default, and only, shipped
// implementation: the declared grammar in full.
package loader

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dnsmgr/internal/record"
)

// Error reports a malformed records file.
type Error struct {
	Msg string
}

func (e *Error) Error() string { return "loader: " + e.Msg }

const allowedChars = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ_-."

// verifyDNSName reports whether name contains only characters the
// grammar allows in a bare (non-"@") name.
func verifyDNSName(name string) bool {
	for _, r := range name {
		if !strings.ContainsRune(allowedChars, r) {
			return false
		}
	}
	return true
}

var truthy = map[string]bool{"on": true, "true": true, "1": true, "t": true, "yes": true}
var falsy = map[string]bool{"off": true, "false": true, "0": true, "f": true, "no": true}

func parseBool(s string) (bool, error) {
	lower := strings.ToLower(s)
	if truthy[lower] {
		return true, nil
	}
	if falsy[lower] {
		return false, nil
	}
	return false, &Error{Msg: fmt.Sprintf("invalid boolean value %q", s)}
}

// defaultReverse reports whether typ gets PTR synthesis by default: true
// for A/AAAA, false for everything else (Open Question decision #4).
func defaultReverse(typ record.Type) bool {
	return typ == record.TypeA || typ == record.TypeAAAA
}

// Loader is the pluggable contract a records source implements. Load reads
// filename (recursing through $INCLUDE) and adds every declared Record to
// set.
type Loader interface {
	Load(filename string, set *record.Set) error
}

// scope is the directive state ($DOMAIN/$REVERSE/$REVERSE4/$REVERSE6)
// active while reading one file, inherited into $INCLUDE'd files the same
// way the original's instance-level self.domain carries across recursive
// load() calls.
type scope struct {
	domain   string
	reverse  bool
	reverse4 bool
	reverse6 bool
}

// FileLoader is the default Loader: the declared line-oriented grammar.
type FileLoader struct{}

// NewFileLoader returns the default grammar-based Loader.
func NewFileLoader() *FileLoader { return &FileLoader{} }

// Load reads filename and every file it $INCLUDEs, adding records to set.
func (l *FileLoader) Load(filename string, set *record.Set) error {
	s := &scope{reverse: true, reverse4: true, reverse6: true}
	return l.load(filename, set, s)
}

func (l *FileLoader) load(filename string, set *record.Set, s *scope) error {
	f, err := os.Open(filename)
	if err != nil {
		return &Error{Msg: fmt.Sprintf("opening %s: %v", filename, err)}
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), " \t\r")
		if line == "" || line[0] == '#' || line[0] == ';' {
			continue
		}
		if line[0] == '$' {
			if err := l.directive(line, filename, set, s); err != nil {
				return fmt.Errorf("%s:%d: %w", filename, lineNo, err)
			}
			continue
		}
		if err := l.recordLine(line, set, s); err != nil {
			return fmt.Errorf("%s:%d: %w", filename, lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return &Error{Msg: fmt.Sprintf("reading %s: %v", filename, err)}
	}
	return nil
}

func (l *FileLoader) directive(line, filename string, set *record.Set, s *scope) error {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return &Error{Msg: fmt.Sprintf("invalid $ syntax: %s", line)}
	}
	switch fields[0] {
	case "$DOMAIN":
		s.domain = fields[1]
	case "$INCLUDE":
		inc := fields[1]
		if !filepath.IsAbs(inc) {
			inc = filepath.Join(filepath.Dir(filename), inc)
		}
		return l.load(inc, set, s)
	case "$REVERSE":
		v, err := parseBool(fields[1])
		if err != nil {
			return err
		}
		s.reverse4, s.reverse6 = v, v
		s.reverse = v
	case "$REVERSE4":
		v, err := parseBool(fields[1])
		if err != nil {
			return err
		}
		s.reverse4 = v
	case "$REVERSE6":
		v, err := parseBool(fields[1])
		if err != nil {
			return err
		}
		s.reverse6 = v
	default:
		return &Error{Msg: fmt.Sprintf("invalid command %s", fields[0])}
	}
	return nil
}

func (l *FileLoader) recordLine(line string, set *record.Set, s *scope) error {
	main, opts := splitOptions(line)
	fields := strings.Fields(main)
	if len(fields) < 3 {
		return &Error{Msg: fmt.Sprintf("invalid syntax: %s", line)}
	}

	name := fields[0]
	fields = fields[1:]
	if name != "@" && !verifyDNSName(name) {
		return &Error{Msg: fmt.Sprintf("invalid name: %s in %s", name, line)}
	}

	var ttl string
	if isAllDigits(fields[0]) {
		ttl = fields[0]
		fields = fields[1:]
	}
	if len(fields) < 2 {
		return &Error{Msg: fmt.Sprintf("invalid syntax: %s", line)}
	}
	typ := record.Type(strings.ToUpper(fields[0]))
	value := strings.Join(fields[1:], " ")

	if !record.ValidType(typ) {
		return &Error{Msg: fmt.Sprintf("invalid type: %s in %s", typ, line)}
	}
	normalized, err := record.NormalizeAddress(typ, value)
	if err != nil {
		return &Error{Msg: fmt.Sprintf("%v in %s", err, line)}
	}

	rec := &record.Record{
		Domain:  s.domain,
		Name:    name,
		TTL:     ttl,
		Type:    typ,
		Values:  []string{normalized},
		Reverse: defaultReverse(typ),
	}
	if typ == record.TypeA {
		rec.Reverse = s.reverse4
	} else if typ == record.TypeAAAA {
		rec.Reverse = s.reverse6
	}

	for key, val := range opts {
		switch key {
		case "mac":
			rec.MAC = val
		case "reverse":
			v, err := parseBool(val)
			if err != nil {
				return err
			}
			rec.Reverse = v
		default:
			// Unknown options are tolerated, logged by the caller at
			// debug level if it wants to.
		}
	}

	set.Add(rec)
	return nil
}

// splitOptions splits a record line into its main fields and its `;`
// introduced, space-separated `key=val` options.
func splitOptions(line string) (string, map[string]string) {
	opts := make(map[string]string)
	idx := strings.Index(line, ";")
	if idx < 0 {
		return line, opts
	}
	main := line[:idx]
	rest := line[idx+1:]
	for _, tok := range strings.Fields(rest) {
		kv := strings.SplitN(tok, "=", 2)
		if len(kv) == 2 {
			opts[kv[0]] = kv[1]
		}
	}
	return main, opts
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
