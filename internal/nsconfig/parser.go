// Package nsconfig tokenizes a BIND-style name-server configuration file
// and discovers the zones it declares, recursing through `include`
// statements. It is a small hand-written tokenizer, not a general-purpose
// BIND grammar — exactly the vocabulary spec.md §4.2 describes.
package nsconfig

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
)

// ParseError reports a malformed name-server configuration file.
type ParseError struct {
	Msg string
}

func (e *ParseError) Error() string { return "nsconfig: " + e.Msg }

// ZoneInfo describes one zone declared in the name-server configuration.
type ZoneInfo struct {
	Name string
	File string
	Kind string // master, slave, ...
}

// ignoreZones are suppressed regardless of what the configuration declares.
var ignoreZones = map[string]bool{
	".":                true,
	"localhost":        true,
	"127.in-addr.arpa": true,
	"0.in-addr.arpa":   true,
	"255.in-addr.arpa": true,
}

// tokenchars are the ASCII letters a bare (unquoted) identifier may
// continue with once started.
func isTokenChar(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// tokenizer turns a byte stream into the small vocabulary of tokens BIND
// configuration files use: bare identifiers, quoted strings (quotes
// stripped), and the punctuation `{ }`. Comments (`;`, `#`, `//`) are
// skipped; a `;` therefore always starts a comment running to the end of
// the line and is never returned as a token.
type tokenizer struct {
	r      *bufio.Reader
	unread []rune
}

func newTokenizer(r io.Reader) *tokenizer {
	return &tokenizer{r: bufio.NewReader(r)}
}

func (t *tokenizer) nextRune() (rune, bool) {
	if n := len(t.unread); n > 0 {
		r := t.unread[n-1]
		t.unread = t.unread[:n-1]
		return r, true
	}
	r, _, err := t.r.ReadRune()
	if err != nil {
		return 0, false
	}
	return r, true
}

func (t *tokenizer) unreadRune(r rune) {
	t.unread = append(t.unread, r)
}

// next returns the next token, and false at end of file.
func (t *tokenizer) next() (string, bool) {
	var token []rune
	for {
		c, ok := t.nextRune()
		if !ok {
			return "", false
		}
		for ok && (c == ' ' || c == '\n' || c == '\t' || c == '\r') {
			c, ok = t.nextRune()
		}
		if !ok {
			return "", false
		}

		if c == '"' {
			for {
				c, ok = t.nextRune()
				if !ok || c == '"' {
					return string(token), true
				}
				token = append(token, c)
			}
		}

		if c == ';' || c == '#' {
			for ok && c != '\n' {
				c, ok = t.nextRune()
			}
			continue
		}

		if c == '/' {
			c2, ok2 := t.nextRune()
			if c2 == '/' {
				for ok2 && c2 != '\n' {
					c2, ok2 = t.nextRune()
				}
				continue
			}
			if ok2 {
				t.unreadRune(c2)
			}
		}

		token = append(token, c)
		c, ok = t.nextRune()
		for ok && isTokenChar(c) {
			token = append(token, c)
			c, ok = t.nextRune()
		}
		if ok {
			t.unreadRune(c)
		}
		return string(token), true
	}
}

// FileOpener opens the configuration file and the files it `include`s. It
// abstracts the open call so the parser works the same whether the config
// lives locally or behind a Transport.
type FileOpener interface {
	Open(path string) (io.ReadCloser, error)
}

// GetZones parses filename (and everything it includes) and returns every
// declared zone that is not in the hard-coded ignore set. baseDir
// resolves relative `file` paths; it corresponds to the name server's
// working directory (BIND's `directory` statement).
func GetZones(opener FileOpener, filename, baseDir string) (map[string]*ZoneInfo, error) {
	zones := make(map[string]*ZoneInfo)
	if err := parseFile(opener, filename, baseDir, zones); err != nil {
		return nil, err
	}
	return zones, nil
}

func parseFile(opener FileOpener, filename, baseDir string, zones map[string]*ZoneInfo) error {
	f, err := opener.Open(filename)
	if err != nil {
		return fmt.Errorf("nsconfig: opening %s: %w", filename, err)
	}
	defer f.Close()

	tok := newTokenizer(f)
	for {
		token, ok := tok.next()
		if !ok {
			return nil
		}
		switch token {
		case "include":
			inc, ok := tok.next()
			if !ok {
				return &ParseError{Msg: fmt.Sprintf("missing filename after include in %s", filename)}
			}
			if err := parseFile(opener, inc, baseDir, zones); err != nil {
				return err
			}
		case "zone":
			zone, err := parseZone(tok, baseDir)
			if err != nil {
				return err
			}
			if !ignoreZones[zone.Name] {
				zones[zone.Name] = zone
			}
		}
	}
}

func parseZone(tok *tokenizer, baseDir string) (*ZoneInfo, error) {
	zone := &ZoneInfo{}
	name, ok := tok.next()
	if !ok {
		return nil, &ParseError{Msg: "missing zone name"}
	}
	zone.Name = name

	t, ok := tok.next()
	if !ok {
		return nil, &ParseError{Msg: fmt.Sprintf("truncated zone %q", zone.Name)}
	}
	if t == "IN" {
		t, ok = tok.next()
		if !ok {
			return nil, &ParseError{Msg: fmt.Sprintf("truncated zone %q", zone.Name)}
		}
	}
	if t != "{" {
		return nil, &ParseError{Msg: fmt.Sprintf("missing token %q in zone %q", t, zone.Name)}
	}

	for t != "}" {
		t, ok = tok.next()
		if !ok {
			return nil, &ParseError{Msg: fmt.Sprintf("unbalanced braces in zone %q", zone.Name)}
		}
		switch t {
		case "type":
			kind, ok := tok.next()
			if !ok {
				return nil, &ParseError{Msg: fmt.Sprintf("missing type value in zone %q", zone.Name)}
			}
			zone.Kind = kind
		case "file":
			file, ok := tok.next()
			if !ok {
				return nil, &ParseError{Msg: fmt.Sprintf("missing file value in zone %q", zone.Name)}
			}
			if !filepath.IsAbs(file) {
				file = filepath.Join(baseDir, file)
			}
			zone.File = file
		}
	}
	return zone, nil
}
