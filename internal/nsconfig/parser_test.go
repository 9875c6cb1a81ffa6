package nsconfig

import (
	"errors"
	"io"
	"strings"
	"testing"
)

type memFS map[string]string

func (m memFS) Open(path string) (io.ReadCloser, error) {
	content, ok := m[path]
	if !ok {
		return nil, errors.New("not found: " + path)
	}
	return io.NopCloser(strings.NewReader(content)), nil
}

func TestGetZonesBasic(t *testing.T) {
	fs := memFS{
		"/etc/named.conf": `
			zone "example.com" {
				type master;
				file "example.com.zone";
			};
			zone "localhost" {
				type master;
				file "localhost.zone";
			};
		`,
	}
	zones, err := GetZones(fs, "/etc/named.conf", "/etc/zones")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := zones["localhost"]; ok {
		t.Error("localhost should be suppressed by the ignore set")
	}
	z, ok := zones["example.com"]
	if !ok {
		t.Fatal("example.com zone not discovered")
	}
	if z.Kind != "master" {
		t.Errorf("Kind = %q, want master", z.Kind)
	}
	if z.File != "/etc/zones/example.com.zone" {
		t.Errorf("File = %q, want relative path resolved against base dir", z.File)
	}
}

func TestGetZonesIncludeRecursion(t *testing.T) {
	fs := memFS{
		"/etc/named.conf": `
			include "/etc/named.conf.zones";
		`,
		"/etc/named.conf.zones": `
			zone "2.0.192.in-addr.arpa" IN {
				type master;
				file "/var/zones/rev.zone";
			};
		`,
	}
	zones, err := GetZones(fs, "/etc/named.conf", "/etc/zones")
	if err != nil {
		t.Fatal(err)
	}
	z, ok := zones["2.0.192.in-addr.arpa"]
	if !ok {
		t.Fatal("included zone not discovered")
	}
	if z.File != "/var/zones/rev.zone" {
		t.Errorf("File = %q, absolute path must not be rejoined to baseDir", z.File)
	}
}

func TestGetZonesCommentsIgnored(t *testing.T) {
	fs := memFS{
		"/etc/named.conf": `
			// a leading comment
			zone "example.com" { # trailing comment
				type master; ; stray semicolon is just an empty token loop
				file "example.com.zone";
			};
		`,
	}
	zones, err := GetZones(fs, "/etc/named.conf", "/etc/zones")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := zones["example.com"]; !ok {
		t.Fatal("zone not discovered past comments")
	}
}

func TestGetZonesUnbalancedBraces(t *testing.T) {
	fs := memFS{
		"/etc/named.conf": `
			zone "example.com" {
				type master;
				file "example.com.zone";
		`,
	}
	if _, err := GetZones(fs, "/etc/named.conf", "/etc/zones"); err == nil {
		t.Error("expected a ParseError for unbalanced braces")
	}
}

func TestGetZonesMissingInclude(t *testing.T) {
	fs := memFS{
		"/etc/named.conf": `include "/does/not/exist";`,
	}
	if _, err := GetZones(fs, "/etc/named.conf", "/etc/zones"); err == nil {
		t.Error("expected an error for a missing include target")
	}
}
