package zone

import (
	"strings"
	"testing"

	"dnsmgr/internal/record"
)

func TestAddZoneKeepsAscendingLengthOrder(t *testing.T) {
	c := New()
	c.AddZone("example.com")
	c.AddZone("a.example.com")
	c.AddZone("co")

	got := make([]string, len(c.Forward))
	for i, z := range c.Forward {
		got[i] = z.Name
	}
	want := []string{"co", "example.com", "a.example.com"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Forward order = %v, want %v", got, want)
			break
		}
	}
}

func TestRouteForwardExactMatch(t *testing.T) {
	c := New()
	c.AddZone("example.com")
	c.AddZone("example.net")

	ok := c.RouteForward(record.RR{Domain: "example.com", Name: "www", Type: record.TypeA, Value: "192.0.2.5"})
	if !ok {
		t.Fatal("RouteForward should have matched example.com")
	}
	if c.Forward[0].Len() != 1 && c.Forward[1].Len() != 1 {
		t.Fatalf("expected exactly one zone with one record")
	}

	ok = c.RouteForward(record.RR{Domain: "unknown.test", Name: "www", Type: record.TypeA, Value: "192.0.2.5"})
	if ok {
		t.Fatal("RouteForward should not match an undeclared domain")
	}
}

func TestRouteReverse4LongestPrefixMatch(t *testing.T) {
	c := New()
	if err := c.AddZoneReverse4("1.2.0.192.in-addr.arpa"); err != nil {
		t.Fatal(err)
	}
	if err := c.AddZoneReverse4("0.192.in-addr.arpa"); err != nil {
		t.Fatal(err)
	}
	c.InitSearch()

	ok := c.RouteReverse4(record.RR{Domain: "example.com", Name: "192.0.2.5", Type: record.TypePTR, Value: "www"})
	if !ok {
		t.Fatal("expected the address to be covered")
	}
	if c.Reverse4[0].Len() == 0 && c.Reverse4[1].Len() == 0 {
		t.Fatal("no reverse4 zone received the routed RR")
	}

	ok = c.RouteReverse4(record.RR{Domain: "example.com", Name: "10.0.0.1", Type: record.TypePTR, Value: "www"})
	if ok {
		t.Fatal("uncovered address should not route")
	}
}

func TestAddZoneReverse4RejectsBadSuffix(t *testing.T) {
	c := New()
	if err := c.AddZoneReverse4("example.com"); err == nil {
		t.Error("expected an error for a zone name not ending in .in-addr.arpa")
	}
}

func TestAddZoneReverse6DerivesPrefix(t *testing.T) {
	c := New()
	if err := c.AddZoneReverse6("1.0.0.0.c.e.f.d.0.7.4.0.1.0.0.2.ip6.arpa"); err != nil {
		t.Fatal(err)
	}
	if len(c.Reverse6) != 1 {
		t.Fatalf("expected one reverse6 zone, got %d", len(c.Reverse6))
	}
	bits, _ := c.Reverse6[0].Prefix.Mask.Size()
	if bits != 64 {
		t.Errorf("prefix length = %d, want 64", bits)
	}
}

func TestRenderForward(t *testing.T) {
	c := New()
	c.AddZone("example.com")
	c.RouteForward(record.RR{Domain: "example.com", Name: "www", TTL: "3600", Type: record.TypeA, Value: "192.0.2.5"})
	c.RouteForward(record.RR{Domain: "example.com", Name: "www", TTL: "3600", Type: record.TypeA, Value: "192.0.2.6"})

	out, err := Render(c.Forward[0], Preamble{IncludeDir: "/etc/bind/include", IncludeFile: "example.com"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "$ORIGIN example.com.") {
		t.Error("missing $ORIGIN header")
	}
	if !strings.Contains(out, "192.0.2.5") || !strings.Contains(out, "192.0.2.6") {
		t.Error("missing rendered A records")
	}
	if strings.Index(out, "192.0.2.5") > strings.Index(out, "192.0.2.6") {
		t.Error("records must render in insertion order within a key")
	}
}

func TestRenderReverse4StripsZoneSuffix(t *testing.T) {
	c := New()
	if err := c.AddZoneReverse4("2.0.192.in-addr.arpa"); err != nil {
		t.Fatal(err)
	}
	c.InitSearch()
	c.RouteReverse4(record.RR{Domain: "example.com", Name: "192.0.2.5", TTL: "3600", Type: record.TypePTR, Value: "www.example.com"})

	out, err := Render(c.Reverse4[0], Preamble{IncludeDir: "/etc/bind/include", IncludeFile: "2.0.192.in-addr.arpa"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "www.example.com.") {
		t.Errorf("rendered reverse zone missing expected target: %s", out)
	}
	lines := strings.Split(out, "\n")
	var recordLine string
	for _, l := range lines {
		if strings.Contains(l, "PTR") {
			recordLine = l
		}
	}
	if recordLine == "" {
		t.Fatalf("no PTR record line rendered: %s", out)
	}
	if !strings.HasPrefix(strings.TrimSpace(recordLine), "5") {
		t.Errorf("owner name = %q, want the zone suffix stripped down to %q", recordLine, "5")
	}
}
