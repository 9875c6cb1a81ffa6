// Package zone builds the in-memory forward and reverse zone collection a
// reconciliation pass works against: routing resource records into the
// zone that authoritatively covers them, and rendering each zone back out
// as the fixed-format include file BIND reads. Grounded on
// dnsmgr_util.Zone/Zones and dnsmgr_isc_bind.NS_Manager.saveZone.
package zone

import (
	"fmt"
	"net"
	"sort"
	"strings"

	"github.com/miekg/dns"

	"dnsmgr/internal/lpm"
	"dnsmgr/internal/record"
)

// Kind distinguishes the three flavors of zone a reconciliation pass
// produces include files for.
type Kind string

const (
	KindForward  Kind = "forward"
	KindReverse4 Kind = "reverse4"
	KindReverse6 Kind = "reverse6"
)

// Zone is one authoritative zone's accumulated resource records, keyed the
// way dnsmgr_util.Zone.add_rr keys them: name+domain concatenation, with NO
// apex special-casing and no separator. This is deliberately distinct from
// record.Record's FQDN-based key.
type Zone struct {
	Name string // zone name, e.g. "example.com" or "1.168.192.in-addr.arpa"
	Kind Kind
	// Prefix is set for reverse4/reverse6 zones; it is the address range
	// this zone's name decodes to, used to build the LPM index.
	Prefix *net.IPNet

	byKey map[string][]record.RR
	order []string
}

func newZone(name string, kind Kind, prefix *net.IPNet) *Zone {
	return &Zone{Name: name, Kind: kind, Prefix: prefix, byKey: make(map[string][]record.RR)}
}

func zoneKey(rr record.RR) string {
	return rr.Name + rr.Domain
}

// AddRR appends rr to the group sharing its (name, domain) key, preserving
// insertion order both within a key and across keys.
func (z *Zone) AddRR(rr record.RR) {
	key := zoneKey(rr)
	if _, ok := z.byKey[key]; !ok {
		z.order = append(z.order, key)
	}
	z.byKey[key] = append(z.byKey[key], rr)
}

// Len returns the number of distinct (name, domain) groups, matching the
// original's `len(zone)` record count used in the rendered preamble.
func (z *Zone) Len() int {
	return len(z.byKey)
}

// Groups returns every RR group, ordered ascending by key — the same
// deterministic order the original renders in.
func (z *Zone) Groups() [][]record.RR {
	keys := make([]string, len(z.order))
	copy(keys, z.order)
	sort.Strings(keys)
	out := make([][]record.RR, 0, len(keys))
	for _, k := range keys {
		out = append(out, z.byKey[k])
	}
	return out
}

// Collection holds every zone discovered for a reconciliation pass, plus
// the LPM indexes used to route reverse records.
type Collection struct {
	Forward  []*Zone
	Reverse4 []*Zone
	Reverse6 []*Zone

	lpm4 *lpm.Trie4[*Zone]
	lpm6 *lpm.Trie6[*Zone]
}

// New returns an empty Collection.
func New() *Collection {
	return &Collection{}
}

// AddZone registers a forward zone. Forward zones are kept sorted
// ascending by name length, shortest first, matching the original's
// `tmp.sort(key=lambda x: len(x.zone))`.
func (c *Collection) AddZone(name string) {
	c.Forward = append(c.Forward, newZone(name, KindForward, nil))
	sort.SliceStable(c.Forward, func(i, j int) bool {
		return len(c.Forward[i].Name) < len(c.Forward[j].Name)
	})
}

// AddZoneReverse4 registers an IPv4 reverse zone, deriving its covered
// address range from the zone name (e.g. "1.168.192.in-addr.arpa" covers
// 192.168.1.0/24).
func (c *Collection) AddZoneReverse4(name string) error {
	const suffix = ".in-addr.arpa"
	if !strings.HasSuffix(name, suffix) {
		return fmt.Errorf("zone: IPv4 reverse zone %q must end in %s", name, suffix)
	}
	labelPart := strings.TrimSuffix(name, suffix)
	labels := strings.Split(labelPart, ".")
	if len(labels) > 4 {
		return fmt.Errorf("zone: cannot extract an IPv4 prefix from zone name %q", name)
	}
	octets := make([]string, 0, 4)
	for i := len(labels) - 1; i >= 0; i-- {
		octets = append(octets, labels[i])
	}
	for len(octets) < 4 {
		octets = append(octets, "0")
	}
	cidr := fmt.Sprintf("%s/%d", strings.Join(octets, "."), 8*len(labels))
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		return fmt.Errorf("zone: deriving IPv4 prefix from %q: %w", name, err)
	}
	c.Reverse4 = append(c.Reverse4, newZone(name, KindReverse4, network))
	return nil
}

// AddZoneReverse6 registers an IPv6 reverse zone, deriving its covered
// address range from the nibble-reversed zone name.
func (c *Collection) AddZoneReverse6(name string) error {
	const suffix = ".ip6.arpa"
	if !strings.HasSuffix(name, suffix) {
		return fmt.Errorf("zone: IPv6 reverse zone %q must end in %s", name, suffix)
	}
	labelPart := strings.TrimSuffix(name, suffix)
	labels := strings.Split(labelPart, ".")
	if len(labels) > 31 {
		return fmt.Errorf("zone: cannot extract an IPv6 prefix from zone name %q", name)
	}
	nibbles := make([]string, 0, 32)
	for i := len(labels) - 1; i >= 0; i-- {
		nibbles = append(nibbles, labels[i])
	}
	for len(nibbles) < 32 {
		nibbles = append(nibbles, "0")
	}
	var b strings.Builder
	for i, n := range nibbles {
		if i > 0 && i%4 == 0 {
			b.WriteByte(':')
		}
		b.WriteString(n)
	}
	cidr := fmt.Sprintf("%s/%d", b.String(), 4*len(labels))
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		return fmt.Errorf("zone: deriving IPv6 prefix from %q: %w", name, err)
	}
	c.Reverse6 = append(c.Reverse6, newZone(name, KindReverse6, network))
	return nil
}

// InitSearch builds the LPM indexes over the registered reverse zones.
// Must be called once after all AddZoneReverse4/6 calls and before any
// RouteReverse4/RouteReverse6 call.
func (c *Collection) InitSearch() {
	c.lpm4 = lpm.NewTrie4[*Zone]()
	sort.SliceStable(c.Reverse4, func(i, j int) bool {
		li, _ := c.Reverse4[i].Prefix.Mask.Size()
		lj, _ := c.Reverse4[j].Prefix.Mask.Size()
		return li > lj
	})
	for _, z := range c.Reverse4 {
		c.lpm4.Add(z.Prefix, z)
	}

	c.lpm6 = lpm.NewTrie6[*Zone]()
	sort.SliceStable(c.Reverse6, func(i, j int) bool {
		li, _ := c.Reverse6[i].Prefix.Mask.Size()
		lj, _ := c.Reverse6[j].Prefix.Mask.Size()
		return li > lj
	})
	for _, z := range c.Reverse6 {
		c.lpm6.Add(z.Prefix, z)
	}
}

// RouteForward places rr into the forward zone whose name exactly matches
// rr.Domain. Returns false if no such zone is registered.
func (c *Collection) RouteForward(rr record.RR) bool {
	for _, z := range c.Forward {
		if z.Name == rr.Domain {
			z.AddRR(rr)
			return true
		}
	}
	return false
}

// RouteReverse4 places rr (a synthesized PTR: rr.Name holds the IPv4
// address, rr.Value the already fully-qualified target name) into the
// most specific covering reverse4 zone. Returns false if no zone covers
// the address.
func (c *Collection) RouteReverse4(rr record.RR) bool {
	addr := net.ParseIP(rr.Name)
	if addr == nil {
		return false
	}
	z, ok := c.lpm4.Lookup(addr)
	if !ok {
		return false
	}
	z.AddRR(rr)
	return true
}

// RouteReverse6 is RouteReverse4 for IPv6.
func (c *Collection) RouteReverse6(rr record.RR) bool {
	addr := net.ParseIP(rr.Name)
	if addr == nil {
		return false
	}
	z, ok := c.lpm6.Lookup(addr)
	if !ok {
		return false
	}
	z.AddRR(rr)
	return true
}

// All returns every zone in the order a reconciliation pass must process
// them: forward, then reverse4, then reverse6.
func (c *Collection) All() []*Zone {
	out := make([]*Zone, 0, len(c.Forward)+len(c.Reverse4)+len(c.Reverse6))
	out = append(out, c.Forward...)
	out = append(out, c.Reverse4...)
	out = append(out, c.Reverse6...)
	return out
}

// ReverseName returns the PTR owner name dns.ReverseAddr derives for addr,
// with the zone's own trailing labels stripped off — the name that
// belongs inside this zone's include file. renderReverse calls it on the
// address held in each PTR's rr.Name; rr.Name itself stays the address.
func ReverseName(zoneName string, addr net.IP) (string, error) {
	full, err := dns.ReverseAddr(addr.String())
	if err != nil {
		return "", fmt.Errorf("zone: computing reverse name for %s: %w", addr, err)
	}
	full = strings.TrimSuffix(full, ".")
	suffix := "." + zoneName
	if !strings.HasSuffix(full, suffix) {
		return full, nil
	}
	return strings.TrimSuffix(full, suffix), nil
}
