// Package record defines the canonical record model: the Record declared
// by a records file, and the single-valued RR it fans out into once it is
// routed to a zone.
package record

import (
	"fmt"
	"net"
)

// Type is a resource record type as accepted by the records-file grammar.
type Type string

const (
	TypeA     Type = "A"
	TypeAAAA  Type = "AAAA"
	TypeCNAME Type = "CNAME"
	TypeMX    Type = "MX"
	TypeNS    Type = "NS"
	TypePTR   Type = "PTR"
	TypeSRV   Type = "SRV"
	TypeSSHFP Type = "SSHFP"
	TypeTLSA  Type = "TLSA"
	TypeTSIG  Type = "TSIG"
	TypeTXT   Type = "TXT"
)

// opaqueTypes are the valid types other than A/AAAA, which get their own
// address parsing.
var opaqueTypes = map[Type]bool{
	TypeCNAME: true,
	TypeMX:    true,
	TypeNS:    true,
	TypePTR:   true,
	TypeSRV:   true,
	TypeSSHFP: true,
	TypeTLSA:  true,
	TypeTSIG:  true,
	TypeTXT:   true,
}

// ValidType reports whether typ is one of the eleven accepted types.
func ValidType(typ Type) bool {
	return typ == TypeA || typ == TypeAAAA || opaqueTypes[typ]
}

// Options holds the optional `;key=val` trailers of a records-file line.
type Options struct {
	MAC     string
	Reverse *bool // nil means "use the current loader default"
}

// Record is one declaration from the records file: a name/type pair with
// one or more ordered values, coalesced by (fqdn, type) on load.
type Record struct {
	Domain  string
	Name    string // relative name, or "@" for the zone apex
	TTL     string // empty if not specified
	Type    Type
	Values  []string
	MAC     string
	Reverse bool
}

// FQDN returns the record's fully qualified name. A name of "@" means the
// domain apex, so the FQDN is the domain itself rather than "@.domain".
func (r *Record) FQDN() string {
	if r.Name == "@" {
		return r.Domain
	}
	return r.Name + "." + r.Domain
}

// AddValue appends one more value to the record, used when coalescing a
// second declaration with the same (fqdn, type).
func (r *Record) AddValue(v string) {
	r.Values = append(r.Values, v)
}

func (r *Record) String() string {
	return fmt.Sprintf("Record(domain=%s, name=%s, ttl=%s, type=%s, values=%v, mac=%s, reverse=%v)",
		r.Domain, r.Name, r.TTL, r.Type, r.Values, r.MAC, r.Reverse)
}

// RR is a single-valued resource record, the unit the Zone Router and Zone
// Renderer work with. A Record with N values fans out into N RRs.
type RR struct {
	Domain string
	Name   string
	TTL    string
	Type   Type
	Value  string
}

func (rr RR) String() string {
	return fmt.Sprintf("domain=%s, name=%s, type=%s, value=%s", rr.Domain, rr.Name, rr.Type, rr.Value)
}

// Fanout expands a coalesced Record into one RR per value.
func (r *Record) Fanout() []RR {
	rrs := make([]RR, 0, len(r.Values))
	for _, v := range r.Values {
		rrs = append(rrs, RR{Domain: r.Domain, Name: r.Name, TTL: r.TTL, Type: r.Type, Value: v})
	}
	return rrs
}

// NormalizeAddress parses and re-renders an A/AAAA value through net.IP so
// that equivalent textual forms (leading zeros, IPv6 compression) converge
// on one canonical string before being used as a trie lookup key or a
// rendered value. Values of every other type are returned unchanged.
func NormalizeAddress(typ Type, value string) (string, error) {
	if typ != TypeA && typ != TypeAAAA {
		return value, nil
	}
	ip := net.ParseIP(value)
	if ip == nil {
		return "", fmt.Errorf("invalid %s address: %q", typ, value)
	}
	switch typ {
	case TypeA:
		v4 := ip.To4()
		if v4 == nil {
			return "", fmt.Errorf("not an IPv4 address: %q", value)
		}
		return v4.String(), nil
	case TypeAAAA:
		v6 := ip.To16()
		if v6 == nil || ip.To4() != nil {
			return "", fmt.Errorf("not an IPv6 address: %q", value)
		}
		return v6.String(), nil
	}
	return value, nil
}
