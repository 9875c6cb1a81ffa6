package zone

import (
	"fmt"
	"net"
	"strings"
)

// Preamble carries the metadata that goes into the generated file's
// header comment, grounded on NS_Manager.saveZone's literal write()
// calls.
type Preamble struct {
	IncludeDir  string
	IncludeFile string
}

// Render produces the full include-file content for z: the fixed
// preamble, then one line per RR, grouped and ordered by Zone.Groups.
func Render(z *Zone, p Preamble) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, ";\n")
	fmt.Fprintf(&b, "; File generated by dnsmgr\n")
	fmt.Fprintf(&b, "; Do not edit, changes will be overwritten\n")
	fmt.Fprintf(&b, ";\n")
	fmt.Fprintf(&b, "; Zonefile : %s/%s\n", p.IncludeDir, p.IncludeFile)
	fmt.Fprintf(&b, "; Records  : %d\n", z.Len())
	fmt.Fprintf(&b, ";\n\n")
	fmt.Fprintf(&b, "$ORIGIN %s.\n\n", z.Name)

	switch z.Kind {
	case KindForward:
		renderForward(&b, z)
	case KindReverse4:
		if err := renderReverse(&b, z, 30); err != nil {
			return "", err
		}
	case KindReverse6:
		if err := renderReverse(&b, z, 50); err != nil {
			return "", err
		}
	default:
		return "", fmt.Errorf("zone: unknown zone kind %q for %q", z.Kind, z.Name)
	}
	return b.String(), nil
}

func renderForward(b *strings.Builder, z *Zone) {
	for _, group := range z.Groups() {
		for _, rr := range group {
			fmt.Fprintf(b, "%-30s  %5s  %-8s    %s\n", rr.Name, rr.TTL, rr.Type, rr.Value)
		}
	}
}

// renderReverse writes reverse4/reverse6 RRs. rr.Name holds the address
// being pointed at; the owner name is the address's reverse-DNS form with
// this zone's own labels stripped off, left-justified to nameWidth. rr.Value
// is already the fully qualified target name (the routed record's fqdn),
// so it only needs a trailing dot.
func renderReverse(b *strings.Builder, z *Zone, nameWidth int) error {
	for _, group := range z.Groups() {
		for _, rr := range group {
			addr := net.ParseIP(rr.Name)
			if addr == nil {
				return fmt.Errorf("zone: %q is not a valid address in reverse zone %q", rr.Name, z.Name)
			}
			name, err := ReverseName(z.Name, addr)
			if err != nil {
				return err
			}
			fmt.Fprintf(b, "%-*s  %5s  %s    %s.\n", nameWidth, name, rr.TTL, rr.Type, rr.Value)
		}
	}
	return nil
}
