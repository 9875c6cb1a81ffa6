// Package dhcp emits static-host include files for an ISC DHCP server
// from the same record model the DNS side routes, grounded on
// dnsmgr_isc_dhcp.DHCPd_manager.update. Only records carrying a `mac`
// option produce a host block.
//
// The original has a documented bug: the IPv6 restart branch tests
// `ipv4_file.replace()` instead of `ipv6_file.replace()` (spec.md §9 Open
// Questions). This implementation tests each family's own change flag.
package dhcp

import (
	"context"
	"fmt"
	"strings"

	"dnsmgr/internal/record"
	"dnsmgr/internal/transport"
)

// Family identifies which address family a rendered include file covers.
type Family string

const (
	FamilyIPv4 Family = "ipv4"
	FamilyIPv6 Family = "ipv6"
)

// Config is the per-family settings consumed from config.DHCPFamilyConfig.
type Config struct {
	IncludeFile string
	Restart     string // command template, no {zone} substitution needed
}

// ServiceController restarts the DHCP daemon after a changed include file.
// Implementations live in internal/svccontrol.
type ServiceController interface {
	Run(ctx context.Context, commandLine string) error
}

// Manager renders and installs DHCP static-host include files.
type Manager struct {
	Transport  transport.Transport
	Controller ServiceController
	IPv4       Config
	IPv6       Config
}

// render builds one family's include-file content: a fixed comment
// header, then (IPv4 only) one `host { ... }` block per A record carrying
// a MAC address. IPv6 emission is a declared placeholder: the header is
// written so the include file exists and can be `include`d, but no AAAA
// host blocks are generated.
func render(records []*record.Record, family Family) string {
	var b strings.Builder
	b.WriteString("#\n")
	b.WriteString("# This file is automatically created by dnsmgr\n")
	b.WriteString("# Do not edit, changes will be lost\n")
	b.WriteString("#\n")

	if family != FamilyIPv4 {
		return b.String()
	}
	for _, rec := range records {
		if rec.Type != record.TypeA || rec.MAC == "" || len(rec.Values) == 0 {
			continue
		}
		name := strings.ReplaceAll(rec.FQDN(), ".", "_")
		fmt.Fprintf(&b, "\nhost %s {\n", name)
		fmt.Fprintf(&b, "  hardware ethernet %s;\n", rec.MAC)
		fmt.Fprintf(&b, "  fixed-address %s;\n", rec.Values[0])
		b.WriteString("}\n")
	}
	return b.String()
}

// Update renders and, if changed, installs both families' include files,
// restarting only the families whose own file actually changed.
func (m *Manager) Update(ctx context.Context, records []*record.Record) error {
	if m.IPv4.IncludeFile == "" && m.IPv6.IncludeFile == "" {
		return fmt.Errorf("dhcp: enabled, but no include files configured")
	}

	if m.IPv4.IncludeFile != "" {
		changed, err := m.replaceIfChanged(ctx, m.IPv4.IncludeFile, render(records, FamilyIPv4))
		if err != nil {
			return fmt.Errorf("dhcp: updating ipv4 include file: %w", err)
		}
		if changed && m.IPv4.Restart != "" {
			if err := m.Controller.Run(ctx, m.IPv4.Restart); err != nil {
				return fmt.Errorf("dhcp: restarting ipv4 dhcp service: %w", err)
			}
		}
	}

	if m.IPv6.IncludeFile != "" {
		changed, err := m.replaceIfChanged(ctx, m.IPv6.IncludeFile, render(records, FamilyIPv6))
		if err != nil {
			return fmt.Errorf("dhcp: updating ipv6 include file: %w", err)
		}
		if changed && m.IPv6.Restart != "" {
			if err := m.Controller.Run(ctx, m.IPv6.Restart); err != nil {
				return fmt.Errorf("dhcp: restarting ipv6 dhcp service: %w", err)
			}
		}
	}
	return nil
}

// replaceIfChanged writes content to path only if it differs from what is
// already there, returning whether a replacement happened.
func (m *Manager) replaceIfChanged(ctx context.Context, path, content string) (bool, error) {
	existing, err := m.Transport.ReadFile(ctx, path)
	if err == nil && string(existing) == content {
		return false, nil
	}
	if err := m.Transport.WriteFile(ctx, path, []byte(content)); err != nil {
		return false, err
	}
	return true, nil
}
