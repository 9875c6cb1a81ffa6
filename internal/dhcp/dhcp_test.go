package dhcp

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"dnsmgr/internal/record"
	"dnsmgr/internal/transport"
)

type fakeController struct {
	ran []string
}

func (f *fakeController) Run(ctx context.Context, commandLine string) error {
	f.ran = append(f.ran, commandLine)
	return nil
}

func TestUpdateWritesIPv4HostBlock(t *testing.T) {
	dir := t.TempDir()
	ctrl := &fakeController{}
	m := &Manager{
		Transport:  transport.NewLocal(),
		Controller: ctrl,
		IPv4:       Config{IncludeFile: filepath.Join(dir, "v4.conf"), Restart: "service isc-dhcp-server restart"},
	}
	records := []*record.Record{
		{Domain: "example.com", Name: "printer", Type: record.TypeA, Values: []string{"192.0.2.9"}, MAC: "aa:bb:cc:dd:ee:ff"},
		{Domain: "example.com", Name: "nomac", Type: record.TypeA, Values: []string{"192.0.2.10"}},
	}
	if err := m.Update(context.Background(), records); err != nil {
		t.Fatal(err)
	}
	content, err := transport.NewLocal().ReadFile(context.Background(), m.IPv4.IncludeFile)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(content), "host printer_example_com {") {
		t.Errorf("missing host block: %s", content)
	}
	if strings.Contains(string(content), "nomac") {
		t.Error("a record without a mac option should not produce a host block")
	}
	if len(ctrl.ran) != 1 {
		t.Fatalf("expected a restart on first write, got %d calls", len(ctrl.ran))
	}
}

func TestUpdateSkipsRestartWhenUnchanged(t *testing.T) {
	dir := t.TempDir()
	ctrl := &fakeController{}
	m := &Manager{
		Transport:  transport.NewLocal(),
		Controller: ctrl,
		IPv4:       Config{IncludeFile: filepath.Join(dir, "v4.conf"), Restart: "service isc-dhcp-server restart"},
	}
	records := []*record.Record{
		{Domain: "example.com", Name: "printer", Type: record.TypeA, Values: []string{"192.0.2.9"}, MAC: "aa:bb:cc:dd:ee:ff"},
	}
	if err := m.Update(context.Background(), records); err != nil {
		t.Fatal(err)
	}
	if err := m.Update(context.Background(), records); err != nil {
		t.Fatal(err)
	}
	if len(ctrl.ran) != 1 {
		t.Errorf("expected exactly one restart across two identical updates, got %d", len(ctrl.ran))
	}
}

func TestUpdateIPv6IsPlaceholderOnly(t *testing.T) {
	dir := t.TempDir()
	ctrlV4 := &fakeController{}
	m := &Manager{
		Transport:  transport.NewLocal(),
		Controller: ctrlV4,
		IPv6:       Config{IncludeFile: filepath.Join(dir, "v6.conf"), Restart: "service isc-dhcp-server6 restart"},
	}
	records := []*record.Record{
		{Domain: "example.com", Name: "host1", Type: record.TypeAAAA, Values: []string{"2001:db8::1"}, MAC: "aa:bb:cc:dd:ee:ff"},
	}
	if err := m.Update(context.Background(), records); err != nil {
		t.Fatal(err)
	}
	content, err := transport.NewLocal().ReadFile(context.Background(), m.IPv6.IncludeFile)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(content), "host host1_example_com") {
		t.Error("IPv6 emission is a placeholder and must not emit AAAA host blocks")
	}
	if len(ctrlV4.ran) != 1 {
		t.Fatalf("the ipv6 file's own header write should still trigger its own restart, got %d calls", len(ctrlV4.ran))
	}
}

func TestUpdateFamiliesRestartIndependently(t *testing.T) {
	dir := t.TempDir()
	ctrl := &fakeController{}
	m := &Manager{
		Transport:  transport.NewLocal(),
		Controller: ctrl,
		IPv4:       Config{IncludeFile: filepath.Join(dir, "v4.conf"), Restart: "restart-v4"},
		IPv6:       Config{IncludeFile: filepath.Join(dir, "v6.conf"), Restart: "restart-v6"},
	}
	records := []*record.Record{
		{Domain: "example.com", Name: "host1", Type: record.TypeA, Values: []string{"192.0.2.1"}, MAC: "aa:bb:cc:dd:ee:ff"},
	}
	// First update: both files are new, so both restart.
	if err := m.Update(context.Background(), records); err != nil {
		t.Fatal(err)
	}
	if len(ctrl.ran) != 2 {
		t.Fatalf("expected both families to restart on first write, got %v", ctrl.ran)
	}

	// Second update with one more host: the IPv4 file changes (a new
	// host gets added) but the IPv6 placeholder content does not. Only
	// restart-v4 must fire — this is the fixed bug: the original tested
	// ipv4_file's change flag for both branches.
	ctrl.ran = nil
	records = append(records, &record.Record{Domain: "example.com", Name: "host2", Type: record.TypeA, Values: []string{"192.0.2.2"}, MAC: "11:22:33:44:55:66"})
	if err := m.Update(context.Background(), records); err != nil {
		t.Fatal(err)
	}
	if len(ctrl.ran) != 1 || ctrl.ran[0] != "restart-v4" {
		t.Errorf("expected only restart-v4 to fire, got %v", ctrl.ran)
	}
}
