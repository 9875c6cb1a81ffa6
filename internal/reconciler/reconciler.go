// Package reconciler orchestrates one reconciliation pass: discover zones
// (C2), route loaded records into them (C5), render (C6), replace-if-changed,
// and advance the SOA serial (C7) on every zone actually touched. Grounded
// on dnsmgr.DNS_Mgr.update_dns/restart, with the incidental module-level
// globals the original carries (`current_loader_domain`, a bare `logging`
// call) re-architected into explicit fields of the Reconciler.
package reconciler

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hexops/gotextdiff"
	"github.com/hexops/gotextdiff/myers"
	"github.com/hexops/gotextdiff/span"
	"github.com/sirupsen/logrus"

	"dnsmgr/internal/config"
	"dnsmgr/internal/loader"
	"dnsmgr/internal/nsconfig"
	"dnsmgr/internal/record"
	"dnsmgr/internal/serial"
	"dnsmgr/internal/transport"
	"dnsmgr/internal/zone"
)

// ServiceController restarts the name server or reloads a single zone.
// Implementations live in internal/svccontrol.
type ServiceController interface {
	Run(ctx context.Context, commandLine string) error
}

// ZoneDescriptor is the summary of one discovered zone, returned by
// Discover and used by the HTTP control surface's /zones endpoint.
type ZoneDescriptor struct {
	Name string
	Kind zone.Kind
	File string
}

// Reconciler ties the Config Parser, Zone Router/Renderer, and Serial
// Editor together into the discover→index→route→render→diff→replace→reload
// pipeline spec.md §4.8 describes.
type Reconciler struct {
	Transport  transport.Transport
	Controller ServiceController
	Loader     loader.Loader
	Config     *config.Config
	Log        *logrus.Logger

	zoneInfo map[string]*nsconfig.ZoneInfo
}

// New returns a Reconciler. If log is nil, a default logrus.Logger is used.
func New(t transport.Transport, controller ServiceController, l loader.Loader, cfg *config.Config, log *logrus.Logger) *Reconciler {
	if log == nil {
		log = logrus.New()
	}
	return &Reconciler{Transport: t, Controller: controller, Loader: l, Config: cfg, Log: log}
}

type transportOpener struct {
	ctx context.Context
	t   transport.Transport
}

func (o *transportOpener) Open(path string) (io.ReadCloser, error) {
	data, err := o.t.ReadFile(o.ctx, path)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(strings.NewReader(string(data))), nil
}

// Discover parses the name-server configuration and returns a fully
// indexed zone.Collection containing only master zones not named in the
// hard-coded or configured ignore sets.
func (r *Reconciler) Discover(ctx context.Context) (*zone.Collection, error) {
	dnsCfg := r.Config.DNSServer.Config
	opener := &transportOpener{ctx: ctx, t: r.Transport}
	discovered, err := nsconfig.GetZones(opener, dnsCfg.ConfigFile, dnsCfg.Directory)
	if err != nil {
		return nil, fmt.Errorf("reconciler: discovering zones: %w", err)
	}

	ignore := make(map[string]bool, len(dnsCfg.IgnoreZones))
	for _, z := range dnsCfg.IgnoreZones {
		ignore[z] = true
	}

	coll := zone.New()
	r.zoneInfo = make(map[string]*nsconfig.ZoneInfo)
	for name, zi := range discovered {
		if ignore[name] {
			r.Log.Debugf("reconciler: zone %s is in the configured ignore list, skipping", name)
			continue
		}
		if zi.Kind != "master" {
			r.Log.Debugf("reconciler: zone %s has kind %q, only master zones participate", name, zi.Kind)
			continue
		}
		switch {
		case strings.HasSuffix(name, ".in-addr.arpa"):
			if err := coll.AddZoneReverse4(name); err != nil {
				return nil, fmt.Errorf("reconciler: %w", err)
			}
		case strings.HasSuffix(name, ".ip6.arpa"):
			if err := coll.AddZoneReverse6(name); err != nil {
				return nil, fmt.Errorf("reconciler: %w", err)
			}
		default:
			coll.AddZone(name)
		}
		r.zoneInfo[name] = zi
	}
	coll.InitSearch()
	return coll, nil
}

// Zones returns a descriptor list of every currently discovered zone, for
// the HTTP control surface's /zones endpoint. Discover must have run first.
func (r *Reconciler) Zones() []ZoneDescriptor {
	out := make([]ZoneDescriptor, 0, len(r.zoneInfo))
	for name, zi := range r.zoneInfo {
		kind := zone.KindForward
		switch {
		case strings.HasSuffix(name, ".in-addr.arpa"):
			kind = zone.KindReverse4
		case strings.HasSuffix(name, ".ip6.arpa"):
			kind = zone.KindReverse6
		}
		out = append(out, ZoneDescriptor{Name: name, Kind: kind, File: zi.File})
	}
	return out
}

// LoadRecords reads every configured record source into one coalesced Set.
// A loader error aborts the whole reconciliation; an unrecognised source
// type is logged and skipped, matching C10's external-plugin contract.
func (r *Reconciler) LoadRecords() (*record.Set, error) {
	set := record.NewSet()
	for _, src := range r.Config.Records {
		switch src.Type {
		case "file_loader.py", "file_loader", "file":
			if err := r.Loader.Load(src.Name, set); err != nil {
				return nil, fmt.Errorf("reconciler: loading %s: %w", src.Name, err)
			}
		default:
			r.Log.Warnf("reconciler: unknown records source type %q for %q, skipping", src.Type, src.Name)
		}
	}
	return set, nil
}

// routeAndSynthesize fans every record out into RRs, routes each into its
// forward zone, and — when the record opts into reverse synthesis —
// synthesizes and routes a PTR into the most specific covering reverse
// zone. Per spec.md §4.5, forward and reverse routing are independent:
// a record whose domain has no local forward zone still gets its PTR
// synthesized and routed if a reverse zone covers it. Missing forward
// coverage logs info and drops only the forward RR; missing reverse
// coverage logs a warning and drops only that PTR.
func (r *Reconciler) routeAndSynthesize(coll *zone.Collection, set *record.Set) {
	for _, rec := range set.All() {
		for _, rr := range rec.Fanout() {
			if !coll.RouteForward(rr) {
				r.Log.Infof("reconciler: no forward zone covers %s, dropping %s record", rr.Domain, rr.Type)
			}
			if !rec.Reverse {
				continue
			}
			ptr := record.RR{Type: record.TypePTR, TTL: rec.TTL, Name: rr.Value, Value: rec.FQDN()}
			switch rec.Type {
			case record.TypeA:
				if !coll.RouteReverse4(ptr) {
					r.Log.Warnf("reconciler: no reverse4 zone covers %s, dropping PTR for %s", rr.Value, rec.FQDN())
				}
			case record.TypeAAAA:
				if !coll.RouteReverse6(ptr) {
					r.Log.Warnf("reconciler: no reverse6 zone covers %s, dropping PTR for %s", rr.Value, rec.FQDN())
				}
			}
		}
	}
}

// includeFileName substitutes {zone} into the configured include-file name
// template.
func includeFileName(template, zoneName string) string {
	return strings.ReplaceAll(template, "{zone}", zoneName)
}

// UpdateDNS runs one full reconciliation pass: discover zones, route every
// record, then render/replace/advance-serial/reload each zone in the
// required forward, reverse4, reverse6 order.
func (r *Reconciler) UpdateDNS(ctx context.Context, set *record.Set) error {
	coll, err := r.Discover(ctx)
	if err != nil {
		return err
	}
	r.routeAndSynthesize(coll, set)

	for _, z := range coll.All() {
		if err := r.reconcileZone(ctx, z); err != nil {
			return fmt.Errorf("reconciler: zone %s: %w", z.Name, err)
		}
	}
	return nil
}

// reconcileZone renders z, installs it if changed, and advances the SOA
// serial of its authoritative zone file. Every error is returned to
// UpdateDNS, which stops the whole run on it: an error raised before the
// include file is moved into place ends the run just as one raised after
// it does, and the zones after the failing one are not processed.
func (r *Reconciler) reconcileZone(ctx context.Context, z *zone.Zone) error {
	dnsCfg := r.Config.DNSServer.Config
	fileName := includeFileName(dnsCfg.IncludeFile, z.Name)
	includePath := filepath.Join(dnsCfg.IncludeDir, fileName)

	content, err := zone.Render(z, zone.Preamble{IncludeDir: dnsCfg.IncludeDir, IncludeFile: fileName})
	if err != nil {
		return fmt.Errorf("rendering: %w", err)
	}

	existing, readErr := r.Transport.ReadFile(ctx, includePath)
	if readErr == nil && string(existing) == content {
		r.Log.Debugf("reconciler: zone %s unchanged, skipping", z.Name)
		return nil
	}
	if readErr == nil {
		if diff := unifiedDiff(fileName, string(existing), content); diff != "" {
			r.Log.Debugf("reconciler: zone %s content changed:\n%s", z.Name, diff)
		}
	}

	tmpPath := filepath.Join(dnsCfg.TmpDir, fileName+".tmp")
	if err := r.Transport.WriteFile(ctx, tmpPath, []byte(content)); err != nil {
		return fmt.Errorf("writing temp include file: %w", err)
	}
	if err := r.Transport.Move(ctx, tmpPath, includePath); err != nil {
		return fmt.Errorf("installing include file: %w", err)
	}
	r.Log.Infof("reconciler: replaced include file for zone %s", z.Name)

	zi, ok := r.zoneInfo[z.Name]
	if !ok || zi.File == "" {
		return fmt.Errorf("no discovered authoritative zone file for %s", z.Name)
	}
	if err := r.advanceSerial(ctx, zi.File, z.Name); err != nil {
		return fmt.Errorf("advancing serial: %w", err)
	}
	return nil
}

// advanceSerial implements the Serial Editor's all-or-nothing steps:
// fetch a verified local copy, locate and advance the serial, patch it in
// place, push the patched copy back with a size and checksum check, install
// it, and reload the zone. Grounded on
// dnsmgr_isc_bind.NS_Manager.increaseSoaSerial.
func (r *Reconciler) advanceSerial(ctx context.Context, zonePath, zoneName string) error {
	local := transport.NewLocal()
	tmp, err := os.CreateTemp("", "dnsmgr-serial-*")
	if err != nil {
		return fmt.Errorf("serial: creating local temp file: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if err := transport.Copy(ctx, r.Transport, zonePath, local, tmpPath); err != nil {
		return fmt.Errorf("serial: fetching %s: %w", zonePath, err)
	}
	same, err := transport.SameContent(ctx, r.Transport, zonePath, local, tmpPath)
	if err != nil {
		return fmt.Errorf("serial: verifying fetched copy: %w", err)
	}
	if !same {
		return fmt.Errorf("serial: checksum mismatch after fetching %s", zonePath)
	}

	content, err := local.ReadFile(ctx, tmpPath)
	if err != nil {
		return fmt.Errorf("serial: %w", err)
	}
	loc, err := serial.Find(content)
	if err != nil {
		return fmt.Errorf("serial: %w", err)
	}
	next, err := serial.Advance(loc.Value, time.Now())
	if err != nil {
		return fmt.Errorf("serial: %w", err)
	}
	patched, err := serial.Patch(content, loc, next)
	if err != nil {
		return fmt.Errorf("serial: %w", err)
	}
	if err := local.WriteFile(ctx, tmpPath, patched); err != nil {
		return fmt.Errorf("serial: %w", err)
	}

	stagedPath := zonePath + ".dnsmgr-new"
	if err := transport.Copy(ctx, local, tmpPath, r.Transport, stagedPath); err != nil {
		return fmt.Errorf("serial: pushing updated zone file: %w", err)
	}
	same, err = transport.SameContent(ctx, local, tmpPath, r.Transport, stagedPath)
	if err != nil {
		return fmt.Errorf("serial: verifying pushed copy: %w", err)
	}
	if !same {
		return fmt.Errorf("serial: checksum mismatch after pushing updated zone file")
	}
	localSize, err := local.Size(ctx, tmpPath)
	if err != nil {
		return fmt.Errorf("serial: %w", err)
	}
	stagedSize, err := r.Transport.Size(ctx, stagedPath)
	if err != nil {
		return fmt.Errorf("serial: %w", err)
	}
	if localSize != stagedSize {
		return fmt.Errorf("serial: size mismatch after push (local=%d staged=%d)", localSize, stagedSize)
	}

	if err := r.Transport.Move(ctx, stagedPath, zonePath); err != nil {
		return fmt.Errorf("serial: installing updated zone file: %w", err)
	}
	r.Log.Infof("serial: advanced %s to %s for zone %s", zonePath, next, zoneName)

	if reloadCmd := r.Config.DNSServer.Config.Cmd.ReloadZone; reloadCmd != "" {
		cmd := strings.ReplaceAll(reloadCmd, "{zone}", zoneName)
		r.Log.Debugf("reconciler: running %q", cmd)
		if err := r.Controller.Run(ctx, cmd); err != nil {
			return fmt.Errorf("serial: reloading zone %s: %w", zoneName, err)
		}
	}
	return nil
}

// Restart invokes the configured restart command unchanged.
func (r *Reconciler) Restart(ctx context.Context) error {
	cmd := r.Config.DNSServer.Config.Cmd.Restart
	r.Log.Debugf("reconciler: running %q", cmd)
	return r.Controller.Run(ctx, cmd)
}

func unifiedDiff(filename, original, modified string) string {
	edits := myers.ComputeEdits(span.URIFromPath(filename), original, modified)
	unified := gotextdiff.ToUnified(fmt.Sprintf("a/%s", filename), fmt.Sprintf("b/%s", filename), original, edits)
	return fmt.Sprint(unified)
}
