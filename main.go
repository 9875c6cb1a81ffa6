package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"dnsmgr/internal/api"
	"dnsmgr/internal/config"
	"dnsmgr/internal/dhcp"
	"dnsmgr/internal/loader"
	"dnsmgr/internal/reconciler"
	"dnsmgr/internal/svccontrol"
	"dnsmgr/internal/transport"
)

// usage lists the subcommands, grounded on dnsmgr.py's CLI_getzones,
// CLI_load, CLI_update, CLI_restart and CLI_status. This is not a
// general-purpose CLI framework, just the minimal wiring those classes did.
func usage() {
	fmt.Fprintln(os.Stderr, "usage: dnsmgr [--configfile path] [--loglevel level] <command>")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  getzones   list the zones discovered from the name server configuration")
	fmt.Fprintln(os.Stderr, "  load       load and print the records file, without touching any zone")
	fmt.Fprintln(os.Stderr, "  update     load records and reconcile DNS and DHCP")
	fmt.Fprintln(os.Stderr, "  restart    run the configured name-server restart command")
	fmt.Fprintln(os.Stderr, "  status     print which service controller driver is configured (does not probe it)")
	fmt.Fprintln(os.Stderr, "  serve      run the optional HTTP control surface")
}

func main() {
	configFile := flag.String("configfile", "/etc/dnsmgr/dnsmgr.conf", "path to the YAML configuration file")
	logLevel := flag.String("loglevel", "info", "one of info|warning|error|debug")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) != 1 {
		usage()
		os.Exit(2)
	}
	cmd := args[0]

	log := logrus.New()
	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("dnsmgr: %v", err)
	}

	t := buildTransport(cfg.DNSServer.Config.Host, cfg.DNSServer.Config.Port)
	controller := buildController(cfg.DNSServer.Driver, t)
	rec := reconciler.New(t, controller, loader.NewFileLoader(), cfg, log)

	ctx := context.Background()

	switch cmd {
	case "getzones":
		runGetZones(ctx, rec)
	case "load":
		runLoad(rec)
	case "update":
		runUpdate(ctx, cfg, rec)
	case "restart":
		runRestart(ctx, rec)
	case "status":
		runStatus(controller)
	case "serve":
		runServe(rec, buildDHCPManager(cfg, t), cfg, log)
	default:
		usage()
		os.Exit(2)
	}
}

// buildTransport picks Local or Remote the way the original selects
// between operating directly on the name-server host and shelling out over
// SSH, keyed on whether a host is configured.
func buildTransport(host, port string) transport.Transport {
	if host == "" {
		return transport.NewLocal()
	}
	return transport.NewRemote(host, port)
}

// buildController selects a ServiceController by driver name, mirroring
// the original's dotted-path driver import for dns_server.driver.
func buildController(driver string, t transport.Transport) reconciler.ServiceController {
	switch driver {
	case "docker":
		return svccontrol.NewDockerController("dnsmgr-ns")
	default:
		return svccontrol.NewCommandController(t)
	}
}

func buildDHCPManager(cfg *config.Config, t transport.Transport) *dhcp.Manager {
	if !cfg.DHCPServer.Enable {
		return nil
	}
	controller := buildController(cfg.DHCPServer.Driver, t)
	return &dhcp.Manager{
		Transport:  t,
		Controller: controller,
		IPv4: dhcp.Config{
			IncludeFile: cfg.DHCPServer.IPv4.IncludeFile,
			Restart:     cfg.DHCPServer.IPv4.Restart,
		},
		IPv6: dhcp.Config{
			IncludeFile: cfg.DHCPServer.IPv6.IncludeFile,
			Restart:     cfg.DHCPServer.IPv6.Restart,
		},
	}
}

func runGetZones(ctx context.Context, rec *reconciler.Reconciler) {
	fmt.Println("Get zones")
	if _, err := rec.Discover(ctx); err != nil {
		fatalf("discovering zones: %v", err)
	}
	for _, z := range rec.Zones() {
		fmt.Println("zone")
		fmt.Println("    name", z.Name)
		fmt.Println("    kind", z.Kind)
		fmt.Println("    file", z.File)
	}
}

func runLoad(rec *reconciler.Reconciler) {
	fmt.Println("Load resource records")
	set, err := rec.LoadRecords()
	if err != nil {
		fatalf("loading records: %v", err)
	}
	for _, r := range set.All() {
		for _, v := range r.Values {
			fmt.Printf("%-30s %5s %-8s %s\n", r.FQDN(), r.TTL, r.Type, v)
			fmt.Printf("        reverse=%v", r.Reverse)
			if r.MAC != "" {
				fmt.Printf("  mac=%s", r.MAC)
			}
			fmt.Println()
		}
	}
}

func runUpdate(ctx context.Context, cfg *config.Config, rec *reconciler.Reconciler) {
	set, err := rec.LoadRecords()
	if err != nil {
		fatalf("loading records: %v", err)
	}
	if err := rec.UpdateDNS(ctx, set); err != nil {
		fatalf("updating DNS: %v", err)
	}
	if dhcpMgr := buildDHCPManager(cfg, rec.Transport); dhcpMgr != nil {
		if err := dhcpMgr.Update(ctx, set.All()); err != nil {
			fatalf("updating DHCP: %v", err)
		}
	}
}

func runRestart(ctx context.Context, rec *reconciler.Reconciler) {
	fmt.Println("Restart DNS server")
	if err := rec.Restart(ctx); err != nil {
		fatalf("restarting: %v", err)
	}
}

func runStatus(controller reconciler.ServiceController) {
	fmt.Println("Check status")
	if _, ok := controller.(*svccontrol.DockerController); ok {
		fmt.Println("    driver: docker")
		return
	}
	fmt.Println("    driver: command")
}

// runServe starts the optional HTTP control surface described in spec.md §6.
func runServe(rec *reconciler.Reconciler, dhcpMgr *dhcp.Manager, cfg *config.Config, log *logrus.Logger) {
	srv, err := api.New(rec, dhcpMgr, cfg.API)
	if err != nil {
		log.Fatalf("dnsmgr: starting control surface: %v", err)
	}

	e := echo.New()
	e.HideBanner = true
	srv.Register(e)

	listen := ":8053"
	if cfg.API != nil && cfg.API.Listen != "" {
		listen = cfg.API.Listen
	}
	log.Infof("dnsmgr: control surface listening on %s", listen)
	if err := e.Start(listen); err != nil && err != http.ErrServerClosed {
		log.Fatalf("dnsmgr: control surface: %v", err)
	}
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "dnsmgr: "+format+"\n", args...)
	os.Exit(1)
}
