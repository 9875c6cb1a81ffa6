// Package svccontrol implements the ServiceController contracts that
// dhcp.Manager and the reconciler use to restart or reload name and DHCP
// servers after an include file changes. CommandController runs a
// configured command template verbatim, grounded on
// dnsmgr_isc_bind.NS_Manager.restart/reloadZone, which split self.cmd.restart
// and self.cmd.reload_zone.format(zone=zone) on spaces and hand them to
// runCmd.
package svccontrol

import (
	"context"
	"strings"

	"dnsmgr/internal/transport"
)

// CommandController runs a whitespace-split command line through a
// transport, local or remote. It performs no templating itself beyond the
// {zone} substitution the caller already applied to ReloadZone's format
// string — it does not escalate privileges or add a shell.
type CommandController struct {
	Transport transport.Transport
}

// NewCommandController returns a ServiceController that runs commands
// through t.
func NewCommandController(t transport.Transport) *CommandController {
	return &CommandController{Transport: t}
}

// Run splits commandLine on whitespace and executes it, matching
// cmd.split(" ") in the original: no shell, no globbing, no quoting rules.
func (c *CommandController) Run(ctx context.Context, commandLine string) error {
	args := strings.Fields(commandLine)
	if len(args) == 0 {
		return nil
	}
	_, err := c.Transport.Run(ctx, args...)
	return err
}
