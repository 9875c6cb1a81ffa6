package svccontrol

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
)

// DockerController restarts a containerized name or DHCP server by sending
// it a signal rather than running a restart command inside it, adapted from
// the project's original Docker-based CoreDNS reload path. commandLine
// values passed to Run are interpreted as a bare signal name (e.g.
// "SIGHUP"), not a shell command.
type DockerController struct {
	containerName string
	cli           *client.Client
	available     bool
}

// NewDockerController connects to the local Docker daemon and targets
// containerName. If the daemon is unreachable, the returned controller is
// still usable but every Run call fails with a descriptive error.
func NewDockerController(containerName string) *DockerController {
	d := &DockerController{containerName: containerName}

	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return d
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if _, err := cli.Ping(ctx); err != nil {
		cli.Close()
		return d
	}
	d.cli = cli
	d.available = true
	return d
}

func (d *DockerController) findContainer(ctx context.Context) (string, error) {
	containers, err := d.cli.ContainerList(ctx, container.ListOptions{All: true})
	if err != nil {
		return "", fmt.Errorf("svccontrol: listing containers: %w", err)
	}
	for _, ctr := range containers {
		for _, name := range ctr.Names {
			if strings.TrimPrefix(name, "/") == d.containerName {
				return ctr.ID, nil
			}
		}
	}
	return "", fmt.Errorf("svccontrol: container %q not found", d.containerName)
}

// Run sends commandLine, a signal name such as "SIGHUP" or "SIGUSR1", to the
// target container.
func (d *DockerController) Run(ctx context.Context, commandLine string) error {
	if !d.available {
		return fmt.Errorf("svccontrol: docker daemon not available")
	}
	signal := strings.TrimSpace(commandLine)
	if signal == "" {
		signal = "SIGHUP"
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	containerID, err := d.findContainer(ctx)
	if err != nil {
		return err
	}
	if err := d.cli.ContainerKill(ctx, containerID, signal); err != nil {
		return fmt.Errorf("svccontrol: signaling container %s: %w", d.containerName, err)
	}
	return nil
}
