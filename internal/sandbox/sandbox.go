// Package sandbox rehearses a plan's command steps inside a Docker
// container. Hardening and cleanup scripts are destructive by nature;
// running them against a throwaway container first catches broken
// commands before they are baked into a real image.
package sandbox

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
)

// Container is a long-lived rehearsal container. It implements the plan
// execer, so a plan compiled against it runs its command steps via
// docker exec instead of the host shell.
type Container struct {
	docker client.APIClient
	name   string
	image  string
}

// New creates a rehearsal container handle. Nothing is started yet.
func New(docker client.APIClient, name, image string) *Container {
	return &Container{docker: docker, name: name, image: image}
}

// Connect builds a Docker client from the environment.
func Connect() (client.APIClient, error) {
	c, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("connect to docker: %w", err)
	}
	return c, nil
}

// Start creates and starts the container, pulling the image if it is not
// present locally.
func (c *Container) Start(ctx context.Context) error {
	cfg := &container.Config{
		Image: c.image,
		// Keep the container alive between execs.
		Cmd: []string{"sleep", "infinity"},
	}

	_, err := c.docker.ContainerCreate(ctx, cfg, nil, nil, nil, c.name)
	if err != nil {
		if !errdefs.IsNotFound(err) {
			return fmt.Errorf("create sandbox container: %w", err)
		}
		if err := c.pull(ctx); err != nil {
			return err
		}
		if _, err = c.docker.ContainerCreate(ctx, cfg, nil, nil, nil, c.name); err != nil {
			return fmt.Errorf("create sandbox container after pull: %w", err)
		}
	}

	if err := c.docker.ContainerStart(ctx, c.name, container.StartOptions{}); err != nil {
		return fmt.Errorf("start sandbox container: %w", err)
	}
	slog.Info("Sandbox container started.", "name", c.name, "image", c.image)
	return nil
}

func (c *Container) pull(ctx context.Context) error {
	slog.Info("Pulling sandbox image.", "image", c.image)
	resp, err := c.docker.ImagePull(ctx, c.image, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("pull image %s: %w", c.image, err)
	}
	defer resp.Close()
	if _, err := io.Copy(io.Discard, resp); err != nil {
		return fmt.Errorf("pull image %s: read response: %w", c.image, err)
	}
	return nil
}

// Exec runs a script through the given shell inside the container and
// returns the combined output. A non-zero exit code is an error; the
// output is still returned for the run log.
func (c *Container) Exec(ctx context.Context, shell, script string) (string, error) {
	resp, err := c.docker.ContainerExecCreate(ctx, c.name, container.ExecOptions{
		Cmd:          []string{shell, "-c", script},
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return "", fmt.Errorf("create exec: %w", err)
	}

	attach, err := c.docker.ContainerExecAttach(ctx, resp.ID, container.ExecAttachOptions{})
	if err != nil {
		return "", fmt.Errorf("attach exec: %w", err)
	}
	defer attach.Close()

	// Demux both streams into one buffer: the run log wants combined
	// output in arrival order.
	var combined bytes.Buffer
	if _, err := stdcopy.StdCopy(&combined, &combined, attach.Reader); err != nil {
		return combined.String(), fmt.Errorf("read exec output: %w", err)
	}

	info, err := c.docker.ContainerExecInspect(ctx, resp.ID)
	if err != nil {
		return combined.String(), fmt.Errorf("inspect exec: %w", err)
	}
	if info.ExitCode != 0 {
		return combined.String(), fmt.Errorf("run %q: exit code %d", script, info.ExitCode)
	}
	return combined.String(), nil
}

// Stop stops and removes the container. Both operations are idempotent —
// NotFound errors are ignored.
func (c *Container) Stop(ctx context.Context) error {
	if err := c.docker.ContainerStop(ctx, c.name, container.StopOptions{}); err != nil {
		if !errdefs.IsNotFound(err) {
			return fmt.Errorf("stop sandbox container: %w", err)
		}
	}
	if err := c.docker.ContainerRemove(ctx, c.name, container.RemoveOptions{Force: true}); err != nil {
		if !errdefs.IsNotFound(err) {
			return fmt.Errorf("remove sandbox container: %w", err)
		}
	}
	return nil
}
