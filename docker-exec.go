package mnet

// docker-exec.go implements the Runner collaborator on the Docker
// engine.  A device's image and command become a container; the handle
// the model retains is the container id.

import (
	"context"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/strslice"
	"github.com/docker/docker/client"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// A DockerRunner launches device executions as Docker containers
type DockerRunner struct {
	cli *client.Client
}

// CreateDockerRunner is a constructor.  The client configuration comes
// from the environment (DOCKER_HOST and friends) and the API version is
// negotiated with the engine.
func CreateDockerRunner() (*DockerRunner, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, errors.Wrap(err, "create docker client")
	}
	return &DockerRunner{cli: cli}, nil
}

// Run creates and starts a container from the image, with the command
// handed to a shell.  The returned handle is the container id.
func (dr *DockerRunner) Run(ctx context.Context, image string, command string) (string, error) {
	resp, err := dr.cli.ContainerCreate(ctx, &container.Config{
		Image: image,
		Cmd:   strslice.StrSlice{"sh", "-c", command},
		Tty:   true,
	}, nil, nil, nil, "")
	if err != nil {
		return "", errors.Wrapf(err, "create container from image %s", image)
	}
	if err := dr.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return "", errors.Wrapf(err, "start container %s", resp.ID)
	}
	log.Debugf("container %s running image %s", resp.ID, image)
	return resp.ID, nil
}

// Stop stops and removes the container behind the handle
func (dr *DockerRunner) Stop(ctx context.Context, handle string) error {
	if err := dr.cli.ContainerStop(ctx, handle, container.StopOptions{}); err != nil {
		return errors.Wrapf(err, "stop container %s", handle)
	}
	if err := dr.cli.ContainerRemove(ctx, handle, container.RemoveOptions{}); err != nil {
		return errors.Wrapf(err, "remove container %s", handle)
	}
	return nil
}

// Pid returns the pid of the container's init process, used when an
// interface must be rehomed into the container's network namespace
func (dr *DockerRunner) Pid(ctx context.Context, handle string) (int, error) {
	info, err := dr.cli.ContainerInspect(ctx, handle)
	if err != nil {
		return 0, errors.Wrapf(err, "inspect container %s", handle)
	}
	return info.State.Pid, nil
}
