// Package testsupport starts throwaway backends for integration tests.
package testsupport

import (
	"context"
	"fmt"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Container is a started backend together with the address to reach it.
type Container struct {
	testcontainers.Container
	Endpoint string
}

// ContainerOption customizes the container request.
type ContainerOption func(req *testcontainers.ContainerRequest)

// WithImage overrides the default image.
func WithImage(image string) ContainerOption {
	return func(req *testcontainers.ContainerRequest) {
		req.Image = image
	}
}

// WithWaitStrategy replaces the default readiness check.
func WithWaitStrategy(strategies ...wait.Strategy) ContainerOption {
	return func(req *testcontainers.ContainerRequest) {
		req.WaitingFor = wait.ForAll(strategies...).WithDeadline(1 * time.Minute)
	}
}

// WithName sets the container name.
func WithName(containerName string) ContainerOption {
	return func(req *testcontainers.ContainerRequest) {
		req.Name = containerName
	}
}

// SetupMongo starts a standalone mongod and returns its mongodb:// URI.
func SetupMongo(ctx context.Context, opts ...ContainerOption) (*Container, error) {
	req := testcontainers.ContainerRequest{
		Image:        "mongo:7",
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor:   wait.ForLog("Waiting for connections").WithStartupTimeout(time.Minute),
	}
	return setup(ctx, req, "27017/tcp", "mongodb://%s:%s", opts)
}

// SetupRedis starts a redis server and returns its host:port address.
func SetupRedis(ctx context.Context, opts ...ContainerOption) (*Container, error) {
	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(time.Minute),
	}
	return setup(ctx, req, "6379/tcp", "%s:%s", opts)
}

func setup(
	ctx context.Context,
	req testcontainers.ContainerRequest,
	port nat.Port,
	endpointFormat string,
	opts []ContainerOption,
) (*Container, error) {
	for _, opt := range opts {
		opt(&req)
	}

	container, err := testcontainers.GenericContainer(
		ctx,
		testcontainers.GenericContainerRequest{
			ContainerRequest: req,
			Started:          true,
		})
	if err != nil {
		return nil, err
	}

	host, err := container.Host(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, err
	}
	mapped, err := container.MappedPort(ctx, port)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, err
	}

	return &Container{
		Container: container,
		Endpoint:  fmt.Sprintf(endpointFormat, host, mapped.Port()),
	}, nil
}
