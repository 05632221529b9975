// Scholar CI
//
// Package main provides reproducible builds and tests locally and in CI.
package main

import (
	"context"

	"dagger/scholar/internal/dagger"
)

// Scholar is the CI module for the scholar repository
type Scholar struct {
	// Project source directory
	//
	// +private
	Source *dagger.Directory
}

func New(
	// Project source directory.
	//
	// +defaultPath="/"
	// +ignore=[".git", "build", "tmp", ".scholar"]
	source *dagger.Directory,
) *Scholar {
	return &Scholar{
		Source: source,
	}
}

// goContainer returns a Debian based Go container with CGO enabled for the
// sqlite snapshot store.
func (s *Scholar) goContainer() *dagger.Container {
	return dag.Container().
		From("golang:1.25-bookworm").
		WithExec([]string{"apt-get", "update"}).
		WithExec([]string{"apt-get", "install", "-y", "gcc", "libsqlite3-dev"}).
		WithEnvVariable("CGO_ENABLED", "1").
		WithMountedCache("/go/pkg/mod", dag.CacheVolume("go-mod")).
		WithMountedCache("/root/.cache/go-build", dag.CacheVolume("go-build")).
		WithWorkdir("/src").
		WithDirectory("/src", s.Source)
}

// Test runs the unit tests, including the ginkgo suites
func (s *Scholar) Test(ctx context.Context) (string, error) {
	return s.goContainer().
		WithExec([]string{"go", "test", "./..."}).
		Stdout(ctx)
}
