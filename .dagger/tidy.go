package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"dagger/scholar/internal/dagger"
)

// CheckGoModTidy fails when "go mod tidy" would change go.mod or go.sum.
// The diff is reported without touching the source tree.
//
// +check
func (s *Scholar) CheckGoModTidy(ctx context.Context) (string, error) {
	_, err := s.goContainer().
		WithExec([]string{"go", "mod", "tidy", "-diff"}).
		Stdout(ctx)

	var e *dagger.ExecError
	if errors.As(err, &e) {
		return "", fmt.Errorf("module files are not tidy, run 'go mod tidy':\n\n%s", e.Stdout)
	} else if err != nil {
		return "", fmt.Errorf("running go mod tidy: %w", err)
	}

	return "go.mod and go.sum are tidy", nil
}

// CheckGoModVerify fails when a downloaded dependency no longer matches the
// hash recorded in go.sum.
//
// +check
func (s *Scholar) CheckGoModVerify(ctx context.Context) (string, error) {
	out, err := s.goContainer().
		WithExec([]string{"go", "mod", "verify"}).
		Stdout(ctx)

	var e *dagger.ExecError
	if errors.As(err, &e) {
		return "", fmt.Errorf("module verification failed:\n\n%s%s", e.Stdout, e.Stderr)
	} else if err != nil {
		return "", fmt.Errorf("running go mod verify: %w", err)
	}

	return strings.TrimSpace(out), nil
}
