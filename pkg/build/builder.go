/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/

// Package build runs the per-service external build step and asset discovery across
// services with bounded concurrency.
package build

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/fulmenhq/staticpush/pkg/logger"
	"github.com/fulmenhq/staticpush/pkg/service"
)

// ExternalBuilder prepares a service's assets before discovery.
type ExternalBuilder interface {
	Build(ctx context.Context, svc *service.Service) error
}

// CommandError is a build command that exited unsuccessfully.
type CommandError struct {
	Command string
	Output  string
	Err     error
}

func (e *CommandError) Error() string {
	if e.Output == "" {
		return fmt.Sprintf("%q: %v", e.Command, e.Err)
	}
	return fmt.Sprintf("%q: %v\n%s", e.Command, e.Err, e.Output)
}

func (e *CommandError) Unwrap() error { return e.Err }

// ShellBuilder runs the declared build command through its interpreter in the
// repository directory.
type ShellBuilder struct {
	// Env is added to every build environment before the service's own variables.
	Env map[string]string
}

// Build runs `<interpreter> -c <command>`. Services without a build block are a no-op.
func (b ShellBuilder) Build(ctx context.Context, svc *service.Service) error {
	if svc.Build == nil || svc.Build.Command == "" {
		return nil
	}
	shell := svc.Build.Shell()
	logger.Info(fmt.Sprintf("Building %s: %s", svc.Name, svc.Build.Command), logger.String("interpreter", shell))

	cmd := exec.CommandContext(ctx, shell, "-c", svc.Build.Command) // #nosec G204 -- command comes from the repository's own declaration
	cmd.Dir = svc.Path
	cmd.Env = append(os.Environ(), envList(b.Env)...)
	cmd.Env = append(cmd.Env, envList(svc.Build.Env)...)

	out, err := cmd.CombinedOutput()
	output := strings.TrimSpace(string(out))
	if err != nil {
		return &CommandError{Command: svc.Build.Command, Output: output, Err: err}
	}
	if output != "" {
		logger.Debug(output, logger.String("service", svc.Name))
	}
	return nil
}

func envList(env map[string]string) []string {
	list := make([]string, 0, len(env))
	for k, v := range env {
		list = append(list, k+"="+v)
	}
	sort.Strings(list)
	return list
}
