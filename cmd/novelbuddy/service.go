package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"

	"github.com/catonblt/novelbuddies/pkg/app"
)

const serviceName = "novelbuddy"

// program runs the server under the OS service manager.
type program struct {
	params app.RunParams
	cancel context.CancelFunc
	done   chan error
}

var _ service.Interface = (*program)(nil)

// Start must not block.
func (p *program) Start(service.Service) error {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan error, 1)
	go func() { p.done <- app.Serve(ctx, p.params) }()
	return nil
}

func (p *program) Stop(service.Service) error {
	if p.cancel == nil {
		return nil
	}
	p.cancel()
	return <-p.done
}

// serviceConfig describes the service to the OS manager. The manager runs
// "service run" with the configuration path made absolute, since services
// start outside the installing shell's working directory.
func serviceConfig(params app.RunParams) (*service.Config, error) {
	args := []string{"service", "run"}
	if params.ConfigPath != "" {
		abs, err := filepath.Abs(params.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("resolve config path: %w", err)
		}
		args = append(args, "--config", abs)
	}
	if params.DataDir != "" {
		abs, err := filepath.Abs(params.DataDir)
		if err != nil {
			return nil, fmt.Errorf("resolve data dir: %w", err)
		}
		args = append(args, "--data-dir", abs)
	}
	if params.LogLevel != "" {
		args = append(args, "--log-level", params.LogLevel)
	}
	return &service.Config{
		Name:        serviceName,
		DisplayName: "Novel Buddies",
		Description: "Novel Buddies multi-agent writing server",
		Arguments:   args,
		Option:      service.KeyValue{"UserService": true},
	}, nil
}

func serviceCmd() *cobra.Command {
	actions := append([]string{"run", "status"}, service.ControlAction[:]...)
	return &cobra.Command{
		Use:       "service <" + strings.Join(actions, "|") + ">",
		Short:     "Install or control novelbuddy as a user service",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: actions,
		RunE: func(cmd *cobra.Command, args []string) error {
			params := runParams(cmd)
			if params.ConfigPath == "" && args[0] == "install" {
				resolved, err := app.ResolveConfigPath()
				if err != nil {
					return err
				}
				params.ConfigPath = resolved
			}
			svcCfg, err := serviceConfig(params)
			if err != nil {
				return err
			}
			s, err := service.New(&program{params: params}, svcCfg)
			if err != nil {
				return fmt.Errorf("service: %w", err)
			}

			switch args[0] {
			case "run":
				return s.Run()
			case "status":
				st, err := s.Status()
				if err != nil {
					return fmt.Errorf("service: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), statusName(st))
				return nil
			}
			if err := service.Control(s, args[0]); err != nil {
				return fmt.Errorf("service %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "service %s: ok\n", args[0])
			return nil
		},
	}
}

func statusName(st service.Status) string {
	switch st {
	case service.StatusRunning:
		return "running"
	case service.StatusStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
