package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dusk-indust/convene/internal/agent"
	"github.com/dusk-indust/convene/internal/config"
	"github.com/dusk-indust/convene/internal/remote"
	"github.com/dusk-indust/convene/internal/specialist"
)

// runServeAgent exposes one specialist over HTTP so remote coordinators
// can discover and invoke it.
func runServeAgent(projectRoot string, args []string) error {
	fs := flag.NewFlagSet("convene serve-agent", flag.ContinueOnError)
	role := fs.String("role", "", "specialist to serve: security, reviewer, architect, or devops")
	addr := fs.String("addr", ":8701", "listen address")
	repoFlag := fs.String("repo", "", "repository the served specialist reviews")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *role == "" {
		return fmt.Errorf("serve-agent: -role is required")
	}

	cfg, err := config.Load(projectRoot)
	if err != nil {
		return err
	}
	pol, err := loadPolicy(projectRoot, cfg)
	if err != nil {
		return err
	}
	langs, err := scanLanguages(cfg)
	if err != nil {
		return err
	}

	repo := resolveRepo(projectRoot, *repoFlag, cfg)
	ws := specialist.NewWorkspace(repo, pol, cfg.ExcludeDirs...).OnlyLanguages(langs...)
	reg := agent.NewRegistry()
	if err := specialist.RegisterDefaults(reg, ws); err != nil {
		return err
	}
	served, err := reg.Spawn(agent.Role(*role))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	handler := remote.NewAgentHandler(ctx, served)
	srv := remote.NewServer(handler.Card(version), handler)
	if err := srv.Start(ctx, *addr); err != nil {
		return err
	}
	fmt.Printf("serving %s on %s (reviewing %s)\n", served.Name(), *addr, repo)

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Stop(shutdownCtx)
}
