package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dusk-indust/convene/internal/config"
	"github.com/dusk-indust/convene/internal/lineage"
	"github.com/dusk-indust/convene/internal/mcptools"
)

// runServeMCP serves the collaboration tools over MCP: stdio when addr is
// empty, streamable HTTP otherwise. Logs go to stderr; on the stdio
// transport stdout carries the protocol.
func runServeMCP(projectRoot, addr string) error {
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

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	svcCfg := mcptools.ServiceConfig{
		RepoPath:      resolveRepo(projectRoot, "", cfg),
		HistoryDir:    historyDir(projectRoot, cfg),
		Policy:        pol,
		MaxConcurrent: cfg.MaxConcurrent,
		Logger:        logger,
	}
	if store, err := openLineage(projectRoot); err != nil {
		logger.Warn("lineage graph unavailable", "error", err)
	} else if store != nil {
		defer store.Close()
		svcCfg.Recorder = lineage.NewRecorder(store)
	}

	svc := mcptools.NewCoordinatorService(mcptools.SpecialistTeam(pol, langs, cfg.ExcludeDirs...), svcCfg)
	server := mcptools.NewConveneMCPServer(svc)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if addr != "" {
		logger.Info("mcp server listening", "addr", addr)
		return mcptools.RunHTTP(ctx, server, addr)
	}
	return mcptools.RunStdio(ctx, server)
}
