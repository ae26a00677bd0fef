// Package client wires the workspace and mirror engine into a long-running daemon.
package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mirrorbox/mirrorbox/internal/client/config"
	"github.com/mirrorbox/mirrorbox/internal/mirror"
)

type Client struct {
	config    *config.Config
	workspace *mirror.Workspace
	engine    *mirror.Engine
	log       *slog.Logger
}

func New(cfg *config.Config, log *slog.Logger) (*Client, error) {
	ws, err := mirror.NewWorkspace(cfg.SourceDir, cfg.BackupDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}

	return &Client{
		config:    cfg,
		workspace: ws,
		engine:    mirror.NewEngine(ws, cfg.Interval(), log),
		log:       log,
	}, nil
}

// Start runs the mirror loop until ctx is cancelled.
func (c *Client) Start(ctx context.Context) error {
	c.log.Info("mirrorbox client start", "source", c.workspace.SourceDir, "backup", c.workspace.BackupDir)

	if err := c.workspace.Validate(); err != nil {
		return err
	}
	if err := c.workspace.Lock(); err != nil {
		return err
	}
	defer c.workspace.Unlock()

	err := c.engine.Run(ctx)
	if errors.Is(err, context.Canceled) {
		c.log.Info("received interrupt signal, stopping client")
		err = nil
	}

	c.log.Info("mirrorbox client stop")
	return err
}

// SyncOnce validates the workspace and runs a single reconcile pass.
func (c *Client) SyncOnce() (bool, error) {
	if err := c.workspace.Validate(); err != nil {
		return false, err
	}
	if err := c.workspace.Lock(); err != nil {
		return false, err
	}
	defer c.workspace.Unlock()

	return c.engine.RunOnce()
}
