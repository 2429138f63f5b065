// Command ipcd hosts the sample contracts on the endpoints described by a TOML file.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli"
	"go.uber.org/zap"

	"ipc-service/config"
	"ipc-service/logging"
	"ipc-service/registry"
)

func runCommand(c *cli.Context) (err error) {
	cfg := defaultConfig()
	if path := c.String("config"); path != "" {
		if cfg, err = config.Load(path); err != nil {
			return cli.NewExitError(err.Error(), 1)
		}
	}
	if level := c.String("log-level"); level != "" {
		cfg.LogLevel = level
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	defer logger.Sync()

	etcd, err := connectRegistry(cfg, logger)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	var reg registry.Registry
	if etcd != nil {
		defer etcd.Close()
		reg = etcd
	}

	host, err := buildHost(cfg, reg, logger)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := host.Run(ctx); err != nil {
		logger.Error("host stopped", zap.Error(err))
		return cli.NewExitError(err.Error(), 1)
	}
	return nil
}

func main() {
	app := cli.NewApp()
	app.Name = "ipcd"
	app.Usage = "host sample contracts on named pipes and TCP endpoints"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "config, c",
			Usage:  "TOML host configuration; the built-in sample endpoints are used when empty",
			EnvVar: "IPC_CONFIG",
		},
		cli.StringFlag{
			Name:  "log-level",
			Usage: "debug, info, warn or error (overridden by " + logging.LevelEnv + ")",
		},
	}
	app.Action = runCommand
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
