package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/exec"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nickyhof/EmbedDB"
	"github.com/nickyhof/EmbedDB/config"
	"github.com/nickyhof/EmbedDB/migrate"
)

// NewListenCommand creates the listen command.
func NewListenCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "listen",
		Short: "Expose one database over the PostgreSQL wire protocol",
		Long: `Start an engine and accept PostgreSQL clients on the first free port
at or above --port.

Example:
  embeddb-server listen --data-dir ./data --port 5432
  embeddb-server listen --config embeddb.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, rootOpts)
			if err != nil {
				return err
			}
			return runListen(cmd.Context(), cfg)
		},
	}
}

func runListen(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	instance, err := EmbedDB.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer instance.Close()

	server := NewServer("EmbedDB", InstanceEngine(instance.Engine), authConfigFrom(cfg.Auth))
	if err := server.Listen(cfg.Host, cfg.Port, cfg.PortRange); err != nil {
		return err
	}
	defer server.Stop()

	printBanner()
	fmt.Printf("DATABASE_URL=%s\n\n", databaseURL(cfg, server.Port()))

	waitForSignal()
	log.Println("Shutting down...")
	return nil
}

// DevOptions holds flags for the dev command.
type DevOptions struct {
	*RootOptions
	ShadowPort int
}

// NewDevCommand creates the dev command.
func NewDevCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DevOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "dev [-- command [args...]]",
		Short: "Serve a database and its shadow for the migration tool",
		Long: `Start a primary and a shadow engine on consecutive ports, create the
migration history table on the primary and print DATABASE_URL and
SHADOW_DATABASE_URL. When a command is given it runs with both variables
set and the servers stop when it exits.

Example:
  embeddb-server dev
  embeddb-server dev -- npx prisma migrate dev`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, rootOpts)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("shadow-port") {
				cfg.ShadowPort = opts.ShadowPort
			}
			return runDev(cmd.Context(), cfg, args)
		},
	}

	cmd.Flags().IntVar(&opts.ShadowPort, "shadow-port", config.DefaultPort+1, "desired TCP port of the shadow database")
	return cmd
}

func runDev(ctx context.Context, cfg *config.Config, command []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	instance, err := EmbedDB.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer instance.Close()

	if err := migrate.EnsureTable(ctx, instance.Engine); err != nil {
		return err
	}
	shadow, err := instance.OpenShadow(ctx)
	if err != nil {
		return err
	}

	auth := authConfigFrom(cfg.Auth)
	primary := NewServer("EmbedDB", InstanceEngine(instance.Engine), auth)
	if err := primary.Listen(cfg.Host, cfg.Port, cfg.PortRange); err != nil {
		return err
	}
	defer primary.Stop()

	shadowServer := NewServer("EmbedDB shadow", InstanceEngine(shadow), auth)
	if err := shadowServer.Listen(cfg.Host, cfg.ShadowPort, cfg.PortRange); err != nil {
		return err
	}
	defer shadowServer.Stop()

	env := []string{
		"DATABASE_URL=" + databaseURL(cfg, primary.Port()),
		"SHADOW_DATABASE_URL=" + databaseURL(cfg, shadowServer.Port()),
	}

	if len(command) == 0 {
		printBanner()
		for _, v := range env {
			fmt.Println(v)
		}
		fmt.Println()
		waitForSignal()
		log.Println("Shutting down...")
		return nil
	}

	child := exec.CommandContext(ctx, command[0], command[1:]...)
	child.Env = append(os.Environ(), env...)
	child.Stdin, child.Stdout, child.Stderr = os.Stdin, os.Stdout, os.Stderr
	if err := child.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("%s exited with status %d", command[0], exitErr.ExitCode())
		}
		return err
	}
	return nil
}

// databaseURL is the connection string a client uses to reach port.
func databaseURL(cfg *config.Config, port int) string {
	role := "postgres"
	if cfg.Auth.Role != "" {
		role = cfg.Auth.Role
	}
	schema := cfg.Schema
	if schema == "" {
		schema = "public"
	}

	u := url.URL{
		Scheme:   "postgresql",
		User:     url.User(role),
		Host:     cfg.Host + ":" + strconv.Itoa(port),
		Path:     "/postgres",
		RawQuery: url.Values{"schema": {schema}, "sslmode": {"disable"}}.Encode(),
	}
	return u.String()
}

func printBanner() {
	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Printf("║   EmbedDB Server v%-19s  ║\n", Version)
	fmt.Println("║   PostgreSQL wire protocol gateway    ║")
	fmt.Println("╚═══════════════════════════════════════╝")
	fmt.Println()
}

func waitForSignal() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
}
