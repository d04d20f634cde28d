package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pixeldup/dids/internal/config"
	"github.com/pixeldup/dids/internal/dao"
	"github.com/pixeldup/dids/internal/serverloop"
)

var (
	serverAddr   string
	serverPort   int
	serverDSN    string
	serveCfgFile string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the duplicate image detection server",
	Long: `Starts the TCP command server: accepts connections, frames one
line-protocol command per connection, and dispatches it against the
in-memory image index.`,
	RunE: runServer,
}

func init() {
	serveCmd.Flags().StringVar(&serverAddr, "addr", "0.0.0.0", "bind address")
	serveCmd.Flags().IntVar(&serverPort, "port", 9090, "TCP port")
	serveCmd.Flags().StringVar(&serverDSN, "dsn", "./data", "DAO connection string (postgres:// URL, or a filesystem directory)")
	serveCmd.Flags().StringVar(&serveCfgFile, "config", "", "optional YAML file overriding tunable defaults")

	rootCmd.AddCommand(serveCmd)
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFile(serveCfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg.Addr = serverAddr
	cfg.Port = serverPort
	cfg.DSN = serverDSN

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d, err := dao.Open(ctx, cfg.DSN)
	if err != nil {
		return fmt.Errorf("failed to open DAO: %w", err)
	}

	serverloop.Version = version
	srv := serverloop.New(cfg, d)

	slog.Info("starting dids server", "addr", fmt.Sprintf("%s:%d", cfg.Addr, cfg.Port), "dsn", cfg.DSN)
	fmt.Printf("dids listening on %s:%d\n", cfg.Addr, cfg.Port)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- srv.Run(ctx)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case sig := <-shutdown:
		slog.Info("shutdown signal received", "signal", sig)
		srv.Shutdown()
		if err := <-serverErrors; err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
	}

	fmt.Println("dids server stopped")
	return nil
}
