package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/fusion-relay/relayer/internal/adapter/evm"
	"github.com/fusion-relay/relayer/internal/adapter/sui"
	"github.com/fusion-relay/relayer/internal/coordinator"
	"github.com/fusion-relay/relayer/internal/deadline"
	"github.com/fusion-relay/relayer/internal/httpapi"
	"github.com/fusion-relay/relayer/internal/store"

	"github.com/fusion-relay/relayer/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "relayer",
	Short: "Fusion+ style cross-chain relayer",
	Long:  "Coordinates Dutch-auction HTLC swaps between an EVM source chain and an object-chain destination.",
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the relayer service",
	RunE:  runStart,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("relayer v1.0.0")
	},
}

func init() {
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using system environment variables")
	}
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	st, err := store.Open(cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	srcAdapter := evm.New(cfg.Evm)
	if err := srcAdapter.Connect(ctx); err != nil {
		return fmt.Errorf("connect src adapter: %w", err)
	}
	if err := srcAdapter.Validate(ctx); err != nil {
		return fmt.Errorf("validate src adapter: %w", err)
	}
	defer srcAdapter.Close()

	dstAdapter := sui.New(cfg.Object)
	if err := dstAdapter.Connect(ctx); err != nil {
		return fmt.Errorf("connect dst adapter: %w", err)
	}
	if err := dstAdapter.Validate(ctx); err != nil {
		return fmt.Errorf("validate dst adapter: %w", err)
	}
	defer dstAdapter.Close()

	sched := deadline.New(st)
	coord := coordinator.New(st, srcAdapter, dstAdapter, sched, cfg.Relayer)
	sched.SetHandler(coord)

	var wg sync.WaitGroup
	wg.Add(4)

	go func() {
		defer wg.Done()
		if err := sched.Start(ctx); err != nil && ctx.Err() == nil {
			log.Printf("deadline scheduler stopped: %v", err)
		}
	}()
	go func() {
		defer wg.Done()
		if err := coord.Recover(ctx); err != nil {
			log.Printf("coordinator recovery failed: %v", err)
		}
	}()
	go func() {
		defer wg.Done()
		coord.WatchSrc(ctx)
	}()
	go func() {
		defer wg.Done()
		coord.WatchDst(ctx)
	}()

	server := httpapi.NewServer(cfg.API, coord)
	go func() {
		if err := server.Start(ctx); err != nil {
			log.Printf("http server stopped: %v", err)
		}
	}()

	log.Println("relayer started")
	<-ctx.Done()
	log.Println("shutdown signal received, draining in-flight orders...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.API.ShutdownTimeout)
	defer shutdownCancel()
	coord.Shutdown(shutdownCtx)
	wg.Wait()

	log.Println("relayer stopped")
	return nil
}
