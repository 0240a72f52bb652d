package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"

	"github.com/lightlink-network/plugin-lightlink/internal/actions"
	"github.com/lightlink-network/plugin-lightlink/internal/agent"
	"github.com/lightlink-network/plugin-lightlink/internal/api"
	"github.com/lightlink-network/plugin-lightlink/internal/config"
	"github.com/lightlink-network/plugin-lightlink/pkg/logger"
	"github.com/lightlink-network/plugin-lightlink/pkg/plugin"
)

var version = "dev"

// main is the entrypoint of the LightLink plugin daemon.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("lightlinkd: %v", err)
	}
}

func run(ctx context.Context) error {
	configPath := flag.String("config", os.Getenv("LIGHTLINK_CONFIG"), "path to a .json or .toml config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if err := logger.Init(cfg.Logging); err != nil {
		return err
	}
	defer logger.Sync()
	appLog := logger.Named("lightlinkd")

	if err := promptKeystorePassword(cfg); err != nil {
		return err
	}

	store, closeStore, err := config.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	w, err := config.NewWallet(cfg, store)
	if err != nil {
		return err
	}

	publisher, err := config.OpenPublisher(ctx, cfg)
	if err != nil {
		return err
	}

	p := agent.New(actions.NewService(w, actions.WithPublisher(publisher)), agent.WithVersion(version))
	manager := plugin.NewManager(plugin.Settings{agent.SettingPrivateKey: cfg.Wallet.PrivateKey})
	if err := manager.Register(p); err != nil {
		_ = publisher.Close()
		return err
	}
	if err := manager.StartAll(ctx); err != nil {
		return err
	}
	defer func() {
		if err := manager.StopAll(context.Background()); err != nil {
			appLog.Warn("stop plugins", slog.Any("error", err))
		}
	}()

	appLog.Info("lightlinkd started",
		slog.String("version", version),
		slog.String("address", w.Address().Hex()),
		slog.String("cache", cfg.Cache.Driver),
		slog.Any("events", cfg.Events.Drivers))

	server := api.NewServer(cfg.Server.Address, p, logger.Named("api"))
	if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// promptKeystorePassword asks for the keystore password on the terminal when
// a keystore is configured without one.
func promptKeystorePassword(cfg *config.Config) error {
	if cfg.Wallet.PrivateKey != "" || cfg.Wallet.Mnemonic != "" {
		return nil
	}
	if cfg.Wallet.KeystorePath == "" || cfg.Wallet.KeystorePassword != "" {
		return nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil
	}
	fmt.Fprint(os.Stderr, "Keystore password: ")
	password, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return fmt.Errorf("read keystore password: %w", err)
	}
	cfg.Wallet.KeystorePassword = string(password)
	return nil
}
