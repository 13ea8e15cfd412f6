// Command sond is the process entrypoint for one signer: it loads
// config, dials the Bitcoin node and the host chain, wires the
// coordinator (internal/core/application) together, and runs until a
// termination signal arrives.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/peerplays-network/son-bitcoin/internal/config"
	"github.com/peerplays-network/son-bitcoin/internal/core/application"
	"github.com/peerplays-network/son-bitcoin/internal/core/ports"
	"github.com/peerplays-network/son-bitcoin/internal/infrastructure/bitcoinrpc"
	"github.com/peerplays-network/son-bitcoin/internal/infrastructure/hostchainrpc"
	gocron "github.com/peerplays-network/son-bitcoin/internal/infrastructure/scheduler/gocron"
	"github.com/peerplays-network/son-bitcoin/internal/infrastructure/zmqblock"
)

//nolint:all
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.WithError(err).Fatal("invalid config")
	}

	rpc, err := bitcoinrpc.Dial(bitcoinrpc.Config{
		Host:       fmt.Sprintf("%s:%d", cfg.NodeIP, cfg.NodeRPCPort),
		User:       cfg.NodeRPCUser,
		Pass:       cfg.NodeRPCPassword,
		Wallet:     cfg.WalletName,
		DisableTLS: cfg.NodeDisableTLS,
	})
	if err != nil {
		log.WithError(err).Fatal("failed to dial bitcoin node")
	}
	defer rpc.Close()

	if cfg.WalletName != "" {
		// Already-loaded is fine; the node keeps wallets loaded across
		// RPC reconnects.
		if err := rpc.LoadWallet(context.Background(), cfg.WalletName); err != nil {
			log.WithError(err).WithField("wallet", cfg.WalletName).Debug("load wallet")
		}
	}

	network, err := rpc.Network(context.Background())
	if err != nil {
		log.WithError(err).Fatal("failed to detect bitcoin network")
	}

	blockTopic := zmqblock.New(fmt.Sprintf("tcp://%s:%d", cfg.NodeIP, cfg.NodeZMQPort))

	hostChainClient := hostchainrpc.New(hostchainrpc.Config{
		URL:      cfg.HostChainURL,
		User:     cfg.HostChainUser,
		Password: cfg.HostChainPassword,
	})
	view := hostchainrpc.NewView(hostChainClient)
	submit := hostchainrpc.NewSubmit(hostChainClient)
	observer := hostchainrpc.NewObserver(hostChainClient, 0)

	sched := gocron.NewScheduler()

	var bitcoinRPC ports.BitcoinRPC = rpc
	var topic ports.BlockTopic = blockTopic

	coordinator := application.NewCoordinator(cfg, bitcoinRPC, topic, view, submit, observer, sched, network)

	log.RegisterExitHandler(coordinator.Stop)

	log.Info("starting son-bitcoin coordinator...")
	if err := coordinator.Start(context.Background()); err != nil {
		log.WithError(err).Fatal("failed to start coordinator")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	<-sigChan

	log.Info("shutting down coordinator...")
	log.Exit(0)
}
