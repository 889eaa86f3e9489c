// Command chainnode runs a single peer of the network, or drives a
// running peer's wallet from the command line.
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/chainforge/chainnode/internal/api"
	"github.com/chainforge/chainnode/internal/blockchain"
	"github.com/chainforge/chainnode/internal/config"
	"github.com/chainforge/chainnode/internal/logging"
	"github.com/chainforge/chainnode/internal/mempool"
	"github.com/chainforge/chainnode/internal/p2p"
	"github.com/chainforge/chainnode/internal/wallet"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:   "chainnode",
		Short: "A small peer-to-peer proof-of-work cryptocurrency node",
	}

	root.PersistentFlags().String("node-host", "", "host this node's P2P listener binds to")
	root.PersistentFlags().Int("node-port", 0, "port this node's P2P listener binds to")
	root.PersistentFlags().Int("api-port", 0, "port the HTTP collaborator listens on")
	root.PersistentFlags().StringSlice("peers", nil, "seed peer URIs, e.g. ws://host:port")
	_ = v.BindPFlag("node_host", root.PersistentFlags().Lookup("node-host"))
	_ = v.BindPFlag("node_port", root.PersistentFlags().Lookup("node-port"))
	_ = v.BindPFlag("api_port", root.PersistentFlags().Lookup("api-port"))
	_ = v.BindPFlag("peers", root.PersistentFlags().Lookup("peers"))

	root.AddCommand(startCmd(v))
	root.AddCommand(walletCmd())
	return root
}

func startCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start this node's P2P server, heartbeat loop, and HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			return runNode(cfg)
		},
	}
}

func runNode(cfg *config.Config) error {
	log := logging.Default

	chain, err := blockchain.New(cfg)
	if err != nil {
		return err
	}
	pool := mempool.New()
	w, err := wallet.New()
	if err != nil {
		return err
	}

	selfURI := fmt.Sprintf("ws://%s", cfg.ListenAddr())
	p2pServer := p2p.NewServer(cfg, chain, pool, selfURI, log)
	apiServer := api.NewServer(chain, pool, w, p2pServer, cfg, log)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go p2pServer.ConnectNodes(cfg.Peers)
	go p2pServer.Heartbeat(ctx)
	go func() {
		if err := p2pServer.Start(ctx); err != nil {
			log.Error("p2p", "server exited: %v", err)
		}
	}()

	apiAddr := fmt.Sprintf("%s:%d", cfg.NodeHost, cfg.APIPort)
	httpSrv := &http.Server{Addr: apiAddr, Handler: apiServer.Handler()}
	go func() {
		log.Info("api", "listening on %s", apiAddr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("api", "server exited: %v", err)
		}
	}()

	log.Info("chainnode", "node started, wallet address %s", w.Address)
	<-ctx.Done()
	log.Info("chainnode", "shutting down")
	return httpSrv.Close()
}

func walletCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "Inspect or drive a wallet against a running node's HTTP API",
	}
	cmd.AddCommand(walletBalanceCmd())
	cmd.AddCommand(walletSendCmd())
	return cmd
}

func walletBalanceCmd() *cobra.Command {
	var apiURL string
	cmd := &cobra.Command{
		Use:   "balance <address>",
		Short: "Print an address's balance as seen by a node's HTTP API",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := http.Get(fmt.Sprintf("%s/balance?address=%s", apiURL, args[0]))
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			body, err := io.ReadAll(resp.Body)
			if err != nil {
				return err
			}
			fmt.Println(resp.Status)
			fmt.Print(string(body))
			return nil
		},
	}
	cmd.Flags().StringVar(&apiURL, "api", "http://localhost:5000", "node HTTP API base URL")
	return cmd
}

func walletSendCmd() *cobra.Command {
	var apiURL string
	cmd := &cobra.Command{
		Use:   "send <recipient> <amount>",
		Short: "Send a signed transaction to a node's mempool via its HTTP API",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := fmt.Sprintf(`{"recipient":%q,"amount":%s}`, args[0], args[1])
			resp, err := http.Post(apiURL+"/transact", "application/json", strings.NewReader(body))
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			fmt.Println(resp.Status)
			return nil
		},
	}
	cmd.Flags().StringVar(&apiURL, "api", "http://localhost:5000", "node HTTP API base URL")
	return cmd
}
