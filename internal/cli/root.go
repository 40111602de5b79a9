// Package cli implements the rumornode command tree with cobra: `run`
// starts the node runtime, `version` prints the build version. Structured
// the way the teacher's agent command tree was (root command plus
// subcommands registered in init, flags bound via cobra.Command.Flags()),
// replacing that command tree's content with this node's surface.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/rumormesh/rumornode/internal/clock"
	"github.com/rumormesh/rumornode/internal/config"
	"github.com/rumormesh/rumornode/internal/domain"
	"github.com/rumormesh/rumornode/internal/node"
)

// version is overridden at build time via -ldflags "-X ...cli.version=...".
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "rumornode",
	Short: "A single-process peer in a UDP rumor-dissemination network",
	Long: `rumornode runs one participant in a decentralized gossip network:
bootstrap/discovery over HELLO and GET_PEERS, liveness probing with dead-peer
eviction, push-gossip dissemination with TTL and dedup, and optional
IHAVE/IWANT pull repair.`,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the node and block until SIGINT/SIGTERM",
	RunE:  runRun,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the rumornode version",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), version)
		return nil
	},
}

var flags *config.Flags

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)
	flags = config.Bind(runCmd.Flags())
}

// Execute runs the rumornode command tree; it is the sole entry point
// cmd/rumornode/main.go calls.
func Execute() error {
	return rootCmd.Execute()
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Resolve(flags, cmd.Flags())
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	identity := domain.NodeIdentity{
		NodeID:   uuid.NewString(),
		SelfAddr: cfg.SelfAddr(),
	}

	rt, err := node.New(cfg, identity, clock.Real{}, os.Stdin)
	if err != nil {
		return fmt.Errorf("start node: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return rt.Run(ctx)
}
