// Package commands implements the receiptctl command tree.
package commands

import (
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/bitfsorg/libreceipt-go/config"
	"github.com/bitfsorg/libreceipt-go/payout"
	"github.com/bitfsorg/libreceipt-go/revshare"
	"github.com/bitfsorg/libreceipt-go/wallet"
)

var versionString = "dev"

// cli carries the persistent flags and the collaborators a command tree runs
// against. Tests replace the payout collaborators, the payment source and
// the registry.
type cli struct {
	dataDir    string
	configPath string
	logLevel   string
	as         string

	token    payout.TokenTransferer
	native   payout.Transferer
	payments revshare.PaymentSource
	registry *prometheus.Registry
	kdf      *wallet.KDFParams
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:   "receiptctl",
		Short: "receiptctl - revenue distribution and claims ledger",
		Long: `receiptctl operates a revenue distribution engine stored in a local
bbolt database.

Revenue paid to an agent is split between the agent, its receipt chain of
ancestors and the treasury; deployment fees are split across a bundle's
contributors. Every recipient accrues a claimable balance it withdraws
with "claim".`,
		Version: versionString,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		FParseErrWhitelist: cobra.FParseErrWhitelist{},
		SilenceErrors:      true,
		SilenceUsage:       true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.dataDir, "datadir", config.DefaultDataDir(), "data directory holding config.yaml and receipt.db")
	pf.StringVar(&c.configPath, "config", "", "config file (default <datadir>/config.yaml)")
	pf.StringVar(&c.logLevel, "log-level", "", "override the configured log level")
	pf.StringVar(&c.as, "as", "", "caller address (defaults to the configured admin, or the agent factory for deploy)")

	root.AddCommand(
		c.initCmd(),
		c.configCmd(),
		c.distributeCmd(),
		c.deployCmd(),
		c.claimCmd(),
		c.claimsCmd(),
		c.resolveClaimCmd(),
		c.balanceCmd(),
		c.chainCmd(),
		c.spawnCmd(),
		c.historyCmd(),
		c.eventsCmd(),
		c.payoutCmd(),
		c.auditCmd(),
		c.serveMetricsCmd(),
		c.walletCmd(),
	)
	return root
}

// Execute runs the command tree against os.Args.
func Execute() error {
	return newRootCmd(&cli{}).Execute()
}

// SetVersionInfo sets the version information for the CLI.
func SetVersionInfo(v, c, d string) {
	versionString = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func out(cmd *cobra.Command) io.Writer { return cmd.OutOrStdout() }
