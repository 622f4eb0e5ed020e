package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/bitfsorg/libreceipt-go/account"
	"github.com/bitfsorg/libreceipt-go/config"
	"github.com/bitfsorg/libreceipt-go/revshare"
)

// run opens the data directory for the duration of fn.
func (c *cli) run(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := c.open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

// admin runs fn with the admin caller: --as, or the stored admin.
func (c *cli) admin(cmd *cobra.Command, fn func(ctx context.Context, a *app, caller account.Address) error) error {
	return c.run(cmd, func(ctx context.Context, a *app) error {
		p, err := a.eng.Params()
		if err != nil {
			return err
		}
		caller, err := c.caller(p.Admin)
		if err != nil {
			return err
		}
		return fn(ctx, a, caller)
	})
}

func parseBps(s string) (uint16, error) {
	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid basis points %q", s)
	}
	return uint16(n), nil
}

func parseBpsArgs(args []string) ([]uint16, error) {
	out := make([]uint16, len(args))
	for i, s := range args {
		n, err := parseBps(s)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

func (c *cli) initCmd() *cobra.Command {
	var admin, treasury, factory, token, creditPool, custody, netName string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the data directory and write the genesis parameters",
		Long: `Init writes <datadir>/config.yaml (keeping an existing one) and records the
engine's genesis parameters in <datadir>/receipt.db. Address flags override
the config file. Init fails if the database is already initialized.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := c.configFile()
			cfg, err := config.LoadConfig(path)
			if errors.Is(err, config.ErrConfigNotFound) {
				cfg, err = config.DefaultConfig(), nil
			}
			if err != nil {
				return err
			}
			cfg.DataDir = c.dataDir
			if netName != "" {
				cfg.Network = netName
			}
			for _, f := range []struct {
				val  string
				what string
				dst  *account.Address
			}{
				{admin, "admin", &cfg.Engine.Admin},
				{treasury, "treasury", &cfg.Engine.Treasury},
				{factory, "agent factory", &cfg.Engine.AgentFactory},
				{token, "payment token", &cfg.Engine.PaymentToken},
				{creditPool, "credit pool", &cfg.Engine.CreditPool},
				{custody, "custody", &cfg.Token.Custody},
			} {
				if f.val == "" {
					continue
				}
				if *f.dst, err = parseAddr(f.val, f.what); err != nil {
					return err
				}
			}
			if err := config.ValidateConfig(cfg); err != nil {
				return err
			}
			if err := config.ValidateEngine(cfg); err != nil {
				return err
			}
			params, err := cfg.Params()
			if err != nil {
				return err
			}
			if err := config.SaveConfig(path, cfg); err != nil {
				return err
			}

			return c.run(cmd, func(ctx context.Context, a *app) error {
				if err := a.eng.Init(ctx, params); err != nil {
					return err
				}
				fmt.Fprintf(out(cmd), "initialized %s\n", config.DBPath(cfg.DataDir))
				fmt.Fprintf(out(cmd), "  admin     %s\n", params.Admin)
				fmt.Fprintf(out(cmd), "  treasury  %s\n", params.Treasury)
				return nil
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&admin, "admin", "", "admin address")
	f.StringVar(&treasury, "treasury", "", "treasury address")
	f.StringVar(&factory, "factory", "", "agent factory address")
	f.StringVar(&token, "token", "", "payment token address (enables token mode)")
	f.StringVar(&creditPool, "credit-pool", "", "credit pool address")
	f.StringVar(&custody, "custody", "", "token custody address")
	f.StringVar(&netName, "network", "", "network: mainnet, testnet or regtest")
	return cmd
}

func (c *cli) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and change engine parameters (admin only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the stored engine parameters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, a *app) error {
				p, err := a.eng.Params()
				if err != nil {
					return err
				}
				enc := yaml.NewEncoder(out(cmd))
				defer enc.Close()
				return enc.Encode(p)
			})
		},
	}

	var bundleID uint64
	setShares := &cobra.Command{
		Use:   "set-shares AGENT OWNER_BPS CHAIN_BPS TREASURY_BPS",
		Short: "Set an agent's revenue split",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			agent, err := parseAddr(args[0], "agent")
			if err != nil {
				return err
			}
			bps, err := parseBpsArgs(args[1:])
			if err != nil {
				return err
			}
			return c.admin(cmd, func(ctx context.Context, a *app, caller account.Address) error {
				return a.eng.SetShareConfig(ctx, caller, agent, bps[0], bps[1], bps[2], bundleID)
			})
		},
	}
	setShares.Flags().Uint64Var(&bundleID, "bundle", 0, "bundle the agent was deployed from")

	setDefault := &cobra.Command{
		Use:   "set-default OWNER_BPS CHAIN_BPS TREASURY_BPS",
		Short: "Set the split used by agents without their own",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			bps, err := parseBpsArgs(args)
			if err != nil {
				return err
			}
			return c.admin(cmd, func(ctx context.Context, a *app, caller account.Address) error {
				return a.eng.SetDefaultShares(ctx, caller, bps[0], bps[1], bps[2])
			})
		},
	}

	setDecay := &cobra.Command{
		Use:   "set-decay BPS",
		Short: "Set the per-generation decay factor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bps, err := parseBps(args[0])
			if err != nil {
				return err
			}
			return c.admin(cmd, func(ctx context.Context, a *app, caller account.Address) error {
				return a.eng.SetDecayFactor(ctx, caller, bps)
			})
		},
	}

	setDepth := &cobra.Command{
		Use:   "set-depth N",
		Short: "Set how many ancestors share the chain pool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid depth %q", args[0])
			}
			return c.admin(cmd, func(ctx context.Context, a *app, caller account.Address) error {
				return a.eng.SetMaxChainDepth(ctx, caller, n)
			})
		},
	}

	setFees := &cobra.Command{
		Use:   "set-fee-shares CONTRIBUTOR_BPS TREASURY_BPS CREDIT_BPS CURATOR_BPS",
		Short: "Set the deployment-fee pools",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			bps, err := parseBpsArgs(args)
			if err != nil {
				return err
			}
			shares := revshare.FeeShares{ContributorBps: bps[0], TreasuryBps: bps[1], CreditBps: bps[2], CuratorBps: bps[3]}
			return c.admin(cmd, func(ctx context.Context, a *app, caller account.Address) error {
				return a.eng.SetFeeShares(ctx, caller, shares)
			})
		},
	}

	setCurator := &cobra.Command{
		Use:   "set-curator-policy creator|treasury",
		Short: "Choose who receives the curator pool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			policy, err := revshare.ParseCuratorPolicy(args[0])
			if err != nil {
				return fmt.Errorf("invalid curator policy %q: %w", args[0], err)
			}
			return c.admin(cmd, func(ctx context.Context, a *app, caller account.Address) error {
				return a.eng.SetCuratorPolicy(ctx, caller, policy)
			})
		},
	}

	setAddress := &cobra.Command{
		Use:       "set-address treasury|agent-factory|credit-pool|payment-token ADDRESS",
		Short:     "Change one of the engine's role addresses",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"treasury", "agent-factory", "credit-pool", "payment-token"},
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := parseAddr(args[1], args[0])
			if err != nil {
				return err
			}
			return c.admin(cmd, func(ctx context.Context, a *app, caller account.Address) error {
				switch args[0] {
				case "treasury":
					return a.eng.SetTreasury(ctx, caller, addr)
				case "agent-factory":
					return a.eng.SetAgentFactory(ctx, caller, addr)
				case "credit-pool":
					return a.eng.SetCreditPool(ctx, caller, addr)
				case "payment-token":
					return a.eng.SetPaymentToken(ctx, caller, addr)
				}
				return fmt.Errorf("unknown role %q", args[0])
			})
		},
	}

	pause := &cobra.Command{
		Use:   "pause",
		Short: "Block distributions and claims",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.admin(cmd, func(ctx context.Context, a *app, caller account.Address) error {
				return a.eng.Pause(ctx, caller)
			})
		},
	}

	unpause := &cobra.Command{
		Use:   "unpause",
		Short: "Lift a pause",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.admin(cmd, func(ctx context.Context, a *app, caller account.Address) error {
				return a.eng.Unpause(ctx, caller)
			})
		},
	}

	transferAdmin := &cobra.Command{
		Use:   "transfer-admin ADDRESS",
		Short: "Hand the admin role to another address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			next, err := parseAddr(args[0], "admin")
			if err != nil {
				return err
			}
			return c.admin(cmd, func(ctx context.Context, a *app, caller account.Address) error {
				return a.eng.TransferAdmin(ctx, caller, next)
			})
		},
	}

	cmd.AddCommand(show, setShares, setDefault, setDecay, setDepth, setFees, setCurator, setAddress, pause, unpause, transferAdmin)
	return cmd
}
