package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/bitfsorg/libreceipt-go/account"
	"github.com/bitfsorg/libreceipt-go/lineage"
)

func (c *cli) balanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance ADDRESS",
		Short: "Show an address's claimable, earned and claimed amounts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := parseAddr(args[0], "address")
			if err != nil {
				return err
			}
			return c.run(cmd, func(ctx context.Context, a *app) error {
				w := out(cmd)
				fmt.Fprintf(w, "%-8s %12s %12s %12s\n", "CURRENCY", "CLAIMABLE", "EARNED", "CLAIMED")
				for _, cur := range account.Currencies {
					b, err := a.eng.GetRevenueBalance(addr, cur)
					if err != nil {
						return err
					}
					fmt.Fprintf(w, "%-8s %12d %12d %12d\n", cur, b.Claimable, b.TotalEarned, b.TotalClaimed)
				}
				return nil
			})
		},
	}
}

func (c *cli) chainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chain AGENT",
		Short: "List the ancestors that share an agent's chain pool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			agent, err := parseAddr(args[0], "agent")
			if err != nil {
				return err
			}
			return c.run(cmd, func(ctx context.Context, a *app) error {
				chain, err := a.eng.GetReceiptChain(ctx, agent)
				if err != nil {
					return err
				}
				for i, anc := range chain {
					fmt.Fprintf(out(cmd), "%d %s\n", i, anc)
				}
				return nil
			})
		},
	}
}

func (c *cli) spawnCmd() *cobra.Command {
	var id int64
	cmd := &cobra.Command{
		Use:   "spawn [AGENT]",
		Short: "Show the deployment that created an agent",
		Long: `Spawn prints the spawn record of AGENT, or of deployment --id when no
agent is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var agent account.Address
			if len(args) == 1 {
				var err error
				if agent, err = parseAddr(args[0], "agent"); err != nil {
					return err
				}
			} else if id < 0 {
				return fmt.Errorf("spawn needs an AGENT or --id")
			}
			return c.run(cmd, func(ctx context.Context, a *app) error {
				var (
					rec lineage.Record
					err error
				)
				if len(args) == 1 {
					rec, err = a.eng.GetSpawnRecord(agent)
				} else {
					rec, err = a.eng.GetDeployment(uint64(id))
				}
				if err != nil {
					return err
				}
				w := out(cmd)
				fmt.Fprintf(w, "deployment %d\n", rec.ID)
				fmt.Fprintf(w, "  agent    %s\n", rec.Agent)
				if rec.HasParent() {
					fmt.Fprintf(w, "  parent   %s\n", rec.Parent)
				} else {
					fmt.Fprintln(w, "  parent   (root)")
				}
				if !rec.Creator.IsZero() {
					fmt.Fprintf(w, "  creator  %s\n", rec.Creator)
				}
				fmt.Fprintf(w, "  bundle   %d\n", rec.BundleID)
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&id, "id", -1, "deployment ID to look up")
	return cmd
}

func (c *cli) historyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history AGENT",
		Short: "List an agent's revenue events",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			agent, err := parseAddr(args[0], "agent")
			if err != nil {
				return err
			}
			return c.run(cmd, func(ctx context.Context, a *app) error {
				ids, err := a.eng.GetRevenueHistory(agent)
				if err != nil {
					return err
				}
				w := out(cmd)
				fmt.Fprintf(w, "%-6s %-20s %-8s %10s %10s %10s %10s  %s\n",
					"ID", "TIME", "CURRENCY", "AMOUNT", "OWNER", "CHAIN", "TREASURY", "SOURCE")
				for _, id := range ids {
					ev, err := a.eng.GetRevenueEvent(id)
					if err != nil {
						return err
					}
					fmt.Fprintf(w, "%-6d %-20s %-8s %10d %10d %10d %10d  %s\n",
						ev.ID, ev.Timestamp.UTC().Format("2006-01-02T15:04:05Z"), ev.Currency(),
						ev.Amount, ev.OwnerAmount, ev.ChainAmount, ev.TreasuryAmount, ev.Source)
				}
				return nil
			})
		},
	}
}

func (c *cli) eventsCmd() *cobra.Command {
	var (
		after uint64
		limit int
	)
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Print emitted events as JSON lines",
		Long: `Events prints the outbox, oldest first, one JSON envelope per line. Use
--after with the last sequence number seen to resume.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, a *app) error {
				evs, err := a.eng.Events(after, limit)
				if err != nil {
					return err
				}
				enc := json.NewEncoder(out(cmd))
				for _, ev := range evs {
					if err := enc.Encode(ev); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().Uint64Var(&after, "after", 0, "only events with a greater sequence number")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of events (0 = all)")
	return cmd
}

func (c *cli) payoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "payout DEPLOYMENT_ID",
		Short: "Show a deployment's fee payout record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid deployment id %q", args[0])
			}
			return c.run(cmd, func(ctx context.Context, a *app) error {
				rec, err := a.eng.GetDeploymentPayout(id)
				if err != nil {
					return err
				}
				fmt.Fprintf(out(cmd), "deployment %d\n", rec.DeploymentID)
				return printPayout(cmd, rec)
			})
		},
	}
}

func (c *cli) auditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "audit",
		Short: "Check that balances add up to credited minus claimed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, a *app) error {
				w := out(cmd)
				for _, cur := range account.Currencies {
					dist, err := a.eng.GetTotalDistributed(cur)
					if err != nil {
						return err
					}
					claimed, err := a.eng.GetTotalClaimed(cur)
					if err != nil {
						return err
					}
					fmt.Fprintf(w, "%-8s distributed %d claimed %d outstanding %d\n", cur, dist, claimed, dist-claimed)
				}
				n, err := a.eng.GetEventCount()
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "revenue events %d\n", n)
				if err := a.eng.Audit(); err != nil {
					return err
				}
				fmt.Fprintln(w, "ok")
				return nil
			})
		},
	}
}
