package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/bitfsorg/libreceipt-go/account"
	"github.com/bitfsorg/libreceipt-go/revshare"
)

func parseAmount(s string) (uint64, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	return n, nil
}

func (c *cli) distributeCmd() *cobra.Command {
	var (
		source string
		token  bool
		payer  string
	)
	cmd := &cobra.Command{
		Use:   "distribute AGENT TXID|AMOUNT",
		Short: "Split revenue received for an agent",
		Long: `Distribute splits a payment between the agent, its receipt chain and the
treasury and credits each recipient's claimable balance.

Native revenue is named by the TXID of the transaction that paid the
engine's wallet; the amount is whatever that transaction paid in and each
transaction can be distributed once. With --token the second argument is
an AMOUNT pulled from --payer into custody.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			agent, err := parseAddr(args[0], "agent")
			if err != nil {
				return err
			}
			var (
				from   account.Address
				amount uint64
			)
			if token {
				if amount, err = parseAmount(args[1]); err != nil {
					return err
				}
				if from, err = parseAddr(payer, "payer"); err != nil {
					return err
				}
			}
			return c.run(cmd, func(ctx context.Context, a *app) error {
				var res *revshare.RevenueResult
				if token {
					res, err = a.eng.DistributeRevenueToken(ctx, from, agent, source, amount)
				} else {
					res, err = a.eng.DistributeRevenue(ctx, agent, source, args[1])
				}
				if err != nil {
					return err
				}
				w := out(cmd)
				fmt.Fprintf(w, "event %d amount %d\n", res.EventID, res.Amount)
				fmt.Fprintf(w, "  owner     %-36s %d\n", agent, res.Owner)
				for i, d := range res.Ancestors {
					fmt.Fprintf(w, "  chain[%d]  %-36s %d\n", i, d.Address, d.Amount)
				}
				fmt.Fprintf(w, "  treasury  %-36s %d\n", "", res.Treasury)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "free-form revenue source label")
	cmd.Flags().BoolVar(&token, "token", false, "distribute payment tokens pulled from --payer")
	cmd.Flags().StringVar(&payer, "payer", "", "address the tokens are pulled from")
	return cmd
}

func (c *cli) deployCmd() *cobra.Command {
	var (
		parent, creator, currency, payment string
		bundleID, fee                      uint64
	)
	cmd := &cobra.Command{
		Use:   "deploy AGENT",
		Short: "Record an agent spawn and split its deployment fee",
		Long: `Deploy records AGENT in the spawn forest under --parent (omit for a root
agent). When --fee is non-zero the fee is split across the contributors of
--bundle as configured in config.yaml. A native fee must be paid by the
transaction named with --payment. The caller must be the agent factory.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := revshare.DeployRequest{BundleID: bundleID, Fee: fee, Payment: payment}
			var err error
			if req.Agent, err = parseAddr(args[0], "agent"); err != nil {
				return err
			}
			if req.Parent, err = parseAddr(parent, "parent"); err != nil {
				return err
			}
			if req.Creator, err = parseAddr(creator, "creator"); err != nil {
				return err
			}
			if req.Currency, err = account.ParseCurrency(currency); err != nil {
				return err
			}
			return c.run(cmd, func(ctx context.Context, a *app) error {
				p, err := a.eng.Params()
				if err != nil {
					return err
				}
				caller, err := c.caller(p.AgentFactory)
				if err != nil {
					return err
				}
				id, rec, err := a.eng.Deploy(ctx, caller, req)
				if err != nil {
					return err
				}
				fmt.Fprintf(out(cmd), "deployment %d\n", id)
				if rec == nil {
					return nil
				}
				return printPayout(cmd, rec)
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&parent, "parent", "", "parent agent address")
	f.StringVar(&creator, "creator", "", "creator address (receives the curator pool)")
	f.Uint64Var(&bundleID, "bundle", 0, "bundle ID")
	f.Uint64Var(&fee, "fee", 0, "deployment fee")
	f.StringVar(&currency, "currency", "native", "fee currency: native or token")
	f.StringVar(&payment, "payment", "", "txid of the transaction paying a native fee")
	return cmd
}

func (c *cli) claimCmd() *cobra.Command {
	var native bool
	cmd := &cobra.Command{
		Use:   "claim ADDRESS",
		Short: "Pay out an address's whole claimable balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := parseAddr(args[0], "address")
			if err != nil {
				return err
			}
			return c.run(cmd, func(ctx context.Context, a *app) error {
				var amount uint64
				if native {
					amount, err = a.eng.ClaimNative(ctx, addr)
				} else {
					amount, err = a.eng.Claim(ctx, addr)
				}
				if err != nil {
					return err
				}
				cur := account.Token
				if native {
					cur = account.Native
				}
				fmt.Fprintf(out(cmd), "claimed %d %s for %s\n", amount, cur, addr)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&native, "native", false, "claim the native balance instead of the token balance")
	return cmd
}

func (c *cli) claimsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "claims",
		Short: "List claims whose payout outcome is unknown",
		Long: `Claims lists withdrawals whose payout was started but never settled,
typically because the node could not say whether a broadcast went
through. Check the wallet, then settle each one with "resolve-claim".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, a *app) error {
				pending, err := a.eng.PendingClaims()
				if err != nil {
					return err
				}
				w := out(cmd)
				fmt.Fprintf(w, "%-24s %-20s %-8s %12s  %s\n", "ID", "TIME", "CURRENCY", "AMOUNT", "RECIPIENT")
				for _, pc := range pending {
					fmt.Fprintf(w, "%-24s %-20s %-8s %12d  %s\n",
						pc.ID, pc.At.UTC().Format("2006-01-02T15:04:05Z"), pc.Currency, pc.Amount, pc.Recipient)
				}
				return nil
			})
		},
	}
}

func (c *cli) resolveClaimCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve-claim ID paid|unpaid",
		Short: "Settle a pending claim (admin only)",
		Long: `Resolve-claim records the fate of a pending claim. "paid" marks it claimed;
"unpaid" returns the amount to the recipient's claimable balance.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var paid bool
			switch args[1] {
			case "paid":
				paid = true
			case "unpaid":
			default:
				return fmt.Errorf("invalid outcome %q (want paid or unpaid)", args[1])
			}
			return c.admin(cmd, func(ctx context.Context, a *app, caller account.Address) error {
				pc, err := a.eng.ResolvePendingClaim(ctx, caller, args[0], paid)
				if err != nil {
					return err
				}
				fmt.Fprintf(out(cmd), "claim %s %s: %d %s for %s\n", pc.ID, args[1], pc.Amount, pc.Currency, pc.Recipient)
				return nil
			})
		},
	}
}

func printPayout(cmd *cobra.Command, rec *revshare.DeploymentPayout) error {
	total, err := rec.Total()
	if err != nil {
		return err
	}
	w := out(cmd)
	fmt.Fprintf(w, "  bundle       %d (%s)\n", rec.BundleID, rec.Currency)
	fmt.Fprintf(w, "  fee          %d\n", total)
	fmt.Fprintf(w, "  contributors %d\n", rec.ContributorPayout)
	fmt.Fprintf(w, "  treasury     %d\n", rec.TreasuryPayout)
	fmt.Fprintf(w, "  credit pool  %d\n", rec.PoolPayout)
	fmt.Fprintf(w, "  curator      %d -> %s\n", rec.CuratorPayout, rec.Curator)
	return nil
}
