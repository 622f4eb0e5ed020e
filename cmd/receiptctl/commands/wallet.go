package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bitfsorg/libreceipt-go/config"
	"github.com/bitfsorg/libreceipt-go/wallet"
)

// walletNetwork reports whether the configured network is mainnet. A data
// directory without config.yaml uses the default network.
func (c *cli) walletNetwork() (bool, error) {
	cfg, err := c.loadConfig()
	if errors.Is(err, config.ErrConfigNotFound) {
		cfg, err = config.DefaultConfig(), nil
	}
	if err != nil {
		return false, err
	}
	return cfg.Network == "mainnet", nil
}

func walletPassword() (string, error) {
	pw := os.Getenv(EnvWalletPassword)
	if pw == "" {
		return "", fmt.Errorf("%s must be set", EnvWalletPassword)
	}
	return pw, nil
}

func (c *cli) walletCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "Manage the sealed native payout wallet",
		Long: `The payout wallet is a BIP39 seed sealed in <datadir>/wallet.enc with a
password taken from RECEIPT_WALLET_PASSWORD. Native claims are paid from its
first external key (m/44'/236'/0'/0/0) unless RECEIPT_WALLET_KEY overrides it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	var words int
	newCmd := &cobra.Command{
		Use:   "new",
		Short: "Create the payout wallet",
		Long: `New generates a mnemonic, or imports RECEIPT_WALLET_MNEMONIC when set, and
seals the derived seed. A generated mnemonic is printed once; write it down.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := walletPassword()
			if err != nil {
				return err
			}
			mainnet, err := c.walletNetwork()
			if err != nil {
				return err
			}
			mnemonic := os.Getenv(EnvWalletMnemonic)
			generated := mnemonic == ""
			if generated {
				bits := wallet.Mnemonic12Words
				if words == 24 {
					bits = wallet.Mnemonic24Words
				} else if words != 12 {
					return fmt.Errorf("--words must be 12 or 24")
				}
				if mnemonic, err = wallet.GenerateMnemonic(bits); err != nil {
					return err
				}
			}
			kdf := wallet.DefaultKDF
			if c.kdf != nil {
				kdf = *c.kdf
			}
			path := config.WalletPath(c.dataDir)
			passphrase := os.Getenv(EnvWalletPassphrase)
			if err := wallet.Create(path, mnemonic, passphrase, pw, kdf); err != nil {
				return err
			}
			w, err := wallet.Load(path, pw, mainnet)
			if err != nil {
				return err
			}
			kp, err := w.PayoutKey(0)
			if err != nil {
				return err
			}
			o := out(cmd)
			fmt.Fprintf(o, "wallet written to %s\n", path)
			if generated {
				fmt.Fprintf(o, "mnemonic: %s\n", mnemonic)
			}
			fmt.Fprintf(o, "payout address %s (%s)\n", kp.Address, kp.Path)
			return nil
		},
	}
	newCmd.Flags().IntVar(&words, "words", 12, "mnemonic length: 12 or 24")

	var index uint32
	addrCmd := &cobra.Command{
		Use:   "address",
		Short: "Print a payout address",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := walletPassword()
			if err != nil {
				return err
			}
			mainnet, err := c.walletNetwork()
			if err != nil {
				return err
			}
			w, err := wallet.Load(config.WalletPath(c.dataDir), pw, mainnet)
			if err != nil {
				return err
			}
			kp, err := w.PayoutKey(index)
			if err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "%s %s\n", kp.Address, kp.Path)
			return nil
		},
	}
	addrCmd.Flags().Uint32Var(&index, "index", 0, "key index")

	cmd.AddCommand(newCmd, addrCmd)
	return cmd
}
