package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/golos-one/ledger/app"
	"github.com/golos-one/ledger/coin"
	"github.com/golos-one/ledger/crypto"
	"github.com/golos-one/ledger/errors"
)

func initCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init <chain-id>",
		Short: "Create the home directory with a genesis skeleton",
		Long: `Create the home directory with a genesis file declaring a single
funded account and a fresh key pair. The private key is printed to standard
output, hex encoded.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			home := viper.GetString("home")
			if err := os.MkdirAll(home, 0o755); err != nil {
				return err
			}
			genPath := filepath.Join(home, "genesis.json")
			if _, err := os.Stat(genPath); err == nil {
				return errors.Wrapf(errors.ErrState, "%s already exists", genPath)
			}

			priv := crypto.GenPrivateKey()
			supply := coin.Whole(1000000, coin.GOLOS)
			gen := app.Genesis{
				ChainID: args[0],
				Accounts: []app.GenesisAccount{
					{
						Name:      "genesis",
						PublicKey: priv.PublicKey(),
						Balance:   &supply,
					},
				},
			}
			raw, err := json.MarshalIndent(gen, "", "  ")
			if err != nil {
				return err
			}
			if err := os.WriteFile(genPath, raw, 0o644); err != nil {
				return err
			}

			cfg := viper.New()
			cfg.Set("chain-id", args[0])
			cfg.Set("genesis", genPath)
			if err := cfg.WriteConfigAs(filepath.Join(home, "config.yaml")); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "genesis written to %s\n", genPath)
			fmt.Fprintf(cmd.OutOrStdout(), "genesis account private key: %s\n", hex.EncodeToString(priv))
			return nil
		},
	}
	return cmd
}
