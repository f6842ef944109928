package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/golos-one/ledger/app"
	"github.com/golos-one/ledger/errors"
	"github.com/golos-one/ledger/operation"
	"github.com/golos-one/ledger/x/account"
)

func applyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply <tx-file> [<tx-file>...]",
		Short: "Apply signed transactions to the genesis state and print the result",
		Long: `Apply one or more signed transactions on top of the genesis state,
run the end of block expiration sweep and print the resulting accounts as
JSON. Transaction files carry the wire form, either raw or hex encoded.
No networking is involved; this is an offline state transition.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			genPath := viper.GetString("genesis")
			if genPath == "" {
				genPath = filepath.Join(viper.GetString("home"), "genesis.json")
			}
			gen, err := app.LoadGenesis(genPath)
			if err != nil {
				return err
			}

			l := app.NewLedger(app.Options{Logger: newLogger()})
			if err := l.InitGenesis(gen); err != nil {
				return err
			}

			at := time.Now().UTC()
			if raw := viper.GetString("at"); raw != "" {
				if at, err = time.Parse(time.RFC3339, raw); err != nil {
					return errors.Wrapf(errors.ErrInput, "invalid block time: %v", err)
				}
			}

			if err := l.BeginBlock(at, 1); err != nil {
				return err
			}
			for _, path := range args {
				tx, err := readTx(path)
				if err != nil {
					return errors.Wrapf(err, "transaction %s", path)
				}
				if err := l.DeliverTx(tx); err != nil {
					return errors.Wrapf(err, "transaction %s", path)
				}
			}
			l.EndBlock()
			if err := l.Commit(); err != nil {
				return err
			}

			var accounts []*account.Account
			err = l.Accounts().Walk(l.Store(), func(acc *account.Account) error {
				accounts = append(accounts, acc)
				return nil
			})
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(accounts, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
	cmd.Flags().String("genesis", "", "path to the genesis file (default <home>/genesis.json)")
	cmd.Flags().String("at", "", "block time in RFC 3339 format (default now)")
	cobra.CheckErr(viper.BindPFlag("genesis", cmd.Flags().Lookup("genesis")))
	cobra.CheckErr(viper.BindPFlag("at", cmd.Flags().Lookup("at")))
	return cmd
}

// readTx loads a transaction in the wire form, raw or hex encoded.
func readTx(path string) (*operation.Tx, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if decoded, err := hex.DecodeString(strings.TrimSpace(string(raw))); err == nil {
		raw = decoded
	}
	var tx operation.Tx
	if err := tx.Unmarshal(raw); err != nil {
		return nil, err
	}
	return &tx, nil
}
