package cmd

import (
	"fmt"
	"os"

	"bank-transfer-reconciler/internal/store"
	"bank-transfer-reconciler/pkg/errors"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var boundaryLabel string

var boundaryCmd = &cobra.Command{
	Use:   "boundary",
	Short: "Manage the boundary account list",
	Long: `Boundary accounts are the accounts the user has designated as their
own. Only transfers between two boundary accounts can be excluded from
cashflow totals.

The list is kept in the local reconciler database (--store).`,
}

var boundaryAddCmd = &cobra.Command{
	Use:   "add [account-id]",
	Short: "Add an account to the boundary list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(st *store.Store) error {
			return st.AddBoundaryAccount(args[0], boundaryLabel)
		})
	},
}

var boundaryRemoveCmd = &cobra.Command{
	Use:   "remove [account-id]",
	Short: "Remove an account from the boundary list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(st *store.Store) error {
			return st.RemoveBoundaryAccount(args[0])
		})
	},
}

var boundaryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List boundary accounts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(st *store.Store) error {
			ids, err := st.ListBoundaryAccounts()
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Println(id)
			}
			return nil
		})
	},
}

var aliasCmd = &cobra.Command{
	Use:   "alias [alias] [canonical]",
	Short: "Fold an alternate account id onto its canonical id",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(st *store.Store) error {
			return st.SetAlias(args[0], args[1])
		})
	},
}

func init() {
	rootCmd.AddCommand(boundaryCmd)
	rootCmd.AddCommand(aliasCmd)
	boundaryCmd.AddCommand(boundaryAddCmd)
	boundaryCmd.AddCommand(boundaryRemoveCmd)
	boundaryCmd.AddCommand(boundaryListCmd)

	boundaryAddCmd.Flags().StringVar(&boundaryLabel, "label", "", "human-readable account label")
}

func withStore(fn func(*store.Store) error) error {
	handler := NewCLIErrorHandler()

	path := viper.GetString("store")
	if path == "" {
		err := errors.ConfigurationError(errors.CodeMissingConfig, "store", nil, nil).
			WithSuggestion("pass --store or set RECONCILER_STORE")
		os.Exit(handler.HandleError(err))
	}

	st, err := store.Open(path)
	if err != nil {
		os.Exit(handler.HandleError(err))
	}
	defer st.Close()

	if err := fn(st); err != nil {
		os.Exit(handler.HandleError(err))
	}
	return nil
}
