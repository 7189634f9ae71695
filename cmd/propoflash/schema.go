package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"propoflash/internal/models"
	"propoflash/internal/proposal"
)

var schemaCmd = &cobra.Command{
	Use:       "schema [proposal|design]",
	Short:     "Print the JSON Schema of a proposal document or a design spec",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"proposal", "design"},
	RunE: func(cmd *cobra.Command, args []string) error {
		var v interface{} = &proposal.Document{}
		if len(args) == 1 && args[0] == "design" {
			v = &models.DesignSpec{}
		}
		schema, err := proposal.GenerateSchema(v)
		if err != nil {
			return err
		}
		out, err := json.MarshalIndent(schema, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}
