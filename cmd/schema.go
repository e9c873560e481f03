package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"

	"github.com/alimasry/go-collab-cms/server"
)

func init() {
	rootCmd.AddCommand(schemaCmd)
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON Schema of gateway commands",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := json.MarshalIndent(commandSchema(), "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(b))
		return nil
	},
}

func commandSchema() *jsonschema.Schema {
	r := jsonschema.Reflector{DoNotReference: true}
	s := r.Reflect(&server.Command{})
	s.Title = "Command"
	s.Description = "A request sent to the gateway over /ws or POST /api/commands."
	return s
}
