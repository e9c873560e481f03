package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alimasry/go-collab-cms/model"
	"github.com/alimasry/go-collab-cms/store"
)

var exportOut string

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file (default <id>.snapshot)")
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export [site|theme] [id]",
	Short: "Write the snapshot of a saved project to a file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := model.ParseProjectKind(args[0])
		if err != nil {
			return err
		}
		id := args[1]

		ctx := cmd.Context()
		st, err := store.Open(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		p, err := model.LoadProject(ctx, st, id)
		if err != nil {
			return err
		}
		if p.Kind() != kind {
			return fmt.Errorf("project %s is a %s, not a %s", id, p.Kind(), kind)
		}
		data, err := p.Export()
		if err != nil {
			return err
		}

		path := exportOut
		if path == "" {
			path = id + ".snapshot"
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write snapshot: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", path, len(data))
		return nil
	},
}
