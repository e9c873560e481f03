package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alimasry/go-collab-cms/model"
	"github.com/alimasry/go-collab-cms/store"
	"github.com/alimasry/go-collab-cms/workspace"
)

func init() {
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default theme and site and save them to the store",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		opts, err := workspaceOptions(cfg)
		if err != nil {
			return err
		}
		st, err := store.Open(ctx, cfg)
		if err != nil {
			return err
		}

		ws := workspace.New(st, opts...)
		out, err := ws.InitDefault(ctx)
		if err != nil {
			st.Close()
			return err
		}
		for _, kind := range []model.ProjectKind{model.ProjectTheme, model.ProjectSite} {
			if _, err := ws.SaveState(ctx, kind); err != nil {
				st.Close()
				return err
			}
		}
		// Closing flushes cached writes.
		if err := st.Close(); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "theme %s\nsite  %s\n", out["themeId"], out["siteId"])
		return nil
	},
}
