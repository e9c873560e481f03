package cmd

import (
	"fmt"
	"os"

	"github.com/alimasry/go-collab-cms/config"
	"github.com/alimasry/go-collab-cms/model"
	"github.com/alimasry/go-collab-cms/richtext"
	"github.com/alimasry/go-collab-cms/workspace"
)

// workspaceOptions reads the schema and collections files named by c.
func workspaceOptions(c *config.Config) ([]workspace.Option, error) {
	var opts []workspace.Option
	if c.SchemaFile != "" {
		data, err := os.ReadFile(c.SchemaFile)
		if err != nil {
			return nil, fmt.Errorf("read schema: %w", err)
		}
		s, err := richtext.ParseSchemaYAML(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", c.SchemaFile, err)
		}
		opts = append(opts, workspace.WithSchema(s))
	}
	if c.CollectionsFile != "" {
		data, err := os.ReadFile(c.CollectionsFile)
		if err != nil {
			return nil, fmt.Errorf("read collections: %w", err)
		}
		specs, err := model.ParseCollectionsYAML(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", c.CollectionsFile, err)
		}
		opts = append(opts, workspace.WithCollections(specs...))
	}
	return opts, nil
}
