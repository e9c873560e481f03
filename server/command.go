package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/alimasry/go-collab-cms/model"
	"github.com/alimasry/go-collab-cms/richtext"
	"github.com/alimasry/go-collab-cms/workspace"
)

// Command types accepted from clients.
const (
	CmdInitDefault     = "init_default"
	CmdCreateSite      = "create_site"
	CmdGetSite         = "get_site"
	CmdCreateTheme     = "create_theme"
	CmdGetTheme        = "get_theme"
	CmdGetCollection   = "get_collection"
	CmdListCollections = "list_collections"
	CmdCreateFile      = "create_file"
	CmdUpdateFile      = "update_file"
	CmdGetFile         = "get_file"
	CmdListFiles       = "list_files"
	CmdSaveState       = "save_state"
	CmdLoadState       = "load_state"
	CmdExportProject   = "export_project"
	CmdImportProject   = "import_project"
	CmdGetDocument     = "get_document"
	CmdApplySteps      = "apply_steps"
	CmdJoin            = "join"
	CmdLeave           = "leave"
)

var commandTypes = []any{
	CmdInitDefault, CmdCreateSite, CmdGetSite, CmdCreateTheme, CmdGetTheme,
	CmdGetCollection, CmdListCollections, CmdCreateFile, CmdUpdateFile,
	CmdGetFile, CmdListFiles, CmdSaveState, CmdLoadState, CmdExportProject,
	CmdImportProject, CmdGetDocument, CmdApplySteps, CmdJoin, CmdLeave,
}

var errNeedsConnection = errors.New("command needs a websocket connection")

// Command is a request from a client. Which fields are read depends on
// Type.
type Command struct {
	ID   string `json:"id" jsonschema:"description=Echoed back in the response"`
	Type string `json:"type" jsonschema:"enum=init_default,enum=create_site,enum=get_site,enum=create_theme,enum=get_theme,enum=get_collection,enum=list_collections,enum=create_file,enum=update_file,enum=get_file,enum=list_files,enum=save_state,enum=load_state,enum=export_project,enum=import_project,enum=get_document,enum=apply_steps,enum=join,enum=leave"`

	ProjectType string `json:"projectType,omitempty" jsonschema:"enum=site,enum=theme"`
	Name        string `json:"name,omitempty"`
	ThemeID     string `json:"themeId,omitempty"`
	SiteID      string `json:"siteId,omitempty"`
	Collection  string `json:"collection,omitempty"`
	FileID      string `json:"fileId,omitempty"`

	Update  *workspace.Update `json:"update,omitempty"`
	Steps   []richtext.Step   `json:"steps,omitempty"`
	Version int64             `json:"version,omitempty"`

	// import_project
	ProjectID string  `json:"projectId,omitempty"`
	Data      []byte  `json:"data,omitempty" jsonschema:"description=Base64 project snapshot"`
	Created   float64 `json:"created,omitempty" jsonschema:"description=Unix milliseconds"`
	Updated   float64 `json:"updated,omitempty" jsonschema:"description=Unix milliseconds"`
}

func is(t string, types ...string) bool {
	for _, x := range types {
		if t == x {
			return true
		}
	}
	return false
}

func (c Command) Validate() error {
	project := is(c.Type, CmdGetCollection, CmdListCollections, CmdCreateFile,
		CmdUpdateFile, CmdGetFile, CmdListFiles, CmdSaveState, CmdExportProject,
		CmdImportProject, CmdGetDocument, CmdApplySteps, CmdJoin)
	collection := is(c.Type, CmdCreateFile, CmdUpdateFile, CmdGetFile,
		CmdListFiles, CmdGetDocument, CmdApplySteps, CmdJoin)
	file := is(c.Type, CmdUpdateFile, CmdGetFile, CmdGetDocument, CmdApplySteps, CmdJoin)

	return validation.ValidateStruct(&c,
		validation.Field(&c.Type, validation.Required, validation.In(commandTypes...)),
		validation.Field(&c.ProjectType,
			validation.When(project, validation.Required),
			validation.In(string(model.ProjectSite), string(model.ProjectTheme))),
		validation.Field(&c.Name, validation.When(is(c.Type, CmdCreateSite, CmdCreateTheme, CmdGetCollection, CmdCreateFile), validation.Required)),
		validation.Field(&c.ThemeID, validation.When(c.Type == CmdCreateSite, validation.Required)),
		validation.Field(&c.Collection, validation.When(collection, validation.Required)),
		validation.Field(&c.FileID, validation.When(file, validation.Required)),
		validation.Field(&c.Update, validation.When(c.Type == CmdUpdateFile, validation.Required)),
		validation.Field(&c.ProjectID, validation.When(c.Type == CmdImportProject, validation.Required)),
		validation.Field(&c.Data, validation.When(c.Type == CmdImportProject, validation.Required)),
	)
}

func (c Command) kind() model.ProjectKind { return model.ProjectKind(c.ProjectType) }

// execute runs every command that does not involve rooms.
func execute(ctx context.Context, ws *workspace.Workspace, c Command) (any, error) {
	switch c.Type {
	case CmdInitDefault:
		return ws.InitDefault(ctx)
	case CmdCreateSite:
		return ws.CreateSite(ctx, c.Name, c.ThemeID)
	case CmdGetSite:
		return ws.Site()
	case CmdCreateTheme:
		return ws.CreateTheme(ctx, c.Name)
	case CmdGetTheme:
		return ws.Theme()
	case CmdGetCollection:
		return ws.Collection(c.kind(), c.Name)
	case CmdListCollections:
		return ws.Collections(c.kind())
	case CmdCreateFile:
		return ws.CreateFile(ctx, c.kind(), c.Collection, c.Name)
	case CmdUpdateFile:
		return ws.UpdateFile(ctx, c.kind(), c.Collection, c.FileID, *c.Update)
	case CmdGetFile:
		return ws.File(ctx, c.kind(), c.Collection, c.FileID)
	case CmdListFiles:
		return ws.Files(ctx, c.kind(), c.Collection)
	case CmdSaveState:
		return ws.SaveState(ctx, c.kind())
	case CmdLoadState:
		return ws.LoadState(ctx, c.SiteID, c.ThemeID)
	case CmdExportProject:
		data, err := ws.Export(c.kind())
		if err != nil {
			return nil, fmt.Errorf("export project: %w", err)
		}
		return map[string]any{"projectType": c.ProjectType, "data": data}, nil
	case CmdImportProject:
		return ws.Import(c.Data, c.ProjectID, c.kind(),
			time.UnixMilli(int64(c.Created)), time.UnixMilli(int64(c.Updated)))
	case CmdGetDocument:
		return ws.Document(ctx, c.kind(), c.Collection, c.FileID)
	case CmdApplySteps:
		v, err := ws.ApplySteps(ctx, c.kind(), c.Collection, c.FileID, c.Steps, c.Version)
		if err != nil {
			return nil, err
		}
		return map[string]any{"version": v}, nil
	case CmdJoin, CmdLeave:
		return nil, errNeedsConnection
	}
	return nil, fmt.Errorf("unknown command type %q", c.Type)
}
