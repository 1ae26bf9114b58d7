package domain

// CommandDef describes a subcommand available on patchctl.
type CommandDef struct {
	Name        string
	Description string
	Group       string // display group for the CLI's own "help" output
	TUIOnly     bool   // only meaningful when launched into the interactive navigator
	MCPOnly     bool   // only exposed as an MCP tool, not a CLI subcommand
}

// CommandDefs is the single source of truth for patchctl's subcommands and
// the tools exposed over MCP.
var CommandDefs = []CommandDef{
	{Name: "apply", Description: "apply one file section of a diff to its target", Group: "patch"},
	{Name: "preview", Description: "apply a diff without writing, print the result", Group: "patch"},
	{Name: "validate", Description: "check diff grammar without applying", Group: "patch"},
	{Name: "view", Description: "open the interactive change navigator", Group: "patch", TUIOnly: true},
	{Name: "report", Description: "render an HTML apply report", Group: "patch"},
	{Name: "history", Description: "list past apply sessions", Group: "session"},
	{Name: "undo", Description: "restore a file from its checkpoint", Group: "session"},
	{Name: "config", Description: "show or set preferences", Group: "config"},
	{Name: "mcp-serve", Description: "run the MCP server over stdio", Group: "config"},
	{Name: "patch_validate", Description: "MCP tool: validate diff grammar", Group: "mcp", MCPOnly: true},
	{Name: "patch_preview", Description: "MCP tool: preview an apply", Group: "mcp", MCPOnly: true},
	{Name: "patch_apply", Description: "MCP tool: apply a diff to a file", Group: "mcp", MCPOnly: true},
}

// CommandHelp returns the subset of CommandDefs relevant to the given
// surface: cli help text excludes MCPOnly entries, MCP tool listings
// include only MCPOnly entries.
func CommandHelp(mcp bool) []CommandDef {
	var cmds []CommandDef
	for _, c := range CommandDefs {
		if mcp && !c.MCPOnly {
			continue
		}
		if !mcp && c.MCPOnly {
			continue
		}
		cmds = append(cmds, c)
	}
	return cmds
}

// CommandGroups defines the display order and labels for patchctl's own
// "help" subcommand.
var CommandGroups = []struct {
	Key   string
	Label string
}{
	{"patch", "Patch"},
	{"session", "Session"},
	{"config", "Config"},
}
