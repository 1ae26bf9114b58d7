// Package mcpserver exposes the patch engine as three MCP tools —
// patch_validate, patch_preview, and patch_apply — over stdio, so external
// agent harnesses can drive it the same way muxd's own internal/mcp
// package drives third-party MCP servers as a client.
package mcpserver

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hunkwright/hunkwright/internal/applier"
	"github.com/hunkwright/hunkwright/internal/contracts"
	"github.com/hunkwright/hunkwright/internal/diffparser"
	"github.com/hunkwright/hunkwright/internal/fsapply"
)

// serverName/serverVersion identify this process to MCP clients.
const (
	serverName    = "patchctl"
	serverVersion = "0.1.0"
)

// NewServer builds an *mcp.Server with patch_validate, patch_preview, and
// patch_apply registered. The caller runs it over a transport, typically
// &mcp.StdioTransport{} from "patchctl mcp-serve".
func NewServer() *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "patch_validate",
		Description: "Check unified/context diff grammar without applying it. Returns every (line, message) violation found.",
	}, handleValidate)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "patch_preview",
		Description: "Parse a diff and apply it to the given source text in memory, without touching any file. Returns the resulting text and change summary.",
	}, handlePreview)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "patch_apply",
		Description: "Parse a diff and apply it to a file on disk, optionally taking a backup checkpoint first.",
	}, handleApply)

	return server
}

// ValidateParams is the input schema for patch_validate.
type ValidateParams struct {
	Diff string `json:"diff" jsonschema:"the diff text to check"`
}

// ValidateResult is the output schema for patch_validate.
type ValidateResult struct {
	Valid      bool             `json:"valid"`
	Violations []ViolationEntry `json:"violations"`
}

// ViolationEntry mirrors diffparser.Violation for JSON output.
type ViolationEntry struct {
	LineNo  int    `json:"line_no"`
	Message string `json:"message"`
}

func handleValidate(ctx context.Context, req *mcp.CallToolRequest, params ValidateParams) (*mcp.CallToolResult, ValidateResult, error) {
	ok, violations := diffparser.Validate(params.Diff)
	out := ValidateResult{Valid: ok}
	for _, v := range violations {
		out.Violations = append(out.Violations, ViolationEntry{LineNo: v.LineNo, Message: v.Message})
	}
	return textResult(fmt.Sprintf("valid=%v violations=%d", ok, len(violations))), out, nil
}

// PreviewParams is the input schema for patch_preview.
type PreviewParams struct {
	Diff         string `json:"diff" jsonschema:"the diff text"`
	OriginalText string `json:"original_text" jsonschema:"the source text to apply the diff to"`
	FileIndex    int    `json:"file_index,omitempty" jsonschema:"which FilePatch in the diff to apply, 0-based"`
	Strict       bool   `json:"strict,omitempty" jsonschema:"fail instead of skipping a hunk that cannot be anchored"`
	FuzzyContext int    `json:"fuzzy_context,omitempty" jsonschema:"ring-search radius for drifted hunks, default 200"`
}

// ApplySummary is the shared output shape for patch_preview and patch_apply.
type ApplySummary struct {
	Text         string `json:"text"`
	AddedCount   int    `json:"added_count"`
	RemovedCount int    `json:"removed_count"`
	SkippedHunks []int  `json:"skipped_hunks,omitempty"`
	Wrote        bool   `json:"wrote"`
}

func handlePreview(ctx context.Context, req *mcp.CallToolRequest, params PreviewParams) (*mcp.CallToolResult, ApplySummary, error) {
	patch, err := singlePatch(params.Diff, params.FileIndex)
	if err != nil {
		return errResult(err), ApplySummary{}, nil
	}

	result, err := applier.Apply(params.OriginalText, patch, applier.Options{
		Strict:       params.Strict,
		FuzzyContext: params.FuzzyContext,
	})
	if err != nil {
		return errResult(err), ApplySummary{}, nil
	}

	out := ApplySummary{
		Text:         result.Text,
		AddedCount:   len(result.AddedLines),
		RemovedCount: len(result.RemovedOriginalIndices),
		SkippedHunks: result.SkippedHunks,
	}
	return textResult(fmt.Sprintf("+%d -%d", out.AddedCount, out.RemovedCount)), out, nil
}

// ApplyParams is the input schema for patch_apply.
type ApplyParams struct {
	Diff          string `json:"diff" jsonschema:"the diff text"`
	TargetPath    string `json:"target_path" jsonschema:"path of the file to apply the diff to"`
	FileIndex     int    `json:"file_index,omitempty" jsonschema:"which FilePatch in the diff to apply, 0-based"`
	Strict        bool   `json:"strict,omitempty" jsonschema:"fail instead of skipping a hunk that cannot be anchored"`
	FuzzyContext  int    `json:"fuzzy_context,omitempty" jsonschema:"ring-search radius for drifted hunks, default 200"`
	Backup        bool   `json:"backup,omitempty" jsonschema:"take a pre-apply checkpoint before writing"`
	CheckpointDir string `json:"checkpoint_dir,omitempty" jsonschema:"directory to store the checkpoint in, required when backup is set"`
	SessionID     string `json:"session_id,omitempty" jsonschema:"checkpoint session identifier, required when backup is set"`
}

func handleApply(ctx context.Context, req *mcp.CallToolRequest, params ApplyParams) (*mcp.CallToolResult, ApplySummary, error) {
	patch, err := singlePatch(params.Diff, params.FileIndex)
	if err != nil {
		return errResult(err), ApplySummary{}, nil
	}

	out, err := fsapply.ApplyToFile(params.TargetPath, patch, fsapply.Options{
		Strict:        params.Strict,
		FuzzyContext:  params.FuzzyContext,
		Backup:        params.Backup,
		CheckpointDir: params.CheckpointDir,
		SessionID:     params.SessionID,
	})
	if err != nil {
		return errResult(err), ApplySummary{}, nil
	}

	summary := ApplySummary{
		Text:         out.Result.Text,
		AddedCount:   len(out.Result.AddedLines),
		RemovedCount: len(out.Result.RemovedOriginalIndices),
		SkippedHunks: out.Result.SkippedHunks,
		Wrote:        out.Wrote,
	}
	return textResult(fmt.Sprintf("wrote=%v +%d -%d", summary.Wrote, summary.AddedCount, summary.RemovedCount)), summary, nil
}

// singlePatch parses diff and returns the FilePatch at fileIndex.
func singlePatch(diff string, fileIndex int) (contracts.FilePatch, error) {
	patches, err := diffparser.Parse(diff)
	if err != nil {
		return contracts.FilePatch{}, err
	}
	if fileIndex < 0 || fileIndex >= len(patches) {
		return contracts.FilePatch{}, fmt.Errorf("file_index %d out of range (diff has %d file section(s))", fileIndex, len(patches))
	}
	return patches[fileIndex], nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}
}

func errResult(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{IsError: true, Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}}}
}
