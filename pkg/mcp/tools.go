package mcp

import "github.com/mark3labs/mcp-go/mcp"

func loadSnapshotTool() mcp.Tool {
	return mcp.NewTool("load_snapshot",
		mcp.WithDescription("Load a snapshot JSON file and make it the current tree for subsequent queries. Returns the source path, node count and overlay count."),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the snapshot JSON file"),
		),
	)
}

func resolveQueryTool() mcp.Tool {
	return mcp.NewTool("resolve_query",
		mcp.WithDescription("Resolve a component query against the current tree and describe every matched node: type, display name, depth, attributes and a canonical query addressing it."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description(`Component query, e.g. //Button[caption="Sign in"] or //Grid#cell-0-0`),
		),
		mcp.WithNumber("max_results",
			mcp.Description("Cap on described matches (default 25); the total is always reported"),
		),
	)
}

func resolveOneTool() mcp.Tool {
	return mcp.NewTool("resolve_one",
		mcp.WithDescription("Resolve a component query expected to match one node. Errors when nothing matches; when several match, the total is reported and the first is described."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Component query"),
		),
	)
}

func synthesizeQueryTool() mcp.Tool {
	return mcp.NewTool("synthesize_query",
		mcp.WithDescription("Resolve a query and return the minimal stable query for its first match, in the whole-result form (path)[ordinal]."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Component query identifying the target node"),
		),
	)
}

func explainQueryTool() mcp.Tool {
	return mcp.NewTool("explain_query",
		mcp.WithDescription("Parse a query without resolving it: path segments with descent kind and predicates, the subpart suffix, overlay addressing and the whole-result post filter. Useful for debugging queries that match nothing, since resolution itself never errors."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Component query to explain"),
		),
	)
}

func listOverlaysTool() mcp.Tool {
	return mcp.NewTool("list_overlays",
		mcp.WithDescription("List the overlays shown on the current tree, oldest first, each with its attributes and the registry query addressing it."),
	)
}
