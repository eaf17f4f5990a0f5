package mcpserver

import "github.com/mark3labs/mcp-go/mcp"

func formatOption() mcp.ToolOption {
	return mcp.WithString("format",
		mcp.Description("Output format: yaml (default) or json"),
		mcp.Enum("yaml", "json"),
	)
}

func listSelectionsTool() mcp.Tool {
	return mcp.NewTool("list_selections",
		mcp.WithDescription("List recent element selections exported from inspected pages, newest first. Returns id, url, title, element count and tag names."),
		mcp.WithNumber("limit", mcp.Description("Maximum number of selections (default 20)")),
		mcp.WithString("filter", mcp.Description(`CEL expression over url, title, count, tags and source, e.g. "button" in tags && count > 1`)),
		formatOption(),
	)
}

func getSelectionTool() mcp.Tool {
	return mcp.NewTool("get_selection",
		mcp.WithDescription("Get the full payload of one exported selection: page context and every selected element with selector, text, styles, semantics and component source."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Selection id from list_selections")),
		formatOption(),
	)
}

func analyzeHTMLTool() mcp.Tool {
	return mcp.NewTool("analyze_html",
		mcp.WithDescription("Describe the elements of an HTML document that match a CSS selector, the same way the inspector describes hovered elements."),
		mcp.WithString("html", mcp.Required(), mcp.Description("HTML document or fragment")),
		mcp.WithString("selector", mcp.Required(), mcp.Description("CSS selector")),
		mcp.WithString("url", mcp.Description("Page URL to report for the document")),
		formatOption(),
	)
}
