package tools

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// marshalJSON encodes v without HTML escaping. An empty indent yields compact
// output.
func marshalJSON(v any, indent string) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

// jsonResult renders v as compact JSON text.
func jsonResult(v any) *mcp.CallToolResult {
	s, err := marshalJSON(v, "")
	if err != nil {
		return mcp.NewToolResultErrorf("Error encoding result: %v", err)
	}
	return mcp.NewToolResultText(s)
}

// indentedResult renders v as JSON indented by two spaces.
func indentedResult(v any) *mcp.CallToolResult {
	s, err := marshalJSON(v, "  ")
	if err != nil {
		return mcp.NewToolResultErrorf("Error encoding result: %v", err)
	}
	return mcp.NewToolResultText(s)
}

// failure reports an upstream error in-band as "Error <action>: <msg>".
func failure(action string, err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf("Error %s: %v", action, err))
}

// invalid reports a rejected argument.
func invalid(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf("Invalid arguments: %v", err))
}
