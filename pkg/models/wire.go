package models

import "encoding/json"

// ClientCommand is one deferred map command returned to the browser.
// The client executes it roughly as mapAPI[fn](args) and reports the
// outcome in its next turn submission, tagged with ToolCallID.
type ClientCommand struct {
	Fn         string          `json:"fn"`
	Args       json.RawMessage `json:"args"`
	ToolCallID string          `json:"tool_call_id,omitempty"`
}

// ClientToolResult is the client's report for one executed deferred
// command. Result content is opaque to the server; execution errors are
// reported here as ordinary content (e.g. "execution error: ...") and
// the reasoning engine handles them like any other tool outcome.
type ClientToolResult struct {
	Fn         string          `json:"fn,omitempty"`
	ToolCallID string          `json:"tool_call_id"`
	Result     json.RawMessage `json:"result"`
}
