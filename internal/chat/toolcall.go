/*-------------------------------------------------------------------------
 *
 * EV Dashboard MCP Relay - Chat Client
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package chat

import (
	"encoding/json"
	"regexp"
	"strings"
)

// ToolCall is a tool invocation the model asked for
type ToolCall struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

type toolCallEnvelope struct {
	ToolCall *ToolCall `json:"tool_call"`
}

// fencedJSON matches a ```json fenced block anywhere in the reply.
// Models often wrap the tool_call object in a fence even when told not
// to add surrounding text.
var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// DecodeReply inspects a model reply and extracts a tool call if the
// reply is one. It tries a fenced JSON block first, then the whole
// trimmed reply as raw JSON. Anything else is plain assistant text.
func DecodeReply(reply string) (*ToolCall, string) {
	if m := fencedJSON.FindStringSubmatch(reply); m != nil {
		if call := parseToolCall(m[1]); call != nil {
			return call, ""
		}
	}

	trimmed := strings.TrimSpace(reply)
	if strings.HasPrefix(trimmed, "{") {
		if call := parseToolCall(trimmed); call != nil {
			return call, ""
		}
	}

	return nil, reply
}

func parseToolCall(raw string) *ToolCall {
	var envelope toolCallEnvelope
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		return nil
	}
	if envelope.ToolCall == nil || envelope.ToolCall.Name == "" {
		return nil
	}
	if envelope.ToolCall.Arguments == nil {
		envelope.ToolCall.Arguments = map[string]interface{}{}
	}
	return envelope.ToolCall
}
