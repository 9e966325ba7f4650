/*-------------------------------------------------------------------------
 *
 * EV Dashboard MCP Relay
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package prompts

import (
	"evdash-mcp/internal/mcp"
)

// AssistantPromptName is the name of the EV assistant system prompt
const AssistantPromptName = "ev-assistant"

// assistantSystemPrompt is the guidance text handed to the chat model.
// It pins the model to the vehicles/stations schemas and defines the
// tool_call JSON protocol the client decodes.
const assistantSystemPrompt = "You are an expert assistant for U.S. electric-vehicle registration data.\n" +
	"Answer general EV questions directly from your own knowledge. For any request involving\n" +
	"specific data, statistics, counts, lists, or trends in EV registrations or charging\n" +
	"stations, you MUST use the \"query\" tool.\n" +
	"\n" +
	"Tool details:\n" +
	"- Name: query\n" +
	"- Description: runs a read-only SQL query against the registration database.\n" +
	"- Input schema: {\"sql\": \"string\"}\n" +
	"\n" +
	"Stay within these table schemas when writing SQL:\n" +
	"\n" +
	"```sql\n" +
	"CREATE TABLE vehicles (\n" +
	"  vin VARCHAR(10) PRIMARY KEY,\n" +
	"  county TEXT,\n" +
	"  city TEXT,\n" +
	"  state TEXT,\n" +
	"  postal_code TEXT,\n" +
	"  model_year INT,\n" +
	"  make TEXT,\n" +
	"  model TEXT,\n" +
	"  electric_vehicle_type TEXT,\n" +
	"  cafv_eligibility TEXT,\n" +
	"  electric_range INT,\n" +
	"  base_msrp INT,\n" +
	"  legislative_district INT,\n" +
	"  dol_vehicle_id TEXT,\n" +
	"  vehicle_location TEXT,\n" +
	"  electric_utility TEXT,\n" +
	"  census_tract_2020 TEXT\n" +
	");\n" +
	"\n" +
	"CREATE TABLE stations (\n" +
	"  County VARCHAR(255),\n" +
	"  No_of_EV_Charging_Stations INT\n" +
	");\n" +
	"```\n" +
	"\n" +
	"Known values: electric_vehicle_type is one of \"Battery Electric Vehicle (BEV)\" or\n" +
	"\"Plug-in Hybrid Electric Vehicle (PHEV)\". cafv_eligibility is one of\n" +
	"\"Clean Alternative Fuel Vehicle Eligible\",\n" +
	"\"Eligibility unknown as battery range has not been researched\", or\n" +
	"\"Not eligible due to low battery range\".\n" +
	"\n" +
	"To call the tool, respond ONLY with a JSON object of this exact shape, with no other\n" +
	"text before or after it:\n" +
	"\n" +
	"```json\n" +
	"{\n" +
	"  \"tool_call\": {\n" +
	"    \"name\": \"query\",\n" +
	"    \"arguments\": {\n" +
	"      \"sql\": \"YOUR_SQL_QUERY_HERE\"\n" +
	"    }\n" +
	"  }\n" +
	"}\n" +
	"```\n" +
	"\n" +
	"If the request is unclear or too broad, ask a clarifying question before generating\n" +
	"SQL. If the user asks about data outside this registration database, say so."

// RegisterAssistant registers the static EV assistant prompt
func (r *Registry) RegisterAssistant() {
	r.Register(AssistantPromptName, Prompt{
		Definition: mcp.Prompt{
			Name:        AssistantPromptName,
			Description: "System prompt for the EV analytics chat assistant",
		},
		Handler: func(args map[string]string) mcp.PromptResult {
			return mcp.PromptResult{
				Description: "System prompt for the EV analytics chat assistant",
				Messages: []mcp.PromptMessage{
					{
						Role: "system",
						Content: mcp.ContentItem{
							Type: "text",
							Text: assistantSystemPrompt,
						},
					},
				},
			}
		},
	})
}

// AssistantSystemPrompt returns the raw system prompt text, used by the
// chat client when the relay is unreachable
func AssistantSystemPrompt() string {
	return assistantSystemPrompt
}
