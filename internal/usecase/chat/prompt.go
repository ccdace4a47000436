package chat

import (
	"encoding/json"

	"github.com/nikhildd32/cf-ai-scout/internal/domain"
)

const toolName = "search_sports_data"

const systemPrompt = `You are a sports analytics assistant with access to live NBA and NFL data.

For ANY question about current games, scores, schedules, player performance,
team records, standings, or recent results, you MUST call the ` + toolName + ` tool
with a query field containing a clear restatement of the user's question.
Examples:
- "What NBA games happened yesterday?" -> query: "NBA games yesterday"
- "Who scored the most points last night?" -> query: "highest scoring player last night"

After the tool result arrives, present the data in a clear, conversational
format. For general sports knowledge (history, rules, definitions), answer
directly without the tool. If the tool reports an error or no results,
apologize briefly and say what you could not find.`

// toolParameters is the single accepted argument shape. Anything outside it
// is rejected at the boundary instead of probing alternate keys.
var toolParameters = json.RawMessage(`{
	"type": "object",
	"properties": {
		"query": {
			"type": "string",
			"description": "A specific sports question, e.g. \"NBA games yesterday\" or \"Lakers vs Warriors score\""
		}
	},
	"required": ["query"],
	"additionalProperties": false
}`)

func toolSpecs() []domain.ToolSpec {
	return []domain.ToolSpec{{
		Name:        toolName,
		Description: "Search live NBA/NFL data: scores, schedules, player stats, standings.",
		Parameters:  toolParameters,
	}}
}
