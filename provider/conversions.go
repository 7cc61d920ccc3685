package provider

import (
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/ollama/ollama/api"
	"github.com/openai/openai-go/v3"
)

// ConvertToOllamaMessages maps turns onto Ollama messages one to one.
func ConvertToOllamaMessages(turns []Turn) []api.Message {
	result := make([]api.Message, len(turns))
	for i, turn := range turns {
		result[i] = api.Message{
			Role:    string(turn.Role),
			Content: turn.Content,
		}
	}
	return result
}

// ConvertToOpenAIMessages maps turns onto OpenAI message params. Unknown roles
// are sent as user messages.
func ConvertToOpenAIMessages(turns []Turn) []openai.ChatCompletionMessageParamUnion {
	result := make([]openai.ChatCompletionMessageParamUnion, len(turns))
	for i, turn := range turns {
		switch turn.Role {
		case RoleSystem:
			result[i] = openai.SystemMessage(turn.Content)
		case RoleAssistant:
			result[i] = openai.AssistantMessage(turn.Content)
		default:
			result[i] = openai.UserMessage(turn.Content)
		}
	}
	return result
}

// convertToAnthropicMessages splits system turns off into the separate system
// parameter Anthropic expects.
func convertToAnthropicMessages(turns []Turn) ([]anthropic.MessageParam, []anthropic.TextBlockParam) {
	var system []anthropic.TextBlockParam
	messages := make([]anthropic.MessageParam, 0, len(turns))

	for _, turn := range turns {
		switch turn.Role {
		case RoleSystem:
			system = append(system, anthropic.TextBlockParam{Text: turn.Content})
		case RoleAssistant:
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(turn.Content)))
		default:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(turn.Content)))
		}
	}

	return messages, system
}
