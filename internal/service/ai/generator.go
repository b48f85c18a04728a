package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/voicelayer/aria/internal/config"
	"github.com/voicelayer/aria/internal/model/chat"
	"github.com/voicelayer/aria/internal/model/persona"
	"github.com/voicelayer/aria/internal/service/skill"
)

// ErrEmptyResponse is returned when the generation engine answers without
// any candidate text. This is a hard failure, not retried.
var ErrEmptyResponse = errors.New("generation engine returned an empty response")

// MaxToolCallsError reports an exhausted tool-call budget. The records
// collected so far are retained for diagnostics.
type MaxToolCallsError struct {
	Limit   int
	Records []skill.CallRecord
}

func (e *MaxToolCallsError) Error() string {
	return fmt.Sprintf("maximum function calls (%d) reached", e.Limit)
}

// Outcome is a completed generation: final text plus every skill invocation
// made along the way.
type Outcome struct {
	Text    string
	Records []skill.CallRecord
}

// Generator drives the bounded request/execute/respond loop against the
// generation engine, using the skill registry as the callable tool set.
type Generator struct {
	chatModel     model.ChatModel
	skills        *skill.Registry
	maxIterations int
	historyLimit  int
}

// NewGenerator creates a Generator backed by the configured chat model, with
// the registry's tool declarations bound once at startup.
func NewGenerator(ctx context.Context, cfg config.AIConfig, skills *skill.Registry) (*Generator, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	if decls := skills.Declarations(); len(decls) > 0 {
		if err := chatModel.BindTools(decls); err != nil {
			return nil, fmt.Errorf("failed to bind tool declarations: %w", err)
		}
	}

	return newGenerator(chatModel, skills, cfg.MaxToolCalls, cfg.HistoryLimit), nil
}

// NewGeneratorWithModel wires a Generator around an existing chat model. The
// caller is responsible for binding tool declarations.
func NewGeneratorWithModel(chatModel model.ChatModel, skills *skill.Registry, maxIterations, historyLimit int) *Generator {
	return newGenerator(chatModel, skills, maxIterations, historyLimit)
}

func newGenerator(chatModel model.ChatModel, skills *skill.Registry, maxIterations, historyLimit int) *Generator {
	if maxIterations <= 0 {
		maxIterations = 3
	}
	if historyLimit <= 0 {
		historyLimit = 10
	}
	return &Generator{
		chatModel:     chatModel,
		skills:        skills,
		maxIterations: maxIterations,
		historyLimit:  historyLimit,
	}
}

// Generate produces the final assistant text for one turn.
//
// Each iteration sends the running message list to the engine. A response
// without tool calls ends the loop with its text; a response with tool calls
// executes every call in engine order, appends the tool-call message and one
// tool response per call, and re-invokes. Failed skill executions are fed
// back as tool-response text so the engine can recover. The loop never makes
// more than the configured number of engine calls.
func (g *Generator) Generate(ctx context.Context, p *persona.Persona, history []chat.Message, userText string, creds map[string]string) (*Outcome, error) {
	messages := g.buildMessages(p, history, userText)

	var records []skill.CallRecord
	for iteration := 0; iteration < g.maxIterations; iteration++ {
		resp, err := g.chatModel.Generate(ctx, messages)
		if err != nil {
			return nil, fmt.Errorf("generation call failed: %w", err)
		}
		if resp == nil {
			return nil, ErrEmptyResponse
		}

		if len(resp.ToolCalls) == 0 {
			text := strings.TrimSpace(resp.Content)
			if text == "" {
				return nil, ErrEmptyResponse
			}
			log.Printf("[ai] generated reply persona=%s length=%d tool_calls=%d", p.ID, len(text), len(records))
			return &Outcome{Text: text, Records: records}, nil
		}

		messages = append(messages, resp)
		for _, call := range resp.ToolCalls {
			record := g.skills.Execute(ctx, call.Function.Name, decodeArguments(call.Function.Arguments), creds)
			records = append(records, record)
			messages = append(messages, schema.ToolMessage(record.Output, call.ID))
		}
	}

	return nil, &MaxToolCallsError{Limit: g.maxIterations, Records: records}
}

// buildMessages assembles persona prompt, windowed history, and the user
// transcript into the engine message list.
func (g *Generator) buildMessages(p *persona.Persona, history []chat.Message, userText string) []*schema.Message {
	messages := make([]*schema.Message, 0, len(history)+2)
	messages = append(messages, schema.SystemMessage(BuildSystemPrompt(p)))

	startIdx := 0
	if len(history) > g.historyLimit {
		startIdx = len(history) - g.historyLimit
	}
	for _, msg := range history[startIdx:] {
		switch msg.Role {
		case chat.RoleUser:
			messages = append(messages, schema.UserMessage(msg.Text))
		case chat.RoleAssistant:
			messages = append(messages, schema.AssistantMessage(msg.Text, nil))
		}
	}

	messages = append(messages, schema.UserMessage(userText))
	return messages
}

// decodeArguments parses the engine's JSON argument payload. Malformed
// arguments degrade to an empty parameter map, which the skill's boundary
// validation turns into a structured error.
func decodeArguments(raw string) map[string]any {
	params := make(map[string]any)
	if strings.TrimSpace(raw) == "" {
		return params
	}
	if err := json.Unmarshal([]byte(raw), &params); err != nil {
		log.Printf("[ai] malformed tool arguments: %v", err)
		return map[string]any{}
	}
	return params
}
