package ai

import (
	"fmt"
	"strings"

	"github.com/voicelayer/aria/internal/model/persona"
)

// BuildSystemPrompt renders the persona's behavior prompt plus the voice
// conversation rules shared by every character.
func BuildSystemPrompt(p *persona.Persona) string {
	var b strings.Builder

	prompt := strings.TrimSpace(p.SystemPrompt)
	if prompt == "" {
		prompt = fmt.Sprintf("You are %s. %s. Stay in character.", p.Name, p.Description)
	}
	b.WriteString(prompt)

	b.WriteString("\n\nConversation rules:\n")
	b.WriteString("- Your replies are converted to speech, so answer in a couple of short sentences.\n")
	b.WriteString("- Do not use markdown, bullet points, or emoji in your replies.\n")
	b.WriteString("- When you need current information or live weather, call the available functions instead of guessing.\n")
	b.WriteString("- If a function fails, acknowledge it briefly in character and answer as best you can.")

	return b.String()
}
