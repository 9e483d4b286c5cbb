package prompt

import (
	"fmt"
	"strings"

	"github.com/themobileprof/ayu-be/internal/language"
	"github.com/themobileprof/ayu-be/pkg/llm"
)

// DefaultWindow is how many context entries reach the remote model.
const DefaultWindow = 4

// Request contains everything needed to build one completion prompt
type Request struct {
	Message  string
	Context  []string // oldest first; may already end with Message
	Language string
	Window   int
}

// Builder constructs prompts for the remote completion backends
type Builder struct {
	systemPrompt string
}

// NewBuilder creates a new prompt builder
func NewBuilder() *Builder {
	return &Builder{systemPrompt: buildSystemPrompt()}
}

// BuildPrompt returns the system instruction, the bounded history and the
// current message as the final user turn.
func (b *Builder) BuildPrompt(req Request) []llm.ChatMessage {
	window := req.Window
	if window <= 0 {
		window = DefaultWindow
	}

	history := req.Context
	if len(history) > window {
		history = history[len(history)-window:]
	}
	// The orchestrator appends the current message before completing.
	if n := len(history); n > 0 && history[n-1] == req.Message {
		history = history[:n-1]
	} else if len(history) == window {
		history = history[1:]
	}

	messages := make([]llm.ChatMessage, 0, len(history)+2)
	messages = append(messages, llm.ChatMessage{
		Role:    llm.RoleSystem,
		Content: b.systemFor(req.Language),
	})

	// Alternate backwards so the turn before the current message is the assistant's.
	for i, entry := range history {
		role := llm.RoleUser
		if (len(history)-i)%2 == 1 {
			role = llm.RoleAssistant
		}
		messages = append(messages, llm.ChatMessage{Role: role, Content: entry})
	}

	messages = append(messages, llm.ChatMessage{
		Role:    llm.RoleUser,
		Content: req.Message,
	})
	return messages
}

func (b *Builder) systemFor(lang string) string {
	lang = language.Normalize(lang)
	if lang == language.English {
		return b.systemPrompt
	}

	name := language.Name(lang)
	var sb strings.Builder
	sb.Grow(len(b.systemPrompt) + 256)
	sb.WriteString(b.systemPrompt)
	sb.WriteString("\n\nLANGUAGE:\n")
	sb.WriteString(fmt.Sprintf("Respond in %s. ", name))
	sb.WriteString(fmt.Sprintf("When a medical term has no common %s equivalent, write it in %s and add the English term in parentheses.\n", name, name))
	return sb.String()
}

func buildSystemPrompt() string {
	var sb strings.Builder
	sb.Grow(1024)

	sb.WriteString("You are Ayu, a friendly and knowledgeable health companion for people in India. ")
	sb.WriteString("You give general health information and simple home-care guidance.")
	sb.WriteString("\n\n")

	sb.WriteString("RESPONSE STYLE:\n")
	sb.WriteString("- Keep responses brief and conversational (2-4 sentences)\n")
	sb.WriteString("- Use simple, everyday language and avoid medical jargon\n")
	sb.WriteString("- Suggest remedies and medicines that are commonly available in India\n")
	sb.WriteString("\n")

	sb.WriteString("SAFETY:\n")
	sb.WriteString("- You are not a doctor and must not diagnose\n")
	sb.WriteString("- Always recommend consulting a qualified healthcare professional\n")
	sb.WriteString("- For anything that could be an emergency, tell the user to call 108 or go to the nearest emergency department\n")

	return sb.String()
}
