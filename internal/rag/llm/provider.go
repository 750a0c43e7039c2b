package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/akolanti/docrag/internal/domain/commonModels"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role
	Content string
}

type ImageInput struct {
	Data     []byte
	MimeType string
}

type CompletionRequest struct {
	System      string
	Messages    []Message
	MaxTokens   int
	Temperature *float32
	// Image is attached to the last user message.
	Image *ImageInput
}

// Provider is a chat completion backend. DescribeImage is used as the vision fallback during extraction.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	DescribeImage(ctx context.Context, image []byte, mimeType string, prompt string) (string, error)
}

// HistoryMessages turns prior turns into alternating user/assistant messages, oldest first.
func HistoryMessages(history []commonModels.ConversationTurn) []Message {
	msgs := make([]Message, 0, len(history)*2)
	for _, turn := range history {
		msgs = append(msgs,
			Message{Role: RoleUser, Content: turn.Question},
			Message{Role: RoleAssistant, Content: turn.Answer},
		)
	}
	return msgs
}

// ContextPrompt is the final user message: retrieved context followed by the question.
func ContextPrompt(contextText string, question string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Context:\n%s\n\n", contextText)
	fmt.Fprintf(&b, "Question: %s", question)
	return b.String()
}
