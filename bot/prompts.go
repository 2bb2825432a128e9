// Prompt composition for the gym-assistant persona.
//
// The persona text is a fixed system instruction; per-task wrappers for
// summary and sentiment reuse it so the tone stays consistent across
// commands.
package bot

import (
	"fmt"

	"github.com/Leanba/chatbot-gym-gemini/llm"
	"github.com/Leanba/chatbot-gym-gemini/storage"
)

const systemPrompt = `You are a professional personal trainer. Always answer clearly, briefly, and in plain language.
Strict rules:
- At most 10 lines when explaining exercises.
- Short sentences. No unnecessary jargon.
- Never use bold (** **) or Markdown. Only bullets with moderate sport emojis (🔹 🔸 💪).
- No medical diagnoses or clinical plans.
- If the user says they are at the gym or about to train, prefer short and direct answers.`

// composeChat builds the freeform completion request: persona instruction
// plus the trimmed recent history. The current user message is already the
// last history entry by the time this runs.
func composeChat(history []storage.Entry) []llm.ChatMessage {
	messages := make([]llm.ChatMessage, 0, len(history)+1)
	messages = append(messages, llm.SystemMessage(systemPrompt))
	for _, entry := range history {
		switch entry.Role {
		case storage.RoleUser:
			messages = append(messages, llm.UserMessage(entry.Text))
		case storage.RoleAssistant:
			messages = append(messages, llm.AssistantMessage(entry.Text))
		}
	}
	return messages
}

// composeSummary builds the summary task request. History is deliberately
// left out: the task operates on the supplied text alone.
func composeSummary(text string) []llm.ChatMessage {
	return []llm.ChatMessage{
		llm.SystemMessage(systemPrompt),
		llm.UserMessage(fmt.Sprintf("TASK: Briefly summarize the following text in at most 5 lines.\n\nText:\n%s\n\nSummary:", text)),
	}
}

// composeSentiment builds the sentiment classification request.
func composeSentiment(text string) []llm.ChatMessage {
	return []llm.ChatMessage{
		llm.SystemMessage(systemPrompt),
		llm.UserMessage(fmt.Sprintf("TASK: Analyze the sentiment of the following text. Answer on a single line in this format:\nSENTIMENT: <positive|neutral|negative>\nEXPLANATION: <short sentence>\n\nText:\n%s\n\nResult:", text)),
	}
}
