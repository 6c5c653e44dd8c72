package recommend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/yildizm/go-promptfmt"

	"github.com/yildizm/librarian/internal/ai"
	"github.com/yildizm/librarian/internal/guard"
)

const (
	// ToolName is the only capability the selection phase may invoke
	ToolName = "get_summary_by_title"

	toolDescription = "Returnează rezumatul complet pentru un titlu exact de carte (dintr-o bază locală)."

	selectionSystemPrompt = "Ești Smart Librarian.\n" +
		"Scop: RECOMANDĂ o singură carte DEJA EXISTENTĂ, din CONTEXTUL primit (lista de titluri) sau o carte asemanatoare. " +
		"NU inventa titluri, NU scrie proză/ficțiune, NU genera capitole sau pagini. " +
		"Dacă utilizatorul spune „ca Harry Potter”, deduci temele și alegi un TITLU DIN CONTEXT. " +
		"Primul răspuns TREBUIE să fie NUMAI un apel de tool get_summary_by_title cu titlul ales."

	justificationSystemPrompt = "Generează exclusiv o listă de 2-3 bullet-uri scurte cu MOTIVE pentru care titlul ales se potrivește " +
		"cererii utilizatorului. Nu scrie poveste/ficțiune. Nu inventa detalii. " +
		"Fără titlu înapoi, doar bullet-urile."

	contextPrefix = "CONTEXT CANDIDATE: "

	// FallbackMessage replaces the recommendation when no title was selected
	FallbackMessage = "Nu am reușit să aleg un titlu din context. Încearcă să reformulezi întrebarea."

	toolErrorPrefix = "Eroare tool: "
)

// summaryTool declares the lookup capability with a single required title
func summaryTool() ai.Tool {
	return ai.Tool{
		Name:        ToolName,
		Description: toolDescription,
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"title": map[string]any{"type": "string"},
			},
			"required":             []string{"title"},
			"additionalProperties": false,
		},
	}
}

// ContextEntry is one grounding candidate as shown to the model and cited
type ContextEntry struct {
	Title   string  `json:"title"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score"`
}

// encodeContext serializes entries without escaping non-ASCII or HTML
func encodeContext(entries []ContextEntry) string {
	if entries == nil {
		entries = []ContextEntry{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(entries); err != nil {
		return "[]"
	}
	return strings.TrimSpace(buf.String())
}

func selectionMessages(query string, grounding []ContextEntry) []ai.Message {
	return []ai.Message{
		{Role: ai.RoleSystem, Content: selectionSystemPrompt},
		{Role: ai.RoleUser, Content: query},
		{Role: ai.RoleAssistant, Content: guard.IntentInstruction},
		{Role: ai.RoleAssistant, Content: contextPrefix + encodeContext(grounding)},
	}
}

func justificationMessages(query, title, summary string, grounding []ContextEntry, summaryRunes int) []ai.Message {
	return []ai.Message{
		{Role: ai.RoleSystem, Content: justificationSystemPrompt},
		{Role: ai.RoleUser, Content: "Cerere utilizator: " + query},
		{Role: ai.RoleAssistant, Content: contextPrefix + encodeContext(grounding)},
		{Role: ai.RoleAssistant, Content: "Titlul ales: " + title},
		{Role: ai.RoleAssistant, Content: "Rezumat (din tool) pentru context, nu de rescris: " + cut(summary, summaryRunes)},
	}
}

// toolArgs is the argument payload of a summary tool call
type toolArgs struct {
	Title string `json:"title"`
}

// parseTitle extracts the title argument. Models occasionally wrap the
// JSON in prose or code fences, which the response parser tolerates.
func parseTitle(call *ai.ToolCall) (string, bool) {
	if call == nil || strings.TrimSpace(call.Arguments) == "" {
		return "", false
	}
	var args toolArgs
	if !promptfmt.NewResponse(call.Arguments).TryParseJSON(&args).Success {
		return "", false
	}
	title := strings.TrimSpace(args.Title)
	return title, title != ""
}

func assemble(title, reasons, summary string) string {
	return fmt.Sprintf("**Recomandare:** %s\n\n**De ce:**\n%s\n\n**Rezumat detaliat:**\n%s", title, reasons, summary)
}

func citations(grounding []ContextEntry) string {
	if len(grounding) == 0 {
		return ""
	}
	lines := make([]string, 0, len(grounding))
	for _, c := range grounding {
		lines = append(lines, fmt.Sprintf("- **%s** (sim=%.3f) – %s", c.Title, c.Score, c.Snippet))
	}
	return "\n\n**Context folosit (RAG):**\n" + strings.Join(lines, "\n")
}

// cut keeps the first n runes without an ellipsis
func cut(s string, n int) string {
	runes := []rune(s)
	if n < 0 || len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
