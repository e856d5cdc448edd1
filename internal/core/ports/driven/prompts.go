package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files or embed them in the binary.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// Unknown names return an error.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

// Well-known prompt names used throughout the application.
// These constants define the contract between prompt consumers and providers.
const (
	// PromptSystem is the system message sent with every answer request.
	// This prompt has no placeholders.
	PromptSystem = "system"

	// PromptQA assembles the answer prompt. It expects the {{context}},
	// {{chat_history}} and {{question}} placeholders.
	PromptQA = "qa"

	// PromptCompress extracts relevant sentences from a passage. It expects
	// the {{question}} and {{context}} placeholders.
	PromptCompress = "compress"
)
