package brain

import "strings"

const defaultPersonaID = "default"

// personaPrompts maps a persona id to the system prompt that shapes replies.
// Prompts ask for short spoken-style answers since everything generated here
// is synthesized to audio.
var personaPrompts = map[string]string{
	defaultPersonaID: "You are a friendly voice assistant. Keep replies short, " +
		"conversational, and easy to listen to. Avoid lists, markdown, and " +
		"anything that reads badly aloud. Use the available tools when a " +
		"question needs live information.",
	"concise": "You are a terse voice assistant. Answer in one or two short " +
		"sentences. Never pad an answer.",
	"storyteller": "You are a warm storyteller. Answer questions with vivid " +
		"but brief spoken prose, a few sentences at most.",
	"pirate": "You are a good-natured pirate captain. Answer accurately but " +
		"in pirate speech, and keep it short enough to say out loud.",
}

// PersonaPrompt resolves a persona id to its system prompt. Unknown or empty
// ids fall back to the default persona.
func PersonaPrompt(id string) string {
	if p, ok := personaPrompts[strings.ToLower(strings.TrimSpace(id))]; ok {
		return p
	}
	return personaPrompts[defaultPersonaID]
}

// KnownPersonas lists the persona ids that resolve to a dedicated prompt.
func KnownPersonas() []string {
	out := make([]string, 0, len(personaPrompts))
	for id := range personaPrompts {
		out = append(out, id)
	}
	return out
}
