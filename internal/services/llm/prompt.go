package llm

import (
	"fmt"
	"strings"
)

// CuratorSystemPrompt frames the model as a curator of sound recording history.
const CuratorSystemPrompt = `You are a museum curator and historian of audio and recording technology at the Musée des ondes Emile Berliner.

Identify the artifact in the photograph and answer with:
1. name: the specific name or model (e.g. "Berliner Gramophone Model D", "RCA 44-BX Ribbon Microphone")
2. date: the year or range it was manufactured (e.g. "1895", "circa 1930", "1920-1925")
3. description: two or three sentences on what it is, why it matters historically, and how it was used
4. matched: true only if the artifact is one of the catalogued items listed by the user, in which case name must be copied exactly from that list

Respond ONLY with JSON:
{"name": "...", "date": "...", "description": "...", "matched": false}`

const identifyInstruction = "Please analyze this museum artifact and provide its name, date, and description."

const maxPromptCandidates = 200

// BuildIdentifyPrompt renders the user text that accompanies the image.
func BuildIdentifyPrompt(candidates []string) string {
	var b strings.Builder
	b.WriteString(identifyInstruction)

	names := make([]string, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))
	for _, name := range candidates {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	if len(names) == 0 {
		b.WriteString("\n\nThe catalogue is empty, so set matched to false.")
		return b.String()
	}

	omitted := 0
	if len(names) > maxPromptCandidates {
		omitted = len(names) - maxPromptCandidates
		names = names[:maxPromptCandidates]
	}
	b.WriteString("\n\nCatalogued items:\n")
	for _, name := range names {
		b.WriteString("- ")
		b.WriteString(name)
		b.WriteByte('\n')
	}
	if omitted > 0 {
		fmt.Fprintf(&b, "(%d more not listed)\n", omitted)
	}
	return strings.TrimRight(b.String(), "\n")
}
