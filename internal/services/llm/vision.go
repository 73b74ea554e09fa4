package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"docent/internal/resolution"
)

const (
	unknownArtifactName = "Unknown Artifact"
	unknownArtifactDate = "Unknown date"
	unanalyzedFallback  = "Unable to analyze this artifact."
)

// IdentifyArtifact asks the vision model what the photographed artifact is.
// candidates are the registry names the model may claim with matched=true.
// Replies that contain no parseable JSON become an "Unknown Artifact" guess
// carrying the raw reply as its description.
func (c *Client) IdentifyArtifact(ctx context.Context, imageURL string, candidates []string) (resolution.Guess, error) {
	imageURL = strings.TrimSpace(imageURL)
	if imageURL == "" {
		return resolution.Guess{}, errors.New("llm identify: image url required")
	}
	if c.cfg.APIKey == "" {
		return resolution.Guess{}, fmt.Errorf("llm identify: %w", errMissingAPIKey)
	}

	payload := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: CuratorSystemPrompt},
			{Role: "user", Content: []contentPart{
				{Type: "text", Text: BuildIdentifyPrompt(candidates)},
				{Type: "image_url", ImageURL: &imageRef{URL: imageURL}},
			}},
		},
	}
	content, err := c.complete(ctx, "llm identify", payload)
	if err != nil {
		return resolution.Guess{}, err
	}
	return ParseGuess(content), nil
}

// ParseGuess decodes a model reply into a guess, falling back to an unknown
// artifact when the reply holds no JSON object.
func ParseGuess(content string) resolution.Guess {
	var guess resolution.Guess
	if err := decodeReply(content, &guess); err != nil {
		return fallbackGuess(content)
	}
	return guess
}

func fallbackGuess(content string) resolution.Guess {
	description := strings.TrimSpace(content)
	if description == "" {
		description = unanalyzedFallback
	}
	return resolution.Guess{
		Name:        unknownArtifactName,
		Date:        unknownArtifactDate,
		Description: description,
	}
}
