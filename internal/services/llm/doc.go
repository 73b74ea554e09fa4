// Package llm is docent's vision collaborator: a client for an
// OpenAI-compatible chat completions endpoint (OpenRouter by default).
//
// Client.IdentifyArtifact sends a curator system prompt plus a multimodal user
// message (instruction text, the catalogued registry names, and the image URL)
// and decodes the model's {"name","date","description","matched"} reply into a
// resolution.Guess. Replies without a JSON object become an "Unknown Artifact"
// guess so a visitor always gets an answer. Client.HealthCheck backs
// `docent status`.
//
// Requests are retried on 408, 429, 5xx, empty replies, and network timeouts
// with doubling delays (1s up to 10s, five attempts by default), honouring
// Retry-After. A 402 is final. Status failures unwrap to the services
// markers, so callers test errors.Is(err, ErrRateLimited) or
// errors.Is(err, ErrCreditsExhausted).
package llm
