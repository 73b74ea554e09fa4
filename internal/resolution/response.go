package resolution

// Provenance tags where a response's content came from.
type Provenance string

const (
	// ProvenanceRegistry marks curated registry data, including its photos.
	ProvenanceRegistry Provenance = "registry"
	// ProvenanceGuess marks the raw, unverified model output.
	ProvenanceGuess Provenance = "guess"
)

// Response is the payload returned to the visitor.
type Response struct {
	Provenance  Provenance `json:"provenance"`
	ID          string     `json:"id,omitempty"`
	Name        string     `json:"name"`
	Date        string     `json:"date,omitempty"`
	Description string     `json:"description,omitempty"`
	Photos      []string   `json:"photos,omitempty"`
}

// FromRegistry reports whether the response is backed by a registry entry.
func (r Response) FromRegistry() bool {
	return r.Provenance == ProvenanceRegistry
}

func guessResponse(g Guess) Response {
	return Response{
		Provenance:  ProvenanceGuess,
		Name:        g.Name,
		Date:        g.Date,
		Description: g.Description,
	}
}
