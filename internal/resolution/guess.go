package resolution

import (
	"encoding/json"
	"strings"
)

// Guess is the vision model's unverified identification.
type Guess struct {
	Name        string `json:"name"`
	Date        string `json:"date,omitempty"`
	Description string `json:"description,omitempty"`
	Matched     bool   `json:"matched"`
}

// UnmarshalJSON decodes a guess leniently. Fields with the wrong type decode
// as empty, and Matched is only true for the JSON literal true.
func (g *Guess) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*g = Guess{
		Name:        rawString(raw["name"]),
		Date:        rawString(raw["date"]),
		Description: rawString(raw["description"]),
		Matched:     rawTrue(raw["matched"]),
	}
	return nil
}

func rawString(value json.RawMessage) string {
	if len(value) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(value, &s); err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

func rawTrue(value json.RawMessage) bool {
	return strings.TrimSpace(string(value)) == "true"
}
