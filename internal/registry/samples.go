package registry

// SampleEntries returns the demo artifacts shown when no registry has been
// loaded yet.
func SampleEntries() []Entry {
	return []Entry{
		{
			ID:          "sample-1",
			Name:        "Berliner Gramophone",
			Date:        "1895",
			Description: "The original gramophone invented by Emile Berliner in 1887. This revolutionary device used flat disc records instead of cylinders, fundamentally changing the recording industry.",
			Photos:      []string{},
		},
		{
			ID:          "sample-2",
			Name:        "Victor Talking Machine",
			Date:        "1906",
			Description: "An early Victor Talking Machine featuring the famous 'His Master's Voice' trademark with Nipper the dog. One of the most popular phonographs of its time.",
			Photos:      []string{},
		},
		{
			ID:          "sample-3",
			Name:        "RCA Ribbon Microphone",
			Date:        "1931",
			Description: "A classic RCA 44-BX ribbon microphone, considered one of the finest broadcast microphones ever made. Its distinctive art deco design made it a staple in recording studios.",
			Photos:      []string{},
		},
	}
}
