package config

// NewGeminiForTest creates a Gemini config for testing purposes
func NewGeminiForTest(projectID, location string) *Gemini {
	return &Gemini{
		projectID: projectID,
		location:  location,
	}
}

// NewRepositoryForTest creates a Repository config for testing purposes
func NewRepositoryForTest(backend, projectID, databaseID string) *Repository {
	return &Repository{
		backend:    backend,
		projectID:  projectID,
		databaseID: databaseID,
	}
}

// NewPersonaForTest creates a Persona config for testing purposes
func NewPersonaForTest(path string) *Persona {
	return &Persona{path: path}
}

// NewStrategyForTest creates a Strategy config for testing purposes
func NewStrategyForTest(observerMode, actorMode string) *Strategy {
	return &Strategy{
		observerMode: observerMode,
		actorMode:    actorMode,
	}
}
