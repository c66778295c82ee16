package models

// Record is one indexed chunk inside a collection
type Record struct {
	ID        string            `json:"id"`
	Embedding []float32         `json:"embedding"`
	Document  string            `json:"document"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is a single conversation message kept in session memory
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

type MemorySummary struct {
	TotalMessages int `json:"total_messages"`
	ExchangeCount int `json:"exchanges"`
}

// ResumeItem is one entry of a structured resume section
type ResumeItem struct {
	Title       string `json:"title"`
	Subtitle    string `json:"subtitle,omitempty"`
	Date        string `json:"date,omitempty"`
	Description string `json:"description,omitempty"`
}

// ResumeSections maps a section name (EDUCATION, PROJECTS, ...) to its items
type ResumeSections map[string][]ResumeItem
