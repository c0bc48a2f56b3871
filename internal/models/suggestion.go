package models

// SuggestionCategory groups suggestions by concern
type SuggestionCategory string

const (
	CategorySecurity      SuggestionCategory = "security"
	CategoryPerformance   SuggestionCategory = "performance"
	CategoryUX            SuggestionCategory = "ux"
	CategoryDataIntegrity SuggestionCategory = "data-integrity"
	CategoryBestPractice  SuggestionCategory = "best-practice"
)

// SuggestionPriority ranks a suggestion
type SuggestionPriority string

const (
	PriorityHigh   SuggestionPriority = "high"
	PriorityMedium SuggestionPriority = "medium"
	PriorityLow    SuggestionPriority = "low"
)

// Suggestion is an advisory improvement. It is applied only by resubmitting
// CommandText through the command pipeline.
type Suggestion struct {
	ID             string             `json:"id"`
	Category       SuggestionCategory `json:"category"`
	Priority       SuggestionPriority `json:"priority"`
	Title          LocalizedText      `json:"title"`
	Description    LocalizedText      `json:"description"`
	CommandText    string             `json:"commandText"`
	AutoApplicable bool               `json:"autoApplicable"`
}
