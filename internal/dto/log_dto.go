package dto

// LogEntryResponse uses a string id: log ids are hashes of the raw line.
type LogEntryResponse struct {
	Id        string                 `json:"id"`
	Timestamp string                 `json:"timestamp"`
	Level     string                 `json:"level"`
	Module    string                 `json:"module,omitempty"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

type LogListResponse struct {
	Page  int                `json:"page"`
	Limit int                `json:"limit"`
	Items []LogEntryResponse `json:"items"`
}
