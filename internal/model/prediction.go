package model

// PredictionRequest is the inbound question. Query usually carries the question text
// followed by numbered answer options, one per line.
type PredictionRequest struct {
	ID    *int   `json:"id" validate:"required"`
	Query string `json:"query" validate:"required,notblank"`
}

// PredictionResponse is the composed answer returned to the caller.
// Answer is nil when the language model did not pick a recognizable option.
type PredictionResponse struct {
	ID        int      `json:"id"`
	Answer    *int     `json:"answer"`
	Reasoning string   `json:"reasoning"`
	Sources   []string `json:"sources"`
}
