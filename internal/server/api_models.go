package server

// HealthResponse reports liveness and the evaluators a scan runs.
type HealthResponse struct {
	Status     string   `json:"status" example:"ok"`
	Evaluators []string `json:"evaluators" example:"sender,content,link,attachment,enrichment"`
}

// ErrorResponse is a uniform error payload returned by the API.
type ErrorResponse struct {
	Error string `json:"error" example:"invalid JSON"`
}
