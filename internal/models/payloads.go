package models

// These structs define the JSON payloads exchanged with the HTTP route layer
// and the bucket-triggered ingestion entry point.

// UploadResponse is returned by POST /upload.
type UploadResponse struct {
	Success    bool   `json:"success"`
	DocumentID string `json:"documentId"`
	Filename   string `json:"filename"`
	PageCount  int    `json:"pageCount"`
}

// AskRequest is the input for POST /ask.
type AskRequest struct {
	DocumentID string `json:"documentId"`
	Question   string `json:"question"`
}

// AskResponse is the output of POST /ask.
type AskResponse struct {
	Answer string `json:"answer"`
}

// SuggestQuestionsRequest is the input for POST /suggest_questions.
type SuggestQuestionsRequest struct {
	DocumentID string `json:"documentId"`
}

// SuggestQuestionsResponse is the output of POST /suggest_questions.
type SuggestQuestionsResponse struct {
	Questions []string `json:"questions"`
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// GCSEvent is the payload of a Cloud Storage object-finalized event.
type GCSEvent struct {
	Bucket      string `json:"bucket"`
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
}
