package gcp

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"
)

// --- Question Answering Prompts ---
const QASystemPrompt = "You answer questions about permit documents using only the document content you are given."

// AskPromptTemplate takes the question and then the document text.
const AskPromptTemplate = `Based on the following permit document content, please answer this question: %s

Document content:
%s

Please provide a clear and concise answer based only on the information present in the document. Use markdown formatting for better readability.`

// SuggestQuestionsPromptTemplate takes the document text.
const SuggestQuestionsPromptTemplate = `Based on the following permit document content, generate 3 sample questions that can be answered from the document. Do not number the questions.

Document content:
%s

Please provide 3 clear and concise questions. Each question should be on a new line.`

// VertexClient holds the pre-configured generative model used for answering.
type VertexClient struct {
	QAModel    *genai.GenerativeModel
	baseClient *genai.Client
}

// NewVertexClient creates a client for the named Gemini model.
func NewVertexClient(ctx context.Context, projectID, region, modelName string) (*VertexClient, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("NewVertexClient: projectID and region cannot be empty")
	}
	if modelName == "" {
		return nil, fmt.Errorf("NewVertexClient: model name cannot be empty")
	}

	baseClient, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	qaModel := baseClient.GenerativeModel(modelName)
	qaModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(QASystemPrompt)},
	}
	qaModel.GenerationConfig = genai.GenerationConfig{
		Temperature: genai.Ptr[float32](0.2),
	}

	return &VertexClient{
		QAModel:    qaModel,
		baseClient: baseClient,
	}, nil
}

// Generate sends prompt to the QA model and returns the text of the first candidate.
func (c *VertexClient) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.QAModel.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini generation failed: %w", err)
	}
	return ResponseText(resp)
}

// ResponseText concatenates the text parts of the first candidate.
func ResponseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("gemini returned no candidates")
	}
	cand := resp.Candidates[0]
	if cand.Content == nil || len(cand.Content.Parts) == 0 {
		return "", fmt.Errorf("gemini returned an empty candidate (finish reason %v)", cand.FinishReason)
	}

	var sb strings.Builder
	for _, part := range cand.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("gemini response contained no text")
	}
	return sb.String(), nil
}

func (c *VertexClient) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}
