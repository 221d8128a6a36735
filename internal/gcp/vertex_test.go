package gcp

import (
	"fmt"
	"strings"
	"testing"

	"cloud.google.com/go/vertexai/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponseText(t *testing.T) {
	tests := []struct {
		name    string
		resp    *genai.GenerateContentResponse
		want    string
		wantErr bool
	}{
		{name: "nil response", resp: nil, wantErr: true},
		{name: "no candidates", resp: &genai.GenerateContentResponse{}, wantErr: true},
		{
			name:    "empty candidate",
			resp:    &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}},
			wantErr: true,
		},
		{
			name: "joins text parts of the first candidate",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
				{Content: &genai.Content{Parts: []genai.Part{genai.Text("The permit "), genai.Text("expires in May.")}}},
				{Content: &genai.Content{Parts: []genai.Part{genai.Text("ignored")}}},
			}},
			want: "The permit expires in May.",
		},
		{
			name: "non-text parts only",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
				{Content: &genai.Content{Parts: []genai.Part{genai.Blob{MIMEType: "image/png", Data: []byte{1}}}}},
			}},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResponseText(tt.resp)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPromptTemplates(t *testing.T) {
	ask := fmt.Sprintf(AskPromptTemplate, "When does it expire?", "Permit valid until 2026.")
	assert.True(t, strings.HasPrefix(ask, "Based on the following permit document content, please answer this question: When does it expire?"))
	assert.Contains(t, ask, "Document content:\nPermit valid until 2026.")

	suggest := fmt.Sprintf(SuggestQuestionsPromptTemplate, "Permit valid until 2026.")
	assert.Contains(t, suggest, "generate 3 sample questions")
	assert.Contains(t, suggest, "Permit valid until 2026.")
}
