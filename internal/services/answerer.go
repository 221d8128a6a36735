package services

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/Lllllllleong/documentqa/internal/gcp"
	"github.com/Lllllllleong/documentqa/internal/models"
)

// TextGenerator sends a prompt to a language model.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// DocumentSource looks up stored documents by id.
type DocumentSource interface {
	Document(ctx context.Context, id string) (*models.StoredDocument, error)
}

// ChatRecorder keeps a history of answered questions.
type ChatRecorder interface {
	Record(ctx context.Context, fileName, question, answer string) (*models.ChatLogEntry, error)
}

// Answerer answers questions about stored documents with a language model.
type Answerer struct {
	docs      DocumentSource
	generator TextGenerator
	chatLog   ChatRecorder
	logger    *slog.Logger
}

// NewAnswerer creates an Answerer. chatLog may be nil.
func NewAnswerer(docs DocumentSource, generator TextGenerator, chatLog ChatRecorder, logger *slog.Logger) *Answerer {
	return &Answerer{docs: docs, generator: generator, chatLog: chatLog, logger: logger}
}

// Ask answers question from the text of the stored document documentID.
func (a *Answerer) Ask(ctx context.Context, documentID, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", ErrEmptyQuestion
	}
	logCtx := a.logger.With("documentId", documentID)

	doc, err := a.docs.Document(ctx, documentID)
	if err != nil {
		return "", err
	}

	answer, err := a.generator.Generate(ctx, fmt.Sprintf(gcp.AskPromptTemplate, question, doc.Text))
	if err != nil {
		logCtx.Error("Failed to generate answer.", "error", err)
		return "", err
	}
	answer = strings.TrimSpace(answer)
	logCtx.Info("Question answered.", "questionLength", len(question), "answerLength", len(answer))

	if a.chatLog != nil {
		if _, err := a.chatLog.Record(ctx, doc.Filename, question, answer); err != nil {
			logCtx.Error("Failed to record chat log.", "error", err)
		}
	}
	return answer, nil
}

var listMarker = regexp.MustCompile(`^(?:[-*•]\s+|\d+[.)]\s+)`)

// SuggestQuestions asks the model for sample questions the document can answer.
func (a *Answerer) SuggestQuestions(ctx context.Context, documentID string) ([]string, error) {
	logCtx := a.logger.With("documentId", documentID)

	doc, err := a.docs.Document(ctx, documentID)
	if err != nil {
		return nil, err
	}

	raw, err := a.generator.Generate(ctx, fmt.Sprintf(gcp.SuggestQuestionsPromptTemplate, doc.Text))
	if err != nil {
		logCtx.Error("Failed to generate questions.", "error", err)
		return nil, err
	}

	questions := ParseQuestions(raw)
	logCtx.Info("Questions suggested.", "count", len(questions))
	return questions, nil
}

// ParseQuestions splits a model response into one question per non-blank
// line, dropping any list numbering or bullets the model added anyway.
func ParseQuestions(raw string) []string {
	questions := []string{}
	for _, line := range strings.Split(raw, "\n") {
		q := strings.TrimSpace(line)
		q = strings.TrimSpace(listMarker.ReplaceAllString(q, ""))
		if q != "" {
			questions = append(questions, q)
		}
	}
	return questions
}
