package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/Lllllllleong/documentqa/internal/models"
	"github.com/Lllllllleong/documentqa/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDocs map[string]*models.StoredDocument

func (f fakeDocs) Document(_ context.Context, id string) (*models.StoredDocument, error) {
	doc, ok := f[id]
	if !ok {
		return nil, fmt.Errorf("failed to fetch document %s: %w", id, store.ErrNotFound)
	}
	return doc, nil
}

type fakeGenerator struct {
	prompts []string
	reply   string
	err     error
}

func (g *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	return g.reply, g.err
}

type recordedChat struct {
	fileName, question, answer string
}

type fakeRecorder struct {
	entries []recordedChat
	err     error
}

func (r *fakeRecorder) Record(_ context.Context, fileName, question, answer string) (*models.ChatLogEntry, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.entries = append(r.entries, recordedChat{fileName, question, answer})
	return &models.ChatLogEntry{ID: int64(len(r.entries)), FileName: fileName, Question: question, Answer: answer}, nil
}

var testDocs = fakeDocs{
	"doc-1": {ID: "doc-1", Text: "Permit valid until 31 May 2026. Fee: $120.", Filename: "permit.pdf"},
}

func TestAnswerer_Ask(t *testing.T) {
	gen := &fakeGenerator{reply: "  It expires on **31 May 2026**.\n"}
	rec := &fakeRecorder{}
	a := NewAnswerer(testDocs, gen, rec, discardLogger())

	answer, err := a.Ask(context.Background(), "doc-1", " When does the permit expire? ")
	require.NoError(t, err)
	assert.Equal(t, "It expires on **31 May 2026**.", answer)

	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "please answer this question: When does the permit expire?")
	assert.Contains(t, gen.prompts[0], "Permit valid until 31 May 2026. Fee: $120.")

	require.Len(t, rec.entries, 1)
	assert.Equal(t, recordedChat{"permit.pdf", "When does the permit expire?", "It expires on **31 May 2026**."}, rec.entries[0])
}

func TestAnswerer_AskErrors(t *testing.T) {
	t.Run("empty question", func(t *testing.T) {
		gen := &fakeGenerator{}
		a := NewAnswerer(testDocs, gen, nil, discardLogger())
		_, err := a.Ask(context.Background(), "doc-1", "   ")
		assert.ErrorIs(t, err, ErrEmptyQuestion)
		assert.Empty(t, gen.prompts)
	})

	t.Run("unknown document", func(t *testing.T) {
		gen := &fakeGenerator{}
		a := NewAnswerer(testDocs, gen, nil, discardLogger())
		_, err := a.Ask(context.Background(), "missing", "Anything?")
		assert.ErrorIs(t, err, store.ErrNotFound)
		assert.Empty(t, gen.prompts)
	})

	t.Run("model failure is not recorded", func(t *testing.T) {
		gen := &fakeGenerator{err: errors.New("model overloaded")}
		rec := &fakeRecorder{}
		a := NewAnswerer(testDocs, gen, rec, discardLogger())
		_, err := a.Ask(context.Background(), "doc-1", "Fee?")
		require.Error(t, err)
		assert.Empty(t, rec.entries)
	})

	t.Run("chat log failure still answers", func(t *testing.T) {
		gen := &fakeGenerator{reply: "$120"}
		rec := &fakeRecorder{err: errors.New("database is locked")}
		a := NewAnswerer(testDocs, gen, rec, discardLogger())
		answer, err := a.Ask(context.Background(), "doc-1", "Fee?")
		require.NoError(t, err)
		assert.Equal(t, "$120", answer)
	})
}

func TestAnswerer_SuggestQuestions(t *testing.T) {
	gen := &fakeGenerator{reply: "When does the permit expire?\n\nWhat is the fee?\nWho issued the permit?\n"}
	a := NewAnswerer(testDocs, gen, nil, discardLogger())

	questions, err := a.SuggestQuestions(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"When does the permit expire?", "What is the fee?", "Who issued the permit?"}, questions)
	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "generate 3 sample questions")

	_, err = a.SuggestQuestions(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestParseQuestions(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"plain lines", "A?\nB?\nC?", []string{"A?", "B?", "C?"}},
		{"numbered", "1. A?\n2) B?\n3. C?", []string{"A?", "B?", "C?"}},
		{"bullets and blanks", "- A?\n\n  * B?  \n• C?\n", []string{"A?", "B?", "C?"}},
		{"windows line endings", "A?\r\nB?\r\n", []string{"A?", "B?"}},
		{"empty", "  \n\n", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseQuestions(tt.raw))
		})
	}
}
