package services

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/workflows/executions/apiv1/executionspb"
	"github.com/Lllllllleong/documentqa/internal/models"
	"github.com/googleapis/gax-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExecutor struct {
	reqs []*executionspb.CreateExecutionRequest
	err  error
}

func (f *fakeExecutor) CreateExecution(_ context.Context, req *executionspb.CreateExecutionRequest, _ ...gax.CallOption) (*executionspb.Execution, error) {
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return nil, f.err
	}
	return &executionspb.Execution{Name: req.GetParent() + "/executions/1"}, nil
}

var testWorkflowConfig = WorkflowNotifierConfig{ProjectID: "proj", Location: "us-central1", WorkflowID: "post-ingest"}

func TestWorkflowNotifier_Notify(t *testing.T) {
	exec := &fakeExecutor{}
	n, err := NewWorkflowNotifier(exec, testWorkflowConfig, discardLogger())
	require.NoError(t, err)

	require.NoError(t, n.Notify(context.Background(), models.IngestResult{DocumentID: "abc", PageCount: 7}))
	require.Len(t, exec.reqs, 1)
	assert.Equal(t, "projects/proj/locations/us-central1/workflows/post-ingest", exec.reqs[0].GetParent())
	assert.JSONEq(t, `{"documentId":"abc","pageCount":7}`, exec.reqs[0].GetExecution().GetArgument())
}

func TestWorkflowNotifier_Error(t *testing.T) {
	exec := &fakeExecutor{err: errors.New("permission denied")}
	n, err := NewWorkflowNotifier(exec, testWorkflowConfig, discardLogger())
	require.NoError(t, err)

	err = n.Notify(context.Background(), models.IngestResult{DocumentID: "abc", PageCount: 1})
	require.Error(t, err)
}

func TestNewWorkflowNotifier_Validation(t *testing.T) {
	_, err := NewWorkflowNotifier(nil, testWorkflowConfig, discardLogger())
	require.Error(t, err)

	_, err = NewWorkflowNotifier(&fakeExecutor{}, WorkflowNotifierConfig{ProjectID: "p"}, discardLogger())
	require.Error(t, err)
}
