package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"cloud.google.com/go/workflows/executions/apiv1/executionspb"
	"github.com/Lllllllleong/documentqa/internal/models"
	"github.com/googleapis/gax-go/v2"
)

// Notifier is told about every successfully stored document.
type Notifier interface {
	Notify(ctx context.Context, result models.IngestResult) error
}

// WorkflowExecutor is the subset of the Workflows Executions client used to
// start an execution.
type WorkflowExecutor interface {
	CreateExecution(ctx context.Context, req *executionspb.CreateExecutionRequest, opts ...gax.CallOption) (*executionspb.Execution, error)
}

type WorkflowNotifierConfig struct {
	ProjectID  string
	Location   string
	WorkflowID string
}

// WorkflowNotifier starts a Cloud Workflows execution with the document id
// and page count as its argument.
type WorkflowNotifier struct {
	client WorkflowExecutor
	config WorkflowNotifierConfig
	logger *slog.Logger
}

func NewWorkflowNotifier(client WorkflowExecutor, config WorkflowNotifierConfig, logger *slog.Logger) (*WorkflowNotifier, error) {
	if client == nil {
		return nil, fmt.Errorf("workflow executions client must not be nil")
	}
	if config.ProjectID == "" || config.Location == "" || config.WorkflowID == "" {
		return nil, fmt.Errorf("project, location and workflow ID must all be set")
	}
	return &WorkflowNotifier{client: client, config: config, logger: logger}, nil
}

func (n *WorkflowNotifier) Notify(ctx context.Context, result models.IngestResult) error {
	payloadBytes, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal workflow payload: %w", err)
	}
	req := &executionspb.CreateExecutionRequest{
		Parent: fmt.Sprintf("projects/%s/locations/%s/workflows/%s", n.config.ProjectID, n.config.Location, n.config.WorkflowID),
		Execution: &executionspb.Execution{
			Argument: string(payloadBytes),
		},
	}
	exec, err := n.client.CreateExecution(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to trigger workflow execution: %w", err)
	}
	n.logger.Info("Workflow execution started.", "documentId", result.DocumentID, "execution", exec.GetName())
	return nil
}
