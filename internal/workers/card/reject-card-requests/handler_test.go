package rejectcardrequests

import (
	"context"
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"card-approval-workers/internal/cardapproval"
	"card-approval-workers/internal/common/camunda/camundatest"
	"card-approval-workers/internal/common/config"
	"card-approval-workers/internal/common/errors"
	"card-approval-workers/internal/common/logger"
	"card-approval-workers/internal/common/validation"
	"card-approval-workers/pkg/registry"
)

type MockRejecter struct {
	mock.Mock
}

func (m *MockRejecter) Reject(ctx context.Context, path string) ([]cardapproval.CardRequest, error) {
	args := m.Called(ctx, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]cardapproval.CardRequest), args.Error(1)
}

func createMockJob(key int64, variables map[string]interface{}) entities.Job {
	variablesJSON, _ := json.Marshal(variables)

	return entities.Job{ActivatedJob: &pb.ActivatedJob{
		Key:                key,
		Type:               TaskType,
		ProcessInstanceKey: key * 10,
		BpmnProcessId:      "card-request-review",
		ElementId:          "Activity_RejectCardRequests",
		CustomHeaders:      "{}",
		Retries:            3,
		Variables:          string(variablesJSON),
	}}
}

func newTestHandler(t *testing.T, rejecter Rejecter) *Handler {
	t.Helper()
	handler, err := NewHandler(HandlerOptions{
		CustomConfig: &Config{Enabled: true, MaxJobsActive: 5, Timeout: 30 * time.Second},
		Rejecter:     rejecter,
		Logger:       logger.NewTestLogger(t),
	})
	require.NoError(t, err)
	return handler
}

func TestHandler_NewHandler(t *testing.T) {
	_, err := NewHandler(HandlerOptions{CustomConfig: DefaultConfig()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rejecter is required")

	_, err = NewHandler(HandlerOptions{
		CustomConfig: &Config{MaxJobsActive: -1, Timeout: time.Second},
		Rejecter:     new(MockRejecter),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_jobs_active")

	handler, err := NewHandler(HandlerOptions{
		AppConfig: &config.Config{Workers: map[string]config.WorkerConfig{
			ConfigKey: {Enabled: false, MaxJobsActive: 2, Timeout: 5000, MaxRetries: 1},
		}},
		Rejecter: new(MockRejecter),
	})
	require.NoError(t, err)
	assert.Equal(t, Config{Enabled: false, MaxJobsActive: 2, Timeout: 5 * time.Second, MaxRetries: 1}, handler.Config())
}

func TestHandler_ParseInput(t *testing.T) {
	handler := newTestHandler(t, new(MockRejecter))

	input, err := handler.parseInput(createMockJob(1, map[string]interface{}{"filePath": "card_requests.csv"}))
	require.NoError(t, err)
	assert.Equal(t, "card_requests.csv", input.FilePath)

	_, err = handler.parseInput(createMockJob(2, map[string]interface{}{"path": "card_requests.csv"}))
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeValidationFailed, errors.CodeOf(err))
	assert.Contains(t, err.Error(), "filePath")
}

func TestHandler_Execute_Success(t *testing.T) {
	rejecter := new(MockRejecter)
	rejecter.On("Reject", mock.Anything, "card_requests.csv").Return(
		[]cardapproval.CardRequest{{Name: "Jill", Salary: 9000, HasEmpCert: true}}, nil,
	)

	output, err := newTestHandler(t, rejecter).Execute(context.Background(), &Input{FilePath: "card_requests.csv"})
	require.NoError(t, err)

	assert.NotEmpty(t, output.RunID)
	assert.Equal(t, 1, output.RejectedCount)
	assert.Equal(t, "Jill", output.RejectedRequests[0].Name)

	result, err := validation.ValidateDocument(output.ToVariables(), GetOutputSchema())
	require.NoError(t, err)
	assert.True(t, result.Valid, "%v", result.GetErrorMessages())

	data, err := json.Marshal(output.ToVariables())
	require.NoError(t, err)
	assert.NotContains(t, string(data), "cardType")
}

func TestHandler_Execute_EmptyRejectionList(t *testing.T) {
	rejecter := new(MockRejecter)
	rejecter.On("Reject", mock.Anything, "all_approved.csv").Return(nil, nil)

	output, err := newTestHandler(t, rejecter).Execute(context.Background(), &Input{FilePath: "all_approved.csv"})
	require.NoError(t, err)
	assert.Equal(t, 0, output.RejectedCount)
	assert.NotNil(t, output.RejectedRequests)

	data, err := json.Marshal(output.ToVariables())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"rejectedRequests":[]`)
}

func TestHandler_Execute_NoApprovalsPropagates(t *testing.T) {
	rejecter := new(MockRejecter)
	rejecter.On("Reject", mock.Anything, "no_approvals.csv").Return(nil, errors.NewNoApprovalsError())

	output, err := newTestHandler(t, rejecter).Execute(context.Background(), &Input{FilePath: "no_approvals.csv"})
	require.Error(t, err)
	assert.Nil(t, output)
	assert.Equal(t, errors.ErrCodeNoApprovals, errors.CodeOf(err))
	assert.Equal(t, "Error: Found unknown reject", err.Error())
}

func TestHandler_Execute_NaNSalaryIsSerializable(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/in.csv", []byte("John,18000,true\nGhost,n/a,true\n"), 0644))

	pipeline, err := cardapproval.NewPipeline(cardapproval.PipelineOptions{
		Source:   cardapproval.NewFSSource(fs, ""),
		Criteria: cardapproval.DefaultCriteria(),
	})
	require.NoError(t, err)

	output, err := newTestHandler(t, pipeline).Execute(context.Background(), &Input{FilePath: "/in.csv"})
	require.NoError(t, err)
	require.Equal(t, 1, output.RejectedCount)
	assert.True(t, math.IsNaN(output.RejectedRequests[0].Salary))

	data, err := json.Marshal(output.ToVariables())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"salary":null`)
}

func TestHandler_Handle_CompletesJobWithNullSalary(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/in.csv", []byte("John,18000,true\nGhost,n/a,true\n"), 0644))

	pipeline, err := cardapproval.NewPipeline(cardapproval.PipelineOptions{
		Source:   cardapproval.NewFSSource(fs, ""),
		Criteria: cardapproval.DefaultCriteria(),
	})
	require.NoError(t, err)

	client := camundatest.NewJobClient()
	newTestHandler(t, pipeline).Handle(client, createMockJob(11, map[string]interface{}{"filePath": "/in.csv"}))

	assert.Empty(t, client.Thrown())
	require.Len(t, client.Completed(), 1)

	variables := client.Completed()[0].GetVariables()
	assert.Contains(t, variables, `"salary":null`)

	var vars map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(variables), &vars))
	assert.Equal(t, float64(1), vars["rejectedCount"])
}

func TestHandler_Handle_ThrowsNoApprovals(t *testing.T) {
	rejecter := new(MockRejecter)
	rejecter.On("Reject", mock.Anything, "in.csv").Return(nil, errors.NewNoApprovalsError())

	client := camundatest.NewJobClient()
	newTestHandler(t, rejecter).Handle(client, createMockJob(12, map[string]interface{}{"filePath": "in.csv"}))

	assert.Empty(t, client.Completed())
	require.Len(t, client.Thrown(), 1)
	thrown := client.Thrown()[0]
	assert.Equal(t, int64(12), thrown.GetJobKey())
	assert.Equal(t, string(errors.ErrCodeNoApprovals), thrown.GetErrorCode())
}

func TestHandler_ParseInput_RegistrySchema(t *testing.T) {
	reg, err := registry.LoadRegistry("../../../../configs/activity-registry.json")
	require.NoError(t, err)
	activity, ok := reg.FindByTaskType(TaskType)
	require.True(t, ok)

	handler, err := NewHandler(HandlerOptions{
		CustomConfig: DefaultConfig(),
		Rejecter:     new(MockRejecter),
		Logger:       logger.NewTestLogger(t),
		Activity:     activity,
	})
	require.NoError(t, err)

	input, err := handler.parseInput(createMockJob(1, map[string]interface{}{"filePath": "card_requests.csv", "extra": 1}))
	require.NoError(t, err)
	assert.Equal(t, "card_requests.csv", input.FilePath)
}
