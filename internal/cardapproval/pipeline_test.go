package cardapproval

import (
	"context"
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"card-approval-workers/internal/common/errors"
	"card-approval-workers/internal/common/logger"
)

const fixtureFile = "card_requests.csv"

type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) RecordRun(ctx context.Context, operation, status string, duration time.Duration) {
	m.Called(operation, status)
}

func newFixturePipeline(t *testing.T) *Pipeline {
	t.Helper()
	p, err := NewPipeline(PipelineOptions{
		Source:   NewFSSource(afero.NewReadOnlyFs(afero.NewOsFs()), "testdata"),
		Criteria: DefaultCriteria(),
		Logger:   logger.NewTestLogger(t),
	})
	require.NoError(t, err)
	return p
}

func newMemPipeline(t *testing.T, files map[string]string) *Pipeline {
	t.Helper()
	fs := afero.NewMemMapFs()
	for name, content := range files {
		require.NoError(t, afero.WriteFile(fs, name, []byte(content), 0644))
	}
	p, err := NewPipeline(PipelineOptions{
		Source:   NewFSSource(fs, ""),
		Criteria: DefaultCriteria(),
		Logger:   logger.NewTestLogger(t),
	})
	require.NoError(t, err)
	return p
}

func TestApprove_Fixture(t *testing.T) {
	approved, err := newFixturePipeline(t).Approve(context.Background(), fixtureFile)
	require.NoError(t, err)

	expected := []ApprovalResult{
		{CardRequest{Name: "John", Salary: 18000, HasEmpCert: true}, "silver"},
		{CardRequest{Name: "Mary", Salary: 17500, HasEmpCert: false}, "silver"},
		{CardRequest{Name: "Peter", Salary: 35000, HasEmpCert: true}, "gold"},
		{CardRequest{Name: "Jane", Salary: 45000, HasEmpCert: true}, "platinum"},
		{CardRequest{Name: "Jim", Salary: 32000, HasEmpCert: true}, "gold"},
		{CardRequest{Name: "Jill", Salary: 22000, HasEmpCert: false}, "silver"},
		{CardRequest{Name: "Jack", Salary: 33000, HasEmpCert: true}, "gold"},
		{CardRequest{Name: "Jill", Salary: 40000, HasEmpCert: false}, "silver"},
		{CardRequest{Name: "Jim", Salary: 32000, HasEmpCert: true}, "gold"},
		{CardRequest{Name: "Sam", Salary: 60000, HasEmpCert: true}, "diamond"},
	}
	assert.Equal(t, expected, approved)
}

func TestReject_Fixture(t *testing.T) {
	rejected, err := newFixturePipeline(t).Reject(context.Background(), fixtureFile)
	require.NoError(t, err)

	assert.Equal(t, []CardRequest{{Name: "Jill", Salary: 9000, HasEmpCert: true}}, rejected)
}

func TestApproveAndReject_CountsAddUp(t *testing.T) {
	p := newFixturePipeline(t)
	ctx := context.Background()

	requests, err := p.Load(ctx, fixtureFile)
	require.NoError(t, err)
	approved, err := p.Approve(ctx, fixtureFile)
	require.NoError(t, err)
	rejected, err := p.Reject(ctx, fixtureFile)
	require.NoError(t, err)

	assert.Len(t, requests, 11)
	assert.Equal(t, len(requests), len(approved)+len(rejected))

	a, r := Partition(NewClassifier(DefaultCriteria()).ClassifyAll(requests))
	assert.Equal(t, len(requests), len(a)+len(r))
	for _, result := range a {
		assert.True(t, result.Approved())
	}
	for _, result := range r {
		assert.False(t, result.Approved())
	}
}

func TestApprove_Idempotent(t *testing.T) {
	p := newFixturePipeline(t)

	first, err := p.Approve(context.Background(), fixtureFile)
	require.NoError(t, err)
	second, err := p.Approve(context.Background(), fixtureFile)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	r1, err := p.Reject(context.Background(), fixtureFile)
	require.NoError(t, err)
	r2, err := p.Reject(context.Background(), fixtureFile)
	require.NoError(t, err)
	assert.Equal(t, r1, r2)
}

func TestPipeline_CorruptedFile(t *testing.T) {
	p := newFixturePipeline(t)

	approved, err := p.Approve(context.Background(), "corrupted_requests.csv")
	require.Error(t, err)
	assert.Nil(t, approved)
	assert.True(t, errors.Is(err, errors.ErrCodeMalformedLine))

	rejected, err := p.Reject(context.Background(), "corrupted_requests.csv")
	require.Error(t, err)
	assert.Nil(t, rejected)
	assert.True(t, errors.Is(err, errors.ErrCodeMalformedLine))
}

func TestPipeline_NoApprovals(t *testing.T) {
	p := newFixturePipeline(t)

	_, err := p.Approve(context.Background(), "no_approvals.csv")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeNoApprovals))
	assert.Equal(t, "Error: Found unknown reject", err.Error())

	// Reject shares the classification step and fails the same way.
	rejected, err := p.Reject(context.Background(), "no_approvals.csv")
	require.Error(t, err)
	assert.Nil(t, rejected)
	assert.True(t, errors.Is(err, errors.ErrCodeNoApprovals))
}

func TestPipeline_LenientSalaryFlowsToReject(t *testing.T) {
	p := newMemPipeline(t, map[string]string{
		"/in.csv": "John,18000,true\nGhost,unknown,true\n",
	})

	rejected, err := p.Reject(context.Background(), "/in.csv")
	require.NoError(t, err)
	require.Len(t, rejected, 1)
	assert.Equal(t, "Ghost", rejected[0].Name)
	assert.True(t, math.IsNaN(rejected[0].Salary))
}

func TestReject_NothingRejectedIsEmptySuccess(t *testing.T) {
	p := newMemPipeline(t, map[string]string{
		"/all.csv": "John,18000,true\nSam,60000,true\n",
	})

	rejected, err := p.Reject(context.Background(), "/all.csv")
	require.NoError(t, err)
	assert.NotNil(t, rejected)
	assert.Empty(t, rejected)
}

func TestPipeline_MissingFile(t *testing.T) {
	p := newFixturePipeline(t)

	for _, run := range []func(context.Context, string) error{
		func(ctx context.Context, path string) error { _, err := p.Approve(ctx, path); return err },
		func(ctx context.Context, path string) error { _, err := p.Reject(ctx, path); return err },
		func(ctx context.Context, path string) error { _, err := p.Load(ctx, path); return err },
	} {
		err := run(context.Background(), "does-not-exist.csv")
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrCodeFileNotFound))
		assert.Contains(t, err.Error(), "does-not-exist.csv")
	}
}

func TestPipeline_EmptyFile(t *testing.T) {
	p := newMemPipeline(t, map[string]string{"/empty.csv": "name,salary,has_emp_cer\n\n"})

	_, err := p.Approve(context.Background(), "/empty.csv")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeEmptyFile))
}

func TestPipeline_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newFixturePipeline(t).Approve(ctx, fixtureFile)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPipeline_RecordsRuns(t *testing.T) {
	recorder := new(MockRecorder)
	recorder.On("RecordRun", OperationApprove, "success").Once()
	recorder.On("RecordRun", OperationReject, "NO_APPROVALS").Once()
	recorder.On("RecordRun", OperationLoad, "FILE_NOT_FOUND").Once()

	p, err := NewPipeline(PipelineOptions{
		Source:   NewFSSource(afero.NewReadOnlyFs(afero.NewOsFs()), "testdata"),
		Criteria: DefaultCriteria(),
		Recorder: recorder,
	})
	require.NoError(t, err)

	ctx := WithRunID(context.Background(), "run-1")
	_, _ = p.Approve(ctx, fixtureFile)
	_, _ = p.Reject(ctx, "no_approvals.csv")
	_, _ = p.Load(ctx, "missing.csv")

	recorder.AssertExpectations(t)
}

func TestNewPipeline_RequiresCollaborators(t *testing.T) {
	_, err := NewPipeline(PipelineOptions{Criteria: DefaultCriteria()})
	assert.Error(t, err)

	_, err = NewPipeline(PipelineOptions{Source: NewFSSource(afero.NewMemMapFs(), "")})
	assert.Error(t, err)
}

func TestRunID(t *testing.T) {
	_, ok := RunIDFrom(context.Background())
	assert.False(t, ok)

	runID, ok := RunIDFrom(WithRunID(context.Background(), "abc"))
	assert.True(t, ok)
	assert.Equal(t, "abc", runID)

	assert.NotEqual(t, NewRunID(), NewRunID())
}

func TestApprovalResult_JSON(t *testing.T) {
	data, err := json.Marshal(ApprovalResult{
		CardRequest: CardRequest{Name: "Sam", Salary: 60000, HasEmpCert: true},
		CardType:    "diamond",
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Sam","salary":60000,"hasEmpCert":true,"cardType":"diamond"}`, string(data))

	data, err = json.Marshal(ApprovalResult{CardRequest: CardRequest{Name: "Jill", Salary: 9000, HasEmpCert: true}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Jill","salary":9000,"hasEmpCert":true}`, string(data))

	data, err = json.Marshal(CardRequest{Name: "Ghost", Salary: math.NaN()})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Ghost","salary":null,"hasEmpCert":false}`, string(data))
}
