package registry

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRegistry_ShippedFile(t *testing.T) {
	reg, err := LoadRegistry("../../configs/activity-registry.json")
	require.NoError(t, err)
	require.NoError(t, reg.Validate())

	for _, taskType := range []string{"card.requests.approve", "card.requests.reject"} {
		activity, ok := reg.FindByTaskType(taskType)
		require.True(t, ok, taskType)
		assert.True(t, activity.Runnable())
		assert.Contains(t, activity.ErrorCodes, "NO_APPROVALS")
	}
}

func TestActivity_ValidateInput(t *testing.T) {
	reg, err := LoadRegistry("../../configs/activity-registry.json")
	require.NoError(t, err)
	activity, ok := reg.FindByTaskType("card.requests.approve")
	require.True(t, ok)

	result, err := activity.ValidateInput(map[string]interface{}{"filePath": "card_requests.csv"})
	require.NoError(t, err)
	assert.True(t, result.Valid)

	result, err = activity.ValidateInput(map[string]interface{}{})
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.True(t, result.HasErrors("filePath"))
}

func TestAddUpdateSave_RoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := "configs/activity-registry.json"

	reg, err := LoadOrCreate(fs, path)
	require.NoError(t, err)
	assert.Empty(t, reg.Activities)

	require.NoError(t, reg.Add(Activity{
		ID:                   "approve-card-requests",
		DisplayName:          "Approve Card Requests",
		Category:             "card",
		TaskType:             "card.requests.approve",
		ImplementationStatus: StatusPlanned,
	}))
	assert.Error(t, reg.Add(Activity{ID: "approve-card-requests"}))

	require.NoError(t, reg.Update("approve-card-requests", "status", StatusCompleted))
	require.NoError(t, reg.Update("approve-card-requests", "retries", "2"))
	assert.Error(t, reg.Update("approve-card-requests", "retries", "two"))
	assert.Error(t, reg.Update("approve-card-requests", "timeout", "soon"))
	assert.Error(t, reg.Update("approve-card-requests", "colour", "blue"))
	assert.Error(t, reg.Update("missing", "status", StatusCompleted))

	require.NoError(t, Save(fs, reg, path))

	loaded, err := LoadRegistryFS(fs, path)
	require.NoError(t, err)
	activity, ok := loaded.FindByID("approve-card-requests")
	require.True(t, ok)
	assert.Equal(t, StatusCompleted, activity.ImplementationStatus)
	assert.Equal(t, 2, activity.Retries)
	assert.True(t, activity.Runnable())
}

func TestValidate_Failures(t *testing.T) {
	valid := Activity{ID: "a", DisplayName: "A", Category: "card", TaskType: "card.requests.approve"}

	tests := []struct {
		name       string
		activities []Activity
		want       string
	}{
		{"empty", nil, "no activities"},
		{"missing id", []Activity{{DisplayName: "A"}}, "ID"},
		{"duplicate", []Activity{valid, valid}, "duplicate"},
		{"missing display name", []Activity{{ID: "a", Category: "card", TaskType: "card.requests.approve"}}, "DisplayName"},
		{"bad naming", []Activity{{ID: "a", DisplayName: "A", Category: "card", TaskType: "approve-card-requests"}}, "domain.subdomain.action"},
		{
			"bad schema",
			[]Activity{{ID: "a", DisplayName: "A", Category: "card", TaskType: "card.requests.approve",
				InputSchema: map[string]interface{}{"type": 12}}},
			"inputSchema",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := &ActivityRegistry{Activities: tt.activities}
			err := reg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadRegistryFS_BadJSON(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "r.json", []byte("{"), 0644))

	_, err := LoadRegistryFS(fs, "r.json")
	assert.Error(t, err)

	_, err = LoadOrCreate(fs, "r.json")
	assert.Error(t, err)
}
