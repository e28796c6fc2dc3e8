package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraphInvocationCtxBuilder(t *testing.T) {
	ictx, err := NewGraphInvocationCtx().
		Namespace("ns1").
		ComputeGraphName("g1").
		InvocationID("inv1").
		Build()
	require.NoError(t, err)

	assert.Equal(t, "ns1_g1_inv1", ictx.Key())
	assert.NotNil(t, ictx.FnTaskAnalytics)
	assert.Empty(t, ictx.FnTaskAnalytics)
}

func TestGraphInvocationCtxBuilderMissingFields(t *testing.T) {
	testCases := []struct {
		name    string
		builder *GraphInvocationCtxBuilder
		field   string
	}{
		{
			name:    "missing namespace",
			builder: NewGraphInvocationCtx().ComputeGraphName("g1").InvocationID("inv1"),
			field:   "namespace",
		},
		{
			name:    "missing compute_graph_name",
			builder: NewGraphInvocationCtx().Namespace("ns1").InvocationID("inv1"),
			field:   "compute_graph_name",
		},
		{
			name:    "missing invocation_id",
			builder: NewGraphInvocationCtx().Namespace("ns1").ComputeGraphName("g1"),
			field:   "invocation_id",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.builder.Build()
			require.Error(t, err)
			var missing *MissingFieldError
			require.ErrorAs(t, err, &missing)
			assert.Equal(t, tc.field, missing.Field)
		})
	}
}

func TestTaskAnalytics(t *testing.T) {
	var a TaskAnalytics

	a.Pending()
	a.Pending()
	a.Pending()
	assert.Equal(t, TaskAnalytics{PendingTasks: 3}, a)

	a.Success()
	assert.Equal(t, TaskAnalytics{PendingTasks: 2, SuccessfulTasks: 1}, a)

	a.Fail()
	assert.Equal(t, TaskAnalytics{PendingTasks: 1, SuccessfulTasks: 1, FailedTasks: 1}, a)
}

func TestTaskAnalyticsUnderflowGuard(t *testing.T) {
	// State written by older schema versions never recorded pending counts;
	// finishing tasks against such state must not underflow.
	var a TaskAnalytics

	a.Success()
	a.Fail()
	a.Success()

	assert.Equal(t, uint64(0), a.PendingTasks)
	assert.Equal(t, uint64(2), a.SuccessfulTasks)
	assert.Equal(t, uint64(1), a.FailedTasks)
}
