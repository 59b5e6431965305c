package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveClassification(t *testing.T) {
	goldBefore := testutil.ToFloat64(CardRequestsClassified.WithLabelValues("gold"))
	rejectedBefore := testutil.ToFloat64(CardRequestsClassified.WithLabelValues(RejectedLabel))

	ObserveClassification("gold")
	ObserveClassification("gold")
	ObserveClassification("")

	assert.Equal(t, goldBefore+2, testutil.ToFloat64(CardRequestsClassified.WithLabelValues("gold")))
	assert.Equal(t, rejectedBefore+1, testutil.ToFloat64(CardRequestsClassified.WithLabelValues(RejectedLabel)))
}
