package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockCloudWatch struct{ mock.Mock }

func (m *mockCloudWatch) PutMetricData(ctx context.Context, in *cloudwatch.PutMetricDataInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*cloudwatch.PutMetricDataOutput)
	return out, args.Error(1)
}

func TestMetrics_PublishesWithSortedDimensions(t *testing.T) {
	ctx := context.Background()
	cw := new(mockCloudWatch)
	cw.On("PutMetricData", ctx, mock.MatchedBy(func(in *cloudwatch.PutMetricDataInput) bool {
		d := in.MetricData[0]
		return aws.ToString(in.Namespace) == "Handswers" &&
			aws.ToString(d.MetricName) == "CascadeDeletedItems" &&
			aws.ToString(d.Dimensions[0].Name) == "A" &&
			aws.ToFloat64(d.Value) == 180
	})).Return(&cloudwatch.PutMetricDataOutput{}, nil)

	NewMetrics("Handswers", cw, zap.NewNop()).
		RecordBusinessMetric(ctx, "CascadeDeletedItems", 180, map[string]string{"B": "2", "A": "1"})

	cw.AssertExpectations(t)
}

func TestMetrics_FailuresAreSwallowed(t *testing.T) {
	cw := new(mockCloudWatch)
	cw.On("PutMetricData", mock.Anything, mock.Anything).Return(nil, errors.New("throttled"))

	assert.NotPanics(t, func() {
		NewMetrics("Handswers", cw, zap.NewNop()).RecordLatency(context.Background(), "TutorReply", time.Second)
	})
}

func TestMetrics_NilClientIsNoop(t *testing.T) {
	assert.NotPanics(t, func() {
		NewMetrics("Handswers", nil, zap.NewNop()).RecordBusinessMetric(context.Background(), "x", 1, nil)
	})
}

func TestCollector_ServesBusinessCounters(t *testing.T) {
	c := NewCollector("handswers")
	Multi{c, NewMetrics("x", nil, zap.NewNop())}.RecordBusinessMetric(context.Background(), "RoomsCreated", 1, nil)
	c.RecordLatency(context.Background(), "TutorReply", 200*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.business.WithLabelValues("RoomsCreated")))

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "handswers_business_events_total"))
	assert.True(t, strings.Contains(rec.Body.String(), "handswers_operation_duration_seconds"))
}

func TestTracer_DisabledPassesThrough(t *testing.T) {
	tr := NewTracer("handswers", false)
	client := &http.Client{}
	assert.Same(t, client, tr.HTTPClient(client))

	assert.NotPanics(t, func() { tr.AddAnnotation(context.Background(), "userId", "u1") })
}
