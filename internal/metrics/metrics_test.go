package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordDelivery(t *testing.T) {
	before := testutil.ToFloat64(DeliveriesTotal.WithLabelValues("sms", "sent"))
	RecordDelivery("sms", "sent")
	RecordDelivery("sms", "sent")
	if got := testutil.ToFloat64(DeliveriesTotal.WithLabelValues("sms", "sent")); got != before+2 {
		t.Errorf("deliveries sms/sent = %v, want %v", got, before+2)
	}
}

func TestRecordProviderCall(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		result string
	}{
		{"success", nil, "ok"},
		{"failure", errors.New("boom"), "error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := ProviderRequests.WithLabelValues("test", tt.result)
			before := testutil.ToFloat64(c)
			RecordProviderCall("test", 20*time.Millisecond, tt.err)
			if got := testutil.ToFloat64(c); got != before+1 {
				t.Errorf("provider requests %s = %v, want %v", tt.result, got, before+1)
			}
		})
	}
}

func TestRecordRun(t *testing.T) {
	RecordRun("ok", time.Second, 4)
	if got := testutil.ToFloat64(LastRunAlertsSent); got != 4 {
		t.Errorf("LastRunAlertsSent = %v, want 4", got)
	}
	if got := testutil.ToFloat64(LastRunTimestamp); got <= 0 {
		t.Errorf("LastRunTimestamp = %v, want > 0", got)
	}
}

func TestSetBreakerState(t *testing.T) {
	SetBreakerState("twilio", 2)
	if got := testutil.ToFloat64(BreakerState.WithLabelValues("twilio")); got != 2 {
		t.Errorf("BreakerState = %v, want 2", got)
	}
}
