package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func familyNames(reg *prometheus.Registry) map[string]bool {
	names := map[string]bool{}
	mfs, err := reg.Gather()
	if err != nil {
		return names
	}
	for _, mf := range mfs {
		names[mf.GetName()] = true
	}
	return names
}

func TestManagerCreation(t *testing.T) {
	Convey("Given a manager on a private registry", t, func() {
		reg := prometheus.NewRegistry()
		m := NewManager(WithPrometheusRegistry(reg))

		Convey("Then collectors use the default namespace and subsystem", func() {
			m.ordersCreated.Inc()
			m.httpRequests.WithLabelValues("orders", "POST", "201").Inc()
			names := familyNames(reg)
			So(names["prebook_api_orders_created_total"], ShouldBeTrue)
			So(names["prebook_api_http_requests_total"], ShouldBeTrue)
		})

		Convey("And counters move when recorded", func() {
			m.ordersRejected.WithLabelValues("INVALID_EMAIL").Inc()
			m.ordersRejected.WithLabelValues("INVALID_EMAIL").Inc()
			So(testutil.ToFloat64(m.ordersRejected.WithLabelValues("INVALID_EMAIL")), ShouldEqual, 2)
		})
	})

	Convey("Given custom options", t, func() {
		reg := prometheus.NewRegistry()
		m := NewManager(
			WithPrometheusRegistry(reg),
			WithNamespace("shop"),
			WithSubsystem("web"),
			WithHistogramBuckets([]float64{1, 5, 10}),
			WithConstLabels(map[string]string{"env": "test"}),
		)

		Convey("Then names and labels follow them", func() {
			m.emailsSent.Inc()
			mfs, err := reg.Gather()
			So(err, ShouldBeNil)
			found := false
			for _, mf := range mfs {
				if mf.GetName() != "shop_web_emails_sent_total" {
					continue
				}
				found = true
				So(mf.GetMetric()[0].GetLabel()[0].GetName(), ShouldEqual, "env")
				So(mf.GetMetric()[0].GetLabel()[0].GetValue(), ShouldEqual, "test")
			}
			So(found, ShouldBeTrue)
		})
	})
}

func TestGlobalRecorders(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("Business recorders do not panic", func() {
			So(func() {
				RecordOrderCreated()
				RecordOrderDuplicate()
				RecordOrderRejected("MISSING_FIELDS")
				RecordLoginAttempt("success")
				RecordEmailEnqueued()
				RecordEmailSent()
				RecordEmailFailed()
				UpdatePrebookingCount(113928)
				UpdateTotalOrders(3)
				UpdateActivePlans(2)
			}, ShouldNotPanic)
			So(testutil.ToFloat64(globalManager.prebookingCount), ShouldEqual, 113928)
		})

		Convey("Operational recorders do not panic", func() {
			So(func() {
				RecordHTTPRequest("plans", "GET", "200")
				RecordHTTPRequestDuration("plans", "GET", "200", 3)
				RecordRepositoryQueryLatency("orders.list", 1.5)
				UpdateQueueSize(1)
				UpdateQueueCapacity(10)
				UpdateQueueUtilization(0.1)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError()
				RecordQueueProcessingLatency(0.2)
				UpdateWorkerCount(4)
				UpdateWorkerActiveCount(4)
				UpdateWorkerMessagesPerSecond(1.5)
				RecordWorkerProcessingLatency(2)
				RecordWorkerError()
				RecordWorkerRetry()
				RecordErrorByComponent("repository", "query")
				RecordErrorByType("server_error", "high")
				RecordErrorByEndpoint("orders", "POST", "client_error")
				RecordErrorLatency("http", "client_error", 4)
				UpdateSystemMemoryUsage(1 << 20)
				UpdateSystemGoroutineCount(12)
				RecordSystemGCPauseTime(0.3)
			}, ShouldNotPanic)
		})

		Convey("GetRegistry exposes the custom registry", func() {
			So(GetRegistry(), ShouldNotBeNil)
			So(familyNames(GetRegistry())["prebook_api_orders_created_total"], ShouldBeTrue)
		})
	})
}
