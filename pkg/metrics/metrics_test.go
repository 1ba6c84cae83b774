package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNewManager(t *testing.T) {
	Convey("Given a fresh registry", t, func() {
		reg := prometheus.NewRegistry()

		Convey("When creating a manager with defaults", func() {
			m := NewManager(WithPrometheusRegistry(reg))

			Convey("Then it should register the award metrics", func() {
				So(m, ShouldNotBeNil)
				So(m.namespace, ShouldEqual, "reputator")
				So(m.subsystem, ShouldEqual, "bot")

				families, err := reg.Gather()
				So(err, ShouldBeNil)
				names := make(map[string]bool, len(families))
				for _, f := range families {
					names[f.GetName()] = true
				}
				// Counters only appear after first increment; gauges and
				// histograms are exported immediately.
				So(names["reputator_bot_queue_size"], ShouldBeTrue)
				So(names["reputator_bot_worker_count"], ShouldBeTrue)
				So(names["reputator_bot_repository_update_latency_milliseconds"], ShouldBeTrue)
			})
		})

		Convey("When creating a manager with custom namespace and buckets", func() {
			m := NewManager(
				WithPrometheusRegistry(reg),
				WithNamespace("testns"),
				WithSubsystem("testsub"),
				WithHistogramBuckets([]float64{1, 5, 10}),
			)

			Convey("Then the options should be applied", func() {
				So(m.namespace, ShouldEqual, "testns")
				So(m.subsystem, ShouldEqual, "testsub")
				So(m.histogramBuckets, ShouldResemble, []float64{1, 5, 10})
			})
		})
	})
}

func TestGlobalHelpers(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording award pipeline metrics", func() {
			So(func() {
				RecordAwardGranted()
				RecordAwardRejection("self_award")
				RecordEventProcessed()
				RecordEventDuplicate()
				RecordNotification("pm", "sent")
				RecordPlatformCall("set_user_flair", 12.5)
				RecordPlatformCallError("get_comment")
			}, ShouldNotPanic)
		})

		Convey("When recording store, queue and worker metrics", func() {
			So(func() {
				UpdateRepositoryRecordsTotal(42)
				RecordRepositoryUpdateLatency(1.0)
				RecordRepositoryQueryLatency(0.5)
				UpdateQueueSize(10)
				UpdateQueueCapacity(100)
				UpdateQueueUtilization(0.1)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError()
				UpdateWorkerCount(4)
				RecordWorkerProcessingLatency(3.0)
				RecordWorkerError()
			}, ShouldNotPanic)
		})

		Convey("When recording job and HTTP metrics", func() {
			So(func() {
				RecordLeaderboardRefresh()
				RecordLeaderboardError()
				RecordSweepRun()
				RecordSweepAccountsChecked(50)
				RecordSweepAccountsRemoved(2)
				RecordHTTPRequest("events", "POST", "202")
				RecordHTTPRequestDuration("events", "POST", "202", 4.2)
				RecordErrorByComponent("ledger", "expired")
			}, ShouldNotPanic)
		})

		Convey("Then the global registry should be available", func() {
			So(GetRegistry(), ShouldNotBeNil)
		})
	})
}
