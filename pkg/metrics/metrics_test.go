package metrics_test

import (
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/okian/prive/pkg/metrics"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManager(t *testing.T) {
	Convey("Given a manager on its own registry", t, func() {
		registry := prometheus.NewRegistry()
		m := metrics.NewManager(metrics.WithPrometheusRegistry(registry))

		So(m, ShouldNotBeNil)

		Convey("Then every metric registered cleanly", func() {
			families, err := registry.Gather()
			So(err, ShouldBeNil)
			So(len(families), ShouldBeGreaterThan, 10)
		})
	})

	Convey("Given a manager with custom naming", t, func() {
		registry := prometheus.NewRegistry()
		m := metrics.NewManager(
			metrics.WithPrometheusRegistry(registry),
			metrics.WithNamespace("testns"),
			metrics.WithSubsystem("testsub"),
		)

		So(m, ShouldNotBeNil)

		Convey("Then the metric names carry the namespace", func() {
			families, err := registry.Gather()
			So(err, ShouldBeNil)
			So(families, ShouldNotBeEmpty)
			So(families[0].GetName(), ShouldStartWith, "testns_testsub_")
		})
	})
}

func TestPackageHelpers(t *testing.T) {
	Convey("Given the global metrics helpers", t, func() {
		Convey("Then the counters and gauges accept updates without panicking", func() {
			So(func() {
				metrics.RecordRecalculation()
				metrics.RecordRecalculationFailure()
				metrics.RecordOverride()
				metrics.RecordOverrideRejection()
				metrics.RecordSnapshotAppended()
				metrics.RecordTierTransition()
				metrics.RecordStoreSaveLatency(1.5)
				metrics.RecordStoreQueryLatency(0.5)
				metrics.RecordSaveConflict()
				metrics.UpdateRecordsTotal(10)
				metrics.UpdateEligibleRecords(4)
				metrics.UpdateTierDistribution("elite", 2)
				metrics.RecordErrorByComponent("eligibility", "signal_source")
				metrics.UpdateSystemMemoryUsage(1 << 20)
				metrics.UpdateSystemGoroutineCount(12)
			}, ShouldNotPanic)
		})
	})
}

func TestHandler(t *testing.T) {
	Convey("Given the metrics HTTP handler", t, func() {
		metrics.RecordRecalculation()

		rr := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/metrics", nil)
		metrics.Handler().ServeHTTP(rr, req)

		Convey("Then it exposes the reputation metrics", func() {
			So(rr.Code, ShouldEqual, 200)
			So(rr.Body.String(), ShouldContainSubstring, "prive_reputation_recalculations_total")
		})
	})
}
