package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options on a fresh registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "tradedigest")
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test_namespace"),
				WithSubsystem("test_subsystem"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then the options should be applied", func() {
				So(manager.namespace, ShouldEqual, "test_namespace")
				So(manager.subsystem, ShouldEqual, "test_subsystem")
				So(manager.histogramBuckets, ShouldResemble, []float64{0.1, 0.5, 1.0})
				So(manager.constLabels["env"], ShouldEqual, "test")
			})

			Convey("Then the metrics should be registered on the custom registry", func() {
				manager.linesScanned.WithLabelValues(OutcomeEvent).Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
			})
		})

		Convey("When empty options are supplied", func() {
			manager := NewManager(
				WithNamespace(""),
				WithSubsystem(""),
				WithHistogramBuckets(nil),
				WithConstLabels(nil),
				WithPrometheusRegistry(prometheus.NewRegistry()),
			)

			Convey("Then defaults should be kept", func() {
				So(manager.namespace, ShouldEqual, "tradedigest")
				So(manager.subsystem, ShouldEqual, "digest")
				So(manager.histogramBuckets, ShouldResemble, prometheus.DefBuckets)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics", t, func() {
		Convey("When recording line outcomes", func() {
			before := testutil.ToFloat64(globalManager.linesScanned.WithLabelValues(OutcomeMalformed))
			So(RecordLine(OutcomeMalformed), ShouldBeNil)
			RecordLines(OutcomeMalformed, 2)
			RecordLines(OutcomeMalformed, 0)

			Convey("Then the counter should grow by the recorded amount", func() {
				after := testutil.ToFloat64(globalManager.linesScanned.WithLabelValues(OutcomeMalformed))
				So(after-before, ShouldEqual, 3)
			})
		})

		Convey("When recording an unknown outcome", func() {
			err := RecordLine("exploded")

			Convey("Then it should be rejected", func() {
				So(errors.Is(err, ErrUnknownOutcome), ShouldBeTrue)
			})
		})

		Convey("When recording the remaining metrics", func() {
			Convey("Then nothing should panic", func() {
				So(func() {
					RecordEvents("sale", 4)
					RecordDigestDuration(12.5)
					RecordDigestFailure()
					RecordReportGenerated(2048)
					RecordReportFailure()
					RecordUpload(4096)
					RecordReportsSwept(2)
					UpdateReportsOnDisk(7)
					RecordHTTPRequest("upload", "POST", "200")
					RecordHTTPRequestDuration("upload", "POST", "200", 3)
					RecordErrorByEndpoint("upload", "POST", "client_error")
					UpdateSystemMemoryUsage(1 << 20)
					UpdateSystemGoroutineCount(10)
					RecordSystemGCPauseTime(0.3)
				}, ShouldNotPanic)
			})

			Convey("Then the gauge should hold the last value", func() {
				UpdateReportsOnDisk(3)
				So(testutil.ToFloat64(globalManager.reportsOnDisk), ShouldEqual, 3)
			})
		})

		Convey("When fetching the registry", func() {
			So(GetRegistry(), ShouldEqual, customRegistry)
		})
	})
}
