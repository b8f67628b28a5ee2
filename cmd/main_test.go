package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/okian/fleetview/internal/config"
	"github.com/okian/fleetview/internal/tracking"
	"github.com/okian/fleetview/pkg/logger"
	"github.com/okian/fleetview/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smartystreets/goconvey/convey"
)

func TestNewService(t *testing.T) {
	convey.Convey("Given configuration from the environment", t, func() {
		_ = os.Setenv("FLEETVIEW_API_BASE_URL", "http://tracker.test/v2/")
		_ = os.Setenv("FLEETVIEW_HISTORY_VIEW", "true")
		_ = os.Setenv("FLEETVIEW_LIVE_INTERVAL_MS", "0")
		defer func() {
			_ = os.Unsetenv("FLEETVIEW_API_BASE_URL")
			_ = os.Unsetenv("FLEETVIEW_HISTORY_VIEW")
			_ = os.Unsetenv("FLEETVIEW_LIVE_INTERVAL_MS")
		}()

		cfg, err := config.Load(context.Background())
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("When building the service", func() {
			svc, err := newService(cfg, logger.Nop())

			convey.Convey("Then it should follow the configuration", func() {
				convey.So(err, convey.ShouldBeNil)
				client, ok := svc.Tracker().(*tracking.Client)
				convey.So(ok, convey.ShouldBeTrue)
				u, ok := client.Endpoints().URL(tracking.Vehicle)
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(u, convey.ShouldEqual, "http://tracker.test/v2/vehicle")
				convey.So(svc.Table().Routes(), convey.ShouldHaveLength, 3)
				convey.So(svc.GetStats()["liveIntervalMs"], convey.ShouldEqual, int64(0))
			})
		})
	})

	convey.Convey("Given a relative base URL", t, func() {
		cfg := config.New()
		cfg.APIBaseURL = "api/"

		convey.Convey("Then building the service should fail", func() {
			_, err := newService(cfg, logger.Nop())
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestNewRouter(t *testing.T) {
	convey.Convey("Given a router over a fake tracking API", t, func() {
		upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/api/vehicle" {
				_, _ = w.Write([]byte(`[{"plate":"ABC-123"}]`))
				return
			}
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer upstream.Close()

		cfg := config.New()
		cfg.APIBaseURL = upstream.URL + "/api/"
		cfg.LiveIntervalMS = 0
		svc, err := newService(cfg, logger.Nop())
		convey.So(err, convey.ShouldBeNil)

		ctx := context.Background()
		router, err := newRouter(ctx, svc)
		convey.So(err, convey.ShouldBeNil)

		serve := func(method, target string) *httptest.ResponseRecorder {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(method, target, nil))
			return w
		}

		convey.Convey("Then the root redirects to the dashboard", func() {
			w := serve("GET", "/")
			convey.So(w.Code, convey.ShouldEqual, http.StatusFound)
			convey.So(w.Header().Get("Location"), convey.ShouldEqual, "/dashboard")
		})

		convey.Convey("And the dashboard renders", func() {
			convey.So(serve("GET", "/dashboard").Code, convey.ShouldEqual, http.StatusOK)
		})

		convey.Convey("And the vehicle endpoint relays the upstream body", func() {
			w := serve("POST", "/api/vehicle")
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			convey.So(w.Body.String(), convey.ShouldEqual, `[{"plate":"ABC-123"}]`)
		})

		convey.Convey("And upstream failures surface as 502", func() {
			w := serve("POST", "/api/latest-record")
			convey.So(w.Code, convey.ShouldEqual, http.StatusBadGateway)
		})

		convey.Convey("And the docs and health routes are mounted", func() {
			convey.So(serve("GET", "/openapi.yaml").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(serve("GET", "/openapi.json").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(serve("GET", "/api-docs").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(serve("GET", "/healthz").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(serve("GET", "/routes").Code, convey.ShouldEqual, http.StatusOK)
		})

		convey.Convey("And the live channel refuses plain requests", func() {
			convey.So(serve("GET", "/ws/latest").Code, convey.ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestConfigureMetrics(t *testing.T) {
	convey.Convey("Given the default configuration", t, func() {
		cfg := config.New()

		convey.Convey("Then the process manager stays active", func() {
			convey.So(configureMetrics(cfg), convey.ShouldBeNil)
			convey.So(metrics.Enabled(), convey.ShouldBeTrue)
		})
	})

	convey.Convey("Given metrics turned off in the environment", t, func() {
		_ = os.Setenv("FLEETVIEW_METRICS_ENABLED", "false")
		defer func() {
			_ = os.Unsetenv("FLEETVIEW_METRICS_ENABLED")
			_ = metrics.Use(metrics.NewManager(metrics.WithPrometheusRegistry(prometheus.NewRegistry())))
		}()

		cfg, err := config.Load(context.Background())
		convey.So(err, convey.ShouldBeNil)
		convey.So(cfg.MetricsEnabled, convey.ShouldBeFalse)

		convey.Convey("When metrics are configured", func() {
			convey.So(configureMetrics(cfg), convey.ShouldBeNil)

			convey.Convey("Then recording is switched off", func() {
				convey.So(metrics.Enabled(), convey.ShouldBeFalse)
				convey.So(func() { metrics.RecordUpstreamRequest("vehicle", "ok") }, convey.ShouldNotPanic)
			})

			convey.Convey("And the health endpoint still serves the process registry", func() {
				w := httptest.NewRecorder()
				svc, err := newService(cfg, logger.Nop())
				convey.So(err, convey.ShouldBeNil)
				router, err := newRouter(context.Background(), svc)
				convey.So(err, convey.ShouldBeNil)
				router.ServeHTTP(w, httptest.NewRequest("GET", "/healthz", nil))
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(svc.GetStats()["metricsEnabled"], convey.ShouldEqual, false)
			})
		})
	})
}

func TestSystemMetrics(t *testing.T) {
	convey.Convey("Given the system metrics updater", t, func() {
		convey.Convey("Then a single update should not panic", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
		})

		convey.Convey("And the loop should return when the context ends", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()
			convey.So(func() { startSystemMetricsUpdater(ctx) }, convey.ShouldNotPanic)
		})
	})
}
