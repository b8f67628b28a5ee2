package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsMiddleware(t *testing.T) {
	Convey("Given a handler wrapped in the metrics middleware", t, func() {
		h := MetricsMiddleware(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("x"))
		}, "vehicle")

		Convey("When it is served", func() {
			w := httptest.NewRecorder()
			h(w, httptest.NewRequest("POST", "/api/vehicle", nil))

			Convey("Then the response passes through unchanged", func() {
				So(w.Code, ShouldEqual, http.StatusBadGateway)
				So(w.Body.String(), ShouldEqual, "x")
			})
		})
	})
}

func TestErrorClassification(t *testing.T) {
	Convey("Given HTTP status codes", t, func() {
		cases := []struct {
			status   int
			kind     string
			severity string
		}{
			{http.StatusBadGateway, "upstream_error", "high"},
			{http.StatusInternalServerError, "server_error", "high"},
			{http.StatusMethodNotAllowed, "method_not_allowed", "medium"},
			{http.StatusNotFound, "not_found", "medium"},
			{http.StatusBadRequest, "client_error", "medium"},
			{http.StatusOK, "unknown", "low"},
		}
		for _, c := range cases {
			So(getErrorType(c.status), ShouldEqual, c.kind)
			So(getErrorSeverity(c.status), ShouldEqual, c.severity)
		}
	})
}
