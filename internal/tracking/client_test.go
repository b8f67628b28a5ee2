package tracking_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/okian/fleetview/internal/tracking"
	"github.com/okian/fleetview/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

type capturedRequest struct {
	Method        string
	Path          string
	Body          []byte
	ContentType   string
	ContentLength int64
	RequestID     string
}

// fakeAPI records every request and answers with a per-path body.
type fakeAPI struct {
	mu       sync.Mutex
	requests []capturedRequest
	status   int
	bodies   map[string]string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{status: http.StatusOK, bodies: map[string]string{}}
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, capturedRequest{
		Method:        r.Method,
		Path:          r.URL.Path,
		Body:          body,
		ContentType:   r.Header.Get("Content-Type"),
		ContentLength: r.ContentLength,
		RequestID:     r.Header.Get(tracking.HeaderRequestID),
	})
	status, resp := f.status, f.bodies[r.URL.Path]
	f.mu.Unlock()
	w.WriteHeader(status)
	_, _ = w.Write([]byte(resp))
}

func (f *fakeAPI) captured() []capturedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]capturedRequest, len(f.requests))
	copy(out, f.requests)
	return out
}

type doerFunc func(*http.Request) (*http.Response, error)

func (f doerFunc) Do(r *http.Request) (*http.Response, error) { return f(r) }

type failingReader struct{ err error }

func (r failingReader) Read([]byte) (int, error) { return 0, r.err }

func newTestClient(baseURL string, opts ...tracking.Option) *tracking.Client {
	endpoints, err := tracking.ResolveEndpoints(baseURL+"/api", nil)
	if err != nil {
		panic(err)
	}
	return tracking.NewClient(endpoints, opts...)
}

type call struct {
	name    string
	path    string
	payload bool
	invoke  func(ctx context.Context, c *tracking.Client, payload any) (tracking.Result, error)
}

var calls = []call{
	{"LatestRecord", "/api/latestRecords", false, func(ctx context.Context, c *tracking.Client, _ any) (tracking.Result, error) {
		return c.LatestRecord(ctx)
	}},
	{"LatestRecordByID", "/api/latestRecordById", true, func(ctx context.Context, c *tracking.Client, p any) (tracking.Result, error) {
		return c.LatestRecordByID(ctx, p)
	}},
	{"Vehicle", "/api/vehicle", false, func(ctx context.Context, c *tracking.Client, _ any) (tracking.Result, error) {
		return c.Vehicle(ctx)
	}},
	{"VehicleByCategory", "/api/vehicleByCategory", true, func(ctx context.Context, c *tracking.Client, p any) (tracking.Result, error) {
		return c.VehicleByCategory(ctx, p)
	}},
}

func TestClientPassThrough(t *testing.T) {
	Convey("Given a tracking API that answers every endpoint", t, func() {
		api := newFakeAPI()
		server := httptest.NewServer(api)
		defer server.Close()
		client := newTestClient(server.URL)
		ctx := context.Background()

		for _, c := range calls {
			// Bodies are deliberately not normalized JSON.
			api.bodies[c.path] = "  {\"from\": \"" + c.name + "\",\"n\":1.50}\n"
		}

		for _, c := range calls {
			c := c
			Convey("When calling "+c.name, func() {
				var payload any
				if c.payload {
					payload = map[string]any{"id": 7}
				}
				result, err := c.invoke(ctx, client, payload)

				Convey("Then it resolves with the body byte for byte", func() {
					So(err, ShouldBeNil)
					So(string(result), ShouldEqual, api.bodies[c.path])
				})

				Convey("And exactly one POST hit the endpoint URL", func() {
					reqs := api.captured()
					So(len(reqs), ShouldEqual, 1)
					So(reqs[0].Method, ShouldEqual, http.MethodPost)
					So(reqs[0].Path, ShouldEqual, c.path)
					So(reqs[0].RequestID, ShouldNotBeEmpty)
				})
			})
		}

		Convey("When the body is not JSON at all", func() {
			api.bodies["/api/vehicle"] = "plain text, not json"
			result, err := client.Vehicle(ctx)

			Convey("Then it is still returned untouched", func() {
				So(err, ShouldBeNil)
				So(string(result), ShouldEqual, "plain text, not json")
			})
		})
	})
}

func TestClientRequestBody(t *testing.T) {
	Convey("Given a recording tracking API", t, func() {
		api := newFakeAPI()
		server := httptest.NewServer(api)
		defer server.Close()
		client := newTestClient(server.URL)
		ctx := context.Background()

		Convey("When a no-argument function is called", func() {
			_, err := client.LatestRecord(ctx)
			So(err, ShouldBeNil)
			_, err = client.Vehicle(ctx)
			So(err, ShouldBeNil)

			Convey("Then the requests carry no body", func() {
				for _, r := range api.captured() {
					So(len(r.Body), ShouldEqual, 0)
					So(r.ContentLength, ShouldEqual, 0)
					So(r.ContentType, ShouldBeEmpty)
				}
			})
		})

		Convey("When a raw JSON payload is supplied", func() {
			raw := []byte(`{ "id" :"A-17",  "extra":[1,2] }`)
			_, err := client.LatestRecordByID(ctx, raw)

			Convey("Then the body equals the payload exactly", func() {
				So(err, ShouldBeNil)
				reqs := api.captured()
				So(len(reqs), ShouldEqual, 1)
				So(string(reqs[0].Body), ShouldEqual, string(raw))
				So(reqs[0].ContentType, ShouldEqual, "application/json")
			})
		})

		Convey("When a struct payload is supplied", func() {
			type categoryFilter struct {
				Category string `json:"category"`
				Active   bool   `json:"active"`
			}
			_, err := client.VehicleByCategory(ctx, categoryFilter{Category: "tanker", Active: true})

			Convey("Then every field is encoded", func() {
				So(err, ShouldBeNil)
				So(string(api.captured()[0].Body), ShouldEqual, `{"category":"tanker","active":true}`)
			})
		})

		Convey("When a payload function receives nil", func() {
			_, err := client.VehicleByCategory(ctx, nil)

			Convey("Then no body is sent", func() {
				So(err, ShouldBeNil)
				So(len(api.captured()[0].Body), ShouldEqual, 0)
			})
		})

		Convey("When empty raw payloads are supplied", func() {
			_, err := client.LatestRecordByID(ctx, json.RawMessage(nil))
			So(err, ShouldBeNil)
			_, err = client.VehicleByCategory(ctx, []byte{})
			So(err, ShouldBeNil)

			Convey("Then they are sent like a call without a body", func() {
				reqs := api.captured()
				So(len(reqs), ShouldEqual, 2)
				for _, r := range reqs {
					So(len(r.Body), ShouldEqual, 0)
					So(r.ContentLength, ShouldEqual, 0)
					So(r.ContentType, ShouldBeEmpty)
				}
			})
		})

		Convey("When a payload cannot be encoded", func() {
			_, err := client.LatestRecordByID(ctx, map[string]any{"bad": make(chan int)})

			Convey("Then the call fails before reaching the API", func() {
				So(errors.Is(err, tracking.ErrEncodePayload), ShouldBeTrue)
				So(len(api.captured()), ShouldEqual, 0)
			})
		})
	})
}

func TestClientFailures(t *testing.T) {
	Convey("Given a client with a recording logger", t, func() {
		var logs bytes.Buffer
		ctx := context.Background()

		Convey("When the transport fails", func() {
			transportErr := errors.New("connection refused")
			client := newTestClient("http://tracking.invalid",
				tracking.WithLogger(logger.New(&logs)),
				tracking.WithHTTPClient(doerFunc(func(*http.Request) (*http.Response, error) {
					return nil, transportErr
				})),
			)

			for _, c := range calls {
				c := c
				Convey("Then "+c.name+" fails with the original error", func() {
					result, err := c.invoke(ctx, client, map[string]string{"id": "1"})
					So(result, ShouldBeNil)
					So(errors.Is(err, transportErr), ShouldBeTrue)

					var reqErr *tracking.RequestError
					So(errors.As(err, &reqErr), ShouldBeTrue)
					So(reqErr.Err, ShouldEqual, transportErr)
					So(reqErr.RequestID, ShouldNotBeEmpty)
					So(reqErr.URL, ShouldEndWith, c.path)
				})

				Convey("And "+c.name+" logs exactly one error entry", func() {
					_, _ = c.invoke(ctx, client, nil)
					out := logs.String()
					So(strings.Count(out, "tracking request failed"), ShouldEqual, 1)
					So(out, ShouldContainSubstring, "level=ERROR")
					So(out, ShouldContainSubstring, "connection refused")
				})
			}
		})

		Convey("When the API answers with a non-success status", func() {
			api := newFakeAPI()
			api.status = http.StatusInternalServerError
			api.bodies["/api/vehicle"] = `{"message":"boom"}`
			server := httptest.NewServer(api)
			defer server.Close()
			client := newTestClient(server.URL, tracking.WithLogger(logger.New(&logs)))

			result, err := client.Vehicle(ctx)

			Convey("Then the failure carries the status and body", func() {
				So(result, ShouldBeNil)
				So(errors.Is(err, tracking.ErrUnexpectedStatus), ShouldBeTrue)
				var statusErr *tracking.StatusError
				So(errors.As(err, &statusErr), ShouldBeTrue)
				So(statusErr.StatusCode, ShouldEqual, http.StatusInternalServerError)
				So(string(statusErr.Body), ShouldEqual, `{"message":"boom"}`)
				So(logs.String(), ShouldContainSubstring, "endpoint=vehicle")
			})

			Convey("And the call was not retried", func() {
				So(len(api.captured()), ShouldEqual, 1)
			})
		})

		Convey("When the body cannot be read", func() {
			readErr := errors.New("stream reset")
			client := newTestClient("http://tracking.invalid",
				tracking.WithLogger(logger.New(&logs)),
				tracking.WithHTTPClient(doerFunc(func(*http.Request) (*http.Response, error) {
					return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(failingReader{err: readErr})}, nil
				})),
			)

			_, err := client.LatestRecord(ctx)

			Convey("Then the read error is surfaced", func() {
				So(errors.Is(err, readErr), ShouldBeTrue)
			})
		})

		Convey("When the context is already canceled", func() {
			api := newFakeAPI()
			server := httptest.NewServer(api)
			defer server.Close()
			client := newTestClient(server.URL, tracking.WithLogger(logger.New(&logs)))
			canceled, cancel := context.WithCancel(ctx)
			cancel()

			_, err := client.LatestRecord(canceled)

			Convey("Then the transport error wraps context.Canceled", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
			})
		})

		Convey("When the client has no URL for an endpoint", func() {
			client := tracking.NewClient(tracking.Endpoints{}, tracking.WithLogger(logger.New(&logs)))

			_, err := client.Vehicle(ctx)

			Convey("Then it reports an unknown endpoint", func() {
				So(errors.Is(err, tracking.ErrUnknownEndpoint), ShouldBeTrue)
			})
		})
	})
}

func TestClientNoCaching(t *testing.T) {
	Convey("Given a recording tracking API", t, func() {
		api := newFakeAPI()
		server := httptest.NewServer(api)
		defer server.Close()
		client := newTestClient(server.URL)
		ctx := context.Background()

		Convey("When the same function is called twice with the same payload", func() {
			_, err1 := client.LatestRecordByID(ctx, map[string]int{"id": 1})
			_, err2 := client.LatestRecordByID(ctx, map[string]int{"id": 1})

			Convey("Then two independent requests are made", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				reqs := api.captured()
				So(len(reqs), ShouldEqual, 2)
				So(reqs[0].RequestID, ShouldNotEqual, reqs[1].RequestID)
			})
		})

		Convey("When the payload changes between calls", func() {
			api.bodies["/api/latestRecordById"] = "first"
			first, _ := client.LatestRecordByID(ctx, map[string]int{"id": 1})
			api.mu.Lock()
			api.bodies["/api/latestRecordById"] = "second"
			api.mu.Unlock()
			second, _ := client.LatestRecordByID(ctx, map[string]int{"id": 2})

			Convey("Then the second call reflects the new payload and response", func() {
				reqs := api.captured()
				So(string(reqs[1].Body), ShouldEqual, `{"id":2}`)
				So(string(first), ShouldEqual, "first")
				So(string(second), ShouldEqual, "second")
			})
		})

		Convey("When many calls run concurrently", func() {
			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, _ = client.Vehicle(ctx)
				}()
			}
			wg.Wait()

			Convey("Then each one reaches the API", func() {
				So(len(api.captured()), ShouldEqual, 20)
			})
		})
	})
}

func TestDecode(t *testing.T) {
	Convey("Given a raw result", t, func() {
		type record struct {
			ID  string  `json:"id"`
			Lat float64 `json:"lat"`
		}

		Convey("When it is valid JSON", func() {
			v, err := tracking.Decode[[]record](tracking.Result(`[{"id":"A","lat":1.5}]`))

			Convey("Then it decodes into the requested type", func() {
				So(err, ShouldBeNil)
				So(v, ShouldResemble, []record{{ID: "A", Lat: 1.5}})
			})
		})

		Convey("When it is not JSON", func() {
			_, err := tracking.Decode[record](tracking.Result("nope"))

			Convey("Then an error is returned", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}
