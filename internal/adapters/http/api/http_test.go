package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/podium/internal/admin"
	service "github.com/okian/podium/internal/app"
	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/internal/domain/schema"
)

func newTestMux(t *testing.T, opts ...service.Option) (*http.ServeMux, *service.Service) {
	t.Helper()
	ctx := context.Background()

	sch, err := schema.New(
		[]model.Subject{{ID: 1, Name: "Alpha"}, {ID: 2, Name: "Beta"}},
		[]model.Criterion{{Name: "craft", MaxPoints: 10}},
	)
	if err != nil {
		t.Fatalf("build schema: %v", err)
	}

	base := []service.Option{
		service.WithSchema(sch),
		service.WithDataFile(filepath.Join(t.TempDir(), "scores.csv")),
		service.WithIdentitySalt("test-salt"),
	}
	svc := service.New(append(base, opts...)...)
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("start service: %v", err)
	}
	t.Cleanup(svc.Stop)

	var ctl AdminControl
	if c := svc.Admin(); c != nil {
		ctl = c
	}
	mux := http.NewServeMux()
	NewServer(svc, svc, ctl).Register(ctx, mux)
	return mux, svc
}

func doRequest(mux *http.ServeMux, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.RemoteAddr = "203.0.113.7:52100"
	req.Header.Set("User-Agent", "podium-test/1.0")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}

const validSheet = `{"ratings":{"1":{"craft":8},"2":{"craft":6}}}`

func TestRatingsEndpoint(t *testing.T) {
	convey.Convey("Given a running API", t, func() {
		mux, _ := newTestMux(t)

		convey.Convey("When a valid submission is posted", func() {
			rec := doRequest(mux, http.MethodPost, "/ratings", validSheet, nil)

			convey.Convey("Then it is accepted with a session token", func() {
				convey.So(rec.Code, convey.ShouldEqual, http.StatusCreated)
				body := decodeBody(t, rec)
				convey.So(body["status"], convey.ShouldEqual, "accepted")
				convey.So(body["session_token"], convey.ShouldNotBeEmpty)
			})

			convey.Convey("Then the session cookie is pinned on the response", func() {
				cookies := rec.Result().Cookies()
				convey.So(cookies, convey.ShouldHaveLength, 1)
				convey.So(cookies[0].Name, convey.ShouldEqual, "podium_session")
				convey.So(cookies[0].HttpOnly, convey.ShouldBeTrue)
			})

			convey.Convey("And the same session posts again", func() {
				token := decodeBody(t, rec)["session_token"].(string)
				again := doRequest(mux, http.MethodPost, "/ratings", validSheet,
					map[string]string{"X-Session-Token": token})

				convey.Convey("Then the duplicate is refused with conflict", func() {
					convey.So(again.Code, convey.ShouldEqual, http.StatusConflict)
					body := decodeBody(t, again)
					convey.So(body["status"], convey.ShouldEqual, "duplicate")
					convey.So(body["duplicate"], convey.ShouldBeTrue)
				})
			})
		})

		convey.Convey("When a score is out of range", func() {
			rec := doRequest(mux, http.MethodPost, "/ratings",
				`{"ratings":{"1":{"craft":99},"2":{"craft":6}}}`, nil)

			convey.Convey("Then the full violation list comes back", func() {
				convey.So(rec.Code, convey.ShouldEqual, http.StatusBadRequest)
				body := decodeBody(t, rec)
				convey.So(body["code"], convey.ShouldEqual, "validation_failed")
				convey.So(body["violations"], convey.ShouldNotBeEmpty)
			})
		})

		convey.Convey("When the sheet is incomplete", func() {
			rec := doRequest(mux, http.MethodPost, "/ratings",
				`{"ratings":{"1":{"craft":5}}}`, nil)

			convey.Convey("Then nothing partial is stored", func() {
				convey.So(rec.Code, convey.ShouldEqual, http.StatusBadRequest)
				rankings := doRequest(mux, http.MethodGet, "/rankings", "", nil)
				convey.So(decodeBody(t, rankings)["rankings"], convey.ShouldBeEmpty)
			})
		})

		convey.Convey("When the body is not JSON", func() {
			rec := doRequest(mux, http.MethodPost, "/ratings", "not-json", nil)
			convey.So(rec.Code, convey.ShouldEqual, http.StatusBadRequest)
			convey.So(decodeBody(t, rec)["code"], convey.ShouldEqual, "bad_request")
		})

		convey.Convey("When a subject key is not numeric", func() {
			rec := doRequest(mux, http.MethodPost, "/ratings",
				`{"ratings":{"alpha":{"craft":5}}}`, nil)
			convey.So(rec.Code, convey.ShouldEqual, http.StatusBadRequest)
		})

		convey.Convey("When the method is wrong", func() {
			rec := doRequest(mux, http.MethodGet, "/ratings", "", nil)
			convey.So(rec.Code, convey.ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestStatusEndpoint(t *testing.T) {
	convey.Convey("Given a running API", t, func() {
		mux, _ := newTestMux(t)

		convey.Convey("When a fresh client asks for status", func() {
			rec := doRequest(mux, http.MethodGet, "/status", "", nil)

			convey.Convey("Then a token is issued and nothing is submitted", func() {
				convey.So(rec.Code, convey.ShouldEqual, http.StatusOK)
				body := decodeBody(t, rec)
				convey.So(body["session_token"], convey.ShouldNotBeEmpty)
				convey.So(body["state"], convey.ShouldEqual, "not_submitted")
				convey.So(body["submitted"], convey.ShouldBeFalse)
			})

			convey.Convey("And the client submits with that token", func() {
				token := decodeBody(t, rec)["session_token"].(string)
				headers := map[string]string{"X-Session-Token": token}
				post := doRequest(mux, http.MethodPost, "/ratings", validSheet, headers)
				convey.So(post.Code, convey.ShouldEqual, http.StatusCreated)

				convey.Convey("Then status flips to submitted", func() {
					after := doRequest(mux, http.MethodGet, "/status", "", headers)
					body := decodeBody(t, after)
					convey.So(body["session_token"], convey.ShouldEqual, token)
					convey.So(body["state"], convey.ShouldEqual, "submitted")
					convey.So(body["submitted"], convey.ShouldBeTrue)
				})
			})
		})

		convey.Convey("When the method is wrong", func() {
			rec := doRequest(mux, http.MethodPost, "/status", "", nil)
			convey.So(rec.Code, convey.ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestRankingsEndpoint(t *testing.T) {
	convey.Convey("Given a running API", t, func() {
		mux, _ := newTestMux(t)

		convey.Convey("When no submissions exist", func() {
			rec := doRequest(mux, http.MethodGet, "/rankings", "", nil)

			convey.Convey("Then the rankings list is present but empty", func() {
				convey.So(rec.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(decodeBody(t, rec)["rankings"], convey.ShouldBeEmpty)
			})
		})

		convey.Convey("When two raters have submitted", func() {
			first := doRequest(mux, http.MethodPost, "/ratings", validSheet, nil)
			convey.So(first.Code, convey.ShouldEqual, http.StatusCreated)
			second := doRequest(mux, http.MethodPost, "/ratings",
				`{"ratings":{"1":{"craft":9},"2":{"craft":9}}}`, nil)
			convey.So(second.Code, convey.ShouldEqual, http.StatusCreated)

			convey.Convey("Then rankings order by mean total", func() {
				rec := doRequest(mux, http.MethodGet, "/rankings", "", nil)
				convey.So(rec.Code, convey.ShouldEqual, http.StatusOK)

				var body struct {
					Rankings []struct {
						Rank        int     `json:"rank"`
						SubjectID   int     `json:"subject_id"`
						SubjectName string  `json:"subject_name"`
						MeanTotal   float64 `json:"mean_total"`
						RaterCount  int     `json:"rater_count"`
					} `json:"rankings"`
				}
				convey.So(json.Unmarshal(rec.Body.Bytes(), &body), convey.ShouldBeNil)
				convey.So(body.Rankings, convey.ShouldHaveLength, 2)
				convey.So(body.Rankings[0].Rank, convey.ShouldEqual, 1)
				convey.So(body.Rankings[0].SubjectName, convey.ShouldEqual, "Alpha")
				convey.So(body.Rankings[0].MeanTotal, convey.ShouldEqual, 8.5)
				convey.So(body.Rankings[0].RaterCount, convey.ShouldEqual, 2)
				convey.So(body.Rankings[1].Rank, convey.ShouldEqual, 2)
				convey.So(body.Rankings[1].SubjectName, convey.ShouldEqual, "Beta")
				convey.So(body.Rankings[1].MeanTotal, convey.ShouldEqual, 7.5)
			})
		})
	})
}

func TestSchemaEndpoint(t *testing.T) {
	convey.Convey("Given a running API", t, func() {
		mux, _ := newTestMux(t)

		convey.Convey("When the schema is fetched", func() {
			rec := doRequest(mux, http.MethodGet, "/schema", "", nil)

			convey.Convey("Then it describes subjects, criteria and the max total", func() {
				convey.So(rec.Code, convey.ShouldEqual, http.StatusOK)

				var body schemaResponse
				convey.So(json.Unmarshal(rec.Body.Bytes(), &body), convey.ShouldBeNil)
				convey.So(body.Subjects, convey.ShouldResemble, []subjectDTO{
					{ID: 1, Name: "Alpha"},
					{ID: 2, Name: "Beta"},
				})
				convey.So(body.Criteria, convey.ShouldResemble, []criterionDTO{
					{Name: "craft", MaxPoints: 10},
				})
				convey.So(body.MaxTotal, convey.ShouldEqual, 10)
			})
		})
	})
}

func TestAdminEndpoints(t *testing.T) {
	convey.Convey("Given an API without an admin secret", t, func() {
		mux, _ := newTestMux(t)

		convey.Convey("Then every admin route is hidden", func() {
			convey.So(doRequest(mux, http.MethodPost, "/admin/reset", "", nil).Code,
				convey.ShouldEqual, http.StatusNotFound)
			convey.So(doRequest(mux, http.MethodGet, "/admin/export", "", nil).Code,
				convey.ShouldEqual, http.StatusNotFound)
		})
	})

	convey.Convey("Given an API with an admin secret", t, func() {
		digest := admin.DigestOf("hunter2")
		mux, _ := newTestMux(t, service.WithAdminSecretDigest(digest))

		post := doRequest(mux, http.MethodPost, "/ratings", validSheet, nil)
		convey.So(post.Code, convey.ShouldEqual, http.StatusCreated)
		token := decodeBody(t, post)["session_token"].(string)
		headers := map[string]string{"X-Session-Token": token}

		convey.Convey("When exporting with the right secret", func() {
			rec := doRequest(mux, http.MethodGet, "/admin/export", "",
				map[string]string{"X-Admin-Secret": "hunter2"})

			convey.Convey("Then the raw log streams back as CSV", func() {
				convey.So(rec.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(rec.Header().Get("Content-Type"), convey.ShouldStartWith, "text/csv")
				convey.So(rec.Header().Get("Content-Disposition"), convey.ShouldContainSubstring, "scores.csv")
				convey.So(rec.Body.String(), convey.ShouldStartWith, "rater_id,device_id,subject_id,subject_name,craft,total")
			})
		})

		convey.Convey("When exporting with a wrong secret", func() {
			rec := doRequest(mux, http.MethodGet, "/admin/export", "",
				map[string]string{"X-Admin-Secret": "nope"})

			convey.Convey("Then nothing leaks", func() {
				convey.So(rec.Code, convey.ShouldEqual, http.StatusUnauthorized)
				convey.So(rec.Header().Get("Content-Disposition"), convey.ShouldBeEmpty)
				convey.So(rec.Body.String(), convey.ShouldNotContainSubstring, "Alpha")
			})
		})

		convey.Convey("When resetting with a wrong secret", func() {
			rec := doRequest(mux, http.MethodPost, "/admin/reset", "",
				map[string]string{"X-Admin-Secret": "nope"})

			convey.Convey("Then the log survives", func() {
				convey.So(rec.Code, convey.ShouldEqual, http.StatusUnauthorized)
				rankings := doRequest(mux, http.MethodGet, "/rankings", "", nil)
				convey.So(decodeBody(t, rankings)["rankings"], convey.ShouldNotBeEmpty)
			})
		})

		convey.Convey("When resetting with the right secret", func() {
			rec := doRequest(mux, http.MethodPost, "/admin/reset", "",
				map[string]string{"X-Admin-Secret": "hunter2"})

			convey.Convey("Then the log is cleared and raters may submit again", func() {
				convey.So(rec.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(decodeBody(t, rec)["status"], convey.ShouldEqual, "reset")

				rankings := doRequest(mux, http.MethodGet, "/rankings", "", nil)
				convey.So(decodeBody(t, rankings)["rankings"], convey.ShouldBeEmpty)

				status := doRequest(mux, http.MethodGet, "/status", "", headers)
				convey.So(decodeBody(t, status)["submitted"], convey.ShouldBeFalse)

				resubmit := doRequest(mux, http.MethodPost, "/ratings", validSheet, headers)
				convey.So(resubmit.Code, convey.ShouldEqual, http.StatusCreated)
			})
		})
	})
}

func TestOperationalEndpoints(t *testing.T) {
	convey.Convey("Given a running API", t, func() {
		mux, _ := newTestMux(t)

		convey.Convey("Then the health endpoint serves metrics", func() {
			rec := doRequest(mux, http.MethodGet, "/healthz", "", nil)
			convey.So(rec.Code, convey.ShouldEqual, http.StatusOK)
		})

		convey.Convey("Then the stats endpoint reports service state", func() {
			rec := doRequest(mux, http.MethodGet, "/stats", "", nil)
			convey.So(rec.Code, convey.ShouldEqual, http.StatusOK)
			body := decodeBody(t, rec)
			convey.So(body["started"], convey.ShouldBeTrue)
			convey.So(body["identityPolicy"], convey.ShouldEqual, "hybrid")
		})
	})
}
