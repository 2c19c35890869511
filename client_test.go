package klingkit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/klingkit/internal/apitest"
	"github.com/MrEthical07/klingkit/jwt"
	"github.com/MrEthical07/klingkit/middleware"
)

var clientNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newDirectServer(t *testing.T) *apitest.Server {
	t.Helper()
	srv := apitest.New(apitest.Options{
		Secrets: middleware.StaticSecrets{"AK1": "SK1"},
		Now:     fixedClock(clientNow),
	})
	t.Cleanup(srv.Close)
	return srv
}

func newDirectClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	cfg := DefaultConfig()
	cfg.BaseURL = baseURL
	cfg.AccessKey = "AK1"
	cfg.SecretKey = "SK1"

	c, err := New().
		WithConfig(cfg).
		WithClock(fixedClock(clientNow)).
		WithRequestIDFunc(func() string { return "req-local-1" }).
		Build()
	if err != nil {
		t.Fatalf("build client: %v", err)
	}
	return c
}

func TestCreateElementSignsTokenAndPostsBody(t *testing.T) {
	srv := newDirectServer(t)
	c := newDirectClient(t, srv.URL)

	resp, err := c.CreateElement(context.Background(), CreateElementRequest{
		ElementName:        "element-001",
		ElementDescription: "test element",
		FrontalImage:       "https://example.com/front.png",
		ReferImages:        ReferencesFromURLs([]string{"https://example.com/side.png"}),
		Tags:               TagsFromIDs([]string{"o_101"}),
	})
	if err != nil {
		t.Fatalf("create element: %v", err)
	}
	if !resp.Succeeded() {
		t.Fatalf("expected success, got %s", resp.Body)
	}
	res := resp.Result()
	if res.ElementID != "860504398216347659" {
		t.Fatalf("element id = %q", res.ElementID)
	}
	if res.TaskID != "task-element-1" || res.TaskStatus != "submitted" {
		t.Fatalf("unexpected task fields %+v", res)
	}
	if resp.RequestID != "req-local-1" {
		t.Fatalf("request id = %q", resp.RequestID)
	}

	rec, ok := srv.Last()
	if !ok {
		t.Fatal("server saw no request")
	}
	if rec.Method != http.MethodPost || rec.Path != "/v1/general/custom-elements" {
		t.Fatalf("unexpected route %s %s", rec.Method, rec.Path)
	}
	if rec.ContentType != "application/json" {
		t.Fatalf("content type = %q", rec.ContentType)
	}
	if rec.RequestID != "req-local-1" {
		t.Fatalf("X-Request-Id = %q", rec.RequestID)
	}

	token := strings.TrimPrefix(rec.Authorization, "Bearer ")
	claims, err := jwt.Verify(token, "SK1", clientNow)
	if err != nil {
		t.Fatalf("verify sent token: %v", err)
	}
	if claims.Issuer != "AK1" || claims.NotBefore.Unix() != clientNow.Unix()-5 || claims.ExpiresAt.Unix() != clientNow.Unix()+1800 {
		t.Fatalf("unexpected claims %+v", claims.RegisteredClaims)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body, &body); err != nil {
		t.Fatalf("decode sent body: %v", err)
	}
	if body["element_name"] != "element-001" || body["element_frontal_image"] != "https://example.com/front.png" {
		t.Fatalf("unexpected body %v", body)
	}
	refs, _ := body["element_refer_list"].([]any)
	if len(refs) != 1 || refs[0].(map[string]any)["image_url"] != "https://example.com/side.png" {
		t.Fatalf("unexpected refer list %v", body["element_refer_list"])
	}
	tags, _ := body["tag_list"].([]any)
	if len(tags) != 1 || tags[0].(map[string]any)["tag_id"] != "o_101" {
		t.Fatalf("unexpected tag list %v", body["tag_list"])
	}
}

func TestCreateVoiceDefaultsModelAndOmitsOptionalFields(t *testing.T) {
	srv := newDirectServer(t)
	c := newDirectClient(t, srv.URL)

	resp, err := c.CreateVoice(context.Background(), CreateVoiceRequest{
		VoiceName: "voice-001",
		VoiceURL:  "https://example.com/sample.mp3",
	})
	if err != nil {
		t.Fatalf("create voice: %v", err)
	}
	if resp.Result().TaskID != "task-voice-1" {
		t.Fatalf("task id = %q", resp.Result().TaskID)
	}

	rec, _ := srv.Last()
	var body map[string]any
	if err := json.Unmarshal(rec.Body, &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["model"] != DefaultVoiceModel {
		t.Fatalf("model = %v", body["model"])
	}
	if _, ok := body["callback_url"]; ok {
		t.Fatal("expected callback_url to be omitted")
	}
	if _, ok := body["external_task_id"]; ok {
		t.Fatal("expected external_task_id to be omitted")
	}
}

func TestSignedTokenIsFreshPerCall(t *testing.T) {
	srv := newDirectServer(t)
	now := clientNow
	cfg := DefaultConfig()
	cfg.BaseURL = srv.URL
	cfg.AccessKey = "AK1"
	cfg.SecretKey = "SK1"
	c, err := New().WithConfig(cfg).WithClock(func() time.Time { return now }).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if _, err := c.ListCustomElements(context.Background(), ListOptions{}); err != nil {
		t.Fatalf("first call: %v", err)
	}
	now = now.Add(2 * time.Second)
	if _, err := c.ListCustomElements(context.Background(), ListOptions{}); err != nil {
		t.Fatalf("second call: %v", err)
	}

	reqs := srv.Requests()
	if len(reqs) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(reqs))
	}
	if reqs[0].Authorization == reqs[1].Authorization {
		t.Fatal("expected a new token for each call")
	}
}

func TestListPagingQuery(t *testing.T) {
	srv := newDirectServer(t)
	c := newDirectClient(t, srv.URL)

	if _, err := c.ListPresetVoices(context.Background(), ListOptions{PageNum: 2, PageSize: 50}); err != nil {
		t.Fatalf("list: %v", err)
	}
	rec, _ := srv.Last()
	if rec.Path != "/v1/general/presets-voices" || rec.RawQuery != "pageNum=2&pageSize=50" {
		t.Fatalf("unexpected request %s?%s", rec.Path, rec.RawQuery)
	}
}

func TestGatewayModeRoutesUnderPrefix(t *testing.T) {
	srv := apitest.New(apitest.Options{GatewayToken: "sk-test"})
	t.Cleanup(srv.Close)

	c, err := New().WithConfig(GatewayConfig(srv.URL, "sk-test")).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	resp, err := c.GetCustomVoice(context.Background(), "123456")
	if err != nil {
		t.Fatalf("get voice: %v", err)
	}
	if resp.Result().VoiceID != "123456" {
		t.Fatalf("voice id = %q", resp.Result().VoiceID)
	}

	rec, _ := srv.Last()
	if rec.Path != "/kling/v1/general/custom-voices/123456" {
		t.Fatalf("path = %q", rec.Path)
	}
	if rec.Authorization != "Bearer sk-test" {
		t.Fatalf("authorization = %q", rec.Authorization)
	}
}

func TestDeleteSendsJSONBody(t *testing.T) {
	srv := apitest.New(apitest.Options{GatewayToken: "sk-test"})
	t.Cleanup(srv.Close)
	c, err := New().WithConfig(GatewayConfig(srv.URL, "sk-test")).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if _, err := c.DeleteElement(context.Background(), "el-1"); err != nil {
		t.Fatalf("delete element: %v", err)
	}
	rec, _ := srv.Last()
	if rec.Method != http.MethodDelete || rec.Path != "/kling/v1/general/delete-elements" {
		t.Fatalf("unexpected route %s %s", rec.Method, rec.Path)
	}
	if string(rec.Body) != `{"element_id":"el-1"}` {
		t.Fatalf("body = %s", rec.Body)
	}

	if _, err := c.DeleteVoice(context.Background(), "v-1"); err != nil {
		t.Fatalf("delete voice: %v", err)
	}
	rec, _ = srv.Last()
	if rec.Path != "/kling/v1/general/delete-voices" || string(rec.Body) != `{"voice_id":"v-1"}` {
		t.Fatalf("unexpected delete voice request %s %s", rec.Path, rec.Body)
	}
}

func TestGatewayRejectsWrongToken(t *testing.T) {
	srv := apitest.New(apitest.Options{GatewayToken: "sk-test"})
	t.Cleanup(srv.Close)
	c, err := New().WithConfig(GatewayConfig(srv.URL, "sk-wrong")).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	resp, err := c.ListCustomVoices(context.Background(), ListOptions{})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized || apiErr.Message != "invalid token" || apiErr.Code != -1 {
		t.Fatalf("unexpected api error %+v", apiErr)
	}
	if resp == nil || len(resp.Body) == 0 {
		t.Fatal("expected raw body alongside the error")
	}
}

func TestRemoteErrorReportedVerbatim(t *testing.T) {
	srv := newDirectServer(t)
	srv.Handle(http.MethodPost, "/v1/general/custom-voices", func(w http.ResponseWriter, _ *http.Request) {
		apitest.WriteJSON(w, http.StatusOK, map[string]any{"code": 1201, "message": "voice_url is unreachable", "request_id": "req-remote"})
	})
	c := newDirectClient(t, srv.URL)

	resp, err := c.CreateVoice(context.Background(), CreateVoiceRequest{VoiceName: "v", VoiceURL: "https://example.com/a.mp3"})
	if !errors.Is(err, ErrRemote) {
		t.Fatalf("expected ErrRemote, got %v", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T", err)
	}
	if apiErr.Code != 1201 || apiErr.Message != "voice_url is unreachable" || apiErr.RequestID != "req-remote" {
		t.Fatalf("unexpected api error %+v", apiErr)
	}
	if resp == nil || resp.Succeeded() {
		t.Fatal("expected failed response to be returned")
	}
	if !strings.Contains(resp.PrettyBody(), "voice_url is unreachable") {
		t.Fatalf("expected pretty body to carry message, got %s", resp.PrettyBody())
	}
}

func TestExpiredClockIsRejectedByServer(t *testing.T) {
	srv := newDirectServer(t)
	cfg := DefaultConfig()
	cfg.BaseURL = srv.URL
	cfg.AccessKey = "AK1"
	cfg.SecretKey = "SK1"
	c, err := New().WithConfig(cfg).WithClock(fixedClock(clientNow.Add(-time.Hour))).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	_, err = c.ListCustomElements(context.Background(), ListOptions{})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized || apiErr.Code != middleware.CodeAuthExpired {
		t.Fatalf("unexpected api error %+v", apiErr)
	}
}

func TestMessageOnlySuccess(t *testing.T) {
	srv := newDirectServer(t)
	srv.Handle(http.MethodGet, "/v1/general/custom-elements", func(w http.ResponseWriter, _ *http.Request) {
		apitest.WriteJSON(w, http.StatusOK, map[string]any{"message": "success", "data": map[string]any{"task_id": "t1"}})
	})
	c := newDirectClient(t, srv.URL)

	resp, err := c.ListCustomElements(context.Background(), ListOptions{})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if resp.Result().TaskID != "t1" {
		t.Fatalf("task id = %q", resp.Result().TaskID)
	}
}

func TestMalformedResponseCarriesRawPayload(t *testing.T) {
	srv := newDirectServer(t)
	srv.Handle(http.MethodGet, "/v1/general/presets-elements", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>upstream down</html>"))
	})
	c := newDirectClient(t, srv.URL)

	resp, err := c.ListPresetElements(context.Background(), ListOptions{})
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
	var mErr *MalformedResponseError
	if !errors.As(err, &mErr) {
		t.Fatalf("expected MalformedResponseError, got %T", err)
	}
	if string(mErr.Raw) != "<html>upstream down</html>" || mErr.StatusCode != http.StatusBadGateway {
		t.Fatalf("unexpected malformed error %+v", mErr)
	}
	if resp == nil || resp.PrettyBody() != "<html>upstream down</html>" {
		t.Fatal("expected raw body to be returned")
	}
}

func TestGatewayStringErrorIsAPIError(t *testing.T) {
	srv := apitest.New(apitest.Options{GatewayToken: "sk-test"})
	t.Cleanup(srv.Close)
	srv.Handle(http.MethodGet, "/v1/general/custom-elements", func(w http.ResponseWriter, _ *http.Request) {
		apitest.WriteJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid request"})
	})
	c, err := New().WithConfig(GatewayConfig(srv.URL, "sk-test")).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	resp, err := c.ListCustomElements(context.Background(), ListOptions{})
	if errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("string error must decode as an envelope, got %v", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest || apiErr.Message != "invalid request" || apiErr.Code != -1 {
		t.Fatalf("unexpected api error %+v", apiErr)
	}
	if resp == nil || resp.Envelope.Error == nil || resp.Envelope.Error.Message != "invalid request" {
		t.Fatalf("unexpected envelope %+v", resp)
	}
}

func TestStringCodeIsAPIError(t *testing.T) {
	srv := newDirectServer(t)
	srv.Handle(http.MethodGet, "/v1/general/presets-voices", func(w http.ResponseWriter, _ *http.Request) {
		apitest.WriteJSON(w, http.StatusOK, map[string]any{"code": "1201", "message": "bad page"})
	})
	srv.Handle(http.MethodGet, "/v1/general/custom-voices", func(w http.ResponseWriter, _ *http.Request) {
		apitest.WriteJSON(w, http.StatusOK, map[string]any{"code": "invalid_param", "message": "bad page"})
	})
	c := newDirectClient(t, srv.URL)

	_, err := c.ListPresetVoices(context.Background(), ListOptions{})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != 1201 || apiErr.Message != "bad page" {
		t.Fatalf("unexpected api error %+v", apiErr)
	}

	resp, err := c.ListCustomVoices(context.Background(), ListOptions{})
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != -1 || resp.Envelope.CodeText != "invalid_param" {
		t.Fatalf("unexpected api error %+v, envelope %+v", apiErr, resp.Envelope)
	}
}

func TestOversizedResponseIsReported(t *testing.T) {
	srv := newDirectServer(t)
	body := `{"code":0,"message":"SUCCEED","data":{"task_id":"` + strings.Repeat("x", 64) + `"}}`
	srv.Handle(http.MethodGet, "/v1/general/presets-elements", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	})
	cfg := DefaultConfig()
	cfg.BaseURL = srv.URL
	cfg.AccessKey = "AK1"
	cfg.SecretKey = "SK1"
	cfg.MaxResponseBytes = 32
	c, err := New().WithConfig(cfg).WithClock(fixedClock(clientNow)).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	resp, err := c.ListPresetElements(context.Background(), ListOptions{})
	if !errors.Is(err, ErrResponseTooLarge) || !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected ErrResponseTooLarge, got %v", err)
	}
	var mErr *MalformedResponseError
	if !errors.As(err, &mErr) {
		t.Fatalf("expected MalformedResponseError, got %T", err)
	}
	if string(mErr.Raw) != body[:32] || mErr.StatusCode != http.StatusOK {
		t.Fatalf("unexpected malformed error %+v", mErr)
	}
	if resp == nil || len(resp.Body) != 32 || resp.Succeeded() {
		t.Fatal("expected truncated, unsuccessful response")
	}
	if got := c.MetricsSnapshot().Counters[MetricMalformedResponse]; got != 1 {
		t.Fatalf("malformed counter = %d", got)
	}

	cfg.MaxResponseBytes = int64(len(body))
	c, err = New().WithConfig(cfg).WithClock(fixedClock(clientNow)).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if _, err := c.ListPresetElements(context.Background(), ListOptions{}); err != nil {
		t.Fatalf("body at the limit must succeed, got %v", err)
	}
}

func TestTransportTimeout(t *testing.T) {
	srv := newDirectServer(t)
	srv.Handle(http.MethodGet, "/v1/general/custom-voices", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	cfg := DefaultConfig()
	cfg.BaseURL = srv.URL
	cfg.AccessKey = "AK1"
	cfg.SecretKey = "SK1"
	c, err := New().
		WithConfig(cfg).
		WithClock(fixedClock(clientNow)).
		WithHTTPClient(&http.Client{Timeout: 50 * time.Millisecond}).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	resp, err := c.ListCustomVoices(context.Background(), ListOptions{})
	if !errors.Is(err, ErrTransport) || !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected transport timeout, got %v", err)
	}
	if resp != nil {
		t.Fatal("expected no response on transport failure")
	}
	if got := c.MetricsSnapshot().Counters[MetricTransportError]; got != 1 {
		t.Fatalf("transport error counter = %d", got)
	}
}

func TestConnectionRefusedIsTransportError(t *testing.T) {
	srv := newDirectServer(t)
	c := newDirectClient(t, srv.URL)
	srv.Close()

	_, err := c.ListCustomElements(context.Background(), ListOptions{})
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
	if errors.Is(err, ErrTimeout) {
		t.Fatal("connection refused must not be reported as a timeout")
	}
}

func TestLocalValidationFailsBeforeNetwork(t *testing.T) {
	srv := newDirectServer(t)
	c := newDirectClient(t, srv.URL)
	ctx := context.Background()

	cases := []struct {
		name string
		call func() error
		want error
	}{
		{name: "element without name", call: func() error {
			_, err := c.CreateElement(ctx, CreateElementRequest{FrontalImage: "https://example.com/a.png"})
			return err
		}, want: ErrInvalidRequest},
		{name: "element with relative image", call: func() error {
			_, err := c.CreateElement(ctx, CreateElementRequest{ElementName: "e", FrontalImage: "/a.png"})
			return err
		}, want: ErrInvalidRequest},
		{name: "voice without url", call: func() error {
			_, err := c.CreateVoice(ctx, CreateVoiceRequest{VoiceName: "v"})
			return err
		}, want: ErrInvalidRequest},
		{name: "delete element without id", call: func() error {
			_, err := c.DeleteElement(ctx, " ")
			return err
		}, want: ErrInvalidRequest},
		{name: "id on list route", call: func() error {
			_, err := c.Call(ctx, OpPresetsVoices, CallOptions{ID: "1"})
			return err
		}, want: ErrInvalidRequest},
		{name: "unknown operation", call: func() error {
			_, err := c.Call(ctx, Operation("bogus"), CallOptions{})
			return err
		}, want: ErrUnknownOperation},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.call(); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}

	if n := len(srv.Requests()); n != 0 {
		t.Fatalf("expected no network calls, server saw %d", n)
	}
}

func TestClientMetricsCountOutcomes(t *testing.T) {
	srv := newDirectServer(t)
	srv.Handle(http.MethodGet, "/v1/general/presets-voices", func(w http.ResponseWriter, _ *http.Request) {
		apitest.WriteJSON(w, http.StatusOK, map[string]any{"code": 5000, "message": "server busy"})
	})
	c := newDirectClient(t, srv.URL)
	ctx := context.Background()

	_, _ = c.ListCustomVoices(ctx, ListOptions{})
	_, _ = c.ListPresetVoices(ctx, ListOptions{})

	snap := c.MetricsSnapshot()
	if snap.Counters[MetricTokenIssued] != 2 {
		t.Fatalf("tokens issued = %d", snap.Counters[MetricTokenIssued])
	}
	if snap.Counters[MetricRequestSuccess] != 1 || snap.Counters[MetricRemoteError] != 1 {
		t.Fatalf("unexpected counters %v", snap.Counters)
	}
	var samples uint64
	for _, n := range snap.Histograms[MetricRequestLatency] {
		samples += n
	}
	if samples != 2 {
		t.Fatalf("latency samples = %d", samples)
	}
}

func TestURLResolvesWithoutSending(t *testing.T) {
	c, err := New().WithConfig(GatewayConfig("http://localhost:3000/", "sk-x")).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	got, err := c.URL(OpCustomVoices, CallOptions{ID: "a b"})
	if err != nil {
		t.Fatalf("url: %v", err)
	}
	if got != "http://localhost:3000/kling/v1/general/custom-voices/a%20b" {
		t.Fatalf("url = %q", got)
	}
}
