package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"nurseconnect.org/internal/applications"
	"nurseconnect.org/internal/auth"
	"nurseconnect.org/internal/facilities"
	"nurseconnect.org/internal/obs"
	"nurseconnect.org/internal/shifts"
	"nurseconnect.org/internal/store/memory"
	"nurseconnect.org/internal/stream"
)

const (
	testOrigin   = "http://localhost:5173"
	testPassword = "password123"
)

type apiClient struct {
	baseURL string
	client  *http.Client
	store   *memory.Store
	events  *stream.Stream
	t       *testing.T
}

func newTestAPI(t *testing.T) *apiClient {
	t.Helper()

	restore := obs.SetLogger(zap.NewNop())
	t.Cleanup(restore)

	store := memory.New()
	events := stream.New()
	t.Cleanup(events.Close)

	tokens, err := auth.NewTokens("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewTokens: %v", err)
	}
	api := New(Deps{
		Shifts:       shifts.NewService(store, events),
		Facilities:   store,
		Applications: applications.NewService(store, store),
		Auth:         auth.NewService(store, store, tokens, auth.WithHashCost(4)),
		Stream:       events,
		Clock:        store,
		Version:      "test",
	}, Options{CORSOrigin: testOrigin})

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	return &apiClient{
		baseURL: srv.URL,
		client:  srv.Client(),
		store:   store,
		events:  events,
		t:       t,
	}
}

func (c *apiClient) do(method, path string, body any, headers map[string]string) *http.Response {
	c.t.Helper()
	var payload []byte
	if body != nil {
		if raw, ok := body.(string); ok {
			payload = []byte(raw)
		} else {
			var err error
			payload, err = json.Marshal(body)
			if err != nil {
				c.t.Fatalf("marshal body: %v", err)
			}
		}
	}
	req, err := http.NewRequest(method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("do request: %v", err)
	}
	return resp
}

func (c *apiClient) post(path string, body any, headers map[string]string) *http.Response {
	c.t.Helper()
	return c.do(http.MethodPost, path, body, headers)
}

func (c *apiClient) put(path string, body any, headers map[string]string) *http.Response {
	c.t.Helper()
	return c.do(http.MethodPut, path, body, headers)
}

func (c *apiClient) get(path string, params url.Values, headers map[string]string) *http.Response {
	c.t.Helper()
	if params != nil {
		path += "?" + params.Encode()
	}
	return c.do(http.MethodGet, path, nil, headers)
}

func (c *apiClient) registerFacility(name, email string) (int64, string) {
	c.t.Helper()
	resp := c.post("/api/facility-auth/register", map[string]any{
		"name":          name,
		"contact_email": email,
		"password":      testPassword,
	}, nil)
	if resp.StatusCode != http.StatusCreated {
		c.t.Fatalf("register status: %d", resp.StatusCode)
	}
	body := decode[map[string]any](c.t, resp)
	fac := body["facility"].(map[string]any)
	return int64(fac["id"].(float64)), body["token"].(string)
}

func (c *apiClient) addWorker(email string) auth.User {
	c.t.Helper()
	hash, err := auth.HashPassword(testPassword, 4)
	if err != nil {
		c.t.Fatalf("hash: %v", err)
	}
	return c.store.AddUser(auth.User{Email: email, FirstName: "Riley", LastName: "Morgan", Role: "nurse"}, hash)
}

func (c *apiClient) login(path, email string) string {
	c.t.Helper()
	resp := c.post(path, map[string]any{"email": email, "password": testPassword}, nil)
	if resp.StatusCode != http.StatusOK {
		c.t.Fatalf("login %s status: %d", path, resp.StatusCode)
	}
	return decode[map[string]any](c.t, resp)["token"].(string)
}

func (c *apiClient) createShift(facilityID int64, start time.Time, extra map[string]any) map[string]any {
	c.t.Helper()
	body := map[string]any{
		"facility_id": facilityID,
		"unit":        "ICU",
		"shift_type":  "day",
		"start_time":  start.Format(time.RFC3339),
		"end_time":    start.Add(12 * time.Hour).Format(time.RFC3339),
		"hourly_rate": 50,
	}
	for k, v := range extra {
		body[k] = v
	}
	resp := c.post("/api/shifts", body, nil)
	if resp.StatusCode != http.StatusCreated {
		c.t.Fatalf("create shift status: %d", resp.StatusCode)
	}
	return decode[map[string]any](c.t, resp)
}

func bearerHeader(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func decode[T any](t *testing.T, r *http.Response) T {
	t.Helper()
	defer r.Body.Close()
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func idOf(m map[string]any) int64 { return int64(m["id"].(float64)) }

func TestHealthAndRoot(t *testing.T) {
	api := newTestAPI(t)

	resp := api.get("/health", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health status: %d", resp.StatusCode)
	}
	body := decode[map[string]any](t, resp)
	if body["status"] != "ok" || body["timestamp"] == nil {
		t.Fatalf("unexpected health body: %v", body)
	}

	resp = api.get("/", nil, nil)
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	if resp.StatusCode != http.StatusOK || !strings.Contains(buf.String(), "running") {
		t.Fatalf("unexpected root response: %d %q", resp.StatusCode, buf.String())
	}
}

func TestCreateShiftForcesOpenStatus(t *testing.T) {
	api := newTestAPI(t)
	facilityID, _ := api.registerFacility("General", "ops@general.test")

	resp := api.post("/api/shifts", map[string]any{
		"facility_id": facilityID,
		"unit":        "ICU",
		"shift_type":  "day",
		"start_time":  "2025-03-01T07:00:00Z",
		"end_time":    "2025-03-01T19:00:00Z",
		"hourly_rate": 50,
		"status":      "filled",
	}, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	sh := decode[map[string]any](t, resp)
	if sh["status"] != "open" {
		t.Fatalf("expected open status, got %v", sh["status"])
	}
	if sh["facility_name"] != "General" {
		t.Fatalf("expected joined facility name, got %v", sh["facility_name"])
	}
	reqs, ok := sh["requirements"].([]any)
	if !ok || len(reqs) != 0 {
		t.Fatalf("expected empty requirements list, got %v", sh["requirements"])
	}
}

func TestCreateShiftMissingFieldsWritesNothing(t *testing.T) {
	api := newTestAPI(t)
	facilityID, _ := api.registerFacility("General", "ops@general.test")

	resp := api.post("/api/shifts", map[string]any{
		"facility_id": facilityID,
		"unit":        "ICU",
		"start_time":  "2025-03-01T07:00:00Z",
	}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	body := decode[map[string]any](t, resp)
	if body["error"] != "Missing required fields" {
		t.Fatalf("unexpected error: %v", body["error"])
	}
	fields := body["fields"].([]any)
	if len(fields) != 3 {
		t.Fatalf("expected shift_type, end_time, hourly_rate missing; got %v", fields)
	}

	list := decode[[]map[string]any](t, api.get("/api/shifts", nil, nil))
	if len(list) != 0 {
		t.Fatalf("expected no shifts persisted, got %d", len(list))
	}
}

func TestCreateShiftUnknownFacility(t *testing.T) {
	api := newTestAPI(t)
	resp := api.post("/api/shifts", map[string]any{
		"facility_id": 77,
		"unit":        "ICU",
		"shift_type":  "day",
		"start_time":  "2025-03-01T07:00:00Z",
		"end_time":    "2025-03-01T19:00:00Z",
		"hourly_rate": 50,
	}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestListShiftsFiltersAndOrder(t *testing.T) {
	api := newTestAPI(t)
	fa, _ := api.registerFacility("Alpha", "a@alpha.test")
	fb, _ := api.registerFacility("Beta", "b@beta.test")

	day := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	late := api.createShift(fa, day.Add(19*time.Hour), nil)
	early := api.createShift(fb, day.Add(7*time.Hour), nil)
	other := api.createShift(fa, day.Add(31*time.Hour), nil)
	filled := api.createShift(fa, day.Add(9*time.Hour), nil)

	edit := map[string]any{
		"facility_id": fa,
		"unit":        "ICU",
		"shift_type":  "day",
		"start_time":  day.Add(9 * time.Hour).Format(time.RFC3339),
		"end_time":    day.Add(21 * time.Hour).Format(time.RFC3339),
		"hourly_rate": 50,
		"status":      "filled",
	}
	resp := api.put("/api/shifts/edit/"+itoa(idOf(filled)), edit, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("edit status: %d", resp.StatusCode)
	}
	resp.Body.Close()

	all := decode[[]map[string]any](t, api.get("/api/shifts", nil, nil))
	wantOrder := []int64{idOf(early), idOf(filled), idOf(late), idOf(other)}
	if len(all) != len(wantOrder) {
		t.Fatalf("expected %d shifts, got %d", len(wantOrder), len(all))
	}
	for i, id := range wantOrder {
		if idOf(all[i]) != id {
			t.Fatalf("position %d: expected shift %d, got %d", i, id, idOf(all[i]))
		}
	}

	got := decode[[]map[string]any](t, api.get("/api/shifts", url.Values{
		"status":    {"open"},
		"startDate": {"2025-03-01"},
	}, nil))
	if len(got) != 2 || idOf(got[0]) != idOf(early) || idOf(got[1]) != idOf(late) {
		t.Fatalf("unexpected open shifts on 2025-03-01: %v", got)
	}

	got = decode[[]map[string]any](t, api.get("/api/shifts", url.Values{"facility_id": {itoa(fa)}}, nil))
	if len(got) != 3 {
		t.Fatalf("expected 3 shifts for facility %d, got %d", fa, len(got))
	}

	got = decode[[]map[string]any](t, api.get("/api/shifts", url.Values{"endDate": {"2025-03-01"}}, nil))
	for _, sh := range got {
		if idOf(sh) == idOf(late) || idOf(sh) == idOf(other) {
			t.Fatalf("shift %d ends after 2025-03-01", idOf(sh))
		}
	}

	resp = api.get("/api/shifts", url.Values{"facility_id": {"abc"}}, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad facility_id, got %d", resp.StatusCode)
	}
}

func TestEditMissingShiftReturnsNotFound(t *testing.T) {
	api := newTestAPI(t)
	resp := api.put("/api/shifts/edit/999", map[string]any{"unit": "ICU"}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}

	resp = api.put("/api/shifts/edit/999", "{not json", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for malformed body, got %d", resp.StatusCode)
	}
}

func TestEditRejectsUnknownStatus(t *testing.T) {
	api := newTestAPI(t)
	fa, _ := api.registerFacility("Alpha", "a@alpha.test")
	sh := api.createShift(fa, time.Date(2025, 3, 1, 7, 0, 0, 0, time.UTC), nil)

	resp := api.put("/api/shifts/edit/"+itoa(idOf(sh)), map[string]any{
		"facility_id":  fa,
		"unit":         "ER",
		"shift_type":   "night",
		"start_time":   "2025-03-01T19:00:00Z",
		"end_time":     "2025-03-02T07:00:00Z",
		"hourly_rate":  60,
		"status":       "archived",
		"requirements": []string{"BLS"},
	}, nil)
	body := decode[map[string]any](t, resp)
	if resp.StatusCode != http.StatusBadRequest || body["error"] != "Invalid fields" {
		t.Fatalf("expected 400 invalid fields, got %d %v", resp.StatusCode, body)
	}
}

func TestDeleteShift(t *testing.T) {
	api := newTestAPI(t)
	fa, _ := api.registerFacility("Alpha", "a@alpha.test")
	sh := api.createShift(fa, time.Date(2025, 3, 1, 7, 0, 0, 0, time.UTC), nil)
	path := "/api/shifts/" + itoa(idOf(sh))

	resp := api.do(http.MethodDelete, "/api/shifts/999", nil, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}

	resp = api.do(http.MethodDelete, path, nil, nil)
	body := decode[map[string]any](t, resp)
	if resp.StatusCode != http.StatusOK || body["success"] != true {
		t.Fatalf("unexpected delete response: %d %v", resp.StatusCode, body)
	}

	resp = api.get(path, nil, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", resp.StatusCode)
	}
}

func TestRegisterNeverReturnsHash(t *testing.T) {
	api := newTestAPI(t)
	resp := api.post("/api/facility-auth/register", map[string]any{
		"name":          "General",
		"contact_email": "OPS@General.test",
		"password":      testPassword,
	}, nil)
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if strings.Contains(buf.String(), "password") || strings.Contains(buf.String(), "$2a$") {
		t.Fatalf("response leaks credential material: %s", buf.String())
	}

	dup := api.post("/api/facility-auth/register", map[string]any{
		"name":          "General Again",
		"contact_email": "ops@general.test",
		"password":      testPassword,
	}, nil)
	dup.Body.Close()
	if dup.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate email, got %d", dup.StatusCode)
	}

	short := api.post("/api/facility-auth/register", map[string]any{
		"name":          "Tiny",
		"contact_email": "tiny@clinic.test",
		"password":      "short",
	}, nil)
	short.Body.Close()
	if short.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for short password, got %d", short.StatusCode)
	}
}

func TestLoginVerifiesPasswords(t *testing.T) {
	api := newTestAPI(t)
	api.registerFacility("General", "ops@general.test")
	api.addWorker("nurse@example.test")

	for _, path := range []string{"/api/auth/login", "/api/facility-auth/login"} {
		email := "nurse@example.test"
		if strings.Contains(path, "facility") {
			email = "ops@general.test"
		}
		resp := api.post(path, map[string]any{"email": email, "password": "wrong-password"}, nil)
		body := decode[map[string]any](t, resp)
		if resp.StatusCode != http.StatusUnauthorized || body["error"] != "Invalid credentials" {
			t.Fatalf("%s wrong password: %d %v", path, resp.StatusCode, body)
		}

		resp = api.post(path, map[string]any{"email": "nobody@example.test", "password": testPassword}, nil)
		unknown := decode[map[string]any](t, resp)
		if resp.StatusCode != http.StatusUnauthorized || unknown["error"] != body["error"] {
			t.Fatalf("%s unknown identity: %d %v", path, resp.StatusCode, unknown)
		}

		if token := api.login(path, email); token == "" {
			t.Fatalf("%s: empty token", path)
		}
	}
}

func TestInvalidBearerTokenRejected(t *testing.T) {
	api := newTestAPI(t)
	resp := api.get("/api/shifts", nil, bearerHeader("not-a-token"))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	if resp.Header.Get("WWW-Authenticate") == "" {
		t.Fatal("expected WWW-Authenticate header")
	}
}

func TestApplicationLifecycle(t *testing.T) {
	api := newTestAPI(t)
	fa, facilityToken := api.registerFacility("Alpha", "a@alpha.test")
	_, otherFacilityToken := api.registerFacility("Beta", "b@beta.test")
	api.addWorker("one@example.test")
	api.addWorker("two@example.test")
	w1 := api.login("/api/auth/login", "one@example.test")
	w2 := api.login("/api/auth/login", "two@example.test")

	sh := api.createShift(fa, time.Date(2025, 3, 1, 7, 0, 0, 0, time.UTC), nil)
	shiftID := idOf(sh)

	resp := api.post("/api/applications", map[string]any{"shift_id": shiftID}, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("anonymous apply: expected 401, got %d", resp.StatusCode)
	}
	resp = api.post("/api/applications", map[string]any{"shift_id": shiftID}, bearerHeader(facilityToken))
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("facility apply: expected 403, got %d", resp.StatusCode)
	}

	resp = api.post("/api/applications", map[string]any{"shift_id": shiftID, "note": "ICU certified"}, bearerHeader(w1))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("apply: expected 201, got %d", resp.StatusCode)
	}
	app1 := decode[map[string]any](t, resp)
	if app1["status"] != "pending" {
		t.Fatalf("expected pending, got %v", app1["status"])
	}

	resp = api.post("/api/applications", map[string]any{"shift_id": shiftID}, bearerHeader(w1))
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate apply: expected 409, got %d", resp.StatusCode)
	}

	resp = api.post("/api/applications", map[string]any{"shift_id": shiftID}, bearerHeader(w2))
	app2 := decode[map[string]any](t, resp)

	mine := decode[[]map[string]any](t, api.get("/api/applications", nil, bearerHeader(w1)))
	if len(mine) != 1 || idOf(mine[0]) != idOf(app1) {
		t.Fatalf("worker should only see own applications: %v", mine)
	}

	resp = api.get("/api/applications", url.Values{"shift_id": {itoa(shiftID)}}, bearerHeader(otherFacilityToken))
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("foreign facility listing: expected 403, got %d", resp.StatusCode)
	}

	statusPath := "/api/applications/" + itoa(idOf(app1)) + "/status"
	resp = api.put(statusPath, map[string]any{"status": "accepted"}, bearerHeader(otherFacilityToken))
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("foreign facility decide: expected 403, got %d", resp.StatusCode)
	}

	resp = api.put(statusPath, map[string]any{"status": "accepted"}, bearerHeader(facilityToken))
	accepted := decode[map[string]any](t, resp)
	if resp.StatusCode != http.StatusOK || accepted["status"] != "accepted" {
		t.Fatalf("accept: %d %v", resp.StatusCode, accepted)
	}

	filled := decode[map[string]any](t, api.get("/api/shifts/"+itoa(shiftID), nil, nil))
	if filled["status"] != "filled" {
		t.Fatalf("expected shift filled, got %v", filled["status"])
	}

	all := decode[[]map[string]any](t, api.get("/api/applications", url.Values{"shift_id": {itoa(shiftID)}}, bearerHeader(facilityToken)))
	for _, app := range all {
		if idOf(app) == idOf(app2) && app["status"] != "rejected" {
			t.Fatalf("competing application should be rejected, got %v", app["status"])
		}
	}

	resp = api.put("/api/applications/"+itoa(idOf(app2))+"/status", map[string]any{"status": "withdrawn"}, bearerHeader(w2))
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("withdraw decided application: expected 409, got %d", resp.StatusCode)
	}

	resp = api.post("/api/applications", map[string]any{"shift_id": shiftID}, bearerHeader(api.login("/api/auth/login", "two@example.test")))
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("apply to filled shift: expected 409, got %d", resp.StatusCode)
	}
}

func TestErrorBodiesCarryRequestID(t *testing.T) {
	api := newTestAPI(t)
	resp := api.get("/api/shifts/12345", nil, nil)
	body := decode[map[string]any](t, resp)
	rid := resp.Header.Get(requestIDHeader)
	if rid == "" || body["request_id"] != rid {
		t.Fatalf("request id mismatch: header %q body %v", rid, body["request_id"])
	}
}

func TestFacilityDirectory(t *testing.T) {
	api := newTestAPI(t)
	api.registerFacility("Zeta", "z@zeta.test")
	id, _ := api.registerFacility("Alpha", "a@alpha.test")

	list := decode[[]facilities.Facility](t, api.get("/api/facilities", nil, nil))
	if len(list) != 2 || list[0].Name != "Alpha" {
		t.Fatalf("expected directory ordered by name, got %+v", list)
	}

	fac := decode[facilities.Facility](t, api.get("/api/facilities/"+itoa(id), nil, nil))
	if fac.ID != id {
		t.Fatalf("unexpected facility: %+v", fac)
	}

	resp := api.get("/api/facilities/9999", nil, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
