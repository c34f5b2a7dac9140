package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/carebook/appointment-booking/internal/api"
	"github.com/carebook/appointment-booking/internal/auth"
	"github.com/carebook/appointment-booking/internal/booking"
	redisclient "github.com/carebook/appointment-booking/internal/redis"
)

type fakeClock struct {
	t time.Time
}

func (c fakeClock) Now() time.Time { return c.t }

func testNow() time.Time {
	return time.Date(2024, 1, 9, 12, 0, 0, 0, time.Local)
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	clock := fakeClock{t: testNow()}
	repo := booking.NewMemoryRepository(clock)
	directory := booking.NewMemoryDirectory(booking.Doctor{
		ID:             "d1",
		Name:           "Dr. Meera Kulkarni",
		Specialty:      "Cardiology",
		AvailableToday: true,
		Timing:         "Mon-Fri 09:30 AM - 06:15 PM",
	})

	svc := booking.NewService(repo, directory, redisclient.NewLocalLocker(), booking.WithClock(clock))

	router := api.NewRouter(api.RouterConfig{
		Service:   svc,
		Queries:   booking.NewQueries(repo),
		Calendar:  booking.NewCalendar(repo),
		Directory: directory,
		Clock:     clock,
		OTP:       auth.NewOTPService(rdb, "test-secret", 5*time.Minute, time.Hour),
		JWTSecret: "test-secret",
		Redis:     rdb,
		Env:       "dev",
		Version:   "test",
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any) (*http.Response, map[string]any) {
	t.Helper()

	raw, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func getJSON(t *testing.T, url string, out any) *http.Response {
	t.Helper()

	resp, err := http.Get(url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp
}

func bookBody(startsAt time.Time) map[string]any {
	return map[string]any{
		"doctor_id": "d1",
		"starts_at": startsAt.Format(time.RFC3339),
		"name":      "Asha",
		"age":       30,
		"gender":    "Female",
		"mobile":    "9876543210",
	}
}

func TestBookAppointmentEndpoint(t *testing.T) {
	srv := newTestServer(t)

	startsAt := time.Date(2024, 1, 10, 9, 30, 0, 0, time.Local)
	resp, body := postJSON(t, srv.URL+"/appointments", bookBody(startsAt))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, "pending", body["status"])
	require.Len(t, body["token"], 4)

	// Same slot again conflicts.
	resp, body = postJSON(t, srv.URL+"/appointments", bookBody(startsAt))
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.Equal(t, "slot_taken", body["error"])
}

func TestBookValidationEndpoint(t *testing.T) {
	srv := newTestServer(t)

	req := bookBody(time.Date(2024, 1, 10, 9, 30, 0, 0, time.Local))
	req["mobile"] = "12345"

	resp, body := postJSON(t, srv.URL+"/appointments", req)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "validation_error", body["error"])
	require.Equal(t, "mobile", body["field"])
}

func TestBookUnknownDoctorEndpoint(t *testing.T) {
	srv := newTestServer(t)

	req := bookBody(time.Date(2024, 1, 10, 9, 30, 0, 0, time.Local))
	req["doctor_id"] = "missing"

	resp, body := postJSON(t, srv.URL+"/appointments", req)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "doctor_not_found", body["error"])
}

func TestConfirmAndCancelEndpoints(t *testing.T) {
	srv := newTestServer(t)

	resp, body := postJSON(t, srv.URL+"/appointments",
		bookBody(time.Date(2024, 1, 10, 10, 0, 0, 0, time.Local)))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id := body["id"].(string)

	resp, body = postJSON(t, srv.URL+"/appointments/"+id+"/confirm", map[string]any{})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "confirmed", body["status"])

	// Empty reason is rejected.
	resp, body = postJSON(t, srv.URL+"/appointments/"+id+"/cancel",
		map[string]any{"reason": "  "})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "invalid_argument", body["error"])

	resp, body = postJSON(t, srv.URL+"/appointments/"+id+"/cancel",
		map[string]any{"reason": "Patient unavailable"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "cancelled", body["status"])
	require.Equal(t, "Patient unavailable", body["cancel_reason"])

	// Confirming a cancelled appointment is refused.
	resp, body = postJSON(t, srv.URL+"/appointments/"+id+"/confirm", map[string]any{})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.Equal(t, "invalid_status_transition", body["error"])
}

func TestSlotsEndpoint(t *testing.T) {
	srv := newTestServer(t)

	var slots []api.SlotResponse
	resp := getJSON(t, srv.URL+"/doctors/d1/slots?date=2024-01-10&days=2", &slots)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, slots, 2*booking.SlotsPerDay)

	// Book one and watch it disappear.
	_, _ = postJSON(t, srv.URL+"/appointments",
		bookBody(time.Date(2024, 1, 10, 9, 30, 0, 0, time.Local)))

	resp = getJSON(t, srv.URL+"/doctors/d1/slots?date=2024-01-10&days=2", &slots)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, slots, 2*booking.SlotsPerDay-1)
}

func TestSlotsEndpointBadRange(t *testing.T) {
	srv := newTestServer(t)

	var body map[string]any
	resp := getJSON(t, srv.URL+"/doctors/d1/slots?days=0", &body)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "invalid_range", body["error"])
}

func TestDoctorsEndpoints(t *testing.T) {
	srv := newTestServer(t)

	var doctors []api.DoctorResponse
	resp := getJSON(t, srv.URL+"/doctors", &doctors)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, doctors, 1)
	require.Equal(t, "d1", doctors[0].ID)

	var doctor api.DoctorResponse
	resp = getJSON(t, srv.URL+"/doctors/d1", &doctor)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "Dr. Meera Kulkarni", doctor.Name)

	var errBody map[string]any
	resp = getJSON(t, srv.URL+"/doctors/missing", &errBody)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDoctorDashboardEndpoints(t *testing.T) {
	srv := newTestServer(t)

	for i, start := range []time.Time{
		time.Date(2024, 1, 10, 9, 30, 0, 0, time.Local),
		time.Date(2024, 1, 10, 15, 30, 0, 0, time.Local),
	} {
		req := bookBody(start)
		req["name"] = fmt.Sprintf("Patient %d", i)
		resp, _ := postJSON(t, srv.URL+"/appointments", req)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	var appts []api.AppointmentResponse
	resp := getJSON(t, srv.URL+"/doctors/d1/appointments", &appts)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, appts, 2)
	require.True(t, appts[0].StartsAt.Before(appts[1].StartsAt))

	resp = getJSON(t, srv.URL+"/doctors/d1/appointments?patientName=patient+1", &appts)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, appts, 1)

	var next api.AppointmentResponse
	resp = getJSON(t, srv.URL+"/doctors/d1/appointments/next", &next)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "Patient 0", next.PatientName)
}

func TestOTPLoginFlow(t *testing.T) {
	srv := newTestServer(t)

	// Book something under the mobile we log in with.
	resp, _ := postJSON(t, srv.URL+"/appointments",
		bookBody(time.Date(2024, 1, 10, 11, 0, 0, 0, time.Local)))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := postJSON(t, srv.URL+"/auth/otp/request",
		map[string]any{"mobile": "9876543210"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	code := body["code"].(string) // dev env returns the code

	resp, body = postJSON(t, srv.URL+"/auth/otp/verify",
		map[string]any{"mobile": "9876543210", "code": code})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	token := body["token"].(string)
	require.NotEmpty(t, token)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/me/appointments", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	meResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer meResp.Body.Close()
	require.Equal(t, http.StatusOK, meResp.StatusCode)

	var mine []api.AppointmentResponse
	require.NoError(t, json.NewDecoder(meResp.Body).Decode(&mine))
	require.Len(t, mine, 1)
	require.Equal(t, "9876543210", mine[0].Mobile)
}

func TestMeRequiresToken(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/me/appointments")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestOTPVerifyWrongCode(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := postJSON(t, srv.URL+"/auth/otp/request",
		map[string]any{"mobile": "9876543210"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := postJSON(t, srv.URL+"/auth/otp/verify",
		map[string]any{"mobile": "9876543210", "code": "000000"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "code_mismatch", body["error"])
}
