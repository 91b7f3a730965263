package router

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hospital-frontdesk/internal/allocation"
	"github.com/iliyamo/hospital-frontdesk/internal/database"
	"github.com/iliyamo/hospital-frontdesk/internal/document"
	"github.com/iliyamo/hospital-frontdesk/internal/handler"
	"github.com/iliyamo/hospital-frontdesk/internal/metrics"
	"github.com/iliyamo/hospital-frontdesk/internal/middleware"
	"github.com/iliyamo/hospital-frontdesk/internal/model"
	"github.com/iliyamo/hospital-frontdesk/internal/repository"
	"github.com/iliyamo/hospital-frontdesk/internal/utils"
)

const secret = "router-secret"

type fixture struct {
	e       *echo.Echo
	db      *sql.DB
	rooms   *repository.RoomRepo
	room    *model.Room
	patient *model.Patient
	doctor  *model.Doctor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(ctx, db, database.SQLite))

	rooms := repository.NewRoomRepo(db)
	admissions := repository.NewAdmissionRepo(db, time.UTC)
	patients := repository.NewPatientRepo(db)
	doctors := repository.NewDoctorRepo(db)
	templates := repository.NewTemplateRepo(db)

	f := &fixture{
		db:      db,
		rooms:   rooms,
		room:    &model.Room{RoomNumber: "101", Type: model.RoomGeneral, BedCount: 1, PricePerDay: decimal.NewFromInt(1500), Department: "Medicine", IsActive: true},
		patient: &model.Patient{Name: "Ravi Kumar", Age: 54, Problem: "chest pain"},
		doctor:  &model.Doctor{Name: "Dr. Shah", Department: "Cardiology", IsActive: true},
	}
	require.NoError(t, rooms.Create(ctx, f.room))
	require.NoError(t, patients.Create(ctx, f.patient))
	require.NoError(t, doctors.Create(ctx, f.doctor))

	reg := prometheus.NewRegistry()
	orch := allocation.New(rooms, admissions, patients, doctors, zerolog.Nop())
	orch.SetMetrics(metrics.NewAllocation(reg))

	resolver := document.NewResolver(templates, zerolog.Nop())
	renderer := document.NewRenderer(admissions, resolver, time.UTC, "City Hospital", zerolog.Nop())

	h := Handlers{
		Health:    &handler.HealthHandler{DB: db},
		Rooms:     handler.NewRoomHandler(rooms, admissions, orch),
		Admission: handler.NewAdmissionHandler(orch, admissions),
		Documents: handler.NewDocumentHandler(renderer, resolver, templates, "City Hospital"),
		Doctors:   &handler.DoctorHandler{Doctors: doctors},
	}
	opts := Options{JWTSecret: secret, Gatherer: reg}

	f.e = echo.New()
	RegisterRoutes(f.e, h, opts)
	RegisterV1(f.e, h, opts)
	return f
}

func (f *fixture) do(t *testing.T, method, path, role, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if role != "" {
		tok, err := utils.NewAccessToken(secret, 1, role, 5)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+tok.Token)
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m), rec.Body.String())
	return m
}

func (f *fixture) admitBody(bed int) string {
	b, _ := json.Marshal(allocation.Draft{PatientID: f.patient.ID, DoctorID: f.doctor.ID, RoomID: f.room.ID, BedNumber: bed, Notes: "observation"})
	return string(b)
}

func TestHealthAndAuth(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/healthz", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/v1/rooms", "", "").Code)
	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodGet, "/v1/rooms", "CUSTOMER", "").Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/v1/rooms", middleware.RoleFrontDesk, "").Code)
}

func TestListRoomsShowsSuggestedDeposit(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/v1/rooms?active=true", middleware.RoleFrontDesk, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rooms := decode(t, rec)["rooms"].([]any)
	require.Len(t, rooms, 1)
	r := rooms[0].(map[string]any)
	assert.Equal(t, "101", r["room_number"])
	assert.Equal(t, "4500.00", r["suggested_deposit"])
	assert.Equal(t, float64(1), r["free_beds"])

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/v1/rooms?active=maybe", middleware.RoleFrontDesk, "").Code)

	path := "/v1/rooms/" + itoa(f.room.ID) + "/active"
	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodPatch, path, middleware.RoleFrontDesk, `{"active":false}`).Code)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPatch, path, middleware.RoleAdmin, `{"active":false}`).Code)
	rec = f.do(t, http.MethodGet, "/v1/rooms", middleware.RoleFrontDesk, "")
	assert.Empty(t, decode(t, rec)["rooms"])
	rec = f.do(t, http.MethodGet, "/v1/rooms?active=false", middleware.RoleFrontDesk, "")
	assert.Len(t, decode(t, rec)["rooms"], 1)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPatch, path, middleware.RoleAdmin, `{}`).Code)

	// a deactivated room takes no new admissions
	rec = f.do(t, http.MethodPost, "/v1/admissions", middleware.RoleFrontDesk, f.admitBody(1))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "RoomInactive", decode(t, rec)["code"])
	rec = f.do(t, http.MethodGet, "/v1/rooms/"+itoa(f.room.ID), middleware.RoleFrontDesk, "")
	assert.Equal(t, float64(0), decode(t, rec)["occupied_beds"])
}

func TestStorageFailureIsServiceUnavailable(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.Close())

	for _, path := range []string{
		"/v1/rooms",
		"/v1/rooms/" + itoa(f.room.ID) + "/beds",
		"/v1/patients/" + itoa(f.patient.ID) + "/admissions",
		"/v1/admissions/some-id/documents/receipt",
		"/v1/doctors",
	} {
		rec := f.do(t, http.MethodGet, path, middleware.RoleFrontDesk, "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, path)
		assert.Equal(t, "PersistenceFailure", decode(t, rec)["code"], path)
	}
	assert.Equal(t, http.StatusServiceUnavailable, f.do(t, http.MethodGet, "/healthz", "", "").Code)
}

func TestAdmitThenFullThenDischarge(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/v1/admissions", middleware.RoleFrontDesk, f.admitBody(1))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "Committed", body["state"])
	adm := body["admission"].(map[string]any)
	id := adm["id"].(string)
	assert.Equal(t, "Direct", adm["admission_type"])
	assert.Equal(t, "4500", adm["deposit"])

	// the only bed is gone
	rec = f.do(t, http.MethodPost, "/v1/admissions", middleware.RoleFrontDesk, f.admitBody(1))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "BedNumberTaken", decode(t, rec)["code"])

	rec = f.do(t, http.MethodGet, "/v1/rooms/"+itoa(f.room.ID)+"/beds", middleware.RoleFrontDesk, "")
	require.Equal(t, http.StatusOK, rec.Code)
	beds := decode(t, rec)["beds"].([]any)
	require.Len(t, beds, 1)
	assert.Equal(t, id, beds[0].(map[string]any)["admission_id"])

	rec = f.do(t, http.MethodPost, "/v1/admissions/"+id+"/discharge", middleware.RoleFrontDesk, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Discharged", decode(t, rec)["status"])

	// repeating the discharge frees nothing
	rec = f.do(t, http.MethodPost, "/v1/admissions/"+id+"/discharge", middleware.RoleFrontDesk, "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = f.do(t, http.MethodGet, "/v1/rooms/"+itoa(f.room.ID), middleware.RoleFrontDesk, "")
	assert.Equal(t, float64(0), decode(t, rec)["occupied_beds"])
}

func TestAdmitValidationErrors(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/v1/admissions", middleware.RoleFrontDesk, `{"doctor_id":1,"room_id":1,"bed_number":1}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "MissingPatient", decode(t, rec)["code"])

	rec = f.do(t, http.MethodPost, "/v1/admissions", middleware.RoleFrontDesk, f.admitBody(3))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "BedNumberOutOfRange", body["code"])
	assert.Contains(t, body["error"], "[1, 1]")

	rec = f.do(t, http.MethodPost, "/v1/admissions", middleware.RoleFrontDesk,
		`{"patient_id":1,"doctor_id":1,"room_id":999,"bed_number":1}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPost, "/v1/admissions", middleware.RoleFrontDesk, `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCapacityExceededAsksForRefresh(t *testing.T) {
	f := newFixture(t)
	// another desk took the last bed between listing and submitting
	_, err := f.rooms.TryReserveBed(context.Background(), f.room.ID)
	require.NoError(t, err)

	rec := f.do(t, http.MethodPost, "/v1/admissions", middleware.RoleFrontDesk, f.admitBody(1))
	require.Equal(t, http.StatusConflict, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "CapacityExceeded", body["code"])
	assert.Equal(t, true, body["refresh"])

	rec = f.do(t, http.MethodPost, "/v1/rooms/"+itoa(f.room.ID)+"/release", middleware.RoleFrontDesk, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), decode(t, rec)["occupied_beds"])

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPost, "/v1/rooms/999/release", middleware.RoleFrontDesk, "").Code)
}

func TestDocuments(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/v1/admissions", middleware.RoleFrontDesk, f.admitBody(1))
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode(t, rec)["admission"].(map[string]any)["id"].(string)

	rec = f.do(t, http.MethodGet, "/v1/admissions/"+id+"/documents/admission-form", middleware.RoleFrontDesk, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	doc := decode(t, rec)
	assert.True(t, strings.HasPrefix(doc["document_number"].(string), "ADM-"))
	assert.Len(t, doc["verification_code"], 12)
	assert.Nil(t, doc["template"])

	rec = f.do(t, http.MethodGet, "/v1/admissions/"+id+"/documents/receipt?paid=1000", middleware.RoleFrontDesk, "")
	require.Equal(t, http.StatusOK, rec.Code)
	doc = decode(t, rec)
	assert.Equal(t, "partial", doc["payment_status"])
	assert.Equal(t, "3500", doc["balance_due"])

	rec = f.do(t, http.MethodGet, "/v1/admissions/"+id+"/documents/consent-form?variant=lab", middleware.RoleFrontDesk, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode(t, rec)["printable"])

	rec = f.do(t, http.MethodGet, "/v1/admissions/"+id+"/documents/consent-form?variant=dental", middleware.RoleFrontDesk, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/v1/admissions/"+id+"/documents/discharge-summary", middleware.RoleFrontDesk, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/v1/admissions/nope/documents/receipt", middleware.RoleFrontDesk, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDirectoryAndHistory(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/v1/doctors", middleware.RoleFrontDesk, "")
	require.Equal(t, http.StatusOK, rec.Code)
	doctors := decode(t, rec)["doctors"].([]any)
	require.Len(t, doctors, 1)
	assert.Equal(t, "Dr. Shah", doctors[0].(map[string]any)["name"])

	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/v1/admissions", middleware.RoleFrontDesk, f.admitBody(1)).Code)
	rec = f.do(t, http.MethodGet, "/v1/patients/"+itoa(f.patient.ID)+"/admissions", middleware.RoleFrontDesk, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["admissions"], 1)
}

func TestTemplates(t *testing.T) {
	f := newFixture(t)
	path := "/v1/templates/admission/receipt"

	rec := f.do(t, http.MethodGet, path, middleware.RoleFrontDesk, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, decode(t, rec)["template"])

	body := `{"name":"Receipt A5","url":"https://files.example/receipt.pdf","mime_type":"application/pdf"}`
	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodPut, path, middleware.RoleFrontDesk, body).Code)
	rec = f.do(t, http.MethodPut, path, middleware.RoleAdmin, body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodGet, path, middleware.RoleFrontDesk, "")
	tpl := decode(t, rec)["template"].(map[string]any)
	assert.Equal(t, "Receipt A5", tpl["name"])
	assert.Equal(t, "https://files.example/receipt.pdf", tpl["url"])

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPut, path, middleware.RoleAdmin, `{"name":"x"}`).Code)
}

func TestConsentText(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/v1/consents/treatment?patient=Ravi%20Kumar", middleware.RoleFrontDesk, "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Contains(t, body["text"], "Ravi Kumar")
	assert.Contains(t, body["text"], "City Hospital")
	assert.Equal(t, false, body["decision"].(map[string]any)["acknowledged"])

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/v1/consents/dental", middleware.RoleFrontDesk, "").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/v1/admissions", middleware.RoleFrontDesk, f.admitBody(1)).Code)

	rec := f.do(t, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "frontdesk_allocation_")
}

func itoa(n uint64) string {
	b, _ := json.Marshal(n)
	return string(b)
}
