package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"clinic-app-server/internal/agenda"
	"clinic-app-server/internal/booking"
	"clinic-app-server/internal/config"
	"clinic-app-server/internal/filter"
	"clinic-app-server/internal/identity"
	"clinic-app-server/internal/middleware"
	"clinic-app-server/internal/models"
	"clinic-app-server/internal/notes"
	"clinic-app-server/internal/store"
	"clinic-app-server/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testCfg = &config.Config{
	Environment:               "test",
	JWTSecret:                 "test-secret",
	JWTRefreshSecret:          "test-refresh-secret",
	JWTExpirationMinutes:      15,
	JWTRefreshExpirationHours: 1,
}

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	return db, mock
}

func bearer(t *testing.T) string {
	t.Helper()
	user := &models.User{Role: models.RoleStaff}
	user.ID = "staff-1"
	access, _, err := utils.GenerateTokens(user, testCfg)
	require.NoError(t, err)
	return "Bearer " + access
}

// authed builds a router whose routes sit behind the JWT middleware.
func authed(register func(g *gin.RouterGroup)) *gin.Engine {
	r := gin.New()
	register(r.Group("", middleware.AuthMiddleware(testCfg)))
	return r
}

func do(t *testing.T, r http.Handler, req *http.Request, auth bool) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	if auth {
		req.Header.Set("Authorization", bearer(t))
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var body map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	}
	return w, body
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

type formFile struct {
	field, name, contentType, content string
}

func multipartRequest(t *testing.T, target string, fields map[string]string, files ...formFile) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+f.field+`"; filename="`+f.name+`"`)
		h.Set("Content-Type", f.contentType)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write([]byte(f.content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// --- booking ---

type fakeBooker struct {
	res *booking.Result
	got *booking.Request
}

func (f *fakeBooker) Book(_ context.Context, req *booking.Request) *booking.Result {
	f.got = req
	return f.res
}

func bookingRouter(b Booker) *gin.Engine {
	r := gin.New()
	r.POST("/appointments/book", NewBookingHandler(b).Book)
	return r
}

func TestBook_Initiated(t *testing.T) {
	b := &fakeBooker{res: &booking.Result{
		State:      booking.StateInitiated,
		HTTPStatus: http.StatusOK,
		Message:    "Payment initiated",
		Redirect:   json.RawMessage(`{"url":"https://pay.example/r/1","method":"GET"}`),
	}}

	w, body := do(t, bookingRouter(b), jsonRequest(http.MethodPost, "/appointments/book",
		`{"patient":{"full_name":"Ada Obi","email":"ada@example.com","phone_number":5551234567},"doctor":"d-1"}`), false)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["state"])
	assert.Equal(t, "Payment initiated", body["message"])
	assert.Equal(t, "https://pay.example/r/1", body["data"].(map[string]any)["url"])

	require.NotNil(t, b.got)
	assert.Equal(t, booking.LooseString("5551234567"), b.got.Patient.PhoneNumber)
	assert.Equal(t, "d-1", b.got.Doctor)
}

func TestBook_GatewayRejectedPassesStatusThrough(t *testing.T) {
	b := &fakeBooker{res: &booking.Result{
		State:      booking.StateGatewayRejected,
		HTTPStatus: http.StatusPaymentRequired,
		Code:       "PAYMENT_DECLINED",
		Errors:     models.FieldErrors{"Error": {"card declined"}},
	}}

	w, body := do(t, bookingRouter(b), jsonRequest(http.MethodPost, "/appointments/book", `{"patient":{}}`), false)

	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Equal(t, false, body["state"])
	assert.Equal(t, "PAYMENT_DECLINED", body["code"])
	assert.Equal(t, []any{"card declined"}, body["data"].(map[string]any)["Error"])
}

func TestBook_NotFound(t *testing.T) {
	b := &fakeBooker{res: &booking.Result{
		State:      booking.StateNotFound,
		HTTPStatus: http.StatusNotFound,
		Errors:     models.FieldErrors{"PatientNotFoundError": {booking.MsgPatientNotFound}},
	}}

	w, body := do(t, bookingRouter(b), jsonRequest(http.MethodPost, "/appointments/book", `{"patient":{}}`), false)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.NotContains(t, body, "code")
	assert.Contains(t, body["data"], "PatientNotFoundError")
}

func TestBook_MalformedBody(t *testing.T) {
	b := &fakeBooker{}

	w, body := do(t, bookingRouter(b), jsonRequest(http.MethodPost, "/appointments/book", `{"patient":`), false)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, false, body["state"])
	assert.Nil(t, b.got)
}

// --- notes ---

type fakeSaver struct {
	actor    models.Actor
	in       notes.SaveInput
	contents map[string]string
	res      *notes.SaveResult
	err      error
}

func (f *fakeSaver) Save(_ context.Context, actor models.Actor, in notes.SaveInput) (*notes.SaveResult, error) {
	f.actor, f.in = actor, in
	f.contents = map[string]string{}
	for _, up := range in.Files {
		rc, err := up.Open()
		if err != nil {
			return nil, err
		}
		b, _ := io.ReadAll(rc)
		rc.Close()
		f.contents[up.Filename] = string(b)
	}
	return f.res, f.err
}

func notesRouter(s NoteSaver) *gin.Engine {
	h := NewNoteHandler(s, zerolog.Nop())
	return authed(func(g *gin.RouterGroup) { g.POST("/notes", h.SaveNote) })
}

func TestSaveNote_JSONCreate(t *testing.T) {
	note := &models.PatientDirectory{AppointmentID: "a-1", Notes: "knee pain"}
	note.ID = "n-1"
	s := &fakeSaver{res: &notes.SaveResult{Note: note, Created: true}}

	w, body := do(t, notesRouter(s), jsonRequest(http.MethodPost, "/notes", `{"appointment":"a-1","notes":"knee pain"}`), true)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "n-1", body["data"].(map[string]any)["id"])
	assert.Equal(t, "staff-1", s.actor.UserID)
	require.NotNil(t, s.in.AppointmentID)
	assert.Equal(t, "a-1", *s.in.AppointmentID)
	assert.Nil(t, s.in.CategoryID)
}

func TestSaveNote_MultipartUpdateWithFiles(t *testing.T) {
	note := &models.PatientDirectory{AppointmentID: "a-1"}
	note.ID = "n-1"
	s := &fakeSaver{res: &notes.SaveResult{Note: note}}

	req := multipartRequest(t, "/notes",
		map[string]string{"id": "n-1", "notes": "", "clinical_note_type": "exercise", "exercise": "ex-1"},
		formFile{field: "file", name: "scan.pdf", contentType: "application/pdf", content: "%PDF"},
		formFile{field: "file", name: "xray.png", contentType: "image/png", content: "PNG"},
	)
	w, _ := do(t, notesRouter(s), req, true)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "n-1", s.in.ID)
	assert.Equal(t, "ex-1", s.in.ExerciseID)
	require.NotNil(t, s.in.Notes)
	assert.Equal(t, "", *s.in.Notes)
	assert.Nil(t, s.in.AppointmentID)
	require.Len(t, s.in.Files, 2)
	assert.Equal(t, "application/pdf", s.in.Files[0].ContentType)
	assert.Equal(t, map[string]string{"scan.pdf": "%PDF", "xray.png": "PNG"}, s.contents)
}

func TestSaveNote_Errors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{
			name:   "validation",
			err:    &notes.ValidationError{Stage: notes.StageExercise, Fields: models.FieldErrors{"exercise": {"This field is required."}}},
			status: http.StatusBadRequest,
		},
		{name: "missing note", err: notes.ErrNoteNotFound, status: http.StatusNotFound},
		{name: "unexpected", err: errors.New("disk full"), status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &fakeSaver{err: tt.err}
			w, body := do(t, notesRouter(s), jsonRequest(http.MethodPost, "/notes", `{"id":"n-9"}`), true)

			assert.Equal(t, tt.status, w.Code)
			assert.NotContains(t, w.Body.String(), "disk full")
			if tt.status == http.StatusBadRequest {
				assert.Contains(t, body["errors"], "exercise")
			}
		})
	}
}

func TestSaveNote_RequiresAuth(t *testing.T) {
	s := &fakeSaver{}
	w, _ := do(t, notesRouter(s), jsonRequest(http.MethodPost, "/notes", `{}`), false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// --- appointments ---

type fakeAgenda struct {
	upcoming []models.Appointment
	mine     []models.Appointment
	workload *agenda.Workload
	err      error
	gotDate  string
}

func (f *fakeAgenda) Upcoming(_ context.Context, _, date string, _ time.Time) ([]models.Appointment, error) {
	f.gotDate = date
	return f.upcoming, f.err
}

func (f *fakeAgenda) DoctorWorkload(_ context.Context, _ url.Values) (*agenda.Workload, error) {
	return f.workload, f.err
}

func (f *fakeAgenda) UpcomingForCreator(_ context.Context, _ string, _ time.Time) ([]models.Appointment, error) {
	return f.mine, f.err
}

type fakeRegistrar struct {
	user    *models.User
	created bool
	err     error
	got     identity.Registration
}

func (f *fakeRegistrar) FindOrRegister(_ context.Context, reg identity.Registration) (*models.User, bool, error) {
	f.got = reg
	return f.user, f.created, f.err
}

type fakeChecker struct {
	errs models.FieldErrors
}

func (f *fakeChecker) CheckAppointment(context.Context, *models.Appointment) (models.FieldErrors, error) {
	return f.errs, nil
}

type fakeNotifier struct {
	booked, followup []models.Appointment
}

func (f *fakeNotifier) AppointmentBooked(a models.Appointment)   { f.booked = append(f.booked, a) }
func (f *fakeNotifier) AppointmentFollowup(a models.Appointment) { f.followup = append(f.followup, a) }

type fakeFiles struct {
	keys []string
}

func (f *fakeFiles) Save(_ context.Context, key string, body io.Reader, _ string) (string, error) {
	_, _ = io.Copy(io.Discard, body)
	f.keys = append(f.keys, key)
	return "/uploads/" + key, nil
}

type appointmentEnv struct {
	router   *gin.Engine
	mock     sqlmock.Sqlmock
	agenda   *fakeAgenda
	patients *fakeRegistrar
	notifier *fakeNotifier
	files    *fakeFiles
}

func newAppointmentEnv(t *testing.T) *appointmentEnv {
	db, mock := newMockDB(t)
	env := &appointmentEnv{
		mock:     mock,
		agenda:   &fakeAgenda{},
		patients: &fakeRegistrar{},
		notifier: &fakeNotifier{},
		files:    &fakeFiles{},
	}
	h := NewAppointmentHandler(store.NewAppointments(db), env.agenda, env.patients, &fakeChecker{},
		env.notifier, env.files, 1<<20, zerolog.Nop())
	h.now = func() time.Time { return time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC) }

	env.router = authed(func(g *gin.RouterGroup) {
		g.POST("/appointments", h.Create)
		g.POST("/appointments/create", h.CreateForPatient)
		g.GET("/appointments/upcoming", h.Upcoming)
		g.GET("/appointments/doctor-stats", h.DoctorStats)
		g.GET("/appointments/mine", h.Mine)
	})
	return env
}

const staffPayload = `{
	"patient": {"email": "ada@example.com", "phone_number": "5551234567", "first_name": "Ada", "last_name": "Obi"},
	"doctor": "d-1", "clinic": "c-1", "category": "cat-1", "procedure": "p-1",
	"scheduled_from": "2026-05-02T10:00:00", "scheduled_to": "2026-05-02T10:30:00"
}`

func TestCreateForPatient_RegistersAndBooks(t *testing.T) {
	env := newAppointmentEnv(t)
	patient := &models.User{FirstName: "Ada"}
	patient.ID = "pat-1"
	env.patients.user, env.patients.created = patient, true
	env.mock.ExpectExec("INSERT INTO `appointments`").WillReturnResult(sqlmock.NewResult(0, 1))

	req := multipartRequest(t, "/appointments/create", map[string]string{"data": staffPayload},
		formFile{field: "photo", name: "ada.jpg", contentType: "image/jpeg", content: "jpeg"})
	w, body := do(t, env.router, req, true)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	data := body["data"].(map[string]any)
	assert.Equal(t, "pat-1", data["patient"])
	assert.Equal(t, true, data["is_new"])
	assert.Equal(t, "staff-1", data["created_by"])
	assert.Equal(t, "scheduled", data["appointment_status"])

	require.Len(t, env.files.keys, 1)
	assert.True(t, strings.HasPrefix(env.files.keys[0], "profile_images/"))
	assert.True(t, strings.HasSuffix(env.files.keys[0], "_ada.jpg"))
	assert.Equal(t, "/uploads/"+env.files.keys[0], env.patients.got.ProfileImage)
	assert.Equal(t, "ada@example.com", env.patients.got.Email)

	require.Len(t, env.notifier.booked, 1)
	assert.Equal(t, "pat-1", env.notifier.booked[0].PatientID)
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestCreateForPatient_ExistingPatient(t *testing.T) {
	env := newAppointmentEnv(t)
	patient := &models.User{}
	patient.ID = "pat-2"
	env.patients.user = patient
	env.mock.ExpectExec("INSERT INTO `appointments`").WillReturnResult(sqlmock.NewResult(0, 1))

	w, body := do(t, env.router, multipartRequest(t, "/appointments/create", map[string]string{"data": staffPayload}), true)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, false, body["data"].(map[string]any)["is_new"])
	assert.Empty(t, env.files.keys)
}

func TestCreateForPatient_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		data  *string
		field string
	}{
		{name: "missing data", field: "data"},
		{name: "missing patient", data: ptr(`{"doctor":"d-1"}`), field: "patient"},
		{name: "bad email", data: ptr(`{"patient":{"email":"nope","phone_number":"1","first_name":"A"}}`), field: "email"},
		{
			name:  "bad timestamp",
			data:  ptr(strings.Replace(staffPayload, "2026-05-02T10:00:00", "tomorrow", 1)),
			field: "scheduled_from",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newAppointmentEnv(t)
			patient := &models.User{}
			patient.ID = "pat-1"
			env.patients.user = patient

			fields := map[string]string{}
			if tt.data != nil {
				fields["data"] = *tt.data
			}
			w, body := do(t, env.router, multipartRequest(t, "/appointments/create", fields), true)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, body["errors"], tt.field)
			assert.Empty(t, env.notifier.booked)
			assert.NoError(t, env.mock.ExpectationsWereMet())
		})
	}
}

func TestCreateForPatient_EmailTaken(t *testing.T) {
	env := newAppointmentEnv(t)
	env.patients.err = models.FieldErrors{"email": {"user with this email already exists."}}

	w, body := do(t, env.router, multipartRequest(t, "/appointments/create", map[string]string{"data": staffPayload}), true)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []any{"user with this email already exists."}, body["errors"].(map[string]any)["email"])
}

func TestCreate_ScheduleDispatchesFollowup(t *testing.T) {
	env := newAppointmentEnv(t)
	env.mock.ExpectExec("INSERT INTO `appointments`").WillReturnResult(sqlmock.NewResult(0, 1))

	payload := `{"patient":"pat-1","doctor":"d-1","clinic":"c-1","category":"cat-1","procedure":"p-1",
		"scheduled_from":"2026-05-02T10:00:00Z","scheduled_to":"2026-05-02T10:30:00Z","id":"forged"}`
	w, body := do(t, env.router, jsonRequest(http.MethodPost, "/appointments?schedule=true", payload), true)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotEqual(t, "forged", body["data"].(map[string]any)["id"])
	require.Len(t, env.notifier.followup, 1)
	assert.Empty(t, env.notifier.booked)
}

func TestCreate_InvalidAppointment(t *testing.T) {
	env := newAppointmentEnv(t)

	payload := `{"patient":"pat-1","scheduled_from":"2026-05-02T11:00:00Z","scheduled_to":"2026-05-02T10:00:00Z"}`
	w, body := do(t, env.router, jsonRequest(http.MethodPost, "/appointments", payload), true)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	errs := body["errors"].(map[string]any)
	assert.Contains(t, errs, "doctor")
	assert.Contains(t, errs, "scheduled_to")
	assert.Empty(t, env.notifier.followup)
}

func TestMine(t *testing.T) {
	env := newAppointmentEnv(t)

	w, body := do(t, env.router, httptest.NewRequest(http.MethodGet, "/appointments/mine", nil), true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []any{"created_by query param is missing"}, body["data"].(map[string]any)["Error"])

	w, body = do(t, env.router, httptest.NewRequest(http.MethodGet, "/appointments/mine?created_by=999", nil), true)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, false, body["state"])
	assert.Equal(t, "No upcoming appointments found or invalid user ID", body["error"])

	env.agenda.mine = []models.Appointment{{DoctorID: "d-1"}, {DoctorID: "d-2"}}
	w, body = do(t, env.router, httptest.NewRequest(http.MethodGet, "/appointments/mine?created_by=staff-1", nil), true)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["state"])
	assert.Equal(t, float64(2), body["total_appointments"])
	assert.Len(t, body["appointments"], 2)
}

func TestUpcoming(t *testing.T) {
	env := newAppointmentEnv(t)
	env.agenda.upcoming = []models.Appointment{{DoctorID: "d-1"}}

	w, body := do(t, env.router, httptest.NewRequest(http.MethodGet, "/appointments/upcoming?scheduled_from=2026-05-03", nil), true)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2026-05-03", env.agenda.gotDate)
	assert.Len(t, body["data"], 1)

	env.agenda.err = &filter.InvalidValueError{Field: "scheduled_from", Value: "soon"}
	w, _ = do(t, env.router, httptest.NewRequest(http.MethodGet, "/appointments/upcoming?scheduled_from=soon", nil), true)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	env.agenda.err = errors.New("connection reset")
	w, body = do(t, env.router, httptest.NewRequest(http.MethodGet, "/appointments/upcoming", nil), true)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Internal server error", body["error"])
}

func TestDoctorStats(t *testing.T) {
	env := newAppointmentEnv(t)
	env.agenda.workload = &agenda.Workload{
		All:     3,
		Doctors: []agenda.DoctorCount{{DoctorID: "d-1", FullName: "Ann Lee", DoctorColor: "#f00", Count: 3}},
	}

	w, body := do(t, env.router, httptest.NewRequest(http.MethodGet, "/appointments/doctor-stats?clinic=c-1", nil), true)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(3), body["all"])
	doctors := body["doctors_appointments_count"].([]any)
	require.Len(t, doctors, 1)
	assert.Equal(t, "Ann Lee", doctors[0].(map[string]any)["full_name"])
}

// --- generic resources ---

func taxesRouter(t *testing.T) (*gin.Engine, sqlmock.Sqlmock) {
	db, mock := newMockDB(t)
	h := NewResource("Taxes", store.NewTaxes(db), zerolog.Nop())
	return authed(func(g *gin.RouterGroup) {
		g.GET("/taxes", h.List)
		g.POST("/taxes", h.Create)
		g.GET("/taxes/:id", h.Get)
		g.PATCH("/taxes/:id", h.Update)
		g.DELETE("/taxes/:id", h.Delete)
	}), mock
}

func TestResource_CreateValidates(t *testing.T) {
	r, mock := taxesRouter(t)

	w, body := do(t, r, jsonRequest(http.MethodPost, "/taxes", `{"name":"VAT","percentage":150}`), true)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, body["errors"], "percentage")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResource_CreateStampsActor(t *testing.T) {
	r, mock := taxesRouter(t)
	mock.ExpectExec("INSERT INTO `taxes`").WillReturnResult(sqlmock.NewResult(0, 1))

	w, body := do(t, r, jsonRequest(http.MethodPost, "/taxes", `{"name":"VAT","percentage":15,"created_by":"someone"}`), true)

	require.Equal(t, http.StatusCreated, w.Code)
	data := body["data"].(map[string]any)
	assert.Equal(t, "staff-1", data["created_by"])
	assert.Equal(t, "staff-1", data["updated_by"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResource_ListRejectsUnknownFilter(t *testing.T) {
	r, mock := taxesRouter(t)

	w, body := do(t, r, httptest.NewRequest(http.MethodGet, "/taxes?password=x", nil), true)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, body["error"], "password")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResource_NotFound(t *testing.T) {
	r, mock := taxesRouter(t)
	mock.ExpectQuery("SELECT \\* FROM `taxes`").WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec("DELETE FROM `taxes`").WillReturnResult(sqlmock.NewResult(0, 0))

	w, _ := do(t, r, httptest.NewRequest(http.MethodGet, "/taxes/missing", nil), true)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = do(t, r, httptest.NewRequest(http.MethodDelete, "/taxes/missing", nil), true)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResource_PartialUpdateKeepsOwnership(t *testing.T) {
	r, mock := taxesRouter(t)
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT \\* FROM `taxes`").WillReturnRows(
		sqlmock.NewRows([]string{"id", "created_at", "updated_at", "created_by_id", "updated_by_id", "name", "percentage"}).
			AddRow("t-1", created, created, "admin-1", "admin-1", "VAT", 5.0))
	mock.ExpectExec("UPDATE `taxes`").WillReturnResult(sqlmock.NewResult(0, 1))

	w, body := do(t, r, jsonRequest(http.MethodPatch, "/taxes/t-1", `{"percentage":7.5,"created_by":"evil","id":"t-2"}`), true)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := body["data"].(map[string]any)
	assert.Equal(t, "t-1", data["id"])
	assert.Equal(t, "VAT", data["name"])
	assert.Equal(t, 7.5, data["percentage"])
	assert.Equal(t, "admin-1", data["created_by"])
	assert.Equal(t, "staff-1", data["updated_by"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

// --- doctors ---

type fakeDirectory struct {
	users []models.User
	role  models.Role
}

func (f *fakeDirectory) ListByRole(_ context.Context, role models.Role) ([]models.User, error) {
	f.role = role
	return f.users, nil
}

func TestGetDoctors(t *testing.T) {
	doc := models.User{FirstName: "Ann", LastName: "Lee", Email: "ann@example.com", DoctorCalendarColor: "#00f"}
	doc.ID = "d-1"
	dir := &fakeDirectory{users: []models.User{doc}}
	h := NewUserHandler(dir, zerolog.Nop())
	r := authed(func(g *gin.RouterGroup) { g.GET("/doctors", h.GetDoctors) })

	w, body := do(t, r, httptest.NewRequest(http.MethodGet, "/doctors", nil), true)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.RoleDoctor, dir.role)
	doctors := body["data"].([]any)
	require.Len(t, doctors, 1)
	first := doctors[0].(map[string]any)
	assert.Equal(t, "Ann Lee", first["full_name"])
	assert.Equal(t, "#00f", first["doctor_calender_color"])
	assert.NotContains(t, first, "password")
}

// --- auth ---

func authRouter(t *testing.T) (*gin.Engine, sqlmock.Sqlmock) {
	db, mock := newMockDB(t)
	h := NewAuthHandler(db, testCfg, zerolog.Nop())
	r := gin.New()
	r.POST("/auth/login", h.Login)
	r.POST("/auth/refresh-token", h.RefreshToken)
	private := r.Group("", middleware.AuthMiddleware(testCfg))
	private.GET("/auth/profile", h.GetProfile)
	return r, mock
}

func TestLogin(t *testing.T) {
	r, mock := authRouter(t)
	user := models.User{}
	require.NoError(t, user.SetPassword("correct horse"))
	rows := func() *sqlmock.Rows {
		return sqlmock.NewRows([]string{"id", "email", "password", "first_name", "role"}).
			AddRow("staff-1", "desk@example.com", user.Password, "Dee", "staff")
	}

	mock.ExpectQuery("SELECT \\* FROM `users`").WillReturnRows(rows())
	w, _ := do(t, r, jsonRequest(http.MethodPost, "/auth/login", `{"email":"desk@example.com","password":"wrong"}`), false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	mock.ExpectQuery("SELECT \\* FROM `users`").WillReturnRows(rows())
	mock.ExpectExec("INSERT INTO `refresh_tokens`").WillReturnResult(sqlmock.NewResult(0, 1))
	w, body := do(t, r, jsonRequest(http.MethodPost, "/auth/login", `{"email":"desk@example.com","password":"correct horse"}`), false)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := body["data"].(map[string]any)
	assert.NotEmpty(t, data["access_token"])
	assert.NotEmpty(t, data["refresh_token"])
	assert.NotContains(t, data["user"], "password")
	assert.Contains(t, w.Header().Get("Set-Cookie"), "refresh_token=")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLogin_ValidatesBody(t *testing.T) {
	r, _ := authRouter(t)

	w, body := do(t, r, jsonRequest(http.MethodPost, "/auth/login", `{"email":"not-an-email"}`), false)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	errs := body["errors"].(map[string]any)
	assert.Contains(t, errs, "email")
	assert.Contains(t, errs, "password")
}

func TestGetProfile(t *testing.T) {
	r, mock := authRouter(t)
	mock.ExpectQuery("SELECT \\* FROM `users`").WillReturnRows(
		sqlmock.NewRows([]string{"id", "email", "first_name", "role"}).AddRow("staff-1", "desk@example.com", "Dee", "staff"))

	w, body := do(t, r, httptest.NewRequest(http.MethodGet, "/auth/profile", nil), true)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "desk@example.com", body["data"].(map[string]any)["email"])
}

func TestRefreshToken_Rotates(t *testing.T) {
	r, mock := authRouter(t)
	user := &models.User{Role: models.RoleStaff}
	user.ID = "staff-1"
	_, refresh, err := utils.GenerateTokens(user, testCfg)
	require.NoError(t, err)

	tokenRows := func(revoked bool) *sqlmock.Rows {
		return sqlmock.NewRows([]string{"id", "user_id", "token", "expires_at", "is_revoked"}).
			AddRow("rt-1", "staff-1", refresh, time.Now().Add(time.Hour), revoked)
	}

	mock.ExpectQuery("SELECT \\* FROM `refresh_tokens`").WillReturnRows(tokenRows(true))
	w, _ := do(t, r, jsonRequest(http.MethodPost, "/auth/refresh-token", `{"refresh_token":"`+refresh+`"}`), false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	mock.ExpectQuery("SELECT \\* FROM `refresh_tokens`").WillReturnRows(tokenRows(false))
	mock.ExpectQuery("SELECT \\* FROM `users`").WillReturnRows(
		sqlmock.NewRows([]string{"id", "email", "role"}).AddRow("staff-1", "desk@example.com", "staff"))
	mock.ExpectExec("UPDATE `refresh_tokens`").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO `refresh_tokens`").WillReturnResult(sqlmock.NewResult(0, 1))
	w, body := do(t, r, jsonRequest(http.MethodPost, "/auth/refresh-token", `{"refresh_token":"`+refresh+`"}`), false)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := body["data"].(map[string]any)
	assert.NotEmpty(t, data["access_token"])
	assert.NotEqual(t, refresh, data["refresh_token"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshToken_RejectsForgedToken(t *testing.T) {
	r, mock := authRouter(t)

	w, _ := do(t, r, jsonRequest(http.MethodPost, "/auth/refresh-token", `{"refresh_token":"not-a-jwt"}`), false)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func ptr(s string) *string { return &s }
