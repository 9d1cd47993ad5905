package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"medical-booking-server/internal/config"
	"medical-booking-server/internal/models"
	"medical-booking-server/internal/repository"
	"medical-booking-server/internal/services"
	"medical-booking-server/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testCfg = &config.Config{
	JWTSecret:                 "access-secret",
	JWTRefreshSecret:          "refresh-secret",
	JWTExpirationMinutes:      15,
	JWTRefreshExpirationHours: 24,
}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    *utils.PageMeta `json:"meta"`
	Error   string          `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	env := decode(t, w)
	require.NoError(t, json.Unmarshal(env.Data, out), string(env.Data))
}

func bearer(t *testing.T, u *models.User) string {
	t.Helper()
	pair, err := utils.GenerateTokens(u, testCfg, time.Now())
	require.NoError(t, err)
	return "Bearer " + pair.AccessToken
}

func do(r http.Handler, method, path, auth string, body interface{}) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// fakeStore is an in-memory stand-in for repository.Store.
type fakeStore struct {
	users         map[string]*models.User
	tokens        []*models.RefreshToken
	doctors       map[string]*models.Doctor
	specialties   map[string]*models.Specialty
	schedules     map[string]*models.Schedule
	appointments  map[string]*models.Appointment
	records       map[string]*models.ConsultationRecord
	notifications []*models.Notification
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:        map[string]*models.User{},
		doctors:      map[string]*models.Doctor{},
		specialties:  map[string]*models.Specialty{},
		schedules:    map[string]*models.Schedule{},
		appointments: map[string]*models.Appointment{},
		records:      map[string]*models.ConsultationRecord{},
	}
}

func (s *fakeStore) addUser(id string, role models.Role) *models.User {
	u := &models.User{BaseModel: models.BaseModel{ID: id}, Email: id + "@example.com", FirstName: id, Role: role}
	s.users[id] = u
	return u
}

func (s *fakeStore) addDoctor(id, userID string, status models.DoctorStatus) *models.Doctor {
	d := &models.Doctor{
		BaseModel: models.BaseModel{ID: id},
		UserID:    userID,
		CRM:       "123456",
		CRMState:  "SP",
		Status:    status,
		User:      *s.users[userID],
		Specialty: models.Specialty{Name: "Cardiologia", Slug: "cardiologia"},
	}
	s.doctors[id] = d
	return d
}

func newID(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id
}

func (s *fakeStore) CreateUser(_ context.Context, u *models.User) error {
	for _, other := range s.users {
		if other.Email == u.Email {
			return repository.ErrDuplicate
		}
	}
	u.ID = newID(u.ID)
	s.users[u.ID] = u
	return nil
}

func (s *fakeStore) FindUser(_ context.Context, id string) (*models.User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func (s *fakeStore) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *fakeStore) SaveUser(_ context.Context, u *models.User) error {
	s.users[u.ID] = u
	return nil
}

func (s *fakeStore) EmailTaken(_ context.Context, email string) (bool, error) {
	_, err := s.FindUserByEmail(context.Background(), email)
	return err == nil, nil
}

func (s *fakeStore) CPFTaken(_ context.Context, cpfHash string) (bool, error) {
	for _, u := range s.users {
		if u.CPFHash != nil && *u.CPFHash == cpfHash {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) ListUsers(_ context.Context, f repository.UserFilter, _ repository.Page) ([]models.User, int64, error) {
	var out []models.User
	for _, u := range s.users {
		if f.Role == "" || u.Role == f.Role {
			out = append(out, *u)
		}
	}
	return out, int64(len(out)), nil
}

func (s *fakeStore) DeleteUser(_ context.Context, id string) error {
	if _, ok := s.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *fakeStore) CreateRefreshToken(_ context.Context, t *models.RefreshToken) error {
	t.ID = newID(t.ID)
	s.tokens = append(s.tokens, t)
	return nil
}

func (s *fakeStore) FindActiveRefreshToken(_ context.Context, token, userID string, now time.Time) (*models.RefreshToken, error) {
	for _, t := range s.tokens {
		if t.Token == token && t.UserID == userID && t.Usable(now) {
			return t, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *fakeStore) RevokeRefreshToken(_ context.Context, token string) error {
	for _, t := range s.tokens {
		if t.Token == token {
			t.IsRevoked = true
		}
	}
	return nil
}

func (s *fakeStore) RotateRefreshToken(ctx context.Context, old, next *models.RefreshToken) error {
	for _, t := range s.tokens {
		if t.ID == old.ID && !t.IsRevoked {
			t.IsRevoked = true
			return s.CreateRefreshToken(ctx, next)
		}
	}
	return repository.ErrNotFound
}

func (s *fakeStore) FindDoctor(_ context.Context, id string) (*models.Doctor, error) {
	if d, ok := s.doctors[id]; ok {
		return d, nil
	}
	return nil, repository.ErrNotFound
}

func (s *fakeStore) FindDoctorByUser(_ context.Context, userID string) (*models.Doctor, error) {
	for _, d := range s.doctors {
		if d.UserID == userID {
			return d, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *fakeStore) FindDocumentByPublicID(_ context.Context, publicID string) (*models.DoctorDocument, error) {
	for _, d := range s.doctors {
		for i := range d.Documents {
			if d.Documents[i].PublicID == publicID {
				return &d.Documents[i], nil
			}
		}
	}
	return nil, repository.ErrNotFound
}

func (s *fakeStore) ListDoctors(_ context.Context, f repository.DoctorFilter, _ repository.Page) ([]models.Doctor, int64, error) {
	var out []models.Doctor
	for _, d := range s.doctors {
		if f.Status == "" || d.Status == f.Status {
			out = append(out, *d)
		}
	}
	return out, int64(len(out)), nil
}

func (s *fakeStore) ListSpecialties(_ context.Context, activeOnly bool) ([]models.Specialty, error) {
	var out []models.Specialty
	for _, sp := range s.specialties {
		if !activeOnly || sp.Active {
			out = append(out, *sp)
		}
	}
	return out, nil
}

func (s *fakeStore) FindSpecialty(_ context.Context, id string) (*models.Specialty, error) {
	if sp, ok := s.specialties[id]; ok {
		return sp, nil
	}
	return nil, repository.ErrNotFound
}

func (s *fakeStore) CreateSpecialty(_ context.Context, sp *models.Specialty) error {
	for _, other := range s.specialties {
		if other.Slug == sp.Slug {
			return repository.ErrDuplicate
		}
	}
	sp.ID = newID(sp.ID)
	s.specialties[sp.ID] = sp
	return nil
}

func (s *fakeStore) SaveSpecialty(_ context.Context, sp *models.Specialty) error {
	s.specialties[sp.ID] = sp
	return nil
}

func (s *fakeStore) DeleteSpecialty(_ context.Context, id string) error {
	if _, ok := s.specialties[id]; !ok {
		return repository.ErrNotFound
	}
	for _, d := range s.doctors {
		if d.SpecialtyID == id {
			return repository.ErrInUse
		}
	}
	delete(s.specialties, id)
	return nil
}

func (s *fakeStore) ListSchedules(_ context.Context, doctorID string) ([]models.Schedule, error) {
	var out []models.Schedule
	for _, sc := range s.schedules {
		if sc.DoctorID == doctorID {
			out = append(out, *sc)
		}
	}
	return out, nil
}

func (s *fakeStore) FindSchedule(_ context.Context, doctorID, id string) (*models.Schedule, error) {
	if sc, ok := s.schedules[id]; ok && sc.DoctorID == doctorID {
		return sc, nil
	}
	return nil, repository.ErrNotFound
}

func (s *fakeStore) CreateSchedule(_ context.Context, sc *models.Schedule) error {
	sc.ID = newID(sc.ID)
	s.schedules[sc.ID] = sc
	return nil
}

func (s *fakeStore) SaveSchedule(_ context.Context, sc *models.Schedule) error {
	s.schedules[sc.ID] = sc
	return nil
}

func (s *fakeStore) DeleteSchedule(ctx context.Context, doctorID, id string) error {
	if _, err := s.FindSchedule(ctx, doctorID, id); err != nil {
		return err
	}
	delete(s.schedules, id)
	return nil
}

func (s *fakeStore) FindAppointment(_ context.Context, id string) (*models.Appointment, error) {
	if a, ok := s.appointments[id]; ok {
		return a, nil
	}
	return nil, repository.ErrNotFound
}

func (s *fakeStore) ListAppointments(_ context.Context, f repository.AppointmentFilter, _ repository.Page) ([]models.Appointment, int64, error) {
	var out []models.Appointment
	for _, a := range s.appointments {
		if (f.PatientID == "" || a.PatientID == f.PatientID) && (f.DoctorID == "" || a.DoctorID == f.DoctorID) {
			out = append(out, *a)
		}
	}
	return out, int64(len(out)), nil
}

func (s *fakeStore) CreateRecord(_ context.Context, r *models.ConsultationRecord) error {
	for _, other := range s.records {
		if other.AppointmentID == r.AppointmentID {
			return repository.ErrDuplicate
		}
	}
	r.ID = newID(r.ID)
	s.records[r.ID] = r
	return nil
}

func (s *fakeStore) FindRecord(_ context.Context, id string) (*models.ConsultationRecord, error) {
	r, ok := s.records[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if a, ok := s.appointments[r.AppointmentID]; ok {
		r.Appointment = *a
	}
	if d, ok := s.doctors[r.DoctorID]; ok {
		r.Doctor = *d
	}
	if p, ok := s.users[r.PatientID]; ok {
		r.Patient = *p
	}
	return r, nil
}

func (s *fakeStore) SaveRecord(_ context.Context, r *models.ConsultationRecord) error {
	s.records[r.ID] = r
	return nil
}

func (s *fakeStore) ListRecords(_ context.Context, patientID, doctorID string) ([]models.ConsultationRecord, error) {
	var out []models.ConsultationRecord
	for _, r := range s.records {
		if (patientID == "" || r.PatientID == patientID) && (doctorID == "" || r.DoctorID == doctorID) {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (s *fakeStore) ListNotifications(_ context.Context, userID string, unreadOnly bool, _ repository.Page) ([]models.Notification, int64, error) {
	var out []models.Notification
	var unread int64
	for _, n := range s.notifications {
		if n.UserID != userID {
			continue
		}
		if n.ReadAt == nil {
			unread++
		}
		if !unreadOnly || n.ReadAt == nil {
			out = append(out, *n)
		}
	}
	return out, unread, nil
}

func (s *fakeStore) MarkNotificationRead(_ context.Context, userID, id string, now time.Time) error {
	for _, n := range s.notifications {
		if n.ID == id && n.UserID == userID {
			n.ReadAt = &now
			return nil
		}
	}
	return repository.ErrNotFound
}

func (s *fakeStore) MarkAllNotificationsRead(_ context.Context, userID string, now time.Time) (int64, error) {
	var changed int64
	for _, n := range s.notifications {
		if n.UserID == userID && n.ReadAt == nil {
			n.ReadAt = &now
			changed++
		}
	}
	return changed, nil
}

type fakeHasher struct{}

func (fakeHasher) BlindIndex(v string) string { return "h:" + v }

type fakeBooking struct {
	request services.BookingRequest
	actor   services.Actor
	to      models.AppointmentStatus
	reason  string
	date    time.Time
	clock   string
	result  *models.Appointment
	err     error
}

func (b *fakeBooking) Book(_ context.Context, req services.BookingRequest) (*models.Appointment, error) {
	b.request = req
	return b.result, b.err
}

func (b *fakeBooking) Transition(_ context.Context, actor services.Actor, _ string, to models.AppointmentStatus, reason string) (*models.Appointment, error) {
	b.actor, b.to, b.reason = actor, to, reason
	return b.result, b.err
}

func (b *fakeBooking) Reschedule(_ context.Context, actor services.Actor, _ string, date time.Time, clock string) (*models.Appointment, error) {
	b.actor, b.date, b.clock = actor, date, clock
	return b.result, b.err
}

type fakeAvailability struct {
	date time.Time
	from time.Time
	days int
	err  error
}

func (a *fakeAvailability) Availability(_ context.Context, doctorID string, date time.Time) (*services.DayAvailability, error) {
	a.date = date
	if a.err != nil {
		return nil, a.err
	}
	return &services.DayAvailability{DoctorID: doctorID, Date: date.Format(models.DateLayout)}, nil
}

func (a *fakeAvailability) AvailableDays(_ context.Context, _ string, from time.Time, days int) ([]services.DaySummary, error) {
	a.from, a.days = from, days
	if a.err != nil {
		return nil, a.err
	}
	return []services.DaySummary{{Date: from.Format(models.DateLayout), FreeSlots: 3}}, nil
}

type fakeApplications struct {
	input    services.ApplicationInput
	kinds    []models.DocumentKind
	contents []string
	userID   string
	approved bool
	note     string
	reason   string
	result   *models.Doctor
	err      error
}

func (a *fakeApplications) record(files []services.UploadedFile) {
	for _, f := range files {
		a.kinds = append(a.kinds, f.Kind)
		b, _ := io.ReadAll(f.Content)
		a.contents = append(a.contents, string(b))
	}
}

func (a *fakeApplications) Apply(_ context.Context, in services.ApplicationInput, files []services.UploadedFile) (*models.Doctor, error) {
	a.input = in
	a.record(files)
	return a.result, a.err
}

func (a *fakeApplications) Resubmit(_ context.Context, userID string, files []services.UploadedFile) (*models.Doctor, error) {
	a.userID = userID
	a.record(files)
	return a.result, a.err
}

func (a *fakeApplications) ReviewDocument(_ context.Context, _, documentID string, approve bool, note string) (*models.DoctorDocument, error) {
	a.approved, a.note = approve, note
	if a.err != nil {
		return nil, a.err
	}
	return &models.DoctorDocument{BaseModel: models.BaseModel{ID: documentID}}, nil
}

func (a *fakeApplications) Approve(_ context.Context, _, _ string) (*models.Doctor, error) {
	return a.result, a.err
}

func (a *fakeApplications) Reject(_ context.Context, _, _, reason string) (*models.Doctor, error) {
	a.reason = reason
	return a.result, a.err
}

type fakeResets struct {
	email, code, password string
	err                   error
}

func (r *fakeResets) RequestReset(_ context.Context, email string) error {
	r.email = email
	return r.err
}

func (r *fakeResets) Reset(_ context.Context, email, code, password string) error {
	r.email, r.code, r.password = email, code, password
	return r.err
}

type fakeStats struct {
	days int
	err  error
}

func (s *fakeStats) Overview(_ context.Context, days int) (*models.Stats, error) {
	s.days = days
	if s.err != nil {
		return nil, s.err
	}
	return &models.Stats{
		UsersByRole:          map[string]int64{"admin": 1, "doctor": 2, "patient": 5},
		DoctorsByStatus:      map[string]int64{"approved": 1, "pending": 1, "rejected": 0},
		AppointmentsByStatus: map[string]int64{"pending": 1, "confirmed": 1, "completed": 2, "cancelled": 0, "no_show": 0},
		AppointmentsBySpec:   []models.NamedCount{{Name: "Cardiologia", Count: 4}},
		AppointmentsPerDay:   []models.NamedCount{{Name: "2026-03-09", Count: 4}},
		PendingApplications:  1,
		TotalAppointments:    4,
	}, nil
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }
