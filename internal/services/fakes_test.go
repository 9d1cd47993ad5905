package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"medical-booking-server/internal/mailer"
	"medical-booking-server/internal/models"
	"medical-booking-server/internal/repository"
	"medical-booking-server/internal/storage"
)

// memStore is an in-memory implementation of every store the services use.
type memStore struct {
	mu           sync.Mutex
	seq          int
	users        map[string]*models.User
	specialties  map[string]*models.Specialty
	doctors      map[string]*models.Doctor
	documents    map[string]*models.DoctorDocument
	schedules    []models.Schedule
	appointments map[string]*models.Appointment
	revoked      []string

	createErr error
	saveErr   error

	stats statsFixture
}

type statsFixture struct {
	users, doctors, appointments map[string]int64
	bySpecialty, perDay          []models.NamedCount
	perDayFrom, perDayTo         time.Time
}

func newMemStore() *memStore {
	return &memStore{
		users:        make(map[string]*models.User),
		specialties:  make(map[string]*models.Specialty),
		doctors:      make(map[string]*models.Doctor),
		documents:    make(map[string]*models.DoctorDocument),
		appointments: make(map[string]*models.Appointment),
	}
}

func (m *memStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func (m *memStore) addUser(u models.User) *models.User {
	m.users[u.ID] = &u
	return &u
}

func (m *memStore) addDoctor(d models.Doctor) *models.Doctor {
	m.doctors[d.ID] = &d
	return &d
}

func (m *memStore) addDocument(d models.DoctorDocument) {
	m.documents[d.ID] = &d
}

// DoctorStore

func (m *memStore) FindDoctor(_ context.Context, id string) (*models.Doctor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.doctors[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return m.hydrateDoctor(*d), nil
}

func (m *memStore) FindDoctorByUser(_ context.Context, userID string) (*models.Doctor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.doctors {
		if d.UserID == userID {
			return m.hydrateDoctor(*d), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memStore) hydrateDoctor(d models.Doctor) *models.Doctor {
	if u, ok := m.users[d.UserID]; ok {
		d.User = *u
	}
	if s, ok := m.specialties[d.SpecialtyID]; ok {
		d.Specialty = *s
	}
	d.Documents = nil
	var ids []string
	for id, doc := range m.documents {
		if doc.DoctorID == d.ID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	for _, id := range ids {
		d.Documents = append(d.Documents, *m.documents[id])
	}
	return &d
}

func (m *memStore) FindSpecialty(_ context.Context, id string) (*models.Specialty, error) {
	s, ok := m.specialties[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memStore) EmailTaken(_ context.Context, email string) (bool, error) {
	for _, u := range m.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) CPFTaken(_ context.Context, cpfHash string) (bool, error) {
	for _, u := range m.users {
		if u.CPFHash != nil && *u.CPFHash == cpfHash {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) CRMTaken(_ context.Context, crm, state string) (bool, error) {
	for _, d := range m.doctors {
		if d.CRM == crm && d.CRMState == state {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) CreateApplication(_ context.Context, user *models.User, doctor *models.Doctor, docs []models.DoctorDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	user.ID = m.nextID("user")
	doctor.ID = m.nextID("doctor")
	doctor.UserID = user.ID
	m.users[user.ID] = user
	stored := *doctor
	m.doctors[doctor.ID] = &stored
	for i := range docs {
		docs[i].ID = m.nextID("doc")
		docs[i].DoctorID = doctor.ID
		d := docs[i]
		m.documents[d.ID] = &d
	}
	return nil
}

func (m *memStore) SaveApplication(_ context.Context, doctor *models.Doctor, docs []models.DoctorDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	stored := *doctor
	stored.Documents = nil
	m.doctors[doctor.ID] = &stored
	for i := range docs {
		if docs[i].ID == "" {
			docs[i].ID = m.nextID("doc")
		}
		d := docs[i]
		m.documents[d.ID] = &d
	}
	return nil
}

func (m *memStore) FindDocument(_ context.Context, id string) (*models.DoctorDocument, error) {
	d, ok := m.documents[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *memStore) SaveDocument(_ context.Context, doc *models.DoctorDocument) error {
	cp := *doc
	m.documents[doc.ID] = &cp
	return nil
}

// ScheduleStore

func (m *memStore) ActiveSchedules(_ context.Context, doctorID string) ([]models.Schedule, error) {
	var out []models.Schedule
	for _, s := range m.schedules {
		if s.DoctorID == doctorID && s.Active {
			out = append(out, s)
		}
	}
	return out, nil
}

// AppointmentStore

func (m *memStore) OccupiedBetween(_ context.Context, doctorID string, from, to time.Time) ([]models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Appointment
	for _, a := range m.appointments {
		if a.DoctorID != doctorID || a.SlotLock == nil {
			continue
		}
		if a.Date.Before(from) || a.Date.After(to) {
			continue
		}
		out = append(out, *a)
	}
	return out, nil
}

func (m *memStore) CreateAppointment(_ context.Context, a *models.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	for _, b := range m.appointments {
		if b.DoctorID == a.DoctorID && b.DateString() == a.DateString() && b.Time == a.Time && b.SlotLock != nil {
			return repository.ErrDuplicate
		}
	}
	a.ID = m.nextID("appt")
	cp := *a
	m.appointments[a.ID] = &cp
	return nil
}

func (m *memStore) FindAppointment(_ context.Context, id string) (*models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appointments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *a
	if u, ok := m.users[cp.PatientID]; ok {
		cp.Patient = *u
	}
	if d, ok := m.doctors[cp.DoctorID]; ok {
		cp.Doctor = *m.hydrateDoctor(*d)
	}
	return &cp, nil
}

func (m *memStore) SaveAppointment(_ context.Context, a *models.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	cp := *a
	m.appointments[a.ID] = &cp
	return nil
}

// UserStore

func (m *memStore) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memStore) SaveUser(_ context.Context, u *models.User) error {
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memStore) RevokeUserTokens(_ context.Context, userID string) error {
	m.revoked = append(m.revoked, userID)
	return nil
}

// StatsStore

func (m *memStore) CountUsersByRole(context.Context) (map[string]int64, error) {
	return m.stats.users, nil
}

func (m *memStore) CountDoctorsByStatus(context.Context) (map[string]int64, error) {
	return m.stats.doctors, nil
}

func (m *memStore) CountAppointmentsByStatus(context.Context) (map[string]int64, error) {
	return m.stats.appointments, nil
}

func (m *memStore) AppointmentsBySpecialty(context.Context) ([]models.NamedCount, error) {
	return m.stats.bySpecialty, nil
}

func (m *memStore) AppointmentsPerDay(_ context.Context, from, to time.Time) ([]models.NamedCount, error) {
	m.stats.perDayFrom, m.stats.perDayTo = from, to
	return m.stats.perDay, nil
}

// sentNote is a notification captured by fakeNotifier.
type sentNote struct {
	To  mailer.Recipient
	Msg mailer.Message
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentNote
	err  error
}

func (n *fakeNotifier) Notify(_ context.Context, to mailer.Recipient, msg mailer.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentNote{To: to, Msg: msg})
	return nil
}

func (n *fakeNotifier) last() sentNote {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.sent) == 0 {
		return sentNote{}
	}
	return n.sent[len(n.sent)-1]
}

type fakeUploader struct {
	uploaded []string
	deleted  []string
	failOn   int // 1-based upload number that fails; 0 never
}

func (u *fakeUploader) Upload(_ context.Context, name string, content io.Reader) (*storage.UploadResult, error) {
	if u.failOn > 0 && len(u.uploaded)+1 == u.failOn {
		return nil, errors.New("storage unavailable")
	}
	var buf bytes.Buffer
	n, _ := io.Copy(&buf, content)
	id := fmt.Sprintf("files/%d-%s", len(u.uploaded)+1, name)
	u.uploaded = append(u.uploaded, id)
	return &storage.UploadResult{URL: "https://files.example/" + id, PublicID: id, Bytes: n}, nil
}

func (u *fakeUploader) Delete(_ context.Context, publicID string) error {
	u.deleted = append(u.deleted, publicID)
	return nil
}

type fakeHasher struct{}

func (fakeHasher) BlindIndex(value string) string { return "h:" + value }
