package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medical-booking-server/internal/middleware"
	"medical-booking-server/internal/models"
	"medical-booking-server/internal/services"
)

func adminRouter(store *fakeStore, apps *fakeApplications, stats *fakeStats) *gin.Engine {
	specialties := NewSpecialtyHandler(store)
	users := NewUserHandler(store)
	applications := NewApplicationHandler(store, apps)
	statsHandler := NewStatsHandler(stats)

	r := gin.New()
	r.GET("/specialties", specialties.ListSpecialties)
	g := r.Group("/admin", middleware.AuthMiddleware(testCfg), middleware.RoleAuthMiddleware(models.RoleAdmin))
	g.GET("/specialties", specialties.ListAllSpecialties)
	g.POST("/specialties", specialties.CreateSpecialty)
	g.PUT("/specialties/:id", specialties.UpdateSpecialty)
	g.DELETE("/specialties/:id", specialties.DeleteSpecialty)
	g.POST("/users", users.CreateAdmin)
	g.GET("/users", users.GetUsers)
	g.GET("/users/:id", users.GetUserByID)
	g.PUT("/users/:id", users.UpdateUser)
	g.DELETE("/users/:id", users.DeleteUser)
	g.GET("/applications", applications.ListApplications)
	g.GET("/applications/:id", applications.GetApplication)
	g.POST("/applications/:id/approve", applications.Approve)
	g.POST("/applications/:id/reject", applications.Reject)
	g.PATCH("/documents/:id", applications.ReviewDocument)
	g.GET("/stats", statsHandler.GetStats)
	g.GET("/stats/export", statsHandler.ExportStats)
	return r
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Cardiologia":                "cardiologia",
		"Ginecologia e Obstetrícia":  "ginecologia-e-obstetricia",
		"  Clínica   Médica ":        "clinica-medica",
		"Otorrinolaringologia (ORL)": "otorrinolaringologia-orl",
		"Ortopedia/Traumatologia":    "ortopedia-traumatologia",
		"!!!":                        "",
	}
	for in, want := range tests {
		assert.Equal(t, want, Slugify(in), in)
	}
}

func TestSpecialtyAdmin(t *testing.T) {
	store := newFakeStore()
	admin := store.addUser("admin-1", models.RoleAdmin)
	patient := store.addUser("patient-1", models.RolePatient)
	r := adminRouter(store, &fakeApplications{}, &fakeStats{})
	auth := bearer(t, admin)

	w := do(r, http.MethodPost, "/admin/specialties", bearer(t, patient), map[string]string{"name": "Cardiologia"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(r, http.MethodPost, "/admin/specialties", auth, map[string]string{"name": "Clínica Médica"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created models.Specialty
	decodeData(t, w, &created)
	assert.Equal(t, "clinica-medica", created.Slug)
	assert.True(t, created.Active)

	w = do(r, http.MethodPost, "/admin/specialties", auth, map[string]string{"name": "Clinica medica"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(r, http.MethodPost, "/admin/specialties", auth, map[string]interface{}{"name": "Dermatologia", "active": false})
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(r, http.MethodGet, "/specialties", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var active []models.Specialty
	decodeData(t, w, &active)
	assert.Len(t, active, 1)

	w = do(r, http.MethodGet, "/admin/specialties", auth, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var all []models.Specialty
	decodeData(t, w, &all)
	assert.Len(t, all, 2)

	w = do(r, http.MethodPut, "/admin/specialties/"+created.ID, auth, map[string]string{"name": "Pediatria"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "pediatria", store.specialties[created.ID].Slug)

	store.addUser("doctor-user", models.RoleDoctor)
	store.addDoctor("doc-1", "doctor-user", models.DoctorApproved).SpecialtyID = created.ID
	assert.Equal(t, http.StatusConflict, do(r, http.MethodDelete, "/admin/specialties/"+created.ID, auth, nil).Code)
	delete(store.doctors, "doc-1")
	assert.Equal(t, http.StatusOK, do(r, http.MethodDelete, "/admin/specialties/"+created.ID, auth, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodDelete, "/admin/specialties/"+created.ID, auth, nil).Code)
}

func TestUserAdmin(t *testing.T) {
	store := newFakeStore()
	admin := store.addUser("admin-1", models.RoleAdmin)
	store.addUser("patient-1", models.RolePatient)
	r := adminRouter(store, &fakeApplications{}, &fakeStats{})
	auth := bearer(t, admin)

	w := do(r, http.MethodPost, "/admin/users", auth, map[string]string{
		"firstName": "Ops", "lastName": "Team", "email": "OPS@example.com", "password": "s3cretpass",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created models.UserSanitized
	decodeData(t, w, &created)
	assert.Equal(t, models.RoleAdmin, created.Role)
	assert.Equal(t, "ops@example.com", created.Email)

	w = do(r, http.MethodGet, "/admin/users?role=admin", auth, nil)
	require.Equal(t, http.StatusOK, w.Code)
	env := decode(t, w)
	require.NotNil(t, env.Meta)
	assert.Equal(t, int64(2), env.Meta.Total)

	w = do(r, http.MethodPut, "/admin/users/patient-1", auth, map[string]string{"email": "ops@example.com"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(r, http.MethodPut, "/admin/users/patient-1", auth, map[string]string{"email": "new@example.com", "firstName": "Lia"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "new@example.com", store.users["patient-1"].Email)
	assert.Equal(t, models.RolePatient, store.users["patient-1"].Role)

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodDelete, "/admin/users/admin-1", auth, nil).Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodDelete, "/admin/users/patient-1", auth, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/admin/users/patient-1", auth, nil).Code)
}

func TestApplicationReview(t *testing.T) {
	store := newFakeStore()
	admin := store.addUser("admin-1", models.RoleAdmin)
	store.addUser("u1", models.RoleDoctor)
	store.addUser("u2", models.RoleDoctor)
	pending := store.addDoctor("doc-1", "u1", models.DoctorPending)
	store.addDoctor("doc-2", "u2", models.DoctorApproved)
	apps := &fakeApplications{result: pending}
	r := adminRouter(store, apps, &fakeStats{})
	auth := bearer(t, admin)

	w := do(r, http.MethodGet, "/admin/applications", auth, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var queue []ApplicationView
	decodeData(t, w, &queue)
	require.Len(t, queue, 1)
	assert.Equal(t, "doc-1", queue[0].ID)
	assert.NotNil(t, queue[0].Documents)

	w = do(r, http.MethodGet, "/admin/applications?status=approved", auth, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decodeData(t, w, &queue)
	require.Len(t, queue, 1)
	assert.Equal(t, "doc-2", queue[0].ID)

	w = do(r, http.MethodPatch, "/admin/documents/d1", auth, map[string]string{"decision": "maybe"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPatch, "/admin/documents/d1", auth, map[string]string{"decision": "rejected", "note": "blurry"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.False(t, apps.approved)
	assert.Equal(t, "blurry", apps.note)

	w = do(r, http.MethodPost, "/admin/applications/doc-1/reject", auth, map[string]string{"reason": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/admin/applications/doc-1/reject", auth, map[string]string{"reason": "CRM card does not match"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "CRM card does not match", apps.reason)

	apps.err = fmt.Errorf("%w: diploma has not been approved", services.ErrConflict)
	w = do(r, http.MethodPost, "/admin/applications/doc-1/approve", auth, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, decode(t, w).Error, "diploma")
}

func TestStats(t *testing.T) {
	store := newFakeStore()
	admin := store.addUser("admin-1", models.RoleAdmin)
	stats := &fakeStats{}
	r := adminRouter(store, &fakeApplications{}, stats)
	auth := bearer(t, admin)

	w := do(r, http.MethodGet, "/admin/stats?days=7", auth, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 7, stats.days)
	var got models.Stats
	decodeData(t, w, &got)
	assert.Equal(t, int64(4), got.TotalAppointments)

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/admin/stats?days=400", auth, nil).Code)

	w = do(r, http.MethodGet, "/admin/stats/export", auth, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "stats-")
	assert.Equal(t, "PK", w.Body.String()[:2])

	stats.err = errors.New("connection refused")
	w = do(r, http.MethodGet, "/admin/stats", auth, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "connection refused")
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name   string
		cache  error
		code   int
		status string
	}{
		{"all up", nil, http.StatusOK, "UP"},
		{"cache down", errors.New("dial tcp: refused"), http.StatusServiceUnavailable, "DOWN"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(map[string]Pinger{
				"database": fakePinger{},
				"cache":    fakePinger{err: tt.cache},
			})
			r := gin.New()
			r.GET("/health", h.Health)

			w := do(r, http.MethodGet, "/health", "", nil)
			assert.Equal(t, tt.code, w.Code)
			assert.Contains(t, w.Body.String(), `"status":"`+tt.status+`"`)
			assert.Contains(t, w.Body.String(), `"database":"UP"`)
		})
	}
}
