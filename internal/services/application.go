package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"medical-booking-server/internal/mailer"
	"medical-booking-server/internal/models"
	"medical-booking-server/internal/repository"
)

// ApplicationInput is the account and professional data of a doctor applying.
type ApplicationInput struct {
	Email             string
	Password          string
	FirstName         string
	LastName          string
	CPF               string
	Phone             string
	DateOfBirth       *time.Time
	CRM               string
	CRMState          string
	SpecialtyID       string
	Bio               string
	ConsultationPrice int64
}

// UploadedFile is a verification document received with an application.
type UploadedFile struct {
	Kind     models.DocumentKind
	Name     string
	MimeType string
	Content  io.Reader
}

// ApplicationService runs the doctor onboarding and review workflow.
type ApplicationService struct {
	doctors  DoctorStore
	uploader FileUploader
	hasher   Hasher
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewApplicationService creates the service.
func NewApplicationService(doctors DoctorStore, uploader FileUploader, hasher Hasher, notifier Notifier, logger *zap.Logger) *ApplicationService {
	return &ApplicationService{
		doctors:  doctors,
		uploader: uploader,
		hasher:   hasher,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// Apply registers a doctor account with status pending and its documents.
func (s *ApplicationService) Apply(ctx context.Context, in ApplicationInput, files []UploadedFile) (*models.Doctor, error) {
	if err := checkKinds(files); err != nil {
		return nil, err
	}
	if missing := missingKinds(files, nil); len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing documents: %s", ErrValidation, joinKinds(missing))
	}

	email := normalizeEmail(in.Email)
	cpf := models.OnlyDigits(in.CPF)
	cpfHash := s.hasher.BlindIndex(cpf)
	crm := models.OnlyDigits(in.CRM)
	state := strings.ToUpper(in.CRMState)

	if taken, err := s.doctors.EmailTaken(ctx, email); err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	} else if taken {
		return nil, fmt.Errorf("%w: email already registered", ErrConflict)
	}
	if taken, err := s.doctors.CPFTaken(ctx, cpfHash); err != nil {
		return nil, fmt.Errorf("check cpf: %w", err)
	} else if taken {
		return nil, fmt.Errorf("%w: cpf already registered", ErrConflict)
	}
	if taken, err := s.doctors.CRMTaken(ctx, crm, state); err != nil {
		return nil, fmt.Errorf("check crm: %w", err)
	} else if taken {
		return nil, fmt.Errorf("%w: CRM %s/%s already registered", ErrConflict, crm, state)
	}
	specialty, err := s.doctors.FindSpecialty(ctx, in.SpecialtyID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown specialty", ErrValidation)
		}
		return nil, fmt.Errorf("load specialty: %w", err)
	}

	user := &models.User{
		Email:       email,
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		Role:        models.RoleDoctor,
		DateOfBirth: in.DateOfBirth,
		CPF:         cpf,
		CPFHash:     &cpfHash,
		Phone:       models.OnlyDigits(in.Phone),
	}
	if err := user.SetPassword(in.Password); err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	docs, err := s.upload(ctx, files)
	if err != nil {
		return nil, err
	}

	doctor := &models.Doctor{
		CRM:               crm,
		CRMState:          state,
		SpecialtyID:       specialty.ID,
		Bio:               in.Bio,
		ConsultationPrice: in.ConsultationPrice,
		Status:            models.DoctorPending,
	}
	if err := s.doctors.CreateApplication(ctx, user, doctor, docs); err != nil {
		s.discard(ctx, docs)
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("%w: account or CRM already registered", ErrConflict)
		}
		return nil, fmt.Errorf("create application: %w", err)
	}
	doctor.User = *user
	doctor.Specialty = *specialty
	doctor.Documents = docs

	s.logger.Info("doctor application received",
		zap.String("doctor_id", doctor.ID),
		zap.String("crm", crm+"/"+state),
		zap.Int("documents", len(docs)))

	s.notify(ctx, doctor, mailer.Message{
		Kind:    models.NotifyApplication,
		Subject: "Application received",
		Body:    "We received your application and documents.\n\nYou will be notified once an administrator reviews them.",
	})
	return doctor, nil
}

// ReviewDocument approves or rejects one document of a pending application.
func (s *ApplicationService) ReviewDocument(ctx context.Context, adminID, documentID string, approve bool, note string) (*models.DoctorDocument, error) {
	doc, err := s.doctors.FindDocument(ctx, documentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("document %s: %w", documentID, ErrNotFound)
		}
		return nil, fmt.Errorf("load document: %w", err)
	}
	doctor, err := s.findDoctor(ctx, doc.DoctorID)
	if err != nil {
		return nil, err
	}
	if doctor.Status != models.DoctorPending {
		return nil, fmt.Errorf("doctor is %s: %w", doctor.Status, ErrInvalidTransition)
	}
	if !approve && strings.TrimSpace(note) == "" {
		return nil, fmt.Errorf("%w: a note is required to reject a document", ErrValidation)
	}

	now := s.now()
	doc.Status = models.DocumentRejected
	if approve {
		doc.Status = models.DocumentApproved
	}
	doc.ReviewNote = note
	doc.ReviewedBy = &adminID
	doc.ReviewedAt = &now
	if err := s.doctors.SaveDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("save document: %w", err)
	}
	return doc, nil
}

// Approve accepts a pending doctor whose required documents are all approved.
func (s *ApplicationService) Approve(ctx context.Context, adminID, doctorID string) (*models.Doctor, error) {
	doctor, err := s.findDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	if doctor.Status != models.DoctorPending {
		return nil, fmt.Errorf("doctor is %s: %w", doctor.Status, ErrInvalidTransition)
	}
	for _, d := range doctor.Documents {
		if d.Status == models.DocumentPending {
			return nil, fmt.Errorf("document %s (%s) not reviewed: %w", d.ID, d.Kind, ErrInvalidTransition)
		}
	}
	if missing := missingApproved(doctor.Documents); len(missing) > 0 {
		return nil, fmt.Errorf("no approved %s: %w", joinKinds(missing), ErrInvalidTransition)
	}

	now := s.now()
	doctor.Status = models.DoctorApproved
	doctor.RejectionReason = ""
	doctor.ReviewedBy = &adminID
	doctor.ReviewedAt = &now
	if err := s.doctors.SaveApplication(ctx, doctor, nil); err != nil {
		return nil, fmt.Errorf("save doctor: %w", err)
	}

	s.logger.Info("doctor approved", zap.String("doctor_id", doctor.ID), zap.String("admin_id", adminID))
	s.notify(ctx, doctor, mailer.Message{
		Kind:    models.NotifyApplication,
		Subject: "Application approved",
		Body:    "Your application was approved.\n\nYou can now publish your schedule and receive appointments.",
	})
	return doctor, nil
}

// Reject refuses a pending doctor; documents still pending are rejected too.
func (s *ApplicationService) Reject(ctx context.Context, adminID, doctorID, reason string) (*models.Doctor, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: a rejection reason is required", ErrValidation)
	}
	doctor, err := s.findDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	if doctor.Status != models.DoctorPending {
		return nil, fmt.Errorf("doctor is %s: %w", doctor.Status, ErrInvalidTransition)
	}

	now := s.now()
	var touched []models.DoctorDocument
	for i := range doctor.Documents {
		d := &doctor.Documents[i]
		if d.Status != models.DocumentPending {
			continue
		}
		d.Status = models.DocumentRejected
		d.ReviewNote = reason
		d.ReviewedBy = &adminID
		d.ReviewedAt = &now
		touched = append(touched, *d)
	}
	doctor.Status = models.DoctorRejected
	doctor.RejectionReason = reason
	doctor.ReviewedBy = &adminID
	doctor.ReviewedAt = &now
	if err := s.doctors.SaveApplication(ctx, doctor, touched); err != nil {
		return nil, fmt.Errorf("save doctor: %w", err)
	}

	s.logger.Info("doctor rejected", zap.String("doctor_id", doctor.ID), zap.String("admin_id", adminID))
	s.notify(ctx, doctor, mailer.Message{
		Kind:    models.NotifyApplication,
		Subject: "Application rejected",
		Body:    "Your application was not approved.\n\nReason: " + reason + "\n\nYou may upload new documents and resubmit.",
	})
	return doctor, nil
}

// Resubmit uploads new documents for a rejected doctor and returns the application to pending.
func (s *ApplicationService) Resubmit(ctx context.Context, userID string, files []UploadedFile) (*models.Doctor, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: at least one document is required", ErrValidation)
	}
	if err := checkKinds(files); err != nil {
		return nil, err
	}
	doctor, err := s.doctors.FindDoctorByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("doctor profile: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("load doctor: %w", err)
	}
	if doctor.Status != models.DoctorRejected {
		return nil, fmt.Errorf("doctor is %s: %w", doctor.Status, ErrInvalidTransition)
	}
	if missing := missingKinds(files, doctor.Documents); len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing documents: %s", ErrValidation, joinKinds(missing))
	}

	docs, err := s.upload(ctx, files)
	if err != nil {
		return nil, err
	}
	for i := range docs {
		docs[i].DoctorID = doctor.ID
	}
	doctor.Status = models.DoctorPending
	doctor.RejectionReason = ""
	doctor.ReviewedBy = nil
	doctor.ReviewedAt = nil
	if err := s.doctors.SaveApplication(ctx, doctor, docs); err != nil {
		s.discard(ctx, docs)
		return nil, fmt.Errorf("save doctor: %w", err)
	}
	doctor.Documents = append(doctor.Documents, docs...)

	s.logger.Info("doctor application resubmitted", zap.String("doctor_id", doctor.ID), zap.Int("documents", len(docs)))
	s.notify(ctx, doctor, mailer.Message{
		Kind:    models.NotifyApplication,
		Subject: "Application resubmitted",
		Body:    "Your new documents were received and your application is back under review.",
	})
	return doctor, nil
}

func (s *ApplicationService) findDoctor(ctx context.Context, id string) (*models.Doctor, error) {
	doctor, err := s.doctors.FindDoctor(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("doctor %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("load doctor: %w", err)
	}
	return doctor, nil
}

// upload stores every file; on failure the ones already stored are removed.
func (s *ApplicationService) upload(ctx context.Context, files []UploadedFile) ([]models.DoctorDocument, error) {
	docs := make([]models.DoctorDocument, 0, len(files))
	for _, f := range files {
		res, err := s.uploader.Upload(ctx, f.Name, f.Content)
		if err != nil {
			s.discard(ctx, docs)
			return nil, fmt.Errorf("upload %s: %w", f.Kind, err)
		}
		docs = append(docs, models.DoctorDocument{
			Kind:         f.Kind,
			FileURL:      res.URL,
			PublicID:     res.PublicID,
			OriginalName: f.Name,
			MimeType:     f.MimeType,
			Status:       models.DocumentPending,
		})
	}
	return docs, nil
}

func (s *ApplicationService) discard(ctx context.Context, docs []models.DoctorDocument) {
	for _, d := range docs {
		if err := s.uploader.Delete(ctx, d.PublicID); err != nil {
			s.logger.Warn("remove orphaned upload", zap.String("public_id", d.PublicID), zap.Error(err))
		}
	}
}

func (s *ApplicationService) notify(ctx context.Context, doctor *models.Doctor, msg mailer.Message) {
	to := mailer.Recipient{UserID: doctor.UserID, Email: doctor.User.Email, Name: "Dr. " + doctor.User.FullName()}
	if to.UserID == "" {
		to.UserID = doctor.User.ID
	}
	if err := s.notifier.Notify(ctx, to, msg); err != nil {
		s.logger.Warn("notification failed", zap.String("doctor_id", doctor.ID), zap.Error(err))
	}
}

func checkKinds(files []UploadedFile) error {
	for _, f := range files {
		if !f.Kind.Valid() {
			return fmt.Errorf("%w: unknown document kind %q", ErrValidation, f.Kind)
		}
	}
	return nil
}

// missingKinds lists required kinds covered neither by files nor by an approved existing document.
func missingKinds(files []UploadedFile, existing []models.DoctorDocument) []models.DocumentKind {
	have := make(map[models.DocumentKind]bool)
	for _, f := range files {
		have[f.Kind] = true
	}
	for _, d := range existing {
		if d.Status == models.DocumentApproved {
			have[d.Kind] = true
		}
	}
	var missing []models.DocumentKind
	for _, k := range models.RequiredDocumentKinds {
		if !have[k] {
			missing = append(missing, k)
		}
	}
	return missing
}

func missingApproved(docs []models.DoctorDocument) []models.DocumentKind {
	return missingKinds(nil, docs)
}

func joinKinds(kinds []models.DocumentKind) string {
	parts := make([]string, len(kinds))
	for i, k := range kinds {
		parts[i] = string(k)
	}
	return strings.Join(parts, ", ")
}
