// Package reports renders downloadable documents: consultation records as PDF
// and the admin dashboard as a spreadsheet.
package reports

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"medical-booking-server/internal/models"
)

const platformName = "Medical Booking"

// ConsultationPDF renders a consultation record. Appointment, Patient and
// Doctor (with User and Specialty) must be preloaded.
func ConsultationPDF(rec *models.ConsultationRecord, generatedAt time.Time) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetTitle("Consultation record", true)
	pdf.SetAuthor(platformName, true)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Arial", "B", 16)
	pdf.SetTextColor(20, 60, 120)
	pdf.CellFormat(0, 10, platformName, "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(0, 6, "Consultation record", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	doctor := rec.Doctor
	detail(pdf, tr, "Patient", rec.Patient.FullName())
	if cpf := models.MaskCPF(rec.Patient.CPF); cpf != "" {
		detail(pdf, tr, "CPF", cpf)
	}
	detail(pdf, tr, "Doctor", "Dr. "+doctor.User.FullName())
	detail(pdf, tr, "CRM", fmt.Sprintf("%s/%s", doctor.CRM, doctor.CRMState))
	if doctor.Specialty.Name != "" {
		detail(pdf, tr, "Specialty", doctor.Specialty.Name)
	}
	if rec.Appointment.ID != "" {
		detail(pdf, tr, "Appointment", rec.Appointment.DateString()+" "+rec.Appointment.Time)
	}
	if rec.FollowUpDate != nil {
		detail(pdf, tr, "Follow-up", rec.FollowUpDate.Format(models.DateLayout))
	}
	pdf.Ln(4)

	section(pdf, tr, "Chief complaint", rec.ChiefComplaint)
	section(pdf, tr, "Diagnosis", rec.Diagnosis)
	section(pdf, tr, "Prescription", rec.Prescription)
	section(pdf, tr, "Notes", rec.Notes)

	pdf.SetY(-25)
	pdf.SetFont("Arial", "I", 8)
	pdf.SetTextColor(110, 110, 110)
	pdf.CellFormat(0, 5, "Generated "+generatedAt.Format("2006-01-02 15:04 MST")+" - confidential medical information", "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render consultation pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func detail(pdf *gofpdf.Fpdf, tr func(string) string, label, value string) {
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(240, 240, 240)
	pdf.CellFormat(40, 8, label, "1", 0, "", true, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 8, tr(value), "1", 1, "", false, 0, "")
}

func section(pdf *gofpdf.Fpdf, tr func(string) string, title, body string) {
	body = strings.TrimSpace(body)
	if body == "" {
		return
	}
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, title, "B", 1, "", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.MultiCell(0, 5, tr(body), "", "L", false)
	pdf.Ln(3)
}
