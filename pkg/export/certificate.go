package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jung-kurt/gofpdf"
)

// Certificate describes a completion certificate to render.
type Certificate struct {
	StudentName    string
	CourseTitle    string
	InstructorName string
	CompletedAt    time.Time
	IssuerName     string
	SerialNumber   string
}

// CertificateRenderer produces completion certificate PDFs.
type CertificateRenderer struct {
	issuer string
}

// NewCertificateRenderer constructs a renderer stamped with the issuer name.
func NewCertificateRenderer(issuer string) *CertificateRenderer {
	if issuer == "" {
		issuer = "EduFlow"
	}
	return &CertificateRenderer{issuer: issuer}
}

// Render creates a landscape A4 certificate document.
func (r *CertificateRenderer) Render(cert Certificate) ([]byte, error) {
	if cert.StudentName == "" || cert.CourseTitle == "" {
		return nil, fmt.Errorf("certificate requires student and course")
	}
	if cert.IssuerName == "" {
		cert.IssuerName = r.issuer
	}
	if cert.SerialNumber == "" {
		cert.SerialNumber = uuid.NewString()
	}
	if cert.CompletedAt.IsZero() {
		cert.CompletedAt = time.Now().UTC()
	}

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(20, 25, 20)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 26)
	pdf.CellFormat(0, 16, "CERTIFICATE OF COMPLETION", "", 1, "C", false, 0, "")
	pdf.Ln(8)

	pdf.SetFont("Arial", "", 13)
	pdf.CellFormat(0, 8, "This certifies that", "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Arial", "B", 20)
	pdf.CellFormat(0, 12, cert.StudentName, "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Arial", "", 13)
	pdf.CellFormat(0, 8, "has successfully completed the course", "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, cert.CourseTitle, "", 1, "C", false, 0, "")
	pdf.Ln(6)

	pdf.SetFont("Arial", "", 11)
	if cert.InstructorName != "" {
		pdf.CellFormat(0, 7, fmt.Sprintf("Instructor: %s", cert.InstructorName), "", 1, "C", false, 0, "")
	}
	pdf.CellFormat(0, 7, fmt.Sprintf("Completed on %s", cert.CompletedAt.Format("January 2, 2006")), "", 1, "C", false, 0, "")
	pdf.Ln(10)

	pdf.SetFont("Arial", "I", 9)
	pdf.CellFormat(0, 6, fmt.Sprintf("Issued by %s", cert.IssuerName), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Certificate no. %s", cert.SerialNumber), "", 1, "C", false, 0, "")

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render certificate: %w", err)
	}
	return buf.Bytes(), nil
}
