package diagnosis

import (
	"time"

	"github.com/Praharsha2005/Disease-Classification-using-AI/internal/gradcam"
)

// Patient fields are opaque here; the transport validates them.
type Patient struct {
	Name   string `json:"patient_name"`
	Age    string `json:"patient_age"`
	Gender string `json:"patient_gender"`
	Phone  string `json:"patient_phone"`
}

// Record is the request-scoped diagnosis returned to callers. Image fields
// hold PNG bytes and marshal as base64.
type Record struct {
	Patient

	RequestID         string  `json:"request_id"`
	Disease           string  `json:"disease"`
	Confidence        float64 `json:"confidence"`
	ConfidenceWarning string  `json:"confidence_warning,omitempty"`
	InputImage        []byte  `json:"input_image"`
	GradCAMImage      []byte  `json:"gradcam_image,omitempty"`
	AIResponse        string  `json:"ai_response"`
	DateStr           string  `json:"date_str"`
	TimeStr           string  `json:"time_str"`
	PDFAvailable      bool    `json:"pdf_available"`

	CreatedAt      time.Time        `json:"-"`
	Classification Classification   `json:"-"`
	Heatmap        *gradcam.Heatmap `json:"-"`
}

const (
	DateLayout = "02-01-2006"
	TimeLayout = "03:04 PM"
)

// Stamp sets the display date and time fields from t.
func (r *Record) Stamp(t time.Time) {
	r.CreatedAt = t
	r.DateStr = t.Format(DateLayout)
	r.TimeStr = t.Format(TimeLayout)
}
