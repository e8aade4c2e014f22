package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"

	"github.com/Praharsha2005/Disease-Classification-using-AI/internal/diagnosis"
	"github.com/Praharsha2005/Disease-Classification-using-AI/internal/logger"
	"github.com/Praharsha2005/Disease-Classification-using-AI/internal/report"
)

const (
	msgNoImage       = "Please upload an image file."
	msgPatient       = "Please fill all patient details."
	msgImageFormat   = "Please upload a valid image format."
	msgNotChestXray  = "Please upload a valid Chest X-ray image."
	msgPredictFailed = "Prediction failed. Please try again later."
	msgBadReport     = "Invalid report payload."
	msgReportFailed  = "Could not generate the report."
)

type Diagnoser interface {
	Run(ctx context.Context, req diagnosis.Request) (*diagnosis.Record, error)
}

type ReportRenderer interface {
	Render(p diagnosis.Patient, rec diagnosis.Record) ([]byte, error)
}

type Handler struct {
	diagnoser Diagnoser
	reports   ReportRenderer
	maxUpload int64
	log       *slog.Logger
}

func NewHandler(d Diagnoser, r ReportRenderer, maxUpload int64, log *slog.Logger) *Handler {
	if log == nil {
		log = logger.Discard()
	}
	return &Handler{
		diagnoser: d,
		reports:   r,
		maxUpload: maxUpload,
		log:       log,
	}
}

type patientForm struct {
	Name         string `form:"patient_name" binding:"required"`
	Age          string `form:"patient_age" binding:"required"`
	Gender       string `form:"patient_gender" binding:"required"`
	Phone        string `form:"patient_phone" binding:"required"`
	ExplainClass string `form:"explain_class"`
}

func (f patientForm) patient() (diagnosis.Patient, bool) {
	p := diagnosis.Patient{
		Name:   strings.TrimSpace(f.Name),
		Age:    strings.TrimSpace(f.Age),
		Gender: strings.TrimSpace(f.Gender),
		Phone:  strings.TrimSpace(f.Phone),
	}
	ok := p.Name != "" && p.Age != "" && p.Gender != "" && p.Phone != ""
	return p, ok
}

type reportRequest struct {
	PatientData    diagnosis.Patient `json:"patient_data"`
	PredictionData diagnosis.Record  `json:"prediction_data"`
}

func (h *Handler) Home(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Backend is running successfully"})
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (h *Handler) Predict(c *gin.Context) {
	if c.Request.ContentLength > h.bodyLimit() {
		h.tooLarge(c)
		return
	}

	fh, err := c.FormFile("image")
	if err != nil {
		if isTooLarge(err) {
			h.tooLarge(c)
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": msgNoImage})
		return
	}

	var form patientForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgPatient})
		return
	}
	patient, ok := form.patient()
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgPatient})
		return
	}

	req := diagnosis.Request{Patient: patient}
	if form.ExplainClass != "" {
		idx, err := cast.ToIntE(strings.TrimSpace(form.ExplainClass))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "explain_class must be an integer"})
			return
		}
		req.ExplainClass = &idx
	}

	if fh.Size > h.maxUpload {
		h.tooLarge(c)
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgNoImage})
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.maxUpload+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgNoImage})
		return
	}
	if int64(len(data)) > h.maxUpload {
		h.tooLarge(c)
		return
	}

	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		h.log.Info("predict.rejected_mime", "mime", mt.String(), "filename", fh.Filename)
		c.JSON(http.StatusBadRequest, gin.H{"error": msgImageFormat})
		return
	}
	req.Image = data

	rec, err := h.diagnoser.Run(c.Request.Context(), req)
	if err != nil {
		status, msg := errorResponse(err)
		if status >= http.StatusInternalServerError {
			h.log.Error("predict.failed", "error", err)
		}
		c.JSON(status, gin.H{"error": msg})
		return
	}

	c.JSON(http.StatusOK, rec)
}

func (h *Handler) DownloadReport(c *gin.Context) {
	var req reportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgBadReport})
		return
	}
	if req.PatientData == (diagnosis.Patient{}) {
		req.PatientData = req.PredictionData.Patient
	}

	pdf, err := h.reports.Render(req.PatientData, req.PredictionData)
	if err != nil {
		h.log.Error("report.failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgReportFailed})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.FileName))
	c.Data(http.StatusOK, report.ContentType, pdf)
}

// errorResponse maps pipeline failures to a status code and the message
// shown to the user.
func errorResponse(err error) (int, string) {
	var de *diagnosis.Error
	if !errors.As(err, &de) {
		return http.StatusInternalServerError, msgPredictFailed
	}
	switch de.Kind {
	case diagnosis.KindDecode:
		return http.StatusUnprocessableEntity, msgImageFormat
	case diagnosis.KindDomainRejected:
		return http.StatusUnprocessableEntity, msgNotChestXray
	case diagnosis.KindInvalidRequest:
		return http.StatusBadRequest, de.Err.Error()
	default:
		return http.StatusInternalServerError, msgPredictFailed
	}
}

func (h *Handler) tooLarge(c *gin.Context) {
	c.JSON(http.StatusRequestEntityTooLarge, gin.H{
		"error": fmt.Sprintf("File size too large. Upload below %dMB.", h.maxUpload>>20),
	})
}

// bodyLimit leaves room for the patient fields around the file part.
func (h *Handler) bodyLimit() int64 {
	return h.maxUpload + 1<<20
}

func isTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}
