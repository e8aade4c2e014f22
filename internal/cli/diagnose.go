package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Praharsha2005/Disease-Classification-using-AI/internal/app"
	"github.com/Praharsha2005/Disease-Classification-using-AI/internal/diagnosis"
	"github.com/Praharsha2005/Disease-Classification-using-AI/internal/logger"
)

func diagnoseCmd(debug *bool) *cobra.Command {
	var imagePath string
	var overlayPath string
	var class int
	var format string
	var patient diagnosis.Patient

	c := &cobra.Command{
		Use:   "diagnose",
		Short: "Run one image through the pipeline and print the result",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if format != "pretty" && format != "json" {
				return fmt.Errorf("unknown format %q (want pretty|json)", format)
			}
			data, err := os.ReadFile(imagePath)
			if err != nil {
				return err
			}

			cfg, cleanup, err := setup(*debug)
			if err != nil {
				return err
			}
			defer cleanup()

			application, err := app.New(cfg, logger.L())
			if err != nil {
				return err
			}
			defer application.Close()

			req := diagnosis.Request{Image: data, Patient: patient}
			if cmd.Flags().Changed("class") {
				req.ExplainClass = &class
			}

			rec, err := application.Diagnose(cmd.Context(), req)
			if err != nil {
				return err
			}

			if overlayPath != "" && len(rec.GradCAMImage) > 0 {
				if err := os.WriteFile(overlayPath, rec.GradCAMImage, 0o644); err != nil {
					return err
				}
			}
			return printRecord(cmd.OutOrStdout(), rec, format)
		},
	}

	c.Flags().StringVarP(&imagePath, "image", "i", "", "Path to the chest X-ray image (required)")
	c.Flags().StringVarP(&overlayPath, "overlay", "o", "", "Write the Grad-CAM overlay PNG here")
	c.Flags().IntVar(&class, "class", 0, "Explain this class index instead of the predicted one")
	c.Flags().StringVar(&format, "format", "pretty", "Output format: pretty|json")
	c.Flags().StringVar(&patient.Name, "name", "", "Patient name")
	c.Flags().StringVar(&patient.Age, "age", "", "Patient age")
	c.Flags().StringVar(&patient.Gender, "gender", "", "Patient gender")
	c.Flags().StringVar(&patient.Phone, "phone", "", "Patient phone")

	_ = c.MarkFlagRequired("image")
	return c
}

type summary struct {
	RequestID         string  `json:"request_id"`
	Disease           string  `json:"disease"`
	Confidence        float64 `json:"confidence"`
	ConfidenceWarning string  `json:"confidence_warning,omitempty"`
	GradCAM           bool    `json:"gradcam"`
	AIResponse        string  `json:"ai_response"`
	Date              string  `json:"date"`
	Time              string  `json:"time"`
}

func printRecord(w io.Writer, rec *diagnosis.Record, format string) error {
	s := summary{
		RequestID:         rec.RequestID,
		Disease:           rec.Disease,
		Confidence:        rec.Confidence,
		ConfidenceWarning: rec.ConfidenceWarning,
		GradCAM:           len(rec.GradCAMImage) > 0,
		AIResponse:        rec.AIResponse,
		Date:              rec.DateStr,
		Time:              rec.TimeStr,
	}

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	case "pretty":
		fmt.Fprintf(w, "Disease:    %s\n", s.Disease)
		fmt.Fprintf(w, "Confidence: %.2f%%\n", s.Confidence)
		if s.ConfidenceWarning != "" {
			fmt.Fprintf(w, "Warning:    %s\n", s.ConfidenceWarning)
		}
		fmt.Fprintf(w, "Grad-CAM:   %t\n", s.GradCAM)
		fmt.Fprintf(w, "Date:       %s %s\n", s.Date, s.Time)
		fmt.Fprintf(w, "Request:    %s\n", s.RequestID)
		if s.AIResponse != "" {
			fmt.Fprintf(w, "\n%s\n", s.AIResponse)
		}
		return nil
	default:
		return fmt.Errorf("unknown format %q (want pretty|json)", format)
	}
}
