package model

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadLabelsShippedTable(t *testing.T) {
	table, err := LoadLabels(filepath.Join("..", "..", "configs", "labels.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if table.Version == "" {
		t.Fatal("expected a version")
	}
	if table.Len() != 4 {
		t.Fatalf("expected 4 classes, got %d", table.Len())
	}

	tests := []struct {
		raw  string
		want string
	}{
		{"TURBERCULOSIS", "TUBERCULOSIS"},
		{"COVID19", "COVID-19"},
		{"PNEUMONIA", "PNEUMONIA"},
		{"NORMAL", "NORMAL"},
	}
	for _, tt := range tests {
		if got := table.Canonical(tt.raw); got != tt.want {
			t.Errorf("Canonical(%q) = %q, expected %q", tt.raw, got, tt.want)
		}
	}
	if !table.IsNormal(table.Canonical("NORMAL")) {
		t.Fatal("NORMAL should be the normal label")
	}
}

func TestLabelOutOfRange(t *testing.T) {
	table := &LabelTable{Normal: "NORMAL", Classes: []string{"NORMAL", "PNEUMONIA"}}

	if got, err := table.Label(1); err != nil || got != "PNEUMONIA" {
		t.Fatalf("Label(1) = %q, %v", got, err)
	}
	for _, i := range []int{-1, 2} {
		if _, err := table.Label(i); err == nil {
			t.Errorf("expected error for index %d", i)
		}
	}
}

func TestLoadLabelsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errPart string
	}{
		{"empty classes", "normal: NORMAL\nclasses: []\n", "classes"},
		{"missing normal", "classes: [A, B]\n", "normal label is required"},
		{"normal not present", "normal: NORMAL\nclasses: [A, B]\n", "not among the classes"},
		{"duplicate", "normal: A\nclasses: [A, A]\n", "duplicate"},
		{"not yaml", "classes: [A\n", "parse"},
		{"unknown precaution", "normal: A\nclasses: [A, B]\nprecautions: [C]\n", "not a canonical disease"},
		{"normal precaution", "normal: A\nclasses: [A, B]\nprecautions: [A]\n", "not a canonical disease"},
		{"raw precaution", "normal: A\nclasses: [A, B]\naliases: {B: B2}\nprecautions: [B]\n", "not a canonical disease"},
		{"duplicate precaution", "normal: A\nclasses: [A, B]\nprecautions: [B, B]\n", "duplicate precaution"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "labels.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0o600); err != nil {
				t.Fatal(err)
			}
			_, err := LoadLabels(path)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.errPart) {
				t.Fatalf("expected %q in error, got %v", tt.errPart, err)
			}
		})
	}
}

func TestDiseasesOrder(t *testing.T) {
	table, err := LoadLabels(filepath.Join("..", "..", "configs", "labels.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"TUBERCULOSIS", "COVID-19", "PNEUMONIA"}
	if got := table.Diseases(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("expected %v, got %v", want, got)
	}

	table.Precautions = nil
	want = []string{"COVID-19", "PNEUMONIA", "TUBERCULOSIS"}
	if got := table.Diseases(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("without precautions expected class order %v, got %v", want, got)
	}
}
