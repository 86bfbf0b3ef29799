package logging

import (
	"math"
	"strings"
	"testing"
)

func TestMetricTableRendering(t *testing.T) {
	table := NewStemTable()
	table.AddMetricRow("Estimated Loudness", []float64{-18.2, -15.7, -14.0}, 1, "dB", "streaming target")
	table.AddMetricRow("Peak Level", []float64{0.82, 0.91, 0.98}, 2, "", "")

	out := table.String()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want header + 2 rows", len(lines))
	}

	header := lines[0]
	for _, h := range []string{"Vocals", "Music", "Mix", "Interpretation"} {
		if !strings.Contains(header, h) {
			t.Errorf("header missing %q: %q", h, header)
		}
	}
	if !strings.Contains(lines[1], "-18.2") || !strings.Contains(lines[1], "dB") {
		t.Errorf("loudness row malformed: %q", lines[1])
	}
	if !strings.Contains(lines[1], "streaming target") {
		t.Errorf("interpretation missing: %q", lines[1])
	}

	// Columns align: every value column ends at the same offset in each
	// row because values are right-aligned to a shared width.
	if idx1, idx2 := strings.Index(lines[1], "-18.2"), strings.Index(lines[2], "0.82"); idx1+len("-18.2") != idx2+len("0.82") {
		t.Errorf("first column not right-aligned: %q vs %q", lines[1], lines[2])
	}
}

func TestMetricTableMissingValues(t *testing.T) {
	table := NewMasterTable()
	table.AddMetricRow("Loudness", []float64{math.NaN(), -14.0}, 1, "dB", "")
	table.AddRow("Notes", []string{"", "limited"}, "", "")

	// Both the NaN metric and the empty pre-formatted value render as
	// the placeholder, padded within their column.
	out := table.String()
	if strings.Count(out, " "+MissingValue+" ") < 2 {
		t.Fatalf("missing values should render as %q:\n%s", MissingValue, out)
	}
}

func TestMetricTableEmpty(t *testing.T) {
	if out := NewStemTable().String(); out != "" {
		t.Fatalf("empty table should render nothing, got %q", out)
	}
}

func TestFormatMetric(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		decimals int
		want     string
	}{
		{"plain", 3.14159, 2, "3.14"},
		{"zero", 0, 1, "0.0"},
		{"nan", math.NaN(), 1, "-"},
		{"inf", math.Inf(1), 1, "-"},
		{"tiny switches to scientific", 0.00003, 2, "3.00e-05"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatMetric(tt.value, tt.decimals); got != tt.want {
				t.Errorf("formatMetric(%v, %d) = %q, want %q", tt.value, tt.decimals, got, tt.want)
			}
		})
	}
}

func TestFormatMetricDB(t *testing.T) {
	tests := []struct {
		value float64
		want  string
	}{
		{-14.04, "-14.0"},
		{-120.0, "< -120"},
		{-300.0, "< -120"},
		{math.Inf(-1), "< -120"},
	}
	for _, tt := range tests {
		if got := formatMetricDB(tt.value, 1); got != tt.want {
			t.Errorf("formatMetricDB(%v) = %q, want %q", tt.value, got, tt.want)
		}
	}
}

func TestFormatMetricSigned(t *testing.T) {
	if got := formatMetricSigned(2.5, 1); got != "+2.5" {
		t.Errorf("got %q, want +2.5", got)
	}
	if got := formatMetricSigned(-3.2, 1); got != "-3.2" {
		t.Errorf("got %q, want -3.2", got)
	}
}

func TestFormatMetricHz(t *testing.T) {
	if got := formatMetricHz(440.5); got != "440.5" {
		t.Errorf("got %q, want 440.5", got)
	}
	if got := formatMetricHz(3500.7); got != "3501" {
		t.Errorf("got %q, want 3501", got)
	}
}
