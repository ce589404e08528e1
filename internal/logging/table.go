// Package logging writes session reports, calibration summaries and setup
// tips, and configures the structured logger.
// This file contains the table formatting shared by the report and the
// console summaries.

package logging

import (
	"fmt"
	"math"
	"strings"
)

// MetricRow represents a single row in a table.
// Values are pre-formatted strings to allow for mixed formatting.
type MetricRow struct {
	Label          string   // Row label, e.g., "top_left"
	Values         []string // One value per column
	Unit           string   // Unit suffix, e.g., "dBFS", "" for unitless
	Interpretation string   // Optional interpretation text (only shown if non-empty)
}

// MetricTable formats aligned columns of per-channel metrics.
// Handles variable column widths, missing values, and optional interpretation column.
type MetricTable struct {
	Headers []string
	Rows    []MetricRow
}

// String renders the table with aligned columns.
// - Labels are left-aligned
// - Numeric values are right-aligned within their column
// - Units are appended after the last value column
// - Interpretation column only shown if any row has one
func (t *MetricTable) String() string {
	if len(t.Rows) == 0 {
		return ""
	}

	hasInterpretation := false
	for _, row := range t.Rows {
		if row.Interpretation != "" {
			hasInterpretation = true
			break
		}
	}

	labelWidth := 0
	for _, row := range t.Rows {
		labelWidth = max(labelWidth, len(row.Label))
	}

	valueWidths := make([]int, len(t.Headers))
	for i, header := range t.Headers {
		valueWidths[i] = len(header)
	}
	for _, row := range t.Rows {
		for i, val := range row.Values {
			if i < len(valueWidths) && len(val) > valueWidths[i] {
				valueWidths[i] = len(val)
			}
		}
	}

	unitWidth := 0
	for _, row := range t.Rows {
		unitWidth = max(unitWidth, len(row.Unit))
	}

	var sb strings.Builder

	sb.WriteString(strings.Repeat(" ", labelWidth+2))
	for i, header := range t.Headers {
		fmt.Fprintf(&sb, "%*s  ", valueWidths[i], header)
	}
	if unitWidth > 0 {
		sb.WriteString(strings.Repeat(" ", unitWidth+1))
	}
	if hasInterpretation {
		sb.WriteString("Interpretation")
	}
	sb.WriteString("\n")

	for _, row := range t.Rows {
		fmt.Fprintf(&sb, "%-*s  ", labelWidth, row.Label)

		for i := range t.Headers {
			val := MissingValue
			if i < len(row.Values) && row.Values[i] != "" {
				val = row.Values[i]
			}
			fmt.Fprintf(&sb, "%*s  ", valueWidths[i], val)
		}

		if unitWidth > 0 {
			fmt.Fprintf(&sb, "%-*s ", unitWidth, row.Unit)
		}
		if hasInterpretation {
			sb.WriteString(row.Interpretation)
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// =============================================================================
// Metric Formatting Helpers
// =============================================================================

// MissingValue is the placeholder for unavailable measurements
const MissingValue = "-"

// DigitalSilenceThreshold is the dBFS level below which a channel is
// considered dead (unplugged or muted on the interface).
const DigitalSilenceThreshold = -120.0

func isDigitalSilence(db float64) bool {
	return math.IsInf(db, -1) || db <= DigitalSilenceThreshold
}

// linearToDB converts an RMS or peak level to dBFS; 0 maps to -Inf.
func linearToDB(v float64) float64 {
	if v <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(v)
}

// formatMetric formats a numeric value with appropriate precision.
// Very small non-zero values use scientific notation; NaN/Inf give MissingValue.
func formatMetric(value float64, decimals int) string {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return MissingValue
	}
	if value != 0 && math.Abs(value) < 0.0001 {
		return fmt.Sprintf("%.2e", value)
	}
	return fmt.Sprintf("%.*f", decimals, value)
}

// formatMetricDB formats a dB value, showing "< -120" at the silence floor.
func formatMetricDB(value float64, decimals int) string {
	if math.IsNaN(value) || math.IsInf(value, 1) {
		return MissingValue
	}
	if isDigitalSilence(value) {
		return "< -120"
	}
	return fmt.Sprintf("%.*f", decimals, value)
}

// formatMetricLevel formats a linear level (0.0-1.0 full scale) in dBFS.
func formatMetricLevel(value float64, decimals int) string {
	if math.IsNaN(value) {
		return MissingValue
	}
	if value <= 0 {
		return "< -120"
	}
	return formatMetricDB(linearToDB(value), decimals)
}

// formatMetricSigned formats a value with explicit sign for positive values.
func formatMetricSigned(value float64, decimals int) string {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return MissingValue
	}
	return fmt.Sprintf("%+.*f", decimals, value)
}

// formatMetricWithUnit combines value and unit for display.
func formatMetricWithUnit(value float64, decimals int, unit string) string {
	formatted := formatMetric(value, decimals)
	if formatted == MissingValue || unit == "" {
		return formatted
	}
	return formatted + " " + unit
}

// formatPercent formats a 0-1 share as a percentage.
func formatPercent(share float64) string {
	if math.IsNaN(share) || math.IsInf(share, 0) {
		return MissingValue
	}
	return fmt.Sprintf("%.1f%%", share*100)
}

// =============================================================================
// Table Builder Helpers
// =============================================================================

// NewMetricTable creates an empty table with the given column headers.
func NewMetricTable(headers ...string) *MetricTable {
	return &MetricTable{
		Headers: headers,
		Rows:    make([]MetricRow, 0),
	}
}

// AddRow adds a row to the table with pre-formatted values.
func (t *MetricTable) AddRow(label string, values []string, unit string, interpretation string) {
	t.Rows = append(t.Rows, MetricRow{
		Label:          label,
		Values:         values,
		Unit:           unit,
		Interpretation: interpretation,
	})
}

// AddMetricRow adds a row of numeric values, one per column.
// Pass math.NaN() for missing values - they will display as "-".
func (t *MetricTable) AddMetricRow(label string, values []float64, decimals int, unit string, interpretation string) {
	formatted := make([]string, len(values))
	for i, v := range values {
		formatted[i] = formatMetric(v, decimals)
	}
	t.AddRow(label, formatted, unit, interpretation)
}
