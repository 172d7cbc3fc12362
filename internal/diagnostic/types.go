package diagnostic

import (
	"errors"
	"fmt"
	"strings"

	"datatables/internal/common"

	"go.uber.org/zap"
)

// Diagnostics accumulates problems found while walking a value graph or a schema.
type Diagnostics struct {
	Errors   []Diagnostic
	Warnings []Diagnostic
	Infos    []Diagnostic
}

// Diagnostic represents a single diagnostic message.
type Diagnostic struct {
	// Severity of the diagnostic.
	Severity DiagnosticSeverity
	// Code is a unique identifier for this type of diagnostic.
	Code string
	// Message is the human-readable description.
	Message string
	// Type names the type this relates to (if any).
	Type string
	// FieldPath identifies which field this relates to (if any).
	FieldPath string
	// Suggestions are potential fixes or alternatives.
	Suggestions []string
}

// DiagnosticSeverity represents the severity level of a diagnostic.
type DiagnosticSeverity int

const (
	DiagnosticInfo DiagnosticSeverity = iota
	DiagnosticWarning
	DiagnosticError
)

// String returns a human-readable severity name.
func (s DiagnosticSeverity) String() string {
	switch s {
	case DiagnosticInfo:
		return "info"
	case DiagnosticWarning:
		return "warning"
	case DiagnosticError:
		return "error"
	default:
		return common.UnknownStr
	}
}

// AddError adds an error diagnostic.
func (d *Diagnostics) AddError(code, message, typeName, fieldPath string) {
	d.Errors = append(d.Errors, Diagnostic{
		Severity:  DiagnosticError,
		Code:      code,
		Message:   message,
		Type:      typeName,
		FieldPath: fieldPath,
	})
}

// AddWarning adds a warning diagnostic.
func (d *Diagnostics) AddWarning(code, message, typeName, fieldPath string) {
	d.Warnings = append(d.Warnings, Diagnostic{
		Severity:  DiagnosticWarning,
		Code:      code,
		Message:   message,
		Type:      typeName,
		FieldPath: fieldPath,
	})
}

// AddInfo adds an info diagnostic.
func (d *Diagnostics) AddInfo(code, message, typeName, fieldPath string) {
	d.Infos = append(d.Infos, Diagnostic{
		Severity:  DiagnosticInfo,
		Code:      code,
		Message:   message,
		Type:      typeName,
		FieldPath: fieldPath,
	})
}

// HasErrors returns true if there are any error diagnostics.
func (d *Diagnostics) HasErrors() bool {
	return len(d.Errors) > 0
}

// AddSuggestions attaches suggestions to the most recent entry of the given severity.
func (d *Diagnostics) AddSuggestions(severity DiagnosticSeverity, suggestions ...string) {
	var list []Diagnostic

	switch severity {
	case DiagnosticError:
		list = d.Errors
	case DiagnosticWarning:
		list = d.Warnings
	default:
		list = d.Infos
	}

	if len(list) == 0 {
		return
	}

	last := &list[len(list)-1]
	last.Suggestions = append(last.Suggestions, suggestions...)
}

// HasWarnings returns true if there are any warning diagnostics.
func (d *Diagnostics) HasWarnings() bool {
	return len(d.Warnings) > 0
}

// Len returns the number of entries of all severities.
func (d *Diagnostics) Len() int {
	return len(d.Errors) + len(d.Warnings) + len(d.Infos)
}

// Codes returns the codes of all entries, errors first.
func (d *Diagnostics) Codes() []string {
	codes := make([]string, 0, d.Len())
	for _, list := range [][]Diagnostic{d.Errors, d.Warnings, d.Infos} {
		for _, e := range list {
			codes = append(codes, e.Code)
		}
	}

	return codes
}

// Merge merges another Diagnostics instance into this one.
func (d *Diagnostics) Merge(other *Diagnostics) {
	if other == nil {
		return
	}

	d.Errors = append(d.Errors, other.Errors...)
	d.Warnings = append(d.Warnings, other.Warnings...)
	d.Infos = append(d.Infos, other.Infos...)
}

// IsValid returns true if there are no errors.
func (d *Diagnostics) IsValid() bool {
	return len(d.Errors) == 0
}

// Error returns a combined error from all error diagnostics, or nil if valid.
func (d *Diagnostics) Error() error {
	if d.IsValid() {
		return nil
	}

	var parts []string
	for _, e := range d.Errors {
		parts = append(parts, e.String())
	}

	return errors.New(strings.Join(parts, "; "))
}

// String returns a formatted diagnostic string.
func (d Diagnostic) String() string {
	var prefix []string
	if d.Type != "" {
		prefix = append(prefix, "["+d.Type+"]")
	}

	if d.FieldPath != "" {
		prefix = append(prefix, d.FieldPath)
	}

	msg := d.Message
	if d.Code != "" {
		msg = fmt.Sprintf("[%s] %s", d.Code, msg)
	}

	if len(d.Suggestions) > 0 {
		msg += " (did you mean " + strings.Join(d.Suggestions, ", ") + "?)"
	}

	if len(prefix) > 0 {
		return strings.Join(prefix, " ") + ": " + msg
	}

	return msg
}

// Log writes every entry to logger: errors and warnings at Warn, infos at Debug.
func (d *Diagnostics) Log(logger *zap.Logger) {
	if d == nil || logger == nil {
		return
	}

	for _, list := range [][]Diagnostic{d.Errors, d.Warnings} {
		for _, e := range list {
			logger.Warn(e.Message, e.fields()...)
		}
	}

	for _, e := range d.Infos {
		logger.Debug(e.Message, e.fields()...)
	}
}

func (d Diagnostic) fields() []zap.Field {
	fields := []zap.Field{
		zap.String("severity", d.Severity.String()),
		zap.String("code", d.Code),
		zap.String("path", d.FieldPath),
		zap.String("type", d.Type),
	}

	if len(d.Suggestions) > 0 {
		fields = append(fields, zap.Strings("suggestions", d.Suggestions))
	}

	return fields
}
