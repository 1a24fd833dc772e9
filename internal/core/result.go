package core

import "time"

// UploadErrorPrefix starts the message of every failed upload result.
const UploadErrorPrefix = "Error uploading file: "

// ResultKind tags the variant held by a Result.
type ResultKind int

const (
	// ResultEmpty means no upload has completed yet.
	ResultEmpty ResultKind = iota
	// ResultFailed holds a human-readable error message.
	ResultFailed
	// ResultSucceeded holds the fields returned by the endpoint.
	ResultSucceeded
)

func (k ResultKind) String() string {
	switch k {
	case ResultFailed:
		return "failed"
	case ResultSucceeded:
		return "succeeded"
	default:
		return "empty"
	}
}

// Result is the outcome of the most recent completed upload.
// The zero value is an empty result.
type Result struct {
	Kind ResultKind

	// Message is set for ResultFailed.
	Message string

	// Rules and Validation are set for ResultSucceeded; either may be empty.
	Rules      string
	Validation string

	// Payload is the decoded response body, kept for the JSON API.
	Payload map[string]any

	CompletedAt time.Time
}

// FailedResult builds a failed result from the error that ended the upload.
func FailedResult(err error, at time.Time) Result {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return Result{
		Kind:        ResultFailed,
		Message:     UploadErrorPrefix + msg,
		CompletedAt: at,
	}
}

// SucceededResult builds a successful result.
func SucceededResult(rules, validation string, payload map[string]any, at time.Time) Result {
	return Result{
		Kind:        ResultSucceeded,
		Rules:       rules,
		Validation:  validation,
		Payload:     payload,
		CompletedAt: at,
	}
}

// IsEmpty reports whether no upload has completed.
func (r Result) IsEmpty() bool { return r.Kind == ResultEmpty }

// Text returns the value of a response field and whether it should be shown.
// Only successful results carry fields; an empty string counts as absent.
func (r Result) Text(f Field) (string, bool) {
	if r.Kind != ResultSucceeded {
		return "", false
	}
	var text string
	switch f.Key {
	case FieldRules.Key:
		text = r.Rules
	case FieldValidation.Key:
		text = r.Validation
	}
	return text, text != ""
}

// Panel is one displayed response field.
type Panel struct {
	Field Field
	Text  string
}

// Panels returns the fields to render, in display order.
func (r Result) Panels() []Panel {
	var panels []Panel
	for _, f := range Fields {
		if text, ok := r.Text(f); ok {
			panels = append(panels, Panel{Field: f, Text: text})
		}
	}
	return panels
}

// Field describes one of the response fields the endpoint may return.
type Field struct {
	Key         string // JSON key in the response body
	Slug        string // URL path segment and CLI name
	Title       string
	ExportLabel string
	Filename    string
}

var (
	FieldRules = Field{
		Key:         "rules_generated",
		Slug:        "rules",
		Title:       "Generated Rules",
		ExportLabel: "Export Rules as CSV",
		Filename:    "rules_generated.csv",
	}
	FieldValidation = Field{
		Key:         "validation_response",
		Slug:        "validation",
		Title:       "Validation Response",
		ExportLabel: "Export Validation as CSV",
		Filename:    "validation_results.csv",
	}

	// Fields lists the known response fields in display order.
	Fields = []Field{FieldRules, FieldValidation}
)

// FieldBySlug looks up a field by its URL slug.
func FieldBySlug(slug string) (Field, bool) {
	for _, f := range Fields {
		if f.Slug == slug {
			return f, true
		}
	}
	return Field{}, false
}
