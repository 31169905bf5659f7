// Package lint runs well-formedness checks over the program content:
// roster entries and tutorial articles. It produces a report, never an
// error — broken content is data about the content, not a failure of
// the service.
//
// The source material keeps the roster unique "by convention", so
// duplicate names and emails are warnings here rather than storage
// constraints.
package lint

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/progsite/roster-api/internal/types"
)

// Severity of a single finding.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Issue is one finding against one subject.
type Issue struct {
	Severity string `json:"severity"`
	Subject  string `json:"subject"` // e.g. "student/3" or "article/adolc-gpu"
	Field    string `json:"field,omitempty"`
	Message  string `json:"message"`
}

// Report is the result of a full lint pass.
type Report struct {
	Checked  int     `json:"checked"`
	Errors   int     `json:"errors"`
	Warnings int     `json:"warnings"`
	Issues   []Issue `json:"issues"`
}

func (r *Report) add(severity, subject, field, message string) {
	r.Issues = append(r.Issues, Issue{
		Severity: severity,
		Subject:  subject,
		Field:    field,
		Message:  message,
	})
	if severity == SeverityError {
		r.Errors++
	} else {
		r.Warnings++
	}
}

// Run lints all entries and articles and returns the combined report.
// Issues is always non-nil so the JSON encodes as [] when clean.
func Run(entries []types.StudentEntry, articles []types.Article) Report {
	report := Report{Issues: make([]Issue, 0)}
	report.Checked = len(entries) + len(articles)

	v := validator.New()

	seenEmails := make(map[string]string) // lowercased email → first subject
	seenNames := make(map[string]string)

	for _, entry := range entries {
		subject := fmt.Sprintf("student/%d", entry.ID)

		addFieldIssues(&report, v.Struct(entry), subject)
		if entry.Past != nil {
			addFieldIssues(&report, v.Struct(entry.Past), subject+"/past")
		}

		if len(entry.Mentors) == 0 {
			report.add(SeverityWarning, subject, "mentors", "entry has no mentors")
		}

		if email := strings.ToLower(strings.TrimSpace(entry.Email)); email != "" {
			if first, ok := seenEmails[email]; ok {
				report.add(SeverityWarning, subject, "email",
					fmt.Sprintf("duplicate email %q, also used by %s", entry.Email, first))
			} else {
				seenEmails[email] = subject
			}
		}
		if name := strings.ToLower(strings.TrimSpace(entry.Name)); name != "" {
			if first, ok := seenNames[name]; ok {
				report.add(SeverityWarning, subject, "name",
					fmt.Sprintf("duplicate name %q, also used by %s", entry.Name, first))
			} else {
				seenNames[name] = subject
			}
		}
	}

	for _, a := range articles {
		subject := "article/" + a.Slug

		if strings.TrimSpace(a.Title) == "" {
			report.add(SeverityError, subject, "title", "article has no title")
		}
		if a.Date.IsZero() {
			report.add(SeverityWarning, subject, "date", "article has no date")
		}
		// Tutorial articles embed sample code; an odd number of ```
		// fences means a truncated or mangled paste.
		if countFences(a.Body)%2 != 0 {
			report.add(SeverityError, subject, "body", "unbalanced code fence")
		}
	}

	return report
}

// addFieldIssues folds validator findings into the report as errors.
func addFieldIssues(report *Report, err error, subject string) {
	if err == nil {
		return
	}
	validateErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		report.add(SeverityError, subject, "", err.Error())
		return
	}
	for _, e := range validateErrs {
		switch e.ActualTag() {
		case "required":
			report.add(SeverityError, subject, e.Field(),
				fmt.Sprintf("field %s is required", e.Field()))
		case "email":
			report.add(SeverityError, subject, e.Field(),
				fmt.Sprintf("field %s must be a valid email address", e.Field()))
		case "url":
			report.add(SeverityError, subject, e.Field(),
				fmt.Sprintf("field %s must be a valid URL", e.Field()))
		case "http_url":
			report.add(SeverityError, subject, e.Field(),
				fmt.Sprintf("field %s must be a valid http(s) URL", e.Field()))
		default:
			report.add(SeverityError, subject, e.Field(),
				fmt.Sprintf("field %s is invalid", e.Field()))
		}
	}
}

// countFences counts lines that open or close a ``` block. Indented
// fences (inside lists) count too; language tags after the backticks
// don't matter.
func countFences(body string) int {
	count := 0
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			count++
		}
	}
	return count
}
