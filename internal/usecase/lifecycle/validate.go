package lifecycle

import (
	"fmt"
	"path"
	"strings"
	"unicode/utf8"
)

const (
	MaxFileSize       = 10 << 20
	MaxApplicantFiles = 50
)

var allowedExtensions = map[string]bool{
	".pdf":  true,
	".docx": true,
	".txt":  true,
}

const docxMime = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

func allowedMime(ct string) bool {
	switch baseMime(ct) {
	case "application/pdf", docxMime, "text/plain":
		return true
	}
	return false
}

func validateMetadata(m Metadata) (Metadata, error) {
	m.JobTitle = strings.TrimSpace(m.JobTitle)
	if n := utf8.RuneCountInString(m.JobTitle); n < 2 || n > 200 {
		return m, fmt.Errorf("%w: jobTitle must be between 2 and 200 characters", ErrValidation)
	}
	var err error
	if m.Department, err = optional(m.Department, "department", 100); err != nil {
		return m, err
	}
	if m.Seniority, err = optional(m.Seniority, "seniority", 50); err != nil {
		return m, err
	}
	return m, nil
}

func optional(v *string, field string, limit int) (*string, error) {
	if v == nil {
		return nil, nil
	}
	s := strings.TrimSpace(*v)
	if s == "" {
		return nil, nil
	}
	if utf8.RuneCountInString(s) > limit {
		return nil, fmt.Errorf("%w: %s must be at most %d characters", ErrValidation, field, limit)
	}
	return &s, nil
}

// baseMime drops parameters such as "; charset=utf-8".
func baseMime(ct string) string {
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}

func validateUpload(label string, u Upload) error {
	ext := strings.ToLower(path.Ext(u.Filename))
	if !allowedExtensions[ext] {
		return fmt.Errorf("%w: %s: file type not allowed, allowed: .pdf, .docx, .txt", ErrValidation, label)
	}
	if !allowedMime(u.ContentType) {
		return fmt.Errorf("%w: %s: content type %q not allowed", ErrValidation, label, u.ContentType)
	}
	if u.Size < 1 {
		return fmt.Errorf("%w: %s: file is empty", ErrValidation, label)
	}
	if u.Size > MaxFileSize {
		return fmt.Errorf("%w: %s: file too large, maximum 10MB", ErrValidation, label)
	}
	if u.Open == nil {
		return fmt.Errorf("%w: %s: file has no content", ErrValidation, label)
	}
	return nil
}

func validateFiles(job *Upload, applicants []Upload) error {
	if job == nil || len(applicants) == 0 {
		return ErrMissingFiles
	}
	if len(applicants) > MaxApplicantFiles {
		return fmt.Errorf("%w: at most %d applicant files are allowed", ErrValidation, MaxApplicantFiles)
	}
	if err := validateUpload("job file", *job); err != nil {
		return err
	}
	for _, a := range applicants {
		if err := validateUpload(a.Filename, a); err != nil {
			return err
		}
	}
	return nil
}
