package request

import (
	"time"

	"github.com/google/uuid"
)

type FileKind string

const (
	FileKindJob       FileKind = "job"
	FileKindApplicant FileKind = "applicant"
)

// ParseFileKind defaults to applicant like the download endpoint does.
func ParseFileKind(s string) (FileKind, bool) {
	switch s {
	case "", string(FileKindApplicant):
		return FileKindApplicant, true
	case string(FileKindJob):
		return FileKindJob, true
	}
	return "", false
}

type Request struct {
	ID                  uuid.UUID     `json:"id"`
	TenantID            uuid.UUID     `json:"tenantId"`
	CreatedByUserID     uuid.UUID     `json:"createdByUserId"`
	JobTitle            string        `json:"jobTitle"`
	Department          *string       `json:"department,omitempty"`
	Seniority           *string       `json:"seniority,omitempty"`
	Status              Status        `json:"status"`
	PaymentStatus       PaymentStatus `json:"paymentStatus"`
	ExternalExecutionID *string       `json:"externalExecutionId,omitempty"`
	CreatedAt           time.Time     `json:"createdAt"`
	UpdatedAt           time.Time     `json:"updatedAt"`
	CompletedAt         *time.Time    `json:"completedAt,omitempty"`

	JobFile        *File  `json:"jobFile,omitempty"`
	ApplicantFiles []File `json:"applicantFiles,omitempty"`
}

// HasFiles reports whether the request carries what a workflow run needs.
func (r Request) HasFiles() bool {
	return r.JobFile != nil && len(r.ApplicantFiles) > 0
}

type File struct {
	ID          uuid.UUID `json:"id"`
	RequestID   uuid.UUID `json:"requestId"`
	Kind        FileKind  `json:"kind"`
	Filename    string    `json:"filename"`
	MimeType    string    `json:"mimeType"`
	StoragePath string    `json:"-"`
	FileSize    int64     `json:"fileSize"`
	CreatedAt   time.Time `json:"createdAt"`
}

// OwnedFile is a file row together with the tenant of its request.
type OwnedFile struct {
	File
	TenantID uuid.UUID
}

type Highlight struct {
	Skill    string `json:"skill"`
	Evidence string `json:"evidence"`
}

type ResultCandidate struct {
	ID            uuid.UUID   `json:"id"`
	RequestID     uuid.UUID   `json:"requestId"`
	Rank          int         `json:"rank"`
	CandidateName string      `json:"candidateName"`
	Email         *string     `json:"email,omitempty"`
	Score         int         `json:"score"`
	Skills        []string    `json:"skills"`
	Highlights    []Highlight `json:"highlights"`
	MissingSkills []string    `json:"missingSkills"`
	Summary       *string     `json:"summary,omitempty"`
	CreatedAt     time.Time   `json:"createdAt"`
}

// Summary is one row of the tenant dashboard listing.
type Summary struct {
	Request
	ApplicantCount int `json:"applicantCount"`
	ResultCount    int `json:"resultCount"`
}

// Detail is a request with its stored results.
type Detail struct {
	Request
	Results []ResultCandidate `json:"results"`
}
