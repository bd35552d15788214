package models

import "time"

type Status string

const (
	StatusUnindexed Status = "unindexed"
	StatusIndexing  Status = "indexing"
	StatusIndexed   Status = "indexed"
	StatusFailed    Status = "failed"
)

type Document struct {
	ID         string           `json:"id"`
	Title      string           `json:"title"`
	Source     string           `json:"source"`
	Status     Status           `json:"status"`
	ChunkCount int              `json:"chunkCount"`
	Metadata   DocumentMetadata `json:"metadata"`
	CreatedAt  time.Time        `json:"createdAt"`
	UpdatedAt  time.Time        `json:"updatedAt"`
}

// Ready reports whether the document can be queried.
func (d Document) Ready() bool {
	return d.Status == StatusIndexed
}

var DocumentTypes = []string{
	"Engineering Report",
	"Design Calculation",
	"Drawing Set",
	"Specification",
	"Technical Memo",
	"Inspection Report",
	"Other",
}

var DesignPhases = []string{
	"Concept",
	"Schematic",
	"Design Development",
	"Construction Documents",
	"As-Built",
	"Other",
}

type KeyMetric struct {
	Name  string `json:"name"`
	Value string `json:"value"`
	Unit  string `json:"unit,omitempty"`
}

type Signature struct {
	Name string `json:"name"`
	Role string `json:"role,omitempty"`
	Date string `json:"date,omitempty"`
}

// DocumentMetadata is the structured summary extracted from an engineering deliverable.
type DocumentMetadata struct {
	ProjectName      string      `json:"projectName"`
	ClientName       string      `json:"clientName,omitempty"`
	EngineeringFirm  string      `json:"engineeringFirm"`
	DocumentType     string      `json:"documentType"`
	DesignPhase      string      `json:"designPhase,omitempty"`
	SubmissionDate   string      `json:"submissionDate,omitempty"`
	ScopeDescription string      `json:"scopeDescription,omitempty"`
	KeyMetrics       []KeyMetric `json:"keyMetrics,omitempty"`
	Deliverables     []string    `json:"deliverables,omitempty"`
	Signatures       []Signature `json:"signatures,omitempty"`
	Remarks          string      `json:"remarks,omitempty"`
}

// Normalize replaces enum values outside the known sets with "Other".
func (m *DocumentMetadata) Normalize() {
	if !contains(DocumentTypes, m.DocumentType) {
		m.DocumentType = "Other"
	}
	if m.DesignPhase != "" && !contains(DesignPhases, m.DesignPhase) {
		m.DesignPhase = "Other"
	}
}

// IndexFields returns the descriptive fields stored with every chunk of the document.
func (m DocumentMetadata) IndexFields(filePath string) map[string]any {
	return map[string]any{
		"projectName":     m.ProjectName,
		"documentType":    m.DocumentType,
		"engineeringFirm": m.EngineeringFirm,
		"filePath":        filePath,
	}
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
