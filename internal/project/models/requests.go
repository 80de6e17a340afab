package models

import (
	"strings"

	id "wastetrack/pkg/domain"
	dErrors "wastetrack/pkg/domain-errors"
	pstrings "wastetrack/pkg/platform/strings"
)

// CreateProjectRequest carries client-supplied attributes for a new project.
// Status and Percentage are never accepted here; both are derived.
type CreateProjectRequest struct {
	Name               string        `json:"name"`
	ParentProjectID    *id.ProjectID `json:"parentProjectId,omitempty"`
	Duration           Duration      `json:"duration"`
	RegistrationPoints []id.PointID  `json:"registrationPoints"`
	ActionNames        []string      `json:"actions"`
}

func (r *CreateProjectRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.ActionNames = pstrings.DedupeAndTrimFold(r.ActionNames)
}

func (r *CreateProjectRequest) Validate() error {
	if r.Name == "" {
		return dErrors.New(dErrors.CodeBadRequest, "project name is required")
	}
	return r.Duration.Validate()
}

// PatchProjectRequest carries a partial update. Nil fields are untouched.
type PatchProjectRequest struct {
	Name               *string       `json:"name,omitempty"`
	Duration           *Duration     `json:"duration,omitempty"`
	RegistrationPoints *[]id.PointID `json:"registrationPoints,omitempty"`
	Status             *Status       `json:"status,omitempty"`
	ActionNames        *[]string     `json:"actions,omitempty"`
}

func (r *PatchProjectRequest) Normalize() {
	if r.Name != nil {
		trimmed := strings.TrimSpace(*r.Name)
		r.Name = &trimmed
	}
	if r.ActionNames != nil {
		trimmed := pstrings.DedupeAndTrimFold(*r.ActionNames)
		r.ActionNames = &trimmed
	}
}

func (r *PatchProjectRequest) Validate() error {
	if r.Name != nil && *r.Name == "" {
		return dErrors.New(dErrors.CodeBadRequest, "project name cannot be empty")
	}
	if r.Duration != nil {
		if err := r.Duration.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// RescopesLinks reports whether the patch touches scope or window, which
// forces a full link recomputation.
func (r *PatchProjectRequest) RescopesLinks() bool {
	return r.Duration != nil || r.RegistrationPoints != nil
}
