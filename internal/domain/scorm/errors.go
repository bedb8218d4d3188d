package scorm

import (
	"errors"
	"fmt"

	"scormhub/internal/pkg/archive"
)

var (
	ErrPackageNotFound  = errors.New("package not found")
	ErrPackageExists    = errors.New("package already exists")
	ErrAttemptNotFound  = errors.New("attempt not found")
	ErrNotAttemptOwner  = errors.New("you do not own this attempt")
	ErrFileTooLarge     = errors.New("file exceeds maximum allowed size")
	ErrEmptyFile        = errors.New("file is empty")
	ErrManifestNotFound = errors.New("imsmanifest.xml not found in package")
	ErrNotMember        = errors.New("you are not a member of this organization")
	ErrInvalidPath      = errors.New("content path must be /{organizationId}/{packageId}/{file}")
	ErrFileNotFound     = errors.New("file not found")
	ErrPackageInactive  = errors.New("package is not active")
	ErrForbidden        = errors.New("insufficient permissions")
	ErrInvalidTimespan  = errors.New("time must be HH:MM:SS or an ISO 8601 duration")
	ErrInvalidStatus    = errors.New("invalid package status")
	ErrInvalidID        = errors.New("organization_id and course_id may only contain letters, digits, '-' and '_'")
)

// ManifestError reports an imsmanifest.xml that cannot be used.
type ManifestError struct {
	Reason string
	Err    error
}

func (e *ManifestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid manifest: %s: %v", e.Reason, e.Err)
	}
	return "invalid manifest: " + e.Reason
}

func (e *ManifestError) Unwrap() error { return e.Err }

// StructureError reports a manifest that disagrees with the archive contents.
type StructureError struct {
	Reason string
	Path   string
}

func (e *StructureError) Error() string {
	return "invalid package structure: " + e.Reason
}

// IsValidation reports whether err was caused by the uploaded content rather
// than by infrastructure.
func IsValidation(err error) bool {
	var me *ManifestError
	var se *StructureError
	var sec *archive.SecurityError
	return errors.As(err, &me) || errors.As(err, &se) || errors.As(err, &sec) ||
		errors.Is(err, archive.ErrInvalidArchive) ||
		errors.Is(err, ErrManifestNotFound) ||
		errors.Is(err, ErrEmptyFile) ||
		errors.Is(err, ErrFileTooLarge)
}
