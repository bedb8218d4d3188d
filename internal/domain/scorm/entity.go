package scorm

import (
	"time"

	"gorm.io/datatypes"
)

// Version is the SCORM edition a package targets.
type Version string

const (
	Version12   Version = "SCORM_1.2"
	Version2004 Version = "SCORM_2004"
)

// PackageStatus controls whether learners can launch a package.
type PackageStatus string

const (
	PackageActive     PackageStatus = "active"
	PackageProcessing PackageStatus = "processing"
	PackageInactive   PackageStatus = "inactive"
)

// Package is one ingested SCORM unit. Its files live in the object store
// under StoragePath.
type Package struct {
	ID             string                       `gorm:"column:id;primaryKey;size:36" json:"id"`
	OrganizationID string                       `gorm:"column:organization_id;index;not null" json:"organization_id"`
	CourseID       string                       `gorm:"column:course_id;index;not null" json:"course_id"`
	Title          string                       `gorm:"column:title;not null" json:"title"`
	Description    string                       `gorm:"column:description" json:"description"`
	Version        Version                      `gorm:"column:version;size:16" json:"version"`
	EntryPoint     string                       `gorm:"column:entry_point;not null" json:"entry_point"`
	Manifest       datatypes.JSONType[Manifest] `gorm:"column:manifest" json:"manifest"`
	StoragePath    string                       `gorm:"column:storage_path;uniqueIndex;not null" json:"storage_path"`
	FileSize       int64                        `gorm:"column:file_size" json:"file_size"`
	FileCount      int                          `gorm:"column:file_count" json:"file_count"`
	Status         PackageStatus                `gorm:"column:status;size:16;default:active" json:"status"`
	CreatedBy      string                       `gorm:"column:created_by" json:"created_by"`
	CreatedAt      time.Time                    `gorm:"column:created_at" json:"created_at"`
	UpdatedAt      time.Time                    `gorm:"column:updated_at" json:"updated_at"`
}

func (Package) TableName() string { return "scorm_packages" }

// Manifest is the structured form of imsmanifest.xml kept with the package.
type Manifest struct {
	Identifier          string         `json:"identifier"`
	Title               string         `json:"title"`
	Description         string         `json:"description"`
	Version             Version        `json:"version"`
	EntryPoint          string         `json:"entry_point"`
	DefaultOrganization string         `json:"default_organization,omitempty"`
	Objectives          []Objective    `json:"objectives"`
	Resources           []Resource     `json:"resources"`
	Organizations       []Organization `json:"organizations"`
}

type Objective struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Primary     bool   `json:"primary,omitempty"`
}

// Resource hrefs are already resolved against any xml:base.
type Resource struct {
	Identifier string   `json:"identifier"`
	Type       string   `json:"type"`
	ScormType  string   `json:"scorm_type"`
	Href       string   `json:"href"`
	Files      []string `json:"files"`
}

type Organization struct {
	Identifier string `json:"identifier"`
	Title      string `json:"title"`
	Items      []Item `json:"items"`
}

type Item struct {
	Identifier    string `json:"identifier"`
	Title         string `json:"title"`
	IdentifierRef string `json:"identifier_ref,omitempty"`
	Parameters    string `json:"parameters,omitempty"`
	MasteryScore  string `json:"mastery_score,omitempty"`
	Children      []Item `json:"children,omitempty"`
}

// LessonStatus follows cmi.core.lesson_status vocabulary.
type LessonStatus string

const (
	StatusNotAttempted LessonStatus = "not attempted"
	StatusIncomplete   LessonStatus = "incomplete"
	StatusBrowsed      LessonStatus = "browsed"
	StatusCompleted    LessonStatus = "completed"
	StatusPassed       LessonStatus = "passed"
	StatusFailed       LessonStatus = "failed"
)

// Attempt is one learner play-through of a package.
type Attempt struct {
	ID             string       `gorm:"column:id;primaryKey;size:36" json:"id"`
	PackageID      string       `gorm:"column:package_id;index;not null" json:"package_id"`
	UserID         string       `gorm:"column:user_id;index;not null" json:"user_id"`
	LessonStatus   LessonStatus `gorm:"column:lesson_status;size:16" json:"lesson_status"`
	ScoreRaw       *float64     `gorm:"column:score_raw" json:"score_raw"`
	ScoreMax       *float64     `gorm:"column:score_max" json:"score_max"`
	ScoreMin       *float64     `gorm:"column:score_min" json:"score_min"`
	TotalTime      string       `gorm:"column:total_time" json:"total_time"`
	SessionTime    string       `gorm:"column:session_time" json:"session_time"`
	// PriorTime is the total of sessions already finished; TotalTime is
	// PriorTime plus the running session.
	PriorTime      string       `gorm:"column:prior_time" json:"-"`
	LessonLocation string       `gorm:"column:lesson_location" json:"lesson_location"`
	SuspendData    string       `gorm:"column:suspend_data;type:text" json:"suspend_data"`
	StartedAt      time.Time    `gorm:"column:started_at;index" json:"started_at"`
	CompletedAt    *time.Time   `gorm:"column:completed_at" json:"completed_at"`
	UpdatedAt      time.Time    `gorm:"column:updated_at" json:"updated_at"`
}

func (Attempt) TableName() string { return "scorm_attempts" }

// Models lists the tables owned by this package, for AutoMigrate.
func Models() []any {
	return []any{&Package{}, &Attempt{}}
}
