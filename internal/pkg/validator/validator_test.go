package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type sample struct {
	Status string `json:"status" validate:"required,oneof=active inactive"`
	Course string `form:"course_id" validate:"required"`
}

func TestValidate_ReportsWireNames(t *testing.T) {
	errs := Validate(sample{Status: "deleted"})

	assert.Equal(t, "oneof=active inactive", errs["status"])
	assert.Equal(t, "required", errs["course_id"])
}

func TestValidate_OK(t *testing.T) {
	assert.Nil(t, Validate(sample{Status: "active", Course: "c-1"}))
}

func TestIsIdentifier(t *testing.T) {
	for _, id := range []string{"org-a", "course_1", "6f1c2a7e-0b3d-4c1e-9d2f-1a2b3c4d5e6f", "A"} {
		assert.True(t, IsIdentifier(id), id)
	}
	for _, id := range []string{"", "org/sub", `org\sub`, "..", ".hidden", "org.a", "-lead", "a b"} {
		assert.False(t, IsIdentifier(id), id)
	}
}

func TestValidate_IdentifierTag(t *testing.T) {
	type form struct {
		Org string `form:"organization_id" validate:"required,identifier"`
	}
	assert.Nil(t, Validate(form{Org: "org-a"}))
	assert.Equal(t, "identifier", Validate(form{Org: "org-a/sub"})["organization_id"])
}
