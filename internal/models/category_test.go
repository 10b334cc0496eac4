package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategoryAllowed(t *testing.T) {
	assert.True(t, CategoryAllowed(RoleFaculty, "NAAC: Faculty CVs"))
	assert.True(t, CategoryAllowed(RoleFaculty, "  naac: faculty cvs "))
	assert.False(t, CategoryAllowed(RoleFaculty, "NIRF: Quantity of Research"))
	assert.False(t, CategoryAllowed(RoleAdmin, "NAAC: Faculty CVs"))
}

func TestNormalizeBody(t *testing.T) {
	assert.Equal(t, "NAAC", NormalizeBody(" naac"))
	assert.Equal(t, "NIRF", NormalizeBody("NIRF"))
	assert.Empty(t, NormalizeBody("ABET"))
}

func TestStatusHelpers(t *testing.T) {
	assert.True(t, StatusApproved.Terminal())
	assert.True(t, StatusRejected.Terminal())
	assert.False(t, StatusPendingHODApproval.Terminal())
	assert.False(t, DocumentStatus("Pending").Valid())
	assert.True(t, StatusPendingCoordinatorApproval.Valid())
}
