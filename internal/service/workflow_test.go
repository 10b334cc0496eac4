package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/accrediflow-api/internal/models"
	appErrors "github.com/noah-isme/accrediflow-api/pkg/errors"
)

var (
	allStatuses  = []models.DocumentStatus{models.StatusPendingHODApproval, models.StatusPendingCoordinatorApproval, models.StatusApproved, models.StatusRejected}
	allRoles     = []models.UserRole{models.RoleSuperAdmin, models.RoleAdmin, models.RoleCoordinator, models.RoleHOD, models.RoleFaculty}
	allDecisions = []models.Decision{models.DecisionApproved, models.DecisionRejected}
)

func TestInitialStatus(t *testing.T) {
	assert.Equal(t, models.StatusPendingHODApproval, InitialStatus(models.RoleFaculty))
	for _, role := range []models.UserRole{models.RoleHOD, models.RoleCoordinator, models.RoleAdmin, models.RoleSuperAdmin} {
		assert.Equal(t, models.StatusPendingCoordinatorApproval, InitialStatus(role), role)
	}
}

func TestNextStatusLegalTransitions(t *testing.T) {
	cases := []struct {
		status   models.DocumentStatus
		role     models.UserRole
		decision models.Decision
		want     models.DocumentStatus
	}{
		{models.StatusPendingHODApproval, models.RoleHOD, models.DecisionApproved, models.StatusPendingCoordinatorApproval},
		{models.StatusPendingHODApproval, models.RoleHOD, models.DecisionRejected, models.StatusRejected},
		{models.StatusPendingCoordinatorApproval, models.RoleCoordinator, models.DecisionApproved, models.StatusApproved},
		{models.StatusPendingCoordinatorApproval, models.RoleCoordinator, models.DecisionRejected, models.StatusRejected},
	}
	for _, tc := range cases {
		got, err := NextStatus(tc.status, tc.role, tc.decision)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}
}

func TestNextStatusEveryOtherCombinationIsForbidden(t *testing.T) {
	legal := 0
	for _, status := range allStatuses {
		for _, role := range allRoles {
			for _, decision := range allDecisions {
				_, err := NextStatus(status, role, decision)
				if _, ok := transitions[transitionKey{status, role, decision}]; ok {
					legal++
					require.NoError(t, err)
					continue
				}
				require.Error(t, err)
				assert.True(t, appErrors.Is(err, appErrors.ErrForbidden), "%s/%s/%s", status, role, decision)
			}
		}
	}
	assert.Equal(t, 4, legal)
}

func TestNextStatusRejectsUnknownDecision(t *testing.T) {
	_, err := NextStatus(models.StatusPendingHODApproval, models.RoleHOD, models.Decision("Commented"))
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestDefaultDecisionComment(t *testing.T) {
	assert.Equal(t, "Status updated to PendingCoordinatorApproval by hod", defaultDecisionComment(models.StatusPendingCoordinatorApproval, models.RoleHOD))
}
