package service

import (
	"fmt"

	"github.com/noah-isme/accrediflow-api/internal/models"
	appErrors "github.com/noah-isme/accrediflow-api/pkg/errors"
)

type transitionKey struct {
	status   models.DocumentStatus
	role     models.UserRole
	decision models.Decision
}

// transitions is the whole approval chain. Any (status, role, decision) not
// listed here is illegal.
var transitions = map[transitionKey]models.DocumentStatus{
	{models.StatusPendingHODApproval, models.RoleHOD, models.DecisionApproved}:                 models.StatusPendingCoordinatorApproval,
	{models.StatusPendingHODApproval, models.RoleHOD, models.DecisionRejected}:                 models.StatusRejected,
	{models.StatusPendingCoordinatorApproval, models.RoleCoordinator, models.DecisionApproved}: models.StatusApproved,
	{models.StatusPendingCoordinatorApproval, models.RoleCoordinator, models.DecisionRejected}: models.StatusRejected,
}

// InitialStatus is where a new document enters the chain. Faculty uploads need
// an HOD first; anyone above faculty goes straight to the coordinator.
func InitialStatus(role models.UserRole) models.DocumentStatus {
	if role == models.RoleFaculty {
		return models.StatusPendingHODApproval
	}
	return models.StatusPendingCoordinatorApproval
}

// NextStatus resolves a decision against the transition table.
func NextStatus(current models.DocumentStatus, role models.UserRole, decision models.Decision) (models.DocumentStatus, error) {
	if decision != models.DecisionApproved && decision != models.DecisionRejected {
		return "", appErrors.Clone(appErrors.ErrValidation, "status must be Approved or Rejected")
	}
	next, ok := transitions[transitionKey{status: current, role: role, decision: decision}]
	if !ok {
		return "", appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("document in status %s is not awaiting a %s decision", current, role))
	}
	return next, nil
}

func defaultDecisionComment(next models.DocumentStatus, role models.UserRole) string {
	return fmt.Sprintf("Status updated to %s by %s", next, role)
}
