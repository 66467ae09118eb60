package usecase

import (
	"context"

	"github.com/secmon-lab/threadsync/pkg/domain/model"
)

// ListWorkingSet is exported for testing
func (uc *UseCases) ListWorkingSet(ctx context.Context, owner, repo string) ([]*model.Issue, error) {
	return uc.listWorkingSet(ctx, owner, repo)
}

// NewEligibleMessages is exported for testing
var NewEligibleMessages = newEligibleMessages

// IsDigestEligible is exported for testing
var IsDigestEligible = isDigestEligible

// IsRelayEligible is exported for testing
var IsRelayEligible = isRelayEligible
