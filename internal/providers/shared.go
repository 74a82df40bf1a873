package providers

import (
	"context"
	"errors"
	"fmt"

	"github.com/milestoner/pkg/models"
)

// Provider represents a forge holding milestones (GitHub, GitLab)
type Provider interface {
	Name() string
	// ListMilestones returns the open milestones of one repository
	ListMilestones(ctx context.Context, repo string) ([]models.Milestone, error)
	// CloseMilestone transitions the milestone identified by locator to closed
	CloseMilestone(ctx context.Context, locator string) error
}

// StatusError is returned when a forge answers with a non-success status
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("request failed with status %d", e.Status)
	}
	return fmt.Sprintf("request failed with status %d: %s", e.Status, e.Body)
}

// DecodeError is returned when a forge answers successfully but the body
// cannot be decoded
type DecodeError struct {
	Status int
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode response (status %d): %v", e.Status, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// StatusCode extracts the HTTP status behind err, or 0 when the failure never
// produced a response.
func StatusCode(err error) int {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Status
	}
	var decodeErr *DecodeError
	if errors.As(err, &decodeErr) {
		return decodeErr.Status
	}
	return 0
}
