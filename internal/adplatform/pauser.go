// Package adplatform talks to the advertising platform on behalf of an account.
package adplatform

import (
	"context"
	"fmt"

	"github.com/saturnino-fabrica-de-software/adpilot/internal/domain"
)

// Pauser stops delivery of a campaign. Pausing an already paused campaign
// must succeed without side effects.
type Pauser interface {
	PauseCampaign(ctx context.Context, account *domain.Account, campaignID string) error
}

// APIError is a non-2xx answer from the platform.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ad platform returned HTTP %d: %s", e.StatusCode, e.Body)
}
