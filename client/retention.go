package client

import (
	"context"
	"net/url"
)

// RetentionService reads limits and triggers sweeps.
type RetentionService struct {
	c *Client
}

// Limits returns the effective limits for an item type.
func (s *RetentionService) Limits(ctx context.Context, itemType string) (*Limits, error) {
	var resp Limits
	if err := s.c.get(ctx, "/api/v1/limits/"+url.PathEscape(itemType), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Sweep queues a background sweep of every item of itemType.
func (s *RetentionService) Sweep(ctx context.Context, itemType string) error {
	return s.c.post(ctx, "/api/v1/sweep/"+url.PathEscape(itemType), nil, nil)
}

// SweepWait sweeps itemType synchronously and returns the totals.
func (s *RetentionService) SweepWait(ctx context.Context, itemType string) (*SweepResult, error) {
	var resp SweepResult
	if err := s.c.post(ctx, "/api/v1/sweep/"+url.PathEscape(itemType)+"?wait=true", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
