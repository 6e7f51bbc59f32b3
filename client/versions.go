package client

import (
	"context"
	"net/url"
	"strconv"
)

// VersionService records versions and reads item history.
type VersionService struct {
	c *Client
}

// versionListResponse wraps the paginated version list response.
type versionListResponse struct {
	Versions []Version `json:"versions"`
	HasMore  bool      `json:"has_more"`
}

func itemPath(itemType, itemID string) string {
	return "/api/v1/versions/" + url.PathEscape(itemType) + "/" + url.PathEscape(itemID)
}

// Record appends a version. A non-empty PruneError in the response means
// the version was stored but its history could not be trimmed.
func (s *VersionService) Record(ctx context.Context, req RecordRequest) (*RecordResponse, error) {
	var resp RecordResponse
	if err := s.c.post(ctx, "/api/v1/versions", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// List returns an item's versions, newest first.
func (s *VersionService) List(ctx context.Context, itemType, itemID string, opts *ListOptions) ([]Version, bool, error) {
	params := url.Values{}
	if opts != nil {
		if opts.Limit > 0 {
			params.Set("limit", strconv.Itoa(opts.Limit))
		}
		if opts.Offset > 0 {
			params.Set("offset", strconv.Itoa(opts.Offset))
		}
	}
	var resp versionListResponse
	if err := s.c.get(ctx, itemPath(itemType, itemID), params, &resp); err != nil {
		return nil, false, err
	}
	return resp.Versions, resp.HasMore, nil
}

// Enforce runs retention for one item.
func (s *VersionService) Enforce(ctx context.Context, itemType, itemID string) (*EnforceResult, error) {
	var resp EnforceResult
	if err := s.c.post(ctx, itemPath(itemType, itemID)+"/enforce", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
