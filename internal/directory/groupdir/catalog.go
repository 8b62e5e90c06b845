package groupdir

import (
	"context"
	"fmt"
	"net/url"

	"roster-sync/internal/httpx"
)

// Group is one catalog entry of the available groups.
type Group struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type listGroupsResponse struct {
	Groups        []Group `json:"groups"`
	NextPageToken string  `json:"nextPageToken"`
}

// ListGroups pages through the groups visible to the service account,
// for the configuration catalog mirror.
func (a *Adapter) ListGroups(ctx context.Context) ([]Group, error) {
	var all []Group

	pageToken := ""
	for {
		u, err := url.Parse(a.BaseURL + "/groups")
		if err != nil {
			return nil, fmt.Errorf("groupdir: invalid base url: %w", err)
		}
		q := u.Query()
		q.Set("maxResults", "200")
		if pageToken != "" {
			q.Set("pageToken", pageToken)
		}
		u.RawQuery = q.Encode()

		var resp listGroupsResponse
		if err := httpx.DoJSON(ctx, a.HTTP, a.buildGet(u.String()), &resp, a.Retry); err != nil {
			return nil, fmt.Errorf("groupdir: list groups: %w", err)
		}
		all = append(all, resp.Groups...)

		if resp.NextPageToken == "" {
			return all, nil
		}
		pageToken = resp.NextPageToken
	}
}
