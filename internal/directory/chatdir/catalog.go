package chatdir

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"roster-sync/internal/httpx"
)

// Space is one catalog entry of the available chat spaces.
type Space struct {
	Name        string `json:"name"` // spaces/{id}
	DisplayName string `json:"displayName"`
}

type listSpacesResponse struct {
	Spaces        []Space `json:"spaces"`
	NextPageToken string  `json:"nextPageToken"`
}

// ListSpaces pages through the named spaces visible to the service
// account, for the configuration catalog mirror.
func (a *Adapter) ListSpaces(ctx context.Context) ([]Space, error) {
	var all []Space

	pageToken := ""
	for {
		u, err := url.Parse(a.BaseURL + "/spaces")
		if err != nil {
			return nil, fmt.Errorf("chatdir: invalid base url: %w", err)
		}
		q := u.Query()
		q.Set("pageSize", "1000")
		q.Set("filter", `space_type = "SPACE"`)
		if pageToken != "" {
			q.Set("pageToken", pageToken)
		}
		u.RawQuery = q.Encode()

		var resp listSpacesResponse
		if err := httpx.DoJSON(ctx, a.HTTP, a.buildJSON(http.MethodGet, u.String(), nil), &resp, a.Retry); err != nil {
			return nil, fmt.Errorf("chatdir: list spaces: %w", err)
		}
		all = append(all, resp.Spaces...)

		if resp.NextPageToken == "" {
			return all, nil
		}
		pageToken = resp.NextPageToken
	}
}
