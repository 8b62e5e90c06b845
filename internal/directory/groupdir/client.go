package groupdir

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"roster-sync/internal/directory"
	"roster-sync/internal/domain"
	"roster-sync/internal/httpx"
)

// Adapter talks to the group directory backend (Admin-SDK-style REST:
// members of a group addressed by the group email, principals addressed
// by their own email). Identity is the email, so Resolve never fails.
type Adapter struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
	Retry   httpx.RetryConfig
}

func New(baseURL, token string, timeout time.Duration) *Adapter {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Adapter{
		BaseURL: baseURL,
		Token:   token,
		HTTP:    &http.Client{Timeout: timeout},
		Retry:   httpx.DefaultRetryConfig(),
	}
}

func (a *Adapter) Kind() string { return "Group" }

// The protected principal is pinned to OWNER; regular staff get MANAGER.
func (a *Adapter) HighestRole() directory.Role { return directory.RoleOwner }

func (a *Adapter) Resolve(_ context.Context, p domain.Principal) (string, error) {
	return p.String(), nil
}

/* -------- wire types -------- */

type memberResource struct {
	ID     string `json:"id,omitempty"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Type   string `json:"type,omitempty"`
	Status string `json:"status,omitempty"`
}

type listMembersResponse struct {
	Members       []memberResource `json:"members"`
	NextPageToken string           `json:"nextPageToken"`
}

func roleToWire(r directory.Role) string {
	switch r {
	case directory.RoleOwner:
		return "OWNER"
	case directory.RoleManager:
		return "MANAGER"
	default:
		return "MEMBER"
	}
}

func roleFromWire(s string) directory.Role {
	switch s {
	case "OWNER":
		return directory.RoleOwner
	case "MANAGER":
		return directory.RoleManager
	default:
		return directory.RoleMember
	}
}

/* -------- API -------- */

func (a *Adapter) ListMembers(ctx context.Context, groupKey string) ([]directory.Member, error) {
	var all []directory.Member

	pageToken := ""
	for {
		u, err := url.Parse(fmt.Sprintf("%s/groups/%s/members", a.BaseURL, url.PathEscape(groupKey)))
		if err != nil {
			return nil, fmt.Errorf("groupdir: invalid base url: %w", err)
		}
		q := u.Query()
		q.Set("maxResults", "200")
		q.Set("roles", "OWNER,MANAGER,MEMBER")
		if pageToken != "" {
			q.Set("pageToken", pageToken)
		}
		u.RawQuery = q.Encode()

		var resp listMembersResponse
		if err := httpx.DoJSON(ctx, a.HTTP, a.buildGet(u.String()), &resp, a.Retry); err != nil {
			return nil, &directory.UnavailableError{Kind: a.Kind(), Err: err}
		}

		for _, m := range resp.Members {
			all = append(all, directory.Member{
				Ref:  domain.NewPrincipal(m.Email).String(),
				Role: roleFromWire(m.Role),
			})
		}

		if resp.NextPageToken == "" {
			return all, nil
		}
		pageToken = resp.NextPageToken
	}
}

func (a *Adapter) AddMember(ctx context.Context, groupKey, ref string, role directory.Role) error {
	body, _ := json.Marshal(memberResource{Email: ref, Role: roleToWire(role)})
	u := fmt.Sprintf("%s/groups/%s/members", a.BaseURL, url.PathEscape(groupKey))

	err := httpx.DoJSON(ctx, a.HTTP, a.buildJSON(http.MethodPost, u, body), nil, a.Retry)
	if isStatus(err, http.StatusConflict) {
		return directory.ErrDuplicateMember
	}
	return err
}

func (a *Adapter) RemoveMember(ctx context.Context, groupKey, ref string) error {
	u := fmt.Sprintf("%s/groups/%s/members/%s", a.BaseURL, url.PathEscape(groupKey), url.PathEscape(ref))

	err := httpx.DoJSON(ctx, a.HTTP, a.buildJSON(http.MethodDelete, u, nil), nil, a.Retry)
	if isStatus(err, http.StatusNotFound) {
		return directory.ErrNotFound
	}
	return err
}

func (a *Adapter) UpdateRole(ctx context.Context, groupKey, ref string, role directory.Role) error {
	body, _ := json.Marshal(struct {
		Role string `json:"role"`
	}{Role: roleToWire(role)})
	u := fmt.Sprintf("%s/groups/%s/members/%s", a.BaseURL, url.PathEscape(groupKey), url.PathEscape(ref))

	err := httpx.DoJSON(ctx, a.HTTP, a.buildJSON(http.MethodPatch, u, body), nil, a.Retry)
	if isStatus(err, http.StatusNotFound) {
		return directory.ErrNotFound
	}
	return err
}

/* -------- helpers -------- */

func (a *Adapter) buildGet(u string) func(context.Context) (*http.Request, error) {
	return a.buildJSON(http.MethodGet, u, nil)
}

func (a *Adapter) buildJSON(method, u string, body []byte) func(context.Context) (*http.Request, error) {
	return func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, method, u, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Authorization", "Bearer "+a.Token)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		return req, nil
	}
}

func isStatus(err error, code int) bool {
	var herr *httpx.HTTPError
	return errors.As(err, &herr) && herr.StatusCode == code
}
