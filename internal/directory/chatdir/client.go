package chatdir

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"roster-sync/internal/directory"
	"roster-sync/internal/domain"
	"roster-sync/internal/httpx"
)

// Adapter talks to the chat-space backend. Spaces are addressed by their
// resource name (spaces/{id}); principals by a resolved users/{id}
// reference obtained from the user directory, so Resolve can fail for
// emails with no account.
type Adapter struct {
	BaseURL      string // chat API, serves spaces/*/members
	UsersBaseURL string // user directory, serves users/{email}
	Token        string
	HTTP         *http.Client
	Retry        httpx.RetryConfig
}

func New(baseURL, usersBaseURL, token string, timeout time.Duration) *Adapter {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Adapter{
		BaseURL:      baseURL,
		UsersBaseURL: usersBaseURL,
		Token:        token,
		HTTP:         &http.Client{Timeout: timeout},
		Retry:        httpx.DefaultRetryConfig(),
	}
}

func (a *Adapter) Kind() string { return "Chat" }

// Chat spaces only know two roles; the protected principal holds the
// manager role there.
func (a *Adapter) HighestRole() directory.Role { return directory.RoleManager }

/* -------- wire types -------- */

type membership struct {
	Name   string `json:"name,omitempty"` // spaces/{space}/members/{user}
	Role   string `json:"role"`
	Member struct {
		Name string `json:"name"` // users/{id}
		Type string `json:"type,omitempty"`
	} `json:"member"`
}

type listMembershipsResponse struct {
	Memberships   []membership `json:"memberships"`
	NextPageToken string       `json:"nextPageToken"`
}

type userResource struct {
	ID           string `json:"id"`
	PrimaryEmail string `json:"primaryEmail"`
}

func roleToWire(r directory.Role) string {
	if r >= directory.RoleManager {
		return "ROLE_MANAGER"
	}
	return "ROLE_MEMBER"
}

func roleFromWire(s string) directory.Role {
	if s == "ROLE_MANAGER" {
		return directory.RoleManager
	}
	return directory.RoleMember
}

// membershipName derives the membership resource name from the space and
// the user reference: the member segment is the user id.
func membershipName(spaceRef, userRef string) string {
	return spaceRef + "/members/" + strings.TrimPrefix(userRef, "users/")
}

/* -------- API -------- */

func (a *Adapter) Resolve(ctx context.Context, p domain.Principal) (string, error) {
	u := fmt.Sprintf("%s/users/%s", a.UsersBaseURL, url.PathEscape(p.String()))

	var user userResource
	err := httpx.DoJSON(ctx, a.HTTP, a.buildJSON(http.MethodGet, u, nil), &user, a.Retry)
	if err != nil {
		if isStatus(err, http.StatusNotFound) {
			return "", fmt.Errorf("%w: %s", directory.ErrUnresolvable, p)
		}
		return "", err
	}
	if user.ID == "" {
		return "", fmt.Errorf("%w: %s", directory.ErrUnresolvable, p)
	}
	return "users/" + user.ID, nil
}

func (a *Adapter) ListMembers(ctx context.Context, spaceRef string) ([]directory.Member, error) {
	var all []directory.Member

	pageToken := ""
	for {
		u, err := url.Parse(fmt.Sprintf("%s/%s/members", a.BaseURL, spaceRef))
		if err != nil {
			return nil, fmt.Errorf("chatdir: invalid base url: %w", err)
		}
		q := u.Query()
		q.Set("pageSize", "500")
		if pageToken != "" {
			q.Set("pageToken", pageToken)
		}
		u.RawQuery = q.Encode()

		var resp listMembershipsResponse
		if err := httpx.DoJSON(ctx, a.HTTP, a.buildJSON(http.MethodGet, u.String(), nil), &resp, a.Retry); err != nil {
			return nil, &directory.UnavailableError{Kind: a.Kind(), Err: err}
		}

		for _, m := range resp.Memberships {
			all = append(all, directory.Member{
				Ref:  m.Member.Name,
				Role: roleFromWire(m.Role),
			})
		}

		if resp.NextPageToken == "" {
			return all, nil
		}
		pageToken = resp.NextPageToken
	}
}

func (a *Adapter) AddMember(ctx context.Context, spaceRef, ref string, role directory.Role) error {
	var m membership
	m.Role = roleToWire(role)
	m.Member.Name = ref
	m.Member.Type = "HUMAN"
	body, _ := json.Marshal(m)

	u := fmt.Sprintf("%s/%s/members", a.BaseURL, spaceRef)
	err := httpx.DoJSON(ctx, a.HTTP, a.buildJSON(http.MethodPost, u, body), nil, a.Retry)
	if isStatus(err, http.StatusConflict) {
		return directory.ErrDuplicateMember
	}
	return err
}

func (a *Adapter) RemoveMember(ctx context.Context, spaceRef, ref string) error {
	u := fmt.Sprintf("%s/%s", a.BaseURL, membershipName(spaceRef, ref))
	err := httpx.DoJSON(ctx, a.HTTP, a.buildJSON(http.MethodDelete, u, nil), nil, a.Retry)
	if isStatus(err, http.StatusNotFound) {
		return directory.ErrNotFound
	}
	return err
}

func (a *Adapter) UpdateRole(ctx context.Context, spaceRef, ref string, role directory.Role) error {
	body, _ := json.Marshal(struct {
		Role string `json:"role"`
	}{Role: roleToWire(role)})

	u := fmt.Sprintf("%s/%s?updateMask=role", a.BaseURL, membershipName(spaceRef, ref))
	err := httpx.DoJSON(ctx, a.HTTP, a.buildJSON(http.MethodPatch, u, body), nil, a.Retry)
	if isStatus(err, http.StatusNotFound) {
		return directory.ErrNotFound
	}
	return err
}

/* -------- helpers -------- */

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
