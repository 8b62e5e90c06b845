package roster

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"roster-sync/internal/httpx"
)

// Client talks to the course-enrollment backend (Classroom-style REST).
// It only reads: active courses and their staff/enrolled rosters.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
	Retry   httpx.RetryConfig
}

func New(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Client{
		BaseURL: baseURL,
		Token:   token,
		HTTP:    &http.Client{Timeout: timeout},
		Retry:   httpx.DefaultRetryConfig(),
	}
}

// Course is an active course as reported by the enrollment backend.
type Course struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	AlternateLink string `json:"alternateLink"`
}

// Person is one roster entry. Email may be empty when the backend hides
// the address; callers decide whether to resolve or skip.
type Person struct {
	UserID   string
	FullName string
	Email    string
}

/* -------- wire types -------- */

type listCoursesResponse struct {
	Courses       []Course `json:"courses"`
	NextPageToken string   `json:"nextPageToken"`
}

type profile struct {
	EmailAddress string `json:"emailAddress"`
	Name         struct {
		FullName string `json:"fullName"`
	} `json:"name"`
}

type enrollment struct {
	UserID  string  `json:"userId"`
	Profile profile `json:"profile"`
}

type listStudentsResponse struct {
	Students      []enrollment `json:"students"`
	NextPageToken string       `json:"nextPageToken"`
}

type listTeachersResponse struct {
	Teachers      []enrollment `json:"teachers"`
	NextPageToken string       `json:"nextPageToken"`
}

/* -------- API -------- */

// ListActiveCourses pages through the backend's active course list.
func (c *Client) ListActiveCourses(ctx context.Context) ([]Course, error) {
	var all []Course

	pageToken := ""
	for {
		u, err := url.Parse(c.BaseURL + "/courses")
		if err != nil {
			return nil, fmt.Errorf("roster: invalid base url: %w", err)
		}
		q := u.Query()
		q.Set("courseStates", "ACTIVE")
		q.Set("pageSize", "500")
		if pageToken != "" {
			q.Set("pageToken", pageToken)
		}
		u.RawQuery = q.Encode()

		var resp listCoursesResponse
		if err := httpx.DoJSON(ctx, c.HTTP, c.buildGet(u.String()), &resp, c.Retry); err != nil {
			return nil, fmt.Errorf("roster: list courses: %w", err)
		}
		all = append(all, resp.Courses...)

		if resp.NextPageToken == "" {
			return all, nil
		}
		pageToken = resp.NextPageToken
	}
}

// ListStudents pages through a course's enrolled members.
func (c *Client) ListStudents(ctx context.Context, courseID string) ([]Person, error) {
	var all []Person

	pageToken := ""
	for {
		u := c.pageURL(fmt.Sprintf("/courses/%s/students", url.PathEscape(courseID)), pageToken)

		var resp listStudentsResponse
		if err := httpx.DoJSON(ctx, c.HTTP, c.buildGet(u), &resp, c.Retry); err != nil {
			return nil, fmt.Errorf("roster: list students for %s: %w", courseID, err)
		}
		for _, s := range resp.Students {
			all = append(all, Person{UserID: s.UserID, FullName: s.Profile.Name.FullName, Email: s.Profile.EmailAddress})
		}

		if resp.NextPageToken == "" {
			return all, nil
		}
		pageToken = resp.NextPageToken
	}
}

// ListTeachers pages through a course's staff.
func (c *Client) ListTeachers(ctx context.Context, courseID string) ([]Person, error) {
	var all []Person

	pageToken := ""
	for {
		u := c.pageURL(fmt.Sprintf("/courses/%s/teachers", url.PathEscape(courseID)), pageToken)

		var resp listTeachersResponse
		if err := httpx.DoJSON(ctx, c.HTTP, c.buildGet(u), &resp, c.Retry); err != nil {
			return nil, fmt.Errorf("roster: list teachers for %s: %w", courseID, err)
		}
		for _, t := range resp.Teachers {
			all = append(all, Person{UserID: t.UserID, FullName: t.Profile.Name.FullName, Email: t.Profile.EmailAddress})
		}

		if resp.NextPageToken == "" {
			return all, nil
		}
		pageToken = resp.NextPageToken
	}
}

func (c *Client) pageURL(path, pageToken string) string {
	u := c.BaseURL + path + "?pageSize=100"
	if pageToken != "" {
		u += "&pageToken=" + url.QueryEscape(pageToken)
	}
	return u
}

func (c *Client) buildGet(u string) func(context.Context) (*http.Request, error) {
	return func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.Token)
		return req, nil
	}
}
