package client

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"teamhub/internal/authz"
	"teamhub/internal/gateway/apierror"
	"teamhub/internal/gateway/request"
	"teamhub/internal/session"
)

const (
	maxProjectNameLen        = 100
	maxProjectDescriptionLen = 500
)

// ListProjects returns one page of projects. An empty status lists all of them.
func (c *Client) ListProjects(ctx context.Context, status ProjectStatus, opts ListOptions) (Page[Project], error) {
	params := pageParams(opts)
	params["status"] = optional(status)
	return Get[Page[Project]](ctx, c, "/projects", params)
}

// CreateProject validates the input locally before sending it.
func (c *Client) CreateProject(ctx context.Context, in CreateProjectInput) (Project, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validateProject(in); err != nil {
		return Project{}, c.fail(ctx, "/projects", err)
	}
	return Post[Project](ctx, c, "/projects", in)
}

func validateProject(in CreateProjectInput) error {
	switch {
	case in.Name == "":
		return apierror.New(apierror.KindValidation, apierror.CodeValidation, "Project name is required")
	case utf8.RuneCountInString(in.Name) > maxProjectNameLen:
		return apierror.New(apierror.KindValidation, apierror.CodeValidation,
			fmt.Sprintf("Project name must be %d characters or less", maxProjectNameLen))
	case utf8.RuneCountInString(in.Description) > maxProjectDescriptionLen:
		return apierror.New(apierror.KindValidation, apierror.CodeValidation,
			fmt.Sprintf("Description must be %d characters or less", maxProjectDescriptionLen))
	}
	return nil
}

// ListTasks returns one page of tasks matching filter.
func (c *Client) ListTasks(ctx context.Context, filter TaskFilter, opts ListOptions) (Page[Task], error) {
	params := pageParams(opts)
	params["projectId"] = optional(filter.ProjectID)
	params["status"] = optional(filter.Status)
	params["assigneeId"] = optional(filter.AssigneeID)
	return Get[Page[Task]](ctx, c, "/tasks", params)
}

// ListMembers returns one page of members of the caller's organization.
func (c *Client) ListMembers(ctx context.Context, opts ListOptions) (Page[Member], error) {
	return Get[Page[Member]](ctx, c, "/members", pageParams(opts))
}

// GetOrganization fetches a single organization.
func (c *Client) GetOrganization(ctx context.Context, id string) (Organization, error) {
	if strings.TrimSpace(id) == "" {
		return Organization{}, c.fail(ctx, "/organizations",
			apierror.New(apierror.KindValidation, apierror.CodeValidation, "Organization id is required"))
	}
	return Get[Organization](ctx, c, "/organizations/"+url.PathEscape(id), nil)
}

// CurrentOrganization fetches the organization of the signed-in user.
func (c *Client) CurrentOrganization(ctx context.Context) (Organization, error) {
	sess, ok := c.sessions.Current(ctx)
	if !ok {
		return Organization{}, c.fail(ctx, "/organizations",
			apierror.New(apierror.KindUnauthenticated, apierror.CodeUnauthenticated, "Sign in to continue"))
	}
	return c.GetOrganization(ctx, sess.User.OrganizationID)
}

// UpdateOrganizationSettings replaces the organization's settings. Requires ADMIN.
func (c *Client) UpdateOrganizationSettings(ctx context.Context, id string, settings OrganizationSettings) (Organization, error) {
	if err := authz.Require(ctx, c.sessions, session.RoleAdmin); err != nil {
		return Organization{}, c.fail(ctx, "/organizations", err)
	}
	body := struct {
		Settings OrganizationSettings `json:"settings"`
	}{Settings: settings}
	return Put[Organization](ctx, c, "/organizations/"+url.PathEscape(id)+"/settings", body)
}

// ListOrganizations lists every organization. Requires ADMIN.
func (c *Client) ListOrganizations(ctx context.Context) ([]Organization, error) {
	if err := authz.Require(ctx, c.sessions, session.RoleAdmin); err != nil {
		return nil, c.fail(ctx, "/organizations", err)
	}
	return Get[[]Organization](ctx, c, "/organizations", nil)
}

// BillingUsage returns the plan and current usage. Requires ADMIN.
func (c *Client) BillingUsage(ctx context.Context) (BillingUsage, error) {
	if err := authz.Require(ctx, c.sessions, session.RoleAdmin); err != nil {
		return BillingUsage{}, c.fail(ctx, "/billing/usage", err)
	}
	return Get[BillingUsage](ctx, c, "/billing/usage", nil)
}

// Analytics fetches an analytics report. The payload shape depends on the
// report, so it is returned undecoded as a generic map.
func (c *Client) Analytics(ctx context.Context, path string, query request.Params) (map[string]any, error) {
	target := "/analytics"
	sub, ok := request.JoinSegments(path)
	if !ok {
		return nil, c.fail(ctx, target, apierror.New(apierror.KindValidation, apierror.CodeInvalidRequest,
			fmt.Sprintf("Invalid analytics path %q", path)))
	}
	if sub != "" {
		target += "/" + sub
	}
	return Get[map[string]any](ctx, c, target, query)
}
