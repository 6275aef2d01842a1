package cli

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"teamhub/internal/gateway/apierror"
	"teamhub/internal/gateway/client"
	"teamhub/internal/gateway/request"
)

func pageFlags(cmd *cobra.Command, opts *client.ListOptions) {
	cmd.Flags().IntVar(&opts.Page, "page", 0, "page number (1-based)")
	cmd.Flags().IntVar(&opts.PageSize, "page-size", 0, "items per page (default 20, max 100)")
}

func (a *app) projectsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "projects", Short: "List and create projects"}

	var status string
	var page client.ListOptions
	list := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := a.client.ListProjects(cmd.Context(), client.ProjectStatus(strings.ToUpper(status)), page)
			if err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), res)
		},
	}
	list.Flags().StringVar(&status, "status", "", "filter by status: ACTIVE, ARCHIVED or COMPLETED")
	pageFlags(list, &page)

	var in client.CreateProjectInput
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := a.client.CreateProject(cmd.Context(), in)
			if err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), res)
		},
	}
	create.Flags().StringVar(&in.Name, "name", "", "project name")
	create.Flags().StringVar(&in.Description, "description", "", "project description")

	cmd.AddCommand(list, create)
	return cmd
}

func (a *app) tasksCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "tasks", Short: "List tasks"}

	var filter client.TaskFilter
	var status string
	var page client.ListOptions
	list := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter.Status = client.TaskStatus(strings.ToUpper(status))
			res, err := a.client.ListTasks(cmd.Context(), filter, page)
			if err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), res)
		},
	}
	list.Flags().StringVar(&filter.ProjectID, "project", "", "filter by project id")
	list.Flags().StringVar(&status, "status", "", "filter by status: TODO, IN_PROGRESS, IN_REVIEW or DONE")
	list.Flags().StringVar(&filter.AssigneeID, "assignee", "", "filter by assignee id")
	pageFlags(list, &page)

	cmd.AddCommand(list)
	return cmd
}

func (a *app) membersCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "members", Short: "List organization members"}

	var page client.ListOptions
	list := &cobra.Command{
		Use:   "list",
		Short: "List members",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := a.client.ListMembers(cmd.Context(), page)
			if err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), res)
		},
	}
	pageFlags(list, &page)

	cmd.AddCommand(list)
	return cmd
}

func (a *app) orgCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "org", Short: "Show and configure the organization"}

	show := &cobra.Command{
		Use:   "show [id]",
		Short: "Show an organization (default: your own)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				org client.Organization
				err error
			)
			if len(args) == 1 {
				org, err = a.client.GetOrganization(cmd.Context(), args[0])
			} else {
				org, err = a.client.CurrentOrganization(cmd.Context())
			}
			if err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), org)
		},
	}

	var settings client.OrganizationSettings
	update := &cobra.Command{
		Use:   "settings [id]",
		Short: "Update organization settings (requires ADMIN)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := ""
			if len(args) == 1 {
				id = args[0]
			} else if sess, ok := a.store.Current(cmd.Context()); ok {
				id = sess.User.OrganizationID
			}
			org, err := a.client.UpdateOrganizationSettings(cmd.Context(), id, settings)
			if err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), org)
		},
	}
	update.Flags().StringVar(&settings.DefaultProjectVisibility, "default-visibility", "private", "default visibility for new projects")
	update.Flags().BoolVar(&settings.AllowGuestAccess, "allow-guests", false, "allow guest access")

	cmd.AddCommand(show, update)
	return cmd
}

func (a *app) adminCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "admin", Short: "Administrative views (requires ADMIN)"}

	orgs := &cobra.Command{
		Use:   "orgs",
		Short: "List all organizations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := a.client.ListOrganizations(cmd.Context())
			if err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), res)
		},
	}
	billing := &cobra.Command{
		Use:   "billing",
		Short: "Show the billing plan and usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := a.client.BillingUsage(cmd.Context())
			if err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), res)
		},
	}

	cmd.AddCommand(orgs, billing)
	return cmd
}

func (a *app) analyticsCmd() *cobra.Command {
	var params []string
	cmd := &cobra.Command{
		Use:   "analytics [path]",
		Short: "Fetch an analytics report",
		Long: `Fetch an analytics report, e.g.

  teamhub analytics overview --param period=30d`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query, err := parseParams(params)
			if err != nil {
				return err
			}
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			res, err := a.client.Analytics(cmd.Context(), path, query)
			if err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringArrayVar(&params, "param", nil, "query parameter as key=value (repeatable)")
	return cmd
}

func (a *app) dashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show dashboard totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stats, err := a.client.Dashboard(cmd.Context())
			if err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), stats)
		},
	}
}

func (a *app) requestCmd() *cobra.Command {
	var (
		params []string
		data   string
	)
	cmd := &cobra.Command{
		Use:   "request <method> <path>",
		Short: "Send an arbitrary request through the gateway",
		Long: `Send an arbitrary request with the current session attached.

Examples:
  teamhub request GET /projects --param status=ACTIVE
  teamhub request POST /projects --data '{"name":"Apollo"}'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			query, err := parseParams(params)
			if err != nil {
				return err
			}
			opts := request.Options{Method: args[0], Query: query}
			if data != "" {
				if !json.Valid([]byte(data)) {
					return apierror.New(apierror.KindValidation, apierror.CodeInvalidRequestBody, "--data must be valid JSON")
				}
				opts.Body = json.RawMessage(data)
			}

			res, err := client.Do[any](cmd.Context(), a.client, args[1], opts)
			if err != nil {
				return err
			}
			if res == nil {
				return nil
			}
			return a.render(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringArrayVar(&params, "param", nil, "query parameter as key=value (repeatable)")
	cmd.Flags().StringVarP(&data, "data", "d", "", "JSON request body")
	return cmd
}

// parseParams turns key=value pairs into query params. A later pair for the
// same key wins.
func parseParams(pairs []string) (request.Params, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(request.Params, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, apierror.New(apierror.KindValidation, apierror.CodeInvalidRequest,
				"--param must be key=value, got "+p)
		}
		out[strings.TrimSpace(k)] = v
	}
	return out, nil
}
