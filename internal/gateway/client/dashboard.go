package client

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Dashboard loads the landing page counters. The four lists are fetched
// concurrently; the first failure cancels the others and is returned.
func (c *Client) Dashboard(ctx context.Context) (DashboardStats, error) {
	var (
		projects  Page[Project]
		tasks     Page[Task]
		completed Page[Task]
		members   Page[Member]
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		projects, err = c.ListProjects(gctx, "", ListOptions{PageSize: MaxPageSize})
		return err
	})
	g.Go(func() error {
		var err error
		tasks, err = c.ListTasks(gctx, TaskFilter{}, ListOptions{PageSize: MaxPageSize})
		return err
	})
	g.Go(func() error {
		var err error
		completed, err = c.ListTasks(gctx, TaskFilter{Status: TaskDone}, ListOptions{PageSize: MaxPageSize})
		return err
	})
	g.Go(func() error {
		var err error
		members, err = c.ListMembers(gctx, ListOptions{PageSize: MaxPageSize})
		return err
	})
	if err := g.Wait(); err != nil {
		return DashboardStats{}, err
	}

	return DashboardStats{
		TotalProjects:  projects.Count(),
		TotalTasks:     tasks.Count(),
		TasksCompleted: completed.Count(),
		TotalMembers:   members.Count(),
	}, nil
}
