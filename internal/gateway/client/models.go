package client

import (
	"time"

	"teamhub/internal/session"
)

// Page is the upstream's paginated list envelope.
type Page[T any] struct {
	Data       []T `json:"data" yaml:"data"`
	Total      int `json:"total,omitempty" yaml:"total,omitempty"`
	Page       int `json:"page,omitempty" yaml:"page,omitempty"`
	PageSize   int `json:"pageSize,omitempty" yaml:"pageSize,omitempty"`
	TotalPages int `json:"totalPages,omitempty" yaml:"totalPages,omitempty"`
}

// Count returns Total when the upstream reports it, otherwise the length of
// the returned page.
func (p Page[T]) Count() int {
	if p.Total > 0 {
		return p.Total
	}
	return len(p.Data)
}

// ListOptions paginates list calls. Zero values fall back to the defaults.
type ListOptions struct {
	Page     int
	PageSize int
}

type ProjectStatus string

const (
	ProjectActive    ProjectStatus = "ACTIVE"
	ProjectArchived  ProjectStatus = "ARCHIVED"
	ProjectCompleted ProjectStatus = "COMPLETED"
)

type Project struct {
	ID             string        `json:"id" yaml:"id"`
	Name           string        `json:"name" yaml:"name"`
	Description    string        `json:"description,omitempty" yaml:"description,omitempty"`
	Status         ProjectStatus `json:"status" yaml:"status"`
	OrganizationID string        `json:"organizationId,omitempty" yaml:"organizationId,omitempty"`
	TaskCount      int           `json:"taskCount,omitempty" yaml:"taskCount,omitempty"`
	CreatedAt      time.Time     `json:"createdAt" yaml:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt" yaml:"updatedAt"`
}

// CreateProjectInput is the payload for CreateProject.
type CreateProjectInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type TaskStatus string

const (
	TaskTodo       TaskStatus = "TODO"
	TaskInProgress TaskStatus = "IN_PROGRESS"
	TaskInReview   TaskStatus = "IN_REVIEW"
	TaskDone       TaskStatus = "DONE"
)

type Task struct {
	ID          string     `json:"id" yaml:"id"`
	Title       string     `json:"title" yaml:"title"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Status      TaskStatus `json:"status" yaml:"status"`
	Priority    string     `json:"priority,omitempty" yaml:"priority,omitempty"`
	ProjectID   string     `json:"projectId,omitempty" yaml:"projectId,omitempty"`
	AssigneeID  string     `json:"assigneeId,omitempty" yaml:"assigneeId,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty" yaml:"dueDate,omitempty"`
	CreatedAt   time.Time  `json:"createdAt" yaml:"createdAt"`
}

// TaskFilter narrows ListTasks. Empty fields are not sent.
type TaskFilter struct {
	ProjectID  string
	Status     TaskStatus
	AssigneeID string
}

type Member struct {
	ID       string       `json:"id" yaml:"id"`
	Name     string       `json:"name" yaml:"name"`
	Email    string       `json:"email" yaml:"email"`
	Role     session.Role `json:"role" yaml:"role"`
	JoinedAt *time.Time   `json:"joinedAt,omitempty" yaml:"joinedAt,omitempty"`
}

type OrganizationSettings struct {
	DefaultProjectVisibility string `json:"defaultProjectVisibility" yaml:"defaultProjectVisibility"`
	AllowGuestAccess         bool   `json:"allowGuestAccess" yaml:"allowGuestAccess"`
}

type Organization struct {
	ID          string               `json:"id" yaml:"id"`
	Name        string               `json:"name" yaml:"name"`
	Slug        string               `json:"slug,omitempty" yaml:"slug,omitempty"`
	Tier        string               `json:"tier,omitempty" yaml:"tier,omitempty"`
	MemberCount int                  `json:"memberCount,omitempty" yaml:"memberCount,omitempty"`
	Settings    OrganizationSettings `json:"settings" yaml:"settings"`
	CreatedAt   time.Time            `json:"createdAt" yaml:"createdAt"`
}

type BillingPlan struct {
	Tier          string  `json:"tier" yaml:"tier"`
	PricePerMonth float64 `json:"pricePerMonth" yaml:"pricePerMonth"`
	MaxMembers    int     `json:"maxMembers" yaml:"maxMembers"`
	MaxProjects   int     `json:"maxProjects" yaml:"maxProjects"`
}

type BillingUsage struct {
	Plan            BillingPlan `json:"plan" yaml:"plan"`
	CurrentMembers  int         `json:"currentMembers" yaml:"currentMembers"`
	CurrentProjects int         `json:"currentProjects" yaml:"currentProjects"`
}

// DashboardStats is the aggregate shown on the dashboard landing page.
type DashboardStats struct {
	TotalProjects  int `json:"totalProjects" yaml:"totalProjects"`
	TotalTasks     int `json:"totalTasks" yaml:"totalTasks"`
	TasksCompleted int `json:"tasksCompleted" yaml:"tasksCompleted"`
	TotalMembers   int `json:"totalMembers" yaml:"totalMembers"`
}
