package client

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"teamhub/internal/gateway/apierror"
	"teamhub/internal/platform/metrics"
	"teamhub/internal/session"
	"teamhub/pkg/testutil"
)

func newSessionStore(role session.Role) *session.Store {
	store := session.NewStore()
	store.Replace(session.Session{
		User: session.User{
			ID:             "user_01HQ3XK123",
			Email:          "john@acme.com",
			DisplayName:    "John Doe",
			OrganizationID: "org_01HQ3XJMR5E0987654321",
			Role:           role,
		},
		Credential: "jwt-abc",
		ExpiresAt:  time.Now().Add(time.Hour),
	})
	return store
}

type ClientSuite struct {
	suite.Suite
	logger *slog.Logger
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientSuite))
}

func (s *ClientSuite) SetupTest() {
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (s *ClientSuite) newClient(baseURL string, store session.Reader, opts ...Option) *Client {
	return New(baseURL, store, append([]Option{WithLogger(s.logger)}, opts...)...)
}

func (s *ClientSuite) TestListProjects() {
	upstream := testutil.NewUpstream(s.T(), http.StatusOK,
		`{"data":[{"id":"p1","name":"Apollo","status":"ACTIVE"}],"total":1,"page":1,"pageSize":20}`)
	c := s.newClient(upstream.URL+"/api", newSessionStore(session.RoleMember))

	page, err := c.ListProjects(context.Background(), ProjectActive, ListOptions{})
	s.Require().NoError(err)
	s.Require().Len(page.Data, 1)
	s.Equal("Apollo", page.Data[0].Name)
	s.Equal(1, page.Count())

	got := upstream.Last(s.T())
	s.Equal("/api/projects", got.Path)
	q, _ := url.ParseQuery(got.Query)
	s.Equal("ACTIVE", q.Get("status"))
	s.Equal("20", q.Get("pageSize"))
	s.False(q.Has("page"))
	s.Equal("Bearer jwt-abc", got.Header.Get("Authorization"))
}

func (s *ClientSuite) TestListProjectsOmitsEmptyStatusAndClampsPageSize() {
	upstream := testutil.NewUpstream(s.T(), http.StatusOK, `{"data":[]}`)
	c := s.newClient(upstream.URL, newSessionStore(session.RoleViewer))

	_, err := c.ListProjects(context.Background(), "", ListOptions{Page: 3, PageSize: 1000})
	s.Require().NoError(err)

	q, _ := url.ParseQuery(upstream.Last(s.T()).Query)
	s.False(q.Has("status"))
	s.Equal("3", q.Get("page"))
	s.Equal("100", q.Get("pageSize"))
}

func (s *ClientSuite) TestCreateProject() {
	upstream := testutil.NewUpstream(s.T(), http.StatusCreated, `{"id":"p9","name":"Apollo","status":"ACTIVE"}`)
	c := s.newClient(upstream.URL, newSessionStore(session.RoleMember))

	p, err := c.CreateProject(context.Background(), CreateProjectInput{Name: "  Apollo ", Description: "moon"})
	s.Require().NoError(err)
	s.Equal("p9", p.ID)

	got := upstream.Last(s.T())
	s.Equal(http.MethodPost, got.Method)
	s.JSONEq(`{"name":"Apollo","description":"moon"}`, string(got.Body))
	s.Equal("application/json", got.Header.Get("Content-Type"))
}

func (s *ClientSuite) TestCreateProjectValidatesLocally() {
	upstream := testutil.NewUpstream(s.T(), http.StatusCreated, `{}`)
	c := s.newClient(upstream.URL, newSessionStore(session.RoleMember))

	for _, in := range []CreateProjectInput{
		{Name: "   "},
		{Name: strings.Repeat("x", 101)},
		{Name: "ok", Description: strings.Repeat("d", 501)},
	} {
		_, err := c.CreateProject(context.Background(), in)
		s.True(apierror.HasKind(err, apierror.KindValidation))
	}
	s.Empty(upstream.Requests())
}

func (s *ClientSuite) TestUpstreamErrorsAreNormalized() {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)
	upstream := testutil.NewUpstream(s.T(), http.StatusConflict, `{"error":"NAME_TAKEN","message":"Project exists"}`)
	c := s.newClient(upstream.URL, newSessionStore(session.RoleOwner), WithMetrics(m))

	_, err := c.CreateProject(context.Background(), CreateProjectInput{Name: "Apollo"})

	e, ok := apierror.As(err)
	s.Require().True(ok)
	s.Equal(apierror.KindConflict, e.Kind)
	s.Equal("NAME_TAKEN", e.Code)
	s.Equal("Project exists", e.Message)
	s.Equal(http.StatusConflict, e.HTTPStatus)
	s.InDelta(1, promtestutil.ToFloat64(m.ClientErrors.WithLabelValues("conflict")), 0)
}

func (s *ClientSuite) TestUnreachableGateway() {
	c := s.newClient(testutil.ClosedURL(s.T()), newSessionStore(session.RoleOwner))

	_, err := c.ListMembers(context.Background(), ListOptions{})

	e, ok := apierror.As(err)
	s.Require().True(ok)
	s.Equal(apierror.KindUpstreamUnavailable, e.Kind)
	s.False(e.HasStatus())
}

func (s *ClientSuite) TestProxyBadGatewayIsUnknownWithStatus() {
	upstream := testutil.NewUpstream(s.T(), http.StatusBadGateway, `{"error":"BAD_GATEWAY","message":"Backend unavailable"}`)
	c := s.newClient(upstream.URL, newSessionStore(session.RoleOwner))

	_, err := c.ListTasks(context.Background(), TaskFilter{}, ListOptions{})

	e, ok := apierror.As(err)
	s.Require().True(ok)
	s.Equal(apierror.KindUnknown, e.Kind)
	s.Equal("BAD_GATEWAY", e.Code)
	s.Equal(http.StatusBadGateway, e.HTTPStatus)
}

func (s *ClientSuite) TestListTasksFilter() {
	upstream := testutil.NewUpstream(s.T(), http.StatusOK, `{"data":[]}`)
	c := s.newClient(upstream.URL, newSessionStore(session.RoleMember))

	_, err := c.ListTasks(context.Background(), TaskFilter{ProjectID: "p1", Status: TaskInReview}, ListOptions{PageSize: 5})
	s.Require().NoError(err)

	q, _ := url.ParseQuery(upstream.Last(s.T()).Query)
	s.Equal("p1", q.Get("projectId"))
	s.Equal("IN_REVIEW", q.Get("status"))
	s.Equal("5", q.Get("pageSize"))
	s.False(q.Has("assigneeId"))
}

func (s *ClientSuite) TestCurrentOrganization() {
	upstream := testutil.NewUpstream(s.T(), http.StatusOK,
		`{"id":"org_01HQ3XJMR5E0987654321","name":"Acme","settings":{"defaultProjectVisibility":"PRIVATE","allowGuestAccess":false}}`)

	s.Run("uses the session's organization", func() {
		c := s.newClient(upstream.URL, newSessionStore(session.RoleViewer))
		org, err := c.CurrentOrganization(context.Background())
		s.Require().NoError(err)
		s.Equal("Acme", org.Name)
		s.Equal("PRIVATE", org.Settings.DefaultProjectVisibility)
		s.Equal("/organizations/org_01HQ3XJMR5E0987654321", upstream.Last(s.T()).Path)
	})

	s.Run("no session is unauthenticated", func() {
		c := s.newClient(upstream.URL, session.NewStore())
		_, err := c.CurrentOrganization(context.Background())
		s.True(apierror.HasKind(err, apierror.KindUnauthenticated))
	})
}

func (s *ClientSuite) TestAdminOperationsAreRoleGated() {
	upstream := testutil.NewUpstream(s.T(), http.StatusOK, `[]`)

	s.Run("member is forbidden before dispatch", func() {
		c := s.newClient(upstream.URL, newSessionStore(session.RoleMember))

		_, err := c.ListOrganizations(context.Background())
		s.True(apierror.HasKind(err, apierror.KindForbidden))

		_, err = c.BillingUsage(context.Background())
		s.True(apierror.HasKind(err, apierror.KindForbidden))

		_, err = c.UpdateOrganizationSettings(context.Background(), "org_1", OrganizationSettings{})
		s.True(apierror.HasKind(err, apierror.KindForbidden))

		s.Empty(upstream.Requests())
	})

	s.Run("admin is dispatched", func() {
		c := s.newClient(upstream.URL, newSessionStore(session.RoleAdmin))
		orgs, err := c.ListOrganizations(context.Background())
		s.Require().NoError(err)
		s.Empty(orgs)
		s.Equal("/organizations", upstream.Last(s.T()).Path)
	})
}

func (s *ClientSuite) TestUpdateOrganizationSettingsBody() {
	upstream := testutil.NewUpstream(s.T(), http.StatusOK, `{"id":"org_1","name":"Acme","settings":{"defaultProjectVisibility":"PUBLIC","allowGuestAccess":true}}`)
	c := s.newClient(upstream.URL, newSessionStore(session.RoleOwner))

	org, err := c.UpdateOrganizationSettings(context.Background(), "org_1", OrganizationSettings{
		DefaultProjectVisibility: "PUBLIC",
		AllowGuestAccess:         true,
	})
	s.Require().NoError(err)
	s.True(org.Settings.AllowGuestAccess)

	got := upstream.Last(s.T())
	s.Equal(http.MethodPut, got.Method)
	s.Equal("/organizations/org_1/settings", got.Path)
	s.JSONEq(`{"settings":{"defaultProjectVisibility":"PUBLIC","allowGuestAccess":true}}`, string(got.Body))
}

func (s *ClientSuite) TestBillingUsage() {
	upstream := testutil.NewUpstream(s.T(), http.StatusOK,
		`{"plan":{"tier":"PROFESSIONAL","pricePerMonth":49,"maxMembers":50,"maxProjects":100},"currentMembers":12,"currentProjects":7}`)
	c := s.newClient(upstream.URL, newSessionStore(session.RoleAdmin))

	usage, err := c.BillingUsage(context.Background())
	s.Require().NoError(err)
	s.Equal("PROFESSIONAL", usage.Plan.Tier)
	s.Equal(12, usage.CurrentMembers)
	s.Equal("/billing/usage", upstream.Last(s.T()).Path)
}

func (s *ClientSuite) TestAnalytics() {
	upstream := testutil.NewUpstream(s.T(), http.StatusOK, `{"velocity":[1,2,3]}`)
	c := s.newClient(upstream.URL, newSessionStore(session.RoleMember))

	report, err := c.Analytics(context.Background(), "/projects/velocity/", map[string]any{"range": "30d", "projectId": nil})
	s.Require().NoError(err)
	s.Contains(report, "velocity")

	got := upstream.Last(s.T())
	s.Equal("/analytics/projects/velocity", got.Path)
	s.Equal("range=30d", got.Query)
}

func (s *ClientSuite) TestAnalyticsPathIsConfinedToAnalytics() {
	upstream := testutil.NewUpstream(s.T(), http.StatusOK, `{}`)
	c := s.newClient(upstream.URL, newSessionStore(session.RoleMember))

	for _, path := range []string{"../organizations", "projects/../../admin", "./velocity", "projects//velocity"} {
		_, err := c.Analytics(context.Background(), path, nil)
		e, ok := apierror.As(err)
		s.Require().True(ok, path)
		s.Equal(apierror.KindValidation, e.Kind, path)
		s.Equal(apierror.CodeInvalidRequest, e.Code, path)
	}
	s.Empty(upstream.Requests())

	_, err := c.Analytics(context.Background(), "report?injected=1", map[string]any{"status": "ACTIVE"})
	s.Require().NoError(err)
	got := upstream.Last(s.T())
	s.Equal("/analytics/report?injected=1", got.Path)
	s.Equal("status=ACTIVE", got.Query)
}

func (s *ClientSuite) TestOversizedResponseIsRejected() {
	upstream := testutil.NewUpstream(s.T(), http.StatusOK, `{"id":"org_1","name":"`+strings.Repeat("a", 64)+`"}`)
	c := s.newClient(upstream.URL, newSessionStore(session.RoleOwner), WithMaxResponseBytes(32))

	_, err := c.GetOrganization(context.Background(), "org_1")

	e, ok := apierror.As(err)
	s.Require().True(ok)
	s.Equal(apierror.KindUnknown, e.Kind)
	s.Equal(apierror.CodeResponseTooLarge, e.Code)
	s.Equal(http.StatusOK, e.HTTPStatus)
}

func (s *ClientSuite) TestDeleteWithNoContent() {
	upstream := testutil.NewUpstream(s.T(), http.StatusNoContent, ``)
	c := s.newClient(upstream.URL, newSessionStore(session.RoleOwner))

	_, err := Delete[apierror.Empty](context.Background(), c, "/projects/p1")
	s.NoError(err)
	s.Equal(http.MethodDelete, upstream.Last(s.T()).Method)
}

func (s *ClientSuite) TestMalformedSuccessBody() {
	upstream := testutil.NewUpstream(s.T(), http.StatusOK, `<html>oops</html>`)
	c := s.newClient(upstream.URL, newSessionStore(session.RoleOwner))

	_, err := c.GetOrganization(context.Background(), "org_1")

	e, ok := apierror.As(err)
	s.Require().True(ok)
	s.Equal(apierror.CodeMalformedResponse, e.Code)
}

func TestDashboard(t *testing.T) {
	testutil.Given(t, "an upstream serving every dashboard list", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/projects", func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"data":[{"id":"p1"},{"id":"p2"}],"total":12}`)
		})
		mux.HandleFunc("/tasks", func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("status") == "DONE" {
				_, _ = io.WriteString(w, `{"data":[{"id":"t1","status":"DONE"}]}`)
				return
			}
			_, _ = io.WriteString(w, `{"data":[{"id":"t1"},{"id":"t2"},{"id":"t3"}]}`)
		})
		mux.HandleFunc("/members", func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"data":[{"id":"u1"}],"total":4}`)
		})
		srv := httptest.NewServer(mux)
		t.Cleanup(srv.Close)

		c := New(srv.URL, newSessionStore(session.RoleMember))

		testutil.When(t, "the dashboard is loaded", func(t *testing.T) {
			stats, err := c.Dashboard(context.Background())

			testutil.Then(t, "counts come from totals or page lengths", func(t *testing.T) {
				require.NoError(t, err)
				assert.Equal(t, DashboardStats{TotalProjects: 12, TotalTasks: 3, TasksCompleted: 1, TotalMembers: 4}, stats)
			})
		})
	})

	testutil.Given(t, "one list fails", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			if r.URL.Path == "/members" {
				w.WriteHeader(http.StatusForbidden)
				_, _ = io.WriteString(w, `{"error":"FORBIDDEN","message":"no"}`)
				return
			}
			_, _ = io.WriteString(w, `{"data":[]}`)
		}))
		t.Cleanup(srv.Close)

		c := New(srv.URL, newSessionStore(session.RoleMember))

		testutil.When(t, "the dashboard is loaded", func(t *testing.T) {
			_, err := c.Dashboard(context.Background())

			testutil.Then(t, "a normalized error is returned", func(t *testing.T) {
				e, ok := apierror.As(err)
				require.True(t, ok)
				assert.Equal(t, apierror.KindForbidden, e.Kind)
				assert.Positive(t, calls.Load())
			})
		})
	})
}
