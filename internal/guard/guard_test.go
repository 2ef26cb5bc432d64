package guard_test

import (
	"context"
	"net/url"
	"testing"

	"taskgate/internal/guard"
	"taskgate/internal/session"
	"taskgate/internal/storage"
	"taskgate/internal/testutil"
)

type recorder struct {
	paths []string
}

func (r *recorder) GoTo(path string) { r.paths = append(r.paths, path) }

func testConfig() guard.Config {
	return guard.Config{
		FallbackPath: "/login",
		LandingPath:  "/dashboard",
		Protected:    []string{"/dashboard", "/settings"},
		AuthOnly:     []string{"/login", "/register"},
	}
}

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	return u
}

func TestClassify(t *testing.T) {
	cfg := testConfig()
	tests := []struct {
		path string
		want guard.Access
	}{
		{"/dashboard", guard.Protected},
		{"/dashboard/tasks/1", guard.Protected},
		{"/dashboards", guard.Public},
		{"/login", guard.AuthOnly},
		{"/register", guard.AuthOnly},
		{"/", guard.Public},
		{"/about", guard.Public},
	}
	for _, tt := range tests {
		if got := cfg.Classify(tt.path); got != tt.want {
			t.Errorf("Classify(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestEvaluate_ResolvingNeverRedirects(t *testing.T) {
	nav := &recorder{}
	g := guard.New(testConfig(), nav)

	for _, p := range []string{"/dashboard", "/login"} {
		for i := 0; i < 3; i++ {
			if got := g.Evaluate(session.StatusResolving, mustURL(t, p)); got != guard.RenderLoading {
				t.Errorf("%s: expected loading, got %s", p, got)
			}
		}
	}
	if len(nav.paths) != 0 {
		t.Errorf("expected no redirects while resolving, got %v", nav.paths)
	}
}

func TestEvaluate_UnauthenticatedProtectedRedirectsOnce(t *testing.T) {
	nav := &recorder{}
	g := guard.New(testConfig(), nav)
	loc := mustURL(t, "/dashboard/tasks?filter=open")

	for i := 0; i < 3; i++ {
		if got := g.Evaluate(session.StatusUnauthenticated, loc); got != guard.RenderNothing {
			t.Errorf("expected nothing, got %s", got)
		}
	}

	if len(nav.paths) != 1 {
		t.Fatalf("expected exactly one redirect, got %v", nav.paths)
	}
	want := "/login?redirect=" + url.QueryEscape("/dashboard/tasks?filter=open")
	if nav.paths[0] != want {
		t.Errorf("expected %q, got %q", want, nav.paths[0])
	}
}

func TestEvaluate_AuthenticatedProtectedRenders(t *testing.T) {
	nav := &recorder{}
	g := guard.New(testConfig(), nav)

	if got := g.Evaluate(session.StatusAuthenticated, mustURL(t, "/dashboard")); got != guard.RenderContent {
		t.Errorf("expected content, got %s", got)
	}
	if len(nav.paths) != 0 {
		t.Errorf("expected no redirect, got %v", nav.paths)
	}
}

func TestEvaluate_AuthOnly(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"no redirect param", "/login", "/dashboard"},
		{"redirect param", "/login?redirect=%2Fsettings%3Ftab%3D2", "/settings?tab=2"},
		{"absolute url rejected", "/login?redirect=https%3A%2F%2Fevil.example%2F", "/dashboard"},
		{"protocol relative rejected", "/login?redirect=%2F%2Fevil.example", "/dashboard"},
		{"relative rejected", "/login?redirect=settings", "/dashboard"},
		{"auth-only target rejected", "/register?redirect=%2Flogin", "/dashboard"},
		{"backslash host rejected", "/login?redirect=/%5Cevil.example", "/dashboard"},
		{"encoded backslash host rejected", "/login?redirect=%2F%5Cevil.example", "/dashboard"},
		{"double encoded backslash rejected", "/login?redirect=%2F%255Cevil.example", "/dashboard"},
		{"tab between slashes rejected", "/login?redirect=%2F%09%2Fevil.example", "/dashboard"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nav := &recorder{}
			g := guard.New(testConfig(), nav)

			if got := g.Evaluate(session.StatusAuthenticated, mustURL(t, tt.url)); got != guard.RenderNothing {
				t.Errorf("expected nothing, got %s", got)
			}
			if len(nav.paths) != 1 || nav.paths[0] != tt.want {
				t.Errorf("expected redirect to %q, got %v", tt.want, nav.paths)
			}
		})
	}
}

func TestReturnPath(t *testing.T) {
	g := guard.New(testConfig(), &recorder{})

	tests := []struct {
		raw  string
		want string
	}{
		{"", "/dashboard"},
		{"/settings", "/settings"},
		{"/settings?tab=2", "/settings?tab=2"},
		{"/a%20b", "/a%20b"},
		{"//evil.example", "/dashboard"},
		{"/\\evil.example", "/dashboard"},
		{"\\/evil.example", "/dashboard"},
		{"/%5Cevil.example", "/dashboard"},
		{"/%2Fevil.example", "/dashboard"},
		{"/\t/evil.example", "/dashboard"},
		{"/%0A/evil.example", "/dashboard"},
		{"https://evil.example/", "/dashboard"},
		{"javascript:alert(1)", "/dashboard"},
	}
	for _, tt := range tests {
		if got := g.ReturnPath(tt.raw); got != tt.want {
			t.Errorf("ReturnPath(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestEvaluate_UnauthenticatedAuthOnlyRenders(t *testing.T) {
	nav := &recorder{}
	g := guard.New(testConfig(), nav)
	if got := g.Evaluate(session.StatusUnauthenticated, mustURL(t, "/login")); got != guard.RenderContent {
		t.Errorf("expected content, got %s", got)
	}
	if len(nav.paths) != 0 {
		t.Errorf("expected no redirect, got %v", nav.paths)
	}
}

func TestEvaluate_PublicAlwaysRenders(t *testing.T) {
	nav := &recorder{}
	g := guard.New(testConfig(), nav)
	for _, st := range []session.Status{session.StatusResolving, session.StatusUnauthenticated, session.StatusAuthenticated} {
		if got := g.Evaluate(st, mustURL(t, "/about")); got != guard.RenderContent {
			t.Errorf("%s: expected content, got %s", st, got)
		}
	}
	if len(nav.paths) != 0 {
		t.Errorf("expected no redirect, got %v", nav.paths)
	}
}

func TestEvaluate_NewTransitionRedirectsAgain(t *testing.T) {
	nav := &recorder{}
	g := guard.New(testConfig(), nav)

	g.Evaluate(session.StatusUnauthenticated, mustURL(t, "/dashboard"))
	g.Evaluate(session.StatusAuthenticated, mustURL(t, "/login"))
	g.Evaluate(session.StatusUnauthenticated, mustURL(t, "/dashboard"))

	if len(nav.paths) != 3 {
		t.Errorf("expected a redirect per transition, got %v", nav.paths)
	}
}

func TestDefaults(t *testing.T) {
	nav := &recorder{}
	g := guard.New(guard.Config{Protected: []string{"/app"}}, nav)
	g.Evaluate(session.StatusUnauthenticated, mustURL(t, "/app"))
	if len(nav.paths) != 1 || nav.paths[0] != "/login?redirect=%2Fapp" {
		t.Errorf("unexpected redirect %v", nav.paths)
	}
	if g.Config().LandingPath != "/" {
		t.Errorf("expected default landing path, got %q", g.Config().LandingPath)
	}
}

func TestWatch_FollowsSessionStore(t *testing.T) {
	backend := testutil.NewFakeBackend()
	backend.AddUser(1, "a@example.com", "A", "pw")
	s := session.New(backend, storage.NewMemory())

	nav := &recorder{}
	g := guard.New(testConfig(), nav)
	loc := mustURL(t, "/dashboard")

	var renders []guard.Render
	stop := g.Watch(s, func() *url.URL { return loc }, func(r guard.Render) {
		renders = append(renders, r)
	})
	defer stop()

	s.Bootstrap(context.Background())
	loc = mustURL(t, "/login?redirect=%2Fdashboard")
	if err := s.SignIn(context.Background(), "a@example.com", "pw"); err != nil {
		t.Fatal(err)
	}

	want := []guard.Render{guard.RenderLoading, guard.RenderNothing, guard.RenderNothing}
	if len(renders) != len(want) {
		t.Fatalf("expected renders %v, got %v", want, renders)
	}
	for i := range want {
		if renders[i] != want[i] {
			t.Errorf("render %d: expected %s, got %s", i, want[i], renders[i])
		}
	}
	wantPaths := []string{"/login?redirect=%2Fdashboard", "/dashboard"}
	if len(nav.paths) != 2 || nav.paths[0] != wantPaths[0] || nav.paths[1] != wantPaths[1] {
		t.Errorf("expected %v, got %v", wantPaths, nav.paths)
	}
}
