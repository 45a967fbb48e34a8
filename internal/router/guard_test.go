package router

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shdrug/client/internal/session"
)

func userWithRole(role session.Role) *session.User {
	return &session.User{ID: 1, Username: string(role) + "1", Role: role}
}

func TestAnonymousRedirectsToLoginWithReturnPath(t *testing.T) {
	guard := NewGuard(nil, nil, nil)
	table := guard.Table()

	for _, target := range []string{"/b2b", "/tenants/4?tab=stock", "/medication-reminders", "/unauth"} {
		to := table.Resolve(target)
		d := guard.Decide(to, Location{}, nil)
		require.False(t, d.Allow, target)
		assert.Equal(t, ReasonLoginRequired, d.Reason)
		assert.Equal(t, "login", d.Redirect.Name)
		assert.Equal(t, "/login", d.Redirect.Path)
		assert.Equal(t, target, d.Redirect.Query.Get("redirect"))
	}

	d := guard.Decide(table.Resolve("/b2b"), Location{}, nil)
	assert.Equal(t, "/login?redirect=%2Fb2b", d.Redirect.FullPath())
}

func TestPublicRoutesAllowAnonymous(t *testing.T) {
	guard := NewGuard(nil, nil, nil)
	for _, target := range []string{"/", "/login", "/inventory", "/health-news", "/circulation"} {
		d := guard.Decide(guard.Table().Resolve(target), Location{}, nil)
		assert.True(t, d.Allow, target)
	}
}

func TestAdminLandingGoesToUserManagement(t *testing.T) {
	guard := NewGuard(nil, nil, nil)
	d := guard.Decide(guard.Table().Resolve("/"), Location{}, userWithRole(session.RoleAdmin))
	require.NotNil(t, d.Redirect)
	assert.Equal(t, "/admin/users", d.Redirect.Path)
	assert.Equal(t, ReasonAdminLanding, d.Reason)

	d = guard.Decide(guard.Table().Resolve("/admin/users"), Location{}, userWithRole(session.RoleAdmin))
	assert.True(t, d.Allow)
}

func TestUnauthRestrictedToAllowList(t *testing.T) {
	guard := NewGuard(nil, nil, nil)
	table := guard.Table()
	user := userWithRole(session.RoleUnauth)

	for _, target := range []string{"/orders", "/b2b", "/inventory", "/medication-reminders"} {
		d := guard.Decide(table.Resolve(target), Location{}, user)
		require.NotNil(t, d.Redirect, target)
		assert.Equal(t, "unauth", d.Redirect.Name, target)
		assert.Equal(t, "/unauth", d.Redirect.Path, target)
	}
	for _, target := range []string{"/", "/unauth", "/enterprise-auth"} {
		assert.True(t, guard.Decide(table.Resolve(target), Location{}, user).Allow, target)
	}
}

func TestRoleMismatchGoesHome(t *testing.T) {
	guard := NewGuard(nil, nil, nil)
	to := guard.Table().Resolve("/logistics-orders")

	d := guard.Decide(to, Location{}, userWithRole(session.RolePharmacy))
	require.NotNil(t, d.Redirect)
	assert.Equal(t, "home", d.Redirect.Name)
	assert.Equal(t, ReasonRoleMismatch, d.Reason)

	assert.True(t, guard.Decide(to, Location{}, userWithRole(session.RoleLogistics)).Allow)
}

func TestMergedComplianceRoute(t *testing.T) {
	guard := NewGuard(nil, nil, nil)
	table := guard.Table()
	to := table.Resolve("/compliance-report?start=2026-01-01")

	d := guard.Decide(to, table.Resolve("/"), nil)
	require.NotNil(t, d.Redirect)
	assert.Equal(t, ReasonMerged, d.Reason)
	assert.Equal(t, "/b2b", d.Redirect.Path)
	assert.Equal(t, url.Values{"section": {"compliance"}, "start": {"2026-01-01"}}, d.Redirect.Query)
	// The input query is left untouched.
	assert.Equal(t, url.Values{"start": {"2026-01-01"}}, to.Query)

	// From the host page the merge does not loop; the remaining rules apply.
	d = guard.Decide(to, table.Resolve("/b2b"), userWithRole(session.RoleRegulator))
	assert.True(t, d.Allow)
	d = guard.Decide(to, table.Resolve("/b2b"), userWithRole(session.RoleSupplier))
	assert.Equal(t, ReasonRoleMismatch, d.Reason)
}

func TestDecisionIsRecomputedFromSession(t *testing.T) {
	ctx := context.Background()
	store := session.NewStore(session.NewMemoryStorage(), nil)
	guard := NewGuard(nil, nil, nil)
	to := guard.Table().Resolve("/b2b")

	assert.Equal(t, ReasonLoginRequired, guard.Check(ctx, store, to, Location{}).Reason)
	require.NoError(t, store.SetAuth(ctx, "tok", *userWithRole(session.RoleSupplier)))
	assert.True(t, guard.Check(ctx, store, to, Location{}).Allow)
	require.NoError(t, store.ClearAuth(ctx))
	assert.False(t, guard.Check(ctx, store, to, Location{}).Allow)
}

func TestResolveExtractsParams(t *testing.T) {
	table := Default()
	loc := table.Resolve("/tenants/42?tab=stock")
	assert.Equal(t, "tenant-inventory", loc.Name)
	assert.Equal(t, map[string]string{"tenantId": "42"}, loc.Params)
	assert.Equal(t, "stock", loc.Query.Get("tab"))

	unknown := table.Resolve("/orders")
	assert.Empty(t, unknown.Name)
	assert.Equal(t, "/orders", unknown.Path)
}

func TestResolveRootPath(t *testing.T) {
	table := Default()
	for _, target := range []string{"/", "", "/?from=login"} {
		loc := table.Resolve(target)
		assert.Equal(t, "home", loc.Name, target)
		assert.Equal(t, "/", loc.Path, target)
	}
	assert.Equal(t, "admin-users", table.Resolve("/admin/users").Name)
}

func TestLoadRejectsBrokenTables(t *testing.T) {
	_, err := Load([]byte("landing: home\nroutes:\n  - name: home\n    path: /\n  - name: home\n    path: /again\n"))
	assert.Error(t, err)

	_, err = Load([]byte("landing: home\nlogin: home\nunauth_notice: home\nadmin_home: home\nroutes:\n  - name: home\n    path: /\n    requires_role: wizard\n"))
	assert.Error(t, err)

	_, err = Load([]byte("landing: missing\nroutes:\n  - name: home\n    path: /\n"))
	assert.Error(t, err)
}

func TestRoleHelpers(t *testing.T) {
	assert.Equal(t, "/unauth", HomeFor(session.RoleUnauth))
	assert.Equal(t, "/", HomeFor(session.RoleSupplier))
	assert.Equal(t, "Signed out", RoleLabel(""))
	assert.Equal(t, "Unknown role", RoleLabel("wizard"))
	assert.Equal(t, "Regulator", RoleLabel(session.RoleRegulator))
	assert.True(t, IsApprovedRole(session.RolePharmacy))
	assert.False(t, IsApprovedRole(session.RoleUnauth))
	assert.False(t, IsApprovedRole(""))
}

func TestHistoryNavigate(t *testing.T) {
	h := NewHistory(nil)
	assert.Equal(t, "home", h.Current().Name)
	h.Navigate("/login")
	assert.Equal(t, "login", h.Current().Name)
	for i := 0; i < historyLimit+10; i++ {
		h.Navigate("/inventory")
	}
	assert.Len(t, h.Entries(), historyLimit)
}
