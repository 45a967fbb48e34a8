package router

import (
	"context"
	"io"
	"log/slog"
	"net/url"

	"shdrug/client/internal/metrics"
	"shdrug/client/internal/session"
)

// Reasons a navigation was redirected.
const (
	ReasonAdminLanding  = "admin_landing"
	ReasonMerged        = "merged_route"
	ReasonLoginRequired = "login_required"
	ReasonRoleMismatch  = "role_mismatch"
	ReasonUnverified    = "unverified"
)

type Decision struct {
	Allow    bool
	Redirect *Location
	Reason   string
}

func allow() Decision {
	return Decision{Allow: true}
}

func redirect(to Location, reason string) Decision {
	return Decision{Redirect: &to, Reason: reason}
}

// Target is where the navigation ends up.
func (d Decision) Target(to Location) Location {
	if d.Redirect != nil {
		return *d.Redirect
	}
	return to
}

type Guard struct {
	table   *Table
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewGuard(table *Table, logger *slog.Logger, m *metrics.Metrics) *Guard {
	if table == nil {
		table = Default()
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Guard{table: table, logger: logger, metrics: m}
}

func (g *Guard) Table() *Table {
	return g.table
}

// Decide runs before every navigation. It holds no state: the same inputs
// always give the same decision.
func (g *Guard) Decide(to, from Location, user *session.User) Decision {
	d := g.decide(to, from, user)
	outcome := "allow"
	if !d.Allow {
		outcome = d.Reason
		g.logger.Debug("navigation redirected", "to", to.FullPath(), "target", d.Redirect.FullPath(), "reason", d.Reason)
	}
	g.metrics.GuardDecision(outcome)
	return d
}

// Check reads the current session and decides.
func (g *Guard) Check(ctx context.Context, sessions session.Provider, to, from Location) Decision {
	var user *session.User
	if sessions != nil && sessions.Token(ctx) != "" {
		user = sessions.CurrentUser(ctx)
	}
	return g.Decide(to, from, user)
}

func (g *Guard) decide(to, from Location, user *session.User) Decision {
	route, known := g.table.Route(to.Name)

	if user != nil && user.Role == session.RoleAdmin && to.Name == g.table.Landing {
		return redirect(g.table.Named(g.table.AdminHome, nil), ReasonAdminLanding)
	}

	if known && route.MergedInto != nil && from.Name != route.MergedInto.Route {
		query := url.Values{}
		for key, values := range to.Query {
			query[key] = append([]string(nil), values...)
		}
		for key, value := range route.MergedInto.Query {
			query.Set(key, value)
		}
		return redirect(g.table.Named(route.MergedInto.Route, query), ReasonMerged)
	}

	if known && route.RequiresAuth && user == nil {
		query := url.Values{"redirect": {to.FullPath()}}
		return redirect(g.table.Named(g.table.Login, query), ReasonLoginRequired)
	}

	if known && route.RequiresRole != "" && (user == nil || user.Role != route.RequiresRole) {
		return redirect(g.table.Named(g.table.Landing, nil), ReasonRoleMismatch)
	}

	// requires_verified routes are covered here: the allow-list never
	// includes them.
	if user != nil && user.Role == session.RoleUnauth && !g.table.UnverifiedAllowed(to.Name) {
		return redirect(g.table.Named(g.table.UnauthNotice, nil), ReasonUnverified)
	}

	return allow()
}
