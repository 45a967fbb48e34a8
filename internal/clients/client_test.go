package clients

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shdrug/client/internal/session"
)

type recordingNavigator struct {
	mu      sync.Mutex
	targets []string
}

func (n *recordingNavigator) Navigate(target string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.targets = append(n.targets, target)
}

func (n *recordingNavigator) Targets() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.targets...)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *session.Store, *recordingNavigator) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	store := session.NewStore(session.NewMemoryStorage(), nil)
	nav := &recordingNavigator{}
	client, err := New(Options{BaseURL: srv.URL + "/", Session: store, Navigator: nav})
	require.NoError(t, err)
	return client, store, nav
}

func signIn(t *testing.T, store *session.Store) {
	t.Helper()
	user := session.User{ID: 7, Username: "pharmacy1", Role: session.RolePharmacy, IsAuthenticated: true}
	require.NoError(t, store.SetAuth(context.Background(), "tok-7", user))
}

func TestNewRequiresBaseURL(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

func TestBearerTokenAndRequestID(t *testing.T) {
	var auth, requestID string
	client, store, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		requestID = r.Header.Get(RequestIDHeader)
		_, _ = io.WriteString(w, `{"ok":true}`)
	})
	ctx := context.Background()

	_, err := client.Home.Stats(ctx)
	require.NoError(t, err)
	assert.Empty(t, auth)
	assert.NotEmpty(t, requestID)

	signIn(t, store)
	raw, err := client.Home.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-7", auth)
	assert.JSONEq(t, `{"ok":true}`, string(raw))
}

func TestQueryOmitsEmptyValues(t *testing.T) {
	var query map[string][]string
	client, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		_, _ = io.WriteString(w, `{}`)
	})

	_, err := client.Admin.ListUsers(context.Background(), UserFilter{Keyword: "", Role: "supplier", Page: 2})
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{
		"role":     {"supplier"},
		"page":     {"2"},
		"per_page": {"10"},
	}, query)
}

func TestParamsEncode(t *testing.T) {
	var missing *int64
	id := int64(5)
	active := false
	encoded := Params{
		"nil":     nil,
		"empty":   "",
		"missing": missing,
		"id":      &id,
		"active":  &active,
		"role":    session.RolePharmacy,
		"none":    session.Role(""),
		"q":       "a b&c",
	}.Encode()
	assert.Equal(t, "active=false&id=5&q=a+b%26c&role=pharmacy", encoded)
	assert.Empty(t, Params(nil).Encode())
}

func TestParamsEncodeRepeatsListValues(t *testing.T) {
	encoded := Params{
		"status": []string{"pending", "", "approved"},
		"ids":    []int64{3, 4},
		"roles":  []session.Role{session.RoleSupplier},
		"none":   []string{},
		"raw":    []byte("abc"),
	}.Encode()
	assert.Equal(t, "ids=3&ids=4&raw=abc&roles=supplier&status=pending&status=approved", encoded)
}

func TestForbiddenUsesBackendMessage(t *testing.T) {
	client, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `{"msg":"forbidden"}`)
	})

	_, err := client.Orders.Stats(context.Background())
	require.Error(t, err)
	var reqErr *RequestError
	require.True(t, errors.As(err, &reqErr))
	assert.Equal(t, "forbidden", reqErr.Message)
	assert.Equal(t, http.StatusForbidden, reqErr.Status)
	assert.Equal(t, "forbidden", err.Error())
}

func TestServerErrorWithoutBodyUsesStatusText(t *testing.T) {
	client, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.Inventory.WarningSummary(context.Background())
	require.Error(t, err)
	assert.Equal(t, "Internal Server Error", err.Error())
	assert.Equal(t, http.StatusInternalServerError, StatusOf(err))
}

func TestMessageFallbacks(t *testing.T) {
	assert.Equal(t, "bad input", messageFromJSON(400, []byte(`{"message":"bad input"}`)))
	assert.Equal(t, "boom", messageFromJSON(400, []byte(`{"error":"boom"}`)))
	assert.Equal(t, "Bad Request", messageFromJSON(400, []byte(`{"error":{"code":1}}`)))
	assert.Equal(t, fallbackMessage, messageFromJSON(599, nil))
	assert.Equal(t, "disk full", messageFromText(500, []byte("disk full\n")))
	assert.Equal(t, "no report", messageFromText(404, []byte(`{"msg":"no report"}`)))
	assert.Equal(t, "Not Found", messageFromText(404, nil))
}

func TestUnauthorizedClearsSessionAndRedirects(t *testing.T) {
	client, store, nav := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"msg":"Token has expired"}`)
	})
	signIn(t, store)
	ctx := context.Background()

	_, err := client.Orders.Stats(ctx)
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
	assert.Equal(t, "Token has expired", err.Error())
	assert.False(t, store.IsAuthenticated(ctx))
	assert.Equal(t, []string{LoginPath}, nav.Targets())

	// The same policy applies to every domain API.
	signIn(t, store)
	_, err = client.Reminders.Today(ctx)
	require.Error(t, err)
	assert.False(t, store.IsAuthenticated(ctx))
	assert.Len(t, nav.Targets(), 2)
}

func TestCustomUnauthorizedPolicy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	calls := 0
	client, err := New(Options{BaseURL: srv.URL, OnUnauthorized: func(context.Context) { calls++ }})
	require.NoError(t, err)
	_, err = client.Auth.Me(context.Background())
	assert.True(t, IsUnauthorized(err))
	assert.Equal(t, 1, calls)
}

func TestLoginDecodesSession(t *testing.T) {
	var body map[string]string
	client, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/auth/login", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_ = json.NewDecoder(r.Body).Decode(&body)
		_, _ = io.WriteString(w, `{"access_token":"jwt","refresh_token":"rt","user":{"id":3,"username":"sup","role":"supplier","is_authenticated":true,"tenant_id":9}}`)
	})

	resp, err := client.Auth.Login(context.Background(), "sup", "secret")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"username": "sup", "password": "secret"}, body)
	assert.Equal(t, "jwt", resp.AccessToken)
	assert.Equal(t, "rt", resp.RefreshToken)
	assert.Equal(t, session.RoleSupplier, resp.User.Role)
	require.NotNil(t, resp.User.TenantID)
	assert.Equal(t, int64(9), *resp.User.TenantID)
}

func TestRefreshSendsRefreshToken(t *testing.T) {
	var auth string
	client, store, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_, _ = io.WriteString(w, `{"access_token":"new"}`)
	})
	signIn(t, store)

	resp, err := client.Auth.Refresh(context.Background(), "refresh-1")
	require.NoError(t, err)
	assert.Equal(t, "Bearer refresh-1", auth)
	assert.Equal(t, "new", resp.AccessToken)
}

func TestTodayRemindersSnapshot(t *testing.T) {
	client, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/home/today-reminders", r.URL.Path)
		_, _ = io.WriteString(w, `{"success":true,"date":"2026-10-18","items":[
			{"id":1,"drug_name":"Amoxicillin","dosage":"2 caps","remind_time":"08:00","notes":null},
			{"id":1,"drug_name":"Amoxicillin","dosage":"2 caps","remind_time":"20:00","notes":"after meals"}],"total":2}`)
	})

	snap, err := client.Home.TodayReminders(context.Background())
	require.NoError(t, err)
	assert.True(t, snap.Success)
	require.Len(t, snap.Items, 2)
	assert.Equal(t, "08:00", snap.Items[0].RemindTime)
	assert.Empty(t, snap.Items[0].Notes)
	assert.Equal(t, "after meals", snap.Items[1].Notes)
}

func TestOrdersListEnvelope(t *testing.T) {
	client, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"msg":"ok","data":{"items":[{"id":1},{"id":2}],"pagination":{"page":1,"per_page":10,"total":2,"pages":1,"has_next":false,"has_prev":false}}}`)
	})

	page, err := client.Orders.List(context.Background(), OrderFilter{})
	require.NoError(t, err)
	assert.Nil(t, page.Success)
	assert.Len(t, page.Data.Items, 2)
	assert.Equal(t, 2, page.Data.Pagination.Total)
}

func TestUpdateStatusUsesPatch(t *testing.T) {
	var method, path string
	client, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		_, _ = io.WriteString(w, `{}`)
	})

	_, err := client.Orders.UpdateStatus(context.Background(), 42, "SHIPPED")
	require.NoError(t, err)
	assert.Equal(t, http.MethodPatch, method)
	assert.Equal(t, "/api/orders/status/42", path)
}
