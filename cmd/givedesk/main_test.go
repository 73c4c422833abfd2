package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Veraticus/givedesk/internal/common"
	"github.com/Veraticus/givedesk/internal/entity"
	"github.com/Veraticus/givedesk/internal/export"
	"github.com/Veraticus/givedesk/internal/model"
	"github.com/Veraticus/givedesk/internal/storage"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func donations(n int) []any {
	items := make([]any, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, map[string]any{
			"_id":       fmt.Sprintf("d%02d", i),
			"name":      fmt.Sprintf("Donor %02d", i),
			"cause":     []string{"Water", "Food"}[i%2],
			"amount":    float64(i + 1),
			"createdAt": now.AddDate(0, 0, -i).Format(time.RFC3339),
		})
	}
	return items
}

// backend is a fake donation platform API.
type backend struct {
	mu       sync.Mutex
	requests []string
	auth     []string
	items    []any
	docs     map[string]map[string]any
	updates  []map[string]any
	token    string
}

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.requests = append(b.requests, r.Method+" "+r.URL.Path)
	b.auth = append(b.auth, r.Header.Get("Authorization"))
	b.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/auth/signin":
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "token": b.token})
	case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/all"):
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": b.items})
	case r.Method == http.MethodDelete:
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true})
	case r.Method == http.MethodGet && b.doc(r.URL.Path) != nil:
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": b.doc(r.URL.Path)})
	case r.Method == http.MethodPut && b.doc(r.URL.Path) != nil:
		var fields map[string]any
		if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": b.update(r.URL.Path, fields)})
	default:
		http.NotFound(w, r)
	}
}

// doc returns a copy of the document served at path.
func (b *backend) doc(path string) map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, ok := b.docs[path]
	if !ok {
		return nil
	}
	out := make(map[string]any, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

func (b *backend) update(path string, fields map[string]any) map[string]any {
	b.mu.Lock()
	b.updates = append(b.updates, fields)
	for k, v := range fields {
		b.docs[path][k] = v
	}
	b.mu.Unlock()
	return b.doc(path)
}

func (b *backend) seen(req string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, r := range b.requests {
		if r == req {
			return true
		}
	}
	return false
}

func (b *backend) authorized(header string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, h := range b.auth {
		if h == header {
			return true
		}
	}
	return false
}

// setViper sets a global viper key for the duration of the test.
func setViper(t *testing.T, key string, value any) {
	t.Helper()
	prev := viper.Get(key)
	viper.Set(key, value)
	t.Cleanup(func() { viper.Set(key, prev) })
}

// setupApp points the commands at a fake backend, a temp database and a temp
// export directory.
func setupApp(t *testing.T, b *backend, apiToken string) string {
	t.Helper()

	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)

	exportDir := filepath.Join(t.TempDir(), "exports")
	setViper(t, "api.base_url", srv.URL)
	setViper(t, "database.path", filepath.Join(t.TempDir(), "givedesk.db"))
	setViper(t, "export.dir", exportDir)
	setViper(t, "export.sink", "file")
	t.Setenv("GIVEDESK_API_TOKEN", apiToken)
	t.Setenv("GIVEDESK_STRIPE_PUBLISHABLE_KEY", "")

	return exportDir
}

func execute(t *testing.T, cmd *cobra.Command, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func signToken(t *testing.T, role string, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":       "u1",
		"username": "sara",
		"email":    "sara@example.com",
		"role":     role,
		"exp":      exp.Unix(),
	})
	signed, err := tok.SignedString([]byte("backend-secret"))
	require.NoError(t, err)
	return signed
}

func TestListCommand(t *testing.T) {
	b := &backend{items: donations(7)}
	setupApp(t, b, "test-token")

	out, err := execute(t, listEntityCmd(entity.Donations()), "", "--cause", "Water")
	require.NoError(t, err)

	assert.Contains(t, out, "Donor 00")
	assert.Contains(t, out, "Donor 06")
	assert.NotContains(t, out, "Donor 01")
	assert.Contains(t, out, "Page 1 of 1 · 4 matching · 7 total")
	assert.True(t, b.seen("GET /donations/all"))
	assert.True(t, b.authorized("Bearer test-token"))
}

func TestListCommandPaging(t *testing.T) {
	b := &backend{items: donations(7)}
	setupApp(t, b, "test-token")

	out, err := execute(t, listEntityCmd(entity.Donations()), "", "--page", "2", "--page-size", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "Page 2 of 3 · 7 matching · 7 total")
	assert.Contains(t, out, "Donor 03")
	assert.NotContains(t, out, "Donor 02")
}

func TestListCommandRejectsUnknownRange(t *testing.T) {
	b := &backend{items: donations(3)}
	setupApp(t, b, "test-token")

	_, err := execute(t, listEntityCmd(entity.Donations()), "", "--range", "yesterday")
	require.Error(t, err)

	var validation *common.ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "range", validation.Field)
	assert.False(t, b.seen("GET /donations/all"))
}

func TestListCommandRequiresSignIn(t *testing.T) {
	b := &backend{items: donations(3)}
	setupApp(t, b, "")

	_, err := execute(t, listEntityCmd(entity.Donations()), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrNotAuthenticated)
	assert.Contains(t, errorText(err), "givedesk login")
	assert.False(t, b.seen("GET /donations/all"))
}

func TestLoginThenWhoami(t *testing.T) {
	b := &backend{token: signToken(t, "admin", time.Now().Add(24*time.Hour)), items: donations(2)}
	setupApp(t, b, "")

	out, err := execute(t, whoamiCmd(), "")
	require.NoError(t, err)
	assert.Contains(t, out, "Not signed in")

	out, err = execute(t, loginCmd(), "", "--email", "sara@example.com", "--password", "secret")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as sara")
	assert.NotContains(t, out, "not an admin")

	out, err = execute(t, whoamiCmd(), "")
	require.NoError(t, err)
	assert.Contains(t, out, "User:    sara")
	assert.Contains(t, out, "Role:    admin")

	// A signed-in admin can list without the token override.
	out, err = execute(t, listEntityCmd(entity.Donations()), "")
	require.NoError(t, err)
	assert.Contains(t, out, "Donor 01")
	assert.True(t, b.authorized("Bearer "+b.token))

	out, err = execute(t, logoutCmd(), "")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed out")

	out, err = execute(t, whoamiCmd(), "")
	require.NoError(t, err)
	assert.Contains(t, out, "Not signed in")
}

func TestLoginPromptsForCredentials(t *testing.T) {
	b := &backend{token: signToken(t, "user", time.Now().Add(24*time.Hour))}
	setupApp(t, b, "")

	out, err := execute(t, loginCmd(), "sara\nsecret\n")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as sara")
	assert.Contains(t, out, "not an admin")

	_, err = execute(t, listEntityCmd(entity.Donations()), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestLoginRequiresPassword(t *testing.T) {
	b := &backend{}
	setupApp(t, b, "")

	_, err := execute(t, loginCmd(), "\n", "--email", "sara")
	var validation *common.ValidationError
	require.ErrorAs(t, err, &validation)
	assert.False(t, b.seen("POST /auth/signin"))
}

func TestExportCommandWritesFileAndHistory(t *testing.T) {
	b := &backend{items: donations(6)}
	exportDir := setupApp(t, b, "test-token")

	out, err := execute(t, exportEntityCmd(entity.Donations()), "", "--cause", "Food")
	require.NoError(t, err)
	assert.Contains(t, out, "Exported 3 rows to")

	data, err := os.ReadFile(filepath.Join(exportDir, "donations_food.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 4)
	assert.Contains(t, string(data), "Donor 01")
	assert.NotContains(t, string(data), "Donor 00")

	out, err = execute(t, exportsCmd(), "")
	require.NoError(t, err)
	assert.Contains(t, out, "donations")
	assert.Contains(t, out, "cause=Food")
	assert.Contains(t, out, "file")
}

func TestExportCommandNothingToExport(t *testing.T) {
	b := &backend{items: donations(3)}
	exportDir := setupApp(t, b, "test-token")

	out, err := execute(t, exportEntityCmd(entity.Donations()), "", "--search", "nobody")
	require.NoError(t, err)
	assert.Contains(t, out, "Nothing to export")
	assert.NoDirExists(t, exportDir)

	out, err = execute(t, exportsCmd(), "")
	require.NoError(t, err)
	assert.Contains(t, out, "No exports yet")
}

func TestExportCommandRejectsUnknownSink(t *testing.T) {
	b := &backend{items: donations(3)}
	setupApp(t, b, "test-token")

	_, err := execute(t, exportEntityCmd(entity.Donations()), "", "--sink", "ftp")
	require.Error(t, err)
	assert.False(t, b.seen("GET /donations/all"))
}

func TestDeleteAsksForConfirmation(t *testing.T) {
	b := &backend{}
	setupApp(t, b, "test-token")

	out, err := execute(t, deleteCmd("users", "user"), "n\n", "u1")
	require.NoError(t, err)
	assert.Contains(t, out, "Canceled")
	assert.False(t, b.seen("DELETE /users/u1"))

	out, err = execute(t, deleteCmd("users", "user"), "y\n", "u1")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted user u1")
	assert.True(t, b.seen("DELETE /users/u1"))
}

func TestDeleteWithYesSkipsPrompt(t *testing.T) {
	b := &backend{}
	setupApp(t, b, "test-token")

	out, err := execute(t, deleteCmd("articles", "article"), "", "a7", "--yes")
	require.NoError(t, err)
	assert.NotContains(t, out, "[y/N]")
	assert.True(t, b.seen("DELETE /articles/a7"))
}

func TestSetRoleRejectsUnknownRole(t *testing.T) {
	b := &backend{}
	setupApp(t, b, "test-token")

	_, err := execute(t, userSetRoleCmd(), "", "u1", "superuser")
	var validation *common.ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "role", validation.Field)
	assert.False(t, b.seen("PUT /users/u1/role"))
}

func TestShowCommand(t *testing.T) {
	b := &backend{docs: map[string]map[string]any{
		"/campaigns/byid/c1": {"_id": "c1", "title": "Winter Relief", "cause": "Shelter", "targetAmount": 1000.0, "totalRaised": 250.0},
	}}
	setupApp(t, b, "test-token")

	out, err := execute(t, showEntityCmd(entity.Campaigns()), "", "c1")
	require.NoError(t, err)
	assert.Contains(t, out, "campaigns c1")
	assert.Contains(t, out, "Winter Relief")
	assert.Contains(t, out, "Progress:")
	assert.Contains(t, out, "25%")
	assert.True(t, b.seen("GET /campaigns/byid/c1"))

	_, err = execute(t, showEntityCmd(entity.Campaigns()), "", "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestShowCommandRequiresSignIn(t *testing.T) {
	b := &backend{docs: map[string]map[string]any{"/users/u1": {"_id": "u1", "username": "omar"}}}
	setupApp(t, b, "")

	_, err := execute(t, showEntityCmd(entity.Users()), "", "u1")
	assert.ErrorIs(t, err, common.ErrNotAuthenticated)
	assert.False(t, b.seen("GET /users/u1"))
}

func TestEditCommand(t *testing.T) {
	b := &backend{docs: map[string]map[string]any{
		"/articles/a1": {"_id": "a1", "title": "Wells in Gaza", "status": "draft"},
	}}
	setupApp(t, b, "test-token")

	out, err := execute(t, editEntityCmd(entity.Articles()), "", "a1",
		"--set", "status=published", "--set", "title=Wells = water", "--set", "featured=true", "--set", "views=12")
	require.NoError(t, err)
	assert.Contains(t, out, "Updated 4 field(s) on a1")
	assert.Contains(t, out, "Wells = water")
	assert.True(t, b.seen("PUT /articles/a1"))

	b.mu.Lock()
	defer b.mu.Unlock()
	require.Len(t, b.updates, 1)
	assert.Equal(t, map[string]any{
		"status":   "published",
		"title":    "Wells = water",
		"featured": true,
		"views":    12.0,
	}, b.updates[0])
}

func TestEditCommandRejectsBadAssignments(t *testing.T) {
	b := &backend{docs: map[string]map[string]any{"/users/u1": {"_id": "u1"}}}
	setupApp(t, b, "test-token")

	for _, args := range [][]string{
		{"u1"},
		{"u1", "--set", "role"},
		{"u1", "--set", "=admin"},
		{"u1", "--set", "_id=u2"},
	} {
		_, err := execute(t, editEntityCmd(entity.Users()), "", args...)
		var validation *common.ValidationError
		require.ErrorAs(t, err, &validation, "args %v", args)
		assert.Equal(t, "set", validation.Field)
	}
	assert.False(t, b.seen("PUT /users/u1"))
}

func TestParseAssignments(t *testing.T) {
	fields, err := parseAssignments([]string{"targetAmount=5000", "status=active", "note=", "endDate=null"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"targetAmount": 5000.0,
		"status":       "active",
		"note":         "",
		"endDate":      nil,
	}, fields)
}

func TestDonateComplete(t *testing.T) {
	out, err := execute(t, donateCompleteCmd(), "", "https://give.example/donate?token=EC-9&PayerID=P1")
	require.NoError(t, err)
	assert.Contains(t, out, "Thank you!")
	assert.Contains(t, out, "EC-9")
	assert.Contains(t, out, "paypal")

	_, err = execute(t, donateCompleteCmd(), "", "https://give.example/donate?canceled=1")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.Equal(t, "That URL does not carry a PayPal approval.", errorText(err))
}

func TestFilterFlagsState(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	flags := addFilterFlags(cmd, []model.FilterKey{model.FilterSearch, model.FilterCause, model.FilterDateRange}, true)

	require.NoError(t, cmd.ParseFlags([]string{"--search", "  ann ", "--range", "30days", "--page", "2"}))
	state, err := flags.state()
	require.NoError(t, err)
	assert.Equal(t, "ann", state.Get(model.FilterSearch))
	assert.Equal(t, "30days", state.Get(model.FilterDateRange))
	assert.Empty(t, state.Get(model.FilterCause))
	assert.Equal(t, 2, flags.page)
	assert.Nil(t, cmd.Flags().Lookup("dateRange"))
	assert.NotNil(t, cmd.Flags().Lookup("range"))
}

func TestRenderListEmptyMessages(t *testing.T) {
	desc := entity.Donations()

	out := renderList(desc, nil, model.FilterState{}, 1, 5, now)
	assert.Contains(t, out, "No donations yet")

	state := model.FilterState{}.With(model.FilterCause, "Shelter")
	out = renderList(desc, donations(4), state, 1, 5, now)
	assert.Contains(t, out, "No donations match these filters")
}

func TestRenderListClampsPage(t *testing.T) {
	out := renderList(entity.Donations(), donations(4), model.FilterState{}, 9, 3, now)
	assert.Contains(t, out, "Page 2 of 2")
	assert.Contains(t, out, "Donor 03")
}

func TestExportItems(t *testing.T) {
	dir := t.TempDir()
	exp := export.New(export.FileSink{Dir: dir})
	state := model.FilterState{}.With(model.FilterDateRange, "7days")

	res, err := exportItems(context.Background(), entity.Donations(), donations(10), state, exp, now)
	require.NoError(t, err)
	assert.False(t, res.Skipped)
	assert.Equal(t, 8, res.Rows)
	assert.FileExists(t, res.Location)
}

func TestErrorText(t *testing.T) {
	plain := fmt.Errorf("failed to read config: %w", errors.New("bad yaml"))
	assert.Equal(t, "failed to read config: bad yaml", errorText(plain))

	friendly := common.NewUserError("Not signed in. Run 'givedesk login' first.", common.ErrNotAuthenticated)
	assert.Equal(t, "Not signed in. Run 'givedesk login' first.", errorText(fmt.Errorf("list: %w", friendly)))
}

func TestDescribeFilters(t *testing.T) {
	assert.Equal(t, "-", describeFilters(model.FilterState{}))

	state := model.FilterState{}.
		With(model.FilterCause, "Water").
		With(model.FilterSearch, "ann")
	got := describeFilters(state)
	assert.Contains(t, got, "cause=Water")
	assert.Contains(t, got, "search=ann")
}

func TestRenderExports(t *testing.T) {
	assert.Contains(t, renderExports(nil), "No exports yet")

	out := renderExports([]storage.ExportRecord{{
		Entity:    "campaigns",
		Sink:      "s3",
		Location:  "s3://bucket/exports/campaigns.csv",
		Rows:      12,
		Filters:   model.FilterState{}.With(model.FilterStatus, "active"),
		CreatedAt: now,
	}})
	assert.Contains(t, out, "campaigns")
	assert.Contains(t, out, "12")
	assert.Contains(t, out, "status=active")
	assert.Contains(t, out, "s3://bucket/exports/campaigns.csv")
}

func TestChange(t *testing.T) {
	assert.Contains(t, change(12.5), "▲ 12.5%")
	assert.Contains(t, change(-3), "▼ 3.0%")
	assert.Contains(t, change(0), "0.0%")
}

func TestBrowseTimeout(t *testing.T) {
	assert.Equal(t, 2*time.Minute, browseTimeout(0))
	assert.Equal(t, 30*time.Second, browseTimeout(time.Second))
	assert.Equal(t, 5*time.Minute, browseTimeout(30*time.Second))
}
