package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meur/gearforge/internal/api"
	"github.com/meur/gearforge/internal/client"
	"github.com/meur/gearforge/internal/config"
	"github.com/meur/gearforge/internal/gear"
	"github.com/meur/gearforge/internal/models"
	"github.com/meur/gearforge/internal/optimizer"
	"github.com/meur/gearforge/internal/storage"
)

// counter records every request the backend receives
type counter struct {
	mu    sync.Mutex
	paths []string
}

func (c *counter) wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.mu.Lock()
		c.paths = append(c.paths, r.URL.Path)
		c.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (c *counter) total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.paths)
}

func (c *counter) count(path string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, p := range c.paths {
		if p == path {
			n++
		}
	}
	return n
}

type fixture struct {
	web     *Server
	client  *client.Client
	calls   *counter
	session *http.Cookie
}

func setup(t *testing.T) *fixture {
	t.Helper()
	store, err := storage.New(filepath.Join(t.TempDir(), "web.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	manager := gear.NewManager(store, optimizer.New(config.OptimizerConfig{Workers: 2}), nil)
	calls := &counter{}
	backend := httptest.NewServer(calls.wrap(api.New(manager, nil, nil)))
	t.Cleanup(backend.Close)

	c := client.New(backend.URL, 5*time.Second)
	s, err := New(c, config.DefaultConfig(), nil)
	require.NoError(t, err)
	return &fixture{web: s, client: c, calls: calls}
}

func (f *fixture) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	return f.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (f *fixture) post(t *testing.T, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return f.do(req)
}

// do sends req as the fixture's browser, keeping the session cookie
func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	if f.session != nil {
		req.AddCookie(f.session)
	}
	rec := httptest.NewRecorder()
	f.web.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookie {
			f.session = c
		}
	}
	return rec
}

func (f *fixture) current() *currentBuild {
	if f.session == nil {
		return nil
	}
	return f.web.state.get(f.session.Value)
}

func (f *fixture) addFullSet(t *testing.T, class, tag, random string) {
	t.Helper()
	for _, slot := range models.EquipmentTypes() {
		rec := f.post(t, "/equipment", url.Values{
			"guardian_class": {class}, "equipment_type": {slot}, "tag": {tag}, "random_stat": {random},
		})
		require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	}
}

func TestGroupBySlot(t *testing.T) {
	items := []models.EquipmentView{
		{ID: "a", Type: "護腿"},
		{ID: "b", Type: "頭盔"},
		{ID: "c", Type: "未知"},
		{ID: "d", Type: "頭盔"},
	}

	groups := groupBySlot("泰坦", items)
	require.Len(t, groups, 3)

	assert.Equal(t, "頭盔", groups[0].Type)
	assert.True(t, groups[0].Open)
	assert.Len(t, groups[0].Items, 2)

	assert.Equal(t, "護腿", groups[1].Type)
	assert.False(t, groups[1].Open)

	assert.Equal(t, otherSlotGroup, groups[2].Type)
	assert.False(t, groups[2].Open)

	assert.NotEqual(t, groups[0].Items[0].Confirm.ID, groups[0].Items[1].Confirm.ID)
	assert.Equal(t, "b", groups[0].Items[0].Confirm.Fields["equipment_id"])

	assert.Empty(t, groupBySlot("泰坦", nil))
}

func TestDashboardCachesReference(t *testing.T) {
	f := setup(t)

	rec := f.get(t, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `<option value="泰坦">泰坦</option>`)
	assert.Contains(t, body, `name="target_超能"`)
	assert.Contains(t, body, `name="exotic_近戰"`)
	assert.Contains(t, body, `class="loading"`)
	assert.Equal(t, 4, f.calls.total())

	rec = f.get(t, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 4, f.calls.total())
}

func TestConfigureRejectsEmptyTargetsWithoutCall(t *testing.T) {
	f := setup(t)
	f.get(t, "/")
	before := f.calls.total()

	rec := f.post(t, "/build/configure", url.Values{
		"guardian_class": {"術士"},
		"target_超能":      {""},
		"target_近戰":      {"0"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "請至少設置一個目標屬性")
	assert.Equal(t, before, f.calls.total())
	assert.Equal(t, 0, f.calls.count("/api/build/configure"))
}

func TestAddEquipmentValidation(t *testing.T) {
	f := setup(t)

	rec := f.post(t, "/equipment", url.Values{"guardian_class": {"泰坦"}, "equipment_type": {"頭盔"}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "請選擇裝備標籤")
	assert.Equal(t, 0, f.calls.count("/api/equipment/add"))

	rec = f.post(t, "/equipment", url.Values{
		"guardian_class": {"泰坦"}, "equipment_type": {"頭盔"}, "tag": {"堡壘"}, "random_stat": {"健康"},
	})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), `class="notification error"`)
	assert.Equal(t, 1, f.calls.count("/api/equipment/add"))
}

func TestInventoryGroups(t *testing.T) {
	f := setup(t)
	for _, slot := range []string{"護腿", "頭盔"} {
		rec := f.post(t, "/equipment", url.Values{
			"guardian_class": {"泰坦"}, "equipment_type": {slot}, "tag": {"堡壘"}, "random_stat": {"武器"},
		})
		require.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Contains(t, rec.Header().Get("Location"), "/inventory?")
	}

	rec := f.get(t, "/inventory?guardian_class="+url.QueryEscape("泰坦"))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Equal(t, 1, strings.Count(body, `<details class="slot-group" open>`))
	assert.Equal(t, 1, strings.Count(body, `<details class="slot-group">`))
	assert.Less(t, strings.Index(body, "<summary>頭盔"), strings.Index(body, "<summary>護腿"))

	rec = f.get(t, "/inventory")
	require.Equal(t, http.StatusOK, rec.Code)
	body = rec.Body.String()
	for _, c := range models.AllClasses() {
		assert.Contains(t, body, "<h3>"+string(c))
	}
	assert.Equal(t, 2, strings.Count(body, "倉庫中沒有裝備"))
}

func TestInventoryDeleteNeedsConfirmedPost(t *testing.T) {
	f := setup(t)
	rec := f.post(t, "/equipment", url.Values{
		"guardian_class": {"獵人"}, "equipment_type": {"臂鎧"}, "tag": {"槍手"}, "random_stat": {"近戰"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)

	rec = f.get(t, "/inventory?guardian_class="+url.QueryEscape("獵人"))
	body := rec.Body.String()
	assert.Contains(t, body, `class="button confirm-cancel" href="#"`)
	assert.Contains(t, body, `class="confirm-backdrop" href="#"`)
	assert.Equal(t, 0, f.calls.count("/api/equipment/delete"))

	rec = f.post(t, "/inventory/delete", url.Values{
		"guardian_class": {"獵人"}, "equipment_id": {"獵人_臂鎧_001"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, 1, f.calls.count("/api/equipment/delete"))

	items, err := f.client.ListEquipment(context.Background(), "獵人")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestConfigureSaveAndDeleteFlow(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.addFullSet(t, "術士", "至高典範", "武器")

	rec := f.post(t, "/build/configure", url.Values{
		"guardian_class": {"術士"},
		"target_超能":      {"150"},
		"preferred_attr": {"近戰"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	assert.True(t, strings.HasSuffix(rec.Header().Get("Location"), "#build-result"))

	rec = f.get(t, "/")
	body := rec.Body.String()
	assert.Contains(t, body, "所有目標屬性均已達成")
	assert.Contains(t, body, "equipment-section")
	assert.Contains(t, body, `action="/build/save"`)
	assert.Contains(t, body, `value="150"`)

	rec = f.post(t, "/build/save", url.Values{"build_name": {"超能流"}})
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Location"), "/builds?")

	builds, err := f.client.ListBuilds(ctx, "術士")
	require.NoError(t, err)
	require.Len(t, builds, 1)
	id := builds[0].ID
	assert.Equal(t, "近戰", *builds[0].PreferredAttr)

	rec = f.get(t, "/builds")
	body = rec.Body.String()
	assert.Contains(t, body, "超能流")
	assert.Contains(t, body, "目標: 超能 150")
	assert.Contains(t, body, `class="button confirm-cancel" href="#"`)
	assert.Equal(t, 0, f.calls.count("/api/build/delete"))

	rec = f.get(t, "/builds/"+id)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "equipment-section")

	// a failed configure clears the transient result
	rec = f.post(t, "/build/configure", url.Values{"guardian_class": {"術士"}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Nil(t, f.current())

	rec = f.post(t, "/build/save", url.Values{"build_name": {"再存一次"}})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "請先配置套裝")

	rec = f.post(t, "/builds/"+id+"/load", nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	cur := f.current()
	require.NotNil(t, cur)
	assert.Equal(t, "超能流", cur.Source)
	assert.Equal(t, map[string]float64{"超能": 150}, cur.Config.TargetAttributes)

	rec = f.post(t, "/builds/"+id+"/delete", nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, 1, f.calls.count("/api/build/delete"))

	rec = f.get(t, "/builds/"+id)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "套裝不存在")
}

func TestBackendUnavailable(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	addr := dead.URL
	dead.Close()

	s, err := New(client.New(addr, time.Second), config.DefaultConfig(), nil)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/builds", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "無法連接到服務器，請檢查後端服務是否運行")
}

func TestNotificationAndLoading(t *testing.T) {
	f := setup(t)

	rec := f.get(t, "/builds?guardian_class="+url.QueryEscape("泰坦")+"&notice=ok&kind=success")
	body := rec.Body.String()
	assert.Contains(t, body, `class="notification success"`)
	assert.Contains(t, body, `data-dismiss-after="3000"`)
	assert.Contains(t, body, `notification-close" href="/builds?guardian_class=%E6%B3%B0%E5%9D%A6"`)

	rec = f.get(t, "/fragments/loading?message="+url.QueryEscape("計算中"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "計算中")
	assert.Contains(t, rec.Body.String(), `class="loading"`)

	rec = f.get(t, "/static/style.css")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCurrentBuildIsPerSession(t *testing.T) {
	f := setup(t)
	f.addFullSet(t, "泰坦", "堡壘", "武器")

	rec := f.post(t, "/build/configure", url.Values{
		"guardian_class": {"泰坦"},
		"target_健康":      {"100"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	require.NotNil(t, f.current())

	other := &fixture{web: f.web, client: f.client, calls: f.calls}
	rec = other.get(t, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, other.session)
	assert.NotEqual(t, f.session.Value, other.session.Value)
	assert.NotContains(t, rec.Body.String(), "equipment-section")

	rec = other.post(t, "/build/save", url.Values{"build_name": {"別人的套裝"}})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// the other browser configuring does not touch the first result
	rec = other.post(t, "/build/configure", url.Values{"guardian_class": {"泰坦"}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.NotNil(t, f.current())
	assert.Nil(t, other.current())
}

func TestBuildStateExpiresIdleSessions(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	st := newBuildState()
	st.now = func() time.Time { return now }

	st.set("a", &currentBuild{Formatted: "a"})
	now = now.Add(sessionTTL + time.Minute)
	st.set("b", &currentBuild{Formatted: "b"})

	assert.Nil(t, st.get("a"))
	require.NotNil(t, st.get("b"))
	assert.Equal(t, "b", st.get("b").Formatted)

	st.clear("b")
	assert.Nil(t, st.get("b"))
}
