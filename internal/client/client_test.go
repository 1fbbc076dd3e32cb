package client_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
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

func newBackend(t *testing.T) *client.Client {
	t.Helper()
	store, err := storage.New(filepath.Join(t.TempDir(), "client.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	manager := gear.NewManager(store, optimizer.New(config.OptimizerConfig{Workers: 2}), nil)
	srv := httptest.NewServer(api.New(manager, nil, nil))
	t.Cleanup(srv.Close)
	return client.New(srv.URL, 5*time.Second)
}

func stub(t *testing.T, status int, body string) *client.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return client.New(srv.URL, time.Second)
}

func TestErrorNormalization(t *testing.T) {
	ctx := context.Background()

	t.Run("network", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		_, err := client.New(url, time.Second).Classes(ctx)
		var netErr *client.NetworkError
		require.ErrorAs(t, err, &netErr)
		assert.Equal(t, "無法連接到服務器，請檢查後端服務是否運行", client.Message(err))
	})

	tests := []struct {
		name   string
		status int
		body   string
		want   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "http error with message",
			status: http.StatusNotFound,
			body:   `{"success":false,"error":"套裝不存在"}`,
			want:   "套裝不存在",
			check: func(t *testing.T, err error) {
				assert.True(t, client.IsNotFound(err))
			},
		},
		{
			name:   "http error without body",
			status: http.StatusBadGateway,
			body:   ``,
			want:   "HTTP 502",
			check: func(t *testing.T, err error) {
				var httpErr *client.HTTPError
				require.ErrorAs(t, err, &httpErr)
				assert.Equal(t, http.StatusBadGateway, httpErr.StatusCode)
			},
		},
		{
			name:   "api error with message",
			status: http.StatusOK,
			body:   `{"success":false,"error":"倉庫中已存在相同裝備"}`,
			want:   "倉庫中已存在相同裝備",
			check: func(t *testing.T, err error) {
				var apiErr *client.APIError
				assert.ErrorAs(t, err, &apiErr)
			},
		},
		{
			name:   "api error fallback",
			status: http.StatusOK,
			body:   `{"success":false}`,
			want:   "操作失敗",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := stub(t, tt.status, tt.body)
			_, err := c.DeleteBuild(ctx, "x")
			require.Error(t, err)
			assert.Equal(t, tt.want, client.Message(err))
			if tt.check != nil {
				tt.check(t, err)
			}
		})
	}
}

func TestMessagePassesThroughOtherErrors(t *testing.T) {
	assert.Equal(t, "", client.Message(nil))
	assert.Equal(t, "boom", client.Message(errors.New("boom")))
}

func TestNetworkErrorUnwraps(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := stub(t, http.StatusOK, `[]`)
	_, err := c.Attributes(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "無法連接到服務器，請檢查後端服務是否運行", client.Message(err))
}

func TestAgainstBackend(t *testing.T) {
	ctx := context.Background()
	c := newBackend(t)

	require.NoError(t, c.Health(ctx))

	attrs, err := c.Attributes(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.Attributes(), attrs)

	tags, err := c.EquipmentTags(ctx)
	require.NoError(t, err)
	assert.Len(t, tags, 6)

	for _, slot := range models.EquipmentTypes() {
		_, err := c.AddEquipment(ctx, models.EquipmentAdd{
			GuardianClass: "獵人", EquipmentType: slot, Tag: "槍手", RandomStat: "超能",
		})
		require.NoError(t, err)
	}

	_, err = c.AddEquipment(ctx, models.EquipmentAdd{
		GuardianClass: "獵人", EquipmentType: "頭盔", Tag: "槍手", RandomStat: "超能",
	})
	assert.Equal(t, "倉庫中已存在相同裝備", client.Message(err))

	items, err := c.ListEquipment(ctx, "獵人")
	require.NoError(t, err)
	assert.Len(t, items, 5)

	all, err := c.ListAllEquipment(ctx)
	require.NoError(t, err)
	assert.Len(t, all["獵人"], 5)
	assert.Empty(t, all["泰坦"])

	res, err := c.ConfigureBuild(ctx, models.BuildConfigure{
		GuardianClass:    "獵人",
		TargetAttributes: map[string]float64{"武器": 150},
	})
	require.NoError(t, err)
	assert.Contains(t, res.Formatted, "【頭盔】")
	assert.NotEmpty(t, res.Result)

	build, msg, err := c.SaveBuild(ctx, models.BuildSave{
		Name:             "  槍手流 ",
		GuardianClass:    "獵人",
		TargetAttributes: map[string]float64{"武器": 150},
		Result:           []byte(res.Result),
	})
	require.NoError(t, err)
	assert.Equal(t, "套裝已成功保存", msg)
	assert.Equal(t, "槍手流", build.Name)
	assert.Equal(t, res.Formatted, build.Formatted())

	found, err := c.FindBuild(ctx, build.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, build.ID, found.ID)

	_, err = c.DeleteBuild(ctx, build.ID)
	require.NoError(t, err)

	_, err = c.DeleteBuild(ctx, build.ID)
	assert.True(t, client.IsNotFound(err))

	missing, err := c.FindBuild(ctx, build.ID)
	require.NoError(t, err)
	assert.Nil(t, missing)
}
