package saveplatformconfig

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
	"unicode/utf8"

	"marketing-workers/internal/common/agent"
	"marketing-workers/internal/common/camunda/camundatest"
	"marketing-workers/internal/common/logger"
	"marketing-workers/internal/models"
	"marketing-workers/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createSocial(t *testing.T, status int, saved bool, got *models.PlatformConfig) *agent.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/platforms/config", r.URL.Path)
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		var body struct {
			Config models.PlatformConfig `json:"config"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if got != nil {
			*got = body.Config
		}
		json.NewEncoder(w).Encode(map[string]bool{"saved": saved})
	}))
	t.Cleanup(srv.Close)
	return agent.New(agent.Config{SocialBaseURL: srv.URL, SocialTimeout: 2 * time.Second})
}

func createTestConfig() *Config {
	return &Config{Timeout: 5 * time.Second}
}

func TestHandler_Execute_Completeness(t *testing.T) {
	tests := []struct {
		name           string
		platform       string
		creds          map[string]string
		wantConfigured bool
		wantMissing    []string
	}{
		{
			name:           "complete",
			platform:       "LinkedIn",
			creds:          map[string]string{"access_token": "tok-123456789", "organization_id": "42"},
			wantConfigured: true,
			wantMissing:    []string{},
		},
		{
			name:        "blank value counts as missing",
			platform:    "tiktok",
			creds:       map[string]string{"access_token": "abc", "open_id": "   "},
			wantMissing: []string{"open_id"},
		},
		{
			name:        "nothing set",
			platform:    "twitter",
			wantMissing: []string{"access_token", "access_token_secret", "api_key", "api_secret"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var remote models.PlatformConfig
			h := NewHandler(createTestConfig(), createSocial(t, http.StatusOK, true, &remote), nil, logger.NewTestLogger(t))

			out, err := h.Execute(context.Background(), &Input{WorkspaceID: "ws1", Platform: tt.platform, Credentials: tt.creds})
			require.NoError(t, err)
			assert.Equal(t, tt.wantConfigured, out.Configured)
			assert.Equal(t, tt.wantMissing, out.Missing)
			assert.True(t, out.RemoteSaved)
			assert.False(t, out.LocalSaved)
			assert.Empty(t, out.ErrorCode)
			assert.Equal(t, tt.wantConfigured, remote.Configured)
		})
	}
}

func TestHandler_Execute_MasksCredentials(t *testing.T) {
	h := NewHandler(createTestConfig(), createSocial(t, http.StatusOK, true, nil), nil, logger.NewTestLogger(t))
	out, err := h.Execute(context.Background(), &Input{
		Platform:    "linkedin",
		Credentials: map[string]string{"access_token": "tok-123456789", "organization_id": "42"},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"access_token": "****6789", "organization_id": "****"}, out.Credentials)
}

func TestMaskCredentials_MultiByte(t *testing.T) {
	masked := MaskCredentials(map[string]string{"secret": "clé-secrète-ünïcødé", "short": "äöü"})
	assert.Equal(t, "****cødé", masked["secret"])
	assert.True(t, utf8.ValidString(masked["secret"]))
	assert.Equal(t, "****", masked["short"])
	assert.Nil(t, MaskCredentials(nil))
}

func TestHandler_Execute_UnknownPlatform(t *testing.T) {
	h := NewHandler(createTestConfig(), createSocial(t, http.StatusOK, true, nil), nil, logger.NewTestLogger(t))
	out, err := h.Execute(context.Background(), &Input{Platform: "myspace"})
	require.NoError(t, err)
	assert.Equal(t, "PLATFORM_CONFIG_INVALID", out.ErrorCode)
	assert.False(t, out.RemoteSaved)
}

func TestHandler_Execute_RemoteFailureKeepsLocalSave(t *testing.T) {
	tests := []struct {
		name   string
		status int
		saved  bool
	}{
		{"backend error", http.StatusBadGateway, false},
		{"backend refused", http.StatusOK, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()
			mock.ExpectExec("INSERT INTO platform_configs").
				WithArgs("ws1", "tiktok", sqlmock.AnyArg(), sqlmock.AnyArg(), true, sqlmock.AnyArg(), sqlmock.AnyArg()).
				WillReturnResult(sqlmock.NewResult(0, 1))

			h := NewHandler(createTestConfig(), createSocial(t, tt.status, tt.saved, nil),
				repository.NewPlatformConfigRepository(db), logger.NewTestLogger(t))
			out, err := h.Execute(context.Background(), &Input{
				WorkspaceID: "ws1",
				Platform:    "tiktok",
				Credentials: map[string]string{"access_token": "a", "open_id": "b"},
			})
			require.NoError(t, err)
			assert.True(t, out.LocalSaved)
			assert.False(t, out.RemoteSaved)
			assert.Equal(t, "EXTERNAL_SERVICE_ERROR", out.ErrorCode)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestHandler_Execute_MergeStored(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"platform", "credentials", "settings", "configured", "missing", "updated_at"}).
		AddRow("linkedin", []byte(`{"access_token":"old-token","organization_id":"42"}`), []byte(`{"autoPublish":true}`),
			true, []byte(`[]`), time.Now())
	mock.ExpectQuery("SELECT platform, credentials").WithArgs("ws1", "linkedin").WillReturnRows(rows)
	mock.ExpectExec("INSERT INTO platform_configs").WillReturnResult(sqlmock.NewResult(0, 1))

	var remote models.PlatformConfig
	h := NewHandler(createTestConfig(), createSocial(t, http.StatusOK, true, &remote),
		repository.NewPlatformConfigRepository(db), logger.NewTestLogger(t))
	out, err := h.Execute(context.Background(), &Input{
		WorkspaceID: "ws1",
		Platform:    "linkedin",
		Credentials: map[string]string{"access_token": "new-token-value", "organization_id": " "},
		Merge:       true,
	})
	require.NoError(t, err)

	assert.True(t, out.Configured)
	assert.Equal(t, "new-token-value", remote.Credentials["access_token"])
	assert.Equal(t, "42", remote.Credentials["organization_id"])
	assert.Equal(t, true, remote.Settings["autoPublish"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Handle(t *testing.T) {
	h := NewHandler(createTestConfig(), createSocial(t, http.StatusOK, true, nil), nil, logger.NewTestLogger(t))

	client := camundatest.NewJobClient()
	h.Handle(client, camundatest.Job(TaskType, `{"credentials": ["a"]}`))
	require.Len(t, client.Failed(), 1)

	client = camundatest.NewJobClient()
	h.Handle(client, camundatest.Job(TaskType, Input{Platform: "instagram"}))
	var out Output
	require.True(t, client.Completed(0, &out))
	assert.Equal(t, []string{"access_token", "business_account_id"}, out.Missing)
}
