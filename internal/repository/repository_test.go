package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"marketing-workers/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestCompetitorRepository_Upsert(t *testing.T) {
	db, mock := newMock(t)
	repo := NewCompetitorRepository(db)

	mock.ExpectExec("INSERT INTO competitors").
		WithArgs("c1", "ws1", "https://linkedin.com/company/acme", "linkedin", "Acme", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Upsert(context.Background(), "ws1", models.Competitor{
		ID:       "c1",
		URL:      "https://linkedin.com/company/acme",
		Platform: "linkedin",
		Name:     "Acme",
		Metadata: &models.DiscoveryMetadata{DiscoveryMethod: "manual"},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompetitorRepository_ReplaceAll(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(mock sqlmock.Sqlmock)
		wantErr bool
	}{
		{
			name: "commits",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("DELETE FROM competitors").WithArgs("ws1").WillReturnResult(sqlmock.NewResult(0, 3))
				mock.ExpectExec("INSERT INTO competitors").WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec("INSERT INTO competitors").WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit()
			},
		},
		{
			name: "rolls back on insert failure",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("DELETE FROM competitors").WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectExec("INSERT INTO competitors").WillReturnError(errors.New("disk full"))
				mock.ExpectRollback()
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMock(t)
			tt.setup(mock)

			err := NewCompetitorRepository(db).ReplaceAll(context.Background(), "ws1", []models.Competitor{
				{ID: "a", URL: "https://a", Platform: "linkedin", Name: "A"},
				{ID: "b", URL: "https://b", Platform: "tiktok", Name: "B"},
			})
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestCompetitorRepository_List(t *testing.T) {
	db, mock := newMock(t)
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"id", "url", "platform", "name", "metadata", "created_at"}).
		AddRow("a", "https://a", "linkedin", "A", []byte(`{"confidenceScore":0.9,"discoveryMethod":"search"}`), created).
		AddRow("b", "https://b", "tiktok", "B", nil, created)
	mock.ExpectQuery("SELECT id, url, platform, name, metadata, created_at").WithArgs("ws1").WillReturnRows(rows)

	got, err := NewCompetitorRepository(db).List(context.Background(), "ws1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.NotNil(t, got[0].Metadata)
	assert.Equal(t, 0.9, got[0].Metadata.ConfidenceScore)
	assert.Nil(t, got[1].Metadata)
	assert.Equal(t, created, got[1].CreatedAt)
}

func TestCompetitorRepository_Delete(t *testing.T) {
	db, mock := newMock(t)
	repo := NewCompetitorRepository(db)

	mock.ExpectExec("DELETE FROM competitors").WithArgs("ws1", "a").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM competitors").WithArgs("ws1", "zzz").WillReturnResult(sqlmock.NewResult(0, 0))

	removed, err := repo.Delete(context.Background(), "ws1", "a")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = repo.Delete(context.Background(), "ws1", "zzz")
	require.NoError(t, err)
	assert.False(t, removed)
}

var postRowColumns = []string{"id", "platform", "content", "hashtags", "image_url", "scheduled_date",
	"scheduled_time", "status", "engagement", "custom", "created_at", "updated_at"}

func TestPostRepository_Get(t *testing.T) {
	now := time.Now().UTC()
	tests := []struct {
		name    string
		rows    *sqlmock.Rows
		err     error
		wantErr error
		check   func(t *testing.T, p *models.SocialMediaPost)
	}{
		{
			name: "found",
			rows: sqlmock.NewRows(postRowColumns).AddRow("p1", "linkedin", "Hello", []byte(`["#a","#b"]`), nil,
				"2024-06-01", "09:30", "scheduled", []byte(`{"score":72,"likes":40,"comments":5,"shares":3}`), false, now, now),
			check: func(t *testing.T, p *models.SocialMediaPost) {
				assert.Equal(t, []string{"#a", "#b"}, p.Hashtags)
				assert.Equal(t, "", p.ImageURL)
				assert.Equal(t, "09:30", p.ScheduledTime)
				require.NotNil(t, p.EngagementPrediction)
				assert.Equal(t, 40, p.EngagementPrediction.Likes)
			},
		},
		{
			name:    "missing",
			err:     sql.ErrNoRows,
			wantErr: ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMock(t)
			q := mock.ExpectQuery("FROM social_posts WHERE workspace_id").WithArgs("ws1", "p1")
			if tt.err != nil {
				q.WillReturnError(tt.err)
			} else {
				q.WillReturnRows(tt.rows)
			}

			p, err := NewPostRepository(db).Get(context.Background(), "ws1", "p1")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, p)
		})
	}
}

func TestPostRepository_InsertAndUpdate(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostRepository(db)
	post := models.SocialMediaPost{ID: "p1", Platform: "tiktok", Content: "Hi", Hashtags: []string{"#x"}, Status: models.PostStatusDraft}

	mock.ExpectExec("INSERT INTO social_posts").
		WithArgs("p1", "ws1", "tiktok", "Hi", []byte(`["#x"]`), "", "", "", "draft", nil, false, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE social_posts").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE social_posts SET status").WithArgs("p1", "published", sqlmock.AnyArg(), "ws1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE social_posts SET status").WithArgs("p1", "published", sqlmock.AnyArg(), "ws2").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Insert(context.Background(), "ws1", post))

	post.Content = "Hi again"
	require.NoError(t, repo.Update(context.Background(), "ws1", post))
	require.NoError(t, repo.UpdateStatus(context.Background(), "ws1", "p1", models.PostStatusPublished))
	assert.ErrorIs(t, repo.UpdateStatus(context.Background(), "ws2", "p1", models.PostStatusPublished), ErrNotFound,
		"a post id from another workspace is not touched")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_ListByWorkspace(t *testing.T) {
	db, mock := newMock(t)
	now := time.Now().UTC()
	rows := sqlmock.NewRows(postRowColumns).
		AddRow("p1", "linkedin", "One", nil, "", "", "", "draft", nil, true, now, now).
		AddRow("p2", "tiktok", "Two", []byte(`[]`), "https://img", "", "", "draft", nil, false, now, now)
	mock.ExpectQuery("FROM social_posts").WithArgs("ws1").WillReturnRows(rows)

	posts, err := NewPostRepository(db).ListByWorkspace(context.Background(), "ws1")
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.True(t, posts[0].Custom)
	assert.Equal(t, []string{}, posts[0].Hashtags)
	assert.Equal(t, "https://img", posts[1].ImageURL)
}

func TestPlatformConfigRepository_SaveAndGet(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPlatformConfigRepository(db)
	now := time.Now().UTC()

	mock.ExpectExec("INSERT INTO platform_configs").
		WithArgs("ws1", "linkedin", sqlmock.AnyArg(), nil, false, []byte(`["organization_id"]`), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM platform_configs").WithArgs("ws1", "linkedin").
		WillReturnRows(sqlmock.NewRows([]string{"platform", "credentials", "settings", "configured", "missing", "updated_at"}).
			AddRow("linkedin", []byte(`{"access_token":"t"}`), nil, false, []byte(`["organization_id"]`), now))
	mock.ExpectQuery("FROM platform_configs").WithArgs("ws1", "tiktok").WillReturnError(sql.ErrNoRows)

	err := repo.Save(context.Background(), "ws1", models.PlatformConfig{
		Platform:    "linkedin",
		Credentials: map[string]string{"access_token": "t"},
		Missing:     []string{"organization_id"},
	})
	require.NoError(t, err)

	cfg, err := repo.Get(context.Background(), "ws1", "linkedin")
	require.NoError(t, err)
	assert.Equal(t, "t", cfg.Credentials["access_token"])
	assert.Equal(t, []string{"organization_id"}, cfg.Missing)
	assert.Nil(t, cfg.Settings)

	_, err = repo.Get(context.Background(), "ws1", "tiktok")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
