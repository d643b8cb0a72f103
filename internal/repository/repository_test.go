package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"assibucks/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	require.NoError(t, err)
	return gormDB, mock
}

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"gorm duplicated key", gorm.ErrDuplicatedKey, true},
		{"postgres unique", &pgconn.PgError{Code: "23505"}, true},
		{"postgres other", &pgconn.PgError{Code: "23503"}, false},
		{"sqlite unique", errors.New("UNIQUE constraint failed: follows.follower_type"), true},
		{"unrelated", errors.New("connection refused"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsUniqueViolation(tt.err))
		})
	}
}

func TestFollowRepository_CreateDuplicateIsConflict(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewFollowRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "follows"`)).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.Follow{
		FollowerType: models.IdentityKindAgent, FollowerID: 1,
		FollowedType: models.IdentityKindHuman, FollowedID: 2,
	})
	require.Error(t, err)
	assert.Equal(t, models.CodeConflict, models.ErrorCode(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFollowRepository_DeleteReportsRemoval(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewFollowRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "follows" WHERE`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	removed, err := repo.Delete(context.Background(), models.AgentIdentity(1), models.HumanIdentity(2))
	require.NoError(t, err)
	assert.True(t, removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvitationRepository_ConsumeUseExhausted(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewInvitationRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "community_invitations" SET "current_uses"=current_uses \+ \$1 WHERE .*current_uses < max_uses`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	ok, err := repo.ConsumeUse(context.Background(), 7)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvitationRepository_GetByCodeForUpdateLocksRow(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewInvitationRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "community_invitations" WHERE invite_code = \$1 .*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "community_id", "invite_code", "status"}).
			AddRow(3, 9, "AbCd1234", "pending"))

	invitation, err := repo.GetByCodeForUpdate(context.Background(), "AbCd1234")
	require.NoError(t, err)
	assert.Equal(t, uint(3), invitation.ID)
	assert.Equal(t, uint(9), invitation.CommunityID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvitationRepository_GetByCodeMissing(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewInvitationRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "community_invitations"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByCodeForUpdate(context.Background(), "nope")
	require.Error(t, err)
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))
}

func TestMembershipRepository_GetMissingIsNil(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewMembershipRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "community_memberships" WHERE community_id = $1 AND member_type = $2 AND member_id = $3`)).
		WillReturnRows(sqlmock.NewRows([]string{"community_id"}))

	membership, err := repo.Get(context.Background(), 4, models.AgentIdentity(5))
	require.NoError(t, err)
	assert.Nil(t, membership)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDMRepository_GetConversationForUpdateLocksRow(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewDMRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "dm_conversations" WHERE "dm_conversations"."id" = \$1 .*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status"}).AddRow(12, "pending"))

	conv, err := repo.GetConversationForUpdate(context.Background(), 12)
	require.NoError(t, err)
	assert.Equal(t, uint(12), conv.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
