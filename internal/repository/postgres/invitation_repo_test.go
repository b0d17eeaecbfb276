package postgres

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/mvaz/chathub/internal/errs"
	"github.com/mvaz/chathub/internal/model"
)

func TestInvitationRepo_CreateInvitation_OpenStoresNullInvitee(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	r := NewInvitationRepo(mock)
	ctx := context.Background()

	inv := model.Invitation{
		Code:       "abcabcabcabc",
		InviterID:  1,
		ChannelID:  2,
		Permission: model.ReadWrite,
	}

	mock.ExpectQuery(`INSERT INTO invitations`).
		WithArgs("abcabcabcabc", int64(1), (*int64)(nil), int64(2), false, "READ_WRITE").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(10)))

	got, err := r.CreateInvitation(ctx, inv)
	require.NoError(t, err)
	require.Equal(t, int64(10), got.ID)
	require.True(t, got.Open())
}

func TestInvitationRepo_FindByCode(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	r := NewInvitationRepo(mock)
	ctx := context.Background()

	mock.ExpectQuery(`FROM invitations WHERE code = \$1`).
		WithArgs("code12345678").
		WillReturnRows(pgxmock.NewRows([]string{"id", "code", "inviter_id", "invitee_id", "channel_id", "used", "permission"}).
			AddRow(int64(10), "code12345678", int64(1), (*int64)(nil), int64(2), false, "READ_ONLY"))

	inv, err := r.FindByCode(ctx, "code12345678")
	require.NoError(t, err)
	require.Equal(t, model.ReadOnly, inv.Permission)
	require.True(t, inv.Open())

	mock.ExpectQuery(`FROM invitations WHERE code = \$1`).
		WithArgs("nope").
		WillReturnError(pgx.ErrNoRows)
	_, err = r.FindByCode(ctx, "nope")
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestInvitationRepo_MarkUsed_OnlyOnce(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	r := NewInvitationRepo(mock)
	ctx := context.Background()

	invitee := int64(3)
	mock.ExpectExec(`UPDATE invitations SET used = TRUE, invitee_id = \$2\s+WHERE id = \$1 AND used = FALSE`).
		WithArgs(int64(10), &invitee).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	ok, err := r.MarkUsed(ctx, 10, 3)
	require.NoError(t, err)
	require.True(t, ok)

	mock.ExpectExec(`UPDATE invitations SET used = TRUE, invitee_id = \$2\s+WHERE id = \$1 AND used = FALSE`).
		WithArgs(int64(10), &invitee).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	ok, err = r.MarkUsed(ctx, 10, 3)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestInvitationRepo_MarkUsed_OpenInvitationKeepsNullInvitee(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	r := NewInvitationRepo(mock)
	ctx := context.Background()

	mock.ExpectExec(`UPDATE invitations SET used = TRUE, invitee_id = \$2\s+WHERE id = \$1 AND used = FALSE`).
		WithArgs(int64(10), (*int64)(nil)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	ok, err := r.MarkUsed(ctx, 10, 0)
	require.NoError(t, err)
	require.True(t, ok)
}
