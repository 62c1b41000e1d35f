package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/blogs-online/server/internal/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return &Store{db: db}, mock
}

func TestRecordPaymentRollsBackOnMembershipFailure(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO payments").
		WithArgs(sqlmock.AnyArg(), "payer@example.com", "", 5.0, "pi_1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users WHERE email = \?`).
		WithArgs("payer@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectExec("UPDATE users SET status = \\?, badge = \\?").
		WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	payment := model.Payment{Email: "payer@example.com", Price: 5, TransactionID: "pi_1"}
	_, err := st.RecordPayment(context.Background(), &payment, model.Membership{Status: model.StatusMember, Badge: model.BadgeGold})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "apply membership")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordPaymentCommits(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO payments").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec("UPDATE users").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	payment := model.Payment{Email: "ghost@example.com", Price: 1, TransactionID: "pi_2"}
	res, err := st.RecordPayment(context.Background(), &payment, model.Membership{Status: model.StatusMember, Badge: model.BadgeGold})
	require.NoError(t, err)
	require.NotNil(t, res.Payment.InsertedID)
	assert.Equal(t, int64(0), res.User.MatchedCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddCommentRollsBackOnCountFailure(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO comments").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE posts SET comment_count").
		WithArgs("post-1", "post-1").
		WillReturnError(errors.New("database is locked"))
	mock.ExpectRollback()

	comment := model.Comment{PostID: "post-1", Text: "hi"}
	_, err := st.AddComment(context.Background(), &comment)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refresh comment count")
	assert.NoError(t, mock.ExpectationsWereMet())
}
