package repository_test

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/voluntree/voluntree-api/internal/repository"
)

func newBookingRepo(t *testing.T) (*repository.BookingRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return repository.NewBookingRepo(db), mock
}

func TestReviewOverwritesWithoutError(t *testing.T) {
	r, mock := newBookingRepo(t)

	ownerQ := regexp.QuoteMeta(`SELECT user_id FROM bookings WHERE id = ?`)
	writeQ := regexp.QuoteMeta(`UPDATE bookings SET review_rating = ?, review_comment = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`)

	mock.ExpectQuery(ownerQ).WithArgs(uint64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(3))
	mock.ExpectExec(writeQ).WithArgs(uint8(5), "great", uint64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(ownerQ).WithArgs(uint64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(3))
	mock.ExpectExec(writeQ).WithArgs(uint8(1), "changed my mind", uint64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, r.Review(context.Background(), 42, 3, 5, "great"))
	require.NoError(t, r.Review(context.Background(), 42, 3, 1, "changed my mind"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRejectsForeignBooking(t *testing.T) {
	r, mock := newBookingRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT user_id FROM bookings WHERE id = ?`)).WithArgs(uint64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(3))

	err := r.Review(context.Background(), 42, 9999, 4, "nope")
	require.ErrorIs(t, err, repository.ErrForbidden)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewMissingBooking(t *testing.T) {
	r, mock := newBookingRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT user_id FROM bookings WHERE id = ?`)).WithArgs(uint64(7)).
		WillReturnError(sql.ErrNoRows)

	err := r.Review(context.Background(), 7, 3, 4, "ghost")
	require.ErrorIs(t, err, repository.ErrBookingNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListBySlotForHostChecksOwnership(t *testing.T) {
	r, mock := newBookingRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT w.host_id`)).WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"host_id"}).AddRow(7))

	_, err := r.ListBySlotForHost(context.Background(), 5, 4444)
	require.ErrorIs(t, err, repository.ErrForbidden)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListBySlotForHostReturnsReviews(t *testing.T) {
	r, mock := newBookingRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT w.host_id`)).WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"host_id"}).AddRow(7))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT b.id, b.user_id, COALESCE(p.name, ''), b.review_rating, b.review_comment`)).
		WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "name", "review_rating", "review_comment"}).
			AddRow(101, 31, "Alex Attendee", 5, "great").
			AddRow(102, 32, "", nil, nil))

	rows, err := r.ListBySlotForHost(context.Background(), 5, 7)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, uint8(5), *rows[0].ReviewRating)
	require.Equal(t, "great", *rows[0].ReviewComment)
	require.Nil(t, rows[1].ReviewRating)
	require.NoError(t, mock.ExpectationsWereMet())
}
