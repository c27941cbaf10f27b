package handler_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/voluntree/voluntree-api/internal/handler"
	"github.com/voluntree/voluntree-api/internal/lifecycle"
	"github.com/voluntree/voluntree-api/internal/repository"
)

func newAttendeeHandler(t *testing.T) (*handler.AttendeeHandler, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	slots := repository.NewSlotRepo(db)
	bookings := repository.NewBookingRepo(db)
	m := lifecycle.New(db, repository.NewProfileRepo(db), repository.NewWorkshopRepo(db), slots, bookings, lifecycle.AMQPPublisher{}, false)
	return handler.NewAttendeeHandler(slots, bookings, m), mock
}

// A body that is present but does not parse is a client error, same as
// on every other route.  No query runs before the rejection.
func TestBookSlotRejectsMalformedBody(t *testing.T) {
	h, mock := newAttendeeHandler(t)

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/slots/5/book", strings.NewReader(`{"workshop_id":`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/v1/slots/:id/book")
	c.SetParamNames("id")
	c.SetParamValues("5")
	c.Set("user_id", uint64(3))

	require.NoError(t, h.BookSlot(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "invalid body")
	require.NoError(t, mock.ExpectationsWereMet())
}
