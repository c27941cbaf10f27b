package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/voluntree/voluntree-api/internal/handler"
	"github.com/voluntree/voluntree-api/internal/repository"
)

// Available spaces are derived per read: a fully booked capacity-2 slot
// shows zero, an oversold one goes negative.
func TestGetWorkshopDerivesAvailableSpaces(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	h := &handler.PublicHandler{
		Workshops: repository.NewWorkshopRepo(db),
		Slots:     repository.NewSlotRepo(db),
	}

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, host_id, name, description, category, is_virtual, street, meeting_link, created_at, updated_at`)).
		WithArgs(uint64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "host_id", "name", "description", "category", "is_virtual", "street", "meeting_link", "created_at", "updated_at"}).
			AddRow(2, 7, "Intro to Beekeeping", "hands on", "nature", false, "12 Hive Lane", "", now, now))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM slots WHERE workshop_id = ? ORDER BY slot_date, start_time`)).
		WithArgs(uint64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "workshop_id", "date", "start_time", "end_time", "capacity", "created_at", "updated_at"}).
			AddRow(5, 2, "2026-03-01", "10:00:00", "12:00:00", 2, now, now).
			AddRow(6, 2, "2026-03-08", "10:00:00", "12:00:00", 1, now, now))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT slot_id, COUNT(*) FROM bookings WHERE workshop_id = ? GROUP BY slot_id`)).
		WithArgs(uint64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"slot_id", "count"}).
			AddRow(5, 2).
			AddRow(6, 2)) // oversold under the permissive policy

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/workshops/2", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/v1/workshops/:id")
	c.SetParamNames("id")
	c.SetParamValues("2")

	require.NoError(t, h.GetWorkshop(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Workshop handler.PublicWorkshop `json:"workshop"`
		Slots    []handler.PublicSlot   `json:"slots"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "Intro to Beekeeping", resp.Workshop.Name)
	require.Len(t, resp.Slots, 2)
	require.Equal(t, int32(0), resp.Slots[0].AvailableSpaces)
	require.Equal(t, int32(-1), resp.Slots[1].AvailableSpaces)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetWorkshopNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	h := &handler.PublicHandler{
		Workshops: repository.NewWorkshopRepo(db),
		Slots:     repository.NewSlotRepo(db),
	}

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, host_id, name, description, category, is_virtual, street, meeting_link, created_at, updated_at`)).
		WithArgs(uint64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/workshops/99", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/v1/workshops/:id")
	c.SetParamNames("id")
	c.SetParamValues("99")

	require.NoError(t, h.GetWorkshop(c))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}
