package httpserver

import (
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	authmw "github.com/Skotchmaster/handmade_shop/internal/middleware/auth"
	"github.com/Skotchmaster/handmade_shop/internal/util"
)

var errNoUser = errors.New("no authenticated user in context")

func currentUser(c echo.Context) (uuid.UUID, error) {
	s, ok := c.Get(authmw.UserIDKey).(string)
	if !ok || s == "" {
		return uuid.Nil, errNoUser
	}
	return uuid.Parse(s)
}

func currentRole(c echo.Context) string {
	role, _ := c.Get(authmw.RoleKey).(string)
	return role
}

func pathID(c echo.Context, name string) (uuid.UUID, error) {
	return uuid.Parse(c.Param(name))
}

// pageParams reads page and size; limit is accepted as an alias of size.
func pageParams(c echo.Context) (page, size int) {
	page = util.ParseIntDefault(c.QueryParam("page"), 1)
	size = util.ParseIntDefault(c.QueryParam("size"), 0)
	if size == 0 {
		size = util.ParseIntDefault(c.QueryParam("limit"), 0)
	}
	return page, size
}

// dateRange parses from/to; a date-only "to" covers the whole day.
func dateRange(c echo.Context) (from, to *time.Time, err error) {
	if from, err = util.ParseDay(c.QueryParam("from")); err != nil {
		return nil, nil, err
	}
	if to, err = util.ParseDayEnd(c.QueryParam("to")); err != nil {
		return nil, nil, err
	}
	return from, to, nil
}

func boolQuery(c echo.Context, name string) (*bool, error) {
	v := c.QueryParam(name)
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func paged(data any, meta util.Meta) map[string]any {
	return map[string]any{"data": data, "meta": meta}
}
