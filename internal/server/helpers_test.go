package server

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHumanizeParam(t *testing.T) {
	assert.Equal(t, "ID", humanizeParam("id"))
	assert.Equal(t, "user ID", humanizeParam("userId"))
	assert.Equal(t, "message ID", humanizeParam("messageId"))
	assert.Equal(t, "slug", humanizeParam("slug"))
}

func TestParsePagination(t *testing.T) {
	app := fiber.New()
	var page Pagination
	app.Get("/", func(c *fiber.Ctx) error {
		page = parsePagination(c, 50)
		return c.SendStatus(fiber.StatusOK)
	})

	cases := []struct {
		query  string
		limit  int
		offset int
	}{
		{"", 50, 0},
		{"?limit=10&offset=20", 10, 20},
		{"?limit=-5&offset=-1", 50, 0},
		{"?limit=500", maxPaginationLimit, 0},
	}
	for _, tc := range cases {
		resp, err := app.Test(httptest.NewRequest("GET", "/"+tc.query, nil))
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, tc.limit, page.Limit, tc.query)
		assert.Equal(t, tc.offset, page.Offset, tc.query)
	}
}
