package api

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/types"
)

// respondError maps service errors to HTTP statuses. Unknown errors are
// logged and hidden behind a generic 500.
func respondError(c *gin.Context, log logrus.FieldLogger, err error) {
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": verrs})
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrInvalid), errors.Is(err, service.ErrConflict):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrUnauthorized):
		status = http.StatusUnauthorized
	}

	if status == http.StatusInternalServerError {
		log.WithError(err).WithFields(logrus.Fields{
			"path":       c.Request.URL.Path,
			"request_id": c.GetString("request_id"),
		}).Error("Request failed")
		c.Error(err)
		c.JSON(status, gin.H{"error": "Internal Server Error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return false
	}
	return true
}

// parseID reads a positive integer path parameter.
func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return 0, false
	}
	return uint(id), true
}

func queryInt(c *gin.Context, name string) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return 0
	}
	return v
}

// queryBool parses 1/0/true/false; anything else leaves the filter unset.
func queryBool(c *gin.Context, name string) *bool {
	raw, ok := c.GetQuery(name)
	if !ok {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &v
}

func pageParams(c *gin.Context, defaultLimit int) types.PageParams {
	return types.PageParams{
		Page:  queryInt(c, "page"),
		Limit: queryInt(c, "limit"),
	}.Normalize(defaultLimit)
}

// setPageLinks fills next and previous with absolute URLs of the same query.
func setPageLinks[T any](c *gin.Context, page *types.Page[T], p types.PageParams) {
	link := func(n int) *string {
		u := url.URL{Scheme: "http", Host: c.Request.Host, Path: c.Request.URL.Path}
		if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
			u.Scheme = "https"
		}
		q := c.Request.URL.Query()
		q.Set("page", strconv.Itoa(n))
		q.Set("limit", strconv.Itoa(p.Limit))
		u.RawQuery = q.Encode()
		s := u.String()
		return &s
	}

	if types.HasNext(page.Count, p) {
		page.Next = link(p.Page + 1)
	}
	if p.Page > 1 {
		page.Previous = link(p.Page - 1)
	}
}
