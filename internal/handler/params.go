package handler

import (
	"strconv"
	"strings"

	"MiCiudadSV/internal/pkg"

	"github.com/gin-gonic/gin"
)

func communityIDParam(c *gin.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, pkg.InvalidInput("invalid community id")
	}
	return id, nil
}

// optionalUint returns 0 when the query parameter is absent.
func optionalUint(c *gin.Context, name string) (uint64, error) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, pkg.InvalidInput("invalid " + name)
	}
	return v, nil
}

// maxLimitParam keeps ?limit= inside int range; the service applies the real cap.
const maxLimitParam = 1 << 20

// flexID accepts an id sent either as a JSON number or as a numeric string.
type flexID uint64

func (f *flexID) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return err
	}
	*f = flexID(v)
	return nil
}
