package middleware

import (
	"MiCiudadSV/internal/pkg"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// RespondError aborts with {success:false, message}. Causes are logged, never returned.
func RespondError(c *gin.Context, err error) {
	kind := pkg.KindOf(err)
	status := pkg.HTTPStatus(kind)

	if kind == pkg.KindInternal || kind == pkg.KindUnavailable {
		logrus.WithFields(logrus.Fields{
			"request_id": c.GetString(ContextRequestIDKey),
			"path":       c.FullPath(),
			"kind":       kind.String(),
		}).WithError(err).Error("request failed")
	}
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": pkg.PublicMessage(err)})
}
