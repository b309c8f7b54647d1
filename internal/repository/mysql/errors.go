package mysql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"

	"MiCiudadSV/internal/pkg"

	gomysql "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

const (
	errDuplicateEntry     = 1062
	errRowIsReferenced    = 1451
	errNoReferencedRow    = 1452
	errTooManyConnections = 1040
	errLockWaitTimeout    = 1205
	errDeadlock           = 1213
)

// Classify maps driver and gorm errors onto the pkg error kinds.
// Errors that already carry a kind are returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var ae *pkg.AppError
	if errors.As(err, &ae) {
		return err
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return pkg.Wrap(pkg.KindNotFound, "record not found", err)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return pkg.Conflict("duplicate entry", err)
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		errors.Is(err, driver.ErrBadConn),
		errors.Is(err, gomysql.ErrInvalidConn),
		errors.Is(err, sql.ErrConnDone):
		return pkg.Unavailable(err)
	}

	var me *gomysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case errDuplicateEntry:
			return pkg.Conflict("duplicate entry", err)
		case errRowIsReferenced, errNoReferencedRow:
			return pkg.Wrap(pkg.KindNotFound, "referenced record not found", err)
		case errTooManyConnections, errLockWaitTimeout, errDeadlock:
			return pkg.Unavailable(err)
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return pkg.Unavailable(err)
	}
	return pkg.Internal(err)
}
