package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// MySQL server error numbers the repositories translate.
const (
	errRowIsReferenced = 1451 // parent row delete blocked by a foreign key
	errNoReferencedRow = 1452 // child row insert references a missing parent
)

func mysqlErrorNumber(err error) uint16 {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number
	}
	return 0
}

func isForeignKeyViolation(err error) bool {
	return mysqlErrorNumber(err) == errRowIsReferenced
}

func isMissingReference(err error) bool {
	return mysqlErrorNumber(err) == errNoReferencedRow
}
