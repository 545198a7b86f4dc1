package utils

import (
	"errors"

	mysqlDriver "github.com/go-sql-driver/mysql"
)

var ErrorRecordNotFound = errors.New("record not found")

var ErrorDuplicateValue = errors.New("duplicate value")

// IsDuplicateKeyError reports a MySQL unique-constraint violation.
func IsDuplicateKeyError(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}

func ErrorPanic(err error) {
	if err != nil {
		panic(err)
	}
}
