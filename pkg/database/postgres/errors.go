package postgres

import (
	"database/sql/driver"
	"errors"
	"net"

	"github.com/lib/pq"
)

const (
	CodeCheckViolation       = "23514"
	CodeSerializationFailure = "40001"
	CodeDeadlockDetected     = "40P01"
	CodeLockNotAvailable     = "55P03"
	CodeQueryCanceled        = "57014"
	CodeAdminShutdown        = "57P01"
	CodeCannotConnectNow     = "57P03"
)

func errCode(err error) (pq.ErrorCode, bool) {
	var pgErr *pq.Error
	if errors.As(err, &pgErr) {
		return pgErr.Code, true
	}
	return "", false
}

func IsCheckViolation(err error) bool {
	code, ok := errCode(err)
	return ok && code == CodeCheckViolation
}

// IsQueryCanceled reports a statement aborted by the server because the
// client context was cancelled or statement_timeout elapsed.
func IsQueryCanceled(err error) bool {
	code, ok := errCode(err)
	return ok && code == CodeQueryCanceled
}

// IsUnavailable reports errors meaning the store refused or dropped the
// connection or transaction.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if code, ok := errCode(err); ok {
		switch code {
		case CodeSerializationFailure, CodeDeadlockDetected, CodeLockNotAvailable,
			CodeAdminShutdown, CodeCannotConnectNow:
			return true
		}
		return code.Class() == "08"
	}
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
