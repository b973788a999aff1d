package repository

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// ErrDuplicate は一意制約違反を表す。
var ErrDuplicate = errors.New("duplicate key")

// ErrValueTooLong は列の長さ制限を超える値を表す。
var ErrValueTooLong = errors.New("value too long")

const (
	// pgUniqueViolation はPostgreSQLの一意制約違反のエラーコード。
	pgUniqueViolation = "23505"
	// pgStringDataRightTruncation は文字列が列の長さを超えた場合のエラーコード。
	pgStringDataRightTruncation = "22001"
)

// mapPQError はlib/pqのエラーをリポジトリのエラーに変換する。
// 一意制約違反はErrDuplicateでラップし、違反した制約名を付与する。
// 長さ制限違反はErrValueTooLongでラップする。
func mapPQError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case pgUniqueViolation:
		return fmt.Errorf("%w: %s", ErrDuplicate, pqErr.Constraint)
	case pgStringDataRightTruncation:
		return fmt.Errorf("%w: %s", ErrValueTooLong, pqErr.Message)
	}
	return err
}
