package errors

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = errors.New("record was modified by another request, please reload and retry")

// ErrDuplicateKey 唯一约束冲突
var ErrDuplicateKey = errors.New("duplicate record")

// pgUniqueViolation PostgreSQL unique_violation
const pgUniqueViolation = "23505"

// IsUniqueViolation 判断错误是否为唯一约束冲突（pgx 原生错误或 gorm 翻译后的错误）
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDuplicateKey) || errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return false
}
