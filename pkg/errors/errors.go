package errors

import "errors"

// Общие ошибки адаптеров платформы
var (
	// ErrCacheMiss значение в кэше не найдено
	ErrCacheMiss = errors.New("cache miss")

	// ErrLockNotAcquired блокировка уже удерживается другим процессом
	ErrLockNotAcquired = errors.New("lock is held by another process")

	// ErrLockLost блокировка истекла до освобождения
	ErrLockLost = errors.New("lock expired before release")

	// ErrUnauthorized токен отсутствует или недействителен
	ErrUnauthorized = errors.New("unauthorized")
)
