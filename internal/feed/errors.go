package feed

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingEndpoint — endpoint не настроен, сетевой вызов не выполнялся
	ErrMissingEndpoint = errors.New("no API endpoint configured")
	// ErrTransport — сетевая ошибка, причина завёрнута через %w
	ErrTransport = errors.New("feed transport error")
	// ErrBadResponse — HTTP статус вне [200,300), подробности в *BadResponseError
	ErrBadResponse = errors.New("unexpected API status")
	// ErrBadPayload — тело не JSON или не массив записей
	ErrBadPayload = errors.New("cannot parse API response")
)

// BadResponseError несёт HTTP статус неуспешного ответа фида
type BadResponseError struct {
	StatusCode int
}

func (e *BadResponseError) Error() string {
	return fmt.Sprintf("%s (%d)", ErrBadResponse.Error(), e.StatusCode)
}

// Is позволяет проверять errors.Is(err, ErrBadResponse)
func (e *BadResponseError) Is(target error) bool {
	return target == ErrBadResponse
}
