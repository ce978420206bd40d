package models

import "errors"

var (
	// ErrNotFound — запись отсутствует в хранилище.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials — пароль не совпал.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidInput — входные данные не прошли нормализацию.
	ErrInvalidInput = errors.New("invalid input")
)
