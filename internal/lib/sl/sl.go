// Package sl содержит вспомогательные функции для работы с логгером slog:
// единообразные атрибуты для ошибок и идентификаторов операций.
package sl

import "log/slog"

// Err возвращает slog.Attr с ключом "error" и текстом ошибки.
// Для nil возвращается пустая строка, чтобы вызов в defer-ветках был безопасен.
//
// Пример:
//
//	log.Error("failed to do something", sl.Err(err))
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}

// Op возвращает атрибут с именем операции.
func Op(op string) slog.Attr {
	return slog.String("op", op)
}
