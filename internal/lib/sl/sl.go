// Package sl содержит вспомогательные функции для работы с логгером slog.
// Основная цель — упростить формирование структурированных полей лога,
// например, для передачи информации об ошибках.
package sl

import "log/slog"

// Err возвращает slog.Attr с ключом "error" и значением текста ошибки.
// Удобно использовать в логировании для единообразного вывода ошибок.
//
// Пример:
//
//	log.Error("failed to do something", sl.Err(err))
func Err(err error) slog.Attr {
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}

// Secret возвращает slog.Attr, маскирующий чувствительное значение.
// В лог попадают только первые четыре символа, остальное заменяется
// многоточием. Для пустых значений выводится "<empty>".
func Secret(key, value string) slog.Attr {
	masked := "<empty>"
	if len(value) > 4 {
		masked = value[:4] + "..."
	} else if value != "" {
		masked = "..."
	}
	return slog.Attr{
		Key:   key,
		Value: slog.StringValue(masked),
	}
}
