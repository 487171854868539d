package domain

import "strings"

// Level — уровень логирования записи.
//
// Порядок важности: DEBUG < INFO < WARN < ERROR.
type Level string

const (
	// LevelDebug — отладочные записи.
	LevelDebug Level = "DEBUG"

	// LevelInfo — информационные записи.
	LevelInfo Level = "INFO"

	// LevelWarn — предупреждения.
	LevelWarn Level = "WARN"

	// LevelError — ошибки.
	LevelError Level = "ERROR"
)

// severity — числовой вес уровня для сравнения.
func (l Level) severity() int {
	switch l {
	case LevelDebug:
		return 0
	case LevelInfo:
		return 1
	case LevelWarn:
		return 2
	case LevelError:
		return 3
	default:
		return 1
	}
}

// AtLeast возвращает true, если уровень не ниже min.
func (l Level) AtLeast(min Level) bool {
	return l.severity() >= min.severity()
}

// IsValid проверяет, что уровень — один из известных.
func (l Level) IsValid() bool {
	switch l {
	case LevelDebug, LevelInfo, LevelWarn, LevelError:
		return true
	default:
		return false
	}
}

// ParseLevel разбирает строку в Level.
// Регистр не важен; неизвестные значения превращаются в INFO.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR", "ERR", "FATAL":
		return LevelError
	default:
		return LevelInfo
	}
}
