package shipper

import "errors"

// Ошибки конфигурации shipper'а.
var (
	// ErrNoSources — конфигурация не содержит источников.
	ErrNoSources = errors.New("config has no sources")

	// ErrEmptySourceName — источник без имени.
	ErrEmptySourceName = errors.New("source has empty name")

	// ErrEmptySourcePath — источник без пути к файлу.
	ErrEmptySourcePath = errors.New("source has empty path")

	// ErrDuplicateSource — несколько источников с одним именем.
	ErrDuplicateSource = errors.New("duplicate source name")

	// ErrUnknownFormat — неизвестный формат строк источника.
	ErrUnknownFormat = errors.New("unknown source format")
)
