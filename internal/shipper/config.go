package shipper

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/shaiso/pubslog/internal/domain"
)

// Форматы строк источника.
const (
	// FormatPlain — строка целиком становится Message.
	FormatPlain = "plain"

	// FormatJSON — строка разбирается как JSON-объект:
	// поля level/message/msg/time извлекаются, остальное — в Attrs.
	FormatJSON = "json"
)

// SourceConfig — один отслеживаемый файл.
type SourceConfig struct {
	// Name — логическое имя источника (попадает в Record.Source).
	Name string `yaml:"name"`

	// Path — путь к файлу лога.
	Path string `yaml:"path"`

	// Format — формат строк: plain или json (default: plain).
	Format string `yaml:"format"`

	// Level — уровень для записей plain-формата и записей без уровня
	// (default: INFO).
	Level string `yaml:"level"`

	// FromStart — читать файл с начала, а не с конца.
	FromStart bool `yaml:"from_start"`
}

// Config — конфигурация shipper'а, загружается из YAML-файла.
type Config struct {
	// Sources — отслеживаемые файлы.
	Sources []SourceConfig `yaml:"sources"`

	// BatchSize — максимум записей в батче (default: 1000).
	BatchSize int `yaml:"batch_size"`

	// QueueSize — ёмкость очереди публикации (default: 65536).
	QueueSize int `yaml:"queue_size"`

	// Workers — количество worker'ов публикации (default: 1).
	Workers int `yaml:"workers"`

	// Retry — количество попыток публикации батча (default: 10).
	Retry int `yaml:"retry"`
}

// LoadConfig читает и валидирует конфигурацию из YAML-файла.
func LoadConfig(path string) (*Config, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(body, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate проверяет конфигурацию и заполняет значения по умолчанию.
func (c *Config) Validate() error {
	if len(c.Sources) == 0 {
		return ErrNoSources
	}

	seen := make(map[string]bool, len(c.Sources))
	for i := range c.Sources {
		src := &c.Sources[i]

		if src.Name == "" {
			return fmt.Errorf("%w: source %d", ErrEmptySourceName, i)
		}
		if seen[src.Name] {
			return fmt.Errorf("%w: %s", ErrDuplicateSource, src.Name)
		}
		seen[src.Name] = true

		if src.Path == "" {
			return fmt.Errorf("%w: source %s", ErrEmptySourcePath, src.Name)
		}

		switch src.Format {
		case "":
			src.Format = FormatPlain
		case FormatPlain, FormatJSON:
		default:
			return fmt.Errorf("%w: %s (source %s)", ErrUnknownFormat, src.Format, src.Name)
		}

		if src.Level == "" {
			src.Level = string(domain.LevelInfo)
		}
	}

	return nil
}
