package dataset

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"flexShop/internal/jobshop"
	"flexShop/internal/logging"
)

// Loader читает экземпляры с диска, формат определяется по расширению.
type Loader struct {
	logger *zap.Logger
}

func NewLoader(logger *zap.Logger) *Loader {
	return &Loader{logger: logging.OrNop(logger)}
}

// Load читает файл и собирает экземпляр. Имя по умолчанию - имя файла без расширения.
func (l *Loader) Load(path string) (*File, *jobshop.Instance, error) {
	r, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer r.Close()

	f, err := read(r, path)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	if f.Name == "" {
		f.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	inst, err := f.Instance()
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}

	l.logger.Info("instance loaded",
		zap.String("path", path),
		zap.String("name", f.Name),
		zap.Int("jobs", inst.Jobs),
		zap.Int("machines", inst.Machines),
		zap.Int("tasks", inst.NumTasks()),
		zap.Bool("setup", inst.Setup != nil),
	)
	return f, inst, nil
}

func read(r io.Reader, path string) (*File, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".fjs", ".txt":
		return ParseFJS(r)
	case ".yaml", ".yml":
		return ReadYAML(r)
	default:
		return nil, fmt.Errorf("unknown instance format %q", filepath.Ext(path))
	}
}

// Save пишет экземпляр в формате по расширению пути.
func Save(path string, f *File) error {
	var write func(io.Writer, *File) error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".fjs", ".txt":
		write = WriteFJS
	case ".yaml", ".yml":
		write = WriteYAML
	default:
		return fmt.Errorf("unknown instance format %q", filepath.Ext(path))
	}
	if d := filepath.Dir(path); d != "." {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return err
		}
	}
	w, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(w, f); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}
