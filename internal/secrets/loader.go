package secrets

import (
	"fmt"
	"os"
	"strings"
)

// Source describes where a secret comes from.
type Source struct {
	// Name is used in error messages to give more context about the secret.
	Name string
	// Value is an inline secret value provided via configuration or the environment.
	Value string
	// File points to a file containing the secret value, e.g. a mounted
	// container secret. When set it takes precedence over Value.
	File string
	// Hint tells the operator how to provide the secret. It is appended to errors.
	Hint string
}

// Load returns the trimmed secret. A file wins over the inline value. Only the
// first line of a file is used so that files ending with comments or extra
// newlines still work.
func Load(src Source) (string, error) {
	name := strings.TrimSpace(src.Name)
	if name == "" {
		name = "secret"
	}

	file := strings.TrimSpace(src.File)
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", src.wrap(fmt.Errorf("reading %s from file %q: %w", name, file, err))
		}
		first, _, _ := strings.Cut(strings.TrimLeft(string(data), "\r\n\t "), "\n")
		src.Value = first
		src.File = file
	}

	secret := strings.TrimSpace(src.Value)
	if secret == "" {
		if src.File != "" {
			return "", src.wrap(fmt.Errorf("%s file %q is empty", name, src.File))
		}
		return "", src.wrap(fmt.Errorf("%s is not configured", name))
	}

	return secret, nil
}

func (s Source) wrap(err error) error {
	if hint := strings.TrimSpace(s.Hint); hint != "" {
		return fmt.Errorf("%w (%s)", err, hint)
	}
	return err
}
