package config

import (
	"os"
	"regexp"
	"strconv"

	"gopkg.in/yaml.v3"

	editorhosterrors "github.com/quillforge/editorhost/pkg/errors"
)

var yamlLinePattern = regexp.MustCompile(`line (\d+):`)

// ParseFile loads, parses and validates a YAML configuration document.
func ParseFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, editorhosterrors.NewParseError(path, 0, err)
	}
	return Parse(data, path)
}

// Parse decodes YAML bytes over the defaults and validates the result. The
// path parameter is used only for error reporting.
func Parse(data []byte, path string) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, editorhosterrors.NewParseError(path, yamlErrorLine(err), err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func yamlErrorLine(err error) int {
	if err == nil {
		return 0
	}
	match := yamlLinePattern.FindStringSubmatch(err.Error())
	if len(match) != 2 {
		return 0
	}
	line, convErr := strconv.Atoi(match[1])
	if convErr != nil {
		return 0
	}
	return line
}
