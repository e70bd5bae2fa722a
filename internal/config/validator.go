package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/quillforge/editorhost/internal/catalog"
	editorhosterrors "github.com/quillforge/editorhost/pkg/errors"
)

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate
)

func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New()

		_ = v.RegisterValidation("resolution_policy", func(fl validator.FieldLevel) bool {
			return catalog.Policy(fl.Field().String()).Valid()
		})

		validateInst = v
	})

	return validateInst
}

// Validate performs schema and cross-field validation on the configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return editorhosterrors.NewValidationError("config", "configuration is nil", nil)
	}

	v := validatorInstance()
	if err := v.Struct(cfg); err != nil {
		return convertValidationError(err)
	}

	seen := make(map[string]int, len(cfg.Plugins))
	for i, spec := range cfg.Plugins {
		if prev, exists := seen[spec.Name]; exists {
			return editorhosterrors.NewValidationError(
				fmt.Sprintf("plugins[%d].name", i),
				fmt.Sprintf("plugin %q already listed at plugins[%d]", spec.Name, prev),
				nil,
			)
		}
		seen[spec.Name] = i

		if spec.Premium && spec.ImportPath != "" {
			return editorhosterrors.NewValidationError(
				fmt.Sprintf("plugins[%d]", i),
				fmt.Sprintf("plugin %q cannot be both premium and custom-imported", spec.Name),
				nil,
			)
		}
	}

	for i, mime := range cfg.Upload.AllowedMIMETypes {
		if !strings.Contains(mime, "/") {
			return editorhosterrors.NewValidationError(
				fmt.Sprintf("upload.allowed_mime_types[%d]", i),
				fmt.Sprintf("%q is not a type/subtype MIME value", mime),
				nil,
			)
		}
	}

	return nil
}

func convertValidationError(err error) error {
	if err == nil {
		return nil
	}

	if ves, ok := err.(validator.ValidationErrors); ok {
		ve := ves[0]
		field := yamlishFieldName(ve)
		msg := fmt.Sprintf("%s failed validation for tag '%s'", field, ve.Tag())
		return editorhosterrors.NewValidationError(field, msg, err)
	}

	return editorhosterrors.NewValidationError("config", err.Error(), err)
}

func yamlishFieldName(fe validator.FieldError) string {
	ns := fe.StructNamespace()
	parts := strings.Split(ns, ".")
	var lowered []string
	for _, part := range parts {
		lowered = append(lowered, strings.ToLower(part))
	}
	return strings.Join(lowered, ".")
}
