package service

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema.json
var declarationSchema []byte

// ErrInvalidDeclaration is wrapped by every schema violation.
var ErrInvalidDeclaration = errors.New("service declaration validation failed")

// Validate checks a JSON-normalized declaration against the embedded schema
func Validate(doc []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(declarationSchema),
		gojsonschema.NewBytesLoader(doc),
	)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}

	if !result.Valid() {
		var problems []string
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}
		return fmt.Errorf("%w:\n%s", ErrInvalidDeclaration, strings.Join(problems, "\n"))
	}

	return nil
}
