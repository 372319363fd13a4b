package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/fulmenhq/staticpush/pkg/logger"
)

// DeclarationBase is the file name, without extension, of a service declaration.
const DeclarationBase = "staticpush-service"

// declarationExts lists the accepted declaration formats in lookup order.
var declarationExts = []string{".json", ".jsonc", ".yaml", ".yml", ".toml"}

// ErrNoDeclaration is returned when a repository has no service declaration.
var ErrNoDeclaration = errors.New("no service declaration")

// Loader resolves a repository into its service declaration.
type Loader interface {
	Load(repo, repoPath string) (*Service, error)
}

// FileLoader reads declarations from the repository root.
type FileLoader struct{}

// Load reads and validates the declaration of the repository at repoPath. A repository
// without a declaration yields a Service with no assets, which Filter drops.
func (FileLoader) Load(repo, repoPath string) (*Service, error) {
	svc := &Service{Repo: repo, Path: repoPath, Name: repo}

	file, err := findDeclaration(repoPath)
	if errors.Is(err, ErrNoDeclaration) {
		logger.Debug(fmt.Sprintf("No service declaration in %s", repoPath))
		return svc, nil
	}
	if err != nil {
		return nil, err
	}

	decl, err := ReadDeclaration(file)
	if err != nil {
		return nil, err
	}

	if decl.Service.Name != "" {
		svc.Name = decl.Service.Name
	}
	svc.Tags = decl.Tags
	svc.Build = decl.Build
	svc.Assets = decl.Assets
	svc.Files = decl.Files
	return svc, nil
}

// LoadAll loads each repository with l. The first error aborts.
func LoadAll(l Loader, repos []string, resolve func(string) string) ([]*Service, error) {
	services := make([]*Service, 0, len(repos))
	for _, repo := range repos {
		svc, err := l.Load(repo, resolve(repo))
		if err != nil {
			return nil, fmt.Errorf("load service %s: %w", repo, err)
		}
		services = append(services, svc)
	}
	return services, nil
}

func findDeclaration(repoPath string) (string, error) {
	for _, ext := range declarationExts {
		p := filepath.Join(repoPath, DeclarationBase+ext)
		st, err := os.Stat(p)
		if err == nil && st.Mode().IsRegular() {
			return p, nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
	}
	return "", ErrNoDeclaration
}

// ReadDeclaration parses and validates a declaration file of any accepted format.
func ReadDeclaration(file string) (*Declaration, error) {
	// #nosec G304 -- file is a fixed name joined onto a configured repository path
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", file, err)
	}
	doc, err := toJSON(filepath.Ext(file), data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", file, err)
	}
	if err := Validate(doc); err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	var decl Declaration
	if err := json.Unmarshal(doc, &decl); err != nil {
		return nil, fmt.Errorf("decode %s: %w", file, err)
	}
	return &decl, nil
}

// toJSON normalizes a declaration document to plain JSON so one schema and one decoder
// serve every format.
func toJSON(ext string, data []byte) ([]byte, error) {
	switch ext {
	case ".json", ".jsonc":
		return jsonc.ToJSON(data), nil
	case ".yaml", ".yml":
		var doc map[string]any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
		return json.Marshal(doc)
	case ".toml":
		var doc map[string]any
		if err := toml.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
		return json.Marshal(doc)
	}
	return nil, fmt.Errorf("unsupported declaration format %q", ext)
}
