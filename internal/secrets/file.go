package secrets

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// FileProvider resolves secrets from a single file (JSON, YAML, or dotenv)
// or unions them across every recognized file in a directory (spec.md
// §4.3, §6.5). Values are read fresh on every Get rather than cached here —
// caching is the Manager's job.
type FileProvider struct {
	path string
}

// NewFileProvider expands a leading `~/` against the user's home directory
// and stores the resulting path.
func NewFileProvider(path string) (*FileProvider, error) {
	expanded, err := expandTilde(path)
	if err != nil {
		return nil, err
	}
	return &FileProvider{path: expanded}, nil
}

func expandTilde(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") && path != "~" {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, path[2:]), nil
}

func (p *FileProvider) Name() string { return "file" }

func (p *FileProvider) Get(name string) (Secret, error) {
	if err := ValidateSecretName(name); err != nil {
		return Secret{}, err
	}
	all, err := p.readAll()
	if err != nil {
		return Secret{}, err
	}
	v, ok := all[name]
	if !ok {
		return Secret{}, notFound(name)
	}
	return Secret{name: name, value: v, provider: p.Name(), fetchedAt: time.Now()}, nil
}

func (p *FileProvider) List() ([]string, error) {
	all, err := p.readAll()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(all))
	for k := range all {
		names = append(names, k)
	}
	sort.Strings(names)
	return names, nil
}

func (p *FileProvider) Health() error {
	_, err := os.Stat(p.path)
	return err
}

// readAll unions secrets across every recognized file reachable from p.path.
func (p *FileProvider) readAll() (map[string]string, error) {
	info, err := os.Stat(p.path)
	if err != nil {
		return nil, invalidFormat("cannot stat secrets path: " + err.Error())
	}

	if !info.IsDir() {
		return parseSecretFile(p.path)
	}

	entries, err := os.ReadDir(p.path)
	if err != nil {
		return nil, invalidFormat("cannot read secrets directory: " + err.Error())
	}

	merged := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !isRecognizedSecretFile(entry.Name()) {
			continue
		}
		m, err := parseSecretFile(filepath.Join(p.path, entry.Name()))
		if err != nil {
			continue // skip unparsable files, union best-effort across the dir
		}
		for k, v := range m {
			merged[k] = v
		}
	}
	return merged, nil
}

func isRecognizedSecretFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".json", ".yaml", ".yml", ".env":
		return true
	default:
		return name == ".env"
	}
}

func parseSecretFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, invalidFormat("cannot read secrets file: " + err.Error())
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		var m map[string]string
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, invalidFormat("invalid JSON secrets file: " + err.Error())
		}
		return m, nil
	case ".yaml", ".yml":
		var m map[string]string
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, invalidFormat("invalid YAML secrets file: " + err.Error())
		}
		return m, nil
	default:
		// dotenv: `#` comments, KEY=VALUE, optional single/double quotes.
		m, err := godotenv.Unmarshal(string(data))
		if err != nil {
			return nil, invalidFormat("invalid dotenv secrets file: " + err.Error())
		}
		return m, nil
	}
}
