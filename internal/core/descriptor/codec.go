package descriptor

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/Ning0612/snapsync/internal/domain"
)

// SchemaVersion is the descriptor schema this loader understands.
// Producers must bump it on any incompatible change to the wire shape.
const SchemaVersion = 1

// DefaultName is the well-known descriptor file name
const DefaultName = "descriptor.json"

// Format identifies a descriptor serialization
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// record is the wire shape shared with the descriptor producer
type record struct {
	Version int               `json:"version,omitempty" yaml:"version,omitempty" toml:"version,omitempty"`
	SHA     string            `json:"sha" yaml:"sha" toml:"sha"`
	Files   map[string]string `json:"files" yaml:"files" toml:"files"`
}

// FormatFor picks the serialization from the descriptor file name
func FormatFor(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", "":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("unsupported descriptor extension: %q", filepath.Ext(name))
	}
}

// Decode parses descriptor bytes; the format is chosen from name
func Decode(name string, data []byte) (domain.Descriptor, error) {
	format, err := FormatFor(name)
	if err != nil {
		return domain.Descriptor{}, fmt.Errorf("%w: %v", domain.ErrDescriptorParse, err)
	}

	var rec record
	switch format {
	case FormatJSON:
		err = decodeJSON(data, &rec)
	case FormatYAML:
		err = decodeYAML(data, &rec)
	case FormatTOML:
		_, err = toml.Decode(string(data), &rec)
	}
	if err != nil {
		return domain.Descriptor{}, fmt.Errorf("%w: %v", domain.ErrDescriptorParse, err)
	}

	if rec.Version == 0 {
		rec.Version = SchemaVersion
	}
	if rec.Version != SchemaVersion {
		return domain.Descriptor{}, fmt.Errorf("%w: got %d, want %d",
			domain.ErrUnsupportedVersion, rec.Version, SchemaVersion)
	}

	// A blank whole hash would equal the empty local state and skip the install
	if strings.TrimSpace(rec.SHA) == "" {
		return domain.Descriptor{}, fmt.Errorf("%w: missing sha", domain.ErrDescriptorParse)
	}
	if rec.Files == nil {
		return domain.Descriptor{}, fmt.Errorf("%w: missing files", domain.ErrDescriptorParse)
	}

	entries := make(map[string]string, len(rec.Files))
	for p, hash := range rec.Files {
		clean, err := cleanPath(p)
		if err != nil {
			return domain.Descriptor{}, err
		}
		if _, dup := entries[clean]; dup {
			return domain.Descriptor{}, fmt.Errorf("%w: duplicate path %q", domain.ErrInvalidPath, clean)
		}
		entries[clean] = hash
	}

	return domain.NewDescriptor(rec.SHA, entries), nil
}

// decodeJSON decodes exactly one JSON value; anything after it is an error
func decodeJSON(data []byte, rec *record) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(rec); err != nil {
		return err
	}
	var extra json.RawMessage
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return errors.New("unexpected data after the descriptor")
	}
	return nil
}

// decodeYAML decodes exactly one YAML document
func decodeYAML(data []byte, rec *record) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(rec); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty document")
		}
		return err
	}
	var extra yaml.Node
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return errors.New("unexpected document after the descriptor")
	}
	return nil
}

// Encode serializes a descriptor; the format is chosen from name
func Encode(name string, d domain.Descriptor) ([]byte, error) {
	format, err := FormatFor(name)
	if err != nil {
		return nil, err
	}

	rec := record{
		Version: SchemaVersion,
		SHA:     d.WholeHash(),
		Files:   d.Entries(),
	}

	switch format {
	case FormatYAML:
		return yaml.Marshal(&rec)
	case FormatTOML:
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(rec); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		data, err := json.MarshalIndent(rec, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	}
}

// cleanPath normalizes an entry path to slash form and rejects anything
// that is not a relative path inside the root
func cleanPath(p string) (string, error) {
	slashed := strings.ReplaceAll(p, "\\", "/")
	if strings.TrimSpace(slashed) == "" {
		return "", fmt.Errorf("%w: empty path", domain.ErrInvalidPath)
	}
	if strings.HasPrefix(slashed, "/") || filepath.IsAbs(p) {
		return "", fmt.Errorf("%w: %q is absolute", domain.ErrInvalidPath, p)
	}

	clean := path.Clean(slashed)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: %q escapes the root", domain.ErrInvalidPath, p)
	}
	return clean, nil
}
