package pipeline

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/fieldtrial/pkg/errors"
)

// LoadConfig reads a trial file. Files ending in .json are decoded as JSON,
// everything else as TOML. Unknown TOML keys are rejected so typos surface.
func LoadConfig(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "read config %s", path)
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return ParseJSON(data)
	}
	return ParseTOML(data)
}

// ParseTOML decodes TOML trial options.
func ParseTOML(data []byte) (Options, error) {
	var o Options
	md, err := toml.Decode(string(data), &o)
	if err != nil {
		return Options{}, errors.Wrap(errors.ErrCodeParse, err, "decode toml")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Options{}, errors.New(errors.ErrCodeInvalidConfig, "unknown config keys: %s", strings.Join(keys, ", "))
	}
	return o, nil
}

// ParseJSON decodes JSON trial options, rejecting unknown fields.
func ParseJSON(data []byte) (Options, error) {
	var o Options
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&o); err != nil {
		return Options{}, errors.Wrap(errors.ErrCodeParse, err, "decode json")
	}
	return o, nil
}

// EncodeTOML writes options as a TOML trial file.
func EncodeTOML(o Options) ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(o); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode toml")
	}
	return buf.Bytes(), nil
}
