package config

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"strings"

	"github.com/a8m/envsubst"
	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"go.viam.com/imusim/logging"
)

// Read reads a config from the given file. Environment variables are substituted first, and
// files ending in .yaml or .yml are read as YAML.
func Read(
	ctx context.Context,
	filePath string,
	logger logging.Logger,
) (*Config, error) {
	buf, err := envsubst.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".yaml", ".yml":
		buf, err = yamlToJSON(buf)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to decode Config from yaml")
		}
	}
	return FromReader(ctx, filePath, bytes.NewReader(buf), logger)
}

// FromReader reads a JSON config from the given reader and specifies
// where, if applicable, the file the reader originated from.
func FromReader(
	ctx context.Context,
	originalPath string,
	r io.Reader,
	logger logging.Logger,
) (*Config, error) {
	cfg := Config{
		ConfigFilePath: originalPath,
	}
	if err := json.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, errors.Wrapf(err, "failed to decode Config from json")
	}
	if err := cfg.Ensure(); err != nil {
		return nil, errors.Wrapf(err, "failed to process Config")
	}
	logger.Debugw("read config", "path", originalPath, "bodies", len(cfg.Bodies), "sensors", len(cfg.Sensors))
	return &cfg, nil
}

func yamlToJSON(buf []byte) ([]byte, error) {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(buf, &raw); err != nil {
		return nil, err
	}
	return json.Marshal(raw)
}

// TransformAttributeMapToStruct decodes free form sensor attributes into to, which must be a
// pointer to a struct with json tags.
func TransformAttributeMapToStruct(to interface{}, attributes map[string]interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           to,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return errors.Wrap(err, "error creating decoder for config")
	}
	if err := decoder.Decode(attributes); err != nil {
		return errors.Wrap(err, "error decoding attributes")
	}
	return nil
}
