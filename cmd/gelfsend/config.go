package main

import (
	"fmt"
	"io"
	"os"

	"github.com/bitdabbler/gelf"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config holds the file-based configuration for gelfsend. Every value can be
// overridden by a command line flag.
type Config struct {
	Servers         []string          `yaml:"servers"`
	Host            string            `yaml:"host"`
	Facility        string            `yaml:"facility"`
	Level           string            `yaml:"level"`
	BufferSize      int               `yaml:"buffer_size"`
	Compression     string            `yaml:"compression"`
	CompressionType string            `yaml:"compression_type"`
	Fields          map[string]string `yaml:"fields"`
	Verbose         bool              `yaml:"verbose"`
}

// DefaultConfig returns a Config with all default values.
func DefaultConfig() *Config {
	return &Config{
		Level:           "info",
		BufferSize:      gelf.DefaultBufferSize,
		Compression:     "optimal",
		CompressionType: "zlib",
	}
}

// Load reads a YAML config, applying defaults for any value the document
// omits.
func Load(r io.Reader) (*Config, error) {
	cfg := DefaultConfig()

	dec := yaml.NewDecoder(r)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "failed to decode config")
	}

	return cfg, nil
}

// LoadConfig reads the YAML config file at path.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open config file %q", path)
	}
	defer f.Close()

	cfg, err := Load(f)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load config file %q", path)
	}
	return cfg, nil
}

// Endpoints parses the configured server addresses.
func (c *Config) Endpoints() ([]gelf.Endpoint, error) {
	if len(c.Servers) == 0 {
		return nil, errors.New("at least one server is required")
	}

	eps := make([]gelf.Endpoint, 0, len(c.Servers))
	for _, s := range c.Servers {
		ep, err := gelf.ParseEndpoint(s)
		if err != nil {
			return nil, errors.Wrap(err, "invalid server")
		}
		eps = append(eps, ep)
	}
	return eps, nil
}

// ClientOptions converts the config into resolved gelf.ClientOptions.
func (c *Config) ClientOptions() (*gelf.ClientOptions, error) {
	mode, err := gelf.ParseCompressionMode(c.Compression)
	if err != nil {
		return nil, err
	}
	typ, err := gelf.ParseCompressType(c.CompressionType)
	if err != nil {
		return nil, err
	}

	return &gelf.ClientOptions{
		Host:            c.Host,
		Facility:        c.Facility,
		BufferSize:      c.BufferSize,
		CompressionMode: mode,
		CompressionType: typ,
		Verbose:         c.Verbose,
	}, nil
}

// SeverityLevel parses the configured severity name.
func (c *Config) SeverityLevel() (gelf.Level, error) {
	return gelf.ParseLevel(c.Level)
}

// MessageFields converts the configured additional fields into gelf.Fields.
func (c *Config) MessageFields() gelf.Fields {
	if len(c.Fields) == 0 {
		return nil
	}
	fields := make(gelf.Fields, len(c.Fields))
	for k, v := range c.Fields {
		fields[k] = v
	}
	return fields
}

func (c *Config) String() string {
	return fmt.Sprintf("servers: %v, level: %s, compression: %s/%s, buffer: %d",
		c.Servers, c.Level, c.Compression, c.CompressionType, c.BufferSize)
}
