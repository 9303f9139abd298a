package redstone

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// DefaultLibraries are the script sources injected into the generated head,
// in load order.
var DefaultLibraries = []string{
	"js/jquery-2.2.1.min.js",
	"js/ractive-0.7.3.js",
	"js/objspy.js",
	"js/redstone.js",
}

// Options controls compilation. A document may override any field from its
// /* @settings */ chunks, written as YAML.
type Options struct {
	// RandomLength is the number of random characters in generated ids.
	RandomLength int `yaml:"random_length" validate:"min=4,max=64"`

	// SelfClosingBackslash renders void tags as <br /> instead of <br>.
	SelfClosingBackslash bool `yaml:"selfclosing_backslash"`

	// ServerHostname and ServerPort are where the client reaches the server
	// program for remote calls.
	ServerHostname string `yaml:"server_hostname" validate:"required,hostname_rfc1123|ip"`
	ServerPort     int    `yaml:"server_port" validate:"min=1,max=65535"`

	// IncludeSource embeds the source document in the generated head.
	IncludeSource bool `yaml:"include_source"`

	// Seed feeds the id generator.
	Seed uint64 `yaml:"seed"`

	// Minify compacts the generated HTML and server program.
	Minify bool `yaml:"minify"`

	// StrictEval makes the client runtime raise on unsupported expressions
	// instead of logging and yielding false.
	StrictEval bool `yaml:"strict_eval"`

	// Libraries replaces DefaultLibraries when set.
	Libraries []string `yaml:"libraries,omitempty" validate:"dive,required"`
}

// DefaultOptions returns the options used when a document sets none.
func DefaultOptions() Options {
	return Options{
		RandomLength:   32,
		ServerHostname: "localhost",
		ServerPort:     3000,
		Seed:           1,
		Libraries:      append([]string(nil), DefaultLibraries...),
	}
}

// Validate checks every field constraint.
func (o *Options) Validate() error {
	if err := validate.Struct(o); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", fe.Field(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidSettings, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	return nil
}

// ApplySettings decodes each settings chunk over o, in order, and validates
// the result. Unknown keys are rejected.
func (o *Options) ApplySettings(chunks []string) error {
	for _, chunk := range chunks {
		if strings.TrimSpace(chunk) == "" {
			continue
		}
		dec := yaml.NewDecoder(bytes.NewReader([]byte(chunk)))
		dec.KnownFields(true)
		if err := dec.Decode(o); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: %v", ErrInvalidSettings, err)
		}
	}
	return o.Validate()
}
