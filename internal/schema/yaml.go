package schema

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// yamlEntity is the YAML document form of a Schema.
//
//	name: UserProfile
//	table: users
//	fields:
//	  - name: id
//	    type: uuid
//	  - name: email
//	    type: string
//	    encrypted: true
//	    sanitize: lowercase
//	    required: true
type yamlEntity struct {
	Name   string      `yaml:"name"`
	Table  string      `yaml:"table,omitempty"`
	Fields []yamlField `yaml:"fields"`
}

type yamlField struct {
	Name      string `yaml:"name"`
	Type      string `yaml:"type"`
	Encrypted bool   `yaml:"encrypted,omitempty"`
	Sanitize  string `yaml:"sanitize,omitempty"`
	Column    string `yaml:"column,omitempty"`
	Required  bool   `yaml:"required,omitempty"`
	MaxLength int    `yaml:"max_length,omitempty"`
}

// ParseYAML decodes one or more `---` separated entity documents.
func ParseYAML(data []byte) ([]*Schema, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var out []*Schema
	for {
		var doc yamlEntity
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode schema document %d: %w", len(out)+1, err)
		}

		fields := make([]Field, 0, len(doc.Fields))
		for _, yf := range doc.Fields {
			ft := TypeString
			if yf.Type != "" {
				var err error
				if ft, err = ParseFieldType(yf.Type); err != nil {
					return nil, fmt.Errorf("%w: %s.%s: %v", ErrInvalidSchema, doc.Name, yf.Name, err)
				}
			}
			rule, err := ParseSanitizeRule(yf.Sanitize)
			if err != nil {
				return nil, fmt.Errorf("%w: %s.%s: %v", ErrInvalidSchema, doc.Name, yf.Name, err)
			}
			fields = append(fields, Field{
				Name:      yf.Name,
				Type:      ft,
				Encrypted: yf.Encrypted,
				Sanitize:  rule,
				Column:    yf.Column,
				Required:  yf.Required,
				MaxLength: yf.MaxLength,
			})
		}

		s, err := New(doc.Name, doc.Table, fields...)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no entity documents", ErrInvalidSchema)
	}
	return out, nil
}
