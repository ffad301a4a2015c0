package model

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Description is a serialisable view of a record schema.
type Description struct {
	Table             string             `yaml:"table,omitempty"`
	Type              string             `yaml:"type"`
	PartitionKey      string             `yaml:"partition_key,omitempty"`
	PartitionTemplate string             `yaml:"partition_template,omitempty"`
	SortKey           string             `yaml:"sort_key,omitempty"`
	Naming            string             `yaml:"naming"`
	Fields            []FieldDescription `yaml:"fields"`
}

// FieldDescription describes one mapped field.
type FieldDescription struct {
	Nested    *Description `yaml:"nested,omitempty"`
	Name      string       `yaml:"name"`
	Attribute string       `yaml:"attribute"`
	Kind      string       `yaml:"kind"`
	Key       string       `yaml:"key,omitempty"`
	Optional  bool         `yaml:"optional,omitempty"`
	OmitEmpty bool         `yaml:"omitempty,omitempty"`
}

// Describe returns the schema description.
func (m *Metadata) Describe() Description {
	d := Description{
		Table:  m.TableName,
		Type:   m.Type.String(),
		Naming: m.NamingConvention.String(),
		Fields: make([]FieldDescription, 0, len(m.Fields)),
	}
	if !m.nested {
		d.PartitionKey = m.PartitionKeyName
		if m.SortKey != nil {
			d.SortKey = m.SortKey.DBName
		}
		if m.PartitionTemplate != nil {
			d.PartitionTemplate = m.PartitionTemplate.String()
		}
	}

	for _, f := range m.Fields {
		fd := FieldDescription{
			Name:      f.Name,
			Attribute: f.DBName,
			Kind:      f.Kind.String(),
			Optional:  f.Optional,
			OmitEmpty: f.OmitEmpty,
		}
		switch {
		case f.IsPK:
			fd.Key = "partition"
		case f.IsSK:
			fd.Key = "sort"
		}
		if f.Nested != nil {
			nested := f.Nested.Describe()
			fd.Nested = &nested
		}
		d.Fields = append(d.Fields, fd)
	}
	return d
}

// WriteYAML writes the schema description as YAML.
func (m *Metadata) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(m.Describe()); err != nil {
		return fmt.Errorf("encode schema: %w", err)
	}
	return enc.Close()
}
