package lfas

import "fmt"

// FieldTag identifies one of the fixed structured fields of an address
// record. The set is closed: adding a field requires recompilation and
// reindexing, since posting-list keys embed the tag byte directly.
type FieldTag uint8

const (
	FieldStreet FieldTag = iota
	FieldStreetType
	FieldNumber
	FieldComplement
	FieldNeighborhood
	FieldCity
	FieldState
	FieldPostalCode
	FieldName

	fieldTagCount
)

// fieldNames maps each FieldTag to its canonical lowercase name, matching
// the column names a bulk ingestion caller would use.
var fieldNames = map[FieldTag]string{
	FieldStreet:       "rua",
	FieldStreetType:   "tipo_logradouro",
	FieldNumber:       "numero",
	FieldComplement:   "complemento",
	FieldNeighborhood: "bairro",
	FieldCity:         "municipio",
	FieldState:        "estado",
	FieldPostalCode:   "cep",
	FieldName:         "nome",
}

var fieldsByName = func() map[string]FieldTag {
	m := make(map[string]FieldTag, len(fieldNames))
	for tag, name := range fieldNames {
		m[name] = tag
	}
	return m
}()

// AllFieldTags returns every field tag in a fixed, stable order.
func AllFieldTags() []FieldTag {
	tags := make([]FieldTag, 0, fieldTagCount)
	for t := FieldTag(0); t < fieldTagCount; t++ {
		tags = append(tags, t)
	}
	return tags
}

// String returns the canonical lowercase name of the field.
func (f FieldTag) String() string {
	if name, ok := fieldNames[f]; ok {
		return name
	}
	return fmt.Sprintf("FieldTag(%d)", uint8(f))
}

// ParseFieldTag resolves a canonical field name to its tag.
func ParseFieldTag(name string) (FieldTag, error) {
	if tag, ok := fieldsByName[name]; ok {
		return tag, nil
	}
	return 0, &ConfigError{Message: fmt.Sprintf("unknown field %q", name)}
}

// Valid reports whether f is one of the fixed, known field tags.
func (f FieldTag) Valid() bool {
	return f < fieldTagCount
}
