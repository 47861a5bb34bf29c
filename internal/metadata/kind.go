package metadata

// Field types understood by the validator and the migrator.
const (
	TypeString  = "string"
	TypeText    = "text"
	TypeBoolean = "boolean"
	TypeDecimal = "decimal"
	TypeRef     = "ref"  // nullable pointer to another kind's id
	TypeRefs    = "refs" // set of ids of another kind, kept in a join table
)

// PrimaryKey is the generated integer id column every kind carries.
const PrimaryKey = "id"

type SlugConfig struct {
	Field  string `json:"field"`  // slug field name
	Source string `json:"source"` // auto-generate from this field when the slug is not supplied
}

// Kind is the field contract of one record kind.
type Kind struct {
	Name   string      `json:"name"`
	Table  string      `json:"table"`
	Fields []Field     `json:"fields"`
	Slug   *SlugConfig `json:"slug,omitempty"`
	Rules  []*Rule     `json:"rules,omitempty"`
}

type Field struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable,omitempty"`
	Unique   bool   `json:"unique,omitempty"`
	Default  any    `json:"default,omitempty"`

	// Target is the referenced kind for ref and refs fields.
	Target string `json:"target,omitempty"`

	// Join table layout for refs fields.
	JoinTable  string `json:"join_table,omitempty"`
	JoinSource string `json:"join_source,omitempty"`
	JoinTarget string `json:"join_target,omitempty"`
}

// IsColumn reports whether the field is stored as a column of the kind's own table.
func (f Field) IsColumn() bool {
	return f.Type != TypeRefs
}

// DefaultValue is the value a created record gets when the payload omits the field.
func (f Field) DefaultValue() any {
	if f.Default != nil {
		return f.Default
	}
	if f.Type == TypeRefs {
		return []int64{}
	}
	return nil
}

// GetField returns a pointer to the field with the given name, or nil.
func (k *Kind) GetField(name string) *Field {
	for i := range k.Fields {
		if k.Fields[i].Name == name {
			return &k.Fields[i]
		}
	}
	return nil
}

// Columns returns the id column followed by every column-backed field.
func (k *Kind) Columns() []string {
	cols := []string{PrimaryKey}
	for _, f := range k.Fields {
		if f.IsColumn() {
			cols = append(cols, f.Name)
		}
	}
	return cols
}

// ManyToMany returns the refs fields.
func (k *Kind) ManyToMany() []Field {
	var fields []Field
	for _, f := range k.Fields {
		if f.Type == TypeRefs {
			fields = append(fields, f)
		}
	}
	return fields
}

// BooleanFields returns the names of boolean fields.
func (k *Kind) BooleanFields() []string {
	var names []string
	for _, f := range k.Fields {
		if f.Type == TypeBoolean {
			names = append(names, f.Name)
		}
	}
	return names
}
