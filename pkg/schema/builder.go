package schema

import (
	"reflect"
	"strings"

	"go.uber.org/zap"
)

// MaxDepth is the default cap on the visitation chain length.
const MaxDepth = 10000

// Option configures a FieldBuilder.
type Option func(*FieldBuilder)

// WithLogger sets the logger used for cycle warnings.
func WithLogger(l *zap.Logger) Option {
	return func(b *FieldBuilder) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithMaxDepth overrides MaxDepth. Values below 1 are ignored.
func WithMaxDepth(depth int) Option {
	return func(b *FieldBuilder) {
		if depth > 0 {
			b.maxDepth = depth
		}
	}
}

// FieldBuilder turns struct types into search fields. It keeps no state
// between calls and may be shared between goroutines.
type FieldBuilder struct {
	logger   *zap.Logger
	maxDepth int
}

// NewFieldBuilder creates a builder. The logger defaults to zap.L().
func NewFieldBuilder(opts ...Option) *FieldBuilder {
	b := &FieldBuilder{logger: zap.L(), maxDepth: MaxDepth}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// MaxDepth returns the configured depth cap.
func (b *FieldBuilder) MaxDepth() int { return b.maxDepth }

// BuildFields builds the fields of v's type with a default builder.
// v may be a struct value, a pointer to one, or a reflect.Type.
func BuildFields(v any) ([]SearchField, error) {
	if t, ok := v.(reflect.Type); ok {
		return NewFieldBuilder().Build(t)
	}
	return NewFieldBuilder().Build(reflect.TypeOf(v))
}

// FieldsFor builds the fields of T with a default builder.
func FieldsFor[T any]() ([]SearchField, error) {
	return NewFieldBuilder().Build(reflect.TypeOf((*T)(nil)).Elem())
}

// Build maps every exported field of t onto a SearchField.
func (b *FieldBuilder) Build(t reflect.Type) ([]SearchField, error) {
	if t == nil {
		return nil, configErr("<nil>", "", "a struct type is required")
	}
	t = indirect(t)
	if t.Kind() != reflect.Struct {
		return nil, configErr(t.String(), "", "a struct type is required")
	}
	return b.walk(t, []reflect.Type{t})
}

// walk builds the fields of t, the last type of chain.
func (b *FieldBuilder) walk(t reflect.Type, chain []reflect.Type) ([]SearchField, error) {
	if len(chain) > b.maxDepth {
		return nil, &ConfigurationError{Type: t.String(), Reason: ErrGraphTooDeep.Error(), err: ErrGraphTooDeep}
	}
	fields := make([]SearchField, 0, t.NumField())
	for _, sf := range declaredFields(t) {
		field, err := b.buildField(t, sf, chain)
		if err != nil {
			return nil, err
		}
		fields = append(fields, field)
	}
	return fields, nil
}

func (b *FieldBuilder) buildField(owner reflect.Type, sf reflect.StructField, chain []reflect.Type) (SearchField, error) {
	name := fieldName(sf)
	shape, reason := classify(sf.Type)
	if reason != "" {
		return SearchField{}, configErr(owner.String(), sf.Name, reason)
	}
	opts, reason := parseTag(sf.Tag.Get(tagName))
	if reason != "" {
		return SearchField{}, configErr(owner.String(), sf.Name, reason)
	}
	if reason = opts.resolve(shape.dataType); reason != "" {
		return SearchField{}, configErr(owner.String(), sf.Name, reason)
	}
	if !shape.complex() {
		return newSimpleField(name, shape.dataType, opts), nil
	}

	if inChain(chain, shape.elem) {
		b.logger.Warn("schema: cycle detected, nested fields skipped",
			zap.String("type", shape.elem.String()),
			zap.String("field", owner.String()+"."+sf.Name),
			zap.String("chain", chainString(chain)),
		)
		return newComplexField(name, shape.dataType, nil), nil
	}
	next := append(chain[:len(chain):len(chain)], shape.elem)
	nested, err := b.walk(shape.elem, next)
	if err != nil {
		return SearchField{}, err
	}
	return newComplexField(name, shape.dataType, nested), nil
}

// candidate is a field reachable from the walked type, possibly promoted
// from an embedded struct depth levels down.
type candidate struct {
	sf     reflect.StructField
	name   string
	depth  int
	tagged bool
}

// declaredFields lists the exported, non-ignored fields of t, with the
// fields of untagged embedded structs promoted into place. Name clashes are
// settled like encoding/json: the shallowest field wins, a json-tagged field
// breaks a tie at the same depth, and an unresolved tie hides every field of
// that name.
func declaredFields(t reflect.Type) []reflect.StructField {
	var all []candidate
	var visit func(t reflect.Type, depth int, path map[reflect.Type]bool)
	visit = func(t reflect.Type, depth int, path map[reflect.Type]bool) {
		path[t] = true
		defer delete(path, t)
		for i := 0; i < t.NumField(); i++ {
			sf := t.Field(i)
			if ignored(sf) {
				continue
			}
			if sf.Anonymous {
				et := indirect(sf.Type)
				if et.Kind() == reflect.Struct && fieldName(sf) == sf.Name && namedTypes[et] == "" {
					if !path[et] {
						visit(et, depth+1, path)
					}
					continue
				}
			}
			if !sf.IsExported() {
				continue
			}
			all = append(all, candidate{sf: sf, name: fieldName(sf), depth: depth, tagged: hasJSONName(sf)})
		}
	}
	visit(t, 0, map[reflect.Type]bool{})

	byName := make(map[string][]int, len(all))
	for i, c := range all {
		byName[c.name] = append(byName[c.name], i)
	}
	out := make([]reflect.StructField, 0, len(all))
	for i, c := range all {
		if dominant(all, byName[c.name]) == i {
			out = append(out, c.sf)
		}
	}
	return out
}

// dominant picks the field that owns a name among the candidates at idx,
// or -1 when none does.
func dominant(all []candidate, idx []int) int {
	if len(idx) == 1 {
		return idx[0]
	}
	depth := all[idx[0]].depth
	for _, i := range idx[1:] {
		depth = min(depth, all[i].depth)
	}
	var shallow []int
	for _, i := range idx {
		if all[i].depth == depth {
			shallow = append(shallow, i)
		}
	}
	if len(shallow) == 1 {
		return shallow[0]
	}
	winner := -1
	for _, i := range shallow {
		if all[i].tagged {
			if winner >= 0 {
				return -1
			}
			winner = i
		}
	}
	return winner
}

func inChain(chain []reflect.Type, t reflect.Type) bool {
	for _, c := range chain {
		if c == t {
			return true
		}
	}
	return false
}

func chainString(chain []reflect.Type) string {
	names := make([]string, len(chain))
	for i, c := range chain {
		names[i] = c.String()
	}
	return strings.Join(names, " -> ")
}
