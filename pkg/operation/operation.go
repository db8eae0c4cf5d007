package operation

import (
	"fmt"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"

	"github.com/graphbind-io/graphbind/pkg/errors"
)

// Kind identifies what an operation does when executed
type Kind string

const (
	KindQuery    Kind = "query"
	KindMutation Kind = "mutation"
)

// Descriptor is an immutable parsed GraphQL operation. It is safe to share
// one Descriptor across any number of bindings.
type Descriptor struct {
	source    string
	name      string
	kind      Kind
	variables []string
}

// Parse parses a query or mutation document into a Descriptor.
// Documents with multiple operations or subscription operations are rejected.
func Parse(src string) (*Descriptor, error) {
	doc, err := parser.ParseQuery(&ast.Source{Name: "operation", Input: src})
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrParse, "parse operation")
	}

	if len(doc.Operations) == 0 {
		return nil, errors.WrapError(
			fmt.Errorf("document contains no operations"),
			errors.ErrParse,
			"parse operation",
		)
	}
	if len(doc.Operations) > 1 {
		return nil, errors.WrapError(
			fmt.Errorf("document contains %d operations, expected 1", len(doc.Operations)),
			errors.ErrParse,
			"parse operation",
		)
	}

	op := doc.Operations[0]

	var kind Kind
	switch op.Operation {
	case ast.Query:
		kind = KindQuery
	case ast.Mutation:
		kind = KindMutation
	default:
		return nil, errors.WrapError(
			fmt.Errorf("unsupported operation type: %s", op.Operation),
			errors.ErrParse,
			"parse operation",
		)
	}

	// Declared variable names in declaration order
	variables := make([]string, 0, len(op.VariableDefinitions))
	for _, def := range op.VariableDefinitions {
		variables = append(variables, def.Variable)
	}

	return &Descriptor{
		source:    src,
		name:      op.Name,
		kind:      kind,
		variables: variables,
	}, nil
}

// MustParse is Parse for package-level operation declarations; it panics on
// malformed documents.
func MustParse(src string) *Descriptor {
	desc, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return desc
}

// Source returns the raw operation text
func (d *Descriptor) Source() string {
	return d.source
}

// Name returns the operation name, or "" for anonymous operations
func (d *Descriptor) Name() string {
	return d.name
}

// Kind returns whether this is a query or a mutation
func (d *Descriptor) Kind() Kind {
	return d.kind
}

// DeclaredVariables returns the names of the operation's declared variables
func (d *Descriptor) DeclaredVariables() []string {
	out := make([]string, len(d.variables))
	copy(out, d.variables)
	return out
}

// HasVariable reports whether name is declared by the operation
func (d *Descriptor) HasVariable(name string) bool {
	for _, v := range d.variables {
		if v == name {
			return true
		}
	}
	return false
}
