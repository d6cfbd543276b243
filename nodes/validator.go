package nodes

import "fmt"

// Validation messages. The texts are part of the external contract; the
// operation surface and its clients match on them.
const (
	MsgMissingInput        = "Missing input"
	MsgDanglingPort        = "Parameter references non-existing port"
	MsgDatatypeMismatch    = "Datatype mismatch"
	MsgFunctionRefNotFound = "Function reference not found"
)

// ValidationError locates one defect precisely enough for an editor to
// jump to it.
type ValidationError struct {
	Message   string
	Model     string // "<display name> (ID: <resource id>)"
	Node      string // node display name
	Port      string // port unique name, or "unknown"
	Parameter string // parameter name, or "unknown"
}

// String renders the error on one line.
func (e ValidationError) String() string {
	return fmt.Sprintf("%s: model %s, node %s, port %s, parameter %s",
		e.Message, e.Model, e.Node, e.Port, e.Parameter)
}

// Validator walks an assembly and accumulates structural, type, and
// reference errors. It never aborts; the full list is surfaced so an
// editor can show every defect at once.
type Validator struct {
	errors []ValidationError
}

// NewValidator creates an empty validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Errors returns the accumulated findings of the last Validate call.
func (v *Validator) Errors() []ValidationError {
	return v.errors
}

// Validate checks every function in the assembly and reports whether all
// of them are well-formed. Each model's validity flag is updated.
func (v *Validator) Validate(assembly *Assembly) bool {
	v.errors = nil
	assembly.Functions(func(m *Model) bool {
		v.validateModel(m, assembly)
		return true
	})
	return len(v.errors) == 0
}

func (v *Validator) validateModel(m *Model, assembly *Assembly) {
	m.UpdateGraphAndOrderIfNeeded()
	m.UpdateTypes()
	m.SetIsValid(true)

	for _, n := range m.NodesInOrder() {
		v.validateNode(n, m, assembly)
	}
}

func modelInfo(m *Model) string {
	name := m.DisplayName()
	if name == "" {
		name = "unknown"
	}
	return fmt.Sprintf("%s (ID: %d)", name, m.ResourceID())
}

func (v *Validator) validateNode(n *Node, m *Model, assembly *Assembly) {
	info := modelInfo(m)
	exempt := IsExemptFromInputValidation(n.Kind())

	n.Parameters(func(name string, p *Parameter) bool {
		if p.Source() == nil {
			if !exempt && p.InputSourceRequired() && !p.IsArgument() {
				v.errors = append(v.errors, ValidationError{
					Message:   MsgMissingInput,
					Model:     info,
					Node:      n.DisplayName(),
					Port:      "unknown",
					Parameter: name,
				})
				m.SetIsValid(false)
			}
			return true
		}

		src := p.Source()
		port, ok := m.GetPort(src.PortID)
		p.SetValid(true)
		if !ok {
			v.errors = append(v.errors, ValidationError{
				Message:   MsgDanglingPort,
				Model:     info,
				Node:      n.DisplayName(),
				Port:      "unknown",
				Parameter: name,
			})
			p.SetValid(false)
			m.SetIsValid(false)
			return true
		}

		if p.Type() != port.Type() {
			v.errors = append(v.errors, ValidationError{
				Message:   MsgDatatypeMismatch,
				Model:     info,
				Node:      n.DisplayName(),
				Port:      port.UniqueName(),
				Parameter: name,
			})
			p.SetValid(false)
			m.SetIsValid(false)
		}
		return true
	})

	if n.Kind() == KindFunctionCall {
		v.validateFunctionCall(n, m, assembly, info)
	}
}

func (v *Validator) validateFunctionCall(n *Node, m *Model, assembly *Assembly, info string) {
	if err := n.ResolveFunctionID(m); err != nil {
		v.errors = append(v.errors, ValidationError{
			Message:   err.Error(),
			Model:     info,
			Node:      n.DisplayName(),
			Port:      "unknown",
			Parameter: FieldFunctionID,
		})
		m.SetIsValid(false)
		return
	}
	if assembly.FindModel(n.FunctionID()) == nil {
		v.errors = append(v.errors, ValidationError{
			Message:   MsgFunctionRefNotFound,
			Model:     info,
			Node:      n.DisplayName(),
			Port:      "unknown",
			Parameter: FieldFunctionID,
		})
		m.SetIsValid(false)
	}
}
