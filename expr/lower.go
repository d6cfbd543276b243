package expr

import (
	"fmt"

	"github.com/fieldforge/fieldforge/nodes"
)

// Kind classifies a function argument or output.
type Kind int

const (
	KindScalar Kind = iota
	KindVector
)

// DataType maps the argument kind onto a graph data type.
func (k Kind) DataType() nodes.DataType {
	if k == KindVector {
		return nodes.TypeFloat3
	}
	return nodes.TypeFloat
}

// String returns "Scalar" or "Vector".
func (k Kind) String() string {
	if k == KindVector {
		return "Vector"
	}
	return "Scalar"
}

// KindFromString parses "Scalar"/"scalar"/"float" and
// "Vector"/"vector"/"vec3" forms.
func KindFromString(s string) (Kind, bool) {
	switch s {
	case "Scalar", "scalar", "float":
		return KindScalar, true
	case "Vector", "vector", "vec3":
		return KindVector, true
	default:
		return KindScalar, false
	}
}

// Argument declares one function input by name and kind.
type Argument struct {
	Name string
	Kind Kind
}

// Output declares the single function output.
type Output struct {
	Name string
	Kind Kind
}

// binaryOperatorKinds maps operator tokens to node kinds.
var binaryOperatorKinds = map[TokenKind]nodes.NodeKind{
	TokenPlus:  nodes.KindAddition,
	TokenMinus: nodes.KindSubtraction,
	TokenStar:  nodes.KindMultiplication,
	TokenSlash: nodes.KindDivision,
}

// functionNodeKinds maps function identifiers to node kinds.
var functionNodeKinds = map[string]nodes.NodeKind{
	"sin": nodes.KindSine, "cos": nodes.KindCosine, "tan": nodes.KindTangent,
	"asin": nodes.KindArcSin, "acos": nodes.KindArcCos, "atan": nodes.KindArcTan,
	"atan2": nodes.KindArcTan2,
	"sinh":  nodes.KindSinH, "cosh": nodes.KindCosH, "tanh": nodes.KindTanH,
	"exp": nodes.KindExp, "log": nodes.KindLog, "log2": nodes.KindLog2, "log10": nodes.KindLog10,
	"sqrt": nodes.KindSqrt, "abs": nodes.KindAbs,
	"round": nodes.KindRound, "ceil": nodes.KindCeil, "floor": nodes.KindFloor,
	"fract": nodes.KindFract, "sign": nodes.KindSign,
	"min": nodes.KindMin, "max": nodes.KindMax,
	"mod": nodes.KindMod, "fmod": nodes.KindFmod, "pow": nodes.KindPow,
}

// lowerer carries the build state of one expression.
type lowerer struct {
	model      *nodes.Model
	args       map[string]Argument
	decomposed map[string]*nodes.Node // vector arg name -> DecomposeVector
}

// BuildFunction lowers the expression into the model and wires the named
// function output. The model must already carry Begin/End markers; the
// declared arguments are exposed as Begin outputs. On success the id of
// the node feeding the output is returned; on failure the id is 0 and the
// caller discards the partially built model.
//
// When no arguments are declared, the free variables x, y and z are
// auto-bound to the components of an implicit vector argument "pos".
func BuildFunction(m *nodes.Model, expression string, args []Argument, out Output) (nodes.NodeID, error) {
	root, err := Parse(expression)
	if err != nil {
		return 0, err
	}

	variables := FreeVariables(root)

	if len(args) == 0 {
		args = []Argument{{Name: nodes.FieldPos, Kind: KindVector}}
		root = rewriteImplicitComponents(root)
		variables = FreeVariables(root)
	}

	byName := make(map[string]Argument, len(args))
	for _, arg := range args {
		byName[arg.Name] = arg
		if _, err := m.AddArgument(arg.Name, arg.Kind.DataType()); err != nil {
			return 0, err
		}
	}

	for _, v := range variables {
		if _, ok := byName[v]; !ok {
			return 0, fmt.Errorf("Variable '%s' used in expression is not defined in function arguments. "+
				"Please define it as a function input or use component access like 'pos.x' for vector inputs.", v)
		}
	}

	l := &lowerer{model: m, args: byName, decomposed: make(map[string]*nodes.Node)}
	resultPort, err := l.lower(root)
	if err != nil {
		return 0, err
	}

	outParam, err := m.AddFunctionOutput(out.Name, nodes.ZeroValue(out.Kind.DataType()))
	if err != nil {
		return 0, err
	}
	if !m.AddLink(resultPort.ID(), outParam.ID(), true) {
		return 0, fmt.Errorf("could not wire output %q", out.Name)
	}

	m.UpdateGraphAndOrderIfNeeded()
	m.UpdateTypes()
	return resultPort.ParentID(), nil
}

// rewriteImplicitComponents maps bare x/y/z onto pos.x/pos.y/pos.z. Only
// applied when the caller declared no arguments.
func rewriteImplicitComponents(e Expr) Expr {
	switch v := e.(type) {
	case *VariableExpr:
		switch v.Name {
		case "x", "y", "z":
			return &ComponentExpr{Base: nodes.FieldPos, Component: v.Name}
		}
		return v
	case *CallExpr:
		out := &CallExpr{Func: v.Func}
		for _, arg := range v.Args {
			out.Args = append(out.Args, rewriteImplicitComponents(arg))
		}
		return out
	case *BinaryExpr:
		return &BinaryExpr{
			Op:    v.Op,
			Left:  rewriteImplicitComponents(v.Left),
			Right: rewriteImplicitComponents(v.Right),
		}
	case *UnaryExpr:
		return &UnaryExpr{Op: v.Op, Operand: rewriteImplicitComponents(v.Operand)}
	default:
		return e
	}
}

// lower emits the nodes for a subtree and returns the port carrying its
// value.
func (l *lowerer) lower(e Expr) (*nodes.Port, error) {
	switch v := e.(type) {
	case *NumberExpr:
		return l.lowerConstant(v.Value)

	case *VariableExpr:
		arg, ok := l.args[v.Name]
		if !ok {
			return nil, fmt.Errorf("Variable '%s' used in expression is not defined in function arguments. "+
				"Please define it as a function input or use component access like 'pos.x' for vector inputs.", v.Name)
		}
		port := l.model.BeginNode().FindOutputPort(arg.Name)
		if port == nil {
			return nil, fmt.Errorf("argument %q has no Begin port", arg.Name)
		}
		return port, nil

	case *ComponentExpr:
		return l.lowerComponent(v)

	case *CallExpr:
		kind := functionNodeKinds[v.Func]
		node, err := l.model.Create(kind)
		if err != nil {
			return nil, err
		}
		inputs := []string{nodes.FieldA, nodes.FieldB}
		for i, argExpr := range v.Args {
			port, err := l.lower(argExpr)
			if err != nil {
				return nil, err
			}
			if err := l.connect(port, node, inputs[i]); err != nil {
				return nil, err
			}
		}
		return canonicalOutputPort(node)

	case *BinaryExpr:
		node, err := l.model.Create(binaryOperatorKinds[v.Op])
		if err != nil {
			return nil, err
		}
		left, err := l.lower(v.Left)
		if err != nil {
			return nil, err
		}
		right, err := l.lower(v.Right)
		if err != nil {
			return nil, err
		}
		if err := l.connect(left, node, nodes.FieldA); err != nil {
			return nil, err
		}
		if err := l.connect(right, node, nodes.FieldB); err != nil {
			return nil, err
		}
		return canonicalOutputPort(node)

	case *UnaryExpr:
		// prefix minus lowers to 0 - operand
		zero, err := l.lowerConstant(0)
		if err != nil {
			return nil, err
		}
		node, err := l.model.Create(nodes.KindSubtraction)
		if err != nil {
			return nil, err
		}
		operand, err := l.lower(v.Operand)
		if err != nil {
			return nil, err
		}
		if err := l.connect(zero, node, nodes.FieldA); err != nil {
			return nil, err
		}
		if err := l.connect(operand, node, nodes.FieldB); err != nil {
			return nil, err
		}
		return canonicalOutputPort(node)

	default:
		return nil, fmt.Errorf("unsupported expression node %T", e)
	}
}

func (l *lowerer) lowerConstant(value float64) (*nodes.Port, error) {
	node, err := l.model.Create(nodes.KindConstantScalar)
	if err != nil {
		return nil, err
	}
	node.Parameter(nodes.FieldValue).SetValue(nodes.FloatValue(float32(value)))
	node.SetDisplayName(fmt.Sprintf("%g", value))
	return canonicalOutputPort(node)
}

// lowerComponent resolves "a.x" by decomposing the vector argument once
// and reusing the DecomposeVector for further components.
func (l *lowerer) lowerComponent(c *ComponentExpr) (*nodes.Port, error) {
	arg, ok := l.args[c.Base]
	if !ok {
		return nil, fmt.Errorf("Variable '%s' used in expression is not defined in function arguments. "+
			"Please define it as a function input or use component access like 'pos.x' for vector inputs.", c.Base)
	}
	if arg.Kind != KindVector {
		return nil, fmt.Errorf("component access '%s.%s' requires a vector argument, but '%s' is scalar",
			c.Base, c.Component, c.Base)
	}

	decompose, ok := l.decomposed[c.Base]
	if !ok {
		var err error
		decompose, err = l.model.Create(nodes.KindDecomposeVector)
		if err != nil {
			return nil, err
		}
		beginPort := l.model.BeginNode().FindOutputPort(arg.Name)
		if beginPort == nil {
			return nil, fmt.Errorf("argument %q has no Begin port", arg.Name)
		}
		if err := l.connect(beginPort, decompose, nodes.FieldA); err != nil {
			return nil, err
		}
		l.decomposed[c.Base] = decompose
	}

	port := decompose.FindOutputPort(c.Component)
	if port == nil {
		return nil, fmt.Errorf("component %q not available", c.Component)
	}
	return port, nil
}

func (l *lowerer) connect(port *nodes.Port, target *nodes.Node, input string) error {
	param := target.Parameter(input)
	if param == nil {
		return fmt.Errorf("node %s has no input %q", target.UniqueName(), input)
	}
	if !l.model.AddLink(port.ID(), param.ID(), true) {
		return fmt.Errorf("could not link %s to %s.%s", port.UniqueName(), target.UniqueName(), input)
	}
	return nil
}

// canonicalOutputPort picks the port carrying a node's value: "result"
// for math nodes, "value" for constants, otherwise the first declared
// output.
func canonicalOutputPort(n *nodes.Node) (*nodes.Port, error) {
	if port := n.FindOutputPort(nodes.FieldResult); port != nil {
		return port, nil
	}
	if port := n.FindOutputPort(nodes.FieldValue); port != nil {
		return port, nil
	}
	names := n.OutputNames()
	if len(names) == 0 {
		return nil, fmt.Errorf("node %s has no output port", n.UniqueName())
	}
	return n.FindOutputPort(names[0]), nil
}
