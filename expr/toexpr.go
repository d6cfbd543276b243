package expr

import (
	"fmt"
	"strings"

	"github.com/fieldforge/fieldforge/nodes"
)

// nodeKindOperators is the inverse of binaryOperatorKinds.
var nodeKindOperators = map[nodes.NodeKind]string{
	nodes.KindAddition:       "+",
	nodes.KindSubtraction:    "-",
	nodes.KindMultiplication: "*",
	nodes.KindDivision:       "/",
}

// nodeKindFunctions is the inverse of functionNodeKinds.
var nodeKindFunctions = func() map[nodes.NodeKind]string {
	out := make(map[nodes.NodeKind]string, len(functionNodeKinds))
	for name, kind := range functionNodeKinds {
		out[kind] = name
	}
	return out
}()

func operatorPrecedence(op string) int {
	switch op {
	case "*", "/":
		return 2
	case "+", "-":
		return 1
	default:
		return 0
	}
}

// ToExpression renders the subgraph feeding the named End parameter back
// into an infix expression, parenthesizing by operator precedence. Only
// pure arithmetic subgraphs (operators, math functions, constants,
// decomposed arguments, Begin ports) can be rendered; anything else
// fails.
func ToExpression(m *nodes.Model, outputName string) (string, error) {
	end := m.EndNode()
	if end == nil {
		return "", fmt.Errorf("model has no End node")
	}
	param := end.Parameter(outputName)
	if param == nil {
		return "", fmt.Errorf("output %q not found", outputName)
	}
	src := param.Source()
	if src == nil {
		return "", fmt.Errorf("output %q has no source", outputName)
	}
	text, _, err := renderPort(m, src)
	return text, err
}

// renderPort renders the value carried by a source port and reports the
// precedence of its outermost operator (0 for atoms).
func renderPort(m *nodes.Model, src *nodes.Source) (string, int, error) {
	port, ok := m.GetPort(src.PortID)
	if !ok || port.Parent() == nil {
		return "", 0, fmt.Errorf("source port %q not found", src.ShortName)
	}
	n := port.Parent()

	switch {
	case n.Kind() == nodes.KindBegin:
		return port.ShortName(), 0, nil

	case n.Kind() == nodes.KindConstantScalar:
		value, _ := n.Parameter(nodes.FieldValue).Value().Float()
		text := fmt.Sprintf("%g", value)
		if strings.HasPrefix(text, "-") {
			return "(" + text + ")", 0, nil
		}
		return text, 0, nil

	case n.Kind() == nodes.KindDecomposeVector:
		baseSrc := n.Parameter(nodes.FieldA).Source()
		if baseSrc == nil {
			return "", 0, fmt.Errorf("decompose node %s has no input", n.UniqueName())
		}
		base, _, err := renderPort(m, baseSrc)
		if err != nil {
			return "", 0, err
		}
		return base + "." + port.ShortName(), 0, nil
	}

	if op, ok := nodeKindOperators[n.Kind()]; ok {
		return renderBinary(m, n, op)
	}
	if name, ok := nodeKindFunctions[n.Kind()]; ok {
		return renderCall(m, n, name)
	}
	return "", 0, fmt.Errorf("node %s (%s) cannot be expressed as arithmetic", n.UniqueName(), n.Kind())
}

func renderBinary(m *nodes.Model, n *nodes.Node, op string) (string, int, error) {
	prec := operatorPrecedence(op)
	left, err := renderOperand(m, n, nodes.FieldA, prec, false)
	if err != nil {
		return "", 0, err
	}
	// right operand of - and / needs parens at equal precedence
	right, err := renderOperand(m, n, nodes.FieldB, prec, op == "-" || op == "/")
	if err != nil {
		return "", 0, err
	}
	return left + " " + op + " " + right, prec, nil
}

func renderOperand(m *nodes.Model, n *nodes.Node, input string, parentPrec int, strict bool) (string, error) {
	param := n.Parameter(input)
	if param == nil || param.Source() == nil {
		return "", fmt.Errorf("input %s of %s has no source", input, n.UniqueName())
	}
	text, prec, err := renderPort(m, param.Source())
	if err != nil {
		return "", err
	}
	if prec != 0 && (prec < parentPrec || (strict && prec == parentPrec)) {
		return "(" + text + ")", nil
	}
	return text, nil
}

func renderCall(m *nodes.Model, n *nodes.Node, name string) (string, int, error) {
	inputs := []string{nodes.FieldA}
	if _, ok := binaryFunctions[name]; ok {
		inputs = append(inputs, nodes.FieldB)
	}
	args := make([]string, 0, len(inputs))
	for _, input := range inputs {
		param := n.Parameter(input)
		if param == nil || param.Source() == nil {
			return "", 0, fmt.Errorf("input %s of %s has no source", input, n.UniqueName())
		}
		text, _, err := renderPort(m, param.Source())
		if err != nil {
			return "", 0, err
		}
		args = append(args, text)
	}
	return name + "(" + strings.Join(args, ", ") + ")", 0, nil
}
