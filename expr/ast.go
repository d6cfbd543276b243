package expr

// Expr is a node of the parsed expression tree.
type Expr interface {
	exprNode()
}

// NumberExpr is a numeric literal.
type NumberExpr struct {
	Value float64
}

// VariableExpr is a bare identifier reference.
type VariableExpr struct {
	Name string
}

// ComponentExpr is a dotted component access such as "pos.x".
type ComponentExpr struct {
	Base      string
	Component string // "x", "y", or "z"
}

// CallExpr is a call to one of the built-in math functions.
type CallExpr struct {
	Func string
	Args []Expr
}

// BinaryExpr is one of + - * /.
type BinaryExpr struct {
	Op    TokenKind
	Left  Expr
	Right Expr
}

// UnaryExpr is a prefix minus.
type UnaryExpr struct {
	Op      TokenKind
	Operand Expr
}

func (*NumberExpr) exprNode()    {}
func (*VariableExpr) exprNode()  {}
func (*ComponentExpr) exprNode() {}
func (*CallExpr) exprNode()      {}
func (*BinaryExpr) exprNode()    {}
func (*UnaryExpr) exprNode()     {}

// unaryFunctions is the set of single-input function identifiers; their
// graph node kinds are in functionNodeKinds.
var unaryFunctions = map[string]struct{}{
	"sin": {}, "cos": {}, "tan": {},
	"asin": {}, "acos": {}, "atan": {},
	"sinh": {}, "cosh": {}, "tanh": {},
	"exp": {}, "log": {}, "log2": {}, "log10": {},
	"sqrt": {}, "abs": {}, "round": {}, "ceil": {}, "floor": {},
	"fract": {}, "sign": {},
}

// binaryFunctions are the two-input built-ins.
var binaryFunctions = map[string]struct{}{
	"atan2": {}, "min": {}, "max": {}, "mod": {}, "fmod": {}, "pow": {},
}

// constants are predefined scalar identifiers.
var constants = map[string]float64{
	"pi": 3.14159265358979323846,
	"e":  2.71828182845904523536,
}

// IsFunction reports whether the identifier names a built-in function.
func IsFunction(name string) bool {
	if _, ok := unaryFunctions[name]; ok {
		return true
	}
	_, ok := binaryFunctions[name]
	return ok
}

// IsConstant reports whether the identifier names a built-in constant.
func IsConstant(name string) bool {
	_, ok := constants[name]
	return ok
}

// FreeVariables returns the identifiers an expression reads, in order of
// first appearance. Function names and constants are excluded; component
// accesses report their base name.
func FreeVariables(e Expr) []string {
	var out []string
	seen := make(map[string]struct{})
	add := func(name string) {
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}

	var walk func(Expr)
	walk = func(e Expr) {
		switch v := e.(type) {
		case *NumberExpr:
		case *VariableExpr:
			if !IsConstant(v.Name) {
				add(v.Name)
			}
		case *ComponentExpr:
			add(v.Base)
		case *CallExpr:
			for _, arg := range v.Args {
				walk(arg)
			}
		case *BinaryExpr:
			walk(v.Left)
			walk(v.Right)
		case *UnaryExpr:
			walk(v.Operand)
		}
	}
	walk(e)
	return out
}
