package nodes

import (
	"fmt"
	"sort"
)

// NodeKind identifies a node type from the closed catalog.
type NodeKind string

// Internal kinds.
const (
	KindBegin                       NodeKind = "Begin"
	KindEnd                         NodeKind = "End"
	KindTransformation              NodeKind = "Transformation"
	KindBoxMinMax                   NodeKind = "BoxMinMax"
	KindSignedDistanceToMesh        NodeKind = "SignedDistanceToMesh"
	KindUnsignedDistanceToMesh      NodeKind = "UnsignedDistanceToMesh"
	KindSignedDistanceToBeamLattice NodeKind = "SignedDistanceToBeamLattice"
)

// Arithmetic kinds.
const (
	KindAddition       NodeKind = "Addition"
	KindSubtraction    NodeKind = "Subtraction"
	KindMultiplication NodeKind = "Multiplication"
	KindDivision       NodeKind = "Division"
	KindMin            NodeKind = "Min"
	KindMax            NodeKind = "Max"
	KindMod            NodeKind = "Mod"
	KindFmod           NodeKind = "Fmod"
	KindPow            NodeKind = "Pow"
	KindAbs            NodeKind = "Abs"
	KindSqrt           NodeKind = "Sqrt"
	KindRound          NodeKind = "Round"
	KindCeil           NodeKind = "Ceil"
	KindFloor          NodeKind = "Floor"
	KindFract          NodeKind = "Fract"
	KindSign           NodeKind = "Sign"
	KindExp            NodeKind = "Exp"
	KindLog            NodeKind = "Log"
	KindLog2           NodeKind = "Log2"
	KindLog10          NodeKind = "Log10"
	KindSine           NodeKind = "Sine"
	KindCosine         NodeKind = "Cosine"
	KindTangent        NodeKind = "Tangent"
	KindSinH           NodeKind = "SinH"
	KindCosH           NodeKind = "CosH"
	KindTanH           NodeKind = "TanH"
	KindArcSin         NodeKind = "ArcSin"
	KindArcCos         NodeKind = "ArcCos"
	KindArcTan         NodeKind = "ArcTan"
	KindArcTan2        NodeKind = "ArcTan2"
	KindMix            NodeKind = "Mix"
	KindClamp          NodeKind = "Clamp"
	KindSelect         NodeKind = "Select"
)

// Vector and matrix kinds.
const (
	KindDotProduct                 NodeKind = "DotProduct"
	KindCrossProduct               NodeKind = "CrossProduct"
	KindLength                     NodeKind = "Length"
	KindVectorFromScalar           NodeKind = "VectorFromScalar"
	KindDecomposeVector            NodeKind = "DecomposeVector"
	KindComposeVector              NodeKind = "ComposeVector"
	KindDecomposeMatrix            NodeKind = "DecomposeMatrix"
	KindComposeMatrix              NodeKind = "ComposeMatrix"
	KindComposeMatrixFromRows      NodeKind = "ComposeMatrixFromRows"
	KindComposeMatrixFromColumns   NodeKind = "ComposeMatrixFromColumns"
	KindMatrixVectorMultiplication NodeKind = "MatrixVectorMultiplication"
	KindTranspose                  NodeKind = "Transpose"
	KindInverse                    NodeKind = "Inverse"
)

// Constant, resource and call kinds.
const (
	KindConstantScalar NodeKind = "ConstantScalar"
	KindConstantVector NodeKind = "ConstantVector"
	KindConstantMatrix NodeKind = "ConstantMatrix"
	KindResource       NodeKind = "Resource"
	KindImageSampler   NodeKind = "ImageSampler"
	KindFunctionCall   NodeKind = "FunctionCall"
)

// Parameter and port field names shared across the catalog.
const (
	FieldA      = "A"
	FieldB      = "B"
	FieldC      = "C"
	FieldD      = "D"
	FieldRatio  = "Ratio"
	FieldMin    = "Min"
	FieldMax    = "Max"
	FieldResult = "result"
	FieldValue  = "value"
	FieldVector = "vector"
	FieldMatrix = "matrix"

	FieldPos      = "pos"
	FieldShape    = "shape"
	FieldColor    = "color"
	FieldDistance = "distance"

	FieldX = "x"
	FieldY = "y"
	FieldZ = "z"

	FieldFunctionID = "functionId"
	FieldResourceID = "resourceId"
	FieldMesh       = "mesh"
	FieldUVW        = "uvw"
	FieldAlpha      = "alpha"
	FieldFilter     = "filter"
	FieldTileStyle  = "tileStyle"
	FieldStart      = "start"
	FieldEnd        = "end"
	FieldDimensions = "dimensions"
	FieldTransform  = "transform"
)

// matrixComponentNames returns m00..m33 in row-major order.
func matrixComponentNames() []string {
	names := make([]string, 0, 16)
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			names = append(names, fmt.Sprintf("m%d%d", row, col))
		}
	}
	return names
}

// kindSpec declares how to build a node of one kind: its category, its
// type rules (declaration order is significant for rule resolution), and
// an optional hook run after the first rule is applied.
type kindSpec struct {
	kind     NodeKind
	category Category
	rules    []TypeRule
	finish   func(n *Node)

	// exempt nodes never require sources on their parameters.
	exempt bool
}

func typeMap(pairs ...any) map[string]DataType {
	out := make(map[string]DataType, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out[pairs[i].(string)] = pairs[i+1].(DataType)
	}
	return out
}

// operatorRules is the dispatch table of two-input arithmetic: scalar,
// vector, and matrix shapes. Unlinked (any/any) inputs match the first,
// scalar, rule.
func operatorRules() []TypeRule {
	return []TypeRule{
		{Type: RuleScalar, Input: typeMap(FieldA, TypeFloat, FieldB, TypeFloat), Output: typeMap(FieldResult, TypeFloat)},
		{Type: RuleVector, Input: typeMap(FieldA, TypeFloat3, FieldB, TypeFloat3), Output: typeMap(FieldResult, TypeFloat3)},
		{Type: RuleMatrix, Input: typeMap(FieldA, TypeMatrix4, FieldB, TypeMatrix4), Output: typeMap(FieldResult, TypeMatrix4)},
	}
}

// functionRules is the dispatch table of one-input componentwise math.
func functionRules() []TypeRule {
	return []TypeRule{
		{Type: RuleScalar, Input: typeMap(FieldA, TypeFloat), Output: typeMap(FieldResult, TypeFloat)},
		{Type: RuleVector, Input: typeMap(FieldA, TypeFloat3), Output: typeMap(FieldResult, TypeFloat3)},
		{Type: RuleMatrix, Input: typeMap(FieldA, TypeMatrix4), Output: typeMap(FieldResult, TypeMatrix4)},
	}
}

func scalarOnlyRules(inputs ...string) []TypeRule {
	in := make(map[string]DataType, len(inputs))
	for _, name := range inputs {
		in[name] = TypeFloat
	}
	return []TypeRule{{Type: RuleScalar, Input: in, Output: typeMap(FieldResult, TypeFloat)}}
}

func fixedRule(rt RuleType, in, out map[string]DataType) []TypeRule {
	return []TypeRule{{Type: rt, Input: in, Output: out}}
}

var catalog = buildCatalog()
var catalogOrder = buildCatalogOrder()

func buildCatalog() map[NodeKind]kindSpec {
	specs := []kindSpec{
		{kind: KindBegin, category: CategoryInternal, exempt: true,
			rules: []TypeRule{{Type: RuleDefault, Input: map[string]DataType{}, Output: map[string]DataType{}}},
			finish: func(n *Node) {
				n.SetDisplayName("Inputs")
			}},
		{kind: KindEnd, category: CategoryInternal, exempt: true,
			rules: []TypeRule{{Type: RuleDefault, Input: map[string]DataType{}, Output: map[string]DataType{}}},
			finish: func(n *Node) {
				n.SetDisplayName("Outputs")
			}},

		{kind: KindTransformation, category: CategoryInternal, exempt: true,
			rules: fixedRule(RuleMatrix,
				typeMap(FieldTransform, TypeMatrix4),
				typeMap(FieldValue, TypeMatrix4)),
			finish: func(n *Node) {
				p := n.Parameter(FieldTransform)
				p.SetInputSourceRequired(false)
				p.SetValue(Matrix4Value(IdentityMatrix()))
			}},

		{kind: KindBoxMinMax, category: CategoryInternal,
			rules: fixedRule(RuleDefault,
				typeMap(FieldPos, TypeFloat3, FieldMin, TypeFloat3, FieldMax, TypeFloat3),
				typeMap(FieldShape, TypeFloat))},

		{kind: KindSignedDistanceToMesh, category: CategoryInternal,
			rules: fixedRule(RuleDefault,
				typeMap(FieldPos, TypeFloat3, FieldMesh, TypeResourceID),
				typeMap(FieldDistance, TypeFloat))},
		{kind: KindUnsignedDistanceToMesh, category: CategoryInternal,
			rules: fixedRule(RuleDefault,
				typeMap(FieldPos, TypeFloat3, FieldMesh, TypeResourceID),
				typeMap(FieldDistance, TypeFloat))},
		{kind: KindSignedDistanceToBeamLattice, category: CategoryInternal,
			rules: fixedRule(RuleDefault,
				typeMap(FieldPos, TypeFloat3, FieldMesh, TypeResourceID),
				typeMap(FieldDistance, TypeFloat))},

		{kind: KindAddition, category: CategoryMath, rules: operatorRules()},
		{kind: KindSubtraction, category: CategoryMath, rules: operatorRules()},
		{kind: KindMultiplication, category: CategoryMath, rules: operatorRules()},
		{kind: KindDivision, category: CategoryMath, rules: operatorRules()},
		{kind: KindMin, category: CategoryMath, rules: operatorRules()},
		{kind: KindMax, category: CategoryMath, rules: operatorRules()},
		{kind: KindMod, category: CategoryMath, rules: operatorRules()},
		{kind: KindFmod, category: CategoryMath, rules: operatorRules()},
		{kind: KindPow, category: CategoryMath, rules: scalarOnlyRules(FieldA, FieldB)},

		{kind: KindAbs, category: CategoryMath, rules: functionRules()},
		{kind: KindSqrt, category: CategoryMath, rules: functionRules()},
		{kind: KindRound, category: CategoryMath, rules: functionRules()},
		{kind: KindCeil, category: CategoryMath, rules: functionRules()},
		{kind: KindFloor, category: CategoryMath, rules: functionRules()},
		{kind: KindFract, category: CategoryMath, rules: functionRules()},
		{kind: KindSign, category: CategoryMath, rules: functionRules()},
		{kind: KindExp, category: CategoryMath, rules: functionRules()},
		{kind: KindLog, category: CategoryMath, rules: functionRules()},
		{kind: KindLog2, category: CategoryMath, rules: functionRules()},
		{kind: KindLog10, category: CategoryMath, rules: functionRules()},
		{kind: KindSine, category: CategoryMath, rules: functionRules()},
		{kind: KindCosine, category: CategoryMath, rules: functionRules()},
		{kind: KindTangent, category: CategoryMath, rules: functionRules()},
		{kind: KindSinH, category: CategoryMath, rules: functionRules()},
		{kind: KindCosH, category: CategoryMath, rules: functionRules()},
		{kind: KindTanH, category: CategoryMath, rules: functionRules()},
		{kind: KindArcSin, category: CategoryMath, rules: functionRules()},
		{kind: KindArcCos, category: CategoryMath, rules: functionRules()},
		{kind: KindArcTan, category: CategoryMath, rules: functionRules()},
		{kind: KindArcTan2, category: CategoryMath, rules: scalarOnlyRules(FieldA, FieldB)},

		{kind: KindMix, category: CategoryMath, rules: []TypeRule{
			{Type: RuleScalar,
				Input:  typeMap(FieldA, TypeFloat, FieldB, TypeFloat, FieldRatio, TypeFloat),
				Output: typeMap(FieldResult, TypeFloat)},
			{Type: RuleVector,
				Input:  typeMap(FieldA, TypeFloat3, FieldB, TypeFloat3, FieldRatio, TypeFloat),
				Output: typeMap(FieldResult, TypeFloat3)},
		}},
		{kind: KindClamp, category: CategoryMath, rules: []TypeRule{
			{Type: RuleScalar,
				Input:  typeMap(FieldA, TypeFloat, FieldMin, TypeFloat, FieldMax, TypeFloat),
				Output: typeMap(FieldResult, TypeFloat)},
			{Type: RuleVector,
				Input:  typeMap(FieldA, TypeFloat3, FieldMin, TypeFloat3, FieldMax, TypeFloat3),
				Output: typeMap(FieldResult, TypeFloat3)},
		}},
		{kind: KindSelect, category: CategoryMath, rules: []TypeRule{
			{Type: RuleScalar,
				Input:  typeMap(FieldA, TypeFloat, FieldB, TypeFloat, FieldC, TypeFloat, FieldD, TypeFloat),
				Output: typeMap(FieldResult, TypeFloat)},
			{Type: RuleVector,
				Input:  typeMap(FieldA, TypeFloat, FieldB, TypeFloat, FieldC, TypeFloat3, FieldD, TypeFloat3),
				Output: typeMap(FieldResult, TypeFloat3)},
		}},

		{kind: KindDotProduct, category: CategoryMath,
			rules: fixedRule(RuleVector,
				typeMap(FieldA, TypeFloat3, FieldB, TypeFloat3),
				typeMap(FieldResult, TypeFloat))},
		{kind: KindCrossProduct, category: CategoryMath,
			rules: fixedRule(RuleVector,
				typeMap(FieldA, TypeFloat3, FieldB, TypeFloat3),
				typeMap(FieldResult, TypeFloat3))},
		{kind: KindLength, category: CategoryMath,
			rules: fixedRule(RuleVector,
				typeMap(FieldA, TypeFloat3),
				typeMap(FieldResult, TypeFloat))},
		{kind: KindVectorFromScalar, category: CategoryMath,
			rules: fixedRule(RuleScalar,
				typeMap(FieldA, TypeFloat),
				typeMap(FieldResult, TypeFloat3))},
		{kind: KindDecomposeVector, category: CategoryMath,
			rules: fixedRule(RuleVector,
				typeMap(FieldA, TypeFloat3),
				typeMap(FieldX, TypeFloat, FieldY, TypeFloat, FieldZ, TypeFloat))},
		{kind: KindComposeVector, category: CategoryMath,
			rules: fixedRule(RuleScalar,
				typeMap(FieldX, TypeFloat, FieldY, TypeFloat, FieldZ, TypeFloat),
				typeMap(FieldResult, TypeFloat3))},
		{kind: KindDecomposeMatrix, category: CategoryMath,
			rules: func() []TypeRule {
				out := make(map[string]DataType, 16)
				for _, name := range matrixComponentNames() {
					out[name] = TypeFloat
				}
				return fixedRule(RuleMatrix, typeMap(FieldA, TypeMatrix4), out)
			}()},
		{kind: KindComposeMatrix, category: CategoryMath,
			rules: func() []TypeRule {
				in := make(map[string]DataType, 16)
				for _, name := range matrixComponentNames() {
					in[name] = TypeFloat
				}
				return fixedRule(RuleScalar, in, typeMap(FieldResult, TypeMatrix4))
			}()},
		{kind: KindComposeMatrixFromRows, category: CategoryMath,
			rules: fixedRule(RuleVector,
				typeMap(FieldA, TypeFloat3, FieldB, TypeFloat3, FieldC, TypeFloat3, FieldD, TypeFloat3),
				typeMap(FieldResult, TypeMatrix4))},
		{kind: KindComposeMatrixFromColumns, category: CategoryMath,
			rules: fixedRule(RuleVector,
				typeMap(FieldA, TypeFloat3, FieldB, TypeFloat3, FieldC, TypeFloat3, FieldD, TypeFloat3),
				typeMap(FieldResult, TypeMatrix4))},
		{kind: KindMatrixVectorMultiplication, category: CategoryMath,
			rules: fixedRule(RuleMatrix,
				typeMap(FieldA, TypeMatrix4, FieldB, TypeFloat3),
				typeMap(FieldResult, TypeFloat3))},
		{kind: KindTranspose, category: CategoryMath,
			rules: fixedRule(RuleMatrix,
				typeMap(FieldA, TypeMatrix4),
				typeMap(FieldResult, TypeMatrix4))},
		{kind: KindInverse, category: CategoryMath,
			rules: fixedRule(RuleMatrix,
				typeMap(FieldA, TypeMatrix4),
				typeMap(FieldResult, TypeMatrix4))},

		{kind: KindConstantScalar, category: CategoryMisc, exempt: true,
			rules: fixedRule(RuleScalar,
				typeMap(FieldValue, TypeFloat),
				typeMap(FieldValue, TypeFloat)),
			finish: func(n *Node) {
				n.Parameter(FieldValue).SetInputSourceRequired(false)
			}},
		{kind: KindConstantVector, category: CategoryMisc, exempt: true,
			rules: fixedRule(RuleVector,
				typeMap(FieldX, TypeFloat, FieldY, TypeFloat, FieldZ, TypeFloat),
				typeMap(FieldVector, TypeFloat3)),
			finish: func(n *Node) {
				for _, name := range []string{FieldX, FieldY, FieldZ} {
					n.Parameter(name).SetInputSourceRequired(false)
				}
			}},
		{kind: KindConstantMatrix, category: CategoryMisc, exempt: true,
			rules: fixedRule(RuleMatrix,
				typeMap(FieldMatrix, TypeMatrix4),
				typeMap(FieldMatrix, TypeMatrix4)),
			finish: func(n *Node) {
				p := n.Parameter(FieldMatrix)
				p.SetInputSourceRequired(false)
				p.SetValue(Matrix4Value(IdentityMatrix()))
			}},

		{kind: KindResource, category: CategoryMisc, exempt: true,
			rules: fixedRule(RuleDefault,
				typeMap(FieldResourceID, TypeResourceID),
				typeMap(FieldValue, TypeResourceID)),
			finish: func(n *Node) {
				n.Parameter(FieldResourceID).SetInputSourceRequired(false)
			}},

		{kind: KindImageSampler, category: CategoryMisc,
			rules: fixedRule(RuleDefault,
				typeMap(FieldResourceID, TypeResourceID, FieldUVW, TypeFloat3,
					FieldFilter, TypeInt, FieldTileStyle, TypeInt,
					FieldStart, TypeFloat3, FieldEnd, TypeFloat3, FieldDimensions, TypeFloat3),
				typeMap(FieldColor, TypeFloat3, FieldAlpha, TypeFloat)),
			finish: func(n *Node) {
				for _, name := range []string{FieldFilter, FieldTileStyle, FieldStart, FieldEnd, FieldDimensions} {
					p := n.Parameter(name)
					p.SetInputSourceRequired(false)
				}
				// extent caches are maintained by service.Document.UpdateSamplerOffsets
				for _, name := range []string{FieldStart, FieldEnd, FieldDimensions} {
					n.Parameter(name).SetVisible(false)
					n.Parameter(name).SetModifiable(false)
				}
			}},

		{kind: KindFunctionCall, category: CategoryMisc,
			rules: fixedRule(RuleDefault,
				typeMap(FieldFunctionID, TypeResourceID),
				map[string]DataType{}),
			finish: func(n *Node) {
				n.Parameter(FieldFunctionID).SetInputSourceRequired(false)
			}},
	}

	out := make(map[NodeKind]kindSpec, len(specs))
	for _, spec := range specs {
		out[spec.kind] = spec
	}
	return out
}

func buildCatalogOrder() []NodeKind {
	kinds := make([]NodeKind, 0, len(catalog))
	for kind := range catalog {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// KnownKinds returns every catalog kind, sorted. Used by the operation
// surface to report valid types on a failed create.
func KnownKinds() []NodeKind {
	out := make([]NodeKind, len(catalogOrder))
	copy(out, catalogOrder)
	return out
}

// IsKnownKind reports catalog membership.
func IsKnownKind(kind NodeKind) bool {
	_, ok := catalog[kind]
	return ok
}

// New builds an unregistered node of the given kind with its declared
// parameters, ports, and type rules. Returns nil for unknown kinds.
func New(kind NodeKind) *Node {
	spec, ok := catalog[kind]
	if !ok {
		return nil
	}
	n := newNode(spec.kind, spec.category)
	n.typeRules = make([]TypeRule, len(spec.rules))
	copy(n.typeRules, spec.rules)
	if len(spec.rules) > 0 {
		n.applyTypeRule(spec.rules[0])
	}
	if spec.finish != nil {
		spec.finish(n)
	}
	return n
}

// IsExemptFromInputValidation reports whether nodes of this kind never
// require sources on their parameters (input/output markers, constants,
// resource references, transformations).
func IsExemptFromInputValidation(kind NodeKind) bool {
	spec, ok := catalog[kind]
	return ok && spec.exempt
}
