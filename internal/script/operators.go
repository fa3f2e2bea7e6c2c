package script

// Operator identifies what a statement does to its target.
type Operator int

const (
	OpInvalid Operator = iota

	// Effects
	OpAssign
	OpAppend
	OpAppendList
	OpRemove
	OpRemoveMany
	OpAddTo
	OpSubtract
	OpMultiply
	OpDivide
	OpPrint
	OpDefineNumber
	OpDefineString
	OpDefineList
	OpDefineNumberOnAll
	OpDefineStringOnAll
	OpDefineListOnAll

	// Conditions
	OpEquals
	OpNotEquals
	OpGreater
	OpLesser
	OpGreaterOrEqual
	OpLesserOrEqual
	OpContains
	OpNotContains
)

var operatorNames = map[Operator]string{
	OpAssign:            "assign-value",
	OpAppend:            "append",
	OpAppendList:        "append-list",
	OpRemove:            "remove-from-list",
	OpRemoveMany:        "remove-from-list-many",
	OpAddTo:             "add-to",
	OpSubtract:          "subtract-from",
	OpMultiply:          "multiply-numeric",
	OpDivide:            "divide-numeric",
	OpPrint:             "print-value",
	OpDefineNumber:      "define-numeric-variable",
	OpDefineString:      "define-string-variable",
	OpDefineList:        "define-list-variable",
	OpDefineNumberOnAll: "define-number-on-all",
	OpDefineStringOnAll: "define-string-on-all",
	OpDefineListOnAll:   "define-list-on-all",
	OpEquals:            "value-equals",
	OpNotEquals:         "value-not-equals",
	OpGreater:           "greater-than",
	OpLesser:            "lesser-than",
	OpGreaterOrEqual:    "greater-or-equal",
	OpLesserOrEqual:     "lesser-or-equal",
	OpContains:          "list-contains",
	OpNotContains:       "list-doesnt-contain",
}

func (op Operator) String() string {
	if s, ok := operatorNames[op]; ok {
		return s
	}
	return "invalid"
}

// effectKeywords and conditionKeywords accept both the mnemonic and the
// short symbol authors write in story files. "=" is assignment as an effect
// and equality as a condition.
var effectKeywords = map[string]Operator{
	"assign-value": OpAssign, "=": OpAssign,
	"append": OpAppend, "add": OpAppend,
	"append-list": OpAppendList, "add-these": OpAppendList,
	"remove-from-list": OpRemove, "remove": OpRemove,
	"remove-from-list-many": OpRemoveMany, "remove-these": OpRemoveMany,
	"add-to": OpAddTo, "+=": OpAddTo,
	"subtract-from": OpSubtract, "-=": OpSubtract,
	"multiply-numeric": OpMultiply, "*=": OpMultiply,
	"divide-numeric": OpDivide, "/=": OpDivide,
	"print-value": OpPrint, "print": OpPrint,
	"define-numeric-variable": OpDefineNumber, "create-num": OpDefineNumber,
	"define-string-variable": OpDefineString, "create-string": OpDefineString,
	"define-list-variable": OpDefineList, "create-list": OpDefineList,
	"define-number-on-all": OpDefineNumberOnAll, "define-numeric-on-all": OpDefineNumberOnAll, "create-num-all": OpDefineNumberOnAll,
	"define-string-on-all": OpDefineStringOnAll, "create-string-all": OpDefineStringOnAll,
	"define-list-on-all": OpDefineListOnAll, "create-list-all": OpDefineListOnAll,
}

var conditionKeywords = map[string]Operator{
	"value-equals": OpEquals, "=": OpEquals,
	"value-not-equals": OpNotEquals, "!=": OpNotEquals,
	"greater-than": OpGreater, ">": OpGreater,
	"lesser-than": OpLesser, "<": OpLesser,
	"greater-or-equal": OpGreaterOrEqual, "greater-than-or-equal": OpGreaterOrEqual, ">=": OpGreaterOrEqual,
	"lesser-or-equal": OpLesserOrEqual, "lesser-than-or-equal": OpLesserOrEqual, "<=": OpLesserOrEqual,
	"list-contains": OpContains, "has": OpContains,
	"list-doesnt-contain": OpNotContains, "has-not": OpNotContains,
}

// IsEquality reports whether op compares for (in)equality.
func (op Operator) IsEquality() bool {
	return op == OpEquals || op == OpNotEquals
}

// IsLowerBound reports whether op holds when the target grows (> and >=).
func (op Operator) IsLowerBound() bool {
	return op == OpGreater || op == OpGreaterOrEqual
}

// IsUpperBound reports whether op holds when the target shrinks (< and <=).
func (op Operator) IsUpperBound() bool {
	return op == OpLesser || op == OpLesserOrEqual
}

func (op Operator) takesName() bool {
	switch op {
	case OpDefineNumber, OpDefineString, OpDefineList,
		OpDefineNumberOnAll, OpDefineStringOnAll, OpDefineListOnAll:
		return true
	}
	return false
}
