package mip

// Term is one coefficient of a sparse linear expression.
type Term struct {
	Variable    int
	Coefficient float64
}

// Expression is a sparse linear combination of variables plus a constant.
type Expression struct {
	Terms    []Term
	Constant float64
}

// NewExpression returns an empty expression.
func NewExpression() Expression {
	return Expression{}
}

// AddTerm appends a coefficient for the given variable. Repeated variables
// are merged.
func (e *Expression) AddTerm(variable int, coefficient float64) {
	for i := range e.Terms {
		if e.Terms[i].Variable == variable {
			e.Terms[i].Coefficient += coefficient
			return
		}
	}
	e.Terms = append(e.Terms, Term{Variable: variable, Coefficient: coefficient})
}

// Evaluate computes the expression at the model's current variable values.
func (e *Expression) Evaluate(m *Model) float64 {
	value := e.Constant
	for _, t := range e.Terms {
		value += t.Coefficient * float64(m.Variables[t.Variable].Value)
	}
	return value
}

// EvaluateMove computes the expression with the move's alterations applied
// on top of the current variable values.
func (e *Expression) EvaluateMove(m *Model, move *Move) float64 {
	value := e.Constant
	for _, t := range e.Terms {
		value += t.Coefficient * float64(move.valueOf(m, t.Variable))
	}
	return value
}

// EvaluateDiff computes the change in expression value caused by the move,
// without touching the constant.
func (e *Expression) EvaluateDiff(m *Model, move *Move) float64 {
	diff := 0.0
	for _, a := range move.Alterations {
		for _, t := range e.Terms {
			if t.Variable == a.Variable {
				diff += t.Coefficient * float64(a.Value-m.Variables[a.Variable].Value)
				break
			}
		}
	}
	return diff
}
