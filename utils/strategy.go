package utils

// Strategy is one named attempt at deriving Out from In.
type Strategy[In, Out any] struct {
	Name string
	Try  func(In) (Out, bool)
}

// Chain is an ordered list of strategies. The first strategy that reports
// success wins and later ones are never run.
type Chain[In, Out any] []Strategy[In, Out]

// First runs the chain and returns the winning value and strategy name.
func (c Chain[In, Out]) First(in In) (Out, string, bool) {
	for _, s := range c {
		if out, ok := s.Try(in); ok {
			return out, s.Name, true
		}
	}
	var zero Out
	return zero, "", false
}

// Names lists the strategies in priority order.
func (c Chain[In, Out]) Names() []string {
	names := make([]string, len(c))
	for i, s := range c {
		names[i] = s.Name
	}
	return names
}
