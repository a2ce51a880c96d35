package model

// Subjects is the stack of models currently being assembled in one call
// tree.
type Subjects struct {
	stack []DeploymentModel
}

func NewSubjects() *Subjects { return &Subjects{} }

func (s *Subjects) Push(m DeploymentModel) { s.stack = append(s.stack, m) }

func (s *Subjects) Pop() {
	if len(s.stack) > 0 {
		s.stack[len(s.stack)-1] = nil
		s.stack = s.stack[:len(s.stack)-1]
	}
}

func (s *Subjects) Contains(m DeploymentModel) bool {
	for _, have := range s.stack {
		if have == m {
			return true
		}
	}
	return false
}

func (s *Subjects) Len() int { return len(s.stack) }

// Trail returns the qualified names on the stack from m to the top. An
// absent m yields the whole stack.
func (s *Subjects) Trail(m DeploymentModel) []string {
	start := 0
	for i, have := range s.stack {
		if have == m {
			start = i
			break
		}
	}
	out := make([]string, 0, len(s.stack)-start)
	for _, have := range s.stack[start:] {
		out = append(out, have.QualifiedName())
	}
	return out
}
