package shell

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockRunner is a testify mock for Runner.
type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) Run(ctx context.Context, cmd Command) (Result, error) {
	args := m.Called(ctx, cmd)
	return args.Get(0).(Result), args.Error(1)
}

// Args matches a Command by name and exact argument list.
func Args(name string, args ...string) interface{} {
	return mock.MatchedBy(func(c Command) bool {
		if c.Name != name || len(c.Args) != len(args) {
			return false
		}
		for i := range args {
			if c.Args[i] != args[i] {
				return false
			}
		}
		return true
	})
}
