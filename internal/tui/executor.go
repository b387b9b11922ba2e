package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

// runMsg carries a tree mutation onto the event loop.
type runMsg struct {
	fn   func()
	done chan struct{}
}

// Executor is a tree.Executor whose owner is the bubbletea event loop. Do
// must never be called from Update or View.
type Executor struct {
	ctx  context.Context
	send func(tea.Msg)
}

// NewExecutor creates an executor that gives up waiting once ctx is done.
func NewExecutor(ctx context.Context) *Executor {
	return &Executor{ctx: ctx}
}

// Bind routes work to program. It must be called before the program runs.
func (e *Executor) Bind(program *tea.Program) {
	e.send = program.Send
}

// Do implements tree.Executor.
func (e *Executor) Do(fn func()) {
	if e.ctx.Err() != nil || e.send == nil {
		return
	}

	msg := runMsg{fn: fn, done: make(chan struct{})}
	e.send(msg)

	select {
	case <-msg.done:
	case <-e.ctx.Done():
	}
}
