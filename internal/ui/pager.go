package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/noborus/ov/oviewer"
)

// Pager shows long text in ov, handing the terminal over while it runs
type Pager struct {
	program *tea.Program
}

func (p *Pager) SetProgram(program *tea.Program) {
	p.program = program
}

// Show blocks until the user leaves the pager
func (p *Pager) Show(content string) error {
	if p.program == nil {
		return fmt.Errorf("program not set")
	}

	if err := p.program.ReleaseTerminal(); err != nil {
		return err
	}
	defer func() {
		// let ov finish tearing down its screen first
		time.Sleep(100 * time.Millisecond)
		_ = p.program.RestoreTerminal()
	}()

	root, err := oviewer.NewRoot(strings.NewReader(content))
	if err != nil {
		return err
	}

	config := oviewer.NewConfig()
	config.IsWriteOnExit = false
	config.IsWriteOriginal = false
	root.SetConfig(config)

	return root.Run()
}

func (m *Model) showInPager(content string) tea.Cmd {
	return func() tea.Msg {
		return pagerMsg{err: m.pager.Show(content)}
	}
}
