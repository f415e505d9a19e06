package ui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"leadterm/internal/lead"
	"leadterm/internal/storage"
)

const leadsPageSize = 50

type leadsView struct {
	filter   textinput.Model
	items    []storage.Lead
	expanded int
}

func newLeadsView() leadsView {
	filter := textinput.New()
	filter.Prompt = ""
	filter.Placeholder = "Buscar por nome, e-mail ou endereço; número abre o lead"
	filter.CharLimit = 64
	return leadsView{filter: filter, expanded: -1}
}

func (m *model) refreshLeads() {
	if m.deps.Leads == nil {
		m.leads.items = nil
		return
	}
	ctx := context.Background()
	term := strings.TrimSpace(m.leads.filter.Value())
	var (
		items []storage.Lead
		err   error
	)
	if term == "" {
		items, err = m.deps.Leads.ListLeads(ctx, leadsPageSize)
	} else {
		items, err = m.deps.Leads.SearchLeads(ctx, term, leadsPageSize)
	}
	if err != nil {
		m.errMessage = fmt.Sprintf("carregar leads: %v", err)
		return
	}
	m.leads.items = items
	if m.leads.expanded >= len(items) {
		m.leads.expanded = -1
	}
}

// LEADS
func (m *model) updateLeads(msg tea.Msg) tea.Cmd {
	var cmds []tea.Cmd
	before := m.leads.filter.Value()
	var cmd tea.Cmd
	m.leads.filter, cmd = m.leads.filter.Update(msg)
	if cmd != nil {
		cmds = append(cmds, cmd)
	}

	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyEnter:
			value := strings.TrimSpace(m.leads.filter.Value())
			switch {
			case isExitCommand(value):
				m.leads.filter.SetValue("")
				cmds = append(cmds, m.goHome())
				return batchCmds(cmds)
			case isBackCommand(value):
				m.leads.filter.SetValue("")
				cmds = append(cmds, m.goBack())
				return batchCmds(cmds)
			}
			if idx, err := strconv.Atoi(value); err == nil {
				m.leads.filter.SetValue("")
				if idx > 0 && idx <= len(m.leads.items) {
					if m.leads.expanded == idx-1 {
						m.leads.expanded = -1
					} else {
						m.leads.expanded = idx - 1
					}
				}
				return batchCmds(cmds)
			}
			m.refreshLeads()
		case tea.KeyEsc:
			m.leads.filter.SetValue("")
			cmds = append(cmds, m.goBack())
			return batchCmds(cmds)
		}
	}

	if m.leads.filter.Value() != before {
		if _, err := strconv.Atoi(strings.TrimSpace(m.leads.filter.Value())); err != nil {
			m.leads.expanded = -1
			m.refreshLeads()
		}
	}
	return batchCmds(cmds)
}

func (m *model) viewLeads() string {
	lines := []string{m.theme.Title.Render("Leads recebidos")}
	lines = append(lines, m.theme.Faint.Render("Digite para buscar. Enter com o número mostra a mensagem. '/' volta, 'exit.' vai ao início."))
	if m.errMessage != "" {
		lines = append(lines, m.theme.Danger.Render(m.errMessage))
	}
	lines = append(lines, "")
	if len(m.leads.items) == 0 {
		lines = append(lines, m.theme.Warning.Render("Nenhum lead encontrado."))
	}
	loc := m.location()
	for i, l := range m.leads.items {
		created := l.CreatedAt.In(loc).Format("02/01/2006 15:04")
		lines = append(lines, m.theme.Primary.Render(fmt.Sprintf("%d. %s", i+1, l.FullName())))
		meta := []string{l.Email, l.Phone}
		if pt := lead.PropertyType(l.PropertyType); pt.Valid() {
			meta = append(meta, pt.Label())
		}
		meta = append(meta, m.formatRate(l.NightlyRate)+"/noite")
		lines = append(lines, "  "+m.theme.Secondary.Render(strings.Join(meta, "  •  ")))
		if l.PropertyAddress != "" {
			lines = append(lines, "  "+m.theme.Faint.Render(l.PropertyAddress))
		}
		lines = append(lines, "  "+m.theme.Faint.Render("Recebido em "+created))
		if i == m.leads.expanded && l.Message != "" {
			for _, line := range strings.Split(l.Message, "\n") {
				lines = append(lines, "    "+m.theme.HelpValue.Render(line))
			}
		}
		lines = append(lines, "")
	}
	lines = append(lines, m.theme.Border.Render(strings.Repeat("─", 40)))
	lines = append(lines, m.theme.Accent.Render("buscar> ")+m.leads.filter.View())
	return strings.Join(lines, "\n") + "\n"
}
