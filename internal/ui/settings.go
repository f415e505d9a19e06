package ui

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

const settingsPlaceholder = "1=Nome  2=Fuso  3=Telefone  4=Voltar"

type settingsModel struct {
	editing *settingsField
	input   textinput.Model
	err     string
}

// settingsField is one editable preference. apply validates and stores the
// new value on the model before the config is saved.
type settingsField struct {
	label  string
	prompt string
	get    func(m *model) string
	apply  func(m *model, value string) error
}

var settingsFields = []settingsField{
	{
		label:  "Nome",
		prompt: "Novo nome:",
		get:    func(m *model) string { return m.deps.Config.Config.Name },
		apply: func(m *model, value string) error {
			m.deps.Config.Config.Name = value
			return nil
		},
	},
	{
		label:  "Fuso horário",
		prompt: "Fuso horário (ex.: America/Sao_Paulo):",
		get:    func(m *model) string { return m.deps.Config.Config.Timezone },
		apply: func(m *model, value string) error {
			if _, err := time.LoadLocation(value); err != nil {
				return errors.New("fuso horário inválido")
			}
			m.deps.Config.Config.Timezone = value
			return nil
		},
	},
	{
		label:  "Dígitos mínimos do telefone",
		prompt: "Quantidade mínima de dígitos (com DDD):",
		get:    func(m *model) string { return strconv.Itoa(m.deps.Config.Config.Wizard.PhoneMinDigits) },
		apply: func(m *model, value string) error {
			n, err := strconv.Atoi(value)
			if err != nil || n < 1 {
				return errors.New("informe um número positivo")
			}
			m.deps.Config.Config.Wizard.PhoneMinDigits = n
			// takes effect on the next wizard session
			m.deps.Rules.PhoneMinDigits = n
			return nil
		},
	},
}

func newSettingsModel() settingsModel {
	input := textinput.New()
	input.Prompt = ""
	input.CharLimit = 64
	return settingsModel{input: input}
}

func (m *model) location() *time.Location {
	if m.deps.Config == nil {
		return time.UTC
	}
	return m.deps.Config.Location()
}

// SETTINGS
func (m *model) updateSettings(msg tea.Msg) tea.Cmd {
	var cmds []tea.Cmd
	if m.settings.editing == nil {
		if focus := m.ensureMenuInput(settingsPlaceholder, 40); focus != nil {
			cmds = append(cmds, focus)
		}
		var cmd tea.Cmd
		m.menuInput, cmd = m.menuInput.Update(msg)
		if cmd != nil {
			cmds = append(cmds, cmd)
		}
		if key, ok := msg.(tea.KeyMsg); ok && key.Type == tea.KeyEnter {
			value := strings.TrimSpace(strings.ToLower(m.menuInput.Value()))
			m.menuInput.SetValue("")
			switch {
			case isExitCommand(value) || value == "exit":
				cmds = append(cmds, m.goHome())
			case isBackCommand(value) || value == strconv.Itoa(len(settingsFields)+1):
				cmds = append(cmds, m.goBack())
			default:
				idx, err := strconv.Atoi(value)
				if err != nil || idx < 1 || idx > len(settingsFields) || m.deps.Config == nil {
					m.settings.err = "Escolha 1, 2 ou 3 para editar"
					return batchCmds(cmds)
				}
				field := &settingsFields[idx-1]
				m.settings.editing = field
				m.settings.err = ""
				m.settings.input = textinput.New()
				m.settings.input.Prompt = ""
				m.settings.input.CharLimit = 64
				m.settings.input.SetValue(field.get(m))
				cmds = append(cmds, m.settings.input.Focus())
			}
		}
		return batchCmds(cmds)
	}

	if !m.settings.input.Focused() {
		cmds = append(cmds, m.settings.input.Focus())
	}
	var cmd tea.Cmd
	m.settings.input, cmd = m.settings.input.Update(msg)
	if cmd != nil {
		cmds = append(cmds, cmd)
	}
	if key, ok := msg.(tea.KeyMsg); ok && key.Type == tea.KeyEnter {
		value := strings.TrimSpace(m.settings.input.Value())
		switch {
		case isExitCommand(value):
			m.settings.editing = nil
			cmds = append(cmds, m.goHome())
		case isBackCommand(value):
			m.settings.editing = nil
		case value == "":
			m.settings.err = m.settings.editing.label + " não pode ficar vazio"
		default:
			if err := m.settings.editing.apply(m, value); err != nil {
				m.settings.err = err.Error()
				break
			}
			if err := m.deps.Config.Save(); err != nil {
				m.settings.err = err.Error()
				break
			}
			m.settings.err = ""
			m.infoMessage = m.settings.editing.label + " atualizado"
			m.settings.editing = nil
		}
	}
	return batchCmds(cmds)
}

func (m *model) viewSettings() string {
	lines := []string{m.theme.Title.Render("Configurações e ajuda")}
	lines = append(lines, m.theme.Faint.Render("'/' volta, 'exit.' vai ao início."))
	lines = append(lines, "")
	if cfg := m.deps.Config; cfg != nil {
		c := cfg.Config
		for _, f := range settingsFields {
			lines = append(lines, m.theme.Secondary.Render(f.label+": "+f.get(m)))
		}
		lines = append(lines, m.theme.Faint.Render("Idioma: "+c.Locale+"  •  Envio: "+c.Submit.Backend+"  •  Endereços: "+c.Geocoder.Provider))
		lines = append(lines, m.theme.Faint.Render("Arquivo: "+cfg.Path()))
	}
	lines = append(lines, "")
	lines = append(lines, m.theme.Highlight.Render("Atalhos"))
	lines = append(lines, m.theme.HelpKey.Render("/")+" → "+m.theme.HelpValue.Render("Voltar"))
	lines = append(lines, m.theme.HelpKey.Render("exit.")+" → "+m.theme.HelpValue.Render("Menu principal"))
	lines = append(lines, m.theme.HelpKey.Render("Ctrl+C")+" → "+m.theme.HelpValue.Render("Sair"))
	lines = append(lines, "")

	if m.settings.editing == nil {
		for i, f := range settingsFields {
			lines = append(lines, m.theme.Secondary.Render(strconv.Itoa(i+1)+". Alterar "+strings.ToLower(f.label)))
		}
		lines = append(lines, m.theme.Faint.Render(strconv.Itoa(len(settingsFields)+1)+". Voltar"))
		lines = append(lines, "")
		lines = append(lines, m.theme.Accent.Render("> ")+m.menuInput.View())
	} else {
		lines = append(lines, m.theme.Secondary.Render(m.settings.editing.prompt))
		lines = append(lines, m.settings.input.View())
	}
	if m.settings.err != "" {
		lines = append(lines, "", m.theme.Danger.Render(m.settings.err))
	}
	if m.infoMessage != "" {
		lines = append(lines, "", m.theme.Success.Render(m.infoMessage))
	}
	return strings.Join(lines, "\n") + "\n"
}
