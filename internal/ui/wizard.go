package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"leadterm/internal/geo"
	"leadterm/internal/lead"
	"leadterm/internal/wizard"
)

// searchDelay spaces out address lookups while the user is still typing.
const searchDelay = 300 * time.Millisecond

type wizardView struct {
	ctrl  *wizard.Controller
	focus int

	name    textinput.Model
	email   textinput.Model
	phone   textinput.Model
	value   textinput.Model
	address textinput.Model
	rate    textinput.Model

	cursor int

	candidates []lead.Address
	candidate  int
	searchSeq  int
	searching  bool
	searchErr  string

	spinner spinner.Model
	sending bool
}

type submitResultMsg struct {
	session string
	err     error
}

type searchTickMsg struct {
	seq   int
	query string
}

type searchResultMsg struct {
	seq     int
	results []lead.Address
	err     error
}

func newTextInput(placeholder string, limit int) textinput.Model {
	ti := textinput.New()
	ti.Prompt = ""
	ti.Placeholder = placeholder
	ti.CharLimit = limit
	return ti
}

func (m *model) newWizardView() wizardView {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = m.theme.Accent
	symbol := m.deps.Formatter.Symbol()
	return wizardView{
		ctrl:    wizard.New(m.deps.Submitter, m.deps.Rules),
		name:    newTextInput("Nome completo", 96),
		email:   newTextInput("voce@exemplo.com", 96),
		phone:   newTextInput("(11) 99999-9999", 24),
		value:   newTextInput(strings.TrimSpace(symbol+" 500.000"), 24),
		address: newTextInput("Rua, número, cidade", 128),
		rate:    newTextInput(strings.TrimSpace(symbol+" 350"), 16),
		spinner: sp,
	}
}

// startWizard creates a fresh session on step 1.
func (m *model) startWizard() tea.Cmd {
	m.wizard = m.newWizardView()
	return m.enterStep()
}

func (m *model) geoAvailable() bool {
	return m.deps.Geo.State() != geo.StateUnavailable
}

// stepInputs lists the text inputs of the current step in focus order.
func (w *wizardView) stepInputs() []*textinput.Model {
	switch w.ctrl.Step() {
	case wizard.StepContact:
		return []*textinput.Model{&w.name, &w.email, &w.phone}
	case wizard.StepProperty:
		return []*textinput.Model{&w.value, &w.address}
	case wizard.StepNightlyRate:
		return []*textinput.Model{&w.rate}
	}
	return nil
}

func (w *wizardView) fieldFor(in *textinput.Model) wizard.Field {
	switch in {
	case &w.name:
		return wizard.FieldName
	case &w.email:
		return wizard.FieldEmail
	case &w.phone:
		return wizard.FieldPhone
	case &w.value:
		return wizard.FieldEstimatedValue
	case &w.address:
		return wizard.FieldAddress
	case &w.rate:
		return wizard.FieldNightlyRate
	}
	return ""
}

func (w *wizardView) focusedInput() *textinput.Model {
	inputs := w.stepInputs()
	if w.focus < 0 || w.focus >= len(inputs) {
		return nil
	}
	return inputs[w.focus]
}

// enterStep resets focus for the step the controller is on.
func (m *model) enterStep() tea.Cmd {
	w := &m.wizard
	w.focus = 0
	w.candidates = nil
	for _, in := range []*textinput.Model{&w.name, &w.email, &w.phone, &w.value, &w.address, &w.rate} {
		in.Blur()
	}
	f := w.ctrl.Fields()
	w.cursor = 0
	switch w.ctrl.Step() {
	case wizard.StepPropertyType:
		for i, opt := range lead.PropertyTypes {
			if opt == f.PropertyType {
				w.cursor = i
			}
		}
	case wizard.StepFurnishing:
		for i, opt := range lead.Furnishings {
			if opt == f.Furnishing {
				w.cursor = i
			}
		}
	}
	if in := w.focusedInput(); in != nil {
		return in.Focus()
	}
	return nil
}

func (m *model) moveFocus(delta int) tea.Cmd {
	w := &m.wizard
	inputs := w.stepInputs()
	if len(inputs) == 0 {
		return nil
	}
	inputs[w.focus].Blur()
	w.focus = (w.focus + delta + len(inputs)) % len(inputs)
	return inputs[w.focus].Focus()
}

func (m *model) leaveWizard() tea.Cmd {
	m.wizard = wizardView{}
	return m.goHome()
}

// WIZARD
func (m *model) updateWizard(msg tea.Msg) tea.Cmd {
	w := &m.wizard
	if w.ctrl == nil {
		return m.startWizard()
	}

	switch msg := msg.(type) {
	case submitResultMsg:
		if msg.session != w.ctrl.ID() {
			return nil
		}
		w.sending = false
		return nil
	case spinner.TickMsg:
		if !w.sending {
			return nil
		}
		var cmd tea.Cmd
		w.spinner, cmd = w.spinner.Update(msg)
		return cmd
	case searchTickMsg:
		if msg.seq != w.searchSeq {
			return nil
		}
		return m.searchCmd(msg.seq, msg.query)
	case searchResultMsg:
		if msg.seq != w.searchSeq {
			return nil
		}
		w.searching = false
		w.candidates = msg.results
		w.candidate = 0
		w.searchErr = ""
		if msg.err != nil {
			w.searchErr = "Não foi possível buscar o endereço. Digite-o completo e pressione Enter."
		}
		return nil
	case tea.KeyMsg:
		return m.handleWizardKey(msg)
	}

	if in := w.focusedInput(); in != nil {
		var cmd tea.Cmd
		*in, cmd = in.Update(msg)
		return cmd
	}
	return nil
}

func (m *model) handleWizardKey(key tea.KeyMsg) tea.Cmd {
	w := &m.wizard
	if w.sending {
		return nil
	}
	if w.ctrl.Status() == wizard.StatusSuccess {
		switch key.Type {
		case tea.KeyEnter, tea.KeyEsc:
			m.infoMessage = "Obrigado! Seu cadastro foi enviado."
			return m.leaveWizard()
		}
		return nil
	}

	switch key.Type {
	case tea.KeyEsc:
		if !w.ctrl.Retreat() {
			return m.leaveWizard()
		}
		return m.enterStep()
	case tea.KeyTab:
		return m.moveFocus(1)
	case tea.KeyShiftTab:
		return m.moveFocus(-1)
	case tea.KeyEnter:
		return m.handleWizardEnter()
	}

	switch w.ctrl.Step() {
	case wizard.StepPropertyType:
		w.cursor = moveCursor(w.cursor, len(lead.PropertyTypes), key)
		if isToggleKey(key) {
			w.ctrl.SetField(wizard.FieldPropertyType, string(lead.PropertyTypes[w.cursor]))
		}
		return nil
	case wizard.StepPlatforms:
		w.cursor = moveCursor(w.cursor, len(lead.Platforms), key)
		if isToggleKey(key) {
			w.ctrl.TogglePlatform(lead.Platforms[w.cursor])
		}
		return nil
	case wizard.StepFurnishing:
		w.cursor = moveCursor(w.cursor, len(lead.Furnishings), key)
		if isToggleKey(key) {
			w.ctrl.SetField(wizard.FieldFurnishing, string(lead.Furnishings[w.cursor]))
		}
		return nil
	}

	in := w.focusedInput()
	if in == nil {
		return nil
	}
	if in == &w.address && len(w.candidates) > 0 {
		switch key.Type {
		case tea.KeyUp:
			if w.candidate > 0 {
				w.candidate--
			}
			return nil
		case tea.KeyDown:
			if w.candidate < len(w.candidates)-1 {
				w.candidate++
			}
			return nil
		}
	}
	switch key.Type {
	case tea.KeyUp:
		return m.moveFocus(-1)
	case tea.KeyDown:
		return m.moveFocus(1)
	}

	before := in.Value()
	var cmd tea.Cmd
	*in, cmd = in.Update(key)
	if in.Value() == before {
		return cmd
	}
	return batchCmds([]tea.Cmd{cmd, m.applyInput(in, before)})
}

// applyInput pushes the edited input into the controller. before is the text
// the input held prior to the edit.
func (m *model) applyInput(in *textinput.Model, before string) tea.Cmd {
	w := &m.wizard
	field := w.fieldFor(in)
	rules := w.ctrl.Rules()
	switch field {
	case wizard.FieldEstimatedValue, wizard.FieldNightlyRate:
		unit := rules.ValueUnit
		if field == wizard.FieldNightlyRate {
			unit = rules.RateUnit
		}
		_, formatted, err := m.deps.Formatter.Reformat(in.Value(), unit)
		if err != nil {
			// the amount no longer fits, so the keystroke is dropped
			in.SetValue(before)
			in.CursorEnd()
			return nil
		}
		in.SetValue(formatted)
		in.CursorEnd()
		w.ctrl.SetField(field, formatted)
		return nil
	case wizard.FieldAddress:
		if !m.deps.Geo.Configured() {
			w.ctrl.SetField(wizard.FieldAddress, in.Value())
			return nil
		}
		if m.geoAvailable() {
			// a typed change discards the previously chosen candidate
			w.ctrl.SetField(wizard.FieldAddress, "")
		} else {
			// search failed last time: keep the typed text and retry in the background
			w.ctrl.SetField(wizard.FieldAddress, in.Value())
		}
		w.candidates = nil
		w.searchErr = ""
		w.searchSeq++
		query := strings.TrimSpace(in.Value())
		if len([]rune(query)) < geo.MinQueryLength {
			w.searching = false
			return nil
		}
		w.searching = true
		seq := w.searchSeq
		return tea.Tick(searchDelay, func(time.Time) tea.Msg {
			return searchTickMsg{seq: seq, query: query}
		})
	default:
		w.ctrl.SetField(field, in.Value())
		return nil
	}
}

func (m *model) searchCmd(seq int, query string) tea.Cmd {
	service := m.deps.Geo
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		results, err := service.Search(ctx, query)
		return searchResultMsg{seq: seq, results: results, err: err}
	}
}

func (m *model) handleWizardEnter() tea.Cmd {
	w := &m.wizard
	switch w.ctrl.Step() {
	case wizard.StepPropertyType:
		w.ctrl.SetField(wizard.FieldPropertyType, string(lead.PropertyTypes[w.cursor]))
		return m.advance()
	case wizard.StepPlatforms:
		return m.advance()
	case wizard.StepFurnishing:
		w.ctrl.SetField(wizard.FieldFurnishing, string(lead.Furnishings[w.cursor]))
		return m.submit()
	}

	in := w.focusedInput()
	if in == &w.address {
		switch {
		case len(w.candidates) > 0:
			chosen := w.candidates[w.candidate]
			w.ctrl.SelectAddress(chosen)
			in.SetValue(chosen.Display)
			in.CursorEnd()
			w.candidates = nil
			w.searchSeq++
			w.searching = false
		case strings.TrimSpace(in.Value()) != "" && w.ctrl.Fields().Address.Empty():
			w.ctrl.SetField(wizard.FieldAddress, in.Value())
		}
	}
	if inputs := w.stepInputs(); w.focus < len(inputs)-1 {
		return m.moveFocus(1)
	}
	return m.advance()
}

// advance moves on when the step is valid; otherwise the disabled button and
// hints already explain what is missing.
func (m *model) advance() tea.Cmd {
	if !m.wizard.ctrl.Advance() {
		return nil
	}
	return m.enterStep()
}

func (m *model) submit() tea.Cmd {
	w := &m.wizard
	if !w.ctrl.CanSubmit() {
		return nil
	}
	w.sending = true
	ctrl := w.ctrl
	run := func() tea.Msg {
		return submitResultMsg{session: ctrl.ID(), err: ctrl.Submit(context.Background())}
	}
	return tea.Batch(w.spinner.Tick, run)
}

func moveCursor(cursor, n int, key tea.KeyMsg) int {
	switch key.Type {
	case tea.KeyLeft, tea.KeyUp:
		if cursor > 0 {
			return cursor - 1
		}
	case tea.KeyRight, tea.KeyDown:
		if cursor < n-1 {
			return cursor + 1
		}
	}
	return cursor
}

func isToggleKey(key tea.KeyMsg) bool {
	return key.Type == tea.KeySpace || key.String() == " " || key.String() == "x"
}

func (m *model) viewWizard() string {
	w := &m.wizard
	if w.ctrl == nil {
		return ""
	}
	if w.ctrl.Status() == wizard.StatusSuccess {
		return m.viewWizardSuccess()
	}

	step := w.ctrl.Step()
	info, _ := wizard.Info(step)
	lines := []string{m.theme.Title.Render("Cadastre seu imóvel")}
	lines = append(lines, m.progressBar(step))
	lines = append(lines, "")
	lines = append(lines, m.theme.Subtitle.Render(fmt.Sprintf("%d. %s", step, info.Title)))
	lines = append(lines, m.theme.Faint.Render(info.Hint))
	lines = append(lines, "")

	f := w.ctrl.Fields()
	switch step {
	case wizard.StepContact:
		lines = append(lines, m.inputLine("Nome", &w.name))
		lines = append(lines, m.inputLine("E-mail", &w.email))
		lines = append(lines, m.inputLine("Telefone", &w.phone))
	case wizard.StepPropertyType:
		labels := make([]string, len(lead.PropertyTypes))
		selected := make([]bool, len(lead.PropertyTypes))
		for i, opt := range lead.PropertyTypes {
			labels[i] = opt.Label()
			selected[i] = f.PropertyType == opt
		}
		lines = append(lines, m.cards(labels, selected, w.cursor))
	case wizard.StepProperty:
		lines = append(lines, m.inputLine("Valor estimado", &w.value))
		lines = append(lines, m.inputLine("Endereço", &w.address))
		lines = append(lines, m.addressLines(f.Address)...)
	case wizard.StepNightlyRate:
		lines = append(lines, m.inputLine("Diária desejada", &w.rate))
	case wizard.StepPlatforms:
		labels := make([]string, len(lead.Platforms))
		selected := make([]bool, len(lead.Platforms))
		for i, opt := range lead.Platforms {
			labels[i] = opt.Label()
			selected[i] = f.HasPlatform(opt)
		}
		lines = append(lines, m.cards(labels, selected, w.cursor))
		lines = append(lines, m.theme.Faint.Render(fmt.Sprintf("Espaço marca ou desmarca. %q desmarca as demais.", lead.PlatformNone.Label())))
	case wizard.StepFurnishing:
		labels := make([]string, len(lead.Furnishings))
		selected := make([]bool, len(lead.Furnishings))
		for i, opt := range lead.Furnishings {
			labels[i] = opt.Label()
			selected[i] = f.Furnishing == opt
		}
		lines = append(lines, m.cards(labels, selected, w.cursor))
	}

	lines = append(lines, "")
	lines = append(lines, m.wizardControls(step)...)
	lines = append(lines, "")
	lines = append(lines, m.theme.HelpKey.Render("enter")+" "+m.theme.HelpValue.Render("continuar")+"  "+
		m.theme.HelpKey.Render("tab")+" "+m.theme.HelpValue.Render("próximo campo")+"  "+
		m.theme.HelpKey.Render("esc")+" "+m.theme.HelpValue.Render("voltar"))
	return strings.Join(lines, "\n") + "\n"
}

func (m *model) wizardControls(step int) []string {
	w := &m.wizard
	var lines []string
	if step == wizard.StepCount {
		switch {
		case w.sending:
			lines = append(lines, w.spinner.View()+" "+m.theme.Secondary.Render("Enviando seu cadastro..."))
			return lines
		case w.ctrl.Status() == wizard.StatusError:
			lines = append(lines, m.theme.Danger.Render(fmt.Sprintf("Não foi possível enviar (tentativa %d): %s", w.ctrl.Attempts(), errText(w.ctrl.Err()))))
			lines = append(lines, m.theme.Warning.Render("Seus dados foram mantidos. Pressione Enter para tentar novamente."))
		}
		if w.ctrl.CanSubmit() {
			lines = append(lines, m.theme.Button.Render("Enviar cadastro"))
		} else {
			lines = append(lines, m.theme.Disabled.Render("Enviar cadastro"))
		}
	} else if w.ctrl.CanAdvance() {
		lines = append(lines, m.theme.Button.Render("Continuar"))
	} else {
		lines = append(lines, m.theme.Disabled.Render("Continuar"))
	}
	for _, p := range w.ctrl.Problems() {
		lines = append(lines, m.theme.Faint.Render("• "+p))
	}
	return lines
}

func (m *model) viewWizardSuccess() string {
	f := m.wizard.ctrl.Fields()
	first, _ := lead.SplitName(f.Name)
	lines := []string{
		m.theme.Title.Render("Cadastro enviado"),
		"",
		m.theme.Success.Render(fmt.Sprintf("Obrigado, %s! Recebemos os dados do seu imóvel.", first)),
		m.theme.Secondary.Render("Nossa equipe entrará em contato pelo e-mail ou telefone informado."),
		"",
		m.theme.Faint.Render(fmt.Sprintf("%s em %s", f.PropertyType.Label(), f.Address.Display)),
		m.theme.Faint.Render("Diária desejada: " + m.deps.Formatter.Format(f.NightlyRate, m.deps.Rules.RateUnit)),
		"",
		m.theme.HelpKey.Render("enter") + " " + m.theme.HelpValue.Render("voltar ao menu"),
	}
	return strings.Join(lines, "\n") + "\n"
}

func (m *model) progressBar(step int) string {
	all := wizard.Steps()
	parts := make([]string, 0, len(all))
	for _, info := range all {
		switch i := info.Index; {
		case i < step:
			parts = append(parts, m.theme.Success.Render("●"))
		case i == step:
			parts = append(parts, m.theme.Highlight.Render("●"))
		default:
			parts = append(parts, m.theme.Faint.Render("○"))
		}
	}
	return m.theme.Progress.Render(fmt.Sprintf("Etapa %d de %d ", step, len(all))) + strings.Join(parts, " ")
}

func (m *model) inputLine(label string, in *textinput.Model) string {
	style := m.theme.Secondary
	if in.Focused() {
		style = m.theme.Accent
	}
	return style.Render(fmt.Sprintf("%-16s", label)) + " " + in.View()
}

func (m *model) cards(labels []string, selected []bool, cursor int) string {
	rendered := make([]string, len(labels))
	for i, label := range labels {
		style := m.theme.Card
		mark := "  "
		if selected[i] {
			style = m.theme.CardSelected
			mark = "✓ "
		}
		if i == cursor {
			style = style.BorderForeground(m.theme.CardFocused.GetBorderTopForeground()).Bold(true)
		}
		rendered[i] = style.Render(mark + label)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (m *model) addressLines(current lead.Address) []string {
	w := &m.wizard
	var lines []string
	switch {
	case w.searching:
		lines = append(lines, m.theme.Faint.Render("Buscando endereços..."))
	case !m.geoAvailable():
		lines = append(lines, m.theme.Warning.Render("Busca de endereços indisponível. Digite o endereço completo."))
		if err := m.deps.Geo.LastError(); err != nil {
			lines = append(lines, m.theme.Faint.Render(errText(err)))
		}
	case w.searchErr != "":
		lines = append(lines, m.theme.Warning.Render(w.searchErr))
	}
	for i, c := range w.candidates {
		prefix := "  "
		style := m.theme.Secondary
		if i == w.candidate {
			prefix = "› "
			style = m.theme.Highlight
		}
		lines = append(lines, style.Render(prefix+c.Display))
	}
	if !current.Empty() {
		text := "✓ " + current.Display
		if current.HasCoordinates() {
			text += " (" + current.Coordinates.String() + ")"
		}
		lines = append(lines, m.theme.Success.Render(text))
	}
	return lines
}

func errText(err error) string {
	if err == nil {
		return "erro desconhecido"
	}
	return err.Error()
}
