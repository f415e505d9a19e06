package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"leadterm/internal/config"
	"leadterm/internal/currency"
	"leadterm/internal/geo"
	"leadterm/internal/listing"
	"leadterm/internal/storage"
	"leadterm/internal/theme"
	"leadterm/internal/wizard"
)

// LeadReader lists submitted leads.
type LeadReader interface {
	ListLeads(ctx context.Context, limit int) ([]storage.Lead, error)
	SearchLeads(ctx context.Context, term string, limit int) ([]storage.Lead, error)
}

// ListingImporter loads listings from CSV.
type ListingImporter interface {
	ImportListingsCSV(ctx context.Context, r io.Reader) (storage.ImportResult, error)
}

// Deps are the collaborators injected into the UI. Importer may be nil.
type Deps struct {
	Config    *config.Store
	Listings  listing.Repository
	Favorites listing.Favorites
	Leads     LeadReader
	Importer  ListingImporter
	Geo       *geo.Service
	Submitter wizard.Submitter
	Formatter *currency.Formatter
	Rules     wizard.Rules
}

// Program wraps the Bubble Tea program lifecycle.
type Program struct {
	program *tea.Program
}

// NewProgram constructs a new interactive session.
func NewProgram(deps Deps) *Program {
	m := newModel(deps)
	return &Program{program: tea.NewProgram(m, tea.WithAltScreen())}
}

// Start launches the Bubble Tea program and blocks until it exits.
func (p *Program) Start() error {
	if p == nil || p.program == nil {
		return fmt.Errorf("nil program")
	}
	_, err := p.program.Run()
	return err
}

type viewState int

const (
	stateMainMenu viewState = iota
	stateWizard
	stateListings
	stateListingDetail
	stateFavorites
	stateLeads
	stateSettings
)

type model struct {
	state       viewState
	prevStates  []viewState
	deps        Deps
	theme       theme.Theme
	width       int
	height      int
	infoMessage string
	errMessage  string
	showSplash  bool

	menuInput textinput.Model

	wizard    wizardView
	listings  listingsView
	detail    listingDetail
	favorites favoritesView
	leads     leadsView
	settings  settingsModel
}

type menuOption struct {
	id       string
	keywords []string
	synonyms []string
}

const (
	menuWizard    = "wizard"
	menuListings  = "listings"
	menuFavorites = "favorites"
	menuLeads     = "leads"
	menuSettings  = "settings"
	menuQuit      = "quit"
)

var mainMenuOptions = []menuOption{
	{
		id:       menuWizard,
		keywords: []string{"cadastrar", "anunciar", "wizard"},
		synonyms: []string{"1", "c", "cadastrar", "cadastrar imóvel", "anunciar", "wizard", "owner"},
	},
	{
		id:       menuListings,
		keywords: []string{"imoveis", "imóveis", "listings"},
		synonyms: []string{"2", "i", "imoveis", "imóveis", "listings", "catalogo", "catálogo"},
	},
	{
		id:       menuFavorites,
		keywords: []string{"favoritos", "favorites"},
		synonyms: []string{"3", "f", "favoritos", "favorites", "favs"},
	},
	{
		id:       menuLeads,
		keywords: []string{"leads", "contatos"},
		synonyms: []string{"4", "l", "leads", "contatos"},
	},
	{
		id:       menuSettings,
		keywords: []string{"configurações", "configuracoes", "settings"},
		synonyms: []string{"5", "config", "configurações", "configuracoes", "settings", "ajuda", "help"},
	},
	{
		id:       menuQuit,
		keywords: []string{"sair", "quit", "exit"},
		synonyms: []string{"6", "sair", "quit", "exit", "exit.", "q"},
	},
}

const menuPlaceholder = "Escolha uma opção"

const splashBanner = ` _                _ _
| | ___  __ _  __| | |_ ___ _ __ _ __ ___
| |/ _ \/ _' |/ _' | __/ _ \ '__| '_ ' _ \
| |  __/ (_| | (_| | ||  __/ |  | | | | | |
|_|\___|\__,_|\__,_|\__\___|_|  |_| |_| |_|
`

func newModel(deps Deps) *model {
	ti := textinput.New()
	ti.Prompt = ""
	ti.Placeholder = menuPlaceholder
	ti.CharLimit = 32
	ti.Focus()

	if deps.Formatter == nil {
		deps.Formatter = currency.MustFormatter("pt-BR", "")
	}
	if deps.Rules.PhoneMinDigits == 0 {
		deps.Rules = wizard.DefaultRules()
	}

	m := model{
		state:      stateMainMenu,
		deps:       deps,
		theme:      theme.Default(),
		menuInput:  ti,
		listings:   newListingsView(),
		leads:      newLeadsView(),
		settings:   newSettingsModel(),
		showSplash: true,
	}
	return &m
}

func (m *model) Init() tea.Cmd {
	return textinput.Blink
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	}

	var cmd tea.Cmd
	switch m.state {
	case stateMainMenu:
		cmd = m.updateMainMenu(msg)
	case stateWizard:
		cmd = m.updateWizard(msg)
	case stateListings:
		cmd = m.updateListings(msg)
	case stateListingDetail:
		cmd = m.updateListingDetail(msg)
	case stateFavorites:
		cmd = m.updateFavorites(msg)
	case stateLeads:
		cmd = m.updateLeads(msg)
	case stateSettings:
		cmd = m.updateSettings(msg)
	default:
		m.state = stateMainMenu
		cmd = m.updateMainMenu(msg)
	}
	return m, cmd
}

func (m *model) View() string {
	switch m.state {
	case stateMainMenu:
		return m.viewMainMenu()
	case stateWizard:
		return m.viewWizard()
	case stateListings:
		return m.viewListings()
	case stateListingDetail:
		return m.viewListingDetail()
	case stateFavorites:
		return m.viewFavorites()
	case stateLeads:
		return m.viewLeads()
	case stateSettings:
		return m.viewSettings()
	default:
		return ""
	}
}

// Navigation helpers
func (m *model) pushState(next viewState) {
	m.prevStates = append(m.prevStates, m.state)
	m.state = next
}

func (m *model) popState() {
	if len(m.prevStates) == 0 {
		m.state = stateMainMenu
		return
	}
	idx := len(m.prevStates) - 1
	m.state = m.prevStates[idx]
	m.prevStates = m.prevStates[:idx]
}

// goHome drops the navigation stack and refocuses the main menu.
func (m *model) goHome() tea.Cmd {
	m.prevStates = nil
	m.state = stateMainMenu
	return m.setMenuInput(menuPlaceholder, 32)
}

// goBack pops one screen and restores the input that screen expects.
func (m *model) goBack() tea.Cmd {
	m.popState()
	switch m.state {
	case stateMainMenu:
		return m.setMenuInput(menuPlaceholder, 32)
	case stateListings:
		m.refreshListings()
		return m.listings.filter.Focus()
	case stateFavorites:
		m.refreshFavorites()
		return m.setMenuInput(favoritesPlaceholder, 32)
	}
	return nil
}

func (m *model) resetMessages() {
	m.errMessage = ""
	m.infoMessage = ""
}

func (m *model) setMenuInput(placeholder string, limit int) tea.Cmd {
	input := textinput.New()
	input.Prompt = ""
	input.Placeholder = placeholder
	if limit > 0 {
		input.CharLimit = limit
	}
	cmd := input.Focus()
	m.menuInput = input
	return cmd
}

func (m *model) ensureMenuInput(placeholder string, limit int) tea.Cmd {
	if strings.TrimSpace(m.menuInput.Placeholder) == placeholder {
		if limit <= 0 || m.menuInput.CharLimit == limit {
			if !m.menuInput.Focused() {
				return m.menuInput.Focus()
			}
			return nil
		}
	}
	return m.setMenuInput(placeholder, limit)
}

// resolveOption matches input against exact synonyms first, then against a
// unique keyword prefix.
func resolveOption(options []menuOption, input string) (string, bool) {
	value := strings.TrimSpace(strings.ToLower(input))
	if value == "" {
		return "", false
	}
	for _, option := range options {
		for _, syn := range option.synonyms {
			if value == syn {
				return option.id, true
			}
		}
	}

	matches := make(map[string]struct{})
	for _, option := range options {
		for _, keyword := range option.keywords {
			if strings.HasPrefix(keyword, value) {
				matches[option.id] = struct{}{}
				break
			}
		}
	}
	if len(matches) == 1 {
		for id := range matches {
			return id, true
		}
	}
	return "", false
}

func resolveMainMenuSelection(input string) (string, bool) {
	return resolveOption(mainMenuOptions, input)
}

func expandPath(p string) (string, error) {
	trimmed := strings.TrimSpace(p)
	if trimmed == "" {
		return "", fmt.Errorf("empty path")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err == nil {
			switch {
			case len(trimmed) == 1:
				trimmed = home
			case trimmed[1] == '/', trimmed[1] == '\\':
				trimmed = filepath.Join(home, trimmed[2:])
			}
		}
	}
	return filepath.Abs(trimmed)
}

func batchCmds(cmds []tea.Cmd) tea.Cmd {
	filtered := cmds[:0]
	for _, c := range cmds {
		if c != nil {
			filtered = append(filtered, c)
		}
	}
	switch len(filtered) {
	case 0:
		return nil
	case 1:
		return filtered[0]
	default:
		return tea.Batch(filtered...)
	}
}

// global command helpers
func isExitCommand(value string) bool {
	v := strings.TrimSpace(strings.ToLower(value))
	return v == "exit." || v == "quit" || v == "sair"
}

func isBackCommand(value string) bool {
	v := strings.TrimSpace(strings.ToLower(value))
	return v == "/" || v == "back" || v == "voltar"
}

func (m *model) owner() string {
	if m.deps.Config == nil {
		return ""
	}
	return m.deps.Config.Config.Name
}

// MAIN MENU
func (m *model) updateMainMenu(msg tea.Msg) tea.Cmd {
	var cmds []tea.Cmd
	if focus := m.ensureMenuInput(menuPlaceholder, 32); focus != nil {
		cmds = append(cmds, focus)
	}

	var cmd tea.Cmd
	m.menuInput, cmd = m.menuInput.Update(msg)
	if cmd != nil {
		cmds = append(cmds, cmd)
	}

	if key, ok := msg.(tea.KeyMsg); ok && key.Type == tea.KeyEnter {
		choice := strings.TrimSpace(strings.ToLower(m.menuInput.Value()))
		m.menuInput.SetValue("")
		m.showSplash = false
		action, ok := resolveMainMenuSelection(choice)
		if !ok {
			if choice == "" || choice == "0" {
				return batchCmds(cmds)
			}
			m.errMessage = "Opção desconhecida"
			return batchCmds(cmds)
		}
		m.resetMessages()
		switch action {
		case menuWizard:
			m.pushState(stateWizard)
			cmds = append(cmds, m.startWizard())
		case menuListings:
			m.pushState(stateListings)
			m.listings.filter.SetValue("")
			m.refreshListings()
			cmds = append(cmds, m.listings.filter.Focus())
		case menuFavorites:
			m.pushState(stateFavorites)
			m.refreshFavorites()
			cmds = append(cmds, m.setMenuInput(favoritesPlaceholder, 32))
		case menuLeads:
			m.pushState(stateLeads)
			m.leads.filter.SetValue("")
			m.leads.expanded = -1
			m.refreshLeads()
			cmds = append(cmds, m.leads.filter.Focus())
		case menuSettings:
			m.settings = newSettingsModel()
			m.pushState(stateSettings)
			cmds = append(cmds, m.setMenuInput(settingsPlaceholder, 40))
		case menuQuit:
			cmds = append(cmds, tea.Quit)
		}
	}

	return batchCmds(cmds)
}

func (m *model) viewMainMenu() string {
	lines := []string{}
	if m.showSplash {
		lines = append(lines, splashBanner)
		lines = append(lines, "")
	}
	lines = append(lines, m.theme.Title.Render("leadterm"))
	lines = append(lines, m.theme.Secondary.Render("Gestão de imóveis por temporada"))
	if m.infoMessage != "" {
		lines = append(lines, m.theme.Success.Render(m.infoMessage))
	}
	if m.errMessage != "" {
		lines = append(lines, m.theme.Danger.Render(m.errMessage))
	}
	menu := []string{
		"1. Cadastrar meu imóvel",
		"2. Imóveis",
		"3. Favoritos",
		"4. Leads recebidos",
		"5. Configurações",
		"6. Sair",
	}
	lines = append(lines, "")
	for _, item := range menu {
		lines = append(lines, m.theme.Primary.Render(item))
	}
	lines = append(lines, "")
	lines = append(lines, m.theme.Accent.Render("> ")+m.menuInput.View())
	return strings.Join(lines, "\n") + "\n"
}
