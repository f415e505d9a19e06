package ui

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"leadterm/internal/currency"
	"leadterm/internal/listing"
	"leadterm/internal/storage"
)

type listingsView struct {
	filter textinput.Model
	items  []listing.Listing
	favs   map[string]bool
}

type listingDetail struct {
	item     listing.Listing
	favorite bool
	err      string
}

type favoritesView struct {
	items []listing.Listing
}

const (
	detailActionFavorite = "favorite"
	detailActionBack     = "back"
)

const (
	detailPlaceholder    = "1=Favoritar  2=Voltar"
	favoritesPlaceholder = "Número do imóvel, / para voltar"
)

var listingDetailOptions = []menuOption{
	{
		id:       detailActionFavorite,
		keywords: []string{"favoritar", "favorite"},
		synonyms: []string{"1", "f", "fav", "favoritar", "desfavoritar", "favorite"},
	},
	{
		id:       detailActionBack,
		keywords: []string{"voltar", "back"},
		synonyms: []string{"2", "voltar", "back", "/", "exit."},
	},
}

func newListingsView() listingsView {
	filter := textinput.New()
	filter.Prompt = ""
	filter.Placeholder = "Digite para buscar, / para voltar"
	filter.CharLimit = 64
	return listingsView{filter: filter, favs: map[string]bool{}}
}

func (m *model) refreshListings() {
	if m.deps.Listings == nil {
		m.listings.items = nil
		return
	}
	ctx := context.Background()
	items, err := m.deps.Listings.ListListings(ctx, listing.Filter{Text: strings.TrimSpace(m.listings.filter.Value())})
	if err != nil {
		m.errMessage = fmt.Sprintf("carregar imóveis: %v", err)
		return
	}
	m.listings.items = items
	m.listings.favs = m.favoriteSet()
}

func (m *model) favoriteSet() map[string]bool {
	set := map[string]bool{}
	if m.deps.Favorites == nil {
		return set
	}
	ids, err := m.deps.Favorites.ListFavorites(context.Background(), m.owner())
	if err != nil {
		m.errMessage = fmt.Sprintf("carregar favoritos: %v", err)
		return set
	}
	for _, id := range ids {
		set[id] = true
	}
	return set
}

// resolveListingSelection accepts a 1-based index or an exact or unique
// prefix title match.
func resolveListingSelection(items []listing.Listing, input string) (listing.Listing, bool) {
	trimmed := strings.TrimSpace(input)
	lower := strings.ToLower(trimmed)
	for _, prefix := range []string{"abrir ", "open ", "#"} {
		if strings.HasPrefix(lower, prefix) {
			trimmed = strings.TrimSpace(trimmed[len(prefix):])
			lower = strings.ToLower(trimmed)
			break
		}
	}
	if trimmed == "" {
		if len(items) == 1 {
			return items[0], true
		}
		return listing.Listing{}, false
	}
	if idx, err := strconv.Atoi(trimmed); err == nil {
		if idx > 0 && idx <= len(items) {
			return items[idx-1], true
		}
		return listing.Listing{}, false
	}
	var match listing.Listing
	count := 0
	for _, l := range items {
		if strings.EqualFold(l.Title, trimmed) {
			return l, true
		}
		if strings.HasPrefix(strings.ToLower(l.Title), lower) {
			match = l
			count++
		}
	}
	return match, count == 1
}

func (m *model) handleListingImport(path string) {
	m.infoMessage = ""
	if m.deps.Importer == nil {
		m.errMessage = "Importação indisponível"
		return
	}
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		m.errMessage = "Informe o caminho do CSV"
		return
	}
	resolved, err := expandPath(trimmed)
	if err != nil {
		m.errMessage = fmt.Sprintf("caminho: %v", err)
		return
	}
	file, err := os.Open(resolved)
	if err != nil {
		m.errMessage = fmt.Sprintf("abrir arquivo: %v", err)
		return
	}
	defer file.Close()
	result, err := m.deps.Importer.ImportListingsCSV(context.Background(), file)
	if err != nil {
		m.errMessage = fmt.Sprintf("importar csv: %v", err)
		return
	}
	parts := []string{fmt.Sprintf("%d imóvel(is) importado(s)", result.Created)}
	if result.Skipped > 0 {
		parts = append(parts, fmt.Sprintf("%d ignorado(s)", result.Skipped))
	}
	m.infoMessage = strings.Join(parts, ", ")
	if len(result.Errors) > 0 {
		m.errMessage = strings.Join(result.Errors, "; ")
	} else {
		m.errMessage = ""
	}
}

// LISTINGS
func (m *model) updateListings(msg tea.Msg) tea.Cmd {
	var cmds []tea.Cmd
	before := m.listings.filter.Value()
	var cmd tea.Cmd
	m.listings.filter, cmd = m.listings.filter.Update(msg)
	if cmd != nil {
		cmds = append(cmds, cmd)
	}

	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyEnter:
			value := strings.TrimSpace(m.listings.filter.Value())
			if isExitCommand(value) {
				m.listings.filter.SetValue("")
				cmds = append(cmds, m.goHome())
				return batchCmds(cmds)
			}
			if isBackCommand(value) {
				m.listings.filter.SetValue("")
				cmds = append(cmds, m.goBack())
				return batchCmds(cmds)
			}
			if strings.HasPrefix(strings.ToLower(value), "import ") {
				m.handleListingImport(value[len("import "):])
				m.listings.filter.SetValue("")
				m.refreshListings()
				return batchCmds(cmds)
			}
			item, ok := resolveListingSelection(m.listings.items, value)
			if !ok && len(m.listings.items) == 1 {
				// the search already narrowed to one listing
				item, ok = m.listings.items[0], true
			}
			if ok {
				m.listings.filter.SetValue("")
				cmds = append(cmds, m.openListingDetail(item))
				return batchCmds(cmds)
			}
		case tea.KeyEsc:
			m.listings.filter.SetValue("")
			cmds = append(cmds, m.goBack())
			return batchCmds(cmds)
		}
	}

	if m.listings.filter.Value() != before {
		m.refreshListings()
	}
	return batchCmds(cmds)
}

// formatRate shows cents only for rates that have them.
func (m *model) formatRate(v float64) string {
	if v != math.Trunc(v) {
		return m.deps.Formatter.Format(v, currency.Cents)
	}
	return m.deps.Formatter.Format(v, currency.Whole)
}

func (m *model) viewListings() string {
	lines := []string{m.theme.Title.Render("Imóveis")}
	lines = append(lines, m.theme.Faint.Render("Digite para buscar. Enter com número ou título abre o imóvel; 'import <csv>' carrega uma planilha. '/' volta, 'exit.' vai ao início."))
	if m.infoMessage != "" {
		lines = append(lines, m.theme.Success.Render(m.infoMessage))
	}
	if m.errMessage != "" {
		lines = append(lines, m.theme.Danger.Render(m.errMessage))
	}
	lines = append(lines, "")
	if len(m.listings.items) == 0 {
		lines = append(lines, m.theme.Warning.Render("Nenhum imóvel encontrado."))
	} else {
		for i, l := range m.listings.items {
			header := fmt.Sprintf("%d. %s", i+1, l.Title)
			if m.listings.favs[l.ID] {
				header += " ★"
			}
			lines = append(lines, m.theme.Primary.Render(header))
			meta := []string{l.PropertyType.Label(), l.Address(), m.formatRate(l.NightlyRate) + "/noite"}
			if l.Rating != nil {
				meta = append(meta, fmt.Sprintf("nota %.1f", *l.Rating))
			}
			lines = append(lines, "  "+m.theme.Secondary.Render(strings.Join(meta, "  •  ")))
		}
	}
	lines = append(lines, "")
	lines = append(lines, m.theme.Border.Render(strings.Repeat("─", 40)))
	lines = append(lines, m.theme.Accent.Render("buscar> ")+m.listings.filter.View())
	return strings.Join(lines, "\n") + "\n"
}

// LISTING DETAIL
func (m *model) openListingDetail(item listing.Listing) tea.Cmd {
	m.detail = listingDetail{item: item}
	if m.deps.Favorites != nil {
		on, err := m.deps.Favorites.IsFavorite(context.Background(), m.owner(), item.ID)
		if err != nil {
			m.detail.err = fmt.Sprintf("carregar favorito: %v", err)
		}
		m.detail.favorite = on
	}
	m.pushState(stateListingDetail)
	return m.setMenuInput(detailPlaceholder, 32)
}

func (m *model) updateListingDetail(msg tea.Msg) tea.Cmd {
	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.menuInput, cmd = m.menuInput.Update(msg)
	if cmd != nil {
		cmds = append(cmds, cmd)
	}
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return batchCmds(cmds)
	}
	switch key.Type {
	case tea.KeyEsc:
		cmds = append(cmds, m.goBack())
		return batchCmds(cmds)
	case tea.KeyEnter:
	default:
		return batchCmds(cmds)
	}

	value := m.menuInput.Value()
	m.menuInput.SetValue("")
	action, ok := resolveOption(listingDetailOptions, value)
	if !ok {
		if strings.TrimSpace(value) != "" {
			m.detail.err = "Opção desconhecida"
		}
		return batchCmds(cmds)
	}
	switch action {
	case detailActionFavorite:
		m.toggleDetailFavorite()
	case detailActionBack:
		cmds = append(cmds, m.goBack())
	}
	return batchCmds(cmds)
}

func (m *model) toggleDetailFavorite() {
	if m.deps.Favorites == nil {
		m.detail.err = "Favoritos indisponíveis"
		return
	}
	on, err := listing.ToggleFavorite(context.Background(), m.deps.Favorites, m.owner(), m.detail.item.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			m.detail.err = "Este imóvel não existe mais"
			return
		}
		m.detail.err = fmt.Sprintf("favoritar: %v", err)
		return
	}
	m.detail.err = ""
	m.detail.favorite = on
}

func (m *model) viewListingDetail() string {
	l := m.detail.item
	title := l.Title
	if m.detail.favorite {
		title += " ★"
	}
	lines := []string{m.theme.Title.Render(title)}
	lines = append(lines, m.theme.Secondary.Render(l.PropertyType.Label()+" em "+l.Address()))
	lines = append(lines, "")
	lines = append(lines, m.theme.Primary.Render("Diária: "+m.formatRate(l.NightlyRate)))
	var rooms []string
	if l.Bedrooms != nil {
		rooms = append(rooms, fmt.Sprintf("%d quarto(s)", *l.Bedrooms))
	}
	if l.Bathrooms != nil {
		rooms = append(rooms, fmt.Sprintf("%d banheiro(s)", *l.Bathrooms))
	}
	if l.Guests != nil {
		rooms = append(rooms, fmt.Sprintf("até %d hóspedes", *l.Guests))
	}
	if len(rooms) > 0 {
		lines = append(lines, m.theme.Secondary.Render(strings.Join(rooms, "  •  ")))
	}
	if l.Rating != nil {
		lines = append(lines, m.theme.Secondary.Render(fmt.Sprintf("Nota %.1f", *l.Rating)))
	}
	if l.Coordinates != nil {
		lines = append(lines, m.theme.Faint.Render("Localização: "+l.Coordinates.String()))
	}
	if l.Description != "" {
		lines = append(lines, "", l.Description)
	}
	if len(l.Amenities) > 0 {
		lines = append(lines, "", m.theme.Subtitle.Render("Comodidades"))
		for _, a := range l.Amenities {
			lines = append(lines, "  • "+a)
		}
	}
	if m.detail.err != "" {
		lines = append(lines, "", m.theme.Danger.Render(m.detail.err))
	}
	lines = append(lines, "")
	lines = append(lines, m.theme.Accent.Render("> ")+m.menuInput.View())
	return strings.Join(lines, "\n") + "\n"
}

// FAVORITES
func (m *model) refreshFavorites() {
	m.favorites.items = nil
	if m.deps.Favorites == nil || m.deps.Listings == nil {
		return
	}
	ctx := context.Background()
	ids, err := m.deps.Favorites.ListFavorites(ctx, m.owner())
	if err != nil {
		m.errMessage = fmt.Sprintf("carregar favoritos: %v", err)
		return
	}
	for _, id := range ids {
		item, err := m.deps.Listings.ListingByID(ctx, id)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			m.errMessage = fmt.Sprintf("carregar imóvel: %v", err)
			return
		}
		m.favorites.items = append(m.favorites.items, *item)
	}
}

func (m *model) updateFavorites(msg tea.Msg) tea.Cmd {
	var cmds []tea.Cmd
	if focus := m.ensureMenuInput(favoritesPlaceholder, 32); focus != nil {
		cmds = append(cmds, focus)
	}
	var cmd tea.Cmd
	m.menuInput, cmd = m.menuInput.Update(msg)
	if cmd != nil {
		cmds = append(cmds, cmd)
	}
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return batchCmds(cmds)
	}
	switch key.Type {
	case tea.KeyEsc:
		cmds = append(cmds, m.goBack())
	case tea.KeyEnter:
		value := strings.TrimSpace(m.menuInput.Value())
		m.menuInput.SetValue("")
		switch {
		case isExitCommand(value):
			cmds = append(cmds, m.goHome())
		case isBackCommand(value):
			cmds = append(cmds, m.goBack())
		default:
			if item, ok := resolveListingSelection(m.favorites.items, value); ok {
				cmds = append(cmds, m.openListingDetail(item))
			}
		}
	}
	return batchCmds(cmds)
}

func (m *model) viewFavorites() string {
	lines := []string{m.theme.Title.Render("Favoritos")}
	if m.errMessage != "" {
		lines = append(lines, m.theme.Danger.Render(m.errMessage))
	}
	lines = append(lines, "")
	if len(m.favorites.items) == 0 {
		lines = append(lines, m.theme.Warning.Render("Você ainda não favoritou nenhum imóvel."))
	}
	for i, l := range m.favorites.items {
		lines = append(lines, m.theme.Primary.Render(fmt.Sprintf("%d. %s", i+1, l.Title)))
		lines = append(lines, "  "+m.theme.Secondary.Render(l.Address()+"  •  "+m.formatRate(l.NightlyRate)+"/noite"))
	}
	lines = append(lines, "")
	lines = append(lines, m.theme.Accent.Render("> ")+m.menuInput.View())
	return strings.Join(lines, "\n") + "\n"
}
