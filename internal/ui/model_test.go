package ui

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadterm/internal/config"
	"leadterm/internal/currency"
	"leadterm/internal/geo"
	"leadterm/internal/lead"
	"leadterm/internal/listing"
	"leadterm/internal/storage"
	"leadterm/internal/wizard"
)

type stubSubmitter struct {
	mu    sync.Mutex
	calls []lead.Fields
	errs  []error
}

func (s *stubSubmitter) Submit(_ context.Context, f lead.Fields) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, f)
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return err
	}
	return nil
}

type fixture struct {
	m     *model
	store *storage.Store
	cfg   *config.Store
	sub   *stubSubmitter
}

func newFixture(t *testing.T, withGeo bool) *fixture {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	cfg, err := config.Load(filepath.Join(dir, "config.yaml"), nil)
	require.NoError(t, err)
	cfg.Config.Name = "ana"

	store, err := storage.Open(ctx, dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	_, err = store.SeedListings(ctx, listing.Seed())
	require.NoError(t, err)

	var service *geo.Service
	if withGeo {
		service = geo.NewService(geo.NewCatalog(listing.Addresses(listing.Seed())))
	} else {
		service = geo.NewService(nil)
	}

	sub := &stubSubmitter{}
	m := newModel(Deps{
		Config:    cfg,
		Listings:  store,
		Favorites: store,
		Leads:     store,
		Importer:  store,
		Geo:       service,
		Submitter: sub,
		Formatter: currency.MustFormatter("pt-BR", ""),
		Rules:     wizard.DefaultRules(),
	})
	return &fixture{m: m, store: store, cfg: cfg, sub: sub}
}

func (f *fixture) send(msg tea.Msg) tea.Cmd {
	_, cmd := f.m.Update(msg)
	return cmd
}

func (f *fixture) key(k tea.KeyType) tea.Cmd {
	return f.send(tea.KeyMsg{Type: k})
}

func (f *fixture) typeText(s string) tea.Cmd {
	return f.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

func (f *fixture) choose(s string) tea.Cmd {
	f.typeText(s)
	return f.key(tea.KeyEnter)
}

// runBatch executes cmd and every command it batches, returning the messages.
func runBatch(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, runBatch(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func (f *fixture) deliverSubmit(t *testing.T, cmd tea.Cmd) {
	t.Helper()
	require.NotNil(t, cmd, "submit should produce a command")
	require.True(t, f.m.wizard.sending)
	assert.Contains(t, f.m.View(), "Enviando")
	for _, msg := range runBatch(cmd) {
		if res, ok := msg.(submitResultMsg); ok {
			f.send(res)
			return
		}
	}
	t.Fatal("no submit result produced")
}

// fillToLastStep drives the wizard with keystrokes up to the furnishing step.
func (f *fixture) fillToLastStep(t *testing.T) {
	t.Helper()
	f.choose("1")
	require.Equal(t, stateWizard, f.m.state)

	f.choose("Maria Souza")
	f.choose("maria@example.com")
	f.choose("(11) 99999-9999")
	require.Equal(t, wizard.StepPropertyType, f.m.wizard.ctrl.Step())

	f.key(tea.KeyRight)
	f.key(tea.KeyEnter)
	require.Equal(t, wizard.StepProperty, f.m.wizard.ctrl.Step())
	assert.Equal(t, lead.PropertyHouse, f.m.wizard.ctrl.Fields().PropertyType)

	f.typeText("300000")
	assert.Equal(t, "R$ 300.000", f.m.wizard.value.Value())
	f.key(tea.KeyEnter)
	f.typeText("Copacabana")
	if f.m.geoAvailable() {
		seq := f.m.wizard.searchSeq
		search := f.send(searchTickMsg{seq: seq, query: "Copacabana"})
		for _, msg := range runBatch(search) {
			f.send(msg)
		}
		require.Len(t, f.m.wizard.candidates, 1)
	}
	f.key(tea.KeyEnter)
	require.Equal(t, wizard.StepNightlyRate, f.m.wizard.ctrl.Step())

	f.choose("250")
	require.Equal(t, wizard.StepPlatforms, f.m.wizard.ctrl.Step())

	f.key(tea.KeySpace)
	f.key(tea.KeyEnter)
	require.Equal(t, wizard.StepFurnishing, f.m.wizard.ctrl.Step())
}

func TestResolveMainMenuSelection(t *testing.T) {
	tests := []struct {
		input string
		want  string
		ok    bool
	}{
		{"1", menuWizard, true},
		{"Cadastrar", menuWizard, true},
		{"imóveis", menuListings, true},
		{"fav", menuFavorites, true},
		{"LEADS", menuLeads, true},
		{"config", menuSettings, true},
		{"exit.", menuQuit, true},
		{"sa", menuQuit, true},
		{"", "", false},
		{"zzz", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := resolveMainMenuSelection(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUnknownMenuChoice(t *testing.T) {
	f := newFixture(t, true)
	f.choose("banana")
	assert.Equal(t, stateMainMenu, f.m.state)
	assert.Contains(t, f.m.View(), "Opção desconhecida")
}

func TestWizardHappyPath(t *testing.T) {
	f := newFixture(t, true)
	f.fillToLastStep(t)

	cmd := f.key(tea.KeyEnter)
	f.deliverSubmit(t, cmd)

	assert.Equal(t, wizard.StatusSuccess, f.m.wizard.ctrl.Status())
	require.Len(t, f.sub.calls, 1)
	got := f.sub.calls[0]
	assert.Equal(t, "Maria Souza", got.Name)
	assert.Equal(t, 300000.0, got.EstimatedValue)
	assert.Equal(t, 250.0, got.NightlyRate)
	assert.Equal(t, []lead.Platform{lead.PlatformAirbnb}, got.Platforms)
	assert.Equal(t, lead.FurnishingFull, got.Furnishing)
	assert.True(t, got.Address.HasCoordinates())
	assert.Contains(t, got.Address.Display, "Copacabana")

	view := f.m.View()
	assert.Contains(t, view, "Obrigado, Maria!")
	assert.Contains(t, view, "R$ 250")

	f.key(tea.KeyEnter)
	assert.Equal(t, stateMainMenu, f.m.state)
	assert.Contains(t, f.m.View(), "Seu cadastro foi enviado")
}

func TestWizardBlocksInvalidStep(t *testing.T) {
	f := newFixture(t, true)
	f.choose("1")
	f.choose("Maria")
	f.choose("maria.example.com")
	f.key(tea.KeyEnter)

	assert.Equal(t, wizard.StepContact, f.m.wizard.ctrl.Step())
	view := f.m.View()
	assert.Contains(t, view, "informe um e-mail válido")
	assert.Contains(t, view, "informe um telefone com DDD")
}

func TestWizardEscRetreatsThenLeaves(t *testing.T) {
	f := newFixture(t, true)
	f.choose("1")
	f.choose("Maria")
	f.choose("maria@example.com")
	f.choose("11999999999")
	require.Equal(t, wizard.StepPropertyType, f.m.wizard.ctrl.Step())

	f.key(tea.KeyEsc)
	assert.Equal(t, wizard.StepContact, f.m.wizard.ctrl.Step())
	assert.Equal(t, "Maria", f.m.wizard.ctrl.Fields().Name, "fields survive retreat")

	f.key(tea.KeyEsc)
	assert.Equal(t, stateMainMenu, f.m.state)
	assert.Nil(t, f.m.wizard.ctrl, "abandoned sessions are discarded")
}

func TestWizardPlatformCardsExclusive(t *testing.T) {
	f := newFixture(t, true)
	f.fillToLastStep(t)
	f.key(tea.KeyEsc)
	require.Equal(t, wizard.StepPlatforms, f.m.wizard.ctrl.Step())

	for i := 0; i < len(lead.Platforms)-1; i++ {
		f.key(tea.KeyRight)
	}
	f.key(tea.KeySpace)
	assert.Equal(t, []lead.Platform{lead.PlatformNone}, f.m.wizard.ctrl.Fields().Platforms)
	view := f.m.View()
	assert.Contains(t, view, "\""+lead.PlatformNone.Label()+"\" desmarca as demais")
	assert.Contains(t, view, "Etapa 5 de 6")

	f.key(tea.KeyLeft)
	f.key(tea.KeySpace)
	assert.Equal(t, []lead.Platform{lead.PlatformOther}, f.m.wizard.ctrl.Fields().Platforms)
}

func TestWizardSubmitErrorThenRetry(t *testing.T) {
	f := newFixture(t, true)
	f.sub.errs = []error{errors.New("insert failed with status 503: service unavailable")}
	f.fillToLastStep(t)

	f.deliverSubmit(t, f.key(tea.KeyEnter))
	assert.Equal(t, wizard.StatusError, f.m.wizard.ctrl.Status())
	assert.Equal(t, wizard.StepFurnishing, f.m.wizard.ctrl.Step())
	view := f.m.View()
	assert.Contains(t, view, "service unavailable")
	assert.Contains(t, view, "tentativa 1")
	assert.Contains(t, view, "tentar novamente")

	f.deliverSubmit(t, f.key(tea.KeyEnter))
	assert.Equal(t, wizard.StatusSuccess, f.m.wizard.ctrl.Status())
	assert.Len(t, f.sub.calls, 2)
}

func TestWizardIgnoresKeysWhileSending(t *testing.T) {
	f := newFixture(t, true)
	f.fillToLastStep(t)

	cmd := f.key(tea.KeyEnter)
	require.NotNil(t, cmd)
	assert.Nil(t, f.key(tea.KeyEnter), "second enter is ignored while sending")
	f.key(tea.KeyEsc)
	assert.Equal(t, wizard.StepFurnishing, f.m.wizard.ctrl.Step())

	f.deliverSubmit(t, cmd)
	assert.Len(t, f.sub.calls, 1)
}

func TestWizardManualAddressWhenGeocodingUnavailable(t *testing.T) {
	f := newFixture(t, false)
	f.fillToLastStep(t)

	addr := f.m.wizard.ctrl.Fields().Address
	assert.Equal(t, "Copacabana", addr.Display)
	assert.False(t, addr.HasCoordinates())
}

type failingGeocoder struct{ err error }

func (g failingGeocoder) Search(context.Context, string) ([]lead.Address, error) {
	return nil, g.err
}

// toPropertyStep starts a session and stops on the value input.
func (f *fixture) toPropertyStep(t *testing.T) {
	t.Helper()
	f.choose("1")
	f.choose("Maria")
	f.choose("maria@example.com")
	f.choose("11999999999")
	f.key(tea.KeyEnter)
	require.Equal(t, wizard.StepProperty, f.m.wizard.ctrl.Step())
}

func TestWizardAmountInputDropsOverflow(t *testing.T) {
	f := newFixture(t, true)
	f.toPropertyStep(t)

	f.typeText("999999999999999")
	shown := f.m.wizard.value.Value()
	assert.Equal(t, "R$ 999.999.999.999.999", shown)
	f.typeText("9")
	assert.Equal(t, shown, f.m.wizard.value.Value())
	assert.Equal(t, 999999999999999.0, f.m.wizard.ctrl.Fields().EstimatedValue)
}

func TestWizardSearchFailureFallsBackToManual(t *testing.T) {
	f := newFixture(t, true)
	f.m.deps.Geo = geo.NewService(failingGeocoder{err: errors.New("nominatim returned status 503")})
	f.toPropertyStep(t)
	f.choose("1000")

	require.NotNil(t, f.typeText("Copacabana"))
	search := f.send(searchTickMsg{seq: f.m.wizard.searchSeq, query: "Copacabana"})
	for _, msg := range runBatch(search) {
		f.send(msg)
	}
	require.False(t, f.m.geoAvailable())
	view := f.m.View()
	assert.Contains(t, view, "Busca de endereços indisponível")
	assert.Contains(t, view, "status 503")

	// typing keeps the text and still retries the search
	assert.NotNil(t, f.typeText(" 1"))
	assert.Equal(t, "Copacabana 1", f.m.wizard.ctrl.Fields().Address.Display)

	f.key(tea.KeyEnter)
	assert.Equal(t, wizard.StepNightlyRate, f.m.wizard.ctrl.Step())
	assert.Equal(t, "Copacabana 1", f.m.wizard.ctrl.Fields().Address.Display)
}

func TestWizardStaleSearchResultsIgnored(t *testing.T) {
	f := newFixture(t, true)
	f.choose("1")
	f.choose("Maria")
	f.choose("maria@example.com")
	f.choose("11999999999")
	f.key(tea.KeyEnter)
	f.typeText("1000")
	f.key(tea.KeyEnter)

	f.typeText("Rua")
	stale := f.m.wizard.searchSeq
	f.typeText(" Augusta")
	f.send(searchResultMsg{seq: stale, results: []lead.Address{{Display: "old"}}})
	assert.Empty(t, f.m.wizard.candidates)
	assert.True(t, f.m.wizard.ctrl.Fields().Address.Empty(), "typing clears a chosen address")
}

func TestListingsFavoriteFlow(t *testing.T) {
	f := newFixture(t, true)
	f.choose("2")
	require.Equal(t, stateListings, f.m.state)
	assert.Contains(t, f.m.View(), "Apartamento pé na areia")

	f.typeText("trancoso")
	require.Len(t, f.m.listings.items, 1)
	f.key(tea.KeyEnter)
	require.Equal(t, stateListingDetail, f.m.state)
	assert.Contains(t, f.m.View(), "Casa com piscina em Trancoso")

	f.choose("1")
	assert.True(t, f.m.detail.favorite)
	ids, err := f.store.ListFavorites(context.Background(), "ana")
	require.NoError(t, err)
	assert.Equal(t, []string{f.m.detail.item.ID}, ids)

	f.key(tea.KeyEsc)
	assert.Equal(t, stateListings, f.m.state)
	f.choose("/")
	assert.Equal(t, stateMainMenu, f.m.state)

	f.choose("3")
	require.Equal(t, stateFavorites, f.m.state)
	require.Len(t, f.m.favorites.items, 1)
	assert.Contains(t, f.m.View(), "Casa com piscina em Trancoso")

	f.choose("1")
	require.Equal(t, stateListingDetail, f.m.state)
	f.choose("fav")
	assert.False(t, f.m.detail.favorite)
	f.choose("voltar")
	assert.Equal(t, stateFavorites, f.m.state)
	assert.Empty(t, f.m.favorites.items)
}

func TestResolveListingSelection(t *testing.T) {
	items := listing.Seed()
	got, ok := resolveListingSelection(items, "2")
	require.True(t, ok)
	assert.Equal(t, items[1].ID, got.ID)

	got, ok = resolveListingSelection(items, "abrir chalé")
	require.True(t, ok)
	assert.Equal(t, lead.PropertyChalet, got.PropertyType)

	_, ok = resolveListingSelection(items, "apartamento")
	assert.False(t, ok, "ambiguous prefix")
	_, ok = resolveListingSelection(items, "99")
	assert.False(t, ok)
}

func TestLeadsScreen(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	rec := lead.NewRecord(lead.Fields{
		Name:         "Pedro Alves",
		Email:        "pedro@example.com",
		Phone:        "21988887777",
		PropertyType: lead.PropertyStudio,
		Address:      lead.Address{Display: "Rua Voluntários da Pátria, Botafogo"},
		NightlyRate:  180,
		Furnishing:   lead.FurnishingPartial,
	}, nil)
	require.NoError(t, f.store.InsertOne(ctx, storage.LeadsTable, rec))

	f.choose("4")
	require.Equal(t, stateLeads, f.m.state)
	view := f.m.View()
	assert.Contains(t, view, "Pedro Alves")
	assert.Contains(t, view, "R$ 180/noite")

	f.choose("1")
	assert.Equal(t, 0, f.m.leads.expanded)
	assert.Contains(t, f.m.View(), "Mobília:")

	f.typeText("ninguém")
	assert.Empty(t, f.m.leads.items)
	assert.Contains(t, f.m.View(), "Nenhum lead encontrado")
}

func TestSettingsEditSaves(t *testing.T) {
	f := newFixture(t, true)
	f.choose("5")
	require.Equal(t, stateSettings, f.m.state)

	f.choose("1")
	require.NotNil(t, f.m.settings.editing)
	f.m.settings.input.SetValue("")
	f.choose("Bruna")
	assert.Nil(t, f.m.settings.editing)
	assert.Contains(t, f.m.View(), "Nome atualizado")

	reloaded, err := config.Load(f.cfg.Path(), nil)
	require.NoError(t, err)
	assert.Equal(t, "Bruna", reloaded.Config.Name)

	f.choose("2")
	f.m.settings.input.SetValue("")
	f.choose("Mars/Olympus")
	assert.Contains(t, f.m.View(), "fuso horário inválido")
	f.m.settings.input.SetValue("")
	f.choose("/")
	assert.Nil(t, f.m.settings.editing)

	f.choose("3")
	f.m.settings.input.SetValue("")
	f.choose("11")
	assert.Equal(t, 11, f.m.deps.Rules.PhoneMinDigits)

	f.choose("4")
	assert.Equal(t, stateMainMenu, f.m.state)
}

func TestCtrlCQuits(t *testing.T) {
	f := newFixture(t, true)
	cmd := f.key(tea.KeyCtrlC)
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestViewsRenderWithoutOptionalDeps(t *testing.T) {
	m := newModel(Deps{})
	for _, state := range []viewState{stateMainMenu, stateListings, stateFavorites, stateLeads, stateSettings} {
		m.state = state
		assert.NotPanics(t, func() { _ = m.View() })
	}
	m.state = stateMainMenu
	_, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("1")})
	_, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, stateWizard, m.state)
	assert.True(t, strings.Contains(m.View(), "Seus dados"))
}
