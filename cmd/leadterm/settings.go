package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"leadterm/internal/config"
	"leadterm/internal/currency"
	"leadterm/internal/theme"
)

func newSettingsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "settings",
		Aliases: []string{"config"},
		Short:   "Edit the configuration interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			data := a.cfg.Config
			if err := settingsForm(&data).Run(); err != nil {
				return err
			}
			a.cfg.Config = data
			if err := a.cfg.Save(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), theme.Default().Success.Render("Configuração salva em "+a.cfg.Path()))
			return nil
		},
	}
}

// settingsForm edits data in place. The REST group only shows when the REST
// backend is chosen.
func settingsForm(data *config.Data) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Nome").
				Value(&data.Name).
				Validate(required("o nome")),
			huh.NewInput().
				Title("Fuso horário").
				Placeholder("America/Sao_Paulo").
				Value(&data.Timezone).
				Validate(validTimezone),
			huh.NewInput().
				Title("Idioma").
				Placeholder("pt-BR").
				Value(&data.Locale).
				Validate(validLocale),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Envio dos cadastros").
				Options(
					huh.NewOption("Banco local (SQLite)", config.BackendSQLite),
					huh.NewOption("API REST", config.BackendREST),
				).
				Value(&data.Submit.Backend),
			huh.NewSelect[string]().
				Title("Busca de endereços").
				Options(
					huh.NewOption("Catálogo local", config.GeocoderCatalog),
					huh.NewOption("OpenStreetMap (Nominatim)", config.GeocoderNominatim),
					huh.NewOption("Desligada", config.GeocoderOff),
				).
				Value(&data.Geocoder.Provider),
			huh.NewInput().
				Title("Servidor de eventos (NATS)").
				Description("Vazio desliga; \"embedded\" usa um servidor interno.").
				Value(&data.Events.URL),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("URL da API").
				Value(&data.Submit.REST.URL).
				Validate(required("a URL")),
			huh.NewInput().
				Title("Chave da API").
				EchoMode(huh.EchoModePassword).
				Value(&data.Submit.REST.Key),
		).WithHideFunc(func() bool { return data.Submit.Backend != config.BackendREST }),
	)
}

func required(what string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("informe %s", what)
		}
		return nil
	}
}

func validTimezone(s string) error {
	if _, err := time.LoadLocation(strings.TrimSpace(s)); err != nil {
		return errors.New("fuso horário inválido")
	}
	return nil
}

func validLocale(s string) error {
	if _, err := currency.NewFormatter(strings.TrimSpace(s), ""); err != nil {
		return errors.New("idioma inválido")
	}
	return nil
}
