package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"leadterm/internal/currency"
	"leadterm/internal/lead"
	"leadterm/internal/listing"
	"leadterm/internal/theme"
)

func newListingsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "listings",
		Aliases: []string{"imoveis"},
		Short:   "Manage the listing catalogue",
	}
	cmd.AddCommand(newListingsListCmd(a))
	cmd.AddCommand(newListingsImportCmd(a))
	cmd.AddCommand(newListingsSeedCmd(a))
	return cmd
}

func newListingsListCmd(a *app) *cobra.Command {
	var (
		filter  listing.Filter
		typ     string
		maxRate float64
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List listings",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if typ != "" {
				filter.PropertyType = lead.PropertyType(typ)
				if !filter.PropertyType.Valid() {
					return fmt.Errorf("unknown property type %q", typ)
				}
			}
			filter.MaxRate = maxRate

			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()
			formatter, err := a.formatter()
			if err != nil {
				return err
			}
			items, err := store.ListListings(ctx, filter)
			if err != nil {
				return fmt.Errorf("list listings: %w", err)
			}
			favs, err := store.ListFavorites(ctx, a.owner())
			if err != nil {
				return fmt.Errorf("list favorites: %w", err)
			}
			printListings(cmd, formatter, items, favs)
			return nil
		},
	}
	cmd.Flags().StringVarP(&filter.Text, "search", "s", "", "Match title, city or neighborhood")
	cmd.Flags().StringVar(&filter.City, "city", "", "Exact city")
	cmd.Flags().StringVar(&typ, "type", "", "Property type (apartamento, casa, studio, cobertura, chale)")
	cmd.Flags().Float64Var(&maxRate, "max-rate", 0, "Highest nightly rate")
	return cmd
}

func printListings(cmd *cobra.Command, formatter *currency.Formatter, items []listing.Listing, favorites []string) {
	out := cmd.OutOrStdout()
	t := theme.Default()
	if len(items) == 0 {
		fmt.Fprintln(out, t.Faint.Render("Nenhum imóvel encontrado."))
		return
	}
	fav := make(map[string]bool, len(favorites))
	for _, id := range favorites {
		fav[id] = true
	}
	for _, l := range items {
		title := l.Title
		if fav[l.ID] {
			title += " ★"
		}
		fmt.Fprintln(out, t.Primary.Render(title)+"  "+t.Faint.Render(l.ID))
		meta := []string{l.PropertyType.Label(), l.Address(), formatter.Format(l.NightlyRate, currency.Whole) + "/noite"}
		if l.Rating != nil {
			meta = append(meta, fmt.Sprintf("nota %.1f", *l.Rating))
		}
		fmt.Fprintln(out, "  "+t.Secondary.Render(strings.Join(meta, "  •  ")))
	}
}

func newListingsImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <csv>",
		Short: "Import listings from a CSV file",
		Long: `Import listings from a CSV file. The header must name title, city,
property_type and nightly_rate; neighborhood, description, amenities
(semicolon separated), bedrooms, bathrooms, guests, rating, lat and lng are
optional. Rows that already exist are skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open csv: %w", err)
			}
			defer f.Close()

			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()
			result, err := store.ImportListingsCSV(ctx, f)
			if err != nil {
				return fmt.Errorf("import csv: %w", err)
			}

			out := cmd.OutOrStdout()
			t := theme.Default()
			fmt.Fprintln(out, t.Success.Render(fmt.Sprintf("%d imóvel(is) importado(s), %d ignorado(s)", result.Created, result.Skipped)))
			for _, e := range result.Errors {
				fmt.Fprintln(out, "  "+t.Warning.Render(e))
			}
			return nil
		},
	}
}

func newListingsSeedCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Install the sample listings that are missing",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()
			added, err := store.SeedListings(ctx, listing.Seed())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), theme.Default().Success.Render(fmt.Sprintf("%d imóvel(is) de exemplo adicionado(s)", added)))
			return nil
		},
	}
}
