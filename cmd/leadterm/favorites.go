package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"leadterm/internal/listing"
	"leadterm/internal/storage"
	"leadterm/internal/theme"
)

func newFavoritesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "favorites",
		Aliases: []string{"favoritos"},
		Short:   "Manage favorite listings of the configured user",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List favorite listings",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()
			formatter, err := a.formatter()
			if err != nil {
				return err
			}
			ids, err := store.ListFavorites(ctx, a.owner())
			if err != nil {
				return fmt.Errorf("list favorites: %w", err)
			}
			var items []listing.Listing
			for _, id := range ids {
				item, err := store.ListingByID(ctx, id)
				if errors.Is(err, storage.ErrNotFound) {
					continue
				}
				if err != nil {
					return err
				}
				items = append(items, *item)
			}
			printListings(cmd, formatter, items, ids)
			return nil
		},
	})
	cmd.AddCommand(newFavoriteSetCmd(a, "add <listing-id>", "Mark a listing as favorite", true))
	cmd.AddCommand(newFavoriteSetCmd(a, "remove <listing-id>", "Remove a listing from favorites", false))
	return cmd
}

func newFavoriteSetCmd(a *app, use, short string, favorite bool) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.SetFavorite(ctx, a.owner(), args[0], favorite); err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					return fmt.Errorf("listing %q not found", args[0])
				}
				return err
			}
			msg := "Removido dos favoritos: " + args[0]
			if favorite {
				msg = "Adicionado aos favoritos: " + args[0]
			}
			fmt.Fprintln(cmd.OutOrStdout(), theme.Default().Success.Render(msg))
			return nil
		},
	}
}
