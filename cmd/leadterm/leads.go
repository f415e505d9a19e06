package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"leadterm/internal/config"
	"leadterm/internal/currency"
	"leadterm/internal/events"
	"leadterm/internal/lead"
	"leadterm/internal/storage"
	"leadterm/internal/theme"
)

func newLeadsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leads",
		Short: "Inspect leads received from the owner wizard",
	}
	cmd.AddCommand(newLeadsListCmd(a))
	cmd.AddCommand(newLeadsWatchCmd(a))
	return cmd
}

func newLeadsListCmd(a *app) *cobra.Command {
	var (
		search string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored leads, newest first",
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

			var items []storage.Lead
			if strings.TrimSpace(search) == "" {
				items, err = store.ListLeads(ctx, limit)
			} else {
				items, err = store.SearchLeads(ctx, search, limit)
			}
			if err != nil {
				return fmt.Errorf("list leads: %w", err)
			}

			out := cmd.OutOrStdout()
			t := theme.Default()
			if len(items) == 0 {
				fmt.Fprintln(out, t.Faint.Render("Nenhum lead encontrado."))
				return nil
			}
			loc := a.cfg.Location()
			for _, l := range items {
				fmt.Fprintln(out, t.Primary.Render(l.FullName())+"  "+t.Faint.Render(l.CreatedAt.In(loc).Format("02/01/2006 15:04")))
				printLeadRecord(out, t, formatter, l.Record)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "Match name, email, phone or address")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum number of leads")
	return cmd
}

func newLeadsWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print leads as they are submitted",
		Long: `Subscribe to lead-submitted events on the NATS server named by events.url
and print each lead as it arrives. The embedded server only lives inside the
interactive app, so watching needs a shared server URL.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			url := a.cfg.Config.Events.URL
			switch url {
			case "":
				return errors.New("events.url is not set")
			case config.EventsEmbedded:
				return errors.New("events.url is the embedded server; point it at a shared NATS server to watch from another process")
			}
			formatter, err := a.formatter()
			if err != nil {
				return err
			}
			pub, err := events.Connect(url)
			if err != nil {
				return err
			}
			defer pub.Close()

			out := cmd.OutOrStdout()
			t := theme.Default()
			loc := a.cfg.Location()
			sub, err := pub.Subscribe(func(ev events.Event) {
				name := strings.TrimSpace(ev.Lead.FirstName + " " + ev.Lead.LastName)
				fmt.Fprintln(out, t.Success.Render("Novo lead: "+name)+"  "+t.Faint.Render(ev.SubmittedAt.In(loc).Format("02/01/2006 15:04")))
				printLeadRecord(out, t, formatter, ev.Lead)
			})
			if err != nil {
				return fmt.Errorf("subscribe: %w", err)
			}
			defer sub.Unsubscribe()

			fmt.Fprintln(out, t.Faint.Render("Aguardando leads em "+url+" (Ctrl+C para sair)"))
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			<-ctx.Done()
			return nil
		},
	}
}

func printLeadRecord(w io.Writer, t theme.Theme, f *currency.Formatter, r lead.Record) {
	meta := []string{r.Email, r.Phone}
	if pt := lead.PropertyType(r.PropertyType); pt.Valid() {
		meta = append(meta, pt.Label())
	}
	meta = append(meta, f.Format(r.NightlyRate, currency.Whole)+"/noite")
	fmt.Fprintln(w, "  "+t.Secondary.Render(strings.Join(meta, "  •  ")))
	if r.PropertyAddress != "" {
		fmt.Fprintln(w, "  "+t.Faint.Render(r.PropertyAddress))
	}
}
