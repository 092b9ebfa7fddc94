package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/urfave/cli/v3"
	"golang.org/x/text/language"

	"github.com/kailas-cloud/portalsearch/internal/config"
	"github.com/kailas-cloud/portalsearch/internal/domain/hit"
	"github.com/kailas-cloud/portalsearch/internal/i18n"
	logpkg "github.com/kailas-cloud/portalsearch/internal/logger"
	sessionuc "github.com/kailas-cloud/portalsearch/internal/usecase/session"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86")).
			Background(lipgloss.Color("235")).
			Padding(0, 1).
			Margin(0, 0, 1, 0)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("214")).
			Margin(1, 0, 0, 0)

	recommendedStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("32")).
				Padding(0, 1)

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	noDataStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true).
			Margin(1, 0)
)

func queryCommand() *cli.Command {
	return &cli.Command{
		Name:      "query",
		Usage:     "Run one search against the configured providers and print the ranked result",
		ArgsUsage: "<text>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "lang",
				Usage: "Language of the type labels (default: search.language)",
			},
			&cli.IntFlag{
				Name:  "limit",
				Value: 5,
				Usage: "Hits shown per type group",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Value: 15 * time.Second,
				Usage: "Maximum time to wait for all providers",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			text := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
			if text == "" {
				return errors.New("query text is required")
			}
			return runQuery(ctx, os.Stdout, queryParams{
				configPath: c.String("config"),
				text:       text,
				lang:       c.String("lang"),
				limit:      c.Int("limit"),
				timeout:    c.Duration("timeout"),
			})
		},
	}
}

type queryParams struct {
	configPath string
	text       string
	lang       string
	limit      int
	timeout    time.Duration
}

func runQuery(ctx context.Context, out io.Writer, p queryParams) error {
	cfg, err := config.LoadFile(p.configPath)
	if err != nil {
		return err
	}
	logger, err := logpkg.NewLogger("local", "warn")
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	a, err := newApp(ctx, cfg, logger, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()
	defer func() { _ = a.sessions.Shutdown(context.Background()) }()

	if err := a.sessions.CheckQuery(p.text); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	v, err := a.sessions.Open(ctx, p.text)
	if err != nil {
		return err
	}
	v, err = a.sessions.Await(ctx, v.ID)
	if err != nil {
		return fmt.Errorf("waiting for providers: %w", err)
	}
	groups, err := a.sessions.Groups(ctx, v.ID, nil, p.limit)
	if err != nil {
		return err
	}

	lang := p.lang
	if lang == "" {
		lang = cfg.Search.Language
	}
	_, err = io.WriteString(out, renderResult(&v, groups, a.labels, a.labels.Match(lang)))
	return err
}

func renderResult(v *sessionuc.View, groups []hit.TypeGroup, labels *i18n.Labels, lang language.Tag) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("%q: %d hits", v.Snapshot.Query, len(v.Snapshot.Final))))
	b.WriteString("\n")

	if len(v.Snapshot.Final) == 0 {
		b.WriteString(noDataStyle.Render("No results."))
		b.WriteString("\n")
		return b.String()
	}

	line := func(h *hit.Hit) string {
		return fmt.Sprintf("%s %s", h.Name, typeStyle.Render("("+labels.Label(h.Type, lang)+")"))
	}

	rec := make([]string, 0, len(v.Snapshot.Recommended))
	for i := range v.Snapshot.Recommended {
		rec = append(rec, fmt.Sprintf("%d. %s", i+1, line(&v.Snapshot.Recommended[i])))
	}
	b.WriteString(recommendedStyle.Render(strings.Join(rec, "\n")))
	b.WriteString("\n")

	for _, g := range groups {
		b.WriteString(headerStyle.Render(fmt.Sprintf("%s (%d)", labels.Label(g.Type, lang), len(g.Hits))))
		b.WriteString("\n")
		for i := range g.Hits {
			b.WriteString("  ")
			b.WriteString(g.Hits[i].Name)
			b.WriteString("\n")
		}
	}
	return b.String()
}
