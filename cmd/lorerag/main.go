package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/phuslu/log"

	"lorerag/internal/config"
	"lorerag/internal/domain"
	"lorerag/internal/logging"
	"lorerag/internal/server"
	"lorerag/internal/service"
	"lorerag/internal/tui"
)

const usage = `Usage: lorerag <command> [flags]

Commands:
  build   chunk, embed and publish the lorebook snapshot
  query   print the chunks nearest to a query
  ask     answer a question from the lorebook
  serve   run the HTTP API (SIGHUP reloads the snapshot)
  chat    interactive terminal chat

Run "lorerag <command> -h" for command flags.
`

var (
	errText  = color.New(color.FgRed, color.Bold).SprintFunc()
	headText = color.New(color.FgGreen, color.Bold).SprintFunc()
	dimText  = color.New(color.FgHiBlack).SprintFunc()
)

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "build":
		err = runBuild(ctx, args)
	case "query":
		err = runQuery(ctx, args)
	case "ask":
		err = runAsk(ctx, args)
	case "serve":
		err = runServe(ctx, args)
	case "chat":
		err = runChat(ctx, args)
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, errText("error:"), err)
		if errors.Is(err, domain.ErrSnapshotNotFound) {
			fmt.Fprintln(os.Stderr, dimText("build the index first: lorerag build"))
		}
		os.Exit(1)
	}
}

// env is what every command needs: config and a logger.
type env struct {
	cfg    *config.AppConfig
	logger *log.Logger
}

func newFlagSet(name string) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	cfgPath := fs.String("config", "", "Path to YAML or TOML config (default ./lorerag.yaml, then ~/.config/lorerag/config.yaml)")
	return fs, cfgPath
}

func loadEnv(cfgPath string) (*env, error) {
	var (
		cfg *config.AppConfig
		err error
	)
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &env{cfg: cfg, logger: logging.New(cfg.Logging, nil)}, nil
}

func runBuild(ctx context.Context, args []string) error {
	fs, cfgPath := newFlagSet("build")
	src := fs.String("source", "", "Lorebook text file (overrides source.path)")
	out := fs.String("out", "", "Snapshot directory (overrides snapshot.dir)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	e, err := loadEnv(*cfgPath)
	if err != nil {
		return err
	}
	if *src == "" {
		*src = e.cfg.Source.Path
	}
	if *out == "" {
		*out = e.cfg.Snapshot.Dir
	}
	emb, err := newEmbedder(ctx, e.cfg.Embedder, e.logger)
	if err != nil {
		return err
	}
	n, err := service.NewBuilder(emb, e.cfg.Chunker.ChunkSize, e.cfg.Chunker.Overlap, e.logger).Build(ctx, *src, *out)
	if err != nil {
		return err
	}
	fmt.Printf("%s %d chunks from %s into %s\n", headText("indexed"), n, *src, *out)
	return nil
}

// openRetriever loads the configured snapshot with the configured embedder.
func openRetriever(ctx context.Context, e *env) (*service.Retriever, error) {
	emb, err := newEmbedder(ctx, e.cfg.Embedder, e.logger)
	if err != nil {
		return nil, err
	}
	return service.Load(ctx, e.cfg.Snapshot.Dir, emb, e.logger)
}

func runQuery(ctx context.Context, args []string) error {
	fs, cfgPath := newFlagSet("query")
	k := fs.Int("k", 0, "Number of chunks (default retriever.top_k)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	query := strings.Join(fs.Args(), " ")
	if strings.TrimSpace(query) == "" {
		return errors.New("query text is required")
	}
	e, err := loadEnv(*cfgPath)
	if err != nil {
		return err
	}
	if *k == 0 {
		*k = e.cfg.Retriever.TopK
	}
	r, err := openRetriever(ctx, e)
	if err != nil {
		return err
	}
	results, err := r.Search(ctx, query, *k)
	if err != nil {
		return err
	}
	for i, res := range results {
		fmt.Printf("%s %s\n%s\n\n", headText(fmt.Sprintf("#%d", i+1)), dimText(fmt.Sprintf("chunk %d, distance %.4f", res.Chunk.Index, res.Distance)), res.Chunk.Text)
	}
	return nil
}

func newAsker(ctx context.Context, e *env, r *service.Retriever) (*service.Asker, error) {
	ans, err := newAnswerer(ctx, e.cfg.LLM, e.logger)
	if err != nil {
		return nil, err
	}
	return service.NewAsker(r, ans, e.cfg.Retriever.TopK, e.logger), nil
}

func runAsk(ctx context.Context, args []string) error {
	fs, cfgPath := newFlagSet("ask")
	showSources := fs.Bool("sources", false, "Print the retrieved chunks too")
	if err := fs.Parse(args); err != nil {
		return err
	}
	e, err := loadEnv(*cfgPath)
	if err != nil {
		return err
	}
	r, err := openRetriever(ctx, e)
	if err != nil {
		return err
	}
	asker, err := newAsker(ctx, e, r)
	if err != nil {
		return err
	}
	ans, err := asker.Ask(ctx, strings.Join(fs.Args(), " "))
	if err != nil {
		return err
	}
	fmt.Println(ans.Text)
	if *showSources {
		for _, s := range ans.Sources {
			fmt.Printf("\n%s %s\n", dimText(fmt.Sprintf("[chunk %d, %.4f]", s.Chunk.Index, s.Distance)), s.Chunk.Text)
		}
	}
	return nil
}

func runServe(ctx context.Context, args []string) error {
	fs, cfgPath := newFlagSet("serve")
	addr := fs.String("addr", "", "Listen address (overrides server.addr)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	e, err := loadEnv(*cfgPath)
	if err != nil {
		return err
	}
	if *addr != "" {
		e.cfg.Server.Addr = *addr
	}
	emb, err := newEmbedder(ctx, e.cfg.Embedder, e.logger)
	if err != nil {
		return err
	}
	r := service.NewRetriever(e.cfg.Snapshot.Dir, emb, e.logger)
	if err := r.Reload(ctx); err != nil {
		if !errors.Is(err, domain.ErrSnapshotNotFound) {
			return err
		}
		e.logger.Warn().Err(err).Msg("serving without a snapshot; build one and send SIGHUP")
	}
	asker, err := newAsker(ctx, e, r)
	if err != nil {
		return err
	}

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				if err := r.Reload(ctx); err != nil {
					e.logger.Error().Err(err).Msg("reload failed, keeping current snapshot")
				}
			}
		}
	}()

	srv := server.New(server.Config{
		Addr:           e.cfg.Server.Addr,
		CORSOrigins:    e.cfg.Server.CORSOrigins,
		RequestTimeout: secs(e.cfg.Server.RequestTimeoutSecs),
		DefaultTopK:    e.cfg.Retriever.TopK,
	}, r, asker, e.logger)
	return srv.ListenAndServe(ctx)
}

func runChat(ctx context.Context, args []string) error {
	fs, cfgPath := newFlagSet("chat")
	if err := fs.Parse(args); err != nil {
		return err
	}
	e, err := loadEnv(*cfgPath)
	if err != nil {
		return err
	}
	// Keep log lines off the alternate screen.
	e.logger.Level = log.ErrorLevel
	r, err := openRetriever(ctx, e)
	if err != nil {
		return err
	}
	asker, err := newAsker(ctx, e, r)
	if err != nil {
		return err
	}
	m, _ := r.Info()
	subtitle := fmt.Sprintf("%s · %d chunks · build %s", m.Model, m.ChunkCount, m.BuildID)
	_, err = tea.NewProgram(tui.New(asker, subtitle, secs(e.cfg.LLM.TimeoutSecs)), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}
