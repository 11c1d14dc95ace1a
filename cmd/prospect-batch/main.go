// prospect-batch runs the analysis pipeline over a directory of transcript
// files without the server. Progress is kept in a JSON state file, so an
// interrupted run resumes where it left off: sessions for already-analyzed
// transcripts are skipped, partially-complete ones continue from their last
// successful agent.
package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/MikeSquared-Agency/prospect/internal/agents"
	"github.com/MikeSquared-Agency/prospect/internal/anthropic"
	"github.com/MikeSquared-Agency/prospect/internal/config"
	"github.com/MikeSquared-Agency/prospect/internal/filestate"
	"github.com/MikeSquared-Agency/prospect/internal/pipeline"
	"github.com/MikeSquared-Agency/prospect/internal/report"
	"github.com/MikeSquared-Agency/prospect/internal/session"
	"github.com/MikeSquared-Agency/prospect/internal/transcript"
)

func main() {
	var (
		dir       = flag.String("dir", "", "directory of transcript files (.txt, .md)")
		file      = flag.String("file", "", "analyze a single transcript file")
		statePath = flag.String("state", filestate.DefaultPath, "path to the session state file")
		dryRun    = flag.Bool("dry-run", false, "list the files that would be analyzed and exit")
		minChars  = flag.Int("min-chars", 200, "skip transcripts shorter than this")
	)
	flag.Parse()

	cfg := config.Load()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	if *dir == "" && *file == "" {
		fmt.Fprintln(os.Stderr, "usage: prospect-batch -dir <transcripts> | -file <transcript>")
		os.Exit(2)
	}

	files, err := discover(*dir, *file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "discover files: %v\n", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Println("no transcript files found")
		return
	}

	if *dryRun {
		for _, f := range files {
			fmt.Println(f)
		}
		fmt.Printf("%d file(s) would be analyzed\n", len(files))
		return
	}

	if cfg.AnthropicAPIKey == "" {
		fmt.Fprintln(os.Stderr, "ANTHROPIC_API_KEY is required")
		os.Exit(1)
	}

	store := filestate.New(*statePath)
	llm := anthropic.NewClient(cfg.AnthropicAPIKey, cfg.AnthropicModel)
	registry := agents.Default()
	orch := pipeline.New(registry, llm, store, nil, cfg.MaxRetries, cfg.RetryDelay, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Index existing sessions by transcript so reruns resume instead of
	// re-analyzing.
	existing, err := store.List()
	if err != nil {
		fmt.Fprintf(os.Stderr, "read state: %v\n", err)
		os.Exit(1)
	}
	byTranscript := make(map[string]*session.Session, len(existing))
	for _, sess := range existing {
		byTranscript[sess.Transcript] = sess
	}

	var analyzed, skipped, failed int
	start := time.Now()

	for _, path := range files {
		if ctx.Err() != nil {
			fmt.Println("\ninterrupted; state saved, rerun to resume")
			break
		}

		raw, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			failed++
			continue
		}
		if len(raw) < *minChars {
			skipped++
			continue
		}

		prepared, err := transcript.Prepare(string(raw), cfg.MaxTranscript)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			skipped++
			continue
		}

		sess, ok := byTranscript[prepared]
		if ok && allDone(registry, sess) {
			skipped++
			continue
		}
		if !ok {
			sess = session.New(prepared)
			byTranscript[prepared] = sess
		}

		fmt.Printf("analyzing %s (session %s)\n", filepath.Base(path), sess.ID)
		if err := orch.RunSequence(ctx, sess); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			failed++
			continue
		}

		sum, err := report.Build(sess)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			failed++
			continue
		}
		fmt.Println()
		fmt.Println(report.Format(sum))
		analyzed++
	}

	fmt.Printf("\ndone in %s: %d analyzed, %d skipped, %d failed\n",
		time.Since(start).Round(time.Second), analyzed, skipped, failed)
	if failed > 0 {
		os.Exit(1)
	}
}

func allDone(registry *agents.Registry, sess *session.Session) bool {
	for _, a := range registry.All() {
		if !sess.IsDone(a.ID) {
			return false
		}
	}
	return true
}

// discover returns the transcript files to analyze, sorted for a stable order.
func discover(dir, single string) ([]string, error) {
	if single != "" {
		if _, err := os.Stat(single); err != nil {
			return nil, err
		}
		return []string{single}, nil
	}

	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".txt", ".md":
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
