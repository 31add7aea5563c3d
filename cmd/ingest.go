package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/ai-runner/internal/apperr"
	"github.com/ziadkadry99/ai-runner/internal/db"
	"github.com/ziadkadry99/ai-runner/internal/docbase"
	"github.com/ziadkadry99/ai-runner/internal/progress"
	"github.com/ziadkadry99/ai-runner/internal/walker"
)

var (
	ingestBase      string
	ingestDir       string
	ingestInclude   []string
	ingestExclude   []string
	ingestOverwrite bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Add every document under a directory to a documentary base",
	Long: `Walks --dir for epub, docx and pdf files and adds each one to the documentary
base --db. The reference name is the file path relative to --dir. Files
already present in the base are skipped unless --overwrite is set.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if _, ok := cfg.Base(ingestBase); !ok {
			return fmt.Errorf("documentary base %q is not configured", ingestBase)
		}

		files, err := walker.Walk(walker.WalkerConfig{
			RootDir:     ingestDir,
			Include:     ingestInclude,
			Exclude:     ingestExclude,
			MaxFileSize: int64(cfg.Server.MaxUploadMB) << 20,
		})
		if err != nil {
			return err
		}
		if len(files) == 0 {
			fmt.Fprintf(os.Stderr, "No epub, docx or pdf files found under %s\n", ingestDir)
			return nil
		}

		svc, err := newServices(cfg)
		if err != nil {
			return err
		}
		defer svc.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		stats := ingestFiles(ctx, svc.registry, ingestBase, files, ingestOverwrite, progress.NewReporter("Ingesting"))
		fmt.Fprintf(os.Stderr, "Added %d, replaced %d, skipped %d, failed %d (%d chunks)\n",
			stats.added, stats.replaced, stats.skipped, len(stats.failed), stats.chunks)
		for _, f := range stats.failed {
			fmt.Fprintf(os.Stderr, "  %s\n", f)
		}
		if len(stats.failed) > 0 {
			return fmt.Errorf("%d file(s) could not be ingested", len(stats.failed))
		}
		return ctx.Err()
	},
}

type ingestStats struct {
	added, replaced, skipped int
	chunks                   int
	failed                   []string
}

// ingestFiles adds files to base one at a time. It stops between files
// once ctx is cancelled.
func ingestFiles(ctx context.Context, reg *docbase.Registry, base string, files []walker.FileInfo, overwrite bool, rep progress.Reporter) ingestStats {
	var stats ingestStats
	rep.Start(len(files))
	defer rep.Finish()

	for i, f := range files {
		if ctx.Err() != nil {
			break
		}
		rep.Update(i+1, f.RelPath)

		data, err := os.ReadFile(f.Path)
		if err != nil {
			stats.failed = append(stats.failed, fmt.Sprintf("%s: %v", f.RelPath, err))
			continue
		}

		var (
			ref      *db.Reference
			replaced bool
		)
		if overwrite {
			ref, replaced, err = reg.ReplaceReference(ctx, base, f.RelPath, f.Kind, data)
		} else {
			ref, err = reg.AddReference(ctx, base, f.RelPath, f.Kind, data)
			if errors.Is(err, apperr.ErrConflict) {
				stats.skipped++
				continue
			}
		}
		if err != nil {
			stats.failed = append(stats.failed, fmt.Sprintf("%s: %v", f.RelPath, err))
			continue
		}

		stats.chunks += ref.Chunks
		if replaced {
			stats.replaced++
		} else {
			stats.added++
		}
	}
	return stats
}

func init() {
	ingestCmd.Flags().StringVar(&ingestBase, "db", "", "Documentary base to add references to")
	ingestCmd.Flags().StringVar(&ingestDir, "dir", "", "Directory to scan for documents")
	ingestCmd.Flags().StringSliceVar(&ingestInclude, "include", nil, "Glob patterns of files to include (supports **)")
	ingestCmd.Flags().StringSliceVar(&ingestExclude, "exclude", nil, "Glob patterns of files to skip")
	ingestCmd.Flags().BoolVar(&ingestOverwrite, "overwrite", false, "Replace references that already exist; the old content stays if the new file cannot be parsed or embedded")
	ingestCmd.MarkFlagRequired("db")
	ingestCmd.MarkFlagRequired("dir")
	rootCmd.AddCommand(ingestCmd)
}
