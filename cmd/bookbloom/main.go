// Package main implements the bookbloom development CLI: docker stack
// control, test running, direct binary runners, and demo data seeding.
package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/bookbloom/bookbloom/internal/database"
	"github.com/bookbloom/bookbloom/internal/model"
	"github.com/bookbloom/bookbloom/internal/repository"
)

var composeFile string

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "bookbloom: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bookbloom",
		Short: "BookBloom export service development CLI",
		Long: `The bookbloom CLI orchestrates common development workflows: building and
running the docker stack, running tests, launching the API and worker
binaries directly, and seeding demo data.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&composeFile, "compose-file", "f", "docker-compose.yml", "Compose file to use for stack commands")
	cmd.AddCommand(
		newUpCmd(),
		newDownCmd(),
		newTestCmd(),
		newRunCmd(),
		newSeedCmd(),
	)
	return cmd
}

func newUpCmd() *cobra.Command {
	var detach bool
	var skipBuild bool
	cmd := &cobra.Command{
		Use:   "up [service...]",
		Short: "Start the docker-compose stack (postgres, redis, minio, api, worker)",
		RunE: func(cmd *cobra.Command, args []string) error {
			composeArgs := []string{"compose", "-f", composeFile, "up"}
			if !skipBuild {
				composeArgs = append(composeArgs, "--build")
			}
			if detach {
				composeArgs = append(composeArgs, "-d")
			}
			composeArgs = append(composeArgs, args...)
			return runCommand(cmd.Context(), "docker", composeArgs...)
		},
	}
	cmd.Flags().BoolVarP(&detach, "detached", "d", true, "Run docker compose in detached mode")
	cmd.Flags().BoolVar(&skipBuild, "skip-build", false, "Skip rebuilding images before starting")
	return cmd
}

func newDownCmd() *cobra.Command {
	var removeVolumes bool
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Stop the docker-compose stack",
		RunE: func(cmd *cobra.Command, args []string) error {
			composeArgs := []string{"compose", "-f", composeFile, "down"}
			if removeVolumes {
				composeArgs = append(composeArgs, "-v")
			}
			return runCommand(cmd.Context(), "docker", composeArgs...)
		},
	}
	cmd.Flags().BoolVarP(&removeVolumes, "volumes", "v", false, "Remove stack volumes")
	return cmd
}

func newTestCmd() *cobra.Command {
	var race bool
	var cover bool
	cmd := &cobra.Command{
		Use:   "test [packages]",
		Short: "Run Go tests (defaults to ./...)",
		RunE: func(cmd *cobra.Command, args []string) error {
			pkgs := args
			if len(pkgs) == 0 {
				pkgs = []string{"./..."}
			}
			goArgs := []string{"test"}
			if race {
				goArgs = append(goArgs, "-race")
			}
			if cover {
				goArgs = append(goArgs, "-cover")
			}
			goArgs = append(goArgs, pkgs...)
			return runCommand(cmd.Context(), "go", goArgs...)
		},
	}
	cmd.Flags().BoolVar(&race, "race", false, "Enable Go race detector")
	cmd.Flags().BoolVar(&cover, "cover", false, "Collect coverage data")
	return cmd
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run individual Go binaries directly",
	}
	cmd.AddCommand(
		newServiceRunner("server", "./cmd/server"),
		newServiceRunner("worker", "./cmd/worker"),
	)
	return cmd
}

func newServiceRunner(name, path string) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: fmt.Sprintf("go run %s", path),
		RunE: func(cmd *cobra.Command, args []string) error {
			goArgs := append([]string{"run", path}, args...)
			return runCommand(cmd.Context(), "go", goArgs...)
		},
	}
}

func newSeedCmd() *cobra.Command {
	var dsn string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert a demo book with chapters into the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dsn == "" {
				dsn = os.Getenv("BOOKBLOOM_DATABASE_URL")
			}
			if dsn == "" {
				return fmt.Errorf("no database DSN; pass --database-url or set BOOKBLOOM_DATABASE_URL")
			}
			ctx := cmd.Context()
			pool, err := database.Connect(ctx, dsn)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer pool.Close()
			if err := database.EnsureSchema(ctx, pool); err != nil {
				return err
			}
			repo := repository.NewBookRepository(pool)
			book := demoBook()
			if err := repo.Create(ctx, book); err != nil {
				return fmt.Errorf("seed book: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded book %s (%d chapters)\n", book.ID, len(book.Chapters))
			return nil
		},
	}
	cmd.Flags().StringVar(&dsn, "database-url", "", "Postgres DSN (defaults to BOOKBLOOM_DATABASE_URL)")
	return cmd
}

func demoBook() *model.BookSnapshot {
	chapters := []struct{ title, content string }{
		{"The Seedling", "Mara found the seedling on the morning the rains stopped, pushing up between two broken flagstones in the courtyard."},
		{"Roots", "By midsummer the roots had found the old well, and the whole house smelled faintly of green water."},
		{"Bloom", "It flowered once, at night, and nobody who saw it could ever quite describe the colour."},
	}
	book := &model.BookSnapshot{
		ID:            uuid.NewString(),
		Title:         "The Courtyard Tree",
		Author:        "A. Demo",
		Synopsis:      "A small house, a stubborn tree, and the family that grows around both.",
		Genre:         "Literary Fiction",
		CopyrightLine: "Copyright the author. All rights reserved.",
	}
	for _, ch := range chapters {
		book.Chapters = append(book.Chapters, model.Chapter{
			ID:        uuid.NewString(),
			Title:     ch.title,
			Content:   ch.content,
			WordCount: len(strings.Fields(ch.content)),
		})
	}
	return book
}

func runCommand(ctx context.Context, name string, args ...string) error {
	execCmd := exec.CommandContext(ctx, name, args...)
	execCmd.Stdout = os.Stdout
	execCmd.Stderr = os.Stderr
	execCmd.Stdin = os.Stdin
	return execCmd.Run()
}
