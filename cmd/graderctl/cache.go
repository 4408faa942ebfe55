package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"gradecore/internal/runner"
	"gradecore/internal/store"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect the harness cache",
}

var cacheInspectCmd = &cobra.Command{
	Use:   "inspect [problem-id] [language]",
	Short: "Show whether a cached harness exists for a (problem, language) pair",
	Long: `Computes the content-addressed cache key runner.CacheKey would use for
the problem's currently-stored IR and reports whether a harness is already
cached for it (spec.md §5 "harness cache").`,
	Args: cobra.ExactArgs(2),
	RunE: runCacheInspect,
}

func init() {
	cacheCmd.AddCommand(cacheInspectCmd)
}

func runCacheInspect(cmd *cobra.Command, args []string) error {
	problemID, language := args[0], args[1]

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	problem, err := st.GetProblem(ctx, problemID)
	if err != nil {
		return fmt.Errorf("load problem: %w", err)
	}
	if problem == nil {
		return fmt.Errorf("no stored problem with id %q", problemID)
	}

	key := runner.CacheKey(problemID, problem.IRCanonical, runner.GeneratorVersion, language)
	harnessCache := store.NewHarnessCache(st)
	content, ok := harnessCache.Get(key)

	fmt.Printf("cache key: %s\n", key)
	if !ok {
		fmt.Println("status: miss")
		return nil
	}
	fmt.Printf("status: hit (%d bytes)\n", len(content))
	return nil
}
