package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"ReviewQueue/internal/catalog"
	"ReviewQueue/internal/config"
	"ReviewQueue/internal/domain"
	"ReviewQueue/internal/infrastructure/storage"
	"ReviewQueue/internal/planner"
)

type planOptions struct {
	queueType string
	board     int64
	topics    []int64
	cycle     int64
	tag       int64
	title     string
	journal   string
	sort      string
	page      int
	perPage   int
	stateID   int64
}

func newPlanCmd() *cobra.Command {
	var opts planOptions
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the count and page SQL for a queue",
		Long: `Print the compiled count and page queries for a queue specification.

Without --state-id the state catalog is read from the configured database.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.queueType, "queue-type", string(domain.AbstractReview), "queue type")
	flags.Int64Var(&opts.board, "board", 0, "board id")
	flags.Int64SliceVar(&opts.topics, "topic", nil, "topic ids (take precedence over --board)")
	flags.Int64Var(&opts.cycle, "cycle", 0, "review cycle id")
	flags.Int64Var(&opts.tag, "tag", 0, "tag id")
	flags.StringVar(&opts.title, "title", "", "title fragment (Librarian Review only)")
	flags.StringVar(&opts.journal, "journal", "", "journal fragment (Librarian Review only)")
	flags.StringVar(&opts.sort, "sort", domain.DefaultSort, "sort key")
	flags.IntVar(&opts.page, "page", 0, "zero-based page")
	flags.IntVar(&opts.perPage, "per-page", domain.DefaultPageSize, "page size")
	flags.Int64Var(&opts.stateID, "state-id", 0, "stored id of the queue's target state")
	return cmd
}

func runPlan(ctx context.Context, out io.Writer, opts planOptions) error {
	qt, err := domain.ParseQueueType(opts.queueType)
	if err != nil {
		return err
	}

	stateID := opts.stateID
	if stateID == 0 {
		stateID, err = lookupStateID(ctx, qt)
		if err != nil {
			return err
		}
	}

	plan, err := planner.Build(planner.Request{
		Spec: domain.QueueSpecification{
			QueueType:     qt,
			Board:         opts.board,
			Topics:        opts.topics,
			Cycle:         opts.cycle,
			Tag:           opts.tag,
			TitleFilter:   opts.title,
			JournalFilter: opts.journal,
			SortKey:       opts.sort,
			PageSize:      opts.perPage,
		},
		StateID: stateID,
		Page:    opts.page,
	}, planner.NewRegistry())
	if err != nil {
		return err
	}

	countSQL, countArgs, err := plan.CountSQL()
	if err != nil {
		return fmt.Errorf("compile count query: %w", err)
	}
	pageSQL, pageArgs, err := plan.PageSQL()
	if err != nil {
		return fmt.Errorf("compile page query: %w", err)
	}

	fmt.Fprintf(out, "-- filters: %v\n", plan.ClauseNames())
	fmt.Fprintf(out, "-- count\n%s;\n-- args: %v\n", countSQL, countArgs)
	fmt.Fprintf(out, "-- page\n%s;\n-- args: %v\n", pageSQL, pageArgs)
	return nil
}

func lookupStateID(ctx context.Context, qt domain.QueueType) (int64, error) {
	cfg := config.Load()
	pool, err := storage.Open(ctx, cfg.Database.DSN, 1)
	if err != nil {
		return 0, err
	}
	defer pool.Close()

	states, err := catalog.Load(ctx, storage.NewPostgresRepository(pool))
	if err != nil {
		return 0, err
	}
	return states.QueueStateID(qt)
}
