package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/AndreasM009/entitystore-go/config"
	"github.com/AndreasM009/entitystore-go/pipeline"
	"github.com/AndreasM009/entitystore-go/revision"
	"github.com/AndreasM009/entitystore-go/store"
)

const maxEventSize = 1024 * 1024

func newProcessCmd() *cobra.Command {
	var inputPath string

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Apply JSON-lines update events to the configured store",
		Long: `Reads one update event per line, e.g.
  {"entityType":"Order","entityUid":"42","eventKey":"e-1","revisionTypeName":"int64","revisionSerialized":"7"}
stores newer revisions and emits a notification for every accepted change.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			in := io.Reader(cmd.InOrStdin())
			if inputPath != "" && inputPath != "-" {
				f, err := os.Open(inputPath)
				if err != nil {
					return fmt.Errorf("opening input: %w", err)
				}
				defer f.Close()
				in = f
			}

			return runProcess(cmd.Context(), cfg, in)
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "-", "File with update events, - for stdin")

	return cmd
}

func runProcess(ctx context.Context, cfg *config.Config, in io.Reader) error {
	log, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	s, err := newStore(cfg.Store)
	if err != nil {
		return err
	}

	n, err := newNotifier(cfg.Notifier)
	if err != nil {
		return err
	}
	defer n.Close()

	p := pipeline.NewProcessor(s, n, revision.DefaultRegistry(),
		pipeline.WithLogger(log.Named("pipeline")),
		pipeline.WithPreferredMethod(cfg.Pipeline.PreferredMethod),
		pipeline.WithWorkers(cfg.Pipeline.Workers),
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan *store.Entity)
	readErr := make(chan error, 1)
	go func() {
		defer close(events)
		readErr <- readEvents(ctx, in, events, log)
	}()

	outcomes := map[pipeline.Outcome]int{}
	for res := range p.Run(ctx, events) {
		outcomes[res.Outcome]++
	}

	fields := make([]zap.Field, 0, len(outcomes))
	for outcome, count := range outcomes {
		fields = append(fields, zap.Int(outcome.String(), count))
	}
	log.Info("processing finished", fields...)

	return <-readErr
}

func readEvents(ctx context.Context, in io.Reader, events chan<- *store.Entity, log *zap.Logger) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), maxEventSize)

	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}

		e := &store.Entity{}
		if err := json.Unmarshal(scanner.Bytes(), e); err != nil {
			log.Warn("skipping malformed event", zap.Int("line", line), zap.Error(err))
			continue
		}

		select {
		case events <- e:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading events: %w", err)
	}
	return nil
}
