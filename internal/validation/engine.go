package validation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/rpattn/creditdq/internal/domain"
	"github.com/rpattn/creditdq/internal/lifecycle"
	"github.com/rpattn/creditdq/internal/scoring"
)

// Engine runs every check over a loaded dataset and assembles the run
// result.
type Engine struct {
	opts   Options
	logger logrus.FieldLogger
	now    func() time.Time
	newID  func() uuid.UUID
}

type Option func(*Engine)

// WithClock overrides the clock used for run timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithIDGenerator overrides run id generation.
func WithIDGenerator(newID func() uuid.UUID) Option {
	return func(e *Engine) {
		if newID != nil {
			e.newID = newID
		}
	}
}

func NewEngine(opts Options, logger logrus.FieldLogger, options ...Option) *Engine {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	engine := &Engine{
		opts:   opts,
		logger: logger.WithField("component", "validation"),
		now:    time.Now,
		newID:  uuid.New,
	}
	for _, opt := range options {
		opt(engine)
	}
	return engine
}

type check struct {
	name string
	run  func() []domain.Issue
}

// Run executes the integrity, business rule, outlier and lifecycle checks
// concurrently, then scores the full issue set and filters the ledger by the
// configured minimum severity. Issues keep a fixed order (load issues, then
// checks in declaration order) whatever the scheduling.
func (e *Engine) Run(ctx context.Context, d *domain.Dataset) (domain.Run, error) {
	if d == nil {
		return domain.Run{}, errors.New("dataset is required")
	}

	started := e.now()
	reconciler := lifecycle.NewReconciler(lifecycle.Options{
		AsOf:                e.opts.AsOf,
		ScopeToCreditWindow: e.opts.ScopeInvoicesToCreditWindow,
	}, e.logger)

	checks := []check{
		{name: "integrity", run: func() []domain.Issue { return CheckIntegrity(d) }},
		{name: "business_rules", run: func() []domain.Issue { return CheckBusinessRules(d, e.opts) }},
		{name: "outliers", run: func() []domain.Issue { return DetectOutliers(d, e.opts, e.logger) }},
		{name: "lifecycle", run: func() []domain.Issue { return reconciler.Reconcile(d) }},
	}

	results := make([][]domain.Issue, len(checks))
	g, gctx := errgroup.WithContext(ctx)
	for i, c := range checks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			begin := time.Now()
			results[i] = c.run()
			e.logger.WithFields(logrus.Fields{
				"check":       c.name,
				"issues":      len(results[i]),
				"duration_ms": time.Since(begin).Milliseconds(),
			}).Info("check completed")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.Run{}, err
	}

	groups := append([][]domain.Issue{d.LoadIssues}, results...)
	issues := domain.NewIssueSet(groups...)
	ledger := issues.Filter(e.opts.MinSeverity)

	run := domain.Run{
		ID:         e.newID(),
		StartedAt:  started,
		FinishedAt: e.now(),
		AsOf:       e.opts.AsOf,
		Issues:     issues,
		Ledger:     ledger,
		Scorecard:  scoring.BuildScorecard(d, issues),
		Summary:    scoring.Summarize(ledger, e.opts.TopMismatches),
	}

	e.logger.WithFields(logrus.Fields{
		"run_id":       run.ID,
		"issues":       issues.Len(),
		"ledger_rows":  ledger.Len(),
		"min_severity": e.opts.MinSeverity,
	}).Info("validation run completed")
	return run, nil
}
