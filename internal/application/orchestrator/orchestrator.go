package orchestrator

import (
	"context"
	"fmt"
	"log"
	"runtime/debug"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/longregen/creditexplain/internal/adapters/metrics"
	"github.com/longregen/creditexplain/internal/domain/models"
	"github.com/longregen/creditexplain/internal/ports"
)

const (
	auditPreviewLen   = 200
	defaultRunTimeout = 120 * time.Second
)

// Config holds the pipeline tuning knobs
type Config struct {
	TopK             int
	TopN             int
	SupportThreshold float64
	RunTimeout       time.Duration
}

// Orchestrator runs the self-reflective retrieval pipeline: decide whether
// to retrieve, search and rerank, generate and grade one answer per top
// passage concurrently, then select the best-supported answer. Every run
// terminates with exactly one audit record, whatever the outcome.
type Orchestrator struct {
	critic    ports.Critic
	generator ports.Generator
	embedder  ports.Embedder
	index     ports.VectorIndex
	reranker  ports.CrossEncoder
	audit     ports.AuditSink
	ids       ports.IDGenerator
	weights   models.SelectionWeights
	cfg       Config
	tracer    trace.Tracer
}

// New creates an Orchestrator over the given collaborators
func New(
	critic ports.Critic,
	generator ports.Generator,
	embedder ports.Embedder,
	index ports.VectorIndex,
	reranker ports.CrossEncoder,
	audit ports.AuditSink,
	ids ports.IDGenerator,
	cfg Config,
) *Orchestrator {
	if cfg.TopK <= 0 {
		cfg.TopK = 50
	}
	if cfg.TopN <= 0 {
		cfg.TopN = 6
	}
	if cfg.SupportThreshold <= 0 {
		cfg.SupportThreshold = 0.7
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = defaultRunTimeout
	}

	return &Orchestrator{
		critic:    critic,
		generator: generator,
		embedder:  embedder,
		index:     index,
		reranker:  reranker,
		audit:     audit,
		ids:       ids,
		weights:   models.DefaultSelectionWeights(),
		cfg:       cfg,
		tracer:    otel.Tracer("creditexplain/orchestrator"),
	}
}

// runState threads per-run data through the pipeline stages
type runState struct {
	runID   string
	query   models.Query
	start   time.Time
	started time.Time

	decision       models.RetrievalDecision
	retrievedCount int
	ranked         []models.RankedPassage
	rerankScores   []float64
	rerankFailed   bool
	candidates     []models.Candidate
	partial        bool
}

// Run executes the pipeline for one query. It never fails outright: every
// outcome, including internal faults, maps to a response with a written
// audit record.
func (o *Orchestrator) Run(ctx context.Context, query models.Query) *models.Response {
	st := &runState{
		runID:   o.ids.RunID(),
		query:   query,
		start:   time.Now(),
		started: time.Now().UTC(),
	}

	ctx, cancel := context.WithTimeout(ctx, o.cfg.RunTimeout)
	defer cancel()

	ctx, span := o.tracer.Start(ctx, "pipeline.run",
		trace.WithAttributes(attribute.String("run_id", st.runID)))
	defer span.End()

	resp := o.executeGuarded(ctx, st)
	span.SetAttributes(
		attribute.Bool("retrieval_performed", resp.RetrievalPerformed),
		attribute.String("error", resp.Error),
	)

	metrics.PipelineRunDuration.Observe(resp.ProcessingTime)
	if resp.Error == "" {
		metrics.PipelineRunsTotal.WithLabelValues(models.StatusSuccess).Inc()
	} else {
		metrics.PipelineRunsTotal.WithLabelValues(resp.Error).Inc()
	}

	return resp
}

// executeGuarded is the fault boundary: a panicking collaborator becomes a
// pipeline_error response with its audit record, never an escaped panic.
func (o *Orchestrator) executeGuarded(ctx context.Context, st *runState) (resp *models.Response) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("run %s: panic in pipeline: %v\n%s", st.runID, r, debug.Stack())
			resp = o.terminalPipelineError(ctx, st, fmt.Errorf("panic: %v", r))
		}
	}()
	return o.execute(ctx, st)
}

func (o *Orchestrator) execute(ctx context.Context, st *runState) *models.Response {
	if st.query.IsEmpty() {
		return o.terminalBadRequest(ctx, st)
	}

	// adaptive retrieval decision; failures default to retrieving
	decision, err := o.critic.Decide(ctx, st.query.Text)
	if err != nil {
		log.Printf("run %s: retrieval decision degraded: %v", st.runID, err)
	}
	st.decision = decision

	if !decision.Retrieve {
		return o.generateWithoutContext(ctx, st)
	}

	passages, err := o.retrieve(ctx, st)
	if err != nil {
		return o.terminalPipelineError(ctx, st, err)
	}
	if len(passages) == 0 {
		return o.terminalEmptyRetrieval(ctx, st)
	}
	st.retrievedCount = len(passages)
	metrics.RetrievalCandidates.Observe(float64(len(passages)))

	o.rerank(ctx, st, passages)

	o.evaluateCandidates(ctx, st)
	if len(st.candidates) == 0 {
		return o.terminalProcessingFailure(ctx, st)
	}

	best := selectBest(st.candidates)
	if best.Scores.IsSup < o.cfg.SupportThreshold {
		return o.terminalInsufficientSupport(ctx, st, best)
	}

	followUps, err := o.generator.FollowUps(ctx, st.query.Text, best.Answer, st.ranked)
	if err != nil {
		log.Printf("run %s: follow-up generation degraded: %v", st.runID, err)
	}
	best.Answer.FollowUpQuestions = followUps

	return o.terminalSuccess(ctx, st, best)
}

// retrieve embeds the query and searches the index. An empty embedding
// means there is nothing to search for.
func (o *Orchestrator) retrieve(ctx context.Context, st *runState) ([]models.Passage, error) {
	ctx, span := o.tracer.Start(ctx, "pipeline.retrieve")
	defer span.End()

	vector, err := o.embedder.Embed(ctx, st.query.Text)
	if err != nil {
		return nil, fmt.Errorf("query embedding failed: %w", err)
	}
	if len(vector) == 0 {
		return nil, nil
	}

	passages, err := o.index.Search(ctx, vector, o.cfg.TopK, nil)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	span.SetAttributes(attribute.Int("retrieved", len(passages)))
	return passages, nil
}

// rerank narrows the retrieved passages to TopN. A reranker failure falls
// back to the first TopN by retrieval distance.
func (o *Orchestrator) rerank(ctx context.Context, st *runState, passages []models.Passage) {
	ctx, span := o.tracer.Start(ctx, "pipeline.rerank")
	defer span.End()

	ranked, scores, err := o.reranker.Rerank(ctx, st.query.Text, passages, o.cfg.TopN)
	if err == nil {
		st.ranked = ranked
		st.rerankScores = scores
		return
	}

	log.Printf("run %s: rerank failed: %v, falling back to retrieval order", st.runID, err)
	st.rerankFailed = true
	span.SetAttributes(attribute.Bool("rerank_failed", true))

	byDistance := make([]models.Passage, len(passages))
	copy(byDistance, passages)
	sort.SliceStable(byDistance, func(a, b int) bool {
		return byDistance[a].Distance < byDistance[b].Distance
	})

	n := o.cfg.TopN
	if n > len(byDistance) {
		n = len(byDistance)
	}
	st.ranked = make([]models.RankedPassage, n)
	for i := 0; i < n; i++ {
		st.ranked[i] = models.RankedPassage{Passage: byDistance[i]}
	}
}

// evaluateCandidates generates and grades one answer per ranked passage,
// fanning out across at most TopN workers. Each result keeps the passage's
// pre-dispatch index so selection is independent of completion order. A
// candidate is dropped only when generation and scoring both fail.
func (o *Orchestrator) evaluateCandidates(ctx context.Context, st *runState) {
	ctx, span := o.tracer.Start(ctx, "pipeline.candidates",
		trace.WithAttributes(attribute.Int("passages", len(st.ranked))))
	defer span.End()

	results := make([]*models.Candidate, len(st.ranked))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.TopN)
	for i := range st.ranked {
		g.Go(func() error {
			// a panic here would die with the worker goroutine, out of
			// reach of the run-level recover; contain it and drop the
			// candidate instead
			defer func() {
				if r := recover(); r != nil {
					log.Printf("run %s: candidate %d panic: %v\n%s", st.runID, i, r, debug.Stack())
					results[i] = nil
				}
			}()
			passage := st.ranked[i]

			answer, genErr := o.generator.Answer(gctx, st.query.Text, []models.RankedPassage{passage})
			if genErr != nil {
				log.Printf("run %s: candidate %d generation failed: %v", st.runID, i, genErr)
			}

			explanation := ""
			if answer != nil {
				explanation = answer.Explanation
			}
			scores, scoreErr := o.critic.Score(gctx, st.query.Text, explanation, passage.Text)
			if scoreErr != nil {
				log.Printf("run %s: candidate %d scoring failed: %v", st.runID, i, scoreErr)
			}

			if genErr != nil && scoreErr != nil {
				return nil
			}

			results[i] = &models.Candidate{
				Passage:  passage,
				Answer:   answer,
				Scores:   scores,
				Combined: o.weights.Combine(scores),
				Index:    i,
			}
			return nil
		})
	}
	g.Wait()

	for _, c := range results {
		if c != nil {
			st.candidates = append(st.candidates, *c)
		}
	}
	st.partial = len(st.candidates) < len(st.ranked)
	span.SetAttributes(attribute.Int("candidates", len(st.candidates)))
}

// selectBest orders candidates by combined score descending, breaking ties
// by support then by post-rerank index
func selectBest(candidates []models.Candidate) models.Candidate {
	sorted := make([]models.Candidate, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(a, b int) bool {
		if sorted[a].Combined != sorted[b].Combined {
			return sorted[a].Combined > sorted[b].Combined
		}
		if sorted[a].Scores.IsSup != sorted[b].Scores.IsSup {
			return sorted[a].Scores.IsSup > sorted[b].Scores.IsSup
		}
		return sorted[a].Index < sorted[b].Index
	})
	return sorted[0]
}
