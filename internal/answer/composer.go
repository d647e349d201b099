// Package answer composes grounded, cited answers from retrieved chunks.
package answer

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/audit"
	"github.com/hyperjump/kotae/internal/llm"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/retrieval"
)

// AbstentionMessage is the exact reply when the knowledge base cannot support
// an answer. Callers match on this literal, so it must never change casually.
const AbstentionMessage = "Not in KB yet. Please add the relevant SOP/policy document to the knowledge base."

// abstentionPrefix catches a model that abstains with the short form.
const abstentionPrefix = "Not in KB yet."

const systemDirective = `You are an internal knowledge-base assistant. Answer the question using ONLY the numbered SOURCES provided. Cite every claim inline with the source label in square brackets, for example [S1] or [S2].
If the sources do not contain the information needed to answer, reply exactly:
"` + AbstentionMessage + `"
Do not use outside knowledge. Do not speculate.`

// Composer runs the per-query pipeline: retrieve, decide, generate, verify
// citations, reconcile sources, and record the outcome in the audit log.
type Composer struct {
	retriever   *retrieval.Retriever
	generator   llm.Generator
	tracker     audit.Tracker
	threshold   float64
	temperature float64
	logger      *zap.Logger // optional
}

// Option configures a Composer.
type Option func(*Composer)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(c *Composer) { c.logger = l }
}

// NewComposer creates a composer. threshold is the minimum best-chunk score
// for answering; a best score below it abstains without calling the model, and
// a score equal to it proceeds. temperature is the default sampling temperature.
func NewComposer(retriever *retrieval.Retriever, generator llm.Generator, tracker audit.Tracker, threshold, temperature float64, opts ...Option) *Composer {
	c := &Composer{
		retriever:   retriever,
		generator:   generator,
		tracker:     tracker,
		threshold:   threshold,
		temperature: temperature,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Answer handles one question end to end. Every call appends exactly one audit
// record; backend failures propagate to the caller after a best-effort error
// record, never degrade into a silent abstention.
func (c *Composer) Answer(ctx context.Context, question string, opts models.QueryOptions) (*models.QueryResult, error) {
	k := opts.K
	if k <= 0 {
		k = c.retriever.TopK()
	}
	retrieved, err := c.retriever.Retrieve(ctx, question, opts.Role, k)
	if err != nil {
		c.logFailure(ctx, question, k, err)
		return nil, err
	}
	trace := models.TraceRetrieval(retrieved)

	var best float64
	if len(retrieved) > 0 {
		best = retrieved[0].Score
	}
	if len(retrieved) == 0 || best < c.threshold {
		if c.logger != nil {
			c.logger.Debug("abstaining before generation",
				zap.Float64("best_score", best),
				zap.Float64("threshold", c.threshold),
				zap.Int("retrieved", len(retrieved)))
		}
		rec := &models.QALogRecord{
			Question:  question,
			Status:    models.StatusNotInKB,
			BestScore: best,
			K:         k,
			Answer:    AbstentionMessage,
		}
		if err := c.tracker.Log(ctx, rec); err != nil {
			return nil, err
		}
		return &models.QueryResult{Answer: AbstentionMessage, Retrieval: trace}, nil
	}

	temperature := c.temperature
	if opts.Temperature != nil {
		temperature = *opts.Temperature
	}
	raw, err := c.generator.Generate(ctx, systemDirective, buildPrompt(question, retrieved), temperature)
	if err != nil {
		c.logFailure(ctx, question, k, err)
		return nil, err
	}

	text := strings.TrimSpace(raw)
	status := models.StatusAnswered
	var sources []string
	switch {
	case strings.HasPrefix(text, abstentionPrefix):
		text = AbstentionMessage
		status = models.StatusNotInKB
	case !hasCitation(text):
		// An answer that cites nothing cannot be traced back to the
		// knowledge base, so it is treated as unsupported.
		if c.logger != nil {
			c.logger.Debug("generated answer had no citations, abstaining")
		}
		text = AbstentionMessage
		status = models.StatusNotInKB
	default:
		cited := reconcileSources(text, retrieved)
		sources = sourceRefs(cited)
		text = appendSources(text, cited)
	}

	rec := &models.QALogRecord{
		Question:  question,
		Status:    status,
		BestScore: best,
		K:         k,
		Sources:   sources,
		Answer:    text,
	}
	if err := c.tracker.Log(ctx, rec); err != nil {
		return nil, err
	}
	return &models.QueryResult{Answer: text, Sources: sources, Retrieval: trace}, nil
}

// logFailure records a status=error audit entry. The original failure is what
// the caller needs to see, so audit problems here are only logged.
func (c *Composer) logFailure(ctx context.Context, question string, k int, cause error) {
	rec := &models.QALogRecord{
		Question: question,
		Status:   models.StatusError,
		K:        k,
		Answer:   cause.Error(),
	}
	if err := c.tracker.Log(ctx, rec); err != nil && c.logger != nil {
		c.logger.Warn("audit write failed for error record", zap.Error(err))
	}
}

// buildPrompt renders the numbered evidence blocks and the question.
func buildPrompt(question string, retrieved []models.RetrievedChunk) string {
	var b strings.Builder
	b.WriteString("SOURCES:\n")
	for _, r := range retrieved {
		fmt.Fprintf(&b, "[S%d] %s\n%s\n\n", r.Rank, r.Chunk.Ref(), r.Chunk.Text)
	}
	b.WriteString("QUESTION: ")
	b.WriteString(question)
	return b.String()
}

// reconcileSources maps the ranks actually cited in the answer back to chunk
// references, deduplicated, in citation order. When the answer cites only
// ranks that were never retrieved, every retrieved chunk is returned so the
// reader still sees what the answer was built from.
func reconcileSources(text string, retrieved []models.RetrievedChunk) []citedSource {
	byRank := make(map[int]string, len(retrieved))
	for _, r := range retrieved {
		byRank[r.Rank] = r.Chunk.Ref()
	}
	seen := make(map[string]bool)
	var cited []citedSource
	for _, rank := range citedRanks(text) {
		ref, ok := byRank[rank]
		if !ok || seen[ref] {
			continue
		}
		seen[ref] = true
		cited = append(cited, citedSource{Rank: rank, Ref: ref})
	}
	if len(cited) == 0 {
		for _, r := range retrieved {
			ref := r.Chunk.Ref()
			if !seen[ref] {
				seen[ref] = true
				cited = append(cited, citedSource{Rank: r.Rank, Ref: ref})
			}
		}
	}
	return cited
}
