// Package pipeline sequences one conversion request: validation, admission,
// bounded transformation, render dispatch. Each stage returns a classified
// error from the domain taxonomy; no stage retries.
package pipeline

import (
	"context"

	"github.com/gilmarTelles/xlsx-to-pdf/internal/convert"
)

// Dispatcher sends a transformed document to the renderer and returns the
// produced PDF or a classified failure.
type Dispatcher interface {
	Render(ctx context.Context, doc []byte, opts convert.Options) ([]byte, error)
}

// Pipeline owns the per-request conversion flow. Construct once at startup
// and share across requests; all fields are safe for concurrent use.
type Pipeline struct {
	guard          *Guard
	limiter        *Limiter
	transformer    convert.Transformer
	dispatcher     Dispatcher
	maxUploadBytes int
}

// New wires the pipeline stages together.
func New(guard *Guard, limiter *Limiter, dispatcher Dispatcher, maxUploadBytes int) *Pipeline {
	return &Pipeline{
		guard:          guard,
		limiter:        limiter,
		dispatcher:     dispatcher,
		maxUploadBytes: maxUploadBytes,
	}
}

// Limiter exposes the gate for observability.
func (p *Pipeline) Limiter() *Limiter { return p.limiter }

// Guard exposes the admission guard for observability.
func (p *Pipeline) Guard() *Guard { return p.guard }

// Convert runs one upload through the full pipeline. The returned bytes are
// the rendered PDF; any error is one of the domain classifications. The
// upload slice is never mutated. ctx governs queueing on the limiter and the
// outbound render call; callers that must not cancel in-flight work on
// client disconnect pass a background context.
func (p *Pipeline) Convert(ctx context.Context, upload []byte, declaredSize int64, opts convert.Options) ([]byte, error) {
	if err := convert.ValidateUpload(upload, declaredSize, p.maxUploadBytes); err != nil {
		return nil, err
	}

	// Admission runs before a slot is taken so shed requests cost nothing.
	if err := p.guard.Admit(); err != nil {
		return nil, err
	}

	if err := p.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer p.limiter.Release()

	doc, err := p.transformer.Apply(upload, opts)
	if err != nil {
		return nil, err
	}

	return p.dispatcher.Render(ctx, doc, opts)
}
