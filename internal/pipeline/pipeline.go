package pipeline

// Pipeline chains processors over a shared context: lex, parse, and
// for the compile backend, lowering.
type Pipeline struct {
	stages []Processor
}

func New(stages ...Processor) *Pipeline {
	return &Pipeline{stages: stages}
}

// Run passes the context through every stage. A stage that records
// diagnostics does not stop the chain; later stages still run so one
// pass reports everything it can about the source.
func (p *Pipeline) Run(ctx *PipelineContext) *PipelineContext {
	for _, stage := range p.stages {
		ctx = stage.Process(ctx)
	}
	return ctx
}
