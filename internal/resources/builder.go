package resources

// Builder maps catalog entities to the graphs of cluster objects that
// mirror them. Builders are pure: the same entity always yields the same
// graph, so a graph can be rebuilt from the previous catalog row whenever
// an update needs to know what used to be there.
type Builder struct {
	opts Options
}

// NewBuilder creates a builder for the cluster described by opts
func NewBuilder(opts Options) (*Builder, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Builder{opts: opts}, nil
}

// Options returns the settings the builder was created with
func (b *Builder) Options() Options {
	return b.opts
}
