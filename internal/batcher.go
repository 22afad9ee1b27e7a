package internal

type Batcher struct {
	// each nested batch increases the depth by 1
	// if depth > 0, synchronous flushes wait until the outermost batch is complete
	depth int
}

func NewBatcher() *Batcher {
	return &Batcher{
		depth: 0,
	}
}

func (b *Batcher) IsBatching() bool {
	return b.depth > 0
}

// Batch calls fn and, once the outermost batch returns, onComplete.
// A panic in fn unwinds the depth and skips onComplete.
func (b *Batcher) Batch(fn func(), onComplete func() error) error {
	func() {
		b.depth++
		defer func() { b.depth-- }()

		fn()
	}()

	if b.depth == 0 && onComplete != nil {
		return onComplete()
	}
	return nil
}

// Batch groups the writes made by fn and flushes once after the outermost
// batch returns.
func (r *Runtime) Batch(fn func()) error {
	return r.batcher.Batch(fn, r.FlushSync)
}
