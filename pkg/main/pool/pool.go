package pool

// Poolobj is a bounded free list of reusable objects. Unlike sync.Pool the
// objects survive garbage collection, which keeps long-lived string builders
// and row buffers warm between requests.
type Poolobj[t any] struct {
	objs chan *t
	// constructor runs for every newly created object
	constructor func(*t)
	// destructor runs on Put; returning true drops the object instead of
	// returning it to the pool
	destructor func(*t) bool
}

// NewPool creates a pool keeping at most maxsize idle objects and
// pre-creating initcreate of them.
func NewPool[t any](
	maxsize, initcreate int,
	constructor func(*t),
	destructor func(*t) bool,
) *Poolobj[t] {
	if maxsize <= 0 {
		maxsize = 1
	}
	p := Poolobj[t]{
		objs:        make(chan *t, maxsize),
		constructor: constructor,
		destructor:  destructor,
	}
	for range min(initcreate, maxsize) {
		p.Put(p.NewObj())
	}
	return &p
}

// Get returns an idle object or creates a new one.
func (p *Poolobj[t]) Get() *t {
	select {
	case obj := <-p.objs:
		return obj
	default:
		return p.NewObj()
	}
}

// NewObj creates a new object, initialized by the constructor if one is set.
func (p *Poolobj[t]) NewObj() *t {
	var bo t
	if p.constructor != nil {
		p.constructor(&bo)
	}
	return &bo
}

// Put hands an object back. It reports whether the object was kept.
func (p *Poolobj[t]) Put(bo *t) bool {
	if bo == nil {
		return false
	}
	if p.destructor != nil && p.destructor(bo) {
		return false
	}
	select {
	case p.objs <- bo:
		return true
	default:
		return false
	}
}
