package internal

// Context is a provide/read slot threaded through the owner tree: Set
// binds a value on the current owner, Value reads by walking from the
// current owner up through parents, falling back to the default supplied
// at creation. Spec's owner/context lifecycle supplement, matching the
// teacher's Context[T] surface (sig.go), which exposes exactly Value()/Set
// with no explicit owner argument — both read the ambient current owner.
type Context struct {
	def any
}

func NewContext(initial any) *Context {
	return &Context{def: initial}
}

func (c *Context) Value() any {
	for o := GetRuntime().CurrentOwner(); o != nil; o = o.parent {
		if v, ok := o.context[c]; ok {
			return v
		}
	}
	return c.def
}

func (c *Context) Set(value any) {
	o := GetRuntime().CurrentOwner()
	if o == nil {
		warnf("reactor: Context.Set called with no current owner")
		return
	}
	o.context[c] = value
}
