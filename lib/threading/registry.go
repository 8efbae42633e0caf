package threading

// registry owns every node, keyed by message-id. Iteration follows
// insertion order so that results do not depend on map ordering.
type registry struct {
	nodes map[string]*Node
	order []string
	stale int
}

func newRegistry() *registry {
	return &registry{nodes: make(map[string]*Node)}
}

func (r *registry) get(id string) *Node {
	return r.nodes[id]
}

func (r *registry) add(n *Node) {
	if _, ok := r.nodes[n.id]; !ok {
		// a removed id may still be in order
		r.compact()
		r.order = append(r.order, n.id)
	}
	r.nodes[n.id] = n
}

func (r *registry) remove(id string) {
	if _, ok := r.nodes[id]; !ok {
		return
	}
	delete(r.nodes, id)
	r.stale++
}

func (r *registry) len() int {
	return len(r.nodes)
}

func (r *registry) compact() {
	if r.stale == 0 {
		return
	}
	order := make([]string, 0, len(r.nodes))
	for _, id := range r.order {
		if _, ok := r.nodes[id]; ok {
			order = append(order, id)
		}
	}
	r.order = order
	r.stale = 0
}

// each calls fn for every node in insertion order.
func (r *registry) each(fn func(*Node)) {
	r.compact()
	for _, id := range r.order {
		fn(r.nodes[id])
	}
}
