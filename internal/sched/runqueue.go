package sched

import "fmt"

// nilIdx marks an absent arena link.
const nilIdx = int32(-1)

// rqnode is one arena slot of the timeline tree. Children are arena indices,
// never pointers; a freed slot threads its left link into the free list.
type rqnode struct {
	task        *Task
	left, right int32
	height      int32
	// minDeadline is the smallest deadline in this node's subtree, itself
	// included. It is recomputed bottom-up on every structural change along
	// the touched path and drives the eligible-earliest-deadline search.
	minDeadline int64
}

// Runqueue is the timeline of runnable tasks for one logical CPU: an
// AVL tree over arena slots, keyed by (vruntime, id) and augmented with the
// per-subtree minimum deadline. The running task is kept off the tree and
// folded into the eligibility aggregates on demand, so tick accounting never
// has to reposition it.
//
// The aggregates follow the weighted-average scheme: avgSum carries
// sum(weight*(vruntime-minVruntime)) over queued tasks and avgLoad their
// total weight, with minVruntime as a monotonic baseline that keeps the
// products small.
type Runqueue struct {
	nodes []rqnode
	free  int32
	root  int32
	size  int

	leftmost *Task // cached minimum-key task
	curr     *Task // running task, not on the tree

	minVruntime int64
	avgSum      int64
	avgLoad     int64
}

// NewRunqueue returns an empty runqueue.
func NewRunqueue() *Runqueue {
	return &Runqueue{free: nilIdx, root: nilIdx}
}

// keyLess orders tasks by (vruntime, id). The id tiebreak totally orders
// tasks that share a vruntime, which makes "leftmost" exact.
func keyLess(a, b *Task) bool {
	if a.Vruntime != b.Vruntime {
		return a.Vruntime < b.Vruntime
	}
	return a.ID < b.ID
}

// deadlineBefore orders pick candidates by (deadline, vruntime, id): equal
// deadlines go to the smaller vruntime.
func deadlineBefore(a, b *Task) bool {
	if a.Deadline != b.Deadline {
		return a.Deadline < b.Deadline
	}
	return keyLess(a, b)
}

// Enqueue inserts a runnable task into the timeline and adds its weight to
// the eligibility aggregates. The task's vruntime must stay frozen while it
// is queued.
func (rq *Runqueue) Enqueue(t *Task) {
	rq.avgSum += t.Weight * (t.Vruntime - rq.minVruntime)
	rq.avgLoad += t.Weight
	rq.root = rq.insert(rq.root, t)
	rq.size++
	if rq.leftmost == nil || keyLess(t, rq.leftmost) {
		rq.leftmost = t
	}
}

// Dequeue removes a queued task and subtracts its aggregate contribution.
// A task that bookkeeping says is queued but the tree cannot find means the
// structure is corrupt; that is an implementation bug, not an operating
// condition, so it panics.
func (rq *Runqueue) Dequeue(t *Task) {
	root, ok := rq.remove(rq.root, t)
	if !ok {
		panic(fmt.Sprintf("sched: task %d missing from runqueue on dequeue", t.ID))
	}
	rq.root = root
	rq.size--
	rq.avgSum -= t.Weight * (t.Vruntime - rq.minVruntime)
	rq.avgLoad -= t.Weight
	if rq.leftmost == t {
		if rq.root == nilIdx {
			rq.leftmost = nil
		} else {
			rq.leftmost = rq.nodes[rq.minNode(rq.root)].task
		}
	}
}

// First returns the queued task with the smallest vruntime, or nil.
func (rq *Runqueue) First() *Task {
	return rq.leftmost
}

// Len counts queued tasks. The running task is not on the timeline.
func (rq *Runqueue) Len() int {
	return rq.size
}

// MinVruntime returns the monotonic vruntime baseline.
func (rq *Runqueue) MinVruntime() int64 {
	return rq.minVruntime
}

// TotalWeight returns the combined weight of the competition: every queued
// task plus the running one.
func (rq *Runqueue) TotalWeight() int64 {
	w := rq.avgLoad
	if rq.curr != nil && rq.curr.OnRq {
		w += rq.curr.Weight
	}
	return w
}

// AvgVruntime returns the weighted-average vruntime of the competition, the
// zero-lag point. The running task is folded in since it is off the tree.
func (rq *Runqueue) AvgVruntime() int64 {
	avg := rq.avgSum
	load := rq.avgLoad
	if rq.curr != nil && rq.curr.OnRq {
		avg += rq.curr.Weight * (rq.curr.Vruntime - rq.minVruntime)
		load += rq.curr.Weight
	}
	if load > 0 {
		if avg < 0 {
			avg -= load - 1 // floor toward negative infinity, not zero
		}
		avg /= load
	}
	return rq.minVruntime + avg
}

// Eligible reports whether a task at the given vruntime may be picked: its
// lag against the weighted average is non-positive. Division-free form of
// vruntime <= AvgVruntime, exact where the quotient would round.
func (rq *Runqueue) Eligible(vruntime int64) bool {
	avg := rq.avgSum
	load := rq.avgLoad
	if rq.curr != nil && rq.curr.OnRq {
		avg += rq.curr.Weight * (rq.curr.Vruntime - rq.minVruntime)
		load += rq.curr.Weight
	}
	return avg >= (vruntime-rq.minVruntime)*load
}

// UpdateMinVruntime advances the baseline toward the smallest vruntime still
// in the competition and rebases the aggregate sum to match. It never moves
// backwards: a task placed behind the baseline must not mint time for
// everyone else.
func (rq *Runqueue) UpdateMinVruntime() {
	v := rq.minVruntime
	if rq.curr != nil && rq.curr.OnRq {
		v = rq.curr.Vruntime
		if rq.leftmost != nil && rq.leftmost.Vruntime < v {
			v = rq.leftmost.Vruntime
		}
	} else if rq.leftmost != nil {
		v = rq.leftmost.Vruntime
	}
	if delta := v - rq.minVruntime; delta > 0 {
		rq.avgSum -= rq.avgLoad * delta
		rq.minVruntime += delta
	}
}

// PickEEVDF returns the next task to run under earliest-eligible-deadline
// rules, or nil when the queue is idle. The running task competes unless it
// has gone ineligible. Run to parity: while its dispatch stamp is intact
// (Vlag still equal to Deadline, i.e. the granted slice has not been
// consumed or yielded away) the running task is returned outright.
func (rq *Runqueue) PickEEVDF() *Task {
	curr := rq.curr
	if curr != nil && (!curr.OnRq || !rq.Eligible(curr.Vruntime)) {
		curr = nil
	}
	if curr != nil && curr.Vlag == curr.Deadline {
		return curr
	}

	best := rq.searchEEVDF()
	if best == nil {
		// The boundary walk found nothing, so the running task defines the
		// average by itself; failing even that, the leftmost task is always
		// a fair choice.
		if curr != nil {
			return curr
		}
		return rq.leftmost
	}
	if curr != nil && deadlineBefore(curr, best) {
		return curr
	}
	return best
}

// searchEEVDF walks the eligibility boundary of the tree. Every eligible
// node it stands on is a candidate, and so is that node's entire left
// subtree: smaller vruntime, eligible by the same test, competing through
// the cached minDeadline without being entered. Candidates surface in key
// order and the champion only changes on a strictly smaller deadline, which
// realizes the smaller-vruntime tiebreak. A champion subtree is then dug out
// by minDeadline equality.
func (rq *Runqueue) searchEEVDF() *Task {
	var (
		bestDeadline int64
		bestNode     = nilIdx
		bestSubtree  = nilIdx
		found        bool
	)
	for idx := rq.root; idx != nilIdx; {
		n := &rq.nodes[idx]
		if !rq.Eligible(n.task.Vruntime) {
			// Everything right of an ineligible node is at least as far
			// ahead of the average; only the left subtree can qualify.
			idx = n.left
			continue
		}
		if l := n.left; l != nilIdx {
			if md := rq.nodes[l].minDeadline; !found || md < bestDeadline {
				bestDeadline, bestSubtree, bestNode = md, l, nilIdx
				found = true
			}
		}
		if d := n.task.Deadline; !found || d < bestDeadline {
			bestDeadline, bestNode, bestSubtree = d, idx, nilIdx
			found = true
		}
		idx = n.right
	}
	switch {
	case bestSubtree != nilIdx:
		return rq.digMinDeadline(bestSubtree)
	case bestNode != nilIdx:
		return rq.nodes[bestNode].task
	}
	return nil
}

// digMinDeadline descends to the leftmost node whose deadline equals the
// subtree minimum.
func (rq *Runqueue) digMinDeadline(idx int32) *Task {
	for {
		n := &rq.nodes[idx]
		if l := n.left; l != nilIdx && rq.nodes[l].minDeadline == n.minDeadline {
			idx = l
			continue
		}
		if n.task.Deadline == n.minDeadline {
			return n.task
		}
		idx = n.right
	}
}

// alloc takes a slot from the free list, or grows the arena.
func (rq *Runqueue) alloc(t *Task) int32 {
	if rq.free != nilIdx {
		idx := rq.free
		rq.free = rq.nodes[idx].left
		rq.nodes[idx] = rqnode{task: t, left: nilIdx, right: nilIdx, height: 1, minDeadline: t.Deadline}
		return idx
	}
	rq.nodes = append(rq.nodes, rqnode{task: t, left: nilIdx, right: nilIdx, height: 1, minDeadline: t.Deadline})
	return int32(len(rq.nodes) - 1)
}

// freeNode returns a slot to the free list.
func (rq *Runqueue) freeNode(idx int32) {
	rq.nodes[idx] = rqnode{left: rq.free, right: nilIdx}
	rq.free = idx
}

func (rq *Runqueue) height(idx int32) int32 {
	if idx == nilIdx {
		return 0
	}
	return rq.nodes[idx].height
}

// update recomputes a node's height and minDeadline from its children.
func (rq *Runqueue) update(idx int32) {
	n := &rq.nodes[idx]
	hl, hr := rq.height(n.left), rq.height(n.right)
	if hl > hr {
		n.height = hl + 1
	} else {
		n.height = hr + 1
	}
	md := n.task.Deadline
	if n.left != nilIdx && rq.nodes[n.left].minDeadline < md {
		md = rq.nodes[n.left].minDeadline
	}
	if n.right != nilIdx && rq.nodes[n.right].minDeadline < md {
		md = rq.nodes[n.right].minDeadline
	}
	n.minDeadline = md
}

func (rq *Runqueue) rotateRight(y int32) int32 {
	x := rq.nodes[y].left
	rq.nodes[y].left = rq.nodes[x].right
	rq.nodes[x].right = y
	rq.update(y)
	rq.update(x)
	return x
}

func (rq *Runqueue) rotateLeft(x int32) int32 {
	y := rq.nodes[x].right
	rq.nodes[x].right = rq.nodes[y].left
	rq.nodes[y].left = x
	rq.update(x)
	rq.update(y)
	return y
}

// rebalance restores the AVL bound at idx and refreshes its aggregate.
// Returns the subtree's new root.
func (rq *Runqueue) rebalance(idx int32) int32 {
	rq.update(idx)
	bf := rq.height(rq.nodes[idx].left) - rq.height(rq.nodes[idx].right)
	switch {
	case bf > 1:
		l := rq.nodes[idx].left
		if rq.height(rq.nodes[l].left) < rq.height(rq.nodes[l].right) {
			rq.nodes[idx].left = rq.rotateLeft(l)
		}
		return rq.rotateRight(idx)
	case bf < -1:
		r := rq.nodes[idx].right
		if rq.height(rq.nodes[r].right) < rq.height(rq.nodes[r].left) {
			rq.nodes[idx].right = rq.rotateRight(r)
		}
		return rq.rotateLeft(idx)
	}
	return idx
}

// insert adds t below idx and returns the rebalanced subtree root. Child
// links are written only after the recursive call: alloc may grow the arena
// and stale slot addresses must never be written through.
func (rq *Runqueue) insert(idx int32, t *Task) int32 {
	if idx == nilIdx {
		return rq.alloc(t)
	}
	if keyLess(t, rq.nodes[idx].task) {
		child := rq.insert(rq.nodes[idx].left, t)
		rq.nodes[idx].left = child
	} else {
		child := rq.insert(rq.nodes[idx].right, t)
		rq.nodes[idx].right = child
	}
	return rq.rebalance(idx)
}

// remove deletes the node holding t from the subtree at idx. Returns the
// rebalanced subtree root and whether t was found.
func (rq *Runqueue) remove(idx int32, t *Task) (int32, bool) {
	if idx == nilIdx {
		return nilIdx, false
	}
	var ok bool
	switch {
	case rq.nodes[idx].task == t:
		left, right := rq.nodes[idx].left, rq.nodes[idx].right
		if left == nilIdx || right == nilIdx {
			child := left
			if child == nilIdx {
				child = right
			}
			rq.freeNode(idx)
			return child, true
		}
		// Two children: adopt the in-order successor's task, then delete
		// that task from the right subtree.
		succ := rq.nodes[rq.minNode(right)].task
		child, _ := rq.remove(right, succ)
		rq.nodes[idx].right = child
		rq.nodes[idx].task = succ
		ok = true
	case keyLess(t, rq.nodes[idx].task):
		child, found := rq.remove(rq.nodes[idx].left, t)
		rq.nodes[idx].left = child
		ok = found
	default:
		child, found := rq.remove(rq.nodes[idx].right, t)
		rq.nodes[idx].right = child
		ok = found
	}
	return rq.rebalance(idx), ok
}

func (rq *Runqueue) minNode(idx int32) int32 {
	for rq.nodes[idx].left != nilIdx {
		idx = rq.nodes[idx].left
	}
	return idx
}
