package layout

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/nonergodic/layout/errors"
	"github.com/nonergodic/layout/internal/numeric"
)

// unbounded marks a size bound with no upper limit.
const unbounded = -1

// maxOraclePrefix caps how many byte positions a candidate summary
// tracks. Positions beyond it report "any", which is always sound.
const maxOraclePrefix = 128

// byteSet is the set of wire values a candidate accepts at one byte
// position. The zero value is the empty set ("impossible").
type byteSet struct {
	bits [4]uint64
	any  bool
}

func anySet() byteSet {
	return byteSet{any: true}
}

func (s *byteSet) add(b byte) {
	s.bits[b>>6] |= 1 << (b & 63)
}

func (s byteSet) has(b byte) bool {
	if s.any {
		return true
	}
	return s.bits[b>>6]&(1<<(b&63)) != 0
}

func (s byteSet) union(o byteSet) byteSet {
	if s.any || o.any {
		return anySet()
	}
	var u byteSet
	for i := range u.bits {
		u.bits[i] = s.bits[i] | o.bits[i]
	}
	return u
}

// span is a candidate's structural summary: accepted size bounds and
// the byte oracle over positions with a fixed offset.
type span struct {
	min    int
	max    int // unbounded when -1
	prefix []byteSet
}

// then concatenates two spans: s followed by t. Oracle positions after
// a variable-size region are dropped (their offset is ambiguous).
func (s span) then(t span) span {
	out := span{min: s.min + t.min}
	if s.max == unbounded || t.max == unbounded {
		out.max = unbounded
	} else {
		out.max = s.max + t.max
	}

	if s.min != s.max {
		out.prefix = s.prefix
		return out
	}
	if s.min >= maxOraclePrefix {
		// t's positions fall beyond the tracked window; appending them
		// here would misplace them.
		out.prefix = padSets(s.prefix, maxOraclePrefix)
		return out
	}
	prefix := padSets(s.prefix, s.min)
	prefix = append(prefix, t.prefix...)
	if len(prefix) > maxOraclePrefix {
		prefix = prefix[:maxOraclePrefix]
	}
	out.prefix = prefix
	return out
}

// padSets extends (or trims) a position list to exactly n entries,
// filling unknown positions with "any".
func padSets(sets []byteSet, n int) []byteSet {
	if n > maxOraclePrefix {
		n = maxOraclePrefix
	}
	out := make([]byteSet, 0, n)
	for i := 0; i < n; i++ {
		if i < len(sets) {
			out = append(out, sets[i])
		} else {
			out = append(out, anySet())
		}
	}
	return out
}

func literalSets(wire []byte) []byteSet {
	n := len(wire)
	if n > maxOraclePrefix {
		n = maxOraclePrefix
	}
	out := make([]byteSet, n)
	for i := 0; i < n; i++ {
		out[i].add(wire[i])
	}
	return out
}

func anySets(n int) []byteSet {
	if n > maxOraclePrefix {
		n = maxOraclePrefix
	}
	out := make([]byteSet, n)
	for i := range out {
		out[i] = anySet()
	}
	return out
}

// setAt reads the oracle at position p: impossible beyond a bounded
// max, the tracked set within the prefix, "any" in between.
func (s span) setAt(p int) byteSet {
	if s.max != unbounded && p >= s.max {
		return byteSet{}
	}
	if p < len(s.prefix) {
		return s.prefix[p]
	}
	return anySet()
}

// Candidate summarization.

func layoutSpan(l Layout) (span, *errors.Error) {
	if l.IsSingle() {
		return itemSpan(l.single)
	}
	if err := checkBoundless(errors.PhaseDiscriminate, l.items); err != nil {
		return span{}, err
	}
	out := span{}
	for i := range l.items {
		it := &l.items[i]
		s, err := itemSpan(it)
		if err != nil {
			return span{}, err.WithName(it.Name)
		}
		out = out.then(s)
	}
	return out, nil
}

func itemSpan(it *Item) (span, *errors.Error) {
	if err := validateItem(errors.PhaseDiscriminate, it); err != nil {
		return span{}, err
	}

	switch it.Kind {
	case KindUint, KindInt:
		if c := it.Custom; c != nil && c.Kind != ConvCustom {
			wire, err := numericConstWire(it, c)
			if err != nil {
				return span{}, err
			}
			return span{min: it.Size, max: it.Size, prefix: literalSets(wire)}, nil
		}
		return span{min: it.Size, max: it.Size, prefix: anySets(it.Size)}, nil

	case KindBytes:
		return bytesSpan(it)

	case KindArray:
		return arraySpan(it)

	case KindSwitch:
		return switchSpan(it)
	}
	return span{}, errors.MalformedLayout(errors.PhaseDiscriminate, "unknown item kind %d", it.Kind)
}

func numericConstWire(it *Item, c *Conversion) ([]byte, *errors.Error) {
	v, ok := numeric.Coerce(c.fixedValue())
	if !ok {
		return nil, errors.MalformedLayout(errors.PhaseDiscriminate,
			"numeric constant %v is not an integer", c.fixedValue())
	}
	inRange := numeric.InUintRange(v, it.Size)
	if it.Kind == KindInt {
		inRange = numeric.InIntRange(v, it.Size)
	}
	if !inRange {
		return nil, errors.MalformedLayout(errors.PhaseDiscriminate,
			"numeric constant %v does not fit %s", v, itoaBytes(it.Size))
	}
	wire := make([]byte, it.Size)
	numeric.Put(wire, v, it.Endianness == Little)
	return wire, nil
}

func bytesSpan(it *Item) (span, *errors.Error) {
	if c := it.Custom; c != nil && c.Kind != ConvCustom {
		var wire []byte
		if it.Layout != nil {
			w, err := c.fixedObjectWire(*it.Layout)
			if err != nil {
				return span{}, errors.New(errors.PhaseDiscriminate, errors.KindMalformedLayout).
					Cause(err).
					Detail("fixed object does not serialize").
					Build()
			}
			wire = w
		} else {
			b, ok := c.fixedValue().([]byte)
			if !ok {
				return span{}, errors.MalformedLayout(errors.PhaseDiscriminate,
					"bytes constant must be []byte, got %T", c.fixedValue())
			}
			wire = b
		}
		if it.Size > 0 && it.Size != len(wire) {
			return span{}, errors.MalformedLayout(errors.PhaseDiscriminate,
				"constant of %d bytes under declared size %d", len(wire), it.Size)
		}
		body := span{min: len(wire), max: len(wire), prefix: literalSets(wire)}
		return prefixSpan(it, len(wire), true).then(body), nil
	}

	// Content is data-driven (raw or through a custom conversion); a
	// nested layout still fixes the region's structure.
	var body span
	switch {
	case it.Layout != nil:
		ns, err := layoutSpan(*it.Layout)
		if err != nil {
			return span{}, err
		}
		body = ns
	default:
		body = span{min: 0, max: unbounded}
	}

	if it.Size > 0 {
		return span{min: it.Size, max: it.Size, prefix: padSets(body.prefix, it.Size)}, nil
	}
	if it.LengthSize > 0 {
		known := body.min == body.max && it.Layout != nil
		pfx := prefixSpan(it, body.min, known)
		return pfx.then(body), nil
	}
	return body, nil
}

// prefixSpan summarizes a length prefix. When the payload length is
// known the prefix bytes are literal; otherwise they are data.
func prefixSpan(it *Item, payloadLen int, known bool) span {
	if it.LengthSize == 0 {
		return span{}
	}
	if known && numeric.InUintRange(bigFromInt(payloadLen), it.LengthSize) {
		wire := make([]byte, it.LengthSize)
		numeric.Put(wire, bigFromInt(payloadLen), it.LengthEndianness == Little)
		return span{min: it.LengthSize, max: it.LengthSize, prefix: literalSets(wire)}
	}
	return span{min: it.LengthSize, max: it.LengthSize, prefix: anySets(it.LengthSize)}
}

func arraySpan(it *Item) (span, *errors.Error) {
	es, err := layoutSpan(*it.Layout)
	if err != nil {
		return span{}, err
	}

	switch {
	case it.HasLength:
		out := span{min: it.Length * es.min}
		if es.max == unbounded && it.Length > 0 {
			out.max = unbounded
		} else {
			out.max = it.Length * es.max
		}
		if es.min == es.max && es.min > 0 {
			// Fixed-size elements keep every repetition at a fixed
			// offset, so the element oracle tiles.
			var prefix []byteSet
			for i := 0; i < it.Length && len(prefix) < maxOraclePrefix; i++ {
				prefix = append(prefix, padSets(es.prefix, es.min)...)
			}
			if len(prefix) > maxOraclePrefix {
				prefix = prefix[:maxOraclePrefix]
			}
			out.prefix = prefix
		} else if it.Length > 0 {
			out.prefix = es.prefix
		}
		return out, nil

	case it.LengthSize > 0:
		out := span{min: it.LengthSize, max: unbounded, prefix: anySets(it.LengthSize)}
		if es.max == 0 {
			out.max = it.LengthSize
		}
		// The first element, when present, sits right after the prefix.
		out.prefix = append(out.prefix, es.prefix...)
		if len(out.prefix) > maxOraclePrefix {
			out.prefix = out.prefix[:maxOraclePrefix]
		}
		return out, nil

	default:
		out := span{min: 0, max: unbounded, prefix: es.prefix}
		if es.max == 0 {
			out.max = 0
		}
		return out, nil
	}
}

func switchSpan(it *Item) (span, *errors.Error) {
	branches := make([]span, len(it.Cases))
	idSets := make([]byteSet, it.IDSize)

	minBody, maxBody := -1, 0
	for i := range it.Cases {
		cs := &it.Cases[i]
		bs, err := layoutSpan(cs.Layout)
		if err != nil {
			return span{}, err
		}
		branches[i] = bs

		wire := make([]byte, it.IDSize)
		numeric.Put(wire, bigFromUint(cs.ID), it.IDEndianness == Little)
		for j := range wire {
			idSets[j].add(wire[j])
		}

		if minBody == -1 || bs.min < minBody {
			minBody = bs.min
		}
		if maxBody != unbounded {
			if bs.max == unbounded {
				maxBody = unbounded
			} else if bs.max > maxBody {
				maxBody = bs.max
			}
		}
	}

	// Positions after the id hold the per-position union over branches.
	tailLen := 0
	for i := range branches {
		if n := len(branches[i].prefix); n > tailLen {
			tailLen = n
		}
	}
	if tailLen > maxOraclePrefix-it.IDSize {
		tailLen = maxOraclePrefix - it.IDSize
	}
	tail := make([]byteSet, tailLen)
	for p := 0; p < tailLen; p++ {
		var u byteSet
		for i := range branches {
			u = u.union(branches[i].setAt(p))
		}
		tail[p] = u
	}

	out := span{
		min:    it.IDSize + minBody,
		prefix: append(idSets, tail...),
	}
	if maxBody == unbounded {
		out.max = unbounded
	} else {
		out.max = it.IDSize + maxBody
	}
	return out, nil
}

// Compiled classifier.

type nodeKind uint8

const (
	nodeNone nodeKind = iota
	nodeLeaf
	nodeSize
	nodeByte
)

type discNode struct {
	kind      nodeKind
	index     int
	pos       int
	byteEdges []byteEdge
	sizeEdges []sizeEdge
}

type byteEdge struct {
	set   byteSet
	child *discNode
}

type sizeEdge struct {
	lo    int
	hi    int // unbounded when -1
	child *discNode
}

// Discriminator classifies buffers against the layouts it was built
// from by structural inspection alone, without decoding.
type Discriminator struct {
	root *discNode
}

// BuildDiscriminator compiles the candidate layouts into a classifier.
// Candidates that violate layout invariants fail the build; the
// returned classifier itself never errors.
func BuildDiscriminator(layouts []Layout) (*Discriminator, error) {
	spans := make([]span, len(layouts))
	for i := range layouts {
		s, err := layoutSpan(layouts[i])
		if err != nil {
			return nil, err.WithName(indexName(i))
		}
		spans[i] = s
	}

	b := &discBuilder{spans: spans, log: Logger()}
	all := make([]int, len(spans))
	for i := range all {
		all[i] = i
	}
	d := &Discriminator{root: b.build(all, 0, false, nil)}
	b.log.Debug("discriminator built", zap.Int("candidates", len(layouts)))
	return d, nil
}

// Discriminate returns the index of the unique candidate compatible
// with the buffer, or ok=false when none or more than one remains.
func (d *Discriminator) Discriminate(data []byte) (int, bool) {
	n := d.root
	for {
		switch n.kind {
		case nodeLeaf:
			return n.index, true
		case nodeNone:
			return 0, false
		case nodeSize:
			l := len(data)
			next := (*discNode)(nil)
			for i := range n.sizeEdges {
				e := &n.sizeEdges[i]
				if l >= e.lo && (e.hi == unbounded || l <= e.hi) {
					next = e.child
					break
				}
			}
			if next == nil {
				return 0, false
			}
			n = next
		case nodeByte:
			if n.pos >= len(data) {
				return 0, false
			}
			b := data[n.pos]
			next := (*discNode)(nil)
			for i := range n.byteEdges {
				if n.byteEdges[i].set.has(b) {
					next = n.byteEdges[i].child
					break
				}
			}
			if next == nil {
				return 0, false
			}
			n = next
		}
	}
}

type discBuilder struct {
	spans []span
	log   *zap.Logger
}

// build compiles one node of the decision tree by greedy
// divide-and-conquer: whichever of size- or byte-discrimination gives
// the largest worst-case reduction of the candidate set wins; size
// wins ties. sizeDone marks that a size split already ran for this
// exact candidate set, and tested holds byte positions consumed on
// this path, so every recursion makes progress. A node with no usable
// split left over more than one candidate becomes a none leaf
// (ambiguous inputs classify as none, never an arbitrary winner).
func (b *discBuilder) build(cands []int, minLen int, sizeDone bool, tested map[int]bool) *discNode {
	if len(cands) == 0 {
		return &discNode{kind: nodeNone}
	}
	if len(cands) == 1 {
		return &discNode{kind: nodeLeaf, index: cands[0]}
	}

	sizeEdges, sizeWorst := b.planSize(cands)
	bytePos, byteGroups, byteWorst := b.planByte(cands, minLen, tested)

	sizeUsable := !sizeDone && len(sizeEdges) >= 2
	byteUsable := bytePos >= 0

	switch {
	case !sizeUsable && !byteUsable:
		b.log.Debug("discriminator: ambiguous candidate set",
			zap.Ints("candidates", cands))
		return &discNode{kind: nodeNone}

	case sizeUsable && (!byteUsable || sizeWorst <= byteWorst):
		b.log.Debug("discriminator: size split",
			zap.Ints("candidates", cands), zap.Int("ranges", len(sizeEdges)))
		node := &discNode{kind: nodeSize, sizeEdges: make([]sizeEdge, 0, len(sizeEdges))}
		for _, e := range sizeEdges {
			childMin := minLen
			if e.lo > childMin {
				childMin = e.lo
			}
			node.sizeEdges = append(node.sizeEdges, sizeEdge{
				lo:    e.lo,
				hi:    e.hi,
				child: b.build(e.subset, childMin, len(e.subset) == len(cands), tested),
			})
		}
		return node

	default:
		b.log.Debug("discriminator: byte split",
			zap.Ints("candidates", cands), zap.Int("pos", bytePos))
		node := &discNode{kind: nodeByte, pos: bytePos}
		childMin := minLen
		if bytePos+1 > childMin {
			childMin = bytePos + 1
		}
		childTested := make(map[int]bool, len(tested)+1)
		for p := range tested {
			childTested[p] = true
		}
		childTested[bytePos] = true
		for _, g := range byteGroups {
			childDone := sizeDone && len(g.subset) == len(cands)
			node.byteEdges = append(node.byteEdges, byteEdge{
				set:   g.set,
				child: b.build(g.subset, childMin, childDone, childTested),
			})
		}
		return node
	}
}

type sizePlanEdge struct {
	lo, hi int
	subset []int
}

// planSize partitions the length axis at candidate bounds and reports
// the worst-case surviving subset size.
func (b *discBuilder) planSize(cands []int) ([]sizePlanEdge, int) {
	points := map[int]bool{}
	hasUnbounded := false
	maxPoint := 0
	for _, c := range cands {
		s := b.spans[c]
		points[s.min] = true
		if s.max == unbounded {
			hasUnbounded = true
		} else {
			points[s.max+1] = true
			if s.max+1 > maxPoint {
				maxPoint = s.max + 1
			}
		}
	}
	sorted := make([]int, 0, len(points))
	for p := range points {
		sorted = append(sorted, p)
	}
	sort.Ints(sorted)

	var edges []sizePlanEdge
	worst := 0
	for i, lo := range sorted {
		hi := unbounded
		if i+1 < len(sorted) {
			hi = sorted[i+1] - 1
		}
		if hi != unbounded && hi < lo {
			continue
		}
		if !hasUnbounded && lo >= maxPoint {
			break
		}
		var subset []int
		for _, c := range cands {
			s := b.spans[c]
			if s.min <= lo && (s.max == unbounded || lo <= s.max) {
				subset = append(subset, c)
			}
		}
		if len(subset) == 0 {
			continue
		}
		if len(subset) > worst {
			worst = len(subset)
		}
		edges = append(edges, sizePlanEdge{lo: lo, hi: hi, subset: subset})
	}
	if len(edges) <= 1 && worst >= len(cands) {
		return nil, len(cands)
	}
	return edges, worst
}

type byteGroup struct {
	set    byteSet
	subset []int
}

// planByte scans byte positions every reaching buffer is guaranteed to
// contain and picks the one with the best worst-case partition,
// preferring smaller positions on ties. Positions already consumed on
// this path and positions yielding a single partition carry no
// information and are skipped.
func (b *discBuilder) planByte(cands []int, minLen int, tested map[int]bool) (int, []byteGroup, int) {
	limit := minLen
	minMin := -1
	for _, c := range cands {
		if minMin == -1 || b.spans[c].min < minMin {
			minMin = b.spans[c].min
		}
	}
	if minMin > limit {
		limit = minMin
	}
	if limit > maxOraclePrefix {
		limit = maxOraclePrefix
	}

	bestPos, bestWorst := -1, len(cands)+1
	var bestGroups []byteGroup

	for p := 0; p < limit; p++ {
		if tested[p] {
			continue
		}
		groups := map[string]*byteGroup{}
		worst := 0
		for v := 0; v < 256; v++ {
			var subset []int
			for _, c := range cands {
				if b.spans[c].setAt(p).has(byte(v)) {
					subset = append(subset, c)
				}
			}
			if len(subset) == 0 {
				continue
			}
			key := fmt.Sprint(subset)
			g, ok := groups[key]
			if !ok {
				g = &byteGroup{subset: subset}
				groups[key] = g
			}
			g.set.add(byte(v))
			if len(subset) > worst {
				worst = len(subset)
			}
		}
		// A position splits nothing when every value keeps the full
		// candidate set together.
		if len(groups) == 0 || (len(groups) == 1 && worst >= len(cands)) {
			continue
		}
		if worst < bestWorst {
			bestWorst = worst
			bestPos = p
			bestGroups = bestGroups[:0]
			for _, g := range groups {
				bestGroups = append(bestGroups, *g)
			}
			sort.Slice(bestGroups, func(i, j int) bool {
				return bestGroups[i].subset[0] < bestGroups[j].subset[0]
			})
		}
	}
	if bestPos == -1 {
		return -1, nil, len(cands) + 1
	}
	return bestPos, bestGroups, bestWorst
}
