package regressor

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// treeLambda is the L2 penalty on leaf weights
const treeLambda = 1.0

func init() {
	Register(treeFactory{})
}

type treeFactory struct{}

func (treeFactory) Name() string { return BoosterTree }

func (treeFactory) New(cfg Config) (Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCapabilityUnavailable, err)
	}
	return &GBTree{cfg: cfg}, nil
}

// treeNode is either a leaf carrying a weight or a split on one feature.
// Missing values (NaN) follow the direction learned at training time.
type treeNode struct {
	leaf        bool
	weight      float64
	feature     int
	threshold   float64
	missingLeft bool
	left, right *treeNode
}

func (n *treeNode) eval(x []float64) float64 {
	for !n.leaf {
		v := x[n.feature]
		switch {
		case math.IsNaN(v):
			if n.missingLeft {
				n = n.left
			} else {
				n = n.right
			}
		case v < n.threshold:
			n = n.left
		default:
			n = n.right
		}
	}
	return n.weight
}

// GBTree is a gradient-boosted ensemble of regression trees fitted to squared
// error. Each round fits a depth-limited tree to the current residuals on a row
// subsample and a column subsample, then adds it scaled by eta.
type GBTree struct {
	cfg   Config
	width int
	base  float64
	trees []*treeNode
}

// Fit trains the ensemble. Rows whose target is not finite are skipped.
func (m *GBTree) Fit(ctx context.Context, X [][]float64, y []float64) error {
	width, err := checkShape(X, y)
	if err != nil {
		return err
	}

	rows := make([]int, 0, len(y))
	sum := 0.0
	for i, v := range y {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		rows = append(rows, i)
		sum += v
	}
	if len(rows) == 0 {
		return fmt.Errorf("%w: no finite targets", ErrInvalidShape)
	}

	// Inf features are treated as missing.
	clean := make([][]float64, len(X))
	for _, i := range rows {
		r := make([]float64, width)
		for j, v := range X[i] {
			if math.IsInf(v, 0) {
				v = math.NaN()
			}
			r[j] = v
		}
		clean[i] = r
	}

	rnd := rand.New(rand.NewSource(m.cfg.Seed))
	base := sum / float64(len(rows))
	pred := make([]float64, len(y))
	for _, i := range rows {
		pred[i] = base
	}
	residual := make([]float64, len(y))
	trees := make([]*treeNode, 0, m.cfg.Iterations)

	for it := 0; it < m.cfg.Iterations; it++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		for _, i := range rows {
			residual[i] = y[i] - pred[i]
		}

		b := &treeBuilder{
			X:        clean,
			grad:     residual,
			features: m.sampleColumns(rnd, width),
			maxDepth: m.cfg.MaxDepth,
			minChild: float64(m.cfg.MinChildWeight),
		}
		tree := b.build(m.sampleRows(rnd, rows), 0)
		trees = append(trees, tree)

		for _, i := range rows {
			pred[i] += m.cfg.Eta * tree.eval(clean[i])
		}
	}

	m.width = width
	m.base = base
	m.trees = trees
	return nil
}

// Predict evaluates the ensemble on each row.
func (m *GBTree) Predict(ctx context.Context, X [][]float64) ([]float64, error) {
	if m.trees == nil {
		return nil, ErrNotFitted
	}
	if err := checkRows(X, m.width); err != nil {
		return nil, err
	}

	out := make([]float64, len(X))
	x := make([]float64, m.width)
	for i, row := range X {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for j, v := range row {
			if math.IsInf(v, 0) {
				v = math.NaN()
			}
			x[j] = v
		}
		p := m.base
		for _, t := range m.trees {
			p += m.cfg.Eta * t.eval(x)
		}
		out[i] = p
	}
	return out, nil
}

// Trees returns the number of fitted boosting rounds.
func (m *GBTree) Trees() int {
	return len(m.trees)
}

func (m *GBTree) sampleRows(rnd *rand.Rand, rows []int) []int {
	if m.cfg.Subsample >= 1 {
		return append([]int(nil), rows...)
	}
	out := make([]int, 0, int(float64(len(rows))*m.cfg.Subsample)+1)
	for _, i := range rows {
		if rnd.Float64() < m.cfg.Subsample {
			out = append(out, i)
		}
	}
	if len(out) == 0 {
		out = append(out, rows[rnd.Intn(len(rows))])
	}
	return out
}

func (m *GBTree) sampleColumns(rnd *rand.Rand, width int) []int {
	k := int(math.Round(m.cfg.ColsampleByTree * float64(width)))
	if k < 1 {
		k = 1
	}
	if k >= width {
		cols := make([]int, width)
		for j := range cols {
			cols[j] = j
		}
		return cols
	}
	cols := rnd.Perm(width)[:k]
	sort.Ints(cols)
	return cols
}

type treeBuilder struct {
	X        [][]float64
	grad     []float64
	features []int
	maxDepth int
	minChild float64
}

type split struct {
	gain        float64
	feature     int
	threshold   float64
	missingLeft bool
}

func (b *treeBuilder) leaf(idx []int) *treeNode {
	g := 0.0
	for _, i := range idx {
		g += b.grad[i]
	}
	return &treeNode{leaf: true, weight: g / (float64(len(idx)) + treeLambda)}
}

func (b *treeBuilder) build(idx []int, depth int) *treeNode {
	if depth >= b.maxDepth || len(idx) < 2 {
		return b.leaf(idx)
	}

	best, ok := b.bestSplit(idx)
	if !ok {
		return b.leaf(idx)
	}

	left := make([]int, 0, len(idx))
	right := make([]int, 0, len(idx))
	for _, i := range idx {
		v := b.X[i][best.feature]
		goLeft := v < best.threshold
		if math.IsNaN(v) {
			goLeft = best.missingLeft
		}
		if goLeft {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	return &treeNode{
		feature:     best.feature,
		threshold:   best.threshold,
		missingLeft: best.missingLeft,
		left:        b.build(left, depth+1),
		right:       b.build(right, depth+1),
	}
}

func score(g, h float64) float64 {
	return g * g / (h + treeLambda)
}

// bestSplit scans every sampled feature for the threshold with the highest
// gain. Each candidate is tried with missing values sent left and right.
func (b *treeBuilder) bestSplit(idx []int) (split, bool) {
	totalG := 0.0
	for _, i := range idx {
		totalG += b.grad[i]
	}
	totalH := float64(len(idx))
	parent := score(totalG, totalH)

	best := split{}
	found := false
	present := make([]int, 0, len(idx))

	for _, f := range b.features {
		present = present[:0]
		missG := 0.0
		for _, i := range idx {
			if math.IsNaN(b.X[i][f]) {
				missG += b.grad[i]
			} else {
				present = append(present, i)
			}
		}
		if len(present) < 2 {
			continue
		}
		missH := float64(len(idx) - len(present))

		sort.Slice(present, func(a, c int) bool {
			return b.X[present[a]][f] < b.X[present[c]][f]
		})

		leftG, leftH := 0.0, 0.0
		for k := 0; k < len(present)-1; k++ {
			leftG += b.grad[present[k]]
			leftH++

			cur := b.X[present[k]][f]
			next := b.X[present[k+1]][f]
			if cur == next {
				continue
			}
			threshold := cur + (next-cur)/2
			if threshold <= cur {
				threshold = next
			}

			for _, missLeft := range []bool{false, true} {
				gl, hl := leftG, leftH
				if missLeft {
					gl += missG
					hl += missH
				}
				gr, hr := totalG-gl, totalH-hl
				if hl < b.minChild || hr < b.minChild || hl == 0 || hr == 0 {
					continue
				}
				gain := score(gl, hl) + score(gr, hr) - parent
				if gain > best.gain+1e-12 {
					best = split{gain: gain, feature: f, threshold: threshold, missingLeft: missLeft}
					found = true
				}
				if missH == 0 {
					break
				}
			}
		}
	}
	return best, found
}
