package sampler

// AcceptStats counts accepted Metropolis-Hastings proposals per update
type AcceptStats struct {
	SigmasqDist int `json:"sigmasq_dist"`
	TausqDist   int `json:"tausq_dist"`
	NStatesDist int `json:"n_states_dist"`
	Eta         int `json:"eta"`
}

// Draws is the full history of a chain: one row per iteration, row 0 being
// the initial state. Supervised fields are nil for unsupervised chains and
// the concentration distribution fields are nil without one.
type Draws struct {
	Mu      [][]float64
	Gamma   [][]float64
	Sigmasq [][]float64
	Tausq   [][]float64
	Eta     [][]float64
	NCen    [][]int

	PRndCen      []float64
	Lambda       []float64
	R            []float64
	ShapeSigmasq []float64
	RateSigmasq  []float64
	ShapeTausq   []float64
	RateTausq    []float64

	Beta              [][]float64
	Concentration     [][]float64
	MeanConcentration []float64
	PrecConcentration []float64
}

// newMatrix allocates rows x cols in a single backing array
func newMatrix(rows, cols int) [][]float64 {
	data := make([]float64, rows*cols)
	m := make([][]float64, rows)
	for i := range m {
		m[i] = data[i*cols : (i+1)*cols : (i+1)*cols]
	}
	return m
}

func newIntMatrix(rows, cols int) [][]int {
	data := make([]int, rows*cols)
	m := make([][]int, rows)
	for i := range m {
		m[i] = data[i*cols : (i+1)*cols : (i+1)*cols]
	}
	return m
}

func newDraws(n, nPeptides, nProteins, nEta int, supervised, concDist bool) *Draws {
	d := &Draws{
		Mu:      newMatrix(n, nProteins),
		Gamma:   newMatrix(n, nPeptides),
		Sigmasq: newMatrix(n, nProteins),
		Tausq:   newMatrix(n, nProteins),
		Eta:     newMatrix(n, nEta),
		NCen:    newIntMatrix(n, nPeptides),

		PRndCen:      make([]float64, n),
		Lambda:       make([]float64, n),
		R:            make([]float64, n),
		ShapeSigmasq: make([]float64, n),
		RateSigmasq:  make([]float64, n),
		ShapeTausq:   make([]float64, n),
		RateTausq:    make([]float64, n),
	}

	if supervised {
		d.Beta = newMatrix(n, 2)
		d.Concentration = newMatrix(n, nProteins)
		if concDist {
			d.MeanConcentration = make([]float64, n)
			d.PrecConcentration = make([]float64, n)
		}
	}
	return d
}

// record copies state s into row t
func (d *Draws) record(t int, s *State) {
	copy(d.Mu[t], s.Mu)
	copy(d.Gamma[t], s.Gamma)
	copy(d.Sigmasq[t], s.Sigmasq)
	copy(d.Tausq[t], s.Tausq)
	copy(d.Eta[t], s.Eta)
	copy(d.NCen[t], s.NCen)

	d.PRndCen[t] = s.PRndCen
	d.Lambda[t] = s.Lambda
	d.R[t] = s.R
	d.ShapeSigmasq[t] = s.ShapeSigmasq
	d.RateSigmasq[t] = s.RateSigmasq
	d.ShapeTausq[t] = s.ShapeTausq
	d.RateTausq[t] = s.RateTausq

	if d.Beta != nil {
		copy(d.Beta[t], s.Beta[:])
		copy(d.Concentration[t], s.Concentration)
	}
	if d.MeanConcentration != nil {
		d.MeanConcentration[t] = s.MeanConcentration
		d.PrecConcentration[t] = s.PrecConcentration
	}
}

func column(v []float64) [][]float64 {
	m := newMatrix(len(v), 1)
	for i, x := range v {
		m[i][0] = x
	}
	return m
}

// Map returns every draw array keyed by parameter name. Scalar parameters
// become n_iterations x 1 and the concentration precision is reported as a
// variance (var_concentration).
func (d *Draws) Map() map[string][][]float64 {
	nCen := make([][]float64, len(d.NCen))
	for t, row := range d.NCen {
		nCen[t] = make([]float64, len(row))
		for i, v := range row {
			nCen[t][i] = float64(v)
		}
	}

	m := map[string][][]float64{
		"mu":                       d.Mu,
		"gamma":                    d.Gamma,
		"eta":                      d.Eta,
		"p_rnd_cen":                column(d.PRndCen),
		"lmbda":                    column(d.Lambda),
		"r":                        column(d.R),
		"sigmasq":                  d.Sigmasq,
		"tausq":                    d.Tausq,
		"n_cen_states_per_peptide": nCen,
		"shape_tausq":              column(d.ShapeTausq),
		"rate_tausq":               column(d.RateTausq),
		"shape_sigmasq":            column(d.ShapeSigmasq),
		"rate_sigmasq":             column(d.RateSigmasq),
	}

	if d.Beta != nil {
		m["beta"] = d.Beta
		m["concentration"] = d.Concentration
	}
	if d.MeanConcentration != nil {
		m["mean_concentration"] = column(d.MeanConcentration)
		vc := make([]float64, len(d.PrecConcentration))
		for i, p := range d.PrecConcentration {
			vc[i] = 1 / p
		}
		m["var_concentration"] = column(vc)
	}
	return m
}
