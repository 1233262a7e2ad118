package sampler

import (
	"math"
	"sort"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"

	"github.com/CraigKelly/quantmc/model"
	"github.com/CraigKelly/quantmc/rand"
	"github.com/CraigKelly/quantmc/updates"
)

// toyData is nProteins x 2 peptides x 5 states, all observed, centered on
// 10 + 5k for protein k
func toyData(nProteins int) *model.Dataset {
	d := &model.Dataset{}
	offsets := []float64{-0.5, -0.25, 0, 0.25, 0.5}
	for k := 0; k < nProteins; k++ {
		for j, pep := range []float64{-0.3, 0.3} {
			p := 2*k + j
			d.PeptideProtein = append(d.PeptideProtein, k)
			for _, off := range offsets {
				d.Intensities = append(d.Intensities, 10+5*float64(k)+pep+off)
				d.StatePeptide = append(d.StatePeptide, p)
			}
		}
	}
	return d
}

func toyConfig(n int) *model.Config {
	hyper := updates.VarianceHyperPrior{ShapeMeanLog: 0, ShapePrecLog: 1, RateShape: 1, RateRate: 1}
	cfg := &model.Config{
		Priors: model.Priors{
			PRndCen:     updates.BetaPrior{A: 1, B: 1e6},
			Mu:          updates.NormalPrior{Mean: 0, Prec: 1e-6},
			SigmasqDist: hyper,
			TausqDist:   hyper,
			NStatesDist: updates.NBinomPrior{RShape: 1, RRate: 1, LambdaA: 1, LambdaB: 1},
			BetaConcentration: updates.RegressionPrior{
				Prec: [2]float64{1e-6, 1e-6},
			},
			PrecConcentration: updates.VariancePrior{Shape: 1, Rate: 1},
		},
		Settings: model.Settings{NIterations: n, VerboseInterval: 100},
		Init: model.Init{
			PRndCen:     0,
			Eta:         model.EtaInit{Mean: [2]float64{20, 0}},
			SigmasqDist: model.HyperStart{Shape: 2, Rate: 1},
			TausqDist:   model.HyperStart{Shape: 2, Rate: 1},
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

func runChain(t *testing.T, data *model.Dataset, cfg *model.Config, seed int64) (*Chain, *Draws, AcceptStats) {
	gen, err := rand.NewGenerator(seed)
	require.NoError(t, err)

	ch, err := NewChain(data, cfg, gen, nil)
	require.NoError(t, err)
	require.Equal(t, Initialized, ch.Status)
	require.NoError(t, ch.Run())
	require.Equal(t, Done, ch.Status)

	draws, accept, err := ch.Result()
	require.NoError(t, err)
	return ch, draws, accept
}

func columnOf(m [][]float64, j, burnIn int) []float64 {
	out := make([]float64, 0, len(m)-burnIn)
	for _, row := range m[burnIn:] {
		out = append(out, row[j])
	}
	return out
}

func TestChainRecoversProteinMeans(t *testing.T) {
	assert := assert.New(t)

	data := toyData(3)
	cfg := toyConfig(500)

	var progress []Progress
	gen, err := rand.NewGenerator(42)
	require.NoError(t, err)
	ch, err := NewChain(data, cfg, gen, nil)
	require.NoError(t, err)
	ch.Progress = func(p Progress) { progress = append(progress, p) }

	assert.Equal("unsupervised", ch.Update.Name())
	require.NoError(t, ch.Run())
	draws, accept, err := ch.Result()
	require.NoError(t, err)

	assert.Len(draws.Mu, 500)
	for k := 0; k < 3; k++ {
		mean, sd := stat.MeanStdDev(columnOf(draws.Mu, k, 100), nil)
		exp := 10 + 5*float64(k)
		assert.InDelta(exp, mean, 3*sd, "protein %d", k)
	}

	// Nothing is ever censored, so eta can not be fit and stays put
	for _, row := range draws.Eta {
		assert.Equal([]float64{20, 0}, row)
	}
	assert.Equal(0, accept.Eta)

	for _, n := range []int{accept.SigmasqDist, accept.TausqDist, accept.NStatesDist, accept.Eta} {
		assert.True(n >= 0 && n <= 499)
	}

	require.Len(t, progress, 4)
	for i, p := range progress {
		assert.Equal(100*(i+1), p.Iteration)
		assert.Equal(500, p.NIterations)
		if i > 0 {
			prev := progress[i-1].Accept
			assert.True(p.Accept.SigmasqDist >= prev.SigmasqDist)
			assert.True(p.Accept.TausqDist >= prev.TausqDist)
			assert.True(p.Accept.NStatesDist >= prev.NStatesDist)
			assert.True(p.Accept.Eta >= prev.Eta)
		}
		assert.True(p.Recent.SigmasqDist >= 0 && p.Recent.SigmasqDist <= 1)

		// The state count step runs every iteration, so its window is full
		// from iteration 100 on; eta never fits here and its window stays empty
		d := p.Drift.NStatesDist
		assert.True(d.Full)
		assert.InDelta(p.Recent.NStatesDist, (d.First+d.Second)/2, 1e-12)
		assert.False(p.Drift.Eta.Full)
	}
	assert.Equal(accept, ch.AcceptStats())
}

func TestChainReproducible(t *testing.T) {
	assert := assert.New(t)

	data := toyData(2)
	_, d1, a1 := runChain(t, data, toyConfig(60), 7)
	_, d2, a2 := runChain(t, data, toyConfig(60), 7)
	assert.Equal(d1, d2)
	assert.Equal(a1, a2)

	_, d3, _ := runChain(t, data, toyConfig(60), 8)
	assert.NotEqual(d1.Mu, d3.Mu)
}

func TestChainStatus(t *testing.T) {
	assert := assert.New(t)

	gen, err := rand.NewGenerator(1)
	require.NoError(t, err)
	ch, err := NewChain(toyData(1), toyConfig(3), gen, nil)
	require.NoError(t, err)

	_, _, err = ch.Result()
	assert.Error(err)

	assert.NoError(ch.Run())
	assert.Equal(2, ch.Iteration)
	assert.Error(ch.Run())
	assert.Equal("done", ch.Status.String())
}

func TestChainValidation(t *testing.T) {
	assert := assert.New(t)

	gen, err := rand.NewGenerator(1)
	require.NoError(t, err)

	data := toyData(2)
	data.StatePeptide[3] = 17
	_, err = NewChain(data, toyConfig(10), gen, nil)
	var ve *model.ValidationError
	assert.True(errors.As(err, &ve))

	cfg := toyConfig(10)
	cfg.Settings.NIterations = 0
	_, err = NewChain(toyData(2), cfg, gen, nil)
	assert.True(errors.As(err, &ve))

	cfg = toyConfig(10)
	cfg.Priors.Supervised = true
	_, err = NewChain(toyData(2), cfg, gen, nil)
	assert.True(errors.As(err, &ve))
	assert.Equal("known_concentrations", ve.Field)

	// A config built in code skips the defaults: zero proposal df is rejected
	cfg = toyConfig(10)
	cfg.Settings.PropDfYMis = 0
	cfg.Settings.PropDfEta = 0
	_, err = NewChain(toyData(2), cfg, gen, nil)
	assert.True(errors.As(err, &ve))
	assert.Equal("settings.prop_df_y_mis", ve.Field)

	cfg = toyConfig(10)
	cfg.Settings.PropDfEta = 0
	_, err = NewChain(toyData(2), cfg, gen, nil)
	assert.True(errors.As(err, &ve))
	assert.Equal("settings.prop_df_eta", ve.Field)

	_, err = NewChain(toyData(2), toyConfig(10), nil, nil)
	assert.Error(err)
}

func TestChainInitialState(t *testing.T) {
	assert := assert.New(t)

	data := toyData(2)
	// Peptide 3 loses all its states: its gamma starts at its protein mean
	data.Intensities = data.Intensities[:15]
	data.StatePeptide = data.StatePeptide[:15]

	gen, err := rand.NewGenerator(3)
	require.NoError(t, err)
	cfg := toyConfig(5)
	cfg.Init.Eta = model.EtaInit{Mean: [2]float64{1, 2}, SD: [2]float64{0.5, 0.5}, Cor: 0.9}
	ch, err := NewChain(data, cfg, gen, nil)
	require.NoError(t, err)

	s := ch.state
	assert.InDeltaSlice([]float64{10, 14.7}, s.Mu, 1e-9)
	assert.InDeltaSlice([]float64{9.7, 10.3, 14.7, 14.7}, s.Gamma, 1e-9)
	assert.Len(s.Eta, 2)
	assert.NotEqual(1.0, s.Eta[0])
	assert.True(s.R > 0)
	assert.True(s.Lambda > 0 && s.Lambda < 1)
	for _, v := range append(append([]float64{}, s.Sigmasq...), s.Tausq...) {
		assert.True(v > 0)
	}

	require.NoError(t, ch.Run())
	draws, _, err := ch.Result()
	require.NoError(t, err)
	for _, row := range draws.NCen[1:] {
		assert.True(row[3] >= 1)
	}
}

// censoredData draws intensities and hides every state under threshold
func censoredData(t *testing.T, threshold float64) *model.Dataset {
	gen, err := rand.NewGenerator(99)
	require.NoError(t, err)

	d := &model.Dataset{}
	for k := 0; k < 4; k++ {
		for j := 0; j < 3; j++ {
			p := len(d.PeptideProtein)
			d.PeptideProtein = append(d.PeptideProtein, k)
			gamma := 10 + 0.5*float64(k) + 0.3*gen.NormFloat64()
			for s := 0; s < 6; s++ {
				y := gamma + gen.NormFloat64()
				if y >= threshold {
					d.Intensities = append(d.Intensities, y)
					d.StatePeptide = append(d.StatePeptide, p)
				}
			}
		}
	}
	return d
}

func TestChainCensored(t *testing.T) {
	assert := assert.New(t)

	data := censoredData(t, 9.5)
	cfg := toyConfig(200)
	cfg.Init.PRndCen = 0.05
	cfg.Priors.PRndCen = updates.BetaPrior{A: 1, B: 10}
	cfg.Init.Eta = model.EtaInit{Mean: [2]float64{-19, 2}, SD: [2]float64{0.1, 0.1}, Cor: 0}
	cfg.Priors.Eta = model.EtaPrior{PriorScale: 5, PriorCenter: 0}

	_, draws, accept := runChain(t, data, cfg, 11)
	tab := data.Tabulate()

	total := 0
	for _, row := range draws.NCen[1:] {
		for i, n := range row {
			assert.True(n >= 0)
			if tab.ObsStatesPerPeptide[i] == 0 {
				assert.True(n >= 1)
			}
			total += n
		}
	}
	assert.True(total > 0, "no censored states imputed")

	for name, m := range draws.Map() {
		for _, row := range m {
			for _, v := range row {
				assert.False(math.IsNaN(v) || math.IsInf(v, 0), "%s has %v", name, v)
			}
		}
	}

	assert.True(stat.Mean(columnOf(draws.Eta, 1, 50), nil) > 0)
	assert.True(accept.Eta <= 199)
	for _, p := range draws.PRndCen {
		assert.True(p >= 0 && p < 1)
	}
}

// supervisedData is toyData(4) shifted so that protein k has mean
// 10 + 2 * conc[k]
func supervisedData() (*model.Dataset, []float64) {
	conc := []float64{0, 1, 2, 1.5}
	d := toyData(4)
	for i, p := range d.StatePeptide {
		k := d.PeptideProtein[p]
		d.Intensities[i] += 2*conc[k] - 5*float64(k)
	}
	d.KnownConcentrations = conc[:3]
	d.KnownProteins = []int{0, 1, 2}
	return d, conc
}

func checkSupervised(assert *assert.Assertions, draws *Draws, conc []float64) {
	for t, row := range draws.Concentration {
		for k := 0; k < 3; k++ {
			assert.Equal(conc[k], row[k])
		}
		b := draws.Beta[t]
		for k, x := range row {
			assert.InDelta(b[0]+b[1]*x, draws.Mu[t][k], 1e-9)
		}
	}
}

func TestChainSupervisedFlat(t *testing.T) {
	assert := assert.New(t)

	data, conc := supervisedData()
	cfg := toyConfig(400)
	cfg.Priors.Supervised = true

	ch, draws, _ := runChain(t, data, cfg, 5)
	assert.Equal("supervised-flat", ch.Update.Name())

	// Initial fit is exact on the known proteins
	assert.InDelta(10, draws.Beta[0][0], 1e-9)
	assert.InDelta(2, draws.Beta[0][1], 1e-9)
	assert.InDelta(1.5, draws.Concentration[0][3], 1e-9)

	checkSupervised(assert, draws, conc)
	assert.InDelta(10, stat.Mean(columnOf(draws.Beta, 0, 100), nil), 2)
	assert.InDelta(2, stat.Mean(columnOf(draws.Beta, 1, 100), nil), 1)
	latent := columnOf(draws.Concentration, 3, 100)
	sort.Float64s(latent)
	assert.InDelta(1.5, stat.Quantile(0.5, stat.Empirical, latent, nil), 0.75)

	m := draws.Map()
	assert.Contains(m, "beta")
	assert.Contains(m, "concentration")
	assert.NotContains(m, "mean_concentration")
}

func TestChainSupervisedHierarchical(t *testing.T) {
	assert := assert.New(t)

	data, conc := supervisedData()
	cfg := toyConfig(200)
	cfg.Priors.Supervised = true
	cfg.Priors.ConcentrationDist = true

	ch, draws, _ := runChain(t, data, cfg, 5)
	assert.Equal("supervised-hierarchical", ch.Update.Name())

	checkSupervised(assert, draws, conc)
	assert.InDelta(stat.Mean(conc, nil), draws.MeanConcentration[0], 1e-9)

	m := draws.Map()
	require.Contains(t, m, "var_concentration")
	for _, row := range m["var_concentration"] {
		assert.True(row[0] > 0)
	}
	assert.Len(m["mean_concentration"], 200)
}

func TestDrawsMap(t *testing.T) {
	assert := assert.New(t)

	d := newDraws(3, 2, 1, 2, false, false)
	d.record(1, &State{
		Mu: []float64{1}, Gamma: []float64{2, 3}, Sigmasq: []float64{4}, Tausq: []float64{5},
		Eta: []float64{6, 7}, NCen: []int{0, 2}, PRndCen: 0.5, Lambda: 0.25, R: 3,
	})

	m := d.Map()
	assert.Len(m, 13)
	assert.Equal([][]float64{{0, 0}, {0, 2}, {0, 0}}, m["n_cen_states_per_peptide"])
	assert.Equal([][]float64{{0}, {0.25}, {0}}, m["lmbda"])
	assert.Equal([]float64{6, 7}, m["eta"][1])
	assert.Equal([]float64{2, 3}, m["gamma"][1])
}
