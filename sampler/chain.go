package sampler

import (
	"math"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/CraigKelly/quantmc/buffer"
	"github.com/CraigKelly/quantmc/censor"
	"github.com/CraigKelly/quantmc/glm"
	"github.com/CraigKelly/quantmc/model"
	"github.com/CraigKelly/quantmc/rand"
	"github.com/CraigKelly/quantmc/updates"
)

// AcceptWindow is the number of recent MH outcomes behind the acceptance
// rates in Progress
const AcceptWindow = 100

// AcceptRates are acceptance rates over the last AcceptWindow iterations
type AcceptRates struct {
	SigmasqDist float64 `json:"sigmasq_dist"`
	TausqDist   float64 `json:"tausq_dist"`
	NStatesDist float64 `json:"n_states_dist"`
	Eta         float64 `json:"eta"`
}

// HalfRates splits an acceptance window into its older and newer halves. A
// large gap between the two is a sign the sampler has not settled. Full is
// false until the window has filled.
type HalfRates struct {
	First  float64 `json:"first"`
	Second float64 `json:"second"`
	Full   bool    `json:"full"`
}

func halfRates(window *buffer.CircularBool) HalfRates {
	first, second, ok := window.HalfRates()
	return HalfRates{First: first, Second: second, Full: ok}
}

// AcceptDrift holds the half-window rates of the two MH updates most prone
// to stalling
type AcceptDrift struct {
	NStatesDist HalfRates `json:"n_states_dist"`
	Eta         HalfRates `json:"eta"`
}

// Progress is handed to Chain.Progress every verbose_interval iterations
type Progress struct {
	Iteration   int
	NIterations int
	Accept      AcceptStats
	Recent      AcceptRates
	Drift       AcceptDrift
}

type acceptWindows struct {
	sigmasqDist *buffer.CircularBool
	tausqDist   *buffer.CircularBool
	nStatesDist *buffer.CircularBool
	eta         *buffer.CircularBool
}

// Chain is a single Markov chain over the model. Iteration t depends on all
// of iteration t-1, so iterations run strictly in sequence.
type Chain struct {
	Data      *model.Dataset
	Config    *model.Config
	Tab       *model.Tabulation
	Update    ProteinUpdate
	Status    Status
	Iteration int // Last completed iteration

	// Progress, if set, is called every verbose_interval iterations
	Progress func(Progress)

	CharacterizeOptions censor.CharacterizeOptions
	FitOptions          glm.FitOptions

	gen      *rand.Generator
	log      *zap.Logger
	draws    *Draws
	accept   AcceptStats
	recent   acceptWindows
	state    *State
	etaPrior glm.LogPrior
}

// NewChain validates data and configuration, draws the initial state and
// allocates every draw array. Invalid input is reported as a
// *model.ValidationError. A nil logger discards all logging.
func NewChain(data *model.Dataset, cfg *model.Config, gen *rand.Generator, logger *zap.Logger) (*Chain, error) {
	if data == nil || cfg == nil {
		return nil, errors.New("NewChain needs both a dataset and a config")
	}
	if gen == nil {
		return nil, errors.New("NewChain needs a random generator")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := data.Check(cfg.Priors.Supervised); err != nil {
		return nil, err
	}

	tab := data.Tabulate()
	c := &Chain{
		Data:                data,
		Config:              cfg,
		Tab:                 tab,
		Update:              NewProteinUpdate(cfg),
		Status:              Uninitialized,
		CharacterizeOptions: censor.DefaultCharacterizeOptions(),
		FitOptions:          glm.DefaultFitOptions(),
		gen:                 gen,
		log:                 logger,
		recent: acceptWindows{
			sigmasqDist: buffer.NewCircularBool(AcceptWindow),
			tausqDist:   buffer.NewCircularBool(AcceptWindow),
			nStatesDist: buffer.NewCircularBool(AcceptWindow),
			eta:         buffer.NewCircularBool(AcceptWindow),
		},
	}

	if p := cfg.Priors.Eta; p.PriorScale > 0 {
		c.etaPrior = glm.CauchySlopePrior(p.PriorCenter, p.PriorScale)
	}

	c.draws = newDraws(
		cfg.Settings.NIterations, tab.NPeptides, tab.NProteins, 2+2*tab.NFeatures,
		cfg.Priors.Supervised, cfg.Priors.Supervised && cfg.Priors.ConcentrationDist,
	)

	s, err := c.initialState()
	if err != nil {
		return nil, errors.Wrap(err, "Could not initialize chain")
	}
	c.state = s
	c.draws.record(0, s)
	c.Status = Initialized

	c.log.Debug("Chain initialized",
		zap.String("update", c.Update.Name()),
		zap.Int("peptides", tab.NPeptides),
		zap.Int("proteins", tab.NProteins),
		zap.Int("observed_states", tab.NObsStates),
		zap.Int("features", tab.NFeatures),
		zap.Int("iterations", cfg.Settings.NIterations),
	)
	return c, nil
}

// initialState builds iteration 0 from the init section and crude
// data-driven estimates
func (c *Chain) initialState() (*State, error) {
	in := c.Config.Init
	tab := c.Tab

	s := &State{
		PRndCen:      in.PRndCen,
		ShapeSigmasq: in.SigmasqDist.Shape,
		RateSigmasq:  in.SigmasqDist.Rate,
		ShapeTausq:   in.TausqDist.Shape,
		RateTausq:    in.TausqDist.Rate,
		NCen:         make([]int, tab.NPeptides),
	}

	// Bivariate normal draw of (eta0, eta1); feature effects start at 0
	s.Eta = make([]float64, 2+2*tab.NFeatures)
	s.Eta[0] = in.Eta.Mean[0] + in.Eta.SD[0]*c.gen.NormFloat64()
	s.Eta[1] = in.Eta.Mean[1]
	if in.Eta.SD[1] > 0 {
		if in.Eta.SD[0] > 0 {
			s.Eta[1] += in.Eta.Cor * in.Eta.SD[1] / in.Eta.SD[0] * (s.Eta[0] - in.Eta.Mean[0])
		}
		s.Eta[1] += math.Sqrt(1-in.Eta.Cor*in.Eta.Cor) * in.Eta.SD[1] * c.gen.NormFloat64()
	}

	// Ignores the +1 shift of the states distribution; only a starting point
	x := make([]int, 0, tab.NPeptides)
	for _, n := range tab.ObsStatesPerPeptide {
		if n > 0 {
			x = append(x, n-1)
		}
	}
	s.R, s.Lambda = updates.StartNBinom(x, c.Config.Priors.NStatesDist)

	zeros := make([]float64, tab.NProteins)
	s.Sigmasq = updates.Variances(c.gen, zeros, zeros, s.ShapeSigmasq, s.RateSigmasq)
	s.Tausq = updates.Variances(c.gen, zeros, zeros, s.ShapeTausq, s.RateTausq)

	// Protein means from observed peptide means; proteins without any get
	// the smallest of the others
	s.Mu = make([]float64, tab.NProteins)
	for i, k := range c.Data.PeptideProtein {
		if n := tab.ObsStatesPerPeptide[i]; n > 0 {
			s.Mu[k] += tab.ObsIntensityPerPeptide[i] / float64(n)
		}
	}
	minMu := math.Inf(1)
	for k := range s.Mu {
		if n := tab.ObsPeptidesPerProtein[k]; n > 0 {
			s.Mu[k] /= float64(n)
			minMu = math.Min(minMu, s.Mu[k])
		}
	}
	for k := range s.Mu {
		if tab.ObsPeptidesPerProtein[k] < 1 {
			s.Mu[k] = minMu
		}
	}

	if err := c.Update.Init(c, s); err != nil {
		return nil, err
	}

	s.Gamma = make([]float64, tab.NPeptides)
	for i, k := range c.Data.PeptideProtein {
		if n := tab.ObsStatesPerPeptide[i]; n > 0 {
			s.Gamma[i] = tab.ObsIntensityPerPeptide[i] / float64(n)
		} else {
			s.Gamma[i] = s.Mu[k]
		}
	}

	return s, nil
}

// Run executes iterations 1 through n_iterations-1. A chain runs once.
func (c *Chain) Run() error {
	if c.Status != Initialized {
		return errors.Errorf("Chain can not run from status %v", c.Status)
	}
	c.Status = Iterating

	n := c.Config.Settings.NIterations
	for t := 1; t < n; t++ {
		next, err := c.step(t, c.state)
		if err != nil {
			return errors.Wrapf(err, "Iteration %d failed", t)
		}

		c.draws.record(t, next)
		c.state = next
		c.Iteration = t
		c.report(t)
	}

	c.Status = Done
	c.log.Debug("Chain done", zap.Int("iterations", n), zap.Any("accept_stats", c.accept))
	return nil
}

// Result returns the draws and acceptance counts of a finished chain
func (c *Chain) Result() (*Draws, AcceptStats, error) {
	if c.Status != Done {
		return nil, AcceptStats{}, errors.Errorf("Chain has no result in status %v", c.Status)
	}
	return c.draws, c.accept, nil
}

// AcceptStats returns the acceptance counts so far
func (c *Chain) AcceptStats() AcceptStats {
	return c.accept
}

// step produces iteration t from prev
func (c *Chain) step(t int, prev *State) (*State, error) {
	tab := c.Tab
	priors := c.Config.Priors
	pepProt := c.Data.PeptideProtein

	// (1) Effective censoring coefficients and the censored intensity law
	eta0, eta1 := prev.effectiveEta(c.Data.PeptideFeatures, tab.NPeptides)
	sigmaPep := byPeptide(prev.Sigmasq, pepProt)

	dist, err := censor.Characterize(eta0, eta1, prev.Gamma, sigmaPep, c.CharacterizeOptions)
	if err != nil {
		return nil, errors.Wrap(err, "Characterizing censored intensities")
	}

	// (2) Censored state counts
	nCen, err := censor.SampleCounts(c.gen, tab.ObsStatesPerPeptide, prev.PRndCen, dist.PIntCen, prev.R, prev.Lambda)
	if err != nil {
		return nil, errors.Wrap(err, "Sampling censored counts")
	}

	nStates := make([]int, tab.NPeptides)
	nStatesProt := make([]float64, tab.NProteins)
	total := 0
	for i, n := range nCen {
		nStates[i] = tab.ObsStatesPerPeptide[i] + n
		nStatesProt[pepProt[i]] += float64(nStates[i])
		total += nStates[i]
	}

	// (3) Censored intensities and censoring type
	im, err := censor.SampleIntensities(c.gen, &censor.IntensityRequest{
		NCen:    nCen,
		Mu:      prev.Gamma,
		Sigmasq: sigmaPep,
		Eta0:    eta0,
		Eta1:    eta1,
		PRndCen: prev.PRndCen,
		Dist:    dist,
		PropDf:  c.Config.Settings.PropDfYMis,
	})
	if err != nil {
		return nil, errors.Wrap(err, "Sampling censored intensities")
	}

	// (4) Gibbs steps
	next := &State{NCen: nCen}
	next.PRndCen = updates.PRndCen(c.gen, im.RandomCount(), total, priors.PRndCen)

	yBar := make([]float64, tab.NPeptides)
	copy(yBar, tab.ObsIntensityPerPeptide)
	for j, y := range im.Intensities {
		yBar[im.Peptides[j]] += y
	}
	for i := range yBar {
		yBar[i] /= float64(nStates[i])
	}

	next.Gamma = updates.Gamma(c.gen, byPeptide(prev.Mu, pepProt), byPeptide(prev.Tausq, pepProt), sigmaPep, yBar, nStates)

	gammaBar := make([]float64, tab.NProteins)
	for i, k := range pepProt {
		gammaBar[k] += next.Gamma[i]
	}
	for k := range gammaBar {
		gammaBar[k] /= float64(tab.PeptidesPerProtein[k])
	}

	if err := c.Update.Update(c, prev, next, gammaBar); err != nil {
		return nil, errors.Wrapf(err, "%s protein update", c.Update.Name())
	}

	rss := make([]float64, tab.NProteins)
	for i, y := range c.Data.Intensities {
		d := y - next.Gamma[c.Data.StatePeptide[i]]
		rss[tab.StateProtein[i]] += d * d
	}
	for j, y := range im.Intensities {
		p := im.Peptides[j]
		d := y - next.Gamma[p]
		rss[pepProt[p]] += d * d
	}
	next.Sigmasq = updates.Variances(c.gen, rss, nStatesProt, prev.ShapeSigmasq, prev.RateSigmasq)

	rss = make([]float64, tab.NProteins)
	nPep := make([]float64, tab.NProteins)
	for i, k := range pepProt {
		d := next.Gamma[i] - next.Mu[k]
		rss[k] += d * d
	}
	for k, n := range tab.PeptidesPerProtein {
		nPep[k] = float64(n)
	}
	next.Tausq = updates.Variances(c.gen, rss, nPep, prev.ShapeTausq, prev.RateTausq)

	// (5) MH steps
	var ok bool
	next.ShapeSigmasq, next.RateSigmasq, ok = updates.VarianceHyperparams(
		c.gen, next.Sigmasq, prev.ShapeSigmasq, prev.RateSigmasq, priors.SigmasqDist)
	tally(&c.accept.SigmasqDist, c.recent.sigmasqDist, ok)

	next.ShapeTausq, next.RateTausq, ok = updates.VarianceHyperparams(
		c.gen, next.Tausq, prev.ShapeTausq, prev.RateTausq, priors.TausqDist)
	tally(&c.accept.TausqDist, c.recent.tausqDist, ok)

	x := make([]int, tab.NPeptides)
	for i, n := range nStates {
		x[i] = n - 1
	}
	next.R, next.Lambda, ok = updates.NBinomHyperparams(c.gen, x, prev.R, prev.Lambda, priors.NStatesDist)
	tally(&c.accept.NStatesDist, c.recent.nStatesDist, ok)

	next.Eta = c.updateEta(t, prev, im)

	return next, nil
}

func tally(count *int, window *buffer.CircularBool, accepted bool) {
	if accepted {
		*count++
	}
	window.Add(accepted)
}

func (c *Chain) report(t int) {
	s := c.Config.Settings
	if s.VerboseInterval < 1 || t%s.VerboseInterval != 0 {
		return
	}

	p := Progress{
		Iteration:   t,
		NIterations: s.NIterations,
		Accept:      c.accept,
		Recent: AcceptRates{
			SigmasqDist: c.recent.sigmasqDist.Rate(),
			TausqDist:   c.recent.tausqDist.Rate(),
			NStatesDist: c.recent.nStatesDist.Rate(),
			Eta:         c.recent.eta.Rate(),
		},
		Drift: AcceptDrift{
			NStatesDist: halfRates(c.recent.nStatesDist),
			Eta:         halfRates(c.recent.eta),
		},
	}

	if s.Verbose > 0 {
		c.log.Info("Iteration complete",
			zap.Int("iteration", t),
			zap.Int("of", s.NIterations),
			zap.Float64("recent_accept_eta", p.Recent.Eta),
			zap.Float64("recent_accept_n_states", p.Recent.NStatesDist),
		)
		if d := p.Drift.Eta; d.Full {
			c.log.Debug("Eta acceptance drift", zap.Float64("first_half", d.First), zap.Float64("second_half", d.Second))
		}
	}
	if c.Progress != nil {
		c.Progress(p)
	}
}
