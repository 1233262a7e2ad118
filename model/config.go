package model

import (
	"io/ioutil"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/CraigKelly/quantmc/glm"
	"github.com/CraigKelly/quantmc/updates"
)

// Config is the chain configuration. The YAML document has three required
// sections: priors, settings and init.
type Config struct {
	Priors   Priors   `yaml:"priors" json:"priors"`
	Settings Settings `yaml:"settings" json:"settings"`
	Init     Init     `yaml:"init" json:"init"`
}

// Priors holds the prior hyperparameters of every parameter in the model
type Priors struct {
	Supervised        bool   `yaml:"supervised" json:"supervised"`
	ConcentrationDist bool   `yaml:"concentration_dist" json:"concentration_dist"`
	GLMLink           string `yaml:"glm_link" json:"glm_link"`

	PRndCen     updates.BetaPrior          `yaml:"p_rnd_cen" json:"p_rnd_cen"`
	Mu          updates.NormalPrior        `yaml:"mu" json:"mu"`
	SigmasqDist updates.VarianceHyperPrior `yaml:"sigmasq_dist" json:"sigmasq_dist"`
	TausqDist   updates.VarianceHyperPrior `yaml:"tausq_dist" json:"tausq_dist"`
	NStatesDist updates.NBinomPrior        `yaml:"n_states_dist" json:"n_states_dist"`

	Eta         EtaPrior         `yaml:"eta" json:"eta"`
	EtaFeatures EtaFeaturesPrior `yaml:"eta_features" json:"eta_features"`

	BetaConcentration updates.RegressionPrior `yaml:"beta_concentration" json:"beta_concentration"`
	PrecConcentration updates.VariancePrior   `yaml:"prec_concentration" json:"prec_concentration"`
}

// EtaPrior is the optional Cauchy prior on the censoring slope. A zero
// PriorScale means a flat prior.
type EtaPrior struct {
	PriorScale  float64 `yaml:"prior_scale" json:"prior_scale"`
	PriorCenter float64 `yaml:"prior_center" json:"prior_center"`
}

// EtaFeaturesPrior weights the pseudo-observations (y = 0.5) that shrink the
// peptide feature effects toward zero.
type EtaFeaturesPrior struct {
	PrimaryPseudoObs     float64 `yaml:"primary_pseudoobs" json:"primary_pseudoobs"`
	InteractionPseudoObs float64 `yaml:"interaction_pseudoobs" json:"interaction_pseudoobs"`
}

// Settings controls the MCMC run itself
type Settings struct {
	NIterations     int     `yaml:"n_iterations" json:"n_iterations"`
	PropDfYMis      float64 `yaml:"prop_df_y_mis" json:"prop_df_y_mis"`
	PropDfEta       float64 `yaml:"prop_df_eta" json:"prop_df_eta"`
	Verbose         int     `yaml:"verbose" json:"verbose"`
	VerboseInterval int     `yaml:"verbose_interval" json:"verbose_interval"`
}

// Init holds starting values
type Init struct {
	PRndCen     float64    `yaml:"p_rnd_cen" json:"p_rnd_cen"`
	Eta         EtaInit    `yaml:"eta" json:"eta"`
	SigmasqDist HyperStart `yaml:"sigmasq_dist" json:"sigmasq_dist"`
	TausqDist   HyperStart `yaml:"tausq_dist" json:"tausq_dist"`
}

// EtaInit is a bivariate normal for the starting (eta0, eta1)
type EtaInit struct {
	Mean [2]float64 `yaml:"mean" json:"mean"`
	SD   [2]float64 `yaml:"sd" json:"sd"`
	Cor  float64    `yaml:"cor" json:"cor"`
}

// HyperStart is a starting (shape, rate) of a variance distribution
type HyperStart struct {
	Shape float64 `yaml:"shape" json:"shape"`
	Rate  float64 `yaml:"rate" json:"rate"`
}

// Defaults for settings the YAML may leave out
const (
	DefaultPropDfYMis      = 5.0
	DefaultPropDfEta       = 10.0
	DefaultVerboseInterval = 100
)

// NewConfigFromFile reads, parses and validates a YAML config file
func NewConfigFromFile(filename string) (*Config, error) {
	data, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "Could not READ config from %s", filename)
	}

	cfg, err := NewConfigFromBuffer(data)
	if err != nil {
		return nil, errors.Wrapf(err, "Config file %s", filename)
	}
	return cfg, nil
}

// NewConfigFromBuffer parses and validates a YAML config
func NewConfigFromBuffer(data []byte) (*Config, error) {
	var sections map[string]interface{}
	if err := yaml.Unmarshal(data, &sections); err != nil {
		return nil, errors.Wrap(err, "Could not PARSE config")
	}
	for _, s := range []string{"priors", "settings", "init"} {
		if _, ok := sections[s]; !ok {
			return nil, invalidf("config", "missing required section %q", s)
		}
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "Could not PARSE config")
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults fills in the optional settings
func (c *Config) ApplyDefaults() {
	if c.Settings.PropDfYMis <= 0 {
		c.Settings.PropDfYMis = DefaultPropDfYMis
	}
	if c.Settings.PropDfEta <= 0 {
		c.Settings.PropDfEta = DefaultPropDfEta
	}
	if c.Settings.VerboseInterval <= 0 {
		c.Settings.VerboseInterval = DefaultVerboseInterval
	}
	if c.Priors.GLMLink == "" {
		c.Priors.GLMLink = string(glm.Logit)
	}
	if !c.Priors.Supervised {
		c.Priors.ConcentrationDist = false
	}
}

// Validate returns a *ValidationError describing the first problem found
func (c *Config) Validate() error {
	s := c.Settings
	if s.NIterations < 1 {
		return invalidf("settings.n_iterations", "must be positive, got %d", s.NIterations)
	}
	if s.PropDfYMis <= 0 {
		return invalidf("settings.prop_df_y_mis", "must be positive, got %v", s.PropDfYMis)
	}
	if s.PropDfEta <= 0 {
		return invalidf("settings.prop_df_eta", "must be positive, got %v", s.PropDfEta)
	}

	if _, err := glm.ParseLink(c.Priors.GLMLink); err != nil {
		return invalidf("priors.glm_link", "%v", err)
	}

	p := c.Priors
	if p.PRndCen.A <= 0 || p.PRndCen.B <= 0 {
		return invalidf("priors.p_rnd_cen", "beta prior needs positive prior_a and prior_b")
	}
	if p.Mu.Prec < 0 {
		return invalidf("priors.mu", "negative precision %v", p.Mu.Prec)
	}
	if p.NStatesDist.LambdaA <= 0 || p.NStatesDist.LambdaB <= 0 {
		return invalidf("priors.n_states_dist", "beta prior on lambda needs positive lambda_prior_a and lambda_prior_b")
	}
	if p.SigmasqDist.StepSD < 0 {
		return invalidf("priors.sigmasq_dist", "negative step_sd %v", p.SigmasqDist.StepSD)
	}
	if p.TausqDist.StepSD < 0 {
		return invalidf("priors.tausq_dist", "negative step_sd %v", p.TausqDist.StepSD)
	}
	if p.NStatesDist.StepSD < 0 {
		return invalidf("priors.n_states_dist", "negative step_sd %v", p.NStatesDist.StepSD)
	}
	if p.EtaFeatures.PrimaryPseudoObs < 0 || p.EtaFeatures.InteractionPseudoObs < 0 {
		return invalidf("priors.eta_features", "negative pseudo-observation weight %v/%v",
			p.EtaFeatures.PrimaryPseudoObs, p.EtaFeatures.InteractionPseudoObs)
	}
	if p.Eta.PriorScale < 0 {
		return invalidf("priors.eta", "negative prior_scale %v", p.Eta.PriorScale)
	}
	if p.Supervised && p.ConcentrationDist {
		if p.PrecConcentration.Shape <= 0 || p.PrecConcentration.Rate <= 0 {
			return invalidf("priors.prec_concentration", "needs positive prior_shape and prior_rate")
		}
	}

	in := c.Init
	if in.PRndCen < 0 || in.PRndCen >= 1 {
		return invalidf("init.p_rnd_cen", "must be in [0, 1), got %v", in.PRndCen)
	}
	if in.Eta.SD[0] < 0 || in.Eta.SD[1] < 0 {
		return invalidf("init.eta", "negative sd %v", in.Eta.SD)
	}
	if in.Eta.Cor < -1 || in.Eta.Cor > 1 {
		return invalidf("init.eta", "cor %v outside [-1, 1]", in.Eta.Cor)
	}
	if err := in.SigmasqDist.check("init.sigmasq_dist"); err != nil {
		return err
	}
	if err := in.TausqDist.check("init.tausq_dist"); err != nil {
		return err
	}

	return nil
}

func (h HyperStart) check(field string) error {
	if h.Shape <= 0 || h.Rate <= 0 {
		return invalidf(field, "needs positive shape and rate, got %v/%v", h.Shape, h.Rate)
	}
	return nil
}
