package cmd

import (
	"encoding/json"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/CraigKelly/quantmc/model"
	"github.com/CraigKelly/quantmc/rand"
	"github.com/CraigKelly/quantmc/sampler"
)

// startupParams is everything the run command needs
type startupParams struct {
	configFile  string
	files       model.DataFiles
	outFile     string
	randomSeed  int64
	seedKey     []uint
	monitor     bool
	monitorAddr string
	progress    bool
	log         *zap.Logger
}

// chainOutput is the JSON document written by run and read by summary
type chainOutput struct {
	Draws       map[string][][]float64 `json:"draws"`
	AcceptStats sampler.AcceptStats    `json:"accept_stats"`
}

func newRunCmd() *cobra.Command {
	sp := &startupParams{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one chain and save its draws as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			sp.log = logger
			return RunChain(sp)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&sp.configFile, "config", "c", "", "YAML config with priors, settings and init sections")
	f.StringVarP(&sp.files.States, "states", "s", "", "Observed states: peptide index and log intensity per line")
	f.StringVarP(&sp.files.Peptides, "peptides", "p", "", "Protein index of each peptide, one per line")
	f.StringVar(&sp.files.Concentrations, "concentrations", "", "Known concentrations: protein index and concentration per line")
	f.StringVar(&sp.files.Features, "features", "", "Peptide features, one row per peptide")
	f.StringVarP(&sp.outFile, "out", "o", "", "JSON file for the draws")
	f.Int64VarP(&sp.randomSeed, "seed", "r", 1, "Random seed to use")
	f.UintSliceVar(&sp.seedKey, "seed-key", nil, "Seed the generator from a key (comma separated); overrides --seed")
	f.BoolVar(&sp.monitor, "monitor", false, "Serve chain progress over HTTP (see debug/vars)")
	f.StringVar(&sp.monitorAddr, "monitor-addr", ":8000", "Listen address for --monitor")
	f.BoolVar(&sp.progress, "progress", true, "Show a progress bar on stderr")

	for _, name := range []string{"config", "states", "peptides", "out"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

// newGenerator seeds from --seed-key when given, else from --seed
func newGenerator(sp *startupParams) (*rand.Generator, error) {
	if len(sp.seedKey) < 1 {
		return rand.NewGenerator(sp.randomSeed)
	}

	key := make([]uint64, len(sp.seedKey))
	for i, k := range sp.seedKey {
		key[i] = uint64(k)
	}
	return rand.NewGeneratorSlice(key)
}

// RunChain reads config and data, runs a single chain and writes its draws
func RunChain(sp *startupParams) error {
	log := sp.log
	if log == nil {
		log = zap.NewNop()
	}

	cfg, err := model.NewConfigFromFile(sp.configFile)
	if err != nil {
		return err
	}

	data, err := model.NewDatasetFromFiles(sp.files)
	if err != nil {
		return err
	}

	gen, err := newGenerator(sp)
	if err != nil {
		return err
	}

	ch, err := sampler.NewChain(data, cfg, gen, log)
	if err != nil {
		return err
	}
	log.Info("Chain ready",
		zap.String("update", ch.Update.Name()),
		zap.Int("peptides", ch.Tab.NPeptides),
		zap.Int("proteins", ch.Tab.NProteins),
		zap.Int("iterations", cfg.Settings.NIterations),
		zap.Int64("seed", sp.randomSeed),
		zap.Uints("seed_key", sp.seedKey),
	)

	var mon *monitor
	if sp.monitor {
		mon = &monitor{}
		if err := mon.Start(sp.monitorAddr); err != nil {
			return err
		}
		defer mon.Stop()
		mon.MaxIters.Set(int64(cfg.Settings.NIterations))
	}

	var bar *progressbar.ProgressBar
	if sp.progress {
		bar = progressbar.NewOptions(cfg.Settings.NIterations-1,
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("Sampling"),
			progressbar.OptionShowCount(),
		)
	}

	startTime := time.Now()
	ch.Progress = func(p sampler.Progress) {
		if bar != nil {
			_ = bar.Set(p.Iteration)
		}
		if mon != nil {
			mon.Update(p, time.Since(startTime))
		}
	}

	if err := ch.Run(); err != nil {
		return err
	}
	if bar != nil {
		_ = bar.Finish()
	}

	draws, accept, err := ch.Result()
	if err != nil {
		return err
	}
	log.Info("Chain complete",
		zap.Duration("run_time", time.Since(startTime)),
		zap.Int("accept_sigmasq_dist", accept.SigmasqDist),
		zap.Int("accept_tausq_dist", accept.TausqDist),
		zap.Int("accept_n_states_dist", accept.NStatesDist),
		zap.Int("accept_eta", accept.Eta),
	)

	return writeOutput(sp.outFile, &chainOutput{Draws: draws.Map(), AcceptStats: accept})
}

func writeOutput(filename string, out *chainOutput) error {
	f, err := os.Create(filename)
	if err != nil {
		return errors.Wrapf(err, "Could not CREATE output %s", filename)
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(out); err != nil {
		return errors.Wrapf(err, "Could not WRITE draws to %s", filename)
	}
	return f.Close()
}

func readOutput(filename string) (*chainOutput, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "Could not READ draws from %s", filename)
	}
	defer f.Close()

	out := &chainOutput{}
	if err := json.NewDecoder(f).Decode(out); err != nil {
		return nil, errors.Wrapf(err, "Could not PARSE draws in %s", filename)
	}
	return out, nil
}
