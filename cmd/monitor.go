package cmd

import (
	"expvar"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/pkg/errors"

	"github.com/CraigKelly/quantmc/sampler"
)

type monitor struct {
	info    *expvar.Map
	stopped chan struct{}
	server  *http.Server

	MaxIters   *expvar.Int
	Iterations *expvar.Int
	RunTime    *expvar.Float

	AcceptSigmasqDist *expvar.Int
	AcceptTausqDist   *expvar.Int
	AcceptNStatesDist *expvar.Int
	AcceptEta         *expvar.Int

	RecentAcceptEta     *expvar.Float
	RecentAcceptNStates *expvar.Float

	// Newer minus older half of the acceptance window
	DriftAcceptEta     *expvar.Float
	DriftAcceptNStates *expvar.Float
}

// Start begins the monitor
func (m *monitor) Start(addr string) error {
	if m.info != nil {
		return errors.Errorf("BUG: You may only start the process monitor once")
	}

	m.info = expvar.NewMap("quantmc-progress")
	m.stopped = make(chan struct{})
	m.server = &http.Server{
		Addr: addr,
	}

	// Help the user and redirect to the only thing currently available:
	// the handler from the expvar package
	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/debug/vars", http.StatusTemporaryRedirect)
	})

	m.MaxIters = new(expvar.Int)
	m.Iterations = new(expvar.Int)
	m.RunTime = new(expvar.Float)
	m.AcceptSigmasqDist = new(expvar.Int)
	m.AcceptTausqDist = new(expvar.Int)
	m.AcceptNStatesDist = new(expvar.Int)
	m.AcceptEta = new(expvar.Int)
	m.RecentAcceptEta = new(expvar.Float)
	m.RecentAcceptNStates = new(expvar.Float)
	m.DriftAcceptEta = new(expvar.Float)
	m.DriftAcceptNStates = new(expvar.Float)

	m.info.Set("Max-Iterations", m.MaxIters)
	m.info.Set("Iterations", m.Iterations)
	m.info.Set("Run-Time", m.RunTime)
	m.info.Set("Accept-Sigmasq-Dist", m.AcceptSigmasqDist)
	m.info.Set("Accept-Tausq-Dist", m.AcceptTausqDist)
	m.info.Set("Accept-N-States-Dist", m.AcceptNStatesDist)
	m.info.Set("Accept-Eta", m.AcceptEta)
	m.info.Set("Recent-Accept-Eta", m.RecentAcceptEta)
	m.info.Set("Recent-Accept-N-States", m.RecentAcceptNStates)
	m.info.Set("Drift-Accept-Eta", m.DriftAcceptEta)
	m.info.Set("Drift-Accept-N-States", m.DriftAcceptNStates)

	// Actual server that will close the stopped channel on exit
	started := make(chan struct{})
	go func() {
		defer close(m.stopped)
		fmt.Fprintf(os.Stderr, "HTTP now available at %v (see debug/vars/)\n", m.server.Addr)
		close(started)
		m.server.ListenAndServe()
	}()

	<-started
	return nil
}

// Update publishes a chain progress report
func (m *monitor) Update(p sampler.Progress, runTime time.Duration) {
	if m.info == nil {
		return
	}

	m.Iterations.Set(int64(p.Iteration))
	m.RunTime.Set(runTime.Seconds())
	m.AcceptSigmasqDist.Set(int64(p.Accept.SigmasqDist))
	m.AcceptTausqDist.Set(int64(p.Accept.TausqDist))
	m.AcceptNStatesDist.Set(int64(p.Accept.NStatesDist))
	m.AcceptEta.Set(int64(p.Accept.Eta))
	m.RecentAcceptEta.Set(p.Recent.Eta)
	m.RecentAcceptNStates.Set(p.Recent.NStatesDist)
	if d := p.Drift.Eta; d.Full {
		m.DriftAcceptEta.Set(d.Second - d.First)
	}
	if d := p.Drift.NStatesDist; d.Full {
		m.DriftAcceptNStates.Set(d.Second - d.First)
	}
}

func (m *monitor) Stop() {
	if m.info == nil {
		return
	}

	m.server.Close()

	select {
	case <-m.stopped:
		fmt.Fprintf(os.Stderr, "HTTP Info Stopped\n")
	case <-time.After(2 * time.Second):
		fmt.Fprintf(os.Stderr, "HTTP would NOT stop: just continuing on\n")
	}
}
