package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/CraigKelly/quantmc/model"
)

func newSummaryCmd() *cobra.Command {
	var drawsFile string
	var burnIn int

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print posterior summaries of saved draws",
		RunE: func(cmd *cobra.Command, args []string) error {
			return Summary(os.Stdout, drawsFile, burnIn)
		},
	}

	cmd.Flags().StringVarP(&drawsFile, "draws", "d", "", "JSON draws written by run")
	cmd.Flags().IntVarP(&burnIn, "burn-in", "b", 0, "Leading iterations to discard")
	_ = cmd.MarkFlagRequired("draws")
	return cmd
}

// Summary writes a table of posterior mean, SD and 95% interval for every
// element of every parameter, followed by the acceptance counts
func Summary(w io.Writer, drawsFile string, burnIn int) error {
	out, err := readOutput(drawsFile)
	if err != nil {
		return err
	}

	sums, err := model.SummarizeAll(out.Draws, burnIn)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "parameter\tmean\tsd\t2.5%%\t97.5%%\t\n")
	for _, s := range sums {
		for j := range s.Mean {
			name := s.Name
			if len(s.Mean) > 1 {
				name = fmt.Sprintf("%s[%d]", s.Name, j)
			}
			fmt.Fprintf(tw, "%s\t%.4f\t%.4f\t%.4f\t%.4f\t\n", name, s.Mean[j], s.SD[j], s.Lower[j], s.Upper[j])
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	a := out.AcceptStats
	_, err = fmt.Fprintf(w, "\naccepted: sigmasq_dist=%d tausq_dist=%d n_states_dist=%d eta=%d\n",
		a.SigmasqDist, a.TausqDist, a.NStatesDist, a.Eta)
	return err
}
