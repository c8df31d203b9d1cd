package cli

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/alnah/go-scribe/internal/manifest"
)

// StitchCmd creates the stitch command: merge an already-transcribed
// manifest and write the output files next to it.
func StitchCmd(env *Env) *cobra.Command {
	var of outputFlags

	cmd := &cobra.Command{
		Use:   "stitch <manifest-file>",
		Short: "Merge chunk transcripts and write output files",
		Long: `Load a manifest, merge the transcribed chunk texts into a single
deduplicated transcript, and write the selected output formats into the
manifest's directory. Chunks still pending or in error are skipped.

Stitching is pure; it can be re-run any number of times, for example to
produce a VTT file from a job that originally only wrote SRT.`,
		Example: `  scribe stitch outputs/20260827-153000/manifest.json
  scribe stitch outputs/20260827-153000/manifest.json --vtt --srt=false`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStitch(env, args[0], &of)
		},
	}

	of.register(cmd)

	return cmd
}

func runStitch(env *Env, manifestPath string, of *outputFlags) error {
	m, err := manifest.Load(manifestPath)
	if err != nil {
		return err
	}

	return stitchStage(env, m, filepath.Dir(manifestPath), of.selection())
}
