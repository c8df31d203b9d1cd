package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alnah/go-scribe/internal/config"
	"github.com/alnah/go-scribe/internal/manifest"
)

// TranscribeCmd creates the transcribe command: run the API stage against an
// existing manifest. Re-running is incremental; chunks already done or in
// error are left untouched.
func TranscribeCmd(env *Env) *cobra.Command {
	var (
		parallel   int
		maxRetries int
		backoffMS  int
	)

	cmd := &cobra.Command{
		Use:   "transcribe <manifest-file>",
		Short: "Transcribe the pending chunks of a manifest",
		Long: `Load a manifest produced by "scribe plan" or an interrupted "scribe run"
and transcribe every pending chunk. The manifest is saved after each chunk
reaches a terminal state, so interrupting and re-running loses at most the
chunks that were in flight.

The model, response format, and prompt come from the manifest; only the
scheduling knobs can be overridden here.`,
		Example: `  scribe transcribe outputs/20260827-153000/manifest.json
  scribe transcribe outputs/20260827-153000/manifest.json -p 5 --max-retries 5`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranscribe(cmd, env, args[0], parallel, maxRetries, backoffMS)
		},
	}

	d := config.Default()
	cmd.Flags().IntVarP(&parallel, "parallel", "p", d.Model.ParallelRequests, "Max concurrent API requests (1-10)")
	cmd.Flags().IntVar(&maxRetries, "max-retries", d.Model.MaxRetries, "Retry attempts for transient API errors (0-10)")
	cmd.Flags().IntVar(&backoffMS, "backoff", d.Model.BackoffBaseMS, "Base retry backoff in milliseconds (100-5000)")

	return cmd
}

func runTranscribe(cmd *cobra.Command, env *Env, manifestPath string, parallel, maxRetries, backoffMS int) error {
	ctx := cmd.Context()

	m, err := manifest.Load(manifestPath)
	if err != nil {
		return err
	}

	key, err := apiKey(env)
	if err != nil {
		return err
	}

	mc := config.Default().Model
	mc.ParallelRequests = parallel
	mc.MaxRetries = maxRetries
	mc.BackoffBaseMS = backoffMS
	if err := mc.Validate(); err != nil {
		return err
	}

	if err := scheduleStage(ctx, env, mc, key, m, manifestPath); err != nil {
		return err
	}

	fmt.Fprintf(env.Stderr, "Manifest updated: %s\n", manifestPath)
	return nil
}
