package cli

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/alnah/go-scribe/internal/config"
)

// PlanCmd creates the plan command: segmentation and extraction only.
// It produces a job directory with extracted chunks and a manifest of
// pending entries, without touching the transcription API.
func PlanCmd(env *Env) *cobra.Command {
	var pf pipelineFlags

	cmd := &cobra.Command{
		Use:   "plan <audio-file>",
		Short: "Split an audio file into chunks without transcribing",
		Long: `Probe the audio file, compute overlapping chunk windows, extract the
chunks with FFmpeg, and write a manifest of pending entries to the job
directory. No API key is required.

Hand the manifest to "scribe transcribe" to run the API stage later.`,
		Example: `  scribe plan lecture.mp3
  scribe plan interview.m4a --overlap 5 --max-chunk-secs 600
  scribe plan podcast.ogg --no-reencode`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(cmd, env, args[0], &pf)
		},
	}

	pf.register(cmd)

	return cmd
}

func runPlan(cmd *cobra.Command, env *Env, inputPath string, pf *pipelineFlags) error {
	ctx := cmd.Context()

	if err := validateInput(inputPath); err != nil {
		return err
	}

	fileCfg := loadFileConfig(env)

	// Outputs are not written at this stage, but the selection is recorded
	// in the effective config for the later stitch invocation to mirror.
	cfg, err := buildConfig(cmd, fileCfg, pf, config.Default().Outputs)
	if err != nil {
		return err
	}

	paths, err := env.BinResolver.Resolve()
	if err != nil {
		return err
	}

	workDir := resolveWorkDir(pf.workDir, fileCfg)
	jobDir := filepath.Join(workDir, jobID(env.Now()))

	_, _, err = planStage(ctx, env, cfg, inputPath, jobDir, paths.FFmpeg, paths.FFprobe)
	return err
}
