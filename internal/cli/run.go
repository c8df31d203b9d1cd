package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/alnah/go-scribe/internal/config"
	"github.com/alnah/go-scribe/internal/format"
	"github.com/alnah/go-scribe/internal/manifest"
	"github.com/alnah/go-scribe/internal/output"
	"github.com/alnah/go-scribe/internal/plan"
	"github.com/alnah/go-scribe/internal/schedule"
	"github.com/alnah/go-scribe/internal/stitch"
)

// ManifestName is the manifest file name inside a job directory.
const ManifestName = "manifest.json"

// defaultWorkDir is used when neither flag nor user config sets one.
const defaultWorkDir = "outputs"

// pipelineFlags binds the CLI overrides shared by run and plan.
type pipelineFlags struct {
	workDir        string
	model          string
	prompt         string
	responseFormat string
	parallel       int
	maxRetries     int
	backoffMS      int
	targetMB       int
	maxChunkSecs   int
	overlapSecs    float64
	noReencode     bool
}

// register adds the shared pipeline flags to cmd.
func (f *pipelineFlags) register(cmd *cobra.Command) {
	d := config.Default()
	cmd.Flags().StringVarP(&f.workDir, "work-dir", "w", "", "Working directory for job outputs (default: outputs/)")
	cmd.Flags().StringVarP(&f.model, "model", "m", d.Model.Model, "Transcription model: gpt-4o-transcribe, gpt-4o-mini-transcribe")
	cmd.Flags().StringVar(&f.prompt, "prompt", "", "Context prompt for better transcription accuracy")
	cmd.Flags().StringVar(&f.responseFormat, "response-format", d.Model.ResponseFormat, "API response format: json, text")
	cmd.Flags().IntVarP(&f.parallel, "parallel", "p", d.Model.ParallelRequests, "Max concurrent API requests (1-10)")
	cmd.Flags().IntVar(&f.maxRetries, "max-retries", d.Model.MaxRetries, "Retry attempts for transient API errors (0-10)")
	cmd.Flags().IntVar(&f.backoffMS, "backoff", d.Model.BackoffBaseMS, "Base retry backoff in milliseconds (100-5000)")
	cmd.Flags().IntVar(&f.targetMB, "target-mb", d.Chunking.TargetChunkMB, "Target chunk size in MB")
	cmd.Flags().IntVar(&f.maxChunkSecs, "max-chunk-secs", d.Chunking.MaxChunkSecs, "Maximum chunk duration in seconds (60-3600)")
	cmd.Flags().Float64Var(&f.overlapSecs, "overlap", d.Chunking.OverlapSecs, "Overlap between adjacent chunks in seconds (0-30)")
	cmd.Flags().BoolVar(&f.noReencode, "no-reencode", false, "Copy audio without re-encoding")
}

// outputFlags binds the output format selection shared by run and stitch.
type outputFlags struct {
	txt  bool
	json bool
	srt  bool
	vtt  bool
}

// register adds output selection flags to cmd.
func (f *outputFlags) register(cmd *cobra.Command) {
	d := config.Default()
	cmd.Flags().BoolVar(&f.txt, "txt", d.Outputs.WriteTxt, "Write transcript.txt")
	cmd.Flags().BoolVar(&f.json, "json", d.Outputs.WriteJSON, "Write transcript.json")
	cmd.Flags().BoolVar(&f.srt, "srt", d.Outputs.WriteSRT, "Write transcript.srt")
	cmd.Flags().BoolVar(&f.vtt, "vtt", d.Outputs.WriteVTT, "Write transcript.vtt")
}

// selection converts the flags to a config.Outputs.
func (f *outputFlags) selection() config.Outputs {
	return config.Outputs{WriteTxt: f.txt, WriteJSON: f.json, WriteSRT: f.srt, WriteVTT: f.vtt}
}

// buildConfig assembles the effective pipeline configuration.
// Precedence: flags, then user config file, then defaults.
func buildConfig(cmd *cobra.Command, fileCfg config.File, f *pipelineFlags, out config.Outputs) (config.Pipeline, error) {
	cfg := config.Default()

	// User config file supplies a default model unless the flag was given.
	if fileCfg.Model != "" && !cmd.Flags().Changed("model") {
		cfg.Model.Model = fileCfg.Model
	} else {
		cfg.Model.Model = f.model
	}

	cfg.Model.Prompt = f.prompt
	cfg.Model.ResponseFormat = f.responseFormat
	cfg.Model.ParallelRequests = f.parallel
	cfg.Model.MaxRetries = f.maxRetries
	cfg.Model.BackoffBaseMS = f.backoffMS
	cfg.Chunking.TargetChunkMB = f.targetMB
	cfg.Chunking.MaxChunkSecs = f.maxChunkSecs
	cfg.Chunking.OverlapSecs = f.overlapSecs
	cfg.Reencode.Enabled = !f.noReencode
	cfg.Outputs = out

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// resolveWorkDir picks the working directory: flag, then user config, then default.
func resolveWorkDir(flagDir string, fileCfg config.File) string {
	if flagDir != "" {
		return config.ExpandPath(flagDir)
	}
	if fileCfg.OutputDir != "" {
		return config.ExpandPath(fileCfg.OutputDir)
	}
	return defaultWorkDir
}

// RunCmd creates the run command: the full pipeline in one invocation.
// The env parameter provides injectable dependencies for testing.
func RunCmd(env *Env) *cobra.Command {
	var (
		pf pipelineFlags
		of outputFlags
	)

	cmd := &cobra.Command{
		Use:   "run <audio-file>",
		Short: "Transcribe an audio file end to end",
		Long: `Run the full pipeline: probe the audio, split it into overlapping
chunks, transcribe the chunks in parallel, stitch the results into a single
deduplicated transcript, and write the selected output formats.

Progress is persisted to <job-dir>/manifest.json after every chunk; an
interrupted run can be resumed with "scribe transcribe <manifest>".

Supported formats: flac, m4a, mp3, mp4, mpeg, mpga, ogg, wav, webm`,
		Example: `  scribe run lecture.mp3
  scribe run interview.m4a -m gpt-4o-mini-transcribe -p 5
  scribe run podcast.ogg --prompt "Technical discussion about Go" --vtt
  scribe run meeting.wav -w ~/transcripts --overlap 5`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, env, args[0], &pf, &of)
		},
	}

	pf.register(cmd)
	of.register(cmd)

	return cmd
}

// runRun executes the full pipeline.
// Validation order: file exists -> format -> config -> API key -> binaries.
func runRun(cmd *cobra.Command, env *Env, inputPath string, pf *pipelineFlags, of *outputFlags) error {
	ctx := cmd.Context()

	// === VALIDATION (fail-fast) ===

	if err := validateInput(inputPath); err != nil {
		return err
	}

	fileCfg := loadFileConfig(env)

	cfg, err := buildConfig(cmd, fileCfg, pf, of.selection())
	if err != nil {
		return err
	}

	// Credential check before any chunk work begins.
	key, err := apiKey(env)
	if err != nil {
		return err
	}

	// === SETUP ===

	paths, err := env.BinResolver.Resolve()
	if err != nil {
		return err
	}

	workDir := resolveWorkDir(pf.workDir, fileCfg)
	jobDir := filepath.Join(workDir, jobID(env.Now()))

	m, manifestPath, err := planStage(ctx, env, cfg, inputPath, jobDir, paths.FFmpeg, paths.FFprobe)
	if err != nil {
		return err
	}

	// === TRANSCRIPTION ===

	if err := scheduleStage(ctx, env, cfg.Model, key, m, manifestPath); err != nil {
		return err
	}

	// === STITCH & OUTPUT ===

	return stitchStage(env, m, jobDir, cfg.Outputs)
}

// planStage probes the input, plans and extracts chunks, and persists the
// fresh manifest plus the effective configuration to the job directory.
func planStage(
	ctx context.Context,
	env *Env,
	cfg config.Pipeline,
	inputPath, jobDir, ffmpegPath, ffprobePath string,
) (*manifest.Manifest, string, error) {
	chunksDir := filepath.Join(jobDir, "chunks")
	if err := os.MkdirAll(chunksDir, 0750); err != nil { // #nosec G301 -- job output dir
		return nil, "", fmt.Errorf("cannot create job directory: %w", err)
	}

	if err := cfg.SaveEffective(jobDir); err != nil {
		return nil, "", err
	}

	prober := env.ProberFactory.NewProber(ffprobePath)
	meta, err := prober.Probe(ctx, inputPath)
	if err != nil {
		return nil, "", err
	}

	fmt.Fprintf(env.Stderr, "Planning chunks (%s of audio, %s)...\n",
		format.Duration(time.Duration(meta.Duration*float64(time.Second))),
		format.Size(meta.SizeBytes))

	planner := plan.New(env.ExtractorFactory.NewExtractor(ffmpegPath))
	m, err := planner.Plan(ctx, inputPath, meta, cfg, chunksDir)
	if err != nil {
		return nil, "", err
	}

	manifestPath := filepath.Join(jobDir, ManifestName)
	if err := m.Save(manifestPath); err != nil {
		return nil, "", err
	}

	fmt.Fprintf(env.Stderr, "Planned %d chunks\n", len(m.Chunks))
	return m, manifestPath, nil
}

// scheduleStage runs all pending chunks to a terminal state with progress
// reporting, then summarizes per-chunk failures.
func scheduleStage(
	ctx context.Context,
	env *Env,
	mc config.Model,
	key string,
	m *manifest.Manifest,
	manifestPath string,
) error {
	pending := len(m.Pending())
	if pending == 0 {
		fmt.Fprintln(env.Stderr, "No pending chunks")
		return nil
	}

	fmt.Fprintf(env.Stderr, "Transcribing %d chunks...\n", pending)

	scheduler := schedule.New(env.TranscriberFactory.NewTranscriber(key),
		schedule.WithParallel(mc.ParallelRequests),
		schedule.WithMaxRetries(mc.MaxRetries),
		schedule.WithBackoffBase(time.Duration(mc.BackoffBaseMS)*time.Millisecond),
		schedule.WithProgress(func(done, total int) {
			fmt.Fprintf(env.Stderr, "  %d/%d chunks done\n", done, total)
		}),
	)

	if err := scheduler.Run(ctx, m, manifestPath); err != nil {
		return err
	}

	failed := 0
	for _, c := range m.Chunks {
		if c.Status == manifest.StatusError {
			failed++
		}
	}
	if failed > 0 {
		fmt.Fprintf(env.Stderr, "Warning: %d chunks failed; output will cover less of the audio\n", failed)
	}
	return nil
}

// stitchStage merges chunk transcripts and writes the selected outputs.
func stitchStage(env *Env, m *manifest.Manifest, dir string, sel config.Outputs) error {
	fullText, merged := stitch.Stitch(m)

	doc := output.Document{
		Source:         m.Input,
		Meta:           m.Meta,
		Model:          m.Model,
		ResponseFormat: m.ResponseFormat,
		Prompt:         m.Prompt,
		Chunks:         merged,
		FullText:       fullText,
	}

	written, err := output.Write(dir, sel, doc)
	if err != nil {
		return err
	}

	fmt.Fprintf(env.Stderr, "Done: %s\n", dir)
	for _, name := range written {
		fmt.Fprintf(env.Stderr, "  - %s\n", name)
	}
	return nil
}
