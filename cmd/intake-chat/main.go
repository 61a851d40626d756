package main

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/tussenheid/volunteer-intake/internal/config"
	"github.com/tussenheid/volunteer-intake/internal/handlers"
	"github.com/tussenheid/volunteer-intake/internal/intake"
	"github.com/tussenheid/volunteer-intake/internal/llm"
	"github.com/tussenheid/volunteer-intake/internal/logger"
	"github.com/tussenheid/volunteer-intake/internal/memory"
	"github.com/tussenheid/volunteer-intake/internal/models"
	"github.com/tussenheid/volunteer-intake/internal/transport"
)

type chatOptions struct {
	sessionID string
	voice     string
	audioDir  string
	verbose   bool
}

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &chatOptions{}

	cmd := &cobra.Command{
		Use:   "intake-chat",
		Short: "Run a volunteer intake conversation in the terminal",
		Long: "intake-chat plays the client side of the intake: it keeps the profile, " +
			"sends each typed line as a turn and stops once every field is known.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			processor, err := buildProcessor(opts)
			if err != nil {
				return err
			}
			return runChat(ctx, processor, cmd.InOrStdin(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.sessionID, "session", "", "session id for the transcript (random when empty)")
	cmd.Flags().StringVar(&opts.voice, "voice", "", "speech voice, overrides OPENAI_TTS_VOICE")
	cmd.Flags().StringVar(&opts.audioDir, "audio-dir", "", "write each spoken reply as an mp3 into this directory")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "log turn details")

	return cmd
}

func buildProcessor(opts *chatOptions) (transport.TurnProcessor, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level := "error"
	if opts.verbose {
		level = cfg.LogLevel
	}
	log := logger.NewLogger(level, "text")

	voice := cfg.OpenAITTSVoice
	if opts.voice != "" {
		voice = opts.voice
	}
	audio := llm.NewAudioClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL,
		llm.WithTranscriptionModel(cfg.OpenAITranscriptionModel),
		llm.WithSpeechModel(cfg.OpenAITTSModel),
		llm.WithVoice(voice),
	)

	proposer, err := llm.NewOpenAIProposer(cfg.OpenAIAPIKey, cfg.OpenAIChatModel, cfg.OpenAIBaseURL)
	if err != nil {
		return nil, err
	}

	handlerOpts := []handlers.Option{
		handlers.WithLogger(log),
		handlers.WithCallTimeout(cfg.OpenAITimeout),
		handlers.WithTranscript(memory.NewManager(memory.NewInMemoryStore(cfg.SessionTTL, cfg.HistoryLimit), cfg.HistoryLimit)),
	}
	if opts.audioDir != "" {
		handlerOpts = append(handlerOpts, handlers.WithSynthesizer(audio))
	}

	return handlers.NewIntakeHandler(audio, proposer, handlerOpts...), nil
}

// runChat reads one utterance per line until the intake is finished or
// input ends. The profile and known fields are held here, as a browser
// client would.
func runChat(ctx context.Context, processor transport.TurnProcessor, in io.Reader, out io.Writer, opts *chatOptions) error {
	sessionID := opts.sessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	if opts.audioDir != "" {
		if err := os.MkdirAll(opts.audioDir, 0o755); err != nil {
			return errors.Wrap(err, "failed to create audio directory")
		}
	}

	registry := intake.DefaultRegistry()
	profile := intake.Profile{}
	var known []string

	fmt.Fprintf(out, "Sessie %s. Vertel iets over uzelf (Ctrl-D om te stoppen).\n", sessionID)

	scanner := bufio.NewScanner(in)
	for turn := 1; ; turn++ {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		result, err := processor.ProcessTurn(ctx, &models.TurnRequest{
			SessionID:   sessionID,
			TextInput:   strings.TrimSpace(scanner.Text()),
			KnownFields: known,
			CurrentData: profile.Map(),
		})
		if err != nil {
			fmt.Fprintf(out, "! %s\n", handlers.PublicMessage(err))
			continue
		}

		resp := result.Response
		fmt.Fprintf(out, "%s: %s\n", memory.AIPrefix, resp.BotText)

		if err := saveAudio(opts.audioDir, turn, resp.AudioBase64); err != nil {
			fmt.Fprintf(out, "! %v\n", err)
		}

		profile = intake.Merge(profile, registry.Sanitize(resp.ExtractedData))
		known = resp.KnownFields

		if resp.IsFinished {
			summary, err := json.MarshalIndent(profile.Map(), "", "  ")
			if err != nil {
				return errors.Wrap(err, "failed to encode profile")
			}
			fmt.Fprintf(out, "Intake compleet:\n%s\n", summary)
			return nil
		}
	}
}

func saveAudio(dir string, turn int, encoded string) error {
	if dir == "" || encoded == "" {
		return nil
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return errors.Wrap(err, "invalid audio in response")
	}
	path := filepath.Join(dir, fmt.Sprintf("turn-%02d.mp3", turn))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	return nil
}
