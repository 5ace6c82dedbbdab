package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/k-shaswat/Symphonia/internal/audio"
	"github.com/k-shaswat/Symphonia/internal/cache"
	"github.com/k-shaswat/Symphonia/internal/library"
	"github.com/k-shaswat/Symphonia/internal/midi"
	"github.com/k-shaswat/Symphonia/internal/pipeline"
	"github.com/k-shaswat/Symphonia/internal/record"
	"github.com/k-shaswat/Symphonia/internal/score"
	"github.com/k-shaswat/Symphonia/internal/server"
	"github.com/k-shaswat/Symphonia/internal/soundfont"
	"github.com/k-shaswat/Symphonia/internal/synth"
	"github.com/k-shaswat/Symphonia/internal/workspace"
)

var (
	version = "0.1.0"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "symphonia",
	Short: "Transcribe melodies and play them back with any instrument",
	Long: `Symphonia extracts the melody from an audio file, quantizes it to
musical notes, and plays it back through a soundfont instrument of
your choice.

Pipeline: audio → pitch contour → note segmentation → synthesis`,
	Version: version,
}

var transcribeCmd = &cobra.Command{
	Use:   "transcribe",
	Short: "Transcribe an audio file and play it back",
	Long: `Transcribe the melody of an audio file into notes, then pick a
soundfont instrument to hear it with.

Examples:
  symphonia transcribe --input song.wav
  symphonia transcribe -i song.mp3 --instrument "Grand Piano" --wav-out out.wav
  symphonia transcribe -i take.flac --midi-out take.mid --no-play`,
	RunE: runTranscribe,
}

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record from the microphone and transcribe the take",
	Long: `Capture audio from the default input device, then run the same
transcription pipeline on the recording.

Examples:
  symphonia record --duration 10
  symphonia record -d 5 --keep-wav take.wav`,
	RunE: runRecord,
}

var instrumentsCmd = &cobra.Command{
	Use:   "instruments",
	Short: "List available soundfont instruments",
	RunE:  runInstruments,
}

var libraryCmd = &cobra.Command{
	Use:   "library",
	Short: "Browse saved transcriptions",
	Long: `Browse transcriptions saved with --save.

Subcommands:
  list        List saved transcriptions
  show ID     Show the notes of one transcription
  remove ID   Delete a transcription`,
}

var libraryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved transcriptions",
	RunE:  runLibraryList,
}

var libraryShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a saved transcription",
	Args:  cobra.ExactArgs(1),
	RunE:  runLibraryShow,
}

var libraryRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Delete a saved transcription",
	Args:  cobra.ExactArgs(1),
	RunE:  runLibraryRemove,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web interface",
	Long: `Start the web interface for uploading audio files and rendering
transcriptions in the browser.

Example:
  symphonia serve --port 8080`,
	RunE: runServe,
}

var (
	// transcribe flags
	inputPath    string
	soundfontDir string
	instrument   string
	midiOutput   string
	scoreOutput  string
	wavOutput    string
	minFrames    int
	noPlay       bool
	noCache      bool
	saveToLib    bool
	verbose      bool

	// record flags
	recordDuration float64
	keepWAV        string

	// library flags
	libraryPath string

	// serve flags
	port int
)

func init() {
	rootCmd.AddCommand(transcribeCmd)
	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(instrumentsCmd)
	rootCmd.AddCommand(libraryCmd)
	rootCmd.AddCommand(serveCmd)

	libraryCmd.AddCommand(libraryListCmd)
	libraryCmd.AddCommand(libraryShowCmd)
	libraryCmd.AddCommand(libraryRemoveCmd)

	transcribeCmd.Flags().StringVarP(&inputPath, "input", "i", "", "Input audio file (WAV, MP3 or FLAC)")
	transcribeCmd.Flags().StringVar(&soundfontDir, "soundfonts", "soundfonts", "Directory containing .sf2 files")
	transcribeCmd.Flags().StringVar(&instrument, "instrument", "", "Instrument name or number (skips the prompt)")
	transcribeCmd.Flags().StringVar(&midiOutput, "midi-out", "", "Save the transcription as a MIDI file")
	transcribeCmd.Flags().StringVar(&scoreOutput, "score-out", "", "Save the transcription as a YAML score")
	transcribeCmd.Flags().StringVar(&wavOutput, "wav-out", "", "Save the rendered audio as WAV")
	transcribeCmd.Flags().IntVar(&minFrames, "min-frames", 5, "Minimum sustained frames for a note")
	transcribeCmd.Flags().BoolVar(&noPlay, "no-play", false, "Skip audio playback")
	transcribeCmd.Flags().BoolVar(&noCache, "no-cache", false, "Skip the transcription cache")
	transcribeCmd.Flags().BoolVar(&saveToLib, "save", false, "Save the transcription to the library")
	transcribeCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	transcribeCmd.MarkFlagRequired("input")

	recordCmd.Flags().Float64VarP(&recordDuration, "duration", "d", 10, "Recording length in seconds")
	recordCmd.Flags().StringVar(&keepWAV, "keep-wav", "", "Also save the raw recording to this path")
	recordCmd.Flags().StringVar(&soundfontDir, "soundfonts", "soundfonts", "Directory containing .sf2 files")
	recordCmd.Flags().StringVar(&instrument, "instrument", "", "Instrument name or number (skips the prompt)")
	recordCmd.Flags().StringVar(&midiOutput, "midi-out", "", "Save the transcription as a MIDI file")
	recordCmd.Flags().StringVar(&scoreOutput, "score-out", "", "Save the transcription as a YAML score")
	recordCmd.Flags().StringVar(&wavOutput, "wav-out", "", "Save the rendered audio as WAV")
	recordCmd.Flags().IntVar(&minFrames, "min-frames", 5, "Minimum sustained frames for a note")
	recordCmd.Flags().BoolVar(&noPlay, "no-play", false, "Skip audio playback")
	recordCmd.Flags().BoolVar(&saveToLib, "save", false, "Save the transcription to the library")
	recordCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	instrumentsCmd.Flags().StringVar(&soundfontDir, "soundfonts", "soundfonts", "Directory containing .sf2 files")

	libraryCmd.PersistentFlags().StringVar(&libraryPath, "db", "", "Library database path (default: user config dir)")

	serveCmd.Flags().IntVarP(&port, "port", "p", 8080, "Port to listen on")
	serveCmd.Flags().StringVar(&soundfontDir, "soundfonts", "soundfonts", "Directory containing .sf2 files")
	serveCmd.Flags().BoolVar(&noCache, "no-cache", false, "Skip the transcription cache")
}

// signalContext returns a context cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nInterrupted, cleaning up...")
		cancel()
	}()

	return ctx, cancel
}

func runTranscribe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	result, err := transcribeFile(ctx, inputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}

	return finishTranscription(ctx, result, inputPath)
}

func runRecord(cmd *cobra.Command, args []string) error {
	if recordDuration <= 0 {
		return fmt.Errorf("invalid duration: %.1f", recordDuration)
	}

	ctx, cancel := signalContext()
	defer cancel()

	rec, err := record.NewRecorder()
	if err != nil {
		return err
	}
	defer rec.Close()

	color.New(color.Bold).Printf("Recording %.0fs from the default input device...\n", recordDuration)
	samples, err := rec.Record(ctx, recordDuration)
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		return fmt.Errorf("nothing was recorded")
	}

	ws, err := workspace.Create()
	if err != nil {
		return err
	}
	defer ws.Cleanup()

	capturePath := ws.CaptureWAV()
	if err := audio.WriteWAV(capturePath, samples, record.SampleRate); err != nil {
		return err
	}
	if keepWAV != "" {
		if err := audio.WriteWAV(keepWAV, samples, record.SampleRate); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not save recording: %v\n", err)
		} else {
			fmt.Printf("Recording saved to %s\n", keepWAV)
		}
	}

	// Mic takes are one-offs, caching them buys nothing
	noCache = true

	result, err := transcribeFile(ctx, capturePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	result.Title = "recording"

	return finishTranscription(ctx, result, capturePath)
}

// transcribeFile runs the pipeline on one input file
func transcribeFile(ctx context.Context, path string) (*pipeline.Result, error) {
	var c *cache.Cache
	if !noCache {
		var err error
		if c, err = cache.New(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: cache unavailable: %v\n", err)
		}
	}

	orch := pipeline.NewOrchestrator(os.Stdout, verbose, c)

	cfg := pipeline.DefaultConfig()
	cfg.InputPath = path
	cfg.MinFrames = minFrames
	cfg.UseCache = !noCache

	return orch.Execute(ctx, cfg)
}

// finishTranscription handles everything after the pipeline: summary,
// file outputs, library save, and the instrument playback loop.
func finishTranscription(ctx context.Context, result *pipeline.Result, sourcePath string) error {
	printSummary(result)

	if len(result.Events) == 0 {
		return fmt.Errorf("no sustained notes found in %s", filepath.Base(sourcePath))
	}

	if midiOutput != "" {
		if err := midi.WriteFile(midiOutput, result.Events, result.BPM); err != nil {
			return err
		}
		fmt.Printf("MIDI saved to %s\n", midiOutput)
	}

	if scoreOutput != "" {
		s := &score.Score{
			Title:  result.Title,
			Source: filepath.Base(sourcePath),
			BPM:    result.BPM,
			Key:    result.Key,
			Events: result.Events,
		}
		if err := score.Save(scoreOutput, s); err != nil {
			return err
		}
		fmt.Printf("Score saved to %s\n", scoreOutput)
	}

	if saveToLib {
		if err := saveToLibrary(result, sourcePath); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not save to library: %v\n", err)
		}
	}

	if noPlay && wavOutput == "" {
		return nil
	}

	catalog, err := soundfont.Scan(soundfontDir)
	if err != nil {
		return err
	}

	return playbackLoop(ctx, result, catalog)
}

// playbackLoop renders the transcription with a chosen instrument and
// plays it, then offers to try another instrument.
func playbackLoop(ctx context.Context, result *pipeline.Result, catalog *soundfont.Catalog) error {
	reader := bufio.NewReader(os.Stdin)
	interactive := instrument == ""
	choice := instrument
	first := true

	for {
		if interactive {
			printCatalog(catalog)
			fmt.Print("Select an instrument (number or name): ")
			line, err := reader.ReadString('\n')
			if err != nil {
				return nil
			}
			choice = strings.TrimSpace(line)
		}

		inst, err := catalog.Select(choice)
		if err != nil {
			if interactive {
				color.Red("  %v", err)
				continue
			}
			return err
		}

		sf, err := inst.Load()
		if err != nil {
			return err
		}

		fmt.Printf("Rendering with %s...\n", color.CyanString(inst.Name))
		pcm, err := synth.NewRenderer(sf).Render(result.Events)
		if err != nil {
			return err
		}

		if first && wavOutput != "" {
			if err := audio.WriteWAVStereo(wavOutput, pcm, synth.SampleRate); err != nil {
				return err
			}
			fmt.Printf("Audio saved to %s\n", wavOutput)
		}
		first = false

		if !noPlay {
			if err := synth.Play(ctx, pcm); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}

		if !interactive || noPlay {
			return nil
		}

		fmt.Print("Play another instrument? [y/N]: ")
		line, err := reader.ReadString('\n')
		if err != nil || !strings.HasPrefix(strings.ToLower(strings.TrimSpace(line)), "y") {
			return nil
		}
	}
}

func printSummary(result *pipeline.Result) {
	bold := color.New(color.Bold)

	fmt.Println()
	bold.Printf("%s: ", result.Title)
	fmt.Printf("%d notes, %.0f BPM", len(result.Events), result.BPM)
	if result.Key != "" {
		fmt.Printf(", %s", result.Key)
	}
	if result.FromCache {
		fmt.Printf(" %s", color.YellowString("(cached)"))
	}
	fmt.Println()

	if verbose {
		for _, e := range result.Events {
			fmt.Printf("  %6.2fs  %-4s %.2fs\n", e.Start, e.Name, e.Duration)
		}
	}
}

func printCatalog(catalog *soundfont.Catalog) {
	fmt.Println("\nAvailable instruments:")
	for i, inst := range catalog.Instruments {
		fmt.Printf("  %s %s\n", color.CyanString("%2d.", i+1), inst.Name)
	}
}

func saveToLibrary(result *pipeline.Result, sourcePath string) error {
	lib, err := library.Open(resolveLibraryPath())
	if err != nil {
		return err
	}
	defer lib.Close()

	checksum := result.CacheKey
	if checksum == "" {
		checksum, _ = cache.KeyForFile(sourcePath)
	}

	id, err := lib.Add(library.Entry{
		Title:    result.Title,
		Source:   filepath.Base(sourcePath),
		Checksum: checksum,
		BPM:      result.BPM,
		Key:      result.Key,
		Events:   result.Events,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Saved to library as #%d\n", id)
	return nil
}

// resolveLibraryPath returns --db when set, otherwise a per-user default
func resolveLibraryPath() string {
	if libraryPath != "" {
		return libraryPath
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "symphonia.db"
	}
	dir := filepath.Join(base, "symphonia")
	os.MkdirAll(dir, 0755)
	return filepath.Join(dir, "library.db")
}

func runInstruments(cmd *cobra.Command, args []string) error {
	catalog, err := soundfont.Scan(soundfontDir)
	if err != nil {
		return err
	}

	for i, inst := range catalog.Instruments {
		fmt.Printf("%s %s\n", color.CyanString("%2d.", i+1), color.New(color.Bold).Sprint(inst.Name))

		presets, err := inst.Presets()
		if err != nil {
			fmt.Printf("     (unreadable: %v)\n", err)
			continue
		}
		const maxShown = 8
		for j, p := range presets {
			if j == maxShown {
				fmt.Printf("     ... and %d more\n", len(presets)-maxShown)
				break
			}
			fmt.Printf("     %s\n", p)
		}
	}
	return nil
}

func runLibraryList(cmd *cobra.Command, args []string) error {
	lib, err := library.Open(resolveLibraryPath())
	if err != nil {
		return err
	}
	defer lib.Close()

	entries, err := lib.List()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("Library is empty. Transcribe with --save to add entries.")
		return nil
	}

	for _, e := range entries {
		fmt.Printf("%s %s  %d notes, %.0f BPM", color.CyanString("#%d", e.ID), e.Title, e.NoteCount, e.BPM)
		if e.Key != "" {
			fmt.Printf(", %s", e.Key)
		}
		fmt.Printf("  (%s)\n", e.CreatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

func runLibraryShow(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id: %s", args[0])
	}

	lib, err := library.Open(resolveLibraryPath())
	if err != nil {
		return err
	}
	defer lib.Close()

	e, err := lib.Get(id)
	if err != nil {
		return err
	}

	color.New(color.Bold).Printf("#%d %s", e.ID, e.Title)
	fmt.Printf("  (%s, %.0f BPM", e.Source, e.BPM)
	if e.Key != "" {
		fmt.Printf(", %s", e.Key)
	}
	fmt.Println(")")
	for _, ev := range e.Events {
		fmt.Printf("  %6.2fs  %-4s %.2fs\n", ev.Start, ev.Name, ev.Duration)
	}
	return nil
}

func runLibraryRemove(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id: %s", args[0])
	}

	lib, err := library.Open(resolveLibraryPath())
	if err != nil {
		return err
	}
	defer lib.Close()

	if err := lib.Remove(id); err != nil {
		return err
	}
	fmt.Printf("Removed #%d\n", id)
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	srv, err := server.New(server.Config{
		Port:          port,
		SoundfontDir:  soundfontDir,
		CacheDisabled: noCache,
	})
	if err != nil {
		return err
	}
	return srv.Run()
}
