package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/yleoer/melody/pkg/audiosource"
	"github.com/yleoer/melody/pkg/config"
	"github.com/yleoer/melody/pkg/converter"
	"github.com/yleoer/melody/pkg/database"
	"github.com/yleoer/melody/pkg/display"
	"github.com/yleoer/melody/pkg/lyric"
	"github.com/yleoer/melody/pkg/mpris"
	"github.com/yleoer/melody/pkg/player"
	"github.com/yleoer/melody/pkg/scanner"
	"github.com/yleoer/melody/pkg/session"
	"github.com/yleoer/melody/pkg/textenc"
)

var (
	argConfigPath string
	argEncoding   string
)

var rootCmd = &cobra.Command{
	Use:   "melody",
	Short: "Local-library music player core with synced lyrics",
	Long:  "melody scans local folders for audio files, matches external lyric files, and keeps time-synced lyrics aligned with playback.",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Watch the library and follow the MPRIS player, writing synced lyrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

var lyricsCmd = &cobra.Command{
	Use:   "lyrics [audio file]",
	Short: "Resolve, decode and print the lyrics for an audio file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLyrics(args[0])
	},
}

var resolveCmd = &cobra.Command{
	Use:   "resolve [audio file]",
	Short: "Print the best-matching lyric file for an audio file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runResolve(args[0])
	},
}

var shiftCmd = &cobra.Command{
	Use:   "shift [lyric file] [offset seconds]",
	Short: "Bake a timing offset into a lyric file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		offset, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("invalid offset %q: %w", args[1], err)
		}
		return runShift(args[0], offset)
	},
}

var scanCmd = &cobra.Command{
	Use:   "scan [dir...]",
	Short: "Scan library folders and print what was found",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScan(args)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&argConfigPath, "config", "c", "", "Path to melody.yaml config file")
	lyricsCmd.Flags().StringVarP(&argEncoding, "encoding", "e", "",
		"Encoding hint for the lyric file, one of: "+strings.Join(textenc.KnownEncodings(), ", ")+" (default: stored preference or auto)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(lyricsCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(shiftCmd)
	rootCmd.AddCommand(scanCmd)
}

func newLogger() *log.Logger {
	return log.New(os.Stderr, "[melody] ", log.LstdFlags)
}

// newTextConverter 根据配置决定是否启用繁简转换
func newTextConverter(cfg *config.Config, logger *log.Logger) converter.TextConverter {
	if !cfg.ConvertTradToSim {
		return converter.NewNoopConverter()
	}
	tc, err := converter.NewOpenCCConverter(logger)
	if err != nil {
		logger.Printf("WARN: Failed to initialize OpenCC converter, conversion disabled: %v", err)
		return converter.NewNoopConverter()
	}
	return tc
}

func runServe() error {
	logger := newLogger()
	cfg, err := config.LoadConfig(argConfigPath, logger)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if len(cfg.LibraryDirs) == 0 {
		return fmt.Errorf("no library directories configured (set library_dirs or LIBRARY_DIRS)")
	}

	// 初始化依赖服务
	textConverter := newTextConverter(cfg, logger)
	prefStore, err := database.NewSQLiteStore(cfg.DBPath, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer prefStore.Close()

	detector := textenc.NewDetector(logger)
	resolver := lyric.NewResolver(logger)
	loader := audiosource.NewLoader(cfg.FFmpegPath, cfg.FFprobePath, logger)
	sess := session.NewSession()
	pl := player.NewPlayer(detector, resolver, textConverter, prefStore, loader, sess, logger)

	libScanner := scanner.NewLibraryScanner(logger)
	for _, dir := range cfg.LibraryDirs {
		if _, err := libScanner.ScanFolder(dir); err != nil {
			logger.Printf("WARN: Initial scan of %s failed: %v", dir, err)
		}
	}

	watcher, err := scanner.NewWatcher(cfg.RescanDelay, func(root string) {
		if _, err := libScanner.ScanFolder(root); err != nil {
			logger.Printf("WARN: Rescan of %s failed: %v", root, err)
		}
	}, logger)
	if err != nil {
		return err
	}
	defer watcher.Close()
	for _, dir := range cfg.LibraryDirs {
		if err := watcher.Add(dir); err != nil {
			logger.Printf("WARN: %v", err)
		}
	}
	watcher.Start()

	client, err := mpris.NewClient(cfg.MPRISService, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to MPRIS player: %w", err)
	}
	defer client.Close()

	out := display.NewDisplay(cfg.DisplayLines, cfg.DisplayOutput, logger)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()

	currentTrack := ""
	for {
		select {
		case <-sigCh:
			logger.Println("Shutting down.")
			return nil
		case <-ticker.C:
			trackPath, err := client.TrackPath()
			if err != nil {
				out.SingleLine("No track playing")
				continue
			}
			if trackPath != currentTrack {
				currentTrack = trackPath
				candidates := libScanner.LyricCandidatesFor(trackPath)
				pl.SetActiveTrack(trackPath, candidates)
			}
			pos, err := client.Position()
			if err != nil {
				logger.Printf("WARN: Failed to read playback position: %v", err)
				continue
			}
			sess.Tick(pos)
			snap := sess.Snapshot()
			if snap.LineCount == 0 {
				out.SingleLine("♪")
				continue
			}
			out.ShowCurrent(snap.CurrentLine, snap.NextLine)
		}
	}
}

func runLyrics(audioPath string) error {
	logger := newLogger()
	cfg, err := config.LoadConfig(argConfigPath, logger)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	lyricPath, err := resolveLyricPath(audioPath, logger)
	if err != nil {
		return err
	}
	if lyricPath == "" {
		return fmt.Errorf("no lyric file found for %s", audioPath)
	}

	hint := argEncoding
	if hint == "" {
		if store, err := database.NewSQLiteStore(cfg.DBPath, logger); err == nil {
			if stored, err := store.EncodingFor(audioPath); err == nil && stored != "" {
				hint = stored
			}
			store.Close()
		}
	}
	if hint == "" {
		hint = cfg.DefaultEncoding
	}

	data, err := os.ReadFile(lyricPath)
	if err != nil {
		return fmt.Errorf("failed to read lyric file %s: %w", lyricPath, err)
	}
	detector := textenc.NewDetector(logger)
	text, encodingName := detector.Decode(data, hint)
	text = newTextConverter(cfg, logger).TradToSim(text)

	lines := lyric.Parse(text)
	logger.Printf("Decoded %s as %s, %d lines.", filepath.Base(lyricPath), encodingName, len(lines))
	for _, line := range lines {
		fmt.Printf("%8.3f  %s\n", line.Time, line.Text)
	}
	return nil
}

func runResolve(audioPath string) error {
	logger := newLogger()
	lyricPath, err := resolveLyricPath(audioPath, logger)
	if err != nil {
		return err
	}
	if lyricPath == "" {
		return fmt.Errorf("no lyric file found for %s", audioPath)
	}
	fmt.Println(lyricPath)
	return nil
}

// resolveLyricPath 扫描音频所在目录并运行匹配算法
func resolveLyricPath(audioPath string, logger *log.Logger) (string, error) {
	libScanner := scanner.NewLibraryScanner(logger)
	if _, err := libScanner.ScanFolder(filepath.Dir(audioPath)); err != nil {
		return "", fmt.Errorf("failed to scan %s: %w", filepath.Dir(audioPath), err)
	}
	candidates := libScanner.LyricCandidatesFor(audioPath)
	return lyric.NewResolver(logger).Resolve(audioPath, candidates), nil
}

func runShift(lyricPath string, offsetSeconds float64) error {
	logger := newLogger()
	data, err := os.ReadFile(lyricPath)
	if err != nil {
		return fmt.Errorf("failed to read lyric file %s: %w", lyricPath, err)
	}
	text, encodingName := textenc.NewDetector(logger).Decode(data, textenc.EncodingAuto)
	lines := lyric.Parse(text)
	if len(lines) == 0 {
		return fmt.Errorf("no timestamped lines in %s", lyricPath)
	}
	logger.Printf("Decoded %s as %s, shifting %d lines by %.1fs.", filepath.Base(lyricPath), encodingName, len(lines), -offsetSeconds)

	if _, err := player.NewOffsetPersister(logger).SaveShift(lyricPath, lines, offsetSeconds); err != nil {
		return fmt.Errorf("failed to save shifted lyrics: %w", err)
	}
	return nil
}

func runScan(dirs []string) error {
	logger := newLogger()
	if len(dirs) == 0 {
		cfg, err := config.LoadConfig(argConfigPath, logger)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		dirs = cfg.LibraryDirs
	}
	if len(dirs) == 0 {
		return fmt.Errorf("no directories to scan")
	}

	libScanner := scanner.NewLibraryScanner(logger)
	for _, dir := range dirs {
		idx, err := libScanner.ScanFolder(dir)
		if err != nil {
			logger.Printf("WARN: Scan of %s failed: %v", dir, err)
			continue
		}
		fmt.Printf("%s: %d audio files, %d lyric files\n", dir, len(idx.AudioFiles), len(idx.LyricFiles))
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
