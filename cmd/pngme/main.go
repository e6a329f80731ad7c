package main

import (
	"bytes"
	"fmt"
	"os"
	"sort"

	"github.com/flaneur2020/pngme/pngme"
	pngerrors "github.com/flaneur2020/pngme/pngme/errors"
	"github.com/flaneur2020/pngme/pngme/logger"
	"github.com/flaneur2020/pngme/pngme/storage"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	verbose     bool
	debug       bool
	noProgress  bool
	beforeIEND  bool
	concurrency int
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "pngme",
		Short:         "Hide, read and strip messages in PNG chunks",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			switch {
			case debug:
				logger.SetLogLevel(logger.LogLevelDebug)
			case verbose:
				logger.SetLogLevel(logger.LogLevelInfo)
			}
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log progress information")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Log per-chunk parse details")

	// encode command
	encodeCmd := &cobra.Command{
		Use:   "encode <FILE> <CHUNK_TYPE> <MESSAGE> [OUTPUT]",
		Short: "Store a message in a new chunk. Writes <FILE stem>_encoded.png unless OUTPUT is given",
		Args:  cobra.RangeArgs(3, 4),
		RunE:  runEncode,
	}
	encodeCmd.Flags().BoolVar(&beforeIEND, "before-iend", false, "Insert the chunk before IEND instead of appending it")

	// decode command
	decodeCmd := &cobra.Command{
		Use:   "decode <FILE> <CHUNK_TYPE>",
		Short: "Print the message stored in the first chunk of CHUNK_TYPE",
		Args:  cobra.ExactArgs(2),
		RunE:  runDecode,
	}

	// remove command
	removeCmd := &cobra.Command{
		Use:   "remove <FILE> <CHUNK_TYPE>",
		Short: "Remove the first chunk of CHUNK_TYPE, rewriting FILE in place",
		Args:  cobra.ExactArgs(2),
		RunE:  runRemove,
	}

	// print command
	printCmd := &cobra.Command{
		Use:   "print <FILE>",
		Short: "List every chunk in FILE",
		Args:  cobra.ExactArgs(1),
		RunE:  runPrint,
	}

	// scan command
	scanCmd := &cobra.Command{
		Use:   "scan <PATH>...",
		Short: "Validate every PNG under the given files or directories",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runScan,
	}
	scanCmd.Flags().IntVarP(&concurrency, "concurrency", "j", pngme.DefaultScanConcurrency, "Number of files parsed at once")
	scanCmd.Flags().BoolVar(&noProgress, "no-progress", false, "Disable progress bar (shown by default on a terminal)")

	// export command
	exportCmd := &cobra.Command{
		Use:   "export <FILE> <ARCHIVE>",
		Short: "Write every chunk of FILE into a .tar.gz archive",
		Args:  cobra.ExactArgs(2),
		RunE:  runExport,
	}
	exportCmd.Flags().BoolVar(&noProgress, "no-progress", false, "Disable progress bar (shown by default on a terminal)")

	rootCmd.AddCommand(encodeCmd, decodeCmd, removeCmd, printCmd, scanCmd, exportCmd)
	return rootCmd
}

func newEditor() pngme.Editor {
	return pngme.NewEditor(storage.NewLocalStorage())
}

func fail(cmd *cobra.Command, err error) error {
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
	return err
}

// newProgressBar returns a progress callback drawing to stderr, or nil when
// progress is disabled or stderr is not a terminal. finish must always be called.
func newProgressBar(description string, total int) (pngme.ProgressCallback, func()) {
	if noProgress || !term.IsTerminal(int(os.Stderr.Fd())) {
		return nil, func() {}
	}
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
	return func(done, _ int) {
		bar.Set(done)
	}, func() {
		bar.Finish()
	}
}

func runEncode(cmd *cobra.Command, args []string) error {
	opts := pngme.EncodeOptions{BeforeIEND: beforeIEND}
	if len(args) > 3 {
		opts.Output = args[3]
	}

	output, err := newEditor().Encode(cmd.Context(), args[0], args[1], args[2], opts)
	if err != nil {
		return fail(cmd, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Encoded message into %s\n", output)
	return nil
}

func runDecode(cmd *cobra.Command, args []string) error {
	message, err := newEditor().Decode(cmd.Context(), args[0], args[1])
	if err != nil {
		return fail(cmd, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "ENCODED MESSAGE:\n%s\n", message)
	return nil
}

func runRemove(cmd *cobra.Command, args []string) error {
	removed, err := newEditor().Remove(cmd.Context(), args[0], args[1])
	if err != nil {
		return fail(cmd, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Removed %s chunk (%d bytes) from %s\n", removed.ChunkType(), removed.Length(), args[0])
	return nil
}

func runPrint(cmd *cobra.Command, args []string) error {
	png, err := newEditor().Load(cmd.Context(), args[0])
	if err != nil {
		return fail(cmd, err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s (%s)\n", args[0], png.Digest())
	for i, c := range png.Chunks() {
		fmt.Fprintf(out, "Chunk %d:\n%s\n", i, c)
		fmt.Fprintf(out, "Flags: %s\n\n", describeFlags(c.ChunkType()))
	}
	return nil
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	scanner := pngme.NewScanner(storage.NewLocalStorage())
	paths, err := scanner.Expand(ctx, args)
	if err != nil {
		return fail(cmd, err)
	}
	if len(paths) == 0 {
		return fail(cmd, fmt.Errorf("no png files found under %v", args))
	}

	progressCallback, finish := newProgressBar("Scanning", len(paths))
	results, err := scanner.Scan(ctx, paths, pngme.ScanOptions{Concurrency: concurrency}, progressCallback)
	finish()
	if err != nil {
		return fail(cmd, err)
	}

	out := cmd.OutOrStdout()
	var failed int
	codes := make(map[string]int)
	for _, r := range results {
		if r.Err != nil {
			failed++
			codes[errorCode(r.Err)]++
			fmt.Fprintf(out, "FAIL %s: %v\n", r.Path, r.Err)
			continue
		}
		fmt.Fprintf(out, "OK   %s (%d chunks, %d bytes, %s)\n", r.Path, len(r.Chunks), r.Size, r.Digest.Encoded()[:12])
	}

	fmt.Fprintf(out, "Scanned %d files", len(results))
	if failed > 0 {
		fmt.Fprintf(out, " (%d invalid)", failed)
	}
	fmt.Fprintln(out)
	for _, code := range sortedKeys(codes) {
		fmt.Fprintf(out, "  %s: %d\n", code, codes[code])
	}

	if failed > 0 {
		return fail(cmd, fmt.Errorf("%d invalid png files", failed))
	}
	return nil
}

func errorCode(err error) string {
	if code := pngerrors.GetErrorCode(err); code != "" {
		return code
	}
	return "UNKNOWN"
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	png, err := newEditor().Load(ctx, args[0])
	if err != nil {
		return fail(cmd, err)
	}

	progressCallback, finish := newProgressBar("Exporting", png.Len())
	var buf bytes.Buffer
	err = pngme.Export(png, &buf, progressCallback)
	finish()
	if err != nil {
		return fail(cmd, err)
	}
	if err := storage.NewLocalStorage().Write(ctx, args[1], buf.Bytes()); err != nil {
		return fail(cmd, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d chunks to %s\n", png.Len(), args[1])
	return nil
}

func describeFlags(ct pngme.ChunkType) string {
	pick := func(cond bool, yes, no string) string {
		if cond {
			return yes
		}
		return no
	}
	return fmt.Sprintf("%s, %s, %s, %s",
		pick(ct.IsCritical(), "critical", "ancillary"),
		pick(ct.IsPublic(), "public", "private"),
		pick(ct.IsReservedBitValid(), "reserved-ok", "reserved-invalid"),
		pick(ct.IsSafeToCopy(), "safe-to-copy", "unsafe-to-copy"),
	)
}
