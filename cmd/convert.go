package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alde/trbk/pkg/compiler"
	"github.com/alde/trbk/pkg/font"
	"github.com/alde/trbk/pkg/profile"
)

var (
	fontRegular    string
	fontBold       string
	fontItalic     string
	fontBoldItalic string
	sizeList       string
	profileName    string
	workerCount    int
	verbose        bool
)

var convertCmd = &cobra.Command{
	Use:   "convert [input.epub] [output.trbk]",
	Short: "Compile an EPUB into a TRBK container",
	Long: `Compile an EPUB into the TRBK binary container for a target device.

One container is produced per requested font size; with multiple sizes
the output name is suffixed with the point size.

Examples:
  trbk convert book.epub book.trbk --font fonts/regular.ttf
  trbk convert book.epub book.trbk --font r.ttf --font-bold b.ttf --sizes 16,20,24
  trbk convert book.epub book.trbk --font r.ttf --profile trw-6`,
	Args: cobra.ExactArgs(2),
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().StringVar(&fontRegular, "font", "", "Regular font file (required)")
	convertCmd.Flags().StringVar(&fontBold, "font-bold", "", "Bold font file (falls back to regular)")
	convertCmd.Flags().StringVar(&fontItalic, "font-italic", "", "Italic font file (falls back to regular)")
	convertCmd.Flags().StringVar(&fontBoldItalic, "font-bold-italic", "", "Bold-italic font file (falls back to regular)")
	convertCmd.Flags().StringVar(&sizeList, "sizes", "", "Point sizes to compile (e.g., \"16,20,24\"; default from profile)")
	convertCmd.Flags().StringVar(&profileName, "profile", "generic", "Target device profile (trw-4, trw-6, generic)")
	convertCmd.Flags().IntVar(&workerCount, "workers", 0, "Number of worker goroutines (0 = auto)")
	convertCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	convertCmd.MarkFlagRequired("font")
}

func runConvert(cmd *cobra.Command, args []string) error {
	inputPath := args[0]
	outputPath := args[1]

	if err := validateInputFile(inputPath); err != nil {
		return fmt.Errorf("input validation failed: %w", err)
	}
	if err := validateOutputPath(outputPath); err != nil {
		return fmt.Errorf("output validation failed: %w", err)
	}

	prof, err := profile.GetProfile(profileName)
	if err != nil {
		return fmt.Errorf("device profile error: %w", err)
	}

	sizes, err := parseSizes(sizeList)
	if err != nil {
		return fmt.Errorf("invalid sizes: %w", err)
	}

	for _, path := range []string{fontRegular, fontBold, fontItalic, fontBoldItalic} {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return fmt.Errorf("font file does not exist: %s", path)
		}
	}

	opts := compiler.Options{
		InputPath:  inputPath,
		OutputPath: outputPath,
		Fonts: font.Paths{
			Regular:    fontRegular,
			Bold:       fontBold,
			Italic:     fontItalic,
			BoldItalic: fontBoldItalic,
		},
		Sizes:       sizes,
		Profile:     prof,
		WorkerCount: workerCount,
		Verbose:     verbose,
	}

	comp := compiler.New(opts)
	return comp.Compile()
}

func parseSizes(list string) ([]int, error) {
	if list == "" {
		return nil, nil
	}
	var sizes []int
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		size, err := strconv.Atoi(part)
		if err != nil || size <= 0 {
			return nil, fmt.Errorf("invalid point size: %s", part)
		}
		sizes = append(sizes, size)
	}
	if len(sizes) == 0 {
		return nil, fmt.Errorf("no sizes given")
	}
	return sizes, nil
}

func validateInputFile(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("input file does not exist: %s", path)
	}
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".epub" {
		return fmt.Errorf("unsupported input format: %s (only .epub is supported)", ext)
	}
	return nil
}

func validateOutputPath(path string) error {
	dir := filepath.Dir(path)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return fmt.Errorf("output directory does not exist: %s", dir)
	}
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".trbk" {
		return fmt.Errorf("unsupported output format: %s (only .trbk is supported)", ext)
	}
	return nil
}
