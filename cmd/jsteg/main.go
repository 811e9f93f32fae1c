// Command jsteg encodes and decodes baseline JPEG images and wraps payloads
// in the JSTG steganographic container format.
package main

import (
	"encoding/json"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	"image/png"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/jstgimg/jsteg_jpeg_go/container"
	"github.com/jstgimg/jsteg_jpeg_go/jsteg"
)

var (
	logFile string
	verbose bool
	log     *zap.Logger
)

func main() {
	root := &cobra.Command{
		Use:           "jsteg",
		Short:         "Baseline JPEG codec with a steganographic payload container",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log = newLogger(logFile, verbose)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = log.Sync()
		},
	}
	root.PersistentFlags().StringVar(&logFile, "log-file", "", "write logs to a rotating file instead of stderr")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(encodeCmd(), decodeCmd(), inspectCmd(), wrapCmd(), unwrapCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "jsteg: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(logFile string, verbose bool) *zap.Logger {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	var sink zapcore.WriteSyncer = zapcore.AddSync(os.Stderr)
	if logFile != "" {
		sink = zapcore.AddSync(&lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
		})
	}
	encoder := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	return zap.New(zapcore.NewCore(encoder, sink, level))
}

func encodeCmd() *cobra.Command {
	var quality int
	cmd := &cobra.Command{
		Use:   "encode <input image> <output.jpg>",
		Short: "Encode a PNG/JPEG/BMP/TIFF image as a baseline JPEG",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			img, err := loadRGBA(args[0])
			if err != nil {
				return err
			}
			out, err := jsteg.Encode(img, quality)
			if err != nil {
				return errors.Wrap(err, "encoding")
			}
			if err := os.WriteFile(args[1], out, 0o644); err != nil {
				return err
			}
			log.Info("encoded",
				zap.Int("width", img.Width),
				zap.Int("height", img.Height),
				zap.Int("bytes", len(out)))
			return nil
		},
	}
	cmd.Flags().IntVarP(&quality, "quality", "q", 75, "quality 1-100 (reserved)")
	return cmd
}

func decodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode <input.jpg> <output.png>",
		Short: "Decode a baseline JPEG to PNG",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			result, err := jsteg.Decode(data)
			if err != nil {
				return errors.Wrap(err, "decoding")
			}
			if result.JFIF != nil {
				log.Debug("jfif",
					zap.Uint8("version_major", result.JFIF.VersionMajor),
					zap.Uint8("version_minor", result.JFIF.VersionMinor),
					zap.Uint16("x_density", result.JFIF.XDensity),
					zap.Uint16("y_density", result.JFIF.YDensity))
			}

			out := image.NewNRGBA(image.Rect(0, 0, result.Width, result.Height))
			copy(out.Pix, result.Pixels)
			file, err := os.Create(args[1])
			if err != nil {
				return err
			}
			defer file.Close()
			if err := png.Encode(file, out); err != nil {
				return err
			}
			log.Info("decoded",
				zap.Int("width", result.Width),
				zap.Int("height", result.Height))
			return nil
		},
	}
}

func inspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <input.jpg>",
		Short: "Dump the marker segments of a JPEG file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			segments, err := jsteg.ParseSegments(data)
			if err != nil {
				return errors.Wrap(err, "parsing")
			}

			markerColor := color.New(color.FgCyan, color.Bold)
			scanColor := color.New(color.FgYellow)
			for i := range segments {
				seg := &segments[i]
				markerColor.Printf("%-6s", seg.Name())
				fmt.Printf(" offset=%-8d", seg.Offset)
				if seg.Kind != jsteg.SegmentStandalone {
					fmt.Printf(" payload=%d", len(seg.Data))
				}
				fmt.Println()
				if seg.Kind == jsteg.SegmentScan {
					scanColor.Printf("  scan data: %d bytes\n", len(seg.Scan))
				}
			}
			return nil
		},
	}
}

func wrapCmd() *cobra.Command {
	var (
		metaPairs []string
		metaJSON  string
		compress  bool
		stampID   bool
	)
	cmd := &cobra.Command{
		Use:   "wrap <payload file> <output.jstg>",
		Short: "Wrap a payload in a JSTG container",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			metadata := map[string]interface{}{}
			if metaJSON != "" {
				if err := json.Unmarshal([]byte(metaJSON), &metadata); err != nil {
					return errors.Wrap(err, "parsing --meta-json")
				}
			}
			for _, pair := range metaPairs {
				k, v, ok := strings.Cut(pair, "=")
				if !ok {
					return errors.Errorf("--meta %q is not key=value", pair)
				}
				metadata[k] = v
			}
			if stampID {
				metadata["id"] = uuid.NewString()
			}

			var flags uint8
			if compress {
				flags |= container.FlagCompressed
			}

			out, err := container.Encode(payload, metadata, flags)
			if err != nil {
				return errors.Wrap(err, "wrapping")
			}
			if err := os.WriteFile(args[1], out, 0o644); err != nil {
				return err
			}
			log.Info("wrapped",
				zap.Int("payload_bytes", len(payload)),
				zap.Int("container_bytes", len(out)),
				zap.Uint8("flags", flags))
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&metaPairs, "meta", nil, "metadata entry key=value (repeatable)")
	cmd.Flags().StringVar(&metaJSON, "meta-json", "", "metadata as a raw JSON object")
	cmd.Flags().BoolVar(&compress, "compress", false, "deflate the payload (sets the compressed flag)")
	cmd.Flags().BoolVar(&stampID, "stamp-id", false, "stamp a generated id into the metadata")
	return cmd
}

func unwrapCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unwrap <input.jstg> <payload file>",
		Short: "Extract the payload from a JSTG container",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if !container.IsContainer(data) {
				return errors.Errorf("%s is not a JSTG container", args[0])
			}
			p, err := container.Decode(data)
			if err != nil {
				return errors.Wrap(err, "unwrapping")
			}
			if err := os.WriteFile(args[1], p.Payload, 0o644); err != nil {
				return err
			}
			meta, _ := json.Marshal(p.Metadata)
			log.Info("unwrapped",
				zap.Int("payload_bytes", len(p.Payload)),
				zap.Uint8("flags", p.Flags),
				zap.String("metadata", string(meta)))
			return nil
		},
	}
}

func loadRGBA(path string) (*jsteg.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	src, format, err := image.Decode(file)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding %s", path)
	}
	log.Debug("loaded source image", zap.String("format", format))

	bounds := src.Bounds()
	rgba := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), src, bounds.Min, draw.Src)

	return &jsteg.Image{
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Pixels: rgba.Pix,
	}, nil
}
