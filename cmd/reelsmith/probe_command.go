package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"reelsmith/internal/media/ffprobe"
)

func newProbeCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "probe <file>",
		Short: "Inspect a media file with ffprobe",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			result, err := ffprobe.Inspect(cmd.Context(), cfg.Render.FFprobeBinary, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "format: %s\n", result.Format.FormatName)
			fmt.Fprintf(out, "duration: %.3fs\n", result.DurationSeconds())
			for _, stream := range result.Streams {
				switch stream.CodecType {
				case "video":
					fmt.Fprintf(out, "stream %d: video %s %dx%d\n", stream.Index, stream.CodecName, stream.Width, stream.Height)
				case "audio":
					fmt.Fprintf(out, "stream %d: audio %s %dch\n", stream.Index, stream.CodecName, stream.Channels)
				default:
					fmt.Fprintf(out, "stream %d: %s %s\n", stream.Index, stream.CodecType, stream.CodecName)
				}
			}
			return nil
		},
	}
}
